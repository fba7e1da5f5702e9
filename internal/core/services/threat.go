package services

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/custodia-labs/mailbrain/internal/core/domain"
)

// maxEvidence bounds the evidence text of an indicator.
const maxEvidence = 50

var urlPattern = regexp.MustCompile(`https?://[^\s)>"']+`)

// ThreatDetector flags phishing, spoofing and related patterns in messages.
// It holds only compiled rules; Analyze is a pure function of the message.
type ThreatDetector struct {
	rules          domain.ThreatRules
	trusted        map[string]struct{}
	domainPatterns []*regexp.Regexp
	urlPatterns    []*regexp.Regexp
	typos          []string
}

// NewThreatDetector compiles rules. An invalid pattern is a
// *domain.ValidationError.
func NewThreatDetector(rules domain.ThreatRules) (*ThreatDetector, error) {
	d := &ThreatDetector{
		rules:   rules,
		trusted: make(map[string]struct{}, len(rules.TrustedDomains)),
	}
	for _, td := range rules.TrustedDomains {
		d.trusted[strings.ToLower(td)] = struct{}{}
	}

	var err error
	if d.domainPatterns, err = compileAll("phishing_domain_patterns", rules.PhishingDomainPatterns); err != nil {
		return nil, err
	}
	if d.urlPatterns, err = compileAll("url_patterns", rules.URLPatterns); err != nil {
		return nil, err
	}

	for typo := range rules.Typosquats {
		d.typos = append(d.typos, typo)
	}
	sort.Strings(d.typos)
	return d, nil
}

func compileAll(field string, patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, &domain.ValidationError{Field: field, Reason: err.Error()}
		}
		out = append(out, re)
	}
	return out, nil
}

// Analyze assesses a single message.
func (d *ThreatDetector) Analyze(msg *domain.Message) domain.ThreatAnalysis {
	sender := strings.ToLower(msg.Sender)
	subject := strings.ToLower(msg.Subject)
	body := strings.ToLower(msg.Body)
	senderDomain := domainOf(sender)

	var indicators []domain.ThreatIndicator
	var score float64

	if ind, ok := d.phishingPhrases(subject + " " + body); ok {
		indicators = append(indicators, ind)
		score += d.rules.PhishingWeight
	}
	if ind, ok := d.senderDomain(senderDomain); ok {
		indicators = append(indicators, ind)
		score += d.rules.DomainWeight
	}
	for _, ind := range d.urls(body) {
		indicators = append(indicators, ind)
		score += d.rules.URLWeight
	}
	if ind, ok := d.typosquat(sender + " " + subject); ok {
		indicators = append(indicators, ind)
		score += d.rules.TypoWeight
	}
	if ind, ok := d.spoofing(sender, subject, senderDomain); ok {
		indicators = append(indicators, ind)
		score += d.rules.SpoofWeight
	}

	score = math.Round(clamp01(score)*100) / 100
	level := d.level(score)
	if indicators == nil {
		indicators = []domain.ThreatIndicator{}
	}
	return domain.ThreatAnalysis{
		MessageID:      msg.ID,
		Subject:        msg.Subject,
		Sender:         msg.Sender,
		Level:          level,
		Score:          score,
		Indicators:     indicators,
		Recommendation: level.Recommendation(),
	}
}

// AnalyzeAll assesses each message, in input order.
func (d *ThreatDetector) AnalyzeAll(messages []domain.Message) []domain.ThreatAnalysis {
	out := make([]domain.ThreatAnalysis, len(messages))
	for i := range messages {
		out[i] = d.Analyze(&messages[i])
	}
	return out
}

// Report analyses messages and orders the results most dangerous first.
// Equal levels keep the higher score first, then input order.
func (d *ThreatDetector) Report(query string, messages []domain.Message) *domain.ThreatReport {
	analyses := d.AnalyzeAll(messages)
	sort.SliceStable(analyses, func(i, j int) bool {
		a, b := analyses[i], analyses[j]
		if a.Level.Rank() != b.Level.Rank() {
			return a.Level.Rank() > b.Level.Rank()
		}
		return a.Score > b.Score
	})

	counts := make(map[domain.ThreatLevel]int, 4)
	for _, level := range domain.ThreatLevels() {
		counts[level] = 0
	}
	for i := range analyses {
		counts[analyses[i].Level]++
	}

	return &domain.ThreatReport{
		Query:           query,
		Analyzed:        len(analyses),
		Counts:          counts,
		Threats:         analyses,
		Recommendations: recommendations(counts, len(analyses)),
	}
}

func recommendations(counts map[domain.ThreatLevel]int, total int) []string {
	if total == 0 {
		return []string{"No messages to analyse."}
	}
	var out []string
	if n := counts[domain.ThreatCritical]; n > 0 {
		out = append(out, fmt.Sprintf("%d messages need immediate attention. Delete or quarantine them.", n))
	}
	if n := counts[domain.ThreatWarning]; n > 0 {
		out = append(out, fmt.Sprintf("%d messages are suspicious. Do not open their links or attachments.", n))
	}
	if n := counts[domain.ThreatCaution]; n > 0 {
		out = append(out, fmt.Sprintf("%d messages need review. Verify the sender before responding.", n))
	}
	if counts[domain.ThreatSafe] == total {
		out = append(out, "All analysed messages appear safe.")
	}
	return out
}

func (d *ThreatDetector) level(score float64) domain.ThreatLevel {
	switch {
	case score >= d.rules.CriticalThreshold:
		return domain.ThreatCritical
	case score >= d.rules.WarningThreshold:
		return domain.ThreatWarning
	case score >= d.rules.CautionThreshold:
		return domain.ThreatCaution
	default:
		return domain.ThreatSafe
	}
}

func (d *ThreatDetector) phishingPhrases(text string) (domain.ThreatIndicator, bool) {
	var found []string
	for _, phrase := range d.rules.PhishingPhrases {
		if strings.Contains(text, phrase) {
			found = append(found, phrase)
		}
	}
	if len(found) == 0 {
		return domain.ThreatIndicator{}, false
	}
	return domain.ThreatIndicator{
		Type:        domain.IndicatorPhishing,
		Severity:    domain.SeverityHigh,
		Description: fmt.Sprintf("Found %d phishing-related phrases", len(found)),
		Evidence:    strings.Join(found[:min(len(found), 3)], ", "),
	}, true
}

// senderDomain checks the suspicious TLDs first, then the known phishing
// domain patterns.
func (d *ThreatDetector) senderDomain(host string) (domain.ThreatIndicator, bool) {
	if host == "" || d.isTrusted(host) {
		return domain.ThreatIndicator{}, false
	}
	for _, tld := range d.rules.SuspiciousTLDs {
		if strings.HasSuffix(host, tld) {
			return domain.ThreatIndicator{
				Type:        domain.IndicatorSuspiciousDomain,
				Severity:    domain.SeverityMedium,
				Description: "Domain uses suspicious TLD: " + tld,
				Evidence:    host,
			}, true
		}
	}
	for _, re := range d.domainPatterns {
		if re.MatchString(host) {
			return domain.ThreatIndicator{
				Type:        domain.IndicatorPhishing,
				Severity:    domain.SeverityCritical,
				Description: "Sender domain matches known phishing pattern",
				Evidence:    host,
			}, true
		}
	}
	return domain.ThreatIndicator{}, false
}

// urls raises one indicator per URL matching any pattern.
func (d *ThreatDetector) urls(body string) []domain.ThreatIndicator {
	var out []domain.ThreatIndicator
	for _, u := range urlPattern.FindAllString(body, -1) {
		for _, re := range d.urlPatterns {
			if re.MatchString(u) {
				out = append(out, domain.ThreatIndicator{
					Type:        domain.IndicatorSuspiciousURL,
					Severity:    domain.SeverityHigh,
					Description: "URL matches suspicious pattern",
					Evidence:    truncateRunes(u, maxEvidence),
				})
				break
			}
		}
	}
	return out
}

func (d *ThreatDetector) typosquat(text string) (domain.ThreatIndicator, bool) {
	for _, typo := range d.typos {
		if strings.Contains(text, typo) {
			return domain.ThreatIndicator{
				Type:        domain.IndicatorTyposquatting,
				Severity:    domain.SeverityHigh,
				Description: fmt.Sprintf("Possible typosquatting: %s vs %s", typo, d.rules.Typosquats[typo]),
				Evidence:    typo,
			}, true
		}
	}
	return domain.ThreatIndicator{}, false
}

// spoofing flags a brand named in the sender or subject when the sender
// domain neither carries the brand nor is trusted.
func (d *ThreatDetector) spoofing(sender, subject, host string) (domain.ThreatIndicator, bool) {
	if host == "" || d.isTrusted(host) {
		return domain.ThreatIndicator{}, false
	}
	for _, brand := range d.rules.Brands {
		if !strings.Contains(subject, brand) && !strings.Contains(sender, brand) {
			continue
		}
		if strings.Contains(host, brand) {
			continue
		}
		return domain.ThreatIndicator{
			Type:        domain.IndicatorSpoofing,
			Severity:    domain.SeverityCritical,
			Description: fmt.Sprintf("Possible spoofing: mentions %s but domain is %s", brand, host),
			Evidence:    host,
		}, true
	}
	return domain.ThreatIndicator{}, false
}

func (d *ThreatDetector) isTrusted(host string) bool {
	_, ok := d.trusted[host]
	return ok
}

// domainOf extracts the domain of an address such as
// "Name <user@example.com>".
func domainOf(sender string) string {
	at := strings.LastIndexByte(sender, '@')
	if at < 0 {
		return ""
	}
	host := sender[at+1:]
	if end := strings.IndexAny(host, "> \t"); end >= 0 {
		host = host[:end]
	}
	return strings.TrimSuffix(host, ".")
}
