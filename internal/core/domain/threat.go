package domain

// Threat scan bounds.
const (
	DefaultThreatScanLimit = 50
	MaxThreatScanLimit     = 500
)

// ThreatLevel grades how dangerous a message looks.
type ThreatLevel string

// Available threat levels, from safest to most dangerous.
const (
	ThreatSafe     ThreatLevel = "safe"
	ThreatCaution  ThreatLevel = "caution"
	ThreatWarning  ThreatLevel = "warning"
	ThreatCritical ThreatLevel = "critical"
)

// ThreatLevels lists the levels, most dangerous first.
func ThreatLevels() []ThreatLevel {
	return []ThreatLevel{ThreatCritical, ThreatWarning, ThreatCaution, ThreatSafe}
}

// Rank orders levels; higher is more dangerous.
func (l ThreatLevel) Rank() int {
	switch l {
	case ThreatCritical:
		return 3
	case ThreatWarning:
		return 2
	case ThreatCaution:
		return 1
	default:
		return 0
	}
}

// Recommendation is the advice shown for a message at this level.
func (l ThreatLevel) Recommendation() string {
	switch l {
	case ThreatCritical:
		return "Delete immediately. This message shows multiple threat indicators."
	case ThreatWarning:
		return "Exercise caution. Do not click links or download attachments."
	case ThreatCaution:
		return "Be suspicious. Verify the sender before responding."
	default:
		return "No significant threats detected."
	}
}

// IndicatorType names the check that raised a ThreatIndicator.
type IndicatorType string

// Indicator types.
const (
	IndicatorPhishing         IndicatorType = "phishing"
	IndicatorSuspiciousDomain IndicatorType = "suspicious_domain"
	IndicatorSuspiciousURL    IndicatorType = "suspicious_url"
	IndicatorTyposquatting    IndicatorType = "typosquatting"
	IndicatorSpoofing         IndicatorType = "spoofing"
)

// Severity of a single indicator.
type Severity string

// Severities.
const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// ThreatIndicator is one piece of evidence found in a message.
type ThreatIndicator struct {
	Type        IndicatorType `json:"type"`
	Severity    Severity      `json:"severity"`
	Description string        `json:"description"`
	Evidence    string        `json:"evidence"`
}

// ThreatAnalysis is the threat assessment of one message.
// It is a pure function of the message content.
type ThreatAnalysis struct {
	MessageID string      `json:"message_id"`
	Subject   string      `json:"subject,omitempty"`
	Sender    string      `json:"from,omitempty"`
	Level     ThreatLevel `json:"level"`

	// Score is bounded in [0,1].
	Score          float64           `json:"score"`
	Indicators     []ThreatIndicator `json:"indicators"`
	Recommendation string            `json:"recommendation"`
}

// ThreatReport aggregates the analyses of a set of messages.
type ThreatReport struct {
	Query    string              `json:"query,omitempty"`
	Analyzed int                 `json:"analyzed"`
	Counts   map[ThreatLevel]int `json:"counts"`

	// Threats holds the analyses, most dangerous first.
	Threats         []ThreatAnalysis `json:"threats"`
	Recommendations []string         `json:"recommendations"`
}

// ThreatRules configures the threat detector. Like ClassificationRules it
// is built once and never mutated.
type ThreatRules struct {
	// TrustedDomains are sender domains never flagged by domain checks.
	TrustedDomains []string

	// PhishingPhrases are matched against the lower-cased subject and body.
	PhishingPhrases []string

	// SuspiciousTLDs are sender domain suffixes, including the dot.
	SuspiciousTLDs []string

	// PhishingDomainPatterns are regular expressions over the sender domain.
	PhishingDomainPatterns []string

	// URLPatterns are regular expressions over each URL in the body.
	URLPatterns []string

	// Typosquats maps a misspelling to the brand it imitates.
	Typosquats map[string]string

	// Brands are names whose mention from a foreign domain suggests spoofing.
	Brands []string

	// Score contributions per check.
	PhishingWeight float64
	DomainWeight   float64
	URLWeight      float64
	TypoWeight     float64
	SpoofWeight    float64

	// Level thresholds over the clamped score.
	CriticalThreshold float64
	WarningThreshold  float64
	CautionThreshold  float64
}

// DefaultThreatRules returns the built-in threat configuration.
func DefaultThreatRules() ThreatRules {
	return ThreatRules{
		TrustedDomains: []string{
			"gmail.com", "outlook.com", "yahoo.com", "icloud.com", "protonmail.com",
			"ibm.com", "google.com", "microsoft.com", "apple.com", "amazon.com",
			"github.com", "linkedin.com", "slack.com", "zoom.com", "stripe.com",
		},
		PhishingPhrases: []string{
			"verify your account", "confirm your identity", "update your password",
			"unusual activity", "click here immediately", "act now", "urgent action required",
			"suspended account", "limited time", "rare opportunity", "claim reward",
			"congratulations you won", "tax refund", "wire transfer",
		},
		SuspiciousTLDs: []string{".tk", ".ml", ".ga", ".cf", ".info", ".biz", ".pw", ".xyz"},
		PhishingDomainPatterns: []string{
			`paypa[li]\.`, `amazon-security`, `apple-id-verification`,
			`microsoft-account`, `gmail-verify`, `tax-refund`,
		},
		URLPatterns: []string{
			`^https?://(bit\.ly|tinyurl\.com|x\.co)/`,
			`^https?://\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`,
			`eval[^/]*\.js`,
			`password[^ ]*reset`,
		},
		Typosquats: map[string]string{
			"gmial": "gmail", "redditt": "reddit", "twiiter": "twitter",
			"paypa1": "paypal", "instgram": "instagram", "amaz0n": "amazon",
		},
		Brands:            []string{"amazon", "apple", "microsoft", "google", "ibm", "paypal"},
		PhishingWeight:    0.2,
		DomainWeight:      0.3,
		URLWeight:         0.25,
		TypoWeight:        0.15,
		SpoofWeight:       0.25,
		CriticalThreshold: 0.75,
		WarningThreshold:  0.5,
		CautionThreshold:  0.25,
	}
}
