// Package source holds the message source adapters and the file watching
// they share. Subpackages implement driven.MessageSource:
//
//   - jsonfile: a single JSON corpus file
//   - emldir: a directory of RFC 822 .eml files
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/mailbrain/internal/logger"
)

// DefaultDebounce coalesces bursts of writes (editors often save in several steps).
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions configures Watch.
type WatchOptions struct {
	// Paths are the files or directories to watch. Watching a file's parent
	// directory survives editors that replace the file on save.
	Paths []string

	// Match filters event paths; nil accepts everything.
	Match func(path string) bool

	// Debounce is the quiet period before onChange fires.
	Debounce time.Duration
}

// Watch blocks until ctx is done, calling onChange once per burst of
// matching create, write, remove or rename events.
func Watch(ctx context.Context, opts WatchOptions, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	for _, p := range opts.Paths {
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		logger.Debug("watching %s", p)
	}

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, opts.Match) {
				continue
			}
			logger.Debug("source change: %s %s", event.Op, event.Name)
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error: %v", err)

		case <-timer.C:
			onChange()
		}
	}
}

func relevant(event fsnotify.Event, match func(string) bool) bool {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return false
	}
	return match == nil || match(event.Name)
}
