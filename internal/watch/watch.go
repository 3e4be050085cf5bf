// Package watch re-runs work when an input file changes.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before onChange runs.
const DefaultDebounce = 250 * time.Millisecond

// File watches path and calls onChange once writes to it settle. Calls never
// overlap. It blocks until ctx is cancelled and any call in flight returns. Editors that replace files atomically are handled
// by watching the parent directory and filtering on the file name.
func File(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, onChange func(context.Context)) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}
	logger.Debug("watching file", "path", abs)

	wctx, stop := context.WithCancel(ctx)

	// The timer only signals; a single worker runs onChange so runs never
	// overlap. Changes during a run coalesce into one follow-up run.
	trigger := make(chan struct{}, 1)
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		for {
			select {
			case <-wctx.Done():
				return
			case <-trigger:
				if wctx.Err() != nil {
					return
				}
				logger.Debug("file changed", "file", abs)
				onChange(wctx)
			}
		}
	}()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
		stop()
		<-workerDone
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}
