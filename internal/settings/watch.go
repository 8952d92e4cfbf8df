package settings

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 250 * time.Millisecond

// Watch reloads the override file after external edits and calls onChange
// when the effective configuration changed. The directory is watched so
// atomic replace-by-rename is seen. The returned stop function ends the
// watch and waits for the loop to exit; cancelling ctx does the same.
func (s *Store) Watch(ctx context.Context, onChange func(Effective)) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	slog.Info("watching settings file", "path", s.path)

	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	go s.watchLoop(ctx, watcher, onChange, stopCh, doneCh)

	var stopped bool
	return func() {
		if stopped {
			return
		}
		stopped = true
		close(stopCh)
		<-doneCh
	}, nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, onChange func(Effective), stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	defer watcher.Close()

	target := filepath.Clean(s.path)
	ticker := time.NewTicker(debounceDelay / 2)
	defer ticker.Stop()

	var lastEvent time.Time
	pending := false

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			slog.Debug("settings file event", "op", event.Op.String())
			pending = true
			lastEvent = time.Now()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("settings watcher error", "error", err)

		case <-ticker.C:
			if !pending || time.Since(lastEvent) < debounceDelay {
				continue
			}
			pending = false
			eff, changed := s.Reload()
			if changed {
				slog.Info("settings file changed, reloading", "path", s.path)
				onChange(eff)
			}
		}
	}
}
