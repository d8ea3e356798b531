package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// debounce collapses the burst of events an editor produces on save.
const debounce = 150 * time.Millisecond

// Watch reloads path whenever it changes and hands the result to fn, until
// ctx is cancelled. fn receives either a valid config or the load error; a
// broken file never replaces a working config on its own, the caller decides.
//
// The parent directory is watched rather than the file so that editors which
// save by rename keep being tracked.
//
// Arguments:
//   - ctx: Cancels the watch.
//   - path: The YAML file to follow.
//   - fn: Called from the watch goroutine after each settled change.
//
// Returns:
//   - error: Only if the watcher cannot be set up, or ctx.Err() on exit.
func Watch(ctx context.Context, path string, fn func(*Config, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create config watcher")
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(err, "failed to resolve config path")
	}
	dir := filepath.Dir(abs)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
		abs = filepath.Join(dir, filepath.Base(abs))
	}
	if err := watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "failed to watch %s", dir)
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

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
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "path", abs, "error", err)

		case <-timer.C:
			cfg, err := Load(abs)
			if err != nil {
				slog.Warn("config reload failed", "path", abs, "error", err)
			} else {
				slog.Info("config reloaded", "path", abs)
			}
			fn(cfg, err)
		}
	}
}
