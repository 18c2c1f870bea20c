package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the bursts of events editors emit on save.
const watchDebounce = 200 * time.Millisecond

// runWatch runs the input file once, then again after every change until
// ctx is canceled. Runs never overlap.
func runWatch(ctx context.Context, cmdCtx *CommandContext, input, dir string) error {
	path, err := filepath.Abs(input)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", input, err)
	}

	eng, cleanup, err := cmdCtx.Connect(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	r := cmdCtx.Renderer
	runOnce := func() {
		content, err := os.ReadFile(path)
		if err != nil {
			r.Error(fmt.Sprintf("failed to read %s: %v", input, err))
			return
		}
		if _, err := eng.Run(ctx, string(content), dir); err != nil {
			r.Error(err.Error())
		}
		r.Muted(fmt.Sprintf("Watching %s for changes (Ctrl+C to stop)", input))
	}

	runOnce()
	return watchFile(ctx, path, watchDebounce, func() {
		cmdCtx.Logger.Debug("change detected", "file", path)
		runOnce()
	})
}

// watchFile calls onChange after path is written, once per burst of events
// separated by less than debounce. The parent directory is watched so that
// editors replacing the file by rename are seen too. onChange runs on the
// calling goroutine.
func watchFile(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	trigger := make(chan struct{}, 1)
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
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

		case <-trigger:
			onChange()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}
