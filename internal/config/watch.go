package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"tagarr/internal/utils"
)

// Watch reloads path whenever it is written and passes the validated result
// to apply. Editors that replace the file atomically are handled by watching
// the parent directory instead of the file itself.
func Watch(ctx context.Context, path string, logger *utils.Logger, apply func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer watcher.Close()

		// Writes usually arrive in bursts; settle before reloading.
		var debounce <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					debounce = time.After(250 * time.Millisecond)
				}
			case <-debounce:
				debounce = nil
				cfg, err := Load(abs)
				if err != nil {
					logger.Error("Config reload failed:", err)
					continue
				}
				cfg.Normalize()
				if err := cfg.Validate(); err != nil {
					logger.Error("Reloaded config is invalid, keeping previous settings:", err)
					continue
				}
				logger.Info("Config file changed, new settings apply from the next cycle")
				apply(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Config watcher error:", err)
			}
		}
	}()
	return nil
}
