package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 100 * time.Millisecond

// Watch reloads configPath whenever it is written or replaced and passes
// each config that validates to fn. It blocks until ctx is done.
// The parent directory is watched so that editors which save by rename
// are still seen.
func Watch(ctx context.Context, configPath string, fn func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(configPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				timer.Reset(reloadDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warnf("Config watcher error: %v", err)
		case <-timer.C:
			cfg, err := LoadConfig(target)
			if err != nil {
				log.Warnf("Reload of %s failed: %v", target, err)
				continue
			}
			if err := cfg.Validate(); err != nil {
				log.Warnf("Ignoring invalid config %s: %v", target, err)
				continue
			}
			log.Infof("Config reloaded from %s", target)
			fn(cfg)
		}
	}
}
