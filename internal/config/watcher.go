// SPDX-License-Identifier: MIT
package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"pulse/internal/log"

	"github.com/fsnotify/fsnotify"
)

// HotConfig wraps a loaded Config and reloads it when the file changes.
// Only settings that are safe to change at runtime are acted on by
// subscribers; the analysis pipeline keeps the values it started with.
type HotConfig struct {
	mu        sync.RWMutex
	cfg       *Config
	path      string
	overrides []func(*Config)
	subs      []func(*Config)
}

// NewHotConfig loads path and returns a HotConfig around it.
func NewHotConfig(path string) (*HotConfig, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return &HotConfig{cfg: cfg, path: path}, nil
}

// Get returns the most recently loaded configuration.
func (hc *HotConfig) Get() *Config {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.cfg
}

// Override registers fn to adjust the current and every reloaded
// configuration before subscribers see it. Command line flags use it to
// keep precedence over the file. It must be called before Watch.
func (hc *HotConfig) Override(fn func(*Config)) {
	hc.mu.Lock()
	fn(hc.cfg)
	hc.mu.Unlock()
	hc.overrides = append(hc.overrides, fn)
}

// OnReload registers fn to run after every successful reload. It must be
// called before Watch.
func (hc *HotConfig) OnReload(fn func(*Config)) {
	hc.subs = append(hc.subs, fn)
}

// reload re-reads the file. A file that fails to load or validate is
// logged and the previous configuration stays in effect.
func (hc *HotConfig) reload() {
	cfg, err := LoadConfig(hc.path)
	if err != nil {
		log.Errorf("configuration: reload of %s failed: %v", hc.path, err)
		return
	}
	for _, fn := range hc.overrides {
		fn(cfg)
	}
	if err := cfg.Validate(); err != nil {
		log.Errorf("configuration: reload of %s failed: %v", hc.path, err)
		return
	}
	hc.mu.Lock()
	hc.cfg = cfg
	hc.mu.Unlock()

	log.Infof("configuration: reloaded %s", hc.path)
	for _, fn := range hc.subs {
		fn(cfg)
	}
}

// Watch reloads the configuration whenever the file is written or
// replaced, until ctx is cancelled. The parent directory is watched so
// editors that save by rename are picked up too.
func (hc *HotConfig) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(hc.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", hc.path, err)
	}

	target := filepath.Clean(hc.path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					hc.reload()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warnf("configuration: watcher error: %v", err)
			}
		}
	}()
	return nil
}

// ApplyLogLevel is an OnReload subscriber that updates the global log
// level.
func ApplyLogLevel(cfg *Config) {
	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	if log.SetLevelString(level) {
		log.Infof("configuration: log level is now %s", log.GetLevel())
	}
}
