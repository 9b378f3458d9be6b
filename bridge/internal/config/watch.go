package config

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces the burst of events an editor save produces into
// a single reload.
const debounceWindow = 250 * time.Millisecond

// Watch monitors path and calls onChange each time the file on disk diverges
// from running. It runs until ctx is cancelled.
//
// The bridge's settings are fixed for the process lifetime, so callers use
// this only to tell the operator that a restart is needed — onChange receives
// the reloaded config plus the names of the settings that diverged. Rewrites
// that change nothing, and reloads that fail to parse, are logged and ignored.
func Watch(ctx context.Context, path string, running *Config, onChange func(next *Config, changed []string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	slog.Info("config: watching for changes", "path", path)

	var debounce *time.Timer
	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, which arrives as Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceWindow)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(debounceWindow)
			}
			pending = debounce.C

		case <-pending:
			pending = nil

			cfg, err := Load(path)
			if err != nil {
				slog.Error("config: file changed but does not parse — running config unchanged",
					"path", path, "err", err)
				continue
			}

			changed := diffSettings(running, cfg)
			if len(changed) == 0 {
				slog.Debug("config: file rewritten without effective changes", "path", path)
			} else {
				slog.Info("config: file diverged from running config",
					"path", path, "settings", changed)
				onChange(cfg, changed)
			}

			// Re-add in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// diffSettings lists the bridge settings whose on-disk value no longer
// matches the running config, named by their yaml keys.
func diffSettings(running, next *Config) []string {
	o, n := running.Bridge, next.Bridge
	var changed []string
	if o.Device != n.Device {
		changed = append(changed, "device")
	}
	if o.BaudRate != n.BaudRate {
		changed = append(changed, "baud_rate")
	}
	if o.Endpoint != n.Endpoint {
		changed = append(changed, "endpoint")
	}
	if o.Delimiter != n.Delimiter {
		changed = append(changed, "delimiter")
	}
	if o.ReconnectDelay != n.ReconnectDelay {
		changed = append(changed, "reconnect_delay")
	}
	if o.PostTimeout != n.PostTimeout {
		changed = append(changed, "post_timeout")
	}
	if o.MaxPostRetries != n.MaxPostRetries {
		changed = append(changed, "max_post_retries")
	}
	if o.Auth != n.Auth {
		changed = append(changed, "auth")
	}
	if o.MetricsAddr != n.MetricsAddr {
		changed = append(changed, "metrics_addr")
	}
	return changed
}
