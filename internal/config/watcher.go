package config

import (
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// LimitSetter receives updated cache byte budgets. internal/cache.Cache
// satisfies it via SetLimits.
type LimitSetter interface {
	SetLimits(maxBytes, maxElementBytes int)
}

// Watcher watches a config file for changes and applies updated cache
// limits to target live, adapted from jupiter's
// pkg/policy/manager/watcher.go debounced fsnotify wrapper. Only the
// cache byte budgets are hot-reloadable; listenPort/maxClients require
// a restart since they're bound at process start.
type Watcher struct {
	path     string
	target   LimitSetter
	log      zerolog.Logger
	debounce time.Duration

	fsw *fsnotify.Watcher
}

// NewWatcher builds a Watcher for path, applying future maxCacheBytes/
// maxElementBytes changes to target.
func NewWatcher(path string, target LimitSetter, log zerolog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{path: path, target: target, log: log, debounce: 100 * time.Millisecond, fsw: fsw}, nil
}

// Run blocks, reloading and applying the config on every debounced
// write event, until stop is closed.
func (w *Watcher) Run(stop <-chan struct{}) {
	defer w.fsw.Close()

	var pending *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if pending == nil {
				pending = time.AfterFunc(w.debounce, func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})
			} else {
				pending.Reset(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Str("path", w.path).Msg("config watcher error")
		case <-reload:
			cfg, err := Load(w.path)
			if err != nil {
				w.log.Warn().Err(err).Str("path", w.path).Msg("config reload failed, keeping live limits")
				continue
			}
			w.target.SetLimits(cfg.MaxCacheBytes, cfg.MaxElementBytes)
			w.log.Info().
				Int("maxCacheBytes", cfg.MaxCacheBytes).
				Int("maxElementBytes", cfg.MaxElementBytes).
				Msg("applied reloaded cache limits")
		case <-stop:
			return
		}
	}
}
