package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/a8m/envsubst"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/silver2row/ctrl/logging"
	"github.com/silver2row/ctrl/utils"
)

// A Watcher is responsible for watching for changes to a config from some source and
// delivering those changes to some destination.
type Watcher interface {
	Config() <-chan *Config
	Close() error
}

// NewWatcher returns a watcher delivering the config at path every time the file changes to
// something new. Files that fail to read or validate are logged and skipped.
func NewWatcher(ctx context.Context, path string, logger logging.Logger) (Watcher, error) {
	path = filepath.Clean(path)
	last, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// editors often replace the file instead of writing it, so watch its directory.
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		return nil, multierr.Combine(errors.Wrapf(err, "cannot watch %q", path), fsWatcher.Close())
	}

	w := &fsConfigWatcher{
		fsWatcher: fsWatcher,
		configCh:  make(chan *Config),
		path:      path,
		last:      last,
		logger:    logger,
	}
	w.workers = utils.NewStoppableWorkers(ctx, w.watch)
	return w, nil
}

type fsConfigWatcher struct {
	fsWatcher *fsnotify.Watcher
	configCh  chan *Config
	path      string
	last      []byte
	logger    logging.Logger
	workers   utils.StoppableWorkers
}

func (w *fsConfigWatcher) watch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Errorw("error watching config", "path", w.path, "error", err)
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg := w.reload()
			if cfg == nil {
				continue
			}
			select {
			case <-ctx.Done():
				return nil
			case w.configCh <- cfg:
			}
		}
	}
}

// reload returns the new config, or nil when the file is unchanged or invalid.
func (w *fsConfigWatcher) reload() *Config {
	buf, err := envsubst.ReadFile(w.path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Errorw("error reading config", "path", w.path, "error", err)
		}
		return nil
	}
	if bytes.Equal(buf, w.last) {
		return nil
	}
	cfg, err := decode(w.path, buf, w.logger)
	if err != nil {
		w.logger.Errorw("ignoring invalid config", "path", w.path, "error", err)
		return nil
	}
	w.last = buf
	w.logger.Infow("config changed", "path", w.path)
	return cfg
}

func (w *fsConfigWatcher) Config() <-chan *Config {
	return w.configCh
}

func (w *fsConfigWatcher) Close() error {
	w.workers.Stop()
	return w.fsWatcher.Close()
}
