package watcher

import (
	"fmt"
	"os"
	"path/filepath"

	"lightsync/internal/logger"
	"lightsync/internal/model"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher turns OS file notifications for one sync folder into FileEvents
// with paths relative to the folder root. Directories are watched
// recursively, including ones created after start.
type Watcher struct {
	root    string
	fw      *fsnotify.Watcher
	eventCh chan model.FileEvent
	errCh   chan error
	doneCh  chan struct{}
}

func New(root string, bufferSize int) (*Watcher, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		root:    absRoot,
		fw:      fw,
		eventCh: make(chan model.FileEvent, bufferSize),
		errCh:   make(chan error, 1),
		doneCh:  make(chan struct{}),
	}, nil
}

func (w *Watcher) Start() error {
	if _, err := os.Stat(w.root); err != nil {
		return fmt.Errorf("sync folder not found: %w", err)
	}

	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	go w.run()

	logger.Log.Info("watcher started",
		zap.String("dir", w.root))
	return nil
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if err := w.fw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			logger.Log.Debug("watching directory",
				zap.String("path", path))
		}

		return nil
	})
}

func (w *Watcher) run() {
	defer close(w.eventCh)

	for {
		select {
		case <-w.doneCh:
			logger.Log.Info("watcher stopping",
				zap.String("dir", w.root))
			return

		case fsEvent, ok := <-w.fw.Events:
			if !ok {
				return
			}

			w.handle(fsEvent)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}

			logger.Log.Error("watcher error",
				zap.String("dir", w.root),
				zap.Error(err))

			select {
			case w.errCh <- err:
			default:
			}
		}
	}
}

func (w *Watcher) handle(fsEvent fsnotify.Event) {
	eventType := toEventType(fsEvent.Op)
	if eventType == "" {
		return
	}

	if fsEvent.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(fsEvent.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(fsEvent.Name); err != nil {
				logger.Log.Warn("failed to watch new directory",
					zap.String("path", fsEvent.Name),
					zap.Error(err))
			}
		}
	}

	rel, err := filepath.Rel(w.root, fsEvent.Name)
	if err != nil {
		logger.Log.Warn("event outside watch root, dropping",
			zap.String("path", fsEvent.Name))
		return
	}

	event := model.NewFileEvent(eventType, filepath.ToSlash(rel))

	select {
	case w.eventCh <- event:
	default:
		logger.Log.Warn("event channel is full, dropping event",
			zap.String("path", event.Path))
	}
}

func (w *Watcher) Events() <-chan model.FileEvent {
	return w.eventCh
}

// Errors carries watcher-level failures (e.g. inotify limits). The manager
// treats one as fatal for the pipeline.
func (w *Watcher) Errors() <-chan error {
	return w.errCh
}

func (w *Watcher) Stop() {
	close(w.doneCh)
	_ = w.fw.Close()
}

// toEventType maps fsnotify ops onto sync events. A rename notification
// only names the vanished path, so it degrades to a delete; the new name
// arrives as a separate create.
func toEventType(op fsnotify.Op) model.EventType {
	switch {
	case op.Has(fsnotify.Create):
		return model.EventCreate
	case op.Has(fsnotify.Write):
		return model.EventModify
	case op.Has(fsnotify.Remove):
		return model.EventDelete
	case op.Has(fsnotify.Rename):
		return model.EventDelete
	default:
		return ""
	}
}
