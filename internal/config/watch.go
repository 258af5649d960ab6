package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDelay coalesces the burst of events an editor save produces.
const reloadDelay = 200 * time.Millisecond

// Watcher reloads a Store when its file changes on disk.
type Watcher struct {
	w       *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	changed func()
}

// Watch starts watching the settings file. The directory is watched rather
// than the file so that editors that replace the file are seen. onChange,
// when non-nil, runs after every reload.
func (s *Store) Watch(onChange func()) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(s.home); err != nil {
		fw.Close()
		return nil, &Error{Key: "home", Err: err}
	}
	w := &Watcher{w: fw, done: make(chan struct{}), changed: onChange}
	w.wg.Add(1)
	go w.loop(s)
	return w, nil
}

func (w *Watcher) loop(s *Store) {
	defer w.wg.Done()
	log := s.logger.Named("watch")
	target := filepath.Clean(s.path)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Rename) {
				timer.Reset(reloadDelay)
			}
		case <-timer.C:
			if err := s.Reload(); err != nil {
				log.Warn("reloading settings", zap.Error(err))
				continue
			}
			log.Info("settings reloaded", zap.String("path", s.path))
			if w.changed != nil {
				w.changed()
			}
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			log.Warn("watch error", zap.Error(err))
		}
	}
}

// Close stops the watcher and waits for its goroutine.
func (w *Watcher) Close() error {
	close(w.done)
	err := w.w.Close()
	w.wg.Wait()
	return err
}
