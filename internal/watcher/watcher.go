// Package watcher reports audio files appearing in or leaving the music
// directory. It only observes; the song listing is always rebuilt from disk.
package watcher

import (
	"path/filepath"
	"strings"
	"sync"

	"tunedeck/internal/metrics"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// Change describes one filesystem event on an audio file.
type Change struct {
	Op       string // create, remove or rename
	Filename string
}

// Watcher monitors a single directory, non-recursively.
type Watcher struct {
	dir      string
	isAudio  func(name string) bool
	logger   *logrus.Logger
	onChange func(Change)

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// New creates a watcher for dir. isAudio decides which filenames are reported.
func New(dir string, isAudio func(name string) bool, logger *logrus.Logger) *Watcher {
	return &Watcher{
		dir:     dir,
		isAudio: isAudio,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// OnChange registers a callback invoked from the watcher goroutine.
// It must be set before Start.
func (w *Watcher) OnChange(fn func(Change)) {
	w.onChange = fn
}

// Start begins watching. It fails when the directory cannot be watched,
// for example because it does not exist yet.
func (w *Watcher) Start() error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return err
	}
	w.watcher = fsw

	go w.watchFiles()

	w.logger.WithField("music_dir", w.dir).Info("File watcher started")
	return nil
}

// watchFiles selects on watcher channels and dispatches events.
func (w *Watcher) watchFiles() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFileEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Error("File watcher error")
		}
	}
}

// handleFileEvent filters temporary and hidden files and reports the rest.
func (w *Watcher) handleFileEvent(event fsnotify.Event) {
	fileName := filepath.Base(event.Name)
	if strings.HasPrefix(fileName, ".") || strings.HasSuffix(fileName, ".tmp") {
		return
	}
	if !w.isAudio(fileName) {
		return
	}

	var op string
	switch {
	case event.Has(fsnotify.Create):
		op = "create"
	case event.Has(fsnotify.Remove):
		op = "remove"
	case event.Has(fsnotify.Rename):
		op = "rename"
	default:
		return
	}

	metrics.IncLibraryEvent(op)
	w.logger.WithFields(logrus.Fields{
		"op":       op,
		"filename": fileName,
	}).Info("Music directory changed")

	if w.onChange != nil {
		w.onChange(Change{Op: op, Filename: fileName})
	}
}

// Stop closes the watcher and waits for its goroutine (idempotent).
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		if w.watcher == nil {
			return
		}
		w.watcher.Close()
		<-w.done
	})
}
