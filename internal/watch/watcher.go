// Package watch monitors cover directories and feeds new covers into the
// render pipeline.
package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"coverforge/internal/fsutil"
	"coverforge/internal/pipeline"
)

// CoverEvent represents a cover file change
type CoverEvent struct {
	Path      string    `json:"path"`
	Operation string    `json:"operation"` // "created", "modified"
	Time      time.Time `json:"time"`
}

// Submitter accepts render jobs; satisfied by pipeline.Pipeline.
type Submitter interface {
	Submit(job pipeline.Job) error
}

// Watcher monitors directories for new or changed cover files.
type Watcher struct {
	watcher   *fsnotify.Watcher
	Events    chan CoverEvent
	watchDirs []string
	done      chan bool
	log       *slog.Logger
}

// New creates a watcher over the given directories.
func New(watchDirs []string, log *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		watcher:   fsw,
		Events:    make(chan CoverEvent, 100),
		watchDirs: watchDirs,
		done:      make(chan bool),
		log:       log,
	}, nil
}

// Start begins monitoring the configured directories.
func (w *Watcher) Start() error {
	for _, dir := range w.watchDirs {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
		w.log.Info("watching directory", "dir", dir)
	}

	go w.processEvents()

	return nil
}

// Stop stops the watcher. Events is closed by the event loop once it has
// drained, so a burst arriving during shutdown cannot hit a closed channel.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}

// processEvents filters raw filesystem events down to cover changes. It owns
// the Events channel and closes it on exit.
func (w *Watcher) processEvents() {
	defer close(w.Events)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			var operation string
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create:
				operation = "created"
			case event.Op&fsnotify.Write == fsnotify.Write:
				operation = "modified"
			default:
				continue
			}

			if !fsutil.IsCoverFile(event.Name) {
				continue
			}

			ev := CoverEvent{
				Path:      event.Name,
				Operation: operation,
				Time:      time.Now(),
			}

			select {
			case w.Events <- ev:
			default:
				w.log.Warn("event buffer full, dropping event", "path", event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("filesystem watcher error", "error", err)

		case <-w.done:
			return
		}
	}
}

// AutoSubmit consumes cover events and submits one render job per cover,
// collapsing the create/write bursts an in-progress copy produces.
func (w *Watcher) AutoSubmit(ctx context.Context, sub Submitter) {
	const settle = 2 * time.Second
	lastSeen := make(map[string]time.Time)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if t, seen := lastSeen[ev.Path]; seen && ev.Time.Sub(t) < settle {
				lastSeen[ev.Path] = ev.Time
				continue
			}
			lastSeen[ev.Path] = ev.Time

			job := pipeline.Job{
				ID:        uuid.NewString(),
				Type:      pipeline.JobMockup,
				InputPath: ev.Path,
			}
			if err := sub.Submit(job); err != nil {
				w.log.Error("failed to submit render for watched cover",
					"path", ev.Path, "error", err)
				continue
			}
			w.log.Info("queued render for watched cover", "path", ev.Path, "job", job.ID)
		}
	}
}
