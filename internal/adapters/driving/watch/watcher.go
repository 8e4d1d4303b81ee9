// Package watch tails a drop directory for new intake documents. A file
// written into the directory becomes an intake job: the file name stem is
// the patient id and the file content is the raw document text.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mediflow-labs/mediflow/internal/core/domain"
	"github.com/mediflow-labs/mediflow/internal/core/ports/driven"
	"github.com/mediflow-labs/mediflow/internal/logger"
)

// settleDelay is how long a file must be quiet before it is read.
// Editors and copies emit several write events per file.
const settleDelay = 200 * time.Millisecond

// Watcher enqueues an intake job for every document dropped into a
// directory.
type Watcher struct {
	dir   string
	queue driven.JobQueue

	mu      sync.Mutex
	pending map[string]*time.Timer

	fsw  *fsnotify.Watcher
	done chan struct{}
}

// NewWatcher creates a watcher over dir. The directory is created if it
// does not exist.
func NewWatcher(dir string, queue driven.JobQueue) (*Watcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("watch: directory is required")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("watch: creating directory: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: creating watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch: watching %s: %w", dir, err)
	}

	return &Watcher{
		dir:     dir,
		queue:   queue,
		pending: make(map[string]*time.Timer),
		fsw:     fsw,
		done:    make(chan struct{}),
	}, nil
}

// Start runs the event loop until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
	logger.Info("watching %s for intake documents", w.dir)
}

// Stop closes the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !eligible(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Error("watch error: %v", err)
		}
	}
}

// schedule (re)arms the settle timer for a path. Only when the file has
// been quiet for settleDelay is it ingested.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(settleDelay)
		return
	}
	w.pending[path] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
}

// ingest reads a settled file and enqueues the intake job.
func (w *Watcher) ingest(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error("watch: reading %s: %v", path, err)
		return
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		logger.Warn("watch: skipping empty file %s", path)
		return
	}

	patientID := patientIDFromPath(path)
	id, err := w.queue.Enqueue(ctx, domain.QueueIntake, domain.IntakeJob{
		PatientID: patientID,
		RawText:   text,
		Metadata: map[string]any{
			"source": "watch",
			"file":   filepath.Base(path),
		},
	})
	if err != nil {
		logger.Error("watch: enqueueing intake for %s: %v", path, err)
		return
	}
	logger.Info("queued intake job %s for patient %s from %s", id, patientID, filepath.Base(path))
}

// eligible reports whether a path looks like a droppable document.
func eligible(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		return true
	}
	return false
}

// patientIDFromPath derives the patient id from the file name stem.
// "drop/p-123.txt" -> "p-123".
func patientIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
