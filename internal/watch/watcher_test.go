package watch

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"coverforge/internal/pipeline"
)

type stubSubmitter struct {
	mu   sync.Mutex
	jobs []pipeline.Job
}

func (s *stubSubmitter) Submit(job pipeline.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *stubSubmitter) submitted() []pipeline.Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]pipeline.Job(nil), s.jobs...)
}

func newTestWatcher(t *testing.T) *Watcher {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := New(nil, logger)
	if err != nil {
		t.Fatalf("failed to create watcher: %v", err)
	}
	t.Cleanup(func() { w.watcher.Close() })
	return w
}

func TestAutoSubmitQueuesRenderPerCover(t *testing.T) {
	w := newTestWatcher(t)
	sub := &stubSubmitter{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.AutoSubmit(ctx, sub)
		close(done)
	}()

	now := time.Now()
	w.Events <- CoverEvent{Path: "/covers/a.jpg", Operation: "created", Time: now}
	w.Events <- CoverEvent{Path: "/covers/b.png", Operation: "created", Time: now}

	deadline := time.After(2 * time.Second)
	for len(sub.submitted()) < 2 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for jobs, got %d", len(sub.submitted()))
		case <-time.After(10 * time.Millisecond):
		}
	}
	cancel()
	<-done

	jobs := sub.submitted()
	if jobs[0].Type != pipeline.JobMockup || jobs[1].Type != pipeline.JobMockup {
		t.Fatalf("expected mockup jobs, got %v", jobs)
	}
	if jobs[0].InputPath != "/covers/a.jpg" {
		t.Fatalf("unexpected input path %s", jobs[0].InputPath)
	}
	if jobs[0].ID == "" || jobs[0].ID == jobs[1].ID {
		t.Fatalf("expected distinct job IDs, got %q and %q", jobs[0].ID, jobs[1].ID)
	}
}

func TestAutoSubmitCollapsesEventBursts(t *testing.T) {
	w := newTestWatcher(t)
	sub := &stubSubmitter{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.AutoSubmit(ctx, sub)
		close(done)
	}()

	// Create followed by rapid writes while the file is still being copied.
	base := time.Now()
	w.Events <- CoverEvent{Path: "/covers/c.jpg", Operation: "created", Time: base}
	w.Events <- CoverEvent{Path: "/covers/c.jpg", Operation: "modified", Time: base.Add(50 * time.Millisecond)}
	w.Events <- CoverEvent{Path: "/covers/c.jpg", Operation: "modified", Time: base.Add(100 * time.Millisecond)}

	deadline := time.After(2 * time.Second)
	for len(sub.submitted()) < 1 {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for job")
		case <-time.After(10 * time.Millisecond):
		}
	}
	// Give the loop a moment to drain the remaining burst events.
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-done

	if got := len(sub.submitted()); got != 1 {
		t.Fatalf("expected burst collapsed to one job, got %d", got)
	}
}

func TestStopClosesEventsAfterLoopExits(t *testing.T) {
	w := newTestWatcher(t)
	w.watchDirs = []string{t.TempDir()}
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	// The event loop owns Events; it must close the channel once it winds
	// down rather than Stop closing it out from under an in-flight send.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-w.Events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("Events not closed after Stop")
		}
	}
}

func TestAutoSubmitStopsOnContextCancel(t *testing.T) {
	w := newTestWatcher(t)
	sub := &stubSubmitter{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.AutoSubmit(ctx, sub)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("AutoSubmit did not stop on cancel")
	}
}
