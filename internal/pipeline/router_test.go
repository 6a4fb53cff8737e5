package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"coverforge/internal/imaging"
	"coverforge/internal/mockup"
)

type stubRenderer struct {
	renderErr   error
	batchErr    error
	renderCalls int
	batchCalls  int
	lastCover   string
	lastDir     string
	lastOutput  string
	lastWorkers int
	summary     *mockup.BatchSummary
}

func (s *stubRenderer) RenderCover(ctx context.Context, coverPath, outputDir string) (*mockup.Result, error) {
	s.renderCalls++
	s.lastCover = coverPath
	s.lastOutput = outputDir
	if s.renderErr != nil {
		return nil, s.renderErr
	}
	return &mockup.Result{
		CoverPath:  coverPath,
		OutputPath: coverPath + "_book.png",
		Template:   imaging.TemplateEntry{Name: "blue", File: "blue.png"},
		Dominant:   imaging.RGB{R: 70, G: 130, B: 180},
		Duration:   time.Millisecond,
	}, nil
}

func (s *stubRenderer) RenderBatch(ctx context.Context, coversDir, outputDir string, workers int) (*mockup.BatchSummary, error) {
	s.batchCalls++
	s.lastDir = coversDir
	s.lastOutput = outputDir
	s.lastWorkers = workers
	if s.summary == nil {
		return nil, s.batchErr
	}
	return s.summary, s.batchErr
}

func newTestRouter(renderer coverRenderer, workers int) *router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &router{log: logger, store: nil, renderer: renderer, workers: workers}
}

func TestRouterHandlesMockupJob(t *testing.T) {
	renderer := &stubRenderer{}
	r := newTestRouter(renderer, 2)

	res := r.Process(context.Background(), Job{ID: "j1", Type: JobMockup, InputPath: "/covers/novel.jpg"})
	if res.Error != nil {
		t.Fatalf("mockup job failed: %v", res.Error)
	}
	if renderer.renderCalls != 1 || renderer.lastCover != "/covers/novel.jpg" {
		t.Fatalf("renderer not invoked as expected: calls=%d cover=%s", renderer.renderCalls, renderer.lastCover)
	}
	if res.Meta["template"] != "blue" {
		t.Fatalf("expected template meta, got %v", res.Meta)
	}
	if res.Meta["output"] != "/covers/novel.jpg_book.png" {
		t.Fatalf("expected output meta, got %v", res.Meta)
	}
}

func TestRouterForwardsRequestedOutputDir(t *testing.T) {
	renderer := &stubRenderer{}
	r := newTestRouter(renderer, 1)

	res := r.Process(context.Background(), Job{
		ID:        "j7",
		Type:      JobMockup,
		InputPath: "/covers/novel.jpg",
		Output:    "/tmp/requested-out",
	})
	if res.Error != nil {
		t.Fatalf("mockup job failed: %v", res.Error)
	}
	if renderer.lastOutput != "/tmp/requested-out" {
		t.Fatalf("render output dir = %q, want the job's directory", renderer.lastOutput)
	}

	renderer.summary = &mockup.BatchSummary{Total: 1, Succeeded: 1}
	res = r.Process(context.Background(), Job{
		ID:        "j8",
		Type:      JobBatch,
		InputPath: "/covers",
		Output:    "/tmp/batch-out",
	})
	if res.Error != nil {
		t.Fatalf("batch job failed: %v", res.Error)
	}
	if renderer.lastOutput != "/tmp/batch-out" {
		t.Fatalf("batch output dir = %q, want the job's directory", renderer.lastOutput)
	}
}

func TestRouterPropagatesRenderError(t *testing.T) {
	renderer := &stubRenderer{renderErr: imaging.ErrInvalidImage}
	r := newTestRouter(renderer, 1)

	res := r.Process(context.Background(), Job{ID: "j2", Type: JobMockup, InputPath: "/covers/bad.jpg"})
	if !errors.Is(res.Error, imaging.ErrInvalidImage) {
		t.Fatalf("expected invalid image error, got %v", res.Error)
	}
}

func TestRouterHandlesBatchJob(t *testing.T) {
	renderer := &stubRenderer{
		summary: &mockup.BatchSummary{
			Total:     3,
			Succeeded: 2,
			Failed:    1,
			Failures:  []mockup.Failure{{CoverPath: "/covers/bad.jpg", Error: "invalid image"}},
			Duration:  time.Second,
		},
	}
	r := newTestRouter(renderer, 4)

	res := r.Process(context.Background(), Job{ID: "j3", Type: JobBatch, InputPath: "/covers"})
	if res.Error != nil {
		t.Fatalf("batch job failed: %v", res.Error)
	}
	if renderer.lastWorkers != 4 {
		t.Fatalf("expected 4 workers, got %d", renderer.lastWorkers)
	}
	if res.Meta["total"] != 3 || res.Meta["succeeded"] != 2 || res.Meta["failed"] != 1 {
		t.Fatalf("unexpected batch meta %v", res.Meta)
	}
}

func TestRouterReportsBatchFailure(t *testing.T) {
	renderer := &stubRenderer{batchErr: errors.New("covers dir unreadable")}
	r := newTestRouter(renderer, 1)

	res := r.Process(context.Background(), Job{ID: "j4", Type: JobBatch, InputPath: "/missing"})
	if res.Error == nil {
		t.Fatalf("expected error for failed batch")
	}
}

func TestRouterHandlesScanJob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.png", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	r := newTestRouter(&stubRenderer{}, 1)
	res := r.Process(context.Background(), Job{ID: "j5", Type: JobScan, InputPath: dir})
	if res.Error != nil {
		t.Fatalf("scan failed: %v", res.Error)
	}
	if res.Meta["covers"] != 2 {
		t.Fatalf("expected 2 covers, got %v", res.Meta["covers"])
	}
}

func TestRouterRejectsUnknownJobType(t *testing.T) {
	r := newTestRouter(&stubRenderer{}, 1)
	res := r.Process(context.Background(), Job{ID: "j6", Type: JobType("transmogrify")})
	if res.Error == nil {
		t.Fatalf("expected error for unknown job type")
	}
}
