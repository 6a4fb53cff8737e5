package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"coverforge/internal/fsutil"
	"coverforge/internal/mockup"
	"coverforge/internal/storage"
)

// router implements Processor and routes jobs to their concrete handlers.
type router struct {
	log      *slog.Logger
	store    *storage.Store
	renderer coverRenderer
	workers  int
}

// coverRenderer is the slice of mockup.Renderer the router needs.
type coverRenderer interface {
	RenderCover(ctx context.Context, coverPath, outputDir string) (*mockup.Result, error)
	RenderBatch(ctx context.Context, coversDir, outputDir string, workers int) (*mockup.BatchSummary, error)
}

func newRouter(logger *slog.Logger, store *storage.Store, renderer *mockup.Renderer, workers int) Processor {
	return &router{
		log:      logger,
		store:    store,
		renderer: renderer,
		workers:  workers,
	}
}

func (r *router) Process(ctx context.Context, job Job) Result {
	switch job.Type {
	case JobMockup:
		return r.handleMockup(ctx, job)
	case JobBatch:
		return r.handleBatch(ctx, job)
	case JobScan:
		return r.handleScan(ctx, job)
	default:
		return Result{Job: job, Error: fmt.Errorf("unknown job type: %s", job.Type)}
	}
}

func (r *router) handleMockup(ctx context.Context, job Job) Result {
	res, err := r.renderer.RenderCover(ctx, job.InputPath, job.Output)
	if err != nil {
		return Result{Job: job, Error: err}
	}
	if r.store != nil {
		_ = r.store.RecordRender(storage.RenderRecord{
			JobID:        job.ID,
			CoverPath:    res.CoverPath,
			TemplateName: res.Template.Name,
			Dominant:     res.Dominant.String(),
			OutputPath:   res.OutputPath,
		})
	}
	meta := map[string]any{
		"output":   res.OutputPath,
		"template": res.Template.Name,
		"dominant": res.Dominant.String(),
		"duration": res.Duration.String(),
	}
	return Result{Job: job, Meta: meta}
}

func (r *router) handleBatch(ctx context.Context, job Job) Result {
	summary, err := r.renderer.RenderBatch(ctx, job.InputPath, job.Output, r.workers)
	if summary == nil {
		return Result{Job: job, Error: err}
	}
	if r.store != nil {
		for _, res := range summary.Results {
			_ = r.store.RecordRender(storage.RenderRecord{
				JobID:        job.ID,
				CoverPath:    res.CoverPath,
				TemplateName: res.Template.Name,
				Dominant:     res.Dominant.String(),
				OutputPath:   res.OutputPath,
			})
		}
	}
	meta := map[string]any{
		"total":     summary.Total,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"duration":  summary.Duration.String(),
	}
	return Result{Job: job, Error: err, Meta: meta}
}

func (r *router) handleScan(ctx context.Context, job Job) Result {
	covers, err := fsutil.ListCovers(job.InputPath)
	meta := map[string]any{
		"covers": len(covers),
	}
	return Result{Job: job, Error: err, Meta: meta}
}
