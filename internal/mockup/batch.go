package mockup

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"coverforge/internal/fsutil"
)

// Failure records one cover that could not be rendered.
type Failure struct {
	CoverPath string `json:"cover_path"`
	Error     string `json:"error"`
}

// BatchSummary reports the outcome of a batch run.
type BatchSummary struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Failures  []Failure     `json:"failures,omitempty"`
	Results   []*Result     `json:"results,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// RenderBatch renders every cover under coversDir on a bounded worker pool,
// writing into outputDir when non-empty. Covers fail independently: an
// unreadable or unmatched cover is counted and logged, never fatal to the
// rest of the batch.
func (r *Renderer) RenderBatch(ctx context.Context, coversDir, outputDir string, workers int) (*BatchSummary, error) {
	start := time.Now()

	covers, err := fsutil.ListCovers(coversDir)
	if err != nil {
		return nil, err
	}
	summary := &BatchSummary{Total: len(covers)}
	if len(covers) == 0 {
		r.log.Warn("no covers found", "dir", coversDir)
		summary.Duration = time.Since(start)
		return summary, nil
	}

	if workers < 1 {
		workers = 1
	}
	if workers > len(covers) {
		workers = len(covers)
	}

	jobs := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for cover := range jobs {
				res, err := r.RenderCover(ctx, cover, outputDir)
				mu.Lock()
				if err != nil {
					summary.Failed++
					summary.Failures = append(summary.Failures, Failure{
						CoverPath: cover,
						Error:     err.Error(),
					})
					mu.Unlock()
					r.log.Error("render failed",
						"cover", filepath.Base(cover), "error", err)
					continue
				}
				summary.Succeeded++
				summary.Results = append(summary.Results, res)
				mu.Unlock()
				r.log.Info("render complete",
					"cover", filepath.Base(cover),
					"template", res.Template.Name,
					"output", res.OutputPath,
					"duration", res.Duration)
			}
		}()
	}

	for _, cover := range covers {
		select {
		case <-ctx.Done():
			// Stop feeding; in-flight covers still finish.
			close(jobs)
			wg.Wait()
			summary.Duration = time.Since(start)
			return summary, ctx.Err()
		case jobs <- cover:
		}
	}
	close(jobs)
	wg.Wait()

	summary.Duration = time.Since(start)
	return summary, nil
}
