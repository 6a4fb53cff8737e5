// Integration smoke test for the full render path: synthetic covers and
// templates are generated on disk, rendered through the batch pipeline, and
// the resulting mockups and database records are checked.
package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"coverforge/internal/config"
	"coverforge/internal/imaging"
	"coverforge/internal/mockup"
	"coverforge/internal/pipeline"
	"coverforge/internal/storage"
)

func main() {
	fmt.Println("Testing cover render integration")

	work, err := os.MkdirTemp("", "coverforge-integration")
	if err != nil {
		log.Fatal("Failed to create workspace:", err)
	}
	defer os.RemoveAll(work)

	cfg := buildConfig(work)
	if err := writeFixtures(cfg); err != nil {
		log.Fatal("Failed to write fixtures:", err)
	}

	store, err := storage.New(filepath.Join(work, "integration.db"))
	if err != nil {
		log.Fatal("Failed to create storage:", err)
	}
	defer store.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer := mockup.NewRenderer(cfg, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pipe := pipeline.New(ctx, 2, logger, store, renderer)
	defer pipe.Stop()

	results, unsubscribe := pipe.Subscribe()
	defer unsubscribe()

	job := pipeline.Job{
		ID:        "integration-batch",
		Type:      pipeline.JobBatch,
		InputPath: cfg.Paths.CoversDir,
	}
	if err := pipe.Submit(job); err != nil {
		log.Fatal("Failed to submit batch:", err)
	}

	select {
	case <-ctx.Done():
		log.Fatal("Timed out waiting for batch result")
	case res := <-results:
		if res.Error != nil {
			log.Fatal("Batch failed:", res.Error)
		}
		fmt.Printf("Batch complete: total=%v succeeded=%v failed=%v\n",
			res.Meta["total"], res.Meta["succeeded"], res.Meta["failed"])
	}

	entries, err := os.ReadDir(cfg.Paths.OutputDir)
	if err != nil {
		log.Fatal("Failed to read output dir:", err)
	}
	for _, e := range entries {
		fmt.Println("  output:", e.Name())
	}

	renders, err := store.RecentRenders(10)
	if err != nil {
		log.Fatal("Failed to query renders:", err)
	}
	for _, r := range renders {
		fmt.Printf("  recorded: %s -> %s (%s)\n", r.CoverPath, r.TemplateName, r.Dominant)
	}

	if len(entries) == 0 || len(renders) == 0 {
		log.Fatal("Expected rendered outputs and database records")
	}

	fmt.Println("Integration test passed")
}

func buildConfig(work string) *config.Config {
	cfg, _ := config.Load()
	cfg.Paths.CoversDir = filepath.Join(work, "covers")
	cfg.Paths.TemplatesDir = filepath.Join(work, "templates")
	cfg.Paths.MaskPath = filepath.Join(work, "templates", "mask.png")
	cfg.Paths.OutputDir = filepath.Join(work, "output")
	cfg.Render.Palette = imaging.Palette{
		{Name: "blue", File: "blue.png", Color: imaging.RGB{R: 70, G: 130, B: 180}},
		{Name: "red", File: "red.png", Color: imaging.RGB{R: 180, G: 60, B: 60}},
	}
	cfg.Render.Quad = imaging.Quad{
		TopLeft:     image.Pt(60, 40),
		TopRight:    image.Pt(240, 30),
		BottomRight: image.Pt(240, 370),
		BottomLeft:  image.Pt(60, 360),
	}
	return cfg
}

func writeFixtures(cfg *config.Config) error {
	for _, dir := range []string{cfg.Paths.CoversDir, cfg.Paths.TemplatesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	// Templates and mask sized to a small book photo.
	const tw, th = 300, 400
	for _, t := range []struct {
		name string
		c    color.NRGBA
	}{
		{"blue.png", color.NRGBA{90, 110, 160, 255}},
		{"red.png", color.NRGBA{170, 80, 80, 255}},
	} {
		if err := writePNG(filepath.Join(cfg.Paths.TemplatesDir, t.name), uniform(tw, th, t.c)); err != nil {
			return err
		}
	}
	mask := image.NewNRGBA(image.Rect(0, 0, tw, th))
	for i := range mask.Pix {
		mask.Pix[i] = 0xff
	}
	if err := writePNG(cfg.Paths.MaskPath, mask); err != nil {
		return err
	}

	// Covers leaning blue and red.
	covers := []struct {
		name string
		c    color.NRGBA
	}{
		{"ocean.png", color.NRGBA{60, 120, 190, 255}},
		{"ember.png", color.NRGBA{190, 50, 50, 255}},
	}
	for _, cov := range covers {
		if err := writePNG(filepath.Join(cfg.Paths.CoversDir, cov.name), uniform(120, 180, cov.c)); err != nil {
			return err
		}
	}
	return nil
}

func uniform(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
