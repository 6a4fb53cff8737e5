// Package mockup renders book-cover mockups: it picks the template closest
// to a cover's dominant color, warps the cover onto the template's book
// face and composites the result through the press mask.
package mockup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coverforge/internal/config"
	"coverforge/internal/imaging"
)

var (
	// ErrResourceNotFound marks a missing template or mask file.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrCompositingFailed marks a failure while assembling or encoding
	// the final composite.
	ErrCompositingFailed = errors.New("compositing failed")
)

// Sampler reduces a cover to its representative color.
type Sampler func(image.Image) (imaging.RGB, error)

// Renderer turns individual covers into finished mockups. It is safe for
// concurrent use; all fields are read-only after construction.
type Renderer struct {
	Palette      imaging.Palette
	Quad         imaging.Quad
	Warp         imaging.WarpOptions
	TemplatesDir string
	MaskPath     string
	OutputDir    string
	OutputSuffix string
	Sample       Sampler

	log *slog.Logger
}

// NewRenderer builds a renderer from configuration.
func NewRenderer(cfg *config.Config, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	r := &Renderer{
		Palette:      cfg.Render.Palette,
		Quad:         cfg.Render.Quad,
		Warp:         cfg.Render.WarpOptions(),
		TemplatesDir: cfg.Paths.TemplatesDir,
		MaskPath:     cfg.Paths.MaskPath,
		OutputDir:    cfg.Paths.OutputDir,
		OutputSuffix: cfg.Render.OutputSuffix,
		Sample:       imaging.DominantColor,
		log:          log,
	}
	if cfg.Render.Sampler == "dominant" {
		r.Sample = imaging.DominantColorFast
	}
	return r
}

// Result describes one finished render.
type Result struct {
	CoverPath  string                `json:"cover_path"`
	OutputPath string                `json:"output_path"`
	Template   imaging.TemplateEntry `json:"template"`
	Dominant   imaging.RGB           `json:"dominant"`
	Duration   time.Duration         `json:"duration"`
}

// RenderCover runs the full pipeline for one cover and writes the composite
// as a PNG into outputDir, or the configured output directory when outputDir
// is empty. The file is encoded in memory first, so a failure at any stage
// leaves no partial output behind.
func (r *Renderer) RenderCover(ctx context.Context, coverPath, outputDir string) (*Result, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cover, err := imaging.Load(coverPath)
	if err != nil {
		return nil, fmt.Errorf("load cover %s: %w", coverPath, err)
	}
	// Transparent regions read as white during color analysis.
	flat := imaging.FlattenOnWhite(cover)

	dominant, err := r.Sample(flat)
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", coverPath, err)
	}

	entry, err := r.Palette.Match(dominant)
	if err != nil {
		return nil, err
	}
	r.log.Debug("template matched",
		"cover", filepath.Base(coverPath),
		"dominant", dominant.String(),
		"template", entry.Name)

	template, err := r.loadResource(filepath.Join(r.TemplatesDir, entry.File))
	if err != nil {
		return nil, err
	}
	mask, err := r.loadMask()
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	canvas := image.Point{X: template.Bounds().Dx(), Y: template.Bounds().Dy()}
	warped := imaging.WarpIntoQuad(flat, r.Quad, canvas, r.Warp)
	smoothed := imaging.Smooth(warped)
	composite := imaging.CompositeWithMask(template, smoothed, mask)

	var buf bytes.Buffer
	if err := png.Encode(&buf, composite); err != nil {
		return nil, fmt.Errorf("encode %s: %w", coverPath, ErrCompositingFailed)
	}

	if outputDir == "" {
		outputDir = r.OutputDir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	outPath := filepath.Join(outputDir, r.OutputName(coverPath))
	if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
		return nil, err
	}

	return &Result{
		CoverPath:  coverPath,
		OutputPath: outPath,
		Template:   entry,
		Dominant:   dominant,
		Duration:   time.Since(start),
	}, nil
}

// OutputName derives the output file name from the cover file name.
func (r *Renderer) OutputName(coverPath string) string {
	base := filepath.Base(coverPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + r.OutputSuffix + ".png"
}

func (r *Renderer) loadResource(path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%s: %w", path, ErrResourceNotFound)
	}
	img, err := imaging.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

func (r *Renderer) loadMask() (*image.Gray, error) {
	if r.MaskPath == "" {
		return nil, nil
	}
	if _, err := os.Stat(r.MaskPath); err != nil {
		return nil, fmt.Errorf("%s: %w", r.MaskPath, ErrResourceNotFound)
	}
	mask, err := imaging.LoadGray(r.MaskPath)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r.MaskPath, err)
	}
	return mask, nil
}
