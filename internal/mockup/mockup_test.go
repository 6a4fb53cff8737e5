package mockup

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"coverforge/internal/imaging"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
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

func fullMask(w, h int) *image.Gray {
	m := image.NewGray(image.Rect(0, 0, w, h))
	for i := range m.Pix {
		m.Pix[i] = 0xff
	}
	return m
}

// newTestRenderer lays out a single blue template plus an all-selected mask
// in a temp directory and returns a renderer pointed at them.
func newTestRenderer(t *testing.T) (*Renderer, string) {
	t.Helper()
	dir := t.TempDir()
	templates := filepath.Join(dir, "templates")
	if err := os.MkdirAll(templates, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	writePNG(t, filepath.Join(templates, "blue.png"),
		uniform(200, 300, color.NRGBA{R: 220, G: 220, B: 220, A: 255}))
	writePNG(t, filepath.Join(dir, "mask.png"), fullMask(200, 300))

	r := &Renderer{
		Palette: imaging.Palette{
			{Name: "blue", File: "blue.png", Color: imaging.RGB{R: 70, G: 130, B: 180}},
		},
		Quad: imaging.Quad{
			TopLeft:     image.Point{50, 50},
			TopRight:    image.Point{150, 50},
			BottomRight: image.Point{150, 250},
			BottomLeft:  image.Point{50, 250},
		},
		Warp:         imaging.DefaultWarpOptions(),
		TemplatesDir: templates,
		MaskPath:     filepath.Join(dir, "mask.png"),
		OutputDir:    filepath.Join(dir, "output"),
		OutputSuffix: "_book",
		Sample:       imaging.DominantColor,
		log:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return r, dir
}

func TestRenderCoverBlue(t *testing.T) {
	r, dir := newTestRenderer(t)
	coverPath := filepath.Join(dir, "novel.png")
	writePNG(t, coverPath, uniform(100, 150, color.NRGBA{R: 70, G: 130, B: 180, A: 255}))

	res, err := r.RenderCover(context.Background(), coverPath, "")
	if err != nil {
		t.Fatalf("RenderCover: %v", err)
	}
	if res.Template.Name != "blue" {
		t.Fatalf("matched %s, want blue", res.Template.Name)
	}
	if res.Dominant != (imaging.RGB{R: 70, G: 130, B: 180}) {
		t.Fatalf("dominant = %v", res.Dominant)
	}
	if filepath.Base(res.OutputPath) != "novel_book.png" {
		t.Fatalf("output name = %s", filepath.Base(res.OutputPath))
	}

	f, err := os.Open(res.OutputPath)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()
	out, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if b := out.Bounds(); b.Dx() != 200 || b.Dy() != 300 {
		t.Fatalf("output bounds = %v, want template dimensions", b)
	}

	// Quad interior carries the cover color, the rest the template.
	center := color.NRGBAModel.Convert(out.At(100, 150)).(color.NRGBA)
	if diff(center.R, 70) > 4 || diff(center.G, 130) > 4 || diff(center.B, 180) > 4 {
		t.Fatalf("quad center = %v, want the cover color", center)
	}
	corner := color.NRGBAModel.Convert(out.At(5, 5)).(color.NRGBA)
	if corner.R != 220 || corner.G != 220 || corner.B != 220 {
		t.Fatalf("canvas corner = %v, want the template color", corner)
	}
}

func diff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestRenderCoverHonorsRequestedOutputDir(t *testing.T) {
	r, dir := newTestRenderer(t)
	coverPath := filepath.Join(dir, "novel.png")
	writePNG(t, coverPath, uniform(40, 60, color.NRGBA{R: 70, G: 130, B: 180, A: 255}))

	requested := filepath.Join(dir, "requested")
	res, err := r.RenderCover(context.Background(), coverPath, requested)
	if err != nil {
		t.Fatalf("RenderCover: %v", err)
	}
	if filepath.Dir(res.OutputPath) != requested {
		t.Fatalf("output written to %s, want %s", res.OutputPath, requested)
	}
	if _, err := os.Stat(filepath.Join(requested, "novel_book.png")); err != nil {
		t.Fatalf("requested directory missing output: %v", err)
	}
	if entries, _ := os.ReadDir(r.OutputDir); len(entries) != 0 {
		t.Fatalf("configured directory received %d files, want none", len(entries))
	}
}

func TestRenderCoverMissingTemplate(t *testing.T) {
	r, dir := newTestRenderer(t)
	r.Palette[0].File = "missing.png"
	coverPath := filepath.Join(dir, "cover.png")
	writePNG(t, coverPath, uniform(20, 20, color.NRGBA{R: 70, G: 130, B: 180, A: 255}))

	_, err := r.RenderCover(context.Background(), coverPath, "")
	if !errors.Is(err, ErrResourceNotFound) {
		t.Fatalf("got %v, want ErrResourceNotFound", err)
	}
}

func TestRenderCoverEmptyPalette(t *testing.T) {
	r, dir := newTestRenderer(t)
	r.Palette = nil
	coverPath := filepath.Join(dir, "cover.png")
	writePNG(t, coverPath, uniform(20, 20, color.NRGBA{R: 1, G: 2, B: 3, A: 255}))

	_, err := r.RenderCover(context.Background(), coverPath, "")
	if !errors.Is(err, imaging.ErrNoTemplates) {
		t.Fatalf("got %v, want ErrNoTemplates", err)
	}
}

func TestRenderCoverCorruptInput(t *testing.T) {
	r, dir := newTestRenderer(t)
	coverPath := filepath.Join(dir, "broken.jpg")
	if err := os.WriteFile(coverPath, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, err := r.RenderCover(context.Background(), coverPath, "")
	if !errors.Is(err, imaging.ErrInvalidImage) {
		t.Fatalf("got %v, want ErrInvalidImage", err)
	}
	// No partial output may exist.
	if entries, _ := os.ReadDir(r.OutputDir); len(entries) != 0 {
		t.Fatalf("failed render left %d files in output", len(entries))
	}
}

func TestOutputName(t *testing.T) {
	r := &Renderer{OutputSuffix: "_book"}
	if got := r.OutputName("/covers/my novel.jpeg"); got != "my novel_book.png" {
		t.Fatalf("OutputName = %q", got)
	}
}

func TestRenderBatchCountsFailures(t *testing.T) {
	r, dir := newTestRenderer(t)
	covers := filepath.Join(dir, "covers")
	if err := os.MkdirAll(covers, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writePNG(t, filepath.Join(covers, "a.png"),
		uniform(40, 60, color.NRGBA{R: 70, G: 130, B: 180, A: 255}))
	writePNG(t, filepath.Join(covers, "b.png"),
		uniform(40, 60, color.NRGBA{R: 60, G: 120, B: 170, A: 255}))
	if err := os.WriteFile(filepath.Join(covers, "c.jpg"), []byte("junk"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	sum, err := r.RenderBatch(context.Background(), covers, "", 2)
	if err != nil {
		t.Fatalf("RenderBatch: %v", err)
	}
	if sum.Total != 3 || sum.Succeeded != 2 || sum.Failed != 1 {
		t.Fatalf("summary = %+v, want 3/2/1", sum)
	}
	if len(sum.Failures) != 1 || filepath.Base(sum.Failures[0].CoverPath) != "c.jpg" {
		t.Fatalf("failures = %+v", sum.Failures)
	}
}

func TestRenderBatchEmptyDir(t *testing.T) {
	r, dir := newTestRenderer(t)
	covers := filepath.Join(dir, "empty")
	if err := os.MkdirAll(covers, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	sum, err := r.RenderBatch(context.Background(), covers, "", 4)
	if err != nil {
		t.Fatalf("RenderBatch: %v", err)
	}
	if sum.Total != 0 || sum.Succeeded != 0 || sum.Failed != 0 {
		t.Fatalf("summary = %+v, want all zero", sum)
	}
}
