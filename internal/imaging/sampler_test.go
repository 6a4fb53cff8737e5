package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func uniformNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestDominantColorUniform(t *testing.T) {
	img := uniformNRGBA(120, 90, color.NRGBA{R: 70, G: 130, B: 180, A: 255})
	got, err := DominantColor(img)
	if err != nil {
		t.Fatalf("DominantColor: %v", err)
	}
	if got != (RGB{70, 130, 180}) {
		t.Fatalf("got %v, want rgb(70,130,180)", got)
	}
}

func TestDominantColorMajority(t *testing.T) {
	img := uniformNRGBA(sampleGrid, sampleGrid, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
	// Minority block in one corner.
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	got, err := DominantColor(img)
	if err != nil {
		t.Fatalf("DominantColor: %v", err)
	}
	if got != (RGB{10, 20, 30}) {
		t.Fatalf("got %v, want the majority color", got)
	}
}

func TestDominantColorBrightFallback(t *testing.T) {
	// Every pixel is at or above the brightness cutoff, so the filter
	// removes everything and the unfiltered tally must decide.
	img := uniformNRGBA(60, 60, color.NRGBA{R: 250, G: 250, B: 250, A: 255})
	got, err := DominantColor(img)
	if err != nil {
		t.Fatalf("DominantColor: %v", err)
	}
	if got != (RGB{250, 250, 250}) {
		t.Fatalf("got %v, want the near-white color", got)
	}
}

func TestDominantColorInvalid(t *testing.T) {
	if _, err := DominantColor(nil); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("nil image: got %v, want ErrInvalidImage", err)
	}
	empty := image.NewNRGBA(image.Rect(0, 0, 0, 0))
	if _, err := DominantColor(empty); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("empty image: got %v, want ErrInvalidImage", err)
	}
}

func TestDominantColorFastInvalid(t *testing.T) {
	if _, err := DominantColorFast(nil); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("nil image: got %v, want ErrInvalidImage", err)
	}
}
