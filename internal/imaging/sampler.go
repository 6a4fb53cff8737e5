package imaging

import (
	"image"
	"image/color"

	"github.com/cenkalti/dominantcolor"
	"github.com/nfnt/resize"
)

const (
	// sampleGrid is the side length covers are reduced to before tallying.
	sampleGrid = 50
	// brightnessLimit discards washed-out pixels: any sample whose channel
	// sum reaches this value is ignored unless nothing else remains.
	brightnessLimit = 700
)

// DominantColor returns the most frequent color of img after reducing it to
// a sampleGrid square. Pixels at or above brightnessLimit are excluded so
// pale page backgrounds do not drown out the cover art; when every sample is
// that bright the unfiltered tally decides instead. A nil or zero-dimension
// image yields ErrInvalidImage.
func DominantColor(img image.Image) (RGB, error) {
	if img == nil {
		return RGB{}, ErrInvalidImage
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return RGB{}, ErrInvalidImage
	}

	// Nearest neighbor keeps original pixel values so the modal tally is
	// not diluted by interpolated blends.
	small := resize.Resize(sampleGrid, sampleGrid, img, resize.NearestNeighbor)

	filtered := make(map[RGB]int, sampleGrid*sampleGrid)
	all := make(map[RGB]int, sampleGrid*sampleGrid)
	sb := small.Bounds()
	for y := sb.Min.Y; y < sb.Max.Y; y++ {
		for x := sb.Min.X; x < sb.Max.X; x++ {
			c := color.NRGBAModel.Convert(small.At(x, y)).(color.NRGBA)
			px := RGB{R: c.R, G: c.G, B: c.B}
			all[px]++
			if int(px.R)+int(px.G)+int(px.B) < brightnessLimit {
				filtered[px]++
			}
		}
	}

	tally := filtered
	if len(tally) == 0 {
		tally = all
	}
	if len(tally) == 0 {
		return RGB{}, ErrInvalidImage
	}
	return modal(tally), nil
}

// modal picks the highest-count entry, breaking count ties toward the
// smaller channel tuple so results are deterministic across runs.
func modal(tally map[RGB]int) RGB {
	var best RGB
	bestN := -1
	for c, n := range tally {
		if n > bestN || (n == bestN && less(c, best)) {
			best, bestN = c, n
		}
	}
	return best
}

func less(a, b RGB) bool {
	if a.R != b.R {
		return a.R < b.R
	}
	if a.G != b.G {
		return a.G < b.G
	}
	return a.B < b.B
}

// DominantColorFast delegates to the dominantcolor library's weighted
// sampler. It trades the exact modal contract for speed on large covers and
// is only used when explicitly selected.
func DominantColorFast(img image.Image) (RGB, error) {
	if img == nil {
		return RGB{}, ErrInvalidImage
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return RGB{}, ErrInvalidImage
	}
	c := dominantcolor.Find(img)
	return RGB{R: c.R, G: c.G, B: c.B}, nil
}
