package imaging

import (
	"image"

	"github.com/nfnt/resize"
)

// Smooth softens blocky warp output by resampling up to twice the size and
// back down, both hops with Lanczos3. Dimensions are unchanged.
func Smooth(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return img
	}
	up := resize.Resize(uint(w)*2, uint(h)*2, img, resize.Lanczos3)
	return resize.Resize(uint(w), uint(h), up, resize.Lanczos3)
}
