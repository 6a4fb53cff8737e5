package imaging

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// CompositeWithMask blends overlay onto base, weighting each pixel by the
// mask value scaled by the overlay's own alpha. Mask 0 keeps the base,
// mask 255 takes the overlay wherever the overlay is opaque; transparent
// overlay regions always fall through to the base. The mask is resampled
// to the base dimensions when they differ. Inputs of any color model are
// accepted; the result is always NRGBA sized like base.
func CompositeWithMask(base, overlay image.Image, mask *image.Gray) *image.NRGBA {
	bn := toNRGBA(base)
	on := toNRGBA(overlay)
	w := bn.Rect.Dx()
	h := bn.Rect.Dy()

	m := fitMask(mask, w, h)
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			bp := bn.NRGBAAt(x, y)
			var op color.NRGBA
			if x < on.Rect.Dx() && y < on.Rect.Dy() {
				op = on.NRGBAAt(x, y)
			}
			a := uint32(m.GrayAt(x, y).Y) * uint32(op.A) / 255
			out.SetNRGBA(x, y, color.NRGBA{
				R: lerp8(bp.R, op.R, a),
				G: lerp8(bp.G, op.G, a),
				B: lerp8(bp.B, op.B, a),
				A: lerp8(bp.A, 0xff, a),
			})
		}
	}
	return out
}

func lerp8(from, to uint8, a uint32) uint8 {
	return uint8((uint32(from)*(255-a) + uint32(to)*a) / 255)
}

func fitMask(mask *image.Gray, w, h int) *image.Gray {
	if mask == nil {
		// No mask behaves as fully selected.
		m := image.NewGray(image.Rect(0, 0, w, h))
		for i := range m.Pix {
			m.Pix[i] = 0xff
		}
		return m
	}
	if mask.Rect.Dx() == w && mask.Rect.Dy() == h {
		return mask
	}
	return toGray(resize.Resize(uint(w), uint(h), mask, resize.Lanczos3))
}
