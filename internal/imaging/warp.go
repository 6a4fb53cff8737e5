package imaging

import (
	"image"
	"image/color"
)

// Quad names the four canvas corners a cover is warped into, in
// top-left, top-right, bottom-right, bottom-left order.
type Quad struct {
	TopLeft     image.Point `json:"top_left"`
	TopRight    image.Point `json:"top_right"`
	BottomRight image.Point `json:"bottom_right"`
	BottomLeft  image.Point `json:"bottom_left"`
}

// DefaultQuad is the book-face region of the stock templates.
func DefaultQuad() Quad {
	return Quad{
		TopLeft:     image.Point{X: 614, Y: 374},
		TopRight:    image.Point{X: 1200, Y: 286},
		BottomRight: image.Point{X: 1200, Y: 1860},
		BottomLeft:  image.Point{X: 614, Y: 1730},
	}
}

// WarpOptions tunes the forward-mapping pass.
type WarpOptions struct {
	// EdgeExpand stretches the sampled source range past each edge by this
	// fraction, pulling border pixels slightly outward so the warped face
	// reaches the quad edges without gaps.
	EdgeExpand float64
	// SplatRadius is the half-width of the destination neighborhood each
	// source pixel fills. At least 1.
	SplatRadius int
}

// DefaultWarpOptions returns the empirically tuned defaults.
func DefaultWarpOptions() WarpOptions {
	return WarpOptions{EdgeExpand: 0.02, SplatRadius: 1}
}

// WarpIntoQuad forward-maps src into the quad region of a transparent
// canvas of the given size. Every written pixel is fully opaque; source
// alpha is discarded. Destinations outside the canvas are skipped, so a
// quad reaching past the canvas simply crops. A degenerate quad (collapsed
// to a point or line) leaves most of the canvas transparent, never panics.
func WarpIntoQuad(src image.Image, quad Quad, canvas image.Point, opts WarpOptions) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, canvas.X, canvas.Y))
	if src == nil {
		return dst
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 || canvas.X <= 0 || canvas.Y <= 0 {
		return dst
	}

	radius := opts.SplatRadius
	if radius < 1 {
		radius = 1
	}

	for sy := 0; sy < h; sy++ {
		yr := expand(float64(sy)/float64(h), opts.EdgeExpand)
		for sx := 0; sx < w; sx++ {
			xr := expand(float64(sx)/float64(w), opts.EdgeExpand)
			dx, dy := quad.at(xr, yr)
			if dx < 0 || dx >= canvas.X || dy < 0 || dy >= canvas.Y {
				continue
			}

			c := color.NRGBAModel.Convert(src.At(b.Min.X+sx, b.Min.Y+sy)).(color.NRGBA)
			c.A = 0xff
			for oy := -radius; oy <= radius; oy++ {
				py := dy + oy
				if py < 0 || py >= canvas.Y {
					continue
				}
				for ox := -radius; ox <= radius; ox++ {
					px := dx + ox
					if px < 0 || px >= canvas.X {
						continue
					}
					dst.SetNRGBA(px, py, c)
				}
			}
		}
	}
	return dst
}

// expand rescales a [0,1] ratio so that [e, 1-e] maps back onto [0,1],
// clamped at the ends.
func expand(r, e float64) float64 {
	if e <= 0 || e >= 0.5 {
		return r
	}
	r = (r - e) / (1 - 2*e)
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// at bilinearly interpolates the quad: along the top edge, along the
// bottom edge, then vertically between the two.
func (q Quad) at(xr, yr float64) (int, int) {
	topX := float64(q.TopLeft.X) + xr*float64(q.TopRight.X-q.TopLeft.X)
	topY := float64(q.TopLeft.Y) + xr*float64(q.TopRight.Y-q.TopLeft.Y)
	botX := float64(q.BottomLeft.X) + xr*float64(q.BottomRight.X-q.BottomLeft.X)
	botY := float64(q.BottomLeft.Y) + xr*float64(q.BottomRight.Y-q.BottomLeft.Y)
	return int(topX + yr*(botX-topX)), int(topY + yr*(botY-topY))
}
