package imaging

import "math"

// TemplateEntry binds a canonical color to the mockup template rendered for
// covers closest to that color.
type TemplateEntry struct {
	Name  string `json:"name"`
	File  string `json:"file"`
	Color RGB    `json:"color"`
}

// Palette is an ordered set of template entries. Order matters: when two
// entries are equally close to a sample, the earlier one wins.
type Palette []TemplateEntry

// DefaultPalette returns the stock six-template palette.
func DefaultPalette() Palette {
	return Palette{
		{Name: "black", File: "black.png", Color: RGB{30, 30, 30}},
		{Name: "blue", File: "blue.png", Color: RGB{70, 130, 180}},
		{Name: "green", File: "green.png", Color: RGB{60, 120, 60}},
		{Name: "red", File: "red.png", Color: RGB{180, 60, 60}},
		{Name: "grey", File: "grey.png", Color: RGB{120, 120, 120}},
		{Name: "white", File: "white.png", Color: RGB{240, 240, 240}},
	}
}

// Match returns the palette entry whose color is nearest to sample by
// Euclidean RGB distance. An empty palette yields ErrNoTemplates.
func (p Palette) Match(sample RGB) (TemplateEntry, error) {
	if len(p) == 0 {
		return TemplateEntry{}, ErrNoTemplates
	}
	sc := sample.colorful()
	best := p[0]
	bestDist := math.Inf(1)
	for _, entry := range p {
		if d := sc.DistanceRgb(entry.Color.colorful()); d < bestDist {
			best, bestDist = entry, d
		}
	}
	return best, nil
}
