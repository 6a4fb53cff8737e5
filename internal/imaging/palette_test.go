package imaging

import (
	"errors"
	"testing"
)

func TestPaletteMatchExact(t *testing.T) {
	p := DefaultPalette()
	for _, entry := range p {
		got, err := p.Match(entry.Color)
		if err != nil {
			t.Fatalf("Match(%v): %v", entry.Color, err)
		}
		if got.Name != entry.Name {
			t.Fatalf("Match(%v) = %s, want %s", entry.Color, got.Name, entry.Name)
		}
	}
}

func TestPaletteMatchNearest(t *testing.T) {
	p := DefaultPalette()
	cases := []struct {
		sample RGB
		want   string
	}{
		{RGB{65, 125, 175}, "blue"},
		{RGB{0, 0, 0}, "black"},
		{RGB{255, 255, 255}, "white"},
		{RGB{170, 70, 70}, "red"},
		{RGB{55, 110, 65}, "green"},
	}
	for _, tc := range cases {
		got, err := p.Match(tc.sample)
		if err != nil {
			t.Fatalf("Match(%v): %v", tc.sample, err)
		}
		if got.Name != tc.want {
			t.Fatalf("Match(%v) = %s, want %s", tc.sample, got.Name, tc.want)
		}
	}
}

func TestPaletteMatchTieFirstWins(t *testing.T) {
	p := Palette{
		{Name: "first", Color: RGB{100, 100, 100}},
		{Name: "second", Color: RGB{100, 100, 100}},
	}
	got, err := p.Match(RGB{90, 90, 90})
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got.Name != "first" {
		t.Fatalf("tie went to %s, want first", got.Name)
	}
}

func TestPaletteMatchEmpty(t *testing.T) {
	if _, err := Palette(nil).Match(RGB{1, 2, 3}); !errors.Is(err, ErrNoTemplates) {
		t.Fatalf("got %v, want ErrNoTemplates", err)
	}
}
