package core

import (
	"fmt"
	"hash/fnv"
	"math"
)

// Tag is a named label. Its Color is a pure function of Name.
type Tag struct {
	Name  string
	Color Color
}

// NewTag returns a tag with its derived color.
func NewTag(name string) Tag {
	return Tag{Name: name, Color: TagColor(name)}
}

// Color is an sRGB color.
type Color struct {
	R, G, B uint8
}

// Hex returns the color as #rrggbb.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// Luminance returns the relative luminance in [0,1], used to pick readable text.
func (c Color) Luminance() float64 {
	return (0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)) / 255
}

const (
	tagSaturation = 0.55
	tagLightness  = 0.55
)

// TagColor derives a stable color from the tag name: the FNV-1a hash seeds the hue.
func TagColor(name string) Color {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	hue := float64(h.Sum64()%360) / 360
	return hslToRGB(hue, tagSaturation, tagLightness)
}

func hslToRGB(h, s, l float64) Color {
	q := l * (1 + s)
	if l >= 0.5 {
		q = l + s - l*s
	}
	p := 2*l - q
	return Color{
		R: channel(p, q, h+1.0/3),
		G: channel(p, q, h),
		B: channel(p, q, h-1.0/3),
	}
}

func channel(p, q, t float64) uint8 {
	t -= math.Floor(t)
	var v float64
	switch {
	case t < 1.0/6:
		v = p + (q-p)*6*t
	case t < 0.5:
		v = q
	case t < 2.0/3:
		v = p + (q-p)*(2.0/3-t)*6
	default:
		v = p
	}
	return uint8(math.Round(v * 255))
}
