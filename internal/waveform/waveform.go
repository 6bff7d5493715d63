// Package waveform turns sample blocks into polylines.
package waveform

import (
	"math"

	"github.com/petems/wavescope/internal/audio"
)

// Point is a position in drawing coordinates, y growing downwards.
type Point struct {
	X, Y float32
}

// Bounds is the rectangle a waveform is drawn into.
type Bounds struct {
	X, Y          float32
	Width, Height float32
}

// CenterY is the vertical position of a silent sample.
func (b Bounds) CenterY() float32 {
	return b.Y + b.Height/2
}

// Polyline is a connected path through Points in order.
type Polyline struct {
	Points []Point
}

// Segments is the number of line segments joining the points.
func (p Polyline) Segments() int {
	return max(len(p.Points)-1, 0)
}

func (p Polyline) Empty() bool {
	return len(p.Points) == 0
}

// Peak returns the largest distance of any point from the centre line of b,
// as a fraction of half the height.
func (p Polyline) Peak(b Bounds) float32 {
	if b.Height <= 0 {
		return 0
	}
	half := b.Height / 2
	center := b.CenterY()

	var peak float32
	for _, pt := range p.Points {
		d := pt.Y - center
		if d < 0 {
			d = -d
		}
		peak = max(peak, d/half)
	}
	return min(peak, 1)
}

// Render spreads the N samples of block evenly across the width of b,
// sample i at x = X + i*Width/N, and maps amplitude +1 to the top edge, -1 to
// the bottom edge and 0 to the centre. Out of range samples are clamped and
// NaN is drawn as silence.
func Render(block audio.SampleBlock, b Bounds) Polyline {
	n := len(block)
	if n == 0 {
		return Polyline{}
	}

	step := b.Width / float32(n)
	half := b.Height / 2
	center := b.CenterY()

	points := make([]Point, n)
	for i, v := range block {
		points[i] = Point{
			X: b.X + float32(i)*step,
			Y: center - clamp(v)*half,
		}
	}
	return Polyline{Points: points}
}

func clamp(v float32) float32 {
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}
