package tui

import (
	"strings"

	"github.com/petems/wavescope/internal/waveform"
)

const (
	inkCell   = '█'
	emptyCell = ' '
)

// rasterBounds is the drawing area for a cols x rows grid. The height is one
// less than the row count so that both extremes land on a row.
func rasterBounds(cols, rows int) waveform.Bounds {
	return waveform.Bounds{Width: float32(cols), Height: float32(max(rows-1, 0))}
}

// raster draws p into a grid of cols x rows cells, one cell per unit of the
// polyline's coordinates, joining consecutive points with straight runs.
func raster(p waveform.Polyline, cols, rows int) []string {
	if cols <= 0 || rows <= 0 {
		return nil
	}

	grid := make([][]rune, rows)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(string(emptyCell), cols))
	}

	plot := func(x, y int) {
		x = min(max(x, 0), cols-1)
		y = min(max(y, 0), rows-1)
		grid[y][x] = inkCell
	}

	for i, pt := range p.Points {
		x1, y1 := int(pt.X), int(pt.Y+0.5)
		if i == 0 {
			plot(x1, y1)
			continue
		}
		prev := p.Points[i-1]
		x0, y0 := int(prev.X), int(prev.Y+0.5)
		steps := max(abs(x1-x0), abs(y1-y0))
		for s := 1; s <= steps; s++ {
			plot(x0+(x1-x0)*s/steps, y0+(y1-y0)*s/steps)
		}
		plot(x1, y1)
	}

	lines := make([]string, rows)
	for r, row := range grid {
		lines[r] = string(row)
	}
	return lines
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
