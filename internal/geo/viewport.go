package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Terminal cells are projected as if they were a block of web-mercator
// pixels, so zoom levels line up with the ones slippy maps and editors use.
const (
	CellWidthPx  = 8
	CellHeightPx = 16

	MinZoom    = 1
	MaxZoom    = 19
	MaxFitZoom = 18

	tileSize           = 256.0
	earthCircumference = 2 * math.Pi * 6378137.0
	maxLatitude        = 85.05112878
)

// Viewport is the visible map window: a center, an integer zoom level and a
// size in terminal cells.
type Viewport struct {
	Center orb.Point
	Zoom   int
	Cols   int
	Rows   int
}

func DefaultViewport(cols, rows int) Viewport {
	return Viewport{Center: orb.Point{0, 20}, Zoom: 2, Cols: cols, Rows: rows}
}

// pixels per mercator metre
func scaleAt(zoom int) float64 {
	return tileSize * math.Exp2(float64(zoom)) / earthCircumference
}

func toMercator(p orb.Point) orb.Point {
	p[1] = math.Max(-maxLatitude, math.Min(maxLatitude, p[1]))
	return project.WGS84.ToMercator(p)
}

func toWGS84(p orb.Point) orb.Point {
	return project.Mercator.ToWGS84(p)
}

// Bounds returns the lon/lat box covered by the viewport.
func (v Viewport) Bounds() orb.Bound {
	c := toMercator(v.Center)
	s := scaleAt(v.Zoom)
	halfW := float64(v.Cols*CellWidthPx) / 2 / s
	halfH := float64(v.Rows*CellHeightPx) / 2 / s
	sw := toWGS84(orb.Point{c[0] - halfW, c[1] - halfH})
	ne := toWGS84(orb.Point{c[0] + halfW, c[1] + halfH})
	return orb.Bound{Min: sw, Max: ne}
}

// Project maps a lon/lat point to a cell. ok is false when the point falls
// outside the viewport.
func (v Viewport) Project(p orb.Point) (col, row int, ok bool) {
	m := toMercator(p)
	c := toMercator(v.Center)
	s := scaleAt(v.Zoom)
	x := (m[0]-c[0])*s/CellWidthPx + float64(v.Cols)/2
	y := (c[1]-m[1])*s/CellHeightPx + float64(v.Rows)/2
	col = int(math.Floor(x))
	row = int(math.Floor(y))
	ok = col >= 0 && col < v.Cols && row >= 0 && row < v.Rows
	return col, row, ok
}

// Unproject returns the lon/lat at the middle of a cell.
func (v Viewport) Unproject(col, row int) orb.Point {
	c := toMercator(v.Center)
	s := scaleAt(v.Zoom)
	x := c[0] + (float64(col)+0.5-float64(v.Cols)/2)*CellWidthPx/s
	y := c[1] - (float64(row)+0.5-float64(v.Rows)/2)*CellHeightPx/s
	return toWGS84(orb.Point{x, y})
}

// Pan shifts the center by whole cells.
func (v Viewport) Pan(dcols, drows int) Viewport {
	c := toMercator(v.Center)
	s := scaleAt(v.Zoom)
	c[0] += float64(dcols*CellWidthPx) / s
	c[1] -= float64(drows*CellHeightPx) / s
	v.Center = toWGS84(c)
	return v
}

func (v Viewport) ZoomBy(delta int) Viewport {
	v.Zoom = clampZoom(v.Zoom + delta)
	return v
}

func (v Viewport) Resize(cols, rows int) Viewport {
	v.Cols = cols
	v.Rows = rows
	return v
}

// MetresPerCell is the ground width of one cell at the viewport latitude.
func (v Viewport) MetresPerCell() float64 {
	lat := v.Center[1] * math.Pi / 180
	return float64(CellWidthPx) / scaleAt(v.Zoom) * math.Cos(lat)
}

// Fit picks the highest zoom at which the padded bound fits the given
// cell area. pad is a ratio of the bound size added on every side.
func Fit(b orb.Bound, cols, rows int, pad float64) Viewport {
	b = PadBound(b, pad)
	sw := toMercator(b.Min)
	ne := toMercator(b.Max)
	center := toWGS84(orb.Point{(sw[0] + ne[0]) / 2, (sw[1] + ne[1]) / 2})
	width := math.Abs(ne[0] - sw[0])
	height := math.Abs(ne[1] - sw[1])

	zoom := MinZoom
	for z := MaxFitZoom; z >= MinZoom; z-- {
		s := scaleAt(z)
		if width*s <= float64(cols*CellWidthPx) && height*s <= float64(rows*CellHeightPx) {
			zoom = z
			break
		}
	}
	return Viewport{Center: center, Zoom: zoom, Cols: cols, Rows: rows}
}

// PadBound grows b by ratio of its width and height on each side.
func PadBound(b orb.Bound, ratio float64) orb.Bound {
	dx := (b.Max[0] - b.Min[0]) * ratio
	dy := (b.Max[1] - b.Min[1]) * ratio
	return orb.Bound{
		Min: orb.Point{b.Min[0] - dx, b.Min[1] - dy},
		Max: orb.Point{b.Max[0] + dx, b.Max[1] + dy},
	}
}

func clampZoom(z int) int {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}
