package ui

import (
	"strings"

	"mrtui/internal/geo"

	"charm.land/lipgloss/v2"
	"github.com/paulmach/orb"
)

type cellKind uint8

const (
	cellEmpty cellKind = iota
	cellArea
	cellFeature
	cellCursor
)

// Segments with an endpoint further than farCells outside the canvas are
// dropped instead of rasterised.
const farCells = 8192

// canvas is a character raster of the map viewport.
type canvas struct {
	w, h  int
	runes [][]rune
	kinds [][]cellKind
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: max(1, w), h: max(1, h)}
	c.runes = make([][]rune, c.h)
	c.kinds = make([][]cellKind, c.h)
	for i := range c.runes {
		c.runes[i] = []rune(strings.Repeat(" ", c.w))
		c.kinds[i] = make([]cellKind, c.w)
	}
	return c
}

func (c *canvas) set(col, row int, ch rune, kind cellKind) {
	if col < 0 || row < 0 || col >= c.w || row >= c.h {
		return
	}
	// features win over the edit area outline
	if c.kinds[row][col] > kind {
		return
	}
	c.runes[row][col] = ch
	c.kinds[row][col] = kind
}

func (c *canvas) line(c0, r0, c1, r1 int, ch rune, kind cellKind) {
	if outside(c0, r0, c.w, c.h) || outside(c1, r1, c.w, c.h) {
		return
	}
	dc := abs(float64(c1 - c0))
	dr := -abs(float64(r1 - r0))
	sc, sr := 1, 1
	if c0 > c1 {
		sc = -1
	}
	if r0 > r1 {
		sr = -1
	}
	e := dc + dr
	for {
		c.set(c0, r0, ch, kind)
		if c0 == c1 && r0 == r1 {
			return
		}
		e2 := 2 * e
		if e2 >= dr {
			e += dr
			c0 += sc
		}
		if e2 <= dc {
			e += dc
			r0 += sr
		}
	}
}

func outside(col, row, w, h int) bool {
	return col < -farCells || row < -farCells || col > w+farCells || row > h+farCells
}

func (c *canvas) path(vp geo.Viewport, pts []orb.Point, ch rune, kind cellKind) {
	for i := 1; i < len(pts); i++ {
		c0, r0, _ := vp.Project(pts[i-1])
		c1, r1, _ := vp.Project(pts[i])
		c.line(c0, r0, c1, r1, ch, kind)
	}
	if len(pts) == 1 {
		col, row, _ := vp.Project(pts[0])
		c.set(col, row, ch, kind)
	}
}

func (c *canvas) drawGeometry(vp geo.Viewport, g orb.Geometry) {
	switch g := g.(type) {
	case orb.Point:
		col, row, _ := vp.Project(g)
		c.set(col, row, '*', cellFeature)
	case orb.MultiPoint:
		for _, p := range g {
			c.drawGeometry(vp, p)
		}
	case orb.LineString:
		c.path(vp, g, '#', cellFeature)
	case orb.MultiLineString:
		for _, ls := range g {
			c.path(vp, ls, '#', cellFeature)
		}
	case orb.Ring:
		c.path(vp, g, '#', cellFeature)
	case orb.Polygon:
		for _, ring := range g {
			c.path(vp, ring, '#', cellFeature)
		}
	case orb.MultiPolygon:
		for _, poly := range g {
			c.drawGeometry(vp, poly)
		}
	case orb.Collection:
		for _, sub := range g {
			c.drawGeometry(vp, sub)
		}
	}
}

func (c *canvas) drawFeatures(vp geo.Viewport, features []geo.Feature) {
	for _, f := range features {
		if f.Geometry != nil {
			c.drawGeometry(vp, f.Geometry)
		}
	}
}

func (c *canvas) drawCircle(vp geo.Viewport, circle geo.Circle) {
	outline := circle.Outline(72)
	c.path(vp, append(outline, outline[0]), 'o', cellArea)
	col, row, _ := vp.Project(circle.Center)
	c.set(col, row, '+', cellArea)
}

func (c *canvas) render(theme Theme) []string {
	out := make([]string, c.h)
	for row := 0; row < c.h; row++ {
		var b strings.Builder
		start := 0
		for col := 1; col <= c.w; col++ {
			if col < c.w && c.kinds[row][col] == c.kinds[row][start] {
				continue
			}
			b.WriteString(styleFor(theme, c.kinds[row][start]).Render(string(c.runes[row][start:col])))
			start = col
		}
		out[row] = b.String()
	}
	return out
}

func (c *canvas) plain() []string {
	out := make([]string, c.h)
	for i, r := range c.runes {
		out[i] = string(r)
	}
	return out
}

func styleFor(theme Theme, kind cellKind) lipgloss.Style {
	switch kind {
	case cellFeature:
		return theme.Feature
	case cellArea:
		return theme.EditArea
	case cellCursor:
		return theme.Cursor
	default:
		return theme.Muted
	}
}
