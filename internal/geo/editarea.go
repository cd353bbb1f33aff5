package geo

import (
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

const (
	MinEditAreaRadius = 100.0
	MaxEditAreaRadius = 50000.0

	// radius increment at zoom 16; it doubles for every zoom level out
	baseRadiusStep = 250.0
	minRadiusStep  = 10.0
)

// Near is the optional location bias sent with task and challenge requests.
type Near struct {
	Lon float64
	Lat float64
}

func (n Near) Point() orb.Point { return orb.Point{n.Lon, n.Lat} }

// Circle is a user-selected editing area.
type Circle struct {
	Center orb.Point
	Radius float64
}

func (c Circle) Near() Near { return Near{Lon: c.Center.Lon(), Lat: c.Center.Lat()} }

func (c Circle) Contains(p orb.Point) bool {
	return orbgeo.Distance(c.Center, p) <= c.Radius
}

// Outline samples n points along the circle perimeter.
func (c Circle) Outline(n int) []orb.Point {
	if n < 4 {
		n = 4
	}
	out := make([]orb.Point, 0, n)
	for i := 0; i < n; i++ {
		bearing := 360 * float64(i) / float64(n)
		out = append(out, orbgeo.PointAtBearingAndDistance(c.Center, bearing, c.Radius))
	}
	return out
}

// RadiusStep is the keyboard increment for the edit-area radius at zoom.
func RadiusStep(zoom int) float64 {
	step := baseRadiusStep * math.Exp2(float64(16-zoom))
	return math.Max(minRadiusStep, step)
}

// DefaultRadius is the radius offered when edit-area selection starts.
func DefaultRadius(zoom int) float64 {
	return ClampRadius(4 * RadiusStep(zoom))
}

// AdjustRadius grows (dir > 0) or shrinks (dir < 0) radius by one step.
func AdjustRadius(radius float64, dir, zoom int) float64 {
	switch {
	case dir > 0:
		radius += RadiusStep(zoom)
	case dir < 0:
		radius -= RadiusStep(zoom)
	}
	return ClampRadius(radius)
}

func ClampRadius(r float64) float64 {
	return math.Max(MinEditAreaRadius, math.Min(MaxEditAreaRadius, r))
}
