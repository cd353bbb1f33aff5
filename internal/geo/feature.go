package geo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ElementType is the OSM primitive a task feature maps to.
type ElementType string

const (
	Node     ElementType = "node"
	Way      ElementType = "way"
	Relation ElementType = "relation"
)

// Abbrev returns the single letter form used by web editors (n, w, r).
func (t ElementType) Abbrev() string {
	if t == "" {
		return ""
	}
	return string(t[:1])
}

type OSMElement struct {
	Type ElementType
	ID   int64
}

// Feature is one geometry of a task with its optional OSM id.
type Feature struct {
	Geometry   orb.Geometry
	OSMID      int64
	Properties map[string]any
}

func (f Feature) Type() string {
	if f.Geometry == nil {
		return ""
	}
	return f.Geometry.GeoJSONType()
}

// Element resolves the feature to an OSM element by geometry type.
// Features without an OSM id or with an unsupported geometry are not selectable.
func (f Feature) Element() (OSMElement, bool) {
	if f.OSMID <= 0 {
		return OSMElement{}, false
	}
	switch f.Type() {
	case geojson.TypePoint:
		return OSMElement{Type: Node, ID: f.OSMID}, true
	case geojson.TypeLineString, geojson.TypePolygon:
		return OSMElement{Type: Way, ID: f.OSMID}, true
	case geojson.TypeMultiPolygon:
		return OSMElement{Type: Relation, ID: f.OSMID}, true
	default:
		return OSMElement{}, false
	}
}

// Selection returns the OSM elements of features in feature order.
func Selection(features []Feature) []OSMElement {
	out := make([]OSMElement, 0, len(features))
	for _, f := range features {
		if el, ok := f.Element(); ok {
			out = append(out, el)
		}
	}
	return out
}

// FeaturesBound is the union of all feature bounds. ok is false when no
// feature carries a geometry.
func FeaturesBound(features []Feature) (orb.Bound, bool) {
	var (
		b     orb.Bound
		found bool
	)
	for _, f := range features {
		if f.Geometry == nil {
			continue
		}
		fb := f.Geometry.Bound()
		if !found {
			b = fb
			found = true
			continue
		}
		b = b.Union(fb)
	}
	return b, found
}

// ParseFeatures decodes a {"features": [...]} document as returned by the
// task geometries endpoint.
func ParseFeatures(data []byte) ([]Feature, error) {
	var doc struct {
		Features []*geojson.Feature `json:"features"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	out := make([]Feature, 0, len(doc.Features))
	for _, gf := range doc.Features {
		if gf == nil {
			continue
		}
		out = append(out, FromGeoJSON(gf))
	}
	return out, nil
}

func FromGeoJSON(gf *geojson.Feature) Feature {
	props := map[string]any{}
	for k, v := range gf.Properties {
		props[k] = v
	}
	return Feature{
		Geometry:   gf.Geometry,
		OSMID:      osmIDOf(props["osmid"]),
		Properties: props,
	}
}

// ToGeoJSON is the inverse of FromGeoJSON; osmid is written back into the
// property bag.
func (f Feature) ToGeoJSON() *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	for k, v := range f.Properties {
		gf.Properties[k] = v
	}
	if f.OSMID > 0 {
		gf.Properties["osmid"] = f.OSMID
	}
	return gf
}

func osmIDOf(v any) int64 {
	switch id := v.(type) {
	case float64:
		return int64(id)
	case int64:
		return id
	case int:
		return int64(id)
	case json.Number:
		n, _ := id.Int64()
		return n
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
