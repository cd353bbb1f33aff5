package editor

import (
	"strconv"
	"strings"

	"mrtui/internal/geo"

	"github.com/paulmach/orb"
)

type Kind string

const (
	KindJOSM    Kind = "josm"
	KindID      Kind = "id"
	KindDefault Kind = "default"
)

func ParseKind(raw string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "josm":
		return KindJOSM, true
	case "id", "ideditor":
		return KindID, true
	case "", "default":
		return KindDefault, true
	default:
		return "", false
	}
}

const (
	DefaultJOSMURL = "http://127.0.0.1:8111"
	DefaultIDURL   = "http://openstreetmap.us/iD/release/#"
)

// JOSMURI builds a remote control load_and_zoom request for the box and
// selects the given elements, e.g. select=node5,way9.
func JOSMURI(base string, b orb.Bound, sel []geo.OSMElement) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(base, "/"))
	sb.WriteString("/load_and_zoom?left=")
	sb.WriteString(formatCoord(b.Min.Lon()))
	sb.WriteString("&right=")
	sb.WriteString(formatCoord(b.Max.Lon()))
	sb.WriteString("&top=")
	sb.WriteString(formatCoord(b.Max.Lat()))
	sb.WriteString("&bottom=")
	sb.WriteString(formatCoord(b.Min.Lat()))
	sb.WriteString("&new_layer=0&select=")
	for i, el := range sel {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(string(el.Type))
		sb.WriteString(strconv.FormatInt(el.ID, 10))
	}
	return sb.String()
}

// IDURI builds the iD deep link: id=n5,w9&map=zoom/lon/lat appended to base.
func IDURI(base string, zoom int, center orb.Point, sel []geo.OSMElement) string {
	ids := make([]string, 0, len(sel))
	for _, el := range sel {
		ids = append(ids, el.Type.Abbrev()+strconv.FormatInt(el.ID, 10))
	}
	return base + "id=" + strings.Join(ids, ",") + "&map=" + MapParam(zoom, center)
}

func MapParam(zoom int, center orb.Point) string {
	return strconv.Itoa(zoom) + "/" + formatCoord(center.Lon()) + "/" + formatCoord(center.Lat())
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
