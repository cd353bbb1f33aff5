package app

import (
	"strings"

	"mrtui/internal/editor"
)

// normalizeEditor resolves the configured default editor. "default" and
// unknown values fall back to JOSM.
func normalizeEditor(raw string) editor.Kind {
	kind, ok := editor.ParseKind(raw)
	if !ok || kind == editor.KindDefault {
		return editor.KindJOSM
	}
	return kind
}

func normalizeStyle(raw string) (string, bool) {
	switch v := strings.ToLower(strings.TrimSpace(raw)); v {
	case "", "night":
		return "night", true
	case "daylight", "mono":
		return v, true
	default:
		return "", false
	}
}

func difficultyName(d int) string {
	switch d {
	case 1:
		return "easy"
	case 2:
		return "normal"
	case 3:
		return "expert"
	default:
		return "any"
	}
}
