package ui

const (
	minCols = 60
	minRows = 20

	taskPanelWidth  = 40
	taskPanelHeight = 6
)

func DetermineLayoutMode(cols, rows int) LayoutMode {
	if cols < minCols || rows < minRows {
		return LayoutTooSmall
	}
	if cols >= 110 && rows >= 26 {
		return LayoutWide
	}
	return LayoutCompact
}

// mapArea is the inner cell size of the map panel for a terminal size.
func mapArea(cols, rows int) (w, h int) {
	bodyH := rows - 2
	switch DetermineLayoutMode(cols, rows) {
	case LayoutWide:
		return max(1, cols-taskPanelWidth-2), max(1, bodyH-2)
	case LayoutCompact:
		return max(1, cols-2), max(1, bodyH-taskPanelHeight-2)
	default:
		return max(1, cols-2), max(1, bodyH-2)
	}
}
