package ui

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

func (r *Root) render() string {
	if r.cols < 1 || r.rows < 1 {
		r.resize(120, 32)
	}
	w, h := r.cols, r.rows

	if r.layout == LayoutTooSmall {
		msg := []string{
			"Terminal too small",
			fmt.Sprintf("Current: %dx%d", w, h),
			fmt.Sprintf("Minimum: %dx%d", minCols, minRows),
			"Resize the terminal to continue.",
		}
		panel := r.drawPanel("Resize Required", msg, min(50, w), min(8, h))
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, panel)
	}

	var body string
	switch r.screen {
	case ScreenWelcome:
		body = r.renderWelcome(w, h-2)
	default:
		body = r.renderPlaying(w, h-2)
	}
	base := r.headerText() + "\n" + body + "\n" + r.statusText()

	if notes := r.renderNotifications(); notes != "" {
		base = composeOverlayAt(base, notes, w, h, 1, max(0, w-lipgloss.Width(notes)-1))
	}
	if r.dialog != nil {
		base = composeOverlay(base, r.renderDialog(), w, h)
	}
	return base
}

func (r *Root) renderWelcome(w, h int) string {
	lines := []string{
		"",
		r.theme.Accent.Render("MapRoulette"),
		"",
		"Fix one small thing on the map at a time.",
		r.theme.Muted.Render("Tasks open in JOSM or iD; come back here when you are done."),
	}
	return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, strings.Join(lines, "\n"))
}

func (r *Root) renderPlaying(w, h int) string {
	mapLines := r.renderMap()
	vp := r.Viewport()
	title := fmt.Sprintf("Map z%d", vp.Zoom)
	if r.editArea != nil {
		title = "Pick edit area"
	}
	mapPanel := r.drawPanel(title, mapLines, vp.Cols+2, vp.Rows+2)

	if r.layout == LayoutWide {
		task := r.drawPanel("Task", r.taskLines(taskPanelWidth-2), taskPanelWidth, h)
		return lipgloss.JoinHorizontal(lipgloss.Top, mapPanel, task)
	}
	task := r.drawPanel("Task", r.taskLines(w-2), w, max(3, h-vp.Rows-2))
	return mapPanel + "\n" + task
}

func (r *Root) renderMap() []string {
	vp := r.Viewport()
	c := newCanvas(vp.Cols, vp.Rows)
	c.drawFeatures(vp, r.features)
	if r.editArea != nil {
		if r.editArea.Circle != nil {
			c.drawCircle(vp, *r.editArea.Circle)
		}
		c.set(r.cursorCol, r.cursorRow, 'X', cellCursor)
	}
	if r.ascii {
		return c.plain()
	}
	return c.render(r.theme)
}

func (r *Root) taskLines(width int) []string {
	s := r.session
	var lines []string
	add := func(text string) {
		if text == "" {
			lines = append(lines, "")
			return
		}
		lines = append(lines, strings.Split(ansi.Wordwrap(text, max(8, width), " -"), "\n")...)
	}

	if s.TaskID == "" {
		add(r.theme.Muted.Render("No task loaded."))
	} else {
		add(fmt.Sprintf("Task %s (%s)", s.TaskID, firstNonEmptyStr(s.TaskStatus, "created")))
	}
	if s.Instruction != "" {
		add("")
		add(s.Instruction)
	}
	if len(r.features) > 0 {
		add("")
		add(r.theme.Accent.Render("Features"))
		for _, f := range r.features {
			if el, ok := f.Element(); ok {
				add(fmt.Sprintf("- %s %d (%s)", el.Type, el.ID, f.Type()))
			} else {
				add(fmt.Sprintf("- %s", f.Type()))
			}
		}
	}
	if s.Location != "" {
		add("")
		add(s.Location)
	}
	if s.EditArea != "" {
		add("")
		add("Edit area: " + s.EditArea)
	}
	if r.editArea != nil && r.editArea.Text != "" {
		add("")
		add(r.theme.Warning.Render(r.editArea.Text))
		add(r.theme.Muted.Render("arrows move, enter sets center, +/- radius, [ ] zoom, s saves, esc cancels"))
	}
	return lines
}

func (r *Root) headerText() string {
	s := r.session
	parts := []string{"MapRoulette"}
	if s.Challenge != "" {
		parts = append(parts, s.Challenge)
	}
	if s.Difficulty > 0 {
		parts = append(parts, difficultyLabel(s.Difficulty))
	}
	if s.Stats != "" {
		parts = append(parts, s.Stats)
	}
	if s.User != "" {
		parts = append(parts, s.User)
	}
	width := max(1, r.cols-1)
	txt := trimForWidth(strings.Join(parts, " | "), width)
	if r.debug {
		txt = trimForWidth(fmt.Sprintf("%s | %dx%d %v", txt, r.cols, r.rows, r.layout), width)
	}
	return r.theme.Header.Width(max(1, r.cols)).Render(txt)
}

func (r *Root) statusText() string {
	keys := r.help.View(hotkeyMap(r.hotkeys))
	if r.editArea != nil {
		keys = "enter center  +/- radius  s save  esc cancel"
	}
	if r.busy {
		keys += " | " + r.theme.Accent.Render(strings.TrimSpace(r.spin.View())+" "+firstNonEmptyStr(r.busyLabel, "Loading..."))
	}
	if r.statusFlash != "" {
		keys += " | " + r.statusFlash
	}
	keys = trimForWidth(keys, max(1, r.cols-1))
	return r.theme.Status.Width(max(1, r.cols)).Render(keys)
}

func (r *Root) renderNotifications() string {
	if len(r.notes) == 0 {
		return ""
	}
	width := min(48, max(20, r.cols/3))
	var lines []string
	for _, n := range r.notes {
		icon, style := "i", r.theme.Info
		switch n.Kind {
		case NotifyWarning:
			icon, style = "!", r.theme.Warning
		case NotifyError:
			icon, style = "x", r.theme.Error
		}
		wrapped := strings.Split(ansi.Wordwrap(n.Text, width-4, " -"), "\n")
		for i, w := range wrapped {
			prefix := "  "
			if i == 0 {
				prefix = icon + " "
			}
			lines = append(lines, style.Render(prefix+w))
		}
	}
	return r.drawPanel("", lines, width, len(lines)+2)
}

func (r *Root) renderDialog() string {
	d := r.dialog
	w := min(max(40, r.cols-16), min(84, r.cols))
	lines := append([]string(nil), d.lines...)
	if len(d.Actions) > 0 {
		lines = append(lines, "")
		for i, a := range d.Actions {
			prefix := "  "
			if i == d.index {
				prefix = "> "
			}
			lines = append(lines, fmt.Sprintf("%s%d. %s", prefix, i+1, a.Label))
		}
	}
	lines = append(lines, "", "enter: choose  esc: close")
	h := min(len(lines)+2, max(6, r.rows-2))
	return r.drawPanel(d.Title, lines, w, h)
}

// dialogBody renders the body once when the dialog opens.
func (r *Root) dialogBody(d Dialog) []string {
	body := strings.TrimSpace(d.Body)
	if body == "" {
		return nil
	}
	if d.Markdown && r.markdown != nil {
		if rendered, err := r.markdown.Render(body); err == nil {
			return strings.Split(strings.Trim(ansi.Strip(rendered), "\n"), "\n")
		}
	}
	return strings.Split(ansi.Wordwrap(body, 76, " -"), "\n")
}

func (r *Root) drawPanel(title string, lines []string, width, height int) string {
	width = max(4, width)
	height = max(3, height)
	innerW := width - 2
	innerH := height - 2

	h := "─"
	v := "│"
	tl := "┌"
	tr := "┐"
	bl := "└"
	br := "┘"
	if r.ascii {
		h = "-"
		v = "|"
		tl, tr, bl, br = "+", "+", "+", "+"
	}

	top := tl + strings.Repeat(h, innerW) + tr
	if title != "" && innerW > 2 {
		t := " " + title + " "
		runes := []rune(top)
		for i, ch := range []rune(t) {
			pos := 1 + i
			if pos >= len(runes)-1 {
				break
			}
			runes[pos] = ch
		}
		top = string(runes)
	}

	out := make([]string, 0, height)
	out = append(out, r.theme.PanelBorder.Render(top))
	for row := 0; row < innerH; row++ {
		line := ""
		if row < len(lines) {
			line = lines[row]
		}
		out = append(out, r.theme.PanelBorder.Render(v)+r.theme.PanelBody.Render(padStyled(line, innerW))+r.theme.PanelBorder.Render(v))
	}
	out = append(out, r.theme.PanelBorder.Render(bl+strings.Repeat(h, innerW)+br))
	return strings.Join(out, "\n")
}

func difficultyLabel(d int) string {
	switch d {
	case 1:
		return "easy"
	case 2:
		return "normal"
	case 3:
		return "expert"
	default:
		return fmt.Sprintf("difficulty %d", d)
	}
}

func firstNonEmptyStr(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func wrapIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	if i < 0 {
		i = n - 1
	}
	if i >= n {
		i = 0
	}
	return i
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// padStyled pads or cuts s to exactly width visible cells, keeping styles.
func padStyled(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\t", "    ")
	if ansi.StringWidth(s) > width {
		s = ansi.Truncate(s, width, "")
	}
	if pad := width - ansi.StringWidth(s); pad > 0 {
		s += strings.Repeat(" ", pad)
	}
	return s
}

func padRune(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(strings.ReplaceAll(s, "\t", "    "))
	if len(r) > width {
		r = r[:width]
	}
	if len(r) < width {
		r = append(r, []rune(strings.Repeat(" ", width-len(r)))...)
	}
	return string(r)
}

func composeOverlay(base, overlay string, cols, rows int) string {
	lines := strings.Split(strings.TrimRight(ansi.Strip(overlay), "\n"), "\n")
	ow := 1
	for _, line := range lines {
		ow = max(ow, len([]rune(line)))
	}
	oh := min(len(lines), rows)
	return composeOverlayAt(base, overlay, cols, rows, (rows-oh)/2, max(0, (cols-min(ow, cols))/2))
}

// composeOverlayAt paints overlay over base at the given cell. Both are
// flattened to plain text.
func composeOverlayAt(base, overlay string, cols, rows, startRow, startCol int) string {
	if cols <= 0 || rows <= 0 {
		return base
	}
	baseLines := strings.Split(ansi.Strip(base), "\n")
	for len(baseLines) < rows {
		baseLines = append(baseLines, "")
	}
	for i := 0; i < rows; i++ {
		baseLines[i] = padRune(baseLines[i], cols)
	}

	overlayLines := strings.Split(strings.TrimRight(ansi.Strip(overlay), "\n"), "\n")
	ow := 1
	for _, line := range overlayLines {
		ow = max(ow, len([]rune(line)))
	}
	ow = min(ow, cols)
	startRow = max(0, startRow)
	startCol = max(0, startCol)

	for i, line := range overlayLines {
		row := startRow + i
		if row >= rows {
			break
		}
		dst := []rune(baseLines[row])
		src := []rune(line)
		if len(src) > ow {
			src = src[:ow]
		}
		for j := 0; j < ow && startCol+j < len(dst); j++ {
			dst[startCol+j] = ' '
		}
		for j := 0; j < len(src) && startCol+j < len(dst); j++ {
			dst[startCol+j] = src[j]
		}
		baseLines[row] = string(dst)
	}
	return strings.Join(baseLines[:rows], "\n")
}

func trimForWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(strings.ReplaceAll(ansi.Strip(s), "\n", " "))
	if len(r) <= width {
		return string(r)
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
