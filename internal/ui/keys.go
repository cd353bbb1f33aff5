package ui

import (
	"fmt"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

var quitKey = key.NewBinding(key.WithKeys("ctrl+q", "ctrl+c"))

// map panel inner origin on screen: header line plus the top border
const (
	mapOriginX = 1
	mapOriginY = 2
)

func (r *Root) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	r.recordInputEvent(fmt.Sprintf("key:%v mod:%v text:%q", msg.Code, msg.Mod, msg.Text))

	if key.Matches(msg, quitKey) {
		r.dispatchController(func(c Controller) { c.OnQuit() })
		return r, nil
	}
	if r.dialog != nil && r.handleDialogKey(msg) {
		return r, nil
	}
	if r.dialog == nil && r.editArea != nil {
		r.handleEditAreaKey(msg)
		return r, nil
	}
	if r.dialog == nil && r.screen == ScreenPlaying && r.handleMapKey(msg) {
		return r, nil
	}
	for _, hk := range r.hotkeys {
		if key.Matches(msg, hk.binding) {
			r.statusFlash = ""
			r.run(hk.handler)
			return r, nil
		}
	}
	return r, nil
}

// handleDialogKey reports whether the dialog consumed the key. Keys it does
// not use fall through to the hotkeys so dispositions work from the done
// dialog.
func (r *Root) handleDialogKey(msg tea.KeyPressMsg) bool {
	d := r.dialog
	n := len(d.Actions)
	switch msg.Code {
	case tea.KeyUp, tea.KeyLeft:
		d.index = wrapIndex(d.index-1, n)
		return true
	case tea.KeyDown, tea.KeyRight:
		d.index = wrapIndex(d.index+1, n)
		return true
	case tea.KeyTab:
		if msg.Mod&tea.ModShift != 0 {
			d.index = wrapIndex(d.index-1, n)
		} else {
			d.index = wrapIndex(d.index+1, n)
		}
		return true
	case tea.KeyEnter:
		r.dialog = nil
		if n > 0 {
			r.run(d.Actions[d.index].Handler)
		}
		return true
	case tea.KeyEsc:
		r.dialog = nil
		r.run(d.OnDismiss)
		return true
	}
	if msg.Mod == 0 && msg.Code >= '1' && msg.Code <= '9' {
		i := int(msg.Code - '1')
		if i < n {
			r.dialog = nil
			r.run(d.Actions[i].Handler)
			return true
		}
	}
	return false
}

func (r *Root) handleEditAreaKey(msg tea.KeyPressMsg) {
	step := 1
	if msg.Mod&tea.ModShift != 0 {
		step = 5
	}
	switch msg.Code {
	case tea.KeyUp:
		r.moveCursor(0, -step)
		return
	case tea.KeyDown:
		r.moveCursor(0, step)
		return
	case tea.KeyLeft:
		r.moveCursor(-step, 0)
		return
	case tea.KeyRight:
		r.moveCursor(step, 0)
		return
	case tea.KeyEnter, ' ':
		p := r.cursorPoint()
		r.dispatchController(func(c Controller) { c.OnEditAreaPoint(p) })
		return
	case tea.KeyEsc:
		r.dispatchController(func(c Controller) { c.OnEditAreaCancel() })
		return
	}
	switch msg.Text {
	case "+", "=":
		r.dispatchController(func(c Controller) { c.OnEditAreaRadius(1) })
	case "-", "_":
		r.dispatchController(func(c Controller) { c.OnEditAreaRadius(-1) })
	case "s", "S":
		r.dispatchController(func(c Controller) { c.OnEditAreaConfirm() })
	case "[":
		r.setViewport(r.Viewport().ZoomBy(-1))
	case "]":
		r.setViewport(r.Viewport().ZoomBy(1))
	}
}

// moveCursor keeps the crosshair inside the map and pans once it reaches
// an edge.
func (r *Root) moveCursor(dc, dr int) {
	vp := r.Viewport()
	col, row := r.cursorCol+dc, r.cursorRow+dr
	pc, pr := 0, 0
	if col < 0 {
		pc, col = col, 0
	} else if col >= vp.Cols {
		pc, col = col-vp.Cols+1, vp.Cols-1
	}
	if row < 0 {
		pr, row = row, 0
	} else if row >= vp.Rows {
		pr, row = row-vp.Rows+1, vp.Rows-1
	}
	r.cursorCol, r.cursorRow = col, row
	if pc != 0 || pr != 0 {
		r.setViewport(vp.Pan(pc, pr))
	}
}

func (r *Root) handleMapKey(msg tea.KeyPressMsg) bool {
	vp := r.Viewport()
	dc := max(1, vp.Cols/8)
	dr := max(1, vp.Rows/8)
	switch msg.Code {
	case tea.KeyUp:
		r.setViewport(vp.Pan(0, -dr))
		return true
	case tea.KeyDown:
		r.setViewport(vp.Pan(0, dr))
		return true
	case tea.KeyLeft:
		r.setViewport(vp.Pan(-dc, 0))
		return true
	case tea.KeyRight:
		r.setViewport(vp.Pan(dc, 0))
		return true
	}
	switch msg.Text {
	case "+", "=":
		r.setViewport(vp.ZoomBy(1))
		return true
	case "-", "_":
		r.setViewport(vp.ZoomBy(-1))
		return true
	}
	return false
}

func (r *Root) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	mouse := msg.Mouse()
	r.recordInputEvent(fmt.Sprintf("mouse_click:%d,%d button:%v", mouse.X, mouse.Y, mouse.Button))
	if r.editArea == nil || r.dialog != nil || mouse.Button != tea.MouseLeft {
		return r, nil
	}
	vp := r.Viewport()
	col, row := mouse.X-mapOriginX, mouse.Y-mapOriginY
	if col < 0 || row < 0 || col >= vp.Cols || row >= vp.Rows {
		return r, nil
	}
	r.cursorCol, r.cursorRow = col, row
	p := vp.Unproject(col, row)
	r.dispatchController(func(c Controller) { c.OnEditAreaPoint(p) })
	return r, nil
}
