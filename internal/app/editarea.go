package app

import (
	"context"
	"fmt"

	"mrtui/internal/geo"
	"mrtui/internal/remote"
	"mrtui/internal/ui"

	"github.com/dustin/go-humanize"
	"github.com/paulmach/orb"
)

// PickEditArea puts the map into circle selection. Tasks are then biased
// towards the confirmed circle.
func (a *App) PickEditArea() {
	a.mu.Lock()
	if a.s.picking {
		a.mu.Unlock()
		return
	}
	a.s.picking = true
	a.s.pick = nil
	a.mu.Unlock()

	a.logger.Info("editarea.pick.begin", nil)
	a.view.CloseDialog()
	a.view.DrawFeatures(nil)
	a.view.PromptEditAreaSelection(ui.EditAreaPrompt{Text: msgEditAreaPick})
}

func (a *App) SetEditAreaCenter(p orb.Point) {
	zoom := a.view.Viewport().Zoom
	a.mu.Lock()
	if !a.s.picking {
		a.mu.Unlock()
		return
	}
	radius := geo.DefaultRadius(zoom)
	if a.s.pick != nil {
		radius = a.s.pick.Radius
	}
	c := geo.Circle{Center: p, Radius: radius}
	a.s.pick = &c
	a.mu.Unlock()

	a.view.PromptEditAreaSelection(ui.EditAreaPrompt{Text: areaPrompt(c), Circle: &c})
}

// AdjustEditAreaRadius grows (dir > 0) or shrinks the circle by a step that
// depends on the map zoom.
func (a *App) AdjustEditAreaRadius(dir int) {
	zoom := a.view.Viewport().Zoom
	a.mu.Lock()
	if !a.s.picking {
		a.mu.Unlock()
		return
	}
	if a.s.pick == nil {
		a.mu.Unlock()
		a.view.FlashStatus("Pick a center first")
		return
	}
	c := *a.s.pick
	c.Radius = geo.AdjustRadius(c.Radius, dir, zoom)
	a.s.pick = &c
	a.mu.Unlock()

	a.view.PromptEditAreaSelection(ui.EditAreaPrompt{Text: areaPrompt(c), Circle: &c})
}

// ConfirmEditArea saves the picked circle to the user's settings, or clears
// the stored area when no center was picked.
func (a *App) ConfirmEditArea() {
	a.mu.Lock()
	if !a.s.picking {
		a.mu.Unlock()
		return
	}
	a.s.picking = false
	pick := a.s.pick
	a.s.pick = nil
	difficulty := a.s.difficulty
	a.mu.Unlock()

	a.view.EndEditAreaSelection()
	a.restoreTask()

	a.spawn(func(ctx context.Context) {
		settings := remote.Settings{Difficulty: difficulty}
		if pick != nil {
			settings.EditArea = &remote.EditArea{Lon: pick.Center.Lon(), Lat: pick.Center.Lat(), Radius: pick.Radius}
		}
		if err := a.remote.UpdateMe(ctx, settings); err != nil {
			a.fail("editarea.save", err)
			return
		}

		a.mu.Lock()
		if pick != nil {
			n := pick.Near()
			a.s.near = &n
			a.s.editArea = pick
		} else {
			a.s.near = nil
			a.s.editArea = nil
		}
		a.mu.Unlock()

		if pick != nil {
			a.logger.Info("editarea.saved", map[string]any{"lon": pick.Center.Lon(), "lat": pick.Center.Lat(), "radius": pick.Radius})
			a.notify(ui.NotifyInfo, fmt.Sprintf(msgEditAreaSaved, formatRadius(pick.Radius)))
		} else {
			a.logger.Info("editarea.cleared", nil)
			a.notify(ui.NotifyInfo, msgEditAreaClear)
		}
		a.publish()
	})
}

func (a *App) CancelEditArea() {
	a.mu.Lock()
	if !a.s.picking {
		a.mu.Unlock()
		return
	}
	a.s.picking = false
	a.s.pick = nil
	a.mu.Unlock()

	a.view.EndEditAreaSelection()
	a.restoreTask()
}

// restoreTask redraws the current task after the map was used for
// something else.
func (a *App) restoreTask() {
	a.mu.Lock()
	var features []geo.Feature
	if a.s.task != nil {
		features = a.s.task.Features
	}
	a.mu.Unlock()
	a.view.DrawFeatures(features)
	if len(features) > 0 {
		a.view.FitToFeatures()
	}
}

func (a *App) OnEditAreaPoint(p orb.Point) { a.SetEditAreaCenter(p) }
func (a *App) OnEditAreaRadius(dir int)    { a.AdjustEditAreaRadius(dir) }
func (a *App) OnEditAreaConfirm()          { a.ConfirmEditArea() }
func (a *App) OnEditAreaCancel()           { a.CancelEditArea() }

func areaPrompt(c geo.Circle) string {
	return fmt.Sprintf("Radius %s. +/- to resize, enter to move, s to save, esc to cancel.", formatRadius(c.Radius))
}

func describeArea(c geo.Circle) string {
	return fmt.Sprintf("%s around %.4f, %.4f", formatRadius(c.Radius), c.Center.Lat(), c.Center.Lon())
}

func formatRadius(metres float64) string {
	return humanize.SIWithDigits(metres, 1, "m")
}
