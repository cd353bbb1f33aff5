package app

import (
	"context"

	"mrtui/internal/editor"
	"mrtui/internal/geo"
	"mrtui/internal/remote"
	"mrtui/internal/ui"
)

// OpenInExternalEditor loads the visible map area and the task's features
// into JOSM or iD, then asks the user how it went once ConfirmDelay passes.
func (a *App) OpenInExternalEditor(kind editor.Kind) {
	vp := a.view.Viewport()
	if vp.Zoom < MinEditZoom {
		a.notify(ui.NotifyWarning, msgZoomIn)
		return
	}

	a.mu.Lock()
	task := a.s.task
	var ch remote.Challenge
	if a.s.challenge != nil {
		ch = *a.s.challenge
	}
	a.mu.Unlock()
	if task == nil {
		a.view.FlashStatus(msgNoTask)
		return
	}
	if kind == editor.KindDefault || kind == "" {
		kind = normalizeEditor(a.cfg.Editor)
	}
	sel := geo.Selection(task.Features)

	switch kind {
	case editor.KindJOSM:
		uri := editor.JOSMURI(a.cfg.JOSMURL, vp.Bounds(), sel)
		a.spawn(func(ctx context.Context) {
			a.view.SetBusy(true, "Talking to JOSM")
			err := a.josm.Load(ctx, uri)
			a.view.SetBusy(false, "")
			if err != nil {
				a.logger.Error("editor.josm_failed", map[string]any{"error": err, "uri": uri})
				a.notify(ui.NotifyError, editor.RemoteControlHint)
				return
			}
			a.beginEditing(ctx, ch, task.ID, kind)
		})
	case editor.KindID:
		uri := editor.IDURI(a.cfg.IDURL, vp.Zoom, vp.Center, sel)
		if err := a.browser.Open(uri); err != nil {
			a.logger.Warn("editor.browser_failed", map[string]any{"error": err})
			if cerr := a.clipboard.Copy(uri); cerr != nil {
				a.logger.Error("editor.clipboard_failed", map[string]any{"error": cerr})
				a.notify(ui.NotifyError, "Could not open a browser. Open this link yourself: "+uri)
				return
			}
			a.notify(ui.NotifyWarning, "Could not open a browser. The iD link is on your clipboard.")
		}
		a.view.ShowNotification(ui.Notification{Kind: ui.NotifyInfo, Text: msgIDLoading, Sticky: true})
		a.spawn(func(ctx context.Context) {
			a.beginEditing(ctx, ch, task.ID, kind)
		})
	}
}

// beginEditing records that the task is being worked on and schedules the
// done dialog. Nothing happens when the task changed in the meantime.
func (a *App) beginEditing(ctx context.Context, ch remote.Challenge, taskID string, kind editor.Kind) {
	a.mu.Lock()
	if a.s.task == nil || a.s.task.ID != taskID {
		a.mu.Unlock()
		return
	}
	task := *a.s.task
	gen := a.s.gen
	a.s.state = StateEditing
	a.s.editor = kind
	a.scheduleLocked(ConfirmDelay, a.awaitConfirmation)
	a.mu.Unlock()

	a.logger.Info("editor.opened", map[string]any{"editor": string(kind), "challenge": ch.Slug, "task": taskID})
	a.publish()
	a.report(ctx, gen, ch, task, remote.ActionEditing, string(kind))
}

func (a *App) awaitConfirmation() {
	a.mu.Lock()
	if a.s.state != StateEditing || a.s.challenge == nil {
		a.mu.Unlock()
		return
	}
	a.s.state = StateAwaitingConfirmation
	done := a.s.challenge.DoneDialog.Resolved()
	a.mu.Unlock()

	a.publish()
	actions := make([]ui.DialogAction, 0, len(done.Buttons))
	for _, act := range done.Buttons {
		actions = append(actions, ui.DialogAction{Label: act.Label(), Handler: func() { a.Advance(act) }})
	}
	a.view.ShowDialog(ui.Dialog{
		ID:      "done",
		Title:   "How did it go?",
		Body:    done.Text,
		Actions: actions,
		OnDismiss: func() {
			a.mu.Lock()
			if a.s.state == StateAwaitingConfirmation {
				a.s.state = StateTaskPresented
			}
			a.mu.Unlock()
			a.publish()
		},
	})
}
