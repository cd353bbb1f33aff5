package app

import (
	"context"
	"fmt"
	"math"

	"mrtui/internal/geo"
	"mrtui/internal/remote"
	"mrtui/internal/state"
	"mrtui/internal/ui"

	"github.com/dustin/go-humanize"
)

// SignIn checks the session with the server and starts play, or shows the
// welcome dialog when the user is not signed in.
func (a *App) SignIn() {
	a.spawn(a.signIn)
}

func (a *App) signIn(ctx context.Context) {
	a.view.SetBusy(true, "Signing in")
	user, err := a.remote.Me(ctx)
	a.view.SetBusy(false, "")
	if err != nil {
		a.logger.Warn("session.signin_failed", map[string]any{"error": err, "kind": remote.Classify(err).String()})
		a.mu.Lock()
		a.s.state = StateUnauthenticated
		a.mu.Unlock()
		if remote.Classify(err) != remote.KindUnauthorized {
			a.notify(ui.NotifyWarning, fmt.Sprintf("Could not reach %s.", a.cfg.Server))
		}
		a.showWelcome()
		return
	}

	a.mu.Lock()
	a.s.state = StateSelectingChallenge
	a.s.user = user
	if a.cfg.Difficulty == 0 && user.Settings.Difficulty > 0 {
		a.s.difficulty = user.Settings.Difficulty
	}
	if ea := user.Settings.EditArea; ea != nil && ea.Radius > 0 {
		c := ea.Circle()
		n := c.Near()
		a.s.editArea = &c
		a.s.near = &n
	}
	a.mu.Unlock()

	a.logger.Info("session.signed_in", map[string]any{"user": user.DisplayName, "osm_id": user.OSMID})
	a.view.CloseDialog()
	a.view.SetScreen(ui.ScreenPlaying)
	a.publish()

	if a.cfg.Link != "" && a.ParseDeepLink(a.cfg.Link) {
		return
	}
	a.selectChallenge(ctx, "", true, fetchQuery{assign: true})
}

// SelectChallenge loads slug, or the remembered or a server-picked
// challenge when slug is empty, then fetches its next task.
func (a *App) SelectChallenge(slug string) {
	a.spawn(func(ctx context.Context) {
		a.selectChallenge(ctx, slug, slug == "", fetchQuery{assign: true})
	})
}

func (a *App) selectChallenge(ctx context.Context, slug string, intro bool, q fetchQuery) {
	// A user-chosen challenge supersedes whatever is in flight, and next
	// task requests wait until it is in place.
	a.mu.Lock()
	a.s.gen++
	gen := a.s.gen
	a.s.fetching = true
	a.cancelTimersLocked()
	difficulty, near := a.s.difficulty, a.s.near
	a.mu.Unlock()
	defer a.finishFetch(gen)

	a.view.SetBusy(true, "Loading challenge")
	ch, err := a.loadChallenge(ctx, slug, difficulty, near)
	if !a.current(gen) {
		a.logger.Info("challenge.select.stale", map[string]any{"slug": slug})
		return
	}
	if err != nil {
		a.fail("challenge.select", err)
		return
	}

	a.mu.Lock()
	a.s.challenge = &ch
	a.s.task = nil
	a.s.stats = remote.Stats{}
	a.s.location = ""
	a.s.state = StateSelectingChallenge
	a.mu.Unlock()

	if err := a.store.RememberChallenge(ctx, ch.Slug); err != nil {
		a.logger.Warn("state.remember_failed", map[string]any{"error": err, "challenge": ch.Slug})
	}
	a.logger.Info("challenge.selected", map[string]any{"challenge": ch.Slug, "difficulty": ch.Difficulty})

	if !a.refreshStats(ctx, gen) {
		return
	}
	a.publish()
	a.view.DrawFeatures(nil)
	if intro {
		a.showIntro(ch)
	}
	a.fetchTask(ctx, gen, q)
}

func (a *App) loadChallenge(ctx context.Context, slug string, difficulty int, near *geo.Near) (remote.Challenge, error) {
	if slug != "" {
		return a.remote.Challenge(ctx, slug)
	}
	remembered, err := a.store.RememberedChallenge(ctx)
	if err != nil {
		a.logger.Warn("state.remembered_failed", map[string]any{"error": err})
	}
	if remembered != "" {
		ch, err := a.remote.Challenge(ctx, remembered)
		switch remote.Classify(err) {
		case remote.KindUnknown:
			if err == nil && ch.Active {
				return ch, nil
			}
		case remote.KindComplete, remote.KindDomain:
		default:
			return remote.Challenge{}, err
		}
		// the remembered challenge is gone or finished
		a.logger.Info("challenge.remembered_dropped", map[string]any{"challenge": remembered})
		if err := a.store.ForgetChallenge(ctx); err != nil {
			a.logger.Warn("state.forget_failed", map[string]any{"error": err})
		}
	}
	return a.remote.PickChallenge(ctx, remote.ChallengeQuery{Difficulty: difficulty, Near: near})
}

// refreshStats reloads the challenge's task counts. It reports false when
// the session moved on, including to ChallengeComplete.
func (a *App) refreshStats(ctx context.Context, gen uint64) bool {
	a.mu.Lock()
	ch := a.s.challenge
	a.mu.Unlock()
	if ch == nil {
		return true
	}
	st, err := a.remote.Stats(ctx, ch.Slug)
	if !a.current(gen) {
		return false
	}
	if err != nil {
		if remote.Classify(err) == remote.KindComplete {
			a.logger.Info("challenge.stats.complete", map[string]any{"challenge": ch.Slug})
			a.enterComplete()
			return false
		}
		a.logger.Warn("challenge.stats_failed", map[string]any{"error": err, "challenge": ch.Slug})
		a.view.FlashStatus("Stats unavailable")
		return true
	}
	a.mu.Lock()
	a.s.stats = st
	a.mu.Unlock()
	return true
}

// fetchTask replaces the current task on behalf of the operation that took
// generation gen. Geometries are loaded before anything is drawn so the map
// never shows a task without its features.
func (a *App) fetchTask(ctx context.Context, gen uint64, q fetchQuery) {
	a.mu.Lock()
	ch := a.s.challenge
	if ch == nil || a.s.gen != gen {
		a.mu.Unlock()
		return
	}
	a.s.fetching = true
	a.s.task = nil
	a.s.location = ""
	a.cancelTimersLocked()
	near := a.s.near
	if near == nil && ch.HasBias() {
		near = &geo.Near{Lon: ch.Lon, Lat: ch.Lat}
	}
	a.mu.Unlock()

	a.view.SetBusy(true, "Loading task")
	defer a.finishFetch(gen)

	var (
		task remote.Task
		err  error
	)
	if q.taskID != "" {
		task, err = a.remote.TaskByID(ctx, ch.Slug, q.taskID)
	} else {
		task, err = a.remote.Task(ctx, ch.Slug, remote.TaskQuery{Near: near, Assign: q.assign})
	}
	if !a.current(gen) {
		return
	}
	if err != nil {
		a.clearTask()
		a.fail("task.fetch", err)
		return
	}

	features, err := a.remote.Geometries(ctx, ch.Slug, task.ID)
	if !a.current(gen) {
		return
	}
	if err != nil {
		a.clearTask()
		a.fail("task.geometries", err)
		return
	}
	task.Features = features
	if task.Instruction == "" {
		task.Instruction = ch.Instruction
	}

	a.mu.Lock()
	a.s.task = &task
	a.s.state = StateTaskPresented
	if task.Status.Terminal() {
		a.scheduleLocked(TerminalWarningDelay, func() {
			a.notify(ui.NotifyWarning, msgTerminalTask)
		})
	}
	a.mu.Unlock()

	a.logger.Info("task.fetch.done", map[string]any{"challenge": ch.Slug, "task": task.ID, "status": string(task.Status), "features": len(features)})
	a.view.DrawFeatures(features)
	a.view.FitToFeatures()
	a.publish()

	if err := a.store.TouchChallenge(ctx, state.ChallengeVisit{Challenge: ch.Slug, Title: ch.Title, At: a.now()}); err != nil {
		a.logger.Warn("state.touch_failed", map[string]any{"error": err})
	}
	if !a.refreshStats(ctx, gen) {
		return
	}
	a.publish()
	a.locate(ctx, gen, features)
}

// finishFetch releases the loading guard taken for gen unless a newer
// operation owns it by now.
func (a *App) finishFetch(gen uint64) {
	a.mu.Lock()
	still := a.s.gen == gen
	if still {
		a.s.fetching = false
	}
	a.mu.Unlock()
	if still {
		a.view.SetBusy(false, "")
	}
}

// clearTask takes a task that is no longer current off the screen.
func (a *App) clearTask() {
	a.view.DrawFeatures(nil)
	a.publish()
}

// locate reverse geocodes the task area. Failures are only logged.
func (a *App) locate(ctx context.Context, gen uint64, features []geo.Feature) {
	if a.geocoder == nil {
		return
	}
	b, ok := geo.FeaturesBound(features)
	if !ok {
		return
	}
	place, err := a.geocoder.ReverseGeocode(ctx, b.Center())
	if err != nil {
		a.logger.Warn("geocode.failed", map[string]any{"error": err})
		return
	}
	if !a.current(gen) {
		return
	}
	text := place.String()
	a.mu.Lock()
	a.s.location = text
	a.mu.Unlock()
	a.notify(ui.NotifyInfo, text)
	a.publish()
}

// Advance reports action for the current task, when given, and moves on to
// the next one. The report always goes out before the next fetch starts;
// a challenge switch made meanwhile wins and the fetch is dropped.
func (a *App) Advance(action remote.Action) {
	a.mu.Lock()
	if a.s.fetching {
		a.mu.Unlock()
		a.view.FlashStatus(msgStillLoading)
		return
	}
	if a.s.challenge == nil {
		a.mu.Unlock()
		a.SelectChallenge("")
		return
	}
	a.s.gen++
	gen := a.s.gen
	a.s.fetching = true
	a.cancelTimersLocked()
	task := a.s.task
	ch := *a.s.challenge
	kind := a.s.editor
	a.mu.Unlock()

	a.view.CloseDialog()
	a.spawn(func(ctx context.Context) {
		defer a.finishFetch(gen)
		if action != "" && task != nil {
			if !a.report(ctx, gen, ch, *task, action, string(kind)) {
				return
			}
		}
		if !a.current(gen) {
			a.logger.Info("task.advance.superseded", map[string]any{"challenge": ch.Slug})
			return
		}
		a.fetchTask(ctx, gen, fetchQuery{assign: true})
	})
}

// report sends a disposition and journals it locally. A failed report is
// shown but does not hold up the session, except when the server says the
// challenge is done: then the session moves to ChallengeComplete, if gen is
// still current, and report returns false.
func (a *App) report(ctx context.Context, gen uint64, ch remote.Challenge, task remote.Task, action remote.Action, editorName string) bool {
	err := a.remote.UpdateTask(ctx, ch.Slug, task.ID, remote.TaskUpdate{Action: action, Editor: editorName})
	if err != nil {
		fields := map[string]any{"error": err, "challenge": ch.Slug, "task": task.ID, "action": string(action)}
		if remote.Classify(err) == remote.KindComplete {
			a.logger.Info("task.report.complete", fields)
			if a.current(gen) {
				a.enterComplete()
			}
			return false
		}
		a.logger.Error("task.report_failed", fields)
		a.notify(ui.NotifyWarning, fmt.Sprintf("Could not save %q for task %s.", action.Label(), task.ID))
		return true
	}
	a.logger.Info("task.report.done", map[string]any{"challenge": ch.Slug, "task": task.ID, "action": string(action)})
	if action == remote.ActionEditing {
		return true
	}
	rec := state.ActionRecord{
		SessionID: a.sessionID,
		Challenge: ch.Slug,
		TaskID:    task.ID,
		Action:    string(action),
		Editor:    editorName,
		At:        a.now(),
	}
	if err := a.store.RecordAction(ctx, rec); err != nil {
		a.logger.Warn("state.record_failed", map[string]any{"error": err})
	}
	return true
}

func (a *App) enterComplete() {
	a.mu.Lock()
	a.s.gen++
	a.s.fetching = false
	a.cancelTimersLocked()
	a.s.task = nil
	a.s.state = StateChallengeComplete
	slug := ""
	if a.s.challenge != nil {
		slug = a.s.challenge.Slug
	}
	a.mu.Unlock()

	a.logger.Info("challenge.complete", map[string]any{"challenge": slug})
	if err := a.store.ForgetChallenge(a.ctx); err != nil {
		a.logger.Warn("state.forget_failed", map[string]any{"error": err})
	}
	a.view.SetBusy(false, "")
	a.view.DrawFeatures(nil)
	a.publish()
	a.view.ShowDialog(ui.Dialog{
		ID:    "complete",
		Title: "Challenge complete",
		Body:  msgComplete,
		Actions: []ui.DialogAction{
			{Label: "Pick another challenge", Handler: a.ListChallenges},
			{Label: "Surprise me", Handler: func() { a.SelectChallenge("") }},
		},
	})
}

// statsLabel words the remaining task count the way the header shows it.
func statsLabel(st remote.Stats) string {
	switch {
	case st.Available > 10:
		n := int64(math.Round(float64(st.Available)/10) * 10)
		return fmt.Sprintf("about %s of %s tasks left", humanize.Comma(n), humanize.Comma(int64(st.Total)))
	case st.Available > 0:
		return "only a few tasks left"
	default:
		return ""
	}
}
