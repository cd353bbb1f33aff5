package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"mrtui/internal/editor"
	"mrtui/internal/geo"
	"mrtui/internal/remote"
	"mrtui/internal/ui"

	"github.com/paulmach/orb"
)

func roadsRemote() *fakeRemote {
	fr := newFakeRemote()
	fr.addChallenge(remote.Challenge{Slug: "roads", Title: "Disconnected roads", Difficulty: 1, Instruction: "Connect the road."},
		remote.Task{ID: "1", Status: remote.StatusCreated},
		remote.Task{ID: "2", Status: remote.StatusCreated, Instruction: "Task specific."},
		remote.Task{ID: "3", Status: remote.StatusCreated},
	)
	return fr
}

func TestSignInPresentsFirstTask(t *testing.T) {
	rig := newRig(t, roadsRemote())
	rig.start(t)

	info := rig.view.lastSession()
	if info.TaskID != "1" || info.Challenge != "Disconnected roads" || info.User != "mapper" {
		t.Fatalf("unexpected session info: %#v", info)
	}
	if info.Instruction != "Connect the road." {
		t.Fatalf("expected challenge instruction fallback, got %q", info.Instruction)
	}
	if info.ShareLink != testServer+"/#t=roads/1" {
		t.Fatalf("unexpected share link %q", info.ShareLink)
	}
	if info.Stats != "about 60 of 100 tasks left" {
		t.Fatalf("unexpected stats label %q", info.Stats)
	}
	if d := rig.view.openDialog(); d == nil || d.ID != "intro" {
		t.Fatalf("expected intro dialog, got %#v", d)
	}
	if len(rig.remote.taskQueries) != 1 || !rig.remote.taskQueries[0].Assign {
		t.Fatalf("expected one assigning task query, got %#v", rig.remote.taskQueries)
	}
	calls := rig.remote.Calls()
	if indexOf(calls, "geometries:roads/1") < indexOf(calls, "task:roads") {
		t.Fatalf("expected geometries after task, got %v", calls)
	}
	slug, err := rig.store.RememberedChallenge(context.Background())
	if err != nil || slug != "roads" {
		t.Fatalf("expected remembered challenge roads, got %q (%v)", slug, err)
	}
}

func TestSignInUnauthorizedShowsWelcome(t *testing.T) {
	fr := roadsRemote()
	fr.meErr = remote.ErrUnauthorized
	rig := newRig(t, fr)

	rig.app.SignIn()
	rig.app.Wait()

	if got := rig.app.State(); got != StateUnauthenticated {
		t.Fatalf("expected unauthenticated, got %s", got)
	}
	d := rig.view.openDialog()
	if d == nil || d.ID != "welcome" {
		t.Fatalf("expected welcome dialog, got %#v", d)
	}
	if fr.called("pick") {
		t.Fatalf("expected no challenge request without a session")
	}
	d.Actions[0].Handler()
	if len(rig.browser.opened) != 1 || rig.browser.opened[0] != testServer+"/signin" {
		t.Fatalf("expected sign in page opened, got %v", rig.browser.opened)
	}
}

func TestTerminalTaskWarnsAfterDelay(t *testing.T) {
	fr := newFakeRemote()
	fr.addChallenge(remote.Challenge{Slug: "done", Title: "Done"}, remote.Task{ID: "9", Status: remote.StatusFixed})
	rig := newRig(t, fr)
	rig.start(t)

	if rig.view.hasNote(ui.NotifyWarning, msgTerminalTask) {
		t.Fatalf("expected no warning before the delay")
	}
	if n := rig.clock.Fire(TerminalWarningDelay); n != 1 {
		t.Fatalf("expected one pending warning, got %d", n)
	}
	if !rig.view.hasNote(ui.NotifyWarning, msgTerminalTask) {
		t.Fatalf("expected terminal task warning")
	}
}

func TestTerminalWarningDroppedWhenTaskChanges(t *testing.T) {
	fr := newFakeRemote()
	fr.addChallenge(remote.Challenge{Slug: "mixed", Title: "Mixed"},
		remote.Task{ID: "1", Status: remote.StatusAlreadyFixed},
		remote.Task{ID: "2", Status: remote.StatusCreated},
	)
	rig := newRig(t, fr)
	rig.start(t)

	rig.app.Advance("")
	rig.app.Wait()
	rig.clock.Fire(TerminalWarningDelay)
	if rig.view.hasNote(ui.NotifyWarning, msgTerminalTask) {
		t.Fatalf("expected warning for the old task to be cancelled")
	}
}

func TestAdvanceReportsBeforeFetching(t *testing.T) {
	rig := newRig(t, roadsRemote())
	rig.start(t)

	rig.app.Advance(remote.ActionFixed)
	rig.app.Wait()

	calls := rig.remote.Calls()
	report := indexOf(calls, "update:roads/1:fixed")
	if report < 0 {
		t.Fatalf("expected fixed report, got %v", calls)
	}
	fetches := 0
	for i, c := range calls {
		if c == "task:roads" {
			fetches++
			if fetches == 2 && i < report {
				t.Fatalf("expected report before the next fetch, got %v", calls)
			}
		}
	}
	if fetches != 2 {
		t.Fatalf("expected exactly one follow-up fetch, got %d", fetches)
	}
	if info := rig.view.lastSession(); info.TaskID != "2" || info.Instruction != "Task specific." {
		t.Fatalf("expected task 2 on screen, got %#v", info)
	}
	sum, err := rig.store.GetSummary(context.Background())
	if err != nil || sum.ByAction["fixed"] != 1 {
		t.Fatalf("expected journaled fixed action, got %#v (%v)", sum, err)
	}
}

func TestAdvanceReportFailureStillFetches(t *testing.T) {
	fr := roadsRemote()
	fr.updateErr = errBoom
	rig := newRig(t, fr)
	rig.start(t)

	rig.app.Advance(remote.ActionSkipped)
	rig.app.Wait()
	if info := rig.view.lastSession(); info.TaskID != "2" {
		t.Fatalf("expected next task despite failed report, got %#v", info)
	}
	sum, _ := rig.store.GetSummary(context.Background())
	if sum.Actions != 0 {
		t.Fatalf("expected failed report not to be journaled")
	}
}

func TestAdvanceIgnoredWhileFetching(t *testing.T) {
	fr := roadsRemote()
	release := fr.gate("task:roads")
	rig := newRig(t, fr)
	defer release()

	rig.app.SignIn()
	waitFor(t, "task fetch", func() bool { return fr.called("task:roads") })

	rig.app.Advance(remote.ActionFixed)
	if !rig.view.hasFlash(msgStillLoading) {
		t.Fatalf("expected still loading flash")
	}
	release()
	rig.app.Wait()
	if len(fr.updates) != 0 {
		t.Fatalf("expected no report while loading, got %v", fr.updates)
	}
}

func TestChallengeSwitchDuringReportWins(t *testing.T) {
	fr := roadsRemote()
	fr.addChallenge(remote.Challenge{Slug: "bridges", Title: "Bridges"}, remote.Task{ID: "b1"})
	rig := newRig(t, fr)
	rig.start(t)

	releaseReport := fr.gate("update:roads/1:skipped")
	releaseBridges := fr.gate("challenge:bridges")
	defer releaseReport()
	defer releaseBridges()

	rig.app.Advance(remote.ActionSkipped)
	waitFor(t, "skip report", func() bool { return fr.called("update:roads/1:skipped") })
	rig.app.PickChallenge("bridges")
	waitFor(t, "bridges request", func() bool { return fr.called("challenge:bridges") })

	rig.app.Advance(remote.ActionFixed)
	if !rig.view.hasFlash(msgStillLoading) {
		t.Fatalf("expected next task to wait for the challenge switch")
	}

	releaseReport()
	releaseBridges()
	rig.app.Wait()

	if info := rig.view.lastSession(); info.Challenge != "Bridges" || info.TaskID != "b1" {
		t.Fatalf("expected picked challenge to win, got %#v (calls %v)", info, fr.Calls())
	}
	if n := fr.count("task:roads"); n != 1 {
		t.Fatalf("expected no follow-up roads fetch, got %d (calls %v)", n, fr.Calls())
	}
	if fr.called("update:roads/1:fixed") {
		t.Fatalf("expected the second advance to be ignored")
	}
	if got := rig.app.State(); got != StateTaskPresented {
		t.Fatalf("expected task presented, got %s", got)
	}
}

func TestReportChallengeCompleteEndsChallenge(t *testing.T) {
	fr := roadsRemote()
	rig := newRig(t, fr)
	rig.start(t)
	fr.mu.Lock()
	fr.updateErr = remote.ErrChallengeComplete
	fr.mu.Unlock()

	rig.app.Advance(remote.ActionFixed)
	rig.app.Wait()

	if got := rig.app.State(); got != StateChallengeComplete {
		t.Fatalf("expected challenge complete, got %s", got)
	}
	if n := fr.count("task:roads"); n != 1 {
		t.Fatalf("expected no fetch after the challenge ended, got %v", fr.Calls())
	}
	if d := rig.view.openDialog(); d == nil || d.ID != "complete" {
		t.Fatalf("expected complete dialog, got %#v", d)
	}
	rig.view.mu.Lock()
	defer rig.view.mu.Unlock()
	for _, n := range rig.view.notes {
		if strings.HasPrefix(n.Text, "Could not save") {
			t.Fatalf("expected no save warning, got %q", n.Text)
		}
	}
}

func TestEditingReportChallengeCompleteEndsChallenge(t *testing.T) {
	fr := roadsRemote()
	rig := newRig(t, fr)
	rig.start(t)
	fr.mu.Lock()
	fr.updateErr = remote.ErrChallengeComplete
	fr.mu.Unlock()

	rig.app.OpenInExternalEditor(editor.KindJOSM)
	rig.app.Wait()

	if got := rig.app.State(); got != StateChallengeComplete {
		t.Fatalf("expected challenge complete, got %s", got)
	}
	if rig.clock.Fire(ConfirmDelay) != 0 {
		t.Fatalf("expected the done dialog to be cancelled")
	}
}

func TestFailedFetchClearsOldTask(t *testing.T) {
	fr := roadsRemote()
	rig := newRig(t, fr)
	rig.start(t)
	fr.mu.Lock()
	fr.taskErr = &remote.TransportError{Method: "GET", Path: "/api/challenge/roads/task", Err: errBoom}
	fr.mu.Unlock()

	rig.app.Advance("")
	rig.app.Wait()

	if info := rig.view.lastSession(); info.TaskID != "" || info.ShareLink != "" {
		t.Fatalf("expected old task off the header, got %#v", info)
	}
	rig.view.mu.Lock()
	last := rig.view.drawn[len(rig.view.drawn)-1]
	rig.view.mu.Unlock()
	if len(last) != 0 {
		t.Fatalf("expected empty map, got %d features", len(last))
	}
	if !rig.view.hasNote(ui.NotifyWarning, "The MapRoulette server could not be reached. Press n to try again.") {
		t.Fatalf("expected transport warning")
	}

	// the next press retries
	fr.mu.Lock()
	fr.taskErr = nil
	fr.mu.Unlock()
	rig.app.Advance("")
	rig.app.Wait()
	if info := rig.view.lastSession(); info.TaskID != "2" {
		t.Fatalf("expected retry to load task 2, got %#v", info)
	}
}

func TestOpenEditorRequiresZoom(t *testing.T) {
	rig := newRig(t, roadsRemote())
	rig.start(t)
	rig.view.setZoom(MinEditZoom - 1)

	rig.app.OpenInExternalEditor(editor.KindJOSM)
	rig.app.Wait()

	if !rig.view.hasNote(ui.NotifyWarning, msgZoomIn) {
		t.Fatalf("expected zoom in warning")
	}
	if len(rig.josm.uris) != 0 {
		t.Fatalf("expected JOSM not to be contacted")
	}
	if got := rig.app.State(); got != StateTaskPresented {
		t.Fatalf("expected state unchanged, got %s", got)
	}
}

func TestJOSMFailureLeavesStateAlone(t *testing.T) {
	rig := newRig(t, roadsRemote())
	rig.josm.err = editor.ErrRemoteControl
	rig.start(t)

	rig.app.OpenInExternalEditor(editor.KindJOSM)
	rig.app.Wait()

	if !rig.view.hasNote(ui.NotifyError, editor.RemoteControlHint) {
		t.Fatalf("expected remote control hint")
	}
	if got := rig.app.State(); got != StateTaskPresented {
		t.Fatalf("expected task presented, got %s", got)
	}
	if rig.remote.called("update:roads/1:editing") {
		t.Fatalf("expected no editing report")
	}
	if rig.clock.Fire(ConfirmDelay) != 0 {
		t.Fatalf("expected no confirmation scheduled")
	}
}

func TestJOSMEditThenConfirm(t *testing.T) {
	rig := newRig(t, roadsRemote())
	rig.start(t)

	rig.app.OpenInExternalEditor(editor.KindJOSM)
	rig.app.Wait()

	if len(rig.josm.uris) != 1 || !strings.Contains(rig.josm.uris[0], "/load_and_zoom?") || !strings.HasSuffix(rig.josm.uris[0], "select=node5") {
		t.Fatalf("unexpected JOSM request %v", rig.josm.uris)
	}
	if got := rig.app.State(); got != StateEditing {
		t.Fatalf("expected editing, got %s", got)
	}
	if !rig.remote.called("update:roads/1:editing") {
		t.Fatalf("expected editing report, got %v", rig.remote.Calls())
	}

	if rig.clock.Fire(ConfirmDelay) != 1 {
		t.Fatalf("expected confirmation timer")
	}
	if got := rig.app.State(); got != StateAwaitingConfirmation {
		t.Fatalf("expected awaiting confirmation, got %s", got)
	}
	d := rig.view.openDialog()
	if d == nil || d.ID != "done" || len(d.Actions) != 4 || d.Actions[0].Label != "I fixed it!" {
		t.Fatalf("unexpected done dialog %#v", d)
	}

	d.Actions[0].Handler()
	rig.app.Wait()
	if !rig.remote.called("update:roads/1:fixed") {
		t.Fatalf("expected fixed report")
	}
	if got := rig.app.State(); got != StateTaskPresented {
		t.Fatalf("expected next task presented, got %s", got)
	}
}

func TestDoneDialogDismissReturnsToTask(t *testing.T) {
	rig := newRig(t, roadsRemote())
	rig.start(t)
	rig.app.OpenInExternalEditor(editor.KindDefault)
	rig.app.Wait()
	rig.clock.Fire(ConfirmDelay)

	d := rig.view.openDialog()
	if d == nil || d.OnDismiss == nil {
		t.Fatalf("expected dismissable done dialog")
	}
	d.OnDismiss()
	if got := rig.app.State(); got != StateTaskPresented {
		t.Fatalf("expected task presented after dismiss, got %s", got)
	}
}

func TestIDFallsBackToClipboard(t *testing.T) {
	rig := newRig(t, roadsRemote())
	rig.browser.err = errBoom
	rig.start(t)

	rig.app.OpenInExternalEditor(editor.KindID)
	rig.app.Wait()

	if len(rig.clipboard.copied) != 1 || !strings.HasPrefix(rig.clipboard.copied[0], editor.DefaultIDURL) {
		t.Fatalf("expected iD link on clipboard, got %v", rig.clipboard.copied)
	}
	if !strings.Contains(rig.clipboard.copied[0], "id=n5") {
		t.Fatalf("expected selection in iD link, got %q", rig.clipboard.copied[0])
	}
	if got := rig.app.State(); got != StateEditing {
		t.Fatalf("expected editing, got %s", got)
	}
	if !rig.remote.called("update:roads/1:editing") {
		t.Fatalf("expected editing report")
	}
}

func TestStaleChallengeResponseIsDiscarded(t *testing.T) {
	fr := roadsRemote()
	fr.addChallenge(remote.Challenge{Slug: "slow", Title: "Slow"}, remote.Task{ID: "s1"})
	fr.addChallenge(remote.Challenge{Slug: "fast", Title: "Fast"}, remote.Task{ID: "f1"})
	rig := newRig(t, fr)
	rig.start(t)

	release := fr.gate("challenge:slow")
	defer release()
	rig.app.PickChallenge("slow")
	waitFor(t, "slow challenge request", func() bool { return fr.called("challenge:slow") })
	rig.app.PickChallenge("fast")
	waitFor(t, "fast task", func() bool { return rig.view.lastSession().TaskID == "f1" })

	release()
	rig.app.Wait()

	if info := rig.view.lastSession(); info.Challenge != "Fast" || info.TaskID != "f1" {
		t.Fatalf("expected fast challenge to stay, got %#v", info)
	}
	if fr.called("stats:slow") || fr.called("task:slow") {
		t.Fatalf("expected stale challenge to be dropped, got %v", fr.Calls())
	}
}

func TestChallengeCompleteFromStats(t *testing.T) {
	fr := roadsRemote()
	fr.statsErr["roads"] = remote.ErrChallengeComplete
	rig := newRig(t, fr)

	rig.app.SignIn()
	rig.app.Wait()

	if got := rig.app.State(); got != StateChallengeComplete {
		t.Fatalf("expected challenge complete, got %s", got)
	}
	if fr.called("task:roads") {
		t.Fatalf("expected no task fetch for a complete challenge")
	}
	d := rig.view.openDialog()
	if d == nil || d.ID != "complete" || d.Body != msgComplete {
		t.Fatalf("expected complete dialog, got %#v", d)
	}
	if slug, _ := rig.store.RememberedChallenge(context.Background()); slug != "" {
		t.Fatalf("expected remembered challenge to be forgotten, got %q", slug)
	}
}

func TestChallengeCompleteFromTaskFetch(t *testing.T) {
	fr := newFakeRemote()
	fr.addChallenge(remote.Challenge{Slug: "empty", Title: "Empty"})
	rig := newRig(t, fr)

	rig.app.SignIn()
	rig.app.Wait()

	if got := rig.app.State(); got != StateChallengeComplete {
		t.Fatalf("expected challenge complete, got %s", got)
	}
	// the complete dialog offers a way out
	d := rig.view.openDialog()
	if d == nil || d.Actions[0].Label != "Pick another challenge" {
		t.Fatalf("unexpected dialog %#v", d)
	}
}

func TestRememberedChallengeIsPreferred(t *testing.T) {
	fr := roadsRemote()
	fr.addChallenge(remote.Challenge{Slug: "water", Title: "Water"}, remote.Task{ID: "w1"})
	rig := newRig(t, fr)
	if err := rig.store.RememberChallenge(context.Background(), "water"); err != nil {
		t.Fatalf("remember: %v", err)
	}
	rig.start(t)

	if fr.called("pick") {
		t.Fatalf("expected remembered challenge without asking the server")
	}
	if info := rig.view.lastSession(); info.TaskID != "w1" {
		t.Fatalf("expected water task, got %#v", info)
	}
}

func TestTransportFailureWarns(t *testing.T) {
	fr := roadsRemote()
	fr.pickErr = &remote.TransportError{Method: "GET", Path: "/api/challenge", Err: errBoom}
	rig := newRig(t, fr)

	rig.app.SignIn()
	rig.app.Wait()

	if got := rig.app.State(); got != StateSelectingChallenge {
		t.Fatalf("expected state unchanged, got %s", got)
	}
	rig.view.mu.Lock()
	defer rig.view.mu.Unlock()
	if len(rig.view.notes) == 0 || rig.view.notes[len(rig.view.notes)-1].Kind != ui.NotifyWarning {
		t.Fatalf("expected warning notification, got %#v", rig.view.notes)
	}
}

func TestEditAreaConfirmSavesAndBiases(t *testing.T) {
	rig := newRig(t, roadsRemote())
	rig.start(t)

	rig.app.PickEditArea()
	if !rig.view.picking {
		t.Fatalf("expected edit area selection")
	}
	rig.app.AdjustEditAreaRadius(1)
	if !rig.view.hasFlash("Pick a center first") {
		t.Fatalf("expected hint when resizing without a center")
	}

	center := orb.Point{13.4, 52.5}
	rig.app.OnEditAreaPoint(center)
	first := rig.view.lastPrompt()
	if first.Circle == nil || first.Circle.Radius != geo.DefaultRadius(16) {
		t.Fatalf("expected default radius circle, got %#v", first.Circle)
	}
	rig.app.OnEditAreaRadius(1)
	grown := rig.view.lastPrompt()
	if grown.Circle == nil || grown.Circle.Radius <= first.Circle.Radius {
		t.Fatalf("expected radius to grow, got %#v", grown.Circle)
	}

	rig.app.OnEditAreaConfirm()
	rig.app.Wait()
	if rig.view.picking {
		t.Fatalf("expected selection to end")
	}
	if len(rig.remote.settings) != 1 || rig.remote.settings[0].EditArea == nil || rig.remote.settings[0].EditArea.Radius != grown.Circle.Radius {
		t.Fatalf("expected saved edit area, got %#v", rig.remote.settings)
	}

	rig.app.Advance("")
	rig.app.Wait()
	q := rig.remote.taskQueries[len(rig.remote.taskQueries)-1]
	if q.Near == nil || q.Near.Lon != 13.4 || q.Near.Lat != 52.5 {
		t.Fatalf("expected task query biased to the edit area, got %#v", q.Near)
	}
}

func TestEditAreaConfirmWithoutCenterClears(t *testing.T) {
	fr := roadsRemote()
	fr.user.Settings.EditArea = &remote.EditArea{Lon: 1, Lat: 2, Radius: 500}
	rig := newRig(t, fr)
	rig.start(t)
	if q := fr.taskQueries[0]; q.Near == nil || q.Near.Lon != 1 {
		t.Fatalf("expected stored edit area to bias the first task, got %#v", q.Near)
	}

	rig.app.PickEditArea()
	rig.app.ConfirmEditArea()
	rig.app.Wait()

	if len(fr.settings) != 1 || fr.settings[0].EditArea != nil {
		t.Fatalf("expected cleared edit area, got %#v", fr.settings)
	}
	if !rig.view.hasNote(ui.NotifyInfo, msgEditAreaClear) {
		t.Fatalf("expected cleared notification")
	}
}

func TestEditAreaCancelRestoresTask(t *testing.T) {
	rig := newRig(t, roadsRemote())
	rig.start(t)

	rig.app.PickEditArea()
	rig.app.OnEditAreaPoint(orb.Point{0, 0})
	rig.app.OnEditAreaCancel()
	rig.app.Wait()

	if rig.remote.called("me:update") {
		t.Fatalf("expected nothing saved on cancel")
	}
	rig.view.mu.Lock()
	last := rig.view.drawn[len(rig.view.drawn)-1]
	rig.view.mu.Unlock()
	if len(last) != 1 {
		t.Fatalf("expected task features redrawn, got %d", len(last))
	}
}

func TestListChallengesSortsActiveByDifficulty(t *testing.T) {
	fr := newFakeRemote()
	fr.addChallenge(remote.Challenge{Slug: "b", Title: "Bridges", Difficulty: 2})
	fr.addChallenge(remote.Challenge{Slug: "a", Title: "Addresses", Difficulty: 2})
	fr.addChallenge(remote.Challenge{Slug: "z", Title: "Zebra crossings", Difficulty: 1})
	fr.challenges["old"] = remote.Challenge{Slug: "old", Title: "Old", Active: false}
	rig := newRig(t, fr)

	rig.app.ListChallenges()
	rig.app.Wait()

	d := rig.view.openDialog()
	if d == nil || d.ID != "challenges" {
		t.Fatalf("expected challenge dialog, got %#v", d)
	}
	var labels []string
	for _, a := range d.Actions {
		labels = append(labels, a.Label)
	}
	want := []string{"Zebra crossings (easy)", "Addresses (normal)", "Bridges (normal)", "Nevermind"}
	if strings.Join(labels, "|") != strings.Join(want, "|") {
		t.Fatalf("expected %v, got %v", want, labels)
	}
}

func TestCopyShareLink(t *testing.T) {
	rig := newRig(t, roadsRemote())
	rig.app.CopyShareLink()
	if !rig.view.hasFlash(msgNoTask) {
		t.Fatalf("expected no task flash")
	}
	rig.start(t)
	rig.app.CopyShareLink()
	if len(rig.clipboard.copied) != 1 || rig.clipboard.copied[0] != testServer+"/#t=roads/1" {
		t.Fatalf("unexpected clipboard %v", rig.clipboard.copied)
	}
}

func TestOpenStatsSummarizesJournal(t *testing.T) {
	rig := newRig(t, roadsRemote())
	rig.start(t)
	rig.app.Advance(remote.ActionFixed)
	rig.app.Wait()

	rig.app.OpenStats()
	rig.app.Wait()
	d := rig.view.openDialog()
	if d == nil || d.ID != "stats" {
		t.Fatalf("expected stats dialog, got %#v", d)
	}
	if !strings.Contains(d.Body, "You reported 1 tasks") || !strings.Contains(d.Body, "I fixed it!: 1") {
		t.Fatalf("unexpected stats body %q", d.Body)
	}
}

func TestOpenStatsPrefersServerActivity(t *testing.T) {
	fr := roadsRemote()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	fr.userStats = remote.UserStats{Challenges: map[string]remote.ChallengeActivity{
		"roads": {Title: "Disconnected roads", Statuses: map[string]remote.StatusActivity{
			"fixed":   {Count: 3, First: now.Add(-48 * time.Hour), Last: now.Add(-2 * time.Hour)},
			"skipped": {Count: 2, First: now.Add(-24 * time.Hour), Last: now.Add(-24 * time.Hour)},
		}},
		"bridges": {Statuses: map[string]remote.StatusActivity{"falsepositive": {Count: 1}}},
	}}
	rig := newRig(t, fr)

	rig.app.OpenStats()
	rig.app.Wait()
	d := rig.view.openDialog()
	if d == nil || d.ID != "stats" {
		t.Fatalf("expected stats dialog, got %#v", d)
	}
	want := "- bridges: you fixed 1 out of the 1 tasks you looked at.\n" +
		"- Disconnected roads: you fixed 3 out of the 5 tasks you looked at, started 2 days ago, last worked on it 2 hours ago."
	if !strings.HasSuffix(d.Body, want) {
		t.Fatalf("unexpected stats body %q", d.Body)
	}
	if len(d.Actions) != 2 || d.Actions[0].Label != "All challenges" {
		t.Fatalf("unexpected actions %#v", d.Actions)
	}
}

func TestOpenStatsFallsBackToJournalWhenServerFails(t *testing.T) {
	fr := roadsRemote()
	fr.userStatsErr = &remote.TransportError{Method: "GET", Path: "/api/stats/me", Err: errBoom}
	rig := newRig(t, fr)

	rig.app.OpenStats()
	rig.app.Wait()
	d := rig.view.openDialog()
	if d == nil || d.Body != "You have not reported any tasks from this computer yet." {
		t.Fatalf("expected journal fallback, got %#v", d)
	}
}

func TestOpenChallengeStatsListsEveryChallenge(t *testing.T) {
	fr := roadsRemote()
	fr.challengeStats = map[string]remote.ChallengeSummary{
		"roads":   {Title: "Disconnected roads", Statuses: map[string]int{"created": 5, "fixed": 3, "falsepositive": 1, "skipped": 1}},
		"bridges": {Title: "Bridges", Statuses: map[string]int{"validated": 1, "created": 2}},
		"empty":   {Title: "Archived"},
	}
	rig := newRig(t, fr)

	rig.app.OpenChallengeStats()
	rig.app.Wait()
	d := rig.view.openDialog()
	if d == nil || d.ID != "challenge-stats" {
		t.Fatalf("expected challenge stats dialog, got %#v", d)
	}
	want := "- Archived: no tasks\n" +
		"- Bridges: 1 out of 3 tasks fixed (33%)\n" +
		"- Disconnected roads: 4 out of 10 tasks fixed (40%)"
	if d.Body != want {
		t.Fatalf("expected %q, got %q", want, d.Body)
	}
}

func TestHotkeysBound(t *testing.T) {
	rig := newRig(t, roadsRemote())
	rig.app.bindHotkeys()
	for _, k := range []string{"q", "w", "e", "r", "o", "n", "esc", "c", "h", "a", "s", "t", "y"} {
		if rig.view.hotkeys[k] == nil {
			t.Fatalf("expected hotkey %q", k)
		}
	}
}

func TestStatsLabel(t *testing.T) {
	cases := []struct {
		stats remote.Stats
		want  string
	}{
		{remote.Stats{Total: 12000, Available: 1234}, "about 1,230 of 12,000 tasks left"},
		{remote.Stats{Total: 20, Available: 7}, "only a few tasks left"},
		{remote.Stats{Total: 20, Available: 0}, ""},
	}
	for _, tc := range cases {
		if got := statsLabel(tc.stats); got != tc.want {
			t.Fatalf("expected %q for %#v, got %q", tc.want, tc.stats, got)
		}
	}
}
