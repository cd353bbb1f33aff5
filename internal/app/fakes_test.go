package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mrtui/internal/geo"
	"mrtui/internal/remote"
	"mrtui/internal/state"
	"mrtui/internal/ui"

	"github.com/paulmach/orb"
)

const testServer = "https://mr.test"

type fakeRemote struct {
	mu sync.Mutex

	calls []string
	gates map[string]chan struct{}

	user       remote.User
	meErr      error
	challenges map[string]remote.Challenge
	pick       string
	pickErr    error
	stats      map[string]remote.Stats
	statsErr   map[string]error
	tasks      map[string][]remote.Task
	geometries map[string][]geo.Feature
	taskErr    error
	updateErr  error

	userStats      remote.UserStats
	userStatsErr   error
	challengeStats map[string]remote.ChallengeSummary

	taskQueries []remote.TaskQuery
	pickQueries []remote.ChallengeQuery
	updates     []string
	settings    []remote.Settings
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		gates:      map[string]chan struct{}{},
		user:       remote.User{DisplayName: "mapper", OSMID: 42},
		challenges: map[string]remote.Challenge{},
		stats:      map[string]remote.Stats{},
		statsErr:   map[string]error{},
		tasks:      map[string][]remote.Task{},
		geometries: map[string][]geo.Feature{},
	}
}

func (f *fakeRemote) addChallenge(ch remote.Challenge, tasks ...remote.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch.Active = true
	f.challenges[ch.Slug] = ch
	f.stats[ch.Slug] = remote.Stats{Total: 100, Available: 57}
	for _, t := range tasks {
		t.Challenge = ch.Slug
		f.tasks[ch.Slug] = append(f.tasks[ch.Slug], t)
		f.geometries[ch.Slug+"/"+t.ID] = []geo.Feature{{Geometry: orb.Point{13.4 + float64(len(f.tasks[ch.Slug]))*0.001, 52.5}, OSMID: 5}}
	}
	if f.pick == "" {
		f.pick = ch.Slug
	}
}

// gate blocks calls with the given key until the returned func is called.
func (f *fakeRemote) gate(key string) func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.gates[key] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *fakeRemote) record(key string) {
	f.mu.Lock()
	f.calls = append(f.calls, key)
	ch := f.gates[key]
	f.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) called(key string) bool {
	for _, c := range f.Calls() {
		if c == key {
			return true
		}
	}
	return false
}

func (f *fakeRemote) count(key string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == key {
			n++
		}
	}
	return n
}

func (f *fakeRemote) Me(ctx context.Context) (remote.User, error) {
	f.record("me")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user, f.meErr
}

func (f *fakeRemote) UpdateMe(ctx context.Context, s remote.Settings) error {
	f.record("me:update")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings = append(f.settings, s)
	return nil
}

func (f *fakeRemote) PickChallenge(ctx context.Context, q remote.ChallengeQuery) (remote.Challenge, error) {
	f.record("pick")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pickQueries = append(f.pickQueries, q)
	if f.pickErr != nil {
		return remote.Challenge{}, f.pickErr
	}
	ch, ok := f.challenges[f.pick]
	if !ok {
		return remote.Challenge{}, remote.ErrChallengeComplete
	}
	return ch, nil
}

func (f *fakeRemote) Challenge(ctx context.Context, slug string) (remote.Challenge, error) {
	f.record("challenge:" + slug)
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.challenges[slug]
	if !ok {
		return remote.Challenge{}, remote.ErrChallengeComplete
	}
	return ch, nil
}

func (f *fakeRemote) Challenges(ctx context.Context) ([]remote.Challenge, error) {
	f.record("challenges")
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]remote.Challenge, 0, len(f.challenges))
	for _, ch := range f.challenges {
		out = append(out, ch)
	}
	return out, nil
}

func (f *fakeRemote) Stats(ctx context.Context, slug string) (remote.Stats, error) {
	f.record("stats:" + slug)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.statsErr[slug]; err != nil {
		return remote.Stats{}, err
	}
	return f.stats[slug], nil
}

func (f *fakeRemote) Task(ctx context.Context, slug string, q remote.TaskQuery) (remote.Task, error) {
	f.record("task:" + slug)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskQueries = append(f.taskQueries, q)
	if f.taskErr != nil {
		return remote.Task{}, f.taskErr
	}
	queue := f.tasks[slug]
	if len(queue) == 0 {
		return remote.Task{}, remote.ErrChallengeComplete
	}
	t := queue[0]
	f.tasks[slug] = queue[1:]
	return t, nil
}

func (f *fakeRemote) TaskByID(ctx context.Context, slug, id string) (remote.Task, error) {
	f.record("task:" + slug + "/" + id)
	f.mu.Lock()
	defer f.mu.Unlock()
	return remote.Task{ID: id, Challenge: slug, Status: remote.StatusCreated}, nil
}

func (f *fakeRemote) Geometries(ctx context.Context, slug, id string) ([]geo.Feature, error) {
	f.record("geometries:" + slug + "/" + id)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.geometries[slug+"/"+id], nil
}

func (f *fakeRemote) UpdateTask(ctx context.Context, slug, id string, u remote.TaskUpdate) error {
	key := fmt.Sprintf("update:%s/%s:%s", slug, id, u.Action)
	f.record(key)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, key)
	return f.updateErr
}

func (f *fakeRemote) UserStats(ctx context.Context) (remote.UserStats, error) {
	f.record("stats:me")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userStats, f.userStatsErr
}

func (f *fakeRemote) ChallengeStats(ctx context.Context) (map[string]remote.ChallengeSummary, error) {
	f.record("stats:challenges")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.challengeStats, nil
}

type fakeSurface struct {
	mu sync.Mutex

	ctrl     ui.Controller
	screen   ui.Screen
	sessions []ui.SessionInfo
	notes    []ui.Notification
	dialogs  []ui.Dialog
	open     *ui.Dialog
	drawn    [][]geo.Feature
	flashes  []string
	prompts  []ui.EditAreaPrompt
	picking  bool
	hotkeys  map[string]func()
	viewport geo.Viewport
	stopped  bool
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		hotkeys:  map[string]func(){},
		viewport: geo.Viewport{Center: orb.Point{13.4, 52.5}, Zoom: 16, Cols: 80, Rows: 24},
	}
}

func (s *fakeSurface) Run() error { return nil }
func (s *fakeSurface) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}
func (s *fakeSurface) SetController(c ui.Controller) { s.ctrl = c }
func (s *fakeSurface) SetScreen(screen ui.Screen) {
	s.mu.Lock()
	s.screen = screen
	s.mu.Unlock()
}
func (s *fakeSurface) SetSession(info ui.SessionInfo) {
	s.mu.Lock()
	s.sessions = append(s.sessions, info)
	s.mu.Unlock()
}
func (s *fakeSurface) ShowNotification(n ui.Notification) {
	s.mu.Lock()
	s.notes = append(s.notes, n)
	s.mu.Unlock()
}
func (s *fakeSurface) ShowDialog(d ui.Dialog) {
	s.mu.Lock()
	s.dialogs = append(s.dialogs, d)
	s.open = &d
	s.mu.Unlock()
}
func (s *fakeSurface) CloseDialog() {
	s.mu.Lock()
	s.open = nil
	s.mu.Unlock()
}
func (s *fakeSurface) DrawFeatures(features []geo.Feature) {
	s.mu.Lock()
	s.drawn = append(s.drawn, append([]geo.Feature(nil), features...))
	s.mu.Unlock()
}
func (s *fakeSurface) FitToFeatures() {}
func (s *fakeSurface) BindHotkey(keys, help string, handler func()) {
	s.mu.Lock()
	s.hotkeys[keys] = handler
	s.mu.Unlock()
}
func (s *fakeSurface) PromptEditAreaSelection(p ui.EditAreaPrompt) {
	s.mu.Lock()
	s.picking = true
	s.prompts = append(s.prompts, p)
	s.mu.Unlock()
}
func (s *fakeSurface) EndEditAreaSelection() {
	s.mu.Lock()
	s.picking = false
	s.mu.Unlock()
}
func (s *fakeSurface) Viewport() geo.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}
func (s *fakeSurface) SetBusy(bool, string) {}
func (s *fakeSurface) FlashStatus(msg string) {
	s.mu.Lock()
	s.flashes = append(s.flashes, msg)
	s.mu.Unlock()
}

func (s *fakeSurface) setZoom(z int) {
	s.mu.Lock()
	s.viewport.Zoom = z
	s.mu.Unlock()
}

func (s *fakeSurface) openDialog() *ui.Dialog {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open == nil {
		return nil
	}
	d := *s.open
	return &d
}

func (s *fakeSurface) lastSession() ui.SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) == 0 {
		return ui.SessionInfo{}
	}
	return s.sessions[len(s.sessions)-1]
}

func (s *fakeSurface) hasNote(kind ui.NotificationKind, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notes {
		if n.Kind == kind && n.Text == text {
			return true
		}
	}
	return false
}

func (s *fakeSurface) hasFlash(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.flashes {
		if f == text {
			return true
		}
	}
	return false
}

func (s *fakeSurface) lastPrompt() ui.EditAreaPrompt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.prompts) == 0 {
		return ui.EditAreaPrompt{}
	}
	return s.prompts[len(s.prompts)-1]
}

type fakeClock struct {
	mu      sync.Mutex
	pending []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	d       time.Duration
	fn      func()
	stopped bool
}

func (c *fakeClock) After(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, d: d, fn: fn}
	c.pending = append(c.pending, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// Fire runs every live timer scheduled with delay d and reports how many ran.
func (c *fakeClock) Fire(d time.Duration) int {
	c.mu.Lock()
	var due []*fakeTimer
	rest := c.pending[:0]
	for _, t := range c.pending {
		switch {
		case t.stopped:
		case t.d == d:
			t.stopped = true
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	c.pending = rest
	c.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
	return len(due)
}

type fakeJOSM struct {
	mu   sync.Mutex
	err  error
	uris []string
}

func (j *fakeJOSM) Load(ctx context.Context, uri string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.uris = append(j.uris, uri)
	return j.err
}

type fakeBrowser struct {
	mu     sync.Mutex
	err    error
	opened []string
}

func (b *fakeBrowser) Open(url string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened = append(b.opened, url)
	return b.err
}

type fakeClipboard struct {
	mu     sync.Mutex
	err    error
	copied []string
}

func (c *fakeClipboard) Copy(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.copied = append(c.copied, text)
	return nil
}

type testRig struct {
	app       *App
	remote    *fakeRemote
	view      *fakeSurface
	clock     *fakeClock
	josm      *fakeJOSM
	browser   *fakeBrowser
	clipboard *fakeClipboard
	store     *state.SQLiteStore
}

func newRig(t *testing.T, fr *fakeRemote, mutate ...func(*Config)) *testRig {
	t.Helper()
	store, err := state.NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Server = testServer
	for _, m := range mutate {
		m(&cfg)
	}
	rig := &testRig{
		remote:    fr,
		view:      newFakeSurface(),
		clock:     &fakeClock{},
		josm:      &fakeJOSM{},
		browser:   &fakeBrowser{},
		clipboard: &fakeClipboard{},
		store:     store,
	}
	rig.app = NewWithDeps(cfg, Deps{
		Remote:    fr,
		JOSM:      rig.josm,
		Browser:   rig.browser,
		Clipboard: rig.clipboard,
		Store:     store,
		View:      rig.view,
		After:     rig.clock.After,
		Now:       func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	t.Cleanup(rig.app.Close)
	return rig
}

// start signs in and waits until the first task is on screen.
func (r *testRig) start(t *testing.T) {
	t.Helper()
	r.app.SignIn()
	r.app.Wait()
	if got := r.app.State(); got != StateTaskPresented {
		t.Fatalf("expected task presented after sign in, got %s (calls %v)", got, r.remote.Calls())
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func indexOf(calls []string, key string) int {
	for i, c := range calls {
		if c == key {
			return i
		}
	}
	return -1
}

var errBoom = errors.New("boom")
