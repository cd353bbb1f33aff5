package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"mrtui/internal/devtools"
	"mrtui/internal/editor"
	"mrtui/internal/geo"
	"mrtui/internal/remote"
	"mrtui/internal/state"
	"mrtui/internal/telemetry"
	"mrtui/internal/ui"

	"github.com/google/uuid"
)

// Deps are the collaborators of the session. New wires the real ones;
// tests pass fakes to NewWithDeps.
type Deps struct {
	Remote    Remote
	Geocoder  Geocoder
	JOSM      RemoteControl
	Browser   Browser
	Clipboard Clipboard
	Store     Store
	View      Surface
	Logger    *telemetry.JSONLogger
	After     AfterFunc
	Now       func() time.Time
}

type session struct {
	state      SessionState
	user       remote.User
	challenge  *remote.Challenge
	task       *remote.Task
	stats      remote.Stats
	near       *geo.Near
	editArea   *geo.Circle
	difficulty int
	location   string
	editor     editor.Kind

	// gen increases with every challenge selection and task fetch; results
	// carrying an older value are dropped.
	gen      uint64
	fetching bool
	timers   []Timer

	picking bool
	pick    *geo.Circle
}

type App struct {
	cfg Config

	logger    *telemetry.JSONLogger
	remote    Remote
	geocoder  Geocoder
	josm      RemoteControl
	browser   Browser
	clipboard Clipboard
	store     Store
	view      Surface
	after     AfterFunc
	now       func() time.Time

	sessionID string
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu sync.Mutex
	s  session

	closers []func() error

	devMu     sync.Mutex
	devServer *http.Server
	devState  struct {
		State     string
		Challenge string
		TaskID    string
		RenderSeq int
		Error     string
	}
}

func New(cfg Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	logger, err := telemetry.NewJSONLogger(cfg.LogPath)
	if err != nil {
		return nil, err
	}
	logger = logger.With(map[string]any{"component": "app"})

	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
		_ = logger.Close()
	}

	if cfg.Demo {
		backend := devtools.NewBackend(devtools.DemoFixtures())
		base, shutdown, err := backend.Start("127.0.0.1:0")
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("start demo backend: %w", err)
		}
		closers = append(closers, func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return shutdown(ctx)
		})
		cfg.Server = base
		cfg.GeocoderURL = ""
		logger.Info("demo.backend.started", map[string]any{"url": base})
	}

	hc := &http.Client{Timeout: cfg.RequestTimeout}
	client, err := remote.New(cfg.Server, remote.WithHTTPClient(hc), remote.WithSession(cfg.Session), remote.WithUserAgent(cfg.UserAgent()))
	if err != nil {
		cleanup()
		return nil, err
	}

	store, err := state.NewSQLite(filepath.Join(cfg.DataDir, "state.db"))
	if err != nil {
		cleanup()
		return nil, err
	}
	if err := store.EnsureSchema(context.Background()); err != nil {
		_ = store.Close()
		cleanup()
		return nil, err
	}

	view := ui.New(ui.Options{
		ASCIIOnly:           cfg.ASCIIOnly,
		Debug:               cfg.Debug,
		StyleVariant:        cfg.UI.Style,
		NotificationTimeout: time.Duration(cfg.UI.NotificationSeconds) * time.Second,
	})

	deps := Deps{
		Remote:    client,
		JOSM:      editor.NewJOSM(nil),
		Browser:   editor.SystemBrowser{Command: cfg.Browser},
		Clipboard: editor.SystemClipboard{},
		Store:     store,
		View:      view,
		Logger:    logger,
	}
	if cfg.GeocoderURL != "" {
		deps.Geocoder = remote.NewNominatim(cfg.GeocoderURL, hc)
	}
	a := NewWithDeps(cfg, deps)
	a.closers = closers
	return a, nil
}

// NewWithDeps builds a session around the given collaborators. cfg is used
// as is; call Validate first when it comes from user input.
func NewWithDeps(cfg Config, d Deps) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:       cfg,
		logger:    d.Logger,
		remote:    d.Remote,
		geocoder:  d.Geocoder,
		josm:      d.JOSM,
		browser:   d.Browser,
		clipboard: d.Clipboard,
		store:     d.Store,
		view:      d.View,
		after:     d.After,
		now:       d.Now,
		sessionID: uuid.NewString(),
		ctx:       ctx,
		cancel:    cancel,
	}
	if a.after == nil {
		a.after = realAfter
	}
	if a.now == nil {
		a.now = time.Now
	}
	a.s.difficulty = cfg.Difficulty
	a.s.editor = normalizeEditor(cfg.Editor)
	a.view.SetController(a)
	return a
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("app.start", map[string]any{"session": a.sessionID, "server": a.cfg.Server, "demo": a.cfg.Demo})

	if a.cfg.Dev {
		if err := a.startDevHTTP(); err != nil {
			return err
		}
	}

	a.bindHotkeys()
	a.view.SetScreen(ui.ScreenWelcome)
	a.SignIn()

	stop := context.AfterFunc(ctx, a.view.Stop)
	defer stop()
	err := a.view.Run()
	a.logger.Info("app.stop", map[string]any{"session": a.sessionID})
	return err
}

// Close cancels in-flight requests and releases the store and the log.
func (a *App) Close() {
	a.cancel()
	a.Wait()

	a.mu.Lock()
	a.cancelTimersLocked()
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if a.devServer != nil {
		_ = a.devServer.Shutdown(ctx)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("app.close_failed", map[string]any{"error": err})
		}
	}
	_ = a.logger.Close()
}

// Wait blocks until all background requests started so far have finished.
func (a *App) Wait() {
	a.wg.Wait()
}

func (a *App) spawn(fn func(ctx context.Context)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		fn(a.ctx)
	}()
}

// State reports the current play loop position.
func (a *App) State() SessionState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.s.state
}

func (a *App) current(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.s.gen == gen
}

// scheduleLocked runs fn after d unless the session generation moves on first.
func (a *App) scheduleLocked(d time.Duration, fn func()) {
	gen := a.s.gen
	t := a.after(d, func() {
		if a.current(gen) {
			fn()
		}
	})
	a.s.timers = append(a.s.timers, t)
}

func (a *App) cancelTimersLocked() {
	for _, t := range a.s.timers {
		t.Stop()
	}
	a.s.timers = nil
}

func (a *App) bindHotkeys() {
	a.view.BindHotkey("q", "not an error", func() { a.Advance(remote.ActionFalsePositive) })
	a.view.BindHotkey("w", "skip", func() { a.Advance(remote.ActionSkipped) })
	a.view.BindHotkey("e", "edit in iD", func() { a.OpenInExternalEditor(editor.KindID) })
	a.view.BindHotkey("r", "edit in JOSM", func() { a.OpenInExternalEditor(editor.KindJOSM) })
	a.view.BindHotkey("o", "open editor", func() { a.OpenInExternalEditor(editor.KindDefault) })
	a.view.BindHotkey("n", "next task", func() { a.Advance("") })
	a.view.BindHotkey("esc", "close", a.view.CloseDialog)
	a.view.BindHotkey("c", "challenges", a.ListChallenges)
	a.view.BindHotkey("h", "help", a.PresentHelp)
	a.view.BindHotkey("a", "edit area", a.PickEditArea)
	a.view.BindHotkey("s", "stats", a.OpenStats)
	a.view.BindHotkey("t", "all challenges", a.OpenChallengeStats)
	a.view.BindHotkey("y", "copy link", a.CopyShareLink)
}

// publish pushes the session fields the surface shows.
func (a *App) publish() {
	a.mu.Lock()
	info := ui.SessionInfo{
		User:       a.s.user.DisplayName,
		Difficulty: a.s.difficulty,
		Stats:      statsLabel(a.s.stats),
		Location:   a.s.location,
	}
	if ch := a.s.challenge; ch != nil {
		info.Challenge = ch.Title
		if ch.Difficulty > 0 {
			info.Difficulty = ch.Difficulty
		}
	}
	if t := a.s.task; t != nil {
		info.TaskID = t.ID
		info.TaskStatus = string(t.Status)
		info.Instruction = t.Instruction
		info.ShareLink = a.shareLinkLocked()
	}
	if c := a.s.editArea; c != nil {
		info.EditArea = describeArea(*c)
	}
	st := a.s.state
	a.mu.Unlock()

	a.view.SetSession(info)
	a.setDevState(st.String(), info.Challenge, info.TaskID, "")
}

func (a *App) notify(kind ui.NotificationKind, text string) {
	a.view.ShowNotification(ui.Notification{Kind: kind, Text: text})
}

// fail turns a remote error into a visible outcome.
func (a *App) fail(event string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	kind := remote.Classify(err)
	a.logger.Error(event+"_failed", map[string]any{"error": err, "kind": kind.String()})
	switch kind {
	case remote.KindComplete:
		a.enterComplete()
	case remote.KindUnauthorized:
		a.mu.Lock()
		a.cancelTimersLocked()
		a.s.state = StateUnauthenticated
		a.mu.Unlock()
		a.showWelcome()
	case remote.KindTransport:
		a.notify(ui.NotifyWarning, "The MapRoulette server could not be reached. Press n to try again.")
	default:
		a.notify(ui.NotifyError, "Something went wrong: "+err.Error())
	}
}

// OnQuit implements ui.Controller.
func (a *App) OnQuit() {
	a.logger.Info("app.quit", map[string]any{"session": a.sessionID})
	a.view.Stop()
}

// OnResize implements ui.Controller. The surface keeps its own viewport in
// step; the session only records the layout change.
func (a *App) OnResize(cols, rows int) {
	a.logger.Info("ui.resize", map[string]any{"cols": cols, "rows": rows, "layout": int(ui.DetermineLayoutMode(cols, rows))})
}

func (a *App) setDevState(st, challenge, taskID, errText string) {
	a.devMu.Lock()
	defer a.devMu.Unlock()
	a.devState.State = st
	a.devState.Challenge = challenge
	a.devState.TaskID = taskID
	a.devState.Error = errText
	a.devState.RenderSeq++
}

func (a *App) getDevState() map[string]any {
	a.devMu.Lock()
	defer a.devMu.Unlock()
	return map[string]any{
		"ok":         true,
		"state":      a.devState.State,
		"challenge":  a.devState.Challenge,
		"task":       a.devState.TaskID,
		"render_seq": a.devState.RenderSeq,
		"error":      a.devState.Error,
	}
}
