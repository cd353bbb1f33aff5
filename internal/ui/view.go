package ui

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"mrtui/internal/geo"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/glamour"
	clog "github.com/charmbracelet/log"
	"github.com/paulmach/orb"
)

const (
	defaultNotificationTimeout = 5 * time.Second
	maxNotifications           = 4
)

type applyMsg struct {
	fn func(*Root)
}

type clockMsg time.Time

type hotkey struct {
	binding key.Binding
	handler func()
}

// hotkeyMap adapts the bound hotkeys to bubbles/help.
type hotkeyMap []hotkey

func (k hotkeyMap) ShortHelp() []key.Binding {
	out := make([]key.Binding, 0, len(k))
	for _, hk := range k {
		if hk.binding.Help().Desc != "" {
			out = append(out, hk.binding)
		}
	}
	return out
}

func (k hotkeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

type activeNotification struct {
	Notification
	expires time.Time
}

type dialogState struct {
	Dialog
	lines []string
	index int
}

type Root struct {
	theme Theme
	ascii bool
	debug bool
	ctrl  Controller

	mu      sync.Mutex
	program *tea.Program
	running bool

	vpMu     sync.Mutex
	viewport geo.Viewport

	screen Screen
	layout LayoutMode
	cols   int
	rows   int

	session  SessionInfo
	features []geo.Feature
	notes    []activeNotification
	dialog   *dialogState
	hotkeys  []hotkey

	editArea  *EditAreaPrompt
	cursorCol int
	cursorRow int

	busy        bool
	busyLabel   string
	statusFlash string

	noteTimeout time.Duration
	now         func() time.Time
	dispatch    func(func())

	help     help.Model
	spin     spinner.Model
	markdown *glamour.TermRenderer
	logger   *clog.Logger

	lastInputEvent string
}

type Options struct {
	ASCIIOnly    bool
	Debug        bool
	StyleVariant string
	// NotificationTimeout overrides how long non-sticky notifications stay.
	NotificationTimeout time.Duration
}

func New(opts Options) *Root {
	logger := clog.NewWithOptions(os.Stderr, clog.Options{Prefix: "mrtui-ui", Level: clog.WarnLevel})
	if opts.Debug {
		logger.SetLevel(clog.DebugLevel)
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(72),
	)
	if err != nil {
		renderer = nil
	}

	h := help.New()
	h.Styles = help.DefaultDarkStyles()
	theme := ThemeForVariant(strings.TrimSpace(opts.StyleVariant))
	spin := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(theme.Accent),
	)

	timeout := opts.NotificationTimeout
	if timeout <= 0 {
		timeout = defaultNotificationTimeout
	}

	r := &Root{
		theme:       theme,
		ascii:       opts.ASCIIOnly,
		debug:       opts.Debug,
		screen:      ScreenWelcome,
		help:        h,
		spin:        spin,
		markdown:    renderer,
		logger:      logger,
		noteTimeout: timeout,
		now:         time.Now,
		dispatch:    func(fn func()) { go fn() },
	}
	r.resize(120, 32)
	return r
}

func (r *Root) Init() tea.Cmd {
	return tea.Batch(clockTickCmd(), spinnerTickCmd(r.spin))
}

func (r *Root) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("update", rec, msg)
			model = r
			cmd = nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.resize(msg.Width, msg.Height)
		w, h := msg.Width, msg.Height
		r.dispatchController(func(c Controller) { c.OnResize(w, h) })
		return r, nil
	case applyMsg:
		if msg.fn != nil {
			msg.fn(r)
		}
		return r, nil
	case clockMsg:
		r.expireNotifications(time.Time(msg))
		return r, clockTickCmd()
	case spinner.TickMsg:
		var cmd tea.Cmd
		r.spin, cmd = r.spin.Update(msg)
		return r, cmd
	case tea.MouseClickMsg:
		return r.handleMouseClick(msg)
	case tea.KeyPressMsg:
		return r.handleKey(msg)
	}
	return r, nil
}

func (r *Root) View() (view tea.View) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("view", rec, nil)
			width := max(1, r.cols)
			view = tea.NewView(r.theme.Error.Width(width).Render(trimForWidth("UI recovered from a rendering panic. Check logs.", max(1, width-1))))
		}
	}()

	v := tea.NewView(r.render())
	v.AltScreen = true
	if r.editArea != nil {
		v.MouseMode = tea.MouseModeCellMotion
	}
	return v
}

func (r *Root) Run() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	p := tea.NewProgram(r)
	r.program = p
	r.running = true
	r.mu.Unlock()

	_, err := p.Run()

	r.mu.Lock()
	r.program = nil
	r.running = false
	r.mu.Unlock()
	return err
}

func (r *Root) Stop() {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Quit()
	}
}

func (r *Root) SetController(c Controller) {
	r.ctrl = c
}

func (r *Root) SetScreen(screen Screen) {
	r.apply(func(m *Root) {
		m.screen = screen
	})
}

func (r *Root) SetSession(info SessionInfo) {
	r.apply(func(m *Root) {
		m.session = info
	})
}

func (r *Root) ShowNotification(n Notification) {
	if strings.TrimSpace(n.Text) == "" {
		return
	}
	r.apply(func(m *Root) {
		timeout := n.Timeout
		if timeout <= 0 {
			timeout = m.noteTimeout
		}
		note := activeNotification{Notification: n}
		if !n.Sticky {
			note.expires = m.now().Add(timeout)
		}
		m.notes = append(m.notes, note)
		if len(m.notes) > maxNotifications {
			m.notes = append([]activeNotification(nil), m.notes[len(m.notes)-maxNotifications:]...)
		}
	})
}

// ShowDialog replaces any open dialog.
func (r *Root) ShowDialog(d Dialog) {
	r.apply(func(m *Root) {
		m.dialog = &dialogState{Dialog: d, lines: m.dialogBody(d)}
	})
}

func (r *Root) CloseDialog() {
	r.apply(func(m *Root) {
		m.dialog = nil
	})
}

// DrawFeatures replaces the task overlay and clears sticky notifications.
func (r *Root) DrawFeatures(features []geo.Feature) {
	cp := append([]geo.Feature(nil), features...)
	r.apply(func(m *Root) {
		m.features = cp
		kept := m.notes[:0]
		for _, n := range m.notes {
			if !n.Sticky {
				kept = append(kept, n)
			}
		}
		m.notes = kept
	})
}

func (r *Root) FitToFeatures() {
	r.apply(func(m *Root) {
		b, ok := geo.FeaturesBound(m.features)
		if !ok {
			return
		}
		m.vpMu.Lock()
		m.viewport = geo.Fit(b, m.viewport.Cols, m.viewport.Rows, 0.1)
		m.vpMu.Unlock()
	})
}

// BindHotkey registers handler for a comma separated key list such as
// "q" or "esc". Binding the same keys again replaces the handler.
func (r *Root) BindHotkey(keys, helpText string, handler func()) {
	names := strings.Split(keys, ",")
	for i := range names {
		names[i] = strings.TrimSpace(names[i])
	}
	b := key.NewBinding(key.WithKeys(names...), key.WithHelp(names[0], helpText))
	r.apply(func(m *Root) {
		for i, hk := range m.hotkeys {
			if strings.Join(hk.binding.Keys(), ",") == strings.Join(names, ",") {
				m.hotkeys[i] = hotkey{binding: b, handler: handler}
				return
			}
		}
		m.hotkeys = append(m.hotkeys, hotkey{binding: b, handler: handler})
	})
}

func (r *Root) PromptEditAreaSelection(p EditAreaPrompt) {
	r.apply(func(m *Root) {
		if m.editArea == nil {
			vp := m.Viewport()
			m.cursorCol = vp.Cols / 2
			m.cursorRow = vp.Rows / 2
		}
		cp := p
		m.editArea = &cp
	})
}

func (r *Root) EndEditAreaSelection() {
	r.apply(func(m *Root) {
		m.editArea = nil
	})
}

// Viewport is safe to call from any goroutine.
func (r *Root) Viewport() geo.Viewport {
	r.vpMu.Lock()
	defer r.vpMu.Unlock()
	return r.viewport
}

func (r *Root) SetBusy(busy bool, label string) {
	r.apply(func(m *Root) {
		m.busy = busy
		m.busyLabel = label
	})
}

func (r *Root) FlashStatus(msg string) {
	r.apply(func(m *Root) {
		m.statusFlash = msg
	})
}

func (r *Root) apply(fn func(*Root)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	p := r.program
	running := r.running
	if !running || p == nil {
		fn(r)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	p.Send(applyMsg{fn: fn})
}

func (r *Root) dispatchController(fn func(Controller)) {
	if fn == nil || r.ctrl == nil {
		return
	}
	ctrl := r.ctrl
	r.dispatch(func() { fn(ctrl) })
}

func (r *Root) run(handler func()) {
	if handler != nil {
		r.dispatch(handler)
	}
}

func (r *Root) resize(cols, rows int) {
	r.cols = cols
	r.rows = rows
	r.layout = DetermineLayoutMode(cols, rows)
	w, h := mapArea(cols, rows)
	r.vpMu.Lock()
	if r.viewport.Cols == 0 {
		r.viewport = geo.DefaultViewport(w, h)
	} else {
		r.viewport = r.viewport.Resize(w, h)
	}
	r.vpMu.Unlock()
	r.cursorCol = min(r.cursorCol, w-1)
	r.cursorRow = min(r.cursorRow, h-1)
}

func (r *Root) setViewport(vp geo.Viewport) {
	r.vpMu.Lock()
	r.viewport = vp
	r.vpMu.Unlock()
}

func (r *Root) expireNotifications(now time.Time) {
	kept := r.notes[:0]
	for _, n := range r.notes {
		if n.Sticky || now.Before(n.expires) {
			kept = append(kept, n)
		}
	}
	r.notes = kept
}

func (r *Root) cursorPoint() orb.Point {
	return r.Viewport().Unproject(r.cursorCol, r.cursorRow)
}

func (r *Root) recordInputEvent(event string) {
	r.lastInputEvent = trimForWidth(strings.TrimSpace(event), 160)
}

func (r *Root) onModelPanic(where string, recovered any, msg tea.Msg) {
	r.statusFlash = "Recovered UI panic"
	msgType := ""
	if msg != nil {
		msgType = fmt.Sprintf("%T", msg)
	}
	r.logger.Error("ui.panic_recovered",
		"where", where,
		"panic", fmt.Sprintf("%v", recovered),
		"messageType", msgType,
		"screen", r.screen,
		"cols", r.cols,
		"rows", r.rows,
		"last_input", r.lastInputEvent,
		"stack", string(debug.Stack()),
	)
}

func clockTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) })
}

func spinnerTickCmd(model spinner.Model) tea.Cmd {
	return func() tea.Msg {
		return model.Tick()
	}
}

var _ tea.Model = (*Root)(nil)
var _ View = (*Root)(nil)
