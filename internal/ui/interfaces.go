package ui

import (
	"time"

	"mrtui/internal/geo"

	"github.com/paulmach/orb"
)

// Controller receives the input the surface does not resolve by itself.
// Everything bound through BindHotkey bypasses it.
type Controller interface {
	OnEditAreaPoint(p orb.Point)
	OnEditAreaRadius(dir int)
	OnEditAreaConfirm()
	OnEditAreaCancel()
	OnResize(cols, rows int)
	OnQuit()
}

type View interface {
	Run() error
	Stop()
	SetController(Controller)
	SetScreen(screen Screen)
	SetSession(info SessionInfo)
	ShowNotification(n Notification)
	ShowDialog(d Dialog)
	CloseDialog()
	DrawFeatures(features []geo.Feature)
	FitToFeatures()
	BindHotkey(keys, help string, handler func())
	PromptEditAreaSelection(p EditAreaPrompt)
	EndEditAreaSelection()
	Viewport() geo.Viewport
	SetBusy(busy bool, label string)
	FlashStatus(msg string)
}

type Screen int

const (
	ScreenWelcome Screen = iota
	ScreenPlaying
)

type LayoutMode int

const (
	LayoutWide LayoutMode = iota
	LayoutCompact
	LayoutTooSmall
)

type NotificationKind int

const (
	NotifyInfo NotificationKind = iota
	NotifyWarning
	NotifyError
)

func (k NotificationKind) String() string {
	switch k {
	case NotifyWarning:
		return "warning"
	case NotifyError:
		return "error"
	default:
		return "info"
	}
}

// Notification is a transient message. A zero Timeout uses the surface
// default; Sticky ones stay until the next task is drawn.
type Notification struct {
	Kind    NotificationKind
	Text    string
	Timeout time.Duration
	Sticky  bool
}

type DialogAction struct {
	Label   string
	Handler func()
}

// Dialog is a modal with selectable actions. Choosing an action closes the
// dialog before its handler runs. OnDismiss runs when it is closed with esc.
type Dialog struct {
	ID        string
	Title     string
	Body      string
	Markdown  bool
	Actions   []DialogAction
	OnDismiss func()
}

// EditAreaPrompt puts the map into circle selection. Circle is nil until a
// center has been chosen.
type EditAreaPrompt struct {
	Text   string
	Circle *geo.Circle
}

// SessionInfo is what the header and the task panel show.
type SessionInfo struct {
	User        string
	Challenge   string
	Difficulty  int
	Stats       string
	TaskID      string
	TaskStatus  string
	Instruction string
	Location    string
	ShareLink   string
	EditArea    string
}
