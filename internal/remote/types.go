package remote

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"mrtui/internal/geo"
)

type TaskStatus string

const (
	StatusCreated       TaskStatus = "created"
	StatusAssigned      TaskStatus = "assigned"
	StatusEditing       TaskStatus = "editing"
	StatusFixed         TaskStatus = "fixed"
	StatusSkipped       TaskStatus = "skipped"
	StatusFalsePositive TaskStatus = "falsepositive"
	StatusAlreadyFixed  TaskStatus = "alreadyfixed"
	StatusValidated     TaskStatus = "validated"
	// older servers report this instead of falsepositive
	StatusNotAnError TaskStatus = "notanerror"
)

// Terminal reports whether no further work is expected on a task in this status.
func (s TaskStatus) Terminal() bool {
	switch s {
	case StatusFixed, StatusAlreadyFixed, StatusValidated, StatusFalsePositive, StatusNotAnError:
		return true
	default:
		return false
	}
}

// Action is a disposition the user reports for a task.
type Action string

const (
	ActionFixed         Action = "fixed"
	ActionSkipped       Action = "skipped"
	ActionFalsePositive Action = "falsepositive"
	ActionAlreadyFixed  Action = "alreadyfixed"
	ActionEditing       Action = "editing"
)

func (a Action) Label() string {
	switch a {
	case ActionFixed:
		return "I fixed it!"
	case ActionSkipped:
		return "Too difficult / Couldn't see"
	case ActionFalsePositive:
		return "It was not an error"
	case ActionAlreadyFixed:
		return "Someone beat me to it"
	case ActionEditing:
		return "Editing"
	default:
		return string(a)
	}
}

const DefaultDoneText = "This area is being loaded in your editor. Did you fix it?"

var DefaultDoneButtons = []Action{ActionFixed, ActionSkipped, ActionFalsePositive, ActionAlreadyFixed}

// DoneDialog is the per-challenge confirmation prompt shown after editing.
type DoneDialog struct {
	Text    string   `json:"text"`
	Buttons []Action `json:"buttons"`
}

func (d *DoneDialog) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text    string          `json:"text"`
		Buttons json.RawMessage `json:"buttons"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	d.Text = raw.Text
	d.Buttons = nil
	b := bytes.TrimSpace(raw.Buttons)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] == '"' {
		var joined string
		if err := json.Unmarshal(b, &joined); err != nil {
			return err
		}
		for _, part := range strings.Split(joined, "|") {
			if part = strings.TrimSpace(part); part != "" {
				d.Buttons = append(d.Buttons, Action(part))
			}
		}
		return nil
	}
	return json.Unmarshal(b, &d.Buttons)
}

// Resolved fills in the default text and buttons where the challenge has none.
func (d DoneDialog) Resolved() DoneDialog {
	out := DoneDialog{Text: d.Text, Buttons: append([]Action(nil), d.Buttons...)}
	if strings.TrimSpace(out.Text) == "" {
		out.Text = DefaultDoneText
	}
	if len(out.Buttons) == 0 {
		out.Buttons = append([]Action(nil), DefaultDoneButtons...)
	}
	return out
}

type Challenge struct {
	Slug        string     `json:"slug"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Blurb       string     `json:"blurb,omitempty"`
	Help        string     `json:"help,omitempty"`
	Instruction string     `json:"instruction,omitempty"`
	Lon         float64    `json:"lon,omitempty"`
	Lat         float64    `json:"lat,omitempty"`
	Radius      float64    `json:"radius,omitempty"`
	Active      bool       `json:"active"`
	Difficulty  int        `json:"difficulty"`
	DoneDialog  DoneDialog `json:"done_dialog"`
}

func (c *Challenge) UnmarshalJSON(data []byte) error {
	type plain Challenge
	var raw struct {
		plain
		ID      string      `json:"id"`
		DoneDlg *DoneDialog `json:"done_dlg"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Challenge(raw.plain)
	if c.Slug == "" {
		c.Slug = raw.ID
	}
	if raw.DoneDlg != nil && c.DoneDialog.Text == "" && len(c.DoneDialog.Buttons) == 0 {
		c.DoneDialog = *raw.DoneDlg
	}
	return nil
}

// HasBias reports whether the challenge carries its own geographic focus.
func (c Challenge) HasBias() bool { return c.Radius > 0 }

type Task struct {
	ID          string        `json:"identifier"`
	Challenge   string        `json:"challenge"`
	Status      TaskStatus    `json:"status"`
	Instruction string        `json:"instruction,omitempty"`
	Features    []geo.Feature `json:"-"`
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var raw struct {
		Identifier    json.RawMessage `json:"identifier"`
		ID            json.RawMessage `json:"id"`
		Challenge     string          `json:"challenge"`
		Status        TaskStatus      `json:"status"`
		CurrentAction TaskStatus      `json:"currentaction"`
		Instruction   string          `json:"instruction"`
		Text          string          `json:"text"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.ID = flexString(raw.Identifier)
	if t.ID == "" {
		t.ID = flexString(raw.ID)
	}
	t.Challenge = raw.Challenge
	t.Status = raw.Status
	if t.Status == "" {
		t.Status = raw.CurrentAction
	}
	t.Instruction = raw.Instruction
	if t.Instruction == "" {
		t.Instruction = raw.Text
	}
	return nil
}

// ids arrive as strings or numbers depending on the server version
func flexString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

type Stats struct {
	Total     int `json:"total"`
	Available int `json:"available"`
}

func (s *Stats) UnmarshalJSON(data []byte) error {
	var raw struct {
		Total     int  `json:"total"`
		Available *int `json:"available"`
		Unfixed   *int `json:"unfixed"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Total = raw.Total
	switch {
	case raw.Available != nil:
		s.Available = *raw.Available
	case raw.Unfixed != nil:
		s.Available = *raw.Unfixed
	default:
		s.Available = 0
	}
	return nil
}

// fixedStatuses count as work done in the stats views.
var fixedStatuses = []TaskStatus{StatusFixed, StatusFalsePositive, StatusNotAnError, StatusValidated}

// StatusActivity is how often a user left tasks in one status, and when.
type StatusActivity struct {
	Count int       `json:"count"`
	First time.Time `json:"first,omitzero"`
	Last  time.Time `json:"last,omitzero"`
}

// ChallengeActivity is one user's history with a challenge, by status.
type ChallengeActivity struct {
	Title    string                    `json:"title"`
	Statuses map[string]StatusActivity `json:"statuses"`
}

func (c ChallengeActivity) Fixed() int {
	n := 0
	for _, s := range fixedStatuses {
		n += c.Statuses[string(s)].Count
	}
	return n
}

// Looked counts every task the user reported on, in any status.
func (c ChallengeActivity) Looked() int {
	n := 0
	for _, a := range c.Statuses {
		n += a.Count
	}
	return n
}

// Span returns the first and last time the user worked on the challenge.
func (c ChallengeActivity) Span() (first, last time.Time) {
	for _, a := range c.Statuses {
		if !a.First.IsZero() && (first.IsZero() || a.First.Before(first)) {
			first = a.First
		}
		if a.Last.After(last) {
			last = a.Last
		}
	}
	return first, last
}

// UserStats is the signed-in user's activity keyed by challenge slug.
type UserStats struct {
	Challenges map[string]ChallengeActivity `json:"challenges"`
}

// ChallengeSummary counts a challenge's tasks by status.
type ChallengeSummary struct {
	Title    string         `json:"title"`
	Statuses map[string]int `json:"statuses"`
}

func (c ChallengeSummary) Total() int {
	n := 0
	for _, v := range c.Statuses {
		n += v
	}
	return n
}

func (c ChallengeSummary) Fixed() int {
	n := 0
	for _, s := range fixedStatuses {
		n += c.Statuses[string(s)]
	}
	return n
}

type EditArea struct {
	Lon    float64 `json:"lon"`
	Lat    float64 `json:"lat"`
	Radius float64 `json:"radius"`
}

func (e EditArea) Circle() geo.Circle {
	return geo.Circle{Center: geo.Near{Lon: e.Lon, Lat: e.Lat}.Point(), Radius: e.Radius}
}

// Settings are the per-user preferences kept by the server. A nil EditArea
// clears the stored area.
type Settings struct {
	Difficulty int       `json:"difficulty,omitempty"`
	EditArea   *EditArea `json:"edit_area"`
}

type User struct {
	DisplayName string   `json:"display_name"`
	OSMID       int64    `json:"osm_id"`
	Settings    Settings `json:"settings"`
}

type ChallengeQuery struct {
	Difficulty int
	Near       *geo.Near
}

type TaskQuery struct {
	Near   *geo.Near
	Assign bool
}

type TaskUpdate struct {
	Action Action `json:"action"`
	Editor string `json:"editor,omitempty"`
}
