package devtools

import (
	"fmt"
	"regexp"

	"mrtui/internal/remote"
)

const (
	ChallengeKind          = "challenge"
	SupportedSchemaVersion = 1
	DefaultTasksFile       = "tasks.geojson"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{2,63}$`)

// ChallengeSpec is the challenge.yaml of a fixture directory.
type ChallengeSpec struct {
	Kind          string         `yaml:"kind"`
	SchemaVersion int            `yaml:"schema_version"`
	Slug          string         `yaml:"slug"`
	Title         string         `yaml:"title"`
	Blurb         string         `yaml:"blurb"`
	DescriptionMD string         `yaml:"description_md"`
	HelpMD        string         `yaml:"help_md"`
	Instruction   string         `yaml:"instruction"`
	Difficulty    int            `yaml:"difficulty"`
	Active        *bool          `yaml:"active"`
	Center        *CenterSpec    `yaml:"center"`
	DoneDialog    DoneDialogSpec `yaml:"done_dialog"`
	TasksFile     string         `yaml:"tasks_file"`

	Path string `yaml:"-"`
}

type CenterSpec struct {
	Lon    float64 `yaml:"lon"`
	Lat    float64 `yaml:"lat"`
	Radius float64 `yaml:"radius"`
}

type DoneDialogSpec struct {
	Text    string   `yaml:"text"`
	Buttons []string `yaml:"buttons"`
}

func (c ChallengeSpec) Validate() error {
	if c.Kind != ChallengeKind {
		return fmt.Errorf("kind must be %q", ChallengeKind)
	}
	if c.SchemaVersion == 0 {
		return fmt.Errorf("schema_version is required")
	}
	if c.SchemaVersion > SupportedSchemaVersion {
		return fmt.Errorf("unsupported challenge schema_version %d (max supported %d)", c.SchemaVersion, SupportedSchemaVersion)
	}
	if !slugPattern.MatchString(c.Slug) {
		return fmt.Errorf("invalid slug %q", c.Slug)
	}
	if c.Title == "" {
		return fmt.Errorf("title is required")
	}
	if c.Difficulty < 1 || c.Difficulty > 3 {
		return fmt.Errorf("difficulty must be 1..3")
	}
	if c.Center != nil {
		if c.Center.Lon < -180 || c.Center.Lon > 180 || c.Center.Lat < -90 || c.Center.Lat > 90 {
			return fmt.Errorf("center is outside lon/lat range")
		}
		if c.Center.Radius <= 0 {
			return fmt.Errorf("center.radius must be >0")
		}
	}
	for _, b := range c.DoneDialog.Buttons {
		switch remote.Action(b) {
		case remote.ActionFixed, remote.ActionSkipped, remote.ActionFalsePositive, remote.ActionAlreadyFixed:
		default:
			return fmt.Errorf("done_dialog.buttons: unknown action %q", b)
		}
	}
	return nil
}

// Challenge converts the challenge.yaml contents to the API shape.
func (c ChallengeSpec) Challenge() remote.Challenge {
	ch := remote.Challenge{
		Slug:        c.Slug,
		Title:       c.Title,
		Blurb:       c.Blurb,
		Description: c.DescriptionMD,
		Help:        c.HelpMD,
		Instruction: c.Instruction,
		Difficulty:  c.Difficulty,
		Active:      c.Active == nil || *c.Active,
		DoneDialog:  remote.DoneDialog{Text: c.DoneDialog.Text},
	}
	if c.Center != nil {
		ch.Lon, ch.Lat, ch.Radius = c.Center.Lon, c.Center.Lat, c.Center.Radius
	}
	for _, b := range c.DoneDialog.Buttons {
		ch.DoneDialog.Buttons = append(ch.DoneDialog.Buttons, remote.Action(b))
	}
	return ch
}
