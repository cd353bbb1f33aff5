package app

import (
	"context"
	"time"

	"mrtui/internal/geo"
	"mrtui/internal/remote"
	"mrtui/internal/state"
	"mrtui/internal/ui"

	"github.com/paulmach/orb"
)

// Remote is the MapRoulette API as the session uses it.
type Remote interface {
	Me(ctx context.Context) (remote.User, error)
	UpdateMe(ctx context.Context, s remote.Settings) error
	PickChallenge(ctx context.Context, q remote.ChallengeQuery) (remote.Challenge, error)
	Challenge(ctx context.Context, slug string) (remote.Challenge, error)
	Challenges(ctx context.Context) ([]remote.Challenge, error)
	Stats(ctx context.Context, slug string) (remote.Stats, error)
	Task(ctx context.Context, slug string, q remote.TaskQuery) (remote.Task, error)
	TaskByID(ctx context.Context, slug, id string) (remote.Task, error)
	Geometries(ctx context.Context, slug, id string) ([]geo.Feature, error)
	UpdateTask(ctx context.Context, slug, id string, u remote.TaskUpdate) error
	UserStats(ctx context.Context) (remote.UserStats, error)
	ChallengeStats(ctx context.Context) (map[string]remote.ChallengeSummary, error)
}

type Geocoder interface {
	ReverseGeocode(ctx context.Context, p orb.Point) (remote.Place, error)
}

type RemoteControl interface {
	Load(ctx context.Context, uri string) error
}

type Browser interface {
	Open(url string) error
}

type Clipboard interface {
	Copy(text string) error
}

// Surface is the presentation the session drives.
type Surface = ui.View

type Store interface {
	RememberChallenge(ctx context.Context, slug string) error
	RememberedChallenge(ctx context.Context) (string, error)
	ForgetChallenge(ctx context.Context) error
	RecordAction(ctx context.Context, rec state.ActionRecord) error
	TouchChallenge(ctx context.Context, visit state.ChallengeVisit) error
	GetSummary(ctx context.Context) (state.Summary, error)
	RecentActions(ctx context.Context, limit int) ([]state.ActionRecord, error)
	Close() error
}

// Timer is the handle of delayed work.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules fn on its own goroutine after d.
type AfterFunc func(d time.Duration, fn func()) Timer

func realAfter(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
