package state

import (
	"context"
	"time"
)

type Store interface {
	EnsureSchema(ctx context.Context) error
	SaveSettings(ctx context.Context, values map[string]string) error
	LoadSettings(ctx context.Context) (map[string]string, error)
	RememberChallenge(ctx context.Context, slug string) error
	RememberedChallenge(ctx context.Context) (string, error)
	ForgetChallenge(ctx context.Context) error
	RecordAction(ctx context.Context, rec ActionRecord) error
	TouchChallenge(ctx context.Context, visit ChallengeVisit) error
	GetSummary(ctx context.Context) (Summary, error)
	RecentActions(ctx context.Context, limit int) ([]ActionRecord, error)
	Close() error
}

// ActionRecord is one task disposition sent by this client.
type ActionRecord struct {
	SessionID string
	Challenge string
	TaskID    string
	Action    string
	Editor    string
	At        time.Time
}

type ChallengeVisit struct {
	Challenge string
	Title     string
	At        time.Time
}

type Summary struct {
	Actions    int
	ByAction   map[string]int
	Challenges int
	TasksSeen  int
	FirstSeen  time.Time
	LastAction time.Time
}
