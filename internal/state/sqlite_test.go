package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLite(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	return store
}

func TestRememberedChallengeRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	slug, err := store.RememberedChallenge(ctx)
	if err != nil {
		t.Fatalf("remembered challenge: %v", err)
	}
	if slug != "" {
		t.Fatalf("expected nothing remembered, got %q", slug)
	}

	if err := store.RememberChallenge(ctx, "roads"); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if err := store.RememberChallenge(ctx, "buildings"); err != nil {
		t.Fatalf("remember again: %v", err)
	}
	slug, _ = store.RememberedChallenge(ctx)
	if slug != "buildings" {
		t.Fatalf("expected buildings, got %q", slug)
	}

	if err := store.ForgetChallenge(ctx); err != nil {
		t.Fatalf("forget: %v", err)
	}
	slug, _ = store.RememberedChallenge(ctx)
	if slug != "" {
		t.Fatalf("expected forgotten challenge, got %q", slug)
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	store := openStore(t)
	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("second ensure schema: %v", err)
	}
}

func TestSummaryCountsActionsAndVisits(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	t0 := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	for i, visit := range []ChallengeVisit{
		{Challenge: "roads", Title: "Roads", At: t0},
		{Challenge: "roads", At: t0.Add(time.Minute)},
		{Challenge: "bridges", Title: "Bridges", At: t0.Add(2 * time.Minute)},
	} {
		if err := store.TouchChallenge(ctx, visit); err != nil {
			t.Fatalf("touch %d: %v", i, err)
		}
	}
	actions := []ActionRecord{
		{SessionID: "s", Challenge: "roads", TaskID: "1", Action: "fixed", Editor: "josm", At: t0.Add(time.Minute)},
		{SessionID: "s", Challenge: "roads", TaskID: "2", Action: "skipped", At: t0.Add(2 * time.Minute)},
		{SessionID: "s", Challenge: "bridges", TaskID: "3", Action: "fixed", Editor: "id", At: t0.Add(3 * time.Minute)},
	}
	for _, rec := range actions {
		if err := store.RecordAction(ctx, rec); err != nil {
			t.Fatalf("record action: %v", err)
		}
	}

	sum, err := store.GetSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Actions != 3 || sum.ByAction["fixed"] != 2 || sum.ByAction["skipped"] != 1 {
		t.Fatalf("unexpected action counts: %#v", sum)
	}
	if sum.Challenges != 2 || sum.TasksSeen != 3 {
		t.Fatalf("unexpected visit counts: %#v", sum)
	}
	if !sum.FirstSeen.Equal(t0) {
		t.Fatalf("expected first seen %v, got %v", t0, sum.FirstSeen)
	}
	if !sum.LastAction.Equal(t0.Add(3 * time.Minute)) {
		t.Fatalf("unexpected last action %v", sum.LastAction)
	}

	recent, err := store.RecentActions(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 || recent[0].TaskID != "3" || recent[1].TaskID != "2" {
		t.Fatalf("unexpected recent actions: %#v", recent)
	}
}

func TestSummaryOnEmptyStore(t *testing.T) {
	store := openStore(t)
	sum, err := store.GetSummary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.Actions != 0 || !sum.LastAction.IsZero() {
		t.Fatalf("expected empty summary, got %#v", sum)
	}
}

func TestRecordActionRequiresTask(t *testing.T) {
	store := openStore(t)
	if err := store.RecordAction(context.Background(), ActionRecord{Challenge: "roads"}); err == nil {
		t.Fatalf("expected error without task id")
	}
}
