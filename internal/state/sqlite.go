package state

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const settingChallenge = "challenge"

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS app_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS task_actions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			challenge TEXT NOT NULL,
			task_id TEXT NOT NULL,
			action TEXT NOT NULL,
			editor TEXT NOT NULL DEFAULT '',
			ts TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS task_actions_challenge ON task_actions(challenge);`,
		`CREATE TABLE IF NOT EXISTS challenge_visits (
			challenge TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			first_ts TEXT NOT NULL,
			last_ts TEXT NOT NULL,
			tasks_seen INTEGER NOT NULL DEFAULT 0
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) SaveSettings(ctx context.Context, values map[string]string) (err error) {
	if len(values) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	for key, value := range values {
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO app_settings(key, value) VALUES(?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, k, value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app_settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// RememberChallenge stores the slug the next session starts with.
func (s *SQLiteStore) RememberChallenge(ctx context.Context, slug string) error {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return s.ForgetChallenge(ctx)
	}
	return s.SaveSettings(ctx, map[string]string{settingChallenge: slug})
}

// RememberedChallenge returns "" when nothing is remembered.
func (s *SQLiteStore) RememberedChallenge(ctx context.Context) (string, error) {
	values, err := s.LoadSettings(ctx)
	if err != nil {
		return "", err
	}
	return values[settingChallenge], nil
}

func (s *SQLiteStore) ForgetChallenge(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM app_settings WHERE key = ?`, settingChallenge)
	return err
}

func (s *SQLiteStore) RecordAction(ctx context.Context, rec ActionRecord) error {
	if strings.TrimSpace(rec.Challenge) == "" || strings.TrimSpace(rec.TaskID) == "" {
		return fmt.Errorf("record action: challenge and task id are required")
	}
	ts := rec.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_actions(session_id, challenge, task_id, action, editor, ts) VALUES(?,?,?,?,?,?)`,
		rec.SessionID,
		rec.Challenge,
		rec.TaskID,
		rec.Action,
		rec.Editor,
		ts.UTC().Format(timeLayout),
	)
	return err
}

// TouchChallenge records that a task of the challenge was presented.
func (s *SQLiteStore) TouchChallenge(ctx context.Context, visit ChallengeVisit) error {
	slug := strings.TrimSpace(visit.Challenge)
	if slug == "" {
		return nil
	}
	at := visit.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	ts := at.UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO challenge_visits(challenge, title, first_ts, last_ts, tasks_seen)
		VALUES(?, ?, ?, ?, 1)
		ON CONFLICT(challenge) DO UPDATE SET
			title = CASE WHEN excluded.title <> '' THEN excluded.title ELSE challenge_visits.title END,
			last_ts = excluded.last_ts,
			tasks_seen = challenge_visits.tasks_seen + 1
	`, slug, visit.Title, ts, ts)
	return err
}

func (s *SQLiteStore) GetSummary(ctx context.Context) (Summary, error) {
	out := Summary{ByAction: map[string]int{}}
	rows, err := s.db.QueryContext(ctx, `SELECT action, COUNT(*) FROM task_actions GROUP BY action`)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			action string
			n      int
		)
		if err := rows.Scan(&action, &n); err != nil {
			return Summary{}, err
		}
		out.ByAction[action] = n
		out.Actions += n
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	var firstRaw, lastRaw sql.NullString
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM challenge_visits),
			(SELECT COALESCE(SUM(tasks_seen),0) FROM challenge_visits),
			(SELECT MIN(first_ts) FROM challenge_visits),
			(SELECT MAX(ts) FROM task_actions)
	`)
	if err := row.Scan(&out.Challenges, &out.TasksSeen, &firstRaw, &lastRaw); err != nil {
		return Summary{}, err
	}
	if firstRaw.Valid {
		out.FirstSeen, _ = time.Parse(timeLayout, firstRaw.String)
	}
	if lastRaw.Valid {
		out.LastAction, _ = time.Parse(timeLayout, lastRaw.String)
	}
	return out, nil
}

// RecentActions returns the newest actions first.
func (s *SQLiteStore) RecentActions(ctx context.Context, limit int) ([]ActionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, challenge, task_id, action, editor, ts
		FROM task_actions
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ActionRecord, 0, limit)
	for rows.Next() {
		var (
			rec   ActionRecord
			tsRaw string
		)
		if err := rows.Scan(&rec.SessionID, &rec.Challenge, &rec.TaskID, &rec.Action, &rec.Editor, &tsRaw); err != nil {
			return nil, err
		}
		if t, err := time.Parse(timeLayout, tsRaw); err == nil {
			rec.At = t
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

const timeLayout = "2006-01-02T15:04:05Z07:00"
