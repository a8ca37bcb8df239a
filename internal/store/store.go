package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/tripwise/planner/internal/tripplan"
)

var (
	ErrNotFound = errors.New("plan not found")

	// ErrCorruptReport marks a stored row whose report no longer decodes or
	// validates. The row is surfaced as-is; we never silently repair storage.
	ErrCorruptReport = errors.New("stored report is corrupt")
)

// Plan is a persisted planning run: the inputs, the report that was served,
// and whether that report came from the fallback builder.
type Plan struct {
	ID           string                  `json:"id"`
	Locale       tripplan.Locale         `json:"locale"`
	Preferences  tripplan.Preferences    `json:"preferences"`
	Report       tripplan.Report         `json:"report"`
	FromFallback bool                    `json:"from_fallback"`
	Reason       tripplan.FallbackReason `json:"reason,omitempty"`
	Model        string                  `json:"model"`
	ShareToken   string                  `json:"share_token,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
}

type Store struct {
	db *sqlx.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	plan_id       TEXT PRIMARY KEY,
	locale        TEXT NOT NULL DEFAULT 'en',
	preferences   TEXT NOT NULL DEFAULT '{}',
	report        TEXT NOT NULL,
	from_fallback INTEGER NOT NULL DEFAULT 0,
	reason        TEXT NOT NULL DEFAULT '',
	model         TEXT NOT NULL DEFAULT '',
	share_token   TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_plans_share_token ON plans(share_token);
CREATE INDEX IF NOT EXISTS idx_plans_created_at ON plans(created_at);
`

func Open(dbPath string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save persists a plan, assigning an ID and created-at timestamp when the
// caller left them empty. The incoming report must already be valid.
func (s *Store) Save(ctx context.Context, p *Plan) error {
	if err := tripplan.ValidateReport(p.Report); err != nil {
		return fmt.Errorf("refusing to persist invalid report: %w", err)
	}
	if p.ID == "" {
		p.ID = "pl_" + randomHex(12)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.Locale = tripplan.NormalizeLocale(p.Locale)

	_, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO plans
		(plan_id, locale, preferences, report, from_fallback, reason, model, share_token, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		string(p.Locale),
		marshalJSON(p.Preferences),
		marshalJSON(p.Report),
		boolToInt(p.FromFallback),
		string(p.Reason),
		p.Model,
		p.ShareToken,
		timeToString(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save plan: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*Plan, error) {
	return s.getWhere(ctx, "plan_id = ?", id)
}

func (s *Store) GetByShareToken(ctx context.Context, token string) (*Plan, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNotFound
	}
	return s.getWhere(ctx, "share_token = ?", token)
}

// List returns the newest plans first, without their full reports decoded.
// Corrupt rows are included so operators can find them; Get reports the
// corruption when the row is fetched individually.
func (s *Store) List(ctx context.Context, limit int) ([]Plan, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT plan_id, locale, from_fallback, reason, model, share_token, created_at
		FROM plans ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var out []Plan
	for rows.Next() {
		var p Plan
		var locale, reason, createdAt string
		var fallback int
		if err := rows.Scan(&p.ID, &locale, &fallback, &reason, &p.Model, &p.ShareToken, &createdAt); err != nil {
			return nil, err
		}
		p.Locale = tripplan.Locale(locale)
		p.FromFallback = fallback != 0
		p.Reason = tripplan.FallbackReason(reason)
		p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// Share mints (or returns the existing) share token for a plan.
func (s *Store) Share(ctx context.Context, id string) (string, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if p.ShareToken != "" {
		return p.ShareToken, nil
	}
	token := "sh_" + randomHex(16)
	res, err := s.db.ExecContext(ctx, `UPDATE plans SET share_token = ? WHERE plan_id = ?`, token, id)
	if err != nil {
		return "", fmt.Errorf("mint share token: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", ErrNotFound
	}
	return token, nil
}

func (s *Store) getWhere(ctx context.Context, where string, arg string) (*Plan, error) {
	var p Plan
	var locale, prefsJSON, reportJSON, reason, createdAt string
	var fallback int
	err := s.db.QueryRowContext(ctx, `SELECT plan_id, locale, preferences, report, from_fallback, reason, model, share_token, created_at
		FROM plans WHERE `+where, arg).
		Scan(&p.ID, &locale, &prefsJSON, &reportJSON, &fallback, &reason, &p.Model, &p.ShareToken, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}

	p.Locale = tripplan.Locale(locale)
	p.FromFallback = fallback != 0
	p.Reason = tripplan.FallbackReason(reason)
	p.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	_ = json.Unmarshal([]byte(prefsJSON), &p.Preferences)

	if err := json.Unmarshal([]byte(reportJSON), &p.Report); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCorruptReport, p.ID)
	}
	if err := tripplan.ValidateReport(p.Report); err != nil {
		return nil, fmt.Errorf("%w: %s: %s", ErrCorruptReport, p.ID, err)
	}
	return &p, nil
}

func timeToString(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func marshalJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func randomHex(n int) string {
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}
