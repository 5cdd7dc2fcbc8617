package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/2beens/dailyfit/internal/workout"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// PendingSession is a finished session waiting for an explicit sync.
type PendingSession struct {
	Session   workout.Session `json:"session"`
	Attempts  int             `json:"attempts"`
	LastError string          `json:"lastError,omitempty"`
	QueuedAt  time.Time       `json:"queuedAt"`
}

// Store keeps sessions that could not reach the primary store in a local SQLite file.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the queue database at dir/outbox.db.
func OpenStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating outbox dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "outbox.db"))
	if err != nil {
		return nil, fmt.Errorf("opening outbox db: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS pending_session (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		payload    TEXT NOT NULL,
		attempts   INTEGER NOT NULL DEFAULT 0,
		last_error TEXT NOT NULL DEFAULT '',
		queued_at  TIMESTAMP NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating outbox table: %w", err)
	}

	return &Store{db: db}, nil
}

// Enqueue stores the session, replacing an earlier queued copy with the same id.
func (s *Store) Enqueue(ctx context.Context, session workout.Session, cause error) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.ID, err)
	}

	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO pending_session (id, user_id, payload, attempts, last_error, queued_at)
			VALUES (?, ?, ?, 0, ?, ?)`,
		session.ID.String(), session.UserID.String(), string(payload), lastError, time.Now().UTC(),
	)
	return err
}

// Pending lists the queued sessions of the user, oldest first. A nil user id lists all.
func (s *Store) Pending(ctx context.Context, userID uuid.UUID) ([]PendingSession, error) {
	query := `SELECT payload, attempts, last_error, queued_at FROM pending_session`
	var args []any
	if userID != uuid.Nil {
		query += ` WHERE user_id = ?`
		args = append(args, userID.String())
	}
	query += ` ORDER BY queued_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pending := make([]PendingSession, 0)
	for rows.Next() {
		var p PendingSession
		var payload string
		if err := rows.Scan(&payload, &p.Attempts, &p.LastError, &p.QueuedAt); err != nil {
			return nil, fmt.Errorf("scan pending session: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &p.Session); err != nil {
			return nil, fmt.Errorf("unmarshal pending session: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

func (s *Store) Remove(ctx context.Context, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_session WHERE id = ?`, id.String())
	return err
}

// MarkFailed records one more failed sync attempt.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, cause error) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE pending_session SET attempts = attempts + 1, last_error = ? WHERE id = ?`,
		cause.Error(), id.String(),
	)
	return err
}

func (s *Store) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM pending_session`
	var args []any
	if userID != uuid.Nil {
		query += ` WHERE user_id = ?`
		args = append(args, userID.String())
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
