package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/prestigeprep/prep/internal/platform/id"
	"github.com/prestigeprep/prep/internal/platform/storage/sqlitemigrate"
	"github.com/prestigeprep/prep/internal/storage/docstore"
	"github.com/prestigeprep/prep/internal/storage/docstore/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// Store persists prep documents in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ docstore.Store = (*Store)(nil)

// Open opens and migrates a document SQLite store.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return s.sqlDB.PingContext(ctx)
}

// ListContentSets returns registered sets, newest first.
func (s *Store) ListContentSets(ctx context.Context) ([]docstore.ContentSet, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, gcs_path, exam, item_count, path, created_at
		 FROM content_sets
		 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list content sets: %w", err)
	}
	defer rows.Close()

	var sets []docstore.ContentSet
	for rows.Next() {
		var set docstore.ContentSet
		var createdAt int64
		if err := rows.Scan(&set.ID, &set.GCSPath, &set.Exam, &set.Count, &set.Path, &createdAt); err != nil {
			return nil, fmt.Errorf("scan content set: %w", err)
		}
		set.CreatedAt = unixMillisToTime(createdAt)
		sets = append(sets, set)
	}
	return sets, rows.Err()
}

// AddContentSet registers a set under a generated id.
func (s *Store) AddContentSet(ctx context.Context, set docstore.ContentSet) (string, error) {
	docID, err := id.NewID()
	if err != nil {
		return "", err
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = s.now().UTC()
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO content_sets (id, gcs_path, exam, item_count, path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		docID, set.GCSPath, set.Exam, set.Count, set.Path, timeToUnixMillis(set.CreatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("add content set: %w", err)
	}
	return docID, nil
}

// SetCurrentSet upserts the single current set row.
func (s *Store) SetCurrentSet(ctx context.Context, current docstore.CurrentSet) error {
	if strings.TrimSpace(current.Set) == "" {
		return fmt.Errorf("set name is required")
	}
	if current.At.IsZero() {
		current.At = s.now().UTC()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO current_set (id, set_name, at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET set_name = excluded.set_name, at = excluded.at`,
		current.Set, timeToUnixMillis(current.At),
	)
	if err != nil {
		return fmt.Errorf("set current set: %w", err)
	}
	return nil
}

// GetCurrentSet returns the persisted current set pointer.
func (s *Store) GetCurrentSet(ctx context.Context) (docstore.CurrentSet, error) {
	var current docstore.CurrentSet
	var at int64
	err := s.sqlDB.QueryRowContext(ctx, `SELECT set_name, at FROM current_set WHERE id = 1`).Scan(&current.Set, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.CurrentSet{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.CurrentSet{}, fmt.Errorf("get current set: %w", err)
	}
	current.At = unixMillisToTime(at)
	return current, nil
}

// AddCheckin appends a check-in event.
func (s *Store) AddCheckin(ctx context.Context, checkin docstore.Checkin) (string, error) {
	docID, err := id.NewID()
	if err != nil {
		return "", err
	}
	if checkin.At.IsZero() {
		checkin.At = s.now().UTC()
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO checkins (id, user_id, email, name, status, note, user_agent, ip, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		docID, checkin.UserID, checkin.Email, checkin.Name, checkin.Status, checkin.Note,
		checkin.UserAgent, checkin.IP, timeToUnixMillis(checkin.At),
	)
	if err != nil {
		return "", fmt.Errorf("add checkin: %w", err)
	}
	return docID, nil
}

// PutAttendance upserts the attendance record for a user and day.
func (s *Store) PutAttendance(ctx context.Context, userID, day string, attendance docstore.Attendance) error {
	userID, day = strings.TrimSpace(userID), strings.TrimSpace(day)
	if userID == "" || day == "" {
		return fmt.Errorf("user id and day are required")
	}
	if attendance.At.IsZero() {
		attendance.At = s.now().UTC()
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO attendance (user_id, day, status, note, at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, day) DO UPDATE SET
		    status = excluded.status,
		    note = excluded.note,
		    at = excluded.at`,
		userID, day, attendance.Status, attendance.Note, timeToUnixMillis(attendance.At),
	)
	if err != nil {
		return fmt.Errorf("put attendance: %w", err)
	}
	return nil
}

// GetAttendance loads the attendance record for a user and day.
func (s *Store) GetAttendance(ctx context.Context, userID, day string) (docstore.Attendance, error) {
	attendance := docstore.Attendance{Day: day}
	var at int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT status, note, at FROM attendance WHERE user_id = ? AND day = ?`,
		userID, day,
	).Scan(&attendance.Status, &attendance.Note, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return docstore.Attendance{}, docstore.ErrNotFound
	}
	if err != nil {
		return docstore.Attendance{}, fmt.Errorf("get attendance: %w", err)
	}
	attendance.At = unixMillisToTime(at)
	return attendance, nil
}

// AddAttempt records an answered item under sessionID.
func (s *Store) AddAttempt(ctx context.Context, sessionID string, attempt docstore.Attempt) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("session id is required")
	}
	docID, err := id.NewID()
	if err != nil {
		return "", err
	}
	if attempt.Timestamp.IsZero() {
		attempt.Timestamp = s.now().UTC()
	}
	tags := attempt.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO attempts (id, session_id, user_id, set_name, item_id, section, tags_json, choice, correct, elapsed_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		docID, sessionID, attempt.UserID, attempt.Set, attempt.ItemID, attempt.Section,
		string(tagsJSON), attempt.Choice, boolToInt(attempt.Correct), attempt.ElapsedMS,
		timeToUnixMillis(attempt.Timestamp),
	)
	if err != nil {
		return "", fmt.Errorf("add attempt: %w", err)
	}
	return docID, nil
}

// RecentAttempts returns up to limit attempts for sessionID, newest first.
func (s *Store) RecentAttempts(ctx context.Context, sessionID string, limit int) ([]docstore.Attempt, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, session_id, user_id, set_name, item_id, section, tags_json, choice, correct, elapsed_ms, created_at
		 FROM attempts
		 WHERE session_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []docstore.Attempt
	for rows.Next() {
		var attempt docstore.Attempt
		var tagsJSON string
		var correct int64
		var createdAt int64
		if err := rows.Scan(
			&attempt.ID,
			&attempt.SessionID,
			&attempt.UserID,
			&attempt.Set,
			&attempt.ItemID,
			&attempt.Section,
			&tagsJSON,
			&attempt.Choice,
			&correct,
			&attempt.ElapsedMS,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &attempt.Tags); err != nil {
			return nil, fmt.Errorf("decode attempt tags: %w", err)
		}
		attempt.Correct = correct != 0
		attempt.Timestamp = unixMillisToTime(createdAt)
		attempts = append(attempts, attempt)
	}
	return attempts, rows.Err()
}

// ListAttemptSessions returns session ids ordered by their latest attempt.
func (s *Store) ListAttemptSessions(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT session_id FROM attempts
		 GROUP BY session_id
		 ORDER BY MAX(created_at) DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempt sessions: %w", err)
	}
	defer rows.Close()

	var sessions []string
	for rows.Next() {
		var sessionID string
		if err := rows.Scan(&sessionID); err != nil {
			return nil, fmt.Errorf("scan attempt session: %w", err)
		}
		sessions = append(sessions, sessionID)
	}
	return sessions, rows.Err()
}

func boolToInt(value bool) int64 {
	if value {
		return 1
	}
	return 0
}

func timeToUnixMillis(value time.Time) int64 {
	if value.IsZero() {
		return 0
	}
	return value.UTC().UnixMilli()
}

func unixMillisToTime(value int64) time.Time {
	if value <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(value).UTC()
}
