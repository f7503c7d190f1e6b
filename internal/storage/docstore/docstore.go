// Package docstore defines the document records prep persists outside
// object storage: content set registrations, the current set pointer,
// check-ins, attendance, and drill attempts.
package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// ContentSet registers a generated set. Exam, Path, and Count are optional
// because ingest only knows the storage path.
type ContentSet struct {
	ID        string    `json:"id"`
	GCSPath   string    `json:"gcsPath,omitempty"`
	Exam      string    `json:"exam,omitempty"`
	Count     int       `json:"count"`
	Path      string    `json:"path,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// CurrentSet is the persisted pointer to the set served to drills.
type CurrentSet struct {
	Set string    `json:"set"`
	At  time.Time `json:"at"`
}

// Checkin is one attendance check-in event.
type Checkin struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"-"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Status    string    `json:"status"`
	Note      string    `json:"note"`
	At        time.Time `json:"ts"`
	UserAgent string    `json:"ua"`
	IP        string    `json:"ip,omitempty"`
}

// Attendance is the per-user, per-day record that unlocks drills.
type Attendance struct {
	Day    string    `json:"day"`
	Status string    `json:"status"`
	Note   string    `json:"note,omitempty"`
	At     time.Time `json:"at"`
}

// Attempt is one answered drill item.
type Attempt struct {
	ID        string    `json:"id,omitempty"`
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId,omitempty"`
	Set       string    `json:"set,omitempty"`
	ItemID    string    `json:"itemId"`
	Section   string    `json:"section,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Choice    string    `json:"choice,omitempty"`
	Correct   bool      `json:"correctness"`
	ElapsedMS int64     `json:"elapsedMs,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the document database contract.
type Store interface {
	ListContentSets(ctx context.Context) ([]ContentSet, error)
	AddContentSet(ctx context.Context, set ContentSet) (string, error)

	// SetCurrentSet merges the pointer so unrelated fields survive.
	SetCurrentSet(ctx context.Context, current CurrentSet) error
	GetCurrentSet(ctx context.Context) (CurrentSet, error)

	AddCheckin(ctx context.Context, checkin Checkin) (string, error)
	PutAttendance(ctx context.Context, userID, day string, attendance Attendance) error
	GetAttendance(ctx context.Context, userID, day string) (Attendance, error)

	AddAttempt(ctx context.Context, sessionID string, attempt Attempt) (string, error)
	// RecentAttempts returns up to limit attempts for the session, newest first.
	RecentAttempts(ctx context.Context, sessionID string, limit int) ([]Attempt, error)
	// ListAttemptSessions returns up to limit session ids with attempts.
	ListAttemptSessions(ctx context.Context, limit int) ([]string, error)

	Ping(ctx context.Context) error
	Close() error
}

// DayKey formats t as the YYYY-MM-DD attendance key in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
