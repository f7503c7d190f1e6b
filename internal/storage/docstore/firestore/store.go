// Package firestore implements docstore.Store on Cloud Firestore.
//
// Layout:
//
//	contentSets/{id}
//	meta/currentSet
//	checkins/{id}
//	users/{uid}/attendance/{YYYY-MM-DD}
//	attempts/{session}/events/{id}
package firestore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/prestigeprep/prep/internal/storage/docstore"
)

const (
	collectionContentSets = "contentSets"
	collectionMeta        = "meta"
	docCurrentSet         = "currentSet"
	collectionCheckins    = "checkins"
	collectionUsers       = "users"
	collectionAttendance  = "attendance"
	collectionAttempts    = "attempts"
	collectionEvents      = "events"
)

// Store is a Firestore-backed document store.
type Store struct {
	client *firestore.Client
	now    func() time.Time
}

var _ docstore.Store = (*Store)(nil)

// Open dials Firestore for projectID. An empty project id lets the client
// detect it from credentials.
func Open(ctx context.Context, projectID string, opts ...option.ClientOption) (*Store, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &Store{client: client, now: time.Now}, nil
}

// Close releases the client.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Ping lists one root collection as a permission check.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.Collections(ctx).Next()
	if err != nil && err != iterator.Done {
		return fmt.Errorf("list collections: %w", err)
	}
	return nil
}

// ListContentSets returns every registered set.
func (s *Store) ListContentSets(ctx context.Context) ([]docstore.ContentSet, error) {
	snaps, err := s.client.Collection(collectionContentSets).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list content sets: %w", err)
	}
	sets := make([]docstore.ContentSet, 0, len(snaps))
	for _, snap := range snaps {
		sets = append(sets, contentSetFromData(snap.Ref.ID, snap.Data()))
	}
	return sets, nil
}

// AddContentSet stores a set registration under a generated id.
func (s *Store) AddContentSet(ctx context.Context, set docstore.ContentSet) (string, error) {
	if set.CreatedAt.IsZero() {
		set.CreatedAt = s.now().UTC()
	}
	data := map[string]any{
		"gcsPath":   set.GCSPath,
		"count":     set.Count,
		"createdAt": set.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if set.Exam != "" {
		data["exam"] = set.Exam
	}
	if set.Path != "" {
		data["path"] = set.Path
	}
	ref, _, err := s.client.Collection(collectionContentSets).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("add content set: %w", err)
	}
	return ref.ID, nil
}

// SetCurrentSet merges {set, at} into meta/currentSet; at is epoch millis.
func (s *Store) SetCurrentSet(ctx context.Context, current docstore.CurrentSet) error {
	if strings.TrimSpace(current.Set) == "" {
		return fmt.Errorf("set name is required")
	}
	if current.At.IsZero() {
		current.At = s.now().UTC()
	}
	_, err := s.client.Collection(collectionMeta).Doc(docCurrentSet).Set(ctx, map[string]any{
		"set": current.Set,
		"at":  current.At.UnixMilli(),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("set current set: %w", err)
	}
	return nil
}

// GetCurrentSet reads meta/currentSet.
func (s *Store) GetCurrentSet(ctx context.Context) (docstore.CurrentSet, error) {
	snap, err := s.client.Collection(collectionMeta).Doc(docCurrentSet).Get(ctx)
	if err != nil {
		return docstore.CurrentSet{}, notFoundOr(err, "get current set")
	}
	data := snap.Data()
	current := docstore.CurrentSet{Set: stringField(data, "set"), At: timeField(data, "at")}
	if current.Set == "" {
		return docstore.CurrentSet{}, docstore.ErrNotFound
	}
	return current, nil
}

// AddCheckin appends to the checkins collection.
func (s *Store) AddCheckin(ctx context.Context, checkin docstore.Checkin) (string, error) {
	if checkin.At.IsZero() {
		checkin.At = s.now().UTC()
	}
	data := map[string]any{
		"email":  checkin.Email,
		"name":   nullable(checkin.Name),
		"status": checkin.Status,
		"note":   checkin.Note,
		"ts":     checkin.At.UTC().Format(time.RFC3339Nano),
		"ua":     checkin.UserAgent,
		"ip":     nullable(checkin.IP),
	}
	if checkin.UserID != "" {
		data["uid"] = checkin.UserID
	}
	ref, _, err := s.client.Collection(collectionCheckins).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("add checkin: %w", err)
	}
	return ref.ID, nil
}

func (s *Store) attendanceDoc(userID, day string) *firestore.DocumentRef {
	return s.client.Collection(collectionUsers).Doc(userID).Collection(collectionAttendance).Doc(day)
}

// PutAttendance merges the day's attendance document.
func (s *Store) PutAttendance(ctx context.Context, userID, day string, attendance docstore.Attendance) error {
	userID, day = strings.TrimSpace(userID), strings.TrimSpace(day)
	if userID == "" || day == "" {
		return fmt.Errorf("user id and day are required")
	}
	if attendance.At.IsZero() {
		attendance.At = s.now().UTC()
	}
	_, err := s.attendanceDoc(userID, day).Set(ctx, map[string]any{
		"status": attendance.Status,
		"note":   attendance.Note,
		"at":     attendance.At.UTC(),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("put attendance: %w", err)
	}
	return nil
}

// GetAttendance reads the day's attendance document.
func (s *Store) GetAttendance(ctx context.Context, userID, day string) (docstore.Attendance, error) {
	userID, day = strings.TrimSpace(userID), strings.TrimSpace(day)
	if userID == "" || day == "" {
		return docstore.Attendance{}, docstore.ErrNotFound
	}
	snap, err := s.attendanceDoc(userID, day).Get(ctx)
	if err != nil {
		return docstore.Attendance{}, notFoundOr(err, "get attendance")
	}
	data := snap.Data()
	return docstore.Attendance{
		Day:    day,
		Status: stringField(data, "status"),
		Note:   stringField(data, "note"),
		At:     timeField(data, "at"),
	}, nil
}

// AddAttempt appends to attempts/{session}/events.
func (s *Store) AddAttempt(ctx context.Context, sessionID string, attempt docstore.Attempt) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", fmt.Errorf("session id is required")
	}
	if attempt.Timestamp.IsZero() {
		attempt.Timestamp = s.now().UTC()
	}
	tags := attempt.Tags
	if tags == nil {
		tags = []string{}
	}
	ref, _, err := s.client.Collection(collectionAttempts).Doc(sessionID).Collection(collectionEvents).Add(ctx, map[string]any{
		"userId":      attempt.UserID,
		"set":         attempt.Set,
		"itemId":      attempt.ItemID,
		"section":     attempt.Section,
		"tags":        tags,
		"choice":      attempt.Choice,
		"correctness": attempt.Correct,
		"elapsedMs":   attempt.ElapsedMS,
		"timestamp":   attempt.Timestamp.UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("add attempt: %w", err)
	}
	return ref.ID, nil
}

// RecentAttempts returns the newest limit events of a session.
func (s *Store) RecentAttempts(ctx context.Context, sessionID string, limit int) ([]docstore.Attempt, error) {
	if limit <= 0 || strings.TrimSpace(sessionID) == "" {
		return nil, nil
	}
	snaps, err := s.client.Collection(collectionAttempts).Doc(sessionID).Collection(collectionEvents).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	attempts := make([]docstore.Attempt, 0, len(snaps))
	for _, snap := range snaps {
		attempts = append(attempts, attemptFromData(sessionID, snap.Ref.ID, snap.Data()))
	}
	return attempts, nil
}

// ListAttemptSessions lists session document references, including ones
// that only exist as parents of events.
func (s *Store) ListAttemptSessions(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, nil
	}
	it := s.client.Collection(collectionAttempts).DocumentRefs(ctx)
	var sessions []string
	for len(sessions) < limit {
		ref, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list attempt sessions: %w", err)
		}
		sessions = append(sessions, ref.ID)
	}
	return sessions, nil
}

func notFoundOr(err error, op string) error {
	if status.Code(err) == codes.NotFound {
		return docstore.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func contentSetFromData(docID string, data map[string]any) docstore.ContentSet {
	return docstore.ContentSet{
		ID:        docID,
		GCSPath:   stringField(data, "gcsPath"),
		Exam:      stringField(data, "exam"),
		Count:     int(intField(data, "count")),
		Path:      stringField(data, "path"),
		CreatedAt: timeField(data, "createdAt"),
	}
}

func attemptFromData(sessionID, docID string, data map[string]any) docstore.Attempt {
	attempt := docstore.Attempt{
		ID:        docID,
		SessionID: sessionID,
		UserID:    stringField(data, "userId"),
		Set:       stringField(data, "set"),
		ItemID:    stringField(data, "itemId"),
		Section:   stringField(data, "section"),
		Choice:    stringField(data, "choice"),
		ElapsedMS: intField(data, "elapsedMs"),
		Timestamp: timeField(data, "timestamp"),
	}
	attempt.Correct, _ = data["correctness"].(bool)
	if raw, ok := data["tags"].([]any); ok {
		for _, tag := range raw {
			if value, ok := tag.(string); ok {
				attempt.Tags = append(attempt.Tags, value)
			}
		}
	}
	return attempt
}

func stringField(data map[string]any, key string) string {
	value, _ := data[key].(string)
	return value
}

func intField(data map[string]any, key string) int64 {
	switch value := data[key].(type) {
	case int64:
		return value
	case int:
		return int64(value)
	case float64:
		return int64(value)
	default:
		return 0
	}
}

// timeField accepts native timestamps, RFC 3339 strings, and epoch millis,
// which are the shapes older documents were written with.
func timeField(data map[string]any, key string) time.Time {
	switch value := data[key].(type) {
	case time.Time:
		return value.UTC()
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, value)
		if err != nil {
			return time.Time{}
		}
		return parsed.UTC()
	case int64, int, float64:
		millis := intField(data, key)
		if millis <= 0 {
			return time.Time{}
		}
		return time.UnixMilli(millis).UTC()
	default:
		return time.Time{}
	}
}

