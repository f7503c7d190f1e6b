package practice

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/content"
	"github.com/prestigeprep/prep/internal/platform/logging"
	"github.com/prestigeprep/prep/internal/platform/requestctx"
	"github.com/prestigeprep/prep/internal/storage/docstore"
)

// ErrInvalidInput is returned for malformed check-ins and attempts.
var ErrInvalidInput = errors.New("invalid practice request")

const (
	// DefaultStatus is recorded when a check-in names no status.
	DefaultStatus = "present"
	maxUserAgent  = 512
	maxNote       = 2000

	// LockReason explains a locked drill runner.
	LockReason = "No check-in for today. Please check in first."

	streakLookback = 365

	recommendSessions = 3
	recommendEvents   = 50
	recommendMinTotal = 3
	recommendTop      = 8
)

// Service records practice activity in the document store.
type Service struct {
	store  docstore.Store
	logger *zap.Logger
	now    func() time.Time
	strict bool
}

// Config configures a Service.
type Config struct {
	Store  docstore.Store
	Logger *zap.Logger
	Now    func() time.Time
	// StrictLocks gates drills behind a same-day check-in.
	StrictLocks bool
}

// NewService validates cfg.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("document store is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{store: cfg.Store, logger: logging.OrNop(cfg.Logger), now: cfg.Now, strict: cfg.StrictLocks}, nil
}

// StrictLocks reports whether drills require a check-in.
func (s *Service) StrictLocks() bool { return s.strict }

// CheckinInput is the caller-supplied part of a check-in.
type CheckinInput struct {
	Status    string
	Note      string
	UserAgent string
	IP        string
}

// Checkin appends to the check-in log and marks today's attendance.
func (s *Service) Checkin(ctx context.Context, who requestctx.Principal, in CheckinInput) (docstore.Checkin, error) {
	if !who.Authenticated() {
		return docstore.Checkin{}, fmt.Errorf("%w: user required", ErrInvalidInput)
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = DefaultStatus
	}
	if len(in.Note) > maxNote {
		return docstore.Checkin{}, fmt.Errorf("%w: note too long", ErrInvalidInput)
	}
	now := s.now().UTC()
	checkin := docstore.Checkin{
		UserID:    who.UserID,
		Email:     who.Email,
		Name:      who.Name,
		Status:    status,
		Note:      in.Note,
		At:        now,
		UserAgent: truncate(in.UserAgent, maxUserAgent),
		IP:        strings.TrimSpace(in.IP),
	}
	id, err := s.store.AddCheckin(ctx, checkin)
	if err != nil {
		return docstore.Checkin{}, fmt.Errorf("add checkin: %w", err)
	}
	checkin.ID = id
	day := docstore.DayKey(now)
	if err := s.store.PutAttendance(ctx, who.UserID, day, docstore.Attendance{Day: day, Status: status, Note: in.Note, At: now}); err != nil {
		return docstore.Checkin{}, fmt.Errorf("put attendance: %w", err)
	}
	s.logger.Info("checked in", zap.String("user", who.UserID), zap.String("day", day))
	return checkin, nil
}

// Lock is the drill gate for one user today.
type Lock struct {
	CanDrill bool   `json:"canDrill"`
	Reason   string `json:"reason,omitempty"`
}

// Locks reports today's attendance gate for userID. It always reflects
// attendance; DrillGate decides whether the gate is enforced.
func (s *Service) Locks(ctx context.Context, userID string) (Lock, error) {
	_, err := s.store.GetAttendance(ctx, userID, docstore.DayKey(s.now()))
	if errors.Is(err, docstore.ErrNotFound) {
		return Lock{CanDrill: false, Reason: LockReason}, nil
	}
	if err != nil {
		return Lock{}, fmt.Errorf("read attendance: %w", err)
	}
	return Lock{CanDrill: true}, nil
}

// DrillGate is Locks when strict locks are on and always open otherwise.
func (s *Service) DrillGate(ctx context.Context, userID string) (Lock, error) {
	if !s.strict {
		return Lock{CanDrill: true}, nil
	}
	return s.Locks(ctx, userID)
}

// CheckedInToday reports whether userID has attendance for today.
func (s *Service) CheckedInToday(ctx context.Context, userID string) (bool, error) {
	_, err := s.store.GetAttendance(ctx, userID, docstore.DayKey(s.now()))
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Streak counts consecutive attendance days ending today, or ending
// yesterday when today has no check-in yet.
func (s *Service) Streak(ctx context.Context, userID string) (int, error) {
	day := s.now().UTC()
	streak := 0
	for i := 0; i < streakLookback; i++ {
		_, err := s.store.GetAttendance(ctx, userID, docstore.DayKey(day))
		if errors.Is(err, docstore.ErrNotFound) {
			if i == 0 {
				day = day.AddDate(0, 0, -1)
				continue
			}
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read attendance: %w", err)
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak, nil
}

// AttemptInput is one answer submitted from the drill runner.
type AttemptInput struct {
	SessionID string
	ItemID    string
	Choice    string
	StartedAt time.Time
}

// AttemptResult is a recorded attempt plus the item it answered.
type AttemptResult struct {
	Attempt docstore.Attempt
	Item    content.Item
}

// ItemSource resolves items of the current set.
type ItemSource interface {
	Current() content.LoadResult
	Item(id string) (content.Item, bool)
}

// RecordAttempt scores an answer against the current set and stores it.
// The session defaults to the user id.
func (s *Service) RecordAttempt(ctx context.Context, who requestctx.Principal, items ItemSource, in AttemptInput) (AttemptResult, error) {
	if !who.Authenticated() {
		return AttemptResult{}, fmt.Errorf("%w: user required", ErrInvalidInput)
	}
	itemID := strings.TrimSpace(in.ItemID)
	if itemID == "" {
		return AttemptResult{}, fmt.Errorf("%w: itemId required", ErrInvalidInput)
	}
	item, ok := items.Item(itemID)
	if !ok {
		return AttemptResult{}, fmt.Errorf("%w: unknown item %s", ErrInvalidInput, itemID)
	}
	session := strings.TrimSpace(in.SessionID)
	if session == "" {
		session = who.UserID
	}
	now := s.now().UTC()
	attempt := docstore.Attempt{
		SessionID: session,
		UserID:    who.UserID,
		Set:       items.Current().Set,
		ItemID:    itemID,
		Section:   item.Section(),
		Tags:      item.Tags(),
		Choice:    strings.TrimSpace(in.Choice),
		Correct:   item.IsCorrect(in.Choice),
		Timestamp: now,
	}
	if !in.StartedAt.IsZero() && in.StartedAt.Before(now) {
		attempt.ElapsedMS = now.Sub(in.StartedAt).Milliseconds()
	}
	id, err := s.store.AddAttempt(ctx, session, attempt)
	if err != nil {
		return AttemptResult{}, fmt.Errorf("add attempt: %w", err)
	}
	attempt.ID = id
	return AttemptResult{Attempt: attempt, Item: item}, nil
}

// WeakArea is one tag/section bucket of recent attempts.
type WeakArea struct {
	Key      string  `json:"key"`
	Wrong    int     `json:"wrong"`
	Total    int     `json:"total"`
	Accuracy float64 `json:"acc"`
}

// Recommend ranks weak areas from recent attempts. The user's own session
// is read first, then other recent sessions up to three in total.
func (s *Service) Recommend(ctx context.Context, userID string) ([]WeakArea, error) {
	sessions := make([]string, 0, recommendSessions)
	if userID != "" {
		sessions = append(sessions, userID)
	}
	others, err := s.store.ListAttemptSessions(ctx, recommendSessions+1)
	if err != nil {
		return nil, fmt.Errorf("list attempt sessions: %w", err)
	}
	for _, id := range others {
		if len(sessions) == recommendSessions {
			break
		}
		if id != userID {
			sessions = append(sessions, id)
		}
	}

	var attempts []docstore.Attempt
	for _, session := range sessions {
		recent, err := s.store.RecentAttempts(ctx, session, recommendEvents)
		if err != nil {
			return nil, fmt.Errorf("recent attempts %s: %w", session, err)
		}
		attempts = append(attempts, recent...)
	}
	return RankWeakAreas(attempts), nil
}

// RankWeakAreas buckets attempts by tags and section, keeps buckets with
// at least three attempts, and returns the eight least accurate.
func RankWeakAreas(attempts []docstore.Attempt) []WeakArea {
	type bucket struct{ wrong, total int }
	buckets := make(map[string]*bucket)
	for _, a := range attempts {
		key := AreaKey(a.Tags, a.Section)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.total++
		if !a.Correct {
			b.wrong++
		}
	}

	areas := make([]WeakArea, 0, len(buckets))
	for key, b := range buckets {
		if b.total < recommendMinTotal {
			continue
		}
		areas = append(areas, WeakArea{
			Key:      key,
			Wrong:    b.wrong,
			Total:    b.total,
			Accuracy: 1 - float64(b.wrong)/float64(b.total),
		})
	}
	sort.Slice(areas, func(i, j int) bool {
		if areas[i].Accuracy != areas[j].Accuracy {
			return areas[i].Accuracy < areas[j].Accuracy
		}
		if areas[i].Total != areas[j].Total {
			return areas[i].Total > areas[j].Total
		}
		return areas[i].Key < areas[j].Key
	})
	if len(areas) > recommendTop {
		areas = areas[:recommendTop]
	}
	return areas
}

// AreaKey joins tags and section with " / ".
func AreaKey(tags []string, section string) string {
	if strings.TrimSpace(section) == "" {
		section = "Unknown"
	}
	parts := make([]string, 0, len(tags)+1)
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			parts = append(parts, tag)
		}
	}
	parts = append(parts, section)
	key := strings.Join(parts, " / ")
	if key == "" {
		return "Unlabeled"
	}
	return key
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
