package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prestigeprep/prep/internal/platform/logging"
	"github.com/prestigeprep/prep/internal/storage/docstore"
	"github.com/prestigeprep/prep/internal/storage/objectstore"
)

// ErrNotFound is returned when a set or draft object is missing.
var ErrNotFound = errors.New("content not found")

// ErrInvalidInput is returned for requests missing required fields.
var ErrInvalidInput = errors.New("invalid content request")

// metadataFetchLimit bounds concurrent metadata.json reads while listing.
const metadataFetchLimit = 8

// SetMeta describes one set in the catalog.
type SetMeta struct {
	ID        string `json:"id"`
	Exam      string `json:"exam,omitempty"`
	Count     int    `json:"count,omitempty"`
	Path      string `json:"path,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// DraftIndex is the index document next to draft and promoted items.
type DraftIndex struct {
	Name  string `json:"name"`
	Exam  string `json:"exam"`
	Count int    `json:"count"`
}

// LoadResult reports a set that became current.
type LoadResult struct {
	Set   string `json:"set"`
	Count int    `json:"count"`
}

// MarshalJSON writes a null set when nothing is loaded.
func (r LoadResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Set   *string `json:"set"`
		Count int     `json:"count"`
	}{Set: setOrNull(r.Set), Count: r.Count})
}

// DraftResult reports where a pushed draft was written.
type DraftResult struct {
	ItemsPath string     `json:"items"`
	IndexPath string     `json:"index"`
	Index     DraftIndex `json:"-"`
}

// DraftDocument is a raw draft file.
type DraftDocument struct {
	Set  string          `json:"set"`
	Path string          `json:"path"`
	Data json.RawMessage `json:"data"`
}

// BuildResult reports a promoted set.
type BuildResult struct {
	Set       string `json:"set"`
	ItemsPath string `json:"sItems"`
	IndexPath string `json:"sIndex"`
	Count     int    `json:"count"`
}

// Service implements the content catalog and draft workflows.
type Service struct {
	bucket objectstore.Bucket
	store  docstore.Store
	cache  *Cache
	logger *zap.Logger
	now    func() time.Time

	// loadMu serializes LoadSet so concurrent imports cannot interleave
	// cache replacement and the persisted pointer.
	loadMu sync.Mutex
}

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Bucket objectstore.Bucket
	Store  docstore.Store
	Cache  *Cache
	Logger *zap.Logger
	Now    func() time.Time
}

// NewService validates cfg and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Bucket == nil {
		return nil, errors.New("object bucket is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("document store is required")
	}
	if cfg.Cache == nil {
		cfg.Cache = NewCache()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		bucket: cfg.Bucket,
		store:  cfg.Store,
		cache:  cfg.Cache,
		logger: logging.OrNop(cfg.Logger),
		now:    cfg.Now,
	}, nil
}

// BucketName returns the backing bucket name.
func (s *Service) BucketName() string { return s.bucket.Name() }

// Current reports the current set name and size.
func (s *Service) Current() LoadResult {
	current := s.cache.Load()
	return LoadResult{Set: current.Set, Count: len(current.Items)}
}

// Items pages the current set.
func (s *Service) Items(offset, limit int) Page {
	return s.cache.Page(offset, limit)
}

// Item returns one item of the current set by id.
func (s *Service) Item(id string) (Item, bool) {
	return s.cache.Find(id)
}

// ListSets lists registered sets from the document store, falling back to
// scanning object storage when none are registered or the store fails.
func (s *Service) ListSets(ctx context.Context) ([]SetMeta, error) {
	registered, err := s.store.ListContentSets(ctx)
	if err != nil {
		s.logger.Warn("list content sets from document store", zap.Error(err))
	}
	if len(registered) > 0 {
		sets := make([]SetMeta, 0, len(registered))
		for _, rec := range registered {
			meta := SetMeta{ID: rec.ID, Exam: rec.Exam, Count: rec.Count, Path: rec.Path}
			if meta.Path == "" {
				meta.Path = rec.GCSPath
			}
			if !rec.CreatedAt.IsZero() {
				meta.CreatedAt = rec.CreatedAt.UTC().Format(time.RFC3339)
			}
			sets = append(sets, meta)
		}
		return sets, nil
	}

	sets, err := s.scanSets(ctx)
	if err != nil {
		s.logger.Warn("list content sets from object storage", zap.Error(err))
		return []SetMeta{}, nil
	}
	return sets, nil
}

func (s *Service) scanSets(ctx context.Context) ([]SetMeta, error) {
	keys, err := s.bucket.List(ctx, SetsPrefix)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var ids []string
	for _, key := range keys {
		if id, ok := SetIDFromKey(key); ok && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))

	sets := make([]SetMeta, len(ids))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(metadataFetchLimit)
	for idx, id := range ids {
		sets[idx] = SetMeta{ID: id, Path: objectstore.URI(s.bucket, SetDir(id))}
		group.Go(func() error {
			var meta struct {
				Exam  string `json:"exam"`
				Count int    `json:"count"`
			}
			if err := objectstore.ReadJSON(groupCtx, s.bucket, SetMetadataPath(id), &meta); err != nil {
				if !errors.Is(err, objectstore.ErrNotFound) {
					s.logger.Debug("read set metadata", zap.String("set", id), zap.Error(err))
				}
				return nil
			}
			sets[idx].Exam = meta.Exam
			sets[idx].Count = meta.Count
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return sets, nil
}

// LoadSet reads a set, makes it current, and persists the pointer. Generated
// sets live under content/sets as JSONL; promoted sets under sets/ as a JSON
// array are used when no generated set exists.
func (s *Service) LoadSet(ctx context.Context, id string) (LoadResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return LoadResult{}, fmt.Errorf("%w: missing set id", ErrInvalidInput)
	}
	if err := ValidateSetName(id); err != nil {
		return LoadResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	items, err := s.readSetItems(ctx, id)
	if err != nil {
		return LoadResult{}, err
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	now := s.now().UTC()
	s.cache.Replace(id, items, now)
	if err := s.store.SetCurrentSet(ctx, docstore.CurrentSet{Set: id, At: now}); err != nil {
		s.logger.Warn("persist current set", zap.String("set", id), zap.Error(err))
	}
	s.logger.Info("loaded content set", zap.String("set", id), zap.Int("count", len(items)))
	return LoadResult{Set: id, Count: len(items)}, nil
}

func (s *Service) readSetItems(ctx context.Context, id string) ([]Item, error) {
	data, err := s.bucket.Read(ctx, SetItemsPath(id))
	if err == nil {
		items, err := ParseJSONL(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", SetItemsPath(id), err)
		}
		return items, nil
	}
	if !errors.Is(err, objectstore.ErrNotFound) {
		return nil, fmt.Errorf("read set %s: %w", id, err)
	}

	data, err = s.bucket.Read(ctx, PromotedItemsPath(id))
	if errors.Is(err, objectstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: set %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read set %s: %w", id, err)
	}
	items, err := ParseJSONArray(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", PromotedItemsPath(id), err)
	}
	return items, nil
}

// RestoreCurrent reloads the persisted current set. It reports false when
// nothing was persisted.
func (s *Service) RestoreCurrent(ctx context.Context) (bool, error) {
	current, err := s.store.GetCurrentSet(ctx)
	if errors.Is(err, docstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read current set: %w", err)
	}
	if _, err := s.LoadSet(ctx, current.Set); err != nil {
		return false, err
	}
	return true, nil
}

// Ingest registers a set by storage path.
func (s *Service) Ingest(ctx context.Context, gcsPath string, count int) (string, error) {
	gcsPath = strings.TrimSpace(gcsPath)
	if gcsPath == "" {
		return "", fmt.Errorf("%w: gcsPath required", ErrInvalidInput)
	}
	return s.store.AddContentSet(ctx, docstore.ContentSet{
		GCSPath:   gcsPath,
		Count:     max(count, 0),
		CreatedAt: s.now().UTC(),
	})
}

// PushDraft writes a draft's items and index.
func (s *Service) PushDraft(ctx context.Context, set string, items []Item) (DraftResult, error) {
	if err := s.validateName(set); err != nil {
		return DraftResult{}, err
	}
	if items == nil {
		return DraftResult{}, fmt.Errorf("%w: missing setName and/or items[]", ErrInvalidInput)
	}
	result := DraftResult{
		ItemsPath: DraftItemsPath(set),
		IndexPath: DraftIndexPath(set),
		Index:     DraftIndex{Name: set, Exam: ExamOf(items), Count: len(items)},
	}
	if err := objectstore.WriteJSON(ctx, s.bucket, result.ItemsPath, items); err != nil {
		return DraftResult{}, err
	}
	if err := objectstore.WriteJSON(ctx, s.bucket, result.IndexPath, result.Index); err != nil {
		return DraftResult{}, err
	}
	return result, nil
}

// ReadDraft returns a draft file, items.json when file is empty.
func (s *Service) ReadDraft(ctx context.Context, set, file string) (DraftDocument, error) {
	if err := s.validateName(set); err != nil {
		return DraftDocument{}, err
	}
	if file = strings.TrimSpace(file); file == "" {
		file = DraftItemsFile
	}
	if err := ValidateDraftFile(file); err != nil {
		return DraftDocument{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	key := DraftFilePath(set, file)
	data, err := s.bucket.Read(ctx, key)
	if errors.Is(err, objectstore.ErrNotFound) {
		return DraftDocument{}, fmt.Errorf("%w: Not found: %s", ErrNotFound, key)
	}
	if err != nil {
		return DraftDocument{}, err
	}
	if !json.Valid(data) {
		return DraftDocument{}, fmt.Errorf("draft %s is not valid JSON", key)
	}
	return DraftDocument{Set: set, Path: key, Data: data}, nil
}

// BuildSet promotes a draft to sets/<name>/ and makes it the persisted
// current set.
func (s *Service) BuildSet(ctx context.Context, set string) (BuildResult, error) {
	if err := s.validateName(set); err != nil {
		return BuildResult{}, err
	}
	draftItems := DraftItemsPath(set)
	ok, err := s.bucket.Exists(ctx, draftItems)
	if err != nil {
		return BuildResult{}, err
	}
	if !ok {
		return BuildResult{}, fmt.Errorf("%w: Missing draft: %s", ErrNotFound, draftItems)
	}

	index := DraftIndex{Name: set, Exam: DefaultExam}
	if err := objectstore.ReadJSON(ctx, s.bucket, DraftIndexPath(set), &index); err != nil && !errors.Is(err, objectstore.ErrNotFound) {
		return BuildResult{}, err
	}
	if data, err := s.bucket.Read(ctx, draftItems); err == nil {
		if items, err := ParseJSONArray(data); err == nil {
			index.Count = len(items)
		} else {
			s.logger.Warn("draft items unreadable, keeping index count", zap.String("set", set), zap.Error(err))
		}
	}

	result := BuildResult{Set: set, ItemsPath: PromotedItemsPath(set), IndexPath: PromotedIndexPath(set), Count: index.Count}
	if err := s.bucket.Copy(ctx, draftItems, result.ItemsPath); err != nil {
		return BuildResult{}, err
	}
	if err := objectstore.WriteJSON(ctx, s.bucket, result.IndexPath, index); err != nil {
		return BuildResult{}, err
	}
	if err := s.store.SetCurrentSet(ctx, docstore.CurrentSet{Set: set, At: s.now().UTC()}); err != nil {
		return BuildResult{}, err
	}
	return result, nil
}

func (s *Service) validateName(set string) error {
	if strings.TrimSpace(set) == "" {
		return fmt.Errorf("%w: missing setName/set", ErrInvalidInput)
	}
	if err := ValidateSetName(set); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}
