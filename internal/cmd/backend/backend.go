// Package backend opens the storage and domain services shared by the web
// server and contentctl.
package backend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/prestigeprep/prep/internal/content"
	"github.com/prestigeprep/prep/internal/platform/gcp"
	"github.com/prestigeprep/prep/internal/platform/logging"
	"github.com/prestigeprep/prep/internal/practice"
	"github.com/prestigeprep/prep/internal/storage/docstore"
	"github.com/prestigeprep/prep/internal/storage/docstore/firestore"
	"github.com/prestigeprep/prep/internal/storage/docstore/sqlite"
	"github.com/prestigeprep/prep/internal/storage/objectstore"
	"github.com/prestigeprep/prep/internal/storage/objectstore/gcs"
	"github.com/prestigeprep/prep/internal/storage/objectstore/localfs"
)

// Document store drivers.
const (
	DriverFirestore = "firestore"
	DriverSQLite    = "sqlite"
)

// Config selects object and document storage.
type Config struct {
	Bucket string `env:"PREP_GCS_BUCKET"`
	// LocalDir serves the bucket from a directory instead of Cloud Storage.
	LocalDir    string `env:"PREP_LOCAL_BUCKET_DIR"`
	DocStore    string `env:"PREP_DOCSTORE" envDefault:"firestore"`
	SQLitePath  string `env:"PREP_SQLITE_PATH" envDefault:"data/prep.db"`
	StrictLocks bool   `env:"PREP_STRICT_LOCKS"`

	GCP gcp.Settings
}

// Validate reports configuration that Open would reject.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Bucket) == "" && strings.TrimSpace(c.LocalDir) == "" {
		return errors.New("PREP_GCS_BUCKET or PREP_LOCAL_BUCKET_DIR is required")
	}
	switch c.driver() {
	case DriverFirestore:
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return errors.New("sqlite path is required")
		}
	default:
		return fmt.Errorf("unknown document store %q", c.DocStore)
	}
	return nil
}

func (c Config) driver() string {
	return strings.ToLower(strings.TrimSpace(c.DocStore))
}

// Backend holds opened storage and the services built over it.
type Backend struct {
	Bucket   objectstore.Bucket
	Store    docstore.Store
	Content  *content.Service
	Practice *practice.Service

	closers []func() error
}

// Options tweak Open.
type Options struct {
	Logger *zap.Logger
	Now    func() time.Time
}

// Open connects storage and builds the content and practice services. The
// caller must Close the result.
func Open(ctx context.Context, cfg Config, opts Options) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.OrNop(opts.Logger)
	b := &Backend{}

	bucket, err := openBucket(ctx, cfg)
	if err != nil {
		return nil, err
	}
	b.Bucket = bucket
	if c, ok := bucket.(interface{ Close() error }); ok {
		b.closers = append(b.closers, c.Close)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Store = store
	b.closers = append(b.closers, store.Close)

	b.Content, err = content.NewService(content.ServiceConfig{
		Bucket: bucket,
		Store:  store,
		Logger: logger.Named("content"),
		Now:    opts.Now,
	})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("content service: %w", err)
	}
	b.Practice, err = practice.NewService(practice.Config{
		Store:       store,
		Logger:      logger.Named("practice"),
		Now:         opts.Now,
		StrictLocks: cfg.StrictLocks,
	})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("practice service: %w", err)
	}

	logger.Info("storage ready",
		zap.String("bucket", bucket.Name()),
		zap.Bool("local_bucket", cfg.LocalDir != ""),
		zap.String("docstore", cfg.driver()),
		zap.String("credentials", cfg.GCP.CredentialSource()),
	)
	return b, nil
}

func openBucket(ctx context.Context, cfg Config) (objectstore.Bucket, error) {
	if dir := strings.TrimSpace(cfg.LocalDir); dir != "" {
		bucket, err := localfs.Open(dir, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("open local bucket: %w", err)
		}
		return bucket, nil
	}
	clientOpts, err := cfg.GCP.ClientOptions()
	if err != nil {
		return nil, fmt.Errorf("gcp credentials: %w", err)
	}
	bucket, err := gcs.Open(ctx, cfg.Bucket, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("open gcs bucket: %w", err)
	}
	return bucket, nil
}

func openStore(ctx context.Context, cfg Config) (docstore.Store, error) {
	if cfg.driver() == DriverSQLite {
		path := filepath.Clean(cfg.SQLitePath)
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create storage dir: %w", err)
			}
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	}
	clientOpts, err := cfg.GCP.GRPCClientOptions()
	if err != nil {
		return nil, fmt.Errorf("gcp credentials: %w", err)
	}
	store, err := firestore.Open(ctx, cfg.GCP.ProjectID, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("open firestore: %w", err)
	}
	return store, nil
}

// Close releases storage clients in reverse open order.
func (b *Backend) Close() error {
	if b == nil {
		return nil
	}
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
