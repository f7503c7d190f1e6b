// Package localfs implements objectstore.Bucket over a local directory for
// development and tests.
package localfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/prestigeprep/prep/internal/storage/objectstore"
)

// Bucket stores each object as a file below Root.
type Bucket struct {
	root string
	name string
}

var _ objectstore.Bucket = (*Bucket)(nil)

// Open creates root when missing and returns a bucket named name.
func Open(root, name string) (*Bucket, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("local bucket root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve bucket root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create bucket root: %w", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = filepath.Base(abs)
	}
	return &Bucket{root: abs, name: name}, nil
}

// Name returns the bucket name.
func (b *Bucket) Name() string { return b.name }

// Root returns the directory backing the bucket.
func (b *Bucket) Root() string { return b.root }

func (b *Bucket) path(key string) (string, error) {
	clean, err := objectstore.CleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.root, filepath.FromSlash(clean)), nil
}

// Read returns the object bytes.
func (b *Bucket) Read(_ context.Context, key string) ([]byte, error) {
	path, err := b.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", objectstore.ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Write replaces the object atomically via a temp file rename.
func (b *Bucket) Write(_ context.Context, key string, data []byte, _ string) error {
	path, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

// Exists reports whether the object is present.
func (b *Bucket) Exists(_ context.Context, key string) (bool, error) {
	path, err := b.path(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", key, err)
	}
	return !info.IsDir(), nil
}

// Copy duplicates srcKey into dstKey.
func (b *Bucket) Copy(ctx context.Context, srcKey, dstKey string) error {
	data, err := b.Read(ctx, srcKey)
	if err != nil {
		return err
	}
	return b.Write(ctx, dstKey, data, "")
}

// List walks the bucket and returns keys beginning with prefix.
func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(b.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(b.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Attrs reports the directory as a bucket.
func (b *Bucket) Attrs(context.Context) (objectstore.BucketAttrs, error) {
	info, err := os.Stat(b.root)
	if err != nil {
		return objectstore.BucketAttrs{}, fmt.Errorf("stat bucket root: %w", err)
	}
	return objectstore.BucketAttrs{
		Name:         b.name,
		Location:     "local",
		StorageClass: "FILESYSTEM",
		Created:      info.ModTime().UTC(),
	}, nil
}
