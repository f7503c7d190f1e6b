// Package gcs implements objectstore.Bucket on Google Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/prestigeprep/prep/internal/platform/timeouts"
	"github.com/prestigeprep/prep/internal/storage/objectstore"
)

// objectIterator is the subset of *storage.ObjectIterator used for listing.
type objectIterator interface {
	Next() (*storage.ObjectAttrs, error)
}

// bucketClient isolates the storage calls so tests can substitute a fake.
type bucketClient interface {
	NewReader(ctx context.Context, name string) (io.ReadCloser, error)
	NewWriter(ctx context.Context, name, contentType string) io.WriteCloser
	ObjectAttrs(ctx context.Context, name string) (*storage.ObjectAttrs, error)
	Copy(ctx context.Context, src, dst string) error
	Query(ctx context.Context, q *storage.Query) objectIterator
	BucketAttrs(ctx context.Context) (*storage.BucketAttrs, error)
	Close() error
}

type storageClient struct {
	client *storage.Client
	handle *storage.BucketHandle
}

func (c storageClient) NewReader(ctx context.Context, name string) (io.ReadCloser, error) {
	return c.handle.Object(name).NewReader(ctx)
}

func (c storageClient) NewWriter(ctx context.Context, name, contentType string) io.WriteCloser {
	w := c.handle.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	return w
}

func (c storageClient) ObjectAttrs(ctx context.Context, name string) (*storage.ObjectAttrs, error) {
	return c.handle.Object(name).Attrs(ctx)
}

func (c storageClient) Copy(ctx context.Context, src, dst string) error {
	_, err := c.handle.Object(dst).CopierFrom(c.handle.Object(src)).Run(ctx)
	return err
}

func (c storageClient) Query(ctx context.Context, q *storage.Query) objectIterator {
	return c.handle.Objects(ctx, q)
}

func (c storageClient) BucketAttrs(ctx context.Context) (*storage.BucketAttrs, error) {
	return c.handle.Attrs(ctx)
}

func (c storageClient) Close() error {
	return c.client.Close()
}

// Bucket is a Cloud Storage bucket.
type Bucket struct {
	client  bucketClient
	name    string
	timeout time.Duration
}

var _ objectstore.Bucket = (*Bucket)(nil)

// Open connects to bucket name with the given client options.
func Open(ctx context.Context, name string, opts ...option.ClientOption) (*Bucket, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("bucket name is required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage.NewClient: %w", err)
	}
	return newBucket(storageClient{client: client, handle: client.Bucket(name)}, name), nil
}

func newBucket(client bucketClient, name string) *Bucket {
	return &Bucket{client: client, name: name, timeout: timeouts.StorageCall}
}

// Name returns the bucket name.
func (b *Bucket) Name() string { return b.name }

// Close releases the storage client.
func (b *Bucket) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}

func (b *Bucket) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, b.timeout)
}

// Read downloads the whole object.
func (b *Bucket) Read(ctx context.Context, key string) ([]byte, error) {
	key, err := objectstore.CleanKey(key)
	if err != nil {
		return nil, err
	}
	ctx, cancel := b.callContext(ctx)
	defer cancel()

	r, err := b.client.NewReader(ctx, key)
	if err != nil {
		return nil, translate(err, key)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gs://%s/%s: %w", b.name, key, err)
	}
	return data, nil
}

// Write uploads data, replacing any existing object.
func (b *Bucket) Write(ctx context.Context, key string, data []byte, contentType string) error {
	key, err := objectstore.CleanKey(key)
	if err != nil {
		return err
	}
	ctx, cancel := b.callContext(ctx)
	defer cancel()

	w := b.client.NewWriter(ctx, key, contentType)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("write gs://%s/%s: %w", b.name, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close gs://%s/%s: %w", b.name, key, err)
	}
	return nil
}

// Exists reports whether the object is present.
func (b *Bucket) Exists(ctx context.Context, key string) (bool, error) {
	key, err := objectstore.CleanKey(key)
	if err != nil {
		return false, err
	}
	ctx, cancel := b.callContext(ctx)
	defer cancel()

	_, err = b.client.ObjectAttrs(ctx, key)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("attrs gs://%s/%s: %w", b.name, key, err)
	}
	return true, nil
}

// Copy performs a server-side copy within the bucket.
func (b *Bucket) Copy(ctx context.Context, srcKey, dstKey string) error {
	src, err := objectstore.CleanKey(srcKey)
	if err != nil {
		return err
	}
	dst, err := objectstore.CleanKey(dstKey)
	if err != nil {
		return err
	}
	ctx, cancel := b.callContext(ctx)
	defer cancel()

	if err := b.client.Copy(ctx, src, dst); err != nil {
		return translate(err, src)
	}
	return nil
}

// List returns object names under prefix.
func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := b.callContext(ctx)
	defer cancel()

	q := &storage.Query{Prefix: prefix}
	if err := q.SetAttrSelection([]string{"Name"}); err != nil {
		return nil, fmt.Errorf("select attrs: %w", err)
	}
	it := b.client.Query(ctx, q)
	var keys []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs://%s/%s: %w", b.name, prefix, err)
		}
		if attrs.Name != "" {
			keys = append(keys, attrs.Name)
		}
	}
	return keys, nil
}

// Attrs returns bucket metadata.
func (b *Bucket) Attrs(ctx context.Context) (objectstore.BucketAttrs, error) {
	ctx, cancel := b.callContext(ctx)
	defer cancel()

	attrs, err := b.client.BucketAttrs(ctx)
	if err != nil {
		return objectstore.BucketAttrs{}, fmt.Errorf("bucket attrs %s: %w", b.name, err)
	}
	return objectstore.BucketAttrs{
		Name:         attrs.Name,
		Location:     attrs.Location,
		StorageClass: attrs.StorageClass,
		Created:      attrs.Created,
	}, nil
}

func translate(err error, key string) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", objectstore.ErrNotFound, key)
	}
	return fmt.Errorf("gcs %s: %w", key, err)
}
