// Package objectstore defines the blob storage contract behind content sets
// and drafts. Keys are slash-separated object names relative to a bucket.
package objectstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// ErrInvalidKey is returned for empty or escaping object keys.
var ErrInvalidKey = errors.New("invalid object key")

// JSONContentType is the content type written by WriteJSON.
const JSONContentType = "application/json"

// BucketAttrs summarizes bucket metadata for diagnostics.
type BucketAttrs struct {
	Name         string    `json:"bucket"`
	Location     string    `json:"location,omitempty"`
	StorageClass string    `json:"storageClass,omitempty"`
	Created      time.Time `json:"created,omitzero"`
}

// Bucket reads and writes whole objects.
type Bucket interface {
	// Name returns the bucket name used in gs:// style URIs.
	Name() string
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	Copy(ctx context.Context, srcKey, dstKey string) error
	// List returns every key under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	Attrs(ctx context.Context) (BucketAttrs, error)
}

// ReadJSON decodes the object at key into v.
func ReadJSON(ctx context.Context, bucket Bucket, key string, v any) error {
	data, err := bucket.Read(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// WriteJSON stores v as indented JSON at key.
func WriteJSON(ctx context.Context, bucket Bucket, key string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return bucket.Write(ctx, key, data, JSONContentType)
}

// URI renders a gs:// URI for key in bucket.
func URI(bucket Bucket, key string) string {
	return "gs://" + bucket.Name() + "/" + strings.TrimPrefix(key, "/")
}

// CleanKey normalizes key and rejects keys that are empty, absolute, or
// contain parent segments.
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." || segment == "." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return key, nil
}
