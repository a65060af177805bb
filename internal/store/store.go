// Package store provides the expiring key-value and blob backends that hold
// every piece of shared state: sites, prompts, the gallery index, rate
// counters and screenshots.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or has expired
var ErrNotFound = errors.New("store: key not found")

// KV is an expiring key-value store. A zero ttl means no expiry.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Close() error
}

// Object is a stored blob plus its metadata
type Object struct {
	Data        []byte
	ContentType string
}

// Blob is a content store for binary objects such as screenshots
type Blob interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	// Head reports whether key exists without transferring its bytes
	Head(ctx context.Context, key string) (bool, error)
	Close() error
}
