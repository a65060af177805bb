package store

import (
	"context"
	"sync"
	"time"
)

type memItem struct {
	value      string
	expiration time.Time // zero means no expiry
}

// MemoryKV is an in-process KV used for development and tests
type MemoryKV struct {
	data map[string]memItem
	lock sync.Mutex
	now  func() time.Time
}

// NewMemoryKV creates an empty MemoryKV
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{
		data: map[string]memItem{},
		now:  time.Now,
	}
}

// WithClock overrides the time source, for tests
func (m *MemoryKV) WithClock(now func() time.Time) *MemoryKV {
	m.now = now
	return m
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	item, ok := m.data[key]
	if !ok || m.hasExpired(key, item) {
		return "", ErrNotFound
	}
	return item.value, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	item := memItem{value: value}
	if ttl > 0 {
		item.expiration = m.now().Add(ttl)
	}
	m.data[key] = item
	return nil
}

func (m *MemoryKV) Exists(ctx context.Context, key string) (bool, error) {
	_, err := m.Get(ctx, key)
	if err == ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (m *MemoryKV) Close() error { return nil }

// hasExpired removes the item when it is past its expiration
func (m *MemoryKV) hasExpired(key string, item memItem) bool {
	if item.expiration.IsZero() || m.now().Before(item.expiration) {
		return false
	}
	delete(m.data, key)
	return true
}

// MemoryBlob is an in-process Blob used for development and tests
type MemoryBlob struct {
	data map[string]Object
	lock sync.RWMutex
}

func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{data: map[string]Object{}}
}

func (m *MemoryBlob) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	m.data[key] = Object{Data: buf, ContentType: contentType}
	return nil
}

func (m *MemoryBlob) Get(_ context.Context, key string) (*Object, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	obj, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &obj, nil
}

func (m *MemoryBlob) Head(_ context.Context, key string) (bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	_, ok := m.data[key]
	return ok, nil
}

func (m *MemoryBlob) Close() error { return nil }
