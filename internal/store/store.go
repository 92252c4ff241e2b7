// Package store defines the durable key-value byte store the catalog
// persists icon sets to.
//
// Keys are slash-separated paths; a namespace is a key prefix ending at a
// path boundary, so DeleteNamespace("collections") removes
// "collections/mdi" but not "collections-old".
package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
)

// ErrNotFound is returned by Read for a missing key.
var ErrNotFound = errors.New("store: key not found")

// Store is a scoped key-value byte store.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
	// DeleteNamespace removes namespace itself and every key below it.
	DeleteNamespace(ctx context.Context, namespace string) error
	// List returns keys starting with prefix (plain string prefix), sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Join builds a key from path segments.
func Join(parts ...string) string {
	return strings.Join(parts, "/")
}

// InNamespace reports whether key is namespace or lies below it.
func InNamespace(key, namespace string) bool {
	return key == namespace || strings.HasPrefix(key, namespace+"/")
}

// Memory is an in-process Store. It is used when no cache path is
// configured and in tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Read(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(v), nil
}

func (m *Memory) Write(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	m.entries[key] = slices.Clone(value)
	m.mu.Unlock()
	return nil
}

func (m *Memory) DeleteNamespace(_ context.Context, namespace string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if InNamespace(k, namespace) {
			delete(m.entries, k)
		}
	}
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}
