// Package blob stores uploaded photos and avatars and hands back a durable URL.
package blob

import (
	"context"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Store persists bytes and returns a retrievable URL.
type Store interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
}

// objectKey builds a collision free key with an extension matching the
// content type.
func objectKey(prefix, contentType string) string {
	ext := ""
	if m := mimetype.Lookup(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])); m != nil {
		ext = m.Extension()
	}
	return prefix + uuid.NewString() + ext
}

// Memory keeps objects in process. Used when no bucket is configured.
type Memory struct {
	prefix  string
	mu      sync.RWMutex
	objects map[string][]byte
}

func NewMemory(prefix string) *Memory {
	return &Memory{prefix: prefix, objects: make(map[string][]byte)}
}

func (m *Memory) Store(_ context.Context, data []byte, contentType string) (string, error) {
	key := objectKey(m.prefix, contentType)
	m.mu.Lock()
	m.objects[key] = append([]byte(nil), data...)
	m.mu.Unlock()
	return "memory://" + key, nil
}

// Object returns a stored object by URL.
func (m *Memory) Object(url string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[strings.TrimPrefix(url, "memory://")]
	return data, ok
}
