package store

import (
	"context"
	"strings"
	"sync"
)

// Memory is an in-process KV used for local development and tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrMissing
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) ScanPrefix(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *Memory) MultiGet(_ context.Context, keys []string) ([]*string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*string, len(keys))
	for i, k := range keys {
		if v, ok := m.data[k]; ok {
			out[i] = &v
		}
	}
	return out, nil
}

func (m *Memory) CompareAndSet(_ context.Context, key, expected, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[key] != expected {
		return false, nil
	}
	m.data[key] = value
	return true, nil
}
