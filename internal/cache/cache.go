// Package cache keeps JSON-encoded read models for the public catalog.
package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
)

// Cache stores JSON values under string keys
type Cache interface {
	// Get decodes the value at key into dst, reporting whether it was found
	Get(ctx context.Context, key string, dst any) (bool, error)
	// Set stores v at key for ttl. A zero ttl keeps the value until it is deleted.
	Set(ctx context.Context, key string, v any, ttl time.Duration) error
	// DeletePrefix removes every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) error
}

type entry struct {
	data    []byte
	expires time.Time
}

// Memory is an in-process Cache. Expired entries are dropped on read.
type Memory struct {
	entries map[string]entry
	now     func() time.Time
	mutex   sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry), now: time.Now}
}

func (m *Memory) Get(ctx context.Context, key string, dst any) (bool, error) {
	m.mutex.RLock()
	e, ok := m.entries[key]
	m.mutex.RUnlock()
	if !ok {
		return false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.mutex.Lock()
		if cur, ok := m.entries[key]; ok && cur.expires.Equal(e.expires) {
			delete(m.entries, key)
		}
		m.mutex.Unlock()
		return false, nil
	}
	return true, json.Unmarshal(e.data, dst)
}

func (m *Memory) Set(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	e := entry{data: data}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}

	m.mutex.Lock()
	m.entries[key] = e
	m.mutex.Unlock()
	return nil
}

func (m *Memory) DeletePrefix(ctx context.Context, prefix string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}
