// Package cache is the read-through cache for public listings. Entries live in
// namespaces; writers invalidate a whole namespace by bumping its generation
// counter instead of deleting keys one by one.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
)

// Cache stores JSON values under (namespace, key). Implementations swallow and
// log backend failures: a cache miss is always a safe answer.
type Cache interface {
	Get(ctx context.Context, namespace, key string, dst any) bool
	Set(ctx context.Context, namespace, key string, value any)
	Invalidate(ctx context.Context, namespace string)
}

// KeyOf derives a stable key from any JSON-encodable filter value.
func KeyOf(v any) string {
	b, _ := json.Marshal(v)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:12])
}

// Memory is an in-process Cache used in tests and when Redis is not configured.
type Memory struct {
	mu   sync.Mutex
	data map[string]map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, namespace, key string, dst any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[namespace][key]
	if !ok {
		return false
	}
	return json.Unmarshal(b, dst) == nil
}

func (m *Memory) Set(_ context.Context, namespace, key string, value any) {
	b, err := json.Marshal(value)
	if err != nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[namespace] == nil {
		m.data[namespace] = make(map[string][]byte)
	}
	m.data[namespace][key] = b
}

func (m *Memory) Invalidate(_ context.Context, namespace string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, namespace)
}

// Len reports how many entries a namespace holds.
func (m *Memory) Len(namespace string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data[namespace])
}
