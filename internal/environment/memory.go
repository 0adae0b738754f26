package environment

import (
	"context"
	"sync"
)

type memoryKey struct {
	key           string
	item          int64
	itemSecondary int64
	symmetric     bool
}

// Memory is a map-backed environment
type Memory struct {
	mu    sync.RWMutex
	facts map[memoryKey]float64
}

// NewMemory creates an empty in-memory environment
func NewMemory() *Memory {
	return &Memory{facts: make(map[memoryKey]float64)}
}

func (m *Memory) Write(ctx context.Context, key string, value float64, item, itemSecondary int64, symmetric bool) error {
	item, itemSecondary = pair(item, itemSecondary, symmetric)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.facts[memoryKey{key, item, itemSecondary, symmetric}] = value
	return nil
}

func (m *Memory) Read(ctx context.Context, key string, item, itemSecondary int64) (float64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if v, ok := m.facts[memoryKey{key, item, itemSecondary, false}]; ok {
		return v, true, nil
	}
	a, b := pair(item, itemSecondary, true)
	v, ok := m.facts[memoryKey{key, a, b, true}]
	return v, ok, nil
}

func (m *Memory) Delete(ctx context.Context, key string, item, itemSecondary int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.facts, memoryKey{key, item, itemSecondary, false})
	a, b := pair(item, itemSecondary, true)
	delete(m.facts, memoryKey{key, a, b, true})
	return nil
}

func (m *Memory) Edges(ctx context.Context, key string) ([]Edge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	edges := []Edge{}
	for k, v := range m.facts {
		if k.key == key {
			edges = append(edges, Edge{Key: k.key, Item: k.item, ItemSecondary: k.itemSecondary, Value: v})
		}
	}
	sortEdges(edges)
	return edges, nil
}

func (m *Memory) Close() error {
	return nil
}
