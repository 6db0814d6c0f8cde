package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process Store. Documents are held encoded so readers never
// alias stored maps.
type Memory struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

// NewMemory creates an empty in-memory document store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, ok := m.data[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	return decode(raw)
}

func (m *Memory) Set(_ context.Context, collection, id string, fields Document, opts SetOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var current Document
	if raw, ok := m.data[collection][id]; ok && opts.Merge {
		doc, err := decode(raw)
		if err != nil {
			return err
		}
		current = doc
	}
	next, err := ApplySet(current, fields, opts)
	if err != nil {
		return err
	}
	return m.put(collection, id, next)
}

func (m *Memory) Update(_ context.Context, collection, id string, fields Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.data[collection][id]
	if !ok {
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	doc, err := decode(raw)
	if err != nil {
		return err
	}
	if err := ApplyUpdate(doc, fields); err != nil {
		return err
	}
	return m.put(collection, id, doc)
}

func (m *Memory) List(_ context.Context, collection string) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.data[collection]))
	for id := range m.data[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		doc, err := decode(m.data[collection][id])
		if err != nil {
			return nil, err
		}
		out = append(out, Snapshot{ID: id, Data: doc})
	}
	return out, nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data[collection], id)
	return nil
}

func (m *Memory) Close() error { return nil }

// put must be called with mu held.
func (m *Memory) put(collection, id string, doc Document) error {
	raw, err := encode(doc)
	if err != nil {
		return err
	}
	if m.data[collection] == nil {
		m.data[collection] = make(map[string][]byte)
	}
	m.data[collection][id] = raw
	return nil
}
