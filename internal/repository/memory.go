package repository

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// Memory is an in-process Repository. Bitstream bytes are keyed by storage key.
type Memory struct {
	mu      sync.RWMutex
	items   map[int64]*Item
	content map[string][]byte
}

// NewMemory returns an empty repository.
func NewMemory() *Memory {
	return &Memory{
		items:   make(map[int64]*Item),
		content: make(map[string][]byte),
	}
}

// Put stores or replaces an item by internal id.
func (m *Memory) Put(it *Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = it
}

// SetContent stores the bytes behind a storage key.
func (m *Memory) SetContent(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[key] = data
}

func (m *Memory) Items(ctx context.Context, q ItemQuery) ([]*Item, error) {
	return m.filter(ctx, q.Matches)
}

func (m *Memory) Changed(ctx context.Context, q ChangeQuery) ([]*Item, error) {
	return m.filter(ctx, q.Matches)
}

func (m *Memory) Item(ctx context.Context, handle string) (*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if handle != "" {
		for _, it := range m.items {
			if it.Handle == handle {
				return it, nil
			}
		}
	}
	return nil, fmt.Errorf("item %s: %w", handle, ErrNotFound)
}

func (m *Memory) ItemByID(ctx context.Context, id int64) (*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	return it, nil
}

func (m *Memory) OpenBitstream(ctx context.Context, b *Bitstream) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.content[b.StorageKey]
	if !ok {
		return nil, fmt.Errorf("bitstream %d: %w", b.ID, ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) filter(ctx context.Context, keep func(*Item) bool) ([]*Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Item
	for _, it := range m.items {
		if keep(it) {
			out = append(out, it)
		}
	}
	sortItems(out)
	return out, nil
}

// sortItems orders by last modification, then handle.
func sortItems(items []*Item) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].LastModified.Equal(items[j].LastModified) {
			return items[i].LastModified.Before(items[j].LastModified)
		}
		return items[i].Handle < items[j].Handle
	})
}
