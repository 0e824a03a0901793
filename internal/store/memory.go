package store

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory keeps records in process. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record), now: time.Now}
}

func (m *Memory) List(_ context.Context, f ListFilter) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Record, 0, len(m.records))
	for _, r := range m.records {
		if f.match(r) {
			out = append(out, r.Clone())
		}
	}
	slices.SortFunc(out, func(a, b Record) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.Slug, b.Slug)
	})
	return out, nil
}

func (m *Memory) Get(_ context.Context, slug string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.records[slug]
	if !ok {
		return nil, ErrNotFound
	}
	c := r.Clone()
	return &c, nil
}

func (m *Memory) Create(_ context.Context, r Record) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[r.Slug]; ok {
		return nil, ErrDuplicate
	}
	now := m.now().UTC()
	r = r.Clone()
	r.UUID = uuid.NewString()
	r.CreatedAt, r.UpdatedAt = now, now
	r.ArchivedAt = nil
	m.records[r.Slug] = r

	c := r.Clone()
	return &c, nil
}

func (m *Memory) Update(_ context.Context, r Record) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.records[r.Slug]
	if !ok {
		return nil, ErrNotFound
	}
	r = r.Clone()
	r.UUID = cur.UUID
	r.AuthorID = cur.AuthorID
	r.CreatedAt = cur.CreatedAt
	r.ArchivedAt = cur.ArchivedAt
	r.UpdatedAt = m.now().UTC()
	m.records[r.Slug] = r

	c := r.Clone()
	return &c, nil
}

func (m *Memory) Archive(_ context.Context, slug string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[slug]
	if !ok {
		return nil, ErrNotFound
	}
	now := m.now().UTC()
	r.Published = false
	r.ArchivedAt = &now
	r.UpdatedAt = now
	m.records[slug] = r

	c := r.Clone()
	return &c, nil
}

func (m *Memory) Delete(_ context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[slug]; !ok {
		return ErrNotFound
	}
	delete(m.records, slug)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }
