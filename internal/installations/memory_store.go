package installations

import (
	"context"
	"sync"
	"time"

	"ghl-oauth-manager/internal/common/errors"
)

// MemoryStore keeps installations in a map. Values handed out are copies.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]*Installation
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]*Installation),
		now:   time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, inst *Installation) (string, error) {
	c, err := prepareCreate(inst, s.now())
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[c.ID]; exists {
		return "", duplicateError(c.ID)
	}
	s.items[c.ID] = c
	return c.ID, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Installation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.items[id]
	if !ok {
		return nil, errors.InstallationNotFound(id)
	}
	return inst.Clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, mutate func(*Installation) error) (*Installation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items[id]
	if !ok {
		return nil, errors.InstallationNotFound(id)
	}

	next := current.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.ID = id
	s.items[id] = next
	return next.Clone(), nil
}

func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]*Installation, error) {
	s.mu.RLock()
	all := make([]*Installation, 0, len(s.items))
	for _, inst := range s.items {
		all = append(all, inst.Clone())
	}
	s.mu.RUnlock()

	return applyFilter(all, filter), nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return errors.InstallationNotFound(id)
	}
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) Health(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
