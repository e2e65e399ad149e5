package testutil

import (
	"context"
	"sync"

	"ghl-oauth-manager/internal/events"
	"ghl-oauth-manager/internal/installations"
)

// MockStore wraps the memory store and lets tests inject failures per method
type MockStore struct {
	*installations.MemoryStore

	mu sync.RWMutex
	// Control error injection
	ErrorOnMethod map[string]error
}

// NewMockStore creates a new mock store instance
func NewMockStore() *MockStore {
	return &MockStore{
		MemoryStore:   installations.NewMemoryStore(),
		ErrorOnMethod: make(map[string]error),
	}
}

// FailOn makes method return err until cleared with a nil err
func (m *MockStore) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.ErrorOnMethod, method)
		return
	}
	m.ErrorOnMethod[method] = err
}

func (m *MockStore) injected(method string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ErrorOnMethod[method]
}

// Seed stores the installations, ignoring injected errors
func (m *MockStore) Seed(list ...*installations.Installation) error {
	for _, inst := range list {
		if _, err := m.MemoryStore.Create(context.Background(), inst); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockStore) Create(ctx context.Context, inst *installations.Installation) (string, error) {
	if err := m.injected("Create"); err != nil {
		return "", err
	}
	return m.MemoryStore.Create(ctx, inst)
}

func (m *MockStore) Get(ctx context.Context, id string) (*installations.Installation, error) {
	if err := m.injected("Get"); err != nil {
		return nil, err
	}
	return m.MemoryStore.Get(ctx, id)
}

func (m *MockStore) Update(ctx context.Context, id string, mutate func(*installations.Installation) error) (*installations.Installation, error) {
	if err := m.injected("Update"); err != nil {
		return nil, err
	}
	return m.MemoryStore.Update(ctx, id, mutate)
}

func (m *MockStore) List(ctx context.Context, filter installations.Filter) ([]*installations.Installation, error) {
	if err := m.injected("List"); err != nil {
		return nil, err
	}
	return m.MemoryStore.List(ctx, filter)
}

func (m *MockStore) Delete(ctx context.Context, id string) error {
	if err := m.injected("Delete"); err != nil {
		return err
	}
	return m.MemoryStore.Delete(ctx, id)
}

func (m *MockStore) Health(ctx context.Context) error {
	if err := m.injected("Health"); err != nil {
		return err
	}
	return m.MemoryStore.Health(ctx)
}

// RecordingPublisher keeps every published event in memory
type RecordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *RecordingPublisher) Publish(ctx context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *RecordingPublisher) Close() error { return nil }

// Events returns a copy of what was published so far
func (r *RecordingPublisher) Events() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

// Has reports whether an event of typ was published for the installation
func (r *RecordingPublisher) Has(typ events.Type, installationID string) bool {
	for _, ev := range r.Events() {
		if ev.Type == typ && ev.InstallationID == installationID {
			return true
		}
	}
	return false
}
