package policystore

import (
	"context"
	"sync"
	"time"

	"github.com/cedar-policy/cedar-go"
	"github.com/google/uuid"
	"github.com/hodei-project/hodei-authz/backend/internal/authzerr"
)

// MemStore is an in-memory Store, the Go analogue of the
// Arc<Mutex<HashMap>>-backed mock store used to test the authorization
// service this framework is modeled on. Production code should use
// PostgresStore; MemStore exists for tests and for local iteration without
// a database.
type MemStore struct {
	mu    sync.RWMutex
	docs  map[string]Document
	order []string // insertion order, so List honors creation order like PostgresStore
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{docs: map[string]Document{}}
}

func (m *MemStore) Create(ctx context.Context, content string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	d := Document{ID: uuid.NewString(), Content: content, CreatedAt: now, UpdatedAt: now}
	m.docs[d.ID] = d
	m.order = append(m.order, d.ID)
	return d, nil
}

func (m *MemStore) Get(ctx context.Context, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.docs[id]
	if !ok {
		return Document{}, &authzerr.NotFound{ID: id}
	}
	return d, nil
}

// List returns every document in creation order.
func (m *MemStore) List(ctx context.Context) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Document, 0, len(m.order))
	for _, id := range m.order {
		if d, ok := m.docs[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MemStore) Update(ctx context.Context, id, content string) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return Document{}, &authzerr.NotFound{ID: id}
	}
	d.Content = content
	d.UpdatedAt = time.Now().UTC()
	m.docs[id] = d
	return d, nil
}

func (m *MemStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return &authzerr.NotFound{ID: id}
	}
	delete(m.docs, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemStore) LoadAll(ctx context.Context) (*cedar.PolicySet, error) {
	docs, _ := m.List(ctx)
	ps := cedar.NewPolicySet()
	for _, d := range docs {
		var p cedar.Policy
		if err := p.UnmarshalCedar([]byte(d.Content)); err != nil {
			return nil, &authzerr.ParseError{ID: d.ID, Err: err}
		}
		ps.Add(cedar.PolicyID(d.ID), &p)
	}
	return ps, nil
}

var _ Store = (*MemStore)(nil)
