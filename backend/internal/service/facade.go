// Package service wires the policy store, the policy cell, and the
// invalidation bus into the one facade the rest of the application calls:
// a read-only Authorize path that never touches the store or the bus, and
// mutation paths that always persist, reload, publish, in that order.
package service

import (
	"context"
	"log"
	"sync"

	"github.com/hodei-project/hodei-authz/backend/internal/authz"
	"github.com/hodei-project/hodei-authz/backend/internal/invalidation"
	"github.com/hodei-project/hodei-authz/backend/internal/metrics"
	"github.com/hodei-project/hodei-authz/backend/internal/policycell"
	"github.com/hodei-project/hodei-authz/backend/internal/policystore"
	"github.com/hodei-project/hodei-authz/backend/internal/schema"
)

// Facade orchestrates the policy store, the policy cell, and the
// invalidation bus.
type Facade struct {
	store    policystore.Store
	cell     *policycell.Cell
	bus      invalidation.Bus
	pipeline *authz.Pipeline
	logger   *log.Logger
	reloadMu sync.Mutex // serializes ReloadFromStore so cell publications never go backwards
}

// Option configures New.
type Option func(*Facade)

// WithLogger overrides the default stdlib logger.
func WithLogger(l *log.Logger) Option {
	return func(f *Facade) { f.logger = l }
}

// New builds a Facade over the given store and bus.
func New(store policystore.Store, bus invalidation.Bus, opts ...Option) *Facade {
	cell := policycell.New()
	f := &Facade{
		store:    store,
		cell:     cell,
		bus:      bus,
		pipeline: authz.New(cell),
		logger:   log.Default(),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// ReloadFromStore reads every policy document from the store, builds a
// fresh policy set, and publishes it to the cell. Called at startup and
// whenever a mutation or an invalidation notification requires a refresh.
func (f *Facade) ReloadFromStore(ctx context.Context) error {
	f.reloadMu.Lock()
	defer f.reloadMu.Unlock()
	ps, err := f.store.LoadAll(ctx)
	if err != nil {
		metrics.RecordReload(false)
		return err
	}
	f.cell.Store(ps)
	metrics.RecordReload(true)
	return nil
}

// SubscribeInvalidations starts listening on the bus and reloads the cell
// on every notification. Intended to be run in its own goroutine; blocks
// until ctx is canceled.
func (f *Facade) SubscribeInvalidations(ctx context.Context) {
	f.bus.Subscribe(ctx, func() {
		metrics.InvalidationsReceived.Inc()
		if err := f.ReloadFromStore(ctx); err != nil {
			f.logger.Printf("[service] reload on invalidation failed: %v", err)
		}
	})
}

// Authorize runs the pipeline against the currently active policy set. It
// never touches the store or the bus.
func (f *Facade) Authorize(ctx context.Context, req authz.Request) (authz.Decision, error) {
	metrics.RequestsTotal.Inc()
	decision, err := f.pipeline.Authorize(ctx, req)
	if err == nil {
		metrics.RecordDecision(string(decision))
	}
	return decision, err
}

// CreatePolicy persists a new policy document, reloads the cell, and
// publishes an invalidation. A publish failure is logged, not returned:
// the write itself already succeeded and is visible locally.
func (f *Facade) CreatePolicy(ctx context.Context, content string) (policystore.Document, error) {
	doc, err := f.store.Create(ctx, content)
	if err != nil {
		return policystore.Document{}, err
	}
	metrics.RecordPolicyMutation("create")
	if err := f.ReloadFromStore(ctx); err != nil {
		return doc, err
	}
	f.publishInvalidation(ctx)
	return doc, nil
}

// UpdatePolicy replaces a stored policy document's content.
func (f *Facade) UpdatePolicy(ctx context.Context, id, content string) (policystore.Document, error) {
	doc, err := f.store.Update(ctx, id, content)
	if err != nil {
		return policystore.Document{}, err
	}
	metrics.RecordPolicyMutation("update")
	if err := f.ReloadFromStore(ctx); err != nil {
		return doc, err
	}
	f.publishInvalidation(ctx)
	return doc, nil
}

// DeletePolicy removes a stored policy document.
func (f *Facade) DeletePolicy(ctx context.Context, id string) error {
	if err := f.store.Delete(ctx, id); err != nil {
		return err
	}
	metrics.RecordPolicyMutation("delete")
	if err := f.ReloadFromStore(ctx); err != nil {
		return err
	}
	f.publishInvalidation(ctx)
	return nil
}

// GetPolicy and ListPolicies are thin, read-only passthroughs to the
// store — they don't touch the cell, since the cell only ever needs to
// reflect committed mutations, not individual reads.
func (f *Facade) GetPolicy(ctx context.Context, id string) (policystore.Document, error) {
	return f.store.Get(ctx, id)
}

func (f *Facade) ListPolicies(ctx context.Context) ([]policystore.Document, error) {
	return f.store.List(ctx)
}

func (f *Facade) publishInvalidation(ctx context.Context) {
	if err := f.bus.Invalidate(ctx); err != nil {
		f.logger.Printf("[service] invalidation publish failed: %v", err)
	}
}

// Schema returns the merged schema document assembled from every
// registered entity and action fragment.
func (f *Facade) Schema() (schema.Document, error) {
	return schema.Assemble()
}
