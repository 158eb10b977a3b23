package invalidation

import (
	"context"
	"sync"
)

// MemBus is an in-process Bus: Invalidate calls every subscribed fn
// synchronously. Used by service facade tests that don't stand up Redis.
type MemBus struct {
	mu   sync.Mutex
	subs []func()
}

// NewMemBus returns an empty MemBus.
func NewMemBus() *MemBus {
	return &MemBus{}
}

func (b *MemBus) Invalidate(ctx context.Context) error {
	b.mu.Lock()
	subs := append([]func(){}, b.subs...)
	b.mu.Unlock()
	for _, fn := range subs {
		fn()
	}
	return nil
}

func (b *MemBus) Subscribe(ctx context.Context, fn func()) {
	b.mu.Lock()
	b.subs = append(b.subs, fn)
	b.mu.Unlock()
	<-ctx.Done()
}

var _ Bus = (*MemBus)(nil)
