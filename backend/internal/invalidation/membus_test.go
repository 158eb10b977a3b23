package invalidation

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemBusInvalidateCallsSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := NewMemBus()
	var calls int32
	go bus.Subscribe(ctx, func() { atomic.AddInt32(&calls, 1) })

	// Give the subscribe goroutine a moment to register.
	time.Sleep(10 * time.Millisecond)

	assert.NoError(t, bus.Invalidate(ctx))
	assert.NoError(t, bus.Invalidate(ctx))

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestMemBusNoSubscribersIsNoop(t *testing.T) {
	bus := NewMemBus()
	assert.NoError(t, bus.Invalidate(context.Background()))
}
