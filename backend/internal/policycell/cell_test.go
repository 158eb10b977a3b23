package policycell

import (
	"sync"
	"testing"

	"github.com/cedar-policy/cedar-go"
	"github.com/stretchr/testify/assert"
)

func TestNewCellStartsEmptyNotNil(t *testing.T) {
	c := New()
	ps := c.Load()
	assert.NotNil(t, ps)
	assert.Equal(t, uint64(0), c.Version())
}

func TestStoreBumpsVersionAndPublishesAtomically(t *testing.T) {
	c := New()
	ps := cedar.NewPolicySet()
	c.Store(ps)
	assert.Equal(t, uint64(1), c.Version())
	assert.Same(t, ps, c.Load())
}

func TestConcurrentLoadDuringStoreNeverPanics(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				c.Load()
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			c.Store(cedar.NewPolicySet())
		}
		close(stop)
	}()
	wg.Wait()
	assert.Equal(t, uint64(1000), c.Version())
}
