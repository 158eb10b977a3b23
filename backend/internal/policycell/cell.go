// Package policycell holds the single atomically-swapped active policy
// set: the lock-free read path every authorization request goes through,
// and the single-writer publication point every reload goes through.
package policycell

import (
	"sync/atomic"

	"github.com/cedar-policy/cedar-go"
)

// Cell is an atomically-swapped cedar.PolicySet. Reads via Load never
// block and never observe a partially-updated set; Store is the sole
// publication path and is expected to be serialized by the caller (the
// service facade owns the single in-flight reload at a time).
type Cell struct {
	policySet atomic.Pointer[cedar.PolicySet]
	version   atomic.Uint64
}

// New returns a Cell with no policies loaded; Load returns an empty,
// non-nil policy set until the first Store.
func New() *Cell {
	c := &Cell{}
	c.policySet.Store(cedar.NewPolicySet())
	return c
}

// Load returns the currently active policy set. The returned pointer must
// be treated as immutable by the caller.
func (c *Cell) Load() *cedar.PolicySet {
	return c.policySet.Load()
}

// Store publishes a new policy set atomically and bumps the version
// counter. Concurrent readers either see the old set in full or the new
// set in full, never a mix.
func (c *Cell) Store(ps *cedar.PolicySet) {
	c.policySet.Store(ps)
	c.version.Add(1)
}

// Version returns the number of times Store has been called on this cell,
// monotonically increasing from zero.
func (c *Cell) Version() uint64 {
	return c.version.Load()
}
