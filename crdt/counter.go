package crdt

import (
	"errors"
	"math"

	safemath "github.com/calimero-network/core/utils/math"
)

// ErrCounterOverflow is returned when a GCounter's total would overflow
// int64, which only a pathologically long-lived counter could trigger.
var ErrCounterOverflow = errors.New("crdt: counter total overflow")

// GCounter is a grow-only counter: each node tracks its own monotonic
// contribution, and Merge takes the per-node maximum so increments are
// never double-counted or lost regardless of delivery order or
// duplication.
type GCounter struct {
	Counts map[string]uint64
}

// NewGCounter returns an empty GCounter.
func NewGCounter() *GCounter {
	return &GCounter{Counts: make(map[string]uint64)}
}

// Increment raises node's contribution to total when total is larger
// than the stored value; a smaller or equal total is ignored. total is
// the node's own running count, not a per-call increment, so a
// duplicate delivery is idempotent under Merge.
func (c *GCounter) Increment(node string, total uint64) {
	if c.Counts == nil {
		c.Counts = make(map[string]uint64)
	}
	if total > c.Counts[node] {
		c.Counts[node] = total
	}
}

// Total sums every node's contribution.
func (c *GCounter) Total() (uint64, error) {
	var sum uint64
	for _, v := range c.Counts {
		next, err := safemath.Add64(sum, v)
		if err != nil {
			return 0, ErrCounterOverflow
		}
		sum = next
	}
	return sum, nil
}

// Merge returns the per-node maximum of c and other.
func (c *GCounter) Merge(other *GCounter) (*GCounter, error) {
	out := NewGCounter()
	for node, v := range c.Counts {
		out.Counts[node] = v
	}
	for node, v := range other.Counts {
		if v > out.Counts[node] {
			out.Counts[node] = v
		}
	}
	return out, nil
}

// Validate always succeeds.
func (c *GCounter) Validate() error { return nil }

// Counter is a positive-negative counter: a pair of GCounters whose
// difference is the logical value, allowing decrements without losing
// grow-only convergence on either side.
type Counter struct {
	Pos *GCounter
	Neg *GCounter
}

// NewCounter returns a zero-valued PN-Counter.
func NewCounter() *Counter {
	return &Counter{Pos: NewGCounter(), Neg: NewGCounter()}
}

// IncrementBy records node's cumulative positive contribution.
func (c *Counter) IncrementBy(node string, total uint64) { c.Pos.Increment(node, total) }

// DecrementBy records node's cumulative negative contribution.
func (c *Counter) DecrementBy(node string, total uint64) { c.Neg.Increment(node, total) }

// Value returns Pos.Total() - Neg.Total().
func (c *Counter) Value() (int64, error) {
	pos, err := c.Pos.Total()
	if err != nil {
		return 0, err
	}
	neg, err := c.Neg.Total()
	if err != nil {
		return 0, err
	}
	if pos > math.MaxInt64 || neg > math.MaxInt64 {
		return 0, ErrCounterOverflow
	}
	return int64(pos) - int64(neg), nil
}

// Merge merges Pos and Neg independently.
func (c *Counter) Merge(other *Counter) (*Counter, error) {
	pos, err := c.Pos.Merge(other.Pos)
	if err != nil {
		return nil, err
	}
	neg, err := c.Neg.Merge(other.Neg)
	if err != nil {
		return nil, err
	}
	return &Counter{Pos: pos, Neg: neg}, nil
}

// Validate always succeeds.
func (c *Counter) Validate() error { return nil }
