package types

import "github.com/luxfi/ids"

// HLC is a Hybrid Logical Clock: a wall-clock component, a logical
// counter that breaks ties within the same wall-clock tick, and the
// originating node id that breaks ties deterministically when both of
// the above are equal.
type HLC struct {
	WallTime uint64
	Logical  uint32
	NodeID   ids.NodeID
}

// Compare returns -1, 0, or 1 following (WallTime, Logical, NodeID) order.
func (h HLC) Compare(o HLC) int {
	if h.WallTime != o.WallTime {
		if h.WallTime < o.WallTime {
			return -1
		}
		return 1
	}
	if h.Logical != o.Logical {
		if h.Logical < o.Logical {
			return -1
		}
		return 1
	}
	if h.NodeID == o.NodeID {
		return 0
	}
	for i := range h.NodeID {
		if h.NodeID[i] != o.NodeID[i] {
			if h.NodeID[i] < o.NodeID[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Before reports whether h happened strictly before o in HLC order.
func (h HLC) Before(o HLC) bool { return h.Compare(o) < 0 }

// After reports whether h happened strictly after o in HLC order.
func (h HLC) After(o HLC) bool { return h.Compare(o) > 0 }

// Clock generates HLC timestamps for a single node, advancing on every
// call so repeated calls within the same wall-clock tick still produce a
// strictly increasing sequence.
type Clock struct {
	node ids.NodeID
	last HLC
	now  func() uint64
}

// NewClock builds a Clock for nodeID. nowFn supplies the wall-clock
// component (seconds or milliseconds, caller's choice, as long as it is
// used consistently across the deployment); tests pass a deterministic
// function.
func NewClock(nodeID ids.NodeID, nowFn func() uint64) *Clock {
	return &Clock{node: nodeID, now: nowFn}
}

// Now advances and returns the next HLC timestamp.
func (c *Clock) Now() HLC {
	wall := c.now()
	next := HLC{WallTime: wall, NodeID: c.node}
	if wall <= c.last.WallTime {
		next.WallTime = c.last.WallTime
		next.Logical = c.last.Logical + 1
	}
	c.last = next
	return next
}

// Observe merges in a timestamp seen from a remote delta, ensuring the
// clock never regresses below what's already been witnessed.
func (c *Clock) Observe(remote HLC) {
	if remote.Compare(c.last) > 0 {
		c.last = remote
		c.last.NodeID = c.node
	}
}
