package crdt

import "bytes"

// LwwRegister is a last-writer-wins register over an opaque byte payload.
// Merge picks the replica with the larger HLC timestamp; on a tie
// (concurrent writes with identical timestamp, which cannot happen under
// a correctly-seeded HLC but is handled for robustness) the
// lexicographically larger serialized payload wins, matching the
// defradb LWWRegister merge rule this type is grounded on.
type LwwRegister struct {
	Timestamp uint64 // HLC total order, precomputed by the caller into a single comparable key
	Value     []byte
}

// NewLwwRegister constructs a register at the given HLC-derived priority.
func NewLwwRegister(timestamp uint64, value []byte) LwwRegister {
	return LwwRegister{Timestamp: timestamp, Value: append([]byte(nil), value...)}
}

// Merge returns the winning register between r and other.
func (r LwwRegister) Merge(other LwwRegister) (LwwRegister, error) {
	switch {
	case r.Timestamp > other.Timestamp:
		return r, nil
	case r.Timestamp < other.Timestamp:
		return other, nil
	case bytes.Compare(r.Value, other.Value) >= 0:
		return r, nil
	default:
		return other, nil
	}
}

// Validate always succeeds; an LwwRegister has no internal invariant
// beyond what its field types already enforce.
func (r LwwRegister) Validate() error { return nil }
