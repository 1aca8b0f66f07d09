// Package crdt implements the built-in conflict-free replicated data
// types every context's entities may declare as their metadata
// crdt_type: LwwRegister, GCounter, Counter, UnorderedMap, UnorderedSet,
// Vector, and Rga. Every type's Merge is commutative, associative, and
// idempotent, so applying the same set of remote states in any order (or
// more than once) converges to the same value on every replica.
package crdt

// Mergeable is implemented by every value-level CRDT: types whose zero
// value is the identity element and whose Merge combines two replicas'
// views into one without requiring coordination.
type Mergeable[T any] interface {
	Merge(other T) (T, error)
}

// Validator is implemented by collection CRDTs exposing a self-check used
// by convergence property tests to assert that re-serializing a merged
// value reproduces byte-identical output on every replica.
type Validator interface {
	Validate() error
}
