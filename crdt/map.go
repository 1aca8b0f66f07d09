package crdt

// UnorderedMap is the union of two maps' keys, with values present in
// both sides merged through V's own Merge. Because the merge of a shared
// key recurses into the value type's CRDT semantics, this is equivalent
// to Merkle-reconciling a collection of child entities, one per key.
type UnorderedMap[K comparable, V Mergeable[V]] struct {
	Entries map[K]V
}

// NewUnorderedMap returns an empty map.
func NewUnorderedMap[K comparable, V Mergeable[V]]() UnorderedMap[K, V] {
	return UnorderedMap[K, V]{Entries: make(map[K]V)}
}

// Put sets the value at key, overwriting any existing local entry (used
// for the initiating write; reconciliation with a remote replica goes
// through Merge).
func (m UnorderedMap[K, V]) Put(key K, value V) {
	m.Entries[key] = value
}

// Get returns the value at key and whether it is present.
func (m UnorderedMap[K, V]) Get(key K) (V, bool) {
	v, ok := m.Entries[key]
	return v, ok
}

// Merge unions m and other's keys; a key present on both sides is
// resolved by the value type's own Merge.
func (m UnorderedMap[K, V]) Merge(other UnorderedMap[K, V]) (UnorderedMap[K, V], error) {
	out := NewUnorderedMap[K, V]()
	for k, v := range m.Entries {
		out.Entries[k] = v
	}
	for k, ov := range other.Entries {
		if existing, ok := out.Entries[k]; ok {
			merged, err := existing.Merge(ov)
			if err != nil {
				return UnorderedMap[K, V]{}, err
			}
			out.Entries[k] = merged
		} else {
			out.Entries[k] = ov
		}
	}
	return out, nil
}

// Validate always succeeds; key uniqueness is already a map invariant.
func (m UnorderedMap[K, V]) Validate() error { return nil }
