// Package index implements the content-addressed Merkle index: the
// per-context tree of entities keyed by EntityId, with own_hash/full_hash
// bookkeeping, parent/child registration, and tombstones. Tree
// reconciliation and CRDT merge dispatch live one layer up in the
// storage package; this package only maintains the tree's shape and
// hashes.
package index

import (
	"sort"
	"sync"

	"github.com/calimero-network/core/entity"
	"github.com/calimero-network/core/errs"
	"github.com/calimero-network/core/types"
)

// ChildRef names a child's position under its parent: the collection it
// belongs to (e.g. a map field name) plus its id.
type ChildRef struct {
	Collection string
	ID         types.EntityId
}

type node struct {
	entity   entity.Entity
	ownHash  types.Hash
	fullHash types.Hash
}

// Index is the in-memory (or, behind the same API, persistent)
// single-writer Merkle tree for one context.
type Index struct {
	mu         sync.RWMutex
	nodes      map[types.EntityId]*node
	parentOf   map[types.EntityId]types.EntityId
	hasParent  map[types.EntityId]bool
	children   map[types.EntityId][]ChildRef
	tombstones map[types.EntityId]entity.Tombstone
}

// New returns an empty index. The root entity does not exist until the
// first SaveRaw(EntityRoot(), ...) call.
func New() *Index {
	return &Index{
		nodes:      make(map[types.EntityId]*node),
		parentOf:   make(map[types.EntityId]types.EntityId),
		hasParent:  make(map[types.EntityId]bool),
		children:   make(map[types.EntityId][]ChildRef),
		tombstones: make(map[types.EntityId]entity.Tombstone),
	}
}

// SaveRaw installs data/metadata at id, recomputes own_hash and
// propagates the new full_hash up to the root, and returns the entity's
// new full_hash. It fails with CannotCreateOrphan for a non-root id that
// has never been registered as someone's child via AddChildTo.
func (idx *Index) SaveRaw(id types.EntityId, data []byte, md entity.Metadata) (types.Hash, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !id.IsRoot() && !idx.hasParent[id] {
		return types.Hash{}, &errs.CannotCreateOrphan{ID: id}
	}
	if md.StorageType.Kind == entity.StorageKindUser && md.StorageType.Nonce == 0 {
		md.StorageType.Nonce = md.UpdatedAt.WallTime
	}

	ownHash := types.SumHash(data)
	idx.nodes[id] = &node{
		entity:  entity.Entity{ID: id, Data: data, Metadata: md},
		ownHash: ownHash,
	}
	idx.recomputeUp(id)
	return idx.nodes[id].fullHash, nil
}

// AddChildTo registers child as a member of parent's named collection.
// The child's data must still be persisted via SaveRaw; this call only
// establishes the tree edge so SaveRaw(child, ...) is no longer an
// orphan write.
func (idx *Index) AddChildTo(parent types.EntityId, collection string, child types.EntityId) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if !parent.IsRoot() {
		if _, ok := idx.nodes[parent]; !ok {
			return &errs.IndexNotFound{ID: parent}
		}
	}
	for _, ref := range idx.children[parent] {
		if ref.ID.Equal(child) {
			return nil // already registered
		}
	}
	idx.children[parent] = append(idx.children[parent], ChildRef{Collection: collection, ID: child})
	idx.parentOf[child] = parent
	idx.hasParent[child] = true
	return nil
}

// RemoveChildFrom unregisters childID from parent's children, installs a
// tombstone at the deletion HLC's wall time, and reports whether a child
// reference was actually found.
func (idx *Index) RemoveChildFrom(parent, childID types.EntityId, deletedAt uint64) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	refs := idx.children[parent]
	found := false
	out := refs[:0:0]
	for _, ref := range refs {
		if ref.ID.Equal(childID) {
			found = true
			continue
		}
		out = append(out, ref)
	}
	if !found {
		return false
	}
	idx.children[parent] = out
	idx.tombstones[childID] = entity.Tombstone{ID: childID, DeletedAt: deletedAt}
	delete(idx.nodes, childID)
	idx.recomputeUp(parent)
	return true
}

// FindByID returns the entity at id, or ok=false if absent or tombstoned.
func (idx *Index) FindByID(id types.EntityId) (entity.Entity, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if _, dead := idx.tombstones[id]; dead {
		return entity.Entity{}, false
	}
	n, ok := idx.nodes[id]
	if !ok {
		return entity.Entity{}, false
	}
	return n.entity, true
}

// TombstoneOf returns the tombstone at id, if any.
func (idx *Index) TombstoneOf(id types.EntityId) (entity.Tombstone, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ts, ok := idx.tombstones[id]
	return ts, ok
}

// GetParentID returns id's parent, if id is not the root and has been
// registered via AddChildTo.
func (idx *Index) GetParentID(id types.EntityId) (types.EntityId, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	p, ok := idx.parentOf[id]
	return p, ok
}

// GetAncestorsOf walks the parent chain from id up to and including the
// root, nearest ancestor first.
func (idx *Index) GetAncestorsOf(id types.EntityId) []types.EntityId {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []types.EntityId
	cur := id
	for {
		p, ok := idx.parentOf[cur]
		if !ok {
			break
		}
		out = append(out, p)
		cur = p
	}
	return out
}

// GetCollectionNamesFor returns the distinct collection names registered
// under parent, sorted for determinism.
func (idx *Index) GetCollectionNamesFor(parent types.EntityId) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, ref := range idx.children[parent] {
		seen[ref.Collection] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// GetChildrenOf returns every child registered under parent. If
// collection is non-empty, results are filtered to that collection.
func (idx *Index) GetChildrenOf(parent types.EntityId, collection string) []types.EntityId {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var out []types.EntityId
	for _, ref := range idx.children[parent] {
		if collection == "" || ref.Collection == collection {
			out = append(out, ref.ID)
		}
	}
	return out
}

// GetHashesFor returns (own_hash, full_hash) for id.
func (idx *Index) GetHashesFor(id types.EntityId) (own, full types.Hash, ok bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	n, exists := idx.nodes[id]
	if !exists {
		return types.Hash{}, types.Hash{}, false
	}
	return n.ownHash, n.fullHash, true
}

// GetMetadata returns id's metadata.
func (idx *Index) GetMetadata(id types.EntityId) (entity.Metadata, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	n, ok := idx.nodes[id]
	if !ok {
		return entity.Metadata{}, false
	}
	return n.entity.Metadata, true
}

// CommitRoot recomputes and returns the root entity's current full_hash,
// the context's root_hash invariant.
func (idx *Index) CommitRoot() (types.Hash, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	root := types.EntityRoot()
	idx.recomputeUpLocked(root)
	n, ok := idx.nodes[root]
	if !ok {
		return types.Hash{}, false
	}
	return n.fullHash, true
}

// recomputeUp recomputes id's full_hash and every ancestor's, in order.
// Caller must hold idx.mu.
func (idx *Index) recomputeUp(id types.EntityId) {
	idx.recomputeUpLocked(id)
}

func (idx *Index) recomputeUpLocked(id types.EntityId) {
	cur := id
	for {
		n, ok := idx.nodes[cur]
		if !ok {
			return
		}
		n.fullHash = combine(n.ownHash, idx.childFullHashes(cur))
		parent, ok := idx.parentOf[cur]
		if !ok {
			return
		}
		cur = parent
	}
}

func (idx *Index) childFullHashes(parent types.EntityId) []types.Hash {
	refs := idx.children[parent]
	type childHash struct {
		own  types.Hash
		full types.Hash
	}
	ordered := make([]childHash, 0, len(refs))
	for _, ref := range refs {
		if n, ok := idx.nodes[ref.ID]; ok {
			ordered = append(ordered, childHash{own: n.ownHash, full: n.fullHash})
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].own.Less(ordered[j].own) })

	hashes := make([]types.Hash, len(ordered))
	for i, c := range ordered {
		hashes[i] = c.full
	}
	return hashes
}

// combine deterministically folds own_hash with the sorted full_hashes
// of its children into a new full_hash.
func combine(own types.Hash, children []types.Hash) types.Hash {
	buf := make([]byte, 0, 32*(1+len(children)))
	buf = append(buf, own.Bytes()...)
	for _, c := range children {
		buf = append(buf, c.Bytes()...)
	}
	return types.SumHash(buf)
}
