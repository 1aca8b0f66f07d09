// Package storage implements the save/compare/merge orchestration layer
// on top of the index: merge_by_crdt_type's three-tier custom-merge
// fallback, compare_trees/sync_trees tree reconciliation, apply_action
// validation, and comparison-data generation for the sync engine.
package storage

import (
	"bytes"

	"github.com/calimero-network/core/entity"
	"github.com/calimero-network/core/errs"
	"github.com/calimero-network/core/index"
	"github.com/calimero-network/core/types"
)

// CustomMergeFunc merges two replicas' bytes for a Custom crdt_type,
// returning ok=false when it cannot decide (the caller falls through to
// the next tier).
type CustomMergeFunc func(typeName string, localBytes, remoteBytes []byte) (merged []byte, ok bool, err error)

// Registry is a process-wide name -> merge-function table, the second
// tier of the Custom crdt_type fallback chain.
type Registry struct {
	byName map[string]CustomMergeFunc
}

// NewRegistry returns an empty merge-function registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]CustomMergeFunc)}
}

// Register installs fn under name, overwriting any previous entry.
func (r *Registry) Register(name string, fn CustomMergeFunc) {
	r.byName[name] = fn
}

func (r *Registry) lookup(name string) (CustomMergeFunc, bool) {
	fn, ok := r.byName[name]
	return fn, ok
}

// Storage is the per-context orchestration layer: index + CRDT merge
// dispatch + sync-facing tree comparison.
type Storage struct {
	idx       *index.Index
	registry  *Registry
	hostMerge CustomMergeFunc // executor-provided WASM callback, may be nil
	onCommit  func(types.Hash)
}

// New builds a Storage over idx, with registry as its name->merge table.
func New(idx *index.Index, registry *Registry) *Storage {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Storage{idx: idx, registry: registry}
}

// Index exposes the underlying index for read-only inspection.
func (s *Storage) Index() *index.Index { return s.idx }

// SetHostMergeCallback installs the executor's WASM custom-merge
// callback, tried before the name registry for Custom crdt_type.
func (s *Storage) SetHostMergeCallback(fn CustomMergeFunc) { s.hostMerge = fn }

// SetCommitHook installs the delta store's applied-event callback, fired
// by CommitRoot with the new root_hash.
func (s *Storage) SetCommitHook(fn func(types.Hash)) { s.onCommit = fn }

// SaveRaw is the thin passthrough to the index, present here so callers
// that already hold a *Storage don't also need the *index.Index.
func (s *Storage) SaveRaw(id types.EntityId, data []byte, md entity.Metadata) (types.Hash, error) {
	return s.idx.SaveRaw(id, data, md)
}

// CommitRoot recomputes the root's full_hash and invokes the delta
// store's commit hook, if one was installed.
func (s *Storage) CommitRoot() (types.Hash, error) {
	root, ok := s.idx.CommitRoot()
	if !ok {
		return types.Hash{}, &errs.IndexNotFound{ID: types.EntityRoot()}
	}
	if s.onCommit != nil {
		s.onCommit(root)
	}
	return root, nil
}

// mergeByCrdtType dispatches on md.CrdtType per the three built-in
// tiers: scalar built-ins merge their decoded value directly; container
// built-ins (the entity itself only carries bookkeeping) resolve by
// last-writer-wins since their elements reconcile through child
// entities instead; Custom tries the host callback, then the registry,
// then falls back to LWW; Legacy (absent) is LWW.
func (s *Storage) mergeByCrdtType(md entity.Metadata, localTS types.HLC, local []byte, remoteTS types.HLC, remote []byte) ([]byte, bool, error) {
	switch md.CrdtType {
	case entity.CrdtTypeCounter:
		return mergeCounterBytes(local, remote)
	case entity.CrdtTypeCustom:
		return s.mergeCustom(md.CustomTypeName, localTS, local, remoteTS, remote)
	case entity.CrdtTypeLegacy, entity.CrdtTypeLwwRegister,
		entity.CrdtTypeUnorderedMap, entity.CrdtTypeUnorderedSet,
		entity.CrdtTypeVector, entity.CrdtTypeRga:
		return lwwMergeBytes(localTS, local, remoteTS, remote), true, nil
	default:
		return lwwMergeBytes(localTS, local, remoteTS, remote), true, nil
	}
}

// mergeCustom tries, in order, the executor's host callback, the
// process-wide registry, then last-write-wins on updated_at as a safe
// fallback — an unregistered Custom type must still converge rather
// than stall on permanent Compare. A callback error falls through to
// the next tier rather than aborting the merge.
func (s *Storage) mergeCustom(typeName string, localTS types.HLC, local []byte, remoteTS types.HLC, remote []byte) ([]byte, bool, error) {
	if s.hostMerge != nil {
		if merged, ok, err := s.hostMerge(typeName, local, remote); err == nil && ok {
			return merged, true, nil
		}
	}
	if fn, ok := s.registry.lookup(typeName); ok {
		if merged, ok, err := fn(typeName, local, remote); err == nil && ok {
			return merged, true, nil
		}
	}
	return lwwMergeBytes(localTS, local, remoteTS, remote), true, nil
}

// lwwMergeBytes resolves two opaque byte payloads by HLC order, falling
// back to a lexicographic comparison of the bytes on an exact tie — the
// same two-step rule crdt.LwwRegister applies to a single timestamp key,
// here applied directly to the full (wall_time, logical, node_id) order.
func lwwMergeBytes(localTS types.HLC, local []byte, remoteTS types.HLC, remote []byte) []byte {
	switch localTS.Compare(remoteTS) {
	case 1:
		return local
	case -1:
		return remote
	default:
		if bytes.Compare(local, remote) >= 0 {
			return local
		}
		return remote
	}
}

// MergeByCrdtType is the exported entry point used by CompareTrees, and
// directly by apply_action-style callers that already hold both sides'
// bytes and metadata.
func (s *Storage) MergeByCrdtType(md entity.Metadata, localTS types.HLC, local []byte, remoteTS types.HLC, remote []byte) ([]byte, bool, error) {
	return s.mergeByCrdtType(md, localTS, local, remoteTS, remote)
}
