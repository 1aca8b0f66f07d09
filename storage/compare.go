package storage

import (
	"bytes"
	"errors"

	"github.com/calimero-network/core/action"
	"github.com/calimero-network/core/entity"
	"github.com/calimero-network/core/types"
)

// MaxSyncDepth bounds sync_trees' recursion, matching the spec's "at
// least 100" floor with a concrete, generous value.
const MaxSyncDepth = 200

// ErrSyncDepthExceeded is returned by SyncTrees when the recursive
// Compare-resolution chain runs deeper than MaxSyncDepth, a sign of a
// cyclic or pathologically deep tree rather than legitimate depth.
var ErrSyncDepthExceeded = errors.New("storage: sync_trees exceeded max recursion depth")

// CompareTrees diffs the local entity at id against foreign's index-level
// snapshot, returning the actions each side must apply to converge.
// foreignBytes carries the foreign entity's raw data when the caller
// already fetched it (e.g. during a handshake that bundled bytes
// alongside hashes); it may be nil when only hash-level data is
// available, in which case a real difference is resolved by emitting
// Compare on both sides rather than guessing.
func (s *Storage) CompareTrees(id types.EntityId, foreign ComparisonData, foreignBytes []byte) (localActions, remoteActions []action.Action, err error) {
	localMD, hasLocal := s.idx.GetMetadata(id)
	localOwn, localFull, hashOK := s.idx.GetHashesFor(id)

	if hashOK && localFull.Equal(foreign.FullHash) {
		return nil, nil, nil
	}

	if !hasLocal {
		if foreignBytes == nil {
			return []action.Action{action.Compare(id)}, []action.Action{action.Compare(id)}, nil
		}
		return []action.Action{action.Add(id, foreignBytes, foreign.Ancestors, foreign.Metadata)}, nil, nil
	}

	localEntity, _ := s.idx.FindByID(id)

	if !localOwn.Equal(foreign.OwnHash) {
		switch {
		case foreignBytes == nil:
			localActions = append(localActions, action.Compare(id))
			remoteActions = append(remoteActions, action.Compare(id))
		default:
			merged, ok, mErr := s.MergeByCrdtType(localMD, localMD.UpdatedAt, localEntity.Data, foreign.Metadata.UpdatedAt, foreignBytes)
			if mErr != nil {
				return nil, nil, mErr
			}
			if !ok {
				localActions = append(localActions, action.Compare(id))
				remoteActions = append(remoteActions, action.Compare(id))
			} else {
				mergedMD := mergeMetadata(localMD, foreign.Metadata)
				ancestors := s.ancestorChildInfos(id)
				if !bytes.Equal(merged, localEntity.Data) {
					localActions = append(localActions, action.Update(id, merged, ancestors, mergedMD))
				}
				if !bytes.Equal(merged, foreignBytes) {
					remoteActions = append(remoteActions, action.Update(id, merged, ancestors, mergedMD))
				}
			}
		}
	}

	localA, remoteA := s.diffChildren(id, foreign)
	localActions = append(localActions, localA...)
	remoteActions = append(remoteActions, remoteA...)

	return localActions, remoteActions, nil
}

func (s *Storage) diffChildren(id types.EntityId, foreign ComparisonData) (localActions, remoteActions []action.Action) {
	names := s.idx.GetCollectionNamesFor(id)
	seen := make(map[string]bool, len(names))

	for _, name := range names {
		seen[name] = true
		foreignChildren := foreign.Children[name]
		foreignMap := make(map[types.EntityId]types.Hash, len(foreignChildren))
		for _, ci := range foreignChildren {
			foreignMap[ci.ID] = ci.OwnHash
		}

		for _, cid := range s.idx.GetChildrenOf(id, name) {
			_, localChildFull, _ := s.idx.GetHashesFor(cid)
			foreignHash, present := foreignMap[cid]
			delete(foreignMap, cid)
			switch {
			case !present:
				if cdata, ok := s.idx.FindByID(cid); ok {
					remoteActions = append(remoteActions, action.Add(cid, cdata.Data, s.ancestorChildInfos(cid), cdata.Metadata))
				}
			case !localChildFull.Equal(foreignHash):
				localActions = append(localActions, action.Compare(cid))
				remoteActions = append(remoteActions, action.Compare(cid))
			}
		}
		for cid := range foreignMap {
			localActions = append(localActions, action.Compare(cid))
		}
	}

	for name, foreignChildren := range foreign.Children {
		if seen[name] {
			continue
		}
		for _, ci := range foreignChildren {
			localActions = append(localActions, action.Compare(ci.ID))
		}
	}

	return localActions, remoteActions
}

// mergeMetadata folds two sides' bookkeeping into one record: the later
// HLC wins for updated_at (consistent with the byte-level LWW rule
// applied above), and created_at keeps whichever side's value is older
// (the entity's true origin never moves forward).
func mergeMetadata(a, b entity.Metadata) entity.Metadata {
	out := a
	if b.UpdatedAt.After(out.UpdatedAt) {
		out.UpdatedAt = b.UpdatedAt
	}
	if out.CreatedAt == 0 || (b.CreatedAt != 0 && b.CreatedAt < out.CreatedAt) {
		out.CreatedAt = b.CreatedAt
	}
	return out
}

// ForeignFetcher resolves a Compare{id} control action by fetching the
// peer's ComparisonData and, when available, the entity's raw bytes.
type ForeignFetcher func(id types.EntityId) (ComparisonData, []byte, error)

// SyncTrees recursively resolves CompareTrees' emitted Compare actions
// via fetch, down to MaxSyncDepth, returning the flattened list of
// persisted (non-control) actions each side should apply.
func (s *Storage) SyncTrees(rootID types.EntityId, rootForeign ComparisonData, rootForeignBytes []byte, fetch ForeignFetcher) (localActions, remoteActions []action.Action, err error) {
	return s.syncTreesAt(rootID, rootForeign, rootForeignBytes, fetch, 0)
}

func (s *Storage) syncTreesAt(id types.EntityId, foreign ComparisonData, foreignBytes []byte, fetch ForeignFetcher, depth int) ([]action.Action, []action.Action, error) {
	if depth > MaxSyncDepth {
		return nil, nil, ErrSyncDepthExceeded
	}

	localRaw, remoteRaw, err := s.CompareTrees(id, foreign, foreignBytes)
	if err != nil {
		return nil, nil, err
	}

	var local, remote []action.Action
	for _, a := range localRaw {
		if !a.IsControl() {
			local = append(local, a)
			continue
		}
		childForeign, childBytes, ferr := fetch(a.ID)
		if ferr != nil {
			return nil, nil, ferr
		}
		cl, cr, serr := s.syncTreesAt(a.ID, childForeign, childBytes, fetch, depth+1)
		if serr != nil {
			return nil, nil, serr
		}
		local = append(local, cl...)
		remote = append(remote, cr...)
	}
	for _, a := range remoteRaw {
		if !a.IsControl() {
			remote = append(remote, a)
		}
		// A remote-side Compare is resolved by the peer's own sync_trees
		// call against its view of this id; this side does not recurse
		// into it.
	}

	return local, remote, nil
}
