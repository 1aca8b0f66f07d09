package storage

import (
	"github.com/calimero-network/core/action"
	"github.com/calimero-network/core/entity"
	"github.com/calimero-network/core/types"
)

// ComparisonData is the wire-level snapshot of one entity's index
// position, sent to a peer so it can run CompareTrees against its own
// local state without first fetching every child's full body.
type ComparisonData struct {
	ID        types.EntityId
	OwnHash   types.Hash
	FullHash  types.Hash
	Metadata  entity.Metadata
	Ancestors []action.ChildInfo
	Children  map[string][]action.ChildInfo
}

// GenerateComparisonData builds the ComparisonData for id: its hashes,
// metadata, ancestor chain (as ChildInfo, so a receiver missing the
// ancestor can create it), and every child grouped by collection name.
// Each ChildInfo.OwnHash field in the Ancestors/Children output carries
// the child's full_hash (its own content plus its descendants), not its
// own_hash alone — full_hash is what detects divergence anywhere in a
// child's subtree without a further round trip.
func (s *Storage) GenerateComparisonData(id types.EntityId) (ComparisonData, bool) {
	md, ok := s.idx.GetMetadata(id)
	if !ok {
		return ComparisonData{}, false
	}
	own, full, _ := s.idx.GetHashesFor(id)

	ancestorIDs := s.idx.GetAncestorsOf(id)
	ancestors := make([]action.ChildInfo, 0, len(ancestorIDs))
	for _, aid := range ancestorIDs {
		ancestors = append(ancestors, s.childInfo(aid))
	}

	names := s.idx.GetCollectionNamesFor(id)
	children := make(map[string][]action.ChildInfo, len(names))
	for _, name := range names {
		ids := s.idx.GetChildrenOf(id, name)
		infos := make([]action.ChildInfo, 0, len(ids))
		for _, cid := range ids {
			infos = append(infos, s.childInfo(cid))
		}
		children[name] = infos
	}

	return ComparisonData{
		ID: id, OwnHash: own, FullHash: full, Metadata: md,
		Ancestors: ancestors, Children: children,
	}, true
}

func (s *Storage) childInfo(id types.EntityId) action.ChildInfo {
	md, _ := s.idx.GetMetadata(id)
	_, full, _ := s.idx.GetHashesFor(id)
	return action.ChildInfo{ID: id, OwnHash: full, Metadata: md}
}

func (s *Storage) ancestorChildInfos(id types.EntityId) []action.ChildInfo {
	ids := s.idx.GetAncestorsOf(id)
	out := make([]action.ChildInfo, 0, len(ids))
	for _, aid := range ids {
		out = append(out, s.childInfo(aid))
	}
	return out
}
