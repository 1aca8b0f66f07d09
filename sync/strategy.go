package sync

import "github.com/calimero-network/core/types"

// StateStrategy names a state-sync protocol once dag_heads agree but
// root hashes differ.
type StateStrategy uint8

const (
	StrategyHashComparison StateStrategy = iota
	StrategyBloomFilter
	StrategySubtreePrefetch
	StrategyLevelWise
	StrategySnapshot
	StrategyCompressedSnapshot
	StrategyAdaptive
)

// Plan is the resolved next action the scheduler should take for one
// sync attempt against one peer.
type Plan uint8

const (
	PlanFailOverToNextPeer Plan = iota
	PlanSnapshotFromGenesis
	PlanDeltaSyncFromGenesis
	PlanDeltaCatchup
	PlanStateSync
)

// LocalView is everything the decision tree needs about the local
// replica's state to pick a strategy.
type LocalView struct {
	Initialized            bool // root_hash != 0
	DetectedIncompleteRestart bool
	HasPendingMissingParents  bool
	RootHash                types.Hash
	DagHeads                 []types.DeltaId
	LocalEntityCount         uint64
	TreeDepth                uint32
	MaxChildCount            uint32
}

// PeerView is what the handshake's SyncHandshake response told us about
// the remote replica.
type PeerView struct {
	HasState        bool // peer advertised a non-zero root_hash
	ManyDeltas      bool // peer's delta count exceeds a snapshot threshold
	RootHash        types.Hash
	DagHeads        []types.DeltaId
	RemoteEntityCount uint64
}

// Config bounds the strategy decision: whether snapshot bootstrap is
// permitted, and the preferred strategy when the dispatcher reaches
// state sync.
type Config struct {
	AllowSnapshotBootstrap bool
	PreferredStateStrategy StateStrategy
}

// Decide implements spec.md's strategy dispatch decision tree, a pure
// function of local/peer state so it can be tested without a network.
func Decide(local LocalView, peer PeerView, cfg Config) Plan {
	if !local.Initialized || local.DetectedIncompleteRestart {
		if !peer.HasState {
			return PlanFailOverToNextPeer
		}
		if peer.ManyDeltas && cfg.AllowSnapshotBootstrap {
			return PlanSnapshotFromGenesis
		}
		return PlanDeltaSyncFromGenesis
	}

	if local.HasPendingMissingParents {
		return PlanDeltaCatchup
	}

	if headsDisjoint(local.DagHeads, peer.DagHeads) {
		return PlanDeltaCatchup
	}

	if !local.RootHash.Equal(peer.RootHash) {
		return PlanStateSync
	}

	// Heads and root hash already agree: nothing to do, but the caller
	// still gets a concrete plan rather than a sentinel "no-op" value.
	return PlanStateSync
}

func headsDisjoint(a, b []types.DeltaId) bool {
	if len(a) == 0 || len(b) == 0 {
		return len(a) != len(b)
	}
	set := make(map[types.DeltaId]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			return false
		}
	}
	return true
}

// ResolveStateStrategy implements the state-sync sub-selection,
// including the mandatory Snapshot-forbidden-on-initialized-replica
// downgrade.
func ResolveStateStrategy(local LocalView, peer PeerView, cfg Config) StateStrategy {
	want := cfg.PreferredStateStrategy

	if want == StrategySnapshot || want == StrategyCompressedSnapshot {
		if local.Initialized && local.LocalEntityCount > 0 {
			want = StrategyHashComparison
		}
	}

	if want != StrategyAdaptive {
		return want
	}

	return adaptiveChoice(local, peer)
}

// adaptiveChoice picks among the non-snapshot strategies by rough shape:
// a small, shallow tree favors whole-tree hash comparison; a large
// divergence with many entities favors the cheaper Bloom-filter probe
// first; a deep, wide tree favors amortizing round trips via
// subtree prefetch over strict level-wise BFS.
func adaptiveChoice(local LocalView, peer PeerView) StateStrategy {
	const smallEntityCount = 1000
	const deepTree = 12

	if local.LocalEntityCount <= smallEntityCount && peer.RemoteEntityCount <= smallEntityCount {
		return StrategyHashComparison
	}
	if local.TreeDepth >= deepTree {
		if local.MaxChildCount > 32 {
			return StrategySubtreePrefetch
		}
		return StrategyLevelWise
	}
	return StrategyBloomFilter
}
