package sync

import (
	"context"
	"math/rand"
	"time"

	"github.com/luxfi/ids"

	"github.com/calimero-network/core/transport"
)

// MeshConfig bounds how long peer discovery waits for the broadcast
// topic's mesh to form before giving up a sync attempt.
type MeshConfig struct {
	FormationTimeout      time.Duration
	FormationCheckInterval time.Duration
}

// AwaitMesh blocks until topic's mesh has at least one peer or the
// formation timeout elapses, periodically re-subscribing on stalls the
// way a topic can silently drop its only subscriber.
func AwaitMesh(ctx context.Context, b transport.Broadcast, topic string, cfg MeshConfig) (int, error) {
	deadline := time.Now().Add(cfg.FormationTimeout)
	ticker := time.NewTicker(cfg.FormationCheckInterval)
	defer ticker.Stop()

	for {
		if n := b.MeshSize(topic); n > 0 {
			return n, nil
		}
		if time.Now().After(deadline) {
			return 0, context.DeadlineExceeded
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-ticker.C:
			if _, err := b.Subscribe(ctx, topic); err != nil {
				return 0, err
			}
		}
	}
}

// CandidateProbe reports whether a candidate peer is worth dialing for
// this sync attempt.
type CandidateProbe interface {
	// HasNonZeroState reports the peer's advertised root_hash != 0,
	// used to skip empty nodes when the local replica is itself
	// uninitialized (probing would otherwise pair two empty replicas).
	HasNonZeroState(ctx context.Context, peer ids.NodeID) (bool, error)
}

// SelectPeer picks the next peer to attempt: for an uninitialized local
// replica it filters to peers that report non-zero state; for an
// initialized replica it shuffles and returns candidates in randomized
// order, skipping ones still under backoff per PeerStates.
func SelectPeer(ctx context.Context, candidates []ids.NodeID, localInitialized bool, probe CandidateProbe, states *PeerStates, now time.Time) ([]ids.NodeID, error) {
	shuffled := make([]ids.NodeID, len(candidates))
	copy(shuffled, candidates)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	var ordered []ids.NodeID
	for _, peer := range shuffled {
		if states != nil && !states.Eligible(peer, now) {
			continue
		}
		if !localInitialized {
			ok, err := probe.HasNonZeroState(ctx, peer)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		ordered = append(ordered, peer)
	}
	return ordered, nil
}
