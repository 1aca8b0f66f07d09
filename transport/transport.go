// Package transport defines the external wire-transport collaborator:
// a reliable bidirectional byte stream per peer pair for the sync
// handshake, plus a topic-scoped best-effort broadcast mesh the delta
// gossip path publishes to. Neither is implemented here; a concrete
// substrate (QUIC, libp2p, ...) satisfies these interfaces outside this
// module's boundary.
package transport

import (
	"context"
	"io"

	"github.com/luxfi/ids"

	"github.com/calimero-network/core/types"
)

// Stream is a reliable, ordered, bidirectional byte pipe to one peer,
// used for the sync handshake request/response exchange.
type Stream interface {
	io.ReadWriteCloser
	RemotePeer() ids.NodeID
}

// Dialer opens a Stream to a specific peer.
type Dialer interface {
	Dial(ctx context.Context, peer ids.NodeID) (Stream, error)
}

// StreamHandler accepts inbound streams opened by peers.
type StreamHandler interface {
	HandleStream(ctx context.Context, s Stream) error
}

// Broadcast is the topic-scoped best-effort publish/subscribe mesh a
// context's delta gossip and Compare control frames ride on. Delivery
// is not guaranteed; the sync engine is the repair path for loss.
type Broadcast interface {
	Subscribe(ctx context.Context, topic string) (<-chan []byte, error)
	Unsubscribe(topic string) error
	Publish(ctx context.Context, topic string, payload []byte) error
	// MeshSize reports the current known subscriber count for topic, used
	// to detect an unformed mesh before starting a sync attempt.
	MeshSize(topic string) int
}

// ContextTopic derives the per-context broadcast topic identifier, a
// hex-encoded ContextId, the channel a CausalDelta or Compare control
// frame travels on.
func ContextTopic(id types.ContextId) string { return id.String() }
