package orchestrator

import (
	"context"

	"github.com/luxfi/ids"

	"github.com/calimero-network/core/sync"
	"github.com/calimero-network/core/transport"
	"github.com/calimero-network/core/wire"
)

// DefaultRespond is the respond callback HandleStream expects: it reads
// the opening KindInit frame off s, decodes the SyncHandshake it
// carries, negotiates capabilities against local, and echoes an Init
// frame back with the responder's own handshake. This carries only the
// opening exchange — once a sync.Plan is chosen from the two
// handshakes, the sync engine drives the remainder of the stream with
// its own KindMessage framing, which this helper does not touch.
func DefaultRespond(local sync.SyncHandshake, partyID string) func(ctx context.Context, c *Context, peer ids.NodeID, s transport.Stream) error {
	return func(ctx context.Context, c *Context, peer ids.NodeID, s transport.Stream) error {
		frame, err := wire.ReadFrame(s)
		if err != nil {
			return err
		}
		if frame.Kind != wire.KindInit {
			return &wireKindError{got: frame.Kind}
		}
		peerInit, err := sync.UnmarshalInit(frame.Init)
		if err != nil {
			return err
		}

		negotiated := local
		if peerHandshake := peerInit.Payload.SyncHandshake; peerHandshake != nil {
			negotiated.Capabilities = sync.Negotiate(local.Capabilities, peerHandshake.Capabilities)
		}

		reply := sync.Init{
			ContextID: c.ID,
			PartyID:   partyID,
			NextNonce: frame.NextNonce,
			Payload: sync.Payload{
				Kind:          sync.PayloadSyncHandshake,
				SyncHandshake: &negotiated,
			},
		}
		body, err := reply.MarshalInit()
		if err != nil {
			return err
		}

		return wire.WriteFrame(s, wire.StreamMessage{
			Kind:      wire.KindInit,
			Nonce:     frame.Nonce,
			Init:      body,
			NextNonce: frame.NextNonce + 1,
		})
	}
}

type wireKindError struct{ got wire.Kind }

func (e *wireKindError) Error() string {
	return "orchestrator: expected KindInit as the opening stream frame"
}
