package sync

import (
	"github.com/calimero-network/core/codec"
	"github.com/calimero-network/core/errs"
	"github.com/calimero-network/core/types"
)

// MarshalInit encodes the opening handshake envelope for the wire
// layer to frame as a KindInit StreamMessage. Only the SyncHandshake
// payload variant is encoded here: it is the one every sync attempt
// opens with, picking a strategy before any of the richer request
// kinds (TreeNodeRequest, BloomFilterRequest, ...) are exchanged. Those
// travel as KindMessage payloads the sync engine encodes itself once a
// strategy is chosen, and are out of scope for this envelope.
func (init Init) MarshalInit() ([]byte, error) {
	if init.Payload.Kind != PayloadSyncHandshake || init.Payload.SyncHandshake == nil {
		return nil, &errs.InvalidData{Reason: "sync: MarshalInit requires a SyncHandshake payload"}
	}
	h := init.Payload.SyncHandshake

	e := codec.NewEncoder(64 + len(init.PartyID) + len(h.DagHeads)*32)
	e.PutString(init.PartyID)
	e.PutUint64(init.NextNonce)
	e.PutFixed(h.ContextID.Bytes())
	e.PutUint32(uint32(h.Capabilities))
	e.PutFixed(h.RootHash.Bytes())
	e.PutBool(h.Initialized)
	e.PutUint32(uint32(len(h.DagHeads)))
	for _, id := range h.DagHeads {
		e.PutFixed(id.Bytes())
	}
	return e.Bytes()
}

// UnmarshalInit decodes a KindInit StreamMessage body produced by
// MarshalInit back into an Init envelope carrying a SyncHandshake
// payload.
func UnmarshalInit(b []byte) (Init, error) {
	d := codec.NewDecoder(b)
	partyID := d.String()
	nextNonce := d.Uint64()
	contextIDBytes := d.Fixed(32)
	capabilities := d.Uint32()
	rootHashBytes := d.Fixed(32)
	initialized := d.Bool()
	headCount := d.Uint32()
	heads := make([]types.DeltaId, 0, headCount)
	for i := uint32(0); i < headCount; i++ {
		id, err := types.DeltaIdFromBytes(d.Fixed(32))
		if err != nil {
			return Init{}, err
		}
		heads = append(heads, id)
	}
	if err := d.Done(); err != nil {
		return Init{}, err
	}

	contextID, err := types.ContextIdFromBytes(contextIDBytes)
	if err != nil {
		return Init{}, err
	}
	rootHash, err := types.HashFromBytes(rootHashBytes)
	if err != nil {
		return Init{}, err
	}

	return Init{
		ContextID: contextID,
		PartyID:   partyID,
		NextNonce: nextNonce,
		Payload: Payload{
			Kind: PayloadSyncHandshake,
			SyncHandshake: &SyncHandshake{
				ContextID:    contextID,
				Capabilities: Capability(capabilities),
				RootHash:     rootHash,
				DagHeads:     heads,
				Initialized:  initialized,
			},
		},
	}, nil
}
