package sync

import (
	"github.com/calimero-network/core/types"
)

// Capability is a single negotiable protocol feature bit. Two peers AND
// their capability sets together to pick the richest protocol both
// sides support.
type Capability uint32

const (
	CapBloomFilter Capability = 1 << iota
	CapSubtreePrefetch
	CapLevelWise
	CapSnapshotStream
)

// Has reports whether c includes all of want.
func (c Capability) Has(want Capability) bool { return c&want == want }

// Negotiate returns the capability bits both peers support.
func Negotiate(local, remote Capability) Capability { return local & remote }

// PayloadKind tags which variant of Init.Payload is populated.
type PayloadKind uint8

const (
	PayloadKeyShare PayloadKind = iota
	PayloadBlobShare
	PayloadDagHeadsRequest
	PayloadDeltaRequest
	PayloadSnapshotBoundaryRequest
	PayloadSnapshotStreamRequest
	PayloadSyncHandshake
	PayloadTreeNodeRequest
	PayloadBloomFilterRequest
)

// KeyShare carries a party's key-share payload during the handshake's
// key-exchange phase.
type KeyShare struct {
	PartyID string
	Share   []byte
}

// BlobShare advertises or transfers blob bytes out of band from delta
// payloads.
type BlobShare struct {
	BlobID types.BlobId
	Chunk  []byte
	Offset uint64
	Final  bool
}

// DagHeadsRequest asks the peer for its current set of DAG head ids.
type DagHeadsRequest struct{}

// DeltaRequest asks for the deltas after the given known heads, used by
// delta catchup.
type DeltaRequest struct {
	KnownHeads []types.DeltaId
}

// SnapshotBoundaryRequest asks for the canonical-key range a snapshot
// sync will cover, so the receiver can size the transfer.
type SnapshotBoundaryRequest struct{}

// SnapshotStreamRequest resumes (or starts) a paged snapshot transfer
// from Cursor; an empty Cursor means "from the start".
type SnapshotStreamRequest struct {
	Cursor []byte
	PageSize uint32
}

// SyncHandshake is the opening frame of a sync attempt: protocol
// capabilities plus the root hash and DAG heads the initiator currently
// has, enough for the responder to pick a strategy without a
// round-trip.
type SyncHandshake struct {
	ContextID    types.ContextId
	Capabilities Capability
	RootHash     types.Hash
	DagHeads     []types.DeltaId
	Initialized  bool
}

// TreeNodeRequest asks for one Merkle node's ComparisonData by id, the
// unit of work in level-wise or subtree-prefetch state sync.
type TreeNodeRequest struct {
	EntityID types.EntityId
}

// BloomFilterRequest asks the peer to answer with a Bloom filter over
// its known delta/entity ids, used to estimate divergence cheaply
// before committing to a full comparison.
type BloomFilterRequest struct {
	FilterBits uint32
	HashCount  uint8
}

// Payload is a tagged union over the handshake's request variants.
// Exactly the field matching Kind is meaningful.
type Payload struct {
	Kind                    PayloadKind
	KeyShare                *KeyShare
	BlobShare               *BlobShare
	DagHeadsRequest         *DagHeadsRequest
	DeltaRequest            *DeltaRequest
	SnapshotBoundaryRequest *SnapshotBoundaryRequest
	SnapshotStreamRequest   *SnapshotStreamRequest
	SyncHandshake           *SyncHandshake
	TreeNodeRequest         *TreeNodeRequest
	BloomFilterRequest      *BloomFilterRequest
}

// Init is the handshake envelope exchanged over a freshly dialed
// Stream: which context and party, the request payload, and the next
// nonce the sender expects a reply to be keyed with (request/response
// pairing on one stream is strict; no interleaving of unrelated
// replies).
type Init struct {
	ContextID types.ContextId
	PartyID   string
	Payload   Payload
	NextNonce uint64
}
