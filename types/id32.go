// Package types defines the core 32-byte identifiers and the hybrid
// logical clock used throughout a context's replicated state machine.
package types

import (
	"encoding/hex"
	"errors"
)

// ErrInvalidLength is returned when decoding a textual id of the wrong size.
var ErrInvalidLength = errors.New("types: invalid identifier length")

const idLen = 32

// id32 is the shared 32-byte representation backing every domain
// identifier (ContextId, ApplicationId, BlobId, PublicKey, Hash, EntityId,
// DeltaId). Each public type is distinct so the compiler catches swapped
// identifiers at call sites, mirroring how the teacher keeps ids.ID and
// ids.NodeID as separate types over the same underlying array shape.
type id32 [idLen]byte

func (id id32) bytes() []byte {
	out := make([]byte, idLen)
	copy(out, id[:])
	return out
}

func (id id32) hex() string {
	return hex.EncodeToString(id[:])
}

func idFromBytes(b []byte) (id32, error) {
	var id id32
	if len(b) != idLen {
		return id, ErrInvalidLength
	}
	copy(id[:], b)
	return id, nil
}

func idFromHex(s string) (id32, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return id32{}, err
	}
	return idFromBytes(b)
}
