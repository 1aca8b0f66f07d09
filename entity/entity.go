// Package entity defines the unit of CRDT-addressable state: an Entity
// with its metadata, storage-type access rules, and the tombstone that
// replaces a removed entity in the index.
package entity

import (
	"crypto/sha256"

	"github.com/calimero-network/core/types"
)

// CrdtType names which CRDT merge dispatch an entity's bytes use. The
// zero value CrdtTypeLegacy means "absent in the original data model",
// which merges as LwwRegister.
type CrdtType uint8

const (
	CrdtTypeLegacy CrdtType = iota
	CrdtTypeLwwRegister
	CrdtTypeCounter
	CrdtTypeUnorderedMap
	CrdtTypeUnorderedSet
	CrdtTypeVector
	CrdtTypeRga
	CrdtTypeCustom
)

// Metadata carries an entity's bookkeeping fields, independent of its
// opaque data bytes.
type Metadata struct {
	CreatedAt   uint64
	UpdatedAt   types.HLC
	StorageType StorageType
	CrdtType    CrdtType
	// CustomTypeName is only meaningful when CrdtType == CrdtTypeCustom; it
	// names the registry entry or host-callback identifier to dispatch to.
	CustomTypeName string
}

// StorageKind distinguishes the three storage_type variants.
type StorageKind uint8

const (
	StorageKindPublic StorageKind = iota
	StorageKindFrozen
	StorageKindUser
)

// StorageType carries the access-control rule for an entity. Only the
// fields relevant to Kind are meaningful for a given value; the zero
// value is Public.
type StorageType struct {
	Kind  StorageKind
	Owner types.PublicKey // User only
	// Nonce is the last accepted nonce for a User entity; zero until the
	// first signed write.
	Nonce uint64
}

// Public returns the no-constraint storage type.
func Public() StorageType { return StorageType{Kind: StorageKindPublic} }

// Frozen returns the content-addressed, immutable-after-creation storage type.
func Frozen() StorageType { return StorageType{Kind: StorageKindFrozen} }

// User returns the owner-gated storage type, the nonce starting at zero.
func User(owner types.PublicKey) StorageType {
	return StorageType{Kind: StorageKindUser, Owner: owner}
}

// Entity is the unit of CRDT-addressable state held by the index.
type Entity struct {
	ID       types.EntityId
	Data     []byte
	Metadata Metadata
}

// OwnHash is SHA-256 over Data alone, independent of children.
func (e Entity) OwnHash() types.Hash {
	return types.SumHash(e.Data)
}

// Tombstone replaces a removed entity in the index: the id persists so
// future apply_action calls can detect a reference to dead state, but
// reads return absent and the tombstone dominates any older update.
type Tombstone struct {
	ID        types.EntityId
	DeletedAt uint64
}

// Dominates reports whether t should replace an existing tombstone or
// update for the same id, under the max-wins rule.
func (t Tombstone) Dominates(existingUpdatedAt uint64) bool {
	return t.DeletedAt >= existingUpdatedAt
}

// VerifyFrozenPrefix checks the Frozen storage-type invariant: the first
// 32 bytes of the stored layout are a key-hash prefix that must equal
// SHA-256 of the remaining body.
func VerifyFrozenPrefix(stored []byte) (body []byte, ok bool) {
	if len(stored) < sha256.Size {
		return nil, false
	}
	prefix, body := stored[:sha256.Size], stored[sha256.Size:]
	sum := sha256.Sum256(body)
	if string(prefix) != string(sum[:]) {
		return nil, false
	}
	return body, true
}

// FrozenLayout prepends body's SHA-256 as the required key-hash prefix.
func FrozenLayout(body []byte) []byte {
	sum := sha256.Sum256(body)
	out := make([]byte, 0, sha256.Size+len(body))
	out = append(out, sum[:]...)
	out = append(out, body...)
	return out
}
