package types

import "crypto/sha256"

// ContextId identifies a replicated state machine. It doubles as the
// identifier of the context's per-context broadcast topic, hex-encoded.
type ContextId struct{ v id32 }

// ApplicationId identifies the bytecode module a context runs.
type ApplicationId struct{ v id32 }

// BlobId identifies content-addressed bytes in the blob store.
type BlobId struct{ v id32 }

// PublicKey identifies a signing identity (an owner of User-storage
// entities, or a member of a context).
type PublicKey struct{ v id32 }

// Hash is a generic 32-byte digest: an entity's own_hash/full_hash, or a
// context's root_hash.
type Hash struct{ v id32 }

// EntityId addresses a node of the per-context Merkle tree. The zero
// value is NOT the root; use EntityRoot().
type EntityId struct{ v id32 }

// DeltaId is the content hash of a causal delta's canonical encoding.
type DeltaId struct{ v id32 }

func (c ContextId) Bytes() []byte     { return c.v.bytes() }
func (c ContextId) String() string    { return c.v.hex() }
func (c ContextId) IsZero() bool      { return c.v == id32{} }
func (c ContextId) Equal(o ContextId) bool { return c.v == o.v }

func ContextIdFromBytes(b []byte) (ContextId, error) {
	v, err := idFromBytes(b)
	return ContextId{v}, err
}

func ContextIdFromHex(s string) (ContextId, error) {
	v, err := idFromHex(s)
	return ContextId{v}, err
}

func (a ApplicationId) Bytes() []byte        { return a.v.bytes() }
func (a ApplicationId) String() string       { return a.v.hex() }
func (a ApplicationId) IsZero() bool         { return a.v == id32{} }
func (a ApplicationId) Equal(o ApplicationId) bool { return a.v == o.v }

func ApplicationIdFromBytes(b []byte) (ApplicationId, error) {
	v, err := idFromBytes(b)
	return ApplicationId{v}, err
}

func ApplicationIdFromHex(s string) (ApplicationId, error) {
	v, err := idFromHex(s)
	return ApplicationId{v}, err
}

func (b BlobId) Bytes() []byte     { return b.v.bytes() }
func (b BlobId) String() string    { return b.v.hex() }
func (b BlobId) IsZero() bool      { return b.v == id32{} }
func (b BlobId) Equal(o BlobId) bool { return b.v == o.v }

func BlobIdFromBytes(b []byte) (BlobId, error) {
	v, err := idFromBytes(b)
	return BlobId{v}, err
}

func BlobIdFromHex(s string) (BlobId, error) {
	v, err := idFromHex(s)
	return BlobId{v}, err
}

func (p PublicKey) Bytes() []byte     { return p.v.bytes() }
func (p PublicKey) String() string    { return p.v.hex() }
func (p PublicKey) IsZero() bool      { return p.v == id32{} }
func (p PublicKey) Equal(o PublicKey) bool { return p.v == o.v }

func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	v, err := idFromBytes(b)
	return PublicKey{v}, err
}

func PublicKeyFromHex(s string) (PublicKey, error) {
	v, err := idFromHex(s)
	return PublicKey{v}, err
}

func (h Hash) Bytes() []byte     { return h.v.bytes() }
func (h Hash) String() string    { return h.v.hex() }
func (h Hash) IsZero() bool      { return h.v == id32{} }
func (h Hash) Equal(o Hash) bool { return h.v == o.v }

// Less gives Hash a deterministic total order, used to sort children by
// own_hash before their full_hashes are combined into a parent's
// full_hash.
func (h Hash) Less(o Hash) bool {
	for i := range h.v {
		if h.v[i] != o.v[i] {
			return h.v[i] < o.v[i]
		}
	}
	return false
}

func HashFromBytes(b []byte) (Hash, error) {
	v, err := idFromBytes(b)
	return Hash{v}, err
}

func HashFromHex(s string) (Hash, error) {
	v, err := idFromHex(s)
	return Hash{v}, err
}

// SumHash returns SHA-256(data) as a Hash.
func SumHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash{id32(sum)}
}

func (e EntityId) Bytes() []byte     { return e.v.bytes() }
func (e EntityId) String() string    { return e.v.hex() }
func (e EntityId) IsZero() bool      { return e.v == id32{} }
func (e EntityId) Equal(o EntityId) bool { return e.v == o.v }
func (e EntityId) Less(o EntityId) bool {
	for i := range e.v {
		if e.v[i] != o.v[i] {
			return e.v[i] < o.v[i]
		}
	}
	return false
}

// EntityRoot is the distinguished identifier of a context's root entity.
func EntityRoot() EntityId { return EntityId{} }

// IsRoot reports whether this id is the context root.
func (e EntityId) IsRoot() bool { return e.v == id32{} }

func EntityIdFromBytes(b []byte) (EntityId, error) {
	v, err := idFromBytes(b)
	return EntityId{v}, err
}

func EntityIdFromHex(s string) (EntityId, error) {
	v, err := idFromHex(s)
	return EntityId{v}, err
}

// EntityIdFromHash derives a deterministic EntityId from content, e.g. a
// collection entry keyed by its logical key.
func EntityIdFromHash(h Hash) EntityId { return EntityId{h.v} }

func (d DeltaId) Bytes() []byte     { return d.v.bytes() }
func (d DeltaId) String() string    { return d.v.hex() }
func (d DeltaId) IsZero() bool      { return d.v == id32{} }
func (d DeltaId) Equal(o DeltaId) bool { return d.v == o.v }

func DeltaIdFromBytes(b []byte) (DeltaId, error) {
	v, err := idFromBytes(b)
	return DeltaId{v}, err
}

func DeltaIdFromHex(s string) (DeltaId, error) {
	v, err := idFromHex(s)
	return DeltaId{v}, err
}

// DeltaIdFromHash derives a DeltaId from the canonical encoding hash of a
// causal delta.
func DeltaIdFromHash(h Hash) DeltaId { return DeltaId{h.v} }
