// Package action defines the sync primitive actions a causal delta
// carries and that the storage interface applies or emits during tree
// comparison: Add, Update, DeleteRef, and the control-only Compare.
package action

import (
	"github.com/calimero-network/core/entity"
	"github.com/calimero-network/core/types"
)

// Kind tags which variant an Action holds.
type Kind uint8

const (
	KindAdd Kind = iota
	KindUpdate
	KindDeleteRef
	KindCompare
)

// ChildInfo carries enough of a child entity for the receiver to
// reconstitute the ancestor index chain without fetching the child's
// full body: its id, content hash, and metadata.
type ChildInfo struct {
	ID       types.EntityId
	OwnHash  types.Hash
	Metadata entity.Metadata
}

// Action is a tagged union over the four sync-primitive variants. Only
// the fields relevant to Kind are populated:
//   - Add/Update: ID, Data, Ancestors, Metadata, and — when the target's
//     storage_type is User — Signature/SignedNonce over the canonical
//     payload returned by PayloadForSigning.
//   - DeleteRef: ID, DeletedAt, Metadata
//   - Compare: ID only — never persisted, it signals the receiver to
//     recursively reconcile the subtree rooted at ID.
type Action struct {
	Kind        Kind
	ID          types.EntityId
	Data        []byte
	Ancestors   []ChildInfo
	Metadata    entity.Metadata
	DeletedAt   uint64
	Signature   []byte
	SignedNonce uint64
}

// Add builds an Add action.
func Add(id types.EntityId, data []byte, ancestors []ChildInfo, md entity.Metadata) Action {
	return Action{Kind: KindAdd, ID: id, Data: data, Ancestors: ancestors, Metadata: md}
}

// Update builds an Update action.
func Update(id types.EntityId, data []byte, ancestors []ChildInfo, md entity.Metadata) Action {
	return Action{Kind: KindUpdate, ID: id, Data: data, Ancestors: ancestors, Metadata: md}
}

// WithSignature attaches a User-entity signature and nonce to an
// Add/Update action, returning the modified copy.
func (a Action) WithSignature(sig []byte, nonce uint64) Action {
	a.Signature = sig
	a.SignedNonce = nonce
	return a
}

// PayloadForSigning returns the canonical bytes a User-entity signature
// must cover: the entity id and data, in that order. Ancestors and
// metadata are excluded since they can be reconstructed deterministically
// by the receiver and are not part of the owner's intent.
func (a Action) PayloadForSigning() []byte {
	out := make([]byte, 0, len(a.ID.Bytes())+len(a.Data))
	out = append(out, a.ID.Bytes()...)
	out = append(out, a.Data...)
	return out
}

// DeleteRef builds a DeleteRef action.
func DeleteRef(id types.EntityId, deletedAt uint64, md entity.Metadata) Action {
	return Action{Kind: KindDeleteRef, ID: id, DeletedAt: deletedAt, Metadata: md}
}

// Compare builds a control-only Compare action: never persisted, it
// triggers recursive reconciliation of the subtree rooted at id.
func Compare(id types.EntityId) Action {
	return Action{Kind: KindCompare, ID: id}
}

// IsControl reports whether the action is a Compare signal rather than a
// persisted mutation.
func (a Action) IsControl() bool { return a.Kind == KindCompare }
