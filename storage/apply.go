package storage

import (
	"bytes"

	"github.com/calimero-network/core/action"
	"github.com/calimero-network/core/crypto"
	"github.com/calimero-network/core/entity"
	"github.com/calimero-network/core/errs"
	"github.com/calimero-network/core/types"
)

// ancestorLinkCollection is the collection name used when ApplyAction
// recreates a missing ancestor chain from a ChildInfo list that does not
// itself carry per-level collection names. The fidelity of the original
// collection name for a fully-absent local branch is not recoverable
// from the action alone; the next GenerateComparisonData pass on the
// sending side still reports the true name for any child added through
// the normal AddChildTo path.
const ancestorLinkCollection = "_ancestor"

// ApplyAction validates then applies a single synced action, per the
// error taxonomy's "structural/validation errors abort the containing
// operation with no partial writes" rule: every check below runs before
// any index mutation. On an accepted Add/Update it returns a Compare{id}
// follow-up the caller should enqueue for further reconciliation.
func (s *Storage) ApplyAction(a action.Action) ([]action.Action, error) {
	switch a.Kind {
	case action.KindCompare:
		return nil, &errs.ActionNotAllowed{Reason: "Compare is a control signal, not a valid input action"}
	case action.KindAdd, action.KindUpdate:
		return s.applyUpsert(a)
	case action.KindDeleteRef:
		return nil, s.applyDeleteRef(a)
	default:
		return nil, &errs.ActionNotAllowed{Reason: "unrecognized action kind"}
	}
}

func (s *Storage) applyUpsert(a action.Action) ([]action.Action, error) {
	existing, hasExisting := s.idx.FindByID(a.ID)
	existingMD, _ := s.idx.GetMetadata(a.ID)

	if hasExisting {
		if existingMD.StorageType.Kind == entity.StorageKindFrozen {
			if !bytes.Equal(existing.Data, a.Data) {
				return nil, &errs.ActionNotAllowed{Reason: "Frozen entities are immutable after creation"}
			}
			return nil, nil
		}
		if existingMD.StorageType.Kind != a.Metadata.StorageType.Kind {
			return nil, &errs.ActionNotAllowed{Reason: "storage_type cannot change after creation"}
		}
	}

	if a.Metadata.StorageType.Kind == entity.StorageKindFrozen {
		if _, ok := entity.VerifyFrozenPrefix(a.Data); !ok {
			return nil, &errs.InvalidData{Reason: "Frozen data corruption: body hash does not match stored prefix"}
		}
	}

	if a.Metadata.StorageType.Kind == entity.StorageKindUser {
		owner := a.Metadata.StorageType.Owner
		ok, err := crypto.Verify(owner, a.PayloadForSigning(), a.Signature)
		if err != nil || !ok {
			return nil, errs.ErrInvalidSignature
		}
		storedNonce := uint64(0)
		if hasExisting {
			storedNonce = existingMD.StorageType.Nonce
		}
		if a.SignedNonce <= storedNonce && hasExisting {
			return nil, &errs.NonceReplay{Owner: owner, Nonce: a.SignedNonce}
		}
		a.Metadata.StorageType.Nonce = a.SignedNonce
	}

	s.ensureAncestors(a.ID, a.Ancestors)

	if !hasExisting {
		parent := types.EntityRoot()
		if len(a.Ancestors) > 0 {
			parent = a.Ancestors[0].ID
		}
		if !a.ID.IsRoot() {
			if err := s.idx.AddChildTo(parent, ancestorLinkCollection, a.ID); err != nil {
				return nil, err
			}
		}
	}

	if _, err := s.idx.SaveRaw(a.ID, a.Data, a.Metadata); err != nil {
		return nil, err
	}

	return []action.Action{action.Compare(a.ID)}, nil
}

func (s *Storage) applyDeleteRef(a action.Action) error {
	existingMD, hasExisting := s.idx.GetMetadata(a.ID)
	if !hasExisting {
		return &errs.IndexNotFound{ID: a.ID}
	}
	if existingMD.StorageType.Kind == entity.StorageKindFrozen {
		return &errs.ActionNotAllowed{Reason: "Frozen entities cannot be deleted"}
	}
	// Tombstone monotonicity (P5): a DeleteRef older than the entity's
	// last update loses silently rather than erroring.
	if a.DeletedAt < existingMD.UpdatedAt.WallTime {
		return nil
	}
	parent, hasParent := s.idx.GetParentID(a.ID)
	if !hasParent {
		return &errs.IndexNotFound{ID: a.ID}
	}
	s.idx.RemoveChildFrom(parent, a.ID, a.DeletedAt)
	return nil
}

// ensureAncestors recreates any ancestor in the chain that is not yet
// present locally, processing root-ward first so each parent already
// exists by the time its child is linked.
func (s *Storage) ensureAncestors(id types.EntityId, ancestors []action.ChildInfo) {
	for i := len(ancestors) - 1; i >= 0; i-- {
		anc := ancestors[i]
		if _, exists := s.idx.GetMetadata(anc.ID); exists {
			continue
		}
		parent := types.EntityRoot()
		if i+1 < len(ancestors) {
			parent = ancestors[i+1].ID
		}
		if anc.ID.IsRoot() {
			continue
		}
		if err := s.idx.AddChildTo(parent, ancestorLinkCollection, anc.ID); err != nil {
			continue
		}
		_, _ = s.idx.SaveRaw(anc.ID, nil, anc.Metadata)
	}
}
