// Package errs defines the core's closed error taxonomy. Structural and
// validation errors abort the containing operation with no partial
// writes; transient errors are for the sync layer to retry.
package errs

import (
	"errors"
	"fmt"
	"sync"

	cockroacherrors "github.com/cockroachdb/errors"

	"github.com/calimero-network/core/types"
)

// Sentinel errors with no associated data.
var (
	ErrSerialization     = errors.New("calimero: serialization error")
	ErrInvalidSignature  = errors.New("calimero: invalid signature")
	ErrMigrationSkipped  = errors.New("calimero: migration write skipped due to timestamp conflict")
	ErrPeerUnreachable   = errors.New("calimero: peer unreachable")
	ErrMeshUnformed      = errors.New("calimero: broadcast mesh not yet formed")
	ErrSyncTimeout       = errors.New("calimero: sync operation timed out")
	ErrBlobsNotSupported = errors.New("calimero: blobs not supported by this host")
	ErrInvalidBlobHandle = errors.New("calimero: invalid blob handle")
	ErrBlobWriteTooLarge = errors.New("calimero: blob write exceeds max chunk size")
	ErrBlobBufferTooLarge = errors.New("calimero: blob buffer exceeds max buffer size")
	ErrTooManyBlobHandles = errors.New("calimero: too many open blob handles")
)

// IndexNotFound is returned when an entity is referenced but absent.
type IndexNotFound struct{ ID types.EntityId }

func (e *IndexNotFound) Error() string { return fmt.Sprintf("calimero: entity not found: %s", e.ID) }

// CannotCreateOrphan is returned when save_raw targets a non-root entity
// with no existing parent.
type CannotCreateOrphan struct{ ID types.EntityId }

func (e *CannotCreateOrphan) Error() string {
	return fmt.Sprintf("calimero: cannot create orphan entity %s", e.ID)
}

// InvalidData covers structural invariant violations (Frozen content-hash
// mismatch, manifest missing a required field, etc).
type InvalidData struct{ Reason string }

func (e *InvalidData) Error() string { return "calimero: invalid data: " + e.Reason }

// NonceReplay is returned when an incoming User action's nonce does not
// exceed the stored nonce for that entity/owner.
type NonceReplay struct {
	Owner types.PublicKey
	Nonce uint64
}

func (e *NonceReplay) Error() string {
	return fmt.Sprintf("calimero: nonce replay for owner %s at nonce %d", e.Owner, e.Nonce)
}

// ActionNotAllowed covers attempted forbidden transitions (Update on
// Frozen, Delete of Frozen, Compare as input, StorageType change).
type ActionNotAllowed struct{ Reason string }

func (e *ActionNotAllowed) Error() string { return "calimero: action not allowed: " + e.Reason }

// AppKeyContinuityViolation is returned when an application update's
// signer_id fails the continuity rule: an established signer_id must
// carry forward unchanged, though an empty signer_id may be set for
// the first time.
type AppKeyContinuityViolation struct {
	OldSignerID string
	NewSignerID string
}

func (e *AppKeyContinuityViolation) Error() string {
	return fmt.Sprintf("calimero: appkey continuity violation: old=%q new=%q", e.OldSignerID, e.NewSignerID)
}

// Collector accumulates every error a multi-field validation pass finds
// (a manifest's several missing fields, a bundle's several artifact
// mismatches) instead of aborting at the first one, so a caller can
// report the whole set at once.
type Collector struct {
	mu   sync.Mutex
	errs []error
}

// Add records err if non-nil.
func (c *Collector) Add(err error) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

// Errored reports whether Add has recorded anything.
func (c *Collector) Errored() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.errs) > 0
}

// Err returns nil if nothing was recorded, the single recorded error if
// exactly one was, or every one folded together via cockroachdb/errors'
// multi-cause combinator otherwise, so callers keep a single error value
// while errors.Is/As still sees each original cause.
func (c *Collector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch len(c.errs) {
	case 0:
		return nil
	case 1:
		return c.errs[0]
	default:
		combined := c.errs[0]
		for _, err := range c.errs[1:] {
			combined = cockroacherrors.CombineErrors(combined, err)
		}
		return combined
	}
}
