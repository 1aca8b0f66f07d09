// Package delta implements the causal DAG of deltas a context replicates:
// content-addressed CausalDelta records, a commit pipeline that applies
// each delta's actions through the storage interface, and the
// missing-parent bookkeeping the sync engine drains to request catchup.
package delta

import (
	"errors"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/luxfi/log"

	"github.com/calimero-network/core/action"
	"github.com/calimero-network/core/codec"
	"github.com/calimero-network/core/set"
	"github.com/calimero-network/core/types"
)

// ErrRootMismatch is returned by Commit when a delta's expected_root_hash
// does not match the root hash the storage layer reports after applying
// its actions. The delta is quarantined rather than left half-applied.
var ErrRootMismatch = errors.New("delta: committed root hash does not match expected_root_hash")

// CausalDelta is one causally-ordered unit of replication: an ordered
// action payload stamped with the sender's heads at emission time and
// the HLC that breaks concurrent ties deterministically.
type CausalDelta struct {
	ID               types.DeltaId
	Parents          []types.DeltaId
	Payload          []action.Action
	HLC              types.HLC
	ExpectedRootHash types.Hash
}

// IsGenesis reports whether d has no parents.
func (d CausalDelta) IsGenesis() bool { return len(d.Parents) == 0 }

// CanonicalBytes returns d's canonical encoding, the preimage of its
// content-addressed DeltaId. Parents are sorted before encoding so two
// deltas built from the same logical parent set hash identically
// regardless of collection order.
func (d CausalDelta) CanonicalBytes() ([]byte, error) {
	enc := codec.NewEncoder(128)
	parents := append([]types.DeltaId(nil), d.Parents...)
	sort.Slice(parents, func(i, j int) bool {
		return string(parents[i].Bytes()) < string(parents[j].Bytes())
	})
	enc.PutUint32(uint32(len(parents)))
	for _, p := range parents {
		enc.PutFixed(p.Bytes())
	}
	enc.PutUint64(d.HLC.WallTime)
	enc.PutUint32(d.HLC.Logical)
	enc.PutFixed(d.ExpectedRootHash.Bytes())
	enc.PutUint32(uint32(len(d.Payload)))
	for _, a := range d.Payload {
		enc.PutByte(byte(a.Kind))
		enc.PutFixed(a.ID.Bytes())
		enc.PutBytes(a.Data)
		enc.PutUint64(a.DeletedAt)
	}
	return enc.Bytes()
}

// AppliedEvent is emitted once per successfully committed delta.
type AppliedEvent struct {
	DeltaID          types.DeltaId
	ExpectedRootHash types.Hash
	NewRootHash      types.Hash
}

// Committer is the subset of the storage interface a delta commits
// through: apply each action in order, then recompute and return the
// root hash.
type Committer interface {
	ApplyAction(a action.Action) ([]action.Action, error)
	CommitRoot() (types.Hash, error)
}

// Store holds one context's causal DAG: every known delta, which of
// them are committed, the current heads, and the set of pending deltas
// still waiting on a missing parent.
type Store struct {
	committer Committer
	logger    log.Logger
	onApplied func(AppliedEvent)

	deltas      map[types.DeltaId]CausalDelta
	committed   set.Set[types.DeltaId]
	heads       set.Set[types.DeltaId]
	pending     set.Set[types.DeltaId]
	pendingLRU  *lru.Cache[types.DeltaId, CausalDelta]
	evictedOnce set.Set[types.DeltaId]

	cascaded []CausalDelta
}

// New builds an empty delta store over committer, bounding the pending
// (missing-parent) working set to maxPending entries so an unbounded
// flood of orphaned deltas cannot grow memory without limit.
func New(committer Committer, maxPending int) (*Store, error) {
	s := &Store{
		committer:   committer,
		logger:      log.NewNoOpLogger(),
		deltas:      make(map[types.DeltaId]CausalDelta),
		committed:   set.Set[types.DeltaId]{},
		heads:       set.Set[types.DeltaId]{},
		pending:     set.Set[types.DeltaId]{},
		evictedOnce: set.Set[types.DeltaId]{},
	}
	cache, err := lru.NewWithEvict(maxPending, func(id types.DeltaId, _ CausalDelta) {
		s.pending.Remove(id)
		s.evictedOnce.Add(id)
		s.logger.Warn("evicted non-progressing pending delta", "delta_id", id.String())
	})
	if err != nil {
		return nil, fmt.Errorf("delta: building pending cache: %w", err)
	}
	s.pendingLRU = cache
	return s, nil
}

// SetLogger installs a structured logger, replacing the no-op default.
func (s *Store) SetLogger(l log.Logger) { s.logger = l }

// SetAppliedHook installs the callback fired after every committed delta.
func (s *Store) SetAppliedHook(fn func(AppliedEvent)) { s.onApplied = fn }

// HasDelta reports whether id is known (committed or pending).
func (s *Store) HasDelta(id types.DeltaId) bool {
	_, ok := s.deltas[id]
	return ok
}

// Heads returns the current DAG heads.
func (s *Store) Heads() []types.DeltaId { return s.heads.List() }

// IsGenesis reports whether d has no parents.
func (s *Store) IsGenesis(d CausalDelta) bool { return d.IsGenesis() }

// AddDelta inserts d. If every parent is already committed (or d is
// genesis), it commits immediately; otherwise d is parked in the
// pending set until get_missing_parents resolves the gap.
func (s *Store) AddDelta(d CausalDelta) error {
	if _, already := s.deltas[d.ID]; already {
		return nil
	}
	s.deltas[d.ID] = d

	if s.parentsReady(d) {
		return s.Commit(d)
	}
	s.pending.Add(d.ID)
	s.pendingLRU.Add(d.ID, d)
	return nil
}

func (s *Store) parentsReady(d CausalDelta) bool {
	for _, p := range d.Parents {
		if !s.committed.Contains(p) {
			return false
		}
	}
	return true
}

// Commit applies d's actions in order through the committer, verifies
// the resulting root hash matches d.ExpectedRootHash, and on success
// advances heads to ({heads} \ d.Parents) ∪ {d.ID}. A root mismatch
// quarantines the delta: it is left out of committed/heads and
// ErrRootMismatch is returned so the caller can trigger a full
// divergence-recovery sync.
func (s *Store) Commit(d CausalDelta) error {
	for _, a := range d.Payload {
		if _, err := s.committer.ApplyAction(a); err != nil {
			return fmt.Errorf("delta: applying action for %s: %w", d.ID, err)
		}
	}
	newRoot, err := s.committer.CommitRoot()
	if err != nil {
		return fmt.Errorf("delta: commit_root for %s: %w", d.ID, err)
	}
	if !newRoot.Equal(d.ExpectedRootHash) {
		s.logger.Error("delta root mismatch, quarantining",
			"delta_id", d.ID.String(), "expected", d.ExpectedRootHash.String(), "got", newRoot.String())
		return ErrRootMismatch
	}

	for _, p := range d.Parents {
		s.heads.Remove(p)
	}
	s.heads.Add(d.ID)
	s.committed.Add(d.ID)
	s.pending.Remove(d.ID)
	s.pendingLRU.Remove(d.ID)

	if s.onApplied != nil {
		s.onApplied(AppliedEvent{DeltaID: d.ID, ExpectedRootHash: d.ExpectedRootHash, NewRootHash: newRoot})
	}
	return s.resolvePendingAfter(d.ID)
}

// resolvePendingAfter commits any pending delta whose parents are now
// all satisfied following d's commit, cascading until no more progress
// is made in one pass.
func (s *Store) resolvePendingAfter(justCommitted types.DeltaId) error {
	progressed := true
	for progressed {
		progressed = false
		for _, id := range s.pending.List() {
			if !s.pending.Contains(id) {
				continue // committed by a nested cascade since List() was taken
			}
			d, ok := s.deltas[id]
			if !ok {
				continue
			}
			if !s.parentsReady(d) {
				continue
			}
			if err := s.Commit(d); err != nil {
				return err
			}
			progressed = true
		}
	}
	return nil
}

// GetMissingParents reports the ids referenced as a pending delta's
// parent but not yet known, plus any cascaded deltas LoadPersistedDeltas
// queued whose applied-event listeners have not run yet. The caller
// must dispatch those listeners exactly once and then drain them.
func (s *Store) GetMissingParents() (missingIDs []types.DeltaId, cascadedEvents []CausalDelta) {
	seen := set.Set[types.DeltaId]{}
	for _, id := range s.pending.List() {
		d := s.deltas[id]
		for _, p := range d.Parents {
			if _, ok := s.deltas[p]; ok {
				continue
			}
			if !seen.Contains(p) {
				seen.Add(p)
				missingIDs = append(missingIDs, p)
			}
		}
	}
	cascadedEvents = s.cascaded
	s.cascaded = nil
	return missingIDs, cascadedEvents
}

// LoadPersistedDeltas re-hydrates the store from durable storage after a
// restart. Deltas are recorded as already-committed bookkeeping (their
// actions were applied in a prior process) without re-running Commit, so
// no action is double-applied; each is queued as a cascaded event for
// the caller to dispatch exactly once via GetMissingParents.
func (s *Store) LoadPersistedDeltas(persisted []CausalDelta) {
	for _, d := range persisted {
		if _, already := s.deltas[d.ID]; already {
			continue
		}
		s.deltas[d.ID] = d
		s.committed.Add(d.ID)
		for _, p := range d.Parents {
			s.heads.Remove(p)
		}
		s.heads.Add(d.ID)
		s.cascaded = append(s.cascaded, d)
	}
}
