// Package appupdate implements the two application-update entry points:
// a plain application_id swap, and a migration that also transforms
// existing root state through a bytecode-defined function. Both are
// gated by AppKey (signer_id) continuity, enforced before any write.
package appupdate

import (
	"context"
	"math"

	"github.com/calimero-network/core/configregistry"
	"github.com/calimero-network/core/entity"
	"github.com/calimero-network/core/errs"
	"github.com/calimero-network/core/executor"
	"github.com/calimero-network/core/index"
	"github.com/calimero-network/core/types"
)

// VerifyAppKeyContinuity enforces spec.md's four-way signer_id table.
// oldSignerID/newSignerID are the currently-installed and candidate
// application's AppKey; empty means "legacy unsigned". No write may
// happen before this returns nil.
//
// Audit item: both cases with an empty oldSignerID (legacy -> legacy and
// legacy -> signed) are accepted on this check alone, with no
// cross-check of the new signer against the config registry.
func VerifyAppKeyContinuity(oldSignerID, newSignerID string) error {
	switch {
	case oldSignerID == "" && newSignerID == "":
		return nil // legacy -> legacy
	case oldSignerID != "" && newSignerID != "":
		if oldSignerID != newSignerID {
			return &errs.AppKeyContinuityViolation{OldSignerID: oldSignerID, NewSignerID: newSignerID}
		}
		return nil
	case oldSignerID == "" && newSignerID != "":
		return nil // unsigned -> signed upgrade, allowed
	default: // old non-empty, new empty
		return &errs.AppKeyContinuityViolation{OldSignerID: oldSignerID, NewSignerID: newSignerID}
	}
}

// PlainUpdate swaps the context's installed application without running
// a migration. It only enforces continuity and delegates the registry
// write + context-metadata persistence to the caller (the orchestrator),
// since those are substrate-specific side effects this package has no
// business owning.
func PlainUpdate(oldSignerID string, newApp configregistry.Application) error {
	return VerifyAppKeyContinuity(oldSignerID, newApp.SignerID)
}

// MigrationRunner executes a named migration entry point against the
// new module with no input, returning the new state bytes the module
// produced via its value-return channel.
type MigrationRunner interface {
	RunMigration(ctx context.Context, host executor.Host, entryPoint string) ([]byte, *executor.ExecErr, error)
}

// Result carries the post-migration facts the orchestrator must persist
// atomically: the new root hash, reset dag heads, and the application
// record to hand to the config registry.
type Result struct {
	NewRootHash types.Hash
	DagHeads    []types.Hash
	Application configregistry.Application
}

// deterministicTimestamp computes the save_raw timestamp migration uses
// in place of a wall clock, so every replica computes the identical
// value independent of local clock skew.
func deterministicTimestamp(existing entity.Metadata, hadExisting bool) uint64 {
	if !hadExisting {
		return math.MaxUint64 / 2
	}
	ts := existing.UpdatedAt.WallTime
	if existing.CreatedAt > ts {
		ts = existing.CreatedAt
	}
	return ts + 1
}

// ExecuteMigration runs §4.7.2 end to end: continuity check, migration
// call, deterministic root write, root-hash/dag-heads reset. It does
// not touch the external config registry or trigger sync; those are
// the orchestrator's side effects, kept out of this package so it stays
// testable without a running node.
func ExecuteMigration(
	ctx context.Context,
	idx *index.Index,
	runner MigrationRunner,
	host executor.Host,
	entryPoint string,
	oldSignerID string,
	newApp configregistry.Application,
) (Result, error) {
	if err := VerifyAppKeyContinuity(oldSignerID, newApp.SignerID); err != nil {
		return Result{}, err
	}

	newState, execErr, err := runner.RunMigration(ctx, host, entryPoint)
	if err != nil {
		return Result{}, err
	}
	if execErr != nil {
		return Result{}, execErr
	}

	rootID := types.EntityRoot()
	existingMD, hadExisting := idx.GetMetadata(rootID)
	ts := deterministicTimestamp(existingMD, hadExisting)

	md := entity.Metadata{
		CreatedAt: ts,
		UpdatedAt: types.HLC{WallTime: ts},
	}
	if hadExisting {
		md.CreatedAt = existingMD.CreatedAt
		md.StorageType = existingMD.StorageType
		md.CrdtType = existingMD.CrdtType
		md.CustomTypeName = existingMD.CustomTypeName
	}

	// A deterministic timestamp that fails to advance past what's
	// already stored would silently accept a non-progressing write;
	// spec.md requires migration to fail and be retried instead.
	if hadExisting && ts <= existingMD.UpdatedAt.WallTime {
		return Result{}, errs.ErrMigrationSkipped
	}

	fullHash, err := idx.SaveRaw(rootID, newState, md)
	if err != nil {
		return Result{}, err
	}

	// Migration deliberately bypasses the causal-delta action pipeline:
	// the root write above is not wrapped in an Add/Update action.
	// DagHeads is reset to the single new root hash. That value is not
	// the id of any CausalDelta, so no peer's delta history contains it.
	return Result{
		NewRootHash: fullHash,
		DagHeads:    []types.Hash{fullHash},
		Application: newApp,
	}, nil
}
