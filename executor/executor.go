// Package executor defines the contract between the engine and a
// sandboxed bytecode module: a single synchronous Run call bounded by a
// gas budget, with storage/blob/identity/membership/time host functions
// available during the call. The sandbox implementation itself (WASM,
// or otherwise) is an external collaborator outside this module's
// boundary; this package only shapes the interface.
package executor

import (
	"context"

	"github.com/calimero-network/core/action"
	"github.com/calimero-network/core/blobstore"
	"github.com/calimero-network/core/types"
)

// Limits bounds a single Run call's resource usage.
type Limits struct {
	Gas  uint64
	Blob blobstore.Limits
}

// KeyValueStore is the module's read/write/remove surface over the
// current context's keyspace. Writes are buffered by the host and only
// flushed through the storage interface after a successful return.
type KeyValueStore interface {
	Read(key []byte) ([]byte, bool)
	Write(key, value []byte)
	Remove(key []byte)
}

// Membership answers identity and membership host-function calls.
type Membership interface {
	HasMember(key types.PublicKey) bool
	MemberList() []types.PublicKey
}

// Clock advances an HLC once per call, the Time host function's source
// of determinism: every call observes a distinct, monotonic timestamp
// regardless of wall-clock skew across replicas.
type Clock interface {
	Now() types.HLC
}

// Host bundles everything a Run call sees during execution.
type Host struct {
	ExecutorIdentity types.PublicKey
	ContextID        types.ContextId
	Storage          KeyValueStore
	Blobs            *blobstore.Table
	BlobBacking      blobstore.Store
	Members          Membership
	Clock            Clock
}

// ExecErr is the module-returned failure channel of Run's Result.
type ExecErr struct {
	Message string
}

func (e *ExecErr) Error() string { return "executor: " + e.Message }

// Outcome is Run's result: the module's returned bytes (nil on a
// reported ExecErr), the actions it produced for the storage interface
// to apply, any logs it emitted, and gas actually consumed.
type Outcome struct {
	Return  []byte
	ExecErr *ExecErr
	Actions []action.Action
	Logs    []string
	GasUsed uint64
}

// CustomMerge is the optional WASM-side custom-type merge callback a
// module may expose; storage.Storage.SetHostMergeCallback wires this in
// directly as its CustomMergeFunc.
type CustomMerge func(typeName string, localBytes, remoteBytes []byte) (merged []byte, ok bool, err error)

// Runner executes one bytecode module call to completion or abort.
// There is no suspension: a call either returns an Outcome or aborts
// with an error (e.g. gas exhaustion), in which case any buffered
// actions are discarded rather than partially applied.
type Runner interface {
	Run(ctx context.Context, host Host, entryPoint string, input []byte, limits Limits) (Outcome, error)
}
