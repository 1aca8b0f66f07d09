// Package configregistry defines the external context-config adapter:
// a read-only oracle for membership and application identity. The core
// treats its view as ground truth for those two facts but never for
// state bytes, which only ever come from the causal DAG.
package configregistry

import (
	"context"

	"github.com/calimero-network/core/types"
)

// BlobRef points at the application bytecode module in the blob store.
type BlobRef struct {
	BlobID types.BlobId
	Size   uint64
}

// Application is the registry's current application record for a context.
type Application struct {
	ID       types.ApplicationId
	Blob     BlobRef
	Source   string
	Metadata []byte
	// SignerID carries the AppKey continuity field: empty for legacy
	// unsigned applications, otherwise the identity that must carry
	// forward unchanged across updates.
	SignerID string
}

// Registry is the read-only adapter the core polls for membership and
// application identity. update_application is the one write path,
// reserved for the application-update pipeline.
type Registry interface {
	Application(ctx context.Context, contextID types.ContextId) (Application, error)
	ApplicationRevision(ctx context.Context, contextID types.ContextId) (uint64, error)
	Members(ctx context.Context, contextID types.ContextId) ([]types.PublicKey, error)
	MembersRevision(ctx context.Context, contextID types.ContextId) (uint64, error)
	UpdateApplication(ctx context.Context, contextID types.ContextId, executor types.PublicKey, app Application) error
}
