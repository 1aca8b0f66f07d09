// Package orchestrator wires one context's storage, delta store, and
// sync engine together against the broadcast mesh and peer streams: it
// is the sole owner of their concrete instances, the "cyclic/global
// state" spec.md assigns to a single component rather than letting it
// diffuse across the core.
package orchestrator

import (
	"context"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"

	"github.com/calimero-network/core/action"
	"github.com/calimero-network/core/delta"
	"github.com/calimero-network/core/sync"
	"github.com/calimero-network/core/transport"
	"github.com/calimero-network/core/types"
)

// StorageFront is the subset of storage.Storage the orchestrator drives
// directly: applying inbound actions and committing the result.
type StorageFront interface {
	ApplyAction(a action.Action) ([]action.Action, error)
	CommitRoot() (types.Hash, error)
}

// Context bundles one replicated state machine's live components: its
// storage front, delta store, and sync bookkeeping, plus the identity
// the orchestrator broadcasts under.
type Context struct {
	ID       types.ContextId
	Storage  StorageFront
	Deltas   *delta.Store
	Peers    *sync.PeerStates
	Coalesce *sync.Coalescer
}

// Orchestrator owns every live Context and the transport/broadcast
// handles they run over. HandleStream and HandleBroadcastFrame are the two
// inbound entry points an embedder's transport substrate calls into.
type Orchestrator struct {
	logger     log.Logger
	broadcast  transport.Broadcast
	contexts   map[types.ContextId]*Context
	newContext func(id types.ContextId) (*Context, error)
	decodeFn   DecodeFrame
}

// New returns an orchestrator with no contexts loaded yet; newContext
// is called lazily the first time a broadcast frame or stream handshake
// references a context id the orchestrator hasn't seen.
func New(logger log.Logger, broadcast transport.Broadcast, newContext func(id types.ContextId) (*Context, error)) *Orchestrator {
	return &Orchestrator{
		logger:     logger,
		broadcast:  broadcast,
		contexts:   make(map[types.ContextId]*Context),
		newContext: newContext,
	}
}

// Context returns the live Context for id, constructing and
// registering it via newContext on first reference.
func (o *Orchestrator) Context(id types.ContextId) (*Context, error) {
	if c, ok := o.contexts[id]; ok {
		return c, nil
	}
	c, err := o.newContext(id)
	if err != nil {
		return nil, err
	}
	o.contexts[id] = c
	return c, nil
}

// Subscribe joins the context's broadcast topic and starts delivering
// inbound frames to HandleBroadcastFrame until ctx is cancelled.
func (o *Orchestrator) Subscribe(ctx context.Context, id types.ContextId) error {
	topic := transport.ContextTopic(id)
	ch, err := o.broadcast.Subscribe(ctx, topic)
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case frame, ok := <-ch:
				if !ok {
					return
				}
				if err := o.HandleBroadcastFrame(id, frame); err != nil {
					o.logger.Warn("dropping malformed broadcast frame", "context_id", id.String(), "error", err.Error())
				}
			}
		}
	}()
	return nil
}

// DecodeFrame is supplied by the caller (it knows the CausalDelta wire
// format); the orchestrator only routes decoded deltas to the right
// context's delta store.
type DecodeFrame func(frame []byte) (delta.CausalDelta, error)

// HandleBroadcastFrame decodes frame as a CausalDelta (via decode) and
// feeds it to id's delta store; unresolved parents surface through the
// store's own GetMissingParents, not here.
func (o *Orchestrator) HandleBroadcastFrame(id types.ContextId, frame []byte) error {
	c, err := o.Context(id)
	if err != nil {
		return err
	}
	d, err := o.decode(frame)
	if err != nil {
		return err
	}
	return c.Deltas.AddDelta(d)
}

func (o *Orchestrator) decode(frame []byte) (delta.CausalDelta, error) {
	// Until SetDecoder installs a wire decoder, every frame is rejected
	// with errNoDecoder.
	if o.decodeFn != nil {
		return o.decodeFn(frame)
	}
	return delta.CausalDelta{}, errNoDecoder
}

var errNoDecoder = &noDecoderError{}

type noDecoderError struct{}

func (e *noDecoderError) Error() string { return "orchestrator: no delta decoder configured" }

// SetDecoder installs the function used to turn a raw broadcast frame
// into a CausalDelta.
func (o *Orchestrator) SetDecoder(fn DecodeFrame) { o.decodeFn = fn }

// HandleStream runs the responder side of one inbound sync stream: it
// only dispatches by context id, leaving the handshake protocol itself
// to the sync package.
func (o *Orchestrator) HandleStream(ctx context.Context, s transport.Stream, contextID types.ContextId, respond func(ctx context.Context, c *Context, peer ids.NodeID, s transport.Stream) error) error {
	c, err := o.Context(contextID)
	if err != nil {
		return err
	}
	return respond(ctx, c, s.RemotePeer(), s)
}
