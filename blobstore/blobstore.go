// Package blobstore defines the content-addressed blob collaborator the
// engine reads and writes through but never implements itself, plus the
// per-call handle bookkeeping the executor host functions use to expose
// create/write/close/open/read to a sandboxed module, grounded on the
// blob host-function contract (create, write, close, announce_to_context,
// open, read).
package blobstore

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/calimero-network/core/errs"
	"github.com/calimero-network/core/types"
	"github.com/calimero-network/core/utils/math"
)

// Store is the external collaborator that durably holds blob bytes,
// content-addressed by BlobId. A concrete implementation (filesystem,
// object storage, ...) lives outside this module; the engine only ever
// depends on this interface.
type Store interface {
	Get(ctx context.Context, id types.BlobId) (io.ReadCloser, bool, error)
	Put(ctx context.Context, r io.Reader) (types.BlobId, int64, error)
	AnnounceToContext(ctx context.Context, id types.BlobId, contextID types.ContextId, size int64) error
}

// Limits bounds one module call's blob handle usage.
type Limits struct {
	MaxBlobHandles    uint32
	MaxBlobChunkSize  uint64
	MaxBlobBufferSize uint64
}

type handleKind uint8

const (
	kindWrite handleKind = iota
	kindRead
)

type handle struct {
	kind handleKind
	// write buffers chunks until Close flushes them to Store.
	write []byte
	// read holds the full body fetched eagerly on Open; reads slice
	// forward from position. Streaming from Store is left to a future
	// revision — the host-function contract above only prescribes
	// bounded chunk reads, not how the backing fetch is paced.
	read     []byte
	position int
}

// Table tracks the open blob handles for a single host-function call
// session (one per executor.Run invocation), enforcing Limits the same
// way the WASM host functions do: TooManyBlobHandles at creation,
// BlobWriteTooLarge/BlobBufferTooLarge per chunk, InvalidBlobHandle for
// an unknown or wrong-direction fd.
type Table struct {
	mu      sync.Mutex
	limits  Limits
	handles map[uint64]*handle
	nextFD  uint64
}

// NewTable returns an empty handle table bound by limits.
func NewTable(limits Limits) *Table {
	return &Table{limits: limits, handles: make(map[uint64]*handle)}
}

// Create opens a new write handle and returns its file descriptor.
func (t *Table) Create() (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if uint32(len(t.handles)) >= t.limits.MaxBlobHandles {
		return 0, errs.ErrTooManyBlobHandles
	}
	fd := t.nextFD
	t.nextFD++
	t.handles[fd] = &handle{kind: kindWrite}
	return fd, nil
}

// Write appends chunk to the write handle at fd. Per-chunk size is
// bounded by MaxBlobChunkSize; the running total across every chunk
// written to this handle is bounded by MaxBlobBufferSize, since many
// small chunks could otherwise grow the handle's buffer unbounded.
func (t *Table) Write(fd uint64, chunk []byte) (int, error) {
	if uint64(len(chunk)) > t.limits.MaxBlobChunkSize {
		return 0, errs.ErrBlobWriteTooLarge
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.handles[fd]
	if !ok || h.kind != kindWrite {
		return 0, errs.ErrInvalidBlobHandle
	}
	total, err := math.Add64(uint64(len(h.write)), uint64(len(chunk)))
	if err != nil || total > t.limits.MaxBlobBufferSize {
		return 0, errs.ErrBlobBufferTooLarge
	}
	h.write = append(h.write, chunk...)
	return len(chunk), nil
}

// Close finalizes a write handle through store and returns the content
// address, or simply discards a read handle.
func (t *Table) Close(ctx context.Context, fd uint64, store Store) (types.BlobId, error) {
	t.mu.Lock()
	h, ok := t.handles[fd]
	if ok {
		delete(t.handles, fd)
	}
	t.mu.Unlock()
	if !ok {
		return types.BlobId{}, errs.ErrInvalidBlobHandle
	}
	if h.kind == kindRead {
		return types.BlobId{}, nil
	}
	if store == nil {
		return types.BlobId{}, errs.ErrBlobsNotSupported
	}
	id, _, err := store.Put(ctx, bytes.NewReader(h.write))
	if err != nil {
		return types.BlobId{}, err
	}
	return id, nil
}

// Open fetches an existing blob's full body eagerly and returns a read
// handle's file descriptor.
func (t *Table) Open(ctx context.Context, id types.BlobId, store Store) (uint64, error) {
	if store == nil {
		return 0, errs.ErrBlobsNotSupported
	}
	t.mu.Lock()
	if uint32(len(t.handles)) >= t.limits.MaxBlobHandles {
		t.mu.Unlock()
		return 0, errs.ErrTooManyBlobHandles
	}
	t.mu.Unlock()

	r, ok, err := store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errs.ErrInvalidBlobHandle
	}
	defer r.Close()
	body, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	fd := t.nextFD
	t.nextFD++
	t.handles[fd] = &handle{kind: kindRead, read: body}
	return fd, nil
}

// Read copies up to maxLen bytes from the read handle at fd, starting
// where the previous Read left off, and advances its position only
// after a successful copy.
func (t *Table) Read(fd uint64, maxLen int) ([]byte, error) {
	if uint64(maxLen) > t.limits.MaxBlobBufferSize {
		return nil, errs.ErrBlobBufferTooLarge
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.handles[fd]
	if !ok || h.kind != kindRead {
		return nil, errs.ErrInvalidBlobHandle
	}
	if h.position >= len(h.read) {
		return nil, nil
	}
	end := h.position + maxLen
	if end > len(h.read) {
		end = len(h.read)
	}
	out := h.read[h.position:end]
	h.position = end
	return out, nil
}

// AnnounceToContext notifies the network that id is available to peers
// replicating contextID.
func (t *Table) AnnounceToContext(ctx context.Context, store Store, id types.BlobId, contextID types.ContextId, size int64) error {
	if store == nil {
		return errs.ErrBlobsNotSupported
	}
	return store.AnnounceToContext(ctx, id, contextID, size)
}
