package blobstore

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calimero-network/core/errs"
	"github.com/calimero-network/core/types"
)

type memStore struct {
	blobs     map[types.BlobId][]byte
	announced []types.BlobId
}

func newMemStore() *memStore { return &memStore{blobs: make(map[types.BlobId][]byte)} }

func (m *memStore) Get(ctx context.Context, id types.BlobId) (io.ReadCloser, bool, error) {
	b, ok := m.blobs[id]
	if !ok {
		return nil, false, nil
	}
	return io.NopCloser(bytes.NewReader(b)), true, nil
}

func (m *memStore) Put(ctx context.Context, r io.Reader) (types.BlobId, int64, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return types.BlobId{}, 0, err
	}
	id, err := types.BlobIdFromBytes(types.SumHash(body).Bytes())
	if err != nil {
		return types.BlobId{}, 0, err
	}
	m.blobs[id] = body
	return id, int64(len(body)), nil
}

func (m *memStore) AnnounceToContext(ctx context.Context, id types.BlobId, contextID types.ContextId, size int64) error {
	m.announced = append(m.announced, id)
	return nil
}

func TestWriteThenCloseRoundTripsThroughOpenRead(t *testing.T) {
	store := newMemStore()
	table := NewTable(Limits{MaxBlobHandles: 4, MaxBlobChunkSize: 1024, MaxBlobBufferSize: 1024})

	fd, err := table.Create()
	require.NoError(t, err)
	_, err = table.Write(fd, []byte("hello "))
	require.NoError(t, err)
	_, err = table.Write(fd, []byte("world"))
	require.NoError(t, err)

	id, err := table.Close(context.Background(), fd, store)
	require.NoError(t, err)

	readFD, err := table.Open(context.Background(), id, store)
	require.NoError(t, err)
	out, err := table.Read(readFD, 1024)
	require.NoError(t, err)
	require.Equal(t, []byte("hello world"), out)
}

func TestCreateRejectsOverLimit(t *testing.T) {
	table := NewTable(Limits{MaxBlobHandles: 1, MaxBlobChunkSize: 1024, MaxBlobBufferSize: 1024})
	_, err := table.Create()
	require.NoError(t, err)
	_, err = table.Create()
	require.ErrorIs(t, err, errs.ErrTooManyBlobHandles)
}

func TestWriteRejectsOversizeChunk(t *testing.T) {
	table := NewTable(Limits{MaxBlobHandles: 4, MaxBlobChunkSize: 4, MaxBlobBufferSize: 1024})
	fd, err := table.Create()
	require.NoError(t, err)
	_, err = table.Write(fd, []byte("too-long-chunk"))
	require.ErrorIs(t, err, errs.ErrBlobWriteTooLarge)
}

func TestWriteRejectsWhenCumulativeTotalExceedsBufferLimit(t *testing.T) {
	table := NewTable(Limits{MaxBlobHandles: 4, MaxBlobChunkSize: 4, MaxBlobBufferSize: 6})
	fd, err := table.Create()
	require.NoError(t, err)

	_, err = table.Write(fd, []byte("abcd"))
	require.NoError(t, err)

	_, err = table.Write(fd, []byte("ab"))
	require.NoError(t, err)

	_, err = table.Write(fd, []byte("x"))
	require.ErrorIs(t, err, errs.ErrBlobBufferTooLarge)
}

func TestWriteRejectsWrongHandleKind(t *testing.T) {
	store := newMemStore()
	table := NewTable(Limits{MaxBlobHandles: 4, MaxBlobChunkSize: 1024, MaxBlobBufferSize: 1024})
	fd, err := table.Create()
	require.NoError(t, err)
	_, err = table.Write(fd, []byte("data"))
	require.NoError(t, err)
	id, err := table.Close(context.Background(), fd, store)
	require.NoError(t, err)

	readFD, err := table.Open(context.Background(), id, store)
	require.NoError(t, err)
	_, err = table.Write(readFD, []byte("nope"))
	require.ErrorIs(t, err, errs.ErrInvalidBlobHandle)
}

func TestReadPaginatesAcrossCalls(t *testing.T) {
	store := newMemStore()
	table := NewTable(Limits{MaxBlobHandles: 4, MaxBlobChunkSize: 1024, MaxBlobBufferSize: 1024})
	fd, err := table.Create()
	require.NoError(t, err)
	_, err = table.Write(fd, []byte("0123456789"))
	require.NoError(t, err)
	id, err := table.Close(context.Background(), fd, store)
	require.NoError(t, err)

	readFD, err := table.Open(context.Background(), id, store)
	require.NoError(t, err)

	first, err := table.Read(readFD, 4)
	require.NoError(t, err)
	require.Equal(t, []byte("0123"), first)

	second, err := table.Read(readFD, 4)
	require.NoError(t, err)
	require.Equal(t, []byte("4567"), second)

	third, err := table.Read(readFD, 4)
	require.NoError(t, err)
	require.Equal(t, []byte("89"), third)

	fourth, err := table.Read(readFD, 4)
	require.NoError(t, err)
	require.Empty(t, fourth)
}

func TestAnnounceToContextRequiresStore(t *testing.T) {
	table := NewTable(Limits{MaxBlobHandles: 4, MaxBlobChunkSize: 1024, MaxBlobBufferSize: 1024})
	err := table.AnnounceToContext(context.Background(), nil, types.BlobId{}, types.ContextId{}, 0)
	require.ErrorIs(t, err, errs.ErrBlobsNotSupported)
}
