package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"

	"github.com/calimero-network/core/action"
	"github.com/calimero-network/core/crdt"
	"github.com/calimero-network/core/crypto"
	"github.com/calimero-network/core/entity"
	"github.com/calimero-network/core/index"
	"github.com/calimero-network/core/types"
)

func newStorage(t *testing.T) *Storage {
	t.Helper()
	idx := index.New()
	_, err := idx.SaveRaw(types.EntityRoot(), []byte("root"), entity.Metadata{StorageType: entity.Public()})
	require.NoError(t, err)
	return New(idx, nil)
}

func childID(t *testing.T, b byte) types.EntityId {
	t.Helper()
	buf := make([]byte, 32)
	buf[31] = b
	id, err := types.EntityIdFromBytes(buf)
	require.NoError(t, err)
	return id
}

func TestCompareTreesHashEqualityShortCircuit(t *testing.T) {
	s := newStorage(t)
	id := types.EntityRoot()
	_, full, ok := s.Index().GetHashesFor(id)
	require.True(t, ok)

	foreign := ComparisonData{ID: id, FullHash: full}
	localActs, remoteActs, err := s.CompareTrees(id, foreign, []byte("root"))
	require.NoError(t, err)
	require.Empty(t, localActs)
	require.Empty(t, remoteActs)
}

func TestCompareTreesAbsentLocallyEmitsAdd(t *testing.T) {
	s := newStorage(t)
	id := childID(t, 1)
	foreign := ComparisonData{
		ID:       id,
		FullHash: types.SumHash([]byte("remote-data")),
		Metadata: entity.Metadata{StorageType: entity.Public()},
	}
	localActs, remoteActs, err := s.CompareTrees(id, foreign, []byte("remote-data"))
	require.NoError(t, err)
	require.Empty(t, remoteActs)
	require.Len(t, localActs, 1)
	require.Equal(t, action.KindAdd, localActs[0].Kind)
	require.Equal(t, []byte("remote-data"), localActs[0].Data)
}

func TestCompareTreesAbsentLocallyNoBytesEmitsCompareBothSides(t *testing.T) {
	s := newStorage(t)
	id := childID(t, 1)
	foreign := ComparisonData{ID: id, FullHash: types.SumHash([]byte("remote-data"))}
	localActs, remoteActs, err := s.CompareTrees(id, foreign, nil)
	require.NoError(t, err)
	require.Len(t, localActs, 1)
	require.Len(t, remoteActs, 1)
	require.True(t, localActs[0].IsControl())
	require.True(t, remoteActs[0].IsControl())
}

func TestCompareTreesOwnHashDiffersMergesAndUpdatesStaleSide(t *testing.T) {
	s := newStorage(t)
	id := childID(t, 1)
	require.NoError(t, s.Index().AddChildTo(types.EntityRoot(), "items", id))

	olderHLC := types.HLC{WallTime: 10}
	newerHLC := types.HLC{WallTime: 20}
	md := entity.Metadata{StorageType: entity.Public(), CrdtType: entity.CrdtTypeLwwRegister, UpdatedAt: olderHLC}
	_, err := s.Index().SaveRaw(id, []byte("old"), md)
	require.NoError(t, err)

	foreignMD := md
	foreignMD.UpdatedAt = newerHLC
	foreign := ComparisonData{
		ID:       id,
		FullHash: types.SumHash([]byte("new")),
		Metadata: foreignMD,
	}

	localActs, remoteActs, err := s.CompareTrees(id, foreign, []byte("new"))
	require.NoError(t, err)
	require.Empty(t, remoteActs)
	require.Len(t, localActs, 1)
	require.Equal(t, action.KindUpdate, localActs[0].Kind)
	require.Equal(t, []byte("new"), localActs[0].Data)
}

func TestCompareTreesChildMissingRemotelyEmitsAdd(t *testing.T) {
	s := newStorage(t)
	id := childID(t, 2)
	require.NoError(t, s.Index().AddChildTo(types.EntityRoot(), "items", id))
	_, err := s.Index().SaveRaw(id, []byte("child-data"), entity.Metadata{StorageType: entity.Public()})
	require.NoError(t, err)

	_, rootFull, _ := s.Index().GetHashesFor(types.EntityRoot())
	foreign := ComparisonData{
		ID:       types.EntityRoot(),
		FullHash: rootFull, // equal to local, so CompareTrees would short-circuit
		Children: map[string][]action.ChildInfo{},
	}
	// Force own-hash mismatch path isn't needed here; directly exercise diffChildren.
	localActs, remoteActs := s.diffChildren(types.EntityRoot(), foreign)
	require.Empty(t, localActs)
	require.Len(t, remoteActs, 1)
	require.Equal(t, action.KindAdd, remoteActs[0].Kind)
	require.Equal(t, id, remoteActs[0].ID)
}

func TestApplyActionAddThenCompareFollowup(t *testing.T) {
	s := newStorage(t)
	id := childID(t, 3)
	a := action.Add(id, []byte("v1"), nil, entity.Metadata{StorageType: entity.Public()})
	followups, err := s.ApplyAction(a)
	require.NoError(t, err)
	require.Len(t, followups, 1)
	require.True(t, followups[0].IsControl())

	got, ok := s.Index().FindByID(id)
	require.True(t, ok)
	require.Equal(t, []byte("v1"), got.Data)
}

func TestApplyActionRejectsFrozenMutation(t *testing.T) {
	s := newStorage(t)
	id := childID(t, 4)
	body := []byte("immutable")
	layout := entity.FrozenLayout(body)
	md := entity.Metadata{StorageType: entity.Frozen()}
	_, err := s.ApplyAction(action.Add(id, layout, nil, md))
	require.NoError(t, err)

	_, err = s.ApplyAction(action.Update(id, entity.FrozenLayout([]byte("changed")), nil, md))
	require.Error(t, err)
}

func TestApplyActionRejectsCorruptFrozenPrefix(t *testing.T) {
	s := newStorage(t)
	id := childID(t, 5)
	md := entity.Metadata{StorageType: entity.Frozen()}
	_, err := s.ApplyAction(action.Add(id, []byte("not-a-valid-layout"), nil, md))
	require.Error(t, err)
}

func TestApplyActionRejectsCompareAsInput(t *testing.T) {
	s := newStorage(t)
	_, err := s.ApplyAction(action.Compare(childID(t, 6)))
	require.Error(t, err)
}

func TestApplyActionUserSignatureAndNonce(t *testing.T) {
	s := newStorage(t)
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	owner, err := types.PublicKeyFromBytes(pub)
	require.NoError(t, err)

	id := childID(t, 7)
	md := entity.Metadata{StorageType: entity.User(owner)}
	a := action.Add(id, []byte("payload-1"), nil, md)
	sig := crypto.Sign(priv, a.PayloadForSigning())
	a = a.WithSignature(sig, 1)

	followups, err := s.ApplyAction(a)
	require.NoError(t, err)
	require.NotEmpty(t, followups)

	// Replaying the same nonce must be rejected.
	_, err = s.ApplyAction(a)
	require.Error(t, err)

	// A bad signature must be rejected even with a fresh nonce.
	bad := action.Update(id, []byte("payload-2"), nil, md).WithSignature(sig, 2)
	_, err = s.ApplyAction(bad)
	require.Error(t, err)
}

func TestApplyDeleteRefTombstonesAndLosesToOlderTimestamp(t *testing.T) {
	s := newStorage(t)
	id := childID(t, 8)
	md := entity.Metadata{StorageType: entity.Public(), UpdatedAt: types.HLC{WallTime: 100}}
	require.NoError(t, s.Index().AddChildTo(types.EntityRoot(), "items", id))
	_, err := s.Index().SaveRaw(id, []byte("v1"), md)
	require.NoError(t, err)

	_, err = s.ApplyAction(action.DeleteRef(id, 50, md))
	require.NoError(t, err)
	_, stillThere := s.Index().FindByID(id)
	require.True(t, stillThere, "an older delete must lose silently")

	_, err = s.ApplyAction(action.DeleteRef(id, 200, md))
	require.NoError(t, err)
	_, goneNow := s.Index().FindByID(id)
	require.False(t, goneNow)
}

func TestGenerateComparisonDataRoundTripsIntoCompareTrees(t *testing.T) {
	s := newStorage(t)
	id := childID(t, 9)
	require.NoError(t, s.Index().AddChildTo(types.EntityRoot(), "items", id))
	_, err := s.Index().SaveRaw(id, []byte("data"), entity.Metadata{StorageType: entity.Public()})
	require.NoError(t, err)

	cd, ok := s.GenerateComparisonData(types.EntityRoot())
	require.True(t, ok)
	require.Contains(t, cd.Children, "items")
	require.Len(t, cd.Children["items"], 1)
	require.Equal(t, id, cd.Children["items"][0].ID)

	_, rootFull, _ := s.Index().GetHashesFor(types.EntityRoot())
	require.Equal(t, rootFull, cd.FullHash)

	localActs, remoteActs, err := s.CompareTrees(types.EntityRoot(), cd, nil)
	require.NoError(t, err)
	require.Empty(t, localActs)
	require.Empty(t, remoteActs)
}

func TestMergeByCrdtTypeCounterMergesDecodedValues(t *testing.T) {
	s := newStorage(t)
	local := crdt.NewCounter()
	local.IncrementBy("node-a", 5)
	localBytes, err := EncodeCounter(local)
	require.NoError(t, err)

	remote := crdt.NewCounter()
	remote.IncrementBy("node-b", 3)
	remoteBytes, err := EncodeCounter(remote)
	require.NoError(t, err)

	md := entity.Metadata{CrdtType: entity.CrdtTypeCounter}
	merged, ok, err := s.MergeByCrdtType(md, types.HLC{}, localBytes, types.HLC{}, remoteBytes)
	require.NoError(t, err)
	require.True(t, ok)

	c, err := DecodeCounter(merged)
	require.NoError(t, err)
	val, err := c.Value()
	require.NoError(t, err)
	require.Equal(t, int64(8), val)
}

func TestMergeByCrdtTypeCustomFallsThroughToRegistry(t *testing.T) {
	registry := NewRegistry()
	registry.Register("my-type", func(typeName string, local, remote []byte) ([]byte, bool, error) {
		return append(append([]byte{}, local...), remote...), true, nil
	})
	idx := index.New()
	_, err := idx.SaveRaw(types.EntityRoot(), nil, entity.Metadata{StorageType: entity.Public()})
	require.NoError(t, err)
	s := New(idx, registry)

	md := entity.Metadata{CrdtType: entity.CrdtTypeCustom, CustomTypeName: "my-type"}
	merged, ok, err := s.MergeByCrdtType(md, types.HLC{}, []byte("a"), types.HLC{}, []byte("b"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("ab"), merged)
}

func TestMergeByCrdtTypeCustomUnregisteredFallsBackToLww(t *testing.T) {
	s := newStorage(t)
	md := entity.Metadata{CrdtType: entity.CrdtTypeCustom, CustomTypeName: "unknown"}
	merged, ok, err := s.MergeByCrdtType(md, types.HLC{}, []byte("a"), types.HLC{}, []byte("b"))
	require.NoError(t, err)
	require.True(t, ok)
	// Equal HLCs: the lexicographically larger payload wins.
	require.Equal(t, []byte("b"), merged)
}

func TestSyncTreesResolvesNestedCompare(t *testing.T) {
	s := newStorage(t)
	id := childID(t, 10)
	require.NoError(t, s.Index().AddChildTo(types.EntityRoot(), "items", id))
	_, err := s.Index().SaveRaw(id, []byte("local"), entity.Metadata{StorageType: entity.Public()})
	require.NoError(t, err)

	foreignChildData := []byte("remote")
	foreignChildCD := ComparisonData{
		ID:       id,
		FullHash: types.SumHash(foreignChildData),
		Metadata: entity.Metadata{StorageType: entity.Public()},
	}
	// The peer's root content matches ours; only the child differs.
	rootOwn, _, _ := s.Index().GetHashesFor(types.EntityRoot())
	foreignRootCD := ComparisonData{
		ID:       types.EntityRoot(),
		OwnHash:  rootOwn,
		FullHash: types.SumHash([]byte("some-other-root-bytes")),
		Children: map[string][]action.ChildInfo{
			"items": {{ID: id, OwnHash: types.SumHash(foreignChildData)}},
		},
	}

	fetch := func(fid types.EntityId) (ComparisonData, []byte, error) {
		if fid.Equal(id) {
			return foreignChildCD, foreignChildData, nil
		}
		return ComparisonData{}, nil, nil
	}

	localActs, _, err := s.SyncTrees(types.EntityRoot(), foreignRootCD, nil, fetch)
	require.NoError(t, err)
	require.NotEmpty(t, localActs)
	found := false
	for _, a := range localActs {
		if a.ID.Equal(id) && a.Kind == action.KindUpdate {
			found = true
		}
	}
	require.True(t, found, "expected an Update action resolving the child's divergence")
}
