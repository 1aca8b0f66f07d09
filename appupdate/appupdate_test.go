package appupdate

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calimero-network/core/configregistry"
	"github.com/calimero-network/core/entity"
	"github.com/calimero-network/core/errs"
	"github.com/calimero-network/core/executor"
	"github.com/calimero-network/core/index"
	"github.com/calimero-network/core/types"
)

func TestVerifyAppKeyContinuityLegacyToLegacyAllowed(t *testing.T) {
	require.NoError(t, VerifyAppKeyContinuity("", ""))
}

func TestVerifyAppKeyContinuityMatchingSignersAllowed(t *testing.T) {
	require.NoError(t, VerifyAppKeyContinuity("signer-a", "signer-a"))
}

func TestVerifyAppKeyContinuityMismatchRejected(t *testing.T) {
	err := VerifyAppKeyContinuity("signer-a", "signer-b")
	var violation *errs.AppKeyContinuityViolation
	require.ErrorAs(t, err, &violation)
	require.Equal(t, "signer-a", violation.OldSignerID)
	require.Equal(t, "signer-b", violation.NewSignerID)
}

func TestVerifyAppKeyContinuityUnsignedToSignedUpgradeAllowed(t *testing.T) {
	require.NoError(t, VerifyAppKeyContinuity("", "signer-a"))
}

func TestVerifyAppKeyContinuitySignedToUnsignedDowngradeRejected(t *testing.T) {
	err := VerifyAppKeyContinuity("signer-a", "")
	var violation *errs.AppKeyContinuityViolation
	require.ErrorAs(t, err, &violation)
}

type fakeMigrationRunner struct {
	out    []byte
	execEr *executor.ExecErr
	err    error
}

func (f fakeMigrationRunner) RunMigration(ctx context.Context, host executor.Host, entryPoint string) ([]byte, *executor.ExecErr, error) {
	return f.out, f.execEr, f.err
}

func TestExecuteMigrationRejectsContinuityViolationBeforeAnyWrite(t *testing.T) {
	idx := index.New()
	_, err := idx.SaveRaw(types.EntityRoot(), []byte("old-state"), entity.Metadata{UpdatedAt: types.HLC{WallTime: 5}})
	require.NoError(t, err)

	runner := fakeMigrationRunner{out: []byte("new-state")}
	_, err = ExecuteMigration(context.Background(), idx, runner, executor.Host{}, "migrate", "signer-a", configregistry.Application{SignerID: "signer-b"})
	var violation *errs.AppKeyContinuityViolation
	require.ErrorAs(t, err, &violation)

	got, ok := idx.FindByID(types.EntityRoot())
	require.True(t, ok)
	require.Equal(t, []byte("old-state"), got.Data)
}

func TestExecuteMigrationInstallsNewStateWithDeterministicTimestamp(t *testing.T) {
	idx := index.New()
	_, err := idx.SaveRaw(types.EntityRoot(), []byte("old-state"), entity.Metadata{
		CreatedAt: 10,
		UpdatedAt: types.HLC{WallTime: 20},
	})
	require.NoError(t, err)

	runner := fakeMigrationRunner{out: []byte("new-state")}
	res, err := ExecuteMigration(context.Background(), idx, runner, executor.Host{}, "migrate", "signer-a", configregistry.Application{SignerID: "signer-a"})
	require.NoError(t, err)
	require.Equal(t, []types.Hash{res.NewRootHash}, res.DagHeads)

	got, ok := idx.FindByID(types.EntityRoot())
	require.True(t, ok)
	require.Equal(t, []byte("new-state"), got.Data)
	require.Equal(t, uint64(21), got.Metadata.UpdatedAt.WallTime)
}

func TestExecuteMigrationOnGenesisUsesHalfMaxUint64(t *testing.T) {
	idx := index.New()
	runner := fakeMigrationRunner{out: []byte("genesis-state")}
	_, err := ExecuteMigration(context.Background(), idx, runner, executor.Host{}, "migrate", "", configregistry.Application{})
	require.NoError(t, err)

	got, ok := idx.FindByID(types.EntityRoot())
	require.True(t, ok)
	require.Equal(t, uint64(math.MaxUint64/2), got.Metadata.UpdatedAt.WallTime)
}

func TestExecuteMigrationPropagatesExecErrWithoutWriting(t *testing.T) {
	idx := index.New()
	_, err := idx.SaveRaw(types.EntityRoot(), []byte("old-state"), entity.Metadata{UpdatedAt: types.HLC{WallTime: 5}})
	require.NoError(t, err)

	runner := fakeMigrationRunner{execEr: &executor.ExecErr{Message: "trap"}}
	_, err = ExecuteMigration(context.Background(), idx, runner, executor.Host{}, "migrate", "", configregistry.Application{})
	require.Error(t, err)

	got, ok := idx.FindByID(types.EntityRoot())
	require.True(t, ok)
	require.Equal(t, []byte("old-state"), got.Data)
}

func TestExecuteMigrationSkipsOnTimestampOverflow(t *testing.T) {
	idx := index.New()
	_, err := idx.SaveRaw(types.EntityRoot(), []byte("old-state"), entity.Metadata{UpdatedAt: types.HLC{WallTime: math.MaxUint64}})
	require.NoError(t, err)

	runner := fakeMigrationRunner{out: []byte("new-state")}
	_, err = ExecuteMigration(context.Background(), idx, runner, executor.Host{}, "migrate", "", configregistry.Application{})
	require.ErrorIs(t, err, errs.ErrMigrationSkipped)

	got, ok := idx.FindByID(types.EntityRoot())
	require.True(t, ok)
	require.Equal(t, []byte("old-state"), got.Data)
}

func TestPlainUpdateEnforcesContinuity(t *testing.T) {
	require.NoError(t, PlainUpdate("signer-a", configregistry.Application{SignerID: "signer-a"}))
	require.Error(t, PlainUpdate("signer-a", configregistry.Application{SignerID: ""}))
}
