package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ed25519"

	"github.com/calimero-network/core/types"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	owner, err := types.PublicKeyFromBytes(pub)
	require.NoError(t, err)

	payload := []byte("canonical action payload")
	sig := Sign(priv, payload)

	ok, err := Verify(owner, payload, sig)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyRejectsTamperedPayload(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	owner, err := types.PublicKeyFromBytes(pub)
	require.NoError(t, err)

	sig := Sign(priv, []byte("original"))
	ok, err := Verify(owner, []byte("tampered"), sig)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyRejectsWrongLengthSignature(t *testing.T) {
	owner, err := types.PublicKeyFromBytes(make([]byte, 32))
	require.NoError(t, err)
	_, err = Verify(owner, []byte("x"), []byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidSignatureLength)
}
