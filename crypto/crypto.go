// Package crypto wraps the Ed25519 signature scheme used to authenticate
// User-storage entity mutations: the signature covers the canonical
// action payload and must verify under the entity's owner PublicKey.
package crypto

import (
	"errors"

	"golang.org/x/crypto/ed25519"

	"github.com/calimero-network/core/types"
)

// SignatureSize is the fixed byte length of an Ed25519 signature.
const SignatureSize = ed25519.SignatureSize

// ErrInvalidSignatureLength is returned when a signature is not exactly
// SignatureSize bytes.
var ErrInvalidSignatureLength = errors.New("crypto: signature must be 64 bytes")

// Verify reports whether sig is a valid Ed25519 signature over payload
// under owner.
func Verify(owner types.PublicKey, payload, sig []byte) (bool, error) {
	if len(sig) != SignatureSize {
		return false, ErrInvalidSignatureLength
	}
	return ed25519.Verify(ed25519.PublicKey(owner.Bytes()), payload, sig), nil
}

// Sign produces an Ed25519 signature over payload using priv. Offered
// for tests and tooling; the engine itself only ever verifies.
func Sign(priv ed25519.PrivateKey, payload []byte) []byte {
	return ed25519.Sign(priv, payload)
}
