// Package signatureverifier implements externalapi.SignatureVerifier for
// the two algorithms summary.go names: secp256k1 Schnorr signatures and
// Ed25519.
package signatureverifier

import (
	"crypto/sha256"

	"github.com/kaspanet/go-secp256k1"
	"github.com/pkg/errors"
	"golang.org/x/crypto/ed25519"

	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
)

// Verifier is the production externalapi.SignatureVerifier: no state, safe
// for concurrent use across however many validations are in flight.
type Verifier struct{}

// New returns a Verifier.
func New() *Verifier {
	return &Verifier{}
}

// Verify checks signature against data under publicKey, per algorithm.
func (*Verifier) Verify(data, signature, publicKey []byte, algorithm externalapi.SignatureAlgorithm) (bool, error) {
	switch algorithm {
	case externalapi.AlgorithmSECP256K1:
		return verifySchnorr(data, signature, publicKey)
	case externalapi.AlgorithmED25519:
		return verifyEd25519(data, signature, publicKey)
	default:
		return false, errors.Errorf("unsupported signature algorithm %q", algorithm)
	}
}

func verifySchnorr(data, signature, publicKey []byte) (bool, error) {
	pk, err := secp256k1.DeserializeSchnorrPubKey(publicKey)
	if err != nil {
		return false, errors.Wrap(err, "deserializing schnorr public key")
	}
	if len(signature) != 64 {
		return false, errors.Errorf("schnorr signature must be 64 bytes, got %d", len(signature))
	}
	var sigBytes [64]byte
	copy(sigBytes[:], signature)
	sig, err := secp256k1.DeserializeSchnorrSignature(&sigBytes)
	if err != nil {
		return false, errors.Wrap(err, "deserializing schnorr signature")
	}

	digest := sha256.Sum256(data)
	hash := secp256k1.Hash(digest)
	return pk.SchnorrVerify(&hash, sig)
}

func verifyEd25519(data, signature, publicKey []byte) (bool, error) {
	if len(publicKey) != ed25519.PublicKeySize {
		return false, errors.Errorf("ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(publicKey))
	}
	return ed25519.Verify(ed25519.PublicKey(publicKey), data, signature), nil
}
