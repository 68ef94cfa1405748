package signatureverifier

import (
	"crypto/sha256"
	"testing"

	"github.com/kaspanet/go-secp256k1"
	"golang.org/x/crypto/ed25519"

	"github.com/casper-network/casper-node/domain/consensus/model/externalapi"
)

func TestVerifySchnorrAcceptsValidSignature(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %s", err)
	}
	pub, err := key.SchnorrPublicKey()
	if err != nil {
		t.Fatalf("SchnorrPublicKey: %s", err)
	}
	pubBytes, err := pub.Serialize()
	if err != nil {
		t.Fatalf("Serialize pubkey: %s", err)
	}

	data := []byte("block header bytes")
	digest := sha256.Sum256(data)
	hash := secp256k1.Hash(digest)
	sig, err := key.SchnorrSign(&hash)
	if err != nil {
		t.Fatalf("SchnorrSign: %s", err)
	}
	sigBytes := sig.Serialize()

	v := New()
	ok, err := v.Verify(data, sigBytes[:], pubBytes[:], externalapi.AlgorithmSECP256K1)
	if err != nil {
		t.Fatalf("Verify returned error: %s", err)
	}
	if !ok {
		t.Fatalf("expected valid schnorr signature to verify")
	}
}

func TestVerifySchnorrRejectsWrongKey(t *testing.T) {
	key, _ := secp256k1.GeneratePrivateKey()
	other, _ := secp256k1.GeneratePrivateKey()
	otherPub, _ := other.SchnorrPublicKey()
	otherPubBytes, _ := otherPub.Serialize()

	data := []byte("block header bytes")
	digest := sha256.Sum256(data)
	hash := secp256k1.Hash(digest)
	sig, _ := key.SchnorrSign(&hash)
	sigBytes := sig.Serialize()

	v := New()
	ok, err := v.Verify(data, sigBytes[:], otherPubBytes[:], externalapi.AlgorithmSECP256K1)
	if err != nil {
		t.Fatalf("Verify returned error: %s", err)
	}
	if ok {
		t.Fatalf("expected signature from a different key to be rejected")
	}
}

func TestVerifyEd25519AcceptsValidSignature(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %s", err)
	}
	data := []byte("block header bytes")
	sig := ed25519.Sign(priv, data)

	v := New()
	ok, err := v.Verify(data, sig, pub, externalapi.AlgorithmED25519)
	if err != nil {
		t.Fatalf("Verify returned error: %s", err)
	}
	if !ok {
		t.Fatalf("expected valid ed25519 signature to verify")
	}
}

func TestVerifyRejectsUnsupportedAlgorithm(t *testing.T) {
	v := New()
	_, err := v.Verify([]byte("x"), []byte("y"), []byte("z"), externalapi.SignatureAlgorithm("rot13"))
	if err == nil {
		t.Fatalf("expected an error for an unsupported algorithm")
	}
}
