package local

import (
	"context"
	"crypto/ed25519"
	"strings"

	dErrors "stampd/pkg/domain-errors"

	"github.com/multiformats/go-multibase"
)

// Wallet signs challenge messages for a dev keypair. Its signatures embed
// the public key so SignatureVerifier can recover the signing address from
// the signature alone, mirroring how an ecrecover-based flow behaves.
type Wallet struct {
	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// NewWallet derives a Wallet from arbitrary secret material.
func NewWallet(secret string) *Wallet {
	priv, pub := keyPair(secret)
	return &Wallet{priv: priv, pub: pub}
}

// Address returns the wallet's derived address.
func (w *Wallet) Address() string {
	return ethAddress(w.pub)
}

// SignMessage implements identity.MessageSigner. The signature encodes
// pubkey || signature so verification needs no key registry.
func (w *Wallet) SignMessage(_ context.Context, message string) (string, error) {
	sig := ed25519.Sign(w.priv, []byte(message))
	encoded, err := multibase.Encode(multibase.Base58BTC, append(append([]byte{}, w.pub...), sig...))
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeSigning, "encoding signature")
	}
	return encoded, nil
}

// SignatureVerifier checks Wallet signatures: the embedded key must both
// validate the signature and derive the claimed address.
type SignatureVerifier struct{}

// NewSignatureVerifier builds a SignatureVerifier.
func NewSignatureVerifier() *SignatureVerifier {
	return &SignatureVerifier{}
}

// VerifySignature implements the verification service's port.
func (v *SignatureVerifier) VerifySignature(_ context.Context, address, message, signature string) (bool, error) {
	_, raw, err := multibase.Decode(signature)
	if err != nil || len(raw) != ed25519.PublicKeySize+ed25519.SignatureSize {
		return false, nil
	}

	pub := ed25519.PublicKey(raw[:ed25519.PublicKeySize])
	sig := raw[ed25519.PublicKeySize:]

	if !ed25519.Verify(pub, []byte(message), sig) {
		return false, nil
	}
	return strings.EqualFold(ethAddress(pub), address), nil
}
