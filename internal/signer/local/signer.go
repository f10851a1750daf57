// Package local is an in-process signing backend for development and tests.
// It derives deterministic ed25519 key material from the configured issuer
// key and signs the canonical JSON form of credentials. Production
// deployments swap in a real DID toolkit behind the same interface.
package local

import (
	"context"
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"stampd/internal/identity"
	dErrors "stampd/pkg/domain-errors"

	"github.com/multiformats/go-multibase"
	"golang.org/x/crypto/sha3"
)

// multicodec prefix for an ed25519 public key.
var ed25519Prefix = []byte{0xed, 0x01}

// Signer implements identity.Signer. Verification always runs against the
// configured issuer key, so it accepts exactly the credentials this instance
// (or one sharing the key) issued.
type Signer struct {
	key string
}

// New builds a Signer around the issuer key.
func New(key string) *Signer {
	return &Signer{key: key}
}

// keyPair stretches arbitrary key material into an ed25519 seed. Hex-encoded
// 32-byte keys and human-readable dev strings both work.
func keyPair(key string) (ed25519.PrivateKey, ed25519.PublicKey) {
	seed := sha256.Sum256([]byte(key))
	priv := ed25519.NewKeyFromSeed(seed[:])
	return priv, priv.Public().(ed25519.PublicKey)
}

// KeyToDID implements identity.Signer.
func (s *Signer) KeyToDID(method, key string) (string, error) {
	_, pub := keyPair(key)

	switch method {
	case identity.DIDMethodKey:
		encoded, err := multibase.Encode(multibase.Base58BTC, append(ed25519Prefix, pub...))
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeSigning, "encoding did:key")
		}
		return "did:key:" + encoded, nil
	case identity.DIDMethodEthr:
		return "did:ethr:" + ethAddress(pub), nil
	default:
		return "", dErrors.New(dErrors.CodeSigning, fmt.Sprintf("unsupported did method %q", method))
	}
}

// KeyToVerificationMethod implements identity.Signer.
func (s *Signer) KeyToVerificationMethod(_ context.Context, method, key string) (string, error) {
	did, err := s.KeyToDID(method, key)
	if err != nil {
		return "", err
	}
	if method == identity.DIDMethodEthr {
		return did + "#controller", nil
	}
	return did + "#" + strings.TrimPrefix(did, "did:key:"), nil
}

// IssueCredential implements identity.Signer.
func (s *Signer) IssueCredential(ctx context.Context, credential *identity.Credential, options identity.ProofOptions, key string) (*identity.Credential, error) {
	priv, _ := keyPair(key)

	unsigned := *credential
	unsigned.Proof = nil

	input, err := signingInput(&unsigned, options.Type)
	if err != nil {
		return nil, err
	}

	proofValue, err := multibase.Encode(multibase.Base58BTC, ed25519.Sign(priv, input))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSigning, "encoding proof value")
	}

	proofType := "Ed25519Signature2018"
	if options.Type != "" {
		proofType = options.Type
	}
	purpose := options.ProofPurpose
	if purpose == "" {
		purpose = identity.ProofPurposeAssertion
	}
	verificationMethod := options.VerificationMethod
	if verificationMethod == "" {
		verificationMethod, err = s.KeyToVerificationMethod(ctx, identity.DIDMethodKey, key)
		if err != nil {
			return nil, err
		}
	}

	signed := *credential
	signed.Proof = &identity.Proof{
		Type:               proofType,
		ProofPurpose:       purpose,
		VerificationMethod: verificationMethod,
		Created:            credential.IssuanceDate,
		ProofValue:         proofValue,
	}
	return &signed, nil
}

// VerifyCredential implements identity.Signer.
func (s *Signer) VerifyCredential(_ context.Context, credential *identity.Credential, _ identity.ProofOptions) (identity.VerificationResult, error) {
	if credential == nil || credential.Proof == nil {
		return identity.VerificationResult{Errors: []string{"missing proof"}}, nil
	}

	method := identity.DIDMethodKey
	if strings.HasPrefix(credential.Issuer, "did:ethr:") {
		method = identity.DIDMethodEthr
	}
	expectedIssuer, err := s.KeyToDID(method, s.key)
	if err != nil {
		return identity.VerificationResult{}, err
	}
	if credential.Issuer != expectedIssuer {
		return identity.VerificationResult{Errors: []string{"unknown issuer"}}, nil
	}

	unsigned := *credential
	unsigned.Proof = nil
	input, err := signingInput(&unsigned, credential.Proof.Type)
	if err != nil {
		return identity.VerificationResult{}, err
	}

	_, signature, err := multibase.Decode(credential.Proof.ProofValue)
	if err != nil {
		return identity.VerificationResult{Errors: []string{"malformed proof value"}}, nil
	}

	_, pub := keyPair(s.key)
	if !ed25519.Verify(pub, input, signature) {
		return identity.VerificationResult{Errors: []string{"invalid signature"}}, nil
	}

	return identity.VerificationResult{Checks: []string{"proof"}}, nil
}

// signingInput canonicalizes the unsigned credential. Typed-data proofs sign
// a keccak digest of the document, matching the shape of an EIP712 flow.
func signingInput(credential *identity.Credential, proofType string) ([]byte, error) {
	payload, err := json.Marshal(credential)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSigning, "canonicalizing credential")
	}

	if proofType == identity.TypedDataProofType {
		digest := sha3.NewLegacyKeccak256()
		digest.Write(payload)
		return digest.Sum(nil), nil
	}
	return payload, nil
}

// ethAddress derives a deterministic 20-byte address from a public key using
// the keccak convention.
func ethAddress(pub ed25519.PublicKey) string {
	digest := sha3.NewLegacyKeccak256()
	digest.Write(pub)
	sum := digest.Sum(nil)
	return "0x" + hex.EncodeToString(sum[12:])
}
