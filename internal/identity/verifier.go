package identity

import (
	"context"
	"time"
)

// Verifier checks previously issued credentials: lifetime first, then the
// cryptographic proof via the signing backend.
type Verifier struct {
	signer Signer
	now    func() time.Time
}

// VerifierOption customizes a Verifier.
type VerifierOption func(*Verifier)

// WithVerifierClock injects a time source for tests.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) { v.now = now }
}

// NewVerifier builds a Verifier around the signing backend.
func NewVerifier(signer Signer, opts ...VerifierOption) *Verifier {
	v := &Verifier{signer: signer, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify reports whether the credential is currently valid. An expired
// credential is rejected without consulting the signing backend. Backend
// failures count as not verified.
func (v *Verifier) Verify(ctx context.Context, credential *Credential) bool {
	if credential == nil {
		return false
	}
	if !v.now().Before(credential.ExpirationDate) {
		return false
	}

	purpose := ProofPurposeAssertion
	if credential.Proof != nil && credential.Proof.ProofPurpose != "" {
		purpose = credential.Proof.ProofPurpose
	}

	result, err := v.signer.VerifyCredential(ctx, credential, ProofOptions{ProofPurpose: purpose})
	if err != nil {
		return false
	}
	return len(result.Errors) == 0
}
