package providers

import (
	"context"

	"stampd/internal/identity"
)

// SignerProvider attests that the caller produced a challenge signature. The
// signature itself is checked against the challenge upstream; this provider
// turns that fact into a stampable record.
type SignerProvider struct{}

// NewSignerProvider builds a SignerProvider.
func NewSignerProvider() *SignerProvider {
	return &SignerProvider{}
}

// Type implements Provider.
func (p *SignerProvider) Type() string { return "Signer" }

// Verify implements Provider.
func (p *SignerProvider) Verify(_ context.Context, payload identity.RequestPayload, _ *Context) (VerifiedPayload, error) {
	if payload.Proofs["signature"] == "" {
		return VerifiedPayload{
			Valid:  false,
			Errors: []string{"missing challenge signature"},
		}, nil
	}

	return VerifiedPayload{
		Valid:  true,
		Record: map[string]string{"address": payload.Address},
	}, nil
}
