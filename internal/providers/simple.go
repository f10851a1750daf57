package providers

import (
	"context"

	"stampd/internal/identity"
)

// SimpleProvider approves payloads whose proofs assert validity. It is the
// reference implementation of the Provider contract and the default target
// for end-to-end exercises of the issuance pipeline.
type SimpleProvider struct{}

// NewSimpleProvider builds a SimpleProvider.
func NewSimpleProvider() *SimpleProvider {
	return &SimpleProvider{}
}

// Type implements Provider.
func (p *SimpleProvider) Type() string { return "Simple" }

// Verify approves when proofs carry valid=true. The disclosed record echoes
// the submitted username, which may be empty.
func (p *SimpleProvider) Verify(_ context.Context, payload identity.RequestPayload, _ *Context) (VerifiedPayload, error) {
	if payload.Proofs["valid"] != "true" {
		return VerifiedPayload{
			Valid:  false,
			Errors: []string{"proof is not valid"},
		}, nil
	}

	return VerifiedPayload{
		Valid:  true,
		Record: map[string]string{"username": payload.Proofs["username"]},
	}, nil
}
