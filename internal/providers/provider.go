// Package providers defines the pluggable verification strategies and the
// registry that dispatches verification requests to them.
package providers

import (
	"context"

	"stampd/internal/identity"
)

// VerifiedPayload is a provider's verdict about one request payload. When
// Valid is true, Record carries the minimal facts that feed the stamp hash;
// raw evidence never leaves the provider.
type VerifiedPayload struct {
	Valid  bool              `json:"valid"`
	Record map[string]string `json:"record,omitempty"`
	Errors []string          `json:"errors,omitempty"`
}

// Provider is the contract every verification strategy implements. Verify
// must be side-effect free with respect to the payload and safe to call
// concurrently; shared lookups go through the per-request Context.
type Provider interface {
	// Type is the unique string the registry dispatches on.
	Type() string
	// Verify evaluates the payload. An unmet predicate is reported through
	// VerifiedPayload (Valid false plus Errors); a returned error means the
	// provider itself could not run.
	Verify(ctx context.Context, payload identity.RequestPayload, pctx *Context) (VerifiedPayload, error)
}
