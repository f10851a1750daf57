package providers

import (
	"context"
	"fmt"

	"stampd/internal/identity"
)

// HandleResolver resolves the primary name-service handle registered for a
// wallet address. An address with no handle resolves to the empty string.
type HandleResolver interface {
	PrimaryHandle(ctx context.Context, address string) (string, error)
}

// resolveHandle fetches the handle through the per-request context so the
// premium and paid providers share a single lookup per address.
func resolveHandle(ctx context.Context, pctx *Context, resolver HandleResolver, address string) (string, error) {
	v, err := pctx.Resolve("nameservice:handle:"+address, func() (any, error) {
		return resolver.PrimaryHandle(ctx, address)
	})
	if err != nil {
		return "", fmt.Errorf("resolving handle for %s: %w", address, err)
	}
	return v.(string), nil
}

// HandlePremiumProvider approves addresses holding a premium name-service
// handle, i.e. one of at most six characters.
type HandlePremiumProvider struct {
	resolver HandleResolver
}

// NewHandlePremiumProvider builds a HandlePremiumProvider.
func NewHandlePremiumProvider(resolver HandleResolver) *HandlePremiumProvider {
	return &HandlePremiumProvider{resolver: resolver}
}

// Type implements Provider.
func (p *HandlePremiumProvider) Type() string { return "HandlePremium" }

// Verify implements Provider.
func (p *HandlePremiumProvider) Verify(ctx context.Context, payload identity.RequestPayload, pctx *Context) (VerifiedPayload, error) {
	handle, err := resolveHandle(ctx, pctx, p.resolver, payload.Address)
	if err != nil {
		return VerifiedPayload{}, err
	}

	if n := len(handle); n == 0 || n > 6 {
		return VerifiedPayload{
			Valid:  false,
			Errors: []string{"address does not hold a premium handle"},
		}, nil
	}

	return VerifiedPayload{
		Valid:  true,
		Record: map[string]string{"userHandle": handle},
	}, nil
}

// HandlePaidProvider approves addresses holding a paid name-service handle,
// i.e. one of seven to twelve characters.
type HandlePaidProvider struct {
	resolver HandleResolver
}

// NewHandlePaidProvider builds a HandlePaidProvider.
func NewHandlePaidProvider(resolver HandleResolver) *HandlePaidProvider {
	return &HandlePaidProvider{resolver: resolver}
}

// Type implements Provider.
func (p *HandlePaidProvider) Type() string { return "HandlePaid" }

// Verify implements Provider.
func (p *HandlePaidProvider) Verify(ctx context.Context, payload identity.RequestPayload, pctx *Context) (VerifiedPayload, error) {
	handle, err := resolveHandle(ctx, pctx, p.resolver, payload.Address)
	if err != nil {
		return VerifiedPayload{}, err
	}

	if n := len(handle); n <= 6 || n > 12 {
		return VerifiedPayload{
			Valid:  false,
			Errors: []string{"address does not hold a paid handle"},
		}, nil
	}

	return VerifiedPayload{
		Valid:  true,
		Record: map[string]string{"userHandle": handle},
	}, nil
}
