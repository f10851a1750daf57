package providers

import (
	"context"
	"fmt"
	"math/big"

	"stampd/internal/identity"
)

// BalanceReader reads the current wei balance of a wallet address.
type BalanceReader interface {
	BalanceAt(ctx context.Context, address string) (*big.Int, error)
}

// EVMBalanceProvider approves addresses whose on-chain balance meets a
// threshold. The disclosed record states the threshold, never the balance.
type EVMBalanceProvider struct {
	reader    BalanceReader
	threshold *big.Int
}

// NewEVMBalanceProvider builds an EVMBalanceProvider with a wei threshold.
func NewEVMBalanceProvider(reader BalanceReader, thresholdWei *big.Int) *EVMBalanceProvider {
	return &EVMBalanceProvider{reader: reader, threshold: thresholdWei}
}

// Type implements Provider.
func (p *EVMBalanceProvider) Type() string { return "EVMBalance" }

// Verify implements Provider.
func (p *EVMBalanceProvider) Verify(ctx context.Context, payload identity.RequestPayload, pctx *Context) (VerifiedPayload, error) {
	v, err := pctx.Resolve("evm:balance:"+payload.Address, func() (any, error) {
		return p.reader.BalanceAt(ctx, payload.Address)
	})
	if err != nil {
		return VerifiedPayload{}, fmt.Errorf("reading balance for %s: %w", payload.Address, err)
	}
	balance := v.(*big.Int)

	if balance.Cmp(p.threshold) < 0 {
		return VerifiedPayload{
			Valid:  false,
			Errors: []string{"balance below threshold"},
		}, nil
	}

	return VerifiedPayload{
		Valid: true,
		Record: map[string]string{
			"address":      payload.Address,
			"thresholdWei": p.threshold.String(),
		},
	}, nil
}
