package providers_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"stampd/internal/identity"
	"stampd/internal/providers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleProviderValidProof(t *testing.T) {
	p := providers.NewSimpleProvider()

	verdict, err := p.Verify(context.Background(), identity.RequestPayload{
		Address: "0xabc",
		Type:    "Simple",
		Proofs:  map[string]string{"valid": "true", "username": "alice"},
	}, providers.NewContext())
	require.NoError(t, err)

	assert.True(t, verdict.Valid)
	assert.Equal(t, "alice", verdict.Record["username"])
	assert.Empty(t, verdict.Errors)
}

func TestSimpleProviderInvalidProof(t *testing.T) {
	p := providers.NewSimpleProvider()

	for _, proofs := range []map[string]string{
		{"valid": "false"},
		{"valid": "TRUE"},
		{},
		nil,
	} {
		verdict, err := p.Verify(context.Background(), identity.RequestPayload{
			Address: "0xabc", Type: "Simple", Proofs: proofs,
		}, providers.NewContext())
		require.NoError(t, err)

		assert.False(t, verdict.Valid)
		assert.Contains(t, verdict.Errors, "proof is not valid")
		assert.Empty(t, verdict.Record)
	}
}

type staticResolver struct {
	handle string
	err    error
}

func (s *staticResolver) PrimaryHandle(context.Context, string) (string, error) {
	return s.handle, s.err
}

func TestHandlePremiumProvider(t *testing.T) {
	cases := []struct {
		name   string
		handle string
		valid  bool
	}{
		{"one char", "a", true},
		{"six chars", "abcdef", true},
		{"seven chars", "abcdefg", false},
		{"no handle", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := providers.NewHandlePremiumProvider(&staticResolver{handle: tc.handle})

			verdict, err := p.Verify(context.Background(),
				identity.RequestPayload{Address: "0xabc", Type: "HandlePremium"},
				providers.NewContext())
			require.NoError(t, err)

			assert.Equal(t, tc.valid, verdict.Valid)
			if tc.valid {
				assert.Equal(t, tc.handle, verdict.Record["userHandle"])
			} else {
				assert.Empty(t, verdict.Record)
				assert.NotEmpty(t, verdict.Errors)
			}
		})
	}
}

func TestHandlePaidProvider(t *testing.T) {
	cases := []struct {
		name   string
		handle string
		valid  bool
	}{
		{"six chars is premium territory", "abcdef", false},
		{"seven chars", "abcdefg", true},
		{"twelve chars", "abcdefghijkl", true},
		{"thirteen chars", "abcdefghijklm", false},
		{"no handle", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := providers.NewHandlePaidProvider(&staticResolver{handle: tc.handle})

			verdict, err := p.Verify(context.Background(),
				identity.RequestPayload{Address: "0xabc", Type: "HandlePaid"},
				providers.NewContext())
			require.NoError(t, err)

			assert.Equal(t, tc.valid, verdict.Valid)
		})
	}
}

func TestHandleProviderResolverFailure(t *testing.T) {
	p := providers.NewHandlePremiumProvider(&staticResolver{err: errors.New("registry unreachable")})

	_, err := p.Verify(context.Background(),
		identity.RequestPayload{Address: "0xabc", Type: "HandlePremium"},
		providers.NewContext())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "registry unreachable")
}

type staticBalance struct {
	wei *big.Int
	err error
}

func (s *staticBalance) BalanceAt(context.Context, string) (*big.Int, error) {
	return s.wei, s.err
}

func TestEVMBalanceProvider(t *testing.T) {
	threshold := big.NewInt(1_000_000)

	t.Run("meets threshold", func(t *testing.T) {
		p := providers.NewEVMBalanceProvider(&staticBalance{wei: big.NewInt(1_000_000)}, threshold)

		verdict, err := p.Verify(context.Background(),
			identity.RequestPayload{Address: "0xabc", Type: "EVMBalance"},
			providers.NewContext())
		require.NoError(t, err)

		assert.True(t, verdict.Valid)
		assert.Equal(t, "1000000", verdict.Record["thresholdWei"])
		assert.NotContains(t, verdict.Record, "balance", "the balance itself is never disclosed")
	})

	t.Run("below threshold", func(t *testing.T) {
		p := providers.NewEVMBalanceProvider(&staticBalance{wei: big.NewInt(999_999)}, threshold)

		verdict, err := p.Verify(context.Background(),
			identity.RequestPayload{Address: "0xabc", Type: "EVMBalance"},
			providers.NewContext())
		require.NoError(t, err)

		assert.False(t, verdict.Valid)
		assert.Contains(t, verdict.Errors, "balance below threshold")
	})

	t.Run("rpc failure", func(t *testing.T) {
		p := providers.NewEVMBalanceProvider(&staticBalance{err: errors.New("rpc down")}, threshold)

		_, err := p.Verify(context.Background(),
			identity.RequestPayload{Address: "0xabc", Type: "EVMBalance"},
			providers.NewContext())
		require.Error(t, err)
	})
}

func TestSignerProvider(t *testing.T) {
	p := providers.NewSignerProvider()

	verdict, err := p.Verify(context.Background(), identity.RequestPayload{
		Address: "0xabc",
		Type:    "Signer",
		Proofs:  map[string]string{"signature": "0xsigned"},
	}, providers.NewContext())
	require.NoError(t, err)
	assert.True(t, verdict.Valid)
	assert.Equal(t, "0xabc", verdict.Record["address"])

	verdict, err = p.Verify(context.Background(), identity.RequestPayload{
		Address: "0xabc", Type: "Signer",
	}, providers.NewContext())
	require.NoError(t, err)
	assert.False(t, verdict.Valid)
}
