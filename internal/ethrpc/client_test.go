package ethrpc_test

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"stampd/internal/ethrpc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rpcServer(t *testing.T, handler func(method string, params []json.RawMessage) (any, *string)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
			ID     int               `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		result, rpcErr := handler(req.Method, req.Params)
		if rpcErr != nil {
			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID,
				"error": map[string]any{"code": -32000, "message": *rpcErr},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
	}))
}

func TestBalanceAt(t *testing.T) {
	server := rpcServer(t, func(method string, params []json.RawMessage) (any, *string) {
		require.Equal(t, "eth_getBalance", method)

		var address, block string
		require.NoError(t, json.Unmarshal(params[0], &address))
		require.NoError(t, json.Unmarshal(params[1], &block))
		assert.Equal(t, "0xabc", address)
		assert.Equal(t, "latest", block)

		return "0xde0b6b3a7640000", nil // 1 ETH
	})
	defer server.Close()

	client := ethrpc.New(server.URL)
	balance, err := client.BalanceAt(context.Background(), "0xabc")
	require.NoError(t, err)

	expected, _ := new(big.Int).SetString("1000000000000000000", 10)
	assert.Zero(t, balance.Cmp(expected))
}

func TestBalanceAtZero(t *testing.T) {
	server := rpcServer(t, func(string, []json.RawMessage) (any, *string) {
		return "0x0", nil
	})
	defer server.Close()

	balance, err := ethrpc.New(server.URL).BalanceAt(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Zero(t, balance.Sign())
}

func TestRPCErrorSurfaces(t *testing.T) {
	server := rpcServer(t, func(string, []json.RawMessage) (any, *string) {
		msg := "execution reverted"
		return nil, &msg
	})
	defer server.Close()

	_, err := ethrpc.New(server.URL).BalanceAt(context.Background(), "0xabc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution reverted")
}

// abiString encodes a single dynamic string return value.
func abiString(s string) string {
	out := make([]byte, 64+((len(s)+31)/32)*32)
	out[31] = 0x20
	out[63] = byte(len(s))
	copy(out[64:], s)
	return "0x" + hex.EncodeToString(out)
}

func TestHandleContractPrimaryHandle(t *testing.T) {
	address := "0x00112233445566778899aabbccddeeff00112233"

	server := rpcServer(t, func(method string, params []json.RawMessage) (any, *string) {
		require.Equal(t, "eth_call", method)

		var call struct {
			To   string `json:"to"`
			Data string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(params[0], &call))
		assert.Equal(t, "0xregistry", call.To)
		// selector + padded address word
		assert.Len(t, call.Data, 2+8+64)
		assert.Contains(t, call.Data, address[2:])

		return abiString("alice"), nil
	})
	defer server.Close()

	resolver := ethrpc.NewHandleContract(ethrpc.New(server.URL), "0xregistry")
	handle, err := resolver.PrimaryHandle(context.Background(), address)
	require.NoError(t, err)
	assert.Equal(t, "alice", handle)
}

func TestHandleContractNoHandle(t *testing.T) {
	server := rpcServer(t, func(string, []json.RawMessage) (any, *string) {
		return "0x", nil
	})
	defer server.Close()

	resolver := ethrpc.NewHandleContract(ethrpc.New(server.URL), "0xregistry")
	handle, err := resolver.PrimaryHandle(context.Background(), "0x00112233445566778899aabbccddeeff00112233")
	require.NoError(t, err)
	assert.Empty(t, handle)
}

func TestHandleContractRejectsMalformedAddress(t *testing.T) {
	resolver := ethrpc.NewHandleContract(ethrpc.New("http://unused"), "0xregistry")
	_, err := resolver.PrimaryHandle(context.Background(), "not-an-address")
	require.Error(t, err)
}
