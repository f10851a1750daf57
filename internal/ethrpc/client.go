// Package ethrpc is a minimal Ethereum JSON-RPC client covering the two read
// paths the providers need: balance queries and read-only contract calls.
package ethrpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	dErrors "stampd/pkg/domain-errors"
)

// Client speaks JSON-RPC 2.0 to an Ethereum node.
type Client struct {
	url  string
	http *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New builds a Client for the node at url.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:  url,
		http: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "encoding rpc request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "building rpc request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "calling rpc node")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "reading rpc response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("rpc node returned status %d", resp.StatusCode))
	}

	var decoded rpcResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decoding rpc response")
	}
	if decoded.Error != nil {
		return nil, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("rpc error %d: %s", decoded.Error.Code, decoded.Error.Message))
	}
	return decoded.Result, nil
}

// BalanceAt returns the latest wei balance of the address.
func (c *Client) BalanceAt(ctx context.Context, address string) (*big.Int, error) {
	result, err := c.call(ctx, "eth_getBalance", address, "latest")
	if err != nil {
		return nil, err
	}

	var quantity string
	if err := json.Unmarshal(result, &quantity); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decoding balance")
	}
	return parseQuantity(quantity)
}

// Call executes a read-only contract call against the latest block and
// returns the raw ABI-encoded result.
func (c *Client) Call(ctx context.Context, contract string, data []byte) ([]byte, error) {
	result, err := c.call(ctx, "eth_call", map[string]string{
		"to":   contract,
		"data": "0x" + hex.EncodeToString(data),
	}, "latest")
	if err != nil {
		return nil, err
	}

	var encoded string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decoding call result")
	}
	return hex.DecodeString(strings.TrimPrefix(encoded, "0x"))
}

// parseQuantity decodes a JSON-RPC hex quantity ("0x1a2b") into a big.Int.
func parseQuantity(quantity string) (*big.Int, error) {
	trimmed := strings.TrimPrefix(quantity, "0x")
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, fmt.Sprintf("malformed hex quantity %q", quantity))
	}
	return value, nil
}
