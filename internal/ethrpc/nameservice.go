package ethrpc

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	dErrors "stampd/pkg/domain-errors"

	"golang.org/x/crypto/sha3"
)

// HandleContract resolves primary name-service handles by calling a registry
// contract. It implements the provider-side HandleResolver contract.
type HandleContract struct {
	client   *Client
	contract string
}

// NewHandleContract builds a resolver against the registry at the contract
// address.
func NewHandleContract(client *Client, contract string) *HandleContract {
	return &HandleContract{client: client, contract: contract}
}

// PrimaryHandle returns the primary handle registered for the address, or the
// empty string when none is set.
func (h *HandleContract) PrimaryHandle(ctx context.Context, address string) (string, error) {
	addr, err := padAddress(address)
	if err != nil {
		return "", err
	}

	data := append(selector("primaryHandle(address)"), addr...)
	out, err := h.client.Call(ctx, h.contract, data)
	if err != nil {
		return "", err
	}
	if len(out) == 0 {
		return "", nil
	}
	return decodeABIString(out)
}

// selector computes the 4-byte function selector for a solidity signature.
func selector(signature string) []byte {
	digest := sha3.NewLegacyKeccak256()
	digest.Write([]byte(signature))
	return digest.Sum(nil)[:4]
}

// padAddress left-pads a 20-byte hex address to a 32-byte ABI word.
func padAddress(address string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.ToLower(address), "0x"))
	if err != nil || len(raw) != 20 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("malformed address %q", address))
	}
	word := make([]byte, 32)
	copy(word[12:], raw)
	return word, nil
}

// decodeABIString decodes a single ABI-encoded dynamic string return value.
func decodeABIString(out []byte) (string, error) {
	if len(out) < 64 {
		return "", dErrors.New(dErrors.CodeInternal, "abi string return too short")
	}

	offset := new(big.Int).SetBytes(out[:32])
	if !offset.IsInt64() || offset.Int64()+32 > int64(len(out)) {
		return "", dErrors.New(dErrors.CodeInternal, "abi string offset out of range")
	}
	start := offset.Int64()

	length := new(big.Int).SetBytes(out[start : start+32])
	if !length.IsInt64() || start+32+length.Int64() > int64(len(out)) {
		return "", dErrors.New(dErrors.CodeInternal, "abi string length out of range")
	}

	return string(out[start+32 : start+32+length.Int64()]), nil
}
