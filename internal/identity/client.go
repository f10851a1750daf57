package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	dErrors "stampd/pkg/domain-errors"
)

// MessageSigner signs a challenge string on behalf of the wallet holder.
type MessageSigner interface {
	SignMessage(ctx context.Context, message string) (string, error)
}

// Client drives the two-step credential flow against a remote issuer:
// fetch a challenge, sign it, submit proofs, receive stamps.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// NewClient builds a Client for the issuer at serviceURL.
func NewClient(serviceURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(serviceURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CredentialRecord is the aggregate outcome of a full client flow.
type CredentialRecord struct {
	Signature   string
	Challenge   *Credential
	Error       string
	Record      map[string]string
	Credential  *Credential
	Credentials []CredentialResponse
}

// FetchChallengeCredential requests a challenge credential for the payload.
func (c *Client) FetchChallengeCredential(ctx context.Context, payload RequestPayload) (*Credential, error) {
	var response ChallengeResponse
	if err := c.post(ctx, c.endpoint(payload.Version, "challenge"), map[string]any{"payload": payload}, &response); err != nil {
		return nil, err
	}
	if response.Credential == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "challenge response carried no credential")
	}
	return response.Credential, nil
}

// FetchVerifiableCredential runs the complete flow. It fails fast when no
// signer is available, before any network traffic, and aborts on the first
// failed step so no partial state leaks into the result.
func (c *Client) FetchVerifiableCredential(ctx context.Context, payload RequestPayload, signer MessageSigner) (*CredentialRecord, error) {
	if signer == nil {
		return nil, dErrors.New(dErrors.CodeSigning, "unable to sign message without a signer")
	}

	challenge, err := c.FetchChallengeCredential(ctx, payload)
	if err != nil {
		return nil, err
	}

	signature := ""
	if message := challenge.CredentialSubject.Challenge; message != "" {
		signature, err = signer.SignMessage(ctx, message)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeSigning, "signing challenge message")
		}
	}
	if signature == "" {
		return nil, dErrors.New(dErrors.CodeSigning, "unable to sign message")
	}

	// Copy before attaching the signature; the caller's payload stays untouched.
	proofs := make(map[string]string, len(payload.Proofs)+1)
	for k, v := range payload.Proofs {
		proofs[k] = v
	}
	proofs["signature"] = signature
	payload.Proofs = proofs

	var raw json.RawMessage
	err = c.post(ctx, c.endpoint(payload.Version, "verify"), map[string]any{
		"payload":   payload,
		"challenge": challenge,
	}, &raw)
	if err != nil {
		return nil, err
	}

	record := &CredentialRecord{
		Signature: signature,
		Challenge: challenge,
	}

	// The verify endpoint answers with an object for a single type and an
	// array for batch requests. Normalize both into the record.
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &record.Credentials); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decoding batch verify response")
		}
		return record, nil
	}

	var single CredentialResponse
	if err := json.Unmarshal(trimmed, &single); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decoding verify response")
	}
	record.Error = single.Error
	record.Record = single.Record
	record.Credential = single.Credential
	return record, nil
}

func (c *Client) endpoint(version, operation string) string {
	return fmt.Sprintf("%s/v%s/%s", c.baseURL, version, operation)
}

func (c *Client) post(ctx context.Context, url string, body any, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encoding request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "building request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "calling issuer")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "reading issuer response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var remote struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &remote) == nil && remote.Error != "" {
			return dErrors.New(dErrors.CodeBadRequest, remote.Error)
		}
		return dErrors.New(dErrors.CodeInternal, fmt.Sprintf("issuer returned status %d", resp.StatusCode))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "decoding issuer response")
	}
	return nil
}
