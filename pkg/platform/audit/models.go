// Package audit captures the who/what/when of credential issuance without
// retaining any raw verification evidence.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out. Addresses are stored
// hashed; proofs and challenge nonces are never recorded.
type Event struct {
	Timestamp     time.Time
	Action        Action
	Provider      string
	AddressHash   string
	SignatureType string
	Decision      string
	Reason        string
	RequestID     string
	ClientUA      string
}

// Action names the audited operation.
type Action string

const (
	ActionChallengeIssued    Action = "challenge_issued"
	ActionStampIssued        Action = "stamp_issued"
	ActionVerificationFailed Action = "verification_failed"
	ActionRateLimited        Action = "rate_limited"
)

// Decisions recorded on events.
const (
	DecisionIssued   = "issued"
	DecisionRejected = "rejected"
)

// HashAddress produces the privacy-preserving address form stored on events:
// hex(sha256(lowercase(address))).
func HashAddress(address string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(address)))
	return hex.EncodeToString(sum[:])
}

// Store persists audit events. Implementations must be safe for concurrent
// use.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Fanout appends each event to every store, returning the first error after
// all stores have been attempted.
type Fanout []Store

// Append implements Store.
func (f Fanout) Append(ctx context.Context, event Event) error {
	var first error
	for _, store := range f {
		if err := store.Append(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
