//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"stampd/pkg/platform/audit"
	"stampd/pkg/platform/audit/store/postgres"
	"stampd/pkg/testutil/containers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendAndListRoundTrip(t *testing.T) {
	pg := containers.NewPostgresContainer(t)
	store := postgres.New(pg.DB)
	ctx := context.Background()

	addressHash := audit.HashAddress("0xabc")
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	events := []audit.Event{
		{
			Timestamp:     base,
			Action:        audit.ActionChallengeIssued,
			Provider:      "Simple",
			AddressHash:   addressHash,
			SignatureType: "Ed25519",
			Decision:      audit.DecisionIssued,
			RequestID:     "req-1",
			ClientUA:      "firefox/linux/desktop",
		},
		{
			Timestamp:   base.Add(time.Minute),
			Action:      audit.ActionStampIssued,
			Provider:    "Simple",
			AddressHash: addressHash,
			Decision:    audit.DecisionIssued,
			RequestID:   "req-2",
		},
		{
			Timestamp:   base.Add(2 * time.Minute),
			Action:      audit.ActionVerificationFailed,
			Provider:    "HandlePremium",
			AddressHash: audit.HashAddress("0xdef"),
			Decision:    audit.DecisionRejected,
			Reason:      "address does not hold a premium handle",
		},
	}
	for _, event := range events {
		require.NoError(t, store.Append(ctx, event))
	}

	byAddress, err := store.ListByAddressHash(ctx, addressHash)
	require.NoError(t, err)
	require.Len(t, byAddress, 2)
	assert.Equal(t, audit.ActionStampIssued, byAddress[0].Action, "newest first")
	assert.Equal(t, audit.ActionChallengeIssued, byAddress[1].Action)
	assert.Equal(t, "req-1", byAddress[1].RequestID)
	assert.Equal(t, "firefox/linux/desktop", byAddress[1].ClientUA)

	recent, err := store.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, audit.ActionVerificationFailed, recent[0].Action)
}
