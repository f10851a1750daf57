package identity_test

import (
	"context"
	"testing"
	"time"

	"stampd/internal/identity"
	dErrors "stampd/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSigner is a deterministic in-memory signing backend.
type fakeSigner struct {
	issueCalls   int
	verifyCalls  int
	verifyResult identity.VerificationResult
	verifyErr    error
}

func (f *fakeSigner) KeyToDID(method, _ string) (string, error) {
	if method == identity.DIDMethodEthr {
		return "did:ethr:0x00000000000000000000000000000000000000aa", nil
	}
	return "did:key:z6MkTestIssuer", nil
}

func (f *fakeSigner) KeyToVerificationMethod(_ context.Context, method, key string) (string, error) {
	did, err := f.KeyToDID(method, key)
	if err != nil {
		return "", err
	}
	return did + "#controller", nil
}

func (f *fakeSigner) IssueCredential(_ context.Context, credential *identity.Credential, options identity.ProofOptions, _ string) (*identity.Credential, error) {
	f.issueCalls++

	proofType := "Ed25519Signature2018"
	if options.Type != "" {
		proofType = options.Type
	}
	signed := *credential
	signed.Proof = &identity.Proof{
		Type:               proofType,
		ProofPurpose:       options.ProofPurpose,
		VerificationMethod: options.VerificationMethod,
		Created:            credential.IssuanceDate,
		ProofValue:         "zFakeSignature",
	}
	return &signed, nil
}

func (f *fakeSigner) VerifyCredential(_ context.Context, _ *identity.Credential, _ identity.ProofOptions) (identity.VerificationResult, error) {
	f.verifyCalls++
	if f.verifyErr != nil {
		return identity.VerificationResult{}, f.verifyErr
	}
	return f.verifyResult, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueChallengeShape(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := identity.NewIssuer(&fakeSigner{}, "issuer-key", identity.WithClock(fixedClock(now)))
	require.NoError(t, err)

	credential, err := issuer.IssueChallenge(context.Background(), identity.RequestPayload{
		Address: "0xABCDEF0123456789abcdef0123456789ABCDEF01",
		Type:    "Simple",
		Version: "0.0.0",
	})
	require.NoError(t, err)

	subject := credential.CredentialSubject
	assert.Equal(t, "did:pkh:eip155:1:0xABCDEF0123456789abcdef0123456789ABCDEF01", subject.ID)
	assert.Equal(t, "challenge-Simple", subject.Provider)
	assert.Equal(t, "0xABCDEF0123456789abcdef0123456789ABCDEF01", subject.Address,
		"challenge must preserve the caller's address casing")
	assert.NotEmpty(t, subject.Challenge)

	assert.Equal(t, []string{identity.CredentialsContext}, credential.Context)
	assert.Equal(t, "did:key:z6MkTestIssuer", credential.Issuer)
	assert.Equal(t, now, credential.IssuanceDate)
	assert.Equal(t, now.Add(60*time.Second), credential.ExpirationDate)
	require.NotNil(t, credential.Proof)
	assert.Equal(t, "Ed25519Signature2018", credential.Proof.Type)
}

func TestIssueChallengeNonceIsUnpredictable(t *testing.T) {
	issuer, err := identity.NewIssuer(&fakeSigner{}, "issuer-key")
	require.NoError(t, err)

	payload := identity.RequestPayload{Address: "0xabc", Type: "Simple", Version: "0.0.0"}

	first, err := issuer.IssueChallenge(context.Background(), payload)
	require.NoError(t, err)
	second, err := issuer.IssueChallenge(context.Background(), payload)
	require.NoError(t, err)

	assert.NotEqual(t, first.CredentialSubject.Challenge, second.CredentialSubject.Challenge,
		"two challenges for the same payload must carry distinct nonces")
}

func TestIssueChallengeRequiresAddressAndType(t *testing.T) {
	issuer, err := identity.NewIssuer(&fakeSigner{}, "issuer-key")
	require.NoError(t, err)

	_, err = issuer.IssueChallenge(context.Background(), identity.RequestPayload{Type: "Simple"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = issuer.IssueChallenge(context.Background(), identity.RequestPayload{Address: "0xabc"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestIssueStampDefaultLifetime(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := identity.NewIssuer(&fakeSigner{}, "issuer-key", identity.WithClock(fixedClock(now)))
	require.NoError(t, err)

	record := map[string]string{"type": "Simple", "username": "alice"}
	credential, err := issuer.IssueStamp(context.Background(), "0xabc", record, identity.StampOptions{})
	require.NoError(t, err)

	assert.Equal(t, now.Add(90*24*time.Hour), credential.ExpirationDate)

	subject := credential.CredentialSubject
	assert.Equal(t, "did:pkh:eip155:1:0xabc", subject.ID)
	assert.Equal(t, "Simple", subject.Provider)
	assert.Equal(t, identity.VersionedHash("issuer-key", record), subject.Hash)
	assert.Empty(t, subject.Challenge)
}

func TestIssueStampSameRecordSameHash(t *testing.T) {
	issuer, err := identity.NewIssuer(&fakeSigner{}, "issuer-key")
	require.NoError(t, err)

	record := map[string]string{"type": "Simple", "username": "alice"}

	first, err := issuer.IssueStamp(context.Background(), "0xabc", record, identity.StampOptions{})
	require.NoError(t, err)
	second, err := issuer.IssueStamp(context.Background(), "0xabc", record, identity.StampOptions{})
	require.NoError(t, err)

	assert.Equal(t, first.CredentialSubject.Hash, second.CredentialSubject.Hash,
		"the hash must be deterministic for deduplication")
}

func TestIssueStampEIP712Shape(t *testing.T) {
	issuer, err := identity.NewIssuer(&fakeSigner{}, "issuer-key")
	require.NoError(t, err)

	credential, err := issuer.IssueStamp(context.Background(), "0xabc",
		map[string]string{"type": "Simple"},
		identity.StampOptions{SignatureType: identity.SignatureEIP712, MetaPointer: "https://meta.example/1"})
	require.NoError(t, err)

	assert.Equal(t, []string{identity.CredentialsContext, identity.StatusListContext}, credential.Context)
	assert.Contains(t, credential.Issuer, "did:ethr:")
	require.NotNil(t, credential.Proof)
	assert.Equal(t, identity.TypedDataProofType, credential.Proof.Type)
	assert.NotEmpty(t, credential.Proof.VerificationMethod)

	subject := credential.CredentialSubject
	assert.Equal(t, "https://meta.example/1", subject.MetaPointer)

	contexts, ok := subject.Context.(map[string]string)
	require.True(t, ok, "EIP712 subject context is a structured object")
	for _, field := range []string{"customInfo", "hash", "metaPointer", "provider"} {
		assert.Contains(t, contexts, field)
	}
}

func TestIssueStampHashIndependentOfScheme(t *testing.T) {
	issuer, err := identity.NewIssuer(&fakeSigner{}, "issuer-key")
	require.NoError(t, err)

	record := map[string]string{"type": "Simple", "username": "alice"}

	ed25519Stamp, err := issuer.IssueStamp(context.Background(), "0xabc", record, identity.StampOptions{})
	require.NoError(t, err)
	eip712Stamp, err := issuer.IssueStamp(context.Background(), "0xabc", record,
		identity.StampOptions{SignatureType: identity.SignatureEIP712})
	require.NoError(t, err)

	assert.Equal(t, ed25519Stamp.CredentialSubject.Hash, eip712Stamp.CredentialSubject.Hash,
		"the scheme changes the envelope, never the hash")
}

func TestIssueStampAbsoluteExpiration(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := identity.NewIssuer(&fakeSigner{}, "issuer-key", identity.WithClock(fixedClock(now)))
	require.NoError(t, err)

	at := now.Add(24 * time.Hour)
	credential, err := issuer.IssueStamp(context.Background(), "0xabc",
		map[string]string{"type": "Simple"},
		identity.StampOptions{Expiration: identity.Expiration{At: at}})
	require.NoError(t, err)

	assert.Equal(t, at, credential.ExpirationDate)
}

func TestIssueStampExpirationBothSuppliedFails(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := identity.NewIssuer(&fakeSigner{}, "issuer-key", identity.WithClock(fixedClock(now)))
	require.NoError(t, err)

	_, err = issuer.IssueStamp(context.Background(), "0xabc",
		map[string]string{"type": "Simple"},
		identity.StampOptions{Expiration: identity.Expiration{InSeconds: 3600, At: now.Add(time.Hour)}})

	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
}

func TestIssueStampExpirationNotAfterIssuanceFails(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	issuer, err := identity.NewIssuer(&fakeSigner{}, "issuer-key", identity.WithClock(fixedClock(now)))
	require.NoError(t, err)

	_, err = issuer.IssueStamp(context.Background(), "0xabc",
		map[string]string{"type": "Simple"},
		identity.StampOptions{Expiration: identity.Expiration{At: now.Add(-time.Minute)}})

	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
}

func TestIssueStampRequiresRecordType(t *testing.T) {
	issuer, err := identity.NewIssuer(&fakeSigner{}, "issuer-key")
	require.NoError(t, err)

	_, err = issuer.IssueStamp(context.Background(), "0xabc", map[string]string{"username": "alice"}, identity.StampOptions{})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestNewIssuerRequiresKeyAndSigner(t *testing.T) {
	_, err := identity.NewIssuer(nil, "issuer-key")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))

	_, err = identity.NewIssuer(&fakeSigner{}, "")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConfiguration))
}
