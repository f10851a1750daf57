package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	dErrors "stampd/pkg/domain-errors"
)

// TypedDataProofType is the proof suite requested for EIP712 issuance.
const TypedDataProofType = "EthereumEip712Signature2021"

// Default credential lifetimes.
const (
	DefaultChallengeTTL = 60 * time.Second
	DefaultStampTTL     = 90 * 24 * time.Hour
)

// Expiration selects a credential lifetime. Exactly one of InSeconds or At
// must be set; anything else is a configuration error.
type Expiration struct {
	InSeconds int64
	At        time.Time
}

func (e Expiration) resolve(now time.Time) (time.Time, error) {
	hasRelative := e.InSeconds != 0
	hasAbsolute := !e.At.IsZero()

	switch {
	case hasRelative && hasAbsolute:
		return time.Time{}, dErrors.New(dErrors.CodeConfiguration, "expiration: both relative and absolute supplied")
	case hasRelative:
		if e.InSeconds < 0 {
			return time.Time{}, dErrors.New(dErrors.CodeConfiguration, "expiration: negative relative duration")
		}
		return now.Add(time.Duration(e.InSeconds) * time.Second), nil
	case hasAbsolute:
		if !e.At.After(now) {
			return time.Time{}, dErrors.New(dErrors.CodeConfiguration, "expiration: absolute time not after issuance")
		}
		return e.At, nil
	default:
		return time.Time{}, dErrors.New(dErrors.CodeConfiguration, "expiration: neither relative nor absolute supplied")
	}
}

// StampOptions tune a single stamp issuance. The zero value means the default
// lifetime, Ed25519 scheme, and no metadata pointer.
type StampOptions struct {
	Expiration    Expiration
	SignatureType string
	MetaPointer   string
}

// Issuer mints challenge and stamp credentials through a signing backend.
type Issuer struct {
	signer       Signer
	key          string
	challengeTTL time.Duration
	stampTTL     time.Duration
	now          func() time.Time
}

// IssuerOption customizes an Issuer.
type IssuerOption func(*Issuer)

// WithChallengeTTL overrides the challenge credential lifetime.
func WithChallengeTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) { i.challengeTTL = ttl }
}

// WithStampTTL overrides the default stamp credential lifetime.
func WithStampTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) { i.stampTTL = ttl }
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) { i.now = now }
}

// NewIssuer builds an Issuer around the signing backend and issuer key.
func NewIssuer(signer Signer, key string, opts ...IssuerOption) (*Issuer, error) {
	if signer == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "issuer: signing backend is required")
	}
	if key == "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, "issuer: key is required")
	}

	i := &Issuer{
		signer:       signer,
		key:          key,
		challengeTTL: DefaultChallengeTTL,
		stampTTL:     DefaultStampTTL,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// IssueChallenge mints a short-lived challenge credential binding a fresh
// nonce to the requesting address and provider type. The address keeps the
// caller's casing so wallets can sign exactly what they were shown.
func (i *Issuer) IssueChallenge(ctx context.Context, payload RequestPayload) (*Credential, error) {
	if payload.Address == "" || payload.Type == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "challenge requires address and type")
	}

	nonce, err := challengeNonce(payload)
	if err != nil {
		return nil, err
	}

	subject := CredentialSubject{
		Context: map[string]string{
			"provider":  schemaText,
			"challenge": schemaText,
			"address":   schemaText,
		},
		ID:        PKHDID(payload.Address),
		Provider:  "challenge-" + payload.Type,
		Challenge: nonce,
		Address:   payload.Address,
	}

	return i.issue(ctx, subject, Expiration{InSeconds: int64(i.challengeTTL / time.Second)}, payload.SignatureType, nil)
}

// IssueStamp mints a long-lived stamp credential over a verified record. The
// record itself never appears in the credential, only its salted hash.
func (i *Issuer) IssueStamp(ctx context.Context, address string, record map[string]string, opts StampOptions) (*Credential, error) {
	if address == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "stamp requires an address")
	}
	provider := record["type"]
	if provider == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "stamp record requires a type")
	}

	expiration := opts.Expiration
	if expiration.InSeconds == 0 && expiration.At.IsZero() {
		expiration = Expiration{InSeconds: int64(i.stampTTL / time.Second)}
	}

	hash := VersionedHash(i.key, record)

	subject := CredentialSubject{
		ID:          PKHDID(address),
		Provider:    provider,
		Hash:        hash,
		MetaPointer: opts.MetaPointer,
	}

	var extraContexts []string
	switch opts.SignatureType {
	case SignatureEIP712:
		subject.Context = map[string]string{
			"customInfo":  schemaThing,
			"hash":        schemaText,
			"metaPointer": schemaURL,
			"provider":    schemaText,
		}
		subject.CustomInfo = map[string]string{}
		extraContexts = []string{StatusListContext}
	default:
		subject.Context = []map[string]string{{
			"hash":     schemaText,
			"provider": schemaText,
		}}
	}

	return i.issue(ctx, subject, expiration, opts.SignatureType, extraContexts)
}

// issue assembles the envelope for the selected scheme and hands it to the
// signing backend.
func (i *Issuer) issue(ctx context.Context, subject CredentialSubject, expiration Expiration, signatureType string, extraContexts []string) (*Credential, error) {
	now := i.now().UTC().Truncate(time.Second)

	expiresAt, err := expiration.resolve(now)
	if err != nil {
		return nil, err
	}

	method := DIDMethodKey
	if signatureType == SignatureEIP712 {
		method = DIDMethodEthr
	}

	issuer, err := i.signer.KeyToDID(method, i.key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSigning, "deriving issuer DID")
	}

	options := ProofOptions{ProofPurpose: ProofPurposeAssertion}
	if signatureType == SignatureEIP712 {
		verificationMethod, err := i.signer.KeyToVerificationMethod(ctx, method, i.key)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeSigning, "resolving verification method")
		}
		options.VerificationMethod = verificationMethod
		options.Type = TypedDataProofType
	}

	credential := &Credential{
		Context:           append([]string{CredentialsContext}, extraContexts...),
		Type:              []string{"VerifiableCredential"},
		Issuer:            issuer,
		IssuanceDate:      now,
		ExpirationDate:    expiresAt.UTC().Truncate(time.Second),
		CredentialSubject: subject,
	}

	signed, err := i.signer.IssueCredential(ctx, credential, options, i.key)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeSigning, "signing credential")
	}
	return signed, nil
}

// challengeNonce builds an unpredictable, request-bound challenge string.
func challengeNonce(payload RequestPayload) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "generating challenge nonce")
	}

	parts := []string{payload.Type, payload.Address}
	if payload.Signer != "" {
		parts = append(parts, payload.Signer)
	}
	parts = append(parts, hex.EncodeToString(buf))

	return fmt.Sprintf("sign this to prove ownership: %s", strings.Join(parts, ":")), nil
}
