// Package verification orchestrates the challenge/verify flow: challenge
// issuance, challenge validation, provider dispatch, and stamp issuance.
package verification

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"stampd/internal/identity"
	"stampd/internal/providers"
	"stampd/internal/verification/metrics"
	dErrors "stampd/pkg/domain-errors"
	"stampd/pkg/platform/audit"
	"stampd/pkg/platform/audit/publisher"
	"stampd/pkg/requestcontext"
)

// SignatureVerifier checks that a signature over the challenge message was
// produced by the wallet at address.
type SignatureVerifier interface {
	VerifySignature(ctx context.Context, address, message, signature string) (bool, error)
}

// Service wires the credential core to the provider registry.
type Service struct {
	issuer        *identity.Issuer
	verifier      *identity.Verifier
	registry      *providers.Registry
	sigVerifier   SignatureVerifier
	auditor       *publisher.Publisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
	defaultScheme string
}

// Option customizes a Service.
type Option func(*Service)

// WithAuditor attaches an audit publisher.
func WithAuditor(auditor *publisher.Publisher) Option {
	return func(s *Service) { s.auditor = auditor }
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithDefaultSignatureType sets the credential scheme used for payloads that
// do not name one.
func WithDefaultSignatureType(signatureType string) Option {
	return func(s *Service) { s.defaultScheme = signatureType }
}

// NewService builds a Service.
func NewService(issuer *identity.Issuer, verifier *identity.Verifier, registry *providers.Registry, sigVerifier SignatureVerifier, opts ...Option) *Service {
	s := &Service{
		issuer:      issuer,
		verifier:    verifier,
		registry:    registry,
		sigVerifier: sigVerifier,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Challenge issues a challenge credential for the payload.
func (s *Service) Challenge(ctx context.Context, payload identity.RequestPayload) (*identity.Credential, error) {
	s.applyDefaultScheme(&payload)

	credential, err := s.issuer.IssueChallenge(ctx, payload)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.ChallengesIssued.Inc()
	}
	s.emit(ctx, audit.Event{
		Action:        audit.ActionChallengeIssued,
		Provider:      payload.Type,
		AddressHash:   audit.HashAddress(payload.Address),
		SignatureType: payload.SignatureType,
		Decision:      audit.DecisionIssued,
	})

	return credential, nil
}

// Verify validates the presented challenge, checks address control, runs the
// requested providers, and issues one stamp per approving provider. The
// returned slice has one entry per requested type in request order; single
// reports whether the caller asked for exactly one type without the batch
// form.
func (s *Service) Verify(ctx context.Context, payload identity.RequestPayload, challenge *identity.Credential) (responses []identity.CredentialResponse, single bool, err error) {
	if s.metrics != nil {
		start := time.Now()
		defer func() { s.metrics.VerifyDuration.Observe(time.Since(start).Seconds()) }()
	}

	s.applyDefaultScheme(&payload)

	single = len(payload.Types) == 0
	types := payload.Types
	if single {
		types = []string{payload.Type}
	}

	if err := s.checkChallenge(ctx, payload, challenge); err != nil {
		s.emit(ctx, audit.Event{
			Action:        audit.ActionVerificationFailed,
			Provider:      payload.Type,
			AddressHash:   audit.HashAddress(payload.Address),
			SignatureType: payload.SignatureType,
			Decision:      audit.DecisionRejected,
			Reason:        err.Error(),
		})
		return nil, single, err
	}

	address := strings.ToLower(payload.Address)
	results := s.registry.VerifyAll(ctx, types, payload)

	responses = make([]identity.CredentialResponse, 0, len(results))
	for _, result := range results {
		responses = append(responses, s.settle(ctx, address, payload, result))
	}
	return responses, single, nil
}

// applyDefaultScheme fills in the configured scheme when the caller omitted
// one. An explicit payload value always wins.
func (s *Service) applyDefaultScheme(payload *identity.RequestPayload) {
	if payload.SignatureType == "" {
		payload.SignatureType = s.defaultScheme
	}
}

// checkChallenge enforces the replay protections: a live, correctly bound
// challenge credential plus a wallet signature over its message.
func (s *Service) checkChallenge(ctx context.Context, payload identity.RequestPayload, challenge *identity.Credential) error {
	if challenge == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "challenge credential is required")
	}
	if !s.verifier.Verify(ctx, challenge) {
		return dErrors.New(dErrors.CodeUnauthorized, "challenge credential is not valid")
	}

	subject := challenge.CredentialSubject
	if !strings.EqualFold(subject.Address, payload.Address) {
		return dErrors.New(dErrors.CodeUnauthorized, "challenge was issued for a different address")
	}
	if subject.Provider != "challenge-"+payload.Type {
		return dErrors.New(dErrors.CodeUnauthorized, "challenge was issued for a different provider type")
	}

	signature := payload.Proofs["signature"]
	if signature == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "missing challenge signature")
	}

	controlled, err := s.sigVerifier.VerifySignature(ctx, payload.Address, subject.Challenge, signature)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "checking challenge signature")
	}
	if !controlled {
		return dErrors.New(dErrors.CodeUnauthorized, "signature does not match the challenged address")
	}
	return nil
}

// settle converts one provider verdict into a response entry, issuing a
// stamp for approvals.
func (s *Service) settle(ctx context.Context, address string, payload identity.RequestPayload, result providers.Result) identity.CredentialResponse {
	if !result.Payload.Valid {
		reason := "unable to verify provider"
		if len(result.Payload.Errors) > 0 {
			reason = strings.Join(result.Payload.Errors, "; ")
		}

		if s.metrics != nil {
			s.metrics.VerificationsFailed.WithLabelValues(result.Type).Inc()
		}
		s.emit(ctx, audit.Event{
			Action:        audit.ActionVerificationFailed,
			Provider:      result.Type,
			AddressHash:   audit.HashAddress(address),
			SignatureType: payload.SignatureType,
			Decision:      audit.DecisionRejected,
			Reason:        reason,
		})
		return identity.CredentialResponse{Error: reason}
	}

	// The stamped record is the provider type plus every non-empty disclosed
	// value. Empty values carry no claim and would only dilute the hash.
	record := map[string]string{"type": result.Type}
	for k, v := range result.Payload.Record {
		if v != "" {
			record[k] = v
		}
	}

	stamp, err := s.issuer.IssueStamp(ctx, address, record, identity.StampOptions{
		SignatureType: payload.SignatureType,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "stamp issuance failed",
			"provider", result.Type,
			"error", err,
		)
		return identity.CredentialResponse{Error: "unable to issue credential"}
	}

	if s.metrics != nil {
		s.metrics.StampsIssued.WithLabelValues(result.Type).Inc()
	}
	s.emit(ctx, audit.Event{
		Action:        audit.ActionStampIssued,
		Provider:      result.Type,
		AddressHash:   audit.HashAddress(address),
		SignatureType: payload.SignatureType,
		Decision:      audit.DecisionIssued,
	})

	return identity.CredentialResponse{Record: record, Credential: stamp}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientUA = requestcontext.UserAgent(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", event.Action,
			"error", err,
		)
	}
}
