// Package handler exposes the challenge and verify endpoints.
package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"stampd/internal/identity"
	"stampd/internal/verification"
	dErrors "stampd/pkg/domain-errors"
	"stampd/pkg/platform/httputil"
	"stampd/pkg/requestcontext"

	"github.com/go-chi/chi/v5"
)

// Handler serves the verification API.
type Handler struct {
	service *verification.Service
	logger  *slog.Logger
}

// New builds a Handler.
func New(service *verification.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the routes. The version path segment is carried through to
// credential payloads but does not select behavior yet.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v{version}/challenge", h.challenge)
	r.Post("/v{version}/verify", h.verify)
}

type challengeRequest struct {
	Payload identity.RequestPayload `json:"payload"`
}

// Normalize implements httputil.Normalizable.
func (req *challengeRequest) Normalize() {
	req.Payload.Address = strings.TrimSpace(req.Payload.Address)
	req.Payload.Type = strings.TrimSpace(req.Payload.Type)
}

// Validate implements httputil.Validatable.
func (req *challengeRequest) Validate() error {
	if req.Payload.Address == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "payload.address is required")
	}
	if req.Payload.Type == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "payload.type is required")
	}
	return nil
}

func (h *Handler) challenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[challengeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req.Payload.Version = chi.URLParam(r, "version")

	credential, err := h.service.Challenge(ctx, req.Payload)
	if err != nil {
		h.logger.WarnContext(ctx, "challenge issuance rejected",
			"type", req.Payload.Type,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, identity.ChallengeResponse{Credential: credential})
}

type verifyRequest struct {
	Payload   identity.RequestPayload `json:"payload"`
	Challenge *identity.Credential    `json:"challenge"`
}

// Normalize implements httputil.Normalizable.
func (req *verifyRequest) Normalize() {
	req.Payload.Address = strings.TrimSpace(req.Payload.Address)
	req.Payload.Type = strings.TrimSpace(req.Payload.Type)
	for i, typ := range req.Payload.Types {
		req.Payload.Types[i] = strings.TrimSpace(typ)
	}
}

// Validate implements httputil.Validatable.
func (req *verifyRequest) Validate() error {
	if req.Payload.Address == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "payload.address is required")
	}
	if req.Payload.Type == "" && len(req.Payload.Types) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "payload.type or payload.types is required")
	}
	for _, typ := range req.Payload.Types {
		if typ == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "payload.types must not contain empty entries")
		}
	}
	if req.Challenge == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "challenge credential is required")
	}
	return nil
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[verifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req.Payload.Version = chi.URLParam(r, "version")

	responses, single, err := h.service.Verify(ctx, req.Payload, req.Challenge)
	if err != nil {
		h.logger.WarnContext(ctx, "verification rejected",
			"type", req.Payload.Type,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	if single {
		httputil.WriteJSON(w, http.StatusOK, responses[0])
		return
	}
	httputil.WriteJSON(w, http.StatusOK, responses)
}
