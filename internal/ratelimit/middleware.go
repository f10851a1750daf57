package ratelimit

import (
	"context"
	"log/slog"
	"net/http"

	dErrors "stampd/pkg/domain-errors"
	"stampd/pkg/platform/audit"
	"stampd/pkg/platform/httputil"
	"stampd/pkg/requestcontext"
)

// Auditor records limit decisions in the audit trail.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

type middlewareConfig struct {
	auditor Auditor
}

// MiddlewareOption configures the middleware.
type MiddlewareOption func(*middlewareConfig)

// WithAuditor emits an audit event for every rejected request.
func WithAuditor(auditor Auditor) MiddlewareOption {
	return func(c *middlewareConfig) { c.auditor = auditor }
}

// Middleware limits requests per client IP. A store failure fails open: the
// limiter protects capacity, it is not a security boundary.
func Middleware(limiter *Limiter, logger *slog.Logger, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	var cfg middlewareConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := requestcontext.ClientIP(r.Context())
			if key == "" {
				key = r.RemoteAddr
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.WarnContext(r.Context(), "rate limit store unavailable, failing open",
					"error", err,
				)
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if cfg.auditor != nil {
					// The client key is hashed like an address so raw IPs
					// stay out of the trail.
					event := audit.Event{
						Action:      audit.ActionRateLimited,
						AddressHash: audit.HashAddress(key),
						Decision:    audit.DecisionRejected,
						Reason:      "request rate over the window limit",
						RequestID:   requestcontext.RequestID(r.Context()),
						ClientUA:    requestcontext.UserAgent(r.Context()),
					}
					if emitErr := cfg.auditor.Emit(r.Context(), event); emitErr != nil {
						logger.WarnContext(r.Context(), "rate limit audit emit failed",
							"error", emitErr,
						)
					}
				}
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "too many requests"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
