package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"stampd/internal/identity"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "stampd/providers"

// Registry holds the known providers and dispatches verification requests by
// type string. One provider failing, erroring, or panicking never affects the
// verdicts of the others.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	logger    *slog.Logger
	tracer    trace.Tracer
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry builds an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a provider. Registering two providers with the same type
// string is a wiring bug and fails loudly.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[p.Type()]; exists {
		return fmt.Errorf("provider %q already registered", p.Type())
	}
	r.providers[p.Type()] = p
	return nil
}

// Types lists the registered provider types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.providers))
	for t := range r.providers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Result pairs a provider type with its verdict.
type Result struct {
	Type    string
	Payload VerifiedPayload
}

// VerifyAll evaluates the payload against each requested type concurrently.
// All providers for one request share a single Context so duplicate external
// lookups collapse into one. The subject address is lowercased before
// dispatch so providers see a canonical form.
func (r *Registry) VerifyAll(ctx context.Context, types []string, payload identity.RequestPayload) []Result {
	payload.Address = strings.ToLower(payload.Address)

	pctx := NewContext()
	results := make([]Result, len(types))

	g, gctx := errgroup.WithContext(ctx)
	for idx, typ := range types {
		g.Go(func() error {
			results[idx] = Result{Type: typ, Payload: r.verifyOne(gctx, typ, payload, pctx)}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Verify evaluates the payload against a single provider type.
func (r *Registry) Verify(ctx context.Context, typ string, payload identity.RequestPayload, pctx *Context) VerifiedPayload {
	payload.Address = strings.ToLower(payload.Address)
	if pctx == nil {
		pctx = NewContext()
	}
	return r.verifyOne(ctx, typ, payload, pctx)
}

func (r *Registry) verifyOne(ctx context.Context, typ string, payload identity.RequestPayload, pctx *Context) (verdict VerifiedPayload) {
	ctx, span := r.tracer.Start(ctx, "provider.verify",
		trace.WithAttributes(attribute.String("provider.type", typ)))
	defer span.End()

	r.mu.RLock()
	provider, ok := r.providers[typ]
	r.mu.RUnlock()
	if !ok {
		span.SetAttributes(attribute.Bool("provider.unknown", true))
		return VerifiedPayload{Valid: false, Errors: []string{fmt.Sprintf("missing provider %q", typ)}}
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "provider panicked",
				"provider", typ,
				"panic", rec,
			)
			verdict = VerifiedPayload{Valid: false, Errors: []string{fmt.Sprintf("provider %q failed unexpectedly", typ)}}
		}
	}()

	result, err := provider.Verify(ctx, payload, pctx)
	if err != nil {
		r.logger.WarnContext(ctx, "provider verification errored",
			"provider", typ,
			"error", err,
		)
		span.SetAttributes(attribute.Bool("provider.error", true))
		return VerifiedPayload{Valid: false, Errors: []string{err.Error()}}
	}

	span.SetAttributes(attribute.Bool("provider.valid", result.Valid))
	return result
}
