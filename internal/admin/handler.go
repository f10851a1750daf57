// Package admin serves the operator surface: provider inventory and the fee
// price cache. All routes sit behind the ops token middleware.
package admin

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"stampd/internal/fees"
	"stampd/internal/providers"
	dErrors "stampd/pkg/domain-errors"
	"stampd/pkg/platform/httputil"

	"github.com/go-chi/chi/v5"
)

// Handler serves the admin API.
type Handler struct {
	registry *providers.Registry
	prices   *fees.PriceLoader
	logger   *slog.Logger
}

// New builds a Handler.
func New(registry *providers.Registry, prices *fees.PriceLoader, logger *slog.Logger) *Handler {
	return &Handler{registry: registry, prices: prices, logger: logger}
}

// Register mounts the routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/providers", h.listProviders)
	r.Get("/eth-price", h.ethPrice)
	r.Post("/eth-price/refresh", h.refreshPrice)
	r.Get("/fees/quote", h.feeQuote)
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"providers": h.registry.Types(),
	})
}

type priceResponse struct {
	PriceUSD  float64   `json:"price_usd"`
	FetchedAt time.Time `json:"fetched_at"`
}

func (h *Handler) ethPrice(w http.ResponseWriter, r *http.Request) {
	price, fetchedAt, ok := h.prices.Cached()
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "no price cached yet"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, priceResponse{PriceUSD: price, FetchedAt: fetchedAt})
}

func (h *Handler) refreshPrice(w http.ResponseWriter, r *http.Request) {
	price, err := h.prices.Refresh(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "manual price refresh failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, priceResponse{PriceUSD: price, FetchedAt: time.Now()})
}

func (h *Handler) feeQuote(w http.ResponseWriter, r *http.Request) {
	usd, err := strconv.ParseFloat(r.URL.Query().Get("usd"), 64)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "usd query parameter is required"))
		return
	}

	wei, err := h.prices.WeiAmount(r.Context(), usd)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"usd": strconv.FormatFloat(usd, 'f', -1, 64),
		"wei": wei.String(),
	})
}
