package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CartHandler handles stock holds of shopping carts.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// availability is the body of GET /api/carts/{cartID}/available.
type availability struct {
	CartID    string `json:"cartId"`
	ProductID string `json:"productId"`
	VariantID string `json:"variantId,omitempty"`
	Available int    `json:"available"`
}

// SetLine handles POST /api/carts/{cartID}/lines requests.
func (h *CartHandler) SetLine(w http.ResponseWriter, r *http.Request) {
	var line model.OrderItemRequest
	if !decodeJSON(w, r, &line) {
		return
	}

	res, err := h.service.SetLine(r.Context(), chi.URLParam(r, "cartID"), line)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeOK(w, http.StatusOK, res)
}

// Available handles GET /api/carts/{cartID}/available requests.
func (h *CartHandler) Available(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	key := model.StockKey{
		ProductID: r.URL.Query().Get("productId"),
		VariantID: r.URL.Query().Get("variantId"),
	}

	n, err := h.service.Available(r.Context(), cartID, key)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeOK(w, http.StatusOK, availability{
		CartID:    cartID,
		ProductID: key.ProductID,
		VariantID: key.VariantID,
		Available: n,
	})
}

// Clear handles DELETE /api/carts/{cartID} requests.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	n := h.service.Clear(cartID)

	writeOK(w, http.StatusOK, map[string]any{"cartId": cartID, "released": n})
}
