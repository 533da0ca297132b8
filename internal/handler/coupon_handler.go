package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// CouponHandler handles discount code requests.
type CouponHandler struct {
	service service.CouponService
	logger  zerolog.Logger
}

// NewCouponHandler creates a new coupon handler.
func NewCouponHandler(service service.CouponService, logger zerolog.Logger) *CouponHandler {
	return &CouponHandler{
		service: service,
		logger:  logger.With().Str("handler", "coupon").Logger(),
	}
}

// Validate handles POST /api/coupons/validate requests.
func (h *CouponHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req model.ValidateCouponRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	quote, err := h.service.Quote(r.Context(), &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeOK(w, http.StatusOK, quote)
}

// Get handles GET /api/coupons/{code} requests.
func (h *CouponHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.service.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeOK(w, http.StatusOK, c)
}
