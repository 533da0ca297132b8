package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/rs/zerolog"
)

// ReturnHandler handles return requests of delivered orders.
type ReturnHandler struct {
	service service.ReturnService
	logger  zerolog.Logger
}

// NewReturnHandler creates a new return handler.
func NewReturnHandler(service service.ReturnService, logger zerolog.Logger) *ReturnHandler {
	return &ReturnHandler{
		service: service,
		logger:  logger.With().Str("handler", "return").Logger(),
	}
}

// Request handles POST /api/orders/{id}/returns requests.
func (h *ReturnHandler) Request(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathUUID(w, r, "id", "order")
	if !ok {
		return
	}

	var in model.ReturnRequestInput
	if !decodeJSON(w, r, &in) {
		return
	}

	rr, err := h.service.RequestReturn(r.Context(), orderID, &in)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeOK(w, http.StatusCreated, rr)
}

// GetByID handles GET /api/returns/{id} requests.
func (h *ReturnHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "return")
	if !ok {
		return
	}

	rr, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeOK(w, http.StatusOK, rr)
}

// Decide handles PATCH /api/returns/{id} requests.
func (h *ReturnHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "return")
	if !ok {
		return
	}

	var d model.ReturnDecision
	if !decodeJSON(w, r, &d) {
		return
	}

	rr, err := h.service.Decide(r.Context(), id, &d)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeOK(w, http.StatusOK, rr)
}
