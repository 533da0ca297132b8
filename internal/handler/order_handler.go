package handler

import (
	"net/http"

	"storefront/internal/model"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.OrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	order, err := h.service.CreateOrder(r.Context(), &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeOK(w, http.StatusCreated, order)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "order")
	if !ok {
		return
	}

	order, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeOK(w, http.StatusOK, order)
}

// ListByUser handles GET /api/users/{userID}/orders requests with pagination.
func (h *OrderHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}

	orders, err := h.service.ListByUser(r.Context(), chi.URLParam(r, "userID"), limit, offset)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}

	writeOK(w, http.StatusOK, orders)
}

// Update handles PATCH /api/orders/{id} requests.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "order")
	if !ok {
		return
	}

	var patch model.OrderPatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	order, err := h.service.UpdateOrder(r.Context(), id, &patch)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeOK(w, http.StatusOK, order)
}

// Delete handles DELETE /api/orders/{id} requests.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "order")
	if !ok {
		return
	}

	if err := h.service.DeleteOrder(r.Context(), id); err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeOK(w, http.StatusOK, map[string]string{"id": id.String()})
}
