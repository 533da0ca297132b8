package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"storefront/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// envelope mirrors model.Result with the payload left raw.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Code    string          `json:"code"`
}

// serve mounts h on pattern and sends one request through a chi router so
// URL parameters resolve as they do in production.
func serve(t *testing.T, method, pattern string, h http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var raw []byte
	switch b := body.(type) {
	case nil:
	case string:
		raw = []byte(b)
	default:
		var err error
		raw, err = json.Marshal(b)
		require.NoError(t, err)
	}

	r := chi.NewRouter()
	r.Method(method, pattern, h)

	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedCode   string
		expectedMsg    string
	}{
		{"validation", model.ErrInvalidQuantity, http.StatusBadRequest, model.ErrCodeInvalidQuantity, "Quantity must be greater than zero"},
		{"missing field", model.MissingField("paymentMethod"), http.StatusBadRequest, model.ErrCodeMissingCheckout, "paymentMethod is required"},
		{"not found", model.ErrOrderNotFound, http.StatusNotFound, model.ErrCodeOrderNotFound, "Order not found"},
		{"conflict", model.ErrInsufficientStock, http.StatusConflict, model.ErrCodeInsufficientStock, "Not enough stock to complete the order"},
		{"wrapped domain error", fmt.Errorf("checkout: %w", model.ErrCouponExpired), http.StatusBadRequest, model.ErrCodeCouponExpired, "Discount code has expired"},
		{"internal", errors.New("pq: connection reset"), http.StatusInternalServerError, model.ErrCodeInternalError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			writeError(w, tt.err, zerolog.Nop())

			assert.Equal(t, tt.expectedStatus, w.Code)
			env := decodeEnvelope(t, w)
			assert.False(t, env.Success)
			assert.Equal(t, tt.expectedCode, env.Code)
			assert.Equal(t, tt.expectedMsg, env.Error)
		})
	}
}

func TestWriteOK(t *testing.T) {
	w := httptest.NewRecorder()
	writeOK(w, http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)
	assert.JSONEq(t, `{"n":1}`, string(env.Data))
	assert.Empty(t, env.Code)
}
