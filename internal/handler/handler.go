package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"storefront/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeOK wraps data in a successful envelope.
func writeOK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, model.Ok(data))
}

// writeFail writes a failed envelope.
func writeFail(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, model.Fail(code, message))
}

// writeError translates a service error into an envelope. Domain errors carry
// their own caller-facing message; anything else is reported as internal.
func writeError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	if de, ok := model.AsDomainError(err); ok {
		status := statusFor(de.Kind)
		logger.Debug().Str("code", de.Code).Int("status", status).Msg("request rejected")
		writeFail(w, status, de.Code, de.Message)
		return
	}

	logger.Error().Err(err).Int("status", http.StatusInternalServerError).Msg("handler error")
	writeFail(w, http.StatusInternalServerError, model.ErrCodeInternalError, "internal error")
}

func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// decodeJSON decodes the request body into v. On failure the response has
// already been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeFail(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body")
		return false
	}
	return true
}

// pathUUID parses the named URL parameter as a UUID.
func pathUUID(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeFail(w, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid "+label+" ID format")
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeFail(w, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid "+name+" parameter")
		return 0, false
	}
	return n, true
}
