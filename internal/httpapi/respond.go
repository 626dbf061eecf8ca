package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/text/message"

	"github.com/spbe-academy/devops-academy/internal/platform/apperr"
	"github.com/spbe-academy/devops-academy/internal/platform/i18n"
)

const maxBodyBytes = 1 << 20

type successBody struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type failureBody struct {
	Success bool      `json:"success"`
	Error   errorBody `json:"error"`
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", "error", err)
	}
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successBody{Success: true, Data: data})
}

// respondError maps err onto a status code and a localized message. Errors
// outside the apperr taxonomy are logged and shown as a generic message.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	p := printerFor(r)
	body := errorBody{Message: i18n.ErrorMessage(p, err)}

	var (
		status int
		ve     *apperr.ValidationError
	)
	switch {
	case errors.As(err, &ve):
		status, body.Code, body.Fields = http.StatusBadRequest, "validation_failed", ve.Fields
	case apperr.IsNotEligible(err):
		status, body.Code = http.StatusUnprocessableEntity, "not_eligible"
	case errors.Is(err, apperr.ErrNotAuthenticated):
		status, body.Code = http.StatusUnauthorized, "not_authenticated"
	case errors.Is(err, apperr.ErrInvalidCredentials):
		status, body.Code = http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, apperr.ErrConflict):
		status, body.Code = http.StatusConflict, "conflict"
	case errors.Is(err, apperr.ErrUnsupported):
		status, body.Code = http.StatusNotImplemented, "unsupported"
	case errors.Is(err, apperr.ErrNotFound):
		status, body.Code = http.StatusNotFound, "not_found"
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		status, body.Code = http.StatusInternalServerError, "internal"
	}
	writeJSON(w, status, failureBody{Error: body})
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperr.NewValidation("body", "invalid json")
	}
	return nil
}

// printerFor picks the message language from the first Accept-Language tag.
func printerFor(r *http.Request) *message.Printer {
	tag := r.Header.Get("Accept-Language")
	if i := strings.IndexAny(tag, ",;"); i >= 0 {
		tag = tag[:i]
	}
	return i18n.NewPrinter(strings.TrimSpace(tag))
}

// bearerToken extracts the session token from the Authorization header, or
// from the token query parameter for websocket clients.
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
