// Package handler holds the shared HTTP response helpers. Sub-packages
// (storefront, admin, webhook) hold the actual endpoints.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/verdantmarket/verdant/internal/domain"
)

// ErrorCodeToHTTPStatus maps a domain error code to an HTTP status code.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse writes a domain error as a JSON error envelope:
//
//	{"error": {"code": "conflict", "message": "Insufficient stock"}}
//
// Internal errors are logged with their operation chain and masked with a
// generic message; everything else passes the domain message through.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	message := domain.ErrorMessage(err)

	if code == domain.EINTERNAL {
		slog.ErrorContext(r.Context(), "internal error",
			"op", domain.ErrorOp(err), "error", err,
			"method", r.Method, "path", r.URL.Path)
		message = "An internal error has occurred."
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ErrorCodeToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// NoContent writes an empty 204 response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Decode reads a JSON request body into v, rejecting unknown fields.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.Invalid("request.decode", "invalid request body")
	}
	return nil
}
