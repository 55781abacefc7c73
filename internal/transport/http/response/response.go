package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dunya-jewellery/shop/internal/service/errs"
)

// Detail is the body of non-validation errors.
type Detail struct {
	Detail string `json:"detail"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Error sending response", "error", err)
	}
}

// BadRequest writes a field keyed validation error.
func BadRequest(w http.ResponseWriter, r *http.Request, fields map[string]string) {
	JSON(w, r, http.StatusBadRequest, fields)
}

// Error maps service errors to status codes. Unknown errors are logged and
// reported as 500 without details.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *errs.ValidationError
	switch {
	case errors.As(err, &vErr):
		BadRequest(w, r, vErr.Fields)
	case errors.Is(err, errs.ErrNotFound):
		JSON(w, r, http.StatusNotFound, Detail{Detail: "Not found."})
	case errors.Is(err, errs.ErrConflict):
		JSON(w, r, http.StatusConflict, Detail{Detail: "Order with this idempotency key already exists."})
	default:
		slog.ErrorContext(r.Context(), "Error handling request", "path", r.URL.Path, "error", err)
		JSON(w, r, http.StatusInternalServerError, Detail{Detail: "internal server error"})
	}
}
