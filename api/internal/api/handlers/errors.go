package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/taskpilot/taskpilot/api/internal/core/domain"
)

// Use a single instance of Validate, it caches struct info
var validate = validator.New()

type errorResponse struct {
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// HandleError maps domain and validation errors to HTTP semantics. Anything
// unrecognised is logged with the request id and returned as a generic 500.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		fields := make([]string, 0, len(validationErrs))
		for _, fe := range validationErrs {
			fields = append(fields, fe.Field()+":"+fe.Tag())
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Validation failed", Fields: fields})

	case errors.Is(err, domain.ErrInvalidProvider):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})

	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "Not found"})

	case errors.Is(err, domain.ErrConcurrencyConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Message: "Conflict: the credential was modified concurrently, please retry"})

	case errors.Is(err, domain.ErrCredentialUnreadable):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Message: domain.ErrCredentialUnreadable.Error()})

	default:
		slog.Error("Unhandled request error",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
