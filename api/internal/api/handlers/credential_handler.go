package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/taskpilot/taskpilot/api/internal/core/domain"
	"github.com/taskpilot/taskpilot/api/internal/core/services"
)

// ==============================================================================
// 1. Request Payloads (Input Validation)
// ==============================================================================

type SaveCredentialRequest struct {
	// An empty value clears the stored credential.
	Value string `json:"value" validate:"max=4096"`
}

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

type CredentialHandler struct {
	Service *services.CredentialService
}

func NewCredentialHandler(service *services.CredentialService) *CredentialHandler {
	return &CredentialHandler{
		Service: service,
	}
}

// ==============================================================================
// 3. HTTP Methods
// ==============================================================================

// List handles GET /api/v1/credentials
func (h *CredentialHandler) List(w http.ResponseWriter, r *http.Request) {
	userClaims, ok := domain.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Unauthorized"})
		return
	}

	views, err := h.Service.List(r.Context(), userClaims.Subject)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, views)
}

// Get handles GET /api/v1/credentials/{provider}
func (h *CredentialHandler) Get(w http.ResponseWriter, r *http.Request) {
	userClaims, ok := domain.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Unauthorized"})
		return
	}

	view, err := h.Service.View(r.Context(), userClaims.Subject, providerParam(r))
	if err != nil {
		HandleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Put handles PUT /api/v1/credentials/{provider}
func (h *CredentialHandler) Put(w http.ResponseWriter, r *http.Request) {
	userClaims, ok := domain.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Unauthorized"})
		return
	}

	var req SaveCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid JSON payload"})
		return
	}

	if err := validate.Struct(req); err != nil {
		HandleError(w, r, err)
		return
	}

	view, err := h.Service.Save(r.Context(), userClaims.Subject, providerParam(r), req.Value)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// Delete handles DELETE /api/v1/credentials/{provider}
func (h *CredentialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userClaims, ok := domain.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Unauthorized"})
		return
	}

	if err := h.Service.Delete(r.Context(), userClaims.Subject, providerParam(r)); err != nil {
		HandleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Activity handles GET /api/v1/credentials/activity?limit=N
func (h *CredentialHandler) Activity(w http.ResponseWriter, r *http.Request) {
	userClaims, ok := domain.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Unauthorized"})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Invalid limit"})
			return
		}
		limit = n
	}

	events, err := h.Service.Activity(r.Context(), userClaims.Subject, limit)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, events)
}

func providerParam(r *http.Request) domain.Provider {
	return domain.Provider(chi.URLParam(r, "provider"))
}
