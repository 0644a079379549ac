// Package handlers provides HTTP handlers for the override and audit
// ledger.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/modules/ledger"
)

// Handler handles ledger HTTP requests
type Handler struct {
	service *ledger.Service
	log     zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(service *ledger.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "ledger").Logger(),
	}
}

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Post("/overrides", h.HandleApplyOverride)
		r.Post("/results/{id}/approve", h.HandleApprove)
		r.Get("/audit/{entityID}", h.HandleAuditTrail)
		r.Get("/holdings/{holdingID}/overrides", h.HandleOverridesForHolding)
	})
}

type overrideRequest struct {
	ResultID string  `json:"result_id"`
	NewValue float64 `json:"new_value"`
	Reason   string  `json:"reason"`
	Author   string  `json:"author"`
}

// HandleApplyOverride applies a manual override to a computed result
func (h *Handler) HandleApplyOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ResultID == "" || req.Author == "" {
		h.writeError(w, http.StatusBadRequest, "result_id and author are required")
		return
	}

	override, err := h.service.ApplyOverride(req.ResultID, req.NewValue, req.Reason, req.Author)
	if domain.IsStaleResult(err) {
		// The caller must re-fetch the latest result and retry.
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "result not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, override)
}

type approveRequest struct {
	Approver string `json:"approver"`
}

// HandleApprove transitions a result to approved
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Approver == "" {
		h.writeError(w, http.StatusBadRequest, "approver is required")
		return
	}

	result, err := h.service.Approve(chi.URLParam(r, "id"), req.Approver)
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "result not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleAuditTrail returns the journal for an entity
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	trail, err := h.service.GetAuditTrail(chi.URLParam(r, "entityID"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, trail)
}

// HandleOverridesForHolding returns every override across the
// holding's result history
func (h *Handler) HandleOverridesForHolding(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.service.OverridesForHolding(chi.URLParam(r, "holdingID"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if overrides == nil {
		overrides = []ledger.Override{}
	}
	h.writeJSON(w, http.StatusOK, overrides)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
