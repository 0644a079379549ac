// Package handlers provides HTTP handlers for purification
// computation and result queries.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/modules/purification"
)

// Handler handles purification HTTP requests
type Handler struct {
	service *purification.Service
	log     zerolog.Logger
}

// NewHandler creates a new purification handler
func NewHandler(service *purification.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "purification").Logger(),
	}
}

// RegisterRoutes registers all purification routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/purification", func(r chi.Router) {
		r.Post("/compute", h.HandleCompute)
		r.Get("/results/{holdingID}", h.HandleLatestResult)
		r.Get("/results/{holdingID}/history", h.HandleResultHistory)
	})
}

type computeRequest struct {
	HoldingID    string `json:"holding_id"`
	StandardCode string `json:"standard_code"`
	EvalDate     string `json:"eval_date,omitempty"` // RFC3339, defaults to now
}

// HandleCompute runs the purification calculator for one holding
func (h *Handler) HandleCompute(w http.ResponseWriter, r *http.Request) {
	var req computeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.HoldingID == "" || req.StandardCode == "" {
		h.writeError(w, http.StatusBadRequest, "holding_id and standard_code are required")
		return
	}

	evalDate := time.Now()
	if req.EvalDate != "" {
		ts, err := time.Parse(time.RFC3339, req.EvalDate)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "eval_date must be RFC3339")
			return
		}
		evalDate = ts
	}

	result, err := h.service.ComputeForHolding(r.Context(), req.HoldingID, req.StandardCode, evalDate)
	if domain.IsCalculationBlocked(err) {
		// The holding stays pending; the blocking reason is the payload.
		h.writeJSON(w, http.StatusConflict, map[string]string{
			"status": string(domain.ResultPending),
			"reason": err.Error(),
		})
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if domain.IsInvalidStandard(err) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

// HandleLatestResult returns the current result for a holding
func (h *Handler) HandleLatestResult(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.LatestResult(chi.URLParam(r, "holdingID"))
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "no purification result recorded")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleResultHistory returns every result generation for a holding
func (h *Handler) HandleResultHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.ResultHistory(chi.URLParam(r, "holdingID"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, history)
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
