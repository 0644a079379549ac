// Package handlers provides HTTP handlers for compliance screening:
// facts ingestion, evaluation runs, verdicts, and trigger review.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/modules/screening"
	"github.com/amanahlabs/tazkiyah/internal/modules/standards"
	"github.com/amanahlabs/tazkiyah/internal/work"
)

// StandardsLookup resolves the latest version of a standard
type StandardsLookup interface {
	Latest(code string) (*standards.Standard, error)
}

// BatchEvaluator fans one evaluation out across the active universe
type BatchEvaluator interface {
	Run(ctx context.Context, std *standards.Standard) (*work.BatchReport, error)
}

// Handler handles screening HTTP requests
type Handler struct {
	service   *screening.Service
	standards StandardsLookup
	batch     BatchEvaluator
	log       zerolog.Logger
}

// NewHandler creates a new screening handler
func NewHandler(service *screening.Service, standardsLookup StandardsLookup, batch BatchEvaluator, log zerolog.Logger) *Handler {
	return &Handler{
		service:   service,
		standards: standardsLookup,
		batch:     batch,
		log:       log.With().Str("handler", "screening").Logger(),
	}
}

// RegisterRoutes registers all screening routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/screening", func(r chi.Router) {
		r.Post("/facts", h.HandleIngestFacts)
		r.Post("/evaluate", h.HandleEvaluate)
		r.Post("/evaluate/batch", h.HandleEvaluateBatch)
		r.Get("/verdicts/{isin}/{code}", h.HandleLatestVerdict)
		r.Get("/verdicts/{isin}/{code}/history", h.HandleVerdictHistory)
		r.Get("/triggers", h.HandleListTriggers)
		r.Post("/triggers/{id}/review", h.HandleReviewTrigger)
	})
}

// HandleIngestFacts stores a validated financial facts record
func (h *Handler) HandleIngestFacts(w http.ResponseWriter, r *http.Request) {
	var facts screening.FinancialFacts
	if err := json.NewDecoder(r.Body).Decode(&facts); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	stored, err := h.service.IngestFacts(facts)
	if errors.Is(err, screening.ErrInvalidFacts) {
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, stored)
}

type evaluateRequest struct {
	ISIN            string `json:"isin"`
	StandardCode    string `json:"standard_code"`
	OverlayStandard string `json:"overlay_standard,omitempty"`
}

type evaluateResponse struct {
	Primary *screening.ComplianceVerdict `json:"primary"`
	Overlay *screening.ComplianceVerdict `json:"overlay,omitempty"`
}

// HandleEvaluate runs an evaluation, optionally with an overlay standard
func (h *Handler) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ISIN == "" || req.StandardCode == "" {
		h.writeError(w, http.StatusBadRequest, "isin and standard_code are required")
		return
	}

	primary, overlay, err := h.service.EvaluateWithOverlay(r.Context(), req.ISIN, req.StandardCode, req.OverlayStandard)
	if domain.IsInvalidStandard(err) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, evaluateResponse{Primary: primary, Overlay: overlay})
}

type batchRequest struct {
	StandardCode string `json:"standard_code"`
}

// HandleEvaluateBatch re-evaluates the whole active universe against
// the latest version of a standard. The run is detached from the
// request: it keeps going after the client disconnects and the report
// lands in the logs.
func (h *Handler) HandleEvaluateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.StandardCode == "" {
		h.writeError(w, http.StatusBadRequest, "standard_code is required")
		return
	}

	std, err := h.standards.Latest(req.StandardCode)
	if domain.IsInvalidStandard(err) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	go func() {
		if _, err := h.batch.Run(context.Background(), std); err != nil {
			h.log.Error().Err(err).Str("standard", std.Code).Msg("Batch evaluation failed")
		}
	}()

	h.writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"standard_code":    std.Code,
		"standard_version": std.Version,
		"status":           "started",
	})
}

// HandleLatestVerdict returns the current verdict for a security
func (h *Handler) HandleLatestVerdict(w http.ResponseWriter, r *http.Request) {
	verdict, err := h.service.LatestVerdict(chi.URLParam(r, "isin"), chi.URLParam(r, "code"))
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "no verdict recorded")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, verdict)
}

// HandleVerdictHistory returns every verdict generation for a security
func (h *Handler) HandleVerdictHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.VerdictHistory(chi.URLParam(r, "isin"), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, history)
}

// HandleListTriggers returns triggers filtered by query parameters
func (h *Handler) HandleListTriggers(w http.ResponseWriter, r *http.Request) {
	filter := screening.TriggerFilter{
		ISIN:         r.URL.Query().Get("isin"),
		Type:         domain.TriggerType(r.URL.Query().Get("type")),
		Severity:     domain.TriggerSeverity(r.URL.Query().Get("severity")),
		ReviewStatus: domain.ReviewStatus(r.URL.Query().Get("review_status")),
	}
	if since := r.URL.Query().Get("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		filter.Since = ts
	}

	triggers, err := h.service.ListTriggers(filter)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, triggers)
}

type reviewRequest struct {
	Reviewer string `json:"reviewer"`
	Note     string `json:"note"`
}

// HandleReviewTrigger dispositions a trigger
func (h *Handler) HandleReviewTrigger(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Reviewer == "" {
		h.writeError(w, http.StatusBadRequest, "reviewer is required")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.service.ReviewTrigger(id, req.Reviewer, req.Note); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "trigger not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "reviewed"})
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
