// Package handlers provides HTTP handlers for the security universe.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/modules/universe"
)

// Handler handles universe HTTP requests
type Handler struct {
	securityRepo *universe.SecurityRepository
	resolver     *universe.SymbolResolver
	log          zerolog.Logger
}

// NewHandler creates a new universe handler
func NewHandler(securityRepo *universe.SecurityRepository, resolver *universe.SymbolResolver, log zerolog.Logger) *Handler {
	return &Handler{
		securityRepo: securityRepo,
		resolver:     resolver,
		log:          log.With().Str("handler", "universe").Logger(),
	}
}

// RegisterRoutes registers all universe routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/securities", func(r chi.Router) {
		r.Get("/", h.HandleListSecurities)
		r.Post("/", h.HandleAddSecurity)
		r.Get("/{isin}", h.HandleGetSecurity)
		r.Put("/{isin}/ticker", h.HandleUpdateTicker)
		r.Post("/{isin}/deactivate", h.HandleDeactivate)
		r.Get("/resolve/{identifier}", h.HandleResolve)
	})
}

// HandleListSecurities returns all active securities
func (h *Handler) HandleListSecurities(w http.ResponseWriter, r *http.Request) {
	securities, err := h.securityRepo.GetAllActive()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, securities)
}

// HandleAddSecurity adds a security to the universe
func (h *Handler) HandleAddSecurity(w http.ResponseWriter, r *http.Request) {
	var sec universe.Security
	if err := json.NewDecoder(r.Body).Decode(&sec); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !universe.IsISIN(sec.ISIN) {
		h.writeError(w, http.StatusBadRequest, "invalid ISIN")
		return
	}
	sec.Active = true
	if err := h.securityRepo.Add(sec); err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, sec)
}

// HandleGetSecurity returns a single security by ISIN
func (h *Handler) HandleGetSecurity(w http.ResponseWriter, r *http.Request) {
	isin := chi.URLParam(r, "isin")
	sec, err := h.securityRepo.GetByISIN(isin)
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "security not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, sec)
}

// HandleUpdateTicker changes the display ticker for a security. The
// ISIN never changes; the ticker is an alias.
func (h *Handler) HandleUpdateTicker(w http.ResponseWriter, r *http.Request) {
	isin := chi.URLParam(r, "isin")
	var req struct {
		Ticker string `json:"ticker"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Ticker == "" {
		h.writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}
	if err := h.securityRepo.UpdateTicker(isin, req.Ticker); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "security not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"isin": isin, "ticker": req.Ticker})
}

// HandleDeactivate removes a security from the active universe
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	isin := chi.URLParam(r, "isin")
	if err := h.securityRepo.Deactivate(isin); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "security not found")
			return
		}
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleResolve resolves a ticker or ISIN to the canonical ISIN.
// Exposed for the upload collaborator.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	isin, err := h.resolver.Resolve(identifier)
	if errors.Is(err, domain.ErrUnknownTicker) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"identifier": identifier, "isin": isin})
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
