// Package handlers provides HTTP handlers for portfolio and holding
// management and the aggregation read model.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/modules/portfolio"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolios", func(r chi.Router) {
		r.Get("/", h.HandleListPortfolios)
		r.Post("/", h.HandleCreatePortfolio)
		r.Get("/{id}", h.HandleGetPortfolio)
		r.Get("/{id}/summary", h.HandleGetSummary)
		r.Get("/{id}/holdings", h.HandleListHoldings)
		r.Post("/{id}/holdings", h.HandleAddHolding)
	})
}

// HandleListPortfolios returns all portfolios
func (h *Handler) HandleListPortfolios(w http.ResponseWriter, r *http.Request) {
	portfolios, err := h.service.ListPortfolios()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, portfolios)
}

// HandleCreatePortfolio creates a new portfolio
func (h *Handler) HandleCreatePortfolio(w http.ResponseWriter, r *http.Request) {
	var p portfolio.Portfolio
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created, err := h.service.CreatePortfolio(p)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// HandleGetPortfolio returns a portfolio by id
func (h *Handler) HandleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetPortfolio(chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "portfolio not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, p)
}

// HandleGetSummary returns the aggregation read model for a portfolio
func (h *Handler) HandleGetSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetPortfolioSummary(chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "portfolio not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// HandleListHoldings returns the holdings of a portfolio
func (h *Handler) HandleListHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.service.ListHoldings(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, holdings)
}

// HandleAddHolding adds a holding to a portfolio
func (h *Handler) HandleAddHolding(w http.ResponseWriter, r *http.Request) {
	var holding portfolio.Holding
	if err := json.NewDecoder(r.Body).Decode(&holding); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	holding.PortfolioID = chi.URLParam(r, "id")
	created, err := h.service.AddHolding(holding)
	if errors.Is(err, domain.ErrNotFound) {
		h.writeError(w, http.StatusNotFound, "portfolio not found")
		return
	}
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
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
