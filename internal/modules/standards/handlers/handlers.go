// Package handlers provides HTTP handlers for the standards registry.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/amanahlabs/tazkiyah/internal/domain"
	"github.com/amanahlabs/tazkiyah/internal/modules/standards"
)

// Handler handles standards HTTP requests
type Handler struct {
	service *standards.Service
	log     zerolog.Logger
}

// NewHandler creates a new standards handler
func NewHandler(service *standards.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "standards").Logger(),
	}
}

// RegisterRoutes registers all standards routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/standards", func(r chi.Router) {
		r.Get("/", h.HandleListStandards)
		r.Post("/", h.HandlePublish)
		r.Get("/{code}", h.HandleGetLatest)
		r.Get("/{code}/{version}", h.HandleGetVersion)
	})
}

// HandleListStandards returns the latest version of every standard
func (h *Handler) HandleListStandards(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListLatest()
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// HandleGetLatest returns the latest version of a standard
func (h *Handler) HandleGetLatest(w http.ResponseWriter, r *http.Request) {
	std, err := h.service.Latest(chi.URLParam(r, "code"))
	if domain.IsInvalidStandard(err) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, std)
}

// HandleGetVersion returns a specific standard version
func (h *Handler) HandleGetVersion(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid version")
		return
	}
	std, err := h.service.Get(chi.URLParam(r, "code"), version)
	if domain.IsInvalidStandard(err) {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, std)
}

// HandlePublish publishes a new standard version
func (h *Handler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	var std standards.Standard
	if err := json.NewDecoder(r.Body).Decode(&std); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	published, err := h.service.Publish(std)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.writeJSON(w, http.StatusCreated, published)
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
