// Package api serves analyses and watchlists over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	apperrors "stockwatch/internal/errors"
	"stockwatch/internal/portfolio"
	"stockwatch/internal/quotes"
	"stockwatch/internal/service"
	"stockwatch/internal/store"
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	svc     *service.Service
	store   store.DataStore
	breaker *quotes.Breaker
	logger  zerolog.Logger
}

// NewHandler creates a new Handler
func NewHandler(svc *service.Service, st store.DataStore, logger zerolog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		store:  st,
		logger: logger,
	}
}

// WithBreaker reports the upstream circuit state on /health.
func (h *Handler) WithBreaker(b *quotes.Breaker) *Handler {
	h.breaker = b
	return h
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "healthy"}
	if h.breaker != nil {
		state := h.breaker.State()
		body["upstream"] = string(state)
		if state != quotes.BreakerClosed {
			body["status"] = "degraded"
		}
	}
	respondJSON(w, http.StatusOK, body)
}

// GetAnalysis handles GET /analysis/{symbol}
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	q := r.URL.Query()

	report, err := h.svc.Analyze(r.Context(), symbol, q.Get("range"), q.Get("interval"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

// GetIndicators handles GET /indicators/{symbol}
func (h *Handler) GetIndicators(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	q := r.URL.Query()

	bundle, err := h.svc.Indicators(r.Context(), symbol, q.Get("range"), q.Get("interval"))
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbol":     symbol,
		"config":     h.svc.Analyzer.Engine().Config(),
		"indicators": bundle,
	})
}

// GetTrend handles GET /trend/{symbol}
func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.Timeframes(r.Context(), mux.Vars(r)["symbol"])
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetWatchlists handles GET /watchlists
func (h *Handler) GetWatchlists(w http.ResponseWriter, r *http.Request) {
	lists, err := h.store.GetAllWatchlists(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, lists)
}

// GetWatchlist handles GET /watchlists/{name}
func (h *Handler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	symbols, err := h.store.GetWatchlist(r.Context(), name)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if len(symbols) == 0 {
		respondJSON(w, http.StatusNotFound, errorBody{Error: "watchlist " + name + " not found"})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":    name,
		"symbols": symbols,
	})
}

// AddToWatchlist handles POST /watchlists/{name}
func (h *Handler) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var req struct {
		Symbol string `json:"symbol"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	if err := h.store.AddToWatchlist(r.Context(), req.Symbol, name); err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{
		"name":   name,
		"symbol": strings.ToUpper(strings.TrimSpace(req.Symbol)),
	})
}

// RemoveFromWatchlist handles DELETE /watchlists/{name}/{symbol}
func (h *Handler) RemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.store.RemoveFromWatchlist(r.Context(), vars["symbol"], vars["name"]); err != nil {
		h.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetPortfolio handles GET /portfolio
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	stats, err := portfolio.NewTracker(h.store, h.svc, h.logger).Summary(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrInputValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrSymbolNotFound),
		errors.Is(err, apperrors.ErrDataNotFound),
		errors.Is(err, apperrors.ErrAlertNotFound),
		errors.Is(err, apperrors.ErrHoldingNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrUpstream),
		errors.Is(err, apperrors.ErrRateLimited),
		errors.Is(err, apperrors.ErrTimeout):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Int("status", status).Msg("Request failed")
	}
	respondJSON(w, status, errorBody{Error: err.Error()})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
