package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"stockwatch/internal/logging"
)

// apiPrefix is the version prefix of every data route.
const apiPrefix = "/api/v1"

// SetupRoutes configures all API routes. Routes hang off the root router so a
// wrong method on a known path answers 405 rather than 404.
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(handler.logRequests)

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Analysis routes
	r.HandleFunc(apiPrefix+"/analysis/{symbol}", handler.GetAnalysis).Methods("GET")
	r.HandleFunc(apiPrefix+"/indicators/{symbol}", handler.GetIndicators).Methods("GET")
	r.HandleFunc(apiPrefix+"/trend/{symbol}", handler.GetTrend).Methods("GET")

	// Watchlist routes
	r.HandleFunc(apiPrefix+"/watchlists", handler.GetWatchlists).Methods("GET")
	r.HandleFunc(apiPrefix+"/watchlists/{name}", handler.GetWatchlist).Methods("GET")
	r.HandleFunc(apiPrefix+"/watchlists/{name}", handler.AddToWatchlist).Methods("POST")
	r.HandleFunc(apiPrefix+"/watchlists/{name}/{symbol}", handler.RemoveFromWatchlist).Methods("DELETE")

	// Portfolio
	r.HandleFunc(apiPrefix+"/portfolio", handler.GetPortfolio).Methods("GET")

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logging.LogAPICall(h.logger, r.Method, r.URL.Path, rec.status, time.Since(start), nil)
	})
}
