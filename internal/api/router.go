package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/instflow/internal/api/handlers"
	"github.com/wonny/instflow/pkg/logger"
	"github.com/wonny/instflow/pkg/metrics"
)

// NewRouter creates and configures the HTTP router. m may be nil when metrics are disabled.
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(flowHandler *handlers.FlowHandler, m *metrics.Metrics, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods("GET")
	}

	api := r.PathPrefix("/api").Subrouter()

	// Flow endpoints
	flow := api.PathPrefix("/flow/{market}").Subrouter()
	flow.HandleFunc("/report", flowHandler.GetReport).Methods("GET")
	flow.HandleFunc("/leaderboard/{side}", flowHandler.GetLeaderboard).Methods("GET")
	flow.HandleFunc("/crosslisted", flowHandler.GetCrossListed).Methods("GET")
	flow.HandleFunc("/observable", flowHandler.GetObservable).Methods("GET")
	flow.HandleFunc("/rankings", flowHandler.GetRankings).Methods("GET")
	flow.HandleFunc("/history/{code}", flowHandler.GetHistory).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "instflow-api",
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
