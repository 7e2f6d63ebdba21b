package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthService reports backend liveness.
type HealthService interface {
	Ping(ctx context.Context) error
}

// RouterDependencies collects handler dependencies.
type RouterDependencies struct {
	Health         HealthService
	API            *APIHandlers
	AllowedOrigins []string
}

// NewRouter wires the HTTP routes exposed by the backend API.
func NewRouter(logger *slog.Logger, deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		payload := map[string]any{"status": "ok"}

		if deps.Health != nil {
			if err := deps.Health.Ping(ctx); err != nil {
				logger.Error("health probe failed", "error", err)
				status = http.StatusServiceUnavailable
				payload["status"] = "degraded"
				payload["error"] = err.Error()
			}
		}

		respondJSON(w, status, payload)
	})

	mux.Handle("/metrics", promhttp.Handler())

	if deps.API != nil {
		mux.HandleFunc("/users", deps.API.handleUsers)
		mux.HandleFunc("/users/", deps.API.handleUserByID)
		mux.HandleFunc("/friends", deps.API.handleFriends)
		mux.HandleFunc("/friends/accept", deps.API.handleAcceptFriend)
		mux.HandleFunc("/friends/user/", deps.API.handleFriendsByUser)
		mux.HandleFunc("/groups", deps.API.handleGroups)
		mux.HandleFunc("/groups/members", deps.API.handleGroupMembers)
		mux.HandleFunc("/groups/user/", deps.API.handleGroupsByUser)
		mux.HandleFunc("/expenses", deps.API.handleExpenses)
		mux.HandleFunc("/expenses/", deps.API.handleExpenseByID)
		mux.HandleFunc("/expenses/user/", deps.API.handleExpensesByUser)
		mux.HandleFunc("/settlements", deps.API.handleSettlements)
		mux.HandleFunc("/settlements/user/", deps.API.handleSettlementsByUser)
		mux.HandleFunc("/split/preview", deps.API.handleSplitPreview)
		mux.HandleFunc("/balances/user/", deps.API.handleBalancesByUser)
		mux.HandleFunc("/balances/between", deps.API.handlePairwiseBalance)
		mux.HandleFunc("/simplify", deps.API.handleSimplify)
		mux.HandleFunc("/simplify/group/", deps.API.handleSimplifyGroup)
		mux.HandleFunc("/activity/user/", deps.API.handleActivityByUser)
		mux.HandleFunc("/dashboard/user/", deps.API.handleDashboardByUser)
	}

	handler := http.Handler(loggingMiddleware(logger, mux))
	if len(deps.AllowedOrigins) > 0 {
		handler = corsMiddleware(deps.AllowedOrigins)(handler)
	}
	return handler
}

func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	normalized := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		normalized[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || (!containsOrigin(normalized, origin) && !containsOrigin(normalized, "*")) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusForbidden)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func containsOrigin(set map[string]struct{}, origin string) bool {
	_, ok := set[origin]
	return ok
}
