package routes

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/skyserver1508/skyserver-hosting/internal/api/handlers"
	"github.com/skyserver1508/skyserver-hosting/internal/service"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// Services bundles everything the router wires into handlers
type Services struct {
	Lifecycle *service.LifecycleService
	Capacity  *service.CapacityService
	Auth      *service.AuthService
	Events    *service.Hub
}

// NewRouter creates and configures the HTTP router
func NewRouter(svcs Services, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", healthCheckHandler)

	// Initialize handlers
	requestHandler := handlers.NewRequestHandler(svcs.Lifecycle, logger)
	adminHandler := handlers.NewAdminHandler(svcs.Lifecycle, svcs.Capacity, svcs.Auth, logger)
	authHandler := handlers.NewAuthHandler(svcs.Auth, logger)
	eventsHandler := handlers.NewEventsHandler(svcs.Lifecycle, svcs.Events, logger)

	// Public endpoints
	mux.HandleFunc("POST /api/v1/requests", requestHandler.Submit)
	mux.HandleFunc("GET /api/v1/status", requestHandler.Status)
	mux.HandleFunc("GET /api/v1/events", eventsHandler.Stream)

	// Account endpoints
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/v1/me", authHandler.RequireUser(requestHandler.Me))
	mux.HandleFunc("GET /api/v1/me/requests", authHandler.RequireUser(requestHandler.MyRequests))

	// Admin review workflow
	mux.HandleFunc("GET /api/v1/admin/requests", authHandler.RequireAdmin(adminHandler.ListRequests))
	mux.HandleFunc("GET /api/v1/admin/requests/{id}", authHandler.RequireAdmin(adminHandler.GetRequest))
	mux.HandleFunc("POST /api/v1/admin/requests/{id}/approve", authHandler.RequireAdmin(adminHandler.Approve))
	mux.HandleFunc("POST /api/v1/admin/requests/{id}/reject", authHandler.RequireAdmin(adminHandler.Reject))
	mux.HandleFunc("DELETE /api/v1/admin/requests/{id}", authHandler.RequireAdmin(adminHandler.Terminate))

	// Admin configuration and accounts
	mux.HandleFunc("GET /api/v1/admin/stats", authHandler.RequireAdmin(adminHandler.Stats))
	mux.HandleFunc("GET /api/v1/admin/capacity", authHandler.RequireAdmin(adminHandler.GetCapacity))
	mux.HandleFunc("PUT /api/v1/admin/capacity", authHandler.RequireAdmin(adminHandler.SetCapacity))
	mux.HandleFunc("PUT /api/v1/admin/settings", authHandler.RequireAdmin(adminHandler.UpdateSettings))
	mux.HandleFunc("GET /api/v1/admin/users", authHandler.RequireAdmin(adminHandler.ListUsers))
	mux.HandleFunc("PUT /api/v1/admin/users/{id}", authHandler.RequireAdmin(adminHandler.UpdateUser))
	mux.HandleFunc("DELETE /api/v1/admin/users/{id}", authHandler.RequireAdmin(adminHandler.DeleteUser))

	// API documentation endpoints
	mux.HandleFunc("GET /api/openapi.yaml", handlers.ServeOpenAPISpec)
	mux.Handle("/swagger/", httpSwagger.Handler(
		httpSwagger.URL("/api/openapi.yaml"),
	))

	// Apply middleware
	return loggingMiddleware(logger, corsMiddleware(mux))
}

// healthCheckHandler returns the health status of the API
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

// loggingMiddleware logs HTTP requests with structured logging
func loggingMiddleware(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		logger.InfoContext(r.Context(),
			"HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration_ms", duration.Milliseconds(),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack implements http.Hijacker interface for WebSocket support
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
