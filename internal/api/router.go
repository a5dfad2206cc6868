package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nerrad567/smartlight-core/internal/auth"
)

// healthCheckTimeout bounds each component check in GET /health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	if s.cfg.BehindProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(s.withRequestID)
	r.Use(s.withAccessLog)
	r.Use(s.recoveryMiddleware)
	r.Use(s.withCORS)
	r.Use(middleware.RequestSize(maxRequestBodySize))

	r.NotFound(handleNotFound)
	r.MethodNotAllowed(handleMethodNotAllowed)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", s.handleLogin)
			r.Post("/signup", s.handleSignup)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Get("/profile", s.handleProfile)
				r.With(requirePermission(auth.PermUserManage)).Post("/register", s.handleRegister)
			})
		})

		// The device has no credentials.
		r.Route("/device", func(r chi.Router) {
			r.Get("/config", s.handleDeviceConfig)
			r.Post("/log", s.handleDeviceLog)
		})

		// Groups keep unknown paths answering 404 rather than 401.
		r.Route("/web", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Use(requirePermission(auth.PermDashboardRead))

				r.Get("/status", s.handleStatus)
				r.Get("/logs", s.handleLogs)
				r.Get("/statistics", s.handleStatistics)
				r.With(requirePermission(auth.PermConfigWrite)).Patch("/config", s.handleUpdateConfig)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)
				r.Use(requirePermission(auth.PermUserManage))

				r.Get("/", s.handleListUsers)
				r.Patch("/{id}", s.handleUpdateUser)
				r.Delete("/{id}", s.handleDeleteUser)
			})
		})

		r.With(s.authMiddleware, requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAuditLogs)
	})

	return r
}

// handleRoot describes the API.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Smart Lighting System API - Server is running!",
		"version": s.version,
		"endpoints": map[string]string{
			"auth":   "/api/auth",
			"device": "/api/device",
			"web":    "/api/web",
			"users":  "/api/users",
		},
	})
}

// handleHealth reports the health of each registered component.
// Any failing component turns the response into a 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]string, len(s.health))
	healthy := true

	for name, checker := range s.health {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := checker.HealthCheck(ctx)
		cancel()

		if err != nil {
			healthy = false
			components[name] = err.Error()
			continue
		}
		components[name] = "ok"
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":     status,
		"version":    s.version,
		"components": components,
	})
}

func handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeNotFound(w, msgNotFound)
}

func handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, msgMethodNotAllowed)
}
