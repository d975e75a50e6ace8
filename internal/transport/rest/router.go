package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/carenet/identity-service/internal/grant"
	"github.com/carenet/identity-service/internal/hospital"
	"github.com/carenet/identity-service/internal/profile"
	"github.com/carenet/identity-service/internal/session"
	"github.com/carenet/identity-service/internal/transport/middleware"
	"github.com/carenet/identity-service/internal/transport/swagger"
	"github.com/carenet/identity-service/internal/user"
)

// PermissionManageAccess gates the administrative grant endpoints.
const PermissionManageAccess = "can_manage_access"

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, sessionHandler *session.Handler, userHandler *user.Handler, grantHandler *grant.Handler, hospitalHandler *hospital.Handler, profileHandler *profile.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.Origin)

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		if sessionHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", sessionHandler.Login)
				sr.Post("/refresh", sessionHandler.Refresh)
				sr.Post("/logout", sessionHandler.Logout)
			})

			// Protected routes that require authentication
			r.Group(func(pr chi.Router) {
				pr.Use(sessionHandler.AuthMiddleware)

				// Tenant selection happens after login, inside the
				// authenticated surface
				pr.Post("/auth/select-hospital", sessionHandler.SelectHospital)

				// Current user
				if userHandler != nil {
					pr.Get("/users/me", userHandler.GetCurrentUser)
				}

				// Hospital directory
				if hospitalHandler != nil {
					pr.Get("/hospitals", hospitalHandler.ListHospitals)
				}

				// Administrative access management
				if grantHandler != nil {
					pr.Group(func(ar chi.Router) {
						ar.Use(sessionHandler.RequirePermission(PermissionManageAccess))
						ar.Post("/grants", grantHandler.CreateGrant)
						ar.Delete("/grants", grantHandler.RevokeGrant)
						if profileHandler != nil {
							ar.Get("/profiles", profileHandler.ListProfiles)
						}
					})
				}
			})
		}
	})
}
