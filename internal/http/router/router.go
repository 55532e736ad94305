package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/integrateisp/ops-api/internal/auth"
	"github.com/integrateisp/ops-api/internal/config"
	"github.com/integrateisp/ops-api/internal/database"
	"github.com/integrateisp/ops-api/internal/http/handler"
	"github.com/integrateisp/ops-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/integrateisp/ops-api/docs" // Import generated swagger docs
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Expense      *handler.ExpenseHandler
	Task         *handler.TaskHandler
	Client       *handler.ClientHandler
	Quotation    *handler.QuotationHandler
	Notification *handler.NotificationHandler
	Audit        *handler.AuditHandler
}

type Router struct {
	cfg             *config.Config
	logger          *zap.Logger
	db              *gorm.DB
	authMiddleware  *auth.Middleware
	rateLimiter     *middleware.RateLimiter
	auditMiddleware *middleware.AuditMiddleware
	handlers        Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	auditMiddleware *middleware.AuditMiddleware,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:             cfg,
		logger:          logger,
		db:              db,
		authMiddleware:  authMiddleware,
		rateLimiter:     rateLimiter,
		auditMiddleware: auditMiddleware,
		handlers:        handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	h := rt.handlers
	r.Route("/api", func(r chi.Router) {
		r.With(rt.rateLimiter.LimitLogin(rt.cfg.Auth.LoginRequestsPerMinute)).
			Post("/auth/login-json", h.Auth.Login)

		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.auditMiddleware.Audit)

			r.Get("/auth/me", h.Auth.Me)

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", h.User.GetMe)
				r.Put("/me", h.User.UpdateMe)
				r.Get("/{id}", h.User.GetByID)

				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireCapability(auth.CapManageUsers))
					r.Get("/", h.User.List)
					r.Post("/", h.User.Create)
					r.Put("/{id}", h.User.Update)
					r.Delete("/{id}", h.User.Delete)
				})
			})

			r.Route("/finance/expenses", func(r chi.Router) {
				r.Get("/", h.Expense.List)
				r.Post("/", h.Expense.Create)
				r.Get("/{id}", h.Expense.GetByID)
				r.Put("/{id}", h.Expense.Update)
				r.Delete("/{id}", h.Expense.Delete)
				r.Post("/{id}/approve", h.Expense.Decide)
				r.Post("/{id}/reimburse", h.Expense.Reimburse)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", h.Task.List)
				r.Post("/", h.Task.Create)
				r.Get("/{id}", h.Task.GetByID)
				r.Put("/{id}", h.Task.Update)
				r.Delete("/{id}", h.Task.Delete)
				r.Post("/{id}/complete", h.Task.Complete)
				r.Post("/{id}/assign", h.Task.Assign)
			})

			r.Route("/clients", func(r chi.Router) {
				r.Get("/", h.Client.List)
				r.Post("/", h.Client.Create)
				r.Get("/{id}", h.Client.GetByID)
				r.Put("/{id}", h.Client.Update)
				r.Delete("/{id}", h.Client.Delete)

				r.Get("/{id}/contacts", h.Client.ListContacts)
				r.Post("/{id}/contacts", h.Client.CreateContact)
				r.Put("/{id}/contacts/{contactId}", h.Client.UpdateContact)
				r.Delete("/{id}/contacts/{contactId}", h.Client.DeleteContact)

				r.Get("/{id}/service-history", h.Client.ListServiceHistory)
				r.Post("/{id}/service-history", h.Client.CreateServiceHistory)

				r.Get("/{id}/technical-docs", h.Client.ListTechnicalDocs)
				r.Post("/{id}/technical-docs", h.Client.CreateTechnicalDoc)
				r.Put("/{id}/technical-docs/{docId}", h.Client.UpdateTechnicalDoc)

				r.Get("/{id}/quotations", h.Quotation.List)
				r.Post("/{id}/quotations", h.Quotation.Create)
				r.Put("/{id}/quotations/{quotationId}", h.Quotation.Update)
				r.Get("/{id}/quotations/{quotationId}/archive", h.Quotation.Archive)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", h.Notification.List)
				r.Get("/count", h.Notification.GetUnreadCount)
				r.Post("/read-all", h.Notification.MarkAllAsRead)
				r.Post("/{id}/read", h.Notification.MarkAsRead)
			})

			r.With(rt.authMiddleware.RequireCapability(auth.CapManageUsers)).
				Get("/audit-logs", h.Audit.List)
		})
	})

	return r
}

func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := database.HealthCheckWithStats(r.Context(), rt.db)
	if err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats": map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
			"max_idle_closed":      stats.MaxIdleClosed,
			"max_lifetime_closed":  stats.MaxLifetimeClosed,
		},
	})
}

func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	status := http.StatusOK

	start := time.Now()
	if err := database.HealthCheck(r.Context(), rt.db); err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		checks["database"] = map[string]interface{}{
			"status": "unhealthy",
			"error":  err.Error(),
		}
		status = http.StatusServiceUnavailable
	} else {
		checks["database"] = map[string]interface{}{
			"status":     "healthy",
			"latency_ms": time.Since(start).Milliseconds(),
		}
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	writeJSON(w, status, map[string]interface{}{
		"status": overall,
		"checks": checks,
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
