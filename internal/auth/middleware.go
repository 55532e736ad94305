package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/logger"
	"go.uber.org/zap"
)

// TokenResolver maps a bearer token to an active user
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*domain.User, error)
}

// Middleware handles authentication for HTTP requests
type Middleware struct {
	resolver TokenResolver
	logger   *zap.Logger
}

// NewMiddleware creates a new authentication middleware
func NewMiddleware(resolver TokenResolver, logger *zap.Logger) *Middleware {
	return &Middleware{
		resolver: resolver,
		logger:   logger,
	}
}

// Authenticate requires a valid bearer token and stores the user in the request context
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeProblem(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			writeProblem(w, http.StatusUnauthorized, "Invalid authorization header format")
			return
		}

		user, err := m.resolver.ResolveToken(r.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Error(err),
			)
			writeProblem(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}

		userCtx := NewUserContext(user)
		logger.AddRequestFields(r.Context(),
			zap.String("user_id", userCtx.UserID.String()),
			zap.String("user_role", string(userCtx.Role)),
		)

		m.logger.Debug("request authenticated",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("user_id", userCtx.UserID.String()),
			zap.String("role", string(userCtx.Role)),
			zap.Duration("auth_duration", time.Since(start)),
		)

		next.ServeHTTP(w, r.WithContext(WithUserContext(r.Context(), userCtx)))
	})
}

// RequireCapability rejects requests whose role does not hold the capability.
// Only use it for capabilities that do not depend on record ownership.
func (m *Middleware) RequireCapability(capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, ok := FromContext(r.Context())
			if !ok {
				writeProblem(w, http.StatusUnauthorized, "Not authenticated")
				return
			}
			if !Authorize(userCtx.Role, capability) {
				writeProblem(w, http.StatusForbidden, "The user doesn't have enough privileges")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeProblem(w http.ResponseWriter, status int, detail string) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.NewAPIError(status, detail))
}
