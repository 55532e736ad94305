package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/auth"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubResolver struct {
	users map[string]*domain.User
}

func (s *stubResolver) ResolveToken(_ context.Context, token string) (*domain.User, error) {
	if user, ok := s.users[token]; ok {
		return user, nil
	}
	return nil, errors.New("unknown token")
}

func newTestMiddleware() (*auth.Middleware, *domain.User) {
	user := &domain.User{
		BaseModel: domain.BaseModel{ID: uuid.New()},
		Email:     "finance@integrateisp.test",
		FullName:  "Fin Ance",
		Role:      domain.RoleFinance,
		IsActive:  true,
	}
	resolver := &stubResolver{users: map[string]*domain.User{"good-token": user}}
	return auth.NewMiddleware(resolver, zap.NewNop()), user
}

func TestMiddleware_Authenticate(t *testing.T) {
	mw, user := newTestMiddleware()

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid bearer", "Bearer good-token", http.StatusOK},
		{"lower case scheme", "bearer good-token", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good-token", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer bad-token", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured *auth.UserContext
			handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				captured, _ = auth.FromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				require.NotNil(t, captured)
				assert.Equal(t, user.ID, captured.UserID)
				assert.Equal(t, domain.RoleFinance, captured.Role)
			} else {
				assert.Nil(t, captured)
				assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
				assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
			}
		})
	}
}

func TestMiddleware_RequireCapability(t *testing.T) {
	mw, user := newTestMiddleware()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		w := httptest.NewRecorder()
		mw.RequireCapability(auth.CapReimburseExpense)(ok).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("capability held", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithUserContext(req.Context(), auth.NewUserContext(user)))
		w := httptest.NewRecorder()
		mw.RequireCapability(auth.CapReimburseExpense)(ok).ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("capability missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithUserContext(req.Context(), auth.NewUserContext(user)))
		w := httptest.NewRecorder()
		mw.RequireCapability(auth.CapManageUsers)(ok).ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestUserContext(t *testing.T) {
	id := uuid.New()
	other := uuid.New()
	userCtx := &auth.UserContext{UserID: id, Role: domain.RoleManager}

	assert.True(t, userCtx.Is(id))
	assert.False(t, userCtx.Is(other))
	assert.True(t, userCtx.IsRef(&id))
	assert.False(t, userCtx.IsRef(nil))
	assert.True(t, userCtx.HasAnyRole(domain.RoleAdmin, domain.RoleManager))
	assert.False(t, userCtx.IsAdmin())

	_, ok := auth.FromContext(context.Background())
	assert.False(t, ok)
	assert.Panics(t, func() { auth.MustFromContext(context.Background()) })
}
