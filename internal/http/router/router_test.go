package router_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/integrateisp/ops-api/internal/auth"
	"github.com/integrateisp/ops-api/internal/config"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/http/handler"
	"github.com/integrateisp/ops-api/internal/http/middleware"
	"github.com/integrateisp/ops-api/internal/http/router"
	"github.com/integrateisp/ops-api/internal/repository"
	"github.com/integrateisp/ops-api/internal/service"
	"github.com/integrateisp/ops-api/internal/storage"
	"github.com/integrateisp/ops-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServer struct {
	handler http.Handler
	db      *gorm.DB
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	log := zap.NewNop()
	db := testutil.SetupTestDB(t)

	cfg := &config.Config{
		App:      config.AppConfig{Name: "ops-api", Environment: "test"},
		Auth:     config.AuthConfig{JWTSecret: "router-test-secret", Issuer: "ops-api", AccessTokenTTLMinutes: 60},
		Security: config.SecurityConfig{ContentTypeNosniff: true, FrameOptions: "DENY"},
		Storage:  config.StorageConfig{Mode: "local", LocalBasePath: t.TempDir()},
	}

	archive, err := storage.NewStorage(&cfg.Storage, log)
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	clientRepo := repository.NewClientRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL())
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), log)
	authService := service.NewAuthService(userRepo, tokens, log)
	userService := service.NewUserService(db, userRepo, taskRepo, log)
	expenseService := service.NewExpenseService(db, expenseRepo, clientRepo, notifications, log)
	taskService := service.NewTaskService(db, taskRepo, userRepo, clientRepo, notifications, log)
	clientService := service.NewClientService(db, clientRepo, repository.NewContactRepository(db), quotationRepo,
		repository.NewServiceHistoryRepository(db), repository.NewTechnicalDocRepository(db), expenseRepo, taskRepo, log)
	quotationService := service.NewQuotationService(db, quotationRepo, clientRepo, archive, log)
	auditService := service.NewAuditLogService(repository.NewAuditLogRepository(db), log)

	rt := router.NewRouter(cfg, log, db,
		auth.NewMiddleware(authService, log),
		middleware.NewRateLimiter(&cfg.RateLimit, log),
		middleware.NewAuditMiddleware(auditService, nil, log),
		router.Handlers{
			Auth:         handler.NewAuthHandler(authService, userService, log),
			User:         handler.NewUserHandler(userService, log),
			Expense:      handler.NewExpenseHandler(expenseService, log),
			Task:         handler.NewTaskHandler(taskService, log),
			Client:       handler.NewClientHandler(clientService, log),
			Quotation:    handler.NewQuotationHandler(quotationService, log),
			Notification: handler.NewNotificationHandler(notifications, log),
			Audit:        handler.NewAuditHandler(auditService, log),
		},
	)

	return &testServer{handler: rt.Setup(), db: db}
}

func (s *testServer) do(t *testing.T, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) login(t *testing.T, user *domain.User) string {
	t.Helper()

	body := `{"email":"` + user.Email + `","password":"` + testutil.TestPassword + `"}`
	rr := s.do(t, http.MethodPost, "/api/auth/login-json", body, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp domain.LoginResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "bearer", resp.TokenType)
	return resp.AccessToken
}

func TestHealthEndpoints(t *testing.T) {
	s := setupServer(t)

	rr := s.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	rr = s.do(t, http.MethodGet, "/health/db", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"healthy"`)

	rr = s.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLoginAndMe(t *testing.T) {
	s := setupServer(t)
	user := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)

	t.Run("wrong password", func(t *testing.T) {
		body := `{"email":"` + user.Email + `","password":"not-the-password"}`
		rr := s.do(t, http.MethodPost, "/api/auth/login-json", body, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		rr := s.do(t, http.MethodGet, "/api/auth/me", "", "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
	})

	t.Run("token resolves to user", func(t *testing.T) {
		token := s.login(t, user)

		rr := s.do(t, http.MethodGet, "/api/auth/me", "", token)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var me domain.UserDTO
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&me))
		assert.Equal(t, user.ID, me.ID)
		assert.Equal(t, user.Email, me.Email)
	})
}

func TestCapabilityGates(t *testing.T) {
	s := setupServer(t)
	employee := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	admin := testutil.CreateTestUser(t, s.db, domain.RoleAdmin)

	employeeToken := s.login(t, employee)
	adminToken := s.login(t, admin)

	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/users/", "", employeeToken).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/audit-logs", "", employeeToken).Code)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/users/", "", adminToken).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/audit-logs", "", adminToken).Code)
}

func TestMutationsAreAudited(t *testing.T) {
	s := setupServer(t)
	employee := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	admin := testutil.CreateTestUser(t, s.db, domain.RoleAdmin)

	employeeToken := s.login(t, employee)
	adminToken := s.login(t, admin)

	date := time.Now().UTC().Format("2006-01-02")
	body := `{"description":"Crimping tool","amount":"45.00","category":"equipment","date":"` + date + `"}`
	rr := s.do(t, http.MethodPost, "/api/finance/expenses/", body, employeeToken)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	// rejected write leaves no entry
	rr = s.do(t, http.MethodPost, "/api/finance/expenses/", `{"description":""}`, employeeToken)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/audit-logs", "", adminToken)
	require.Equal(t, http.StatusOK, rr.Code)

	var page struct {
		Total int64                `json:"total"`
		Data  []domain.AuditLogDTO `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&page))
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, domain.AuditActionCreate, page.Data[0].Action)
	assert.Equal(t, "expense", page.Data[0].EntityType)
	assert.Equal(t, employee.ID.String(), page.Data[0].UserID)
	assert.Equal(t, http.StatusCreated, page.Data[0].StatusCode)
}
