package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/http/handler"
	"github.com/integrateisp/ops-api/internal/repository"
	"github.com/integrateisp/ops-api/internal/service"
	"github.com/integrateisp/ops-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testHandlers struct {
	db           *gorm.DB
	expense      *handler.ExpenseHandler
	task         *handler.TaskHandler
	notification *handler.NotificationHandler
	user         *handler.UserHandler
}

func setupHandlers(t *testing.T) *testHandlers {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	clientRepo := repository.NewClientRepository(db)
	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), logger)

	return &testHandlers{
		db:           db,
		expense:      handler.NewExpenseHandler(service.NewExpenseService(db, repository.NewExpenseRepository(db), clientRepo, notifications, logger), logger),
		task:         handler.NewTaskHandler(service.NewTaskService(db, taskRepo, userRepo, clientRepo, notifications, logger), logger),
		notification: handler.NewNotificationHandler(notifications, logger),
		user:         handler.NewUserHandler(service.NewUserService(db, userRepo, taskRepo, logger), logger),
	}
}

// serve routes a single request through a chi router so URL params resolve.
// A nil user sends the request unauthenticated.
func serve(h http.HandlerFunc, method, pattern, target, body string, user *domain.User) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != nil {
		req = req.WithContext(testutil.ContextFor(user))
	}

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeAPIError(t *testing.T, rr *httptest.ResponseRecorder) domain.APIError {
	t.Helper()
	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apiErr))
	return apiErr
}
