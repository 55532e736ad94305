package service_test

import (
	"testing"

	"github.com/integrateisp/ops-api/internal/repository"
	"github.com/integrateisp/ops-api/internal/service"
	"github.com/integrateisp/ops-api/internal/storage"
	"github.com/integrateisp/ops-api/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServices struct {
	db            *gorm.DB
	store         storage.Storage
	notifications *service.NotificationService
	expenses      *service.ExpenseService
	tasks         *service.TaskService
	users         *service.UserService
	clients       *service.ClientService
	quotations    *service.QuotationService
	audit         *service.AuditLogService
}

func setupServices(t *testing.T) *testServices {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	userRepo := repository.NewUserRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	clientRepo := repository.NewClientRepository(db)
	contactRepo := repository.NewContactRepository(db)
	quotationRepo := repository.NewQuotationRepository(db)
	historyRepo := repository.NewServiceHistoryRepository(db)
	docRepo := repository.NewTechnicalDocRepository(db)

	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), logger)

	return &testServices{
		db:            db,
		store:         store,
		notifications: notifications,
		expenses:      service.NewExpenseService(db, expenseRepo, clientRepo, notifications, logger),
		tasks:         service.NewTaskService(db, taskRepo, userRepo, clientRepo, notifications, logger),
		users:         service.NewUserService(db, userRepo, taskRepo, logger),
		clients:       service.NewClientService(db, clientRepo, contactRepo, quotationRepo, historyRepo, docRepo, expenseRepo, taskRepo, logger),
		quotations:    service.NewQuotationService(db, quotationRepo, clientRepo, store, logger),
		audit:         service.NewAuditLogService(repository.NewAuditLogRepository(db), logger),
	}
}
