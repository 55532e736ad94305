// Package testutil provides an in-memory database and fixtures for package tests
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/auth"
	"github.com/integrateisp/ops-api/internal/database"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestPassword is the plain-text password of every user created by CreateTestUser
const TestPassword = "correct-horse-battery"

// SetupTestDB opens a private in-memory sqlite database with the full schema.
// A single connection keeps the in-memory database alive and serializes writers.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&_foreign_keys=off", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateTestUser inserts an active user with the given role
func CreateTestUser(t *testing.T, db *gorm.DB, role domain.UserRole) *domain.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)

	id := uuid.New()
	user := &domain.User{
		BaseModel:    domain.BaseModel{ID: id},
		Email:        fmt.Sprintf("%s-%s@integrateisp.test", role, id.String()[:8]),
		PasswordHash: string(hash),
		FullName:     fmt.Sprintf("Test %s", role),
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateTestClient inserts an active client
func CreateTestClient(t *testing.T, db *gorm.DB, name string) *domain.Client {
	t.Helper()

	client := &domain.Client{
		Name:        name,
		Location:    "Test Street 1",
		Status:      domain.ClientStatusActive,
		ServicePlan: domain.ServicePlanStandard,
	}
	require.NoError(t, db.Create(client).Error)
	return client
}

// CreateTestExpense inserts an expense in the given status submitted by submitter
func CreateTestExpense(t *testing.T, db *gorm.DB, submitter *domain.User, status domain.ExpenseStatus) *domain.Expense {
	t.Helper()

	expense := &domain.Expense{
		Description: "Fiber splice kit",
		Amount:      decimal.RequireFromString("125.50"),
		Category:    domain.ExpenseCategoryEquipment,
		Date:        time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
		Status:      status,
		SubmitterID: submitter.ID,
	}
	require.NoError(t, db.Create(expense).Error)
	return expense
}

// CreateTestTask inserts a pending task owned by owner and optionally assigned
func CreateTestTask(t *testing.T, db *gorm.DB, owner *domain.User, assignee *domain.User) *domain.Task {
	t.Helper()

	task := &domain.Task{
		Title:    "Replace router at site",
		Priority: domain.TaskPriorityMedium,
		Status:   domain.TaskStatusPending,
		OwnerID:  owner.ID,
	}
	if assignee != nil {
		task.AssigneeID = &assignee.ID
	}
	require.NoError(t, db.Create(task).Error)
	return task
}

// ContextFor returns a context carrying the user as the authenticated actor
func ContextFor(user *domain.User) context.Context {
	return auth.WithUserContext(context.Background(), auth.NewUserContext(user))
}
