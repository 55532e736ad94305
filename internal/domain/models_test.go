package domain_test

import (
	"net/http"
	"testing"

	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestTaskStatusForCompletion(t *testing.T) {
	tests := []struct {
		percentage int
		expected   domain.TaskStatus
	}{
		{0, domain.TaskStatusPending},
		{1, domain.TaskStatusInProgress},
		{99, domain.TaskStatusInProgress},
		{100, domain.TaskStatusCompleted},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, domain.TaskStatusForCompletion(tt.percentage), "percentage %d", tt.percentage)
	}
}

func TestEnumValidation(t *testing.T) {
	assert.True(t, domain.RoleFinance.IsValid())
	assert.False(t, domain.UserRole("superuser").IsValid())

	assert.True(t, domain.ExpenseStatusReimbursed.IsValid())
	assert.False(t, domain.ExpenseStatus("paid").IsValid())

	assert.True(t, domain.TaskCategory("").IsValid())
	assert.False(t, domain.TaskPriority("").IsValid())

	assert.True(t, domain.ChannelInPerson.IsValid())
	assert.False(t, domain.ServicePlan("free").IsValid())
	assert.False(t, domain.QuotationStatus("withdrawn").IsValid())

	assert.True(t, domain.NotificationTaskReminder.IsValid())
	assert.False(t, domain.NotificationType("").IsValid())
}

func TestNewAPIError(t *testing.T) {
	tests := []struct {
		status   int
		expected string
	}{
		{http.StatusBadRequest, domain.ErrorTypeBadRequest},
		{http.StatusUnauthorized, domain.ErrorTypeUnauthorized},
		{http.StatusForbidden, domain.ErrorTypeForbidden},
		{http.StatusNotFound, domain.ErrorTypeNotFound},
		{http.StatusConflict, domain.ErrorTypeConflict},
		{http.StatusTooManyRequests, domain.ErrorTypeRateLimited},
		{http.StatusInternalServerError, domain.ErrorTypeInternal},
	}

	for _, tt := range tests {
		apiErr := domain.NewAPIError(tt.status, "detail")
		assert.Equal(t, tt.expected, apiErr.Type)
		assert.Equal(t, tt.status, apiErr.Status)
		assert.Equal(t, "detail", apiErr.Detail)
		assert.NotEmpty(t, apiErr.Title)
	}
}
