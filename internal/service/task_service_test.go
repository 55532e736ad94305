package service_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/service"
	"github.com/integrateisp/ops-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskService_CompletionDrivesStatus(t *testing.T) {
	s := setupServices(t)
	employee := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	ctx := testutil.ContextFor(employee)

	due := time.Now().UTC().AddDate(0, 0, 3).Format("2006-01-02")
	task, err := s.tasks.Create(ctx, &domain.CreateTaskRequest{
		Title:    "Survey tower site",
		Priority: domain.TaskPriorityHigh,
		DueDate:  &due,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, task.Status)
	assert.Equal(t, 0, task.CompletionPercentage)
	require.NotNil(t, task.DueDate)
	assert.Equal(t, due, *task.DueDate)

	halfway, err := s.tasks.SetCompletion(ctx, task.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusInProgress, halfway.Status)
	assert.Nil(t, halfway.CompletedAt)

	done, err := s.tasks.SetCompletion(ctx, task.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusCompleted, done.Status)
	assert.Equal(t, 100, done.CompletionPercentage)
	require.NotNil(t, done.CompletedAt)

	reopened, err := s.tasks.SetCompletion(ctx, task.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, reopened.Status)
	assert.Nil(t, reopened.CompletedAt)
}

func TestTaskService_SetCompletion_Rules(t *testing.T) {
	s := setupServices(t)
	owner := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	assignee := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	outsider := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	manager := testutil.CreateTestUser(t, s.db, domain.RoleManager)
	task := testutil.CreateTestTask(t, s.db, owner, assignee)

	t.Run("out of range", func(t *testing.T) {
		for _, pct := range []int{-1, 101} {
			_, err := s.tasks.SetCompletion(testutil.ContextFor(owner), task.ID, pct)
			assert.ErrorIs(t, err, service.ErrInvalidInput)
		}
	})

	t.Run("assignee may report progress", func(t *testing.T) {
		dto, err := s.tasks.SetCompletion(testutil.ContextFor(assignee), task.ID, 30)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStatusInProgress, dto.Status)
	})

	t.Run("outsiders may not", func(t *testing.T) {
		_, err := s.tasks.SetCompletion(testutil.ContextFor(outsider), task.ID, 30)
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("managers may not complete tasks they are not on", func(t *testing.T) {
		_, err := s.tasks.SetCompletion(testutil.ContextFor(manager), task.ID, 100)
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("unknown task", func(t *testing.T) {
		_, err := s.tasks.SetCompletion(testutil.ContextFor(owner), uuid.New(), 10)
		assert.ErrorIs(t, err, service.ErrTaskNotFound)
	})
}

func TestTaskService_Assign(t *testing.T) {
	s := setupServices(t)
	employee := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	colleague := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	manager := testutil.CreateTestUser(t, s.db, domain.RoleManager)

	t.Run("employee may assign own task to self only", func(t *testing.T) {
		task := testutil.CreateTestTask(t, s.db, employee, nil)

		_, err := s.tasks.Assign(testutil.ContextFor(employee), task.ID, colleague.ID)
		assert.ErrorIs(t, err, service.ErrPermissionDenied)

		dto, err := s.tasks.Assign(testutil.ContextFor(employee), task.ID, employee.ID)
		require.NoError(t, err)
		require.NotNil(t, dto.AssigneeID)
		assert.Equal(t, employee.ID, *dto.AssigneeID)
	})

	t.Run("manager assigns and assignee is notified", func(t *testing.T) {
		task := testutil.CreateTestTask(t, s.db, employee, nil)

		dto, err := s.tasks.Assign(testutil.ContextFor(manager), task.ID, colleague.ID)
		require.NoError(t, err)
		assert.Equal(t, colleague.ID, *dto.AssigneeID)

		count, err := s.notifications.UnreadCount(testutil.ContextFor(colleague))
		require.NoError(t, err)
		assert.Equal(t, int64(1), count.Count)
	})

	t.Run("assignee must exist", func(t *testing.T) {
		task := testutil.CreateTestTask(t, s.db, employee, nil)
		_, err := s.tasks.Assign(testutil.ContextFor(manager), task.ID, uuid.New())
		assert.ErrorIs(t, err, service.ErrAssigneeNotFound)
	})

	t.Run("finance owner assigns own task to a colleague", func(t *testing.T) {
		finance := testutil.CreateTestUser(t, s.db, domain.RoleFinance)
		task := testutil.CreateTestTask(t, s.db, finance, nil)

		dto, err := s.tasks.Assign(testutil.ContextFor(finance), task.ID, employee.ID)
		require.NoError(t, err)
		require.NotNil(t, dto.AssigneeID)
		assert.Equal(t, employee.ID, *dto.AssigneeID)

		created, err := s.tasks.Create(testutil.ContextFor(finance), &domain.CreateTaskRequest{
			Title:      "Reconcile invoices",
			Priority:   domain.TaskPriorityMedium,
			AssigneeID: &colleague.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, colleague.ID, *created.AssigneeID)
	})

	t.Run("finance cannot assign a task owned by someone else", func(t *testing.T) {
		finance := testutil.CreateTestUser(t, s.db, domain.RoleFinance)
		task := testutil.CreateTestTask(t, s.db, employee, nil)

		_, err := s.tasks.Assign(testutil.ContextFor(finance), task.ID, colleague.ID)
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("create rejects assigning others", func(t *testing.T) {
		_, err := s.tasks.Create(testutil.ContextFor(employee), &domain.CreateTaskRequest{
			Title:      "Swap ONT",
			Priority:   domain.TaskPriorityLow,
			AssigneeID: &colleague.ID,
		})
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})
}

func TestTaskService_Visibility(t *testing.T) {
	s := setupServices(t)
	alice := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	bob := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	finance := testutil.CreateTestUser(t, s.db, domain.RoleFinance)
	manager := testutil.CreateTestUser(t, s.db, domain.RoleManager)

	owned := testutil.CreateTestTask(t, s.db, alice, nil)
	testutil.CreateTestTask(t, s.db, bob, alice)
	private := testutil.CreateTestTask(t, s.db, bob, nil)

	result, err := s.tasks.List(testutil.ContextFor(alice), service.TaskListParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Total)

	result, err = s.tasks.List(testutil.ContextFor(alice), service.TaskListParams{AssignedToMe: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)

	result, err = s.tasks.List(testutil.ContextFor(finance), service.TaskListParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Total)

	_, err = s.tasks.GetByID(testutil.ContextFor(alice), private.ID)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	_, err = s.tasks.GetByID(testutil.ContextFor(alice), owned.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, s.tasks.Delete(testutil.ContextFor(alice), private.ID), service.ErrPermissionDenied)
	assert.NoError(t, s.tasks.Delete(testutil.ContextFor(manager), private.ID))
}

func TestTaskService_Edit(t *testing.T) {
	s := setupServices(t)
	owner := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	assignee := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	task := testutil.CreateTestTask(t, s.db, owner, assignee)

	title := "Replace router at Elm St"
	dto, err := s.tasks.Edit(testutil.ContextFor(owner), task.ID, &domain.UpdateTaskRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, dto.Title)
	assert.Equal(t, domain.TaskStatusPending, dto.Status)

	_, err = s.tasks.Edit(testutil.ContextFor(assignee), task.ID, &domain.UpdateTaskRequest{Title: &title})
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	missing := uuid.New()
	_, err = s.tasks.Edit(testutil.ContextFor(owner), task.ID, &domain.UpdateTaskRequest{ClientID: &missing})
	assert.ErrorIs(t, err, service.ErrClientNotFound)
}

func TestTaskService_SendDueReminders(t *testing.T) {
	s := setupServices(t)
	owner := testutil.CreateTestUser(t, s.db, domain.RoleManager)
	assignee := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	now := time.Now().UTC()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	due := testutil.CreateTestTask(t, s.db, owner, assignee)
	require.NoError(t, s.db.Model(due).Updates(map[string]interface{}{
		"reminder_enabled": true,
		"reminder_date":    past,
	}).Error)

	later := testutil.CreateTestTask(t, s.db, owner, nil)
	require.NoError(t, s.db.Model(later).Updates(map[string]interface{}{
		"reminder_enabled": true,
		"reminder_date":    future,
	}).Error)

	sent, err := s.tasks.SendDueReminders(testutil.ContextFor(owner), now, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	// a reminder is only sent once
	sent, err = s.tasks.SendDueReminders(testutil.ContextFor(owner), now, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)

	result, err := s.notifications.ListMine(testutil.ContextFor(assignee), service.NotificationListParams{UnreadOnly: true, Type: string(domain.NotificationTaskReminder)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
}
