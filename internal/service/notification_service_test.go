package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/service"
	"github.com/integrateisp/ops-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_ReadFlow(t *testing.T) {
	s := setupServices(t)
	user := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	other := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	ctx := testutil.ContextFor(user)
	bg := context.Background()

	taskID := uuid.New()
	first, err := s.notifications.Send(bg, service.Notice{Recipient: user.ID, Type: domain.NotificationTaskAssigned, Title: "New task assigned", Message: "Check the OLT", EntityType: "task", EntityID: &taskID})
	require.NoError(t, err)
	_, err = s.notifications.Send(bg, service.Notice{Recipient: user.ID, Type: domain.NotificationExpenseDecided, Title: "Expense approved", Message: "Approved", EntityType: "expense"})
	require.NoError(t, err)
	foreign, err := s.notifications.Send(bg, service.Notice{Recipient: other.ID, Type: domain.NotificationExpenseDecided, Title: "Expense approved", Message: "Approved", EntityType: "expense"})
	require.NoError(t, err)

	count, err := s.notifications.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count.Count)

	page, err := s.notifications.ListMine(ctx, service.NotificationListParams{Type: string(domain.NotificationTaskAssigned)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	require.NoError(t, s.notifications.MarkRead(ctx, first.ID))
	// marking twice is harmless
	require.NoError(t, s.notifications.MarkRead(ctx, first.ID))

	assert.ErrorIs(t, s.notifications.MarkRead(ctx, foreign.ID), service.ErrNotificationNotFound)
	assert.ErrorIs(t, s.notifications.MarkRead(ctx, uuid.New()), service.ErrNotificationNotFound)

	unread, err := s.notifications.ListMine(ctx, service.NotificationListParams{UnreadOnly: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread.Total)

	updated, err := s.notifications.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	count, err = s.notifications.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count.Count)

	// the other user's notification is untouched
	count, err = s.notifications.UnreadCount(testutil.ContextFor(other))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count.Count)
}

func TestNotificationService_RequiresActor(t *testing.T) {
	s := setupServices(t)

	_, err := s.notifications.UnreadCount(context.Background())
	assert.ErrorIs(t, err, service.ErrUnauthorized)

	_, err = s.notifications.MarkAllRead(context.Background())
	assert.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestNotificationService_RejectsUnknownType(t *testing.T) {
	s := setupServices(t)
	user := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)

	_, err := s.notifications.Send(context.Background(), service.Notice{Recipient: user.ID, Type: "weather", Title: "x", Message: "x"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = s.notifications.ListMine(testutil.ContextFor(user), service.NotificationListParams{Type: "weather"})
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "type", verr.Field)
}
