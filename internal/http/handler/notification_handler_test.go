package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/repository"
	"github.com/integrateisp/ops-api/internal/service"
	"github.com/integrateisp/ops-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNotificationHandler(t *testing.T) {
	h := setupHandlers(t)
	user := testutil.CreateTestUser(t, h.db, domain.RoleEmployee)
	other := testutil.CreateTestUser(t, h.db, domain.RoleEmployee)

	notifications := service.NewNotificationService(repository.NewNotificationRepository(h.db), zap.NewNop())
	mine, err := notifications.Send(context.Background(), service.Notice{Recipient: user.ID, Type: domain.NotificationTaskAssigned, Title: "New task", Message: "x", EntityType: "task"})
	require.NoError(t, err)
	_, err = notifications.Send(context.Background(), service.Notice{Recipient: user.ID, Type: domain.NotificationExpenseDecided, Title: "Expense approved", Message: "x", EntityType: "expense"})
	require.NoError(t, err)
	theirs, err := notifications.Send(context.Background(), service.Notice{Recipient: other.ID, Type: domain.NotificationTaskAssigned, Title: "New task", Message: "x", EntityType: "task"})
	require.NoError(t, err)

	t.Run("list filtered by type", func(t *testing.T) {
		rr := serve(h.notification.List, http.MethodGet, "/notifications", "/notifications?type=task_assigned", "", user)
		require.Equal(t, http.StatusOK, rr.Code)
		var page domain.PaginatedResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
		assert.Equal(t, int64(1), page.Total)
	})

	t.Run("unknown type", func(t *testing.T) {
		rr := serve(h.notification.List, http.MethodGet, "/notifications", "/notifications?type=weather", "", user)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("count", func(t *testing.T) {
		rr := serve(h.notification.GetUnreadCount, http.MethodGet, "/notifications/count", "/notifications/count", "", user)
		require.Equal(t, http.StatusOK, rr.Code)
		var count domain.UnreadCountDTO
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &count))
		assert.Equal(t, int64(2), count.Count)
	})

	t.Run("mark read", func(t *testing.T) {
		rr := serve(h.notification.MarkAsRead, http.MethodPost, "/notifications/{id}/read", "/notifications/"+mine.ID.String()+"/read", "", user)
		assert.Equal(t, http.StatusNoContent, rr.Code)

		rr = serve(h.notification.MarkAsRead, http.MethodPost, "/notifications/{id}/read", "/notifications/"+theirs.ID.String()+"/read", "", user)
		assert.Equal(t, http.StatusNotFound, rr.Code)

		rr = serve(h.notification.MarkAsRead, http.MethodPost, "/notifications/{id}/read", "/notifications/"+uuid.NewString()+"/read", "", user)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("mark all read", func(t *testing.T) {
		rr := serve(h.notification.MarkAllAsRead, http.MethodPost, "/notifications/read-all", "/notifications/read-all", "", user)
		require.Equal(t, http.StatusOK, rr.Code)
		var body map[string]int64
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, int64(1), body["updated"])
	})
}
