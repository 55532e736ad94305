package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskHandler_CompleteLifecycle(t *testing.T) {
	h := setupHandlers(t)
	owner := testutil.CreateTestUser(t, h.db, domain.RoleEmployee)
	outsider := testutil.CreateTestUser(t, h.db, domain.RoleEmployee)

	rr := serve(h.task.Create, http.MethodPost, "/tasks", "/tasks",
		`{"title":"Check backhaul","priority":"high","due_date":"2026-11-01"}`, owner)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created domain.TaskDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, domain.TaskStatusPending, created.Status)

	pattern := "/tasks/{id}/complete"
	target := "/tasks/" + created.ID.String() + "/complete"

	tests := []struct {
		name   string
		body   string
		user   *domain.User
		status int
		want   domain.TaskStatus
	}{
		{"missing percentage", `{}`, owner, http.StatusBadRequest, ""},
		{"out of range", `{"completion_percentage":150}`, owner, http.StatusBadRequest, ""},
		{"outsider", `{"completion_percentage":50}`, outsider, http.StatusForbidden, ""},
		{"halfway", `{"completion_percentage":50}`, owner, http.StatusOK, domain.TaskStatusInProgress},
		{"done", `{"completion_percentage":100}`, owner, http.StatusOK, domain.TaskStatusCompleted},
		{"reopened", `{"completion_percentage":0}`, owner, http.StatusOK, domain.TaskStatusPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(h.task.Complete, http.MethodPost, pattern, target, tt.body, tt.user)
			require.Equal(t, tt.status, rr.Code)
			if tt.status != http.StatusOK {
				return
			}
			var dto domain.TaskDTO
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dto))
			assert.Equal(t, tt.want, dto.Status)
			assert.Equal(t, tt.want == domain.TaskStatusCompleted, dto.CompletedAt != nil)
		})
	}
}

func TestTaskHandler_List(t *testing.T) {
	h := setupHandlers(t)
	owner := testutil.CreateTestUser(t, h.db, domain.RoleEmployee)
	testutil.CreateTestTask(t, h.db, owner, nil)

	rr := serve(h.task.List, http.MethodGet, "/tasks", "/tasks?status=pending", "", owner)
	require.Equal(t, http.StatusOK, rr.Code)
	var page domain.PaginatedResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Equal(t, int64(1), page.Total)

	rr = serve(h.task.List, http.MethodGet, "/tasks", "/tasks?priority=urgent", "", owner)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
