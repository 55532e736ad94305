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

func TestUserHandler_Delete(t *testing.T) {
	h := setupHandlers(t)
	admin := testutil.CreateTestUser(t, h.db, domain.RoleAdmin)
	busy := testutil.CreateTestUser(t, h.db, domain.RoleEmployee)
	successor := testutil.CreateTestUser(t, h.db, domain.RoleEmployee)
	testutil.CreateTestTask(t, h.db, busy, nil)

	pattern := "/users/{id}"
	target := "/users/" + busy.ID.String()

	rr := serve(h.user.Delete, http.MethodDelete, pattern, "/users/"+admin.ID.String(), "", admin)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h.user.Delete, http.MethodDelete, pattern, target, "", admin)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = serve(h.user.Delete, http.MethodDelete, pattern, target+"?reassign_to=bogus", "", admin)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h.user.Delete, http.MethodDelete, pattern, target+"?reassign_to="+successor.ID.String(), "", admin)
	assert.Equal(t, http.StatusNoContent, rr.Code)
}

func TestUserHandler_Create(t *testing.T) {
	h := setupHandlers(t)
	admin := testutil.CreateTestUser(t, h.db, domain.RoleAdmin)
	manager := testutil.CreateTestUser(t, h.db, domain.RoleManager)

	body := `{"email":"new.hire@integrateisp.test","password":"longenough","full_name":"New Hire","role":"employee"}`

	rr := serve(h.user.Create, http.MethodPost, "/users", "/users", body, manager)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = serve(h.user.Create, http.MethodPost, "/users", "/users", body, admin)
	require.Equal(t, http.StatusCreated, rr.Code)
	var dto domain.UserDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &dto))
	assert.Equal(t, domain.RoleEmployee, dto.Role)

	rr = serve(h.user.Create, http.MethodPost, "/users", "/users", body, admin)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = serve(h.user.Create, http.MethodPost, "/users", "/users",
		`{"email":"short@integrateisp.test","password":"short","full_name":"S","role":"employee"}`, admin)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeAPIError(t, rr).Errors, "password")
}
