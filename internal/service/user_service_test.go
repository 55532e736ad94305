package service_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/service"
	"github.com/integrateisp/ops-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Create(t *testing.T) {
	s := setupServices(t)
	admin := testutil.CreateTestUser(t, s.db, domain.RoleAdmin)
	manager := testutil.CreateTestUser(t, s.db, domain.RoleManager)

	req := &domain.CreateUserRequest{
		Email:    "Noor.Haddad@IntegrateISP.test",
		Password: "s3cure-pass",
		FullName: "Noor Haddad",
		Role:     domain.RoleFinance,
	}

	_, err := s.users.Create(testutil.ContextFor(manager), req)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	dto, err := s.users.Create(testutil.ContextFor(admin), req)
	require.NoError(t, err)
	assert.Equal(t, "noor.haddad@integrateisp.test", dto.Email)
	assert.Equal(t, domain.RoleFinance, dto.Role)
	assert.True(t, dto.IsActive)

	_, err = s.users.Create(testutil.ContextFor(admin), req)
	assert.ErrorIs(t, err, service.ErrEmailTaken)
}

func TestUserService_ProfileAccess(t *testing.T) {
	s := setupServices(t)
	admin := testutil.CreateTestUser(t, s.db, domain.RoleAdmin)
	employee := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	other := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)

	me, err := s.users.GetMe(testutil.ContextFor(employee))
	require.NoError(t, err)
	assert.Equal(t, employee.ID, me.ID)

	_, err = s.users.GetByID(testutil.ContextFor(employee), other.ID)
	assert.ErrorIs(t, err, service.ErrPermissionDenied)

	_, err = s.users.GetByID(testutil.ContextFor(admin), other.ID)
	assert.NoError(t, err)

	_, err = s.users.GetByID(testutil.ContextFor(admin), uuid.New())
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	name := "Renamed Employee"
	updated, err := s.users.UpdateMe(testutil.ContextFor(employee), &domain.UpdateProfileRequest{FullName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.FullName)
	assert.Equal(t, domain.RoleEmployee, updated.Role)

	_, err = s.users.UpdateMe(testutil.ContextFor(employee), &domain.UpdateProfileRequest{Email: &other.Email})
	assert.ErrorIs(t, err, service.ErrEmailTaken)
}

func TestUserService_List(t *testing.T) {
	s := setupServices(t)
	admin := testutil.CreateTestUser(t, s.db, domain.RoleAdmin)
	testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	testutil.CreateTestUser(t, s.db, domain.RoleFinance)

	result, err := s.users.List(testutil.ContextFor(admin), "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Total)

	result, err = s.users.List(testutil.ContextFor(admin), "finance-", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
}

func TestUserService_Deactivate(t *testing.T) {
	s := setupServices(t)
	admin := testutil.CreateTestUser(t, s.db, domain.RoleAdmin)
	ctx := testutil.ContextFor(admin)

	t.Run("cannot delete self", func(t *testing.T) {
		err := s.users.Deactivate(ctx, admin.ID, nil)
		assert.ErrorIs(t, err, service.ErrCannotDeleteSelf)
	})

	t.Run("user without open work", func(t *testing.T) {
		idle := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
		require.NoError(t, s.users.Deactivate(ctx, idle.ID, nil))

		dto, err := s.users.GetByID(ctx, idle.ID)
		require.NoError(t, err)
		assert.False(t, dto.IsActive)
	})

	t.Run("open tasks block deletion", func(t *testing.T) {
		busy := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
		testutil.CreateTestTask(t, s.db, busy, nil)

		err := s.users.Deactivate(ctx, busy.ID, nil)
		assert.ErrorIs(t, err, service.ErrUserHasOpenWork)

		dto, err := s.users.GetByID(ctx, busy.ID)
		require.NoError(t, err)
		assert.True(t, dto.IsActive)
	})

	t.Run("open tasks move to the reassignment target", func(t *testing.T) {
		leaving := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
		successor := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
		owned := testutil.CreateTestTask(t, s.db, leaving, nil)
		assigned := testutil.CreateTestTask(t, s.db, admin, leaving)

		require.NoError(t, s.users.Deactivate(ctx, leaving.ID, &successor.ID))

		var reloaded domain.Task
		require.NoError(t, s.db.First(&reloaded, "id = ?", owned.ID).Error)
		assert.Equal(t, successor.ID, reloaded.OwnerID)

		require.NoError(t, s.db.First(&reloaded, "id = ?", assigned.ID).Error)
		require.NotNil(t, reloaded.AssigneeID)
		assert.Equal(t, successor.ID, *reloaded.AssigneeID)
	})

	t.Run("reassignment target must exist", func(t *testing.T) {
		busy := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
		testutil.CreateTestTask(t, s.db, busy, nil)
		missing := uuid.New()

		err := s.users.Deactivate(ctx, busy.ID, &missing)
		assert.ErrorIs(t, err, service.ErrAssigneeNotFound)
	})

	t.Run("only admins", func(t *testing.T) {
		manager := testutil.CreateTestUser(t, s.db, domain.RoleManager)
		target := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
		err := s.users.Deactivate(testutil.ContextFor(manager), target.ID, nil)
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})
}

func TestUserService_UpdateActiveFlag(t *testing.T) {
	s := setupServices(t)
	admin := testutil.CreateTestUser(t, s.db, domain.RoleAdmin)
	ctx := testutil.ContextFor(admin)
	inactive := false

	t.Run("cannot deactivate self", func(t *testing.T) {
		_, err := s.users.Update(ctx, admin.ID, &domain.UpdateUserRequest{IsActive: &inactive})
		assert.ErrorIs(t, err, service.ErrCannotDeleteSelf)

		dto, err := s.users.GetByID(ctx, admin.ID)
		require.NoError(t, err)
		assert.True(t, dto.IsActive)
	})

	t.Run("open tasks block deactivation", func(t *testing.T) {
		worker := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
		testutil.CreateTestTask(t, s.db, admin, worker)

		_, err := s.users.Update(ctx, worker.ID, &domain.UpdateUserRequest{IsActive: &inactive})
		assert.ErrorIs(t, err, service.ErrUserHasOpenWork)

		dto, err := s.users.GetByID(ctx, worker.ID)
		require.NoError(t, err)
		assert.True(t, dto.IsActive)
	})

	t.Run("idle user is deactivated", func(t *testing.T) {
		idle := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)

		dto, err := s.users.Update(ctx, idle.ID, &domain.UpdateUserRequest{IsActive: &inactive})
		require.NoError(t, err)
		assert.False(t, dto.IsActive)
	})
}
