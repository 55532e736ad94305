package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/service"
	"github.com/integrateisp/ops-api/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpenseService_ApproveAndReimburse(t *testing.T) {
	s := setupServices(t)
	employee := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	manager := testutil.CreateTestUser(t, s.db, domain.RoleManager)
	finance := testutil.CreateTestUser(t, s.db, domain.RoleFinance)

	submitted, err := s.expenses.Submit(testutil.ContextFor(employee), &domain.CreateExpenseRequest{
		Description: "Train to customer site",
		Amount:      decimal.RequireFromString("120.50"),
		Category:    domain.ExpenseCategoryTravel,
		Date:        "2026-03-02",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ExpenseStatusSubmitted, submitted.Status)
	assert.Equal(t, employee.ID, submitted.SubmitterID)
	assert.Nil(t, submitted.ApproverID)

	approved, err := s.expenses.Decide(testutil.ContextFor(manager), submitted.ID, &domain.DecideExpenseRequest{
		Status: domain.ExpenseStatusApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ExpenseStatusApproved, approved.Status)
	require.NotNil(t, approved.ApproverID)
	assert.Equal(t, manager.ID, *approved.ApproverID)
	require.NotNil(t, approved.ApprovedAt)

	reimbursed, err := s.expenses.Reimburse(testutil.ContextFor(finance), submitted.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ExpenseStatusReimbursed, reimbursed.Status)
	require.NotNil(t, reimbursed.ApproverID)
	require.NotNil(t, reimbursed.ReimburserID)
	assert.Equal(t, finance.ID, *reimbursed.ReimburserID)
	require.NotNil(t, reimbursed.ReimbursedAt)
	assert.False(t, reimbursed.ReimbursedAt.Before(*reimbursed.ApprovedAt))
	assert.True(t, reimbursed.Amount.Equal(decimal.RequireFromString("120.5")))

	// submitter was told about both steps
	unread, err := s.notifications.UnreadCount(testutil.ContextFor(employee))
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread.Count)
}

func TestExpenseService_RejectedCannotBeReimbursed(t *testing.T) {
	s := setupServices(t)
	employee := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	manager := testutil.CreateTestUser(t, s.db, domain.RoleManager)
	admin := testutil.CreateTestUser(t, s.db, domain.RoleAdmin)

	submitted, err := s.expenses.Submit(testutil.ContextFor(employee), &domain.CreateExpenseRequest{
		Description: "Lunch",
		Amount:      decimal.NewFromInt(40),
		Category:    domain.ExpenseCategoryMeals,
		Date:        "2026-03-03",
	})
	require.NoError(t, err)

	rejected, err := s.expenses.Decide(testutil.ContextFor(manager), submitted.ID, &domain.DecideExpenseRequest{
		Status: domain.ExpenseStatusRejected,
		Notes:  "missing receipt",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ExpenseStatusRejected, rejected.Status)
	assert.Contains(t, rejected.Notes, "missing receipt")

	_, err = s.expenses.Reimburse(testutil.ContextFor(admin), submitted.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrInvalidTransition))

	var transitionErr *service.TransitionError
	require.True(t, errors.As(err, &transitionErr))
	assert.Equal(t, string(domain.ExpenseStatusRejected), transitionErr.Current)
}

func TestExpenseService_Decide(t *testing.T) {
	s := setupServices(t)
	employee := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	manager := testutil.CreateTestUser(t, s.db, domain.RoleManager)
	finance := testutil.CreateTestUser(t, s.db, domain.RoleFinance)

	t.Run("employee cannot decide", func(t *testing.T) {
		expense := testutil.CreateTestExpense(t, s.db, employee, domain.ExpenseStatusSubmitted)
		_, err := s.expenses.Decide(testutil.ContextFor(employee), expense.ID, &domain.DecideExpenseRequest{
			Status: domain.ExpenseStatusApproved,
		})
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("finance cannot decide", func(t *testing.T) {
		expense := testutil.CreateTestExpense(t, s.db, employee, domain.ExpenseStatusSubmitted)
		_, err := s.expenses.Decide(testutil.ContextFor(finance), expense.ID, &domain.DecideExpenseRequest{
			Status: domain.ExpenseStatusApproved,
		})
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})

	t.Run("rejection requires notes", func(t *testing.T) {
		expense := testutil.CreateTestExpense(t, s.db, employee, domain.ExpenseStatusSubmitted)
		_, err := s.expenses.Decide(testutil.ContextFor(manager), expense.ID, &domain.DecideExpenseRequest{
			Status: domain.ExpenseStatusRejected,
			Notes:  "   ",
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("cannot decide twice", func(t *testing.T) {
		expense := testutil.CreateTestExpense(t, s.db, employee, domain.ExpenseStatusApproved)
		_, err := s.expenses.Decide(testutil.ContextFor(manager), expense.ID, &domain.DecideExpenseRequest{
			Status: domain.ExpenseStatusRejected,
			Notes:  "changed my mind",
		})
		var transitionErr *service.TransitionError
		require.ErrorAs(t, err, &transitionErr)
		assert.Equal(t, "approved", transitionErr.Current)
	})

	t.Run("unknown expense", func(t *testing.T) {
		_, err := s.expenses.Decide(testutil.ContextFor(manager), uuid.New(), &domain.DecideExpenseRequest{
			Status: domain.ExpenseStatusApproved,
		})
		assert.ErrorIs(t, err, service.ErrExpenseNotFound)
	})

	t.Run("missing actor", func(t *testing.T) {
		expense := testutil.CreateTestExpense(t, s.db, employee, domain.ExpenseStatusSubmitted)
		_, err := s.expenses.Decide(context.Background(), expense.ID, &domain.DecideExpenseRequest{
			Status: domain.ExpenseStatusApproved,
		})
		assert.ErrorIs(t, err, service.ErrUnauthorized)
	})
}

func TestExpenseService_ConcurrentDecisions(t *testing.T) {
	s := setupServices(t)
	employee := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	approver := testutil.CreateTestUser(t, s.db, domain.RoleManager)
	rejecter := testutil.CreateTestUser(t, s.db, domain.RoleAdmin)
	expense := testutil.CreateTestExpense(t, s.db, employee, domain.ExpenseStatusSubmitted)

	requests := []struct {
		actor *domain.User
		req   *domain.DecideExpenseRequest
	}{
		{approver, &domain.DecideExpenseRequest{Status: domain.ExpenseStatusApproved}},
		{rejecter, &domain.DecideExpenseRequest{Status: domain.ExpenseStatusRejected, Notes: "duplicate"}},
	}

	var wg sync.WaitGroup
	results := make([]*domain.ExpenseDTO, len(requests))
	errs := make([]error, len(requests))
	for i, r := range requests {
		wg.Add(1)
		go func(i int, actor *domain.User, req *domain.DecideExpenseRequest) {
			defer wg.Done()
			results[i], errs[i] = s.expenses.Decide(testutil.ContextFor(actor), expense.ID, req)
		}(i, r.actor, r.req)
	}
	wg.Wait()

	succeeded := 0
	var winner domain.ExpenseStatus
	var loserErr error
	for i := range requests {
		if errs[i] == nil {
			succeeded++
			winner = results[i].Status
		} else {
			loserErr = errs[i]
		}
	}
	require.Equal(t, 1, succeeded, "exactly one decision must win")

	var transitionErr *service.TransitionError
	require.ErrorAs(t, loserErr, &transitionErr)
	assert.Equal(t, string(winner), transitionErr.Current)

	var stored domain.Expense
	require.NoError(t, s.db.First(&stored, "id = ?", expense.ID).Error)
	assert.Equal(t, winner, stored.Status)
}

func TestExpenseService_Edit(t *testing.T) {
	s := setupServices(t)
	owner := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	other := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	manager := testutil.CreateTestUser(t, s.db, domain.RoleManager)
	admin := testutil.CreateTestUser(t, s.db, domain.RoleAdmin)

	description := "Patch cables"

	t.Run("owner edits submitted expense", func(t *testing.T) {
		expense := testutil.CreateTestExpense(t, s.db, owner, domain.ExpenseStatusSubmitted)
		updated, err := s.expenses.Edit(testutil.ContextFor(owner), expense.ID, &domain.UpdateExpenseRequest{
			Description: &description,
		})
		require.NoError(t, err)
		assert.Equal(t, description, updated.Description)
		assert.Equal(t, domain.ExpenseStatusSubmitted, updated.Status)
	})

	t.Run("admin edits any submitted expense", func(t *testing.T) {
		expense := testutil.CreateTestExpense(t, s.db, owner, domain.ExpenseStatusSubmitted)
		_, err := s.expenses.Edit(testutil.ContextFor(admin), expense.ID, &domain.UpdateExpenseRequest{
			Description: &description,
		})
		require.NoError(t, err)
	})

	t.Run("others cannot edit", func(t *testing.T) {
		expense := testutil.CreateTestExpense(t, s.db, owner, domain.ExpenseStatusSubmitted)
		for _, actor := range []*domain.User{other, manager} {
			_, err := s.expenses.Edit(testutil.ContextFor(actor), expense.ID, &domain.UpdateExpenseRequest{
				Description: &description,
			})
			assert.ErrorIs(t, err, service.ErrPermissionDenied)
		}
	})

	t.Run("ownership is checked before the input", func(t *testing.T) {
		expense := testutil.CreateTestExpense(t, s.db, owner, domain.ExpenseStatusSubmitted)
		zero := decimal.Zero
		unknownClient := uuid.New()

		_, err := s.expenses.Edit(testutil.ContextFor(other), expense.ID, &domain.UpdateExpenseRequest{Amount: &zero})
		assert.ErrorIs(t, err, service.ErrPermissionDenied)

		_, err = s.expenses.Edit(testutil.ContextFor(other), expense.ID, &domain.UpdateExpenseRequest{ClientID: &unknownClient})
		assert.ErrorIs(t, err, service.ErrPermissionDenied)

		_, err = s.expenses.Edit(testutil.ContextFor(owner), expense.ID, &domain.UpdateExpenseRequest{ClientID: &unknownClient})
		assert.ErrorIs(t, err, service.ErrClientNotFound)
	})

	t.Run("decided expense is frozen", func(t *testing.T) {
		expense := testutil.CreateTestExpense(t, s.db, owner, domain.ExpenseStatusApproved)
		_, err := s.expenses.Edit(testutil.ContextFor(owner), expense.ID, &domain.UpdateExpenseRequest{
			Description: &description,
		})
		assert.ErrorIs(t, err, service.ErrInvalidTransition)
	})

	t.Run("amount must be positive", func(t *testing.T) {
		expense := testutil.CreateTestExpense(t, s.db, owner, domain.ExpenseStatusSubmitted)
		zero := decimal.Zero
		_, err := s.expenses.Edit(testutil.ContextFor(owner), expense.ID, &domain.UpdateExpenseRequest{
			Amount: &zero,
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})
}

func TestExpenseService_Submit_Validation(t *testing.T) {
	s := setupServices(t)
	employee := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	ctx := testutil.ContextFor(employee)

	base := func() *domain.CreateExpenseRequest {
		return &domain.CreateExpenseRequest{
			Description: "Toner",
			Amount:      decimal.RequireFromString("19.99"),
			Category:    domain.ExpenseCategorySupplies,
			Date:        "2026-01-15",
		}
	}

	tests := []struct {
		name    string
		mutate  func(r *domain.CreateExpenseRequest)
		wantErr error
	}{
		{"negative amount", func(r *domain.CreateExpenseRequest) { r.Amount = decimal.NewFromInt(-5) }, service.ErrInvalidInput},
		{"three decimals", func(r *domain.CreateExpenseRequest) { r.Amount = decimal.RequireFromString("1.005") }, service.ErrInvalidInput},
		{"bad category", func(r *domain.CreateExpenseRequest) { r.Category = "gifts" }, service.ErrInvalidInput},
		{"bad date", func(r *domain.CreateExpenseRequest) { r.Date = "15/01/2026" }, service.ErrInvalidInput},
		{"blank description", func(r *domain.CreateExpenseRequest) { r.Description = "  " }, service.ErrInvalidInput},
		{"unknown client", func(r *domain.CreateExpenseRequest) { id := uuid.New(); r.ClientID = &id }, service.ErrClientNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(req)
			_, err := s.expenses.Submit(ctx, req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExpenseService_ListVisibility(t *testing.T) {
	s := setupServices(t)
	alice := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	bob := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	manager := testutil.CreateTestUser(t, s.db, domain.RoleManager)
	finance := testutil.CreateTestUser(t, s.db, domain.RoleFinance)

	testutil.CreateTestExpense(t, s.db, alice, domain.ExpenseStatusSubmitted)
	testutil.CreateTestExpense(t, s.db, alice, domain.ExpenseStatusApproved)
	testutil.CreateTestExpense(t, s.db, bob, domain.ExpenseStatusSubmitted)
	testutil.CreateTestExpense(t, s.db, manager, domain.ExpenseStatusReimbursed)

	tests := []struct {
		name  string
		actor *domain.User
		want  int64
	}{
		{"employee sees own", alice, 2},
		{"manager sees own and submitted", manager, 3},
		{"finance sees all", finance, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.expenses.List(testutil.ContextFor(tt.actor), service.ExpenseListParams{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Total)
		})
	}

	t.Run("employee cannot read another employee's expense", func(t *testing.T) {
		expense := testutil.CreateTestExpense(t, s.db, bob, domain.ExpenseStatusSubmitted)
		_, err := s.expenses.GetByID(testutil.ContextFor(alice), expense.ID)
		assert.ErrorIs(t, err, service.ErrPermissionDenied)
	})
}

func TestExpenseService_Delete(t *testing.T) {
	s := setupServices(t)
	employee := testutil.CreateTestUser(t, s.db, domain.RoleEmployee)
	manager := testutil.CreateTestUser(t, s.db, domain.RoleManager)
	admin := testutil.CreateTestUser(t, s.db, domain.RoleAdmin)
	expense := testutil.CreateTestExpense(t, s.db, employee, domain.ExpenseStatusSubmitted)

	assert.ErrorIs(t, s.expenses.Delete(testutil.ContextFor(employee), expense.ID), service.ErrPermissionDenied)
	assert.ErrorIs(t, s.expenses.Delete(testutil.ContextFor(manager), expense.ID), service.ErrPermissionDenied)
	require.NoError(t, s.expenses.Delete(testutil.ContextFor(admin), expense.ID))

	_, err := s.expenses.GetByID(testutil.ContextFor(admin), expense.ID)
	assert.ErrorIs(t, err, service.ErrExpenseNotFound)
}
