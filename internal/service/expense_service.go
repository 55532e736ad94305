package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/auth"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/mapper"
	"github.com/integrateisp/ops-api/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const expenseEntity = "expense"

// ExpenseService runs the expense approval workflow:
// submitted -> approved -> reimbursed, or submitted -> rejected.
type ExpenseService struct {
	db            *gorm.DB
	expenseRepo   *repository.ExpenseRepository
	clientRepo    *repository.ClientRepository
	notifications *NotificationService
	logger        *zap.Logger
}

// NewExpenseService creates a new expense service
func NewExpenseService(
	db *gorm.DB,
	expenseRepo *repository.ExpenseRepository,
	clientRepo *repository.ClientRepository,
	notifications *NotificationService,
	logger *zap.Logger,
) *ExpenseService {
	return &ExpenseService{
		db:            db,
		expenseRepo:   expenseRepo,
		clientRepo:    clientRepo,
		notifications: notifications,
		logger:        logger,
	}
}

// ExpenseListParams holds list filters and pagination
type ExpenseListParams struct {
	Status   *domain.ExpenseStatus
	Category *domain.ExpenseCategory
	ClientID *uuid.UUID
	Page     int
	PageSize int
}

// Submit records a new expense in the submitted state, owned by the caller
func (s *ExpenseService) Submit(ctx context.Context, req *domain.CreateExpenseRequest) (*domain.ExpenseDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, invalidField("description", "must not be empty")
	}
	if err := validateAmount(req.Amount); err != nil {
		return nil, err
	}
	if !req.Category.IsValid() {
		return nil, invalidField("category", "unknown category")
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return nil, err
	}
	if err := s.ensureClient(ctx, req.ClientID); err != nil {
		return nil, err
	}

	expense := &domain.Expense{
		Description: description,
		Amount:      req.Amount,
		Category:    req.Category,
		Date:        date,
		Status:      domain.ExpenseStatusSubmitted,
		SubmitterID: userCtx.UserID,
		Notes:       req.Notes,
		ClientID:    req.ClientID,
	}
	if err := s.expenseRepo.Create(ctx, expense); err != nil {
		return nil, fmt.Errorf("failed to create expense: %w", err)
	}

	s.logger.Info("expense submitted",
		zap.String("expenseID", expense.ID.String()),
		zap.String("submitterID", userCtx.UserID.String()),
		zap.String("amount", expense.Amount.StringFixed(2)),
	)

	dto := mapper.ToExpenseDTO(expense)
	return &dto, nil
}

// Decide approves or rejects a submitted expense. Rejections require a reason in notes.
func (s *ExpenseService) Decide(ctx context.Context, id uuid.UUID, req *domain.DecideExpenseRequest) (*domain.ExpenseDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !auth.Authorize(userCtx.Role, auth.CapApproveExpense) {
		return nil, ErrPermissionDenied
	}

	outcome := req.Status
	if outcome != domain.ExpenseStatusApproved && outcome != domain.ExpenseStatusRejected {
		return nil, invalidField("status", "must be approved or rejected")
	}
	notes := strings.TrimSpace(req.Notes)
	if outcome == domain.ExpenseStatusRejected && notes == "" {
		return nil, invalidField("notes", "a reason is required when rejecting")
	}

	var result *domain.Expense
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expenses := s.expenseRepo.WithTx(tx)

		expense, err := s.lockExpense(ctx, expenses, id)
		if err != nil {
			return err
		}
		if expense.Status != domain.ExpenseStatusSubmitted {
			return invalidTransition(expenseEntity, string(expense.Status), string(outcome))
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{
			"status":      outcome,
			"approver_id": userCtx.UserID,
			"approved_at": now,
		}
		if notes != "" {
			updates["notes"] = appendApprovalNotes(expense.Notes, notes)
		}

		result, err = s.applyTransition(ctx, expenses, id, domain.ExpenseStatusSubmitted, outcome, updates)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense decided",
		zap.String("expenseID", id.String()),
		zap.String("status", string(outcome)),
		zap.String("approverID", userCtx.UserID.String()),
	)

	s.notifications.deliver(ctx, Notice{
		Recipient:  result.SubmitterID,
		Type:       domain.NotificationExpenseDecided,
		Title:      fmt.Sprintf("Expense %s", outcome),
		Message:    fmt.Sprintf("Your expense %q (%s) was %s by %s", result.Description, result.Amount.StringFixed(2), outcome, userCtx.FullName),
		EntityType: expenseEntity,
		EntityID:   &result.ID,
	})

	dto := mapper.ToExpenseDTO(result)
	return &dto, nil
}

// Reimburse pays out an approved expense
func (s *ExpenseService) Reimburse(ctx context.Context, id uuid.UUID) (*domain.ExpenseDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !auth.Authorize(userCtx.Role, auth.CapReimburseExpense) {
		return nil, ErrPermissionDenied
	}

	var result *domain.Expense
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expenses := s.expenseRepo.WithTx(tx)

		expense, err := s.lockExpense(ctx, expenses, id)
		if err != nil {
			return err
		}
		if expense.Status != domain.ExpenseStatusApproved {
			return invalidTransition(expenseEntity, string(expense.Status), string(domain.ExpenseStatusReimbursed))
		}

		now := time.Now().UTC()
		if expense.ApprovedAt != nil && now.Before(*expense.ApprovedAt) {
			now = *expense.ApprovedAt
		}
		updates := map[string]interface{}{
			"status":        domain.ExpenseStatusReimbursed,
			"reimburser_id": userCtx.UserID,
			"reimbursed_at": now,
		}

		result, err = s.applyTransition(ctx, expenses, id, domain.ExpenseStatusApproved, domain.ExpenseStatusReimbursed, updates)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("expense reimbursed",
		zap.String("expenseID", id.String()),
		zap.String("reimburserID", userCtx.UserID.String()),
	)

	s.notifications.deliver(ctx, Notice{
		Recipient:  result.SubmitterID,
		Type:       domain.NotificationExpenseReimbursed,
		Title:      "Expense reimbursed",
		Message:    fmt.Sprintf("Your expense %q (%s) has been reimbursed", result.Description, result.Amount.StringFixed(2)),
		EntityType: expenseEntity,
		EntityID:   &result.ID,
	})

	dto := mapper.ToExpenseDTO(result)
	return &dto, nil
}

// Edit changes the descriptive fields of a submitted expense. Only the
// submitter or an admin may edit, and never the status or attribution fields.
func (s *ExpenseService) Edit(ctx context.Context, id uuid.UUID, req *domain.UpdateExpenseRequest) (*domain.ExpenseDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	var result *domain.Expense
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expenses := s.expenseRepo.WithTx(tx)

		expense, err := s.lockExpense(ctx, expenses, id)
		if err != nil {
			return err
		}
		if !auth.Can(userCtx.Role, auth.CapEditOwnExpense, auth.Ownership{IsOwner: userCtx.Is(expense.SubmitterID)}) {
			return ErrPermissionDenied
		}
		if expense.Status != domain.ExpenseStatusSubmitted {
			return invalidTransition(expenseEntity, string(expense.Status), "edit")
		}

		updates, err := expenseEdits(ctx, s.clientRepo.WithTx(tx), req)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			result = expense
			return nil
		}

		updates["updated_at"] = time.Now().UTC()
		result, err = s.applyTransition(ctx, expenses, id, domain.ExpenseStatusSubmitted, "edit", updates)
		return err
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToExpenseDTO(result)
	return &dto, nil
}

// Delete removes an expense; admin only
func (s *ExpenseService) Delete(ctx context.Context, id uuid.UUID) error {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	if !auth.Authorize(userCtx.Role, auth.CapDeleteExpense) {
		return ErrPermissionDenied
	}

	if _, err := s.getExpense(ctx, id); err != nil {
		return err
	}
	if err := s.expenseRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete expense: %w", err)
	}

	s.logger.Info("expense deleted",
		zap.String("expenseID", id.String()),
		zap.String("by", userCtx.UserID.String()))
	return nil
}

// GetByID returns an expense. Users who cannot review expenses only see their own.
func (s *ExpenseService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExpenseDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	expense, err := s.getExpense(ctx, id)
	if err != nil {
		return nil, err
	}

	if !userCtx.Is(expense.SubmitterID) && !canReviewExpenses(userCtx.Role) {
		return nil, ErrPermissionDenied
	}

	dto := mapper.ToExpenseDTO(expense)
	return &dto, nil
}

// List returns the expenses visible to the caller, newest first
func (s *ExpenseService) List(ctx context.Context, params ExpenseListParams) (*domain.PaginatedResponse, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	filter := repository.ExpenseFilter{
		Status:   params.Status,
		Category: params.Category,
		ClientID: params.ClientID,
	}
	switch {
	case auth.Authorize(userCtx.Role, auth.CapViewAllExpenses):
	case auth.Authorize(userCtx.Role, auth.CapApproveExpense):
		filter.SubmitterID = &userCtx.UserID
		filter.OrSubmitted = true
	default:
		filter.SubmitterID = &userCtx.UserID
	}

	page, pageSize := repository.NormalizePagination(params.Page, params.PageSize)
	expenses, total, err := s.expenseRepo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	dtos := make([]domain.ExpenseDTO, len(expenses))
	for i := range expenses {
		dtos[i] = mapper.ToExpenseDTO(&expenses[i])
	}
	resp := domain.NewPaginatedResponse(dtos, total, page, pageSize)
	return &resp, nil
}

func (s *ExpenseService) getExpense(ctx context.Context, id uuid.UUID) (*domain.Expense, error) {
	expense, err := s.expenseRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExpenseNotFound
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return expense, nil
}

func (s *ExpenseService) lockExpense(ctx context.Context, expenses *repository.ExpenseRepository, id uuid.UUID) (*domain.Expense, error) {
	expense, err := expenses.GetByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrExpenseNotFound
		}
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	return expense, nil
}

// applyTransition writes the updates guarded by the expected status and reloads the row.
// A lost race surfaces as an invalid transition carrying the state that won.
func (s *ExpenseService) applyTransition(
	ctx context.Context,
	expenses *repository.ExpenseRepository,
	id uuid.UUID,
	from domain.ExpenseStatus,
	requested domain.ExpenseStatus,
	updates map[string]interface{},
) (*domain.Expense, error) {
	applied, err := expenses.TransitionStatus(ctx, id, from, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to update expense: %w", err)
	}

	expense, err := expenses.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload expense: %w", err)
	}
	if !applied {
		return nil, invalidTransition(expenseEntity, string(expense.Status), string(requested))
	}
	return expense, nil
}

// expenseEdits validates an edit request and returns the columns to write
func expenseEdits(ctx context.Context, clients *repository.ClientRepository, req *domain.UpdateExpenseRequest) (map[string]interface{}, error) {
	updates := map[string]interface{}{}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		if description == "" {
			return nil, invalidField("description", "must not be empty")
		}
		updates["description"] = description
	}
	if req.Amount != nil {
		if err := validateAmount(*req.Amount); err != nil {
			return nil, err
		}
		updates["amount"] = *req.Amount
	}
	if req.Category != nil {
		if !req.Category.IsValid() {
			return nil, invalidField("category", "unknown category")
		}
		updates["category"] = *req.Category
	}
	if req.Date != nil {
		date, err := parseDate("date", *req.Date)
		if err != nil {
			return nil, err
		}
		updates["expense_date"] = date
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.ClientID != nil {
		exists, err := clients.Exists(ctx, *req.ClientID)
		if err != nil {
			return nil, fmt.Errorf("failed to check client: %w", err)
		}
		if !exists {
			return nil, ErrClientNotFound
		}
		updates["client_id"] = *req.ClientID
	}
	return updates, nil
}

func (s *ExpenseService) ensureClient(ctx context.Context, clientID *uuid.UUID) error {
	if clientID == nil {
		return nil
	}
	exists, err := s.clientRepo.Exists(ctx, *clientID)
	if err != nil {
		return fmt.Errorf("failed to check client: %w", err)
	}
	if !exists {
		return ErrClientNotFound
	}
	return nil
}

func canReviewExpenses(role domain.UserRole) bool {
	return auth.Authorize(role, auth.CapViewAllExpenses) || auth.Authorize(role, auth.CapApproveExpense)
}

func validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalidField("amount", "must be greater than zero")
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return invalidField("amount", "must have at most two decimal places")
	}
	return nil
}

func appendApprovalNotes(existing, notes string) string {
	if strings.TrimSpace(existing) == "" {
		return notes
	}
	return existing + "\n\nApproval notes: " + notes
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(mapper.DateLayout, value)
	if err != nil {
		return time.Time{}, invalidField(field, "must be a date in YYYY-MM-DD format")
	}
	return t, nil
}
