package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/domain"
	"gorm.io/gorm"
)

// ExpenseFilter represents filter options for listing expenses
type ExpenseFilter struct {
	Status   *domain.ExpenseStatus
	Category *domain.ExpenseCategory
	ClientID *uuid.UUID
	// SubmitterID restricts results to one submitter
	SubmitterID *uuid.UUID
	// OrSubmitted widens a SubmitterID restriction with every submitted expense
	OrSubmitted bool
}

type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

// WithTx returns a repository bound to the transaction
func (r *ExpenseRepository) WithTx(tx *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: tx}
}

func (r *ExpenseRepository) Create(ctx context.Context, expense *domain.Expense) error {
	return r.db.WithContext(ctx).Create(expense).Error
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Expense, error) {
	var expense domain.Expense
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&expense).Error
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

// GetByIDForUpdate loads and locks an expense inside a transaction
func (r *ExpenseRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Expense, error) {
	var expense domain.Expense
	err := r.db.WithContext(ctx).Scopes(forUpdate).Where("id = ?", id).First(&expense).Error
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *ExpenseRepository) Update(ctx context.Context, expense *domain.Expense) error {
	return r.db.WithContext(ctx).Save(expense).Error
}

// TransitionStatus writes updates only if the expense is still in the expected status.
// It reports whether the row was changed.
func (r *ExpenseRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from domain.ExpenseStatus, updates map[string]interface{}) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Expense{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *ExpenseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Expense{}, "id = ?", id).Error
}

// DetachClient clears the client reference from every expense of a client
func (r *ExpenseRepository) DetachClient(ctx context.Context, clientID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Expense{}).
		Where("client_id = ?", clientID).
		Update("client_id", nil).Error
}

func (r *ExpenseRepository) List(ctx context.Context, filter ExpenseFilter, page, pageSize int) ([]domain.Expense, int64, error) {
	var expenses []domain.Expense
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Expense{})

	if filter.SubmitterID != nil {
		if filter.OrSubmitted {
			query = query.Where("(submitter_id = ? OR status = ?)", *filter.SubmitterID, domain.ExpenseStatusSubmitted)
		} else {
			query = query.Where("submitter_id = ?", *filter.SubmitterID)
		}
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Category != nil {
		query = query.Where("category = ?", *filter.Category)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Scopes(paginate(page, pageSize)).Order("created_at DESC").Find(&expenses).Error
	return expenses, total, err
}
