package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/domain"
	"gorm.io/gorm"
)

// TaskFilter represents filter options for listing tasks
type TaskFilter struct {
	Status     *domain.TaskStatus
	Priority   *domain.TaskPriority
	DueBefore  *time.Time
	DueAfter   *time.Time
	ClientID   *uuid.UUID
	AssigneeID *uuid.UUID
	// InvolvingUserID restricts results to tasks the user owns or is assigned to
	InvolvingUserID *uuid.UUID
}

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// WithTx returns a repository bound to the transaction
func (r *TaskRepository) WithTx(tx *gorm.DB) *TaskRepository {
	return &TaskRepository{db: tx}
}

func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var task domain.Task
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// GetByIDForUpdate loads and locks a task inside a transaction
func (r *TaskRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var task domain.Task
	err := r.db.WithContext(ctx).Scopes(forUpdate).Where("id = ?", id).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&domain.Task{}, "id = ?", id).Error
}

// DetachClient clears the client reference from every task of a client
func (r *TaskRepository) DetachClient(ctx context.Context, clientID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("client_id = ?", clientID).
		Update("client_id", nil).Error
}

// CountOpenForUser counts non-completed tasks the user owns or is assigned to
func (r *TaskRepository) CountOpenForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("status <> ?", domain.TaskStatusCompleted).
		Where("(owner_id = ? OR assignee_id = ?)", userID, userID).
		Count(&count).Error
	return count, err
}

// ReassignOpen moves ownership and assignment of non-completed tasks from one user to another
func (r *TaskRepository) ReassignOpen(ctx context.Context, from, to uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&domain.Task{}).
		Where("status <> ? AND owner_id = ?", domain.TaskStatusCompleted, from).
		Update("owner_id", to).Error; err != nil {
		return err
	}
	return db.Model(&domain.Task{}).
		Where("status <> ? AND assignee_id = ?", domain.TaskStatusCompleted, from).
		Update("assignee_id", to).Error
}

// ListDueReminders returns non-completed tasks whose reminder is due and not yet sent
func (r *TaskRepository) ListDueReminders(ctx context.Context, now time.Time, limit int) ([]domain.Task, error) {
	var tasks []domain.Task
	err := r.db.WithContext(ctx).
		Where("reminder_enabled = ? AND reminder_sent_at IS NULL", true).
		Where("reminder_date IS NOT NULL AND reminder_date <= ?", now).
		Where("status <> ?", domain.TaskStatusCompleted).
		Order("reminder_date ASC").
		Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

// MarkReminderSent stamps the reminder unless another run already did
func (r *TaskRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&domain.Task{}).
		Where("id = ? AND reminder_sent_at IS NULL", id).
		Update("reminder_sent_at", at)
	return result.RowsAffected == 1, result.Error
}

func (r *TaskRepository) List(ctx context.Context, filter TaskFilter, page, pageSize int) ([]domain.Task, int64, error) {
	var tasks []domain.Task
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Task{})

	if filter.InvolvingUserID != nil {
		query = query.Where("(owner_id = ? OR assignee_id = ?)", *filter.InvolvingUserID, *filter.InvolvingUserID)
	}
	if filter.AssigneeID != nil {
		query = query.Where("assignee_id = ?", *filter.AssigneeID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date <= ?", *filter.DueBefore)
	}
	if filter.DueAfter != nil {
		query = query.Where("due_date >= ?", *filter.DueAfter)
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Scopes(paginate(page, pageSize)).
		Order("due_date IS NULL, due_date ASC, created_at DESC").
		Find(&tasks).Error
	return tasks, total, err
}
