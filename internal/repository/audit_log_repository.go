package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/domain"
	"gorm.io/gorm"
)

// AuditLogFilter narrows an audit trail search. Zero values match everything.
type AuditLogFilter struct {
	UserID     string
	Action     domain.AuditAction
	EntityType string
	EntityID   *uuid.UUID
	// From and To bound performed_at, both inclusive
	From *time.Time
	To   *time.Time
}

// AuditLogRepository is the append-only store behind the audit trail
type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Append(ctx context.Context, entry *domain.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Search returns one page of matching entries, newest first, with the total match count
func (r *AuditLogRepository) Search(ctx context.Context, filter AuditLogFilter, page, pageSize int) ([]domain.AuditLog, int64, error) {
	var entries []domain.AuditLog
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.AuditLog{}).Scopes(trail(filter))
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("performed_at DESC").
		Scopes(paginate(page, pageSize)).
		Find(&entries).Error
	return entries, total, err
}

// PurgeBefore deletes entries performed strictly before the cutoff
func (r *AuditLogRepository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("performed_at < ?", cutoff).
		Delete(&domain.AuditLog{})
	return result.RowsAffected, result.Error
}

func trail(filter AuditLogFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.UserID != "" {
			db = db.Where("user_id = ?", filter.UserID)
		}
		if filter.Action != "" {
			db = db.Where("action = ?", filter.Action)
		}
		if filter.EntityType != "" {
			db = db.Where("entity_type = ?", filter.EntityType)
		}
		if filter.EntityID != nil {
			db = db.Where("entity_id = ?", *filter.EntityID)
		}
		if filter.From != nil {
			db = db.Where("performed_at >= ?", *filter.From)
		}
		if filter.To != nil {
			db = db.Where("performed_at <= ?", *filter.To)
		}
		return db
	}
}
