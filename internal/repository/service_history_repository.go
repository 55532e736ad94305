package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/domain"
	"gorm.io/gorm"
)

type ServiceHistoryRepository struct {
	db *gorm.DB
}

func NewServiceHistoryRepository(db *gorm.DB) *ServiceHistoryRepository {
	return &ServiceHistoryRepository{db: db}
}

func (r *ServiceHistoryRepository) Create(ctx context.Context, entry *domain.ServiceHistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByClient returns entries newest first
func (r *ServiceHistoryRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.ServiceHistoryEntry, error) {
	var entries []domain.ServiceHistoryEntry
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("event_date DESC, created_at DESC").
		Find(&entries).Error
	return entries, err
}
