package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/domain"
	"gorm.io/gorm"
)

type TechnicalDocRepository struct {
	db *gorm.DB
}

func NewTechnicalDocRepository(db *gorm.DB) *TechnicalDocRepository {
	return &TechnicalDocRepository{db: db}
}

func (r *TechnicalDocRepository) Create(ctx context.Context, doc *domain.TechnicalDoc) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

// GetByClient loads a document only if it belongs to the client
func (r *TechnicalDocRepository) GetByClient(ctx context.Context, clientID, id uuid.UUID) (*domain.TechnicalDoc, error) {
	var doc domain.TechnicalDoc
	err := r.db.WithContext(ctx).Where("id = ? AND client_id = ?", id, clientID).First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *TechnicalDocRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.TechnicalDoc, error) {
	var docs []domain.TechnicalDoc
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

func (r *TechnicalDocRepository) Update(ctx context.Context, doc *domain.TechnicalDoc) error {
	return r.db.WithContext(ctx).Save(doc).Error
}
