package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/domain"
	"gorm.io/gorm"
)

type QuotationRepository struct {
	db *gorm.DB
}

func NewQuotationRepository(db *gorm.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

// WithTx returns a repository bound to the transaction
func (r *QuotationRepository) WithTx(tx *gorm.DB) *QuotationRepository {
	return &QuotationRepository{db: tx}
}

func (r *QuotationRepository) Create(ctx context.Context, quotation *domain.Quotation) error {
	return r.db.WithContext(ctx).Create(quotation).Error
}

// GetByClient loads a quotation only if it belongs to the client
func (r *QuotationRepository) GetByClient(ctx context.Context, clientID, id uuid.UUID) (*domain.Quotation, error) {
	var quotation domain.Quotation
	err := r.db.WithContext(ctx).Where("id = ? AND client_id = ?", id, clientID).First(&quotation).Error
	if err != nil {
		return nil, err
	}
	return &quotation, nil
}

// GetByClientForUpdate is GetByClient with a row lock
func (r *QuotationRepository) GetByClientForUpdate(ctx context.Context, clientID, id uuid.UUID) (*domain.Quotation, error) {
	var quotation domain.Quotation
	err := r.db.WithContext(ctx).Scopes(forUpdate).Where("id = ? AND client_id = ?", id, clientID).First(&quotation).Error
	if err != nil {
		return nil, err
	}
	return &quotation, nil
}

// MaxVersion returns the highest version for the client, or 0 if none exists
func (r *QuotationRepository) MaxVersion(ctx context.Context, clientID uuid.UUID) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&domain.Quotation{}).
		Where("client_id = ?", clientID).
		Select("COALESCE(MAX(version), 0)").
		Scan(&max).Error
	return max, err
}

func (r *QuotationRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Quotation, error) {
	var quotations []domain.Quotation
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("version ASC").
		Find(&quotations).Error
	return quotations, err
}

func (r *QuotationRepository) Update(ctx context.Context, quotation *domain.Quotation) error {
	return r.db.WithContext(ctx).Save(quotation).Error
}

// SetArchivePath records where the sent quotation was archived
func (r *QuotationRepository) SetArchivePath(ctx context.Context, id uuid.UUID, path string) error {
	return r.db.WithContext(ctx).Model(&domain.Quotation{}).
		Where("id = ?", id).
		Update("archive_path", path).Error
}
