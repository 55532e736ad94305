package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/domain"
	"gorm.io/gorm"
)

type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// WithTx returns a repository bound to the transaction
func (r *ContactRepository) WithTx(tx *gorm.DB) *ContactRepository {
	return &ContactRepository{db: tx}
}

func (r *ContactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	return r.db.WithContext(ctx).Create(contact).Error
}

// GetByClient loads a contact only if it belongs to the client
func (r *ContactRepository) GetByClient(ctx context.Context, clientID, id uuid.UUID) (*domain.Contact, error) {
	var contact domain.Contact
	err := r.db.WithContext(ctx).Where("id = ? AND client_id = ?", id, clientID).First(&contact).Error
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (r *ContactRepository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]domain.Contact, error) {
	var contacts []domain.Contact
	err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("is_primary DESC, name ASC").
		Find(&contacts).Error
	return contacts, err
}

func (r *ContactRepository) Update(ctx context.Context, contact *domain.Contact) error {
	return r.db.WithContext(ctx).Save(contact).Error
}

func (r *ContactRepository) Delete(ctx context.Context, clientID, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ? AND client_id = ?", id, clientID).Delete(&domain.Contact{})
	return result.RowsAffected > 0, result.Error
}

// ClearPrimary unsets the primary flag on every other contact of the client
func (r *ContactRepository) ClearPrimary(ctx context.Context, clientID, exceptID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&domain.Contact{}).
		Where("client_id = ? AND id <> ? AND is_primary = ?", clientID, exceptID, true).
		Update("is_primary", false).Error
}
