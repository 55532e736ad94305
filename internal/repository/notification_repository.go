package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/domain"
	"gorm.io/gorm"
)

// NotificationFilter selects one recipient's inbox
type NotificationFilter struct {
	RecipientID uuid.UUID
	UnreadOnly  bool
	Type        *domain.NotificationType
}

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// WithTx returns a repository bound to the transaction
func (r *NotificationRepository) WithTx(tx *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: tx}
}

func (r *NotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

// GetForRecipient loads a notification only if it belongs to the recipient
func (r *NotificationRepository) GetForRecipient(ctx context.Context, recipientID, id uuid.UUID) (*domain.Notification, error) {
	var notification domain.Notification
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, recipientID).
		First(&notification).Error
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *NotificationRepository) List(ctx context.Context, filter NotificationFilter, page, pageSize int) ([]domain.Notification, int64, error) {
	var notifications []domain.Notification
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Notification{}).Scopes(inbox(filter))

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Scopes(paginate(page, pageSize)).Order("created_at DESC").Find(&notifications).Error
	return notifications, total, err
}

func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Scopes(inbox(NotificationFilter{RecipientID: recipientID, UnreadOnly: true})).
		Count(&count).Error
	return count, err
}

// MarkRead flags unread notifications of the recipient as read. A nil id
// marks the whole inbox. It returns the number of rows changed.
func (r *NotificationRepository) MarkRead(ctx context.Context, recipientID uuid.UUID, id *uuid.UUID, at time.Time) (int64, error) {
	query := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Scopes(inbox(NotificationFilter{RecipientID: recipientID, UnreadOnly: true}))
	if id != nil {
		query = query.Where("id = ?", *id)
	}

	result := query.Updates(map[string]interface{}{
		"read":    true,
		"read_at": at,
	})
	return result.RowsAffected, result.Error
}

func inbox(filter NotificationFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", filter.RecipientID)
		if filter.UnreadOnly {
			db = db.Where("read = ?", false)
		}
		if filter.Type != nil {
			db = db.Where("type = ?", *filter.Type)
		}
		return db
	}
}
