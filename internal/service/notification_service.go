package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/auth"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/mapper"
	"github.com/integrateisp/ops-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Notice is a message addressed to one user about one entity
type Notice struct {
	Recipient  uuid.UUID
	Type       domain.NotificationType
	Title      string
	Message    string
	EntityType string
	EntityID   *uuid.UUID
}

// NotificationListParams filters the caller's inbox
type NotificationListParams struct {
	Page       int
	PageSize   int
	UnreadOnly bool
	// Type is the raw query value; empty means every type
	Type string
}

// NotificationService delivers in-app notifications and serves each user's inbox
type NotificationService struct {
	notificationRepo *repository.NotificationRepository
	logger           *zap.Logger
}

func NewNotificationService(notificationRepo *repository.NotificationRepository, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

// Send stores a notice in the recipient's inbox
func (s *NotificationService) Send(ctx context.Context, notice Notice) (*domain.NotificationDTO, error) {
	if !notice.Type.IsValid() {
		return nil, invalidField("type", fmt.Sprintf("unknown notification type %q", notice.Type))
	}

	notification := &domain.Notification{
		UserID:     notice.Recipient,
		Type:       notice.Type,
		Title:      notice.Title,
		Message:    notice.Message,
		EntityType: notice.EntityType,
		EntityID:   notice.EntityID,
	}
	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	s.logger.Info("notification sent",
		zap.String("notificationID", notification.ID.String()),
		zap.String("recipientID", notice.Recipient.String()),
		zap.String("type", string(notice.Type)),
	)

	dto := mapper.ToNotificationDTO(notification)
	return &dto, nil
}

// deliver sends a notice after a lifecycle change has been committed.
// Failures are logged and never reach the caller.
func (s *NotificationService) deliver(ctx context.Context, notice Notice) {
	if s == nil {
		return
	}
	if _, err := s.Send(ctx, notice); err != nil {
		s.logger.Warn("failed to send notification",
			zap.String("recipientID", notice.Recipient.String()),
			zap.String("type", string(notice.Type)),
			zap.Error(err),
		)
	}
}

// ListMine returns the caller's notifications, newest first
func (s *NotificationService) ListMine(ctx context.Context, params NotificationListParams) (*domain.PaginatedResponse, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	filter := repository.NotificationFilter{RecipientID: userCtx.UserID, UnreadOnly: params.UnreadOnly}
	if params.Type != "" {
		t := domain.NotificationType(params.Type)
		if !t.IsValid() {
			return nil, invalidField("type", fmt.Sprintf("unknown notification type %q", params.Type))
		}
		filter.Type = &t
	}

	page, pageSize := repository.NormalizePagination(params.Page, params.PageSize)
	notifications, total, err := s.notificationRepo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	dtos := make([]domain.NotificationDTO, len(notifications))
	for i := range notifications {
		dtos[i] = mapper.ToNotificationDTO(&notifications[i])
	}

	resp := domain.NewPaginatedResponse(dtos, total, page, pageSize)
	return &resp, nil
}

// MarkRead marks one of the caller's notifications as read. Other users'
// notifications are reported as not found. Repeating the call is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, id uuid.UUID) error {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}

	if _, err := s.notificationRepo.GetForRecipient(ctx, userCtx.UserID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to get notification: %w", err)
	}

	if _, err := s.notificationRepo.MarkRead(ctx, userCtx.UserID, &id, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

// MarkAllRead clears the caller's unread inbox and reports how many changed
func (s *NotificationService) MarkAllRead(ctx context.Context) (int64, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return 0, ErrUnauthorized
	}

	count, err := s.notificationRepo.MarkRead(ctx, userCtx.UserID, nil, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}

	s.logger.Debug("inbox marked as read",
		zap.String("userID", userCtx.UserID.String()),
		zap.Int64("count", count),
	)
	return count, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context) (*domain.UnreadCountDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	count, err := s.notificationRepo.CountUnread(ctx, userCtx.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return &domain.UnreadCountDTO{Count: count}, nil
}
