package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/auth"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/mapper"
	"github.com/integrateisp/ops-api/internal/repository"
	"go.uber.org/zap"
)

// LogEntry is one successful mutating request as seen by the HTTP layer
type LogEntry struct {
	Action     domain.AuditAction
	EntityType string
	EntityID   *uuid.UUID
	StatusCode int
	// NewValues is the sanitized request body; nil is stored as JSON null
	NewValues interface{}

	Path      string
	IPAddress string
	UserAgent string
	RequestID string
}

// AuditQuery filters the audit trail. Action is the raw query value.
type AuditQuery struct {
	UserID     string
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// AuditLogService writes and searches the audit trail
type AuditLogService struct {
	auditRepo *repository.AuditLogRepository
	logger    *zap.Logger
}

func NewAuditLogService(auditRepo *repository.AuditLogRepository, logger *zap.Logger) *AuditLogService {
	return &AuditLogService{
		auditRepo: auditRepo,
		logger:    logger,
	}
}

// Record appends an entry attributed to the user on ctx, if any
func (s *AuditLogService) Record(ctx context.Context, entry LogEntry) error {
	values := []byte("null")
	if entry.NewValues != nil {
		encoded, err := json.Marshal(entry.NewValues)
		if err != nil {
			return fmt.Errorf("failed to encode audit values: %w", err)
		}
		values = encoded
	}

	row := &domain.AuditLog{
		Action:      entry.Action,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		Path:        entry.Path,
		StatusCode:  entry.StatusCode,
		NewValues:   string(values),
		IPAddress:   entry.IPAddress,
		UserAgent:   entry.UserAgent,
		RequestID:   entry.RequestID,
		PerformedAt: time.Now().UTC(),
	}
	if userCtx, ok := auth.FromContext(ctx); ok {
		row.UserID = userCtx.UserID.String()
		row.UserEmail = userCtx.Email
	}

	if err := s.auditRepo.Append(ctx, row); err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// Search returns a page of the trail, newest first
func (s *AuditLogService) Search(ctx context.Context, q AuditQuery) (*domain.PaginatedResponse, error) {
	filter := repository.AuditLogFilter{
		UserID:     q.UserID,
		EntityType: q.EntityType,
		EntityID:   q.EntityID,
		From:       q.From,
		To:         q.To,
	}
	if q.Action != "" {
		action := domain.AuditAction(q.Action)
		if !action.IsValid() {
			return nil, invalidField("action", fmt.Sprintf("unknown action %q", q.Action))
		}
		filter.Action = action
	}
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, invalidField("start_time", "must not be after end_time")
	}

	page, pageSize := repository.NormalizePagination(q.Page, q.PageSize)
	rows, total, err := s.auditRepo.Search(ctx, filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit trail: %w", err)
	}

	dtos := make([]domain.AuditLogDTO, len(rows))
	for i := range rows {
		dtos[i] = mapper.ToAuditLogDTO(&rows[i])
	}

	resp := domain.NewPaginatedResponse(dtos, total, page, pageSize)
	return &resp, nil
}

// Purge deletes entries older than retentionDays and reports how many were removed
func (s *AuditLogService) Purge(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, invalidField("retention_days", "must be positive")
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	count, err := s.auditRepo.PurgeBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge audit trail: %w", err)
	}

	s.logger.Info("audit trail purged",
		zap.Int64("deleted", count),
		zap.Int("retention_days", retentionDays),
		zap.Time("cutoff", cutoff),
	)
	return count, nil
}
