package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/auth"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/mapper"
	"github.com/integrateisp/ops-api/internal/repository"
	"github.com/integrateisp/ops-api/internal/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrQuotationNotArchived is returned when a quotation has no archived copy yet
var ErrQuotationNotArchived = errors.New("quotation has not been archived")

// QuotationService manages versioned client quotations.
// Status writes are permissive: any known status may follow any other.
type QuotationService struct {
	db            *gorm.DB
	quotationRepo *repository.QuotationRepository
	clientRepo    *repository.ClientRepository
	storage       storage.Storage
	logger        *zap.Logger
}

// NewQuotationService creates a new quotation service. store may be nil, in
// which case sent quotations are not archived.
func NewQuotationService(
	db *gorm.DB,
	quotationRepo *repository.QuotationRepository,
	clientRepo *repository.ClientRepository,
	store storage.Storage,
	logger *zap.Logger,
) *QuotationService {
	return &QuotationService{
		db:            db,
		quotationRepo: quotationRepo,
		clientRepo:    clientRepo,
		storage:       store,
		logger:        logger,
	}
}

// List returns a client's quotations ordered by version
func (s *QuotationService) List(ctx context.Context, clientID uuid.UUID) ([]domain.QuotationDTO, error) {
	exists, err := s.clientRepo.Exists(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to check client: %w", err)
	}
	if !exists {
		return nil, ErrClientNotFound
	}

	quotations, err := s.quotationRepo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}

	dtos := make([]domain.QuotationDTO, len(quotations))
	for i := range quotations {
		dtos[i] = mapper.ToQuotationDTO(&quotations[i])
	}
	return dtos, nil
}

// Create adds a draft quotation with the next version number for the client
func (s *QuotationService) Create(ctx context.Context, clientID uuid.UUID, req *domain.CreateQuotationRequest) (*domain.QuotationDTO, error) {
	if err := requireCapability(ctx, auth.CapManageClients); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.HTMLContent) == "" {
		return nil, invalidField("html_content", "must not be empty")
	}

	var quotation *domain.Quotation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the client row lock serializes version allocation per client
		if _, err := s.clientRepo.WithTx(tx).GetByIDForUpdate(ctx, clientID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClientNotFound
			}
			return fmt.Errorf("failed to get client: %w", err)
		}

		quotations := s.quotationRepo.WithTx(tx)
		latest, err := quotations.MaxVersion(ctx, clientID)
		if err != nil {
			return fmt.Errorf("failed to read latest version: %w", err)
		}

		quotation = &domain.Quotation{
			ClientID:    clientID,
			Version:     latest + 1,
			Status:      domain.QuotationStatusDraft,
			HTMLContent: req.HTMLContent,
		}
		return quotations.Create(ctx, quotation)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quotation created",
		zap.String("clientID", clientID.String()),
		zap.Int("version", quotation.Version),
	)

	dto := mapper.ToQuotationDTO(quotation)
	return &dto, nil
}

// Update edits the HTML and/or status. sent_at is stamped the first time the
// quotation becomes sent, and that first send archives the HTML.
func (s *QuotationService) Update(ctx context.Context, clientID, quotationID uuid.UUID, req *domain.UpdateQuotationRequest) (*domain.QuotationDTO, error) {
	if err := requireCapability(ctx, auth.CapManageClients); err != nil {
		return nil, err
	}
	if req.Status != nil && !req.Status.IsValid() {
		return nil, invalidField("status", "must be draft, sent, accepted or rejected")
	}

	var quotation *domain.Quotation
	firstSend := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		quotations := s.quotationRepo.WithTx(tx)

		var err error
		quotation, err = quotations.GetByClientForUpdate(ctx, clientID, quotationID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrQuotationNotFound
			}
			return fmt.Errorf("failed to get quotation: %w", err)
		}

		if req.HTMLContent != nil {
			quotation.HTMLContent = *req.HTMLContent
		}
		if req.Status != nil {
			quotation.Status = *req.Status
			if quotation.Status == domain.QuotationStatusSent && quotation.SentAt == nil {
				now := time.Now().UTC()
				quotation.SentAt = &now
				firstSend = true
			}
		}

		return quotations.Update(ctx, quotation)
	})
	if err != nil {
		return nil, err
	}

	if firstSend {
		s.archive(ctx, quotation)
	}

	dto := mapper.ToQuotationDTO(quotation)
	return &dto, nil
}

// OpenArchive streams the archived HTML of a sent quotation
func (s *QuotationService) OpenArchive(ctx context.Context, clientID, quotationID uuid.UUID) (io.ReadCloser, error) {
	quotation, err := s.quotationRepo.GetByClient(ctx, clientID, quotationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrQuotationNotFound
		}
		return nil, fmt.Errorf("failed to get quotation: %w", err)
	}
	if quotation.ArchivePath == "" || s.storage == nil {
		return nil, ErrQuotationNotArchived
	}

	rc, err := s.storage.Get(ctx, quotation.ArchivePath)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrQuotationNotArchived
		}
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	return rc, nil
}

// archive stores the sent HTML. Failures are logged; the status change stands.
func (s *QuotationService) archive(ctx context.Context, quotation *domain.Quotation) {
	if s.storage == nil {
		return
	}

	key := ArchiveKey(quotation.ClientID, quotation.Version)
	size, err := s.storage.Put(ctx, key, "text/html; charset=utf-8", strings.NewReader(quotation.HTMLContent))
	if err != nil {
		s.logger.Error("failed to archive quotation",
			zap.String("quotationID", quotation.ID.String()),
			zap.String("key", key),
			zap.Error(err))
		return
	}

	if err := s.quotationRepo.SetArchivePath(ctx, quotation.ID, key); err != nil {
		s.logger.Error("failed to record quotation archive path",
			zap.String("quotationID", quotation.ID.String()),
			zap.Error(err))
		return
	}
	quotation.ArchivePath = key

	s.logger.Info("quotation archived",
		zap.String("quotationID", quotation.ID.String()),
		zap.String("key", key),
		zap.Int64("bytes", size))
}

// ArchiveKey is the storage key of a sent quotation's HTML
func ArchiveKey(clientID uuid.UUID, version int) string {
	return fmt.Sprintf("quotations/%s/v%d.html", clientID, version)
}
