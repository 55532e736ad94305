package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/auth"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/mapper"
	"github.com/integrateisp/ops-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ClientService manages clients and the records they own: contacts,
// service history and technical documentation.
type ClientService struct {
	db            *gorm.DB
	clientRepo    *repository.ClientRepository
	contactRepo   *repository.ContactRepository
	quotationRepo *repository.QuotationRepository
	historyRepo   *repository.ServiceHistoryRepository
	docRepo       *repository.TechnicalDocRepository
	expenseRepo   *repository.ExpenseRepository
	taskRepo      *repository.TaskRepository
	logger        *zap.Logger
}

// NewClientService creates a new client service
func NewClientService(
	db *gorm.DB,
	clientRepo *repository.ClientRepository,
	contactRepo *repository.ContactRepository,
	quotationRepo *repository.QuotationRepository,
	historyRepo *repository.ServiceHistoryRepository,
	docRepo *repository.TechnicalDocRepository,
	expenseRepo *repository.ExpenseRepository,
	taskRepo *repository.TaskRepository,
	logger *zap.Logger,
) *ClientService {
	return &ClientService{
		db:            db,
		clientRepo:    clientRepo,
		contactRepo:   contactRepo,
		quotationRepo: quotationRepo,
		historyRepo:   historyRepo,
		docRepo:       docRepo,
		expenseRepo:   expenseRepo,
		taskRepo:      taskRepo,
		logger:        logger,
	}
}

// List returns clients ordered by name
func (s *ClientService) List(ctx context.Context, status *domain.ClientStatus, search string, page, pageSize int) (*domain.PaginatedResponse, error) {
	page, pageSize = repository.NormalizePagination(page, pageSize)
	clients, total, err := s.clientRepo.List(ctx, status, strings.TrimSpace(search), page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}

	dtos := make([]domain.ClientDTO, len(clients))
	for i := range clients {
		dtos[i] = mapper.ToClientDTO(&clients[i])
	}
	resp := domain.NewPaginatedResponse(dtos, total, page, pageSize)
	return &resp, nil
}

// Create adds a client; new clients default to pending
func (s *ClientService) Create(ctx context.Context, req *domain.CreateClientRequest) (*domain.ClientDTO, error) {
	if err := requireCapability(ctx, auth.CapManageClients); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = domain.ClientStatusPending
	}
	if !status.IsValid() {
		return nil, invalidField("status", "unknown client status")
	}
	if !req.ServicePlan.IsValid() {
		return nil, invalidField("service_plan", "unknown service plan")
	}

	client := &domain.Client{
		Name:        strings.TrimSpace(req.Name),
		Location:    strings.TrimSpace(req.Location),
		Status:      status,
		ServicePlan: req.ServicePlan,
		Notes:       req.Notes,
	}
	if client.Name == "" {
		return nil, invalidField("name", "must not be empty")
	}
	markOnboarded(client)

	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	s.logger.Info("client created", zap.String("clientID", client.ID.String()))

	dto := mapper.ToClientDTO(client)
	return &dto, nil
}

// GetByID returns the client with all nested records
func (s *ClientService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ClientWithDetailsDTO, error) {
	client, err := s.getClient(ctx, id)
	if err != nil {
		return nil, err
	}

	contacts, err := s.contactRepo.ListByClient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	quotations, err := s.quotationRepo.ListByClient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotations: %w", err)
	}
	history, err := s.historyRepo.ListByClient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list service history: %w", err)
	}
	docs, err := s.docRepo.ListByClient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list technical docs: %w", err)
	}

	dto := &domain.ClientWithDetailsDTO{
		ClientDTO:      mapper.ToClientDTO(client),
		Contacts:       make([]domain.ContactDTO, len(contacts)),
		Quotations:     make([]domain.QuotationDTO, len(quotations)),
		ServiceHistory: make([]domain.ServiceHistoryDTO, len(history)),
		TechnicalDocs:  make([]domain.TechnicalDocDTO, len(docs)),
	}
	for i := range contacts {
		dto.Contacts[i] = mapper.ToContactDTO(&contacts[i])
	}
	for i := range quotations {
		dto.Quotations[i] = mapper.ToQuotationDTO(&quotations[i])
	}
	for i := range history {
		dto.ServiceHistory[i] = mapper.ToServiceHistoryDTO(&history[i])
	}
	for i := range docs {
		dto.TechnicalDocs[i] = mapper.ToTechnicalDocDTO(&docs[i])
	}
	return dto, nil
}

// Update edits a client. The first move to active stamps onboarded_at.
func (s *ClientService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateClientRequest) (*domain.ClientDTO, error) {
	if err := requireCapability(ctx, auth.CapManageClients); err != nil {
		return nil, err
	}

	var client *domain.Client
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		clients := s.clientRepo.WithTx(tx)

		var err error
		client, err = clients.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClientNotFound
			}
			return fmt.Errorf("failed to get client: %w", err)
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return invalidField("name", "must not be empty")
			}
			client.Name = name
		}
		if req.Location != nil {
			client.Location = strings.TrimSpace(*req.Location)
		}
		if req.Status != nil {
			if !req.Status.IsValid() {
				return invalidField("status", "unknown client status")
			}
			client.Status = *req.Status
		}
		if req.ServicePlan != nil {
			if !req.ServicePlan.IsValid() {
				return invalidField("service_plan", "unknown service plan")
			}
			client.ServicePlan = *req.ServicePlan
		}
		if req.Notes != nil {
			client.Notes = *req.Notes
		}
		markOnboarded(client)

		return clients.Update(ctx, client)
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToClientDTO(client)
	return &dto, nil
}

// Delete removes a client and everything it owns. Expenses and tasks that
// referenced the client are kept with the reference cleared.
func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	if !auth.Authorize(userCtx.Role, auth.CapDeleteClient) {
		return ErrPermissionDenied
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		clients := s.clientRepo.WithTx(tx)

		if _, err := clients.GetByIDForUpdate(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrClientNotFound
			}
			return fmt.Errorf("failed to get client: %w", err)
		}
		if err := s.expenseRepo.WithTx(tx).DetachClient(ctx, id); err != nil {
			return fmt.Errorf("failed to detach expenses: %w", err)
		}
		if err := s.taskRepo.WithTx(tx).DetachClient(ctx, id); err != nil {
			return fmt.Errorf("failed to detach tasks: %w", err)
		}
		return clients.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("client deleted",
		zap.String("clientID", id.String()),
		zap.String("by", userCtx.UserID.String()))
	return nil
}

// ListContacts returns the contacts of a client, primary first
func (s *ClientService) ListContacts(ctx context.Context, clientID uuid.UUID) ([]domain.ContactDTO, error) {
	if _, err := s.getClient(ctx, clientID); err != nil {
		return nil, err
	}

	contacts, err := s.contactRepo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	dtos := make([]domain.ContactDTO, len(contacts))
	for i := range contacts {
		dtos[i] = mapper.ToContactDTO(&contacts[i])
	}
	return dtos, nil
}

// CreateContact adds a contact. Marking it primary clears the previous primary.
func (s *ClientService) CreateContact(ctx context.Context, clientID uuid.UUID, req *domain.CreateContactRequest) (*domain.ContactDTO, error) {
	channel := req.PreferredChannel
	if channel == "" {
		channel = domain.ChannelEmail
	}
	if !channel.IsValid() {
		return nil, invalidField("preferred_contact", "unknown channel")
	}

	contact := &domain.Contact{
		ClientID:         clientID,
		Name:             strings.TrimSpace(req.Name),
		Role:             req.Role,
		Department:       req.Department,
		Email:            strings.TrimSpace(req.Email),
		Phone:            req.Phone,
		PreferredChannel: channel,
		IsPrimary:        req.IsPrimary,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockClient(ctx, tx, clientID); err != nil {
			return err
		}
		contacts := s.contactRepo.WithTx(tx)
		if err := contacts.Create(ctx, contact); err != nil {
			return fmt.Errorf("failed to create contact: %w", err)
		}
		if contact.IsPrimary {
			return contacts.ClearPrimary(ctx, clientID, contact.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToContactDTO(contact)
	return &dto, nil
}

// UpdateContact edits a contact of the client
func (s *ClientService) UpdateContact(ctx context.Context, clientID, contactID uuid.UUID, req *domain.UpdateContactRequest) (*domain.ContactDTO, error) {
	var contact *domain.Contact
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.lockClient(ctx, tx, clientID); err != nil {
			return err
		}
		contacts := s.contactRepo.WithTx(tx)

		var err error
		contact, err = contacts.GetByClient(ctx, clientID, contactID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrContactNotFound
			}
			return fmt.Errorf("failed to get contact: %w", err)
		}

		if req.Name != nil {
			contact.Name = strings.TrimSpace(*req.Name)
		}
		if req.Role != nil {
			contact.Role = *req.Role
		}
		if req.Department != nil {
			contact.Department = *req.Department
		}
		if req.Email != nil {
			contact.Email = strings.TrimSpace(*req.Email)
		}
		if req.Phone != nil {
			contact.Phone = *req.Phone
		}
		if req.PreferredChannel != nil {
			if !req.PreferredChannel.IsValid() {
				return invalidField("preferred_contact", "unknown channel")
			}
			contact.PreferredChannel = *req.PreferredChannel
		}
		if req.IsPrimary != nil {
			contact.IsPrimary = *req.IsPrimary
		}

		if err := contacts.Update(ctx, contact); err != nil {
			return fmt.Errorf("failed to update contact: %w", err)
		}
		if contact.IsPrimary {
			return contacts.ClearPrimary(ctx, clientID, contact.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToContactDTO(contact)
	return &dto, nil
}

// DeleteContact removes a contact of the client
func (s *ClientService) DeleteContact(ctx context.Context, clientID, contactID uuid.UUID) error {
	deleted, err := s.contactRepo.Delete(ctx, clientID, contactID)
	if err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	if !deleted {
		return ErrContactNotFound
	}
	return nil
}

// ListServiceHistory returns a client's service events, newest first
func (s *ClientService) ListServiceHistory(ctx context.Context, clientID uuid.UUID) ([]domain.ServiceHistoryDTO, error) {
	if _, err := s.getClient(ctx, clientID); err != nil {
		return nil, err
	}

	entries, err := s.historyRepo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list service history: %w", err)
	}

	dtos := make([]domain.ServiceHistoryDTO, len(entries))
	for i := range entries {
		dtos[i] = mapper.ToServiceHistoryDTO(&entries[i])
	}
	return dtos, nil
}

// AddServiceHistory records a service event; staff defaults to the caller
func (s *ClientService) AddServiceHistory(ctx context.Context, clientID uuid.UUID, req *domain.CreateServiceHistoryRequest) (*domain.ServiceHistoryDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !req.EventType.IsValid() {
		return nil, invalidField("event_type", "unknown event type")
	}
	if !req.Channel.IsValid() {
		return nil, invalidField("communication_channel", "unknown channel")
	}
	eventDate, err := parseDate("event_date", req.EventDate)
	if err != nil {
		return nil, err
	}
	if _, err := s.getClient(ctx, clientID); err != nil {
		return nil, err
	}

	staffID := req.StaffID
	if staffID == nil {
		staffID = &userCtx.UserID
	}

	entry := &domain.ServiceHistoryEntry{
		ClientID:    clientID,
		EventType:   req.EventType,
		EventDate:   eventDate,
		Description: req.Description,
		StaffID:     staffID,
		Channel:     req.Channel,
	}
	if err := s.historyRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create service history entry: %w", err)
	}

	dto := mapper.ToServiceHistoryDTO(entry)
	return &dto, nil
}

// ListTechnicalDocs returns a client's technical documentation
func (s *ClientService) ListTechnicalDocs(ctx context.Context, clientID uuid.UUID) ([]domain.TechnicalDocDTO, error) {
	if _, err := s.getClient(ctx, clientID); err != nil {
		return nil, err
	}

	docs, err := s.docRepo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list technical docs: %w", err)
	}

	dtos := make([]domain.TechnicalDocDTO, len(docs))
	for i := range docs {
		dtos[i] = mapper.ToTechnicalDocDTO(&docs[i])
	}
	return dtos, nil
}

func (s *ClientService) CreateTechnicalDoc(ctx context.Context, clientID uuid.UUID, req *domain.CreateTechnicalDocRequest) (*domain.TechnicalDocDTO, error) {
	if _, err := s.getClient(ctx, clientID); err != nil {
		return nil, err
	}

	doc := &domain.TechnicalDoc{
		ClientID: clientID,
		DocType:  strings.TrimSpace(req.DocType),
		Content:  req.Content,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create technical doc: %w", err)
	}

	dto := mapper.ToTechnicalDocDTO(doc)
	return &dto, nil
}

func (s *ClientService) UpdateTechnicalDoc(ctx context.Context, clientID, docID uuid.UUID, req *domain.UpdateTechnicalDocRequest) (*domain.TechnicalDocDTO, error) {
	doc, err := s.docRepo.GetByClient(ctx, clientID, docID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTechnicalDocNotFound
		}
		return nil, fmt.Errorf("failed to get technical doc: %w", err)
	}

	if req.DocType != nil {
		doc.DocType = strings.TrimSpace(*req.DocType)
	}
	if req.Content != nil {
		doc.Content = *req.Content
	}
	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to update technical doc: %w", err)
	}

	dto := mapper.ToTechnicalDocDTO(doc)
	return &dto, nil
}

func (s *ClientService) getClient(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return client, nil
}

func (s *ClientService) lockClient(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	if _, err := s.clientRepo.WithTx(tx).GetByIDForUpdate(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClientNotFound
		}
		return fmt.Errorf("failed to get client: %w", err)
	}
	return nil
}

func markOnboarded(client *domain.Client) {
	if client.Status == domain.ClientStatusActive && client.OnboardedAt == nil {
		now := time.Now().UTC()
		client.OnboardedAt = &now
	}
}

// requireCapability checks the caller's role against a capability that does not depend on ownership
func requireCapability(ctx context.Context, capability auth.Capability) error {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}
	if !auth.Authorize(userCtx.Role, capability) {
		return ErrPermissionDenied
	}
	return nil
}
