package handler

import (
	"net/http"
	"strings"

	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/service"
	"go.uber.org/zap"
)

// ClientHandler serves clients and their nested contacts, service history and technical docs
type ClientHandler struct {
	clientService *service.ClientService
	logger        *zap.Logger
}

// NewClientHandler creates a new ClientHandler instance
func NewClientHandler(clientService *service.ClientService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{
		clientService: clientService,
		logger:        logger,
	}
}

// List godoc
// @Summary List clients
// @Tags Clients
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page (max 200)" default(20)
// @Param status query string false "Filter by status" Enums(active, pending, inactive)
// @Param search query string false "Match on name or location"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ClientDTO}
// @Security BearerAuth
// @Router /clients [get]
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)

	var status *domain.ClientStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := domain.ClientStatus(v)
		if !s.IsValid() {
			respondWithError(w, http.StatusBadRequest, "invalid status")
			return
		}
		status = &s
	}

	result, err := h.clientService.List(r.Context(), status, strings.TrimSpace(r.URL.Query().Get("search")), page, pageSize)
	if err != nil {
		handleServiceError(w, h.logger, err, "list clients")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Create client
// @Tags Clients
// @Accept json
// @Produce json
// @Param request body domain.CreateClientRequest true "Client"
// @Success 201 {object} domain.ClientDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /clients [post]
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateClientRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	client, err := h.clientService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create client")
		return
	}
	respondJSON(w, http.StatusCreated, client)
}

// GetByID godoc
// @Summary Get client with nested records
// @Tags Clients
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Success 200 {object} domain.ClientWithDetailsDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id} [get]
func (h *ClientHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	client, err := h.clientService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get client")
		return
	}
	respondJSON(w, http.StatusOK, client)
}

// Update godoc
// @Summary Update client
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Param request body domain.UpdateClientRequest true "Changes"
// @Success 200 {object} domain.ClientDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id} [put]
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req domain.UpdateClientRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	client, err := h.clientService.Update(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update client")
		return
	}
	respondJSON(w, http.StatusOK, client)
}

// Delete godoc
// @Summary Delete client
// @Description Removes the client with its contacts, quotations, service history and technical docs
// @Tags Clients
// @Param id path string true "Client ID" format(uuid)
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id} [delete]
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	if err := h.clientService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListContacts godoc
// @Summary List client contacts
// @Tags Clients
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Success 200 {array} domain.ContactDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id}/contacts [get]
func (h *ClientHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	contacts, err := h.clientService.ListContacts(r.Context(), clientID)
	if err != nil {
		handleServiceError(w, h.logger, err, "list contacts")
		return
	}
	respondJSON(w, http.StatusOK, contacts)
}

// CreateContact godoc
// @Summary Add client contact
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Param request body domain.CreateContactRequest true "Contact"
// @Success 201 {object} domain.ContactDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id}/contacts [post]
func (h *ClientHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req domain.CreateContactRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	contact, err := h.clientService.CreateContact(r.Context(), clientID, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create contact")
		return
	}
	respondJSON(w, http.StatusCreated, contact)
}

// UpdateContact godoc
// @Summary Update client contact
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Param contactId path string true "Contact ID" format(uuid)
// @Param request body domain.UpdateContactRequest true "Changes"
// @Success 200 {object} domain.ContactDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id}/contacts/{contactId} [put]
func (h *ClientHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	contactID, ok := parseID(w, r, "contactId")
	if !ok {
		return
	}

	var req domain.UpdateContactRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	contact, err := h.clientService.UpdateContact(r.Context(), clientID, contactID, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update contact")
		return
	}
	respondJSON(w, http.StatusOK, contact)
}

// DeleteContact godoc
// @Summary Delete client contact
// @Tags Clients
// @Param id path string true "Client ID" format(uuid)
// @Param contactId path string true "Contact ID" format(uuid)
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id}/contacts/{contactId} [delete]
func (h *ClientHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	contactID, ok := parseID(w, r, "contactId")
	if !ok {
		return
	}

	if err := h.clientService.DeleteContact(r.Context(), clientID, contactID); err != nil {
		handleServiceError(w, h.logger, err, "delete contact")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListServiceHistory godoc
// @Summary List client service history
// @Tags Clients
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Success 200 {array} domain.ServiceHistoryDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id}/service-history [get]
func (h *ClientHandler) ListServiceHistory(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	entries, err := h.clientService.ListServiceHistory(r.Context(), clientID)
	if err != nil {
		handleServiceError(w, h.logger, err, "list service history")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// CreateServiceHistory godoc
// @Summary Record service event
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Param request body domain.CreateServiceHistoryRequest true "Event"
// @Success 201 {object} domain.ServiceHistoryDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id}/service-history [post]
func (h *ClientHandler) CreateServiceHistory(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req domain.CreateServiceHistoryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	entry, err := h.clientService.AddServiceHistory(r.Context(), clientID, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create service history entry")
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

// ListTechnicalDocs godoc
// @Summary List client technical docs
// @Tags Clients
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Success 200 {array} domain.TechnicalDocDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id}/technical-docs [get]
func (h *ClientHandler) ListTechnicalDocs(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	docs, err := h.clientService.ListTechnicalDocs(r.Context(), clientID)
	if err != nil {
		handleServiceError(w, h.logger, err, "list technical docs")
		return
	}
	respondJSON(w, http.StatusOK, docs)
}

// CreateTechnicalDoc godoc
// @Summary Add technical doc
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Param request body domain.CreateTechnicalDocRequest true "Document"
// @Success 201 {object} domain.TechnicalDocDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id}/technical-docs [post]
func (h *ClientHandler) CreateTechnicalDoc(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req domain.CreateTechnicalDocRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	doc, err := h.clientService.CreateTechnicalDoc(r.Context(), clientID, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create technical doc")
		return
	}
	respondJSON(w, http.StatusCreated, doc)
}

// UpdateTechnicalDoc godoc
// @Summary Update technical doc
// @Tags Clients
// @Accept json
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Param docId path string true "Document ID" format(uuid)
// @Param request body domain.UpdateTechnicalDocRequest true "Changes"
// @Success 200 {object} domain.TechnicalDocDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id}/technical-docs/{docId} [put]
func (h *ClientHandler) UpdateTechnicalDoc(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	docID, ok := parseID(w, r, "docId")
	if !ok {
		return
	}

	var req domain.UpdateTechnicalDocRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	doc, err := h.clientService.UpdateTechnicalDoc(r.Context(), clientID, docID, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update technical doc")
		return
	}
	respondJSON(w, http.StatusOK, doc)
}
