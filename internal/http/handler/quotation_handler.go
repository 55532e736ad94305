package handler

import (
	"io"
	"net/http"

	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/service"
	"go.uber.org/zap"
)

// QuotationHandler handles versioned client quotations and their archived HTML
type QuotationHandler struct {
	quotationService *service.QuotationService
	logger           *zap.Logger
}

// NewQuotationHandler creates a new QuotationHandler instance
func NewQuotationHandler(quotationService *service.QuotationService, logger *zap.Logger) *QuotationHandler {
	return &QuotationHandler{
		quotationService: quotationService,
		logger:           logger,
	}
}

// List godoc
// @Summary List client quotations
// @Tags Quotations
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Success 200 {array} domain.QuotationDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id}/quotations [get]
func (h *QuotationHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	quotations, err := h.quotationService.List(r.Context(), clientID)
	if err != nil {
		handleServiceError(w, h.logger, err, "list quotations")
		return
	}
	respondJSON(w, http.StatusOK, quotations)
}

// Create godoc
// @Summary Create quotation
// @Description Creates a draft with the next version number for the client, starting at 1
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Param request body domain.CreateQuotationRequest true "Quotation"
// @Success 201 {object} domain.QuotationDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id}/quotations [post]
func (h *QuotationHandler) Create(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req domain.CreateQuotationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	quotation, err := h.quotationService.Create(r.Context(), clientID, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create quotation")
		return
	}
	respondJSON(w, http.StatusCreated, quotation)
}

// Update godoc
// @Summary Update quotation
// @Description Any of draft, sent, accepted, rejected may be written. sent_at is set the first time the quotation is sent.
// @Tags Quotations
// @Accept json
// @Produce json
// @Param id path string true "Client ID" format(uuid)
// @Param quotationId path string true "Quotation ID" format(uuid)
// @Param request body domain.UpdateQuotationRequest true "Changes"
// @Success 200 {object} domain.QuotationDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id}/quotations/{quotationId} [put]
func (h *QuotationHandler) Update(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	quotationID, ok := parseID(w, r, "quotationId")
	if !ok {
		return
	}

	var req domain.UpdateQuotationRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	quotation, err := h.quotationService.Update(r.Context(), clientID, quotationID, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update quotation")
		return
	}
	respondJSON(w, http.StatusOK, quotation)
}

// Archive godoc
// @Summary Download archived quotation HTML
// @Tags Quotations
// @Produce html
// @Param id path string true "Client ID" format(uuid)
// @Param quotationId path string true "Quotation ID" format(uuid)
// @Success 200 {string} string "Archived HTML"
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /clients/{id}/quotations/{quotationId}/archive [get]
func (h *QuotationHandler) Archive(w http.ResponseWriter, r *http.Request) {
	clientID, ok := parseID(w, r, "id")
	if !ok {
		return
	}
	quotationID, ok := parseID(w, r, "quotationId")
	if !ok {
		return
	}

	rc, err := h.quotationService.OpenArchive(r.Context(), clientID, quotationID)
	if err != nil {
		handleServiceError(w, h.logger, err, "open quotation archive")
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("failed to stream quotation archive", zap.Error(err))
	}
}
