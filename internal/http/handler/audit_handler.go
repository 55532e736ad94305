package handler

import (
	"net/http"
	"time"

	"github.com/integrateisp/ops-api/internal/service"
	"go.uber.org/zap"
)

// AuditHandler handles audit log related HTTP requests
type AuditHandler struct {
	auditService *service.AuditLogService
	logger       *zap.Logger
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *service.AuditLogService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		logger:       logger,
	}
}

// List godoc
// @Summary List audit logs
// @Description Paginated audit trail of mutating API requests, newest first
// @Tags Audit
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page (max 200)" default(20)
// @Param user_id query string false "Filter by acting user ID"
// @Param action query string false "Filter by action" Enums(create, update, delete)
// @Param entity_type query string false "Filter by entity type"
// @Param entity_id query string false "Filter by entity ID" format(uuid)
// @Param start_time query string false "RFC3339 lower bound"
// @Param end_time query string false "RFC3339 upper bound"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.AuditLogDTO}
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /audit-logs [get]
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := parsePagination(r)
	q := r.URL.Query()

	query := service.AuditQuery{
		UserID:     q.Get("user_id"),
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		Page:       page,
		PageSize:   pageSize,
	}

	var err error
	if query.EntityID, err = queryUUID(r, "entity_id"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	for _, bound := range []struct {
		name string
		dst  **time.Time
	}{
		{"start_time", &query.From},
		{"end_time", &query.To},
	} {
		raw := q.Get(bound.name)
		if raw == "" {
			continue
		}
		t, perr := time.Parse(time.RFC3339, raw)
		if perr != nil {
			respondWithError(w, http.StatusBadRequest, "invalid "+bound.name+": expected RFC3339")
			return
		}
		*bound.dst = &t
	}

	result, err := h.auditService.Search(r.Context(), query)
	if err != nil {
		handleServiceError(w, h.logger, err, "list audit logs")
		return
	}

	respondJSON(w, http.StatusOK, result)
}
