package handler

import (
	"net/http"

	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/service"
	"go.uber.org/zap"
)

// ExpenseHandler handles HTTP requests for the expense approval workflow
type ExpenseHandler struct {
	expenseService *service.ExpenseService
	logger         *zap.Logger
}

// NewExpenseHandler creates a new ExpenseHandler instance
func NewExpenseHandler(expenseService *service.ExpenseService, logger *zap.Logger) *ExpenseHandler {
	return &ExpenseHandler{
		expenseService: expenseService,
		logger:         logger,
	}
}

// List godoc
// @Summary List expenses
// @Description Employees see their own expenses, managers additionally see every submitted expense,
// @Description admins and finance see all. Newest first.
// @Tags Finance
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page (max 200)" default(20)
// @Param status query string false "Filter by status" Enums(submitted, approved, rejected, reimbursed)
// @Param category query string false "Filter by category" Enums(equipment, travel, meals, software, supplies, other)
// @Param client_id query string false "Filter by client" format(uuid)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.ExpenseDTO}
// @Security BearerAuth
// @Router /finance/expenses [get]
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	params := service.ExpenseListParams{}
	params.Page, params.PageSize = parsePagination(r)

	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		status := domain.ExpenseStatus(v)
		if !status.IsValid() {
			respondWithError(w, http.StatusBadRequest, "invalid status")
			return
		}
		params.Status = &status
	}
	if v := q.Get("category"); v != "" {
		category := domain.ExpenseCategory(v)
		if !category.IsValid() {
			respondWithError(w, http.StatusBadRequest, "invalid category")
			return
		}
		params.Category = &category
	}
	clientID, err := queryUUID(r, "client_id")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	params.ClientID = clientID

	result, err := h.expenseService.List(r.Context(), params)
	if err != nil {
		handleServiceError(w, h.logger, err, "list expenses")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Submit expense
// @Tags Finance
// @Accept json
// @Produce json
// @Param request body domain.CreateExpenseRequest true "Expense"
// @Success 201 {object} domain.ExpenseDTO
// @Failure 400 {object} domain.APIError
// @Failure 404 {object} domain.APIError "Client not found"
// @Security BearerAuth
// @Router /finance/expenses [post]
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateExpenseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	expense, err := h.expenseService.Submit(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "submit expense")
		return
	}
	respondJSON(w, http.StatusCreated, expense)
}

// GetByID godoc
// @Summary Get expense
// @Tags Finance
// @Produce json
// @Param id path string true "Expense ID" format(uuid)
// @Success 200 {object} domain.ExpenseDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /finance/expenses/{id} [get]
func (h *ExpenseHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	expense, err := h.expenseService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get expense")
		return
	}
	respondJSON(w, http.StatusOK, expense)
}

// Update godoc
// @Summary Edit expense
// @Description Only while submitted, by the submitter or an admin. Status and approval fields are never changed.
// @Tags Finance
// @Accept json
// @Produce json
// @Param id path string true "Expense ID" format(uuid)
// @Param request body domain.UpdateExpenseRequest true "Changes"
// @Success 200 {object} domain.ExpenseDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError "Expense is no longer submitted"
// @Security BearerAuth
// @Router /finance/expenses/{id} [put]
func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req domain.UpdateExpenseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	expense, err := h.expenseService.Edit(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update expense")
		return
	}
	respondJSON(w, http.StatusOK, expense)
}

// Delete godoc
// @Summary Delete expense
// @Tags Finance
// @Param id path string true "Expense ID" format(uuid)
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /finance/expenses/{id} [delete]
func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	if err := h.expenseService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete expense")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Decide godoc
// @Summary Approve or reject expense
// @Description Legal only while the expense is submitted. Rejections require notes.
// @Description A 409 response carries the current status in current_state.
// @Tags Finance
// @Accept json
// @Produce json
// @Param id path string true "Expense ID" format(uuid)
// @Param request body domain.DecideExpenseRequest true "Decision"
// @Success 200 {object} domain.ExpenseDTO
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /finance/expenses/{id}/approve [post]
func (h *ExpenseHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req domain.DecideExpenseRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	expense, err := h.expenseService.Decide(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "decide expense")
		return
	}
	respondJSON(w, http.StatusOK, expense)
}

// Reimburse godoc
// @Summary Reimburse expense
// @Description Legal only once the expense is approved.
// @Tags Finance
// @Produce json
// @Param id path string true "Expense ID" format(uuid)
// @Success 200 {object} domain.ExpenseDTO
// @Failure 401 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /finance/expenses/{id}/reimburse [post]
func (h *ExpenseHandler) Reimburse(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	expense, err := h.expenseService.Reimburse(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "reimburse expense")
		return
	}
	respondJSON(w, http.StatusOK, expense)
}
