package handler

import (
	"net/http"

	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/service"
	"go.uber.org/zap"
)

// TaskHandler handles HTTP requests for tasks, their assignment and completion
type TaskHandler struct {
	taskService *service.TaskService
	logger      *zap.Logger
}

// NewTaskHandler creates a new TaskHandler instance
func NewTaskHandler(taskService *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
	}
}

// List godoc
// @Summary List tasks
// @Description Ordered by due date ascending, undated tasks last. Employees see tasks they own or are assigned to.
// @Tags Tasks
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page (max 200)" default(20)
// @Param status query string false "Filter by status" Enums(pending, in_progress, completed)
// @Param priority query string false "Filter by priority" Enums(high, medium, low)
// @Param due_before query string false "Due on or before (YYYY-MM-DD)"
// @Param due_after query string false "Due on or after (YYYY-MM-DD)"
// @Param assigned_to_me query bool false "Only tasks assigned to the caller"
// @Param client_id query string false "Filter by client" format(uuid)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.TaskDTO}
// @Security BearerAuth
// @Router /tasks [get]
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	params := service.TaskListParams{}
	params.Page, params.PageSize = parsePagination(r)

	q := r.URL.Query()
	if v := q.Get("status"); v != "" {
		status := domain.TaskStatus(v)
		if !status.IsValid() {
			respondWithError(w, http.StatusBadRequest, "invalid status")
			return
		}
		params.Status = &status
	}
	if v := q.Get("priority"); v != "" {
		priority := domain.TaskPriority(v)
		if !priority.IsValid() {
			respondWithError(w, http.StatusBadRequest, "invalid priority")
			return
		}
		params.Priority = &priority
	}

	var err error
	if params.DueBefore, err = queryDate(r, "due_before"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if params.DueAfter, err = queryDate(r, "due_after"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if params.ClientID, err = queryUUID(r, "client_id"); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	params.AssignedToMe = q.Get("assigned_to_me") == "true"

	result, err := h.taskService.List(r.Context(), params)
	if err != nil {
		handleServiceError(w, h.logger, err, "list tasks")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Create godoc
// @Summary Create task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param request body domain.CreateTaskRequest true "Task"
// @Success 201 {object} domain.TaskDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError "Employees may only assign to themselves"
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tasks [post]
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.Create(r.Context(), &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "create task")
		return
	}
	respondJSON(w, http.StatusCreated, task)
}

// GetByID godoc
// @Summary Get task
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID" format(uuid)
// @Success 200 {object} domain.TaskDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetByID(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.logger, err, "get task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// Update godoc
// @Summary Edit task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID" format(uuid)
// @Param request body domain.UpdateTaskRequest true "Changes"
// @Success 200 {object} domain.TaskDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tasks/{id} [put]
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req domain.UpdateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.Edit(r.Context(), id, &req)
	if err != nil {
		handleServiceError(w, h.logger, err, "update task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// Delete godoc
// @Summary Delete task
// @Tags Tasks
// @Param id path string true "Task ID" format(uuid)
// @Success 204
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tasks/{id} [delete]
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	if err := h.taskService.Delete(r.Context(), id); err != nil {
		handleServiceError(w, h.logger, err, "delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Complete godoc
// @Summary Set task completion
// @Description Sets the completion percentage (0-100). 100 completes the task, anything above 0 marks it in progress.
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID" format(uuid)
// @Param request body domain.CompleteTaskRequest true "Completion"
// @Success 200 {object} domain.TaskDTO
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tasks/{id}/complete [post]
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req domain.CompleteTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.SetCompletion(r.Context(), id, *req.CompletionPercentage)
	if err != nil {
		handleServiceError(w, h.logger, err, "update task completion")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// Assign godoc
// @Summary Assign task
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID" format(uuid)
// @Param request body domain.AssignTaskRequest true "Assignee"
// @Success 200 {object} domain.TaskDTO
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /tasks/{id}/assign [post]
func (h *TaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req domain.AssignTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.Assign(r.Context(), id, req.AssigneeID)
	if err != nil {
		handleServiceError(w, h.logger, err, "assign task")
		return
	}
	respondJSON(w, http.StatusOK, task)
}
