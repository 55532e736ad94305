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

const taskEntity = "task"

// TaskService manages tasks. Status is derived from the completion percentage
// and only SetCompletion changes it.
type TaskService struct {
	db            *gorm.DB
	taskRepo      *repository.TaskRepository
	userRepo      *repository.UserRepository
	clientRepo    *repository.ClientRepository
	notifications *NotificationService
	logger        *zap.Logger
}

// NewTaskService creates a new task service
func NewTaskService(
	db *gorm.DB,
	taskRepo *repository.TaskRepository,
	userRepo *repository.UserRepository,
	clientRepo *repository.ClientRepository,
	notifications *NotificationService,
	logger *zap.Logger,
) *TaskService {
	return &TaskService{
		db:            db,
		taskRepo:      taskRepo,
		userRepo:      userRepo,
		clientRepo:    clientRepo,
		notifications: notifications,
		logger:        logger,
	}
}

// TaskListParams holds list filters and pagination
type TaskListParams struct {
	Status       *domain.TaskStatus
	Priority     *domain.TaskPriority
	DueBefore    *time.Time
	DueAfter     *time.Time
	ClientID     *uuid.UUID
	AssignedToMe bool
	Page         int
	PageSize     int
}

// Create adds a pending task owned by the caller
func (s *TaskService) Create(ctx context.Context, req *domain.CreateTaskRequest) (*domain.TaskDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, invalidField("title", "must not be empty")
	}
	if !req.Priority.IsValid() {
		return nil, invalidField("priority", "must be high, medium or low")
	}
	if !req.Category.IsValid() {
		return nil, invalidField("category", "unknown category")
	}
	dueDate, err := parseOptionalDate("due_date", req.DueDate)
	if err != nil {
		return nil, err
	}

	if req.AssigneeID != nil {
		if !userCtx.Is(*req.AssigneeID) && !auth.Authorize(userCtx.Role, auth.CapAssignToOthers) {
			return nil, ErrPermissionDenied
		}
		if err := s.ensureAssignee(ctx, s.userRepo, *req.AssigneeID); err != nil {
			return nil, err
		}
	}
	if err := s.ensureClient(ctx, req.ClientID); err != nil {
		return nil, err
	}

	task := &domain.Task{
		Title:           title,
		Description:     req.Description,
		Priority:        req.Priority,
		Status:          domain.TaskStatusPending,
		DueDate:         dueDate,
		Category:        req.Category,
		OwnerID:         userCtx.UserID,
		AssigneeID:      req.AssigneeID,
		ClientID:        req.ClientID,
		ReminderEnabled: req.ReminderEnabled,
		ReminderDate:    req.ReminderDate,
	}
	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.logger.Info("task created",
		zap.String("taskID", task.ID.String()),
		zap.String("ownerID", userCtx.UserID.String()),
	)

	if task.AssigneeID != nil && !userCtx.Is(*task.AssigneeID) {
		s.notifyAssigned(ctx, task, userCtx)
	}

	dto := mapper.ToTaskDTO(task)
	return &dto, nil
}

// SetCompletion records progress and derives the status from it:
// 100 is completed, above 0 is in progress, 0 is pending.
func (s *TaskService) SetCompletion(ctx context.Context, id uuid.UUID, percentage int) (*domain.TaskDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if percentage < 0 || percentage > 100 {
		return nil, invalidField("completion_percentage", "must be between 0 and 100")
	}

	var task *domain.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := s.taskRepo.WithTx(tx)

		var err error
		task, err = s.lockTask(ctx, tasks, id)
		if err != nil {
			return err
		}
		if !auth.Can(userCtx.Role, auth.CapCompleteTask, taskOwnership(userCtx, task)) {
			return ErrPermissionDenied
		}

		task.CompletionPercentage = percentage
		task.Status = domain.TaskStatusForCompletion(percentage)
		if task.Status == domain.TaskStatusCompleted {
			if task.CompletedAt == nil {
				now := time.Now().UTC()
				task.CompletedAt = &now
			}
		} else {
			task.CompletedAt = nil
		}

		return tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task progress updated",
		zap.String("taskID", id.String()),
		zap.Int("completion", percentage),
		zap.String("status", string(task.Status)),
	)

	dto := mapper.ToTaskDTO(task)
	return &dto, nil
}

// Assign hands the task to another user. Callers without the assign
// capability may only assign the task to themselves.
func (s *TaskService) Assign(ctx context.Context, id, assigneeID uuid.UUID) (*domain.TaskDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	var task *domain.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := s.taskRepo.WithTx(tx)

		var err error
		task, err = s.lockTask(ctx, tasks, id)
		if err != nil {
			return err
		}
		if !auth.Can(userCtx.Role, auth.CapAssignTask, taskOwnership(userCtx, task)) {
			return ErrPermissionDenied
		}
		if !userCtx.Is(assigneeID) && !auth.Authorize(userCtx.Role, auth.CapAssignToOthers) {
			return ErrPermissionDenied
		}
		if err := s.ensureAssignee(ctx, s.userRepo.WithTx(tx), assigneeID); err != nil {
			return err
		}

		task.AssigneeID = &assigneeID
		return tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("task assigned",
		zap.String("taskID", id.String()),
		zap.String("assigneeID", assigneeID.String()),
		zap.String("by", userCtx.UserID.String()),
	)

	if !userCtx.Is(assigneeID) {
		s.notifyAssigned(ctx, task, userCtx)
	}

	dto := mapper.ToTaskDTO(task)
	return &dto, nil
}

// Edit changes descriptive fields. It never touches status or completion.
func (s *TaskService) Edit(ctx context.Context, id uuid.UUID, req *domain.UpdateTaskRequest) (*domain.TaskDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	var task *domain.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tasks := s.taskRepo.WithTx(tx)

		var err error
		task, err = s.lockTask(ctx, tasks, id)
		if err != nil {
			return err
		}
		if !auth.Can(userCtx.Role, auth.CapEditTask, taskOwnership(userCtx, task)) {
			return ErrPermissionDenied
		}

		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return invalidField("title", "must not be empty")
			}
			task.Title = title
		}
		if req.Description != nil {
			task.Description = *req.Description
		}
		if req.Priority != nil {
			if !req.Priority.IsValid() {
				return invalidField("priority", "must be high, medium or low")
			}
			task.Priority = *req.Priority
		}
		if req.DueDate != nil {
			due, err := parseOptionalDate("due_date", req.DueDate)
			if err != nil {
				return err
			}
			task.DueDate = due
		}
		if req.Category != nil {
			if !req.Category.IsValid() {
				return invalidField("category", "unknown category")
			}
			task.Category = *req.Category
		}
		if req.ClientID != nil {
			exists, err := s.clientRepo.WithTx(tx).Exists(ctx, *req.ClientID)
			if err != nil {
				return fmt.Errorf("failed to check client: %w", err)
			}
			if !exists {
				return ErrClientNotFound
			}
			task.ClientID = req.ClientID
		}
		if req.ReminderEnabled != nil {
			task.ReminderEnabled = *req.ReminderEnabled
		}
		if req.ReminderDate != nil {
			if task.ReminderDate == nil || !task.ReminderDate.Equal(*req.ReminderDate) {
				task.ReminderSentAt = nil
			}
			task.ReminderDate = req.ReminderDate
		}

		return tasks.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToTaskDTO(task)
	return &dto, nil
}

// Delete removes a task; allowed for its owner, admins and managers
func (s *TaskService) Delete(ctx context.Context, id uuid.UUID) error {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return ErrUnauthorized
	}

	task, err := s.getTask(ctx, id)
	if err != nil {
		return err
	}
	if !auth.Can(userCtx.Role, auth.CapDeleteTask, taskOwnership(userCtx, task)) {
		return ErrPermissionDenied
	}

	if err := s.taskRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.logger.Info("task deleted",
		zap.String("taskID", id.String()),
		zap.String("by", userCtx.UserID.String()))
	return nil
}

// GetByID returns a task the caller may see
func (s *TaskService) GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	task, err := s.getTask(ctx, id)
	if err != nil {
		return nil, err
	}

	own := taskOwnership(userCtx, task)
	if !own.IsOwner && !own.IsAssignee && !auth.Authorize(userCtx.Role, auth.CapViewAllTasks) {
		return nil, ErrPermissionDenied
	}

	dto := mapper.ToTaskDTO(task)
	return &dto, nil
}

// List returns visible tasks ordered by due date, undated last
func (s *TaskService) List(ctx context.Context, params TaskListParams) (*domain.PaginatedResponse, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}

	filter := repository.TaskFilter{
		Status:    params.Status,
		Priority:  params.Priority,
		DueBefore: params.DueBefore,
		DueAfter:  params.DueAfter,
		ClientID:  params.ClientID,
	}
	if !auth.Authorize(userCtx.Role, auth.CapViewAllTasks) {
		filter.InvolvingUserID = &userCtx.UserID
	}
	if params.AssignedToMe {
		filter.AssigneeID = &userCtx.UserID
	}

	page, pageSize := repository.NormalizePagination(params.Page, params.PageSize)
	tasks, total, err := s.taskRepo.List(ctx, filter, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	dtos := make([]domain.TaskDTO, len(tasks))
	for i := range tasks {
		dtos[i] = mapper.ToTaskDTO(&tasks[i])
	}
	resp := domain.NewPaginatedResponse(dtos, total, page, pageSize)
	return &resp, nil
}

// SendDueReminders notifies the assignee (or the owner when unassigned) of every
// open task whose reminder time has passed. Each reminder is sent once.
func (s *TaskService) SendDueReminders(ctx context.Context, now time.Time, batchSize int) (int, error) {
	tasks, err := s.taskRepo.ListDueReminders(ctx, now, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list due reminders: %w", err)
	}

	sent := 0
	for i := range tasks {
		task := &tasks[i]

		claimed, err := s.taskRepo.MarkReminderSent(ctx, task.ID, now)
		if err != nil {
			return sent, fmt.Errorf("failed to mark reminder sent: %w", err)
		}
		if !claimed {
			continue
		}

		recipient := task.OwnerID
		if task.AssigneeID != nil {
			recipient = *task.AssigneeID
		}

		message := fmt.Sprintf("Reminder: %q", task.Title)
		if task.DueDate != nil {
			message = fmt.Sprintf("Reminder: %q is due %s", task.Title, task.DueDate.Format(mapper.DateLayout))
		}
		s.notifications.deliver(ctx, Notice{
			Recipient:  recipient,
			Type:       domain.NotificationTaskReminder,
			Title:      "Task reminder",
			Message:    message,
			EntityType: taskEntity,
			EntityID:   &task.ID,
		})
		sent++
	}

	return sent, nil
}

func (s *TaskService) notifyAssigned(ctx context.Context, task *domain.Task, by *auth.UserContext) {
	s.notifications.deliver(ctx, Notice{
		Recipient:  *task.AssigneeID,
		Type:       domain.NotificationTaskAssigned,
		Title:      "New task assigned",
		Message:    fmt.Sprintf("%s assigned you %q", by.FullName, task.Title),
		EntityType: taskEntity,
		EntityID:   &task.ID,
	})
}

func (s *TaskService) getTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (s *TaskService) lockTask(ctx context.Context, tasks *repository.TaskRepository, id uuid.UUID) (*domain.Task, error) {
	task, err := tasks.GetByIDForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func (s *TaskService) ensureAssignee(ctx context.Context, users *repository.UserRepository, id uuid.UUID) error {
	user, err := users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssigneeNotFound
		}
		return fmt.Errorf("failed to get assignee: %w", err)
	}
	if !user.IsActive {
		return invalidField("assignee_id", "user is inactive")
	}
	return nil
}

func (s *TaskService) ensureClient(ctx context.Context, clientID *uuid.UUID) error {
	if clientID == nil {
		return nil
	}
	exists, err := s.clientRepo.Exists(ctx, *clientID)
	if err != nil {
		return fmt.Errorf("failed to check client: %w", err)
	}
	if !exists {
		return ErrClientNotFound
	}
	return nil
}

func taskOwnership(userCtx *auth.UserContext, task *domain.Task) auth.Ownership {
	return auth.Ownership{
		IsOwner:    userCtx.Is(task.OwnerID),
		IsAssignee: userCtx.IsRef(task.AssigneeID),
	}
}

func parseOptionalDate(field string, value *string) (*time.Time, error) {
	if value == nil || strings.TrimSpace(*value) == "" {
		return nil, nil
	}
	t, err := parseDate(field, *value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
