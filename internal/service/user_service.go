package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/auth"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/mapper"
	"github.com/integrateisp/ops-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserService handles user administration and self-service profile edits
type UserService struct {
	db       *gorm.DB
	userRepo *repository.UserRepository
	taskRepo *repository.TaskRepository
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(
	db *gorm.DB,
	userRepo *repository.UserRepository,
	taskRepo *repository.TaskRepository,
	logger *zap.Logger,
) *UserService {
	return &UserService{
		db:       db,
		userRepo: userRepo,
		taskRepo: taskRepo,
		logger:   logger,
	}
}

func (s *UserService) requireManageUsers(ctx context.Context) (*auth.UserContext, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !auth.Authorize(userCtx.Role, auth.CapManageUsers) {
		return nil, ErrPermissionDenied
	}
	return userCtx, nil
}

// List returns users ordered by creation time
func (s *UserService) List(ctx context.Context, search string, page, pageSize int) (*domain.PaginatedResponse, error) {
	if _, err := s.requireManageUsers(ctx); err != nil {
		return nil, err
	}

	page, pageSize = repository.NormalizePagination(page, pageSize)
	users, total, err := s.userRepo.List(ctx, page, pageSize, search)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	dtos := make([]domain.UserDTO, len(users))
	for i := range users {
		dtos[i] = mapper.ToUserDTO(&users[i])
	}
	resp := domain.NewPaginatedResponse(dtos, total, page, pageSize)
	return &resp, nil
}

// Create provisions a new active user
func (s *UserService) Create(ctx context.Context, req *domain.CreateUserRequest) (*domain.UserDTO, error) {
	if _, err := s.requireManageUsers(ctx); err != nil {
		return nil, err
	}
	if !req.Role.IsValid() {
		return nil, invalidField("role", "unknown role")
	}

	taken, err := s.userRepo.EmailTaken(ctx, req.Email, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return nil, ErrEmailTaken
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		Role:         req.Role,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created",
		zap.String("userID", user.ID.String()),
		zap.String("role", string(user.Role)))

	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// GetMe returns the authenticated user
func (s *UserService) GetMe(ctx context.Context) (*domain.UserDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	return s.get(ctx, userCtx.UserID)
}

// GetByID returns a user. Only admins may read other users.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.UserDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	if !userCtx.Is(id) && !auth.Authorize(userCtx.Role, auth.CapManageUsers) {
		return nil, ErrPermissionDenied
	}
	return s.get(ctx, id)
}

func (s *UserService) get(ctx context.Context, id uuid.UUID) (*domain.UserDTO, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// UpdateMe edits the caller's own name, email and password
func (s *UserService) UpdateMe(ctx context.Context, req *domain.UpdateProfileRequest) (*domain.UserDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUnauthorized
	}
	return s.update(ctx, userCtx.UserID, &domain.UpdateUserRequest{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
}

// Update is the admin edit of any user, including role and active flag.
// Clearing the active flag follows the same rules as Deactivate, except that
// open tasks always block it; reassignment is only offered by DELETE.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateUserRequest) (*domain.UserDTO, error) {
	userCtx, err := s.requireManageUsers(ctx)
	if err != nil {
		return nil, err
	}
	if req.Role != nil && !req.Role.IsValid() {
		return nil, invalidField("role", "unknown role")
	}
	if req.IsActive != nil && !*req.IsActive && userCtx.Is(id) {
		return nil, ErrCannotDeleteSelf
	}
	return s.update(ctx, id, req)
}

func (s *UserService) update(ctx context.Context, id uuid.UUID, req *domain.UpdateUserRequest) (*domain.UserDTO, error) {
	var user *domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)

		var err error
		user, err = users.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to get user: %w", err)
		}

		if req.Email != nil {
			taken, err := users.EmailTaken(ctx, *req.Email, user.ID)
			if err != nil {
				return fmt.Errorf("failed to check email: %w", err)
			}
			if taken {
				return ErrEmailTaken
			}
			user.Email = *req.Email
		}
		if req.FullName != nil {
			user.FullName = *req.FullName
		}
		if req.Password != nil {
			hash, err := hashPassword(*req.Password)
			if err != nil {
				return err
			}
			user.PasswordHash = hash
		}
		if req.Role != nil {
			user.Role = *req.Role
		}
		if req.IsActive != nil {
			if user.IsActive && !*req.IsActive {
				open, err := s.taskRepo.WithTx(tx).CountOpenForUser(ctx, user.ID)
				if err != nil {
					return fmt.Errorf("failed to count open tasks: %w", err)
				}
				if open > 0 {
					return ErrUserHasOpenWork
				}
			}
			user.IsActive = *req.IsActive
		}

		if err := users.Update(ctx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	dto := mapper.ToUserDTO(user)
	return &dto, nil
}

// Deactivate soft-deletes a user. Open tasks the user owns or is assigned
// block deactivation unless reassignTo names an active user to take them over.
func (s *UserService) Deactivate(ctx context.Context, id uuid.UUID, reassignTo *uuid.UUID) error {
	userCtx, err := s.requireManageUsers(ctx)
	if err != nil {
		return err
	}
	if userCtx.Is(id) {
		return ErrCannotDeleteSelf
	}
	if reassignTo != nil && *reassignTo == id {
		return invalidField("reassign_to", "cannot reassign to the user being deleted")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.userRepo.WithTx(tx)
		tasks := s.taskRepo.WithTx(tx)

		user, err := users.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to get user: %w", err)
		}

		open, err := tasks.CountOpenForUser(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to count open tasks: %w", err)
		}

		if open > 0 {
			if reassignTo == nil {
				return ErrUserHasOpenWork
			}
			target, err := users.GetByID(ctx, *reassignTo)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrAssigneeNotFound
				}
				return fmt.Errorf("failed to get reassignment target: %w", err)
			}
			if !target.IsActive {
				return invalidField("reassign_to", "target user is inactive")
			}
			if err := tasks.ReassignOpen(ctx, id, target.ID); err != nil {
				return fmt.Errorf("failed to reassign tasks: %w", err)
			}
		}

		user.IsActive = false
		return users.Update(ctx, user)
	})
	if err != nil {
		return err
	}

	s.logger.Info("user deactivated",
		zap.String("userID", id.String()),
		zap.String("by", userCtx.UserID.String()))
	return nil
}
