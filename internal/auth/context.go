package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/domain"
)

// UserContext holds authenticated user information
type UserContext struct {
	UserID   uuid.UUID
	FullName string
	Email    string
	Role     domain.UserRole
}

type contextKey string

const userContextKey contextKey = "userContext"

// NewUserContext builds the request identity from a stored user
func NewUserContext(user *domain.User) *UserContext {
	return &UserContext{
		UserID:   user.ID,
		FullName: user.FullName,
		Email:    user.Email,
		Role:     user.Role,
	}
}

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok && user != nil
}

// MustFromContext extracts user context or panics
func MustFromContext(ctx context.Context) *UserContext {
	user, ok := FromContext(ctx)
	if !ok {
		panic("user context not found in context")
	}
	return user
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.UserRole) bool {
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

// IsAdmin checks if user is an administrator
func (u *UserContext) IsAdmin() bool {
	return u.Role == domain.RoleAdmin
}

// Is reports whether the user is the given user id
func (u *UserContext) Is(id uuid.UUID) bool {
	return u.UserID == id
}

// IsRef reports whether the user matches an optional user reference
func (u *UserContext) IsRef(id *uuid.UUID) bool {
	return id != nil && u.UserID == *id
}
