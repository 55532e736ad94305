package service

import (
	"errors"
	"fmt"
)

// Common service errors
var (
	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition is returned when a status change is illegal from the current state
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrUnauthorized is returned when user is not authenticated
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials is returned when email or password do not match
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrInactiveUser is returned when a deactivated user tries to log in
	ErrInactiveUser = errors.New("inactive user")

	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrEmailTaken is returned when another user already has the email
	ErrEmailTaken = errors.New("email already registered")

	// ErrCannotDeleteSelf is returned when an admin tries to deactivate their own account
	ErrCannotDeleteSelf = errors.New("cannot delete your own account")

	// ErrUserHasOpenWork is returned when deactivating a user that still owns or is assigned open tasks
	ErrUserHasOpenWork = errors.New("user has open tasks; pass reassign_to to transfer them")

	ErrExpenseNotFound      = errors.New("expense not found")
	ErrTaskNotFound         = errors.New("task not found")
	ErrAssigneeNotFound     = errors.New("assignee not found")
	ErrClientNotFound       = errors.New("client not found")
	ErrContactNotFound      = errors.New("contact not found")
	ErrQuotationNotFound    = errors.New("quotation not found")
	ErrTechnicalDocNotFound = errors.New("technical doc not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// TransitionError reports an illegal status change together with the state the record is in.
// It matches ErrInvalidTransition with errors.Is.
type TransitionError struct {
	Entity    string
	Current   string
	Requested string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %q to %q", e.Entity, e.Current, e.Requested)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

func invalidTransition(entity, current, requested string) error {
	return &TransitionError{Entity: entity, Current: current, Requested: requested}
}

// ValidationError carries a human-readable reason and matches ErrInvalidInput
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalidField(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
