package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/integrateisp/ops-api/internal/mapper"
	"github.com/integrateisp/ops-api/internal/service"
	"go.uber.org/zap"
)

var validate = newValidator()

// newValidator reports field errors under their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// It writes the 400 response itself and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		respondValidationError(w, err)
		return false
	}
	return true
}

// respondValidationError sends a standardized validation error response with specific field messages
func respondValidationError(w http.ResponseWriter, err error) {
	fields := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = formatValidationError(fe)
		}
	}

	respondJSON(w, http.StatusBadRequest, domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "One or more fields failed validation",
		Errors: fields,
	})
}

// formatValidationError creates a human-readable validation error message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Must be a valid email address"
	case "max":
		return fmt.Sprintf("Must be at most %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// respondWithError sends a standardized JSON error response
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, domain.NewAPIError(status, message))
}

// handleServiceError maps service errors onto problem responses
func handleServiceError(w http.ResponseWriter, logger *zap.Logger, err error, action string) {
	var transitionErr *service.TransitionError
	var validationErr *service.ValidationError

	switch {
	case errors.As(err, &transitionErr):
		apiErr := domain.NewAPIError(http.StatusConflict, transitionErr.Error())
		apiErr.Type = domain.ErrorTypeInvalidTransition
		apiErr.CurrentState = transitionErr.Current
		respondJSON(w, http.StatusConflict, apiErr)

	case errors.As(err, &validationErr):
		apiErr := domain.NewAPIError(http.StatusBadRequest, validationErr.Error())
		apiErr.Type = domain.ErrorTypeValidation
		if validationErr.Field != "" {
			apiErr.Errors = map[string]string{validationErr.Field: validationErr.Reason}
		}
		respondJSON(w, http.StatusBadRequest, apiErr)

	case errors.Is(err, service.ErrUnauthorized):
		respondWithError(w, http.StatusUnauthorized, "Not authenticated")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Incorrect email or password")
	case errors.Is(err, service.ErrPermissionDenied):
		respondWithError(w, http.StatusForbidden, "The user doesn't have enough privileges")

	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrExpenseNotFound),
		errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, service.ErrAssigneeNotFound),
		errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, service.ErrContactNotFound),
		errors.Is(err, service.ErrQuotationNotFound),
		errors.Is(err, service.ErrQuotationNotArchived),
		errors.Is(err, service.ErrTechnicalDocNotFound),
		errors.Is(err, service.ErrNotificationNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())

	case errors.Is(err, service.ErrUserHasOpenWork):
		respondWithError(w, http.StatusConflict, err.Error())

	case errors.Is(err, service.ErrInactiveUser):
		respondWithError(w, http.StatusBadRequest, "Inactive user")
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrCannotDeleteSelf),
		errors.Is(err, service.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, err.Error())

	default:
		logger.Error("failed to "+action, zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

// parseID reads a UUID path parameter
func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s", param))
		return uuid.Nil, false
	}
	return id, true
}

// parsePagination reads page and page_size query parameters
func parsePagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	return page, pageSize
}

// queryUUID reads an optional UUID query parameter
func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", name)
	}
	return &id, nil
}

// queryDate reads an optional YYYY-MM-DD query parameter
func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(mapper.DateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: expected YYYY-MM-DD", name)
	}
	return &t, nil
}
