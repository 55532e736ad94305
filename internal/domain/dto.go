package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DTOs for API requests and responses

type UserDTO struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Role        UserRole   `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	User        UserDTO `json:"user"`
}

type CreateUserRequest struct {
	Email    string   `json:"email" validate:"required,email,max=255"`
	Password string   `json:"password" validate:"required,min=8,max=128"`
	FullName string   `json:"full_name" validate:"required,max=200"`
	Role     UserRole `json:"role" validate:"required,oneof=admin manager employee finance"`
}

// UpdateUserRequest is used by admins; nil fields are left unchanged
type UpdateUserRequest struct {
	Email    *string   `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Password *string   `json:"password,omitempty" validate:"omitempty,min=8,max=128"`
	FullName *string   `json:"full_name,omitempty" validate:"omitempty,max=200"`
	Role     *UserRole `json:"role,omitempty" validate:"omitempty,oneof=admin manager employee finance"`
	IsActive *bool     `json:"is_active,omitempty"`
}

// UpdateProfileRequest is used by a user editing their own account
type UpdateProfileRequest struct {
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8,max=128"`
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=200"`
}

type ExpenseDTO struct {
	ID           uuid.UUID       `json:"id"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Category     ExpenseCategory `json:"category"`
	Date         string          `json:"date"`
	Status       ExpenseStatus   `json:"status"`
	SubmitterID  uuid.UUID       `json:"submitter_id"`
	ApproverID   *uuid.UUID      `json:"approver_id,omitempty"`
	ApprovedAt   *time.Time      `json:"approved_at,omitempty"`
	ReimburserID *uuid.UUID      `json:"reimburser_id,omitempty"`
	ReimbursedAt *time.Time      `json:"reimbursed_at,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	ClientID     *uuid.UUID      `json:"client_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type CreateExpenseRequest struct {
	Description string          `json:"description" validate:"required,max=500"`
	Amount      decimal.Decimal `json:"amount"`
	Category    ExpenseCategory `json:"category" validate:"required,oneof=equipment travel meals software supplies other"`
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Notes       string          `json:"notes,omitempty" validate:"max=2000"`
	ClientID    *uuid.UUID      `json:"client_id,omitempty"`
}

// UpdateExpenseRequest edits a submitted expense; nil fields are left unchanged
type UpdateExpenseRequest struct {
	Description *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    *ExpenseCategory `json:"category,omitempty" validate:"omitempty,oneof=equipment travel meals software supplies other"`
	Date        *string          `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Notes       *string          `json:"notes,omitempty" validate:"omitempty,max=2000"`
	ClientID    *uuid.UUID       `json:"client_id,omitempty"`
}

type DecideExpenseRequest struct {
	Status ExpenseStatus `json:"status" validate:"required,oneof=approved rejected"`
	Notes  string        `json:"notes,omitempty" validate:"max=2000"`
}

type TaskDTO struct {
	ID                   uuid.UUID    `json:"id"`
	Title                string       `json:"title"`
	Description          string       `json:"description,omitempty"`
	Priority             TaskPriority `json:"priority"`
	Status               TaskStatus   `json:"status"`
	CompletionPercentage int          `json:"completion_percentage"`
	DueDate              *string      `json:"due_date,omitempty"`
	Category             TaskCategory `json:"category,omitempty"`
	OwnerID              uuid.UUID    `json:"owner_id"`
	AssigneeID           *uuid.UUID   `json:"assignee_id,omitempty"`
	ClientID             *uuid.UUID   `json:"client_id,omitempty"`
	CompletedAt          *time.Time   `json:"completed_at,omitempty"`
	ReminderEnabled      bool         `json:"reminder_enabled"`
	ReminderDate         *time.Time   `json:"reminder_date,omitempty"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

type CreateTaskRequest struct {
	Title           string       `json:"title" validate:"required,max=200"`
	Description     string       `json:"description,omitempty" validate:"max=5000"`
	Priority        TaskPriority `json:"priority" validate:"required,oneof=high medium low"`
	DueDate         *string      `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Category        TaskCategory `json:"category,omitempty" validate:"omitempty,oneof=meeting call documentation development other"`
	AssigneeID      *uuid.UUID   `json:"assignee_id,omitempty"`
	ClientID        *uuid.UUID   `json:"client_id,omitempty"`
	ReminderEnabled bool         `json:"reminder_enabled"`
	ReminderDate    *time.Time   `json:"reminder_date,omitempty"`
}

// UpdateTaskRequest edits task details; nil fields are left unchanged
type UpdateTaskRequest struct {
	Title           *string       `json:"title,omitempty" validate:"omitempty,max=200"`
	Description     *string       `json:"description,omitempty" validate:"omitempty,max=5000"`
	Priority        *TaskPriority `json:"priority,omitempty" validate:"omitempty,oneof=high medium low"`
	DueDate         *string       `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Category        *TaskCategory `json:"category,omitempty" validate:"omitempty,oneof=meeting call documentation development other"`
	ClientID        *uuid.UUID    `json:"client_id,omitempty"`
	ReminderEnabled *bool         `json:"reminder_enabled,omitempty"`
	ReminderDate    *time.Time    `json:"reminder_date,omitempty"`
}

type CompleteTaskRequest struct {
	CompletionPercentage *int `json:"completion_percentage" validate:"required"`
}

type AssignTaskRequest struct {
	AssigneeID uuid.UUID `json:"assignee_id" validate:"required"`
}

type ClientDTO struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Location    string       `json:"location"`
	Status      ClientStatus `json:"status"`
	ServicePlan ServicePlan  `json:"service_plan"`
	OnboardedAt *time.Time   `json:"onboarded_at,omitempty"`
	Notes       string       `json:"notes,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ClientWithDetailsDTO includes the client and all nested records
type ClientWithDetailsDTO struct {
	ClientDTO
	Contacts       []ContactDTO        `json:"contacts"`
	Quotations     []QuotationDTO      `json:"quotations"`
	ServiceHistory []ServiceHistoryDTO `json:"service_history"`
	TechnicalDocs  []TechnicalDocDTO   `json:"technical_docs"`
}

type CreateClientRequest struct {
	Name        string       `json:"name" validate:"required,max=200"`
	Location    string       `json:"location" validate:"required,max=300"`
	Status      ClientStatus `json:"status,omitempty" validate:"omitempty,oneof=active pending inactive"`
	ServicePlan ServicePlan  `json:"service_plan" validate:"required,oneof=basic standard premium enterprise"`
	Notes       string       `json:"notes,omitempty"`
}

type UpdateClientRequest struct {
	Name        *string       `json:"name,omitempty" validate:"omitempty,max=200"`
	Location    *string       `json:"location,omitempty" validate:"omitempty,max=300"`
	Status      *ClientStatus `json:"status,omitempty" validate:"omitempty,oneof=active pending inactive"`
	ServicePlan *ServicePlan  `json:"service_plan,omitempty" validate:"omitempty,oneof=basic standard premium enterprise"`
	Notes       *string       `json:"notes,omitempty"`
}

type ContactDTO struct {
	ID               uuid.UUID            `json:"id"`
	ClientID         uuid.UUID            `json:"client_id"`
	Name             string               `json:"name"`
	Role             string               `json:"role,omitempty"`
	Department       string               `json:"department,omitempty"`
	Email            string               `json:"email"`
	Phone            string               `json:"phone,omitempty"`
	PreferredChannel CommunicationChannel `json:"preferred_contact,omitempty"`
	IsPrimary        bool                 `json:"is_primary"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

type CreateContactRequest struct {
	Name             string               `json:"name" validate:"required,max=200"`
	Role             string               `json:"role,omitempty" validate:"max=100"`
	Department       string               `json:"department,omitempty" validate:"max=100"`
	Email            string               `json:"email" validate:"required,email,max=255"`
	Phone            string               `json:"phone,omitempty" validate:"max=50"`
	PreferredChannel CommunicationChannel `json:"preferred_contact,omitempty" validate:"omitempty,oneof=phone email in-person other"`
	IsPrimary        bool                 `json:"is_primary"`
}

type UpdateContactRequest struct {
	Name             *string               `json:"name,omitempty" validate:"omitempty,max=200"`
	Role             *string               `json:"role,omitempty" validate:"omitempty,max=100"`
	Department       *string               `json:"department,omitempty" validate:"omitempty,max=100"`
	Email            *string               `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Phone            *string               `json:"phone,omitempty" validate:"omitempty,max=50"`
	PreferredChannel *CommunicationChannel `json:"preferred_contact,omitempty" validate:"omitempty,oneof=phone email in-person other"`
	IsPrimary        *bool                 `json:"is_primary,omitempty"`
}

type QuotationDTO struct {
	ID          uuid.UUID       `json:"id"`
	ClientID    uuid.UUID       `json:"client_id"`
	Version     int             `json:"version"`
	Status      QuotationStatus `json:"status"`
	HTMLContent string          `json:"html_content"`
	SentAt      *time.Time      `json:"sent_at,omitempty"`
	ArchivePath string          `json:"archive_path,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CreateQuotationRequest struct {
	HTMLContent string `json:"html_content" validate:"required"`
}

type UpdateQuotationRequest struct {
	HTMLContent *string          `json:"html_content,omitempty"`
	Status      *QuotationStatus `json:"status,omitempty"`
}

type ServiceHistoryDTO struct {
	ID          uuid.UUID            `json:"id"`
	ClientID    uuid.UUID            `json:"client_id"`
	EventType   ServiceEventType     `json:"event_type"`
	EventDate   string               `json:"event_date"`
	Description string               `json:"description"`
	StaffID     *uuid.UUID           `json:"staff_id,omitempty"`
	Channel     CommunicationChannel `json:"communication_channel,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

type CreateServiceHistoryRequest struct {
	EventType   ServiceEventType     `json:"event_type" validate:"required,oneof=initial_contact quotation_sent installation activation issue support billing other"`
	EventDate   string               `json:"event_date" validate:"required,datetime=2006-01-02"`
	Description string               `json:"description" validate:"required"`
	StaffID     *uuid.UUID           `json:"staff_id,omitempty"`
	Channel     CommunicationChannel `json:"communication_channel,omitempty" validate:"omitempty,oneof=phone email in-person other"`
}

type TechnicalDocDTO struct {
	ID        uuid.UUID `json:"id"`
	ClientID  uuid.UUID `json:"client_id"`
	DocType   string    `json:"doc_type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateTechnicalDocRequest struct {
	DocType string `json:"doc_type" validate:"required,max=100"`
	Content string `json:"content" validate:"required"`
}

type UpdateTechnicalDocRequest struct {
	DocType *string `json:"doc_type,omitempty" validate:"omitempty,max=100"`
	Content *string `json:"content,omitempty"`
}

type NotificationDTO struct {
	ID         uuid.UUID        `json:"id"`
	Type       NotificationType `json:"type"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	Read       bool             `json:"read"`
	ReadAt     *time.Time       `json:"read_at,omitempty"`
	EntityID   *uuid.UUID       `json:"entity_id,omitempty"`
	EntityType string           `json:"entity_type,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

type UnreadCountDTO struct {
	Count int64 `json:"count"`
}

type AuditLogDTO struct {
	ID          uuid.UUID   `json:"id"`
	UserID      string      `json:"user_id,omitempty"`
	UserEmail   string      `json:"user_email,omitempty"`
	Action      AuditAction `json:"action"`
	EntityType  string      `json:"entity_type"`
	EntityID    *uuid.UUID  `json:"entity_id,omitempty"`
	Path        string      `json:"path"`
	StatusCode  int         `json:"status_code"`
	NewValues   string      `json:"new_values,omitempty"`
	IPAddress   string      `json:"ip_address,omitempty"`
	RequestID   string      `json:"request_id,omitempty"`
	PerformedAt time.Time   `json:"performed_at"`
}

// PaginatedResponse wraps list results
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// NewPaginatedResponse computes the page count for a result set
func NewPaginatedResponse(data interface{}, total int64, page, pageSize int) PaginatedResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
