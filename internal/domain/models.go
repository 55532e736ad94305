package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BaseModel contains common fields for all models
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a random id when none was set
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// UserRole represents the single role a user holds
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleManager  UserRole = "manager"
	RoleEmployee UserRole = "employee"
	RoleFinance  UserRole = "finance"
)

// IsValid checks if the role is a valid value
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee, RoleFinance:
		return true
	}
	return false
}

// User represents a user in the system
type User struct {
	BaseModel
	Email        string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string     `gorm:"type:varchar(255);not null;column:password_hash"`
	FullName     string     `gorm:"type:varchar(200);not null;column:full_name"`
	Role         UserRole   `gorm:"type:varchar(20);not null;index"`
	IsActive     bool       `gorm:"not null;column:is_active"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
}

// ExpenseStatus represents the approval state of an expense
type ExpenseStatus string

const (
	ExpenseStatusSubmitted  ExpenseStatus = "submitted"
	ExpenseStatusApproved   ExpenseStatus = "approved"
	ExpenseStatusRejected   ExpenseStatus = "rejected"
	ExpenseStatusReimbursed ExpenseStatus = "reimbursed"
)

// IsValid checks if the status is a valid value
func (s ExpenseStatus) IsValid() bool {
	switch s {
	case ExpenseStatusSubmitted, ExpenseStatusApproved, ExpenseStatusRejected, ExpenseStatusReimbursed:
		return true
	}
	return false
}

// ExpenseCategory classifies an expense
type ExpenseCategory string

const (
	ExpenseCategoryEquipment ExpenseCategory = "equipment"
	ExpenseCategoryTravel    ExpenseCategory = "travel"
	ExpenseCategoryMeals     ExpenseCategory = "meals"
	ExpenseCategorySoftware  ExpenseCategory = "software"
	ExpenseCategorySupplies  ExpenseCategory = "supplies"
	ExpenseCategoryOther     ExpenseCategory = "other"
)

// IsValid checks if the category is a valid value
func (c ExpenseCategory) IsValid() bool {
	switch c {
	case ExpenseCategoryEquipment, ExpenseCategoryTravel, ExpenseCategoryMeals,
		ExpenseCategorySoftware, ExpenseCategorySupplies, ExpenseCategoryOther:
		return true
	}
	return false
}

// Expense is a reimbursement claim submitted by a user
type Expense struct {
	BaseModel
	Description  string          `gorm:"type:varchar(500);not null"`
	Amount       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Category     ExpenseCategory `gorm:"type:varchar(30);not null"`
	Date         time.Time       `gorm:"not null;column:expense_date"`
	Status       ExpenseStatus   `gorm:"type:varchar(20);not null;index"`
	SubmitterID  uuid.UUID       `gorm:"type:uuid;not null;index;column:submitter_id"`
	ApproverID   *uuid.UUID      `gorm:"type:uuid;column:approver_id"`
	ApprovedAt   *time.Time      `gorm:"column:approved_at"`
	ReimburserID *uuid.UUID      `gorm:"type:uuid;column:reimburser_id"`
	ReimbursedAt *time.Time      `gorm:"column:reimbursed_at"`
	Notes        string          `gorm:"type:text"`
	ClientID     *uuid.UUID      `gorm:"type:uuid;index;column:client_id"`
}

// TaskStatus is derived from the completion percentage
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// IsValid checks if the status is a valid value
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskStatusForCompletion maps a completion percentage to its status
func TaskStatusForCompletion(percentage int) TaskStatus {
	switch {
	case percentage >= 100:
		return TaskStatusCompleted
	case percentage > 0:
		return TaskStatusInProgress
	default:
		return TaskStatusPending
	}
}

// TaskPriority represents the urgency of a task
type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityLow    TaskPriority = "low"
)

// IsValid checks if the priority is a valid value
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityHigh, TaskPriorityMedium, TaskPriorityLow:
		return true
	}
	return false
}

// TaskCategory classifies a task
type TaskCategory string

const (
	TaskCategoryMeeting       TaskCategory = "meeting"
	TaskCategoryCall          TaskCategory = "call"
	TaskCategoryDocumentation TaskCategory = "documentation"
	TaskCategoryDevelopment   TaskCategory = "development"
	TaskCategoryOther         TaskCategory = "other"
)

// IsValid checks if the category is a valid value; empty means uncategorized
func (c TaskCategory) IsValid() bool {
	switch c {
	case "", TaskCategoryMeeting, TaskCategoryCall, TaskCategoryDocumentation,
		TaskCategoryDevelopment, TaskCategoryOther:
		return true
	}
	return false
}

// Task is a unit of work owned by its creator and optionally assigned to another user
type Task struct {
	BaseModel
	Title                string       `gorm:"type:varchar(200);not null"`
	Description          string       `gorm:"type:text"`
	Priority             TaskPriority `gorm:"type:varchar(10);not null"`
	Status               TaskStatus   `gorm:"type:varchar(20);not null;index"`
	CompletionPercentage int          `gorm:"not null;column:completion_percentage"`
	DueDate              *time.Time   `gorm:"column:due_date;index"`
	Category             TaskCategory `gorm:"type:varchar(30)"`
	OwnerID              uuid.UUID    `gorm:"type:uuid;not null;index;column:owner_id"`
	AssigneeID           *uuid.UUID   `gorm:"type:uuid;index;column:assignee_id"`
	ClientID             *uuid.UUID   `gorm:"type:uuid;index;column:client_id"`
	CompletedAt          *time.Time   `gorm:"column:completed_at"`
	ReminderEnabled      bool         `gorm:"not null;column:reminder_enabled"`
	ReminderDate         *time.Time   `gorm:"column:reminder_date"`
	ReminderSentAt       *time.Time   `gorm:"column:reminder_sent_at"`
}

// ClientStatus represents the lifecycle of a client account
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusPending  ClientStatus = "pending"
	ClientStatusInactive ClientStatus = "inactive"
)

// IsValid checks if the status is a valid value
func (s ClientStatus) IsValid() bool {
	switch s {
	case ClientStatusActive, ClientStatusPending, ClientStatusInactive:
		return true
	}
	return false
}

// ServicePlan is the subscription tier of a client
type ServicePlan string

const (
	ServicePlanBasic      ServicePlan = "basic"
	ServicePlanStandard   ServicePlan = "standard"
	ServicePlanPremium    ServicePlan = "premium"
	ServicePlanEnterprise ServicePlan = "enterprise"
)

// IsValid checks if the plan is a valid value
func (p ServicePlan) IsValid() bool {
	switch p {
	case ServicePlanBasic, ServicePlanStandard, ServicePlanPremium, ServicePlanEnterprise:
		return true
	}
	return false
}

// Client is a customer account. It owns its contacts, quotations,
// service history and technical documentation.
type Client struct {
	BaseModel
	Name        string       `gorm:"type:varchar(200);not null;index"`
	Location    string       `gorm:"type:varchar(300);not null"`
	Status      ClientStatus `gorm:"type:varchar(20);not null;index"`
	ServicePlan ServicePlan  `gorm:"type:varchar(20);not null;column:service_plan"`
	OnboardedAt *time.Time   `gorm:"column:onboarded_at"`
	Notes       string       `gorm:"type:text"`
}

// CommunicationChannel is how a contact or event was reached
type CommunicationChannel string

const (
	ChannelPhone    CommunicationChannel = "phone"
	ChannelEmail    CommunicationChannel = "email"
	ChannelInPerson CommunicationChannel = "in-person"
	ChannelOther    CommunicationChannel = "other"
)

// IsValid checks if the channel is a valid value; empty means unspecified
func (c CommunicationChannel) IsValid() bool {
	switch c {
	case "", ChannelPhone, ChannelEmail, ChannelInPerson, ChannelOther:
		return true
	}
	return false
}

// Contact is a person at a client
type Contact struct {
	BaseModel
	ClientID         uuid.UUID            `gorm:"type:uuid;not null;index;column:client_id"`
	Name             string               `gorm:"type:varchar(200);not null"`
	Role             string               `gorm:"type:varchar(100)"`
	Department       string               `gorm:"type:varchar(100)"`
	Email            string               `gorm:"type:varchar(255);not null"`
	Phone            string               `gorm:"type:varchar(50)"`
	PreferredChannel CommunicationChannel `gorm:"type:varchar(20);column:preferred_channel"`
	IsPrimary        bool                 `gorm:"not null;column:is_primary"`
}

// QuotationStatus represents where a quotation is in the sales conversation
type QuotationStatus string

const (
	QuotationStatusDraft    QuotationStatus = "draft"
	QuotationStatusSent     QuotationStatus = "sent"
	QuotationStatusAccepted QuotationStatus = "accepted"
	QuotationStatusRejected QuotationStatus = "rejected"
)

// IsValid checks if the status is a valid value
func (s QuotationStatus) IsValid() bool {
	switch s {
	case QuotationStatusDraft, QuotationStatusSent, QuotationStatusAccepted, QuotationStatusRejected:
		return true
	}
	return false
}

// Quotation is a versioned price offer for a client
type Quotation struct {
	BaseModel
	ClientID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_quotations_client_version;column:client_id"`
	Version     int             `gorm:"not null;uniqueIndex:idx_quotations_client_version"`
	Status      QuotationStatus `gorm:"type:varchar(20);not null"`
	HTMLContent string          `gorm:"type:text;not null;column:html_content"`
	SentAt      *time.Time      `gorm:"column:sent_at"`
	ArchivePath string          `gorm:"type:varchar(500);column:archive_path"`
}

// ServiceEventType classifies service history entries
type ServiceEventType string

const (
	EventInitialContact ServiceEventType = "initial_contact"
	EventQuotationSent  ServiceEventType = "quotation_sent"
	EventInstallation   ServiceEventType = "installation"
	EventActivation     ServiceEventType = "activation"
	EventIssue          ServiceEventType = "issue"
	EventSupport        ServiceEventType = "support"
	EventBilling        ServiceEventType = "billing"
	EventOther          ServiceEventType = "other"
)

// IsValid checks if the event type is a valid value
func (e ServiceEventType) IsValid() bool {
	switch e {
	case EventInitialContact, EventQuotationSent, EventInstallation, EventActivation,
		EventIssue, EventSupport, EventBilling, EventOther:
		return true
	}
	return false
}

// ServiceHistoryEntry records an interaction with a client
type ServiceHistoryEntry struct {
	BaseModel
	ClientID    uuid.UUID            `gorm:"type:uuid;not null;index;column:client_id"`
	EventType   ServiceEventType     `gorm:"type:varchar(30);not null;column:event_type"`
	EventDate   time.Time            `gorm:"not null;column:event_date"`
	Description string               `gorm:"type:text;not null"`
	StaffID     *uuid.UUID           `gorm:"type:uuid;column:staff_id"`
	Channel     CommunicationChannel `gorm:"type:varchar(20);column:communication_channel"`
}

// TableName overrides the default pluralized table name
func (ServiceHistoryEntry) TableName() string {
	return "service_history"
}

// TechnicalDoc is free-form technical documentation for a client (network diagrams, device inventory)
type TechnicalDoc struct {
	BaseModel
	ClientID uuid.UUID `gorm:"type:uuid;not null;index;column:client_id"`
	DocType  string    `gorm:"type:varchar(100);not null;column:doc_type"`
	Content  string    `gorm:"type:text;not null"`
}

// NotificationType identifies what triggered a notification
type NotificationType string

const (
	NotificationExpenseDecided    NotificationType = "expense_decided"
	NotificationExpenseReimbursed NotificationType = "expense_reimbursed"
	NotificationTaskAssigned      NotificationType = "task_assigned"
	NotificationTaskReminder      NotificationType = "task_reminder"
)

func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationExpenseDecided, NotificationExpenseReimbursed,
		NotificationTaskAssigned, NotificationTaskReminder:
		return true
	}
	return false
}

// Notification is an in-app message for a single user
type Notification struct {
	BaseModel
	UserID     uuid.UUID        `gorm:"type:uuid;not null;index"`
	Type       NotificationType `gorm:"type:varchar(50);not null;index"`
	Title      string           `gorm:"type:varchar(200);not null"`
	Message    string           `gorm:"type:varchar(500);not null"`
	Read       bool             `gorm:"column:read;not null;index"`
	ReadAt     *time.Time       `gorm:"column:read_at"`
	EntityID   *uuid.UUID       `gorm:"type:uuid"`
	EntityType string           `gorm:"type:varchar(50)"`
}

// AuditAction represents the type of change recorded in the audit log
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

func (a AuditAction) IsValid() bool {
	return a == AuditActionCreate || a == AuditActionUpdate || a == AuditActionDelete
}

// AuditLog records a mutating API request
type AuditLog struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey"`
	UserID      string      `gorm:"type:varchar(100);column:user_id;index"`
	UserEmail   string      `gorm:"type:varchar(255);column:user_email"`
	Action      AuditAction `gorm:"type:varchar(20);not null"`
	EntityType  string      `gorm:"type:varchar(50);not null;column:entity_type;index"`
	EntityID    *uuid.UUID  `gorm:"type:uuid;column:entity_id;index"`
	Path        string      `gorm:"type:varchar(300)"`
	StatusCode  int         `gorm:"column:status_code"`
	NewValues   string      `gorm:"type:text;column:new_values"`
	IPAddress   string      `gorm:"type:varchar(64);column:ip_address"`
	UserAgent   string      `gorm:"type:text;column:user_agent"`
	RequestID   string      `gorm:"type:varchar(100);column:request_id"`
	PerformedAt time.Time   `gorm:"not null;column:performed_at;index"`
}

// BeforeCreate assigns a random id when none was set
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
