package mapper

import (
	"github.com/integrateisp/ops-api/internal/domain"
)

// DateLayout is the wire format for calendar dates
const DateLayout = "2006-01-02"

// ToUserDTO converts User to UserDTO
func ToUserDTO(user *domain.User) domain.UserDTO {
	return domain.UserDTO{
		ID:          user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		Role:        user.Role,
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

// ToExpenseDTO converts Expense to ExpenseDTO
func ToExpenseDTO(expense *domain.Expense) domain.ExpenseDTO {
	return domain.ExpenseDTO{
		ID:           expense.ID,
		Description:  expense.Description,
		Amount:       expense.Amount,
		Category:     expense.Category,
		Date:         expense.Date.Format(DateLayout),
		Status:       expense.Status,
		SubmitterID:  expense.SubmitterID,
		ApproverID:   expense.ApproverID,
		ApprovedAt:   expense.ApprovedAt,
		ReimburserID: expense.ReimburserID,
		ReimbursedAt: expense.ReimbursedAt,
		Notes:        expense.Notes,
		ClientID:     expense.ClientID,
		CreatedAt:    expense.CreatedAt,
		UpdatedAt:    expense.UpdatedAt,
	}
}

// ToTaskDTO converts Task to TaskDTO
func ToTaskDTO(task *domain.Task) domain.TaskDTO {
	dto := domain.TaskDTO{
		ID:                   task.ID,
		Title:                task.Title,
		Description:          task.Description,
		Priority:             task.Priority,
		Status:               task.Status,
		CompletionPercentage: task.CompletionPercentage,
		Category:             task.Category,
		OwnerID:              task.OwnerID,
		AssigneeID:           task.AssigneeID,
		ClientID:             task.ClientID,
		CompletedAt:          task.CompletedAt,
		ReminderEnabled:      task.ReminderEnabled,
		ReminderDate:         task.ReminderDate,
		CreatedAt:            task.CreatedAt,
		UpdatedAt:            task.UpdatedAt,
	}
	if task.DueDate != nil {
		due := task.DueDate.Format(DateLayout)
		dto.DueDate = &due
	}
	return dto
}

// ToClientDTO converts Client to ClientDTO
func ToClientDTO(client *domain.Client) domain.ClientDTO {
	return domain.ClientDTO{
		ID:          client.ID,
		Name:        client.Name,
		Location:    client.Location,
		Status:      client.Status,
		ServicePlan: client.ServicePlan,
		OnboardedAt: client.OnboardedAt,
		Notes:       client.Notes,
		CreatedAt:   client.CreatedAt,
		UpdatedAt:   client.UpdatedAt,
	}
}

// ToContactDTO converts Contact to ContactDTO
func ToContactDTO(contact *domain.Contact) domain.ContactDTO {
	return domain.ContactDTO{
		ID:               contact.ID,
		ClientID:         contact.ClientID,
		Name:             contact.Name,
		Role:             contact.Role,
		Department:       contact.Department,
		Email:            contact.Email,
		Phone:            contact.Phone,
		PreferredChannel: contact.PreferredChannel,
		IsPrimary:        contact.IsPrimary,
		CreatedAt:        contact.CreatedAt,
		UpdatedAt:        contact.UpdatedAt,
	}
}

// ToQuotationDTO converts Quotation to QuotationDTO
func ToQuotationDTO(quotation *domain.Quotation) domain.QuotationDTO {
	return domain.QuotationDTO{
		ID:          quotation.ID,
		ClientID:    quotation.ClientID,
		Version:     quotation.Version,
		Status:      quotation.Status,
		HTMLContent: quotation.HTMLContent,
		SentAt:      quotation.SentAt,
		ArchivePath: quotation.ArchivePath,
		CreatedAt:   quotation.CreatedAt,
		UpdatedAt:   quotation.UpdatedAt,
	}
}

// ToServiceHistoryDTO converts ServiceHistoryEntry to ServiceHistoryDTO
func ToServiceHistoryDTO(entry *domain.ServiceHistoryEntry) domain.ServiceHistoryDTO {
	return domain.ServiceHistoryDTO{
		ID:          entry.ID,
		ClientID:    entry.ClientID,
		EventType:   entry.EventType,
		EventDate:   entry.EventDate.Format(DateLayout),
		Description: entry.Description,
		StaffID:     entry.StaffID,
		Channel:     entry.Channel,
		CreatedAt:   entry.CreatedAt,
	}
}

// ToTechnicalDocDTO converts TechnicalDoc to TechnicalDocDTO
func ToTechnicalDocDTO(doc *domain.TechnicalDoc) domain.TechnicalDocDTO {
	return domain.TechnicalDocDTO{
		ID:        doc.ID,
		ClientID:  doc.ClientID,
		DocType:   doc.DocType,
		Content:   doc.Content,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

// ToNotificationDTO converts Notification to NotificationDTO
func ToNotificationDTO(notification *domain.Notification) domain.NotificationDTO {
	return domain.NotificationDTO{
		ID:         notification.ID,
		Type:       notification.Type,
		Title:      notification.Title,
		Message:    notification.Message,
		Read:       notification.Read,
		ReadAt:     notification.ReadAt,
		EntityID:   notification.EntityID,
		EntityType: notification.EntityType,
		CreatedAt:  notification.CreatedAt,
	}
}

// ToAuditLogDTO converts AuditLog to AuditLogDTO
func ToAuditLogDTO(log *domain.AuditLog) domain.AuditLogDTO {
	return domain.AuditLogDTO{
		ID:          log.ID,
		UserID:      log.UserID,
		UserEmail:   log.UserEmail,
		Action:      log.Action,
		EntityType:  log.EntityType,
		EntityID:    log.EntityID,
		Path:        log.Path,
		StatusCode:  log.StatusCode,
		NewValues:   log.NewValues,
		IPAddress:   log.IPAddress,
		RequestID:   log.RequestID,
		PerformedAt: log.PerformedAt,
	}
}
