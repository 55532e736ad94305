package auth

import "github.com/integrateisp/ops-api/internal/domain"

// Capability is an operation gated by the role policy
type Capability string

const (
	CapManageUsers      Capability = "manage_users"
	CapApproveExpense   Capability = "approve_expense"
	CapReimburseExpense Capability = "reimburse_expense"
	CapEditOwnExpense   Capability = "edit_own_expense"
	CapDeleteExpense    Capability = "delete_expense"
	CapManageClients    Capability = "manage_clients"
	CapDeleteClient     Capability = "delete_client"
	CapAssignTask       Capability = "assign_task"
	CapAssignToOthers   Capability = "assign_to_others"
	CapEditTask         Capability = "edit_task"
	CapDeleteTask       Capability = "delete_task"
	CapCompleteTask     Capability = "complete_task"
	CapViewAllExpenses  Capability = "view_all_expenses"
	CapViewAllTasks     Capability = "view_all_tasks"
)

// rolePolicy lists the capabilities each role holds regardless of ownership.
// Without CapAssignToOthers a user may only assign tasks to themselves.
var rolePolicy = map[domain.UserRole][]Capability{
	domain.RoleAdmin: {
		CapManageUsers,
		CapApproveExpense, CapReimburseExpense, CapEditOwnExpense, CapDeleteExpense, CapViewAllExpenses,
		CapManageClients, CapDeleteClient,
		CapAssignTask, CapAssignToOthers, CapEditTask, CapDeleteTask, CapViewAllTasks,
	},
	domain.RoleManager: {
		CapApproveExpense,
		CapManageClients, CapDeleteClient,
		CapAssignTask, CapAssignToOthers, CapEditTask, CapDeleteTask, CapViewAllTasks,
	},
	domain.RoleFinance: {
		CapReimburseExpense, CapViewAllExpenses,
		CapAssignToOthers, CapViewAllTasks,
	},
	domain.RoleEmployee: {},
}

// Authorize is the role half of the policy: does the role hold the capability outright.
func Authorize(role domain.UserRole, capability Capability) bool {
	for _, c := range rolePolicy[role] {
		if c == capability {
			return true
		}
	}
	return false
}

// Ownership describes the actor's relation to the record being acted on
type Ownership struct {
	// IsOwner is true for the expense submitter or the task owner
	IsOwner bool
	// IsAssignee is true for the task assignee
	IsAssignee bool
}

// Can combines the role policy with record ownership. It holds no state and
// must be evaluated on every call.
func Can(role domain.UserRole, capability Capability, own Ownership) bool {
	switch capability {
	case CapEditOwnExpense:
		return own.IsOwner || role == domain.RoleAdmin
	case CapAssignTask, CapEditTask, CapDeleteTask:
		return own.IsOwner || Authorize(role, capability)
	case CapCompleteTask:
		return own.IsOwner || own.IsAssignee
	default:
		return Authorize(role, capability)
	}
}
