package auth_test

import (
	"testing"

	"github.com/integrateisp/ops-api/internal/auth"
	"github.com/integrateisp/ops-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestAuthorize(t *testing.T) {
	tests := []struct {
		role       domain.UserRole
		capability auth.Capability
		expected   bool
	}{
		{domain.RoleAdmin, auth.CapManageUsers, true},
		{domain.RoleManager, auth.CapManageUsers, false},
		{domain.RoleAdmin, auth.CapApproveExpense, true},
		{domain.RoleManager, auth.CapApproveExpense, true},
		{domain.RoleFinance, auth.CapApproveExpense, false},
		{domain.RoleEmployee, auth.CapApproveExpense, false},
		{domain.RoleFinance, auth.CapReimburseExpense, true},
		{domain.RoleManager, auth.CapReimburseExpense, false},
		{domain.RoleFinance, auth.CapViewAllExpenses, true},
		{domain.RoleManager, auth.CapViewAllExpenses, false},
		{domain.RoleManager, auth.CapDeleteClient, true},
		{domain.RoleFinance, auth.CapManageClients, false},
		{domain.RoleFinance, auth.CapViewAllTasks, true},
		{domain.RoleEmployee, auth.CapViewAllTasks, false},
		{domain.RoleAdmin, auth.CapCompleteTask, false},
		{domain.RoleFinance, auth.CapAssignToOthers, true},
		{domain.RoleManager, auth.CapAssignToOthers, true},
		{domain.RoleEmployee, auth.CapAssignToOthers, false},
		{domain.UserRole("guest"), auth.CapViewAllTasks, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.capability), func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.Authorize(tt.role, tt.capability))
		})
	}
}

func TestCan_OwnershipRules(t *testing.T) {
	owner := auth.Ownership{IsOwner: true}
	assignee := auth.Ownership{IsAssignee: true}
	none := auth.Ownership{}

	tests := []struct {
		name       string
		role       domain.UserRole
		capability auth.Capability
		own        auth.Ownership
		expected   bool
	}{
		{"submitter edits own expense", domain.RoleEmployee, auth.CapEditOwnExpense, owner, true},
		{"manager cannot edit others expense", domain.RoleManager, auth.CapEditOwnExpense, none, false},
		{"admin edits any expense", domain.RoleAdmin, auth.CapEditOwnExpense, none, true},
		{"owner assigns own task", domain.RoleEmployee, auth.CapAssignTask, owner, true},
		{"employee cannot assign others task", domain.RoleEmployee, auth.CapAssignTask, assignee, false},
		{"manager assigns any task", domain.RoleManager, auth.CapAssignTask, none, true},
		{"finance cannot edit others task", domain.RoleFinance, auth.CapEditTask, none, false},
		{"owner deletes own task", domain.RoleEmployee, auth.CapDeleteTask, owner, true},
		{"assignee completes task", domain.RoleEmployee, auth.CapCompleteTask, assignee, true},
		{"owner completes task", domain.RoleEmployee, auth.CapCompleteTask, owner, true},
		{"admin cannot complete unrelated task", domain.RoleAdmin, auth.CapCompleteTask, none, false},
		{"ownership does not grant approval", domain.RoleEmployee, auth.CapApproveExpense, owner, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.Can(tt.role, tt.capability, tt.own))
		})
	}
}
