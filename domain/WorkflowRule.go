package domain

import (
	"github.com/fundwit/go-commons/types"
)

type RuleActionType string

const (
	ActionAutoTransition   RuleActionType = "auto_transition"
	ActionSendNotification RuleActionType = "send_notification"
	ActionAssignUser       RuleActionType = "assign_user"
	ActionSetDueDate       RuleActionType = "set_due_date"
	ActionAddComment       RuleActionType = "add_comment"
	ActionWebhook          RuleActionType = "webhook"
)

// WorkflowRule fires when an entity enters TriggerOnStateID. Lower priority executes first.
type WorkflowRule struct {
	ID         types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	TemplateID types.ID `json:"templateId"`

	Name        string `json:"name"`
	Description string `json:"description" sql:"type:TEXT"`

	TriggerOnStateID types.ID `json:"triggerOnStateId"`
	TriggerCondition JSONMap `json:"triggerCondition" sql:"type:TEXT"`

	ActionType   RuleActionType `json:"actionType"`
	ActionConfig JSONMap        `json:"actionConfig" sql:"type:TEXT"`

	IsActive bool `json:"isActive"`
	Priority int  `json:"priority"`

	CreatorID  types.ID        `json:"creatorId"`
	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}
