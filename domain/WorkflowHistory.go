package domain

import (
	"github.com/fundwit/go-commons/types"
)

// WorkflowHistory is an append-only audit row. FromStateID is nil when the entity
// entered the workflow; TransitionID is nil for direct status mirroring.
type WorkflowHistory struct {
	ID         types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	TemplateID types.ID `json:"templateId"`

	EntityType EntityType `json:"entityType"`
	EntityID   types.ID   `json:"entityId"`

	FromStateID  *types.ID `json:"fromStateId"`
	ToStateID    types.ID  `json:"toStateId"`
	TransitionID *types.ID `json:"transitionId"`

	ChangedBy types.ID `json:"changedBy"`
	Comment   string   `json:"comment" sql:"type:TEXT"`
	Metadata  JSONMap  `json:"metadata" sql:"type:TEXT"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type WorkflowHistoryQuery struct {
	EntityType EntityType `json:"entityType" form:"entityType"`
	EntityID   types.ID   `json:"entityId" form:"entityId"`

	TemplateID  types.ID `json:"templateId" form:"templateId"`
	FromStateID types.ID `json:"fromStateId" form:"fromStateId"`
	ToStateID   types.ID `json:"toStateId" form:"toStateId"`
	ChangedBy   types.ID `json:"changedBy" form:"changedBy"`

	CreatedSince *types.Timestamp `json:"createdSince" form:"createdSince"`
	CreatedUntil *types.Timestamp `json:"createdUntil" form:"createdUntil"`
}

// WorkflowMetrics is one materialized summary row per (template, state, period).
type WorkflowMetrics struct {
	ID         types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	TemplateID types.ID `json:"templateId" gorm:"unique_index:uni_template_state_period"`
	StateID    types.ID `json:"stateId" gorm:"unique_index:uni_template_state_period"`

	AvgTimeInStateHours float64 `json:"avgTimeInStateHours"`
	TotalEntries        int     `json:"totalEntries"`
	TotalExits          int     `json:"totalExits"`
	CompletionRate      float64 `json:"completionRate"`

	PeriodStart types.Timestamp `json:"periodStart" gorm:"unique_index:uni_template_state_period" sql:"type:DATETIME(6) NOT NULL"`
	PeriodEnd   types.Timestamp `json:"periodEnd" gorm:"unique_index:uni_template_state_period" sql:"type:DATETIME(6) NOT NULL"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}
