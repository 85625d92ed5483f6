package flow

import (
	"trackflow/domain"

	"github.com/fundwit/go-commons/types"
)

type WorkflowTemplateCreation struct {
	Name        string            `json:"name" binding:"required,lte=200"`
	Description string            `json:"description"`
	EntityType  domain.EntityType `json:"entityType" binding:"required"`

	States []StateCreating `json:"states" binding:"dive"`
}

type WorkflowTemplateBaseUpdation struct {
	Name        string `json:"name" binding:"required,lte=200"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive"`
}

type WorkflowTemplateQuery struct {
	Name       string            `json:"name" form:"name"`
	EntityType domain.EntityType `json:"entityType" form:"entityType"`
	ActiveOnly bool              `json:"activeOnly" form:"activeOnly"`
}

// StateCreating: a nil IsInitial falls back to "first state of the template is initial",
// a nil NotifyStakeholders falls back to true, a zero Order falls back to index*10.
type StateCreating struct {
	TemplateID types.ID `json:"templateId"`

	Name        string `json:"name" binding:"required,lte=100"`
	Slug        string `json:"slug" binding:"lte=100"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`

	IsInitial *bool `json:"isInitial"`
	IsFinal   bool  `json:"isFinal"`
	Order     int   `json:"order"`

	AutoAssignToCreator bool  `json:"autoAssignToCreator"`
	RequireAssignee     bool  `json:"requireAssignee"`
	RequireComment      bool  `json:"requireComment"`
	NotifyStakeholders  *bool `json:"notifyStakeholders"`
}

type StateUpdating struct {
	Name        string `json:"name" binding:"required,lte=100"`
	Slug        string `json:"slug" binding:"lte=100"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`

	IsInitial bool `json:"isInitial"`
	IsFinal   bool `json:"isFinal"`
	Order     int  `json:"order"`

	AutoAssignToCreator bool `json:"autoAssignToCreator"`
	RequireAssignee     bool `json:"requireAssignee"`
	RequireComment      bool `json:"requireComment"`
	NotifyStakeholders  bool `json:"notifyStakeholders"`
}

type TransitionCreating struct {
	TemplateID  types.ID `json:"templateId" binding:"required"`
	FromStateID types.ID `json:"fromStateId" binding:"required"`
	ToStateID   types.ID `json:"toStateId" binding:"required"`

	Name        string `json:"name" binding:"required,lte=100"`
	Description string `json:"description"`

	RequirePermission          string `json:"requirePermission"`
	RequireRole                string `json:"requireRole" binding:"omitempty,oneof=owner assignee admin any"`
	RequireAllSubtasksComplete bool   `json:"requireAllSubtasksComplete"`
	RequireComment             bool   `json:"requireComment"`

	AutoAssignToUser   *types.ID `json:"autoAssignToUser"`
	AutoSetDueDateDays *int      `json:"autoSetDueDateDays"`
}

// TransitionExecution is the request context of an explicit transition execution.
type TransitionExecution struct {
	TransitionID types.ID          `json:"transitionId" binding:"required"`
	EntityType   domain.EntityType `json:"entityType" binding:"required"`
	EntityID     types.ID          `json:"entityId" binding:"required"`

	Comment  string         `json:"comment"`
	Metadata domain.JSONMap `json:"metadata"`
}

type RuleCreating struct {
	TemplateID types.ID `json:"templateId" binding:"required"`

	Name        string `json:"name" binding:"required,lte=200"`
	Description string `json:"description"`

	TriggerOnStateID types.ID       `json:"triggerOnStateId" binding:"required"`
	TriggerCondition domain.JSONMap `json:"triggerCondition"`

	ActionType   domain.RuleActionType `json:"actionType" binding:"required"`
	ActionConfig domain.JSONMap        `json:"actionConfig"`

	Priority int `json:"priority"`
}

type RuleQuery struct {
	TemplateID       types.ID `json:"templateId" form:"templateId"`
	TriggerOnStateID types.ID `json:"triggerOnStateId" form:"triggerOnStateId"`
	ActiveOnly       bool     `json:"activeOnly" form:"activeOnly"`
}

type MetricsCalculation struct {
	TemplateID  types.ID        `json:"templateId" binding:"required"`
	PeriodStart types.Timestamp `json:"periodStart" binding:"required"`
	PeriodEnd   types.Timestamp `json:"periodEnd" binding:"required"`
}

type MetricsQuery struct {
	TemplateID types.ID `json:"templateId" form:"templateId" binding:"required"`
	StateID    types.ID `json:"stateId" form:"stateId"`
}

type UsageStatsQuery struct {
	TemplateID types.ID `json:"templateId" form:"templateId" binding:"required"`
	Days       int      `json:"days" form:"days"`
}

type StateDistribution struct {
	StateName string `json:"stateName"`
	Count     int    `json:"count"`
}

type DailyActivity struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type UsageStats struct {
	PeriodStart types.Timestamp `json:"periodStart"`
	PeriodEnd   types.Timestamp `json:"periodEnd"`
	Days        int             `json:"days"`

	TotalTransitions     int     `json:"totalTransitions"`
	UniqueEntities       int     `json:"uniqueEntities"`
	AvgTransitionsPerDay float64 `json:"avgTransitionsPerDay"`

	StateDistribution []StateDistribution `json:"stateDistribution"`
	DailyActivity     []DailyActivity     `json:"dailyActivity"`
}
