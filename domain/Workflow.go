package domain

import (
	"github.com/fundwit/go-commons/types"
)

type EntityType string

const (
	EntityTypeFeature EntityType = "feature"
	EntityTypeProject EntityType = "project"
)

// WorkflowTemplate is the static definition of a workflow, scoped per entity type.
type WorkflowTemplate struct {
	ID types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Name        string     `json:"name" gorm:"unique_index:uni_name_entity_type"`
	Description string     `json:"description" sql:"type:TEXT"`
	EntityType  EntityType `json:"entityType" gorm:"unique_index:uni_name_entity_type"`
	IsActive    bool       `json:"isActive"`

	CreatorID  types.ID        `json:"creatorId"`
	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

type WorkflowState struct {
	ID         types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	TemplateID types.ID `json:"templateId" gorm:"unique_index:uni_template_name,uni_template_slug"`

	Name        string `json:"name" gorm:"unique_index:uni_template_name"`
	Slug        string `json:"slug" gorm:"unique_index:uni_template_slug"`
	Description string `json:"description" sql:"type:TEXT"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`

	IsInitial bool `json:"isInitial"`
	IsFinal   bool `json:"isFinal"`
	Order     int  `json:"order" gorm:"column:order_num"`

	AutoAssignToCreator bool `json:"autoAssignToCreator"`
	RequireAssignee     bool `json:"requireAssignee"`
	RequireComment      bool `json:"requireComment"`
	NotifyStakeholders  bool `json:"notifyStakeholders"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

const (
	TransitionRoleOwner    = "owner"
	TransitionRoleAssignee = "assignee"
	TransitionRoleAdmin    = "admin"
	TransitionRoleAny      = "any"
)

type WorkflowTransition struct {
	ID         types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	TemplateID types.ID `json:"templateId" gorm:"unique_index:uni_template_from_to"`

	FromStateID types.ID `json:"fromStateId" gorm:"unique_index:uni_template_from_to"`
	ToStateID   types.ID `json:"toStateId" gorm:"unique_index:uni_template_from_to"`

	Name        string `json:"name"`
	Description string `json:"description" sql:"type:TEXT"`

	RequirePermission          string `json:"requirePermission"`
	RequireRole                string `json:"requireRole"`
	RequireAllSubtasksComplete bool   `json:"requireAllSubtasksComplete"`
	RequireComment             bool   `json:"requireComment"`

	AutoAssignToUser   *types.ID `json:"autoAssignToUser"`
	AutoSetDueDateDays *int      `json:"autoSetDueDateDays"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

// WorkflowTemplateDetail carries a template with its full state/transition graph.
type WorkflowTemplateDetail struct {
	WorkflowTemplate

	States      []WorkflowState      `json:"states"`
	Transitions []WorkflowTransition `json:"transitions"`
}

func (d *WorkflowTemplateDetail) FindState(id types.ID) (WorkflowState, bool) {
	for _, s := range d.States {
		if s.ID == id {
			return s, true
		}
	}
	return WorkflowState{}, false
}

func (d *WorkflowTemplateDetail) FindStateBySlug(slug string) (WorkflowState, bool) {
	for _, s := range d.States {
		if s.Slug == slug {
			return s, true
		}
	}
	return WorkflowState{}, false
}

// InitialState returns the state flagged is_initial, when there is one.
func (d *WorkflowTemplateDetail) InitialState() (WorkflowState, bool) {
	for _, s := range d.States {
		if s.IsInitial {
			return s, true
		}
	}
	return WorkflowState{}, false
}

// AvailableTransitions filters the template's transitions, empty arguments match any state.
func (d *WorkflowTemplateDetail) AvailableTransitions(fromStateID, toStateID types.ID) []WorkflowTransition {
	r := []WorkflowTransition{}
	for _, t := range d.Transitions {
		if (fromStateID == 0 || fromStateID == t.FromStateID) && (toStateID == 0 || toStateID == t.ToStateID) {
			r = append(r, t)
		}
	}
	return r
}
