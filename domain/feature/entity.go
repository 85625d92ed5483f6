package feature

import (
	"time"

	"trackflow/bizerror"
	"trackflow/domain"
	"trackflow/domain/status"

	"github.com/fundwit/go-commons/types"
)

const dateLayout = "2006-01-02"

// Date fields travel as "2006-01-02" strings, matching the DATE columns.
type FeatureCreation struct {
	ProjectID types.ID  `json:"projectId" binding:"required"`
	ParentID  *types.ID `json:"parentId"`

	Title       string `json:"title" binding:"required,lte=300"`
	Description string `json:"description"`
	Priority    string `json:"priority" binding:"omitempty,oneof=low medium high critical"`

	AssigneeID *types.ID `json:"assigneeId"`

	EstimatedHours *int `json:"estimatedHours"`

	DueDate   string `json:"dueDate"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`

	Dependencies []types.ID `json:"dependencies"`

	Order int `json:"order"`
}

type FeatureUpdating struct {
	ParentID *types.ID `json:"parentId"`

	Title       string `json:"title" binding:"required,lte=300"`
	Description string `json:"description"`
	Priority    string `json:"priority" binding:"omitempty,oneof=low medium high critical"`

	AssigneeID *types.ID `json:"assigneeId"`

	EstimatedHours *int `json:"estimatedHours"`
	ActualHours    *int `json:"actualHours"`

	DueDate   string `json:"dueDate"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`

	Order int `json:"order"`
}

type FeatureQuery struct {
	ProjectID  types.ID      `json:"projectId" form:"projectId"`
	Status     status.Status `json:"status" form:"status"`
	AssigneeID types.ID      `json:"assigneeId" form:"assigneeId"`
	ParentID   types.ID      `json:"parentId" form:"parentId"`
	Keyword    string        `json:"keyword" form:"keyword"`
}

type DependenciesUpdating struct {
	Dependencies []types.ID `json:"dependencies"`
}

type StatusUpdating struct {
	Status status.Status `json:"status" binding:"required"`
}

type CommentCreating struct {
	Content string `json:"content" binding:"required"`
}

// FeatureDetail is the read model: the entity plus the derived accessors.
type FeatureDetail struct {
	domain.Feature

	Dependencies []types.ID `json:"dependencies"`

	ProgressPercentage int    `json:"progressPercentage"`
	HierarchyLevel     int    `json:"hierarchyLevel"`
	FullPath           string `json:"fullPath"`

	Overdue   bool `json:"overdue"`
	Completed bool `json:"completed"`

	TotalEstimatedHours int `json:"totalEstimatedHours"`
	TotalActualHours    int `json:"totalActualHours"`
}

func parseDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, &bizerror.ErrInvalidDates{Field: field, Message: "invalid date '" + value + "'"}
	}
	return &d, nil
}
