package domain

import (
	"time"

	"trackflow/domain/status"

	"github.com/fundwit/go-commons/types"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

type Feature struct {
	ID        types.ID  `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	ProjectID types.ID  `json:"projectId" gorm:"unique_index:uni_project_title"`
	ParentID  *types.ID `json:"parentId"`

	Title       string `json:"title" gorm:"unique_index:uni_project_title"`
	Description string `json:"description" sql:"type:TEXT"`

	Status   status.Status `json:"status"`
	Priority string        `json:"priority"`

	AssigneeID *types.ID `json:"assigneeId"`
	ReporterID types.ID  `json:"reporterId"`

	EstimatedHours *int `json:"estimatedHours"`
	ActualHours    *int `json:"actualHours"`

	DueDate       *time.Time `json:"dueDate" sql:"type:DATE"`
	StartDate     *time.Time `json:"startDate" sql:"type:DATE"`
	EndDate       *time.Time `json:"endDate" sql:"type:DATE"`
	CompletedTime *time.Time `json:"completedTime" sql:"type:DATETIME(6)"`

	Order int `json:"order" gorm:"column:order_num"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (f *Feature) IsCompleted() bool {
	return status.IsFinal(f.Status)
}

// IsOverdue checks the due date first, then the end date.
func (f *Feature) IsOverdue(now time.Time) bool {
	checkDate := f.DueDate
	if checkDate == nil {
		checkDate = f.EndDate
	}
	if checkDate == nil {
		return false
	}
	return now.After(checkDate.AddDate(0, 0, 1).Add(-time.Nanosecond)) && !f.IsCompleted()
}

type FeatureComment struct {
	ID        types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	FeatureID types.ID `json:"featureId"`

	AuthorID types.ID `json:"authorId"`
	Content  string   `json:"content" sql:"type:TEXT"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

// FeatureDependency is a directed edge: feature FeatureID depends on DependencyID.
type FeatureDependency struct {
	FeatureID    types.ID `json:"featureId" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`
	DependencyID types.ID `json:"dependencyId" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}
