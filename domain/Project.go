package domain

import (
	"time"

	"github.com/fundwit/go-commons/types"
)

type Project struct {
	ID types.ID `json:"id" gorm:"primary_key" sql:"type:BIGINT UNSIGNED NOT NULL"`

	Name        string `json:"name" gorm:"unique_index:name_idx"`
	Description string `json:"description" sql:"type:TEXT"`

	Owner    types.ID `json:"owner"`
	Priority string   `json:"priority"`

	StartDate *time.Time `json:"startDate" sql:"type:DATE"`
	EndDate   *time.Time `json:"endDate" sql:"type:DATE"`
	Deadline  *time.Time `json:"deadline" sql:"type:DATE"`

	IsArchived bool `json:"isArchived"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

// WindowStart is the lower bound for feature dates, falling back to the project
// creation date when no explicit start date is set.
func (p *Project) WindowStart() *time.Time {
	if p.StartDate != nil {
		return p.StartDate
	}
	t := p.CreateTime.Time()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return &day
}

// WindowEnd is the upper bound for feature dates, falling back to the deadline
// when no explicit end date is set. Nil means unbounded.
func (p *Project) WindowEnd() *time.Time {
	if p.EndDate != nil {
		return p.EndDate
	}
	return p.Deadline
}

type ProjectRole struct {
	ProjectID types.ID `json:"projectId"`
	Role      string   `json:"role"`
}

const ProjectRoleManager = "manager"
const ProjectRoleCommon = "common"
