package flow

import (
	"trackflow/bizerror"
	"trackflow/domain"
	"trackflow/persistence"
	"trackflow/session"

	"github.com/jinzhu/gorm"
)

var (
	CreateHistoryRecordFunc = createHistoryRecord
	QueryHistoryFunc        = QueryHistory
)

func createHistoryRecord(record *domain.WorkflowHistory, tx *gorm.DB) error {
	return tx.Create(record).Error
}

// QueryHistory lists transition records newest first. All filters are optional and
// combined with AND.
func QueryHistory(query *domain.WorkflowHistoryQuery, sec *session.Context) (*[]domain.WorkflowHistory, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	q := db.Model(&domain.WorkflowHistory{})
	if query.EntityType != "" {
		q = q.Where("entity_type = ?", query.EntityType)
	}
	if query.EntityID != 0 {
		q = q.Where("entity_id = ?", query.EntityID)
	}
	if query.TemplateID != 0 {
		q = q.Where("template_id = ?", query.TemplateID)
	}
	if query.FromStateID != 0 {
		q = q.Where("from_state_id = ?", query.FromStateID)
	}
	if query.ToStateID != 0 {
		q = q.Where("to_state_id = ?", query.ToStateID)
	}
	if query.ChangedBy != 0 {
		q = q.Where("changed_by = ?", query.ChangedBy)
	}
	if query.CreatedSince != nil {
		q = q.Where("create_time >= ?", query.CreatedSince)
	}
	if query.CreatedUntil != nil {
		q = q.Where("create_time < ?", query.CreatedUntil)
	}

	var records []domain.WorkflowHistory
	if err := q.Order("create_time DESC, id DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return &records, nil
}
