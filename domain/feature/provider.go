package feature

import (
	"time"

	"trackflow/bizerror"
	"trackflow/domain"
	"trackflow/domain/flow"
	"trackflow/domain/status"
	"trackflow/idgen"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

// workflowEntityProvider exposes features to the workflow engine. The feature's status
// string doubles as its workflow state slug.
type workflowEntityProvider struct {
}

func RegisterWorkflowProvider() {
	flow.RegisterEntityProvider(domain.EntityTypeFeature, &workflowEntityProvider{})
}

func (p *workflowEntityProvider) FindEntity(id types.ID, tx *gorm.DB) (*flow.EntityInfo, error) {
	record := domain.Feature{}
	if err := tx.Where(&domain.Feature{ID: id}).First(&record).Error; err != nil {
		return nil, err
	}
	project := domain.Project{}
	if err := tx.Where(&domain.Project{ID: record.ProjectID}).First(&project).Error; err != nil {
		return nil, err
	}

	return &flow.EntityInfo{
		ID:    record.ID,
		Title: record.Title,

		ProjectID:  record.ProjectID,
		OwnerID:    project.Owner,
		AssigneeID: record.AssigneeID,
		ReporterID: record.ReporterID,

		StateSlug: string(record.Status),
	}, nil
}

func (p *workflowEntityProvider) UpdateEntityState(id types.ID, fromSlug, toSlug string, tx *gorm.DB) error {
	toStatus := status.Status(toSlug)
	if !status.IsValid(toStatus) {
		return bizerror.ErrInvalidStatus
	}

	changes := map[string]interface{}{
		"status": toStatus, "update_time": types.CurrentTimestamp(),
	}
	if status.IsFinal(toStatus) {
		now := time.Now()
		changes["completed_time"] = &now
	} else {
		changes["completed_time"] = nil
	}

	updateQuery := tx.Model(&domain.Feature{}).
		Where("id = ? AND status = ?", id, fromSlug).Update(changes)
	if updateQuery.Error != nil {
		return updateQuery.Error
	}
	if updateQuery.RowsAffected != 1 {
		record := domain.Feature{}
		if err := tx.Where(&domain.Feature{ID: id}).First(&record).Error; err != nil {
			return err
		}
		return domain.ErrInvalidState
	}
	return nil
}

func (p *workflowEntityProvider) AllSubtasksComplete(id types.ID, tx *gorm.DB) (bool, error) {
	var incomplete int
	err := tx.Model(&domain.Feature{}).
		Where("parent_id = ? AND status != ?", id, status.Live).Count(&incomplete).Error
	if err != nil {
		return false, err
	}
	return incomplete == 0, nil
}

func (p *workflowEntityProvider) AssignEntity(id types.ID, userID types.ID, tx *gorm.DB) error {
	return tx.Model(&domain.Feature{}).Where("id = ?", id).
		Update(map[string]interface{}{"assignee_id": userID, "update_time": types.CurrentTimestamp()}).Error
}

func (p *workflowEntityProvider) SetEntityDueDate(id types.ID, dueDate time.Time, tx *gorm.DB) error {
	day := time.Date(dueDate.Year(), dueDate.Month(), dueDate.Day(), 0, 0, 0, 0, dueDate.Location())
	return tx.Model(&domain.Feature{}).Where("id = ?", id).
		Update(map[string]interface{}{"due_date": &day, "update_time": types.CurrentTimestamp()}).Error
}

func (p *workflowEntityProvider) AddEntityComment(id types.ID, authorID types.ID, content string, tx *gorm.DB) error {
	comment := domain.FeatureComment{
		ID:        idgen.NextID(idWorker),
		FeatureID: id,

		AuthorID: authorID,
		Content:  content,

		CreateTime: types.CurrentTimestamp(),
	}
	return tx.Create(&comment).Error
}
