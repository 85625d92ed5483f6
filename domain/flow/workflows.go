package flow

import (
	"errors"
	"strings"

	"trackflow/bizerror"
	"trackflow/domain"
	"trackflow/idgen"
	"trackflow/persistence"
	"trackflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	idWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateWorkflowTemplateFunc     = CreateWorkflowTemplate
	DetailWorkflowTemplateFunc     = DetailWorkflowTemplate
	QueryWorkflowTemplatesFunc     = QueryWorkflowTemplates
	UpdateWorkflowTemplateBaseFunc = UpdateWorkflowTemplateBase
	DeleteWorkflowTemplateFunc     = DeleteWorkflowTemplate
	DuplicateWorkflowTemplateFunc  = DuplicateWorkflowTemplate

	CreateStateFunc      = CreateState
	UpdateStateFunc      = UpdateState
	DeleteStateFunc      = DeleteState
	CreateTransitionFunc = CreateTransition
	DeleteTransitionFunc = DeleteTransition
)

func Slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}

func CreateWorkflowTemplate(c *WorkflowTemplateCreation, sec *session.Context) (*domain.WorkflowTemplateDetail, error) {
	if sec == nil || !sec.IsSystemAdmin() {
		return nil, bizerror.ErrForbidden
	}

	now := types.CurrentTimestamp()
	detail := &domain.WorkflowTemplateDetail{
		WorkflowTemplate: domain.WorkflowTemplate{
			ID:          idgen.NextID(idWorker),
			Name:        c.Name,
			Description: c.Description,
			EntityType:  c.EntityType,
			IsActive:    true,
			CreatorID:   sec.Identity.ID,
			CreateTime:  now,
			UpdateTime:  now,
		},
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		var existing domain.WorkflowTemplate
		err := tx.Where(&domain.WorkflowTemplate{Name: c.Name, EntityType: c.EntityType}).First(&existing).Error
		if err == nil {
			return bizerror.ErrTemplateExisted
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(&detail.WorkflowTemplate).Error; err != nil {
			return err
		}

		for idx, s := range c.States {
			stateEntity, err := buildState(detail.ID, idx, s, now)
			if err != nil {
				return err
			}
			if stateEntity.IsInitial {
				if err := checkSingleInitialState(tx, detail.ID, 0); err != nil {
					return err
				}
			}
			if err := tx.Create(stateEntity).Error; err != nil {
				return err
			}
			detail.States = append(detail.States, *stateEntity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return detail, nil
}

func buildState(templateID types.ID, idx int, c StateCreating, now types.Timestamp) (*domain.WorkflowState, error) {
	slug := c.Slug
	if slug == "" {
		slug = Slugify(c.Name)
	}
	color := c.Color
	if color == "" {
		color = "#6B7280"
	}
	order := c.Order
	if order == 0 {
		order = idx * 10
	}
	isInitial := idx == 0
	if c.IsInitial != nil {
		isInitial = *c.IsInitial
	}
	notify := true
	if c.NotifyStakeholders != nil {
		notify = *c.NotifyStakeholders
	}

	return &domain.WorkflowState{
		ID:         idgen.NextID(idWorker),
		TemplateID: templateID,

		Name:        c.Name,
		Slug:        slug,
		Description: c.Description,
		Color:       color,
		Icon:        c.Icon,

		IsInitial: isInitial,
		IsFinal:   c.IsFinal,
		Order:     order,

		AutoAssignToCreator: c.AutoAssignToCreator,
		RequireAssignee:     c.RequireAssignee,
		RequireComment:      c.RequireComment,
		NotifyStakeholders:  notify,

		CreateTime: now,
		UpdateTime: now,
	}, nil
}

// checkSingleInitialState rejects a write that would leave the template with more than
// one initial state. excludeStateID skips the state being updated.
func checkSingleInitialState(tx *gorm.DB, templateID types.ID, excludeStateID types.ID) error {
	var count int
	q := tx.Model(&domain.WorkflowState{}).
		Where("template_id = ? AND is_initial = ?", templateID, true)
	if excludeStateID != 0 {
		q = q.Where("id != ?", excludeStateID)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return bizerror.ErrDuplicateInitialState
	}
	return nil
}

func DetailWorkflowTemplate(id types.ID, sec *session.Context) (*domain.WorkflowTemplateDetail, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}

	detail := domain.WorkflowTemplateDetail{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.WorkflowTemplate{ID: id}).First(&detail.WorkflowTemplate).Error; err != nil {
			return err
		}
		return loadTemplateGraph(tx, &detail)
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func loadTemplateGraph(tx *gorm.DB, detail *domain.WorkflowTemplateDetail) error {
	var stateRecords []domain.WorkflowState
	if err := tx.Where(domain.WorkflowState{TemplateID: detail.ID}).
		Order("order_num ASC, name ASC").Find(&stateRecords).Error; err != nil {
		return err
	}
	var transitionRecords []domain.WorkflowTransition
	if err := tx.Where(domain.WorkflowTransition{TemplateID: detail.ID}).Find(&transitionRecords).Error; err != nil {
		return err
	}
	detail.States = stateRecords
	detail.Transitions = transitionRecords
	return nil
}

func QueryWorkflowTemplates(query *WorkflowTemplateQuery, sec *session.Context) (*[]domain.WorkflowTemplate, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}

	var templates []domain.WorkflowTemplate
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)

	q := db.Model(&domain.WorkflowTemplate{})
	if query.EntityType != "" {
		q = q.Where("entity_type = ?", query.EntityType)
	}
	if query.Name != "" {
		q = q.Where("name like ?", "%"+query.Name+"%")
	}
	if query.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if err := q.Order("name ASC").Find(&templates).Error; err != nil {
		return nil, err
	}
	return &templates, nil
}

func UpdateWorkflowTemplateBase(id types.ID, c *WorkflowTemplateBaseUpdation, sec *session.Context) (*domain.WorkflowTemplate, error) {
	if sec == nil || !sec.IsSystemAdmin() {
		return nil, bizerror.ErrForbidden
	}

	template := domain.WorkflowTemplate{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.WorkflowTemplate{ID: id}).First(&template).Error; err != nil {
			return err
		}

		changes := map[string]interface{}{
			"name": c.Name, "description": c.Description, "update_time": types.CurrentTimestamp(),
		}
		if c.IsActive != nil {
			changes["is_active"] = *c.IsActive
		}
		if err := tx.Model(&domain.WorkflowTemplate{}).Where(&domain.WorkflowTemplate{ID: id}).
			Update(changes).Error; err != nil {
			return err
		}
		// query again
		if err := tx.Where(&domain.WorkflowTemplate{ID: id}).First(&template).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &template, nil
}

// DeleteWorkflowTemplate removes the template and all dependent records: states,
// transitions, rules, history and metrics, in one transaction.
func DeleteWorkflowTemplate(id types.ID, sec *session.Context) error {
	if sec == nil || !sec.IsSystemAdmin() {
		return bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		template := domain.WorkflowTemplate{}
		if err := tx.Where(&domain.WorkflowTemplate{ID: id}).First(&template).Error; err != nil {
			return err
		}

		if err := tx.Model(&domain.WorkflowTemplate{}).Delete(&domain.WorkflowTemplate{ID: id}).Error; err != nil {
			return err
		}
		for _, dependent := range []interface{}{
			&domain.WorkflowState{}, &domain.WorkflowTransition{},
			&domain.WorkflowRule{}, &domain.WorkflowHistory{}, &domain.WorkflowMetrics{},
		} {
			if err := tx.Where("template_id = ?", id).Delete(dependent).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DuplicateWorkflowTemplate deep-copies a template with its states, transitions and
// rules under new ids, named "<original> (Copy)".
func DuplicateWorkflowTemplate(id types.ID, sec *session.Context) (*domain.WorkflowTemplateDetail, error) {
	if sec == nil || !sec.IsSystemAdmin() {
		return nil, bizerror.ErrForbidden
	}

	now := types.CurrentTimestamp()
	copied := &domain.WorkflowTemplateDetail{}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		origin := domain.WorkflowTemplateDetail{}
		if err := tx.Where(&domain.WorkflowTemplate{ID: id}).First(&origin.WorkflowTemplate).Error; err != nil {
			return err
		}
		if err := loadTemplateGraph(tx, &origin); err != nil {
			return err
		}
		var rules []domain.WorkflowRule
		if err := tx.Where(domain.WorkflowRule{TemplateID: origin.ID}).Find(&rules).Error; err != nil {
			return err
		}

		copied.WorkflowTemplate = origin.WorkflowTemplate
		copied.ID = idgen.NextID(idWorker)
		copied.Name = origin.Name + " (Copy)"
		copied.CreatorID = sec.Identity.ID
		copied.CreateTime = now
		copied.UpdateTime = now
		if err := tx.Create(&copied.WorkflowTemplate).Error; err != nil {
			return err
		}

		stateMapping := map[types.ID]types.ID{}
		for _, s := range origin.States {
			newState := s
			newState.ID = idgen.NextID(idWorker)
			newState.TemplateID = copied.ID
			newState.CreateTime = now
			newState.UpdateTime = now
			if err := tx.Create(&newState).Error; err != nil {
				return err
			}
			stateMapping[s.ID] = newState.ID
			copied.States = append(copied.States, newState)
		}
		for _, t := range origin.Transitions {
			newTransition := t
			newTransition.ID = idgen.NextID(idWorker)
			newTransition.TemplateID = copied.ID
			newTransition.FromStateID = stateMapping[t.FromStateID]
			newTransition.ToStateID = stateMapping[t.ToStateID]
			newTransition.CreateTime = now
			newTransition.UpdateTime = now
			if err := tx.Create(&newTransition).Error; err != nil {
				return err
			}
			copied.Transitions = append(copied.Transitions, newTransition)
		}
		for _, r := range rules {
			newRule := r
			newRule.ID = idgen.NextID(idWorker)
			newRule.TemplateID = copied.ID
			newRule.TriggerOnStateID = stateMapping[r.TriggerOnStateID]
			newRule.CreatorID = sec.Identity.ID
			newRule.CreateTime = now
			newRule.UpdateTime = now
			if err := tx.Create(&newRule).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return copied, nil
}

func CreateState(creating *StateCreating, sec *session.Context) (*domain.WorkflowState, error) {
	if sec == nil || !sec.IsSystemAdmin() {
		return nil, bizerror.ErrForbidden
	}
	if creating.TemplateID == 0 {
		return nil, &bizerror.ErrBadParam{}
	}

	now := types.CurrentTimestamp()
	var stateEntity *domain.WorkflowState
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		template := domain.WorkflowTemplate{}
		if err := tx.Where(&domain.WorkflowTemplate{ID: creating.TemplateID}).First(&template).Error; err != nil {
			return err
		}

		var err error
		stateEntity, err = buildState(creating.TemplateID, 0, *creating, now)
		if err != nil {
			return err
		}
		if creating.IsInitial == nil {
			stateEntity.IsInitial = false
		}
		if creating.Order != 0 {
			stateEntity.Order = creating.Order
		}

		if err := checkStateNameAndSlugFree(tx, creating.TemplateID, stateEntity.Name, stateEntity.Slug, 0); err != nil {
			return err
		}
		if stateEntity.IsInitial {
			if err := checkSingleInitialState(tx, creating.TemplateID, 0); err != nil {
				return err
			}
		}
		return tx.Create(stateEntity).Error
	})
	if err != nil {
		return nil, err
	}
	return stateEntity, nil
}

func checkStateNameAndSlugFree(tx *gorm.DB, templateID types.ID, name, slug string, excludeStateID types.ID) error {
	var existing []domain.WorkflowState
	q := tx.Where("template_id = ? AND (name = ? OR slug = ?)", templateID, name, slug)
	if excludeStateID != 0 {
		q = q.Where("id != ?", excludeStateID)
	}
	if err := q.Find(&existing).Error; err != nil {
		return err
	}
	if len(existing) > 0 {
		return bizerror.ErrStateExisted
	}
	return nil
}

func UpdateState(id types.ID, updating *StateUpdating, sec *session.Context) (*domain.WorkflowState, error) {
	if sec == nil || !sec.IsSystemAdmin() {
		return nil, bizerror.ErrForbidden
	}

	stateEntity := domain.WorkflowState{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.WorkflowState{ID: id}).First(&stateEntity).Error; err != nil {
			return err
		}

		slug := updating.Slug
		if slug == "" {
			slug = Slugify(updating.Name)
		}
		if err := checkStateNameAndSlugFree(tx, stateEntity.TemplateID, updating.Name, slug, id); err != nil {
			return err
		}
		if updating.IsInitial {
			if err := checkSingleInitialState(tx, stateEntity.TemplateID, id); err != nil {
				return err
			}
		}

		changes := map[string]interface{}{
			"name": updating.Name, "slug": slug, "description": updating.Description,
			"color": updating.Color, "icon": updating.Icon,
			"is_initial": updating.IsInitial, "is_final": updating.IsFinal, "order_num": updating.Order,
			"auto_assign_to_creator": updating.AutoAssignToCreator,
			"require_assignee":       updating.RequireAssignee,
			"require_comment":        updating.RequireComment,
			"notify_stakeholders":    updating.NotifyStakeholders,
			"update_time":            types.CurrentTimestamp(),
		}
		if err := tx.Model(&domain.WorkflowState{}).Where(&domain.WorkflowState{ID: id}).
			Update(changes).Error; err != nil {
			return err
		}
		return tx.Where(&domain.WorkflowState{ID: id}).First(&stateEntity).Error
	})
	if err != nil {
		return nil, err
	}
	return &stateEntity, nil
}

// DeleteState removes a state with its transitions, rules and metrics. History rows
// entering the state go with it; rows merely leaving it keep their target and lose the
// source reference.
func DeleteState(id types.ID, sec *session.Context) error {
	if sec == nil || !sec.IsSystemAdmin() {
		return bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		stateEntity := domain.WorkflowState{}
		if err := tx.Where(&domain.WorkflowState{ID: id}).First(&stateEntity).Error; err != nil {
			return err
		}

		if err := tx.Where("from_state_id = ? OR to_state_id = ?", id, id).
			Delete(&domain.WorkflowTransition{}).Error; err != nil {
			return err
		}
		if err := tx.Where("trigger_on_state_id = ?", id).Delete(&domain.WorkflowRule{}).Error; err != nil {
			return err
		}
		if err := tx.Where("state_id = ?", id).Delete(&domain.WorkflowMetrics{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.WorkflowHistory{}).Where("from_state_id = ?", id).
			Update("from_state_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("to_state_id = ?", id).Delete(&domain.WorkflowHistory{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.WorkflowState{}, "id = ?", id).Error
	})
}

func CreateTransition(creating *TransitionCreating, sec *session.Context) (*domain.WorkflowTransition, error) {
	if sec == nil || !sec.IsSystemAdmin() {
		return nil, bizerror.ErrForbidden
	}

	now := types.CurrentTimestamp()
	requireRole := creating.RequireRole
	if requireRole == "" {
		requireRole = domain.TransitionRoleAny
	}
	transition := &domain.WorkflowTransition{
		ID:         idgen.NextID(idWorker),
		TemplateID: creating.TemplateID,

		FromStateID: creating.FromStateID,
		ToStateID:   creating.ToStateID,

		Name:        creating.Name,
		Description: creating.Description,

		RequirePermission:          creating.RequirePermission,
		RequireRole:                requireRole,
		RequireAllSubtasksComplete: creating.RequireAllSubtasksComplete,
		RequireComment:             creating.RequireComment,

		AutoAssignToUser:   creating.AutoAssignToUser,
		AutoSetDueDateDays: creating.AutoSetDueDateDays,

		CreateTime: now,
		UpdateTime: now,
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		template := domain.WorkflowTemplate{}
		if err := tx.Where(&domain.WorkflowTemplate{ID: creating.TemplateID}).First(&template).Error; err != nil {
			return err
		}

		// both endpoints must exist and belong to this very template
		for _, stateID := range []types.ID{creating.FromStateID, creating.ToStateID} {
			stateEntity := domain.WorkflowState{}
			if err := tx.Where(&domain.WorkflowState{ID: stateID}).First(&stateEntity).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return bizerror.ErrUnknownState
				}
				return err
			}
			if stateEntity.TemplateID != creating.TemplateID {
				return bizerror.ErrCrossTemplateState
			}
		}

		var existing domain.WorkflowTransition
		err := tx.Where(&domain.WorkflowTransition{TemplateID: creating.TemplateID,
			FromStateID: creating.FromStateID, ToStateID: creating.ToStateID}).First(&existing).Error
		if err == nil {
			return bizerror.ErrTransitionExisted
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		return tx.Create(transition).Error
	})
	if err != nil {
		return nil, err
	}
	return transition, nil
}

func DeleteTransition(id types.ID, sec *session.Context) error {
	if sec == nil || !sec.IsSystemAdmin() {
		return bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		transition := domain.WorkflowTransition{}
		if err := tx.Where(&domain.WorkflowTransition{ID: id}).First(&transition).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.WorkflowTransition{}, "id = ?", id).Error
	})
}

// ActiveTemplateForEntityType loads the first active template of an entity type with its
// graph. Returns domain.ErrNotFound when there is none.
func ActiveTemplateForEntityType(entityType domain.EntityType, tx *gorm.DB) (*domain.WorkflowTemplateDetail, error) {
	detail := domain.WorkflowTemplateDetail{}
	err := tx.Where(&domain.WorkflowTemplate{EntityType: entityType, IsActive: true}).
		Order("create_time ASC").First(&detail.WorkflowTemplate).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if err := loadTemplateGraph(tx, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}
