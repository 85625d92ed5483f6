package flow

import (
	"errors"
	"fmt"
	"strconv"

	"trackflow/bizerror"
	"trackflow/domain"
	"trackflow/idgen"
	"trackflow/notify"
	"trackflow/persistence"
	"trackflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"
)

// maxRuleChainDepth caps auto_transition chains so a cyclic rule setup cannot
// recurse forever.
const maxRuleChainDepth = 10

var (
	CreateRuleFunc = CreateRule
	QueryRulesFunc = QueryRules
	ToggleRuleFunc = ToggleRule
	DeleteRuleFunc = DeleteRule

	FireRulesFunc func(detail *domain.WorkflowTemplateDetail, stateID types.ID, entityType domain.EntityType,
		entityID types.ID, sec *session.Context, depth int, visitedStates map[types.ID]bool)
)

func init() {
	FireRulesFunc = FireRules
}

var ruleActionSchemas = map[domain.RuleActionType]*gojsonschema.Schema{}

func init() {
	schemaSources := map[domain.RuleActionType]string{
		domain.ActionAutoTransition: `{
			"type": "object",
			"required": ["transitionId"],
			"properties": {"transitionId": {"type": ["string", "integer"]}}
		}`,
		domain.ActionSendNotification: `{
			"type": "object",
			"required": ["message"],
			"properties": {
				"message": {"type": "string", "minLength": 1},
				"recipients": {"type": "array", "items": {"type": ["string", "integer"]}}
			}
		}`,
		domain.ActionAssignUser: `{
			"type": "object",
			"required": ["userId"],
			"properties": {"userId": {"type": ["string", "integer"]}}
		}`,
		domain.ActionSetDueDate: `{
			"type": "object",
			"required": ["days"],
			"properties": {"days": {"type": "integer", "minimum": 0}}
		}`,
		domain.ActionAddComment: `{
			"type": "object",
			"required": ["content"],
			"properties": {"content": {"type": "string", "minLength": 1}}
		}`,
		domain.ActionWebhook: `{
			"type": "object",
			"required": ["url"],
			"properties": {"url": {"type": "string", "pattern": "^https?://"}}
		}`,
	}
	for actionType, source := range schemaSources {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
		if err != nil {
			panic(err)
		}
		ruleActionSchemas[actionType] = schema
	}
}

func ValidateRuleActionConfig(actionType domain.RuleActionType, config domain.JSONMap) error {
	schema, found := ruleActionSchemas[actionType]
	if !found {
		return &bizerror.ErrInvalidRule{Message: fmt.Sprintf("unknown action type %s", actionType)}
	}

	document := map[string]interface{}(config)
	if document == nil {
		document = map[string]interface{}{}
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return err
	}
	if !result.Valid() {
		details := []string{}
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return &bizerror.ErrInvalidRule{Message: fmt.Sprintf("action config does not match %s schema", actionType),
			Data: details}
	}
	return nil
}

func CreateRule(creating *RuleCreating, sec *session.Context) (*domain.WorkflowRule, error) {
	if sec == nil || !sec.IsSystemAdmin() {
		return nil, bizerror.ErrForbidden
	}
	if err := ValidateRuleActionConfig(creating.ActionType, creating.ActionConfig); err != nil {
		return nil, err
	}

	now := types.CurrentTimestamp()
	rule := &domain.WorkflowRule{
		ID:         idgen.NextID(idWorker),
		TemplateID: creating.TemplateID,

		Name:        creating.Name,
		Description: creating.Description,

		TriggerOnStateID: creating.TriggerOnStateID,
		TriggerCondition: creating.TriggerCondition,

		ActionType:   creating.ActionType,
		ActionConfig: creating.ActionConfig,

		IsActive:  true,
		Priority:  creating.Priority,
		CreatorID: sec.Identity.ID,

		CreateTime: now,
		UpdateTime: now,
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		template := domain.WorkflowTemplate{}
		if err := tx.Where(&domain.WorkflowTemplate{ID: creating.TemplateID}).First(&template).Error; err != nil {
			return err
		}
		stateEntity := domain.WorkflowState{}
		if err := tx.Where(&domain.WorkflowState{ID: creating.TriggerOnStateID}).First(&stateEntity).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return bizerror.ErrUnknownState
			}
			return err
		}
		if stateEntity.TemplateID != creating.TemplateID {
			return bizerror.ErrCrossTemplateState
		}
		return tx.Create(rule).Error
	})
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func QueryRules(query *RuleQuery, sec *session.Context) (*[]domain.WorkflowRule, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	q := db.Model(&domain.WorkflowRule{})
	if query.TemplateID != 0 {
		q = q.Where("template_id = ?", query.TemplateID)
	}
	if query.TriggerOnStateID != 0 {
		q = q.Where("trigger_on_state_id = ?", query.TriggerOnStateID)
	}
	if query.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}

	var rules []domain.WorkflowRule
	if err := q.Order("priority ASC, create_time ASC").Find(&rules).Error; err != nil {
		return nil, err
	}
	return &rules, nil
}

// ToggleRule flips the active flag and returns the updated rule.
func ToggleRule(id types.ID, sec *session.Context) (*domain.WorkflowRule, error) {
	if sec == nil || !sec.IsSystemAdmin() {
		return nil, bizerror.ErrForbidden
	}

	rule := domain.WorkflowRule{}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.WorkflowRule{ID: id}).First(&rule).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.WorkflowRule{}).Where(&domain.WorkflowRule{ID: id}).
			Update(map[string]interface{}{"is_active": !rule.IsActive, "update_time": types.CurrentTimestamp()}).Error; err != nil {
			return err
		}
		return tx.Where(&domain.WorkflowRule{ID: id}).First(&rule).Error
	})
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func DeleteRule(id types.ID, sec *session.Context) error {
	if sec == nil || !sec.IsSystemAdmin() {
		return bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		rule := domain.WorkflowRule{}
		if err := tx.Where(&domain.WorkflowRule{ID: id}).First(&rule).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.WorkflowRule{}, "id = ?", id).Error
	})
}

// FireRules runs the active rules bound to a state the entity just entered. Rules run
// outside the transition's transaction: a failing rule is logged and skipped, it never
// rolls the transition back.
func FireRules(detail *domain.WorkflowTemplateDetail, stateID types.ID, entityType domain.EntityType,
	entityID types.ID, sec *session.Context, depth int, visitedStates map[types.ID]bool) {
	if depth >= maxRuleChainDepth {
		logrus.Warnln("rule chain depth limit reached, stop firing rules for", entityType, entityID)
		return
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	var rules []domain.WorkflowRule
	err := db.Where("template_id = ? AND trigger_on_state_id = ? AND is_active = ?", detail.ID, stateID, true).
		Order("priority ASC, create_time ASC").Find(&rules).Error
	if err != nil {
		logrus.Warnln("failed to load rules for state", stateID, ":", err)
		return
	}

	for _, rule := range rules {
		provider, err := EntityProviderOf(entityType)
		if err != nil {
			logrus.Warnln("rule", rule.Name, "skipped:", err)
			return
		}
		info, err := provider.FindEntity(entityID, db)
		if err != nil {
			logrus.Warnln("rule", rule.Name, "skipped:", err)
			return
		}
		if !matchTriggerCondition(rule.TriggerCondition, info) {
			continue
		}
		if err := applyRuleAction(&rule, info, entityType, entityID, sec, depth, visitedStates); err != nil {
			logrus.Warnln("rule", rule.Name, "failed:", err)
		}
	}
}

// matchTriggerCondition is a simple equality match of every condition entry against the
// entity snapshot. An empty condition always matches.
func matchTriggerCondition(condition domain.JSONMap, info *EntityInfo) bool {
	if len(condition) == 0 {
		return true
	}

	snapshot := map[string]string{
		"title":      info.Title,
		"stateSlug":  info.StateSlug,
		"projectId":  strconv.FormatUint(uint64(info.ProjectID), 10),
		"ownerId":    strconv.FormatUint(uint64(info.OwnerID), 10),
		"reporterId": strconv.FormatUint(uint64(info.ReporterID), 10),
	}
	if info.AssigneeID != nil {
		snapshot["assigneeId"] = strconv.FormatUint(uint64(*info.AssigneeID), 10)
	}

	for key, expected := range condition {
		actual, found := snapshot[key]
		if !found || actual != fmt.Sprint(expected) {
			return false
		}
	}
	return true
}

func applyRuleAction(rule *domain.WorkflowRule, info *EntityInfo, entityType domain.EntityType,
	entityID types.ID, sec *session.Context, depth int, visitedStates map[types.ID]bool) error {

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	provider, err := EntityProviderOf(entityType)
	if err != nil {
		return err
	}

	switch rule.ActionType {
	case domain.ActionAutoTransition:
		transitionID, ok := configID(rule.ActionConfig["transitionId"])
		if !ok {
			return fmt.Errorf("rule %s has no usable transitionId", rule.Name)
		}
		transition := domain.WorkflowTransition{}
		if err := db.Where(&domain.WorkflowTransition{ID: transitionID}).First(&transition).Error; err != nil {
			return err
		}
		if visitedStates[transition.ToStateID] {
			logrus.Warnln("rule", rule.Name, "skipped: state already visited in this chain")
			return nil
		}
		_, err := executeTransition(&TransitionExecution{
			TransitionID: transitionID,
			EntityType:   entityType,
			EntityID:     entityID,
			Comment:      "triggered by rule " + rule.Name,
		}, sec, depth+1, visitedStates)
		return err

	case domain.ActionSendNotification:
		message, _ := rule.ActionConfig["message"].(string)
		notify.Send(notify.Notification{
			EntityType:  string(entityType),
			EntityID:    entityID,
			EntityTitle: info.Title,
			Recipients:  stakeholdersOf(info),
			Message:     message,
		})
		return nil

	case domain.ActionAssignUser:
		userID, ok := configID(rule.ActionConfig["userId"])
		if !ok {
			return fmt.Errorf("rule %s has no usable userId", rule.Name)
		}
		return db.Transaction(func(tx *gorm.DB) error {
			return provider.AssignEntity(entityID, userID, tx)
		})

	case domain.ActionSetDueDate:
		days, ok := configInt(rule.ActionConfig["days"])
		if !ok {
			return fmt.Errorf("rule %s has no usable days", rule.Name)
		}
		return db.Transaction(func(tx *gorm.DB) error {
			return provider.SetEntityDueDate(entityID, types.CurrentTimestamp().Time().AddDate(0, 0, days), tx)
		})

	case domain.ActionAddComment:
		content, _ := rule.ActionConfig["content"].(string)
		return db.Transaction(func(tx *gorm.DB) error {
			return provider.AddEntityComment(entityID, rule.CreatorID, content, tx)
		})

	case domain.ActionWebhook:
		url, _ := rule.ActionConfig["url"].(string)
		return notify.PostWebhook(url, notify.WebhookPayload{
			RuleName:    rule.Name,
			EntityType:  string(entityType),
			EntityID:    entityID,
			EntityTitle: info.Title,
			StateSlug:   info.StateSlug,
		})
	}

	return fmt.Errorf("unknown action type %s", rule.ActionType)
}

// configID accepts the id forms a JSON config can carry: a decimal string or a number.
func configID(v interface{}) (types.ID, bool) {
	switch value := v.(type) {
	case string:
		id, err := types.ParseID(value)
		if err != nil {
			return 0, false
		}
		return id, true
	case float64:
		return types.ID(uint64(value)), true
	case int:
		return types.ID(uint64(value)), true
	}
	return 0, false
}

func configInt(v interface{}) (int, bool) {
	switch value := v.(type) {
	case float64:
		return int(value), true
	case int:
		return value, true
	case string:
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
