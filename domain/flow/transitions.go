package flow

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"trackflow/bizerror"
	"trackflow/domain"
	"trackflow/event"
	"trackflow/idgen"
	"trackflow/notify"
	"trackflow/persistence"
	"trackflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var ExecuteTransitionFunc = ExecuteTransition

// ExecuteTransition moves an entity along one edge of its workflow template. All guards
// are checked and the entity, history and event rows are written in one transaction;
// notifications and rules run after the commit.
func ExecuteTransition(execution *TransitionExecution, sec *session.Context) (*domain.WorkflowHistory, error) {
	return executeTransition(execution, sec, 0, map[types.ID]bool{})
}

func executeTransition(execution *TransitionExecution, sec *session.Context,
	depth int, visitedStates map[types.ID]bool) (*domain.WorkflowHistory, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}

	var (
		history     *domain.WorkflowHistory
		detail      *domain.WorkflowTemplateDetail
		toState     domain.WorkflowState
		info        *EntityInfo
		eventRecord *event.EventRecord
	)

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		transition := domain.WorkflowTransition{}
		if err := tx.Where(&domain.WorkflowTransition{ID: execution.TransitionID}).First(&transition).Error; err != nil {
			return err
		}

		var err error
		detail = &domain.WorkflowTemplateDetail{}
		if err = tx.Where(&domain.WorkflowTemplate{ID: transition.TemplateID}).First(&detail.WorkflowTemplate).Error; err != nil {
			return err
		}
		if !detail.IsActive {
			return bizerror.ErrInvalidTransition
		}
		if detail.EntityType != execution.EntityType {
			return &bizerror.ErrBadParam{Cause: fmt.Errorf("transition belongs to %s workflows", detail.EntityType)}
		}
		if err = loadTemplateGraph(tx, detail); err != nil {
			return err
		}

		fromState, found := detail.FindState(transition.FromStateID)
		if !found {
			return bizerror.ErrUnknownState
		}
		toState, found = detail.FindState(transition.ToStateID)
		if !found {
			return bizerror.ErrUnknownState
		}

		provider, err := EntityProviderOf(execution.EntityType)
		if err != nil {
			return err
		}
		info, err = provider.FindEntity(execution.EntityID, tx)
		if err != nil {
			return err
		}

		if info.StateSlug != fromState.Slug {
			return &bizerror.ErrGuardViolation{Guard: bizerror.GuardCurrentState,
				Message: fmt.Sprintf("entity is in state %s, transition starts from %s", info.StateSlug, fromState.Slug)}
		}
		if err := checkRoleGuard(&transition, info, sec); err != nil {
			return err
		}
		if transition.RequirePermission != "" && !sec.IsSystemAdmin() && !sec.HasRole(transition.RequirePermission) {
			return &bizerror.ErrGuardViolation{Guard: bizerror.GuardPermission,
				Message: "permission " + transition.RequirePermission + " is required"}
		}
		if (transition.RequireComment || toState.RequireComment) && execution.Comment == "" {
			return &bizerror.ErrGuardViolation{Guard: bizerror.GuardComment,
				Message: "a comment is required for this transition"}
		}
		if transition.RequireAllSubtasksComplete {
			complete, err := provider.AllSubtasksComplete(execution.EntityID, tx)
			if err != nil {
				return err
			}
			if !complete {
				return &bizerror.ErrGuardViolation{Guard: bizerror.GuardSubtasksComplete,
					Message: "all subtasks must be complete before this transition"}
			}
		}

		assignTo := resolveAssignee(&transition, &toState, info)
		if toState.RequireAssignee && assignTo == nil {
			return &bizerror.ErrGuardViolation{Guard: bizerror.GuardAssignee,
				Message: "state " + toState.Name + " requires an assignee"}
		}

		if err := provider.UpdateEntityState(execution.EntityID, fromState.Slug, toState.Slug, tx); err != nil {
			if errors.Is(err, domain.ErrInvalidState) {
				return &bizerror.ErrGuardViolation{Guard: bizerror.GuardCurrentState,
					Message: "entity state changed concurrently"}
			}
			return err
		}
		if assignTo != nil && (info.AssigneeID == nil || *info.AssigneeID != *assignTo) {
			if err := provider.AssignEntity(execution.EntityID, *assignTo, tx); err != nil {
				return err
			}
		}
		if transition.AutoSetDueDateDays != nil {
			dueDate := time.Now().AddDate(0, 0, *transition.AutoSetDueDateDays)
			if err := provider.SetEntityDueDate(execution.EntityID, dueDate, tx); err != nil {
				return err
			}
		}
		if execution.Comment != "" {
			if err := provider.AddEntityComment(execution.EntityID, sec.Identity.ID, execution.Comment, tx); err != nil {
				return err
			}
		}

		fromStateID := fromState.ID
		transitionID := transition.ID
		history = &domain.WorkflowHistory{
			ID:         idgen.NextID(idWorker),
			TemplateID: detail.ID,

			EntityType: execution.EntityType,
			EntityID:   execution.EntityID,

			FromStateID:  &fromStateID,
			ToStateID:    toState.ID,
			TransitionID: &transitionID,

			ChangedBy: sec.Identity.ID,
			Comment:   execution.Comment,
			Metadata:  buildHistoryMetadata(execution.Metadata, info, assignTo),

			CreateTime: types.CurrentTimestamp(),
		}
		if err := CreateHistoryRecordFunc(history, tx); err != nil {
			return err
		}

		eventRecord, err = event.CreateEvent(string(execution.EntityType), execution.EntityID, info.Title,
			event.EventCategoryStatusChanged,
			[]event.UpdatedProperty{{PropertyName: "state", PropertyDesc: "Workflow State",
				OldValue: fromState.Slug, OldValueDesc: fromState.Name,
				NewValue: toState.Slug, NewValueDesc: toState.Name}},
			nil, &sec.Identity, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if eventRecord != nil {
		event.InvokeHandlersFunc(eventRecord)
	}
	if toState.NotifyStakeholders {
		notify.Send(notify.Notification{
			EntityType:  string(execution.EntityType),
			EntityID:    execution.EntityID,
			EntityTitle: info.Title,
			StateName:   toState.Name,
			Recipients:  stakeholdersOf(info),
			Message:     fmt.Sprintf("%s moved to %s", info.Title, toState.Name),
		})
	}

	visitedStates[toState.ID] = true
	FireRulesFunc(detail, toState.ID, execution.EntityType, execution.EntityID, sec, depth, visitedStates)

	return history, nil
}

func checkRoleGuard(transition *domain.WorkflowTransition, info *EntityInfo, sec *session.Context) error {
	switch transition.RequireRole {
	case "", domain.TransitionRoleAny:
		return nil
	case domain.TransitionRoleOwner:
		if sec.Identity.ID == info.OwnerID {
			return nil
		}
	case domain.TransitionRoleAssignee:
		if info.AssigneeID != nil && *info.AssigneeID == sec.Identity.ID {
			return nil
		}
	case domain.TransitionRoleAdmin:
		if sec.IsSystemAdmin() || sec.HasRole(fmt.Sprintf("%s_%d", domain.ProjectRoleManager, info.ProjectID)) {
			return nil
		}
	}
	return &bizerror.ErrGuardViolation{Guard: bizerror.GuardRole,
		Message: "role " + transition.RequireRole + " is required"}
}

// resolveAssignee decides who the entity is assigned to after the transition, nil when
// it stays unassigned. An explicit transition target wins over auto-assign-to-creator.
func resolveAssignee(transition *domain.WorkflowTransition, toState *domain.WorkflowState, info *EntityInfo) *types.ID {
	if transition.AutoAssignToUser != nil {
		return transition.AutoAssignToUser
	}
	if toState.AutoAssignToCreator {
		reporterID := info.ReporterID
		return &reporterID
	}
	return info.AssigneeID
}

func buildHistoryMetadata(extra domain.JSONMap, info *EntityInfo, assignTo *types.ID) domain.JSONMap {
	metadata := domain.JSONMap{}
	for k, v := range extra {
		metadata[k] = v
	}
	metadata["entityTitle"] = info.Title
	metadata["projectId"] = strconv.FormatUint(uint64(info.ProjectID), 10)
	if assignTo != nil {
		metadata["assigneeId"] = strconv.FormatUint(uint64(*assignTo), 10)
	}
	return metadata
}

func stakeholdersOf(info *EntityInfo) []types.ID {
	seen := map[types.ID]bool{}
	recipients := []types.ID{}
	for _, userID := range []types.ID{info.OwnerID, info.ReporterID} {
		if userID != 0 && !seen[userID] {
			seen[userID] = true
			recipients = append(recipients, userID)
		}
	}
	if info.AssigneeID != nil && *info.AssigneeID != 0 && !seen[*info.AssigneeID] {
		recipients = append(recipients, *info.AssigneeID)
	}
	return recipients
}
