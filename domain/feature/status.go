package feature

import (
	"strconv"
	"time"

	"trackflow/bizerror"
	"trackflow/domain"
	"trackflow/domain/flow"
	"trackflow/domain/status"
	"trackflow/event"
	"trackflow/idgen"
	"trackflow/persistence"
	"trackflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

var (
	AdvanceStatusFunc = AdvanceStatus
	RevertStatusFunc  = RevertStatus
	SetStatusFunc     = SetStatus
)

// AdvanceStatus moves the feature one step forward in the linear flow.
func AdvanceStatus(id types.ID, sec *session.Context) (*domain.Feature, error) {
	return changeStatus(id, sec, func(current status.Status) (status.Status, error) {
		next := status.Next(current)
		if next == "" {
			return "", bizerror.ErrInvalidStatus
		}
		return next, nil
	})
}

// RevertStatus moves the feature one step back in the linear flow.
func RevertStatus(id types.ID, sec *session.Context) (*domain.Feature, error) {
	return changeStatus(id, sec, func(current status.Status) (status.Status, error) {
		previous := status.Previous(current)
		if previous == "" {
			return "", bizerror.ErrInvalidStatus
		}
		return previous, nil
	})
}

// SetStatus jumps directly to any valid status.
func SetStatus(id types.ID, target status.Status, sec *session.Context) (*domain.Feature, error) {
	if !status.IsValid(target) {
		return nil, bizerror.ErrInvalidStatus
	}
	return changeStatus(id, sec, func(current status.Status) (status.Status, error) {
		return target, nil
	})
}

func changeStatus(id types.ID, sec *session.Context,
	resolve func(current status.Status) (status.Status, error)) (*domain.Feature, error) {

	if sec == nil {
		return nil, bizerror.ErrForbidden
	}
	record := domain.Feature{}
	var eventRecord *event.EventRecord
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.Feature{ID: id}).First(&record).Error; err != nil {
			return err
		}
		if err := checkProjectMember(sec, record.ProjectID); err != nil {
			return err
		}

		from := record.Status
		to, err := resolve(from)
		if err != nil {
			return err
		}
		if to == from {
			return nil
		}

		changes := map[string]interface{}{
			"status": to, "update_time": types.CurrentTimestamp(),
		}
		if status.IsFinal(to) {
			now := time.Now()
			changes["completed_time"] = &now
		} else {
			changes["completed_time"] = nil
		}

		// conditional on the old status so two concurrent changes cannot both win
		updateQuery := tx.Model(&domain.Feature{}).
			Where("id = ? AND status = ?", id, from).Update(changes)
		if updateQuery.Error != nil {
			return updateQuery.Error
		}
		if updateQuery.RowsAffected != 1 {
			return bizerror.ErrStateInvalid
		}
		if err := tx.Where(&domain.Feature{ID: id}).First(&record).Error; err != nil {
			return err
		}

		mirrorStatusChange(tx, &record, from, to, sec)

		eventRecord, err = event.CreateEvent(string(domain.EntityTypeFeature), record.ID, record.Title,
			event.EventCategoryStatusChanged,
			[]event.UpdatedProperty{{PropertyName: "status", PropertyDesc: "Status",
				OldValue: string(from), NewValue: string(to)}},
			nil, &sec.Identity, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if eventRecord != nil {
		event.InvokeHandlersFunc(eventRecord)
	}
	return &record, nil
}

// mirrorStatusChange appends a history record when an active feature template maps both
// statuses onto state slugs. Best effort: any miss only logs, the status change stands.
func mirrorStatusChange(tx *gorm.DB, record *domain.Feature, from, to status.Status, sec *session.Context) {
	detail, err := flow.ActiveTemplateForEntityType(domain.EntityTypeFeature, tx)
	if err != nil {
		logrus.Debugln("status mirroring skipped for feature", record.ID, ":", err)
		return
	}
	fromState, foundFrom := detail.FindStateBySlug(string(from))
	toState, foundTo := detail.FindStateBySlug(string(to))
	if !foundFrom || !foundTo {
		logrus.Debugln("status mirroring skipped for feature", record.ID, ": unmapped slug")
		return
	}

	metadata := domain.JSONMap{
		"feature_title": record.Title,
		"project":       strconv.FormatUint(uint64(record.ProjectID), 10),
	}
	if record.AssigneeID != nil {
		metadata["assignee"] = strconv.FormatUint(uint64(*record.AssigneeID), 10)
	}

	fromStateID := fromState.ID
	history := domain.WorkflowHistory{
		ID:         idgen.NextID(idWorker),
		TemplateID: detail.ID,

		EntityType: domain.EntityTypeFeature,
		EntityID:   record.ID,

		FromStateID: &fromStateID,
		ToStateID:   toState.ID,

		ChangedBy: sec.Identity.ID,
		Metadata:  metadata,

		CreateTime: types.CurrentTimestamp(),
	}
	if err := flow.CreateHistoryRecordFunc(&history, tx); err != nil {
		logrus.Warnln("status mirroring failed for feature", record.ID, ":", err)
	}
}
