package indices

import (
	"context"
	"sync"

	"trackflow/bizerror"
	"trackflow/client/es"
	"trackflow/domain"
	"trackflow/event"
	"trackflow/persistence"
	"trackflow/session"

	"github.com/sirupsen/logrus"
)

var (
	FeatureIndexEventHandlerName = "featureIndexer"

	lock    sync.Mutex
	running bool

	IndicesFullSyncFunc    = IndicesFullSync
	ScheduleNewSyncRunFunc = ScheduleNewSyncRun
)

// ScheduleNewSyncRun starts one full re-index in the background. A second request while
// a run is in flight is a no-op.
func ScheduleNewSyncRun(sec *session.Context) (bool, error) {
	if sec == nil || !sec.IsSystemAdmin() {
		return false, bizerror.ErrForbidden
	}

	lock.Lock()
	if running {
		lock.Unlock()
		return false, nil
	}
	running = true
	lock.Unlock()

	waitRunning := sync.WaitGroup{}
	waitRunning.Add(1)
	go func() {
		waitRunning.Done()
		defer func() {
			lock.Lock()
			running = false
			lock.Unlock()
		}()
		IndicesFullSyncFunc()
	}()
	waitRunning.Wait()
	return true, nil
}

func IndicesFullSync() {
	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	var features []domain.Feature
	if err := db.Find(&features).Error; err != nil {
		logrus.Warnln("index full sync: failed to load features:", err)
		return
	}
	if err := IndexFeatures(features); err != nil {
		logrus.Warnln("index full sync finished with errors:", err)
		return
	}
	logrus.Infoln("index full sync finished,", len(features), "features indexed")
}

// FeatureIndexEventHandler keeps the search index in step with feature mutations. It is
// registered on event.EventHandlers and runs post-commit.
func FeatureIndexEventHandler(record *event.EventRecord) *event.EventHandleResult {
	if record.SourceType != string(domain.EntityTypeFeature) {
		return nil
	}

	result := event.EventHandleResult{Success: true, HandlerIdentifier: FeatureIndexEventHandlerName}

	if record.EventCategory == event.EventCategoryDeleted {
		if err := es.DeleteDocumentByIdFunc(context.Background(), FeatureIndexName, record.SourceId); err != nil {
			result.Success = false
			result.Message = err.Error()
		}
		return &result
	}

	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	feature := domain.Feature{}
	if err := db.Where(&domain.Feature{ID: record.SourceId}).First(&feature).Error; err != nil {
		result.Success = false
		result.Message = err.Error()
		return &result
	}
	if err := IndexFeatures([]domain.Feature{feature}); err != nil {
		result.Success = false
		result.Message = err.Error()
	}
	return &result
}
