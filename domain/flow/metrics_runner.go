package flow

import (
	"context"
	"time"

	"trackflow/authority"
	"trackflow/domain"
	"trackflow/persistence"
	"trackflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultMetricsCronSpec recalculates the previous day shortly after midnight.
const DefaultMetricsCronSpec = "10 0 * * *"

type MetricsScheduler struct {
	cron *cron.Cron
}

// StartMetricsScheduler runs RecalculateDailyMetrics on the given cron spec until Stop.
func StartMetricsScheduler(spec string) (*MetricsScheduler, error) {
	scheduler := &MetricsScheduler{cron: cron.New()}
	if _, err := scheduler.cron.AddFunc(spec, RecalculateDailyMetrics); err != nil {
		return nil, err
	}
	scheduler.cron.Start()
	return scheduler, nil
}

func (s *MetricsScheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

var systemContext = session.Context{
	Identity: session.Identity{Name: "system"},
	Perms:    authority.Permissions{"system:admin"},
}

// RecalculateDailyMetrics materializes yesterday's metrics for every active template.
func RecalculateDailyMetrics() {
	now := time.Now()
	dayEnd := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayStart := dayEnd.AddDate(0, 0, -1)

	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	var templates []domain.WorkflowTemplate
	if err := db.Where(&domain.WorkflowTemplate{IsActive: true}).Find(&templates).Error; err != nil {
		logrus.Warnln("metrics schedule: failed to list templates:", err)
		return
	}

	for _, template := range templates {
		calc := MetricsCalculation{
			TemplateID:  template.ID,
			PeriodStart: types.Timestamp(dayStart),
			PeriodEnd:   types.Timestamp(dayEnd),
		}
		if _, err := CalculateMetricsFunc(&calc, &systemContext); err != nil {
			logrus.Warnln("metrics schedule: template", template.ID, "failed:", err)
		}
	}
}
