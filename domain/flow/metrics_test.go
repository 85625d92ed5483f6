package flow_test

import (
	"context"
	"testing"
	"time"

	"trackflow/bizerror"
	"trackflow/domain"
	"trackflow/domain/flow"
	"trackflow/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
)

func TestCalculateMetrics(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	seedHistory := func(t *testing.T, id, templateID, toState types.ID, at time.Time) {
		assert.Nil(t, testDatabase.DS.GormDB(context.Background()).Create(&domain.WorkflowHistory{
			ID: id, TemplateID: templateID, EntityType: domain.EntityTypeFeature, EntityID: id,
			ToStateID: toState, ChangedBy: 1, CreateTime: types.Timestamp(at),
		}).Error)
	}

	t.Run("should only be allowed to system admins", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		_, err := flow.CalculateMetrics(&flow.MetricsCalculation{}, testinfra.BuildSecCtx(1, "manager_1"))
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("should materialize one row per state and be repeatable", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		sec := testinfra.BuildSecCtx(10, "system:admin")
		template, err := flow.CreateWorkflowTemplate(templateCreationDemo, sec)
		assert.Nil(t, err)

		periodStart := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		periodEnd := periodStart.AddDate(0, 0, 1)
		ideaState := template.States[0]
		liveState := template.States[len(template.States)-1]

		seedHistory(t, 1, template.ID, ideaState.ID, periodStart.Add(time.Hour))
		seedHistory(t, 2, template.ID, ideaState.ID, periodStart.Add(2*time.Hour))
		// right on the period end, still counted
		seedHistory(t, 3, template.ID, liveState.ID, periodEnd)
		// outside the period, must not be counted
		seedHistory(t, 4, template.ID, ideaState.ID, periodEnd.Add(time.Hour))

		calc := &flow.MetricsCalculation{TemplateID: template.ID,
			PeriodStart: types.Timestamp(periodStart), PeriodEnd: types.Timestamp(periodEnd)}
		rows, err := flow.CalculateMetrics(calc, sec)
		Expect(err).To(BeNil())
		Expect(len(*rows)).To(Equal(len(template.States)))

		byState := map[types.ID]domain.WorkflowMetrics{}
		for _, row := range *rows {
			byState[row.StateID] = row
		}
		Expect(byState[ideaState.ID].TotalEntries).To(Equal(2))
		Expect(byState[ideaState.ID].TotalExits).To(Equal(2))
		Expect(byState[ideaState.ID].AvgTimeInStateHours).To(Equal(24.0))
		// any state with entries in the period counts as completed
		Expect(byState[ideaState.ID].CompletionRate).To(Equal(100.0))
		Expect(byState[liveState.ID].TotalEntries).To(Equal(1))
		Expect(byState[liveState.ID].CompletionRate).To(Equal(100.0))
		Expect(byState[template.States[1].ID].TotalEntries).To(Equal(0))
		Expect(byState[template.States[1].ID].CompletionRate).To(Equal(0.0))

		// recalculating the same period overwrites instead of duplicating
		seedHistory(t, 5, template.ID, liveState.ID, periodStart.Add(4*time.Hour))
		rows, err = flow.CalculateMetrics(calc, sec)
		Expect(err).To(BeNil())

		var count int
		db := testDatabase.DS.GormDB(context.Background())
		Expect(db.Model(&domain.WorkflowMetrics{}).Count(&count).Error).To(BeNil())
		Expect(count).To(Equal(len(template.States)))
		record := domain.WorkflowMetrics{}
		Expect(db.Where("template_id = ? AND state_id = ?", template.ID, liveState.ID).
			First(&record).Error).To(BeNil())
		Expect(record.TotalEntries).To(Equal(2))
		Expect(record.CompletionRate).To(Equal(100.0))
	})

	t.Run("should query metrics of a template newest period first", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		sec := testinfra.BuildSecCtx(10, "system:admin")
		template, err := flow.CreateWorkflowTemplate(templateCreationDemo, sec)
		assert.Nil(t, err)

		day1 := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		day2 := day1.AddDate(0, 0, 1)
		_, err = flow.CalculateMetrics(&flow.MetricsCalculation{TemplateID: template.ID,
			PeriodStart: types.Timestamp(day1), PeriodEnd: types.Timestamp(day2)}, sec)
		assert.Nil(t, err)
		_, err = flow.CalculateMetrics(&flow.MetricsCalculation{TemplateID: template.ID,
			PeriodStart: types.Timestamp(day2), PeriodEnd: types.Timestamp(day2.AddDate(0, 0, 1))}, sec)
		assert.Nil(t, err)

		rows, err := flow.QueryMetrics(&flow.MetricsQuery{TemplateID: template.ID}, sec)
		Expect(err).To(BeNil())
		Expect(len(*rows)).To(Equal(2 * len(template.States)))
		Expect((*rows)[0].PeriodStart.Time().Unix()).To(Equal(day2.Unix()))

		stateID := template.States[0].ID
		rows, err = flow.QueryMetrics(&flow.MetricsQuery{TemplateID: template.ID, StateID: stateID}, sec)
		Expect(err).To(BeNil())
		Expect(len(*rows)).To(Equal(2))
		Expect((*rows)[0].StateID).To(Equal(stateID))
	})
}

func TestLoadUsageStats(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should summarize recent activity from the history ledger", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		sec := testinfra.BuildSecCtx(10, "system:admin")
		template, err := flow.CreateWorkflowTemplate(templateCreationDemo, sec)
		assert.Nil(t, err)
		ideaState := template.States[0]
		specState := template.States[1]

		db := testDatabase.DS.GormDB(context.Background())
		now := time.Now()
		histories := []domain.WorkflowHistory{
			{ID: 1, TemplateID: template.ID, EntityType: domain.EntityTypeFeature, EntityID: 10,
				ToStateID: ideaState.ID, ChangedBy: 1, CreateTime: types.Timestamp(now.AddDate(0, 0, -2))},
			{ID: 2, TemplateID: template.ID, EntityType: domain.EntityTypeFeature, EntityID: 10,
				ToStateID: specState.ID, ChangedBy: 1, CreateTime: types.Timestamp(now.AddDate(0, 0, -1))},
			{ID: 3, TemplateID: template.ID, EntityType: domain.EntityTypeFeature, EntityID: 11,
				ToStateID: ideaState.ID, ChangedBy: 1, CreateTime: types.Timestamp(now.AddDate(0, 0, -1))},
			// too old for a 7 day window
			{ID: 4, TemplateID: template.ID, EntityType: domain.EntityTypeFeature, EntityID: 12,
				ToStateID: ideaState.ID, ChangedBy: 1, CreateTime: types.Timestamp(now.AddDate(0, 0, -10))},
		}
		for i := range histories {
			assert.Nil(t, db.Create(&histories[i]).Error)
		}

		stats, err := flow.LoadUsageStats(&flow.UsageStatsQuery{TemplateID: template.ID, Days: 7}, sec)
		Expect(err).To(BeNil())
		Expect(stats.Days).To(Equal(7))
		Expect(stats.TotalTransitions).To(Equal(3))
		Expect(stats.UniqueEntities).To(Equal(2))
		Expect(stats.AvgTransitionsPerDay).To(BeNumerically("~", 3.0/7.0, 0.001))

		Expect(len(stats.StateDistribution)).To(Equal(2))
		Expect(stats.StateDistribution[0].StateName).To(Equal(ideaState.Name))
		Expect(stats.StateDistribution[0].Count).To(Equal(2))
		Expect(stats.StateDistribution[1].Count).To(Equal(1))

		Expect(len(stats.DailyActivity)).To(Equal(2))
		Expect(stats.DailyActivity[0].Count).To(Equal(1))
		Expect(stats.DailyActivity[1].Count).To(Equal(2))
	})

	t.Run("should default the window to thirty days", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)

		sec := testinfra.BuildSecCtx(10, "system:admin")
		template, err := flow.CreateWorkflowTemplate(templateCreationDemo, sec)
		assert.Nil(t, err)

		stats, err := flow.LoadUsageStats(&flow.UsageStatsQuery{TemplateID: template.ID}, sec)
		Expect(err).To(BeNil())
		Expect(stats.Days).To(Equal(30))
		Expect(stats.TotalTransitions).To(BeZero())
		Expect(stats.StateDistribution).To(BeEmpty())
		Expect(stats.DailyActivity).To(BeEmpty())
	})
}
