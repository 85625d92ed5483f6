package feature_test

import (
	"context"
	"testing"
	"time"

	"trackflow/bizerror"
	"trackflow/domain"
	"trackflow/domain/feature"
	"trackflow/domain/status"
	"trackflow/event"
	"trackflow/persistence"
	"trackflow/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/assert"
)

func setup(t *testing.T, testDatabase **testinfra.TestDatabase) {
	db := testinfra.StartMysqlTestDatabase("trackflow")
	assert.Nil(t, db.DS.GormDB(context.Background()).AutoMigrate(
		&domain.Project{}, &domain.Feature{}, &domain.FeatureDependency{}, &domain.FeatureComment{},
		&domain.WorkflowTemplate{}, &domain.WorkflowState{}, &domain.WorkflowTransition{},
		&domain.WorkflowHistory{}, &domain.WorkflowRule{}, &domain.WorkflowMetrics{},
		&event.EventRecord{}).Error)
	persistence.ActiveDataSourceManager = db.DS
	*testDatabase = db
}

func teardown(t *testing.T, testDatabase *testinfra.TestDatabase) {
	if testDatabase != nil {
		testinfra.StopMysqlTestDatabase(testDatabase)
	}
}

func date(value string) *time.Time {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return &d
}

// seedProject drops a project with a 2025 window into the test database.
func seedProject(t *testing.T, testDatabase *testinfra.TestDatabase, id, owner types.ID) {
	now := types.CurrentTimestamp()
	assert.Nil(t, testDatabase.DS.GormDB(context.Background()).Create(&domain.Project{
		ID: id, Name: "project " + id.String(), Owner: owner,
		StartDate: date("2025-01-01"), EndDate: date("2025-12-31"),
		CreateTime: now, UpdateTime: now,
	}).Error)
}

func TestCreateFeature(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should forbid non project members", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		seedProject(t, testDatabase, 1, 100)

		_, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "demo"},
			testinfra.BuildSecCtx(100, "common_2"))
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})

	t.Run("should create with defaults and record the reporter", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		seedProject(t, testDatabase, 1, 100)

		created, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "demo"},
			testinfra.BuildSecCtx(100, "common_1"))
		Expect(err).To(BeNil())
		Expect(created.ID).ToNot(BeZero())
		Expect(created.Status).To(Equal(status.Idea))
		Expect(created.Priority).To(Equal(domain.PriorityMedium))
		Expect(created.ReporterID).To(Equal(types.ID(100)))

		record := domain.Feature{}
		Expect(testDatabase.DS.GormDB(context.Background()).First(&record, "id = ?", created.ID).Error).To(BeNil())
		Expect(record.Title).To(Equal("demo"))
	})

	t.Run("should reject malformed and inverted dates", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		seedProject(t, testDatabase, 1, 100)
		sec := testinfra.BuildSecCtx(100, "common_1")

		_, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "demo",
			StartDate: "01/03/2025"}, sec)
		invalid, ok := err.(*bizerror.ErrInvalidDates)
		Expect(ok).To(BeTrue())
		Expect(invalid.Field).To(Equal("startDate"))

		_, err = feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "demo",
			StartDate: "2025-03-10", EndDate: "2025-03-01"}, sec)
		invalid, ok = err.(*bizerror.ErrInvalidDates)
		Expect(ok).To(BeTrue())
		Expect(invalid.Message).To(Equal("start date cannot be after end date"))
	})

	t.Run("should keep dates inside the project window", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		seedProject(t, testDatabase, 1, 100)
		sec := testinfra.BuildSecCtx(100, "common_1")

		_, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "demo",
			StartDate: "2024-12-01", EndDate: "2025-03-01"}, sec)
		invalid, ok := err.(*bizerror.ErrInvalidDates)
		Expect(ok).To(BeTrue())
		Expect(invalid.Message).To(Equal("startDate cannot be before project start date"))

		_, err = feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "demo",
			DueDate: "2026-02-01"}, sec)
		invalid, ok = err.(*bizerror.ErrInvalidDates)
		Expect(ok).To(BeTrue())
		Expect(invalid.Message).To(Equal("dueDate cannot be after project end date"))
	})

	t.Run("should keep child dates inside the parent window", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		seedProject(t, testDatabase, 1, 100)
		sec := testinfra.BuildSecCtx(100, "common_1")

		parent, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "parent",
			StartDate: "2025-01-01", EndDate: "2025-01-10"}, sec)
		assert.Nil(t, err)

		_, err = feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "child",
			ParentID: &parent.ID, StartDate: "2025-01-05", EndDate: "2025-01-15"}, sec)
		invalid, ok := err.(*bizerror.ErrInvalidDates)
		Expect(ok).To(BeTrue())
		Expect(invalid.Message).To(Equal("endDate cannot be after parent feature end date"))

		// the due date falls back to the parent end date as well
		_, err = feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "child",
			ParentID: &parent.ID, DueDate: "2025-01-12"}, sec)
		invalid, ok = err.(*bizerror.ErrInvalidDates)
		Expect(ok).To(BeTrue())
		Expect(invalid.Message).To(Equal("dueDate cannot be after parent feature end date"))

		_, err = feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "child",
			ParentID: &parent.ID, StartDate: "2025-01-02", EndDate: "2025-01-08"}, sec)
		Expect(err).To(BeNil())
	})

	t.Run("should reject a parent from another project and hierarchy cycles", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		seedProject(t, testDatabase, 1, 100)
		seedProject(t, testDatabase, 2, 100)
		sec := testinfra.BuildSecCtx(100, "common_1", "common_2")

		other, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 2, Title: "other"}, sec)
		assert.Nil(t, err)
		_, err = feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "demo",
			ParentID: &other.ID}, sec)
		_, ok := err.(*bizerror.ErrBadParam)
		Expect(ok).To(BeTrue())

		top, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "top"}, sec)
		assert.Nil(t, err)
		middle, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "middle",
			ParentID: &top.ID}, sec)
		assert.Nil(t, err)

		// re-parenting top under its own descendant must fail
		_, err = feature.UpdateFeature(top.ID, &feature.FeatureUpdating{Title: "top",
			ParentID: &middle.ID}, sec)
		_, ok = err.(*bizerror.ErrBadParam)
		Expect(ok).To(BeTrue())
	})

	t.Run("should recalculate the parent timeline from its children", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		seedProject(t, testDatabase, 1, 100)
		sec := testinfra.BuildSecCtx(100, "common_1")

		parent, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "parent",
			StartDate: "2025-03-01", EndDate: "2025-03-31"}, sec)
		assert.Nil(t, err)

		_, err = feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "child a",
			ParentID: &parent.ID, StartDate: "2025-03-03", EndDate: "2025-03-08"}, sec)
		assert.Nil(t, err)
		_, err = feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "child b",
			ParentID: &parent.ID, StartDate: "2025-03-04", EndDate: "2025-03-07"}, sec)
		assert.Nil(t, err)

		record := domain.Feature{}
		Expect(testDatabase.DS.GormDB(context.Background()).First(&record, "id = ?", parent.ID).Error).To(BeNil())
		Expect(record.StartDate.Format("2006-01-02")).To(Equal("2025-03-03"))
		Expect(record.EndDate.Format("2006-01-02")).To(Equal("2025-03-08"))
		// six days counting both endpoints, at least eight hours each
		Expect(*record.EstimatedHours).To(Equal(48))
	})
}

func TestFeatureDependencies(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should validate dependency scope", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		seedProject(t, testDatabase, 1, 100)
		seedProject(t, testDatabase, 2, 100)
		sec := testinfra.BuildSecCtx(100, "common_1", "common_2")

		a, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "a"}, sec)
		assert.Nil(t, err)
		other, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 2, Title: "other"}, sec)
		assert.Nil(t, err)

		err = feature.UpdateDependencies(a.ID, &feature.DependenciesUpdating{
			Dependencies: []types.ID{a.ID}}, sec)
		invalid, ok := err.(*bizerror.ErrInvalidDependency)
		Expect(ok).To(BeTrue())
		Expect(invalid.Message).To(Equal("a feature cannot depend on itself"))

		err = feature.UpdateDependencies(a.ID, &feature.DependenciesUpdating{
			Dependencies: []types.ID{other.ID}}, sec)
		invalid, ok = err.(*bizerror.ErrInvalidDependency)
		Expect(ok).To(BeTrue())
		Expect(invalid.Message).To(Equal("dependencies must belong to the same project"))
	})

	t.Run("should keep dependencies inside one hierarchy level", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		seedProject(t, testDatabase, 1, 100)
		sec := testinfra.BuildSecCtx(100, "common_1")

		parent, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "parent"}, sec)
		assert.Nil(t, err)
		child, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "child",
			ParentID: &parent.ID}, sec)
		assert.Nil(t, err)
		sibling, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "sibling",
			ParentID: &parent.ID}, sec)
		assert.Nil(t, err)
		loose, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "loose"}, sec)
		assert.Nil(t, err)

		err = feature.UpdateDependencies(parent.ID, &feature.DependenciesUpdating{
			Dependencies: []types.ID{child.ID}}, sec)
		invalid, ok := err.(*bizerror.ErrInvalidDependency)
		Expect(ok).To(BeTrue())
		Expect(invalid.Message).To(Equal("a feature cannot depend on its own child"))

		err = feature.UpdateDependencies(child.ID, &feature.DependenciesUpdating{
			Dependencies: []types.ID{parent.ID}}, sec)
		invalid, ok = err.(*bizerror.ErrInvalidDependency)
		Expect(ok).To(BeTrue())
		Expect(invalid.Message).To(Equal("a feature cannot depend on its own parent"))

		err = feature.UpdateDependencies(child.ID, &feature.DependenciesUpdating{
			Dependencies: []types.ID{loose.ID}}, sec)
		invalid, ok = err.(*bizerror.ErrInvalidDependency)
		Expect(ok).To(BeTrue())
		Expect(invalid.Message).To(Equal("dependencies must share the same parent feature"))

		Expect(feature.UpdateDependencies(child.ID, &feature.DependenciesUpdating{
			Dependencies: []types.ID{sibling.ID}}, sec)).To(BeNil())
	})

	t.Run("should reject cycles and keep the old edges on failure", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		seedProject(t, testDatabase, 1, 100)
		sec := testinfra.BuildSecCtx(100, "common_1")

		a, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "a"}, sec)
		assert.Nil(t, err)
		b, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "b"}, sec)
		assert.Nil(t, err)
		c, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "c"}, sec)
		assert.Nil(t, err)

		Expect(feature.UpdateDependencies(a.ID, &feature.DependenciesUpdating{
			Dependencies: []types.ID{b.ID}}, sec)).To(BeNil())
		Expect(feature.UpdateDependencies(b.ID, &feature.DependenciesUpdating{
			Dependencies: []types.ID{c.ID}}, sec)).To(BeNil())

		// a -> b -> c, closing c -> a is a cycle
		err = feature.UpdateDependencies(c.ID, &feature.DependenciesUpdating{
			Dependencies: []types.ID{a.ID}}, sec)
		invalid, ok := err.(*bizerror.ErrInvalidDependency)
		Expect(ok).To(BeTrue())
		Expect(invalid.Message).To(Equal("dependency would create a cycle"))

		// the failed replacement must not have dropped the previous edges
		var edges []domain.FeatureDependency
		Expect(testDatabase.DS.GormDB(context.Background()).Where("feature_id = ?", b.ID).Find(&edges).Error).To(BeNil())
		Expect(len(edges)).To(Equal(1))
		Expect(edges[0].DependencyID).To(Equal(c.ID))
	})
}

func TestDetailFeature(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should aggregate progress, hierarchy and hours", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		seedProject(t, testDatabase, 1, 100)
		sec := testinfra.BuildSecCtx(100, "common_1")

		estimated := func(v int) *int { return &v }
		parent, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "parent",
			EstimatedHours: estimated(10)}, sec)
		assert.Nil(t, err)
		childA, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "child a",
			ParentID: &parent.ID, EstimatedHours: estimated(4)}, sec)
		assert.Nil(t, err)
		_, err = feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "child b",
			ParentID: &parent.ID, EstimatedHours: estimated(6)}, sec)
		assert.Nil(t, err)

		db := testDatabase.DS.GormDB(context.Background())
		// child a at development (60), child b stays at idea (0)
		Expect(db.Model(&domain.Feature{}).Where("id = ?", childA.ID).
			Update("status", status.Development).Error).To(BeNil())

		detail, err := feature.DetailFeature(parent.ID, sec)
		Expect(err).To(BeNil())
		Expect(detail.ProgressPercentage).To(Equal(30))
		Expect(detail.HierarchyLevel).To(Equal(0))
		Expect(detail.FullPath).To(Equal("parent"))
		Expect(detail.TotalEstimatedHours).To(Equal(20))
		Expect(detail.Completed).To(BeFalse())

		childDetail, err := feature.DetailFeature(childA.ID, sec)
		Expect(err).To(BeNil())
		Expect(childDetail.ProgressPercentage).To(Equal(60))
		Expect(childDetail.HierarchyLevel).To(Equal(1))
		Expect(childDetail.FullPath).To(Equal("parent > child a"))
	})

	t.Run("should report overdue against the due date", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		seedProject(t, testDatabase, 1, 100)
		sec := testinfra.BuildSecCtx(100, "common_1")

		record, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "late",
			DueDate: "2025-01-15"}, sec)
		assert.Nil(t, err)

		detail, err := feature.DetailFeature(record.ID, sec)
		Expect(err).To(BeNil())
		Expect(detail.Overdue).To(BeTrue())

		Expect(testDatabase.DS.GormDB(context.Background()).Model(&domain.Feature{}).Where("id = ?", record.ID).
			Update("status", status.Live).Error).To(BeNil())
		detail, err = feature.DetailFeature(record.ID, sec)
		Expect(err).To(BeNil())
		Expect(detail.Overdue).To(BeFalse())
		Expect(detail.Completed).To(BeTrue())
	})
}

func TestQueryFeatures(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should filter and scope to visible projects", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		seedProject(t, testDatabase, 1, 100)
		seedProject(t, testDatabase, 2, 100)
		admin := testinfra.BuildSecCtx(100, "system:admin", "common_1", "common_2")

		_, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "alpha search"}, admin)
		assert.Nil(t, err)
		_, err = feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "beta"}, admin)
		assert.Nil(t, err)
		_, err = feature.CreateFeature(&feature.FeatureCreation{ProjectID: 2, Title: "gamma"}, admin)
		assert.Nil(t, err)

		// a member of project 1 only sees project 1
		records, err := feature.QueryFeatures(&feature.FeatureQuery{}, testinfra.BuildSecCtx(200, "common_1"))
		Expect(err).To(BeNil())
		Expect(len(*records)).To(Equal(2))

		records, err = feature.QueryFeatures(&feature.FeatureQuery{Keyword: "search"},
			testinfra.BuildSecCtx(200, "common_1"))
		Expect(err).To(BeNil())
		Expect(len(*records)).To(Equal(1))
		Expect((*records)[0].Title).To(Equal("alpha search"))

		_, err = feature.QueryFeatures(&feature.FeatureQuery{ProjectID: 2},
			testinfra.BuildSecCtx(200, "common_1"))
		Expect(err).To(Equal(bizerror.ErrForbidden))

		records, err = feature.QueryFeatures(&feature.FeatureQuery{Status: status.Idea}, admin)
		Expect(err).To(BeNil())
		Expect(len(*records)).To(Equal(3))
	})
}

func TestUpdateAndDeleteFeature(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should update fields and recalculate both parents on reparenting", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		seedProject(t, testDatabase, 1, 100)
		sec := testinfra.BuildSecCtx(100, "common_1")

		oldParent, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "old parent"}, sec)
		assert.Nil(t, err)
		newParent, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "new parent"}, sec)
		assert.Nil(t, err)
		child, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "child",
			ParentID: &oldParent.ID, StartDate: "2025-03-01", EndDate: "2025-03-05"}, sec)
		assert.Nil(t, err)

		updated, err := feature.UpdateFeature(child.ID, &feature.FeatureUpdating{
			Title: "renamed child", Priority: domain.PriorityHigh,
			ParentID: &newParent.ID, StartDate: "2025-03-01", EndDate: "2025-03-05"}, sec)
		Expect(err).To(BeNil())
		Expect(updated.Title).To(Equal("renamed child"))
		Expect(updated.Priority).To(Equal(domain.PriorityHigh))
		Expect(*updated.ParentID).To(Equal(newParent.ID))

		record := domain.Feature{}
		Expect(testDatabase.DS.GormDB(context.Background()).First(&record, "id = ?", newParent.ID).Error).To(BeNil())
		Expect(record.StartDate.Format("2006-01-02")).To(Equal("2025-03-01"))
		Expect(record.EndDate.Format("2006-01-02")).To(Equal("2025-03-05"))
	})

	t.Run("should only let project managers delete", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		seedProject(t, testDatabase, 1, 100)
		sec := testinfra.BuildSecCtx(100, "common_1", "manager_1")

		record, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "demo"}, sec)
		assert.Nil(t, err)

		Expect(feature.DeleteFeature(record.ID, testinfra.BuildSecCtx(200, "common_1"))).
			To(Equal(bizerror.ErrForbidden))
		Expect(feature.DeleteFeature(record.ID, sec)).To(BeNil())
	})

	t.Run("should detach children and drop edges and comments on delete", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		seedProject(t, testDatabase, 1, 100)
		sec := testinfra.BuildSecCtx(100, "common_1", "manager_1")

		parent, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "parent"}, sec)
		assert.Nil(t, err)
		child, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "child",
			ParentID: &parent.ID}, sec)
		assert.Nil(t, err)
		peer, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "peer"}, sec)
		assert.Nil(t, err)
		assert.Nil(t, feature.UpdateDependencies(peer.ID, &feature.DependenciesUpdating{
			Dependencies: []types.ID{parent.ID}}, sec))
		_, err = feature.CreateComment(parent.ID, &feature.CommentCreating{Content: "note"}, sec)
		assert.Nil(t, err)

		Expect(feature.DeleteFeature(parent.ID, sec)).To(BeNil())

		db := testDatabase.DS.GormDB(context.Background())
		record := domain.Feature{}
		Expect(db.First(&record, "id = ?", child.ID).Error).To(BeNil())
		Expect(record.ParentID).To(BeNil())

		var edges []domain.FeatureDependency
		Expect(db.Find(&edges).Error).To(BeNil())
		Expect(edges).To(BeEmpty())
		var comments []domain.FeatureComment
		Expect(db.Find(&comments).Error).To(BeNil())
		Expect(comments).To(BeEmpty())
	})
}

func TestCreateComment(t *testing.T) {
	RegisterTestingT(t)
	var testDatabase *testinfra.TestDatabase

	t.Run("should record author and content", func(t *testing.T) {
		defer teardown(t, testDatabase)
		setup(t, &testDatabase)
		seedProject(t, testDatabase, 1, 100)
		sec := testinfra.BuildSecCtx(100, "common_1")

		record, err := feature.CreateFeature(&feature.FeatureCreation{ProjectID: 1, Title: "demo"}, sec)
		assert.Nil(t, err)

		comment, err := feature.CreateComment(record.ID, &feature.CommentCreating{Content: "looks good"}, sec)
		Expect(err).To(BeNil())
		Expect(comment.FeatureID).To(Equal(record.ID))
		Expect(comment.AuthorID).To(Equal(types.ID(100)))
		Expect(comment.Content).To(Equal("looks good"))

		_, err = feature.CreateComment(record.ID, &feature.CommentCreating{Content: "nope"},
			testinfra.BuildSecCtx(300, "common_2"))
		Expect(err).To(Equal(bizerror.ErrForbidden))
	})
}
