package feature

import (
	"fmt"
	"time"

	"trackflow/bizerror"
	"trackflow/domain"
	"trackflow/domain/status"
	"trackflow/event"
	"trackflow/idgen"
	"trackflow/persistence"
	"trackflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	idWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	CreateFeatureFunc      = CreateFeature
	DetailFeatureFunc      = DetailFeature
	QueryFeaturesFunc      = QueryFeatures
	UpdateFeatureFunc      = UpdateFeature
	DeleteFeatureFunc      = DeleteFeature
	UpdateDependenciesFunc = UpdateDependencies
	CreateCommentFunc      = CreateComment
)

func checkProjectMember(sec *session.Context, projectID types.ID) error {
	if sec == nil {
		return bizerror.ErrForbidden
	}
	if sec.IsSystemAdmin() || sec.HasProjectViewPerm(projectID) {
		return nil
	}
	return bizerror.ErrForbidden
}

func checkProjectManager(sec *session.Context, projectID types.ID) error {
	if sec == nil {
		return bizerror.ErrForbidden
	}
	if sec.IsSystemAdmin() || sec.HasRole(fmt.Sprintf("%s_%d", domain.ProjectRoleManager, projectID)) {
		return nil
	}
	return bizerror.ErrForbidden
}

func CreateFeature(creation *FeatureCreation, sec *session.Context) (*domain.Feature, error) {
	if err := checkProjectMember(sec, creation.ProjectID); err != nil {
		return nil, err
	}

	startDate, err := parseDate("startDate", creation.StartDate)
	if err != nil {
		return nil, err
	}
	endDate, err := parseDate("endDate", creation.EndDate)
	if err != nil {
		return nil, err
	}
	dueDate, err := parseDate("dueDate", creation.DueDate)
	if err != nil {
		return nil, err
	}

	priority := creation.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}

	now := types.CurrentTimestamp()
	record := &domain.Feature{
		ID:        idgen.NextID(idWorker),
		ProjectID: creation.ProjectID,
		ParentID:  creation.ParentID,

		Title:       creation.Title,
		Description: creation.Description,

		Status:   status.Idea,
		Priority: priority,

		AssigneeID: creation.AssigneeID,
		ReporterID: sec.Identity.ID,

		EstimatedHours: creation.EstimatedHours,

		DueDate:   dueDate,
		StartDate: startDate,
		EndDate:   endDate,

		Order: creation.Order,

		CreateTime: now,
		UpdateTime: now,
	}

	var eventRecord *event.EventRecord
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err = db.Transaction(func(tx *gorm.DB) error {
		project := domain.Project{}
		if err := tx.Where(&domain.Project{ID: creation.ProjectID}).First(&project).Error; err != nil {
			return err
		}

		if err := validateParent(tx, record); err != nil {
			return err
		}
		if err := validateDates(tx, record, &project); err != nil {
			return err
		}
		if err := validateDependencies(tx, record, creation.Dependencies); err != nil {
			return err
		}

		if err := tx.Create(record).Error; err != nil {
			return err
		}
		if err := saveDependencyEdges(tx, record.ID, creation.Dependencies); err != nil {
			return err
		}
		if record.ParentID != nil {
			if err := recalculateParentTimeline(tx, *record.ParentID); err != nil {
				return err
			}
		}

		var err error
		eventRecord, err = event.CreateEvent(string(domain.EntityTypeFeature), record.ID, record.Title,
			event.EventCategoryCreated, nil, nil, &sec.Identity, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	event.InvokeHandlersFunc(eventRecord)
	return record, nil
}

func DetailFeature(id types.ID, sec *session.Context) (*FeatureDetail, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}

	detail := FeatureDetail{Dependencies: []types.ID{}}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.Feature{ID: id}).First(&detail.Feature).Error; err != nil {
			return err
		}
		if err := checkProjectMember(sec, detail.ProjectID); err != nil {
			return err
		}

		var edges []domain.FeatureDependency
		if err := tx.Where(&domain.FeatureDependency{FeatureID: id}).Find(&edges).Error; err != nil {
			return err
		}
		for _, edge := range edges {
			detail.Dependencies = append(detail.Dependencies, edge.DependencyID)
		}

		progress, err := progressOf(tx, &detail.Feature)
		if err != nil {
			return err
		}
		detail.ProgressPercentage = progress

		level, path, err := hierarchyOf(tx, &detail.Feature)
		if err != nil {
			return err
		}
		detail.HierarchyLevel = level
		detail.FullPath = path

		detail.Overdue = detail.Feature.IsOverdue(time.Now())
		detail.Completed = detail.Feature.IsCompleted()

		estimated, actual, err := aggregateHours(tx, &detail.Feature)
		if err != nil {
			return err
		}
		detail.TotalEstimatedHours = estimated
		detail.TotalActualHours = actual
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func QueryFeatures(query *FeatureQuery, sec *session.Context) (*[]domain.Feature, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	q := db.Model(&domain.Feature{})
	if query.ProjectID != 0 {
		q = q.Where("project_id = ?", query.ProjectID)
	} else if !sec.Perms.HasGlobalViewRole() {
		visibleProjects := sec.VisibleProjects()
		if len(visibleProjects) == 0 {
			return &[]domain.Feature{}, nil
		}
		q = q.Where("project_id in (?)", visibleProjects)
	}
	if query.ProjectID != 0 && !sec.IsSystemAdmin() && !sec.HasProjectViewPerm(query.ProjectID) {
		return nil, bizerror.ErrForbidden
	}
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.AssigneeID != 0 {
		q = q.Where("assignee_id = ?", query.AssigneeID)
	}
	if query.ParentID != 0 {
		q = q.Where("parent_id = ?", query.ParentID)
	}
	if query.Keyword != "" {
		q = q.Where("title like ?", "%"+query.Keyword+"%")
	}

	var records []domain.Feature
	if err := q.Order("order_num ASC, id ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return &records, nil
}

func UpdateFeature(id types.ID, updating *FeatureUpdating, sec *session.Context) (*domain.Feature, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}
	startDate, err := parseDate("startDate", updating.StartDate)
	if err != nil {
		return nil, err
	}
	endDate, err := parseDate("endDate", updating.EndDate)
	if err != nil {
		return nil, err
	}
	dueDate, err := parseDate("dueDate", updating.DueDate)
	if err != nil {
		return nil, err
	}

	record := domain.Feature{}
	var eventRecord *event.EventRecord
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where(&domain.Feature{ID: id}).First(&record).Error; err != nil {
			return err
		}
		if err := checkProjectMember(sec, record.ProjectID); err != nil {
			return err
		}
		project := domain.Project{}
		if err := tx.Where(&domain.Project{ID: record.ProjectID}).First(&project).Error; err != nil {
			return err
		}

		formerParentID := record.ParentID

		record.ParentID = updating.ParentID
		record.Title = updating.Title
		record.Description = updating.Description
		if updating.Priority != "" {
			record.Priority = updating.Priority
		}
		record.AssigneeID = updating.AssigneeID
		record.EstimatedHours = updating.EstimatedHours
		record.ActualHours = updating.ActualHours
		record.DueDate = dueDate
		record.StartDate = startDate
		record.EndDate = endDate
		record.Order = updating.Order
		record.UpdateTime = types.CurrentTimestamp()

		if err := validateParent(tx, &record); err != nil {
			return err
		}
		if err := validateDates(tx, &record, &project); err != nil {
			return err
		}
		var edges []domain.FeatureDependency
		if err := tx.Where(&domain.FeatureDependency{FeatureID: id}).Find(&edges).Error; err != nil {
			return err
		}
		dependencyIDs := []types.ID{}
		for _, edge := range edges {
			dependencyIDs = append(dependencyIDs, edge.DependencyID)
		}
		if err := validateDependencies(tx, &record, dependencyIDs); err != nil {
			return err
		}

		if err := tx.Save(&record).Error; err != nil {
			return err
		}

		if formerParentID != nil {
			if err := recalculateParentTimeline(tx, *formerParentID); err != nil {
				return err
			}
		}
		if record.ParentID != nil && (formerParentID == nil || *formerParentID != *record.ParentID) {
			if err := recalculateParentTimeline(tx, *record.ParentID); err != nil {
				return err
			}
		}

		var err error
		eventRecord, err = event.CreateEvent(string(domain.EntityTypeFeature), record.ID, record.Title,
			event.EventCategoryPropertyUpdated, nil, nil, &sec.Identity, tx)
		return err
	})
	if err != nil {
		return nil, err
	}

	event.InvokeHandlersFunc(eventRecord)
	return &record, nil
}

func DeleteFeature(id types.ID, sec *session.Context) error {
	if sec == nil {
		return bizerror.ErrForbidden
	}
	var eventRecord *event.EventRecord
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		record := domain.Feature{}
		if err := tx.Where(&domain.Feature{ID: id}).First(&record).Error; err != nil {
			return err
		}
		if err := checkProjectManager(sec, record.ProjectID); err != nil {
			return err
		}

		// children are kept, detached from the removed parent
		if err := tx.Model(&domain.Feature{}).Where("parent_id = ?", id).
			Update("parent_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("feature_id = ? OR dependency_id = ?", id, id).
			Delete(&domain.FeatureDependency{}).Error; err != nil {
			return err
		}
		if err := tx.Where("feature_id = ?", id).Delete(&domain.FeatureComment{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.Feature{}, "id = ?", id).Error; err != nil {
			return err
		}

		if record.ParentID != nil {
			if err := recalculateParentTimeline(tx, *record.ParentID); err != nil {
				return err
			}
		}

		var err error
		eventRecord, err = event.CreateEvent(string(domain.EntityTypeFeature), record.ID, record.Title,
			event.EventCategoryDeleted, nil, nil, &sec.Identity, tx)
		return err
	})
	if err != nil {
		return err
	}

	event.InvokeHandlersFunc(eventRecord)
	return nil
}

// UpdateDependencies replaces the dependency set after validating scope and acyclicity.
// Nothing is written when any candidate is rejected.
func UpdateDependencies(id types.ID, updating *DependenciesUpdating, sec *session.Context) error {
	if sec == nil {
		return bizerror.ErrForbidden
	}
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		record := domain.Feature{}
		if err := tx.Where(&domain.Feature{ID: id}).First(&record).Error; err != nil {
			return err
		}
		if err := checkProjectMember(sec, record.ProjectID); err != nil {
			return err
		}

		if err := validateDependencies(tx, &record, updating.Dependencies); err != nil {
			return err
		}

		if err := tx.Where(&domain.FeatureDependency{FeatureID: id}).
			Delete(&domain.FeatureDependency{}).Error; err != nil {
			return err
		}
		return saveDependencyEdges(tx, id, updating.Dependencies)
	})
}

func CreateComment(id types.ID, creating *CommentCreating, sec *session.Context) (*domain.FeatureComment, error) {
	if sec == nil {
		return nil, bizerror.ErrForbidden
	}
	var comment *domain.FeatureComment
	db := persistence.ActiveDataSourceManager.GormDB(sec.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		record := domain.Feature{}
		if err := tx.Where(&domain.Feature{ID: id}).First(&record).Error; err != nil {
			return err
		}
		if err := checkProjectMember(sec, record.ProjectID); err != nil {
			return err
		}

		comment = &domain.FeatureComment{
			ID:        idgen.NextID(idWorker),
			FeatureID: id,

			AuthorID: sec.Identity.ID,
			Content:  creating.Content,

			CreateTime: types.CurrentTimestamp(),
		}
		return tx.Create(comment).Error
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func saveDependencyEdges(tx *gorm.DB, featureID types.ID, dependencies []types.ID) error {
	now := types.CurrentTimestamp()
	for _, dependencyID := range dependencies {
		edge := domain.FeatureDependency{FeatureID: featureID, DependencyID: dependencyID, CreateTime: now}
		if err := tx.Create(&edge).Error; err != nil {
			return err
		}
	}
	return nil
}

func validateParent(tx *gorm.DB, record *domain.Feature) error {
	if record.ParentID == nil {
		return nil
	}
	if *record.ParentID == record.ID {
		return &bizerror.ErrBadParam{Cause: fmt.Errorf("a feature cannot be its own parent")}
	}

	parent := domain.Feature{}
	if err := tx.Where(&domain.Feature{ID: *record.ParentID}).First(&parent).Error; err != nil {
		return err
	}
	if parent.ProjectID != record.ProjectID {
		return &bizerror.ErrBadParam{Cause: fmt.Errorf("parent feature belongs to another project")}
	}

	// walking up from the parent must never reach the feature itself
	current := parent
	for current.ParentID != nil {
		if *current.ParentID == record.ID {
			return &bizerror.ErrBadParam{Cause: fmt.Errorf("parent assignment would create a hierarchy cycle")}
		}
		next := domain.Feature{}
		if err := tx.Where(&domain.Feature{ID: *current.ParentID}).First(&next).Error; err != nil {
			return err
		}
		current = next
	}
	return nil
}

func validateDates(tx *gorm.DB, record *domain.Feature, project *domain.Project) error {
	if record.StartDate != nil && record.EndDate != nil && record.StartDate.After(*record.EndDate) {
		return &bizerror.ErrInvalidDates{Field: "startDate", Message: "start date cannot be after end date"}
	}

	windowStart := project.WindowStart()
	windowEnd := project.WindowEnd()
	for _, check := range []struct {
		field string
		value *time.Time
	}{
		{"startDate", record.StartDate}, {"endDate", record.EndDate}, {"dueDate", record.DueDate},
	} {
		if check.value == nil {
			continue
		}
		if windowStart != nil && check.value.Before(*windowStart) {
			return &bizerror.ErrInvalidDates{Field: check.field,
				Message: check.field + " cannot be before project start date"}
		}
		if windowEnd != nil && check.value.After(*windowEnd) {
			return &bizerror.ErrInvalidDates{Field: check.field,
				Message: check.field + " cannot be after project end date"}
		}
	}

	if record.ParentID == nil {
		return nil
	}
	parent := domain.Feature{}
	if err := tx.Where(&domain.Feature{ID: *record.ParentID}).First(&parent).Error; err != nil {
		return err
	}
	parentEnd := parent.EndDate
	if parentEnd == nil {
		parentEnd = parent.DueDate
	}
	if parent.StartDate != nil && record.StartDate != nil && record.StartDate.Before(*parent.StartDate) {
		return &bizerror.ErrInvalidDates{Field: "startDate",
			Message: "startDate cannot be before parent feature start date"}
	}
	if parentEnd != nil {
		if record.EndDate != nil && record.EndDate.After(*parentEnd) {
			return &bizerror.ErrInvalidDates{Field: "endDate",
				Message: "endDate cannot be after parent feature end date"}
		}
		if record.DueDate != nil && record.DueDate.After(*parentEnd) {
			return &bizerror.ErrInvalidDates{Field: "dueDate",
				Message: "dueDate cannot be after parent feature end date"}
		}
	}
	return nil
}

func validateDependencies(tx *gorm.DB, record *domain.Feature, dependencies []types.ID) error {
	for _, dependencyID := range dependencies {
		if dependencyID == record.ID {
			return &bizerror.ErrInvalidDependency{Message: "a feature cannot depend on itself"}
		}

		dependency := domain.Feature{}
		if err := tx.Where(&domain.Feature{ID: dependencyID}).First(&dependency).Error; err != nil {
			return err
		}
		if dependency.ProjectID != record.ProjectID {
			return &bizerror.ErrInvalidDependency{Message: "dependencies must belong to the same project"}
		}
		if dependency.ParentID != nil && *dependency.ParentID == record.ID {
			return &bizerror.ErrInvalidDependency{Message: "a feature cannot depend on its own child"}
		}
		if record.ParentID != nil {
			if dependency.ID == *record.ParentID {
				return &bizerror.ErrInvalidDependency{Message: "a feature cannot depend on its own parent"}
			}
			if dependency.ParentID == nil || *dependency.ParentID != *record.ParentID {
				return &bizerror.ErrInvalidDependency{Message: "dependencies must share the same parent feature"}
			}
		}

		cycle, err := wouldCreateCycle(tx, record.ID, dependencyID)
		if err != nil {
			return err
		}
		if cycle {
			return &bizerror.ErrInvalidDependency{Message: "dependency would create a cycle"}
		}
	}
	return nil
}

// wouldCreateCycle walks the existing dependency edges from the candidate with an explicit
// worklist. Reaching the feature being saved means the new edge would close a cycle.
func wouldCreateCycle(tx *gorm.DB, featureID, candidateID types.ID) (bool, error) {
	visited := map[types.ID]bool{}
	worklist := []types.ID{candidateID}

	for len(worklist) > 0 {
		current := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		if current == featureID {
			return true, nil
		}
		if visited[current] {
			continue
		}
		visited[current] = true

		var edges []domain.FeatureDependency
		if err := tx.Where(&domain.FeatureDependency{FeatureID: current}).Find(&edges).Error; err != nil {
			return false, err
		}
		for _, edge := range edges {
			if !visited[edge.DependencyID] {
				worklist = append(worklist, edge.DependencyID)
			}
		}
	}
	return false, nil
}

// recalculateParentTimeline pulls the parent's start/end to the min/max over its dated
// children and raises its estimate to eight hours per spanned day.
func recalculateParentTimeline(tx *gorm.DB, parentID types.ID) error {
	parent := domain.Feature{}
	if err := tx.Where(&domain.Feature{ID: parentID}).First(&parent).Error; err != nil {
		return err
	}

	var children []domain.Feature
	if err := tx.Where("parent_id = ?", parentID).Find(&children).Error; err != nil {
		return err
	}

	var minStart, maxEnd *time.Time
	for i := range children {
		child := children[i]
		if child.StartDate == nil || child.EndDate == nil {
			continue
		}
		if minStart == nil || child.StartDate.Before(*minStart) {
			minStart = child.StartDate
		}
		if maxEnd == nil || child.EndDate.After(*maxEnd) {
			maxEnd = child.EndDate
		}
	}
	if minStart == nil || maxEnd == nil {
		return nil
	}

	parent.StartDate = minStart
	parent.EndDate = maxEnd

	// both endpoints count, a one-day feature spans one day
	timespanDays := int(maxEnd.Sub(*minStart).Hours()/24) + 1
	minHours := timespanDays * 8
	if parent.EstimatedHours == nil || *parent.EstimatedHours < minHours {
		parent.EstimatedHours = &minHours
	}
	parent.UpdateTime = types.CurrentTimestamp()
	return tx.Save(&parent).Error
}

func progressOf(tx *gorm.DB, record *domain.Feature) (int, error) {
	var children []domain.Feature
	if err := tx.Where("parent_id = ?", record.ID).Find(&children).Error; err != nil {
		return 0, err
	}
	if len(children) == 0 {
		return int(status.Progress(record.Status)), nil
	}

	sum := 0.0
	for i := range children {
		childProgress, err := progressOf(tx, &children[i])
		if err != nil {
			return 0, err
		}
		sum += float64(childProgress)
	}
	return int(sum/float64(len(children)) + 0.5), nil
}

func hierarchyOf(tx *gorm.DB, record *domain.Feature) (int, string, error) {
	level := 0
	path := record.Title
	current := *record
	for current.ParentID != nil {
		parent := domain.Feature{}
		if err := tx.Where(&domain.Feature{ID: *current.ParentID}).First(&parent).Error; err != nil {
			return 0, "", err
		}
		level++
		path = parent.Title + " > " + path
		current = parent
	}
	return level, path, nil
}

func aggregateHours(tx *gorm.DB, record *domain.Feature) (int, int, error) {
	estimated := 0
	actual := 0
	if record.EstimatedHours != nil {
		estimated = *record.EstimatedHours
	}
	if record.ActualHours != nil {
		actual = *record.ActualHours
	}

	var children []domain.Feature
	if err := tx.Where("parent_id = ?", record.ID).Find(&children).Error; err != nil {
		return 0, 0, err
	}
	for i := range children {
		childEstimated, childActual, err := aggregateHours(tx, &children[i])
		if err != nil {
			return 0, 0, err
		}
		estimated += childEstimated
		actual += childActual
	}
	return estimated, actual, nil
}
