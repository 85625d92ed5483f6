package flow

import (
	"fmt"
	"sync"
	"time"

	"trackflow/domain"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

// EntityInfo is a workflow-facing view of a tracked entity. StateSlug carries the
// current position expressed in workflow state slugs.
type EntityInfo struct {
	ID    types.ID
	Title string

	ProjectID  types.ID
	OwnerID    types.ID
	AssigneeID *types.ID
	ReporterID types.ID

	StateSlug string
}

// EntityProvider bridges the workflow engine to a concrete entity package.
// UpdateEntityState must be conditional on fromSlug and return domain.ErrInvalidState
// when the entity moved concurrently.
type EntityProvider interface {
	FindEntity(id types.ID, tx *gorm.DB) (*EntityInfo, error)
	UpdateEntityState(id types.ID, fromSlug, toSlug string, tx *gorm.DB) error
	AllSubtasksComplete(id types.ID, tx *gorm.DB) (bool, error)

	AssignEntity(id types.ID, userID types.ID, tx *gorm.DB) error
	SetEntityDueDate(id types.ID, dueDate time.Time, tx *gorm.DB) error
	AddEntityComment(id types.ID, authorID types.ID, content string, tx *gorm.DB) error
}

var (
	entityProviders     = map[domain.EntityType]EntityProvider{}
	entityProvidersLock sync.RWMutex
)

func RegisterEntityProvider(entityType domain.EntityType, provider EntityProvider) {
	entityProvidersLock.Lock()
	defer entityProvidersLock.Unlock()
	entityProviders[entityType] = provider
}

func EntityProviderOf(entityType domain.EntityType) (EntityProvider, error) {
	entityProvidersLock.RLock()
	defer entityProvidersLock.RUnlock()
	provider, found := entityProviders[entityType]
	if !found {
		return nil, fmt.Errorf("no entity provider registered for %s", entityType)
	}
	return provider, nil
}
