package testinfra

import (
	"strings"

	"trackflow/domain"
	"trackflow/session"

	"github.com/fundwit/go-commons/types"
)

// BuildSecCtx builds a session context from "role_projectId" permission strings.
func BuildSecCtx(uid types.ID, perms ...string) *session.Context {
	projectRoles := []domain.ProjectRole{}
	for _, perm := range perms {
		idx := strings.Index(perm, "_")
		if idx > 0 {
			role := perm[0:idx]
			projectId, err := types.ParseID(perm[idx+1:])
			if err != nil {
				continue
			}
			projectRoles = append(projectRoles, domain.ProjectRole{ProjectID: projectId, Role: role})
		}
	}

	return &session.Context{Token: "test-token", Identity: session.Identity{ID: uid, Name: "tester"},
		Perms: perms, ProjectRoles: projectRoles}
}
