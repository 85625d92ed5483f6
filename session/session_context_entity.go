package session

import (
	"context"
	"strings"
	"time"

	"trackflow/authority"

	"github.com/fundwit/go-commons/types"
)

type Context struct {
	Token        string                 `json:"token"`
	Identity     Identity               `json:"identity"`
	Perms        authority.Permissions  `json:"perms"`
	ProjectRoles authority.ProjectRoles `json:"projectRoles"`

	SigningTime time.Time `json:"-"`

	// Context carries the request scope trace context, never cached.
	Context context.Context `json:"-"`
}

// Clone returns a shallow copy suited for attaching per request state.
func (c *Context) Clone() Context {
	return *c
}

type Identity struct {
	ID       types.ID `json:"id"`
	Name     string   `json:"name"`
	Nickname string   `json:"nickname"`
}

func (c *Context) HasRole(role string) bool {
	return c.Perms.HasRole(role)
}

func (c *Context) HasRoleSuffix(suffix string) bool {
	return c.Perms.HasRoleSuffix(suffix)
}

func (c *Context) HasProjectViewPerm(projectId types.ID) bool {
	return c.Perms.HasProjectViewPerm(projectId)
}

func (c *Context) IsSystemAdmin() bool {
	return c.Perms.HasRole("system:admin")
}

// VisibleProjects parse visible project ids from Context.Perms
func (c *Context) VisibleProjects() []types.ID {
	var projectIds []types.ID
	for _, v := range c.Perms {
		pairs := strings.Split(v, "_")
		if len(pairs) == 2 {
			id, err := types.ParseID(pairs[1])
			if err != nil {
				continue
			}
			projectIds = append(projectIds, id)
		}
	}
	if projectIds == nil {
		return []types.ID{}
	}
	return projectIds
}
