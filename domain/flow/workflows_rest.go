package flow

import (
	"net/http"

	"trackflow/bizerror"
	"trackflow/common"
	"trackflow/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathWorkflowTemplates   = "/v1/workflow-templates"
	PathWorkflowStates      = "/v1/workflow-states"
	PathWorkflowTransitions = "/v1/workflow-transitions"
)

func RegisterWorkflowTemplatesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathWorkflowTemplates, middleWares...)
	g.POST("", handleCreateWorkflowTemplate)
	g.GET("", handleQueryWorkflowTemplates)
	g.GET(":id", handleDetailWorkflowTemplate)
	g.PUT(":id", handleUpdateWorkflowTemplateBase)
	g.DELETE(":id", handleDeleteWorkflowTemplate)
	g.POST(":id/duplicates", handleDuplicateWorkflowTemplate)

	s := r.Group(PathWorkflowStates, middleWares...)
	s.POST("", handleCreateState)
	s.PUT(":id", handleUpdateState)
	s.DELETE(":id", handleDeleteState)

	t := r.Group(PathWorkflowTransitions, middleWares...)
	t.POST("", handleCreateTransition)
	t.DELETE(":id", handleDeleteTransition)
}

func parseIDParam(c *gin.Context, name string) (types.ID, bool) {
	id, err := types.ParseID(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, &common.ErrorBody{Code: "common.bad_param",
			Message: "invalid id '" + c.Param(name) + "'"})
		return 0, false
	}
	return id, true
}

func handleCreateWorkflowTemplate(c *gin.Context) {
	creation := WorkflowTemplateCreation{}
	if err := c.ShouldBindBodyWith(&creation, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	detail, err := CreateWorkflowTemplateFunc(&creation, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, detail)
}

func handleQueryWorkflowTemplates(c *gin.Context) {
	query := WorkflowTemplateQuery{}
	_ = c.MustBindWith(&query, binding.Query)

	templates, err := QueryWorkflowTemplatesFunc(&query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, templates)
}

func handleDetailWorkflowTemplate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := DetailWorkflowTemplateFunc(id, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, detail)
}

func handleUpdateWorkflowTemplateBase(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	updating := WorkflowTemplateBaseUpdation{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	template, err := UpdateWorkflowTemplateBaseFunc(id, &updating, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, template)
}

func handleDeleteWorkflowTemplate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := DeleteWorkflowTemplateFunc(id, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

func handleDuplicateWorkflowTemplate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	detail, err := DuplicateWorkflowTemplateFunc(id, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, detail)
}

func handleCreateState(c *gin.Context) {
	creating := StateCreating{}
	if err := c.ShouldBindBodyWith(&creating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	stateEntity, err := CreateStateFunc(&creating, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, stateEntity)
}

func handleUpdateState(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	updating := StateUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	stateEntity, err := UpdateStateFunc(id, &updating, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, stateEntity)
}

func handleDeleteState(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := DeleteStateFunc(id, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}

func handleCreateTransition(c *gin.Context) {
	creating := TransitionCreating{}
	if err := c.ShouldBindBodyWith(&creating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	transition, err := CreateTransitionFunc(&creating, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, transition)
}

func handleDeleteTransition(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := DeleteTransitionFunc(id, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}
