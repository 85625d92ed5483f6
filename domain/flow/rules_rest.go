package flow

import (
	"net/http"

	"trackflow/bizerror"
	"trackflow/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var PathWorkflowRules = "/v1/workflow-rules"

func RegisterWorkflowRulesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathWorkflowRules, middleWares...)
	g.POST("", handleCreateRule)
	g.GET("", handleQueryRules)
	g.PUT(":id/toggle", handleToggleRule)
	g.DELETE(":id", handleDeleteRule)
}

func handleCreateRule(c *gin.Context) {
	creating := RuleCreating{}
	if err := c.ShouldBindBodyWith(&creating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	rule, err := CreateRuleFunc(&creating, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, rule)
}

func handleQueryRules(c *gin.Context) {
	query := RuleQuery{}
	_ = c.MustBindWith(&query, binding.Query)

	rules, err := QueryRulesFunc(&query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, rules)
}

func handleToggleRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	rule, err := ToggleRuleFunc(id, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, rule)
}

func handleDeleteRule(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := DeleteRuleFunc(id, session.FindSecurityContext(c)); err != nil {
		panic(err)
	}
	c.Status(http.StatusNoContent)
}
