package flow

import (
	"net/http"

	"trackflow/bizerror"
	"trackflow/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var PathTransitionExecutions = "/v1/transition-executions"

func RegisterTransitionExecutionsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathTransitionExecutions, middleWares...)
	g.POST("", handleExecuteTransition)
}

func handleExecuteTransition(c *gin.Context) {
	execution := TransitionExecution{}
	if err := c.ShouldBindBodyWith(&execution, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	record, err := ExecuteTransitionFunc(&execution, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusCreated, record)
}
