package flow

import (
	"net/http"

	"trackflow/domain"
	"trackflow/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var PathWorkflowHistories = "/v1/workflow-histories"

func RegisterWorkflowHistoriesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathWorkflowHistories, middleWares...)
	g.GET("", handleQueryHistory)
}

func handleQueryHistory(c *gin.Context) {
	query := domain.WorkflowHistoryQuery{}
	_ = c.MustBindWith(&query, binding.Query)

	records, err := QueryHistoryFunc(&query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}
