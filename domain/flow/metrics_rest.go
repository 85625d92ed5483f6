package flow

import (
	"net/http"

	"trackflow/bizerror"
	"trackflow/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathWorkflowMetrics    = "/v1/workflow-metrics"
	PathWorkflowUsageStats = "/v1/workflow-usage-stats"
)

func RegisterWorkflowMetricsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathWorkflowMetrics, middleWares...)
	g.GET("", handleQueryMetrics)
	g.POST("calculations", handleCalculateMetrics)

	u := r.Group(PathWorkflowUsageStats, middleWares...)
	u.GET("", handleUsageStats)
}

func handleQueryMetrics(c *gin.Context) {
	query := MetricsQuery{}
	_ = c.MustBindWith(&query, binding.Query)

	rows, err := QueryMetricsFunc(&query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, rows)
}

func handleCalculateMetrics(c *gin.Context) {
	calc := MetricsCalculation{}
	if err := c.ShouldBindBodyWith(&calc, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}

	rows, err := CalculateMetricsFunc(&calc, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, rows)
}

func handleUsageStats(c *gin.Context) {
	query := UsageStatsQuery{}
	_ = c.MustBindWith(&query, binding.Query)

	stats, err := LoadUsageStatsFunc(&query, session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, stats)
}
