package indices

import (
	"net/http"

	"trackflow/session"

	"github.com/gin-gonic/gin"
)

var (
	PathIndexRequests = "/v1/index-request"
	PathFeatureSearch = "/v1/feature-search"
)

func RegisterIndicesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathIndexRequests, middleWares...)
	g.POST("", handleIndexRequest)

	s := r.Group(PathFeatureSearch, middleWares...)
	s.GET("", handleFeatureSearch)
}

func handleIndexRequest(c *gin.Context) {
	success, err := ScheduleNewSyncRunFunc(session.FindSecurityContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{"result": success})
}

func handleFeatureSearch(c *gin.Context) {
	sec := session.FindSecurityContext(c)
	if sec == nil {
		c.JSON(http.StatusOK, []interface{}{})
		return
	}

	records, err := SearchFeatures(c.Query("keyword"), sec.VisibleProjects())
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}
