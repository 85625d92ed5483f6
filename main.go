package main

import (
	"context"
	"log"
	"net/http"

	"trackflow/bizerror"
	"trackflow/client/es"
	"trackflow/domain"
	"trackflow/domain/feature"
	"trackflow/domain/flow"
	"trackflow/event"
	"trackflow/indices"
	"trackflow/infra/tracing"
	"trackflow/persistence"
	"trackflow/servehttp"
	"trackflow/session"

	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("service start")

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		log.Fatalf("parse database config failed %v\n", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			log.Fatalf("failed to prepare database %v\n", err)
		}
	}

	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		log.Fatalf("database connection failed %v\n", err)
	}
	defer ds.Stop()
	persistence.ActiveDataSourceManager = ds

	// database migration (race condition)
	err = ds.GormDB(context.Background()).AutoMigrate(
		&domain.Project{}, &domain.Feature{}, &domain.FeatureDependency{}, &domain.FeatureComment{},
		&domain.WorkflowTemplate{}, &domain.WorkflowState{}, &domain.WorkflowTransition{},
		&domain.WorkflowHistory{}, &domain.WorkflowRule{}, &domain.WorkflowMetrics{},
		&event.EventRecord{}).Error
	if err != nil {
		log.Fatalf("database migration failed %v\n", err)
	}

	tracerCloser, err := tracing.InitTracer("trackflow")
	if err != nil {
		log.Printf("tracer init failed, tracing disabled %v\n", err)
	} else {
		defer tracerCloser.Close()
	}

	es.CreateClientFromEnv()

	feature.RegisterWorkflowProvider()
	event.EventHandlers = append(event.EventHandlers, indices.FeatureIndexEventHandler)

	metricsScheduler, err := flow.StartMetricsScheduler(flow.DefaultMetricsCronSpec)
	if err != nil {
		log.Fatalf("metrics scheduler failed %v\n", err)
	}
	defer metricsScheduler.Stop()

	engine := gin.Default()
	engine.Use(tracing.TracingIngress(), bizerror.ErrorHandling())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "trackflow")
	})

	secured := []gin.HandlerFunc{session.SimpleAuthFilter()}
	flow.RegisterWorkflowTemplatesRestAPI(engine, secured...)
	flow.RegisterTransitionExecutionsRestAPI(engine, secured...)
	flow.RegisterWorkflowHistoriesRestAPI(engine, secured...)
	flow.RegisterWorkflowRulesRestAPI(engine, secured...)
	flow.RegisterWorkflowMetricsRestAPI(engine, secured...)
	feature.RegisterFeaturesRestAPI(engine, secured...)
	indices.RegisterIndicesRestAPI(engine, secured...)

	servehttp.StartHTTPServer(engine)
}
