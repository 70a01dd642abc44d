package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"classroom-gateway/models"
	"classroom-gateway/notify"
)

// Gateways bundles the three entity gateways the router serves.
type Gateways struct {
	Students    *models.StudentGateway
	Classes     *models.ClassGateway
	Assignments *models.AssignmentGateway
}

// SetupRouter builds the gin engine with every API route mounted.
func SetupRouter(gw Gateways, sink notify.Sink, feed *notify.RedisFeed, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	useJSONFieldNames()
	validate := NewCreateValidator()

	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(logger))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		(&Resource[models.Student, models.StudentInput]{
			Singular: "student", Plural: "students",
			Ops: gw.Students, Sink: sink, Validate: validate,
		}).Register(api)
		(&Resource[models.Class, models.ClassInput]{
			Singular: "class", Plural: "classes",
			Ops: gw.Classes, Sink: sink, Validate: validate,
		}).Register(api)
		(&Resource[models.Assignment, models.AssignmentInput]{
			Singular: "assignment", Plural: "assignments",
			Ops: gw.Assignments, Sink: sink, Validate: validate,
		}).Register(api)

		apiHandler := NewAPIHandler(gw.Students, sink, feed)
		api.GET("/notifications", apiHandler.GetNotifications)
		api.POST("/import/students", apiHandler.ImportStudents)
		api.GET("/export/students", apiHandler.ExportStudents)

		api.GET("/ping", PingHandler)
	}

	return router
}
