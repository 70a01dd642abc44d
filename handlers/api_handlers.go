package handlers

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"classroom-gateway/models"
	"classroom-gateway/notify"
	"classroom-gateway/roster"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// APIHandler serves the routes that are not plain entity CRUD.
type APIHandler struct {
	Students *models.StudentGateway
	Sink     notify.Sink
	Feed     *notify.RedisFeed // nil when no Redis is configured
}

// NewAPIHandler creates a new APIHandler
func NewAPIHandler(students *models.StudentGateway, sink notify.Sink, feed *notify.RedisFeed) *APIHandler {
	return &APIHandler{Students: students, Sink: sink, Feed: feed}
}

// GetNotifications handles GET /api/notifications
func (h *APIHandler) GetNotifications(c *gin.Context) {
	if h.Feed == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Notification feed is not configured"})
		return
	}

	toasts, err := h.Feed.Drain(c.Request.Context())
	if err != nil {
		slog.Error("Error draining notifications", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve notifications"})
		return
	}
	c.JSON(http.StatusOK, toasts)
}

// ImportStudents handles POST /api/import/students
func (h *APIHandler) ImportStudents(c *gin.Context) {
	classID := c.PostForm("classId")

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		slog.Warn("Error getting form file", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Error retrieving uploaded file: " + err.Error()})
		return
	}
	defer file.Close()

	slog.Info("Received roster upload", "filename", header.Filename, "classId", classID)

	report, err := roster.ImportStudents(c.Request.Context(), file, h.Students, classID)
	if err != nil {
		slog.Error("Error importing students", "filename", header.Filename, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to import students: " + err.Error()})
		return
	}
	notify.Publish(c.Request.Context(), h.Sink, report.Messages)

	c.JSON(http.StatusOK, report)
}

// ExportStudents handles GET /api/export/students
func (h *APIHandler) ExportStudents(c *gin.Context) {
	students, o := h.Students.List(c.Request.Context())
	notify.Publish(c.Request.Context(), h.Sink, o.Messages)
	if o.Failed() {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to retrieve students", "messages": messagesOf(o)})
		return
	}

	var buf bytes.Buffer
	if err := roster.ExportStudents(&buf, students); err != nil {
		slog.Error("Error exporting students", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export students"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="students.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// PingHandler handles GET /api/ping
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Pong!"})
}
