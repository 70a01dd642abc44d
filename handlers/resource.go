package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"classroom-gateway/gateway"
	"classroom-gateway/notify"
)

// Operations is the gateway surface a Resource serves.
type Operations[D, I any] interface {
	List(ctx context.Context) ([]D, gateway.Outcome)
	Get(ctx context.Context, id string) (*D, gateway.Outcome)
	Create(ctx context.Context, in I) (*D, gateway.Outcome)
	Update(ctx context.Context, id string, in I) (*D, gateway.Outcome)
	Delete(ctx context.Context, id string) (bool, gateway.Outcome)
}

// Resource exposes one gateway as REST handlers and publishes every
// outcome message to Sink.
type Resource[D, I any] struct {
	Singular string // "student"
	Plural   string // "students"
	Ops      Operations[D, I]
	Sink     notify.Sink
	Validate *validator.Validate // create-time rules; nil skips
}

// Register mounts the five operations under /<Plural>.
func (r *Resource[D, I]) Register(g *gin.RouterGroup) {
	g.GET("/"+r.Plural, r.List)
	g.GET("/"+r.Plural+"/:id", r.Get)
	g.POST("/"+r.Plural, r.Create)
	g.PUT("/"+r.Plural+"/:id", r.Update)
	g.PATCH("/"+r.Plural+"/:id", r.Update)
	g.DELETE("/"+r.Plural+"/:id", r.Delete)
}

// List handles GET /api/<plural>
func (r *Resource[D, I]) List(c *gin.Context) {
	items, o := r.Ops.List(c.Request.Context())
	r.publish(c, o.Messages)
	if o.Failed() {
		r.fail(c, o, "Failed to retrieve "+r.Plural)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Get handles GET /api/<plural>/:id
func (r *Resource[D, I]) Get(c *gin.Context) {
	item, o := r.Ops.Get(c.Request.Context(), c.Param("id"))
	r.publish(c, o.Messages)
	if o.Failed() {
		r.fail(c, o, "Failed to retrieve "+r.Singular)
		return
	}
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": capitalize(r.Singular) + " not found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// Create handles POST /api/<plural>
func (r *Resource[D, I]) Create(c *gin.Context) {
	var in I
	if !r.bind(c, &in) {
		return
	}
	if r.Validate != nil {
		if err := r.Validate.Struct(in); err != nil {
			r.invalid(c, err)
			return
		}
	}

	item, o := r.Ops.Create(c.Request.Context(), in)
	r.publish(c, o.Messages)
	if item == nil {
		r.fail(c, o, "Failed to create "+r.Singular)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// Update handles PUT and PATCH /api/<plural>/:id
func (r *Resource[D, I]) Update(c *gin.Context) {
	var in I
	if !r.bind(c, &in) {
		return
	}

	item, o := r.Ops.Update(c.Request.Context(), c.Param("id"), in)
	r.publish(c, o.Messages)
	if item == nil {
		r.fail(c, o, "Failed to update "+r.Singular)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Delete handles DELETE /api/<plural>/:id
func (r *Resource[D, I]) Delete(c *gin.Context) {
	deleted, o := r.Ops.Delete(c.Request.Context(), c.Param("id"))
	r.publish(c, o.Messages)
	if !deleted {
		// A rejected delete of a well-formed id means the record is gone.
		if o.Kind == gateway.KindPartialBatch {
			c.JSON(http.StatusNotFound, gin.H{"error": capitalize(r.Singular) + " not found", "messages": messagesOf(o)})
			return
		}
		r.fail(c, o, "Failed to delete "+r.Singular)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Resource[D, I]) bind(c *gin.Context, in *I) bool {
	if err := c.ShouldBindJSON(in); err != nil {
		r.invalid(c, err)
		return false
	}
	return true
}

func (r *Resource[D, I]) invalid(c *gin.Context, err error) {
	msgs := validationMessages(err)
	r.publish(c, msgs)
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "messages": msgs})
}

func (r *Resource[D, I]) publish(c *gin.Context, msgs []string) {
	notify.Publish(c.Request.Context(), r.Sink, msgs)
}

func (r *Resource[D, I]) fail(c *gin.Context, o gateway.Outcome, msg string) {
	c.JSON(statusFor(o), gin.H{"error": msg, "messages": messagesOf(o)})
}

func messagesOf(o gateway.Outcome) []string {
	if o.Messages == nil {
		return []string{}
	}
	return o.Messages
}

// statusFor maps a failed outcome to an HTTP status.
func statusFor(o gateway.Outcome) int {
	switch o.Kind {
	case gateway.KindInvalidID:
		return http.StatusBadRequest
	case gateway.KindPartialBatch:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), describeTag(fe.Tag())))
	}
	return msgs
}

func describeTag(tag string) string {
	switch tag {
	case "required", "min":
		return "is required"
	case "email":
		return "must be a valid email"
	default:
		return "failed " + tag + " validation"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
