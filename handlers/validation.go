package handlers

import (
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"classroom-gateway/models"
)

// NewCreateValidator returns the rules applied to create requests on top of
// the binding tags, which gin checks for both create and update (email
// format lives there).
func NewCreateValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)

	v.RegisterStructValidationMapRules(map[string]string{
		"FirstName": "required,min=1",
		"LastName":  "required,min=1",
	}, models.StudentInput{})
	v.RegisterStructValidationMapRules(map[string]string{
		"Name": "required,min=1",
	}, models.ClassInput{})
	v.RegisterStructValidationMapRules(map[string]string{
		"Title": "required,min=1",
	}, models.AssignmentInput{})
	return v
}

// useJSONFieldNames makes gin's binding errors report JSON field names.
func useJSONFieldNames() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}
