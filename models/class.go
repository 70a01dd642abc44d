package models

import (
	"log/slog"

	"classroom-gateway/gateway"
	"classroom-gateway/platform"
)

// Class represents a class
type Class struct {
	ID         int      `json:"Id"`
	Name       string   `json:"name"`
	Subject    string   `json:"subject"`
	Period     string   `json:"period"`
	StudentIDs []string `json:"studentIds"`
}

// ClassInput carries caller-supplied fields. nil means not supplied.
type ClassInput struct {
	Name       *string  `json:"name"`
	Subject    *string  `json:"subject"`
	Period     *string  `json:"period"`
	StudentIDs []string `json:"studentIds"`
}

// ClassRecord is a row of the class_c table.
type ClassRecord struct {
	ID         int     `json:"Id,omitempty"`
	Name       *string `json:"Name,omitempty"`
	Subject    *string `json:"subject_c,omitempty"`
	Period     *string `json:"period_c,omitempty"`
	StudentIDs *string `json:"student_ids_c,omitempty"`
}

// ClassMapping binds classes to the class_c table.
var ClassMapping = gateway.Mapping[Class, ClassInput, ClassRecord]{
	Entity:     "class",
	Collection: "class_c",
	Fields:     []string{"Name", "subject_c", "period_c", "student_ids_c"},
	ToDomain:   ClassFromRecord,
	ToBackend:  ClassToRecord,
}

// ClassGateway serves the class_c table.
type ClassGateway = gateway.Gateway[Class, ClassInput, ClassRecord]

// NewClassGateway builds the class gateway over clients.
func NewClassGateway(clients platform.Factory, logger *slog.Logger) *ClassGateway {
	return gateway.New(ClassMapping, clients, logger)
}

// ClassFromRecord maps a backend row.
func ClassFromRecord(r ClassRecord) Class {
	return Class{
		ID:         r.ID,
		Name:       str(r.Name, ""),
		Subject:    str(r.Subject, ""),
		Period:     str(r.Period, ""),
		StudentIDs: SplitIDs(str(r.StudentIDs, "")),
	}
}

// ClassToRecord builds the backend row for in.
func ClassToRecord(in ClassInput, mode gateway.Mode) ClassRecord {
	r := ClassRecord{
		Name:       in.Name,
		Subject:    in.Subject,
		Period:     in.Period,
		StudentIDs: joined(in.StudentIDs, mode),
	}
	if mode == gateway.ModeCreate {
		r.Name = orDefault(r.Name, "")
		r.Subject = orDefault(r.Subject, "")
		r.Period = orDefault(r.Period, "")
	}
	return r
}
