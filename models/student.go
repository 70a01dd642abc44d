package models

import (
	"log/slog"
	"strings"

	"classroom-gateway/gateway"
	"classroom-gateway/platform"
)

// Student is the record the UI works with.
type Student struct {
	ID             int      `json:"Id"`
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	GradeLevel     int      `json:"gradeLevel"`
	Email          string   `json:"email"`
	EnrollmentDate string   `json:"enrollmentDate"`
	Status         string   `json:"status"`
	ClassIDs       []string `json:"classIds"`
}

// StudentInput carries caller-supplied fields. nil means not supplied.
type StudentInput struct {
	FirstName      *string  `json:"firstName"`
	LastName       *string  `json:"lastName"`
	GradeLevel     FlexInt  `json:"gradeLevel"`
	Email          *string  `json:"email" binding:"omitempty,email"`
	EnrollmentDate *string  `json:"enrollmentDate"`
	Status         *string  `json:"status"`
	ClassIDs       []string `json:"classIds"`
}

// StudentRecord is a row of the student_c table.
type StudentRecord struct {
	ID             int      `json:"Id,omitempty"`
	Name           *string  `json:"Name,omitempty"`
	FirstName      *string  `json:"first_name_c,omitempty"`
	LastName       *string  `json:"last_name_c,omitempty"`
	GradeLevel     *FlexInt `json:"grade_level_c,omitempty"`
	Email          *string  `json:"email_c,omitempty"`
	EnrollmentDate *string  `json:"enrollment_date_c,omitempty"`
	Status         *string  `json:"status_c,omitempty"`
	ClassIDs       *string  `json:"class_ids_c,omitempty"`
}

// StudentMapping binds students to the student_c table.
var StudentMapping = gateway.Mapping[Student, StudentInput, StudentRecord]{
	Entity:     "student",
	Collection: "student_c",
	Fields: []string{
		"Name", "first_name_c", "last_name_c", "grade_level_c", "email_c",
		"enrollment_date_c", "status_c", "class_ids_c",
	},
	ToDomain:  StudentFromRecord,
	ToBackend: StudentToRecord,
}

// StudentGateway serves the student_c table.
type StudentGateway = gateway.Gateway[Student, StudentInput, StudentRecord]

// NewStudentGateway builds the student gateway over clients.
func NewStudentGateway(clients platform.Factory, logger *slog.Logger) *StudentGateway {
	return gateway.New(StudentMapping, clients, logger)
}

// StudentFromRecord maps a backend row, defaulting the enrollment date to
// now and the status to DefaultStatus.
func StudentFromRecord(r StudentRecord) Student {
	return Student{
		ID:             r.ID,
		FirstName:      str(r.FirstName, ""),
		LastName:       str(r.LastName, ""),
		GradeLevel:     num(r.GradeLevel),
		Email:          str(r.Email, ""),
		EnrollmentDate: str(r.EnrollmentDate, Timestamp(now())),
		Status:         str(r.Status, DefaultStatus),
		ClassIDs:       SplitIDs(str(r.ClassIDs, "")),
	}
}

// StudentToRecord builds the backend row for in. ModeCreate back-fills
// defaults; ModeUpdate sends only supplied fields.
func StudentToRecord(in StudentInput, mode gateway.Mode) StudentRecord {
	r := StudentRecord{
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		GradeLevel:     in.GradeLevel.field(),
		Email:          in.Email,
		EnrollmentDate: in.EnrollmentDate,
		Status:         in.Status,
		ClassIDs:       joined(in.ClassIDs, mode),
	}

	// Name is derived; on update it is only rewritten when both parts are known.
	if mode == gateway.ModeCreate || (in.FirstName != nil && in.LastName != nil) {
		r.Name = strPtr(strings.TrimSpace(str(in.FirstName, "") + " " + str(in.LastName, "")))
	}

	if mode == gateway.ModeCreate {
		r.FirstName = orDefault(r.FirstName, "")
		r.LastName = orDefault(r.LastName, "")
		r.Email = orDefault(r.Email, "")
		r.EnrollmentDate = orDefault(r.EnrollmentDate, Timestamp(now()))
		r.Status = orDefault(r.Status, DefaultStatus)
	}
	return r
}
