package models

import (
	"log/slog"

	"classroom-gateway/gateway"
	"classroom-gateway/platform"
)

// Assignment is the record the UI works with.
type Assignment struct {
	ID          int    `json:"Id"`
	Title       string `json:"title"`
	TotalPoints int    `json:"totalPoints"`
	DueDate     string `json:"dueDate"`
	Category    string `json:"category"`
	ClassID     string `json:"classId"` // owning class, "" when unset
}

// AssignmentInput carries caller-supplied fields. nil or an unset FlexInt
// means not supplied.
type AssignmentInput struct {
	Title       *string `json:"title"`
	TotalPoints FlexInt `json:"totalPoints"`
	DueDate     *string `json:"dueDate"`
	Category    *string `json:"category"`
	ClassID     FlexInt `json:"classId"`
}

// AssignmentRecord is a row of the assignment_c table.
type AssignmentRecord struct {
	ID          int      `json:"Id,omitempty"`
	Name        *string  `json:"Name,omitempty"`
	Title       *string  `json:"title_c,omitempty"`
	TotalPoints *FlexInt `json:"total_points_c,omitempty"`
	DueDate     *string  `json:"due_date_c,omitempty"`
	Category    *string  `json:"category_c,omitempty"`
	ClassID     *Lookup  `json:"class_id_c,omitempty"`
}

// AssignmentMapping binds assignments to the assignment_c table.
var AssignmentMapping = gateway.Mapping[Assignment, AssignmentInput, AssignmentRecord]{
	Entity:     "assignment",
	Collection: "assignment_c",
	Fields:     []string{"Name", "title_c", "total_points_c", "due_date_c", "category_c", "class_id_c"},
	ToDomain:   AssignmentFromRecord,
	ToBackend:  AssignmentToRecord,
}

// AssignmentGateway serves the assignment_c table.
type AssignmentGateway = gateway.Gateway[Assignment, AssignmentInput, AssignmentRecord]

// NewAssignmentGateway builds the assignment gateway over clients.
func NewAssignmentGateway(clients platform.Factory, logger *slog.Logger) *AssignmentGateway {
	return gateway.New(AssignmentMapping, clients, logger)
}

// AssignmentFromRecord maps a backend row; a missing due date defaults to now.
func AssignmentFromRecord(r AssignmentRecord) Assignment {
	return Assignment{
		ID:          r.ID,
		Title:       str(r.Title, ""),
		TotalPoints: num(r.TotalPoints),
		DueDate:     str(r.DueDate, Timestamp(now())),
		Category:    str(r.Category, ""),
		ClassID:     r.ClassID.String(),
	}
}

// AssignmentToRecord builds the backend row for in.
func AssignmentToRecord(in AssignmentInput, mode gateway.Mode) AssignmentRecord {
	r := AssignmentRecord{
		Name:        in.Title,
		Title:       in.Title,
		TotalPoints: in.TotalPoints.field(),
		DueDate:     in.DueDate,
		Category:    in.Category,
	}
	if in.ClassID.Set {
		// An unusable id encodes as null and clears the reference.
		r.ClassID = &Lookup{}
		if in.ClassID.Valid {
			r.ClassID.ID = in.ClassID.Value
		}
	}
	if mode == gateway.ModeCreate {
		r.Title = orDefault(r.Title, "")
		r.Name = r.Title
		r.DueDate = orDefault(r.DueDate, Timestamp(now()))
		r.Category = orDefault(r.Category, "")
	}
	return r
}
