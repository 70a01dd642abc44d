package db

// FieldType is the storage type of a table field.
type FieldType int

const (
	Text FieldType = iota
	Number
	DateTime
	Reference // integer id of a record in Field.Target
)

// Field describes one column of a sandbox table.
type Field struct {
	Name     string
	Label    string // shown in validation errors
	Type     FieldType
	Required bool
	Target   string // referenced table, for Reference fields
}

// Schema is the column set of one table. Every table also has an
// integer Id assigned on create.
type Schema struct {
	Table  string
	Fields []Field
}

func (s Schema) field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// DefaultSchemas mirrors the student, class and assignment tables of the
// hosted platform.
func DefaultSchemas() []Schema {
	return []Schema{
		{
			Table: "student_c",
			Fields: []Field{
				{Name: "Name", Label: "Name", Type: Text},
				{Name: "first_name_c", Label: "First Name", Type: Text, Required: true},
				{Name: "last_name_c", Label: "Last Name", Type: Text, Required: true},
				{Name: "grade_level_c", Label: "Grade Level", Type: Number},
				{Name: "email_c", Label: "Email", Type: Text, Required: true},
				{Name: "enrollment_date_c", Label: "Enrollment Date", Type: DateTime},
				{Name: "status_c", Label: "Status", Type: Text},
				{Name: "class_ids_c", Label: "Class Ids", Type: Text},
			},
		},
		{
			Table: "class_c",
			Fields: []Field{
				{Name: "Name", Label: "Name", Type: Text, Required: true},
				{Name: "subject_c", Label: "Subject", Type: Text},
				{Name: "period_c", Label: "Period", Type: Text},
				{Name: "student_ids_c", Label: "Student Ids", Type: Text},
			},
		},
		{
			Table: "assignment_c",
			Fields: []Field{
				{Name: "Name", Label: "Name", Type: Text},
				{Name: "title_c", Label: "Title", Type: Text, Required: true},
				{Name: "total_points_c", Label: "Total Points", Type: Number},
				{Name: "due_date_c", Label: "Due Date", Type: DateTime},
				{Name: "category_c", Label: "Category", Type: Text},
				{Name: "class_id_c", Label: "Class", Type: Reference, Target: "class_c"},
			},
		},
	}
}
