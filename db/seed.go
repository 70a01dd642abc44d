package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Seed installs a small demo data set when the student table is empty. It
// reports whether anything was written.
func (s *RedisStore) Seed(ctx context.Context) (bool, error) {
	empty, err := s.IsEmpty(ctx, "student_c")
	if err != nil {
		return false, err
	}
	if !empty {
		s.log.Info("Found existing student data, skipping seed")
		return false, nil
	}

	s.log.Info("No student data found, adding demo data")

	classIDs, err := s.seedTable(ctx, "class_c", []map[string]any{
		{"Name": "Algebra I", "subject_c": "Math", "period_c": "1"},
		{"Name": "World History", "subject_c": "History", "period_c": "3"},
	})
	if err != nil {
		return false, err
	}
	algebra, history := strconv.Itoa(classIDs[0]), strconv.Itoa(classIDs[1])

	studentIDs, err := s.seedTable(ctx, "student_c", []map[string]any{
		seedStudent("Ada", "Lovelace", 10, "ada@example.com", algebra, history),
		seedStudent("Alan", "Turing", 11, "alan@example.com", algebra),
		seedStudent("Grace", "Hopper", 9, "grace@example.com", history),
	})
	if err != nil {
		return false, err
	}

	members := map[string][]string{}
	for i, classes := range [][]string{{algebra, history}, {algebra}, {history}} {
		for _, c := range classes {
			members[c] = append(members[c], strconv.Itoa(studentIDs[i]))
		}
	}
	for _, id := range classIDs {
		key := getRecordKey("class_c", id)
		value, _ := json.Marshal(strings.Join(members[strconv.Itoa(id)], ","))
		if err := s.Client.HSet(ctx, key, "student_ids_c", string(value)).Err(); err != nil {
			return false, fmt.Errorf("failed to link class %d: %w", id, err)
		}
	}

	if _, err := s.seedTable(ctx, "assignment_c", []map[string]any{
		{"Name": "Chapter 1 Quiz", "title_c": "Chapter 1 Quiz", "total_points_c": 20, "due_date_c": "2024-09-20T00:00:00.000Z", "category_c": "Quiz", "class_id_c": classIDs[0]},
		{"Name": "Essay: Rome", "title_c": "Essay: Rome", "total_points_c": 100, "due_date_c": "2024-10-04T00:00:00.000Z", "category_c": "Homework", "class_id_c": classIDs[1]},
	}); err != nil {
		return false, err
	}

	s.log.Info("Demo data added", "classes", len(classIDs), "students", len(studentIDs))
	return true, nil
}

func seedStudent(first, last string, grade int, email string, classIDs ...string) map[string]any {
	return map[string]any{
		"Name":              first + " " + last,
		"first_name_c":      first,
		"last_name_c":       last,
		"grade_level_c":     grade,
		"email_c":           email,
		"enrollment_date_c": "2024-09-01T00:00:00.000Z",
		"status_c":          "Active",
		"class_ids_c":       strings.Join(classIDs, ","),
	}
}

// seedTable creates records in order and returns their ids.
func (s *RedisStore) seedTable(ctx context.Context, table string, records []map[string]any) ([]int, error) {
	schema, ok := s.schemas[table]
	if !ok {
		return nil, fmt.Errorf("table %s is not served", table)
	}

	ids := make([]int, 0, len(records))
	for _, record := range records {
		raw, err := json.Marshal(record)
		if err != nil {
			return nil, err
		}
		result, err := s.createOne(ctx, schema, raw)
		if err != nil {
			return nil, err
		}
		if !result.Success {
			return nil, fmt.Errorf("seed record rejected by %s: %+v", table, result.Errors)
		}

		var written struct {
			ID int `json:"Id"`
		}
		if err := json.Unmarshal(result.Data, &written); err != nil {
			return nil, fmt.Errorf("failed to read seeded %s id: %w", table, err)
		}
		ids = append(ids, written.ID)
	}
	return ids, nil
}
