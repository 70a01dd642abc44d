package db_test

import (
	"context"
	"encoding/json"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"

	"classroom-gateway/db"
	"classroom-gateway/gateway"
	"classroom-gateway/models"
	"classroom-gateway/platform"
)

func mustNewTestStore(t *testing.T) *db.RedisStore {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return db.NewRedisStore(client, db.DefaultSchemas(), nil)
}

func strp(s string) *string { return &s }

func Test_CreateStudent_Scenario(t *testing.T) {
	store := mustNewTestStore(t)
	students := models.NewStudentGateway(platform.Static(store), nil)

	s, o := students.Create(context.Background(), models.StudentInput{
		FirstName:  strp("Ada"),
		LastName:   strp("Lovelace"),
		GradeLevel: models.Int(10),
		Email:      strp("a@x.com"),
		ClassIDs:   []string{},
	})

	if o.Failed() || s == nil {
		t.Fatalf("expected created student, got %v / %+v", s, o)
	}
	if s.ID <= 0 {
		t.Errorf("expected backend-assigned id, got %d", s.ID)
	}
	if s.Status != "Active" {
		t.Errorf("expected status Active, got %q", s.Status)
	}
	if _, err := time.Parse(time.RFC3339, s.EnrollmentDate); err != nil {
		t.Errorf("expected valid enrollment timestamp, got %q: %v", s.EnrollmentDate, err)
	}
	if s.ClassIDs == nil || len(s.ClassIDs) != 0 {
		t.Errorf("expected empty class ids, got %#v", s.ClassIDs)
	}
}

func Test_CreateThenGet_RoundTrip(t *testing.T) {
	store := mustNewTestStore(t)
	students := models.NewStudentGateway(platform.Static(store), nil)
	ctx := context.Background()

	created, o := students.Create(ctx, models.StudentInput{
		FirstName:      strp("Grace"),
		LastName:       strp("Hopper"),
		GradeLevel:     models.Int(12),
		Email:          strp("grace@navy.mil"),
		EnrollmentDate: strp("2024-09-01T00:00:00.000Z"),
		Status:         strp("Inactive"),
		ClassIDs:       []string{"1", "2", "3"},
	})
	if o.Failed() || created == nil {
		t.Fatalf("create failed: %+v", o)
	}

	got, o := students.Get(ctx, strconv.Itoa(created.ID))
	if o.Failed() || got == nil {
		t.Fatalf("get failed: %v / %+v", got, o)
	}
	if !reflect.DeepEqual(*got, *created) {
		t.Errorf("expected %+v, got %+v", *created, *got)
	}
	if !reflect.DeepEqual(got.ClassIDs, []string{"1", "2", "3"}) {
		t.Errorf("expected class ids to round-trip, got %v", got.ClassIDs)
	}
}

func Test_DeleteThenGet_Absent(t *testing.T) {
	store := mustNewTestStore(t)
	classes := models.NewClassGateway(platform.Static(store), nil)
	ctx := context.Background()

	c, o := classes.Create(ctx, models.ClassInput{Name: strp("Algebra"), Subject: strp("Math")})
	if o.Failed() || c == nil {
		t.Fatalf("create failed: %+v", o)
	}
	id := strconv.Itoa(c.ID)

	deleted, o := classes.Delete(ctx, id)
	if !deleted || o.Failed() {
		t.Fatalf("expected delete to succeed, got %v / %+v", deleted, o)
	}

	got, o := classes.Get(ctx, id)
	if got != nil || o.Failed() {
		t.Errorf("expected absent without failure, got %v / %+v", got, o)
	}

	again, o := classes.Delete(ctx, id)
	if again || o.Kind != gateway.KindPartialBatch || len(o.Messages) != 1 || o.Messages[0] != "Record not found" {
		t.Errorf("expected second delete to fail with one message, got %v / %+v", again, o)
	}
}

func Test_Get_NeverCreated(t *testing.T) {
	store := mustNewTestStore(t)
	assignments := models.NewAssignmentGateway(platform.Static(store), nil)

	got, o := assignments.Get(context.Background(), "999")
	if got != nil || o.Failed() {
		t.Errorf("expected absent, got %v / %+v", got, o)
	}
}

func Test_Create_ValidationErrors(t *testing.T) {
	store := mustNewTestStore(t)
	students := models.NewStudentGateway(platform.Static(store), nil)

	s, o := students.Create(context.Background(), models.StudentInput{
		FirstName:      strp("Ada"),
		EnrollmentDate: strp("yesterday"),
	})

	if s != nil {
		t.Fatalf("expected absent, got %+v", s)
	}
	if o.Kind != gateway.KindPartialBatch {
		t.Errorf("expected partial batch, got %s", o.Kind)
	}
	want := []string{
		"Last Name: is required",
		"Email: is required",
		"Enrollment Date: must be an ISO-8601 date",
	}
	if !reflect.DeepEqual(o.Messages, want) {
		t.Errorf("expected %v, got %v", want, o.Messages)
	}
}

func Test_CreateRecord_MixedBatch(t *testing.T) {
	store := mustNewTestStore(t)
	ctx := context.Background()

	resp, err := store.CreateRecord(ctx, "class_c", platform.RecordsParams{Records: []json.RawMessage{
		json.RawMessage(`{"Name":"","subject_c":"Art","colour_c":"red"}`),
		json.RawMessage(`{"Name":"Biology"}`),
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success || len(resp.Results) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}

	failed := resp.Results[0]
	wantErrs := []platform.FieldError{
		{FieldLabel: "Name", Message: "is required"},
		{FieldLabel: "colour_c", Message: "is not a field of class_c"},
	}
	if failed.Success || !reflect.DeepEqual(failed.Errors, wantErrs) {
		t.Errorf("unexpected failed result %+v", failed)
	}
	if !resp.Results[1].Success {
		t.Errorf("expected second record to succeed, got %+v", resp.Results[1])
	}
}

func Test_Assignment_ReferenceUnwrapped(t *testing.T) {
	store := mustNewTestStore(t)
	classes := models.NewClassGateway(platform.Static(store), nil)
	assignments := models.NewAssignmentGateway(platform.Static(store), nil)
	ctx := context.Background()

	c, o := classes.Create(ctx, models.ClassInput{Name: strp("Algebra")})
	if o.Failed() {
		t.Fatalf("class create failed: %+v", o)
	}

	a, o := assignments.Create(ctx, models.AssignmentInput{
		Title:       strp("Quadratics"),
		TotalPoints: models.Int(20),
		ClassID:     models.Int(c.ID),
	})
	if o.Failed() || a == nil {
		t.Fatalf("assignment create failed: %+v", o)
	}
	if a.ClassID != strconv.Itoa(c.ID) || a.TotalPoints != 20 {
		t.Errorf("unexpected assignment %+v", a)
	}

	resp, err := store.GetRecordByID(ctx, "assignment_c", a.ID, platform.Fields("class_id_c"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var raw struct {
		ClassID map[string]any `json:"class_id_c"`
	}
	if err := json.Unmarshal(resp.Data, &raw); err != nil {
		t.Fatalf("expected nested lookup shape: %v", err)
	}
	if raw.ClassID["Name"] != "Algebra" || raw.ClassID["Id"] != float64(c.ID) {
		t.Errorf("expected lookup {Id, Name: Algebra}, got %v", raw.ClassID)
	}

	_, o = assignments.Create(ctx, models.AssignmentInput{Title: strp("Orphan"), ClassID: models.Int(404)})
	if o.Kind != gateway.KindPartialBatch || len(o.Messages) != 1 {
		t.Errorf("expected missing reference to fail, got %+v", o)
	}
}

func Test_Update_MergesSuppliedFields(t *testing.T) {
	store := mustNewTestStore(t)
	classes := models.NewClassGateway(platform.Static(store), nil)
	ctx := context.Background()

	c, _ := classes.Create(ctx, models.ClassInput{Name: strp("Algebra"), Subject: strp("Math"), StudentIDs: []string{"1"}})

	updated, o := classes.Update(ctx, strconv.Itoa(c.ID), models.ClassInput{Period: strp("3")})
	if o.Failed() || updated == nil {
		t.Fatalf("update failed: %+v", o)
	}
	if updated.Name != "Algebra" || updated.Subject != "Math" || updated.Period != "3" {
		t.Errorf("expected untouched fields to survive, got %+v", updated)
	}
	if !reflect.DeepEqual(updated.StudentIDs, []string{"1"}) {
		t.Errorf("expected memberships untouched, got %v", updated.StudentIDs)
	}

	_, o = classes.Update(ctx, "777", models.ClassInput{Name: strp("Ghost")})
	if o.Kind != gateway.KindPartialBatch || len(o.Messages) != 1 || o.Messages[0] != "Record not found" {
		t.Errorf("expected not found on unknown id, got %+v", o)
	}

	_, o = classes.Update(ctx, strconv.Itoa(c.ID), models.ClassInput{Name: strp("  ")})
	if o.Kind != gateway.KindPartialBatch || len(o.Messages) != 1 || o.Messages[0] != "Name: is required" {
		t.Errorf("expected required name to be enforced on update, got %+v", o)
	}
}

func Test_List_OrderedByID(t *testing.T) {
	store := mustNewTestStore(t)
	classes := models.NewClassGateway(platform.Static(store), nil)
	ctx := context.Background()

	for _, name := range []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J", "K"} {
		if _, o := classes.Create(ctx, models.ClassInput{Name: strp(name)}); o.Failed() {
			t.Fatalf("create %s failed: %+v", name, o)
		}
	}

	list, o := classes.List(ctx)
	if o.Failed() || len(list) != 11 {
		t.Fatalf("expected 11 classes, got %d / %+v", len(list), o)
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].ID >= list[i].ID {
			t.Fatalf("expected ascending ids, got %d before %d", list[i-1].ID, list[i].ID)
		}
	}
	if list[10].Name != "K" {
		t.Errorf("expected last class K, got %q", list[10].Name)
	}
}

func Test_UnknownTable(t *testing.T) {
	store := mustNewTestStore(t)

	resp, err := store.FetchRecords(context.Background(), "teacher_c", platform.Fields("Name"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Success || resp.Message != "Table teacher_c does not exist" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func Test_IsEmpty(t *testing.T) {
	store := mustNewTestStore(t)
	ctx := context.Background()

	empty, err := store.IsEmpty(ctx, "class_c")
	if err != nil || !empty {
		t.Fatalf("expected empty table, got %v / %v", empty, err)
	}

	if _, err := store.CreateRecord(ctx, "class_c", platform.RecordsParams{Records: []json.RawMessage{json.RawMessage(`{"Name":"A"}`)}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	empty, err = store.IsEmpty(ctx, "class_c")
	if err != nil || empty {
		t.Errorf("expected non-empty table, got %v / %v", empty, err)
	}
}

func Test_Seed(t *testing.T) {
	store := mustNewTestStore(t)
	ctx := context.Background()

	seeded, err := store.Seed(ctx)
	if err != nil || !seeded {
		t.Fatalf("expected first seed to write data, got %v / %v", seeded, err)
	}

	classes, o := models.NewClassGateway(platform.Static(store), nil).List(ctx)
	if o.Failed() || len(classes) != 2 {
		t.Fatalf("expected 2 seeded classes, got %d / %+v", len(classes), o)
	}
	if !reflect.DeepEqual(classes[0].StudentIDs, []string{"1", "2"}) {
		t.Errorf("expected first class to list students 1 and 2, got %v", classes[0].StudentIDs)
	}

	assignments, _ := models.NewAssignmentGateway(platform.Static(store), nil).List(ctx)
	if len(assignments) != 2 || assignments[1].ClassID != strconv.Itoa(classes[1].ID) {
		t.Errorf("expected assignments linked to seeded classes, got %+v", assignments)
	}

	seeded, err = store.Seed(ctx)
	if err != nil || seeded {
		t.Errorf("expected second seed to be skipped, got %v / %v", seeded, err)
	}
}

func Test_Update_ClearsAssignmentIntegers(t *testing.T) {
	store := mustNewTestStore(t)
	classes := models.NewClassGateway(platform.Static(store), nil)
	assignments := models.NewAssignmentGateway(platform.Static(store), nil)
	ctx := context.Background()

	c, _ := classes.Create(ctx, models.ClassInput{Name: strp("Algebra")})
	a, o := assignments.Create(ctx, models.AssignmentInput{
		Title:       strp("Quadratics"),
		TotalPoints: models.Int(20),
		ClassID:     models.Int(c.ID),
	})
	if o.Failed() || a == nil {
		t.Fatalf("assignment create failed: %+v", o)
	}

	var clear models.AssignmentInput
	if err := json.Unmarshal([]byte(`{"classId":"","totalPoints":null}`), &clear); err != nil {
		t.Fatalf("failed to decode input: %v", err)
	}
	updated, o := assignments.Update(ctx, strconv.Itoa(a.ID), clear)
	if o.Failed() || updated == nil {
		t.Fatalf("update failed: %+v", o)
	}

	got, _ := assignments.Get(ctx, strconv.Itoa(a.ID))
	if got == nil || got.ClassID != "" || got.TotalPoints != 0 || got.Title != "Quadratics" {
		t.Errorf("expected class and points cleared with title kept, got %+v", got)
	}
}

func Test_Create_DateFormats(t *testing.T) {
	tests := []struct {
		due   string
		valid bool
	}{
		{due: "2024-09-20T00:00:00.000Z", valid: true},
		{due: "2024-09-20T08:00:00+02:00", valid: true},
		{due: "2024-09-20", valid: true},
		{due: "Sept 20", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.due, func(t *testing.T) {
			assignments := models.NewAssignmentGateway(platform.Static(mustNewTestStore(t)), nil)

			a, o := assignments.Create(context.Background(), models.AssignmentInput{Title: strp("Essay"), DueDate: strp(tt.due)})
			if tt.valid && (a == nil || a.DueDate != tt.due) {
				t.Errorf("expected due date %q to be stored, got %+v / %+v", tt.due, a, o)
			}
			if !tt.valid && (a != nil || !reflect.DeepEqual(o.Messages, []string{"Due Date: must be an ISO-8601 date"})) {
				t.Errorf("expected due date %q to be rejected, got %+v", tt.due, o)
			}
		})
	}
}
