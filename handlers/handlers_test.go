package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/xuri/excelize/v2"

	"classroom-gateway/db"
	"classroom-gateway/handlers"
	"classroom-gateway/internal/testutil"
	"classroom-gateway/models"
	"classroom-gateway/notify"
	"classroom-gateway/platform"
)

type testServer struct {
	router   *gin.Engine
	recorder *notify.Recorder
}

func gatewaysFor(clients platform.Factory) handlers.Gateways {
	return handlers.Gateways{
		Students:    models.NewStudentGateway(clients, nil),
		Classes:     models.NewClassGateway(clients, nil),
		Assignments: models.NewAssignmentGateway(clients, nil),
	}
}

// mustNewSandboxServer wires the router to a Redis sandbox on miniredis.
func mustNewSandboxServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := db.NewRedisStore(client, db.DefaultSchemas(), nil)
	recorder := &notify.Recorder{}
	feed := notify.NewRedisFeed(client, 10, nil)

	router := handlers.SetupRouter(gatewaysFor(platform.Static(store)), notify.Multi{recorder, feed}, feed, nil)
	return &testServer{router: router, recorder: recorder}
}

func mustNewMockServer(t *testing.T, mock *testutil.MockClient) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	recorder := &notify.Recorder{}
	router := handlers.SetupRouter(gatewaysFor(mock.Factory()), recorder, nil, nil)
	return &testServer{router: router, recorder: recorder}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func Test_StudentLifecycle(t *testing.T) {
	s := mustNewSandboxServer(t)

	w := s.do(t, http.MethodPost, "/api/students",
		`{"firstName":"Ada","lastName":"Lovelace","gradeLevel":"10","email":"ada@x.com"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode[models.Student](t, w)
	if created.ID == 0 || created.GradeLevel != 10 || created.Status != "Active" {
		t.Errorf("unexpected created student %+v", created)
	}

	path := "/api/students/" + jsonInt(created.ID)

	w = s.do(t, http.MethodPatch, path, `{"gradeLevel":11}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on update, got %d: %s", w.Code, w.Body.String())
	}
	if updated := decode[models.Student](t, w); updated.GradeLevel != 11 || updated.FirstName != "Ada" {
		t.Errorf("expected merged update, got %+v", updated)
	}

	w = s.do(t, http.MethodGet, "/api/students", "")
	if list := decode[[]models.Student](t, w); w.Code != http.StatusOK || len(list) != 1 {
		t.Errorf("expected one listed student, got %d: %s", w.Code, w.Body.String())
	}

	if w = s.do(t, http.MethodDelete, path, ""); w.Code != http.StatusNoContent {
		t.Errorf("expected 204 on delete, got %d", w.Code)
	}
	if w = s.do(t, http.MethodGet, path, ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
	if w = s.do(t, http.MethodDelete, path, ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 deleting twice, got %d", w.Code)
	}
}

func Test_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want []string
	}{
		{
			name: "student missing names",
			path: "/api/students",
			body: `{"email":"ada@x.com"}`,
			want: []string{"firstName: is required", "lastName: is required"},
		},
		{
			name: "student bad email",
			path: "/api/students",
			body: `{"firstName":"Ada","lastName":"L","email":"nope"}`,
			want: []string{"email: must be a valid email"},
		},
		{
			name: "class missing name",
			path: "/api/classes",
			body: `{"subject":"Math"}`,
			want: []string{"name: is required"},
		},
		{
			name: "assignment blank title",
			path: "/api/assignments",
			body: `{"title":""}`,
			want: []string{"title: is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := mustNewSandboxServer(t)

			w := s.do(t, http.MethodPost, tt.path, tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			body := decode[struct {
				Messages []string `json:"messages"`
			}](t, w)
			if !reflect.DeepEqual(body.Messages, tt.want) {
				t.Errorf("expected messages %v, got %v", tt.want, body.Messages)
			}
			if !reflect.DeepEqual(s.recorder.Messages(), tt.want) {
				t.Errorf("expected published %v, got %v", tt.want, s.recorder.Messages())
			}
		})
	}
}

func Test_Create_BackendRejection(t *testing.T) {
	s := mustNewSandboxServer(t)

	// The sandbox requires an email even though the API does not.
	w := s.do(t, http.MethodPost, "/api/students", `{"firstName":"Ada","lastName":"Lovelace"}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	want := []string{"Email: is required"}
	if !reflect.DeepEqual(s.recorder.Messages(), want) {
		t.Errorf("expected %v, got %v", want, s.recorder.Messages())
	}

	w = s.do(t, http.MethodGet, "/api/notifications", "")
	toasts := decode[[]notify.Toast](t, w)
	if len(toasts) != 1 || toasts[0].Message != want[0] {
		t.Errorf("expected queued toast %q, got %+v", want[0], toasts)
	}
	if w = s.do(t, http.MethodGet, "/api/notifications", ""); strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected drained feed, got %s", w.Body.String())
	}
}

func Test_InvalidID(t *testing.T) {
	s := mustNewSandboxServer(t)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		w := s.do(t, method, "/api/classes/abc", "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", method, w.Code)
		}
	}
	if got := len(s.recorder.Messages()); got != 2 {
		t.Errorf("expected one message per request, got %d", got)
	}
}

func Test_List_PlatformFailure(t *testing.T) {
	tests := []struct {
		name     string
		resp     *platform.Response
		err      error
		messages []string
	}{
		{name: "application failure", resp: platform.Failure("Table missing"), messages: []string{"Table missing"}},
		{name: "transport failure", err: errors.New("connection refused"), messages: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := testutil.NewMockClient()
			mock.FetchResp, mock.FetchErr = tt.resp, tt.err
			s := mustNewMockServer(t, mock)

			w := s.do(t, http.MethodGet, "/api/assignments", "")
			if w.Code != http.StatusBadGateway {
				t.Fatalf("expected 502, got %d", w.Code)
			}
			body := decode[struct {
				Messages []string `json:"messages"`
			}](t, w)
			if !reflect.DeepEqual(body.Messages, tt.messages) {
				t.Errorf("expected %v, got %v", tt.messages, body.Messages)
			}
		})
	}
}

func Test_Notifications_NoFeed(t *testing.T) {
	s := mustNewMockServer(t, testutil.NewMockClient())

	if w := s.do(t, http.MethodGet, "/api/notifications", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func Test_ImportAndExportStudents(t *testing.T) {
	s := mustNewSandboxServer(t)

	w := s.do(t, http.MethodPost, "/api/classes", `{"name":"Algebra I"}`)
	class := decode[models.Class](t, w)

	book := excelize.NewFile()
	rows := [][]interface{}{
		{"First Name", "Last Name", "Grade", "Email"},
		{"Ada", "Lovelace", 10, "ada@x.com"},
		{"Alan", "Turing", 11, ""},
	}
	for i, row := range rows {
		axis, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := book.SetSheetRow("Sheet1", axis, &row); err != nil {
			t.Fatalf("failed to build workbook: %v", err)
		}
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	_ = form.WriteField("classId", jsonInt(class.ID))
	part, _ := form.CreateFormFile("file", "roster.xlsx")
	if err := book.Write(part); err != nil {
		t.Fatalf("failed to write workbook: %v", err)
	}
	form.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/import/students", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	report := decode[struct {
		Imported int `json:"importedCount"`
		Failed   int `json:"failedCount"`
	}](t, w)
	if report.Imported != 1 || report.Failed != 1 {
		t.Errorf("expected 1 imported and 1 failed, got %+v", report)
	}

	w = s.do(t, http.MethodGet, "/api/export/students", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 on export, got %d", w.Code)
	}
	exported, err := excelize.OpenReader(w.Body)
	if err != nil {
		t.Fatalf("export is not a workbook: %v", err)
	}
	defer exported.Close()
	got, _ := exported.GetRows("Students")
	if len(got) != 2 || got[1][1] != "Ada" || got[1][7] != jsonInt(class.ID) {
		t.Errorf("unexpected export rows %v", got)
	}
}

func Test_RequestIDAndPing(t *testing.T) {
	s := mustNewMockServer(t, testutil.NewMockClient())

	w := s.do(t, http.MethodGet, "/api/ping", "")
	if w.Code != http.StatusOK || w.Header().Get("X-Request-ID") == "" {
		t.Errorf("expected pong with a request id, got %d %v", w.Code, w.Header())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("expected caller request id echoed, got %q", got)
	}
}

func Test_Metrics(t *testing.T) {
	s := mustNewMockServer(t, testutil.NewMockClient())
	s.do(t, http.MethodGet, "/api/students", "")

	w := s.do(t, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "gateway_operations_total") {
		t.Errorf("expected gateway counters in metrics output")
	}
}

func jsonInt(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func Test_EmailFormat_CheckedOnce(t *testing.T) {
	s := mustNewSandboxServer(t)

	w := s.do(t, http.MethodPost, "/api/students", `{"firstName":"Ada","lastName":"Lovelace","email":"ada@x.com"}`)
	created := decode[models.Student](t, w)

	w = s.do(t, http.MethodPatch, "/api/students/"+jsonInt(created.ID), `{"email":"nope"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on update with bad email, got %d", w.Code)
	}
	want := []string{"email: must be a valid email"}
	if !reflect.DeepEqual(s.recorder.Messages(), want) {
		t.Errorf("expected a single published message %v, got %v", want, s.recorder.Messages())
	}

	// The create rules leave email format to the binding tags.
	err := handlers.NewCreateValidator().Struct(models.StudentInput{
		FirstName: &created.FirstName, LastName: &created.LastName, Email: &[]string{"nope"}[0],
	})
	if err != nil {
		t.Errorf("expected create rules to skip email format, got %v", err)
	}
}
