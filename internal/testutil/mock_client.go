package testutil

import (
	"context"
	"encoding/json"
	"sync"

	"classroom-gateway/platform"
)

// Call records one request made to a MockClient.
type Call struct {
	Method string
	Table  string
	ID     int
	Fields []string
	Body   []json.RawMessage
	IDs    []int
}

// MockClient is a test implementation of platform.Client. Each method
// returns its canned response and error.
type MockClient struct {
	FetchResp  *platform.Response
	FetchErr   error
	GetResp    *platform.Response
	GetErr     error
	CreateResp *platform.Response
	CreateErr  error
	UpdateResp *platform.Response
	UpdateErr  error
	DeleteResp *platform.Response
	DeleteErr  error

	mu    sync.Mutex
	calls []Call
}

// NewMockClient creates a mock whose methods all succeed with empty data.
func NewMockClient() *MockClient {
	empty := &platform.Response{Success: true}
	return &MockClient{
		FetchResp:  empty,
		GetResp:    empty,
		CreateResp: empty,
		UpdateResp: empty,
		DeleteResp: empty,
	}
}

// Factory returns a platform.Factory handing out this mock.
func (m *MockClient) Factory() platform.Factory {
	return platform.Static(m)
}

// Calls returns a copy of the recorded calls.
func (m *MockClient) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// LastCall returns the most recent call, or the zero Call.
func (m *MockClient) LastCall() Call {
	calls := m.Calls()
	if len(calls) == 0 {
		return Call{}
	}
	return calls[len(calls)-1]
}

func (m *MockClient) record(c Call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *MockClient) FetchRecords(ctx context.Context, table string, params platform.FetchParams) (*platform.Response, error) {
	m.record(Call{Method: "fetch", Table: table, Fields: params.Names()})
	return m.FetchResp, m.FetchErr
}

func (m *MockClient) GetRecordByID(ctx context.Context, table string, id int, params platform.FetchParams) (*platform.Response, error) {
	m.record(Call{Method: "get", Table: table, ID: id, Fields: params.Names()})
	return m.GetResp, m.GetErr
}

func (m *MockClient) CreateRecord(ctx context.Context, table string, params platform.RecordsParams) (*platform.Response, error) {
	m.record(Call{Method: "create", Table: table, Body: params.Records})
	return m.CreateResp, m.CreateErr
}

func (m *MockClient) UpdateRecord(ctx context.Context, table string, params platform.RecordsParams) (*platform.Response, error) {
	m.record(Call{Method: "update", Table: table, Body: params.Records})
	return m.UpdateResp, m.UpdateErr
}

func (m *MockClient) DeleteRecord(ctx context.Context, table string, params platform.DeleteParams) (*platform.Response, error) {
	m.record(Call{Method: "delete", Table: table, IDs: params.RecordIDs})
	return m.DeleteResp, m.DeleteErr
}

// Data marshals v for use as Response.Data or Result.Data.
func Data(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
