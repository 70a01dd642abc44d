// Package platform describes the hosted data platform the gateways talk to:
// the five record methods, their parameters and the response envelope.
package platform

import (
	"context"
	"encoding/json"
	"fmt"
)

// Client is the remote record API. Implementations report transport
// problems as errors and application problems through Response.Success.
type Client interface {
	FetchRecords(ctx context.Context, table string, params FetchParams) (*Response, error)
	GetRecordByID(ctx context.Context, table string, id int, params FetchParams) (*Response, error)
	CreateRecord(ctx context.Context, table string, params RecordsParams) (*Response, error)
	UpdateRecord(ctx context.Context, table string, params RecordsParams) (*Response, error)
	DeleteRecord(ctx context.Context, table string, params DeleteParams) (*Response, error)
}

// Factory hands out a client handle. Gateways ask for a new handle on every
// call.
type Factory func() (Client, error)

// Static returns a Factory that always yields c.
func Static(c Client) Factory {
	return func() (Client, error) { return c, nil }
}

// FieldSelector entries in a fetch body have the shape {"field": {"Name": ...}}.
type FieldName struct {
	Name string `json:"Name"`
}

type FieldSelector struct {
	Field FieldName `json:"field"`
}

// FetchParams is the body of FetchRecords and GetRecordByID.
type FetchParams struct {
	Fields []FieldSelector `json:"fields"`
}

// Fields builds a FetchParams selecting the given backend field names.
func Fields(names ...string) FetchParams {
	p := FetchParams{Fields: make([]FieldSelector, 0, len(names))}
	for _, n := range names {
		p.Fields = append(p.Fields, FieldSelector{Field: FieldName{Name: n}})
	}
	return p
}

// Names returns the selected field names in request order.
func (p FetchParams) Names() []string {
	names := make([]string, 0, len(p.Fields))
	for _, f := range p.Fields {
		names = append(names, f.Field.Name)
	}
	return names
}

// RecordsParams is the batch body of CreateRecord and UpdateRecord.
type RecordsParams struct {
	Records []json.RawMessage `json:"records"`
}

// DeleteParams is the body of DeleteRecord.
type DeleteParams struct {
	RecordIDs []int `json:"RecordIds"`
}

// FieldError is a per-field validation failure inside a batch result.
type FieldError struct {
	FieldLabel string `json:"fieldLabel"`
	Message    string `json:"message"`
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.FieldLabel, e.Message)
}

// Result is the outcome for one record of a create, update or delete batch.
type Result struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Errors  []FieldError    `json:"errors,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Response is the envelope every method returns. Data holds a single record
// for GetRecordByID and a record array for FetchRecords.
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Results []Result        `json:"results,omitempty"`
}

// HasData reports whether Data carries a value other than JSON null.
func (r *Response) HasData() bool {
	return r != nil && len(r.Data) > 0 && string(r.Data) != "null"
}

// Failure is an application failure: the call went through but the
// platform answered success=false.
func Failure(message string) *Response {
	return &Response{Success: false, Message: message}
}
