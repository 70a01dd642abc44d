package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

const publicKeyHeader = "X-Public-Key"

// Credentials identify a project on the hosted platform.
type Credentials struct {
	BaseURL   string
	ProjectID string
	PublicKey string
}

// StatusError is returned when the platform answers with a non-2xx status.
// Message is taken from the response body when it carries one.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("platform returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("platform returned %d", e.StatusCode)
}

// HTTPClient talks JSON to the hosted platform.
type HTTPClient struct {
	creds Credentials
	http  *http.Client
}

// NewHTTPClient builds a client handle. A nil hc falls back to
// http.DefaultClient.
func NewHTTPClient(creds Credentials, hc *http.Client) (*HTTPClient, error) {
	if creds.BaseURL == "" || creds.ProjectID == "" || creds.PublicKey == "" {
		return nil, errors.New("platform base URL, project ID and public key are required")
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{creds: creds, http: hc}, nil
}

// NewHTTPFactory returns a Factory constructing a fresh HTTPClient handle per
// call from the credentials creds returns at that moment. The underlying
// transport is shared.
func NewHTTPFactory(creds func() Credentials, hc *http.Client) Factory {
	return func() (Client, error) {
		return NewHTTPClient(creds(), hc)
	}
}

func (c *HTTPClient) recordsURL(table string, suffix ...string) string {
	u := c.creds.BaseURL + "/api/v1/projects/" + url.PathEscape(c.creds.ProjectID) +
		"/tables/" + url.PathEscape(table) + "/records"
	for _, s := range suffix {
		u += "/" + s
	}
	return u
}

func (c *HTTPClient) FetchRecords(ctx context.Context, table string, params FetchParams) (*Response, error) {
	return c.do(ctx, http.MethodPost, c.recordsURL(table, "query"), params)
}

func (c *HTTPClient) GetRecordByID(ctx context.Context, table string, id int, params FetchParams) (*Response, error) {
	return c.do(ctx, http.MethodPost, c.recordsURL(table, strconv.Itoa(id), "query"), params)
}

func (c *HTTPClient) CreateRecord(ctx context.Context, table string, params RecordsParams) (*Response, error) {
	return c.do(ctx, http.MethodPost, c.recordsURL(table), params)
}

func (c *HTTPClient) UpdateRecord(ctx context.Context, table string, params RecordsParams) (*Response, error) {
	return c.do(ctx, http.MethodPut, c.recordsURL(table), params)
}

func (c *HTTPClient) DeleteRecord(ctx context.Context, table string, params DeleteParams) (*Response, error) {
	return c.do(ctx, http.MethodDelete, c.recordsURL(table), params)
}

func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(publicKeyHeader, c.creds.PublicKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("platform request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read platform response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var envelope Response
		if json.Unmarshal(raw, &envelope) == nil {
			statusErr.Message = envelope.Message
		}
		return nil, statusErr
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode platform response: %w", err)
	}
	return &out, nil
}
