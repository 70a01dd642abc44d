// Package gateway implements the resource gateway: one generic list, get,
// create, update and delete over a remote record table, parameterized by a
// field mapping.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"classroom-gateway/platform"
)

// Mode tells ToBackend which write it is building a record for.
type Mode int

const (
	// ModeCreate back-fills defaults for optional fields the caller left out.
	ModeCreate Mode = iota
	// ModeUpdate sends exactly what the caller supplied.
	ModeUpdate
)

// Mapping binds a domain record D and caller input I to the typed backend
// record B stored in Collection.
type Mapping[D, I, B any] struct {
	Entity     string // singular name used in log lines, e.g. "student"
	Collection string
	Fields     []string
	ToDomain   func(B) D
	ToBackend  func(in I, mode Mode) B
}

// Gateway is safe for concurrent use; it holds no per-call state.
type Gateway[D, I, B any] struct {
	mapping Mapping[D, I, B]
	clients platform.Factory
	log     *slog.Logger
	fetch   platform.FetchParams
}

// New instantiates a gateway for one mapping. A nil logger uses
// slog.Default.
func New[D, I, B any](m Mapping[D, I, B], clients platform.Factory, logger *slog.Logger) *Gateway[D, I, B] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway[D, I, B]{
		mapping: m,
		clients: clients,
		log:     logger.With("collection", m.Collection),
		fetch:   platform.Fields(m.Fields...),
	}
}

// Collection returns the backend table name.
func (g *Gateway[D, I, B]) Collection() string {
	return g.mapping.Collection
}

// List returns every record. The slice is empty, never nil, on failure and
// when the table has no rows; use the Outcome to tell the two apart.
func (g *Gateway[D, I, B]) List(ctx context.Context) ([]D, Outcome) {
	out := make([]D, 0)

	resp, o := g.call(ctx, "list", func(c platform.Client) (*platform.Response, error) {
		return c.FetchRecords(ctx, g.mapping.Collection, g.fetch)
	})
	if o.Failed() {
		return out, g.done("list", o)
	}
	if !resp.HasData() {
		return out, g.done("list", ok())
	}

	var rows []B
	if err := json.Unmarshal(resp.Data, &rows); err != nil {
		return out, g.done("list", g.transportFailure("list", fmt.Errorf("failed to decode %s records: %w", g.mapping.Entity, err)))
	}
	for _, row := range rows {
		out = append(out, g.mapping.ToDomain(row))
	}
	return out, g.done("list", ok())
}

// Get returns nil without a failure when the record does not exist.
func (g *Gateway[D, I, B]) Get(ctx context.Context, id string) (*D, Outcome) {
	n, o := g.coerce(id)
	if o.Failed() {
		return nil, g.done("get", o)
	}

	resp, o := g.call(ctx, "get", func(c platform.Client) (*platform.Response, error) {
		return c.GetRecordByID(ctx, g.mapping.Collection, n, g.fetch)
	})
	if o.Failed() {
		return nil, g.done("get", o)
	}
	if !resp.HasData() {
		return nil, g.done("get", ok())
	}

	var row B
	if err := json.Unmarshal(resp.Data, &row); err != nil {
		return nil, g.done("get", g.transportFailure("get", fmt.Errorf("failed to decode %s %d: %w", g.mapping.Entity, n, err)))
	}
	d := g.mapping.ToDomain(row)
	return &d, g.done("get", ok())
}

// Create submits a single-record batch built with ModeCreate.
func (g *Gateway[D, I, B]) Create(ctx context.Context, in I) (*D, Outcome) {
	record, err := json.Marshal(g.mapping.ToBackend(in, ModeCreate))
	if err != nil {
		return nil, g.done("create", g.transportFailure("create", err))
	}

	resp, o := g.call(ctx, "create", func(c platform.Client) (*platform.Response, error) {
		return c.CreateRecord(ctx, g.mapping.Collection, platform.RecordsParams{Records: []json.RawMessage{record}})
	})
	if o.Failed() {
		return nil, g.done("create", o)
	}
	d, o := g.firstWritten("create", resp)
	return d, g.done("create", o)
}

// Update submits a single-record batch built with ModeUpdate and carrying
// the coerced id.
func (g *Gateway[D, I, B]) Update(ctx context.Context, id string, in I) (*D, Outcome) {
	n, o := g.coerce(id)
	if o.Failed() {
		return nil, g.done("update", o)
	}

	record, err := withID(g.mapping.ToBackend(in, ModeUpdate), n)
	if err != nil {
		return nil, g.done("update", g.transportFailure("update", err))
	}

	resp, o := g.call(ctx, "update", func(c platform.Client) (*platform.Response, error) {
		return c.UpdateRecord(ctx, g.mapping.Collection, platform.RecordsParams{Records: []json.RawMessage{record}})
	})
	if o.Failed() {
		return nil, g.done("update", o)
	}
	d, o := g.firstWritten("update", resp)
	return d, g.done("update", o)
}

// Delete reports true only when the platform confirms at least one deletion.
func (g *Gateway[D, I, B]) Delete(ctx context.Context, id string) (bool, Outcome) {
	n, o := g.coerce(id)
	if o.Failed() {
		return false, g.done("delete", o)
	}

	resp, o := g.call(ctx, "delete", func(c platform.Client) (*platform.Response, error) {
		return c.DeleteRecord(ctx, g.mapping.Collection, platform.DeleteParams{RecordIDs: []int{n}})
	})
	if o.Failed() {
		return false, g.done("delete", o)
	}
	if len(resp.Results) == 0 {
		g.log.Warn("delete returned no results", "id", n)
		return false, g.done("delete", Outcome{Kind: KindApplication})
	}

	succeeded, failed := splitResults(resp.Results)
	o = ok()
	if len(failed) > 0 {
		g.logPartial("delete", failed)
		o = Outcome{Kind: KindPartialBatch}
		for _, r := range failed {
			if r.Message != "" {
				o.Messages = append(o.Messages, r.Message)
			}
		}
	}
	return len(succeeded) > 0, g.done("delete", o)
}

// call obtains a client handle and runs one remote method, folding transport
// errors and success=false replies into an Outcome.
func (g *Gateway[D, I, B]) call(ctx context.Context, op string, fn func(platform.Client) (*platform.Response, error)) (*platform.Response, Outcome) {
	client, err := g.clients()
	if err != nil {
		return nil, g.transportFailure(op, fmt.Errorf("failed to create platform client: %w", err))
	}

	resp, err := fn(client)
	if err != nil {
		return nil, g.transportFailure(op, err)
	}
	if resp == nil {
		return nil, g.transportFailure(op, errors.New("platform returned an empty response"))
	}
	if !resp.Success {
		g.log.Error("platform rejected "+g.mapping.Entity+" "+op, "kind", KindApplication.String(), "message", resp.Message)
		o := Outcome{Kind: KindApplication}
		if resp.Message != "" {
			o.Messages = []string{resp.Message}
		}
		return nil, o
	}
	return resp, ok()
}

// firstWritten maps the first successful batch result back to a domain
// record and collects messages for every failed one.
func (g *Gateway[D, I, B]) firstWritten(op string, resp *platform.Response) (*D, Outcome) {
	if len(resp.Results) == 0 {
		g.log.Warn(op + " returned no results")
		return nil, Outcome{Kind: KindApplication}
	}

	succeeded, failed := splitResults(resp.Results)
	o := ok()
	if len(failed) > 0 {
		g.logPartial(op, failed)
		o = Outcome{Kind: KindPartialBatch, Messages: batchMessages(failed)}
	}
	if len(succeeded) == 0 {
		return nil, o
	}

	var row B
	if err := json.Unmarshal(succeeded[0].Data, &row); err != nil {
		f := g.transportFailure(op, fmt.Errorf("failed to decode written %s: %w", g.mapping.Entity, err))
		f.Messages = append(o.Messages, f.Messages...)
		return nil, f
	}
	d := g.mapping.ToDomain(row)
	return &d, o
}

func (g *Gateway[D, I, B]) coerce(id string) (int, Outcome) {
	n, valid := ParseInt(id)
	if !valid {
		g.log.Error("invalid "+g.mapping.Entity+" id", "kind", KindInvalidID.String(), "id", id)
		return 0, Outcome{
			Kind:     KindInvalidID,
			Messages: []string{fmt.Sprintf("Invalid %s id %q", g.mapping.Entity, id)},
		}
	}
	return n, ok()
}

func (g *Gateway[D, I, B]) transportFailure(op string, err error) Outcome {
	attrs := []any{"kind", KindTransport.String(), "error", err}
	var statusErr *platform.StatusError
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		attrs = append(attrs, "message", statusErr.Message)
	}
	g.log.Error("error during "+g.mapping.Entity+" "+op, attrs...)
	return Outcome{Kind: KindTransport, Err: err}
}

func (g *Gateway[D, I, B]) logPartial(op string, failed []platform.Result) {
	summary, _ := json.Marshal(failed)
	g.log.Error(fmt.Sprintf("failed to %s %d %s records", op, len(failed), g.mapping.Entity),
		"kind", KindPartialBatch.String(), "failed", string(summary))
}

func (g *Gateway[D, I, B]) done(op string, o Outcome) Outcome {
	observe(g.mapping.Collection, op, o)
	return o
}

func splitResults(results []platform.Result) (succeeded, failed []platform.Result) {
	for _, r := range results {
		if r.Success {
			succeeded = append(succeeded, r)
		} else {
			failed = append(failed, r)
		}
	}
	return succeeded, failed
}

// batchMessages yields one message per field error followed by the record
// message, for each failed record in order.
func batchMessages(failed []platform.Result) []string {
	var msgs []string
	for _, r := range failed {
		for _, fe := range r.Errors {
			msgs = append(msgs, fe.String())
		}
		if r.Message != "" {
			msgs = append(msgs, r.Message)
		}
	}
	return msgs
}

// withID marshals a backend record and stamps it with the Id field.
func withID(record any, id int) (json.RawMessage, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}

	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to stamp record id: %w", err)
	}
	fields["Id"] = json.RawMessage(fmt.Sprint(id))
	return json.Marshal(fields)
}
