// Package db provides the sandbox backend: a Redis-backed implementation of
// the platform record API used for local development and tests.
package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"classroom-gateway/platform"
)

const (
	idsSuffix = ":ids" // Set: ids of every record in a table
	seqSuffix = ":seq" // String: last id handed out for a table
	idField   = "Id"
)

// RedisStore implements platform.Client on top of Redis. Each record is a
// hash of JSON-encoded field values.
type RedisStore struct {
	Client  *redis.Client
	schemas map[string]Schema
	log     *slog.Logger
}

// NewRedisStore creates a store serving the given tables.
func NewRedisStore(client *redis.Client, schemas []Schema, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.Default()
	}
	s := &RedisStore{
		Client:  client,
		schemas: make(map[string]Schema, len(schemas)),
		log:     logger,
	}
	for _, schema := range schemas {
		s.schemas[schema.Table] = schema
	}
	return s
}

// Helper to generate the id set key of a table
func getIDsKey(table string) string {
	return table + idsSuffix
}

// Helper to generate the id sequence key of a table
func getSeqKey(table string) string {
	return table + seqSuffix
}

// Helper to generate a record hash key
func getRecordKey(table string, id int) string {
	return table + ":" + strconv.Itoa(id)
}

func unknownTable(table string) *platform.Response {
	return platform.Failure(fmt.Sprintf("Table %s does not exist", table))
}

// --- Reads ---

func (s *RedisStore) FetchRecords(ctx context.Context, table string, params platform.FetchParams) (*platform.Response, error) {
	schema, ok := s.schemas[table]
	if !ok {
		return unknownTable(table), nil
	}

	members, err := s.Client.SMembers(ctx, getIDsKey(table)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.log.Error("Error getting record ids", "table", table, "error", err)
		return nil, fmt.Errorf("failed to get record ids from Redis: %w", err)
	}
	ids := sortedIDs(members)

	cmds := make([]*redis.StringStringMapCmd, len(ids))
	if len(ids) > 0 {
		pipe := s.Client.Pipeline()
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, getRecordKey(table, id))
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to get records from Redis: %w", err)
		}
	}

	rows := make([]map[string]any, 0, len(ids))
	for i, cmd := range cmds {
		stored := cmd.Val()
		if len(stored) == 0 {
			// Removed between SMEMBERS and HGETALL.
			continue
		}
		row, err := s.project(ctx, schema, ids[i], stored, params.Names())
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	data, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}
	return &platform.Response{Success: true, Data: data}, nil
}

func (s *RedisStore) GetRecordByID(ctx context.Context, table string, id int, params platform.FetchParams) (*platform.Response, error) {
	schema, ok := s.schemas[table]
	if !ok {
		return unknownTable(table), nil
	}

	stored, err := s.Client.HGetAll(ctx, getRecordKey(table, id)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		s.log.Error("Error getting record", "table", table, "id", id, "error", err)
		return nil, fmt.Errorf("failed to get record from Redis: %w", err)
	}
	if len(stored) == 0 {
		return &platform.Response{Success: true}, nil // Not found
	}

	row, err := s.project(ctx, schema, id, stored, params.Names())
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	return &platform.Response{Success: true, Data: data}, nil
}

// project builds the wire form of a stored record with the requested
// fields. Reference fields are expanded to {"Id", "Name"}.
func (s *RedisStore) project(ctx context.Context, schema Schema, id int, stored map[string]string, names []string) (map[string]any, error) {
	if len(names) == 0 {
		for _, f := range schema.Fields {
			names = append(names, f.Name)
		}
	}

	row := map[string]any{idField: id}
	for _, name := range names {
		f, known := schema.field(name)
		if !known {
			continue
		}
		raw, present := stored[name]
		if !present {
			row[name] = nil
			continue
		}
		if f.Type != Reference {
			row[name] = json.RawMessage(raw)
			continue
		}

		var ref int
		if err := json.Unmarshal([]byte(raw), &ref); err != nil {
			s.log.Warn("Skipping malformed reference", "table", schema.Table, "id", id, "field", name, "error", err)
			row[name] = nil
			continue
		}
		lookup := map[string]any{idField: ref}
		refName, err := s.Client.HGet(ctx, getRecordKey(f.Target, ref), "Name").Result()
		switch {
		case err == nil:
			lookup["Name"] = json.RawMessage(refName)
		case !errors.Is(err, redis.Nil):
			return nil, fmt.Errorf("failed to resolve %s reference %d: %w", f.Target, ref, err)
		}
		row[name] = lookup
	}
	return row, nil
}

// --- Writes ---

func (s *RedisStore) CreateRecord(ctx context.Context, table string, params platform.RecordsParams) (*platform.Response, error) {
	schema, ok := s.schemas[table]
	if !ok {
		return unknownTable(table), nil
	}

	results := make([]platform.Result, 0, len(params.Records))
	for _, raw := range params.Records {
		result, err := s.createOne(ctx, schema, raw)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return &platform.Response{Success: true, Results: results}, nil
}

func (s *RedisStore) createOne(ctx context.Context, schema Schema, raw json.RawMessage) (platform.Result, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return platform.Result{Success: false, Message: "Invalid record payload"}, nil
	}

	fieldErrs, err := s.validate(ctx, schema, fields, true)
	if err != nil {
		return platform.Result{}, err
	}
	if len(fieldErrs) > 0 {
		return platform.Result{Success: false, Errors: fieldErrs}, nil
	}

	next, err := s.Client.Incr(ctx, getSeqKey(schema.Table)).Result()
	if err != nil {
		return platform.Result{}, fmt.Errorf("failed to allocate %s id: %w", schema.Table, err)
	}
	id := int(next)

	values := map[string]interface{}{idField: strconv.Itoa(id)}
	for name, value := range fields {
		if name == idField || isNull(value) {
			continue
		}
		values[name] = string(value)
	}

	pipe := s.Client.TxPipeline()
	pipe.SAdd(ctx, getIDsKey(schema.Table), id)
	pipe.HSet(ctx, getRecordKey(schema.Table, id), values)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Error("Error adding record", "table", schema.Table, "id", id, "error", err)
		return platform.Result{}, fmt.Errorf("failed to add record to Redis: %w", err)
	}
	s.log.Debug("Added record", "table", schema.Table, "id", id)

	return s.writtenResult(ctx, schema, id)
}

func (s *RedisStore) UpdateRecord(ctx context.Context, table string, params platform.RecordsParams) (*platform.Response, error) {
	schema, ok := s.schemas[table]
	if !ok {
		return unknownTable(table), nil
	}

	results := make([]platform.Result, 0, len(params.Records))
	for _, raw := range params.Records {
		result, err := s.updateOne(ctx, schema, raw)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return &platform.Response{Success: true, Results: results}, nil
}

func (s *RedisStore) updateOne(ctx context.Context, schema Schema, raw json.RawMessage) (platform.Result, error) {
	fields, err := decodeFields(raw)
	if err != nil {
		return platform.Result{Success: false, Message: "Invalid record payload"}, nil
	}

	var id int
	if rawID, present := fields[idField]; !present || json.Unmarshal(rawID, &id) != nil {
		return platform.Result{Success: false, Message: "Record Id is required"}, nil
	}

	exists, err := s.Client.SIsMember(ctx, getIDsKey(schema.Table), id).Result()
	if err != nil {
		return platform.Result{}, fmt.Errorf("failed to check record existence: %w", err)
	}
	if !exists {
		return platform.Result{Success: false, Message: "Record not found"}, nil
	}

	fieldErrs, err := s.validate(ctx, schema, fields, false)
	if err != nil {
		return platform.Result{}, err
	}
	if len(fieldErrs) > 0 {
		return platform.Result{Success: false, Errors: fieldErrs}, nil
	}

	key := getRecordKey(schema.Table, id)
	set := map[string]interface{}{}
	var cleared []string
	for name, value := range fields {
		switch {
		case name == idField:
		case isNull(value):
			cleared = append(cleared, name)
		default:
			set[name] = string(value)
		}
	}

	pipe := s.Client.TxPipeline()
	if len(set) > 0 {
		pipe.HSet(ctx, key, set)
	}
	if len(cleared) > 0 {
		pipe.HDel(ctx, key, cleared...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Error("Error updating record", "table", schema.Table, "id", id, "error", err)
		return platform.Result{}, fmt.Errorf("failed to update record in Redis: %w", err)
	}

	return s.writtenResult(ctx, schema, id)
}

func (s *RedisStore) writtenResult(ctx context.Context, schema Schema, id int) (platform.Result, error) {
	stored, err := s.Client.HGetAll(ctx, getRecordKey(schema.Table, id)).Result()
	if err != nil {
		return platform.Result{}, fmt.Errorf("failed to read back record: %w", err)
	}
	row, err := s.project(ctx, schema, id, stored, nil)
	if err != nil {
		return platform.Result{}, err
	}
	data, err := json.Marshal(row)
	if err != nil {
		return platform.Result{}, fmt.Errorf("failed to encode record: %w", err)
	}
	return platform.Result{Success: true, Data: data}, nil
}

func (s *RedisStore) DeleteRecord(ctx context.Context, table string, params platform.DeleteParams) (*platform.Response, error) {
	if _, ok := s.schemas[table]; !ok {
		return unknownTable(table), nil
	}

	results := make([]platform.Result, 0, len(params.RecordIDs))
	for _, id := range params.RecordIDs {
		removed, err := s.Client.SRem(ctx, getIDsKey(table), id).Result()
		if err != nil {
			s.log.Error("Error deleting record", "table", table, "id", id, "error", err)
			return nil, fmt.Errorf("failed to delete record from Redis: %w", err)
		}
		if removed == 0 {
			results = append(results, platform.Result{Success: false, Message: "Record not found"})
			continue
		}
		if err := s.Client.Del(ctx, getRecordKey(table, id)).Err(); err != nil {
			return nil, fmt.Errorf("failed to delete record hash: %w", err)
		}
		results = append(results, platform.Result{Success: true})
	}
	return &platform.Response{Success: true, Results: results}, nil
}

// validate checks supplied fields against the schema. On create every
// required field must be present.
func (s *RedisStore) validate(ctx context.Context, schema Schema, fields map[string]json.RawMessage, creating bool) ([]platform.FieldError, error) {
	var errs []platform.FieldError
	fail := func(label, msg string) {
		errs = append(errs, platform.FieldError{FieldLabel: label, Message: msg})
	}

	for _, f := range schema.Fields {
		value, present := fields[f.Name]
		if !present || isNull(value) {
			if f.Required && (creating || present) {
				fail(f.Label, "is required")
			}
			continue
		}

		switch f.Type {
		case Text, DateTime:
			var str string
			if json.Unmarshal(value, &str) != nil {
				fail(f.Label, "must be text")
				continue
			}
			if f.Required && strings.TrimSpace(str) == "" {
				fail(f.Label, "is required")
				continue
			}
			if f.Type == DateTime && str != "" && !isDate(str) {
				fail(f.Label, "must be an ISO-8601 date")
			}
		case Number:
			var n float64
			if json.Unmarshal(value, &n) != nil {
				fail(f.Label, "must be a number")
			}
		case Reference:
			var ref int
			if json.Unmarshal(value, &ref) != nil {
				fail(f.Label, "must be a record id")
				continue
			}
			exists, err := s.Client.SIsMember(ctx, getIDsKey(f.Target), ref).Result()
			if err != nil {
				return nil, fmt.Errorf("failed to check %s reference: %w", f.Target, err)
			}
			if !exists {
				fail(f.Label, fmt.Sprintf("refers to a missing record %d", ref))
			}
		}
	}

	var unknown []string
	for name := range fields {
		if _, known := schema.field(name); !known && name != idField {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		fail(name, "is not a field of "+schema.Table)
	}
	return errs, nil
}

// IsEmpty reports whether a table holds no records.
func (s *RedisStore) IsEmpty(ctx context.Context, table string) (bool, error) {
	count, err := s.Client.SCard(ctx, getIDsKey(table)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("failed to count %s records: %w", table, err)
	}
	return count == 0, nil
}

func decodeFields(raw json.RawMessage) (map[string]json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// isDate accepts full RFC 3339 timestamps and date-only values.
func isDate(s string) bool {
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isNull(v json.RawMessage) bool {
	return len(v) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

func sortedIDs(members []string) []int {
	ids := make([]int, 0, len(members))
	for _, m := range members {
		if id, err := strconv.Atoi(m); err == nil {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// --- Utility ---

// InitializeRedisClient creates and tests a Redis client connection
func InitializeRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// Ping Redis to check connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("could not connect to Redis at %s: %w", addr, err)
	}

	slog.Info("Successfully connected to Redis", "addr", addr, "db", db)
	return rdb, nil
}
