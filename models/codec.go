package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"classroom-gateway/gateway"
)

// TimestampLayout is the ISO-8601 form used for defaulted dates.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// DefaultStatus is applied to students without a status.
const DefaultStatus = "Active"

var now = time.Now

// Timestamp formats t in TimestampLayout (UTC).
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// JoinIDs encodes a membership list for the backend. nil and empty lists
// both encode to "".
func JoinIDs(ids []string) string {
	return strings.Join(ids, ",")
}

// SplitIDs decodes a comma-joined membership list. "" decodes to an empty,
// non-nil list.
func SplitIDs(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

// FlexInt is an integer input that may arrive as a JSON number or as a
// numeric string. Values without an integer prefix leave it invalid. Set
// records that the key was present at all, even as null or "".
type FlexInt struct {
	Value int
	Valid bool
	Set   bool
}

// Int returns a valid FlexInt.
func Int(n int) FlexInt {
	return FlexInt{Value: n, Valid: true, Set: true}
}

// UnmarshalJSON accepts a number, a numeric string or null.
func (f *FlexInt) UnmarshalJSON(b []byte) error {
	*f = FlexInt{Set: true}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	var s string
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	} else {
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("expected number or numeric string, got %s", b)
		}
		s = n.String()
	}

	f.Value, f.Valid = gateway.ParseInt(s)
	return nil
}

// MarshalJSON writes null for an invalid value.
func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(f.Value)), nil
}

// field is the record value for f: nil when the caller left the key out,
// otherwise f itself, which encodes as null when invalid.
func (f FlexInt) field() *FlexInt {
	if !f.Set {
		return nil
	}
	return &f
}

// Lookup is a reference field. The backend reads it back as {"Id", "Name"}
// and accepts a bare integer on write.
type Lookup struct {
	ID   int    `json:"Id"`
	Name string `json:"Name,omitempty"`
}

// MarshalJSON writes the bare id, or null for id 0 to clear the reference.
func (l Lookup) MarshalJSON() ([]byte, error) {
	if l.ID == 0 {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(l.ID)), nil
}

// UnmarshalJSON accepts the {"Id", "Name"} object, a bare id or a string id.
func (l *Lookup) UnmarshalJSON(b []byte) error {
	*l = Lookup{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}

	switch b[0] {
	case '{':
		var shape struct {
			ID   json.Number `json:"Id"`
			Name string      `json:"Name"`
		}
		if err := json.Unmarshal(b, &shape); err != nil {
			return err
		}
		l.ID, _ = gateway.ParseInt(shape.ID.String())
		l.Name = shape.Name
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		l.ID, _ = gateway.ParseInt(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		l.ID, _ = gateway.ParseInt(n.String())
	}
	return nil
}

// String returns the referenced id, or "" for a missing reference.
func (l *Lookup) String() string {
	if l == nil || l.ID == 0 {
		return ""
	}
	return strconv.Itoa(l.ID)
}

func str(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func num(p *FlexInt) int {
	if p == nil || !p.Valid {
		return 0
	}
	return p.Value
}

func strPtr(s string) *string {
	return &s
}

// orDefault returns p, or a pointer to def when p is nil or empty.
func orDefault(p *string, def string) *string {
	if p == nil || *p == "" {
		return strPtr(def)
	}
	return p
}

// joined encodes a membership list. In update mode a nil list is left out.
func joined(ids []string, mode gateway.Mode) *string {
	if ids == nil && mode == gateway.ModeUpdate {
		return nil
	}
	return strPtr(JoinIDs(ids))
}
