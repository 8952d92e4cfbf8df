package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wire format for date field values.
const DateLayout = "2006-01-02"

// ValueKind tags the variant held by a FieldValue.
type ValueKind string

const (
	KindText   ValueKind = "text"
	KindNumber ValueKind = "number"
	KindDate   ValueKind = "date"
	KindEnum   ValueKind = "enum"
	KindList   ValueKind = "list"
)

// FieldValue is a tagged value validated against a template field type.
type FieldValue struct {
	Kind   ValueKind
	Text   string
	Number float64
	Date   time.Time
	Items  []string
}

// TextValue returns a text value.
func TextValue(s string) FieldValue { return FieldValue{Kind: KindText, Text: s} }

// NumberValue returns a number value.
func NumberValue(n float64) FieldValue { return FieldValue{Kind: KindNumber, Number: n} }

// DateValue returns a date value truncated to the day.
func DateValue(t time.Time) FieldValue {
	y, m, d := t.Date()
	return FieldValue{Kind: KindDate, Date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// EnumValue returns a single-choice value.
func EnumValue(s string) FieldValue { return FieldValue{Kind: KindEnum, Text: s} }

// ListValue returns a multi-choice value.
func ListValue(items ...string) FieldValue {
	return FieldValue{Kind: KindList, Items: append([]string(nil), items...)}
}

// IsEmpty reports whether the value carries nothing worth showing.
func (v FieldValue) IsEmpty() bool {
	switch v.Kind {
	case KindText, KindEnum:
		return strings.TrimSpace(v.Text) == ""
	case KindList:
		return len(v.Items) == 0
	case KindDate:
		return v.Date.IsZero()
	case KindNumber:
		return false
	default:
		return true
	}
}

// String renders the value for previews.
func (v FieldValue) String() string {
	switch v.Kind {
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindDate:
		if v.Date.IsZero() {
			return ""
		}
		return v.Date.Format(DateLayout)
	case KindList:
		return strings.Join(v.Items, ", ")
	default:
		return v.Text
	}
}

// Native returns the value as a plain JSON-compatible Go value.
func (v FieldValue) Native() any {
	switch v.Kind {
	case KindNumber:
		return v.Number
	case KindDate:
		return v.String()
	case KindList:
		items := v.Items
		if items == nil {
			items = []string{}
		}
		return items
	default:
		return v.Text
	}
}

// MarshalJSON encodes the value as its native JSON form.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}

// Fields is an insertion-ordered mapping from field key to value.
// The zero value is ready to use.
type Fields struct {
	keys   []string
	values map[string]FieldValue
}

// Set stores a value, keeping the original position of an existing key.
func (f *Fields) Set(key string, v FieldValue) {
	if f.values == nil {
		f.values = make(map[string]FieldValue)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = v
}

// Get returns the value for key.
func (f Fields) Get(key string) (FieldValue, bool) {
	v, ok := f.values[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (f Fields) Keys() []string {
	return append([]string(nil), f.keys...)
}

// Len returns the number of keys.
func (f Fields) Len() int { return len(f.keys) }

// Clone returns a deep copy.
func (f Fields) Clone() Fields {
	out := Fields{}
	for _, k := range f.keys {
		v := f.values[k]
		if v.Items != nil {
			v.Items = append([]string(nil), v.Items...)
		}
		out.Set(k, v)
	}
	return out
}

// Map returns the fields as a plain map of native values.
func (f Fields) Map() map[string]any {
	out := make(map[string]any, len(f.keys))
	for _, k := range f.keys {
		out[k] = f.values[k].Native()
	}
	return out
}

// MarshalJSON encodes the fields as a JSON object in insertion order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range f.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
