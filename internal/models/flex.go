package models

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Number is a JSON value that may arrive as a number, a numeric string or null.
type Number struct {
	Value float64
	Valid bool
	Raw   string
}

// UnmarshalJSON never fails: unparseable values leave the Number invalid.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = numberOf(gjson.ParseBytes(data))
	return nil
}

// MarshalJSON writes the numeric value, or null when invalid.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Or returns the value when valid and fallback otherwise.
func (n Number) Or(fallback float64) float64 {
	if !n.Valid {
		return fallback
	}
	return n.Value
}

// Text is a JSON scalar rendered as a string; numbers and booleans are kept verbatim.
type Text string

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (t *Text) UnmarshalJSON(data []byte) error {
	*t = textOf(gjson.ParseBytes(data))
	return nil
}

// String returns the text value.
func (t Text) String() string { return string(t) }

// fields is a JSON object read by ordered key alternatives. Keys found in
// inner take precedence over the same key in obj.
type fields struct {
	obj   gjson.Result
	inner *gjson.Result
}

func decodeFields(data []byte) (fields, bool) {
	if !gjson.ValidBytes(data) {
		return fields{}, false
	}
	obj := gjson.ParseBytes(data)
	return fields{obj: obj}, obj.IsObject()
}

// nested returns the object under key, if any.
func (f fields) nested(key string) (fields, bool) {
	v, ok := f.raw(key)
	if !ok || !v.IsObject() {
		return fields{}, false
	}
	return fields{obj: v}, true
}

// under layers inner over f, as when a payload is wrapped in a data envelope.
func (f fields) under(inner fields) fields {
	obj := inner.obj
	return fields{obj: f.obj, inner: &obj}
}

// raw returns the first key whose value is present and not null.
func (f fields) raw(keys ...string) (gjson.Result, bool) {
	for _, k := range keys {
		path := gjson.Escape(k)
		if f.inner != nil {
			if v := f.inner.Get(path); present(v) {
				return v, true
			}
		}
		if v := f.obj.Get(path); present(v) {
			return v, true
		}
	}
	return gjson.Result{}, false
}

func present(v gjson.Result) bool {
	return v.Exists() && v.Type != gjson.Null
}

func (f fields) text(keys ...string) Text {
	v, _ := f.raw(keys...)
	return textOf(v)
}

func (f fields) number(keys ...string) Number {
	v, _ := f.raw(keys...)
	return numberOf(v)
}

func textOf(v gjson.Result) Text {
	switch v.Type {
	case gjson.String:
		return Text(v.Str)
	case gjson.Number, gjson.True, gjson.False:
		return Text(v.Raw)
	default:
		return ""
	}
}

func numberOf(v gjson.Result) Number {
	var text string
	switch v.Type {
	case gjson.Number:
		text = v.Raw
	case gjson.String:
		text = strings.TrimSpace(v.Str)
	case gjson.True, gjson.False:
		text = v.Raw
	default:
		return Number{}
	}
	n := Number{Raw: text}
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		n.Value = f
		n.Valid = true
	}
	return n
}
