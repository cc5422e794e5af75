package listing

import (
	"encoding/json"
	"math"

	"github.com/tidwall/gjson"
)

// maxTotal is the largest declared total accepted as exact: JSON numbers above
// 2^53 lose integer precision, and int may be 32 bits wide.
const maxTotal = float64(min(math.MaxInt, 1<<53))

// Normalize adapts the list envelopes returned by the customer API into a
// ListResult. Precedence, first match wins:
//
//	items: data, items, the body itself when it is an array
//	total: meta.total, total, len(items) when items is an array, 0
//
// Non-array items yield no records and a non-numeric or negative total falls
// back to the record count. Items that do not decode into T are skipped.
// Normalize never fails; malformed bodies produce an empty result.
func Normalize[T any](body []byte) ListResult[T] {
	if !gjson.ValidBytes(body) {
		return ListResult[T]{Records: []T{}}
	}
	doc := gjson.ParseBytes(body)

	source := doc
	if doc.IsObject() {
		if v, ok := firstPresent(doc, "data", "items"); ok {
			source = v
		}
	}

	var items []gjson.Result
	if source.IsArray() {
		items = source.Array()
	}
	records := make([]T, 0, len(items))
	for _, item := range items {
		var rec T
		if err := json.Unmarshal([]byte(item.Raw), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}

	declared, ok := gjson.Result{}, false
	if doc.IsObject() {
		declared, ok = firstPresent(doc, "meta.total", "total")
	}
	if !ok {
		return ListResult[T]{Records: records, Total: len(items)}
	}
	if n, ok := wholeNumber(declared); ok {
		return ListResult[T]{Records: records, Total: n}
	}
	return ListResult[T]{Records: records, Total: len(records)}
}

// firstPresent mirrors a nullish-coalescing lookup: JSON null counts as absent.
func firstPresent(doc gjson.Result, paths ...string) (gjson.Result, bool) {
	for _, p := range paths {
		if v := doc.Get(p); v.Exists() && v.Type != gjson.Null {
			return v, true
		}
	}
	return gjson.Result{}, false
}

// wholeNumber accepts JSON numbers only; strings, booleans and objects do not count.
func wholeNumber(v gjson.Result) (int, bool) {
	if v.Type != gjson.Number {
		return 0, false
	}
	f := v.Num
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > maxTotal {
		return 0, false
	}
	return int(f), true
}
