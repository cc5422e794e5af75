package models

import (
	"math"
	"strconv"
	"time"
)

// Engagement is one interpretation call/session record.
type Engagement struct {
	ID              Text   `json:"id"`
	StartedAt       Text   `json:"engagement_start_ts"`
	EndedAt         Text   `json:"engagement_end_ts"`
	Channel         Text   `json:"channel"`
	Language        Text   `json:"language"`
	InterpreterID   Text   `json:"interpreter_answered_s_id"`
	DurationSeconds Number `json:"interpretation_duration_s"`
	CustomerBill    Number `json:"customer_bill"`
}

// timestampLayouts are tried in order when parsing backend timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000000",
}

// ParseTimestamp parses a backend timestamp. Values without a zone are read as
// UTC; bare numbers are epoch milliseconds.
func ParseTimestamp(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	ms, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(ms) || math.IsInf(ms, 0) || math.Abs(ms) > maxEpochMillis {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

// maxEpochMillis is the +/-100,000,000 day limit of ECMAScript dates.
const maxEpochMillis = 8.64e15
