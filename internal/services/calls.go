package services

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/voxbridge/customer-portal/internal/listing"
	"github.com/voxbridge/customer-portal/internal/models"
	"github.com/voxbridge/customer-portal/internal/utils"
)

const (
	// CallHistoryError is shown when a call history page fails to load.
	CallHistoryError = "Failed to load call history. Please try again."

	callTimeLayout = "1/2/06, 3:04:05 PM"
)

// CallColumns are the headings of the call history table, in display order.
var CallColumns = []string{"Call Start", "Call End", "Type", "Language", "Interpreter ID", "Duration", "Total Billed ($)"}

// CallRow is one engagement formatted for display.
type CallRow struct {
	ID            string `json:"id"`
	Start         string `json:"start"`
	End           string `json:"end"`
	Type          string `json:"type"`
	Language      string `json:"language"`
	InterpreterID string `json:"interpreterId"`
	Duration      string `json:"duration"`
	Billed        string `json:"billed"`
}

// Cells returns the row in CallColumns order.
func (r CallRow) Cells() []string {
	return []string{r.Start, r.End, r.Type, r.Language, r.InterpreterID, r.Duration, r.Billed}
}

// CallHistoryOptions configures a CallHistory view.
type CallHistoryOptions struct {
	Resource string
	PageSize int
	Filter   *listing.DateFilter
	// Range replaces today's range as the initial filter.
	Range *listing.DateRange
	// AllDates starts the table unfiltered.
	AllDates bool
	// Display is the zone call timestamps are rendered in.
	Display *time.Location
	Logger  *slog.Logger
}

// CallHistory is the paginated, date-filtered call history table. Unless told
// otherwise it starts filtered to today.
type CallHistory struct {
	*listing.Controller[models.Engagement]
	display *time.Location
}

// NewCallHistory builds the view; call Mount to load the first page.
func NewCallHistory(lister listing.Lister, opts CallHistoryOptions) *CallHistory {
	if opts.Filter == nil {
		opts.Filter = listing.NewDateFilter(nil, listing.DefaultMaxRangeDays)
	}
	if opts.Display == nil {
		opts.Display = time.Local
	}
	initial := opts.Range
	if initial == nil {
		today := opts.Filter.Today()
		initial = &today
	}
	if opts.AllDates {
		initial = nil
	}
	return &CallHistory{
		Controller: listing.NewController[models.Engagement](lister, listing.Options{
			Resource:     opts.Resource,
			PageSize:     opts.PageSize,
			InitialRange: initial,
			Filter:       opts.Filter,
			ErrorMessage: CallHistoryError,
			Logger:       opts.Logger,
		}),
		display: opts.Display,
	}
}

// Rows formats the snapshot's records.
func (v *CallHistory) Rows(snap listing.Snapshot[models.Engagement]) []CallRow {
	rows := make([]CallRow, 0, len(snap.Records))
	for _, e := range snap.Records {
		rows = append(rows, FormatCall(e, v.display))
	}
	return rows
}

// RangeLabel describes the active filter, e.g. "Jan 1, 2024 - Jan 31, 2024".
func RangeLabel(r *listing.DateRange) string {
	if r == nil {
		return "All dates"
	}
	return r.Label()
}

// HasActiveFilters reports whether a date range is applied.
func HasActiveFilters[T any](snap listing.Snapshot[T]) bool {
	return snap.Range != nil
}

// FormatCall renders an engagement with timestamps in loc.
func FormatCall(e models.Engagement, loc *time.Location) CallRow {
	return CallRow{
		ID:            e.ID.String(),
		Start:         formatCallTime(e.StartedAt.String(), loc),
		End:           formatCallTime(e.EndedAt.String(), loc),
		Type:          orDash(e.Channel.String()),
		Language:      orDash(e.Language.String()),
		InterpreterID: orDash(e.InterpreterID.String()),
		Duration:      formatDuration(e.DurationSeconds),
		Billed:        formatBill(e.CustomerBill),
	}
}

func formatCallTime(value string, loc *time.Location) string {
	if value == "" {
		return "-"
	}
	t, ok := models.ParseTimestamp(value)
	if !ok {
		return value
	}
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(callTimeLayout)
}

func formatDuration(n models.Number) string {
	if !n.Valid {
		return "-"
	}
	return utils.FormatClock(n.Value)
}

func formatBill(n models.Number) string {
	if n.Raw == "" || (n.Valid && n.Value == 0) {
		return "0"
	}
	return n.Raw
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatCount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
