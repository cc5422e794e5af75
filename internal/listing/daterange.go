package listing

import (
	"errors"
	"fmt"
	"time"

	"github.com/voxbridge/customer-portal/internal/utils"
)

// DefaultMaxRangeDays is the widest window, in whole calendar days, a query may span.
const DefaultMaxRangeDays = 31

// ErrInvalidRange is wrapped by every ValidationError.
var ErrInvalidRange = errors.New("invalid date range")

// ValidationError carries the message shown next to a rejected date selection.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return ErrInvalidRange }

// DateRange is a window of whole days: From is 00:00:00.000 of its day and To
// is 23:59:59.999 of its day, both in the filter's location.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Encode returns both bounds as YYYY-MM-DD using their local calendar fields.
func (r DateRange) Encode() (from, to string) {
	return r.From.Format(utils.LocalDateLayout), r.To.Format(utils.LocalDateLayout)
}

// Days returns the whole calendar-day difference between the bounds.
func (r DateRange) Days() int {
	return utils.CalendarDayDiff(r.From, r.To)
}

// Label renders the range for display, e.g. "Jan 2, 2024 - Jan 9, 2024".
func (r DateRange) Label() string {
	const layout = "Jan 2, 2006"
	from := r.From.Format(layout)
	if utils.CalendarDayDiff(r.From, r.To) == 0 {
		return from
	}
	return from + " - " + r.To.Format(layout)
}

func (r DateRange) check(maxDays int) error {
	days := r.Days()
	if days < 0 {
		return &ValidationError{Message: "Start date must be on or before the end date."}
	}
	if maxDays > 0 && days > maxDays {
		return rangeTooLong(maxDays)
	}
	return nil
}

func rangeTooLong(maxDays int) error {
	return &ValidationError{
		Message: fmt.Sprintf("Date range cannot exceed %d days. Please select a smaller range.", maxDays),
	}
}

// DateFilter validates date selections into normalized ranges.
type DateFilter struct {
	maxDays int
	loc     *time.Location
	now     func() time.Time
}

// NewDateFilter builds a filter for the given location. A nil location means
// the process's local zone; a non-positive maxDays means DefaultMaxRangeDays.
func NewDateFilter(loc *time.Location, maxDays int) *DateFilter {
	if loc == nil {
		loc = time.Local
	}
	if maxDays <= 0 {
		maxDays = DefaultMaxRangeDays
	}
	return &DateFilter{maxDays: maxDays, loc: loc, now: time.Now}
}

// MaxDays returns the inclusive cap on the whole-day span.
func (f *DateFilter) MaxDays() int { return f.maxDays }

// Location returns the zone ranges are normalized in.
func (f *DateFilter) Location() *time.Location { return f.loc }

// Today returns the range covering the current day.
func (f *DateFilter) Today() DateRange {
	now := f.now().In(f.loc)
	return DateRange{From: utils.StartOfDay(now), To: utils.EndOfDay(now)}
}

// Validate turns a candidate selection into a normalized range. A nil from
// resets to today; a nil to closes the range at the end of from's day. Spans
// longer than MaxDays, or ending before they start, are rejected.
func (f *DateFilter) Validate(from, to *time.Time) (DateRange, error) {
	if from == nil {
		return f.Today(), nil
	}
	start := from.In(f.loc)
	end := start
	if to != nil {
		end = to.In(f.loc)
	}
	r := DateRange{From: utils.StartOfDay(start), To: utils.EndOfDay(end)}
	if err := r.check(f.maxDays); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Parse validates YYYY-MM-DD strings; empty strings count as absent.
func (f *DateFilter) Parse(from, to string) (*DateRange, error) {
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" {
		return nil, &ValidationError{Message: "A start date is required when an end date is given."}
	}
	start, err := utils.ParseLocalDate(from, f.loc)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("Invalid start date %q, expected YYYY-MM-DD.", from)}
	}
	var endPtr *time.Time
	if to != "" {
		end, err := utils.ParseLocalDate(to, f.loc)
		if err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("Invalid end date %q, expected YYYY-MM-DD.", to)}
		}
		endPtr = &end
	}
	r, err := f.Validate(&start, endPtr)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
