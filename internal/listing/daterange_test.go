package listing

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 30, 0, 0, time.UTC)
}

func TestValidateAcceptsFullMonth(t *testing.T) {
	f := NewDateFilter(time.UTC, 31)
	from, to := date(2024, 1, 1), date(2024, 1, 31)
	r, err := f.Validate(&from, &to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a, b := r.Encode()
	if a != "2024-01-01" || b != "2024-01-31" {
		t.Fatalf("unexpected encoding %s..%s", a, b)
	}
	if !r.From.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("from not normalized: %v", r.From)
	}
	if !r.To.Equal(time.Date(2024, 1, 31, 23, 59, 59, 999_000_000, time.UTC)) {
		t.Fatalf("to not normalized: %v", r.To)
	}
}

func TestValidateBoundary(t *testing.T) {
	f := NewDateFilter(time.UTC, 31)
	from := date(2024, 1, 1)

	ok := date(2024, 2, 1)
	if _, err := f.Validate(&from, &ok); err != nil {
		t.Fatalf("31-day span must be accepted: %v", err)
	}

	tooLong := date(2024, 2, 2)
	_, err := f.Validate(&from, &tooLong)
	if err == nil {
		t.Fatalf("expected 32-day span to be rejected")
	}
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "Date range cannot exceed 31 days") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestValidateReversedRange(t *testing.T) {
	f := NewDateFilter(time.UTC, 31)
	from, to := date(2024, 3, 10), date(2024, 3, 9)
	if _, err := f.Validate(&from, &to); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected reversed range to be rejected, got %v", err)
	}
}

func TestValidateDefaults(t *testing.T) {
	f := NewDateFilter(time.UTC, 31)
	f.now = func() time.Time { return date(2024, 6, 15) }

	r, err := f.Validate(nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a, b := r.Encode(); a != "2024-06-15" || b != "2024-06-15" {
		t.Fatalf("expected today, got %s..%s", a, b)
	}

	from := date(2024, 6, 1)
	r, err = f.Validate(&from, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a, b := r.Encode(); a != "2024-06-01" || b != "2024-06-01" {
		t.Fatalf("expected single day, got %s..%s", a, b)
	}
	if r.Label() != "Jun 1, 2024" {
		t.Fatalf("unexpected label %q", r.Label())
	}
}

func TestValidateAcrossDSTUsesCalendarDays(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	f := NewDateFilter(ny, 31)
	from := time.Date(2024, 3, 1, 9, 0, 0, 0, ny)
	to := time.Date(2024, 4, 1, 9, 0, 0, 0, ny)
	r, err := f.Validate(&from, &to)
	if err != nil {
		t.Fatalf("31 calendar days across DST must be accepted: %v", err)
	}
	if r.Days() != 31 {
		t.Fatalf("expected 31 days, got %d", r.Days())
	}
}

func TestParse(t *testing.T) {
	f := NewDateFilter(time.UTC, 31)

	r, err := f.Parse("", "")
	if err != nil || r != nil {
		t.Fatalf("expected no range, got %v %v", r, err)
	}

	r, err = f.Parse("2024-01-01", "2024-01-15")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Label() != "Jan 1, 2024 - Jan 15, 2024" {
		t.Fatalf("unexpected label %q", r.Label())
	}

	for _, pair := range [][2]string{{"", "2024-01-01"}, {"01/02/2024", ""}, {"2024-01-01", "bad"}, {"2024-01-01", "2024-03-01"}} {
		var ve *ValidationError
		if _, err := f.Parse(pair[0], pair[1]); !errors.As(err, &ve) {
			t.Fatalf("%v: expected validation error, got %v", pair, err)
		}
	}
}

func TestListQueryValues(t *testing.T) {
	f := NewDateFilter(time.UTC, 31)
	r, _ := f.Parse("2024-01-01", "2024-01-31")
	q := ListQuery{Page: 2, PageSize: 25, Range: r}
	v := q.Values()
	if v.Get("page") != "2" || v.Get("page_size") != "25" || v.Get("pageSize") != "25" {
		t.Fatalf("unexpected paging params: %v", v)
	}
	if v.Get("startDate") != "2024-01-01" || v.Get("endDate") != "2024-01-31" {
		t.Fatalf("unexpected range params: %v", v)
	}
	if err := q.Validate(31); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (ListQuery{Page: 0, PageSize: 10}).Validate(31); err == nil {
		t.Fatalf("expected page 0 to be rejected")
	}
}
