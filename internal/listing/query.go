// Package listing holds the data-fetching core shared by the call history and
// usage report views: query encoding, response normalization, date-range
// validation and the paginated list controller.
package listing

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/voxbridge/customer-portal/internal/models"
)

// DefaultPageSize is used when a caller supplies no positive page size.
const DefaultPageSize = 10

// ListQuery selects one page of a listed resource, optionally bounded by a date range.
type ListQuery struct {
	Page     int        `validate:"gte=1"`
	PageSize int        `validate:"gte=1"`
	Range    *DateRange `validate:"-"`
}

// Validate checks page bounds and the range invariant.
func (q ListQuery) Validate(maxDays int) error {
	if err := models.Validate(q); err != nil {
		return err
	}
	if q.Range != nil {
		if err := q.Range.check(maxDays); err != nil {
			return err
		}
	}
	return nil
}

// Values encodes the query as request parameters. The page size is sent under
// both spellings the customer API accepts.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("page_size", strconv.Itoa(q.PageSize))
	v.Set("pageSize", strconv.Itoa(q.PageSize))
	if q.Range != nil {
		from, to := q.Range.Encode()
		v.Set("startDate", from)
		v.Set("endDate", to)
	}
	return v
}

func (q ListQuery) String() string {
	if q.Range == nil {
		return fmt.Sprintf("page=%d size=%d", q.Page, q.PageSize)
	}
	from, to := q.Range.Encode()
	return fmt.Sprintf("page=%d size=%d from=%s to=%s", q.Page, q.PageSize, from, to)
}

// ListResult is one normalized page of records.
type ListResult[T any] struct {
	Records []T `json:"records"`
	Total   int `json:"total"`
}

// PaginationState mirrors what a paged table shows.
type PaginationState struct {
	Current  int `json:"current"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
}

// Pages returns the number of pages needed to show Total records.
func (p PaginationState) Pages() int {
	if p.PageSize <= 0 || p.Total <= 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

func sanitizePage(page, pageSize, fallbackSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = fallbackSize
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}
