package listing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/voxbridge/customer-portal/internal/metrics"
	"github.com/voxbridge/customer-portal/internal/utils"
)

// Lister fetches one raw page of a resource. Any error means the fetch failed.
type Lister interface {
	List(ctx context.Context, resource string, q ListQuery) ([]byte, error)
}

// State is the controller's position in its fetch lifecycle.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Snapshot is a read-only copy of controller state.
type Snapshot[T any] struct {
	State      State           `json:"state"`
	Records    []T             `json:"records"`
	Pagination PaginationState `json:"pagination"`
	Loading    bool            `json:"loading"`
	Error      string          `json:"error,omitempty"`
	RangeError string          `json:"rangeError,omitempty"`
	Range      *DateRange      `json:"range,omitempty"`
	Version    uint64          `json:"version"`
}

// Options configures a Controller.
type Options struct {
	// Resource is the API path listed by the controller; it also labels metrics.
	Resource string
	PageSize int
	// InitialRange is the date filter active before the first user selection.
	InitialRange *DateRange
	Filter       *DateFilter
	// ErrorMessage is the user-facing text shown when a fetch fails.
	ErrorMessage string
	Logger       *slog.Logger
}

// Controller drives one paginated, date-filtered table. Every trigger issues
// exactly one fetch tagged with a new sequence number; only the response for
// the most recently issued sequence is applied.
type Controller[T any] struct {
	lister Lister
	opts   Options
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	state       State
	records     []T
	pagination  PaginationState
	dateRange   *DateRange
	rangeErr    string
	errMsg      string
	seq         uint64
	requested   ListQuery
	failed      ListQuery
	settled     chan struct{}
	settledOpen bool
	closed      bool
	version     uint64

	notifyMu  sync.Mutex
	listeners []func(Snapshot[T])
}

// NewController builds an idle controller. Nothing is fetched until Mount.
func NewController[T any](lister Lister, opts Options) *Controller[T] {
	if opts.Filter == nil {
		opts.Filter = NewDateFilter(nil, DefaultMaxRangeDays)
	}
	if opts.PageSize < 1 {
		opts.PageSize = DefaultPageSize
	}
	if opts.ErrorMessage == "" {
		opts.ErrorMessage = "Failed to load records. Please try again."
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	settled := make(chan struct{})
	close(settled)

	c := &Controller[T]{
		lister:     lister,
		opts:       opts,
		logger:     logger.With(slog.String("resource", opts.Resource)),
		ctx:        ctx,
		cancel:     cancel,
		records:    []T{},
		pagination: PaginationState{Current: 1, PageSize: opts.PageSize},
		settled:    settled,
	}
	if opts.InitialRange != nil {
		r := *opts.InitialRange
		c.dateRange = &r
	}
	c.requested = ListQuery{Page: 1, PageSize: opts.PageSize, Range: c.dateRange}
	return c
}

// OnChange registers a listener called with every committed snapshot, in
// commit order. Listeners must not call controller methods synchronously.
func (c *Controller[T]) OnChange(fn func(Snapshot[T])) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Mount issues the initial fetch with the current page, size and range.
func (c *Controller[T]) Mount() {
	c.mu.Lock()
	c.issueLocked(c.requested.Page, c.requested.PageSize)
}

// SetPage fetches the given page. Non-positive values fall back to page 1 and
// the configured page size.
func (c *Controller[T]) SetPage(page, pageSize int) {
	page, pageSize = sanitizePage(page, pageSize, c.opts.PageSize)
	c.mu.Lock()
	c.issueLocked(page, pageSize)
}

// SetDateRange validates a new selection. On success the range is replaced and
// a fetch is issued; on failure only the range error changes and the previous
// range stays active.
func (c *Controller[T]) SetDateRange(from, to *time.Time) error {
	r, err := c.opts.Filter.Validate(from, to)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return err
	}
	if err != nil {
		c.rangeErr = err.Error()
		c.commitLocked()
		return err
	}
	c.rangeErr = ""
	c.dateRange = &r
	c.issueLocked(c.requested.Page, c.requested.PageSize)
	return nil
}

// ClearFilters drops the date range and reloads without bounds.
func (c *Controller[T]) ClearFilters() {
	c.mu.Lock()
	c.dateRange = nil
	c.rangeErr = ""
	c.issueLocked(c.requested.Page, c.requested.PageSize)
}

// Refresh reloads the most recently requested page.
func (c *Controller[T]) Refresh() {
	c.mu.Lock()
	c.issueLocked(c.requested.Page, c.requested.PageSize)
}

// Retry re-issues the failed query. It does nothing unless the controller is
// in the errored state.
func (c *Controller[T]) Retry() bool {
	c.mu.Lock()
	if c.closed || c.state != StateErrored {
		c.mu.Unlock()
		return false
	}
	c.dateRange = c.failed.Range
	c.issueLocked(c.failed.Page, c.failed.PageSize)
	return true
}

// Snapshot returns a copy of the current state.
func (c *Controller[T]) Snapshot() Snapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Await blocks until no authoritative fetch is in flight, then returns the
// snapshot. It returns early with ctx's error when ctx ends first.
func (c *Controller[T]) Await(ctx context.Context) (Snapshot[T], error) {
	for {
		c.mu.Lock()
		if c.closed || c.state != StateLoading {
			snap := c.snapshotLocked()
			c.mu.Unlock()
			return snap, nil
		}
		ch := c.settled
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		}
	}
}

// Close stops all further state updates and cancels in-flight fetches.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.settledOpen {
		close(c.settled)
		c.settledOpen = false
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// issueLocked starts a fetch and releases c.mu.
func (c *Controller[T]) issueLocked(page, pageSize int) {
	if c.closed {
		c.mu.Unlock()
		return
	}
	q := ListQuery{Page: page, PageSize: pageSize, Range: c.dateRange}

	c.seq++
	seq := c.seq
	c.requested = q
	c.state = StateLoading
	c.errMsg = ""
	if c.settledOpen {
		close(c.settled)
	}
	c.settled = make(chan struct{})
	c.settledOpen = true

	c.wg.Add(1)
	go c.fetch(seq, q)

	c.commitLocked()
}

func (c *Controller[T]) fetch(seq uint64, q ListQuery) {
	defer c.wg.Done()

	start := time.Now()
	body, err := c.lister.List(c.ctx, c.opts.Resource, q)
	elapsed := time.Since(start)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if seq != c.seq {
		c.mu.Unlock()
		metrics.ObserveFetch(c.opts.Resource, elapsed, metrics.OutcomeStale)
		c.logger.Debug("discarding superseded response",
			slog.Uint64("seq", seq), slog.String("query", q.String()))
		return
	}

	if err != nil {
		appErr := utils.NewAppError("list "+c.opts.Resource, c.opts.ErrorMessage, err)
		c.state = StateErrored
		c.errMsg = c.opts.ErrorMessage
		c.failed = q
		metrics.ObserveFetch(c.opts.Resource, elapsed, metrics.OutcomeError)
		c.logger.Error("list fetch failed",
			slog.String("query", q.String()), slog.Duration("elapsed", elapsed), slog.Any("error", appErr))
	} else {
		result := Normalize[T](body)
		c.records = result.Records
		c.pagination = PaginationState{Current: q.Page, PageSize: q.PageSize, Total: result.Total}
		c.state = StateLoaded
		metrics.ObserveFetch(c.opts.Resource, elapsed, metrics.OutcomeSuccess)
	}

	close(c.settled)
	c.settledOpen = false
	c.commitLocked()
}

// commitLocked publishes the current state to listeners and releases c.mu.
// notifyMu is taken before c.mu is released so listeners observe commits in order.
func (c *Controller[T]) commitLocked() {
	c.version++
	snap := c.snapshotLocked()
	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()
	for _, fn := range c.listeners {
		fn(snap)
	}
}

func (c *Controller[T]) snapshotLocked() Snapshot[T] {
	snap := Snapshot[T]{
		State:      c.state,
		Records:    append([]T(nil), c.records...),
		Pagination: c.pagination,
		Loading:    c.state == StateLoading,
		Error:      c.errMsg,
		RangeError: c.rangeErr,
		Version:    c.version,
	}
	if snap.Records == nil {
		snap.Records = []T{}
	}
	if c.dateRange != nil {
		r := *c.dateRange
		snap.Range = &r
	}
	return snap
}
