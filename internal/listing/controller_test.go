package listing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"
)

type pendingCall struct {
	q     ListQuery
	reply chan stubReply
}

type stubReply struct {
	body string
	err  error
}

func (c pendingCall) respond(body string) { c.reply <- stubReply{body: body} }

func (c pendingCall) fail(err error) { c.reply <- stubReply{err: err} }

// gatedLister blocks every List call until the test responds to it.
type gatedLister struct {
	calls chan pendingCall
}

func newGatedLister() *gatedLister {
	return &gatedLister{calls: make(chan pendingCall, 16)}
}

func (g *gatedLister) List(ctx context.Context, _ string, q ListQuery) ([]byte, error) {
	call := pendingCall{q: q, reply: make(chan stubReply, 1)}
	g.calls <- call
	select {
	case r := <-call.reply:
		return []byte(r.body), r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedLister) next(t *testing.T) pendingCall {
	t.Helper()
	select {
	case call := <-g.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a fetch")
		return pendingCall{}
	}
}

func (g *gatedLister) expectIdle(t *testing.T) {
	t.Helper()
	select {
	case call := <-g.calls:
		t.Fatalf("unexpected fetch %s", call.q)
	default:
	}
}

func newTestController(t *testing.T, g *gatedLister, initial *DateRange) *Controller[record] {
	t.Helper()
	c := NewController[record](g, Options{
		Resource:     "/list-calls-history-video",
		PageSize:     10,
		InitialRange: initial,
		Filter:       NewDateFilter(time.UTC, 31),
		ErrorMessage: "Failed to load call history. Please try again.",
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	t.Cleanup(c.Close)
	return c
}

func await(t *testing.T, c *Controller[record]) Snapshot[record] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := c.Await(ctx)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	return snap
}

func TestControllerMountLoadsFirstPage(t *testing.T) {
	g := newGatedLister()
	c := newTestController(t, g, nil)

	if snap := c.Snapshot(); snap.State != StateIdle {
		t.Fatalf("expected idle before mount, got %s", snap.State)
	}

	c.Mount()
	if snap := c.Snapshot(); !snap.Loading || snap.State != StateLoading {
		t.Fatalf("expected loading after mount, got %+v", snap)
	}

	call := g.next(t)
	if call.q.Page != 1 || call.q.PageSize != 10 || call.q.Range != nil {
		t.Fatalf("unexpected initial query %s", call.q)
	}
	call.respond(`{"data":[{"id":1},{"id":2}],"total":57}`)

	snap := await(t, c)
	if snap.State != StateLoaded || snap.Loading {
		t.Fatalf("expected loaded, got %s", snap.State)
	}
	if len(snap.Records) != 2 || snap.Pagination.Total != 57 || snap.Pagination.Current != 1 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.Pagination.Pages() != 6 {
		t.Fatalf("expected 6 pages, got %d", snap.Pagination.Pages())
	}
}

func TestControllerDiscardsSupersededResponse(t *testing.T) {
	g := newGatedLister()
	c := newTestController(t, g, nil)

	c.Mount()
	first := g.next(t)
	c.SetPage(2, 10)
	second := g.next(t)

	second.respond(`{"data":[{"id":20}],"total":30}`)
	snap := await(t, c)
	if snap.Pagination.Current != 2 || snap.Records[0].ID != 20 {
		t.Fatalf("expected page 2 to be applied, got %+v", snap)
	}

	first.respond(`{"data":[{"id":1}],"total":30}`)
	c.wg.Wait()

	snap = c.Snapshot()
	if snap.Pagination.Current != 2 || len(snap.Records) != 1 || snap.Records[0].ID != 20 {
		t.Fatalf("late page 1 response overwrote page 2: %+v", snap)
	}
}

func TestControllerStaleResponseDoesNotSettleLoading(t *testing.T) {
	g := newGatedLister()
	c := newTestController(t, g, nil)

	c.Mount()
	first := g.next(t)
	c.Refresh()
	second := g.next(t)

	first.fail(errors.New("boom"))
	if snap := c.Snapshot(); snap.State != StateLoading {
		t.Fatalf("stale failure must not change state, got %s", snap.State)
	}

	second.respond(`[{"id":7}]`)
	await(t, c)
	c.wg.Wait()
	snap := c.Snapshot()
	if snap.State != StateLoaded || snap.Error != "" || snap.Records[0].ID != 7 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestControllerRejectsOversizedRange(t *testing.T) {
	g := newGatedLister()
	f := NewDateFilter(time.UTC, 31)
	initial, _ := f.Parse("2024-01-01", "2024-01-31")
	c := newTestController(t, g, initial)

	c.Mount()
	call := g.next(t)
	from, to := call.q.Range.Encode()
	if from != "2024-01-01" || to != "2024-01-31" {
		t.Fatalf("unexpected initial range %s..%s", from, to)
	}
	call.respond(`{"data":[{"id":1}],"total":1}`)
	await(t, c)

	badFrom := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	badTo := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	err := c.SetDateRange(&badFrom, &badTo)
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected range error, got %v", err)
	}
	g.expectIdle(t)

	snap := c.Snapshot()
	if snap.RangeError != "Date range cannot exceed 31 days. Please select a smaller range." {
		t.Fatalf("unexpected range error %q", snap.RangeError)
	}
	if a, b := snap.Range.Encode(); a != "2024-01-01" || b != "2024-01-31" {
		t.Fatalf("previous range must stay active, got %s..%s", a, b)
	}
	if snap.State != StateLoaded || len(snap.Records) != 1 {
		t.Fatalf("records must be untouched, got %+v", snap)
	}

	okTo := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	if err := c.SetDateRange(&badFrom, &okTo); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	call = g.next(t)
	if _, b := call.q.Range.Encode(); b != "2024-01-10" {
		t.Fatalf("expected new range to be sent, got %s", call.q)
	}
	if c.Snapshot().RangeError != "" {
		t.Fatalf("range error must clear after a valid selection")
	}
}

func TestControllerErrorPreservesRecords(t *testing.T) {
	g := newGatedLister()
	c := newTestController(t, g, nil)

	c.Mount()
	g.next(t).respond(`{"items":[{"id":1},{"id":2}],"meta":{"total":2}}`)
	await(t, c)

	c.SetPage(2, 10)
	g.next(t).fail(errors.New("upstream 500"))
	snap := await(t, c)

	if snap.State != StateErrored || snap.Error != "Failed to load call history. Please try again." {
		t.Fatalf("expected errored snapshot, got %+v", snap)
	}
	if len(snap.Records) != 2 || snap.Pagination.Current != 1 || snap.Pagination.Total != 2 {
		t.Fatalf("records and pagination must be preserved, got %+v", snap)
	}
}

func TestControllerRetryReusesFailedQuery(t *testing.T) {
	g := newGatedLister()
	f := NewDateFilter(time.UTC, 31)
	initial, _ := f.Parse("2024-05-01", "2024-05-07")
	c := newTestController(t, g, initial)

	if c.Retry() {
		t.Fatalf("retry must be a no-op while idle")
	}

	c.Mount()
	g.next(t).respond(`[]`)
	await(t, c)

	c.SetPage(3, 20)
	failed := g.next(t)
	failed.fail(errors.New("timeout"))
	await(t, c)

	if !c.Retry() {
		t.Fatalf("expected retry from errored state")
	}
	retried := g.next(t)
	if retried.q.String() != failed.q.String() {
		t.Fatalf("retry sent %s, expected %s", retried.q, failed.q)
	}
	if snap := c.Snapshot(); snap.Error != "" || !snap.Loading {
		t.Fatalf("retry must clear the error and start loading, got %+v", snap)
	}
	retried.respond(`{"data":[{"id":41}],"total":41}`)
	snap := await(t, c)
	if snap.Pagination.Current != 3 || snap.Pagination.PageSize != 20 {
		t.Fatalf("unexpected pagination after retry %+v", snap.Pagination)
	}
	if c.Retry() {
		t.Fatalf("retry must be a no-op once loaded")
	}
}

func TestControllerRefreshIsIdempotent(t *testing.T) {
	g := newGatedLister()
	c := newTestController(t, g, nil)
	body := `{"data":[{"id":1},{"id":2}],"total":2}`

	c.Mount()
	g.next(t).respond(body)
	first := await(t, c)

	c.Refresh()
	g.next(t).respond(body)
	c.Refresh()
	call := g.next(t)
	if call.q.Page != 1 || call.q.PageSize != 10 {
		t.Fatalf("refresh changed the query: %s", call.q)
	}
	call.respond(body)
	second := await(t, c)

	if len(first.Records) != len(second.Records) || first.Pagination != second.Pagination {
		t.Fatalf("refresh changed the result: %+v vs %+v", first, second)
	}
}

func TestControllerPageAndFilterTriggers(t *testing.T) {
	g := newGatedLister()
	f := NewDateFilter(time.UTC, 31)
	initial, _ := f.Parse("2024-01-01", "2024-01-02")
	c := newTestController(t, g, initial)

	c.SetPage(0, -1)
	call := g.next(t)
	if call.q.Page != 1 || call.q.PageSize != 10 {
		t.Fatalf("expected sanitized paging, got %s", call.q)
	}
	call.respond(`[]`)
	await(t, c)

	c.SetPage(4, 50)
	g.next(t).respond(`[]`)
	await(t, c)

	c.ClearFilters()
	call = g.next(t)
	if call.q.Range != nil || call.q.Page != 4 || call.q.PageSize != 50 {
		t.Fatalf("clear filters must drop only the range, got %s", call.q)
	}
	call.respond(`[]`)
	if snap := await(t, c); snap.Range != nil {
		t.Fatalf("range must be cleared, got %+v", snap.Range)
	}
}

func TestControllerListenersSeeOrderedCommits(t *testing.T) {
	g := newGatedLister()
	c := newTestController(t, g, nil)

	var mu sync.Mutex
	var versions []uint64
	var states []State
	c.OnChange(func(s Snapshot[record]) {
		mu.Lock()
		defer mu.Unlock()
		versions = append(versions, s.Version)
		states = append(states, s.State)
	})

	c.Mount()
	g.next(t).respond(`[{"id":1}]`)
	await(t, c)
	c.Refresh()
	g.next(t).fail(errors.New("nope"))
	await(t, c)

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateLoading, StateLoaded, StateLoading, StateErrored}
	if len(states) != len(want) {
		t.Fatalf("expected %d commits, got %v", len(want), states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Fatalf("commit %d: expected %s, got %s", i, want[i], states[i])
		}
		if i > 0 && versions[i] <= versions[i-1] {
			t.Fatalf("versions must increase: %v", versions)
		}
	}
}

func TestControllerCloseStopsUpdates(t *testing.T) {
	g := newGatedLister()
	c := newTestController(t, g, nil)

	var mu sync.Mutex
	commits := 0
	c.OnChange(func(Snapshot[record]) {
		mu.Lock()
		commits++
		mu.Unlock()
	})

	c.Mount()
	call := g.next(t)
	c.Close()

	mu.Lock()
	before := commits
	mu.Unlock()

	call.respond(`[{"id":1}]`)
	c.Mount()
	c.Refresh()
	g.expectIdle(t)

	mu.Lock()
	defer mu.Unlock()
	if commits != before {
		t.Fatalf("expected no commits after close, got %d more", commits-before)
	}
	if snap := c.Snapshot(); len(snap.Records) != 0 {
		t.Fatalf("records must not change after close, got %+v", snap.Records)
	}
}
