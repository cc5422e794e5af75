package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/voxbridge/customer-portal/internal/listing"
	"github.com/voxbridge/customer-portal/internal/models"
	"github.com/voxbridge/customer-portal/internal/services"
	"github.com/voxbridge/customer-portal/internal/utils"
)

type callsOptions struct {
	Page        int
	PageSize    int
	From        string
	To          string
	All         bool
	Interactive bool
}

func callsCmd() *cobra.Command {
	var opts callsOptions
	cmd := &cobra.Command{
		Use:          "calls",
		SilenceUsage: true,
		Short:        "Show call history",
		Long: `Show one page of call history. Without --from the table is filtered to
today; --all drops the date filter. Ranges may span at most the configured
number of days (31 by default). With -i the command stays open and accepts
paging and filtering commands; type "help" for the list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalls(cmd, opts)
		},
	}
	fs := cmd.Flags()
	fs.IntVarP(&opts.Page, "page", "p", 1, "page number")
	fs.IntVarP(&opts.PageSize, "page-size", "s", 0, "records per page (default from config)")
	fs.StringVarP(&opts.From, "from", "f", "", "first day, YYYY-MM-DD")
	fs.StringVarP(&opts.To, "to", "t", "", "last day, YYYY-MM-DD (default: same as --from)")
	fs.BoolVarP(&opts.All, "all", "a", false, "show all dates")
	fs.BoolVarP(&opts.Interactive, "interactive", "i", false, "keep the table open for paging and filtering")
	return cmd
}

func runCalls(cmd *cobra.Command, opts callsOptions) error {
	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	rng, err := a.filter.Parse(opts.From, opts.To)
	if err != nil {
		return err
	}
	if opts.PageSize <= 0 {
		opts.PageSize = a.cfg.Listing.DefaultPageSize
	}

	view := services.NewCallHistory(a.client, services.CallHistoryOptions{
		Resource: a.cfg.API.Paths.CallsHistory,
		PageSize: opts.PageSize,
		Filter:   a.filter,
		Range:    rng,
		AllDates: opts.All,
		Display:  a.display,
		Logger:   a.logger,
	})
	defer view.Close()

	out := cmd.OutOrStdout()
	if opts.Interactive {
		return newCallsSession(view, a.filter, out).run(cmd.Context(), cmd.InOrStdin(), opts.Page)
	}

	view.SetPage(opts.Page, opts.PageSize)
	snap, err := view.Await(cmd.Context())
	if err != nil {
		return err
	}
	if globals.JSON {
		if err := printJSON(out, callsPayload(view, snap)); err != nil {
			return err
		}
	} else {
		renderCalls(out, view, snap)
	}
	if snap.Error != "" {
		return errors.New(snap.Error)
	}
	return nil
}

type callsJSON struct {
	Range      string                  `json:"range"`
	Records    []services.CallRow      `json:"records"`
	Pagination listing.PaginationState `json:"pagination"`
	Error      string                  `json:"error,omitempty"`
}

func callsPayload(view *services.CallHistory, snap listing.Snapshot[models.Engagement]) callsJSON {
	return callsJSON{
		Range:      services.RangeLabel(snap.Range),
		Records:    view.Rows(snap),
		Pagination: snap.Pagination,
		Error:      snap.Error,
	}
}

func renderCalls(w io.Writer, view *services.CallHistory, snap listing.Snapshot[models.Engagement]) {
	printListState(w, snap, services.RangeLabel(snap.Range))
	rows := view.Rows(snap)
	switch {
	case len(rows) == 0 && snap.Error == "" && services.HasActiveFilters(snap):
		fmt.Fprintln(w, "No calls found in this range.")
	case len(rows) == 0 && snap.Error == "":
		fmt.Fprintln(w, "No calls found.")
	default:
		printTable(w, services.CallColumns, rows)
	}
	printPagination(w, snap.Pagination, len(rows))
}

const callsHelp = `commands:
  next | n              next page
  prev | p              previous page
  page N                go to page N
  size N                show N records per page
  range FROM [TO]       filter by YYYY-MM-DD dates
  today                 filter to today
  clear                 drop the date filter
  refresh | r           reload the current page
  retry                 reload after a failed fetch
  quit | q              leave`

// callsSession is the interactive call history table.
type callsSession struct {
	view   *services.CallHistory
	filter *listing.DateFilter
	out    io.Writer
}

// newCallsSession prints a loading line whenever a fetch is issued. Fetches are
// only issued from the session's own goroutine, so the listener never races
// with rendering.
func newCallsSession(view *services.CallHistory, filter *listing.DateFilter, out io.Writer) *callsSession {
	view.OnChange(func(snap listing.Snapshot[models.Engagement]) {
		if snap.Loading {
			fmt.Fprintln(out, "loading...")
		}
	})
	return &callsSession{view: view, filter: filter, out: out}
}

func (s *callsSession) run(ctx context.Context, in io.Reader, page int) error {
	snap := s.view.Snapshot()
	s.view.SetPage(page, snap.Pagination.PageSize)
	if err := s.render(ctx); err != nil {
		return err
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "calls> ")
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		quit, err := s.exec(strings.Fields(scanner.Text()))
		if quit {
			return nil
		}
		if err != nil {
			fmt.Fprintln(s.out, err)
			continue
		}
		if err := s.render(ctx); err != nil {
			return err
		}
	}
}

func (s *callsSession) render(ctx context.Context) error {
	snap, err := s.view.Await(ctx)
	if err != nil {
		return err
	}
	renderCalls(s.out, s.view, snap)
	return nil
}

var errUnknownCommand = errors.New(`unknown command, type "help"`)

// exec applies one command. Range validation failures are reported through the
// snapshot, so they render like any other state change.
func (s *callsSession) exec(args []string) (quit bool, err error) {
	if len(args) == 0 {
		return false, nil
	}
	snap := s.view.Snapshot()
	p := snap.Pagination
	switch strings.ToLower(args[0]) {
	case "q", "quit", "exit":
		return true, nil
	case "help", "?":
		return false, errors.New(callsHelp)
	case "n", "next":
		if p.Current >= p.Pages() {
			return false, errors.New("already on the last page")
		}
		s.view.SetPage(p.Current+1, p.PageSize)
	case "p", "prev":
		if p.Current <= 1 {
			return false, errors.New("already on the first page")
		}
		s.view.SetPage(p.Current-1, p.PageSize)
	case "page":
		n, err := intArg(args)
		if err != nil {
			return false, err
		}
		s.view.SetPage(n, p.PageSize)
	case "size":
		n, err := intArg(args)
		if err != nil {
			return false, err
		}
		s.view.SetPage(1, n)
	case "range":
		if len(args) < 2 || len(args) > 3 {
			return false, errors.New("usage: range FROM [TO]")
		}
		from, err := utils.ParseLocalDate(args[1], s.filter.Location())
		if err != nil {
			return false, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", args[1])
		}
		to := from
		if len(args) == 3 {
			if to, err = utils.ParseLocalDate(args[2], s.filter.Location()); err != nil {
				return false, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", args[2])
			}
		}
		_ = s.view.SetDateRange(&from, &to)
	case "today":
		_ = s.view.SetDateRange(nil, nil)
	case "clear":
		s.view.ClearFilters()
	case "r", "refresh":
		s.view.Refresh()
	case "retry":
		if !s.view.Retry() {
			return false, errors.New("nothing to retry")
		}
	default:
		return false, errUnknownCommand
	}
	return false, nil
}

func intArg(args []string) (int, error) {
	if len(args) != 2 {
		return 0, fmt.Errorf("usage: %s N", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive number", args[0])
	}
	return n, nil
}
