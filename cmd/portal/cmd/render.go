package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/voxbridge/customer-portal/internal/listing"
	"github.com/voxbridge/customer-portal/internal/utils"
)

type row interface {
	Cells() []string
}

func printTable[R row](w io.Writer, columns []string, rows []R) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r.Cells(), "\t"))
	}
	_ = tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printListState renders the status lines around a table: range, errors and pagination.
func printListState[T any](w io.Writer, snap listing.Snapshot[T], rangeLabel string) {
	if rangeLabel != "" {
		fmt.Fprintf(w, "Range: %s\n", rangeLabel)
	}
	if snap.RangeError != "" {
		fmt.Fprintf(w, "! %s\n", snap.RangeError)
	}
	if snap.Error != "" {
		fmt.Fprintf(w, "! %s\n", snap.Error)
	}
}

func printPagination(w io.Writer, p listing.PaginationState, shown int) {
	fmt.Fprintf(w, "Page %d of %d · %d record(s) · %d shown · %d per page\n",
		p.Current, p.Pages(), p.Total, shown, p.PageSize)
}

// errorLine returns the user-facing text of err.
func errorLine(err error) string {
	return utils.UserMessage(err, err.Error())
}
