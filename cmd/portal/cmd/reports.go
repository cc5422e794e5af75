package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/voxbridge/customer-portal/internal/listing"
	"github.com/voxbridge/customer-portal/internal/models"
	"github.com/voxbridge/customer-portal/internal/services"
)

type reportsOptions struct {
	Page     int
	PageSize int
	From     string
	To       string
}

func reportsCmd() *cobra.Command {
	var opts reportsOptions
	cmd := &cobra.Command{
		Use:          "reports",
		SilenceUsage: true,
		Short:        "Show the usage summary and usage by language",
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReports(cmd, opts)
		},
	}
	fs := cmd.Flags()
	fs.IntVarP(&opts.Page, "page", "p", 1, "page of the language table")
	fs.IntVarP(&opts.PageSize, "page-size", "s", 0, "languages per page (default from config)")
	fs.StringVarP(&opts.From, "from", "f", "", "first day, YYYY-MM-DD")
	fs.StringVarP(&opts.To, "to", "t", "", "last day, YYYY-MM-DD (default: same as --from)")
	return cmd
}

func runReports(cmd *cobra.Command, opts reportsOptions) error {
	ctx := cmd.Context()
	a, err := loadApp(ctx)
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

	reports := services.NewReports(a.client, a.client, services.ReportsOptions{
		LanguagesResource: a.cfg.API.Paths.LanguagesUsage,
		PageSize:          opts.PageSize,
		Filter:            a.filter,
		Range:             rng,
		Logger:            a.logger,
	})
	defer reports.Close()

	reports.Languages.SetPage(opts.Page, opts.PageSize)
	// The summary error is reported through reports.Error.
	_ = reports.LoadSummary(ctx, rng)
	snap, err := reports.Languages.Await(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if globals.JSON {
		summary, _ := reports.Summary()
		err = printJSON(out, struct {
			Range        string                      `json:"range"`
			Summary      models.UsageSummary         `json:"summary"`
			SummaryError string                      `json:"summaryError,omitempty"`
			Languages    []services.LanguageUsageRow `json:"languages"`
			Pagination   listing.PaginationState     `json:"pagination"`
			Error        string                      `json:"error,omitempty"`
		}{services.RangeLabel(snap.Range), summary, reports.Error(), reports.Rows(snap), snap.Pagination, snap.Error})
		if err != nil {
			return err
		}
	} else {
		renderReports(out, reports, snap)
	}

	if snap.Error != "" {
		return errors.New(snap.Error)
	}
	if msg := reports.Error(); msg != "" {
		return errors.New(msg)
	}
	return nil
}

func renderReports(w io.Writer, reports *services.Reports, snap listing.Snapshot[models.LanguageUsage]) {
	if summary, ok := reports.Summary(); ok {
		fmt.Fprintf(w, "Total calls: %s\n", formatNumber(summary.TotalCalls))
		fmt.Fprintf(w, "Total minutes: %s\n", formatNumber(summary.TotalMinutes))
	}
	if msg := reports.Error(); msg != "" {
		fmt.Fprintf(w, "! %s\n", msg)
	}
	fmt.Fprintln(w)

	printListState(w, snap, services.RangeLabel(snap.Range))
	rows := reports.Rows(snap)
	if len(rows) == 0 && snap.Error == "" {
		fmt.Fprintln(w, "No language usage found.")
	} else {
		printTable(w, services.LanguageUsageColumns, rows)
	}
	printPagination(w, snap.Pagination, len(rows))
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
