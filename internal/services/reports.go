package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/voxbridge/customer-portal/internal/listing"
	"github.com/voxbridge/customer-portal/internal/metrics"
	"github.com/voxbridge/customer-portal/internal/models"
	"github.com/voxbridge/customer-portal/internal/utils"
)

const (
	// UsageSummaryError is shown when the usage summary fails to load.
	UsageSummaryError = "Failed to load usage summary."
	// LanguageUsageError is shown when the per-language table fails to load.
	LanguageUsageError = "Failed to load language usage. Please try again."

	usageSummaryResource = "usage-summary"
)

// LanguageUsageColumns are the headings of the per-language usage table.
var LanguageUsageColumns = []string{"Language", "Total Calls", "Total Minutes", "% of Total Minutes"}

// UsageSource loads aggregate usage.
type UsageSource interface {
	UsageSummary(ctx context.Context, r *listing.DateRange) (models.UsageSummary, error)
}

// LanguageUsageRow is one per-language usage row formatted for display.
type LanguageUsageRow struct {
	Language      string `json:"language"`
	TotalCalls    string `json:"totalCalls"`
	TotalMinutes  string `json:"totalMinutes"`
	PercentOfMins string `json:"pctMinutes"`
}

// Cells returns the row in LanguageUsageColumns order.
func (r LanguageUsageRow) Cells() []string {
	return []string{r.Language, r.TotalCalls, r.TotalMinutes, r.PercentOfMins}
}

// ReportsOptions configures a Reports view.
type ReportsOptions struct {
	LanguagesResource string
	PageSize          int
	Filter            *listing.DateFilter
	// Range is the language table's initial filter; nil starts unfiltered.
	Range  *listing.DateRange
	Logger *slog.Logger
}

// Reports combines the usage summary with the paginated per-language table.
type Reports struct {
	Languages *listing.Controller[models.LanguageUsage]

	usage  UsageSource
	logger *slog.Logger

	mu      sync.Mutex
	summary models.UsageSummary
	loaded  bool
	errMsg  string
}

// NewReports builds the view.
func NewReports(lister listing.Lister, usage UsageSource, opts ReportsOptions) *Reports {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Reports{
		Languages: listing.NewController[models.LanguageUsage](lister, listing.Options{
			Resource:     opts.LanguagesResource,
			PageSize:     opts.PageSize,
			InitialRange: opts.Range,
			Filter:       opts.Filter,
			ErrorMessage: LanguageUsageError,
			Logger:       logger,
		}),
		usage:  usage,
		logger: logger,
	}
}

// LoadSummary fetches the usage summary. On failure the previous summary is
// kept and Error reports UsageSummaryError.
func (r *Reports) LoadSummary(ctx context.Context, rng *listing.DateRange) error {
	start := time.Now()
	summary, err := r.usage.UsageSummary(ctx, rng)
	elapsed := time.Since(start)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		metrics.ObserveFetch(usageSummaryResource, elapsed, metrics.OutcomeError)
		r.errMsg = UsageSummaryError
		appErr := utils.NewAppError("load usage summary", UsageSummaryError, err)
		r.logger.Error("usage summary failed", slog.Any("error", appErr))
		return appErr
	}
	metrics.ObserveFetch(usageSummaryResource, elapsed, metrics.OutcomeSuccess)
	r.summary = summary
	r.loaded = true
	r.errMsg = ""
	return nil
}

// Summary returns the last loaded summary and whether one has loaded.
func (r *Reports) Summary() (models.UsageSummary, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary, r.loaded
}

// Error returns the summary error message, if any.
func (r *Reports) Error() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errMsg
}

// Rows formats language usage against the loaded summary's total minutes.
func (r *Reports) Rows(snap listing.Snapshot[models.LanguageUsage]) []LanguageUsageRow {
	summary, _ := r.Summary()
	rows := make([]LanguageUsageRow, 0, len(snap.Records))
	for _, u := range snap.Records {
		rows = append(rows, FormatLanguageUsage(u, summary.TotalMinutes))
	}
	return rows
}

// Close releases the language table.
func (r *Reports) Close() {
	r.Languages.Close()
}

// FormatLanguageUsage renders a usage row; totalMinutes is the denominator of the percentage.
func FormatLanguageUsage(u models.LanguageUsage, totalMinutes float64) LanguageUsageRow {
	return LanguageUsageRow{
		Language:      orDash(u.Language),
		TotalCalls:    formatCount(u.TotalCalls),
		TotalMinutes:  formatCount(u.TotalMinutes),
		PercentOfMins: PercentOf(u.TotalMinutes, totalMinutes),
	}
}

// PercentOf formats part/total with one decimal, or "0%" when total is zero.
func PercentOf(part, total float64) string {
	if total == 0 || math.IsNaN(total) || math.IsNaN(part) {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", part/total*100)
}
