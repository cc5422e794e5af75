package services

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/voxbridge/customer-portal/internal/metrics"
	"github.com/voxbridge/customer-portal/internal/models"
	"github.com/voxbridge/customer-portal/internal/utils"
)

const (
	// LanguagesError is shown when availability fails to load.
	LanguagesError = "Failed to load available languages. Please try again."

	languagesResource = "languages"
)

// AvailabilitySource loads interpreter availability.
type AvailabilitySource interface {
	Languages(ctx context.Context) ([]models.LanguageAvailability, error)
}

// LanguageRow is one availability row formatted for display.
type LanguageRow struct {
	Language     string `json:"language"`
	Available    bool   `json:"available"`
	Interpreters string `json:"interpreters"`
}

// Languages lists interpreter availability, available languages first.
type Languages struct {
	source AvailabilitySource
	logger *slog.Logger
}

// NewLanguages builds the view.
func NewLanguages(source AvailabilitySource, logger *slog.Logger) *Languages {
	if logger == nil {
		logger = slog.Default()
	}
	return &Languages{source: source, logger: logger}
}

// List fetches and sorts availability.
func (l *Languages) List(ctx context.Context) ([]LanguageRow, error) {
	start := time.Now()
	langs, err := l.source.Languages(ctx)
	if err != nil {
		metrics.ObserveFetch(languagesResource, time.Since(start), metrics.OutcomeError)
		appErr := utils.NewAppError("list languages", LanguagesError, err)
		l.logger.Error("languages load failed", slog.Any("error", appErr))
		return nil, appErr
	}
	metrics.ObserveFetch(languagesResource, time.Since(start), metrics.OutcomeSuccess)

	rows := make([]LanguageRow, 0, len(langs))
	for _, lang := range langs {
		if strings.TrimSpace(lang.Language) == "" {
			continue
		}
		rows = append(rows, LanguageRow{
			Language:     lang.Language,
			Available:    lang.IsAvailable(),
			Interpreters: formatCount(lang.Available),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Available != rows[j].Available {
			return rows[i].Available
		}
		return strings.ToLower(rows[i].Language) < strings.ToLower(rows[j].Language)
	})
	return rows, nil
}
