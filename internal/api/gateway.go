package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/voxbridge/customer-portal/internal/listing"
	"github.com/voxbridge/customer-portal/internal/metrics"
	"github.com/voxbridge/customer-portal/internal/models"
	"github.com/voxbridge/customer-portal/internal/repo"
	"github.com/voxbridge/customer-portal/internal/services"
	"github.com/voxbridge/customer-portal/internal/session"
	"github.com/voxbridge/customer-portal/internal/utils"
)

// Backend is the customer API surface the gateway fronts.
type Backend interface {
	listing.Lister
	services.AvailabilitySource
	services.UsageSource
	services.AccountStore
}

// GatewayOptions configures a Gateway.
type GatewayOptions struct {
	CallsResource          string
	LanguagesUsageResource string
	PageSize               int
	Filter                 *listing.DateFilter
	Display                *time.Location
	// Metrics serves /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Gateway exposes the dashboard views as a JSON API. Inbound bearer tokens are
// forwarded to the customer API.
type Gateway struct {
	backend   Backend
	opts      GatewayOptions
	languages *services.Languages
	logger    *slog.Logger
	latencies *utils.LatencyTracker
	served    atomic.Int64
}

// NewGateway builds the gateway.
func NewGateway(backend Backend, opts GatewayOptions) *Gateway {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Filter == nil {
		opts.Filter = listing.NewDateFilter(nil, listing.DefaultMaxRangeDays)
	}
	if opts.PageSize < 1 {
		opts.PageSize = listing.DefaultPageSize
	}
	if opts.Display == nil {
		opts.Display = time.Local
	}
	return &Gateway{
		backend:   backend,
		opts:      opts,
		languages: services.NewLanguages(backend, logger),
		logger:    logger,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// Router returns the HTTP handler.
func (g *Gateway) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(g.recoverMiddleware)
	r.Use(g.observeMiddleware)
	r.Use(tokenMiddleware)

	r.Get("/healthz", g.health)
	if g.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", g.opts.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/languages", g.listLanguages)
		r.Get("/calls", g.listCalls)
		r.Get("/reports/summary", g.usageSummary)
		r.Get("/reports/languages", g.languageUsage)
		r.Get("/profile", g.getProfile)
		r.Put("/profile", g.updateProfile)
		r.Post("/profile/photo", g.uploadPhoto)
		r.Delete("/profile/photo", g.removePhoto)
	})
	return r
}

func (g *Gateway) health(w http.ResponseWriter, _ *http.Request) {
	summary := g.latencies.Summary()
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"latency": map[string]any{
			"samples": summary.Samples,
			"p50_ms":  summary.P50.Milliseconds(),
			"p95_ms":  summary.P95.Milliseconds(),
			"max_ms":  summary.Max.Milliseconds(),
		},
	})
}

func (g *Gateway) listLanguages(w http.ResponseWriter, r *http.Request) {
	rows, err := g.languages.List(r.Context())
	if err != nil {
		g.writeUpstreamError(w, err, services.LanguagesError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows})
}

type pageResponse[T any] struct {
	Records    []T                     `json:"records"`
	Pagination listing.PaginationState `json:"pagination"`
	Pages      int                     `json:"pages"`
	Range      *rangeResponse          `json:"range,omitempty"`
}

type rangeResponse struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

func newRangeResponse(r *listing.DateRange) *rangeResponse {
	if r == nil {
		return nil
	}
	from, to := r.Encode()
	return &rangeResponse{From: from, To: to, Label: r.Label()}
}

// listCalls defaults to today's calls; all=true lifts the date filter.
func (g *Gateway) listCalls(w http.ResponseWriter, r *http.Request) {
	q, err := g.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if q.Range == nil && !truthy(r.URL.Query().Get("all")) {
		today := g.opts.Filter.Today()
		q.Range = &today
	}

	res, err := fetchPage[models.Engagement](r.Context(), g.backend, g.opts.CallsResource, q)
	if err != nil {
		g.writeUpstreamError(w, err, services.CallHistoryError)
		return
	}
	rows := make([]services.CallRow, 0, len(res.Records))
	for _, e := range res.Records {
		rows = append(rows, services.FormatCall(e, g.opts.Display))
	}
	pagination := listing.PaginationState{Current: q.Page, PageSize: q.PageSize, Total: res.Total}
	writeJSON(w, http.StatusOK, pageResponse[services.CallRow]{
		Records:    rows,
		Pagination: pagination,
		Pages:      pagination.Pages(),
		Range:      newRangeResponse(q.Range),
	})
}

func (g *Gateway) usageSummary(w http.ResponseWriter, r *http.Request) {
	rng, err := g.opts.Filter.Parse(r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	summary, err := g.backend.UsageSummary(r.Context(), rng)
	if err != nil {
		g.writeUpstreamError(w, err, services.UsageSummaryError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// languageUsage reports per-language usage with each row's share of the
// summary's total minutes. A failed summary leaves percentages at 0%.
func (g *Gateway) languageUsage(w http.ResponseWriter, r *http.Request) {
	q, err := g.parseQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := fetchPage[models.LanguageUsage](r.Context(), g.backend, g.opts.LanguagesUsageResource, q)
	if err != nil {
		g.writeUpstreamError(w, err, services.LanguageUsageError)
		return
	}

	var totalMinutes float64
	if summary, err := g.backend.UsageSummary(r.Context(), q.Range); err == nil {
		totalMinutes = summary.TotalMinutes
	} else {
		g.logger.Warn("usage summary unavailable for percentages", slog.Any("error", err))
	}

	rows := make([]services.LanguageUsageRow, 0, len(res.Records))
	for _, u := range res.Records {
		rows = append(rows, services.FormatLanguageUsage(u, totalMinutes))
	}
	pagination := listing.PaginationState{Current: q.Page, PageSize: q.PageSize, Total: res.Total}
	writeJSON(w, http.StatusOK, pageResponse[services.LanguageUsageRow]{
		Records:    rows,
		Pagination: pagination,
		Pages:      pagination.Pages(),
		Range:      newRangeResponse(q.Range),
	})
}

func (g *Gateway) getProfile(w http.ResponseWriter, r *http.Request) {
	profile := g.profileFor(r)
	if err := profile.Load(r.Context()); err != nil {
		g.writeUpstreamError(w, err, services.ProfileLoadError)
		return
	}
	writeJSON(w, http.StatusOK, profile.State())
}

func (g *Gateway) updateProfile(w http.ResponseWriter, r *http.Request) {
	var update models.ProfileUpdate
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&update); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	update.FirstName = strings.TrimSpace(update.FirstName)
	update.LastName = strings.TrimSpace(update.LastName)
	update.PhoneNumber = strings.TrimSpace(update.PhoneNumber)
	if err := models.Validate(update); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	account, err := g.backend.VideoAccount(r.Context())
	if err != nil {
		g.writeUpstreamError(w, err, services.ProfileLoadError)
		return
	}
	if account.IsShared() {
		writeError(w, http.StatusForbidden, services.ErrSharedAccount.Error())
		return
	}
	if err := g.backend.UpdateVideoAccount(r.Context(), update); err != nil {
		g.writeUpstreamError(w, err, services.ProfileSaveError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": services.ProfileSaved})
}

func (g *Gateway) uploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, services.MaxPhotoBytes+1<<20)
	file, header, err := r.FormFile("profile_picture")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, services.PhotoTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, services.PhotoInvalidType)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, services.MaxPhotoBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, services.PhotoInvalidType)
		return
	}

	profile := g.profileFor(r)
	if err := profile.UploadPhoto(r.Context(), header.Filename, data); err != nil {
		if errors.Is(err, services.ErrInvalidPhoto) {
			writeError(w, http.StatusBadRequest, utils.UserMessage(err, services.PhotoInvalidType))
			return
		}
		g.writeUpstreamError(w, err, services.PhotoUploadError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": services.PhotoUpdated, "profile": profile.State()})
}

func (g *Gateway) removePhoto(w http.ResponseWriter, r *http.Request) {
	profile := g.profileFor(r)
	if err := profile.RemovePhoto(r.Context()); err != nil {
		g.writeUpstreamError(w, err, services.PhotoRemoveError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": services.PhotoRemoved, "profile": profile.State()})
}

func (g *Gateway) profileFor(r *http.Request) *services.Profile {
	email := ""
	if token, ok := session.FromContext(r.Context()); ok {
		if claims, err := session.Inspect(token); err == nil {
			email = claims.Email
		}
	}
	return services.NewProfile(g.backend, email, g.logger)
}

func (g *Gateway) parseQuery(r *http.Request) (listing.ListQuery, error) {
	params := r.URL.Query()
	page, _ := strconv.Atoi(params.Get("page"))
	size, _ := strconv.Atoi(firstNonEmpty(params.Get("pageSize"), params.Get("page_size")))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = g.opts.PageSize
	}
	rng, err := g.opts.Filter.Parse(params.Get("startDate"), params.Get("endDate"))
	if err != nil {
		return listing.ListQuery{}, err
	}
	q := listing.ListQuery{Page: page, PageSize: size, Range: rng}
	if err := q.Validate(g.opts.Filter.MaxDays()); err != nil {
		return listing.ListQuery{}, err
	}
	return q, nil
}

func fetchPage[T any](ctx context.Context, lister listing.Lister, resource string, q listing.ListQuery) (listing.ListResult[T], error) {
	start := time.Now()
	body, err := lister.List(ctx, resource, q)
	if err != nil {
		metrics.ObserveFetch(resource, time.Since(start), metrics.OutcomeError)
		return listing.ListResult[T]{}, err
	}
	metrics.ObserveFetch(resource, time.Since(start), metrics.OutcomeSuccess)
	return listing.Normalize[T](body), nil
}

// writeUpstreamError maps customer API failures: missing or rejected
// credentials become 401, everything else 502 with the view's message.
func (g *Gateway) writeUpstreamError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, session.ErrNoToken), errors.Is(err, session.ErrExpired),
		repo.IsStatus(err, http.StatusUnauthorized), repo.IsStatus(err, http.StatusForbidden):
		writeError(w, http.StatusUnauthorized, "invalid or missing credentials")
	default:
		g.logger.Error("upstream request failed", slog.Any("error", err))
		writeError(w, http.StatusBadGateway, utils.UserMessage(err, fallback))
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(repo.RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(repo.RequestIDHeader, reqID)
		next.ServeHTTP(w, r.WithContext(repo.WithRequestID(r.Context(), reqID)))
	})
}

func tokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		if header := r.Header.Get("Authorization"); strings.HasPrefix(header, prefix) {
			if token := strings.TrimSpace(strings.TrimPrefix(header, prefix)); token != "" {
				r = r.WithContext(session.WithToken(r.Context(), token))
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gateway) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				g.logger.Error("handler panic", slog.Any("panic", rec), slog.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (g *Gateway) observeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.ObserveGatewayRequest(route, rec.status)
		g.latencies.Observe(elapsed)
		g.logger.Debug("gateway request",
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", elapsed),
		)
		if n := g.served.Add(1); n%100 == 0 {
			summary := g.latencies.Summary()
			g.logger.Info("gateway latency", slog.Int64("requests", n), slog.Duration("p95", summary.P95))
		}
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
