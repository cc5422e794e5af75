package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/voxbridge/customer-portal/internal/listing"
	"github.com/voxbridge/customer-portal/internal/models"
	"github.com/voxbridge/customer-portal/internal/repo"
	"github.com/voxbridge/customer-portal/internal/session"
)

type backendStub struct {
	mu        sync.Mutex
	bodies    map[string]string
	listErr   error
	queries   []listing.ListQuery
	tokens    []string
	summary   models.UsageSummary
	account   models.VideoAccount
	updates   []models.ProfileUpdate
	uploads   int
	languages []models.LanguageAvailability
}

func (b *backendStub) List(ctx context.Context, resource string, q listing.ListQuery) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queries = append(b.queries, q)
	token, _ := session.FromContext(ctx)
	b.tokens = append(b.tokens, token)
	if b.listErr != nil {
		return nil, b.listErr
	}
	return []byte(b.bodies[resource]), nil
}

func (b *backendStub) Languages(context.Context) ([]models.LanguageAvailability, error) {
	return b.languages, nil
}

func (b *backendStub) UsageSummary(context.Context, *listing.DateRange) (models.UsageSummary, error) {
	return b.summary, nil
}

func (b *backendStub) VideoAccount(context.Context) (models.VideoAccount, error) {
	return b.account, nil
}

func (b *backendStub) UpdateVideoAccount(_ context.Context, u models.ProfileUpdate) error {
	b.updates = append(b.updates, u)
	return nil
}

func (b *backendStub) ChangeProfilePicture(context.Context, string, string, []byte) error {
	b.uploads++
	return nil
}

func (b *backendStub) DeleteProfilePicture(context.Context) error { return nil }

func (b *backendStub) ResolveAssetURL(p string) string { return p }

func newTestGateway(b *backendStub) http.Handler {
	filter := listing.NewDateFilter(time.UTC, 31)
	return NewGateway(b, GatewayOptions{
		CallsResource:          "/list-calls-history-video",
		LanguagesUsageResource: "/list-languages-usage-by-customer",
		PageSize:               10,
		Filter:                 filter,
		Display:                time.UTC,
		Logger:                 slog.New(slog.NewTextHandler(io.Discard, nil)),
	}).Router()
}

func serve(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, body
}

func TestGatewayListCalls(t *testing.T) {
	b := &backendStub{bodies: map[string]string{
		"/list-calls-history-video": `{"data":[{"id":1,"engagement_start_ts":"2024-01-05T14:00:00Z","interpretation_duration_s":61}],"total":57}`,
	}}
	h := newTestGateway(b)

	req := httptest.NewRequest(http.MethodGet, "/v1/calls?page=2&pageSize=25&startDate=2024-01-01&endDate=2024-01-31", nil)
	req.Header.Set("Authorization", "Bearer user-token")
	rec, body := serve(t, h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(repo.RequestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
	if b.tokens[0] != "user-token" {
		t.Fatalf("expected bearer token to be forwarded, got %q", b.tokens[0])
	}
	q := b.queries[0]
	if q.Page != 2 || q.PageSize != 25 || q.Range == nil {
		t.Fatalf("unexpected upstream query %s", q)
	}

	pagination := body["pagination"].(map[string]any)
	if pagination["total"].(float64) != 57 || body["pages"].(float64) != 3 {
		t.Fatalf("unexpected pagination %v", body)
	}
	records := body["records"].([]any)
	first := records[0].(map[string]any)
	if first["duration"] != "00:01:01" || first["start"] != "1/5/24, 2:00:00 PM" {
		t.Fatalf("unexpected row %v", first)
	}
	rng := body["range"].(map[string]any)
	if rng["label"] != "Jan 1, 2024 - Jan 31, 2024" {
		t.Fatalf("unexpected range %v", rng)
	}
}

func TestGatewayDefaultsToToday(t *testing.T) {
	b := &backendStub{bodies: map[string]string{"/list-calls-history-video": `[]`}}
	h := newTestGateway(b)

	serve(t, h, httptest.NewRequest(http.MethodGet, "/v1/calls", nil))
	serve(t, h, httptest.NewRequest(http.MethodGet, "/v1/calls?all=true", nil))

	if b.queries[0].Range == nil || b.queries[0].Range.Days() != 0 {
		t.Fatalf("expected today's range, got %s", b.queries[0])
	}
	if b.queries[1].Range != nil {
		t.Fatalf("all=true must drop the range, got %s", b.queries[1])
	}
}

func TestGatewayRejectsOversizedRange(t *testing.T) {
	b := &backendStub{}
	h := newTestGateway(b)

	rec, body := serve(t, h, httptest.NewRequest(http.MethodGet, "/v1/calls?startDate=2024-01-01&endDate=2024-02-02", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.HasPrefix(body["error"].(string), "Date range cannot exceed 31 days") {
		t.Fatalf("unexpected error %v", body)
	}
	if len(b.queries) != 0 {
		t.Fatalf("no upstream call expected")
	}
}

func TestGatewayMapsUpstreamErrors(t *testing.T) {
	b := &backendStub{listErr: errors.New("connection refused")}
	h := newTestGateway(b)
	rec, body := serve(t, h, httptest.NewRequest(http.MethodGet, "/v1/calls?all=1", nil))
	if rec.Code != http.StatusBadGateway || body["error"] != "Failed to load call history. Please try again." {
		t.Fatalf("unexpected response %d %v", rec.Code, body)
	}

	b.listErr = &repo.APIError{StatusCode: http.StatusUnauthorized, Status: "401 Unauthorized"}
	rec, _ = serve(t, h, httptest.NewRequest(http.MethodGet, "/v1/calls?all=1", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGatewayLanguageUsagePercentages(t *testing.T) {
	b := &backendStub{
		bodies:  map[string]string{"/list-languages-usage-by-customer": `{"items":[{"language":"Spanish","total_calls":3,"total_minutes":30}],"meta":{"total":1}}`},
		summary: models.UsageSummary{TotalCalls: 4, TotalMinutes: 40},
	}
	rec, body := serve(t, newTestGateway(b), httptest.NewRequest(http.MethodGet, "/v1/reports/languages", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	row := body["records"].([]any)[0].(map[string]any)
	if row["pctMinutes"] != "75.0%" {
		t.Fatalf("unexpected row %v", row)
	}
}

func TestGatewayProfileUpdate(t *testing.T) {
	b := &backendStub{account: models.VideoAccount{FirstName: "Ana", LastName: "Diaz"}}
	h := newTestGateway(b)

	req := httptest.NewRequest(http.MethodPut, "/v1/profile", strings.NewReader(`{"first_name":" Ana ","last_name":"Ruiz"}`))
	rec, _ := serve(t, h, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	if len(b.updates) != 1 || b.updates[0].FirstName != "Ana" || b.updates[0].LastName != "Ruiz" {
		t.Fatalf("unexpected updates %+v", b.updates)
	}

	rec, body := serve(t, h, httptest.NewRequest(http.MethodPut, "/v1/profile", strings.NewReader(`{"last_name":"Ruiz"}`)))
	if rec.Code != http.StatusBadRequest || body["error"] != "first_name is required" {
		t.Fatalf("unexpected validation response %d %v", rec.Code, body)
	}

	b.account.AccountType = "shared"
	rec, _ = serve(t, h, httptest.NewRequest(http.MethodPut, "/v1/profile", strings.NewReader(`{"first_name":"X","last_name":"Y"}`)))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for shared account, got %d", rec.Code)
	}
}

func TestGatewayPhotoUploadRejectsNonImages(t *testing.T) {
	b := &backendStub{}
	h := newTestGateway(b)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("profile_picture", "notes.txt")
	_, _ = part.Write([]byte("hello there"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/profile/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec, body := serve(t, h, req)
	if rec.Code != http.StatusBadRequest || body["error"] != "Please select a valid image file." {
		t.Fatalf("unexpected response %d %v", rec.Code, body)
	}
	if b.uploads != 0 {
		t.Fatalf("non-image must not be uploaded")
	}
}

func TestGatewayPhotoUploadRejectsOversizedBody(t *testing.T) {
	b := &backendStub{}
	h := newTestGateway(b)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("profile_picture", "huge.png")
	_, _ = part.Write(bytes.Repeat([]byte{0x89}, 7<<20))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/profile/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec, body := serve(t, h, req)
	if rec.Code != http.StatusRequestEntityTooLarge || body["error"] != "Image must be 5MB or smaller." {
		t.Fatalf("unexpected response %d %v", rec.Code, body)
	}
	if b.uploads != 0 {
		t.Fatalf("oversized photo must not be uploaded")
	}
}

func TestGatewayHealth(t *testing.T) {
	h := newTestGateway(&backendStub{languages: []models.LanguageAvailability{{Language: "Spanish", Available: 1}}})
	serve(t, h, httptest.NewRequest(http.MethodGet, "/v1/languages", nil))
	rec, body := serve(t, h, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health %d %v", rec.Code, body)
	}
	if body["latency"].(map[string]any)["samples"].(float64) < 1 {
		t.Fatalf("expected latency samples, got %v", body)
	}
}
