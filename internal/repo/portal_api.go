package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/voxbridge/customer-portal/internal/cache"
	"github.com/voxbridge/customer-portal/internal/config"
	"github.com/voxbridge/customer-portal/internal/listing"
	"github.com/voxbridge/customer-portal/internal/models"
	"github.com/voxbridge/customer-portal/internal/session"
)

const (
	languagesCacheKey = "languages:availability"
	maxResponseBytes  = 8 << 20
	// RequestIDHeader is propagated on every upstream request.
	RequestIDHeader = "X-Request-Id"
)

// ErrResponseTooLarge reports a response body over the read limit.
var ErrResponseTooLarge = errors.New("customer api response too large")

// APIError reports a non-2xx response from the customer API.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("customer api returned %s: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("customer api returned %s", e.Status)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Options configures a PortalClient.
type Options struct {
	BaseURL      string
	Paths        config.APIPaths
	Timeout      time.Duration
	UserAgent    string
	Tokens       session.TokenSource
	Cache        cache.Provider
	LanguagesTTL time.Duration
	Logger       *slog.Logger
}

// PortalClient wraps the customer API used by the dashboard views.
type PortalClient struct {
	baseURL      string
	paths        config.APIPaths
	userAgent    string
	tokens       session.TokenSource
	cache        cache.Provider
	languagesTTL time.Duration
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewPortalClient constructs a client targeting the configured API.
func NewPortalClient(opts Options) *PortalClient {
	if opts.Cache == nil {
		opts.Cache = cache.NoopProvider{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.LanguagesTTL < 0 {
		opts.LanguagesTTL = 0
	}
	if opts.Tokens == nil {
		opts.Tokens = session.ContextSource{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &PortalClient{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		paths:        opts.Paths,
		userAgent:    opts.UserAgent,
		tokens:       opts.Tokens,
		cache:        opts.Cache,
		languagesTTL: opts.LanguagesTTL,
		httpClient:   &http.Client{Timeout: opts.Timeout},
		logger:       logger,
	}
}

// BaseURL returns the configured API root.
func (c *PortalClient) BaseURL() string { return c.baseURL }

// List fetches one raw page of resource. It satisfies listing.Lister.
func (c *PortalClient) List(ctx context.Context, resource string, q listing.ListQuery) ([]byte, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	body, err := c.getJSON(ctx, c.resolvePath(resource), q.Values())
	if err != nil {
		return nil, fmt.Errorf("list %s (%s): %w", resource, q, err)
	}
	return body, nil
}

// Languages returns interpreter availability per language. Responses are
// cached for the configured TTL; the cache is shared across callers.
func (c *PortalClient) Languages(ctx context.Context) ([]models.LanguageAvailability, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}

	if c.languagesTTL > 0 {
		if cached, err := c.cache.Get(ctx, languagesCacheKey); err == nil {
			return listing.Normalize[models.LanguageAvailability](cached).Records, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn("languages cache read failed", slog.Any("error", err))
		}
	}

	body, err := c.getJSON(ctx, c.resolvePath(c.paths.Languages), nil)
	if err != nil {
		return nil, fmt.Errorf("languages request failed: %w", err)
	}
	if c.languagesTTL > 0 {
		if err := c.cache.Set(ctx, languagesCacheKey, body, c.languagesTTL); err != nil {
			c.logger.Warn("languages cache write failed", slog.Any("error", err))
		}
	}
	return listing.Normalize[models.LanguageAvailability](body).Records, nil
}

// UsageSummary returns aggregate usage, optionally bounded by a date range.
func (c *PortalClient) UsageSummary(ctx context.Context, r *listing.DateRange) (models.UsageSummary, error) {
	var summary models.UsageSummary
	if err := c.ready(); err != nil {
		return summary, err
	}
	params := url.Values{}
	if r != nil {
		from, to := r.Encode()
		params.Set("startDate", from)
		params.Set("endDate", to)
	}
	body, err := c.getJSON(ctx, c.resolvePath(c.paths.UsageSummary), params)
	if err != nil {
		return summary, fmt.Errorf("usage summary request failed: %w", err)
	}
	if err := json.Unmarshal(unwrapData(body), &summary); err != nil {
		return summary, fmt.Errorf("decode usage summary: %w", err)
	}
	return summary, nil
}

// VideoAccount loads the signed-in customer's video account.
func (c *PortalClient) VideoAccount(ctx context.Context) (models.VideoAccount, error) {
	var account models.VideoAccount
	if err := c.ready(); err != nil {
		return account, err
	}
	body, err := c.getJSON(ctx, c.resolvePath(c.paths.VideoAccount), nil)
	if err != nil {
		return account, fmt.Errorf("video account request failed: %w", err)
	}
	if err := json.Unmarshal(unwrapData(body), &account); err != nil {
		return account, fmt.Errorf("decode video account: %w", err)
	}
	return account, nil
}

// UpdateVideoAccount saves the editable profile fields.
func (c *PortalClient) UpdateVideoAccount(ctx context.Context, update models.ProfileUpdate) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := models.Validate(update); err != nil {
		return err
	}
	if _, err := c.sendJSON(ctx, http.MethodPost, c.resolvePath(c.paths.UpdateVideoAccount), update, true); err != nil {
		return fmt.Errorf("update video account failed: %w", err)
	}
	return nil
}

// ChangeProfilePicture uploads a new profile photo as multipart form data.
func (c *PortalClient) ChangeProfilePicture(ctx context.Context, filename, contentType string, data []byte) error {
	if err := c.ready(); err != nil {
		return err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="profile_picture"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("write form part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.resolvePath(c.paths.ChangeProfilePicture), &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if _, err := c.do(req); err != nil {
		return fmt.Errorf("change profile picture failed: %w", err)
	}
	return nil
}

// DeleteProfilePicture removes the current profile photo.
func (c *PortalClient) DeleteProfilePicture(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	if _, err := c.sendJSON(ctx, http.MethodDelete, c.resolvePath(c.paths.DeleteProfilePicture), nil, true); err != nil {
		return fmt.Errorf("delete profile picture failed: %w", err)
	}
	return nil
}

// ResolveAssetURL turns a stored asset path into an absolute URL on the API's
// origin. A trailing /api segment on the base URL is not part of the origin.
func (c *PortalClient) ResolveAssetURL(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if strings.HasPrefix(p, "http://") || strings.HasPrefix(p, "https://") {
		return p
	}
	origin := strings.TrimSuffix(strings.TrimSuffix(c.baseURL, "/"), "/api")
	if origin == "" {
		return p
	}
	return origin + "/" + strings.TrimLeft(p, "/")
}

func (c *PortalClient) ready() error {
	if c == nil {
		return fmt.Errorf("portal client not initialised")
	}
	if c.baseURL == "" {
		return fmt.Errorf("api base URL not configured")
	}
	return nil
}

func (c *PortalClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *PortalClient) getJSON(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *PortalClient) sendJSON(ctx context.Context, method, endpoint string, payload any, authenticated bool) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(data)
	}
	var (
		req *http.Request
		err error
	)
	if authenticated {
		req, err = c.newRequest(ctx, method, endpoint, body)
	} else {
		req, err = c.newAnonymousRequest(ctx, method, endpoint, body)
	}
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req)
}

// newRequest builds a request carrying the caller's bearer token.
func (c *PortalClient) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := c.newAnonymousRequest(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func (c *PortalClient) newAnonymousRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("empty endpoint")
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set(RequestIDHeader, requestID(ctx))
	return req, nil
}

func (c *PortalClient) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) > maxResponseBytes {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, ErrResponseTooLarge)
	}
	c.logger.Debug("customer api call",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.String("request_id", req.Header.Get(RequestIDHeader)),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    errorMessage(data),
			Body:       strings.TrimSpace(string(data)),
		}
	}
	return data, nil
}

type requestIDKey struct{}

// WithRequestID attaches an inbound request id so upstream calls share it.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// unwrapData returns the object under "data" when the body is such an envelope.
func unwrapData(body []byte) []byte {
	if !gjson.ValidBytes(body) {
		return body
	}
	if inner := gjson.GetBytes(body, "data"); inner.IsObject() {
		return []byte(inner.Raw)
	}
	return body
}

// errorMessage returns the first non-empty "message" or "error" string.
func errorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, r := range gjson.GetManyBytes(body, "message", "error") {
		if r.Type == gjson.String && strings.TrimSpace(r.Str) != "" {
			return r.Str
		}
	}
	return ""
}
