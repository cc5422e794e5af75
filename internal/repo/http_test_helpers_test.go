package repo

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/voxbridge/customer-portal/internal/config"
	"github.com/voxbridge/customer-portal/internal/session"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(rt roundTripFunc) *http.Client {
	return &http.Client{Transport: rt}
}

func textResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewReader([]byte(body))),
		Header:     make(http.Header),
	}
}

func newStubbedPortal(baseURL string, cacheStub *stubCache, rt roundTripFunc) *PortalClient {
	opts := Options{
		BaseURL:      baseURL,
		Paths:        config.DefaultAPIPaths(),
		Timeout:      time.Second,
		UserAgent:    "portal-test",
		Tokens:       session.Static("tok-123"),
		LanguagesTTL: time.Minute,
	}
	if cacheStub != nil {
		opts.Cache = cacheStub
	}
	client := NewPortalClient(opts)
	client.httpClient = newTestClient(rt)
	return client
}
