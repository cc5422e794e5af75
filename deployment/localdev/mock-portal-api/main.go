package main

import (
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type engagement struct {
	ID              int      `json:"id"`
	StartTS         string   `json:"engagement_start_ts"`
	EndTS           *string  `json:"engagement_end_ts"`
	Channel         string   `json:"channel"`
	Language        string   `json:"language"`
	InterpreterID   *string  `json:"interpreter_answered_s_id"`
	DurationSeconds int      `json:"interpretation_duration_s"`
	CustomerBill    *float64 `json:"customer_bill"`
	start           time.Time
}

type languageUsage struct {
	Language     string  `json:"language"`
	TotalCalls   int     `json:"total_calls"`
	TotalMinutes float64 `json:"total_minutes"`
}

type account struct {
	Email              string `json:"email"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Phone              string `json:"phone"`
	AccountType        string `json:"account_type"`
	ProfilePicturePath string `json:"profile_picture_url,omitempty"`
}

var languages = []string{"Spanish", "French", "Mandarin", "Arabic", "ASL", "Portuguese"}

// mockAPI serves a deterministic customer account.
type mockAPI struct {
	secret []byte
	calls  []engagement
	shape  atomic.Uint64

	mu      sync.Mutex
	profile account
}

func main() {
	addr := flag.String("address", ":8081", "listen address")
	flag.Parse()

	m := newMockAPI(time.Now())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("POST /api/customer-video-login", m.login)
	mux.HandleFunc("POST /api/auth/setup-mfa", m.setupMFA)
	mux.HandleFunc("POST /api/confirm-forgot-password", m.confirmForgotPassword)

	mux.Handle("GET /api/get-availability-by-languages", m.authorized(m.availability))
	mux.Handle("GET /api/list-calls-history-video", m.authorized(m.callsHistory))
	mux.Handle("GET /api/get-usage-by-video-customer", m.authorized(m.usageSummary))
	mux.Handle("GET /api/list-languages-usage-by-customer", m.authorized(m.languagesUsage))
	mux.Handle("GET /api/get-customer-video-account-by-id", m.authorized(m.getAccount))
	mux.Handle("POST /api/user-update-customer-video-account", m.authorized(m.updateAccount))
	mux.Handle("POST /api/change-profile-picture-video", m.authorized(m.changePicture))
	mux.Handle("DELETE /api/delete-profile-picture-video", m.authorized(m.deletePicture))

	logger := log.New(log.Writer(), "portal-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    *addr,
		Handler: logRequests(logger, mux),
	}

	logger.Printf("listening on %s, set PORTAL_API_BASE_URL=http://localhost%s/api", *addr, *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func newMockAPI(now time.Time) *mockAPI {
	m := &mockAPI{
		secret: []byte("portal-mock-secret"),
		profile: account{
			Email:       "ops@acme-clinic.example",
			FirstName:   "Dana",
			LastName:    "Reyes",
			Phone:       "+1 555 0100",
			AccountType: "owner",
		},
	}
	for i := 0; i < 80; i++ {
		start := now.Add(-time.Duration(i) * 7 * time.Hour).Truncate(time.Second).UTC()
		e := engagement{
			ID:              1000 + i,
			StartTS:         start.Format(time.RFC3339),
			Channel:         []string{"video", "audio"}[i%2],
			Language:        languages[i%len(languages)],
			DurationSeconds: 120 + (i*373)%3600,
			start:           start,
		}
		if i%9 != 0 {
			end := start.Add(time.Duration(e.DurationSeconds) * time.Second).Format(time.RFC3339)
			e.EndTS = &end
			id := "INT-" + strconv.Itoa(200+i%17)
			e.InterpreterID = &id
			bill := float64(e.DurationSeconds) / 60 * 1.75
			bill = float64(int(bill*100)) / 100
			e.CustomerBill = &bill
		}
		m.calls = append(m.calls, e)
	}
	return m
}

func (m *mockAPI) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if req.Password == "wrong" {
		writeError(w, http.StatusUnauthorized, "Incorrect username or password.")
		return
	}
	if strings.HasPrefix(req.Username, "mfa") {
		writeJSON(w, map[string]any{"session": "mfa-" + req.Username, "challenge": "MFA_SETUP"})
		return
	}
	writeJSON(w, map[string]any{"token": m.issue(req.Username)})
}

func (m *mockAPI) setupMFA(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Session string `json:"session"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !strings.HasPrefix(req.Session, "mfa-") {
		writeError(w, http.StatusBadRequest, "invalid session")
		return
	}
	writeJSON(w, map[string]any{"data": map[string]any{"access_token": m.issue(strings.TrimPrefix(req.Session, "mfa-"))}})
}

func (m *mockAPI) confirmForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email           string `json:"email"`
		Code            string `json:"code"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Code != "123456" {
		writeError(w, http.StatusBadRequest, "Invalid verification code provided, please try again.")
		return
	}
	writeJSON(w, map[string]any{"message": "Password reset successfully"})
}

func (m *mockAPI) issue(email string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"sub":   "customer-42",
		"exp":   time.Now().Add(8 * time.Hour).Unix(),
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		log.Printf("sign token: %v", err)
	}
	return signed
}

// authorized accepts any token this mock issued.
func (m *mockAPI) authorized(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		_, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return m.secret, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next(w, r)
	})
}

func (m *mockAPI) availability(w http.ResponseWriter, _ *http.Request) {
	rows := make([]map[string]any, 0, len(languages))
	for i, lang := range languages {
		count := (i * 5) % 13
		status := "available"
		if count == 0 {
			status = "offline"
		}
		rows = append(rows, map[string]any{"language": lang, "available_interpreters": count, "status": status})
	}
	writeJSON(w, map[string]any{"data": rows})
}

func (m *mockAPI) callsHistory(w http.ResponseWriter, r *http.Request) {
	matched, ok := m.filterCalls(w, r)
	if !ok {
		return
	}
	page, size := pageParams(r)
	m.writeList(w, paginate(matched, page, size), len(matched))
}

func (m *mockAPI) usageSummary(w http.ResponseWriter, r *http.Request) {
	matched, ok := m.filterCalls(w, r)
	if !ok {
		return
	}
	var minutes float64
	for _, e := range matched {
		minutes += float64(e.DurationSeconds) / 60
	}
	writeJSON(w, map[string]any{"data": map[string]any{"total_calls": len(matched), "total_minutes": round2(minutes)}})
}

func (m *mockAPI) languagesUsage(w http.ResponseWriter, r *http.Request) {
	matched, ok := m.filterCalls(w, r)
	if !ok {
		return
	}
	index := map[string]int{}
	var rows []languageUsage
	for _, e := range matched {
		i, ok := index[e.Language]
		if !ok {
			i = len(rows)
			index[e.Language] = i
			rows = append(rows, languageUsage{Language: e.Language})
		}
		rows[i].TotalCalls++
		rows[i].TotalMinutes = round2(rows[i].TotalMinutes + float64(e.DurationSeconds)/60)
	}
	page, size := pageParams(r)
	m.writeList(w, paginate(rows, page, size), len(rows))
}

func (m *mockAPI) getAccount(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	writeJSON(w, map[string]any{"data": m.profile})
}

func (m *mockAPI) updateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName   string `json:"first_name"`
		LastName    string `json:"last_name"`
		PhoneNumber string `json:"phone_number"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile.AccountType == "shared" {
		writeError(w, http.StatusForbidden, "shared accounts cannot be edited")
		return
	}
	m.profile.FirstName, m.profile.LastName, m.profile.Phone = req.FirstName, req.LastName, req.PhoneNumber
	writeJSON(w, map[string]any{"message": "updated"})
}

func (m *mockAPI) changePicture(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("profile_picture")
	if err != nil {
		writeError(w, http.StatusBadRequest, "profile_picture is required")
		return
	}
	defer file.Close()
	_, _ = io.Copy(io.Discard, file)

	m.mu.Lock()
	m.profile.ProfilePicturePath = "/uploads/profile/" + header.Filename
	m.mu.Unlock()
	writeJSON(w, map[string]any{"message": "uploaded"})
}

func (m *mockAPI) deletePicture(w http.ResponseWriter, _ *http.Request) {
	m.mu.Lock()
	m.profile.ProfilePicturePath = ""
	m.mu.Unlock()
	writeJSON(w, map[string]any{"message": "deleted"})
}

// filterCalls applies startDate/endDate (YYYY-MM-DD, inclusive, UTC).
func (m *mockAPI) filterCalls(w http.ResponseWriter, r *http.Request) ([]engagement, bool) {
	q := r.URL.Query()
	from, to := q.Get("startDate"), q.Get("endDate")
	if from == "" && to == "" {
		return m.calls, true
	}
	start, err1 := time.Parse(time.DateOnly, from)
	end, err2 := time.Parse(time.DateOnly, to)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, "startDate and endDate must be YYYY-MM-DD")
		return nil, false
	}
	end = end.AddDate(0, 0, 1)
	var out []engagement
	for _, e := range m.calls {
		if !e.start.Before(start) && e.start.Before(end) {
			out = append(out, e)
		}
	}
	return out, true
}

// writeList rotates through the list envelopes the customer API is known to return.
func (m *mockAPI) writeList(w http.ResponseWriter, items any, total int) {
	switch m.shape.Add(1) % 3 {
	case 0:
		writeJSON(w, map[string]any{"data": items, "total": total})
	case 1:
		writeJSON(w, map[string]any{"items": items, "meta": map[string]any{"total": total}})
	default:
		writeJSON(w, items)
	}
}

func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 10
	}
	return page, size
}

func paginate[T any](items []T, page, size int) []T {
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
