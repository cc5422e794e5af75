// Package session supplies bearer tokens to API calls.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	// ErrNoToken means no session is available; the user must log in.
	ErrNoToken = errors.New("no session token, run `portal login` first")
	// ErrExpired means the stored token's expiry has passed.
	ErrExpired = errors.New("session token expired, run `portal login` again")
)

// TokenSource yields the bearer token for the current caller.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Static is a fixed token, typically from configuration or the environment.
type Static string

// Token returns the static value or ErrNoToken when empty.
func (s Static) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(s)) == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

type ctxKey struct{}

// WithToken attaches a per-request token, e.g. one forwarded by the gateway.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxKey{}, token)
}

// FromContext returns a token attached by WithToken.
func FromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(ctxKey{}).(string)
	return token, ok && token != ""
}

// ContextSource prefers a token carried by the context and falls back otherwise.
type ContextSource struct {
	Fallback TokenSource
}

// Token implements TokenSource.
func (s ContextSource) Token(ctx context.Context) (string, error) {
	if token, ok := FromContext(ctx); ok {
		return token, nil
	}
	if s.Fallback == nil {
		return "", ErrNoToken
	}
	return s.Fallback.Token(ctx)
}

// Stored is the on-disk session record.
type Stored struct {
	Token   string    `json:"token"`
	Email   string    `json:"email,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// FileStore keeps the session in a user-private JSON file.
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore returns a store backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Path returns the backing file location.
func (s *FileStore) Path() string { return s.path }

// Save writes the token with 0600 permissions, creating parent directories.
func (s *FileStore) Save(token, email string) error {
	if s.path == "" {
		return fmt.Errorf("session file path not configured")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.MarshalIndent(Stored{Token: token, Email: email, SavedAt: s.now().UTC()}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Load reads the stored session. A missing file yields ErrNoToken.
func (s *FileStore) Load() (Stored, error) {
	var st Stored
	if s.path == "" {
		return st, ErrNoToken
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return st, ErrNoToken
		}
		return st, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return st, fmt.Errorf("parse session: %w", err)
	}
	if st.Token == "" {
		return st, ErrNoToken
	}
	return st, nil
}

// Clear removes the stored session.
func (s *FileStore) Clear() error {
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Token returns the stored token unless its expiry has passed. Tokens that are
// not JWTs are passed through unchecked.
func (s *FileStore) Token(context.Context) (string, error) {
	st, err := s.Load()
	if err != nil {
		return "", err
	}
	if claims, err := Inspect(st.Token); err == nil && claims.Expired(s.now()) {
		return "", ErrExpired
	}
	return st.Token, nil
}
