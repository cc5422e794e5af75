package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestInspectReadsClaims(t *testing.T) {
	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	token := signedToken(t, jwt.MapClaims{"email": "ana@example.com", "sub": "u-1", "exp": exp.Unix()})

	claims, err := Inspect(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Email != "ana@example.com" || claims.Subject != "u-1" || !claims.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Expired(exp.Add(-time.Second)) || !claims.Expired(exp) {
		t.Fatalf("unexpected expiry evaluation")
	}

	if _, err := Inspect("not-a-jwt"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	if _, err := store.Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}

	token := signedToken(t, jwt.MapClaims{"email": "ana@example.com", "exp": time.Now().Add(time.Hour).Unix()})
	if err := store.Save(token, "ana@example.com"); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600, got %v", info.Mode().Perm())
	}

	got, err := store.Token(context.Background())
	if err != nil || got != token {
		t.Fatalf("unexpected token %q err %v", got, err)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken after clear, got %v", err)
	}
}

func TestFileStoreRejectsExpiredToken(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	token := signedToken(t, jwt.MapClaims{"exp": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()})
	if err := store.Save(token, ""); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Token(context.Background()); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestContextSourcePrefersContextToken(t *testing.T) {
	src := ContextSource{Fallback: Static("fallback")}

	got, err := src.Token(WithToken(context.Background(), "forwarded"))
	if err != nil || got != "forwarded" {
		t.Fatalf("expected forwarded token, got %q %v", got, err)
	}
	got, err = src.Token(context.Background())
	if err != nil || got != "fallback" {
		t.Fatalf("expected fallback token, got %q %v", got, err)
	}
	if _, err := (ContextSource{}).Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	if _, err := Static(" ").Token(context.Background()); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken for blank static token, got %v", err)
	}
}
