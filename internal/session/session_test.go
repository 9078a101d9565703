package session

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mintToken(t *testing.T, userID, userType string, exp time.Time) string {
	t.Helper()
	claims := Claims{
		UserID:   userID,
		UserType: userType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return tok
}

func TestTokenRoundTrip(t *testing.T) {
	store := NewMemStore()
	s := New(store, testLogger())

	tok := mintToken(t, "u1", "delivery", time.Now().Add(time.Hour))
	if err := s.SetToken(tok); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if got := s.Token(); got != tok {
		t.Fatalf("expected token round trip, got %q", got)
	}
	if !s.LoggedIn() {
		t.Fatal("expected logged in")
	}

	// a fresh session over the same store picks the token up
	s2 := New(store, testLogger())
	if s2.Token() != tok {
		t.Fatal("expected persisted token on reload")
	}

	if err := s.SetToken(""); err != nil {
		t.Fatalf("clear token: %v", err)
	}
	if s.LoggedIn() {
		t.Fatal("expected logged out after clear")
	}
	if v, _ := store.Load(); v != "" {
		t.Fatalf("expected persisted value cleared, got %q", v)
	}
}

func TestExpiredPersistedTokenSelfHeals(t *testing.T) {
	store := NewMemStore()
	expired := mintToken(t, "u1", "delivery", time.Now().Add(-time.Minute))
	if err := store.Save(expired); err != nil {
		t.Fatal(err)
	}

	s := New(store, testLogger())
	if s.LoggedIn() {
		t.Fatal("expected logged out for expired token")
	}
	if v, _ := store.Load(); v != "" {
		t.Fatalf("expected persisted value cleared, got %q", v)
	}
}

func TestMalformedPersistedTokenSelfHeals(t *testing.T) {
	store := NewMemStore()
	if err := store.Save("not-a-jwt"); err != nil {
		t.Fatal(err)
	}

	s := New(store, testLogger())
	if s.LoggedIn() {
		t.Fatal("expected logged out for malformed token")
	}
	if v, _ := store.Load(); v != "" {
		t.Fatalf("expected persisted value cleared, got %q", v)
	}
}

func TestClaimsCacheInvalidatedOnTokenChange(t *testing.T) {
	s := New(NewMemStore(), testLogger())

	if err := s.SetToken(mintToken(t, "u1", "delivery", time.Now().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	c := s.Claims()
	if c == nil || c.UserType != "delivery" {
		t.Fatalf("unexpected claims %+v", c)
	}

	if err := s.SetToken(mintToken(t, "u2", "merchant", time.Now().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	c = s.Claims()
	if c == nil || c.UserID != "u2" || c.UserType != "merchant" {
		t.Fatalf("expected refreshed claims, got %+v", c)
	}
}

func TestSetTokenRejectsUndecodableToken(t *testing.T) {
	store := NewMemStore()
	s := New(store, testLogger())

	if err := s.SetToken(mintToken(t, "u1", "delivery", time.Now().Add(time.Hour))); err != nil {
		t.Fatal(err)
	}

	// a garbage token must not leave a phantom login behind
	if err := s.SetToken("not-a-jwt"); err != nil {
		t.Fatalf("set malformed token: %v", err)
	}
	if s.LoggedIn() {
		t.Fatal("expected logged out after malformed token")
	}
	if s.Claims() != nil {
		t.Fatal("expected nil claims after malformed token")
	}
	if v, _ := store.Load(); v != "" {
		t.Fatalf("malformed token must not be persisted, got %q", v)
	}
}

func TestClaimsNilWhenLoggedOut(t *testing.T) {
	s := New(NewMemStore(), testLogger())
	if s.Claims() != nil {
		t.Fatal("expected nil claims when logged out")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	fs := NewFileStore(path)

	if v, err := fs.Load(); err != nil || v != "" {
		t.Fatalf("expected empty load, got %q err=%v", v, err)
	}
	if err := fs.Save("tok-123"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if v, err := fs.Load(); err != nil || v != "tok-123" {
		t.Fatalf("expected tok-123, got %q err=%v", v, err)
	}
	if err := fs.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := fs.Clear(); err != nil {
		t.Fatalf("clear should be idempotent: %v", err)
	}
	if v, _ := fs.Load(); v != "" {
		t.Fatalf("expected empty after clear, got %q", v)
	}
}
