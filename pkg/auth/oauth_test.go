package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const installedSecrets = `{
  "installed": {
    "client_id": "id.apps.googleusercontent.com",
    "client_secret": "secret",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["http://localhost"]
  }
}`

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ClientSecretsFile), []byte(installedSecrets), 0o600); err != nil {
		t.Fatalf("write secrets: %v", err)
	}
	return &Authenticator{Dir: dir, Log: zerolog.Nop()}
}

func TestRedirectURL(t *testing.T) {
	a := &Authenticator{Log: zerolog.Nop()}
	tests := []struct {
		in, want string
	}{
		{"http://localhost", "http://localhost:6789"},
		{"http://localhost:8080/cb", "http://localhost:6789/cb"},
		{"http://127.0.0.1:6789/", "http://127.0.0.1:6789/"},
		{"urn:ietf:wg:oauth:2.0:oob", "http://localhost:6789/"},
		{"", "http://localhost:6789/"},
		{"https://example.com/callback", "https://example.com/callback"},
	}
	for _, tt := range tests {
		if got := a.redirectURL(tt.in); got != tt.want {
			t.Errorf("redirectURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetConfig(t *testing.T) {
	a := newTestAuthenticator(t)
	cfg, err := a.GetConfig(Scopes)
	if err != nil {
		t.Fatalf("GetConfig failed: %v", err)
	}
	if cfg.ClientID != "id.apps.googleusercontent.com" {
		t.Errorf("unexpected client id %q", cfg.ClientID)
	}
	if cfg.RedirectURL != "http://localhost:6789" {
		t.Errorf("unexpected redirect %q", cfg.RedirectURL)
	}
	if len(cfg.Scopes) != 2 {
		t.Errorf("expected 2 scopes, got %v", cfg.Scopes)
	}
}

func TestClientWithoutTokenNonInteractive(t *testing.T) {
	a := newTestAuthenticator(t)
	_, err := a.Client(context.Background(), Scopes)
	if !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
}

func TestClientWithCachedToken(t *testing.T) {
	a := newTestAuthenticator(t)
	tok := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: time.Now().Add(time.Hour)}
	if err := saveToken(filepath.Join(a.Dir, TokenFile), tok); err != nil {
		t.Fatalf("saveToken failed: %v", err)
	}

	client, err := a.Client(context.Background(), Scopes)
	if err != nil {
		t.Fatalf("Client failed: %v", err)
	}
	if client == nil {
		t.Fatal("nil client")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", TokenFile)
	want := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer"}
	if err := saveToken(path, want); err != nil {
		t.Fatalf("saveToken failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("token file mode = %o, want 600", perm)
	}

	got, err := tokenFromFile(path)
	if err != nil {
		t.Fatalf("tokenFromFile failed: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
		t.Errorf("token mismatch: %+v", got)
	}
}

type staticSource struct{ tok *oauth2.Token }

func (s staticSource) Token() (*oauth2.Token, error) { return s.tok, nil }

func TestSavingSourcePersistsRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), TokenFile)
	old := &oauth2.Token{AccessToken: "old", RefreshToken: "r"}
	fresh := &oauth2.Token{AccessToken: "new", RefreshToken: "r"}

	src := &savingSource{base: staticSource{fresh}, last: old, path: path, log: zerolog.Nop()}
	if _, err := src.Token(); err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	got, err := tokenFromFile(path)
	if err != nil {
		t.Fatalf("refreshed token not saved: %v", err)
	}
	if got.AccessToken != "new" {
		t.Errorf("saved access token %q", got.AccessToken)
	}
}
