package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/gmail/v1"
)

const (
	// ClientSecretsFile is the Google "Desktop app" OAuth client downloaded
	// from the Cloud Console, placed in the config dir.
	ClientSecretsFile = "credentials.json"

	// TokenFile caches the access and refresh token next to the secrets.
	TokenFile = "token.json"

	// LocalhostAuthPort is where the redirect listener waits for the code.
	LocalhostAuthPort = "6789"

	authTimeout = 5 * time.Minute
)

// Scopes are the read-only Google scopes the brief needs.
var Scopes = []string{
	calendar.CalendarReadonlyScope,
	gmail.GmailReadonlyScope,
}

// ErrNoToken is returned when no cached token exists and the browser flow is
// not allowed (non-interactive runs).
var ErrNoToken = errors.New("no cached Google token, run `morningbrief auth` first")

// Authenticator loads OAuth credentials from Dir and hands out authorised
// HTTP clients.
type Authenticator struct {
	Dir string
	// Interactive allows the browser flow when no token is cached.
	Interactive bool
	Log         zerolog.Logger
}

// GetConfig creates an oauth2.Config from the client secrets file.
func (a *Authenticator) GetConfig(scopes []string) (*oauth2.Config, error) {
	clientSecretsFile := filepath.Join(a.Dir, ClientSecretsFile)
	b, err := os.ReadFile(clientSecretsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", clientSecretsFile, err)
	}

	config, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	config.RedirectURL = a.redirectURL(config.RedirectURL)
	return config, nil
}

// redirectURL pins localhost and out-of-band redirects to the listener port.
func (a *Authenticator) redirectURL(raw string) string {
	if raw == "" || raw == "urn:ietf:wg:oauth:2.0:oob" {
		return fmt.Sprintf("http://localhost:%s/", LocalhostAuthPort)
	}

	u, err := url.Parse(raw)
	if err != nil {
		a.Log.Warn().Err(err).Str("redirect_url", raw).Msg("could not parse redirect URL, using it as is")
		return raw
	}
	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" {
		a.Log.Warn().Str("redirect_url", raw).Msg("redirect URL is not a localhost callback")
		return raw
	}
	if port := u.Port(); port != LocalhostAuthPort {
		if port != "" {
			a.Log.Warn().Str("configured", port).Str("forced", LocalhostAuthPort).Msg("redirect port mismatch")
		}
		u.Host = net.JoinHostPort(host, LocalhostAuthPort)
	}
	return u.String()
}

// Client returns an authorised client for scopes. The token is refreshed as
// needed; a refreshed token is written back to the cache.
func (a *Authenticator) Client(ctx context.Context, scopes []string) (*http.Client, error) {
	config, err := a.GetConfig(scopes)
	if err != nil {
		return nil, err
	}

	tokenFile := filepath.Join(a.Dir, TokenFile)
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		if !a.Interactive {
			return nil, fmt.Errorf("%w (%v)", ErrNoToken, err)
		}
		a.Log.Info().Str("token_file", tokenFile).Msg("no cached token, starting browser authorization")
		if tok, err = a.tokenFromWeb(ctx, config); err != nil {
			return nil, fmt.Errorf("failed to get token from web: %w", err)
		}
		if err := saveToken(tokenFile, tok); err != nil {
			return nil, err
		}
	}

	src := &savingSource{
		base: config.TokenSource(ctx, tok),
		last: tok,
		path: tokenFile,
		log:  a.Log,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// Authorize runs the browser flow unconditionally and replaces the cached
// token.
func (a *Authenticator) Authorize(ctx context.Context, scopes []string) error {
	config, err := a.GetConfig(scopes)
	if err != nil {
		return err
	}
	tok, err := a.tokenFromWeb(ctx, config)
	if err != nil {
		return err
	}
	return saveToken(filepath.Join(a.Dir, TokenFile), tok)
}

// savingSource persists every token that differs from the last one seen.
type savingSource struct {
	base oauth2.TokenSource
	last *oauth2.Token
	path string
	log  zerolog.Logger
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last.AccessToken || tok.RefreshToken != s.last.RefreshToken {
		if err := saveToken(s.path, tok); err != nil {
			s.log.Warn().Err(err).Msg("could not cache refreshed token")
		} else {
			s.log.Debug().Str("token_file", s.path).Msg("refreshed token saved")
		}
		s.last = tok
	}
	return tok, nil
}

// tokenFromWeb runs the authorization code flow through a local listener.
func (a *Authenticator) tokenFromWeb(ctx context.Context, config *oauth2.Config) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", net.JoinHostPort("localhost", LocalhostAuthPort))
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	state := fmt.Sprintf("mb-%d", time.Now().UnixNano())
	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			if q.Get("state") != state {
				http.Error(w, "State mismatch", http.StatusBadRequest)
				return
			}
			code := q.Get("code")
			if code == "" {
				http.Error(w, "Authorization code not found", http.StatusBadRequest)
				select {
				case errCh <- fmt.Errorf("authorization code not found in redirect URL"):
				default:
				}
				return
			}
			fmt.Fprintf(w, "Authentication successful! You can close this window.")
			select {
			case codeCh <- code:
			default:
			}
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	defer server.Shutdown(context.Background())

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case errCh <- fmt.Errorf("HTTP server error: %w", err):
			default:
			}
		}
	}()

	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Printf("Open the following URL in your browser to authorize morningbrief:\n%s\n", authURL)
	a.Log.Info().Str("redirect_url", config.RedirectURL).Msg("waiting for authorization code")

	select {
	case code := <-codeCh:
		exCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := config.Exchange(exCtx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("authorization timed out, please try again")
	}
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", file, err)
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("unable to write OAuth token: %w", err)
	}
	return nil
}
