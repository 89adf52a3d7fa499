package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/okian/teamsplit/pkg/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// SheetsReadOnlyScope grants read access to spreadsheets.
const SheetsReadOnlyScope = "https://www.googleapis.com/auth/spreadsheets.readonly"

const (
	tokenFilePermission = 0o600
	callbackTimeout     = 10 * time.Second
)

// Browser presents the consent URL to the user.
type Browser func(authURL string) error

// TokenOption configures a TokenStore.
type TokenOption func(*TokenStore)

// WithBrowser replaces the default consent URL presenter, which prints the
// URL to stderr.
func WithBrowser(b Browser) TokenOption {
	return func(s *TokenStore) {
		if b != nil {
			s.browser = b
		}
	}
}

// WithTokenLogger sets the logger.
func WithTokenLogger(l logger.Logger) TokenOption {
	return func(s *TokenStore) {
		if l != nil {
			s.log = l
		}
	}
}

// TokenStore obtains OAuth2 tokens for the Sheets API and caches them in a
// JSON file.
type TokenStore struct {
	config  *oauth2.Config
	path    string
	browser Browser
	log     logger.Logger
}

// NewTokenStore builds a store from an installed-app credentials file as
// downloaded from the Google Cloud console.
func NewTokenStore(credentialsPath, tokenPath string, opts ...TokenOption) (*TokenStore, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read credentials: %w", ErrAuthorization, err)
	}
	cfg, err := google.ConfigFromJSON(data, SheetsReadOnlyScope)
	if err != nil {
		return nil, fmt.Errorf("%w: parse credentials: %w", ErrAuthorization, err)
	}
	return NewTokenStoreWithConfig(cfg, tokenPath, opts...), nil
}

// NewTokenStoreWithConfig builds a store around an existing OAuth2 config.
func NewTokenStoreWithConfig(cfg *oauth2.Config, tokenPath string, opts ...TokenOption) *TokenStore {
	s := &TokenStore{config: cfg, path: tokenPath}
	for _, opt := range opts {
		opt(s)
	}
	if s.browser == nil {
		s.browser = printURL(os.Stderr)
	}
	if s.log == nil {
		s.log = logger.Get().Named("oauth")
	}
	return s
}

// Token returns a valid token. A cached token is used while valid, refreshed
// when expired, and replaced through the consent flow otherwise. New tokens
// are written back to the cache.
func (s *TokenStore) Token(ctx context.Context) (*oauth2.Token, error) {
	cached, err := s.load()
	if err != nil {
		s.log.Warn(ctx, "ignoring token cache", logger.Error(err))
		cached = nil
	}
	if cached != nil && cached.Valid() {
		return cached, nil
	}

	var tok *oauth2.Token
	if cached != nil && cached.RefreshToken != "" {
		tok, err = s.config.TokenSource(ctx, cached).Token()
		if err != nil {
			s.log.Warn(ctx, "token refresh failed, requesting consent", logger.Error(err))
			tok = nil
		} else {
			s.log.Info(ctx, "token refreshed")
		}
	}
	if tok == nil {
		tok, err = s.authorize(ctx)
		if err != nil {
			return nil, err
		}
		s.log.Info(ctx, "token acquired")
	}

	if err := s.save(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// Client returns an HTTP client authorized with the store's token.
func (s *TokenStore) Client(ctx context.Context) (*http.Client, error) {
	tok, err := s.Token(ctx)
	if err != nil {
		return nil, err
	}
	return s.config.Client(ctx, tok), nil
}

// authorize runs the installed-app loopback flow: a local listener receives
// the authorization code that is then exchanged for a token.
func (s *TokenStore) authorize(ctx context.Context) (*oauth2.Token, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("%w: listen: %w", ErrAuthorization, err)
	}

	cfg := *s.config
	cfg.RedirectURL = "http://" + ln.Addr().String() + "/"
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()

	type callback struct {
		code string
		err  error
	}
	results := make(chan callback, 1)
	srv := &http.Server{
		ReadHeaderTimeout: callbackTimeout,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			var cb callback
			switch {
			case q.Get("state") != state:
				http.Error(w, "state mismatch", http.StatusBadRequest)
				return
			case q.Get("error") != "":
				cb.err = fmt.Errorf("%w: %s", ErrAuthorization, q.Get("error"))
			case q.Get("code") == "":
				cb.err = fmt.Errorf("%w: no code in callback", ErrAuthorization)
			default:
				cb.code = q.Get("code")
			}
			_, _ = io.WriteString(w, "Authorization received. You can close this window.\n")
			select {
			case results <- cb:
			default:
			}
		}),
	}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	if err := s.browser(authURL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthorization, err)
	}

	var cb callback
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case cb = <-results:
	}
	if cb.err != nil {
		return nil, cb.err
	}

	tok, err := cfg.Exchange(ctx, cb.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: exchange: %w", ErrAuthorization, err)
	}
	return tok, nil
}

func (s *TokenStore) load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenCache, err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrTokenCache, s.path, err)
	}
	return &tok, nil
}

func (s *TokenStore) save(tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrTokenCache, err)
	}
	if err := os.WriteFile(s.path, data, tokenFilePermission); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrTokenCache, s.path, err)
	}
	return nil
}

func printURL(w io.Writer) Browser {
	return func(authURL string) error {
		_, err := fmt.Fprintf(w, "Open this link in your browser to authorize access:\n\n%s\n\n", authURL)
		return err
	}
}
