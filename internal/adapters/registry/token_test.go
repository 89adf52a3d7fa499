package registry_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/teamsplit/internal/adapters/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type tokenServer struct {
	*httptest.Server
	calls atomic.Int32
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.calls.Add(1)
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"access_token":"access-%s","token_type":"Bearer","refresh_token":"refresh-1","expires_in":3600}`,
			r.Form.Get("grant_type"))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tokenServer) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Scopes:       []string{registry.SheetsReadOnlyScope},
		Endpoint: oauth2.Endpoint{
			AuthURL:   ts.URL + "/auth",
			TokenURL:  ts.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func writeToken(t *testing.T, path string, tok *oauth2.Token) {
	t.Helper()
	data, err := json.Marshal(tok)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func readToken(t *testing.T, path string) *oauth2.Token {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var tok oauth2.Token
	require.NoError(t, json.Unmarshal(data, &tok))
	return &tok
}

// consent simulates the user approving access in a browser.
func consent(t *testing.T, params func(state string) url.Values) registry.Browser {
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		redirect := q.Get("redirect_uri") + "?" + params(q.Get("state")).Encode()
		resp, err := http.Get(redirect)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	}
}

func failBrowser(t *testing.T) registry.Browser {
	return func(string) error {
		t.Error("consent flow should not run")
		return nil
	}
}

func TestTokenStoreCached(t *testing.T) {
	ts := newTokenServer(t)
	path := filepath.Join(t.TempDir(), "token.json")
	writeToken(t, path, &oauth2.Token{AccessToken: "cached", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)})

	store := registry.NewTokenStoreWithConfig(ts.config(), path, registry.WithBrowser(failBrowser(t)))
	tok, err := store.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", tok.AccessToken)
	assert.Zero(t, ts.calls.Load())
}

func TestTokenStoreRefresh(t *testing.T) {
	ts := newTokenServer(t)
	path := filepath.Join(t.TempDir(), "token.json")
	writeToken(t, path, &oauth2.Token{
		AccessToken:  "stale",
		RefreshToken: "refresh-0",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-time.Hour),
	})

	store := registry.NewTokenStoreWithConfig(ts.config(), path, registry.WithBrowser(failBrowser(t)))
	tok, err := store.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-refresh_token", tok.AccessToken)
	assert.EqualValues(t, 1, ts.calls.Load())
	assert.Equal(t, "access-refresh_token", readToken(t, path).AccessToken)
}

func TestTokenStoreConsent(t *testing.T) {
	ts := newTokenServer(t)
	path := filepath.Join(t.TempDir(), "token.json")

	browser := consent(t, func(state string) url.Values {
		return url.Values{"code": {"auth-code"}, "state": {state}}
	})
	store := registry.NewTokenStoreWithConfig(ts.config(), path, registry.WithBrowser(browser))

	tok, err := store.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-authorization_code", tok.AccessToken)
	assert.Equal(t, "refresh-1", readToken(t, path).RefreshToken)
}

func TestTokenStoreConsentDenied(t *testing.T) {
	ts := newTokenServer(t)
	path := filepath.Join(t.TempDir(), "token.json")

	browser := consent(t, func(state string) url.Values {
		return url.Values{"error": {"access_denied"}, "state": {state}}
	})
	store := registry.NewTokenStoreWithConfig(ts.config(), path, registry.WithBrowser(browser))

	_, err := store.Token(context.Background())
	require.ErrorIs(t, err, registry.ErrAuthorization)
	assert.Contains(t, err.Error(), "access_denied")
	assert.NoFileExists(t, path)
}

func TestTokenStoreStateMismatch(t *testing.T) {
	ts := newTokenServer(t)
	path := filepath.Join(t.TempDir(), "token.json")

	browser := consent(t, func(string) url.Values {
		return url.Values{"code": {"auth-code"}, "state": {"forged"}}
	})
	store := registry.NewTokenStoreWithConfig(ts.config(), path, registry.WithBrowser(browser))

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := store.Token(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, ts.calls.Load())
}

func TestTokenStoreCorruptCache(t *testing.T) {
	ts := newTokenServer(t)
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	browser := consent(t, func(state string) url.Values {
		return url.Values{"code": {"auth-code"}, "state": {state}}
	})
	store := registry.NewTokenStoreWithConfig(ts.config(), path, registry.WithBrowser(browser))

	tok, err := store.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-authorization_code", tok.AccessToken)
}

func TestNewTokenStore(t *testing.T) {
	dir := t.TempDir()
	creds := filepath.Join(dir, "credentials.json")
	require.NoError(t, os.WriteFile(creds, []byte(`{"installed":{
		"client_id":"client",
		"client_secret":"secret",
		"auth_uri":"https://accounts.google.com/o/oauth2/auth",
		"token_uri":"https://oauth2.googleapis.com/token",
		"redirect_uris":["http://localhost"]
	}}`), 0o600))

	store, err := registry.NewTokenStore(creds, filepath.Join(dir, "token.json"))
	require.NoError(t, err)
	require.NotNil(t, store)

	_, err = registry.NewTokenStore(filepath.Join(dir, "missing.json"), filepath.Join(dir, "token.json"))
	require.ErrorIs(t, err, registry.ErrAuthorization)
}

func TestTokenStoreClientAuthorizesSheetRequests(t *testing.T) {
	ts := newTokenServer(t)
	path := filepath.Join(t.TempDir(), "token.json")
	writeToken(t, path, &oauth2.Token{AccessToken: "cached", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)})

	var auth string
	sheets := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = fmt.Fprint(w, `{"values":[["Alice"]]}`)
	}))
	defer sheets.Close()

	store := registry.NewTokenStoreWithConfig(ts.config(), path, registry.WithBrowser(failBrowser(t)))
	client, err := store.Client(context.Background())
	require.NoError(t, err)

	src, err := registry.NewSheetSource(client, sheetURL, "", registry.WithBaseURL(sheets.URL))
	require.NoError(t, err)
	names, err := src.ActiveNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, names)
	assert.Equal(t, "Bearer cached", auth)
}
