package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// TokenPair holds the two opaque tokens issued by the backend. Both are
// session-scoped: they live and die with the server-side session row.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
}

// ErrNoSession is returned when no token pair exists for a session id,
// typically after logout or expiry.
var ErrNoSession = errors.New("auth: no session")

// Store persists token pairs per session. Implemented by the session store.
type Store interface {
	LoadPair(ctx context.Context, sessionID string) (TokenPair, error)
	SavePair(ctx context.Context, sessionID string, pair TokenPair) error
}

// TokenSource supplies the current access token for outbound API calls and
// refreshes it after a 401.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// StaticToken returns a TokenSource carrying a fixed service credential, for
// calls made outside any browser session (audit batches). Refresh hands back
// the same token: a static credential rejected by the backend stays rejected.
func StaticToken(token string) TokenSource { return staticToken(token) }

type staticToken string

func (s staticToken) Token(context.Context) (string, error)   { return string(s), nil }
func (s staticToken) Refresh(context.Context) (string, error) { return string(s), nil }

// Credentials is the login form payload forwarded to the backend.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Authenticate exchanges credentials for a token pair at the backend login
// endpoint. It is the only unauthenticated call in the application.
func Authenticate(ctx context.Context, client *http.Client, loginURL string, creds Credentials) (TokenPair, error) {
	body, err := json.Marshal(creds)
	if err != nil {
		return TokenPair{}, fmt.Errorf("encode credentials: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, loginURL, bytes.NewReader(body))
	if err != nil {
		return TokenPair{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return TokenPair{}, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return TokenPair{}, fmt.Errorf("login failed (%d): %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	var pair TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return TokenPair{}, fmt.Errorf("decode login response: %w", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		return TokenPair{}, errors.New("login response missing tokens")
	}
	return pair, nil
}
