package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/sync/singleflight"
)

// Manager hands out per-session token sources. Concurrent 401s on the same
// session collapse into a single refresh call via singleflight; every caller
// gets the access token produced by that one call.
type Manager struct {
	refreshURL string
	client     *http.Client
	store      Store
	group      singleflight.Group
}

func NewManager(refreshURL string, client *http.Client, store Store) *Manager {
	if client == nil {
		client = http.DefaultClient
	}
	return &Manager{refreshURL: refreshURL, client: client, store: store}
}

// Source returns the token source bound to a session id.
func (m *Manager) Source(sessionID string) TokenSource {
	return &sessionSource{m: m, sid: sessionID}
}

type sessionSource struct {
	m   *Manager
	sid string
}

func (s *sessionSource) Token(ctx context.Context) (string, error) {
	pair, err := s.m.store.LoadPair(ctx, s.sid)
	if err != nil {
		return "", err
	}
	return pair.AccessToken, nil
}

func (s *sessionSource) Refresh(ctx context.Context) (string, error) {
	return s.m.refresh(ctx, s.sid)
}

func (m *Manager) refresh(ctx context.Context, sid string) (string, error) {
	v, err, _ := m.group.Do(sid, func() (any, error) {
		pair, err := m.store.LoadPair(ctx, sid)
		if err != nil {
			return "", err
		}
		fresh, err := m.callRefresh(ctx, pair.RefreshToken)
		if err != nil {
			return "", err
		}
		if err := m.store.SavePair(ctx, sid, fresh); err != nil {
			return "", fmt.Errorf("persist refreshed tokens: %w", err)
		}
		return fresh.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *Manager) callRefresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	body, err := json.Marshal(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return TokenPair{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.refreshURL, bytes.NewReader(body))
	if err != nil {
		return TokenPair{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := m.client.Do(req)
	if err != nil {
		return TokenPair{}, fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		// Refresh token revoked or expired: the session is dead.
		return TokenPair{}, ErrNoSession
	}
	if resp.StatusCode != http.StatusOK {
		return TokenPair{}, fmt.Errorf("refresh failed: status %d", resp.StatusCode)
	}
	var pair TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return TokenPair{}, fmt.Errorf("decode refresh response: %w", err)
	}
	if pair.AccessToken == "" {
		return TokenPair{}, fmt.Errorf("refresh response missing access token")
	}
	if pair.RefreshToken == "" {
		// Backend may rotate only the access token.
		pair.RefreshToken = refreshToken
	}
	return pair, nil
}
