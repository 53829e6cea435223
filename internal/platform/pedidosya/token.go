package pedidosya

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Access tokens are refreshed this long before they expire so an in-flight
// call never races the expiry.
const refreshMargin = 5 * time.Minute

// tokenSource lazily fetches and caches the OAuth client-credentials token.
// Callers outside the adapter never see the token.
type tokenSource struct {
	authURL      string
	clientID     string
	clientSecret string
	http         *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func newTokenSource(authURL, clientID, clientSecret string, client *http.Client) *tokenSource {
	return &tokenSource{
		authURL:      authURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         client,
	}
}

// Token returns a valid access token, fetching a fresh one when the cached
// token is absent or inside the refresh margin.
func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expiresAt.Add(-refreshMargin)) {
		return t.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", t.clientID)
	form.Set("client_secret", t.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty access token")
	}

	t.token = payload.AccessToken
	t.expiresAt = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	return t.token, nil
}

// Invalidate drops the cached token so the next call re-authenticates.
func (t *tokenSource) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ""
	t.expiresAt = time.Time{}
}
