package ebay

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/riguy5000/bravo-ebay-hunter-sub000/internal/model"
)

// OAuth scope for the browse API.
const tokenScope = "https://api.ebay.com/oauth/api_scope"

// tokenRefreshMargin refreshes tokens this close to expiry.
const tokenRefreshMargin = 60 * time.Second

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// TokenCache maps app_id to a bearer token, refreshing via the
// client-credentials grant on miss or near expiry.
type TokenCache struct {
	client   *http.Client
	tokenURL string

	mu     sync.Mutex
	tokens map[string]cachedToken
	now    func() time.Time
}

func NewTokenCache(client *http.Client, tokenURL string) *TokenCache {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TokenCache{
		client:   client,
		tokenURL: tokenURL,
		tokens:   make(map[string]cachedToken),
		now:      time.Now,
	}
}

// Token returns a valid bearer token for the credential. A 401 from the
// token endpoint surfaces as AuthError; the caller is expected to disable
// the credential and may retry with another one.
func (tc *TokenCache) Token(ctx context.Context, cred model.Credential) (string, error) {
	tc.mu.Lock()
	if t, ok := tc.tokens[cred.AppID]; ok && tc.now().Before(t.expiresAt.Add(-tokenRefreshMargin)) {
		tc.mu.Unlock()
		return t.token, nil
	}
	tc.mu.Unlock()

	form := url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {tokenScope},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.tokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("ebay: build token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(cred.AppID + ":" + cred.CertID))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tc.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ebay: token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", &AuthError{AppID: cred.AppID}
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &TransientError{Status: resp.StatusCode, Body: string(body)}
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ebay: decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("ebay: token response missing access_token")
	}

	tc.mu.Lock()
	tc.tokens[cred.AppID] = cachedToken{
		token:     out.AccessToken,
		expiresAt: tc.now().Add(time.Duration(out.ExpiresIn) * time.Second),
	}
	tc.mu.Unlock()
	return out.AccessToken, nil
}

// Evict drops a credential's cached token.
func (tc *TokenCache) Evict(appID string) {
	tc.mu.Lock()
	delete(tc.tokens, appID)
	tc.mu.Unlock()
}
