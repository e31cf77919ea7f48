package graph

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

const (
	// graphScope is the client-credentials scope for the Graph API.
	graphScope = "https://graph.microsoft.com/.default"

	// tokenExpiryBuffer is taken off the lifetime Entra ID reports. A
	// submission that starts just inside the window still fetches a new
	// token instead of racing the expiry during sendMail.
	tokenExpiryBuffer = 5 * time.Minute

	// maxTokenResponse bounds how much of the token endpoint reply is read.
	maxTokenResponse = 64 << 10
)

// credentials is the app registration used for the client-credentials grant.
type credentials struct {
	tokenURL     string
	clientID     string
	clientSecret string
}

func (c credentials) form() url.Values {
	return url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"scope":         {graphScope},
	}
}

// tokenCache keeps one app-only token for the whole relay. Every form
// submission routed to Graph borrows it; the first submission after expiry,
// or after sendMail answered 401, pays for the round trip to Entra ID while
// the others wait on the lock.
type tokenCache struct {
	creds      credentials
	httpClient *http.Client
	now        func() time.Time

	mu      sync.Mutex
	current string
	renewAt time.Time
}

func newTokenCache(tokenURL, clientID, clientSecret string, httpClient *http.Client) *tokenCache {
	return &tokenCache{
		creds:      credentials{tokenURL: tokenURL, clientID: clientID, clientSecret: clientSecret},
		httpClient: httpClient,
		now:        time.Now,
	}
}

// Token returns the shared bearer token for sendMail.
func (tc *tokenCache) Token(ctx context.Context) (string, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.current != "" && tc.now().Before(tc.renewAt) {
		return tc.current, nil
	}

	resp, err := tc.requestToken(ctx)
	if err != nil {
		return "", err
	}
	tc.current = resp.AccessToken
	tc.renewAt = tc.now().Add(time.Duration(resp.ExpiresIn)*time.Second - tokenExpiryBuffer)
	return tc.current, nil
}

// Invalidate forgets the shared token. Graph calls it when sendMail rejects
// the token, e.g. after the client secret was rotated.
func (tc *tokenCache) Invalidate() {
	tc.mu.Lock()
	tc.current = ""
	tc.renewAt = time.Time{}
	tc.mu.Unlock()
}

// requestToken runs the client-credentials grant against Entra ID.
func (tc *tokenCache) requestToken(ctx context.Context) (*tokenResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.creds.tokenURL,
		strings.NewReader(tc.creds.form().Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponse))
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var tokenErr tokenErrorResponse
		if json.Unmarshal(body, &tokenErr) == nil && tokenErr.Error != "" {
			return nil, fmt.Errorf("token endpoint returned %d: %s: %s",
				resp.StatusCode, tokenErr.Error, tokenErr.Description)
		}
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var out tokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("token response missing access_token")
	}
	return &out, nil
}
