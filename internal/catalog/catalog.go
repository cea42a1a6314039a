// package catalog implements a thin retrying client for the music catalog API.
//
// Reads degrade to empty results on upstream failure; callers must treat
// "no data" as a valid outcome. Credential acquisition failures are the one
// exception and propagate, since nothing downstream can proceed without a
// bearer token.
package catalog

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL     = "https://api.spotify.com/v1"
	defaultAccountsURL = "https://accounts.spotify.com/api/token"

	// Expiry safety margin: a token within this window of expiring is
	// treated as already expired so in-flight requests don't race it.
	tokenSafetyMargin = 30 * time.Second

	maxRetries  = 3
	baseBackoff = 500 * time.Millisecond

	pageSize = 50
)

// Client issues authenticated search and fetch calls against the catalog API.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	accountsURL  string
	httpClient   *http.Client
	limiter      *rate.Limiter
	logger       *log.Logger

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	flight      singleflight.Group
}

// Opts contains construction options for a Client.
type Opts struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	AccountsURL  string
	HTTPClient   *http.Client
	Logger       *log.Logger
}

// NewClient creates a catalog Client.
//
// Missing credentials are not an error: the client reports itself
// unavailable and every read returns empty until credentials appear.
func NewClient(opts Opts) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.AccountsURL == "" {
		opts.AccountsURL = defaultAccountsURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Client{
		clientID:     opts.ClientID,
		clientSecret: opts.ClientSecret,
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		accountsURL:  opts.AccountsURL,
		httpClient:   opts.HTTPClient,
		limiter:      rate.NewLimiter(rate.Limit(10), 10),
		logger:       opts.Logger.With("component", "catalog"),
	}
}

// Available reports whether catalog credentials are configured.
func (c *Client) Available() bool {
	return c.clientID != "" && c.clientSecret != ""
}

// AccessToken returns a cached client-credentials bearer token, fetching a
// new one when the cache is empty or within the expiry safety margin.
//
// Concurrent callers share a single in-flight acquisition; exactly one
// upstream token request is issued no matter how many callers race it.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("%w: catalog client credentials not configured", shared.ErrMissingCredentials)
	}

	c.mu.Lock()
	if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenSafetyMargin)) {
		token := c.token
		c.mu.Unlock()
		return token, nil
	}
	c.mu.Unlock()

	result, err, _ := c.flight.Do("token", func() (any, error) {
		// Re-check under the flight: a caller that lost the race to an
		// acquisition that just completed should reuse its result.
		c.mu.Lock()
		if c.token != "" && time.Now().Before(c.tokenExpiry.Add(-tokenSafetyMargin)) {
			token := c.token
			c.mu.Unlock()
			return token, nil
		}
		c.mu.Unlock()

		return c.fetchToken(ctx)
	})
	if err != nil {
		return "", err
	}

	return result.(string), nil
}

func (c *Client) fetchToken(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.accountsURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}

	basic := base64.StdEncoding.EncodeToString([]byte(c.clientID + ":" + c.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: token request: %v", shared.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: token endpoint returned status %d", shared.ErrAuthFailed, resp.StatusCode)
	}

	var parsed tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: failed to decode token response: %v", shared.ErrAuthFailed, err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("%w: token endpoint returned empty token", shared.ErrAuthFailed)
	}

	c.mu.Lock()
	c.token = parsed.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(parsed.ExpiresIn) * time.Second)
	c.mu.Unlock()

	return parsed.AccessToken, nil
}

// doRequest performs an authenticated request against the catalog API,
// decoding the JSON response into result when provided.
//
// 429 and 5xx responses are retried with exponential backoff, honoring
// Retry-After when the upstream supplies one.
func (c *Client) doRequest(ctx context.Context, method, endpoint, bearer string, body, result any) error {
	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http") {
		apiURL = c.baseURL + endpoint
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	var lastStatus int
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("request canceled: %w", err)
		}

		var reader *bytes.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		var req *http.Request
		var err error
		if reader != nil {
			req, err = http.NewRequestWithContext(ctx, method, apiURL, reader)
		} else {
			req, err = http.NewRequestWithContext(ctx, method, apiURL, nil)
		}
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+bearer)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.logger.Warn("catalog request failed", "attempt", attempt+1, "error", err)
			if err := sleepWithContext(ctx, backoffFor(attempt, 0)); err != nil {
				return err
			}
			continue
		}

		retryAfter, retry := shouldRetry(resp)
		if retry {
			lastStatus = resp.StatusCode
			resp.Body.Close()
			c.logger.Warn("catalog request retrying", "attempt", attempt+1, "status", resp.StatusCode)
			if err := sleepWithContext(ctx, backoffFor(attempt, retryAfter)); err != nil {
				return err
			}
			continue
		}

		defer resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized {
			c.mu.Lock()
			c.token = ""
			c.mu.Unlock()
			return fmt.Errorf("%w: catalog returned status 401", shared.ErrTokenExpired)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
		}

		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
		}

		return nil
	}

	if lastStatus == http.StatusTooManyRequests {
		return fmt.Errorf("%w: status 429 after %d attempts", shared.ErrRateLimited, maxRetries)
	}
	return fmt.Errorf("%w: gave up after %d attempts", shared.ErrAPIRequest, maxRetries)
}

// get issues an app-authenticated GET, acquiring the client token first.
func (c *Client) get(ctx context.Context, endpoint string, result any) error {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return err
	}
	return c.doRequest(ctx, http.MethodGet, endpoint, token, nil, result)
}

func shouldRetry(resp *http.Response) (time.Duration, bool) {
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp), true
	}
	return 0, false
}

func parseRetryAfter(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if when, err := http.ParseTime(retryAfter); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}

	return 0
}

func backoffFor(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	return baseBackoff * time.Duration(1<<attempt)
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("request canceled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
