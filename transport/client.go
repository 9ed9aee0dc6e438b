package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/worldpet/go-auth-client/credstore"
	"github.com/worldpet/go-auth-client/internal/metrics"
)

const (
	refreshPath        = "/auth/refresh"
	defaultCallTimeout = 15 * time.Second
	outcomeOK          = "ok"
)

// Client issues authenticated REST calls to the identity service. It attaches
// the stored access token to every outbound call and performs at most one
// refresh attempt per failed call; a second rejection surfaces as an
// Unauthorized error for the session manager to act on.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	creds       credstore.Repo
	log         zerolog.Logger
	metrics     *metrics.Metrics
	nowTime     func() time.Time
	refreshLock sync.Mutex
}

// Option defines a function type to modify the Client instance.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the logger (defaults to a no-op logger).
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.log = logger
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New initializes a transport client for the identity service at baseURL.
func New(baseURL string, creds credstore.Repo, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[transport.New] baseURL is required")
	}
	if creds == nil {
		return nil, errors.New("[transport.New] credential repo is required")
	}

	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultCallTimeout},
		creds:      creds,
		log:        zerolog.Nop(),
		nowTime:    time.Now,
	}
	for _, opt := range options {
		opt(client)
	}
	return client, nil
}

// Call performs an authenticated request and decodes the JSON response into
// out (when out is non-nil). Failures are returned as *Error with a Kind of
// Network, Unauthorized, ServerError or Malformed.
func (c *Client) Call(ctx context.Context, method, path string, body, out any) error {
	credential, _ := c.creds.Load()
	refreshed := false

	// A locally expired access token is refreshed up front rather than
	// burning a request that is certain to come back 401.
	if credential.AccessToken != "" && credential.RefreshToken != "" &&
		tokenExpired(credential.AccessToken, c.nowTime()) {
		if fresh, err := c.refresh(ctx, credential); err == nil {
			credential = fresh
			refreshed = true
		}
	}

	status, data, err := c.do(ctx, method, path, body, credential.AccessToken)
	if err != nil {
		c.countCall(string(KindNetwork))
		return networkError(err)
	}

	if status == http.StatusUnauthorized && !refreshed && credential.RefreshToken != "" {
		fresh, refreshErr := c.refresh(ctx, credential)
		if refreshErr == nil {
			status, data, err = c.do(ctx, method, path, body, fresh.AccessToken)
			if err != nil {
				c.countCall(string(KindNetwork))
				return networkError(err)
			}
		}
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		respErr := statusError(status, detailMessage(data))
		c.countCall(string(respErr.Kind))
		c.log.Debug().Int("status", status).Str("path", path).Msg("identity service call failed")
		return respErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			c.countCall(string(KindMalformed))
			return malformedError(errors.Wrap(err, "[Client.Call] json.Unmarshal"))
		}
	}
	c.countCall(outcomeOK)
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, accessToken string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, errors.Wrap(err, "[Client.do] json.Marshal")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, errors.Wrap(err, "[Client.do] http.NewRequestWithContext")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Wrap(err, "[Client.do] io.ReadAll")
	}
	return resp.StatusCode, data, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// refresh exchanges the refresh token for a new pair and persists it.
func (c *Client) refresh(ctx context.Context, stale credstore.Credential) (credstore.Credential, error) {
	c.refreshLock.Lock()
	defer c.refreshLock.Unlock()

	// Another caller may have rotated the pair while we waited on the lock.
	if current, ok := c.creds.Load(); ok && current.AccessToken != stale.AccessToken {
		return current, nil
	}

	status, data, err := c.do(ctx, http.MethodPost, refreshPath, refreshRequest{RefreshToken: stale.RefreshToken}, "")
	if err != nil {
		return credstore.Credential{}, networkError(err)
	}
	if status != http.StatusOK {
		return credstore.Credential{}, statusError(status, detailMessage(data))
	}

	var resp refreshResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return credstore.Credential{}, malformedError(errors.Wrap(err, "[Client.refresh] json.Unmarshal"))
	}

	fresh := credstore.Credential{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if err := c.creds.Save(fresh); err != nil {
		return credstore.Credential{}, errors.Wrap(err, "[Client.refresh] creds.Save")
	}

	if c.metrics != nil {
		c.metrics.TokenRefreshes.Inc()
	}
	c.log.Debug().Msg("access token refreshed")
	return fresh, nil
}

func (c *Client) countCall(outcome string) {
	if c.metrics != nil {
		c.metrics.TransportCalls.WithLabelValues(outcome).Inc()
	}
}

type errorBody struct {
	Detail string `json:"detail"`
}

func detailMessage(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Detail
}

// tokenExpired peeks at the access token's exp claim without verifying the
// signature. Opaque (non-JWT) tokens are assumed live and left to the server
// to reject.
func tokenExpired(raw string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return false
	}
	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return false
	}
	return !now.Before(expiry.Time)
}
