package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"callspool/internal/services"
)

const (
	defaultPageSize        = 30
	defaultRequestTimeout  = 15 * time.Second
	defaultDownloadTimeout = 60 * time.Second
	defaultRetryInitial    = 1 * time.Second
	defaultRetryMaxElapsed = 30 * time.Second
)

// Config captures the runtime settings required to talk to the provider API.
type Config struct {
	BaseURL                string
	APIKey                 string
	APISecret              string
	PageSize               int
	RequestTimeoutSeconds  int
	DownloadTimeoutSeconds int
}

// Client talks to the telephony provider's recording API with exponential
// backoff on transport errors and 5xx responses. 4xx responses are permanent.
type Client struct {
	cfg            Config
	httpClient     *http.Client
	downloadClient *http.Client

	retryInitial    time.Duration
	retryMaxElapsed time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP clients.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
			c.downloadClient = client
		}
	}
}

// WithRetryBackoff overrides the retry intervals (useful for tests).
func WithRetryBackoff(initial, maxElapsed time.Duration) Option {
	return func(c *Client) {
		c.retryInitial = initial
		c.retryMaxElapsed = maxElapsed
	}
}

// NewClient constructs a provider client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	requestTimeout := defaultRequestTimeout
	if cfg.RequestTimeoutSeconds > 0 {
		requestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	}
	downloadTimeout := defaultDownloadTimeout
	if cfg.DownloadTimeoutSeconds > 0 {
		downloadTimeout = time.Duration(cfg.DownloadTimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:                strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:                 strings.TrimSpace(cfg.APIKey),
			APISecret:              strings.TrimSpace(cfg.APISecret),
			PageSize:               cfg.PageSize,
			RequestTimeoutSeconds:  cfg.RequestTimeoutSeconds,
			DownloadTimeoutSeconds: cfg.DownloadTimeoutSeconds,
		},
		httpClient:      &http.Client{Timeout: requestTimeout},
		downloadClient:  &http.Client{Timeout: downloadTimeout},
		retryInitial:    defaultRetryInitial,
		retryMaxElapsed: defaultRetryMaxElapsed,
	}
	if client.cfg.PageSize <= 0 {
		client.cfg.PageSize = defaultPageSize
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// PageSize returns the listing page size the client requests.
func (c *Client) PageSize() int {
	return c.cfg.PageSize
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("provider request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// ListRecordings returns one page of recordings whose start time falls in
// [from, to]. Pages are 1-based.
func (c *Client) ListRecordings(ctx context.Context, from, to time.Time, page int) (*Page, error) {
	if c.cfg.BaseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "provider", "list", "base url required", nil)
	}
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "provider", "list", "api key required", nil)
	}
	if page < 1 {
		page = 1
	}

	endpoint := c.cfg.BaseURL + "/recordings"
	query := url.Values{}
	query.Set("from", from.UTC().Format(time.RFC3339))
	query.Set("to", to.UTC().Format(time.RFC3339))
	query.Set("page", strconv.Itoa(page))
	query.Set("pageSize", strconv.Itoa(c.cfg.PageSize))

	operation := func() (*Page, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("provider list: new request: %w", err))
		}
		c.authorize(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("provider list: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("provider list: read body: %w", err)
		}
		if err := classifyStatus(resp.StatusCode, body); err != nil {
			return nil, err
		}

		var result Page
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, backoff.Permanent(fmt.Errorf("provider list: decode response: %w", err))
		}
		return &result, nil
	}

	result, err := backoff.RetryWithData(operation, c.newBackOff(ctx))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "provider", "list",
			fmt.Sprintf("page %d", page), err)
	}
	return result, nil
}

// Download streams the recording bytes behind a listing item's URL.
func (c *Client) Download(ctx context.Context, downloadURL string) (io.ReadCloser, error) {
	if strings.TrimSpace(downloadURL) == "" {
		return nil, services.Wrap(services.ErrValidation, "provider", "download", "url required", nil)
	}

	operation := func() (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("provider download: new request: %w", err))
		}
		c.authorize(req)

		resp, err := c.downloadClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("provider download: %w", err)
		}
		if resp.StatusCode >= http.StatusMultipleChoices {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			resp.Body.Close()
			return nil, classifyStatus(resp.StatusCode, body)
		}
		return resp.Body, nil
	}

	body, err := backoff.RetryWithData(operation, c.newBackOff(ctx))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalService, "provider", "download", "", err)
	}
	return body, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if c.cfg.APISecret != "" {
		req.Header.Set("X-Api-Secret", c.cfg.APISecret)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOffContext {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInitial
	bo.MaxElapsedTime = c.retryMaxElapsed
	return backoff.WithContext(bo, ctx)
}

// classifyStatus returns nil for success, a retryable error for 5xx and 429,
// and a permanent error for other 4xx responses.
func classifyStatus(statusCode int, body []byte) error {
	switch {
	case statusCode < http.StatusMultipleChoices:
		return nil
	case statusCode >= http.StatusInternalServerError, statusCode == http.StatusTooManyRequests:
		return &httpStatusError{StatusCode: statusCode, Body: string(body)}
	default:
		return backoff.Permanent(&httpStatusError{StatusCode: statusCode, Body: string(body)})
	}
}

// IsPermanent reports whether an error came back from the provider as a
// non-retryable 4xx response.
func IsPermanent(err error) bool {
	var statusErr *httpStatusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.StatusCode >= http.StatusBadRequest &&
		statusErr.StatusCode < http.StatusInternalServerError &&
		statusErr.StatusCode != http.StatusTooManyRequests
}
