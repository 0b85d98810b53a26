package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	resty "resty.dev/v3"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultRetryAttempts = 3
	defaultRetryWait     = 500 * time.Millisecond
	defaultRetryMaxWait  = 10 * time.Second
)

// Option customizes the client.
type Option func(*Client)

// WithRetryMaxAttempts overrides how many times a failed call is retried.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts >= 0 {
			c.retryAttempts = attempts
		}
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(wait, maxWait time.Duration) Option {
	return func(c *Client) {
		if wait > 0 {
			c.retryWait = wait
		}
		if maxWait > 0 {
			c.retryMaxWait = maxWait
		}
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithAuthToken sets the bearer token sent with every request. The token is
// passed through opaquely; the client never inspects it.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = token
	}
}

// Client is the HTTP implementation of Service.
type Client struct {
	http    *resty.Client
	baseURL string

	timeout       time.Duration
	retryAttempts int
	retryWait     time.Duration
	retryMaxWait  time.Duration
	authToken     string
}

// NewClient constructs a release service client for the given API base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		timeout:       defaultTimeout,
		retryAttempts: defaultRetryAttempts,
		retryWait:     defaultRetryWait,
		retryMaxWait:  defaultRetryMaxWait,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = resty.New().
		SetBaseURL(c.baseURL).
		SetTimeout(c.timeout).
		SetRetryCount(c.retryAttempts).
		SetRetryWaitTime(c.retryWait).
		SetRetryMaxWaitTime(c.retryMaxWait).
		SetAllowNonIdempotentRetry(true).
		AddRetryConditions(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() >= http.StatusInternalServerError
		})
	if c.authToken != "" {
		c.http.SetAuthToken(c.authToken)
	}
	return c
}

// Close releases the underlying transport resources.
func (c *Client) Close() error {
	return c.http.Close()
}

type createReleaseRequest struct {
	Tag        string `json:"tag_name"`
	Draft      bool   `json:"draft"`
	Prerelease bool   `json:"prerelease"`
}

// CreateRelease creates a hosted release record for the tag. The record is
// created in whatever draft/prerelease state is requested and never
// transitioned further by this client.
func (c *Client) CreateRelease(ctx context.Context, tag string, draft, prerelease bool) (*ReleaseRecord, error) {
	var record ReleaseRecord
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(createReleaseRequest{Tag: tag, Draft: draft, Prerelease: prerelease}).
		SetResult(&record).
		Post("/releases")
	if err != nil {
		return nil, &Error{Op: "create release", Err: err}
	}
	if resp.IsError() {
		return nil, &Error{Op: "create release", Status: resp.StatusCode(), Err: errors.New(resp.String())}
	}
	if record.UploadURL == "" {
		return nil, &Error{Op: "create release", Err: errors.New("response missing upload_url")}
	}
	return &record, nil
}

// PublishArtifact uploads a named artifact blob for later stages to fetch.
func (c *Client) PublishArtifact(ctx context.Context, name string, payload []byte) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(payload).
		Put("/artifacts/" + name)
	if err != nil {
		return &Error{Op: "publish artifact", Err: err}
	}
	if resp.IsError() {
		return &Error{Op: "publish artifact", Status: resp.StatusCode(), Err: errors.New(resp.String())}
	}
	return nil
}

// FetchArtifact downloads a previously published artifact blob.
func (c *Client) FetchArtifact(ctx context.Context, name string) ([]byte, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/artifacts/" + name)
	if err != nil {
		return nil, &Error{Op: "fetch artifact", Err: err}
	}
	if resp.IsError() {
		return nil, &Error{Op: "fetch artifact", Status: resp.StatusCode(), Err: errors.New(resp.String())}
	}
	return resp.Bytes(), nil
}

// UploadAsset attaches a packaged binary to the release identified by
// uploadURL. The URL comes from the release record and is absolute, so it
// overrides the client's base URL.
func (c *Client) UploadAsset(ctx context.Context, uploadURL, assetPath, assetName, contentType string) error {
	data, err := os.ReadFile(assetPath)
	if err != nil {
		return &Error{Op: "upload asset", Err: fmt.Errorf("read %s: %w", assetPath, err)}
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", contentType).
		SetQueryParam("name", assetName).
		SetBody(data).
		Post(uploadURL)
	if err != nil {
		return &Error{Op: "upload asset", Err: err}
	}
	if resp.IsError() {
		return &Error{Op: "upload asset", Status: resp.StatusCode(), Err: errors.New(resp.String())}
	}
	return nil
}
