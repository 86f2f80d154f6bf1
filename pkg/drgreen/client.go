package drgreen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/greengate/pkg/config"
	pkgerrors "github.com/angelmondragon/greengate/pkg/errors"
	"github.com/angelmondragon/greengate/pkg/logger"
	"github.com/angelmondragon/greengate/pkg/metrics"
)

const (
	defaultBaseURL       = "https://api.drgreennft.com/api/v1"
	defaultTimeout       = 20 * time.Second
	responseReadLimit    = 4 << 20
	defaultRequestAction = "unknown"
)

// Request is one logical upstream call. Action only labels logs and metrics.
type Request struct {
	Action string
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// Response is a successful (2xx) upstream response.
type Response struct {
	Status int
	Body   []byte
}

// Payload normalizes the response body.
func (r *Response) Payload() Payload {
	if r == nil {
		return Payload{Kind: KindEmpty}
	}
	return Normalize(r.Body)
}

// Doer is the surface consumed by the proxy, reconciler and sync jobs.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// Client signs and sends requests to the Dr. Green API under a RetryPolicy.
type Client struct {
	httpClient *http.Client
	baseURL    string
	signer     *Signer
	policy     RetryPolicy
	logg       *logger.Logger
	metrics    *metrics.UpstreamMetrics
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithRetryPolicy replaces the retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

func WithLogger(logg *logger.Logger) Option {
	return func(c *Client) {
		c.logg = logg
	}
}

func WithMetrics(m *metrics.UpstreamMetrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient builds a client around an already validated signer.
func NewClient(signer *Signer, opts ...Option) (*Client, error) {
	if signer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "drgreen signer is required")
	}
	client := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    defaultBaseURL,
		signer:     signer,
		policy:     DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// NewFromConfig builds the signer, retry policy and HTTP client from config.
func NewFromConfig(cfg config.DrGreenConfig, opts ...Option) (*Client, error) {
	signer, err := NewSigner(cfg.APIKey, cfg.SecretKey, KeyEncoding(cfg.KeyEncoding))
	if err != nil {
		return nil, err
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := []Option{
		WithBaseURL(cfg.BaseURL),
		WithHTTPClient(&http.Client{Timeout: timeout}),
		WithRetryPolicy(RetryPolicyFromConfig(cfg)),
	}
	return NewClient(signer, append(base, opts...)...)
}

// Do signs req and executes it. Non-2xx responses and transport failures are
// returned as CodeUpstream errors wrapping an *UpstreamError or the transport
// error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "drgreen client not configured")
	}
	action := req.Action
	if action == "" {
		action = defaultRequestAction
	}
	method := strings.ToUpper(strings.TrimSpace(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	query := CanonicalQuery(req.Query)
	var payload []byte
	var body []byte
	if method == http.MethodGet || method == http.MethodDelete {
		payload = []byte(query)
	} else {
		encoded, err := CanonicalBody(req.Body)
		if err != nil {
			return nil, err
		}
		payload, body = encoded, encoded
	}

	headers, err := c.signer.Headers(payload)
	if err != nil {
		return nil, err
	}
	endpoint := c.buildURL(req.Path, query)

	var resp *Response
	hook := func(attempt int, delay time.Duration, lastErr error) {
		c.metrics.IncRetry(action)
		if c.logg == nil {
			return
		}
		retryCtx := c.logg.WithFields(ctx, map[string]any{
			"action":   action,
			"attempt":  attempt + 1,
			"delay_ms": delay.Milliseconds(),
		})
		c.logg.Warn(retryCtx, fmt.Sprintf("drgreen request retrying: %s", logger.RedactText(lastErr.Error())))
	}

	err = c.policy.Do(ctx, func(ctx context.Context) error {
		httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader(body))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build drgreen request")
		}
		for key, values := range headers {
			for _, value := range values {
				httpReq.Header.Add(key, value)
			}
		}
		httpReq.Header.Set("Accept", "application/json")
		if body != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}

		res, err := c.httpClient.Do(httpReq)
		if err != nil {
			return err
		}
		defer func() { _ = res.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(res.Body, responseReadLimit))
		if err != nil {
			return err
		}
		if res.StatusCode < 200 || res.StatusCode > 299 {
			return &UpstreamError{Method: method, Path: req.Path, Status: res.StatusCode, Body: data}
		}
		resp = &Response{Status: res.StatusCode, Body: data}
		return nil
	}, hook)

	if err != nil {
		outcome := metrics.OutcomeTerminal
		if IsRetryableError(err) {
			outcome = metrics.OutcomeRetryable
		}
		c.metrics.IncRequest(action, outcome)
		return nil, wrapFailure(err, action)
	}
	c.metrics.IncRequest(action, metrics.OutcomeSuccess)
	return resp, nil
}

func bodyReader(body []byte) io.Reader {
	if body == nil {
		return nil
	}
	return bytes.NewReader(body)
}

func (c *Client) buildURL(path, query string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	endpoint := fmt.Sprintf("%s/%s", trimmed, path)
	if query != "" {
		endpoint += "?" + query
	}
	return endpoint
}
