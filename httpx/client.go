package httpx

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

// Response is the resty response returned by Client calls.
type Response = resty.Response

// Client is a JSON API client bound to one base URL.
type Client struct {
	resty *resty.Client
}

func NewClient(opts ...ClientOption) *Client {
	cfg := defaultClientOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	rc := resty.New()
	if cfg.BaseURL != "" {
		rc.SetBaseURL(cfg.BaseURL)
	}
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	if len(cfg.Headers) > 0 {
		rc.SetHeaders(cfg.Headers)
	}
	return &Client{resty: rc}
}

type RequestOption func(*resty.Request)

func WithRequestHeaders(headers map[string]string) RequestOption {
	return func(r *resty.Request) {
		if len(headers) > 0 {
			r.SetHeaders(headers)
		}
	}
}

// WithQuery sets query parameters on the request. Empty values are dropped.
func WithQuery(params map[string]string) RequestOption {
	return func(r *resty.Request) {
		for k, v := range params {
			if v == "" {
				continue
			}
			r.SetQueryParam(k, v)
		}
	}
}

// WithPathParams fills `{name}` placeholders in the request path, escaping values.
func WithPathParams(params map[string]string) RequestOption {
	return func(r *resty.Request) {
		if len(params) > 0 {
			r.SetPathParams(params)
		}
	}
}

// WithRawPathParams fills `{name}` placeholders verbatim; callers escape.
func WithRawPathParams(params map[string]string) RequestOption {
	return func(r *resty.Request) {
		if len(params) > 0 {
			r.SetRawPathParams(params)
		}
	}
}

func (c *Client) Get(ctx context.Context, path string, result any, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, resty.MethodGet, path, nil, result, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body any, result any, opts ...RequestOption) (*Response, error) {
	return c.do(ctx, resty.MethodPost, path, body, result, opts...)
}

// do returns the response alongside any error so callers can inspect the
// status of failed calls. A nil RawResponse means the request never got an
// HTTP answer (timeout, connection failure).
func (c *Client) do(ctx context.Context, method, path string, body any, result any, opts ...RequestOption) (*Response, error) {
	req := c.resty.R().SetContext(ctx)
	for _, opt := range opts {
		if opt != nil {
			opt(req)
		}
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json")
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return resp, err
	}
	if resp.IsError() {
		return resp, fmt.Errorf("http %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return resp, nil
}
