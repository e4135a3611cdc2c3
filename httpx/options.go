package httpx

import (
	"time"

	"go.uber.org/zap"
)

// DefaultAddress is the loopback listen address used when none is set.
const DefaultAddress = "127.0.0.1:7480"

type ServerOptions struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Middlewares  []MiddlewareFunc
	CORSOrigins  []string
	CORS         bool
	Logger       *zap.Logger
	RateLimit    float64
}

type ServerOption func(*ServerOptions)

func defaultServerOptions() ServerOptions {
	return ServerOptions{
		Address:      DefaultAddress,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		Middlewares:  []MiddlewareFunc{RecoverMiddleware(), RequestIDMiddleware()},
	}
}

func WithAddress(addr string) ServerOption {
	return func(o *ServerOptions) {
		if addr != "" {
			o.Address = addr
		}
	}
}

// WithTimeouts bounds request reads and response writes. Batch lookups are
// paced by the outbound limiter, so the write timeout must cover a full batch.
func WithTimeouts(read, write time.Duration) ServerOption {
	return func(o *ServerOptions) {
		if read > 0 {
			o.ReadTimeout = read
		}
		if write > 0 {
			o.WriteTimeout = write
		}
	}
}

// WithCORS enables CORS for the given origins; none means any origin.
func WithCORS(origins ...string) ServerOption {
	return func(o *ServerOptions) {
		o.CORS = true
		o.CORSOrigins = append([]string(nil), origins...)
	}
}

// WithLogger enables structured request logging.
func WithLogger(logger *zap.Logger) ServerOption {
	return func(o *ServerOptions) {
		o.Logger = logger
	}
}

// WithRateLimit bounds inbound requests per client IP; 0 disables it.
func WithRateLimit(perSecond float64) ServerOption {
	return func(o *ServerOptions) {
		if perSecond >= 0 {
			o.RateLimit = perSecond
		}
	}
}

type ClientOptions struct {
	BaseURL string
	Timeout time.Duration
	Headers map[string]string
}

type ClientOption func(*ClientOptions)

func defaultClientOptions() ClientOptions {
	return ClientOptions{Timeout: 10 * time.Second, Headers: map[string]string{"Accept": "application/json"}}
}

func WithBaseURL(url string) ClientOption {
	return func(o *ClientOptions) {
		if url != "" {
			o.BaseURL = url
		}
	}
}

func WithClientTimeout(d time.Duration) ClientOption {
	return func(o *ClientOptions) {
		if d > 0 {
			o.Timeout = d
		}
	}
}

// WithHeaders replaces the default headers sent with every request.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *ClientOptions) {
		if len(headers) == 0 {
			return
		}
		o.Headers = make(map[string]string, len(headers))
		for k, v := range headers {
			o.Headers[k] = v
		}
	}
}
