// Package tmdb fetches records from TMDB's /find endpoint through a shared
// rate limiter, a retry policy and a record cache.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adeilh/metafetch/httpx"
	"github.com/adeilh/metafetch/ratelimit"
	"github.com/adeilh/metafetch/retry"
)

const (
	DefaultBaseURL  = "https://api.themoviedb.org/3"
	DefaultLanguage = "it-IT"
	DefaultSource   = "imdb_id"
	DefaultTimeout  = 10 * time.Second

	// IDField is the record key that carries the queried identifier.
	IDField = "imdb_id"

	userAgent = "metafetch/1"
)

// Record is a decoded /find payload. It is JSON-compatible and always holds
// the queried identifier under IDField.
type Record map[string]any

// ID returns the identifier injected into the record.
func (r Record) ID() string {
	s, _ := r[IDField].(string)
	return s
}

// Acquirer blocks until the caller may issue a request.
type Acquirer interface {
	Acquire(ctx context.Context) error
}

// RecordCache is the subset of cache.Cache[Record] the fetcher needs.
type RecordCache interface {
	Get(ctx context.Context, key string) (Record, bool)
	Set(ctx context.Context, key string, value Record)
}

type options struct {
	baseURL  string
	apiKey   string
	language string
	timeout  time.Duration
	policy   retry.Policy
	logger   *zap.Logger
	sleep    func(context.Context, time.Duration) error
}

// Option configures a Fetcher.
type Option func(*options)

func WithBaseURL(u string) Option {
	return func(o *options) {
		if u = strings.TrimSpace(u); u != "" {
			o.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithAPIKey sets the credential sent as api_key. An empty key is allowed;
// TMDB then rejects every request with 401.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = strings.TrimSpace(key) }
}

func WithLanguage(lang string) Option {
	return func(o *options) {
		if lang = strings.TrimSpace(lang); lang != "" {
			o.language = lang
		}
	}
}

// WithTimeout bounds every attempt. A timed out attempt is retried.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func WithPolicy(p retry.Policy) Option {
	return func(o *options) { o.policy = p }
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Fetcher resolves one identifier at a time. It is safe for concurrent use;
// the limiter and cache are shared across goroutines.
type Fetcher struct {
	client  *httpx.Client
	limiter Acquirer
	cache   RecordCache
	opts    options
	now     func() time.Time
}

// NewFetcher wires a fetcher to the shared limiter and cache. Both are required.
func NewFetcher(limiter Acquirer, cache RecordCache, opts ...Option) (*Fetcher, error) {
	if limiter == nil {
		return nil, fmt.Errorf("tmdb: limiter is required")
	}
	if cache == nil {
		return nil, fmt.Errorf("tmdb: cache is required")
	}
	cfg := options{
		baseURL:  DefaultBaseURL,
		language: DefaultLanguage,
		timeout:  DefaultTimeout,
		policy:   retry.DefaultPolicy(),
		logger:   zap.NewNop(),
		sleep:    ratelimit.SleepWithContext,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	client := httpx.NewClient(
		httpx.WithBaseURL(cfg.baseURL),
		httpx.WithClientTimeout(cfg.timeout),
		httpx.WithHeaders(map[string]string{"Accept": "application/json", "User-Agent": userAgent}),
	)
	return &Fetcher{client: client, limiter: limiter, cache: cache, opts: cfg, now: time.Now}, nil
}

// HasAPIKey reports whether a credential is configured.
func (f *Fetcher) HasAPIKey() bool { return f.opts.apiKey != "" }

// Fetch returns the record for id, looked up in the given source namespace.
// The second result is false when the lookup failed for any reason; failures
// are logged, never returned, and never cached. A blank source means
// DefaultSource.
func (f *Fetcher) Fetch(ctx context.Context, id, source string) (Record, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}
	if rec, ok := f.cache.Get(ctx, id); ok {
		return rec, true
	}
	source = strings.TrimSpace(source)
	if source == "" {
		source = DefaultSource
	}

	log := f.opts.logger.With(zap.String("id", id), zap.String("source", source))
	m := retry.NewMachine(f.opts.policy)
	for m.Begin() {
		if err := f.limiter.Acquire(ctx); err != nil {
			log.Debug("tmdb fetch cancelled", zap.Int("attempt", m.Attempt()), zap.Error(err))
			return nil, false
		}

		rec, sig, status, err := f.attempt(ctx, id, source)
		switch m.Observe(sig) {
		case retry.Succeeded:
			f.cache.Set(ctx, id, rec)
			log.Debug("tmdb fetch succeeded", zap.Int("attempt", m.Attempt()), zap.Int("status", status))
			return rec, true
		case retry.Exhausted:
			log.Warn("tmdb fetch failed",
				zap.Int("attempt", m.Attempt()),
				zap.Int("status", status),
				zap.String("outcome", m.Last().String()),
				zap.Error(err),
			)
			return nil, false
		case retry.Waiting:
			log.Info("tmdb fetch retrying",
				zap.Int("attempt", m.Attempt()),
				zap.Int("status", status),
				zap.String("outcome", m.Last().String()),
				zap.Duration("delay", m.Delay()),
				zap.Error(err),
			)
			if err := f.opts.sleep(ctx, m.Delay()); err != nil {
				return nil, false
			}
		}
	}
	return nil, false
}

// attempt issues one request and classifies it. status is 0 when no HTTP
// answer was received.
func (f *Fetcher) attempt(ctx context.Context, id, source string) (Record, retry.Signal, int, error) {
	query := map[string]string{
		"external_source": source,
		"language":        f.opts.language,
		"api_key":         f.opts.apiKey,
	}
	resp, err := f.client.Get(ctx, "/find/{id}", nil,
		httpx.WithRawPathParams(map[string]string{"id": url.PathEscape(id)}),
		httpx.WithQuery(query),
	)
	if !httpx.HasResponse(resp) {
		if err == nil {
			err = fmt.Errorf("tmdb: empty response")
		}
		return nil, retry.TransportError(), 0, err
	}

	status := resp.StatusCode()
	sig := retry.FromStatus(status, resp.Header(), f.now())
	if sig.Outcome != retry.OutcomeSuccess {
		return nil, sig, status, err
	}

	var rec Record
	if err := json.Unmarshal(resp.Body(), &rec); err != nil {
		return nil, retry.TransportError(), status, fmt.Errorf("decode tmdb response: %w", err)
	}
	if rec == nil {
		return nil, retry.TransportError(), status, fmt.Errorf("decode tmdb response: body is not an object")
	}
	rec[IDField] = id
	return rec, sig, status, nil
}
