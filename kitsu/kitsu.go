// Package kitsu resolves Kitsu anime ids to IMDB ids, first from a preloaded
// mapping table and then with a single call to the Kitsu Stremio addon.
package kitsu

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/adeilh/metafetch/cache"
	"github.com/adeilh/metafetch/httpx"
	"github.com/adeilh/metafetch/mapping"
)

const (
	DefaultAddonURL      = "https://anime-kitsu.strem.fun"
	DefaultTimeout       = 20 * time.Second
	DefaultUnresolvedTTL = 24 * time.Hour

	// Prefix namespaces Kitsu ids in the shared cache.
	Prefix = "kitsu:"

	userAgent = "metafetch/1"
)

// Resolution is the outcome of a lookup. When Resolved is false, ID is the
// normalized Kitsu id that was asked for.
type Resolution struct {
	ID       string `json:"id" msgpack:"id" cbor:"id"`
	Resolved bool   `json:"resolved" msgpack:"resolved" cbor:"resolved"`
}

// Key normalizes a Kitsu id to "kitsu:<n>". Ids already carrying the prefix
// are returned trimmed.
func Key(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(id), Prefix) {
		return Prefix + strings.TrimSpace(id[len(Prefix):])
	}
	return Prefix + id
}

type options struct {
	addonURL      string
	timeout       time.Duration
	unresolvedTTL time.Duration
	logger        *zap.Logger
}

type Option func(*options)

func WithAddonURL(u string) Option {
	return func(o *options) {
		if u = strings.TrimSpace(u); u != "" {
			o.addonURL = strings.TrimRight(u, "/")
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithUnresolvedTTL sets how long a failed lookup is remembered.
func WithUnresolvedTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.unresolvedTTL = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Resolver is safe for concurrent use.
type Resolver struct {
	cache  *cache.Cache[Resolution]
	client *httpx.Client
	opts   options
}

func NewResolver(c *cache.Cache[Resolution], opts ...Option) (*Resolver, error) {
	if c == nil {
		return nil, fmt.Errorf("kitsu: cache is required")
	}
	cfg := options{
		addonURL:      DefaultAddonURL,
		timeout:       DefaultTimeout,
		unresolvedTTL: DefaultUnresolvedTTL,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	client := httpx.NewClient(
		httpx.WithBaseURL(cfg.addonURL),
		httpx.WithClientTimeout(cfg.timeout),
		httpx.WithHeaders(map[string]string{"Accept": "application/json", "User-Agent": userAgent}),
	)
	return &Resolver{cache: c, client: client, opts: cfg}, nil
}

// Preload stores every pair from src as a resolved entry that never expires
// and returns how many were stored. Existing entries are overwritten, nothing
// is cleared.
func (r *Resolver) Preload(ctx context.Context, src mapping.Source) (int, error) {
	pairs, err := src.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("kitsu: preload: %w", err)
	}
	n := 0
	for kitsuID, imdbID := range pairs {
		key := Key(kitsuID)
		if key == "" || imdbID == "" {
			continue
		}
		r.cache.SetWithTTL(ctx, key, Resolution{ID: imdbID, Resolved: true}, 0)
		n++
	}
	r.opts.logger.Info("kitsu mapping preloaded", zap.Int("entries", n))
	return n, nil
}

// Resolve returns the IMDB id for a Kitsu id. mediaType is the addon catalog
// type ("series", "movie"). Failures are never returned as errors: they yield
// an unresolved Resolution that is cached for the unresolved TTL. A lookup
// cut short by ctx, or skipped because mediaType is blank, is not cached.
func (r *Resolver) Resolve(ctx context.Context, kitsuID, mediaType string) Resolution {
	key := Key(kitsuID)
	if key == "" {
		return Resolution{}
	}
	if res, ok := r.cache.Get(ctx, key); ok {
		return res
	}
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		// Caller error: no lookup was attempted, so nothing is cached.
		return Resolution{ID: key}
	}

	imdbID, err := r.lookup(ctx, key, mediaType)
	if err != nil {
		if ctx.Err() != nil {
			return Resolution{ID: key}
		}
		r.opts.logger.Info("kitsu lookup failed",
			zap.String("id", key),
			zap.String("type", mediaType),
			zap.Error(err),
		)
		res := Resolution{ID: key}
		r.cache.SetWithTTL(ctx, key, res, r.opts.unresolvedTTL)
		return res
	}

	res := Resolution{ID: imdbID, Resolved: true}
	r.cache.Set(ctx, key, res)
	return res
}

type metaResponse struct {
	Meta struct {
		IMDBID string `json:"imdb_id"`
	} `json:"meta"`
}

func (r *Resolver) lookup(ctx context.Context, key, mediaType string) (string, error) {
	escaped := strings.ReplaceAll(url.PathEscape(key), ":", "%3A")
	resp, err := r.client.Get(ctx, "/meta/{type}/{id}.json", nil,
		httpx.WithRawPathParams(map[string]string{
			"type": url.PathEscape(mediaType),
			"id":   escaped,
		}),
	)
	if err != nil {
		return "", err
	}

	var payload metaResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return "", fmt.Errorf("decode addon response: %w", err)
	}
	id := strings.TrimSpace(payload.Meta.IMDBID)
	if id == "" {
		return "", fmt.Errorf("addon response has no meta.imdb_id")
	}
	return id, nil
}
