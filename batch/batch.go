// Package batch fans a list of identifiers out to a fetcher in fixed-size
// windows, preserving input order in the results.
package batch

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adeilh/metafetch/ratelimit"
	"github.com/adeilh/metafetch/tmdb"
)

const (
	DefaultWindowSize = 20
	DefaultPause      = 500 * time.Millisecond
)

// Fetcher looks up one identifier. tmdb.Fetcher satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, id, source string) (tmdb.Record, bool)
}

// Result pairs an input identifier with its record. Record is nil when the
// lookup failed.
type Result struct {
	ID     string      `json:"id"`
	Record tmdb.Record `json:"record"`
}

func (r Result) Found() bool { return r.Record != nil }

type Option func(*Orchestrator)

// WithWindowSize sets how many lookups run concurrently. Values < 1 are ignored.
func WithWindowSize(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.window = n
		}
	}
}

// WithPause sets the wait between windows. Negative values are ignored.
func WithPause(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.pause = d
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

type Orchestrator struct {
	fetcher Fetcher
	window  int
	pause   time.Duration
	logger  *zap.Logger
	sleep   func(context.Context, time.Duration) error
}

func New(f Fetcher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher: f,
		window:  DefaultWindowSize,
		pause:   DefaultPause,
		logger:  zap.NewNop(),
		sleep:   ratelimit.SleepWithContext,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Fetch returns exactly one Result per identifier, in input order. Each
// window finishes completely before the next one starts. If ctx is cancelled
// the remaining identifiers are reported as not found.
func (o *Orchestrator) Fetch(ctx context.Context, ids []string, source string) []Result {
	results := make([]Result, len(ids))
	for i, id := range ids {
		results[i].ID = id
	}

	windows := 0
	for start := 0; start < len(ids); start += o.window {
		if start > 0 {
			if err := o.sleep(ctx, o.pause); err != nil {
				o.logger.Debug("batch cancelled", zap.Int("completed", start), zap.Int("total", len(ids)))
				break
			}
		}
		end := min(start+o.window, len(ids))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				if rec, ok := o.fetcher.Fetch(ctx, ids[i], source); ok {
					results[i].Record = rec
				}
				return nil
			})
		}
		_ = g.Wait()
		windows++
	}

	o.logger.Debug("batch finished",
		zap.Int("ids", len(ids)),
		zap.Int("windows", windows),
		zap.Int("found", countFound(results)),
	)
	return results
}

func countFound(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Found() {
			n++
		}
	}
	return n
}
