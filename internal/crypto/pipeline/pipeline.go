package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"cryptoetl/internal/crypto/model"
	"cryptoetl/internal/crypto/transform"

	"go.uber.org/zap"
)

// Fetcher returns the raw price payload for one asset.
type Fetcher interface {
	GetSimplePrice(ctx context.Context, assetID, currency string) (model.RawPriceSnapshot, error)
}

// Loader persists one normalized record atomically.
type Loader interface {
	InsertPriceRecord(ctx context.Context, rec model.PriceRecord) error
}

// State is the position of a run in PENDING → FETCHED → TRANSFORMED → LOADED, or FAILED.
type State string

const (
	StatePending     State = "PENDING"
	StateFetched     State = "FETCHED"
	StateTransformed State = "TRANSFORMED"
	StateLoaded      State = "LOADED"
	StateFailed      State = "FAILED"
)

func (s State) String() string { return string(s) }

type Options struct {
	AssetID    string
	Currency   string
	RunTimeout time.Duration // bounds the whole run; zero means no extra bound
}

// Pipeline runs fetch, transform and load back to back. It keeps no data between runs.
// Callers must not run it concurrently with itself; see schedule.Scheduler.
type Pipeline struct {
	opts    Options
	fetcher Fetcher
	loader  Loader
	logger  *zap.Logger
	runs    atomic.Uint64
}

func New(opts Options, fetcher Fetcher, loader Loader, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		opts:    opts,
		fetcher: fetcher,
		loader:  loader,
		logger:  logger.With(zap.String("asset_id", opts.AssetID), zap.String("currency", opts.Currency)),
	}
}

// RunOnce executes one full run and stops at the first error.
// The returned error wraps a *model.FetchError, *model.SchemaError or *model.LoadError,
// or the context error when the run was cancelled before loading.
func (p *Pipeline) RunOnce(ctx context.Context) error {
	if p.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.RunTimeout)
		defer cancel()
	}

	r := &run{id: p.runs.Add(1), state: StatePending, started: time.Now()}
	r.logger = p.logger.With(zap.Uint64("run", r.id))
	r.logger.Info("run started", zap.Stringer("state", r.state))

	raw, err := p.fetcher.GetSimplePrice(ctx, p.opts.AssetID, p.opts.Currency)
	if err != nil {
		return r.fail("fetch", err)
	}
	r.advance(StateFetched)

	rec, err := transform.Transform(raw, p.opts.AssetID, p.opts.Currency)
	if err != nil {
		return r.fail("transform", err)
	}
	r.advance(StateTransformed,
		zap.Float64("price", rec.PriceUSD),
		zap.Float64("market_cap", rec.MarketCapUSD),
		zap.Float64("volume_24h", rec.Volume24hUSD),
	)

	// A cancelled run drops the record without touching the sink.
	if err := ctx.Err(); err != nil {
		return r.fail("load", err)
	}

	if err := p.loader.InsertPriceRecord(ctx, rec); err != nil {
		return r.fail("load", err)
	}
	r.advance(StateLoaded)
	return nil
}

type run struct {
	id      uint64
	state   State
	started time.Time
	logger  *zap.Logger
}

func (r *run) advance(next State, fields ...zap.Field) {
	r.state = next
	fields = append(fields, zap.Stringer("state", next), zap.Duration("elapsed", time.Since(r.started)))
	if next == StateLoaded {
		r.logger.Info("run completed", fields...)
		return
	}
	r.logger.Debug("run advanced", fields...)
}

func (r *run) fail(stage string, err error) error {
	r.logger.Error("run failed",
		zap.Stringer("from", r.state),
		zap.Stringer("state", StateFailed),
		zap.String("stage", stage),
		zap.Duration("elapsed", time.Since(r.started)),
		zap.Error(err),
	)
	r.state = StateFailed
	return fmt.Errorf("run %d %s: %w", r.id, stage, err)
}
