package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/walk-comfort-service/internal/domain"
	"github.com/couchcryptid/walk-comfort-service/internal/observability"
)

// BatchExtractor reads up to batchSize raw events from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer converts a raw observation message into a comfort report.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.ComfortReport, error)
}

// BatchLoader writes multiple comfort reports to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, reports []domain.ComfortReport) error
}

const (
	minBackoff = 200 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// Pipeline turns source-topic observations into comfort reports.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
	ready       atomic.Bool
	batchSize   int
	backoff     time.Duration
	pending     *pendingBatch
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		clock:       clockwork.NewRealClock(),
		batchSize:   batchSize,
		backoff:     minBackoff,
	}
}

// Ready reports whether at least one batch has been loaded.
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// CheckReadiness returns nil once the pipeline has loaded a batch.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not loaded any comfort reports yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	for ctx.Err() == nil {
		if err := p.processBatch(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			if !p.wait(ctx) {
				break
			}
			continue
		}
		p.backoff = minBackoff
	}

	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// pendingBatch is a transformed batch whose load has not succeeded yet.
type pendingBatch struct {
	reports []domain.ComfortReport
	raws    []domain.RawEvent
	start   time.Time
}

// processBatch runs one extract-transform-load cycle. A returned error means
// the batch was not loaded and the caller should back off. A batch that
// failed to load is retried before anything new is extracted.
func (p *Pipeline) processBatch(ctx context.Context) error {
	if p.pending != nil {
		return p.loadPending(ctx)
	}

	start := p.clock.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("extract batch failed", "error", err)
		}
		return err
	}
	if len(rawBatch) == 0 {
		return nil
	}

	p.metrics.ObservationsConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))

	reports := p.transformBatch(ctx, rawBatch)
	if len(reports) == 0 {
		p.commitAll(ctx, rawBatch)
		return nil
	}

	p.pending = &pendingBatch{reports: reports, raws: rawBatch, start: start}
	return p.loadPending(ctx)
}

// loadPending loads the pending batch and commits every message in it,
// including those that failed to transform. On error the batch stays pending
// and nothing is committed.
func (p *Pipeline) loadPending(ctx context.Context) error {
	b := p.pending
	if err := p.loader.LoadBatch(ctx, b.reports); err != nil {
		if ctx.Err() == nil {
			p.logger.Error("load batch failed, will retry", "error", err, "batch_size", len(b.reports))
		}
		return err
	}
	p.pending = nil
	p.metrics.ReportsProduced.Add(float64(len(b.reports)))

	p.commitAll(ctx, b.raws)

	p.metrics.BatchProcessingDuration.Observe(p.clock.Since(b.start).Seconds())
	p.ready.Store(true)
	return nil
}

// transformBatch converts every message it can. Messages that fail are
// logged and counted; their offsets are committed with the rest of the batch
// so they are not redelivered.
func (p *Pipeline) transformBatch(ctx context.Context, rawBatch []domain.RawEvent) []domain.ComfortReport {
	reports := make([]domain.ComfortReport, 0, len(rawBatch))

	for _, raw := range rawBatch {
		report, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("transform failed, skipping observation",
				"error", err,
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			continue
		}
		reports = append(reports, report)
	}
	return reports
}

// wait sleeps for the current backoff and doubles it up to maxBackoff.
// It returns false if the context ended first.
func (p *Pipeline) wait(ctx context.Context) bool {
	timer := p.clock.NewTimer(p.backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
	}

	p.backoff = retry.NextBackoff(p.backoff, maxBackoff)
	return true
}

func (p *Pipeline) commitAll(ctx context.Context, raws []domain.RawEvent) {
	for _, raw := range raws {
		p.commitOffset(ctx, raw)
	}
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
