package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/walk-comfort-service/internal/domain"
	"github.com/couchcryptid/walk-comfort-service/internal/observability"
)

// ComfortTransformer implements Transformer by parsing the observation,
// rejecting inputs the comfort model cannot handle, and building a report.
type ComfortTransformer struct {
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewTransformer creates a ComfortTransformer.
func NewTransformer(metrics *observability.Metrics, logger *slog.Logger) *ComfortTransformer {
	return &ComfortTransformer{
		metrics: metrics,
		logger:  logger,
	}
}

func (t *ComfortTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.ComfortReport, error) {
	obs, err := domain.ParseRawObservation(raw)
	if err != nil {
		return domain.ComfortReport{}, err
	}
	if err := domain.ValidateObservation(obs); err != nil {
		return domain.ComfortReport{}, fmt.Errorf("observation at offset %d: %w", raw.Offset, err)
	}

	report := domain.BuildReport(obs)
	t.metrics.ObserveComfort(report.Comfort.Value, report.Comfort.StressCategory)
	t.logger.Debug("comfort computed",
		"id", report.ID,
		"station", report.Station,
		"value", report.Comfort.Value,
		"category", report.Comfort.StressCategory,
	)
	return report, nil
}
