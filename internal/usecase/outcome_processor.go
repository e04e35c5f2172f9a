package usecase

import (
	"context"
	"fmt"
	"time"

	"EdgeLab/internal/domain/models"
	drepo "EdgeLab/internal/domain/repository"
)

// OutcomeProcessor routes trade outcomes to the configured backend:
// straight into ClickHouse, or onto the outcome topic for the consumer
// path. Used by the replay backfill and by direct API ingestion.
type OutcomeProcessor struct {
	pub     drepo.OutcomePublisher
	sink    drepo.OutcomeSink
	metrics drepo.Metrics
	backend string
}

// NewOutcomeProcessor creates an outcome processor for backend
// ("kafka" or "clickhouse").
func NewOutcomeProcessor(
	pub drepo.OutcomePublisher,
	sink drepo.OutcomeSink,
	metrics drepo.Metrics,
	backend string,
) *OutcomeProcessor {
	return &OutcomeProcessor{pub: pub, sink: sink, metrics: metrics, backend: backend}
}

// Process routes a single outcome.
func (p *OutcomeProcessor) Process(ctx context.Context, o models.Outcome) error {
	if o.Symbol == "" {
		return fmt.Errorf("outcome without symbol")
	}

	start := time.Now()
	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.Publish(ctx, o)
	case "clickhouse":
		err = p.sink.StoreOutcome(ctx, o)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("process_outcome")
		}
		return fmt.Errorf("process outcome: %w", err)
	}
	if p.metrics != nil {
		p.metrics.RecordLatency("process_outcome", time.Since(start).Seconds())
	}
	return nil
}

// ProcessBatch routes multiple outcomes in one call.
func (p *OutcomeProcessor) ProcessBatch(ctx context.Context, outcomes []models.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, outcomes)
	case "clickhouse":
		err = p.sink.StoreOutcomeBatch(ctx, outcomes)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("process_outcome_batch")
		}
		return fmt.Errorf("process outcome batch: %w", err)
	}
	if p.metrics != nil {
		p.metrics.RecordLatency("process_outcome_batch", time.Since(start).Seconds())
	}
	return nil
}

// Close closes the underlying publisher if present.
func (p *OutcomeProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
}
