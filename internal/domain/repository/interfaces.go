package repository

import (
	"context"
	"time"

	"EdgeLab/internal/domain/models"
)

// OutcomeSource is the persisted trade-outcome log consumed by training.
// Outcomes are returned ascending by ClosedAt.
type OutcomeSource interface {
	ListOutcomes(ctx context.Context, from, to time.Time) ([]models.Outcome, error)
}

// ModelStore maps segment keys to model bundles. Put returns the
// storage path of the written bundle; Get reports models.ErrBundleNotFound
// for a miss. Writes replace the prior bundle wholesale and must never
// expose a partially-written bundle to concurrent readers.
type ModelStore interface {
	Put(ctx context.Context, key models.SegmentKey, bundle *models.ModelBundle) (string, error)
	Get(ctx context.Context, key models.SegmentKey) (*models.ModelBundle, string, error)
	Exists(ctx context.Context, key models.SegmentKey) (bool, error)

	// GetWithFallback tries the exact-regime key, then the all-regime key
	// of the same (asset class, timeframe[, pattern]). It returns the key
	// that actually resolved so callers can report the regime used.
	GetWithFallback(ctx context.Context, key models.SegmentKey) (*models.ModelBundle, models.SegmentKey, string, error)
}

// OnlineStateStore persists serialized online-model state per segment.
type OnlineStateStore interface {
	SaveState(ctx context.Context, key models.SegmentKey, data []byte) error
	LoadState(ctx context.Context, key models.SegmentKey) ([]byte, error)
	ListStates(ctx context.Context) ([]models.SegmentKey, error)
}

// OutcomeSink accepts outcomes for durable storage.
type OutcomeSink interface {
	StoreOutcome(ctx context.Context, o models.Outcome) error
	StoreOutcomeBatch(ctx context.Context, outcomes []models.Outcome) error
}

// OutcomePublisher emits outcome events onto the streaming backend.
type OutcomePublisher interface {
	Publish(ctx context.Context, o models.Outcome) error
	PublishBatch(ctx context.Context, outcomes []models.Outcome) error
	Close() error
}

type Metrics interface {
	RecordSegmentTrained(assetClass, timeframe string)
	RecordSegmentSkipped(reason string)
	RecordScore(assetClass, timeframe string)
	RecordOnlineUpdate(segments, samples int)
	RecordQueueDepth(n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
