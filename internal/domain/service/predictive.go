package service

import (
	"context"
	"time"

	"EdgeLab/internal/domain/models"
	domrepo "EdgeLab/internal/domain/repository"
)

// Trainer fits per-segment classifiers from realized trade outcomes.
type Trainer interface {
	Train(ctx context.Context, lookback time.Duration) (*models.TrainReport, error)
}

// Scorer produces calibrated probabilities for live symbols.
type Scorer interface {
	Score(ctx context.Context, symbol string, tf domrepo.Timeframe) models.ScoreResult
	ScoreWithPattern(ctx context.Context, symbol string, tf domrepo.Timeframe, pattern string) models.BlendedScore
}

// OnlineLearner keeps incrementally-updated per-segment models warm
// between full retrains. Enqueue never blocks; ProcessQueue is the
// single-drainer batch path.
type OnlineLearner interface {
	Enqueue(key models.SegmentKey, features *models.FeatureVector, label int) error
	ProcessQueue(ctx context.Context, batchSize int) models.QueueDrainReport
	PredictProba(key models.SegmentKey, features *models.FeatureVector) float64
	Snapshot(key models.SegmentKey) (models.OnlineSnapshot, bool)
	Snapshots() []models.OnlineSnapshot
}

// Fuser blends per-timeframe scores for one symbol into a single
// recommendation with alignment/divergence diagnostics.
type Fuser interface {
	Fuse(ctx context.Context, symbol string, regime models.Regime, weights map[domrepo.Timeframe]float64) models.FusionResult
}
