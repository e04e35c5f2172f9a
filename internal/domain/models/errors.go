package models

import "errors"

// Expected data-sparsity and boundary conditions. These are returned as
// tagged results at call boundaries, never surfaced as bare panics.
var (
	// ErrDataUnavailable: not enough candles/features for a symbol/timeframe.
	ErrDataUnavailable = errors.New("insufficient candle data")

	// ErrNoOutcomes: zero outcomes inside the training lookback window.
	// The only condition that makes a training run a hard failure.
	ErrNoOutcomes = errors.New("no outcomes in lookback window")

	// ErrModelNotTrained: neither an exact-regime nor an all-regime bundle
	// exists for the resolved segment.
	ErrModelNotTrained = errors.New("model not trained for segment")

	// ErrBundleNotFound: store lookup miss for one specific key.
	ErrBundleNotFound = errors.New("bundle not found")

	// ErrCorruptBundle: a stored bundle failed to decode; a contract
	// violation, not an expected sparsity condition.
	ErrCorruptBundle = errors.New("corrupt model bundle")

	// ErrQueueFull: the online update queue rejected a non-blocking push.
	ErrQueueFull = errors.New("online update queue full")
)
