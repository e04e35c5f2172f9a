package models

import "time"

// TrainedSegment is one successfully trained group in a training run.
type TrainedSegment struct {
	AssetClass    AssetClass `json:"asset_class"`
	Timeframe     string     `json:"timeframe"`
	Regime        Regime     `json:"regime"`
	Pattern       string     `json:"pattern,omitempty"`
	ValidationAUC float64    `json:"validation_auc"`
	SampleCount   int        `json:"sample_count"`
	ModelPath     string     `json:"model_path"`
}

// SkippedSegment is a group that was not trained, with the reason.
type SkippedSegment struct {
	AssetClass  AssetClass `json:"asset_class"`
	Timeframe   string     `json:"timeframe"`
	Regime      Regime     `json:"regime"`
	Pattern     string     `json:"pattern,omitempty"`
	SampleCount int        `json:"sample_count"`
	Reason      string     `json:"reason"` // below_min_samples | single_class
}

// SegmentFailure records an isolated per-segment fit/persist failure.
type SegmentFailure struct {
	Segment SegmentKey `json:"segment"`
	Error   string     `json:"error"`
}

// TrainReport aggregates a full training run. Per-group failures never
// abort the run; they are collected here.
type TrainReport struct {
	TrainedGlobal  []TrainedSegment `json:"trained_global"`
	SkippedGlobal  []SkippedSegment `json:"skipped_global"`
	TrainedPattern []TrainedSegment `json:"trained_pattern"`
	SkippedPattern []SkippedSegment `json:"skipped_pattern"`
	Failures       []SegmentFailure `json:"failures,omitempty"`
	OutcomeCount   int              `json:"outcome_count"`
	Window         string           `json:"window"`
	StartedAt      time.Time        `json:"started_at"`
	Duration       time.Duration    `json:"duration"`
}

// ScoreResult is the tagged outcome of a single-segment score call.
type ScoreResult struct {
	Success    bool       `json:"success"`
	Symbol     string     `json:"symbol"`
	Timeframe  string     `json:"timeframe"`
	AssetClass AssetClass `json:"asset_class,omitempty"`
	Regime     Regime     `json:"regime,omitempty"`
	Score      float64    `json:"score"`
	ModelPath  string     `json:"model_path,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// BlendWeights reports the mix applied between the pattern-specific and
// broader segment scores.
type BlendWeights struct {
	Pattern float64 `json:"pattern"`
	Global  float64 `json:"global"`
}

// BlendedScore is the result of a pattern-aware score. Component scores
// are nil when the corresponding bundle was unavailable; the response
// always reports the weights used, for auditability.
type BlendedScore struct {
	Success          bool         `json:"success"`
	Symbol           string       `json:"symbol"`
	Timeframe        string       `json:"timeframe"`
	Pattern          string       `json:"pattern"`
	Score            float64      `json:"score"`
	GlobalScore      *float64     `json:"global_score,omitempty"`
	PatternScore     *float64     `json:"pattern_score,omitempty"`
	Weights          BlendWeights `json:"weights"`
	GlobalModelPath  string       `json:"global_model_path,omitempty"`
	PatternModelPath string       `json:"pattern_model_path,omitempty"`
	Error            string       `json:"error,omitempty"`
}

// TimeframeScore is one slot in a fusion breakdown. A failed or timed-out
// timeframe degrades to Available=false with the error recorded.
type TimeframeScore struct {
	Score     float64 `json:"score"`
	Weight    float64 `json:"weight"`
	ModelPath string  `json:"model_path,omitempty"`
	Available bool    `json:"available"`
	Error     string  `json:"error,omitempty"`
}

// FusionResult combines per-timeframe scores for one symbol.
type FusionResult struct {
	Symbol         string                    `json:"symbol"`
	Regime         Regime                    `json:"regime"`
	FusedScore     float64                   `json:"fused_score"`
	Confidence     string                    `json:"confidence_level"` // very_high high medium low none
	Recommendation string                    `json:"recommendation"`   // strong_buy buy neutral sell strong_sell
	Alignment      float64                   `json:"alignment"`
	Divergence     bool                      `json:"divergence"`
	Breakdown      map[string]TimeframeScore `json:"per_timeframe_breakdown"`
}

// OnlineSnapshot is the rolling performance view of one online model.
type OnlineSnapshot struct {
	Segment      SegmentKey `json:"segment"`
	Fitted       bool       `json:"fitted"`
	NSamplesSeen int64      `json:"n_samples_seen"`
	WindowSize   int        `json:"window_size"`
	Accuracy     float64    `json:"accuracy"`
	AUC          float64    `json:"auc"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// QueueDrainReport summarizes one ProcessQueue pass.
type QueueDrainReport struct {
	Processed int `json:"processed"`
	Errored   int `json:"errored"`
	Remaining int `json:"remaining"`
	Segments  int `json:"segments"`
}
