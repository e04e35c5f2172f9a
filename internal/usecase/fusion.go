package usecase

import (
	"context"
	"math"
	"sync"
	"time"

	"EdgeLab/internal/domain/models"
	domrepo "EdgeLab/internal/domain/repository"
	domservice "EdgeLab/internal/domain/service"
	applogger "EdgeLab/pkg/logger"
)

var _ domservice.Fuser = (*FuseUseCase)(nil)

// Timeframes diverge when at least one score crosses the bullish bound
// while another crosses the bearish bound.
const (
	divergenceHigh = 0.6
	divergenceLow  = 0.4
)

// FuseUseCase blends per-timeframe scores for one symbol into a single
// recommendation. Timeframes are scored concurrently under one shared
// timeout; a failed or slow timeframe degrades its breakdown slot
// instead of failing the fusion.
type FuseUseCase struct {
	scorer  domservice.Scorer
	metrics domrepo.Metrics
	timeout time.Duration
	l       *applogger.Logger
}

func NewFuseUseCase(scorer domservice.Scorer, metrics domrepo.Metrics) *FuseUseCase {
	return &FuseUseCase{scorer: scorer, metrics: metrics, timeout: 10 * time.Second}
}

// SetLogger injects a structured logger.
func (uc *FuseUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

// defaultFusionWeights returns the per-timeframe mix for a regime.
// Trending regimes shift weight toward the longer timeframes.
func defaultFusionWeights(regime models.Regime) map[domrepo.Timeframe]float64 {
	switch regime {
	case models.RegimeTrendUp, models.RegimeTrendDown:
		return map[domrepo.Timeframe]float64{
			domrepo.TF1h: 0.20,
			domrepo.TF4h: 0.30,
			domrepo.TF1d: 0.50,
		}
	default:
		return map[domrepo.Timeframe]float64{
			domrepo.TF1h: 0.25,
			domrepo.TF4h: 0.35,
			domrepo.TF1d: 0.40,
		}
	}
}

// Fuse scores symbol on every fusion timeframe and blends the available
// scores. Nil weights select the regime-adaptive defaults; weights are
// renormalized over the timeframes that actually produced a score.
func (uc *FuseUseCase) Fuse(ctx context.Context, symbol string, regime models.Regime, weights map[domrepo.Timeframe]float64) models.FusionResult {
	start := time.Now()
	if len(weights) == 0 {
		weights = defaultFusionWeights(regime)
	}
	timeframes := domrepo.FusionTimeframes()

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	type item struct {
		tf  domrepo.Timeframe
		res models.ScoreResult
	}
	ch := make(chan item, len(timeframes))
	var wg sync.WaitGroup
	for _, tf := range timeframes {
		wg.Add(1)
		go func(tf domrepo.Timeframe) {
			defer wg.Done()
			ch <- item{tf: tf, res: uc.scorer.Score(ctx, symbol, tf)}
		}(tf)
	}
	go func() { wg.Wait(); close(ch) }()

	result := models.FusionResult{
		Symbol:    symbol,
		Regime:    regime,
		Breakdown: make(map[string]models.TimeframeScore, len(timeframes)),
	}

	var (
		scores    []float64
		weightSum float64
		fused     float64
	)
	for it := range ch {
		w := weights[it.tf]
		slot := models.TimeframeScore{Weight: w}
		if it.res.Success {
			slot.Available = true
			slot.Score = it.res.Score
			slot.ModelPath = it.res.ModelPath
			scores = append(scores, it.res.Score)
			fused += w * it.res.Score
			weightSum += w
		} else {
			slot.Weight = 0
			slot.Error = it.res.Error
		}
		result.Breakdown[string(it.tf)] = slot
	}

	if weightSum > 0 {
		result.FusedScore = fused / weightSum
		// report the renormalized weights actually applied
		for tfName, slot := range result.Breakdown {
			if slot.Available {
				slot.Weight = slot.Weight / weightSum
				result.Breakdown[tfName] = slot
			}
		}
	}

	result.Alignment, result.Divergence = alignment(scores)
	result.Confidence = confidenceLevel(len(scores), result.Alignment, result.Divergence, result.FusedScore)
	result.Recommendation = recommend(result.FusedScore, result.Confidence)

	if uc.metrics != nil {
		uc.metrics.RecordLatency("fuse", time.Since(start).Seconds())
	}
	if uc.l != nil {
		uc.l.Debug("fusion complete",
			applogger.String("symbol", symbol),
			applogger.Float64("fused_score", result.FusedScore),
			applogger.String("confidence", result.Confidence),
			applogger.Int("available", len(scores)),
		)
	}
	return result
}

// alignment maps score dispersion onto [0,1]: identical scores align at
// 1.0, alignment = 1 - 2*stddev clamped at zero. Divergence is flagged
// only when one timeframe is bullish while another is bearish.
func alignment(scores []float64) (float64, bool) {
	if len(scores) < 2 {
		return 1, false
	}
	var mean float64
	for _, s := range scores {
		mean += s
	}
	mean /= float64(len(scores))
	var variance float64
	for _, s := range scores {
		d := s - mean
		variance += d * d
	}
	variance /= float64(len(scores))

	a := 1 - 2*math.Sqrt(variance)
	if a < 0 {
		a = 0
	}

	anyHigh, anyLow := false, false
	for _, s := range scores {
		if s > divergenceHigh {
			anyHigh = true
		}
		if s < divergenceLow {
			anyLow = true
		}
	}
	return a, anyHigh && anyLow
}

// confidenceLevel grades the fusion on agreement and decisiveness: a
// tightly aligned set of near-neutral scores is not a high-confidence
// call, so the fused score's distance from 0.5 gates the upper tiers.
func confidenceLevel(available int, align float64, diverged bool, fused float64) string {
	extremity := 2 * math.Abs(fused-0.5)
	switch {
	case available == 0:
		return "none"
	case available == 1 || diverged:
		return "low"
	case available >= 3 && align >= 0.9 && extremity >= 0.3:
		return "very_high"
	case align >= 0.75 && extremity >= 0.1:
		return "high"
	default:
		return "medium"
	}
}

func recommend(score float64, confidence string) string {
	if confidence == "none" {
		return "neutral"
	}
	switch {
	case score >= 0.70:
		return "strong_buy"
	case score >= 0.60:
		return "buy"
	case score <= 0.30:
		return "strong_sell"
	case score <= 0.40:
		return "sell"
	default:
		return "neutral"
	}
}
