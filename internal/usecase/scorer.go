package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"EdgeLab/internal/domain/models"
	domrepo "EdgeLab/internal/domain/repository"
	domservice "EdgeLab/internal/domain/service"
	icache "EdgeLab/internal/service/cache"
	"EdgeLab/internal/services/features"
	"EdgeLab/internal/services/segment"
	applogger "EdgeLab/pkg/logger"
)

var _ domservice.Scorer = (*ScoreUseCase)(nil)

// ScorerConfig controls blending and caching.
type ScorerConfig struct {
	// PatternWeight is the blend weight of the pattern-specific score;
	// the broader segment score takes the remainder.
	PatternWeight float64
	CacheTTL      time.Duration
}

// ScoreUseCase produces calibrated win probabilities for live symbols.
// The live feature row is reindexed onto each bundle's training-time
// column order, so schema drift between training and scoring degrades
// gracefully instead of misaligning features.
type ScoreUseCase struct {
	candles  domrepo.CandleSource
	store    domrepo.ModelStore
	builder  *features.Builder
	resolver *segment.Resolver
	metrics  domrepo.Metrics
	cache    icache.BytesCache
	cfg      ScorerConfig
	l        *applogger.Logger
}

func NewScoreUseCase(
	candles domrepo.CandleSource,
	store domrepo.ModelStore,
	metrics domrepo.Metrics,
	cfg ScorerConfig,
) *ScoreUseCase {
	if cfg.PatternWeight <= 0 || cfg.PatternWeight >= 1 {
		cfg.PatternWeight = 0.6
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	return &ScoreUseCase{
		candles:  candles,
		store:    store,
		builder:  features.NewBuilder(),
		resolver: segment.NewResolver(),
		metrics:  metrics,
		cfg:      cfg,
	}
}

// SetLogger injects a structured logger.
func (uc *ScoreUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

// SetCache enables short-TTL score caching.
func (uc *ScoreUseCase) SetCache(c icache.BytesCache) { uc.cache = c }

// Score scores one symbol against its global segment bundle, falling
// back to the all-regime bundle when the exact regime is untrained.
func (uc *ScoreUseCase) Score(ctx context.Context, symbol string, tf domrepo.Timeframe) models.ScoreResult {
	start := time.Now()
	ck := fmt.Sprintf("score:%s:%s", symbol, tf)
	if cached, ok := uc.fromCache(ck); ok {
		return *cached
	}

	fv, err := uc.liveFeatures(ctx, symbol, tf)
	if err != nil {
		return models.ScoreResult{Symbol: symbol, Timeframe: string(tf), Error: err.Error()}
	}
	key := uc.resolver.Resolve(symbol, tf, fv)

	bundle, resolved, path, err := uc.store.GetWithFallback(ctx, key)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.RecordError("score")
		}
		return models.ScoreResult{
			Symbol:     symbol,
			Timeframe:  string(tf),
			AssetClass: key.AssetClass,
			Regime:     key.Regime,
			Error:      err.Error(),
		}
	}

	score := bundle.Classifier.PredictProba(fv.Reindex(bundle.Columns))
	res := models.ScoreResult{
		Success:    true,
		Symbol:     symbol,
		Timeframe:  string(tf),
		AssetClass: resolved.AssetClass,
		Regime:     resolved.Regime,
		Score:      score,
		ModelPath:  path,
	}
	uc.toCache(ck, res)
	if uc.metrics != nil {
		uc.metrics.RecordScore(string(resolved.AssetClass), string(tf))
		uc.metrics.RecordLatency("score", time.Since(start).Seconds())
	}
	return res
}

// ScoreWithPattern blends the pattern-specific and broader segment
// scores. When only one of the two bundles resolves, it carries full
// weight; the response always reports the weights actually applied.
func (uc *ScoreUseCase) ScoreWithPattern(ctx context.Context, symbol string, tf domrepo.Timeframe, pattern string) models.BlendedScore {
	start := time.Now()
	res := models.BlendedScore{Symbol: symbol, Timeframe: string(tf), Pattern: pattern}

	fv, err := uc.liveFeatures(ctx, symbol, tf)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	key := uc.resolver.Resolve(symbol, tf, fv)

	var globalScore, patternScore *float64
	if bundle, _, path, err := uc.store.GetWithFallback(ctx, key); err == nil {
		v := bundle.Classifier.PredictProba(fv.Reindex(bundle.Columns))
		globalScore = &v
		res.GlobalModelPath = path
	}
	if bundle, _, path, err := uc.store.GetWithFallback(ctx, key.WithPattern(pattern)); err == nil {
		v := bundle.Classifier.PredictProba(fv.Reindex(bundle.Columns))
		patternScore = &v
		res.PatternModelPath = path
	}

	res.GlobalScore = globalScore
	res.PatternScore = patternScore
	switch {
	case patternScore != nil && globalScore != nil:
		res.Weights = models.BlendWeights{Pattern: uc.cfg.PatternWeight, Global: 1 - uc.cfg.PatternWeight}
		res.Score = uc.cfg.PatternWeight**patternScore + (1-uc.cfg.PatternWeight)**globalScore
		res.Success = true
	case patternScore != nil:
		res.Weights = models.BlendWeights{Pattern: 1}
		res.Score = *patternScore
		res.Success = true
	case globalScore != nil:
		res.Weights = models.BlendWeights{Global: 1}
		res.Score = *globalScore
		res.Success = true
	default:
		res.Error = models.ErrModelNotTrained.Error()
		if uc.metrics != nil {
			uc.metrics.RecordError("score_pattern")
		}
		return res
	}

	if uc.metrics != nil {
		uc.metrics.RecordScore(string(key.AssetClass), string(tf))
		uc.metrics.RecordLatency("score_pattern", time.Since(start).Seconds())
	}
	return res
}

// LiveFeatures exposes the scored feature row, shared with the fusion
// and online paths.
func (uc *ScoreUseCase) LiveFeatures(ctx context.Context, symbol string, tf domrepo.Timeframe) (*models.FeatureVector, error) {
	return uc.liveFeatures(ctx, symbol, tf)
}

func (uc *ScoreUseCase) liveFeatures(ctx context.Context, symbol string, tf domrepo.Timeframe) (*models.FeatureVector, error) {
	candles, err := uc.candles.GetLatestNCandles(ctx, symbol, candleWindow, tf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDataUnavailable, err)
	}
	return uc.builder.Build(candles)
}

func (uc *ScoreUseCase) fromCache(key string) (*models.ScoreResult, bool) {
	if uc.cache == nil {
		return nil, false
	}
	b, ok, err := uc.cache.GetBytes(key)
	if err != nil || !ok {
		return nil, false
	}
	var res models.ScoreResult
	if err := json.Unmarshal(b, &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (uc *ScoreUseCase) toCache(key string, res models.ScoreResult) {
	if uc.cache == nil {
		return
	}
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	_ = uc.cache.SetBytes(key, b, uc.cfg.CacheTTL)
}
