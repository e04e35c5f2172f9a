package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"EdgeLab/internal/domain/models"
	domrepo "EdgeLab/internal/domain/repository"
	domservice "EdgeLab/internal/domain/service"
	"EdgeLab/internal/ml"
	svcmetrics "EdgeLab/internal/service/metrics"
	"EdgeLab/internal/services/features"
	"EdgeLab/internal/services/segment"
	applogger "EdgeLab/pkg/logger"
)

var _ domservice.Trainer = (*TrainUseCase)(nil)

const (
	skipReasonMinSamples  = "below_min_samples"
	skipReasonSingleClass = "single_class"

	// candleWindow bounds the per-sample indicator window.
	candleWindow = 200
)

// TrainerConfig controls a training run. Zero values are replaced by
// defaults in NewTrainUseCase.
type TrainerConfig struct {
	MinSamples  int
	ValFraction float64
	Workers     int
	GBM         ml.GBMConfig
}

// TrainUseCase joins the outcome log with historical candles, groups the
// samples by segment, and fits one gradient-boosted classifier per group.
// Pattern-specific bundles are trained alongside the global ones from the
// same sample pass. Per-group failures never abort the run.
type TrainUseCase struct {
	outcomes domrepo.OutcomeSource
	candles  domrepo.CandleSource
	store    domrepo.ModelStore
	builder  *features.Builder
	resolver *segment.Resolver
	metrics  domrepo.Metrics
	cfg      TrainerConfig
	l        *applogger.Logger
}

func NewTrainUseCase(
	outcomes domrepo.OutcomeSource,
	candles domrepo.CandleSource,
	store domrepo.ModelStore,
	metrics domrepo.Metrics,
	cfg TrainerConfig,
) *TrainUseCase {
	if cfg.MinSamples <= 0 {
		cfg.MinSamples = 30
	}
	if cfg.ValFraction <= 0 || cfg.ValFraction >= 1 {
		cfg.ValFraction = 0.2
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &TrainUseCase{
		outcomes: outcomes,
		candles:  candles,
		store:    store,
		builder:  features.NewBuilder(),
		resolver: segment.NewResolver(),
		metrics:  metrics,
		cfg:      cfg,
	}
}

// SetLogger injects a structured logger.
func (uc *TrainUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

// sample is one labeled feature row assigned to its segment groups.
type sample struct {
	x     []float64
	label int
}

// Train runs one full training pass over the outcome lookback window.
func (uc *TrainUseCase) Train(ctx context.Context, lookback time.Duration) (*models.TrainReport, error) {
	started := time.Now()
	to := started
	from := to.Add(-lookback)

	outcomes, err := uc.outcomes.ListOutcomes(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	if len(outcomes) == 0 {
		return nil, models.ErrNoOutcomes
	}

	report := &models.TrainReport{
		OutcomeCount: len(outcomes),
		Window:       lookback.String(),
		StartedAt:    started,
	}

	columns, global, pattern, err := uc.buildSamples(ctx, outcomes)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	globalTrained, globalSkipped, failures := uc.trainGroups(ctx, columns, global)
	report.TrainedGlobal = globalTrained
	report.SkippedGlobal = globalSkipped
	report.Failures = append(report.Failures, failures...)

	patternTrained, patternSkipped, failures := uc.trainGroups(ctx, columns, pattern)
	report.TrainedPattern = patternTrained
	report.SkippedPattern = patternSkipped
	report.Failures = append(report.Failures, failures...)

	report.Duration = time.Since(started)
	if uc.metrics != nil {
		uc.metrics.RecordLatency("train", report.Duration.Seconds())
	}
	if uc.l != nil {
		uc.l.Info("training run complete",
			applogger.Int("outcomes", len(outcomes)),
			applogger.Int("trained_global", len(report.TrainedGlobal)),
			applogger.Int("trained_pattern", len(report.TrainedPattern)),
			applogger.Int("skipped", len(report.SkippedGlobal)+len(report.SkippedPattern)),
			applogger.Int("failures", len(report.Failures)),
			applogger.Duration("duration_ms", report.Duration),
		)
	}
	return report, nil
}

// buildSamples computes the as-of-entry feature row for every outcome and
// groups the labeled rows by global and pattern segment keys. Candles are
// fetched once per (symbol, timeframe) and sliced per outcome so the
// feature window never looks past the entry time.
func (uc *TrainUseCase) buildSamples(ctx context.Context, outcomes []models.Outcome) ([]string, map[models.SegmentKey][]sample, map[models.SegmentKey][]sample, error) {
	type seriesKey struct {
		symbol string
		tf     domrepo.Timeframe
	}
	series := make(map[seriesKey][]models.Candle)

	// one candle fetch per symbol+timeframe, spanning every outcome of
	// that pair plus the indicator warm-up
	bounds := make(map[seriesKey][2]time.Time)
	for _, o := range outcomes {
		k := seriesKey{symbol: o.Symbol, tf: domrepo.NormalizeTimeframe(o.Timeframe)}
		b, ok := bounds[k]
		if !ok {
			bounds[k] = [2]time.Time{o.OpenedAt, o.OpenedAt}
			continue
		}
		if o.OpenedAt.Before(b[0]) {
			b[0] = o.OpenedAt
		}
		if o.OpenedAt.After(b[1]) {
			b[1] = o.OpenedAt
		}
		bounds[k] = b
	}
	for k, b := range bounds {
		warmup := time.Duration(candleWindow) * domrepo.TimeframeDuration(k.tf)
		cs, err := uc.candles.GetCandles(ctx, k.symbol, b[0].Add(-warmup), b[1], k.tf)
		if err != nil {
			if uc.l != nil {
				uc.l.Warn("candle fetch failed, outcomes for pair skipped",
					applogger.String("symbol", k.symbol),
					applogger.String("tf", string(k.tf)),
					applogger.Error(err),
				)
			}
			continue
		}
		series[k] = cs
	}

	var columns []string
	global := make(map[models.SegmentKey][]sample)
	pattern := make(map[models.SegmentKey][]sample)

	for _, o := range outcomes {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}
		tf := domrepo.NormalizeTimeframe(o.Timeframe)
		cs, ok := series[seriesKey{symbol: o.Symbol, tf: tf}]
		if !ok {
			continue
		}
		// candles strictly before entry
		cut := sort.Search(len(cs), func(i int) bool { return !cs[i].Bucket.Before(o.OpenedAt) })
		window := cs[:cut]
		if len(window) > candleWindow {
			window = window[len(window)-candleWindow:]
		}
		fv, err := uc.builder.Build(window)
		if err != nil {
			continue
		}
		if columns == nil {
			columns = fv.Names()
		}

		s := sample{x: fv.Values(), label: o.Label()}
		key := uc.resolver.Resolve(o.Symbol, tf, fv)
		global[key] = append(global[key], s)
		global[key.WithRegime(models.RegimeAll)] = append(global[key.WithRegime(models.RegimeAll)], s)
		if o.Pattern != "" {
			pk := key.WithPattern(o.Pattern)
			pattern[pk] = append(pattern[pk], s)
			pattern[pk.WithRegime(models.RegimeAll)] = append(pattern[pk.WithRegime(models.RegimeAll)], s)
		}
	}
	return columns, global, pattern, nil
}

// trainGroups fits one classifier per segment group on a bounded worker
// pool. Groups below the sample floor or with a single label class are
// skipped; fit or persist errors are isolated per group.
func (uc *TrainUseCase) trainGroups(ctx context.Context, columns []string, groups map[models.SegmentKey][]sample) ([]models.TrainedSegment, []models.SkippedSegment, []models.SegmentFailure) {
	var (
		mu      sync.Mutex
		trained []models.TrainedSegment
		skipped []models.SkippedSegment
		fails   []models.SegmentFailure
	)

	keys := make([]models.SegmentKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	jobs := make(chan models.SegmentKey)
	var wg sync.WaitGroup
	workers := uc.cfg.Workers
	if workers > len(keys) {
		workers = len(keys)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for key := range jobs {
				result, skip, err := uc.trainOne(ctx, key, columns, groups[key])
				mu.Lock()
				switch {
				case err != nil:
					fails = append(fails, models.SegmentFailure{Segment: key, Error: err.Error()})
					if uc.metrics != nil {
						uc.metrics.RecordError("train_segment")
					}
				case skip != nil:
					skipped = append(skipped, *skip)
					if uc.metrics != nil {
						uc.metrics.RecordSegmentSkipped(skip.Reason)
					}
				default:
					trained = append(trained, *result)
					if uc.metrics != nil {
						uc.metrics.RecordSegmentTrained(string(key.AssetClass), key.Timeframe)
					}
				}
				mu.Unlock()
			}
		}()
	}
	for _, k := range keys {
		jobs <- k
	}
	close(jobs)
	wg.Wait()

	sort.Slice(trained, func(i, j int) bool {
		return segmentOrder(trained[i]) < segmentOrder(trained[j])
	})
	return trained, skipped, fails
}

func segmentOrder(t models.TrainedSegment) string {
	return string(t.AssetClass) + "/" + t.Timeframe + "/" + t.Pattern + "/" + string(t.Regime)
}

func (uc *TrainUseCase) trainOne(ctx context.Context, key models.SegmentKey, columns []string, samples []sample) (*models.TrainedSegment, *models.SkippedSegment, error) {
	if len(samples) < uc.cfg.MinSamples {
		return nil, &models.SkippedSegment{
			AssetClass:  key.AssetClass,
			Timeframe:   key.Timeframe,
			Regime:      key.Regime,
			Pattern:     key.Pattern,
			SampleCount: len(samples),
			Reason:      skipReasonMinSamples,
		}, nil
	}

	X := make([][]float64, len(samples))
	y := make([]int, len(samples))
	pos := 0
	for i, s := range samples {
		X[i] = s.x
		y[i] = s.label
		pos += s.label
	}
	if pos == 0 || pos == len(y) {
		return nil, &models.SkippedSegment{
			AssetClass:  key.AssetClass,
			Timeframe:   key.Timeframe,
			Regime:      key.Regime,
			Pattern:     key.Pattern,
			SampleCount: len(samples),
			Reason:      skipReasonSingleClass,
		}, nil
	}

	trainX, trainY, valX, valY := ml.TrainValSplit(X, y, uc.cfg.ValFraction, uc.cfg.GBM.Seed)
	gbm := ml.NewGradientBoosted(uc.cfg.GBM)
	if err := gbm.Fit(trainX, trainY); err != nil {
		return nil, nil, fmt.Errorf("fit %s: %w", key, err)
	}

	valScores := make([]float64, len(valX))
	for i, row := range valX {
		valScores[i] = gbm.PredictProba(row)
	}
	auc := ml.AUC(valScores, valY)

	bundle := &models.ModelBundle{
		Columns:       columns,
		Classifier:    gbm,
		TrainedAt:     time.Now().UTC(),
		SampleCount:   len(samples),
		ValidationAUC: auc,
	}
	path, err := uc.store.Put(ctx, key, bundle)
	if err != nil {
		return nil, nil, fmt.Errorf("persist %s: %w", key, err)
	}
	svcmetrics.SegmentValidationAUC.WithLabelValues(key.String()).Set(auc)
	svcmetrics.SegmentSampleCount.WithLabelValues(key.String()).Set(float64(len(samples)))
	return &models.TrainedSegment{
		AssetClass:    key.AssetClass,
		Timeframe:     key.Timeframe,
		Regime:        key.Regime,
		Pattern:       key.Pattern,
		ValidationAUC: auc,
		SampleCount:   len(samples),
		ModelPath:     path,
	}, nil, nil
}
