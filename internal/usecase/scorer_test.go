package usecase

import (
	"context"
	"math"
	"testing"
	"time"

	"EdgeLab/internal/domain/models"
	domrepo "EdgeLab/internal/domain/repository"
)

type captureClassifier struct {
	got []float64
	p   float64
}

func (c *captureClassifier) PredictProba(x []float64) float64 {
	c.got = append([]float64(nil), x...)
	return c.p
}

func scorerFixture() *fakeCandleSource {
	start := time.Now().UTC().Truncate(time.Hour).Add(-300 * time.Hour)
	return &fakeCandleSource{series: map[string][]models.Candle{
		"BTC-USD": syntheticCandles("BTC-USD", 300, start),
	}}
}

func putStub(t *testing.T, store *memModelStore, key models.SegmentKey, p float64) {
	t.Helper()
	_, err := store.Put(context.Background(), key, &models.ModelBundle{
		Columns:     []string{"ret_1", "rsi_14"},
		Classifier:  stubClassifier{p: p},
		TrainedAt:   time.Now().UTC(),
		SampleCount: 100,
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
}

func TestScoreFallsBackToAllRegime(t *testing.T) {
	store := newMemModelStore()
	allKey := models.SegmentKey{AssetClass: models.AssetCrypto, Timeframe: "1h", Regime: models.RegimeAll}
	putStub(t, store, allKey, 0.8)

	uc := NewScoreUseCase(scorerFixture(), store, nil, ScorerConfig{})
	res := uc.Score(context.Background(), "BTC-USD", domrepo.TF1h)
	if !res.Success {
		t.Fatalf("score failed: %s", res.Error)
	}
	if res.Score != 0.8 {
		t.Fatalf("score = %v, want 0.8", res.Score)
	}
	if res.Regime != models.RegimeAll {
		t.Fatalf("resolved regime = %s, want all", res.Regime)
	}
	if res.AssetClass != models.AssetCrypto {
		t.Fatalf("asset class = %s, want crypto", res.AssetClass)
	}
}

func TestScoreNoModel(t *testing.T) {
	uc := NewScoreUseCase(scorerFixture(), newMemModelStore(), nil, ScorerConfig{})
	res := uc.Score(context.Background(), "BTC-USD", domrepo.TF1h)
	if res.Success {
		t.Fatal("score must fail without a trained bundle")
	}
	if res.Error == "" {
		t.Fatal("failed score must carry an error")
	}
}

func TestScoreDataUnavailable(t *testing.T) {
	uc := NewScoreUseCase(&fakeCandleSource{err: errBoom}, newMemModelStore(), nil, ScorerConfig{})
	res := uc.Score(context.Background(), "BTC-USD", domrepo.TF1h)
	if res.Success {
		t.Fatal("score must fail when candles are unavailable")
	}
}

func TestScoreReindexesOntoBundleColumns(t *testing.T) {
	store := newMemModelStore()
	clf := &captureClassifier{p: 0.5}
	allKey := models.SegmentKey{AssetClass: models.AssetCrypto, Timeframe: "1h", Regime: models.RegimeAll}
	_, err := store.Put(context.Background(), allKey, &models.ModelBundle{
		Columns:    []string{"rsi_14", "retired_feature"},
		Classifier: clf,
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}

	uc := NewScoreUseCase(scorerFixture(), store, nil, ScorerConfig{})
	res := uc.Score(context.Background(), "BTC-USD", domrepo.TF1h)
	if !res.Success {
		t.Fatalf("score failed: %s", res.Error)
	}
	if len(clf.got) != 2 {
		t.Fatalf("classifier saw %d features, want 2", len(clf.got))
	}
	if clf.got[0] < 0 || clf.got[0] > 1 {
		t.Fatalf("rsi_14 = %v outside [0,1]", clf.got[0])
	}
	if clf.got[1] != 0 {
		t.Fatalf("column missing from live row must zero-fill, got %v", clf.got[1])
	}
}

func TestScoreWithPatternBlends(t *testing.T) {
	store := newMemModelStore()
	globalKey := models.SegmentKey{AssetClass: models.AssetCrypto, Timeframe: "1h", Regime: models.RegimeAll}
	putStub(t, store, globalKey, 0.4)
	putStub(t, store, globalKey.WithPattern("breakout"), 0.8)

	uc := NewScoreUseCase(scorerFixture(), store, nil, ScorerConfig{})
	res := uc.ScoreWithPattern(context.Background(), "BTC-USD", domrepo.TF1h, "breakout")
	if !res.Success {
		t.Fatalf("blend failed: %s", res.Error)
	}
	if math.Abs(res.Score-0.64) > 1e-12 {
		t.Fatalf("blended score = %v, want 0.64", res.Score)
	}
	if res.Weights.Pattern != 0.6 || res.Weights.Global != 0.4 {
		t.Fatalf("weights = %+v, want 0.6/0.4", res.Weights)
	}
	if res.PatternScore == nil || *res.PatternScore != 0.8 {
		t.Fatalf("pattern component not reported: %+v", res.PatternScore)
	}
	if res.GlobalScore == nil || *res.GlobalScore != 0.4 {
		t.Fatalf("global component not reported: %+v", res.GlobalScore)
	}
}

func TestScoreWithPatternSingleModelFullWeight(t *testing.T) {
	ctx := context.Background()

	store := newMemModelStore()
	globalKey := models.SegmentKey{AssetClass: models.AssetCrypto, Timeframe: "1h", Regime: models.RegimeAll}
	putStub(t, store, globalKey, 0.4)
	uc := NewScoreUseCase(scorerFixture(), store, nil, ScorerConfig{})
	res := uc.ScoreWithPattern(ctx, "BTC-USD", domrepo.TF1h, "breakout")
	if !res.Success || res.Score != 0.4 {
		t.Fatalf("global-only blend = %+v, want score 0.4", res)
	}
	if res.Weights.Global != 1 || res.Weights.Pattern != 0 {
		t.Fatalf("global-only weights = %+v", res.Weights)
	}
	if res.PatternScore != nil {
		t.Fatal("pattern component must be nil when its bundle is missing")
	}

	store = newMemModelStore()
	putStub(t, store, globalKey.WithPattern("breakout"), 0.8)
	uc = NewScoreUseCase(scorerFixture(), store, nil, ScorerConfig{})
	res = uc.ScoreWithPattern(ctx, "BTC-USD", domrepo.TF1h, "breakout")
	if !res.Success || res.Score != 0.8 {
		t.Fatalf("pattern-only blend = %+v, want score 0.8", res)
	}
	if res.Weights.Pattern != 1 {
		t.Fatalf("pattern-only weights = %+v", res.Weights)
	}
}

func TestScoreWithPatternNoModels(t *testing.T) {
	uc := NewScoreUseCase(scorerFixture(), newMemModelStore(), nil, ScorerConfig{})
	res := uc.ScoreWithPattern(context.Background(), "BTC-USD", domrepo.TF1h, "breakout")
	if res.Success {
		t.Fatal("blend must fail when neither bundle resolves")
	}
}
