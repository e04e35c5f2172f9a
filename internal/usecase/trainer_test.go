package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"EdgeLab/internal/domain/models"
)

func trainerFixture(nOutcomes int, allWinners bool, pattern string) (*fakeOutcomeSource, *fakeCandleSource) {
	start := time.Now().UTC().Truncate(time.Hour).Add(-400 * time.Hour)
	candles := &fakeCandleSource{series: map[string][]models.Candle{
		"BTC-USD": syntheticCandles("BTC-USD", 400, start),
	}}

	outcomes := make([]models.Outcome, 0, nOutcomes)
	for i := 0; i < nOutcomes; i++ {
		pnl := 1.0
		if !allWinners && i%2 == 1 {
			pnl = -1.0
		}
		opened := start.Add(time.Duration(150+i*5) * time.Hour)
		outcomes = append(outcomes, models.Outcome{
			Symbol:     "BTC-USD",
			Pattern:    pattern,
			Timeframe:  "1h",
			EntryPrice: 100,
			ExitPrice:  100 + pnl,
			PnL:        pnl,
			Quantity:   1,
			OpenedAt:   opened,
			ClosedAt:   opened.Add(time.Hour),
		})
	}
	return &fakeOutcomeSource{outcomes: outcomes}, candles
}

func findGlobal(report *models.TrainReport, regime models.Regime) *models.TrainedSegment {
	for i := range report.TrainedGlobal {
		if report.TrainedGlobal[i].Regime == regime {
			return &report.TrainedGlobal[i]
		}
	}
	return nil
}

func TestTrainEndToEnd(t *testing.T) {
	outcomes, candles := trainerFixture(40, false, "breakout")
	store := newMemModelStore()
	uc := NewTrainUseCase(outcomes, candles, store, nil, TrainerConfig{Workers: 2})

	report, err := uc.Train(context.Background(), 720*time.Hour)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if report.OutcomeCount != 40 {
		t.Fatalf("outcome count = %d, want 40", report.OutcomeCount)
	}

	all := findGlobal(report, models.RegimeAll)
	if all == nil {
		t.Fatalf("no all-regime global segment trained: %+v", report)
	}
	if all.SampleCount != 40 {
		t.Fatalf("all-regime sample count = %d, want 40", all.SampleCount)
	}
	if all.AssetClass != models.AssetCrypto || all.Timeframe != "1h" {
		t.Fatalf("unexpected segment %+v", all)
	}
	if all.ValidationAUC < 0 || all.ValidationAUC > 1 {
		t.Fatalf("AUC out of range: %v", all.ValidationAUC)
	}

	key := models.SegmentKey{AssetClass: models.AssetCrypto, Timeframe: "1h", Regime: models.RegimeAll}
	bundle, _, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("trained bundle not stored: %v", err)
	}
	if len(bundle.Columns) == 0 {
		t.Fatal("bundle stored without columns")
	}
	p := bundle.Classifier.PredictProba(make([]float64, len(bundle.Columns)))
	if p <= 0 || p >= 1 {
		t.Fatalf("stored classifier probability %v outside (0,1)", p)
	}

	foundPattern := false
	for _, seg := range report.TrainedPattern {
		if seg.Pattern == "breakout" && seg.Regime == models.RegimeAll {
			foundPattern = true
			if seg.SampleCount != 40 {
				t.Fatalf("pattern sample count = %d, want 40", seg.SampleCount)
			}
		}
	}
	if !foundPattern {
		t.Fatalf("pattern all-regime segment not trained: %+v", report.TrainedPattern)
	}
}

func TestTrainMinSampleBoundary(t *testing.T) {
	ctx := context.Background()

	outcomes, candles := trainerFixture(29, false, "")
	uc := NewTrainUseCase(outcomes, candles, newMemModelStore(), nil, TrainerConfig{Workers: 1})
	report, err := uc.Train(ctx, 720*time.Hour)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if findGlobal(report, models.RegimeAll) != nil {
		t.Fatal("29 samples must not train the all-regime segment")
	}
	found := false
	for _, s := range report.SkippedGlobal {
		if s.Regime == models.RegimeAll && s.Reason == "below_min_samples" && s.SampleCount == 29 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected below_min_samples skip at 29, got %+v", report.SkippedGlobal)
	}

	outcomes, candles = trainerFixture(30, false, "")
	uc = NewTrainUseCase(outcomes, candles, newMemModelStore(), nil, TrainerConfig{Workers: 1})
	report, err = uc.Train(ctx, 720*time.Hour)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if findGlobal(report, models.RegimeAll) == nil {
		t.Fatalf("30 samples must train the all-regime segment: %+v", report)
	}
}

func TestTrainSingleClassSkipped(t *testing.T) {
	outcomes, candles := trainerFixture(30, true, "")
	uc := NewTrainUseCase(outcomes, candles, newMemModelStore(), nil, TrainerConfig{Workers: 1})
	report, err := uc.Train(context.Background(), 720*time.Hour)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if len(report.TrainedGlobal) != 0 {
		t.Fatalf("single-class groups must not train: %+v", report.TrainedGlobal)
	}
	found := false
	for _, s := range report.SkippedGlobal {
		if s.Regime == models.RegimeAll && s.Reason == "single_class" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected single_class skip, got %+v", report.SkippedGlobal)
	}
}

func TestTrainNoOutcomes(t *testing.T) {
	uc := NewTrainUseCase(&fakeOutcomeSource{}, &fakeCandleSource{}, newMemModelStore(), nil, TrainerConfig{})
	_, err := uc.Train(context.Background(), 720*time.Hour)
	if !errors.Is(err, models.ErrNoOutcomes) {
		t.Fatalf("expected ErrNoOutcomes, got %v", err)
	}
}

func TestTrainPersistFailureIsolated(t *testing.T) {
	outcomes, candles := trainerFixture(40, false, "")
	store := newMemModelStore()
	store.putErr = errBoom
	uc := NewTrainUseCase(outcomes, candles, store, nil, TrainerConfig{Workers: 2})
	report, err := uc.Train(context.Background(), 720*time.Hour)
	if err != nil {
		t.Fatalf("per-segment persist failures must not abort the run: %v", err)
	}
	if len(report.Failures) == 0 {
		t.Fatal("expected recorded failures")
	}
	if len(report.TrainedGlobal) != 0 {
		t.Fatalf("nothing should report trained when persistence fails: %+v", report.TrainedGlobal)
	}
}
