package usecase

import (
	"context"
	"math"
	"testing"

	"EdgeLab/internal/domain/models"
	domrepo "EdgeLab/internal/domain/repository"
)

func okScore(tf domrepo.Timeframe, score float64) models.ScoreResult {
	return models.ScoreResult{Success: true, Symbol: "BTC-USD", Timeframe: string(tf), Score: score, ModelPath: "mem://" + string(tf)}
}

func TestFuseDivergentTimeframes(t *testing.T) {
	scorer := &stubScorer{results: map[domrepo.Timeframe]models.ScoreResult{
		domrepo.TF1h: okScore(domrepo.TF1h, 0.8),
		domrepo.TF4h: okScore(domrepo.TF4h, 0.3),
		domrepo.TF1d: okScore(domrepo.TF1d, 0.6),
	}}
	uc := NewFuseUseCase(scorer, nil)
	res := uc.Fuse(context.Background(), "BTC-USD", models.RegimeAll, nil)

	if !res.Divergence {
		t.Fatal("bullish 0.8 against bearish 0.3 must flag divergence")
	}
	if res.Confidence != "low" {
		t.Fatalf("confidence = %s, want low under divergence", res.Confidence)
	}
	if len(res.Breakdown) != 3 {
		t.Fatalf("breakdown slots = %d, want 3", len(res.Breakdown))
	}
	want := 0.25*0.8 + 0.35*0.3 + 0.40*0.6
	if math.Abs(res.FusedScore-want) > 1e-12 {
		t.Fatalf("fused = %v, want %v", res.FusedScore, want)
	}
}

func TestFuseAlignedTimeframes(t *testing.T) {
	scorer := &stubScorer{results: map[domrepo.Timeframe]models.ScoreResult{
		domrepo.TF1h: okScore(domrepo.TF1h, 0.55),
		domrepo.TF4h: okScore(domrepo.TF4h, 0.60),
		domrepo.TF1d: okScore(domrepo.TF1d, 0.58),
	}}
	uc := NewFuseUseCase(scorer, nil)
	res := uc.Fuse(context.Background(), "BTC-USD", models.RegimeAll, nil)

	if res.Divergence {
		t.Fatal("scores within 0.55..0.60 must not flag divergence")
	}
	// 1 - 2*stddev of {0.55, 0.60, 0.58}
	wantAlign := 1 - 2*math.Sqrt(((0.55-0.5766666666666667)*(0.55-0.5766666666666667)+
		(0.60-0.5766666666666667)*(0.60-0.5766666666666667)+
		(0.58-0.5766666666666667)*(0.58-0.5766666666666667))/3)
	if math.Abs(res.Alignment-wantAlign) > 1e-9 {
		t.Fatalf("alignment = %v, want %v", res.Alignment, wantAlign)
	}
	if res.Confidence != "high" {
		t.Fatalf("confidence = %s, want high for aligned but mildly bullish scores", res.Confidence)
	}
	if res.Recommendation != "neutral" {
		t.Fatalf("recommendation = %s, want neutral near 0.58", res.Recommendation)
	}
}

func TestFuseDivergenceThresholds(t *testing.T) {
	cases := []struct {
		name      string
		scores    map[domrepo.Timeframe]float64
		divergent bool
	}{
		{"wide spread on one side", map[domrepo.Timeframe]float64{domrepo.TF1h: 0.5, domrepo.TF4h: 0.8}, false},
		{"bullish against bearish", map[domrepo.Timeframe]float64{domrepo.TF1h: 0.39, domrepo.TF4h: 0.61}, true},
		{"both at the bounds", map[domrepo.Timeframe]float64{domrepo.TF1h: 0.4, domrepo.TF4h: 0.6}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			results := make(map[domrepo.Timeframe]models.ScoreResult, len(tc.scores))
			for tf, s := range tc.scores {
				results[tf] = okScore(tf, s)
			}
			uc := NewFuseUseCase(&stubScorer{results: results}, nil)
			res := uc.Fuse(context.Background(), "BTC-USD", models.RegimeAll, nil)
			if res.Divergence != tc.divergent {
				t.Fatalf("divergence = %v, want %v for %v", res.Divergence, tc.divergent, tc.scores)
			}
			if tc.divergent && res.Confidence != "low" {
				t.Fatalf("confidence = %s, want low under divergence", res.Confidence)
			}
		})
	}
}

func TestFuseConfidenceTracksDecisiveness(t *testing.T) {
	// Equally tight score sets: the decisive one earns very_high, the
	// near-neutral one stays at medium.
	decisive := &stubScorer{results: map[domrepo.Timeframe]models.ScoreResult{
		domrepo.TF1h: okScore(domrepo.TF1h, 0.80),
		domrepo.TF4h: okScore(domrepo.TF4h, 0.82),
		domrepo.TF1d: okScore(domrepo.TF1d, 0.84),
	}}
	uc := NewFuseUseCase(decisive, nil)
	res := uc.Fuse(context.Background(), "BTC-USD", models.RegimeAll, nil)
	if res.Confidence != "very_high" {
		t.Fatalf("confidence = %s, want very_high for tight decisive scores", res.Confidence)
	}
	if res.Recommendation != "strong_buy" {
		t.Fatalf("recommendation = %s, want strong_buy at fused %v", res.Recommendation, res.FusedScore)
	}

	neutral := &stubScorer{results: map[domrepo.Timeframe]models.ScoreResult{
		domrepo.TF1h: okScore(domrepo.TF1h, 0.49),
		domrepo.TF4h: okScore(domrepo.TF4h, 0.50),
		domrepo.TF1d: okScore(domrepo.TF1d, 0.51),
	}}
	uc = NewFuseUseCase(neutral, nil)
	res = uc.Fuse(context.Background(), "BTC-USD", models.RegimeAll, nil)
	if res.Confidence != "medium" {
		t.Fatalf("confidence = %s, want medium for tight but indecisive scores", res.Confidence)
	}
	if res.Recommendation != "neutral" {
		t.Fatalf("recommendation = %s, want neutral at fused %v", res.Recommendation, res.FusedScore)
	}
}

func TestFusePartialAvailability(t *testing.T) {
	scorer := &stubScorer{results: map[domrepo.Timeframe]models.ScoreResult{
		domrepo.TF1h: okScore(domrepo.TF1h, 0.8),
	}}
	uc := NewFuseUseCase(scorer, nil)
	res := uc.Fuse(context.Background(), "BTC-USD", models.RegimeAll, nil)

	if math.Abs(res.FusedScore-0.8) > 1e-12 {
		t.Fatalf("single available timeframe must carry full weight, fused = %v", res.FusedScore)
	}
	if res.Confidence != "low" {
		t.Fatalf("confidence = %s, want low with one timeframe", res.Confidence)
	}
	if res.Recommendation != "strong_buy" {
		t.Fatalf("recommendation = %s, want strong_buy at 0.8", res.Recommendation)
	}
	slot := res.Breakdown[string(domrepo.TF1h)]
	if !slot.Available || math.Abs(slot.Weight-1) > 1e-12 {
		t.Fatalf("available slot %+v, want renormalized weight 1", slot)
	}
	for _, tf := range []domrepo.Timeframe{domrepo.TF4h, domrepo.TF1d} {
		slot := res.Breakdown[string(tf)]
		if slot.Available || slot.Error == "" || slot.Weight != 0 {
			t.Fatalf("unavailable slot %s = %+v", tf, slot)
		}
	}
}

func TestFuseNothingAvailable(t *testing.T) {
	uc := NewFuseUseCase(&stubScorer{}, nil)
	res := uc.Fuse(context.Background(), "BTC-USD", models.RegimeAll, nil)
	if res.Confidence != "none" {
		t.Fatalf("confidence = %s, want none", res.Confidence)
	}
	if res.Recommendation != "neutral" {
		t.Fatalf("recommendation = %s, want neutral", res.Recommendation)
	}
	if res.FusedScore != 0 {
		t.Fatalf("fused = %v, want 0", res.FusedScore)
	}
}

func TestFuseRegimeAdaptiveWeights(t *testing.T) {
	scorer := &stubScorer{results: map[domrepo.Timeframe]models.ScoreResult{
		domrepo.TF1h: okScore(domrepo.TF1h, 0.8),
		domrepo.TF4h: okScore(domrepo.TF4h, 0.3),
		domrepo.TF1d: okScore(domrepo.TF1d, 0.6),
	}}
	uc := NewFuseUseCase(scorer, nil)
	res := uc.Fuse(context.Background(), "BTC-USD", models.RegimeTrendUp, nil)
	want := 0.20*0.8 + 0.30*0.3 + 0.50*0.6
	if math.Abs(res.FusedScore-want) > 1e-12 {
		t.Fatalf("trend-regime fused = %v, want %v", res.FusedScore, want)
	}
}

func TestFuseExplicitWeights(t *testing.T) {
	scorer := &stubScorer{results: map[domrepo.Timeframe]models.ScoreResult{
		domrepo.TF1h: okScore(domrepo.TF1h, 0.9),
		domrepo.TF4h: okScore(domrepo.TF4h, 0.1),
		domrepo.TF1d: okScore(domrepo.TF1d, 0.5),
	}}
	uc := NewFuseUseCase(scorer, nil)
	res := uc.Fuse(context.Background(), "BTC-USD", models.RegimeAll, map[domrepo.Timeframe]float64{
		domrepo.TF1h: 1, domrepo.TF4h: 0, domrepo.TF1d: 0,
	})
	if math.Abs(res.FusedScore-0.9) > 1e-12 {
		t.Fatalf("explicit weights fused = %v, want 0.9", res.FusedScore)
	}
}
