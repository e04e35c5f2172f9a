package ml

import (
	"encoding/json"
	"math"
	"testing"
)

func linearlySeparable() ([][]float64, []int) {
	var X [][]float64
	var y []int
	for i := 0; i < 40; i++ {
		v := float64(i)
		if i%2 == 0 {
			X = append(X, []float64{v, 1.0})
			y = append(y, 1)
		} else {
			X = append(X, []float64{-v - 1, 1.0})
			y = append(y, 0)
		}
	}
	return X, y
}

func TestGBMSeparatesClasses(t *testing.T) {
	X, y := linearlySeparable()
	g := NewGradientBoosted(GBMConfig{Trees: 20, MaxDepth: 2})
	if err := g.Fit(X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	if p := g.PredictProba([]float64{30, 1.0}); p < 0.7 {
		t.Fatalf("expected high probability for positive region, got %.3f", p)
	}
	if p := g.PredictProba([]float64{-30, 1.0}); p > 0.3 {
		t.Fatalf("expected low probability for negative region, got %.3f", p)
	}
}

func TestGBMDeterministic(t *testing.T) {
	X, y := linearlySeparable()
	a := NewGradientBoosted(GBMConfig{Trees: 15, MaxDepth: 3, Seed: 42})
	b := NewGradientBoosted(GBMConfig{Trees: 15, MaxDepth: 3, Seed: 42})
	if err := a.Fit(X, y); err != nil {
		t.Fatalf("fit a: %v", err)
	}
	if err := b.Fit(X, y); err != nil {
		t.Fatalf("fit b: %v", err)
	}
	probe := []float64{7.5, 1.0}
	if pa, pb := a.PredictProba(probe), b.PredictProba(probe); math.Abs(pa-pb) > 1e-12 {
		t.Fatalf("repeated fits diverged: %v vs %v", pa, pb)
	}
}

func TestGBMSingleClassDoesNotCrash(t *testing.T) {
	X := [][]float64{{1, 2}, {3, 4}, {5, 6}, {7, 8}}
	y := []int{1, 1, 1, 1}
	g := NewGradientBoosted(GBMConfig{Trees: 5})
	if err := g.Fit(X, y); err != nil {
		t.Fatalf("single-class fit should not error: %v", err)
	}
	if p := g.PredictProba([]float64{2, 3}); p < 0.5 {
		t.Fatalf("single-class model should lean positive, got %.3f", p)
	}
}

func TestGBMJSONRoundTrip(t *testing.T) {
	X, y := linearlySeparable()
	g := NewGradientBoosted(GBMConfig{Trees: 10, MaxDepth: 2})
	if err := g.Fit(X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	b, err := json.Marshal(g)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back GradientBoosted
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	probe := []float64{12, 1.0}
	if p1, p2 := g.PredictProba(probe), back.PredictProba(probe); math.Abs(p1-p2) > 1e-12 {
		t.Fatalf("round trip changed prediction: %v vs %v", p1, p2)
	}
}

func TestGBMRowWidthMismatch(t *testing.T) {
	g := NewGradientBoosted(GBMConfig{})
	err := g.Fit([][]float64{{1, 2}, {3}}, []int{0, 1})
	if err == nil {
		t.Fatalf("expected error for ragged rows")
	}
}
