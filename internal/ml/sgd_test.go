package ml

import (
	"encoding/json"
	"testing"
)

func TestOnlineLogitNeutralWhileUnfitted(t *testing.T) {
	m := NewOnlineLogit(3)
	if p := m.PredictProba([]float64{1, 2, 3}); p != 0.5 {
		t.Fatalf("unfitted model must return 0.5, got %v", p)
	}
}

func TestOnlineLogitSampleCountMonotonic(t *testing.T) {
	m := NewOnlineLogit(2)
	batches := []int{3, 5, 2, 7}
	total := int64(0)
	for _, n := range batches {
		X := make([][]float64, n)
		y := make([]int, n)
		for i := 0; i < n; i++ {
			X[i] = []float64{float64(i), float64(-i)}
			y[i] = i % 2
		}
		if err := m.PartialFit(X, y); err != nil {
			t.Fatalf("partial fit: %v", err)
		}
		total += int64(n)
		if m.NSamplesSeen != total {
			t.Fatalf("n_samples_seen = %d, want %d", m.NSamplesSeen, total)
		}
	}
}

func TestOnlineLogitLearnsSeparation(t *testing.T) {
	m := NewOnlineLogit(1)
	for pass := 0; pass < 30; pass++ {
		X := [][]float64{{2}, {3}, {-2}, {-3}}
		y := []int{1, 1, 0, 0}
		if err := m.PartialFit(X, y); err != nil {
			t.Fatalf("partial fit: %v", err)
		}
	}
	if p := m.PredictProba([]float64{2.5}); p < 0.6 {
		t.Fatalf("expected positive lean, got %.3f", p)
	}
	if p := m.PredictProba([]float64{-2.5}); p > 0.4 {
		t.Fatalf("expected negative lean, got %.3f", p)
	}
}

func TestOnlineLogitScalerFitOnce(t *testing.T) {
	m := NewOnlineLogit(1)
	if err := m.PartialFit([][]float64{{10}, {20}}, []int{0, 1}); err != nil {
		t.Fatalf("partial fit: %v", err)
	}
	mean := m.Scaler.Means[0]
	if err := m.PartialFit([][]float64{{1000}, {2000}}, []int{0, 1}); err != nil {
		t.Fatalf("partial fit: %v", err)
	}
	if m.Scaler.Means[0] != mean {
		t.Fatalf("scaler refit after first call: %v != %v", m.Scaler.Means[0], mean)
	}
}

func TestOnlineLogitJSONRoundTrip(t *testing.T) {
	m := NewOnlineLogit(2)
	if err := m.PartialFit([][]float64{{1, 0}, {0, 1}}, []int{1, 0}); err != nil {
		t.Fatalf("partial fit: %v", err)
	}
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back OnlineLogit
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.NSamplesSeen != m.NSamplesSeen || !back.Fitted {
		t.Fatalf("state lost in round trip")
	}
}
