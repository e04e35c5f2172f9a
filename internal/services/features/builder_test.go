package features

import (
	"errors"
	"testing"
	"time"

	"EdgeLab/internal/domain/models"
)

func makeCandles(n int, trendUp bool) []models.Candle {
	out := make([]models.Candle, 0, n)
	price := 100.0
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		step := 0.5
		if !trendUp {
			step = -0.5
		}
		if i%7 == 0 {
			step = -step // some counter-trend noise
		}
		open := price
		price += step
		high := open + 1.2
		low := open - 1.2
		if price > high {
			high = price
		}
		if price < low {
			low = price
		}
		out = append(out, models.Candle{
			Bucket: start.Add(time.Duration(i) * time.Hour),
			Symbol: "TEST",
			Open:   open,
			High:   high,
			Low:    low,
			Close:  price,
			Volume: 1000 + float64(i%5)*50,
		})
	}
	return out
}

func TestBuildRequiresWarmup(t *testing.T) {
	b := NewBuilder()
	_, err := b.Build(makeCandles(MinCandles-1, true))
	if !errors.Is(err, models.ErrDataUnavailable) {
		t.Fatalf("expected ErrDataUnavailable, got %v", err)
	}
}

func TestBuildStableNameOrder(t *testing.T) {
	b := NewBuilder()
	fv1, err := b.Build(makeCandles(80, true))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	fv2, err := b.Build(makeCandles(120, false))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	n1, n2 := fv1.Names(), fv2.Names()
	if len(n1) == 0 || len(n1) != len(n2) {
		t.Fatalf("name sets differ: %d vs %d", len(n1), len(n2))
	}
	for i := range n1 {
		if n1[i] != n2[i] {
			t.Fatalf("name order differs at %d: %s vs %s", i, n1[i], n2[i])
		}
	}
}

func TestBuildTrendFlag(t *testing.T) {
	b := NewBuilder()
	up, err := b.Build(makeCandles(100, true))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if v, _ := up.Get("trend_up"); v != 1.0 {
		t.Fatalf("uptrend candles should set trend_up=1, got %v", v)
	}
	down, err := b.Build(makeCandles(100, false))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if v, _ := down.Get("trend_up"); v != 0.0 {
		t.Fatalf("downtrend candles should set trend_up=0, got %v", v)
	}
}

func TestBuildGeometryBounded(t *testing.T) {
	b := NewBuilder()
	fv, err := b.Build(makeCandles(100, true))
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, name := range []string{"body_range", "upper_wick", "lower_wick"} {
		v, ok := fv.Get(name)
		if !ok {
			t.Fatalf("missing feature %s", name)
		}
		if v < 0 || v > 1 {
			t.Fatalf("%s = %v outside [0,1]", name, v)
		}
	}
}

func TestReindexZeroFill(t *testing.T) {
	fv := models.NewFeatureVector()
	fv.Set("a", 1.0)
	fv.Set("c", 3.0)
	fv.Set("z", 9.0) // not in training columns, must be ignored
	got := fv.Reindex([]string{"a", "b", "c"})
	want := []float64{1.0, 0.0, 3.0}
	if len(got) != len(want) {
		t.Fatalf("reindex length %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("reindex[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
