package segment

import (
	"testing"

	"EdgeLab/internal/domain/models"
	domrepo "EdgeLab/internal/domain/repository"
)

func TestClassifySymbol(t *testing.T) {
	cases := []struct {
		symbol string
		want   models.AssetClass
	}{
		{"AAPL", models.AssetEquity},
		{"MSFT", models.AssetEquity},
		{"BTC-USD", models.AssetCrypto},
		{"ETH/USDT", models.AssetCrypto},
		{"SOLUSDT", models.AssetCrypto},
		{"EURUSD", models.AssetFX},
		{"EURUSD=X", models.AssetFX},
		{"EUR/USD", models.AssetFX},
		{"GBP-JPY", models.AssetFX},
		{"", models.AssetEquity},
	}
	for _, tc := range cases {
		if got := ClassifySymbol(tc.symbol); got != tc.want {
			t.Fatalf("ClassifySymbol(%q) = %s, want %s", tc.symbol, got, tc.want)
		}
	}
}

func TestResolveRegimeFromEMAOrdering(t *testing.T) {
	r := NewResolver()

	up := models.NewFeatureVector()
	up.Set("ema_fast", 1.02)
	up.Set("ema_slow", 0.99)
	key := r.Resolve("BTC-USD", domrepo.TF1h, up)
	if key.Regime != models.RegimeTrendUp {
		t.Fatalf("regime = %s, want trend_up", key.Regime)
	}
	if key.AssetClass != models.AssetCrypto || key.Timeframe != "1h" {
		t.Fatalf("unexpected key %+v", key)
	}

	down := models.NewFeatureVector()
	down.Set("ema_fast", 0.98)
	down.Set("ema_slow", 1.01)
	if key := r.Resolve("AAPL", domrepo.TF1d, down); key.Regime != models.RegimeTrendDown {
		t.Fatalf("regime = %s, want trend_down", key.Regime)
	}
}

func TestResolveRegimeDegradesToAll(t *testing.T) {
	r := NewResolver()
	if key := r.Resolve("AAPL", domrepo.TF1h, models.NewFeatureVector()); key.Regime != models.RegimeAll {
		t.Fatalf("missing indicators should degrade to all, got %s", key.Regime)
	}
	if key := r.Resolve("AAPL", domrepo.TF1h, nil); key.Regime != models.RegimeAll {
		t.Fatalf("nil feature row should degrade to all, got %s", key.Regime)
	}
}
