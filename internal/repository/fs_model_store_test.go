package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"EdgeLab/internal/domain/models"
	"EdgeLab/internal/ml"
)

func testBundle(t *testing.T) *models.ModelBundle {
	t.Helper()
	gbm := ml.NewGradientBoosted(ml.GBMConfig{Trees: 5, MaxDepth: 2})
	X := [][]float64{{0, 1}, {0.1, 0.9}, {0.2, 1.1}, {0.9, 0.1}, {1.0, 0.2}, {1.1, 0}, {0.15, 1.0}, {0.95, 0.05}}
	y := []int{1, 1, 1, 0, 0, 0, 1, 0}
	if err := gbm.Fit(X, y); err != nil {
		t.Fatalf("fit: %v", err)
	}
	return &models.ModelBundle{
		Columns:       []string{"ret_1", "rsi_14"},
		Classifier:    gbm,
		TrainedAt:     time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
		SampleCount:   len(y),
		ValidationAUC: 0.9,
	}
}

func TestModelStorePutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFSModelStore(t.TempDir(), time.Minute)
	key := models.SegmentKey{AssetClass: models.AssetCrypto, Timeframe: "1h", Regime: models.RegimeTrendUp}

	bundle := testBundle(t)
	path, err := store.Put(ctx, key, bundle)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	wantSuffix := filepath.Join("crypto", "1h", "trend_up", "bundle.json")
	if !strings.HasSuffix(path, wantSuffix) {
		t.Fatalf("path %q does not end in %q", path, wantSuffix)
	}

	got, gotPath, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotPath != path {
		t.Fatalf("get path %q, want %q", gotPath, path)
	}
	if got.SampleCount != bundle.SampleCount || got.ValidationAUC != bundle.ValidationAUC {
		t.Fatalf("metadata mismatch: %+v", got)
	}
	if len(got.Columns) != 2 || got.Columns[0] != "ret_1" {
		t.Fatalf("columns not preserved: %v", got.Columns)
	}

	x := []float64{0.1, 0.95}
	if got.Classifier.PredictProba(x) != bundle.Classifier.PredictProba(x) {
		t.Fatal("loaded classifier predicts differently from the original")
	}
}

func TestModelStorePatternPath(t *testing.T) {
	store := NewFSModelStore("/models", time.Minute)
	key := models.SegmentKey{
		AssetClass: models.AssetEquity,
		Timeframe:  "4h",
		Regime:     models.RegimeAll,
		Pattern:    "Bull Flag",
	}
	want := filepath.Join("/models", "equity", "4h", "bull_flag", "all", "bundle.json")
	if got := store.PathFor(key); got != want {
		t.Fatalf("PathFor = %q, want %q", got, want)
	}
}

func TestModelStoreGetMissing(t *testing.T) {
	store := NewFSModelStore(t.TempDir(), time.Minute)
	key := models.SegmentKey{AssetClass: models.AssetFX, Timeframe: "1d", Regime: models.RegimeAll}
	if _, _, err := store.Get(context.Background(), key); !errors.Is(err, models.ErrBundleNotFound) {
		t.Fatalf("expected ErrBundleNotFound, got %v", err)
	}
}

func TestModelStoreCorruptBundle(t *testing.T) {
	ctx := context.Background()
	store := NewFSModelStore(t.TempDir(), time.Minute)
	key := models.SegmentKey{AssetClass: models.AssetCrypto, Timeframe: "1h", Regime: models.RegimeAll}

	path := store.PathFor(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, _, err := store.Get(ctx, key); !errors.Is(err, models.ErrCorruptBundle) {
		t.Fatalf("expected ErrCorruptBundle, got %v", err)
	}
}

func TestModelStoreFallbackToAllRegime(t *testing.T) {
	ctx := context.Background()
	store := NewFSModelStore(t.TempDir(), time.Minute)
	allKey := models.SegmentKey{AssetClass: models.AssetCrypto, Timeframe: "1h", Regime: models.RegimeAll}
	if _, err := store.Put(ctx, allKey, testBundle(t)); err != nil {
		t.Fatalf("put: %v", err)
	}

	exact := allKey.WithRegime(models.RegimeTrendDown)
	bundle, resolved, _, err := store.GetWithFallback(ctx, exact)
	if err != nil {
		t.Fatalf("fallback get: %v", err)
	}
	if bundle == nil || resolved.Regime != models.RegimeAll {
		t.Fatalf("expected all-regime fallback, resolved %s", resolved)
	}

	missing := models.SegmentKey{AssetClass: models.AssetEquity, Timeframe: "1h", Regime: models.RegimeTrendUp}
	if _, _, _, err := store.GetWithFallback(ctx, missing); !errors.Is(err, models.ErrModelNotTrained) {
		t.Fatalf("expected ErrModelNotTrained, got %v", err)
	}
}

func TestModelStorePutReplacesExisting(t *testing.T) {
	ctx := context.Background()
	store := NewFSModelStore(t.TempDir(), time.Minute)
	key := models.SegmentKey{AssetClass: models.AssetCrypto, Timeframe: "1h", Regime: models.RegimeAll}

	first := testBundle(t)
	if _, err := store.Put(ctx, key, first); err != nil {
		t.Fatalf("put: %v", err)
	}
	second := testBundle(t)
	second.SampleCount = 999
	if _, err := store.Put(ctx, key, second); err != nil {
		t.Fatalf("put replace: %v", err)
	}
	got, _, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SampleCount != 999 {
		t.Fatalf("expected replaced bundle, got SampleCount=%d", got.SampleCount)
	}
}

func TestOnlineStateStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewFSOnlineStateStore(t.TempDir())
	key := models.SegmentKey{AssetClass: models.AssetCrypto, Timeframe: "1h", Regime: models.RegimeTrendUp, Pattern: "breakout"}

	if _, err := store.LoadState(ctx, key); !errors.Is(err, models.ErrBundleNotFound) {
		t.Fatalf("expected ErrBundleNotFound before save, got %v", err)
	}

	state := []byte(`{"weights":[0.1,0.2],"bias":0.05}`)
	if err := store.SaveState(ctx, key, state); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.LoadState(ctx, key)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != string(state) {
		t.Fatalf("state round-trip mismatch: %s", got)
	}

	other := models.SegmentKey{AssetClass: models.AssetEquity, Timeframe: "4h", Regime: models.RegimeAll}
	if err := store.SaveState(ctx, other, []byte(`{}`)); err != nil {
		t.Fatalf("save other: %v", err)
	}
	keys, err := store.ListStates(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 states, got %d", len(keys))
	}
	found := false
	for _, k := range keys {
		if k == key {
			found = true
		}
	}
	if !found {
		t.Fatalf("saved key missing from list: %v", keys)
	}
}
