package usecase

import (
	"context"
	"errors"
	"testing"

	"EdgeLab/internal/domain/models"
)

func onlineKey() models.SegmentKey {
	return models.SegmentKey{AssetClass: models.AssetCrypto, Timeframe: "1h", Regime: models.RegimeTrendUp}
}

func onlineRow(a, b float64) *models.FeatureVector {
	fv := models.NewFeatureVector()
	fv.Set("a", a)
	fv.Set("b", b)
	return fv
}

func fillQueue(t *testing.T, uc *OnlineUseCase, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		a, label := 0.1, 0
		if i%2 == 0 {
			a, label = 0.9, 1
		}
		if err := uc.Enqueue(onlineKey(), onlineRow(a, 0.5), label); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
}

func TestOnlineEnqueueBounded(t *testing.T) {
	uc := NewOnlineUseCase(nil, nil, OnlineConfig{QueueCapacity: 2})
	if err := uc.Enqueue(onlineKey(), onlineRow(1, 0), 1); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := uc.Enqueue(onlineKey(), onlineRow(0, 1), 0); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := uc.Enqueue(onlineKey(), onlineRow(1, 1), 1); !errors.Is(err, models.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if uc.QueueDepth() != 2 {
		t.Fatalf("queue depth = %d, want 2", uc.QueueDepth())
	}
}

func TestOnlineProcessQueue(t *testing.T) {
	uc := NewOnlineUseCase(nil, nil, OnlineConfig{})
	fillQueue(t, uc, 25)

	report := uc.ProcessQueue(context.Background(), 100)
	if report.Processed != 25 || report.Errored != 0 {
		t.Fatalf("drain report %+v, want 25 processed", report)
	}
	if report.Segments != 1 {
		t.Fatalf("segments = %d, want 1", report.Segments)
	}
	if report.Remaining != 0 {
		t.Fatalf("remaining = %d, want 0", report.Remaining)
	}

	snap, ok := uc.Snapshot(onlineKey())
	if !ok {
		t.Fatal("snapshot missing after updates")
	}
	if !snap.Fitted {
		t.Fatal("model must be fitted after updates")
	}
	if snap.NSamplesSeen != 25 {
		t.Fatalf("samples seen = %d, want 25", snap.NSamplesSeen)
	}
	if snap.WindowSize != 25 {
		t.Fatalf("window size = %d, want 25", snap.WindowSize)
	}
	if snap.AUC < 0 || snap.AUC > 1 {
		t.Fatalf("AUC = %v out of range", snap.AUC)
	}
}

func TestOnlineProcessQueueBatchLimit(t *testing.T) {
	uc := NewOnlineUseCase(nil, nil, OnlineConfig{})
	fillQueue(t, uc, 10)
	report := uc.ProcessQueue(context.Background(), 4)
	if report.Processed != 4 {
		t.Fatalf("processed = %d, want 4", report.Processed)
	}
	if report.Remaining != 6 {
		t.Fatalf("remaining = %d, want 6", report.Remaining)
	}
}

func TestOnlineSnapshotBelowMinimum(t *testing.T) {
	uc := NewOnlineUseCase(nil, nil, OnlineConfig{})
	fillQueue(t, uc, 5)
	uc.ProcessQueue(context.Background(), 100)
	snap, ok := uc.Snapshot(onlineKey())
	if !ok {
		t.Fatal("snapshot missing")
	}
	if snap.Accuracy != 0 || snap.AUC != 0 {
		t.Fatalf("metrics must stay zero below the window minimum: %+v", snap)
	}
	if snap.WindowSize != 5 {
		t.Fatalf("window size = %d, want 5", snap.WindowSize)
	}
}

func TestOnlineSnapshotMetricsSingleClassWindow(t *testing.T) {
	uc := NewOnlineUseCase(nil, nil, OnlineConfig{})
	for i := 0; i < 12; i++ {
		if err := uc.Enqueue(onlineKey(), onlineRow(0.9, 0.5), 1); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	uc.ProcessQueue(context.Background(), 100)

	snap, ok := uc.Snapshot(onlineKey())
	if !ok {
		t.Fatal("snapshot missing")
	}
	// Every prequential prediction for an all-positive stream is >= 0.5:
	// the first is the neutral 0.5, the rest sit above it as the bias
	// climbs, so accuracy at the 0.5 threshold is exact.
	if snap.Accuracy != 1.0 {
		t.Fatalf("accuracy = %v, want 1.0 on an all-positive window", snap.Accuracy)
	}
	if snap.AUC != 0.5 {
		t.Fatalf("AUC = %v, want the single-class 0.5", snap.AUC)
	}
}

func TestOnlinePredictNeutralWithoutModel(t *testing.T) {
	uc := NewOnlineUseCase(nil, nil, OnlineConfig{})
	if p := uc.PredictProba(onlineKey(), onlineRow(1, 0)); p != 0.5 {
		t.Fatalf("unknown segment must predict 0.5, got %v", p)
	}
}

func TestOnlinePersistCadence(t *testing.T) {
	state := newMemStateStore()
	uc := NewOnlineUseCase(state, nil, OnlineConfig{PersistEvery: 10})
	fillQueue(t, uc, 25)
	uc.ProcessQueue(context.Background(), 100)
	if got := state.saveCount(); got != 2 {
		t.Fatalf("saves = %d, want 2 for 25 updates at cadence 10", got)
	}
}

func TestOnlineRestore(t *testing.T) {
	ctx := context.Background()
	state := newMemStateStore()

	uc := NewOnlineUseCase(state, nil, OnlineConfig{PersistEvery: 10})
	fillQueue(t, uc, 10)
	uc.ProcessQueue(ctx, 100)

	restored := NewOnlineUseCase(state, nil, OnlineConfig{})
	if err := restored.Restore(ctx); err != nil {
		t.Fatalf("restore: %v", err)
	}
	snap, ok := restored.Snapshot(onlineKey())
	if !ok {
		t.Fatal("restored model missing")
	}
	if !snap.Fitted || snap.NSamplesSeen != 10 {
		t.Fatalf("restored snapshot %+v, want fitted with 10 samples", snap)
	}
	if p := restored.PredictProba(onlineKey(), onlineRow(0.9, 0.5)); p == 0.5 {
		t.Log("restored model predicts neutral; acceptable but unexpected for separable data")
	}
}
