package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"EdgeLab/internal/domain/models"
	domrepo "EdgeLab/internal/domain/repository"
	domservice "EdgeLab/internal/domain/service"
	"EdgeLab/internal/ml"
	svcmetrics "EdgeLab/internal/service/metrics"
	applogger "EdgeLab/pkg/logger"
)

var _ domservice.OnlineLearner = (*OnlineUseCase)(nil)

// OnlineConfig controls the incremental-learning path. Zero values are
// replaced by defaults in NewOnlineUseCase.
type OnlineConfig struct {
	QueueCapacity int
	WindowSize    int
	SnapshotMin   int
	PersistEvery  int
	LearningRate  float64
}

type onlineItem struct {
	key      models.SegmentKey
	features *models.FeatureVector
	label    int
}

// windowEntry is one prequential observation: the prediction made
// before the sample was used for the update.
type windowEntry struct {
	label int
	proba float64
}

type onlineModel struct {
	columns []string
	logit   *ml.OnlineLogit
	window  []windowEntry
	updates int
}

// onlineState is the persisted form of one online model.
type onlineState struct {
	Columns []string        `json:"columns"`
	Logit   *ml.OnlineLogit `json:"logit"`
}

// OnlineUseCase keeps per-segment incremental models warm between full
// retrains. Enqueue never blocks: a full queue rejects the sample with
// ErrQueueFull instead of stalling the producer. ProcessQueue is the
// single-drainer batch path, intended to be called from one goroutine.
type OnlineUseCase struct {
	cfg   OnlineConfig
	queue chan onlineItem
	state domrepo.OnlineStateStore

	mu     sync.RWMutex
	models map[models.SegmentKey]*onlineModel

	metrics domrepo.Metrics
	l       *applogger.Logger
}

func NewOnlineUseCase(state domrepo.OnlineStateStore, metrics domrepo.Metrics, cfg OnlineConfig) *OnlineUseCase {
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 1024
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = 50
	}
	if cfg.SnapshotMin <= 0 {
		cfg.SnapshotMin = 10
	}
	if cfg.PersistEvery <= 0 {
		cfg.PersistEvery = 50
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.05
	}
	return &OnlineUseCase{
		cfg:     cfg,
		queue:   make(chan onlineItem, cfg.QueueCapacity),
		state:   state,
		models:  make(map[models.SegmentKey]*onlineModel),
		metrics: metrics,
	}
}

// SetLogger injects a structured logger.
func (uc *OnlineUseCase) SetLogger(l *applogger.Logger) { uc.l = l }

// Restore loads persisted online models. Corrupt state files are logged
// and skipped; the affected segment starts cold.
func (uc *OnlineUseCase) Restore(ctx context.Context) error {
	if uc.state == nil {
		return nil
	}
	keys, err := uc.state.ListStates(ctx)
	if err != nil {
		return fmt.Errorf("online restore: %w", err)
	}
	restored := 0
	for _, key := range keys {
		data, err := uc.state.LoadState(ctx, key)
		if err != nil {
			if uc.l != nil {
				uc.l.Warn("online state load failed", applogger.String("segment", key.String()), applogger.Error(err))
			}
			continue
		}
		var st onlineState
		if err := json.Unmarshal(data, &st); err != nil || st.Logit == nil || len(st.Columns) == 0 {
			if uc.l != nil {
				uc.l.Warn("online state corrupt, starting cold", applogger.String("segment", key.String()))
			}
			continue
		}
		uc.mu.Lock()
		uc.models[key] = &onlineModel{columns: st.Columns, logit: st.Logit}
		uc.mu.Unlock()
		restored++
	}
	if uc.l != nil {
		uc.l.Info("online models restored", applogger.Int("count", restored))
	}
	return nil
}

// Enqueue submits one labeled sample. Returns models.ErrQueueFull when
// the bounded queue is at capacity.
func (uc *OnlineUseCase) Enqueue(key models.SegmentKey, features *models.FeatureVector, label int) error {
	if features == nil || features.Len() == 0 {
		return fmt.Errorf("online enqueue %s: empty feature row", key)
	}
	select {
	case uc.queue <- onlineItem{key: key, features: features, label: label}:
		if uc.metrics != nil {
			uc.metrics.RecordQueueDepth(len(uc.queue))
		}
		return nil
	default:
		if uc.metrics != nil {
			uc.metrics.RecordError("online_queue_full")
		}
		return models.ErrQueueFull
	}
}

// ProcessQueue drains up to batchSize queued samples, evaluating each
// model on the sample before updating with it.
func (uc *OnlineUseCase) ProcessQueue(ctx context.Context, batchSize int) models.QueueDrainReport {
	if batchSize <= 0 {
		batchSize = uc.cfg.QueueCapacity
	}
	touched := make(map[models.SegmentKey]bool)
	report := models.QueueDrainReport{}

	for report.Processed+report.Errored < batchSize {
		if err := ctx.Err(); err != nil {
			break
		}
		var item onlineItem
		select {
		case item = <-uc.queue:
		default:
			report.Remaining = len(uc.queue)
			report.Segments = len(touched)
			return report
		}
		if err := uc.applySample(ctx, item); err != nil {
			report.Errored++
			if uc.metrics != nil {
				uc.metrics.RecordError("online_update")
			}
			if uc.l != nil {
				uc.l.Warn("online update failed", applogger.String("segment", item.key.String()), applogger.Error(err))
			}
			continue
		}
		touched[item.key] = true
		report.Processed++
	}
	if uc.metrics != nil && report.Processed > 0 {
		uc.metrics.RecordOnlineUpdate(len(touched), report.Processed)
	}
	report.Remaining = len(uc.queue)
	report.Segments = len(touched)
	return report
}

func (uc *OnlineUseCase) applySample(ctx context.Context, item onlineItem) error {
	uc.mu.Lock()
	m, ok := uc.models[item.key]
	if !ok {
		cols := item.features.Names()
		m = &onlineModel{
			columns: cols,
			logit:   ml.NewOnlineLogit(len(cols)),
		}
		m.logit.LearningRate = uc.cfg.LearningRate
		uc.models[item.key] = m
	}
	x := item.features.Reindex(m.columns)

	// prequential: score first, then learn
	p := m.logit.PredictProba(x)
	m.window = append(m.window, windowEntry{label: item.label, proba: p})
	if len(m.window) > uc.cfg.WindowSize {
		m.window = m.window[len(m.window)-uc.cfg.WindowSize:]
	}
	err := m.logit.PartialFit([][]float64{x}, []int{item.label})
	if err != nil {
		uc.mu.Unlock()
		return err
	}
	m.updates++
	persist := uc.state != nil && m.updates%uc.cfg.PersistEvery == 0
	var data []byte
	if persist {
		data, err = json.Marshal(onlineState{Columns: m.columns, Logit: m.logit})
	}
	uc.mu.Unlock()

	if err != nil {
		return err
	}
	if persist {
		if err := uc.state.SaveState(ctx, item.key, data); err != nil {
			return err
		}
	}
	return nil
}

// PredictProba scores a feature row against the segment's online model,
// returning the neutral 0.5 when the segment has no fitted model yet.
func (uc *OnlineUseCase) PredictProba(key models.SegmentKey, features *models.FeatureVector) float64 {
	uc.mu.RLock()
	m, ok := uc.models[key]
	uc.mu.RUnlock()
	if !ok || features == nil {
		return 0.5
	}
	return m.logit.PredictProba(features.Reindex(m.columns))
}

// Snapshot returns the rolling performance view of one segment's model.
func (uc *OnlineUseCase) Snapshot(key models.SegmentKey) (models.OnlineSnapshot, bool) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	m, ok := uc.models[key]
	if !ok {
		return models.OnlineSnapshot{}, false
	}
	return uc.snapshotLocked(key, m), true
}

// Snapshots returns every tracked segment, ordered by segment key.
func (uc *OnlineUseCase) Snapshots() []models.OnlineSnapshot {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	out := make([]models.OnlineSnapshot, 0, len(uc.models))
	for key, m := range uc.models {
		out = append(out, uc.snapshotLocked(key, m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment.String() < out[j].Segment.String() })
	return out
}

func (uc *OnlineUseCase) snapshotLocked(key models.SegmentKey, m *onlineModel) models.OnlineSnapshot {
	snap := models.OnlineSnapshot{
		Segment:      key,
		Fitted:       m.logit.Fitted,
		NSamplesSeen: m.logit.NSamplesSeen,
		WindowSize:   len(m.window),
		UpdatedAt:    m.logit.UpdatedAt,
	}
	if len(m.window) >= uc.cfg.SnapshotMin {
		labels := make([]int, len(m.window))
		probas := make([]float64, len(m.window))
		for i, e := range m.window {
			labels[i] = e.label
			probas[i] = e.proba
		}
		snap.Accuracy = ml.Accuracy(probas, labels)
		snap.AUC = ml.AUC(probas, labels)
		svcmetrics.OnlineRollingAccuracy.WithLabelValues(key.String()).Set(snap.Accuracy)
	}
	return snap
}

// QueueDepth reports the current queue fill, for health and metrics.
func (uc *OnlineUseCase) QueueDepth() int { return len(uc.queue) }
