package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"EdgeLab/internal/domain/models"
	domrepo "EdgeLab/internal/domain/repository"
	domservice "EdgeLab/internal/domain/service"
	"EdgeLab/internal/services/segment"
	pkgkafka "EdgeLab/pkg/kafka"
	applogger "EdgeLab/pkg/logger"
)

// FeatureSource produces the current feature row for a symbol.
type FeatureSource interface {
	LiveFeatures(ctx context.Context, symbol string, tf domrepo.Timeframe) (*models.FeatureVector, error)
}

// KafkaOutcomesHandler consumes outcome events, persists them, and
// feeds the online learner. A full online queue is not an ingestion
// error: the sample is dropped and picked up by the next full retrain.
type KafkaOutcomesHandler struct {
	topic    string
	sink     domrepo.OutcomeSink
	features FeatureSource
	online   domservice.OnlineLearner
	resolver *segment.Resolver
	metrics  domrepo.Metrics
	l        *applogger.Logger
}

func NewKafkaOutcomesHandler(
	topic string,
	sink domrepo.OutcomeSink,
	features FeatureSource,
	online domservice.OnlineLearner,
	metrics domrepo.Metrics,
) *KafkaOutcomesHandler {
	return &KafkaOutcomesHandler{
		topic:    topic,
		sink:     sink,
		features: features,
		online:   online,
		resolver: segment.NewResolver(),
		metrics:  metrics,
	}
}

// SetLogger injects a structured logger.
func (h *KafkaOutcomesHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *KafkaOutcomesHandler) Topic() string { return h.topic }

// incoming message schema matches KafkaOutcomePublisher's payload
type outcomeMessage struct {
	Symbol     string  `json:"symbol"`
	Pattern    string  `json:"pattern"`
	Timeframe  string  `json:"timeframe"`
	EntryPrice float64 `json:"entry_price"`
	ExitPrice  float64 `json:"exit_price"`
	PnL        float64 `json:"pnl"`
	Quantity   float64 `json:"quantity"`
	OpenedAt   string  `json:"opened_at"`
	ClosedAt   string  `json:"closed_at"`
}

func (h *KafkaOutcomesHandler) Handle(ctx context.Context, b []byte) error {
	var m outcomeMessage
	if err := json.Unmarshal(b, &m); err != nil {
		if h.metrics != nil {
			h.metrics.RecordError("consumer_unmarshal")
		}
		return err
	}
	if m.Symbol == "" {
		if h.metrics != nil {
			h.metrics.RecordError("consumer_invalid")
		}
		return fmt.Errorf("outcome event without symbol")
	}
	openedAt, err := time.Parse(time.RFC3339, m.OpenedAt)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordError("consumer_invalid")
		}
		return fmt.Errorf("outcome opened_at: %w", err)
	}
	closedAt, err := time.Parse(time.RFC3339, m.ClosedAt)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordError("consumer_invalid")
		}
		return fmt.Errorf("outcome closed_at: %w", err)
	}

	o := models.Outcome{
		Symbol:     m.Symbol,
		Pattern:    m.Pattern,
		Timeframe:  m.Timeframe,
		EntryPrice: m.EntryPrice,
		ExitPrice:  m.ExitPrice,
		PnL:        m.PnL,
		Quantity:   m.Quantity,
		OpenedAt:   openedAt,
		ClosedAt:   closedAt,
	}

	start := time.Now()
	if err := h.sink.StoreOutcome(ctx, o); err != nil {
		if h.metrics != nil {
			h.metrics.RecordError("consumer_store")
		}
		return err
	}
	if h.metrics != nil {
		h.metrics.RecordLatency("outcome_store", time.Since(start).Seconds())
	}

	h.feedOnline(ctx, o)
	return nil
}

// feedOnline builds the current feature row and enqueues the labeled
// sample. Feature or queue trouble never fails the handled message.
func (h *KafkaOutcomesHandler) feedOnline(ctx context.Context, o models.Outcome) {
	if h.online == nil || h.features == nil {
		return
	}
	tf := domrepo.NormalizeTimeframe(o.Timeframe)
	fv, err := h.features.LiveFeatures(ctx, o.Symbol, tf)
	if err != nil {
		if h.l != nil {
			h.l.Debug("online sample skipped, features unavailable",
				applogger.String("symbol", o.Symbol),
				applogger.Error(err),
			)
		}
		return
	}
	key := h.resolver.Resolve(o.Symbol, tf, fv)
	if o.Pattern != "" {
		key = key.WithPattern(o.Pattern)
	}
	if err := h.online.Enqueue(key, fv, o.Label()); err != nil {
		if errors.Is(err, models.ErrQueueFull) {
			if h.l != nil {
				h.l.Warn("online queue full, sample dropped", applogger.String("segment", key.String()))
			}
			return
		}
		if h.l != nil {
			h.l.Warn("online enqueue failed", applogger.String("segment", key.String()), applogger.Error(err))
		}
	}
}

var _ pkgkafka.MessageHandler = (*KafkaOutcomesHandler)(nil)
