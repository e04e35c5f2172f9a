package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"EdgeLab/internal/domain/models"
	domrepo "EdgeLab/internal/domain/repository"
	pkgch "EdgeLab/pkg/clickhouse"
	pkgkafka "EdgeLab/pkg/kafka"
	applogger "EdgeLab/pkg/logger"
)

var (
	_ domrepo.OutcomeSource    = (*CHOutcomeStore)(nil)
	_ domrepo.OutcomePublisher = (*KafkaOutcomePublisher)(nil)
)

// CHOutcomeStore persists trade outcomes in ClickHouse and serves them
// back to training, ascending by close time.
type CHOutcomeStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHOutcomeStore(ch *pkgch.Client, table string) *CHOutcomeStore {
	return &CHOutcomeStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHOutcomeStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHOutcomeStore) StoreOutcome(ctx context.Context, o models.Outcome) error {
	q := fmt.Sprintf("INSERT INTO %s (symbol, pattern, timeframe, entry_price, exit_price, pnl, quantity, opened_at, closed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	_, err := s.db.ExecContext(ctx, q,
		o.Symbol, o.Pattern, o.Timeframe,
		o.EntryPrice, o.ExitPrice, o.PnL, o.Quantity,
		o.OpenedAt, o.ClosedAt,
	)
	if err != nil {
		return fmt.Errorf("store outcome: %w", err)
	}
	return nil
}

func (s *CHOutcomeStore) StoreOutcomeBatch(ctx context.Context, outcomes []models.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	// Chunked multi-row VALUES insert to reduce round-trips.
	const chunkSize = 2000
	for start := 0; start < len(outcomes); start += chunkSize {
		end := start + chunkSize
		if end > len(outcomes) {
			end = len(outcomes)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*9)
		for _, o := range outcomes[start:end] {
			if o.Symbol == "" || o.ClosedAt.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				o.Symbol, o.Pattern, o.Timeframe,
				o.EntryPrice, o.ExitPrice, o.PnL, o.Quantity,
				o.OpenedAt, o.ClosedAt,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, pattern, timeframe, entry_price, exit_price, pnl, quantity, opened_at, closed_at) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store outcome batch: %w", err)
		}
	}
	return nil
}

func (s *CHOutcomeStore) ListOutcomes(ctx context.Context, from, to time.Time) ([]models.Outcome, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT symbol, pattern, timeframe, entry_price, exit_price, pnl, quantity, opened_at, closed_at
        FROM %s
        WHERE closed_at >= ? AND closed_at <= ?
        ORDER BY closed_at ASC
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q, from, to)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse list_outcomes query error",
				applogger.String("table", s.table),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	out := make([]models.Outcome, 0, 512)
	for rows.Next() {
		var o models.Outcome
		if err := rows.Scan(&o.Symbol, &o.Pattern, &o.Timeframe, &o.EntryPrice, &o.ExitPrice, &o.PnL, &o.Quantity, &o.OpenedAt, &o.ClosedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse list_outcomes ok",
			applogger.String("table", s.table),
			applogger.Int("rows", len(out)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return out, nil
}

func (s *CHOutcomeStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// KafkaOutcomePublisher emits outcome events onto the outcome topic,
// keyed by symbol so per-symbol ordering is preserved.
type KafkaOutcomePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaOutcomePublisher creates a Kafka-backed outcome publisher.
func NewKafkaOutcomePublisher(producer *pkgkafka.Producer, topic string) *KafkaOutcomePublisher {
	return &KafkaOutcomePublisher{producer: producer, topic: topic}
}

func (p *KafkaOutcomePublisher) Publish(ctx context.Context, o models.Outcome) error {
	return p.producer.Publish(ctx, p.topic, []byte(o.Symbol), outcomePayload(o))
}

func (p *KafkaOutcomePublisher) PublishBatch(ctx context.Context, outcomes []models.Outcome) error {
	if len(outcomes) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(outcomes))
	for i, o := range outcomes {
		msgs[i] = pkgkafka.Message{
			Key:   []byte(o.Symbol),
			Value: outcomePayload(o),
		}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaOutcomePublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func outcomePayload(o models.Outcome) map[string]interface{} {
	return map[string]interface{}{
		"symbol":      o.Symbol,
		"pattern":     o.Pattern,
		"timeframe":   o.Timeframe,
		"entry_price": o.EntryPrice,
		"exit_price":  o.ExitPrice,
		"pnl":         o.PnL,
		"quantity":    o.Quantity,
		"opened_at":   o.OpenedAt.UTC().Format(time.RFC3339),
		"closed_at":   o.ClosedAt.UTC().Format(time.RFC3339),
	}
}
