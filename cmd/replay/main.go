// Command replay backfills trade outcomes into the configured backend.
// Two sources are supported: an NDJSON file pushed through the same
// validation pipeline the live feed uses, or the ClickHouse outcome log
// republished onto the Kafka topic so a fresh node can warm its online
// models.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"EdgeLab/internal/di"
	"EdgeLab/internal/domain/models"
	mid "EdgeLab/internal/middleware"
	"EdgeLab/pkg/config"
)

type outcomeRow struct {
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

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	inputPath := flag.String("input", "", "NDJSON file of outcomes, one object per line")
	lookback := flag.Duration("lookback", 0, "republish this much ClickHouse history onto Kafka instead of reading a file")
	rps := flag.Int("rps", 0, "per-symbol rate limit override (0 keeps the default)")
	flag.Parse()

	if *inputPath == "" && *lookback <= 0 {
		log.Fatal("either -input or -lookback is required")
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger, err := di.ProvideLogger(cfg)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	m := di.ProvideMetrics()
	chClient, err := di.ProvideClickHouseClient(cfg)
	if err != nil {
		log.Fatalf("clickhouse init failed: %v", err)
	}
	defer chClient.Close()

	producer, err := di.ProvideKafkaProducer(cfg)
	if err != nil {
		log.Fatalf("kafka init failed: %v", err)
	}

	sink := di.ProvideOutcomeStore(chClient, cfg, logger)
	pub := di.ProvideOutcomePublisher(producer, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *lookback > 0 {
		if pub == nil {
			log.Fatal("-lookback needs kafka brokers configured")
		}
		replayFromClickHouse(ctx, sink, pub, *lookback)
		return
	}

	proc := di.ProvideOutcomeProcessor(pub, sink, m, cfg)
	defer proc.Close()

	opts := []mid.PipelineOption{}
	if *rps > 0 {
		opts = append(opts, mid.WithMaxRPS(*rps))
	}
	pipe := mid.NewOutcomePipeline(proc, m, opts...)
	pipe.Start(ctx)
	defer pipe.Stop()

	replayFromFile(ctx, pipe, *inputPath)
}

func replayFromFile(ctx context.Context, pipe *mid.OutcomePipeline, path string) {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("open input: %v", err)
	}
	defer f.Close()

	var sent, skipped int
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var row outcomeRow
		if err := json.Unmarshal(line, &row); err != nil {
			log.Printf("skip malformed line: %v", err)
			skipped++
			continue
		}
		o, err := row.toOutcome()
		if err != nil {
			log.Printf("skip outcome %s: %v", row.Symbol, err)
			skipped++
			continue
		}
		if err := pipe.Process(ctx, o); err != nil {
			log.Printf("process %s: %v", o.Symbol, err)
			skipped++
			continue
		}
		sent++
	}
	if err := sc.Err(); err != nil {
		log.Fatalf("read input: %v", err)
	}

	// Give the background flusher a moment to empty its retry buffer.
	time.Sleep(500 * time.Millisecond)
	log.Printf("replay done: sent=%d skipped=%d", sent, skipped)
}

type outcomeReader interface {
	ListOutcomes(ctx context.Context, from, to time.Time) ([]models.Outcome, error)
}

type outcomeWriter interface {
	PublishBatch(ctx context.Context, outcomes []models.Outcome) error
}

func replayFromClickHouse(ctx context.Context, src outcomeReader, dst outcomeWriter, lookback time.Duration) {
	to := time.Now().UTC()
	from := to.Add(-lookback)

	outcomes, err := src.ListOutcomes(ctx, from, to)
	if err != nil {
		log.Fatalf("list outcomes: %v", err)
	}
	if len(outcomes) == 0 {
		log.Printf("no outcomes in the last %s", lookback)
		return
	}

	const chunk = 500
	var sent int
	for i := 0; i < len(outcomes); i += chunk {
		end := i + chunk
		if end > len(outcomes) {
			end = len(outcomes)
		}
		if err := dst.PublishBatch(ctx, outcomes[i:end]); err != nil {
			log.Fatalf("publish batch at %d: %v", i, err)
		}
		sent += end - i
	}
	log.Printf("replay done: republished=%d window=%s", sent, lookback)
}

func (r outcomeRow) toOutcome() (models.Outcome, error) {
	opened, err := time.Parse(time.RFC3339, r.OpenedAt)
	if err != nil {
		return models.Outcome{}, err
	}
	closed, err := time.Parse(time.RFC3339, r.ClosedAt)
	if err != nil {
		return models.Outcome{}, err
	}
	return models.Outcome{
		Symbol:     r.Symbol,
		Pattern:    r.Pattern,
		Timeframe:  r.Timeframe,
		EntryPrice: r.EntryPrice,
		ExitPrice:  r.ExitPrice,
		PnL:        r.PnL,
		Quantity:   r.Quantity,
		OpenedAt:   opened,
		ClosedAt:   closed,
	}, nil
}
