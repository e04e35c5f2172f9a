package di

import (
	"context"
	"fmt"
	"time"

	"EdgeLab/internal/domain/repository"
	"EdgeLab/internal/handler/api"
	mid "EdgeLab/internal/middleware"
	internalrepo "EdgeLab/internal/repository"
	icache "EdgeLab/internal/service/cache"
	"EdgeLab/internal/usecase"
	pkgch "EdgeLab/pkg/clickhouse"
	"EdgeLab/pkg/config"
	"EdgeLab/internal/ml"
	pkgkafka "EdgeLab/pkg/kafka"
	applogger "EdgeLab/pkg/logger"
	"EdgeLab/pkg/metrics"
	"EdgeLab/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	outcomes := db + "." + cfg.ClickHouse.OutcomeTable
	stmts := []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + outcomes + ` (
			symbol String, pattern String, timeframe String,
			entry_price Float64, exit_price Float64, pnl Float64, quantity Float64,
			opened_at DateTime64(3), closed_at DateTime64(3)
		) ENGINE=MergeTree ORDER BY (symbol, closed_at)`,
	}
	for _, tf := range []string{"15m", "1h", "4h", "1d"} {
		stmts = append(stmts, "CREATE TABLE IF NOT EXISTS "+db+".candles_"+tf+` (
			symbol String, t DateTime, open Float64, high Float64, low Float64, close Float64, volume Float64
		) ENGINE=MergeTree ORDER BY (symbol, t)`)
	}
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close() // cannot log here (DI layer no logger); propagate error
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when the
// clickhouse backend is selected and no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer, or nil when the
// outcome feed does not go through Kafka.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCandleSource creates the ClickHouse-backed candle reader.
func ProvideCandleSource(chClient *pkgch.Client, l *applogger.Logger) repository.CandleSource {
	s := internalrepo.NewCHCandleStore(chClient)
	s.SetLogger(l)
	return s
}

// ProvideOutcomeStore creates the ClickHouse outcome log.
func ProvideOutcomeStore(chClient *pkgch.Client, cfg *config.Config, l *applogger.Logger) *internalrepo.CHOutcomeStore {
	s := internalrepo.NewCHOutcomeStore(chClient, cfg.ClickHouse.Database+"."+cfg.ClickHouse.OutcomeTable)
	s.SetLogger(l)
	return s
}

// ProvideOutcomePublisher creates the Kafka outcome publisher, nil
// without a producer.
func ProvideOutcomePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.OutcomePublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaOutcomePublisher(producer, cfg.Kafka.Topic)
}

// ProvideModelStore creates the filesystem bundle store.
func ProvideModelStore(cfg *config.Config, l *applogger.Logger) repository.ModelStore {
	s := internalrepo.NewFSModelStore(cfg.Models.Root, cfg.Models.BundleTTL)
	s.SetLogger(l)
	return s
}

// ProvideOnlineStateStore creates the filesystem online-state store.
func ProvideOnlineStateStore(cfg *config.Config) repository.OnlineStateStore {
	return internalrepo.NewFSOnlineStateStore(cfg.Models.Root)
}

// ProvideScoreCache selects Redis when enabled, in-process TTL cache otherwise.
func ProvideScoreCache(cfg *config.Config) icache.BytesCache {
	if cfg.Scoring.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Scoring.Redis.Addr,
			Password: cfg.Scoring.Redis.Password,
			DB:       cfg.Scoring.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideTrainUseCase creates the training use case.
func ProvideTrainUseCase(
	outcomes *internalrepo.CHOutcomeStore,
	candles repository.CandleSource,
	store repository.ModelStore,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.TrainUseCase {
	uc := usecase.NewTrainUseCase(outcomes, candles, store, m, usecase.TrainerConfig{
		MinSamples:  cfg.Models.MinSamples,
		ValFraction: cfg.Models.ValFraction,
		Workers:     cfg.Models.Workers,
		GBM: ml.GBMConfig{
			Trees:        cfg.Models.Trees,
			MaxDepth:     cfg.Models.MaxDepth,
			LearningRate: cfg.Models.LearningRate,
			Seed:         cfg.Models.Seed,
		},
	})
	uc.SetLogger(l)
	return uc
}

// ProvideScoreUseCase creates the scoring use case with its cache.
func ProvideScoreUseCase(
	candles repository.CandleSource,
	store repository.ModelStore,
	m repository.Metrics,
	cache icache.BytesCache,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.ScoreUseCase {
	uc := usecase.NewScoreUseCase(candles, store, m, usecase.ScorerConfig{
		PatternWeight: cfg.Models.PatternWeight,
		CacheTTL:      cfg.Scoring.CacheTTL,
	})
	uc.SetCache(cache)
	uc.SetLogger(l)
	return uc
}

// ProvideOnlineUseCase creates the incremental-learning use case.
func ProvideOnlineUseCase(
	state repository.OnlineStateStore,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.OnlineUseCase {
	uc := usecase.NewOnlineUseCase(state, m, usecase.OnlineConfig{
		QueueCapacity: cfg.Online.QueueCapacity,
		WindowSize:    cfg.Online.WindowSize,
		SnapshotMin:   cfg.Online.SnapshotMin,
		PersistEvery:  cfg.Online.PersistEvery,
		LearningRate:  cfg.Online.LearningRate,
	})
	uc.SetLogger(l)
	return uc
}

// ProvideFuseUseCase creates the multi-timeframe fusion use case.
func ProvideFuseUseCase(scorer *usecase.ScoreUseCase, m repository.Metrics, l *applogger.Logger) *usecase.FuseUseCase {
	uc := usecase.NewFuseUseCase(scorer, m)
	uc.SetLogger(l)
	return uc
}

// ProvideCandlesUseCase creates the candle query use case.
func ProvideCandlesUseCase(candles repository.CandleSource) *usecase.CandlesUseCase {
	return usecase.NewCandlesUseCase(candles)
}

// ProvideOutcomeProcessor routes incoming outcomes to the configured backend.
func ProvideOutcomeProcessor(
	pub repository.OutcomePublisher,
	sink *internalrepo.CHOutcomeStore,
	m repository.Metrics,
	cfg *config.Config,
) *usecase.OutcomeProcessor {
	return usecase.NewOutcomeProcessor(pub, sink, m, cfg.Backend.Type)
}

// ProvideOutcomePipeline wraps the processor with validation, per-symbol
// throttling, and a retry buffer.
func ProvideOutcomePipeline(proc *usecase.OutcomeProcessor, m repository.Metrics) *mid.OutcomePipeline {
	return mid.NewOutcomePipeline(proc, m,
		mid.WithMaxRPS(50),
		mid.WithBufferSize(1000),
	)
}

// ProvideKafkaOutcomesHandler registers the handler for the outcomes topic.
func ProvideKafkaOutcomesHandler(
	sink *internalrepo.CHOutcomeStore,
	scorer *usecase.ScoreUseCase,
	online *usecase.OnlineUseCase,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.KafkaOutcomesHandler {
	h := usecase.NewKafkaOutcomesHandler(cfg.Kafka.Topic, sink, scorer, online, m)
	h.SetLogger(l)
	return h
}

// ProvideHTTPHandler assembles the Echo handler with all routes.
func ProvideHTTPHandler(
	trainer *usecase.TrainUseCase,
	scorer *usecase.ScoreUseCase,
	online *usecase.OnlineUseCase,
	fuser *usecase.FuseUseCase,
	candles *usecase.CandlesUseCase,
	l *applogger.Logger,
) *api.PredictiveEchoHandler {
	stream := api.NewStreamHandler(l, fuser)
	return api.NewPredictiveEchoHandler(l, trainer, scorer, online, fuser, candles, stream)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaOutcomesHandler,
	chClient *pkgch.Client,
	online *usecase.OnlineUseCase,
	proc *usecase.OutcomeProcessor,
	handler *api.PredictiveEchoHandler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, l, consumer, kh, chClient, online, proc, handler)
}
