//go:build wireinject
// +build wireinject

package di

import (
	"EdgeLab/pkg/config"
	"EdgeLab/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideCandleSource,
		ProvideOutcomeStore,
		ProvideOutcomePublisher,
		ProvideModelStore,
		ProvideOnlineStateStore,
		ProvideScoreCache,

		// Use cases
		ProvideTrainUseCase,
		ProvideScoreUseCase,
		ProvideOnlineUseCase,
		ProvideFuseUseCase,
		ProvideCandlesUseCase,
		ProvideOutcomeProcessor,
		ProvideKafkaOutcomesHandler,

		// HTTP surface
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
