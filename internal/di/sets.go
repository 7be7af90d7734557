package di

import "github.com/google/wire"

// CoreSet builds the ensemble service and everything the live path needs.
var CoreSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideAgentMetrics,

	// Infrastructure clients
	ProvideClickHouseClient,
	ProvideYahooClient,

	// Quotes and history
	ProvideQuoteCache,
	ProvideQuoteResolver,
	ProvidePriceHistory,

	// Agents and fusion
	ProvideTopologyAgent,
	ProvideAggregator,
	ProvideSynthesizer,
	ProvideLivePredictor,
	ProvideEnsembleService,
)

// ServerSet adds caching, the event log, transport and background jobs.
var ServerSet = wire.NewSet(
	CoreSet,
	ProvideKafkaProducer,
	ProvideKafkaConsumer,
	ProvideCache,

	// Repositories
	ProvidePredictionStore,
	ProvidePredictionPublisher,

	// Use cases
	ProvideCachedEnsemble,
	ProvidePredictionRecorder,
	ProvideEnsembleProvider,
	ProvideHistoryUseCase,
	ProvideQuoteCollector,
	ProvideKafkaPredictionsHandler,

	// Transport and jobs
	ProvideRateLimiter,
	ProvideScheduler,
	ProvideEnsembleHandler,

	// Application server
	ProvideApp,
)
