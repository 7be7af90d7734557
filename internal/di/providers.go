package di

import (
	"context"
	"fmt"
	"time"

	"QuantPulse/internal/domain/repository"
	domsvc "QuantPulse/internal/domain/service"
	"QuantPulse/internal/handler/api"
	internalrepo "QuantPulse/internal/repository"
	"QuantPulse/internal/scheduler"
	icache "QuantPulse/internal/service/cache"
	"QuantPulse/internal/service/finnhub"
	imetrics "QuantPulse/internal/service/metrics"
	"QuantPulse/internal/service/ratelimit"
	"QuantPulse/internal/service/yahoo"
	"QuantPulse/internal/services/agents"
	"QuantPulse/internal/usecase"
	"QuantPulse/pkg/cache"
	pkgch "QuantPulse/pkg/clickhouse"
	"QuantPulse/pkg/config"
	pkgkafka "QuantPulse/pkg/kafka"
	applogger "QuantPulse/pkg/logger"
	"QuantPulse/pkg/metrics"
	"QuantPulse/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	memoryHistoryPerSymbol = 500
	schemaTimeout          = 10 * time.Second
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideAgentMetrics creates the per-agent latency and error collectors.
func ProvideAgentMetrics() *imetrics.AgentMetrics {
	return imetrics.NewAgentMetrics(prometheus.DefaultRegisterer)
}

// ProvideClickHouseClient creates a ClickHouse client. It returns nil when ClickHouse is disabled.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if !cfg.ClickHouse.Enabled {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithPingTimeout(cfg.ClickHouse.PingTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Initialize schema
	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()

	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	l.Info("clickhouse connected", applogger.String("db", cfg.ClickHouse.Database))
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideKafkaProducer creates a Kafka producer. It returns nil when no brokers are configured.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatch(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}

	l.Info("kafka producer ready", applogger.Strings("brokers", cfg.Kafka.Brokers), applogger.String("topic", cfg.Kafka.Topic))
	cleanup := func() {
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML. It returns nil unless the consumer is enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook{Log: l, Slow: time.Second})
	return consumer, nil
}

// ProvideCache creates the ensemble result cache. It returns nil for cache type "none".
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	var (
		svc cache.Service
		err error
	)
	switch cfg.Cache.Type {
	case "none":
		return nil, func() {}, nil
	case "memory":
		svc = cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MemorySize),
			cache.WithMemoryCleanup(time.Minute),
		)
	case "redis", "layered":
		var rc *cache.RedisCache
		rc, err = cache.NewRedisCache(
			cache.WithRedisHost(cfg.Cache.Redis.Host),
			cache.WithRedisPort(cfg.Cache.Redis.Port),
			cache.WithRedisPassword(cfg.Cache.Redis.Password),
			cache.WithRedisDB(cfg.Cache.Redis.DB),
			cache.WithRedisPool(cfg.Cache.Redis.PoolSize, cfg.Cache.Redis.PoolSize/2, 5*time.Second),
			cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		svc = rc
		if cfg.Cache.Type == "layered" {
			svc = cache.NewLayeredCache(rc,
				cache.WithLayeredMemorySize(cfg.Cache.MemorySize),
				cache.WithLayeredMemoryTTL(cfg.Cache.TTL),
			)
		}
	default:
		return nil, nil, fmt.Errorf("unknown cache type %q", cfg.Cache.Type)
	}
	return svc, func() { _ = svc.Close() }, nil
}

// ProvideYahooClient creates the Yahoo Finance client. It returns nil when Yahoo is disabled.
func ProvideYahooClient(cfg *config.Config) *yahoo.Client {
	if !cfg.Quotes.Yahoo.Enabled {
		return nil
	}
	return yahoo.New(cfg.Quotes.Yahoo.Suffix, cfg.Quotes.Yahoo.RPS)
}

// ProvideQuoteCache creates the in-process last-trade cache.
func ProvideQuoteCache() *icache.TTLCache {
	return icache.NewTTLCache()
}

// ProvideQuoteResolver resolves current prices from streamed trades, Yahoo and the demo table.
func ProvideQuoteResolver(
	cfg *config.Config,
	last *icache.TTLCache,
	yc *yahoo.Client,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.QuoteResolver {
	var remote repository.QuoteSource
	if yc != nil {
		remote = yc
	}
	return usecase.NewQuoteResolver(last, cfg.Quotes.TTL, remote, m, l)
}

// ProvidePriceHistory serves quant candles from the ClickHouse archive and Yahoo, whichever are enabled.
func ProvidePriceHistory(ch *pkgch.Client, yc *yahoo.Client, l *applogger.Logger) (repository.PriceHistory, error) {
	var archive internalrepo.CandleArchive
	if ch != nil {
		cs := internalrepo.NewCHCandleStore(ch, l)
		ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
		defer cancel()
		if err := cs.Init(ctx); err != nil {
			return nil, fmt.Errorf("candle archive: %w", err)
		}
		archive = cs
	}
	var remote repository.PriceHistory
	if yc != nil {
		remote = yc
	}
	if archive == nil && remote == nil {
		return nil, nil
	}
	return internalrepo.NewTieredHistory(archive, remote, l), nil
}

// ProvideTopologyAgent loads the market graph.
func ProvideTopologyAgent(cfg *config.Config, l *applogger.Logger) *agents.TopologyAgent {
	a := agents.NewTopologyAgent(cfg.Agents.Topology.GraphPath, cfg.Ensemble.Weights.Topology, l)
	l.Info("market graph loaded", applogger.String("path", cfg.Agents.Topology.GraphPath), applogger.Int("nodes", a.Nodes()))
	return a
}

// ProvideAggregator creates the fusion step shared by the local and remote paths.
func ProvideAggregator(cfg *config.Config) *usecase.Aggregator {
	return usecase.NewAggregator(usecase.AggregatorConfig{
		DirectionThresholdPct: cfg.Ensemble.DirectionThresholdPct,
		ConflictPenalty:       cfg.Ensemble.ConflictPenalty,
	})
}

// ProvideSynthesizer creates the synthetic fallback.
func ProvideSynthesizer(cfg *config.Config) *usecase.Synthesizer {
	w := cfg.Ensemble.Weights
	return usecase.NewSynthesizer(usecase.Weights{Quant: w.Quant, Topology: w.Topology, Sentiment: w.Sentiment})
}

// ProvideLivePredictor picks the live path: the upstream agent service in remote mode,
// the in-process agents otherwise.
func ProvideLivePredictor(
	cfg *config.Config,
	agg *usecase.Aggregator,
	history repository.PriceHistory,
	topo *agents.TopologyAgent,
	am *imetrics.AgentMetrics,
	l *applogger.Logger,
) (domsvc.LivePredictor, error) {
	if cfg.Ensemble.Mode == config.ModeRemote {
		l.Info("live path: remote", applogger.String("upstream", cfg.Ensemble.UpstreamURL))
		return agents.NewRemotePredictor(cfg.Ensemble.UpstreamURL, cfg.Ensemble.Timeout, agg), nil
	}

	w := cfg.Ensemble.Weights
	quant := agents.NewQuantAgent(history, w.Quant, cfg.Agents.Quant.Lookback, l)
	sentiment := agents.NewSentimentAgent(cfg.Agents.Sentiment.URL, cfg.Agents.Sentiment.Timeout, w.Sentiment, l)
	p, err := usecase.NewLocalPredictor(agg,
		am.Instrument(quant),
		am.Instrument(topo),
		am.Instrument(sentiment),
	)
	if err != nil {
		return nil, fmt.Errorf("local predictor: %w", err)
	}
	l.Info("live path: local agents", applogger.Bool("sentiment", cfg.Agents.Sentiment.URL != ""), applogger.Bool("history", history != nil))
	return p, nil
}

// ProvideEnsembleService wraps the live path with the timeout, retries and synthetic fallback.
func ProvideEnsembleService(
	cfg *config.Config,
	live domsvc.LivePredictor,
	quotes *usecase.QuoteResolver,
	synth *usecase.Synthesizer,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.EnsembleService {
	return usecase.NewEnsembleService(live, quotes, synth, m, l, usecase.ResilienceConfig{
		Timeout: cfg.Ensemble.Timeout,
		Retries: cfg.Ensemble.Retries,
		Backoff: cfg.Ensemble.Backoff,
	})
}

// ProvideCachedEnsemble memoises live results.
func ProvideCachedEnsemble(
	cfg *config.Config,
	svc *usecase.EnsembleService,
	store cache.Service,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.CachedEnsemble {
	return usecase.NewCachedEnsemble(svc, store, cfg.Cache.TTL, m, l)
}

// ProvidePredictionStore opens the store behind the history endpoint. With the kafka
// backend it is the consumer sink. It returns nil for backend "none".
func ProvidePredictionStore(cfg *config.Config, ch *pkgch.Client, l *applogger.Logger) (repository.PredictionStore, func(), error) {
	kind := cfg.Backend.Type
	if kind == usecase.BackendKafka {
		kind = cfg.Kafka.Consumer.Sink
	}

	var store repository.PredictionStore
	switch kind {
	case usecase.BackendNone:
		return nil, func() {}, nil
	case usecase.BackendMemory:
		store = internalrepo.NewMemoryPredictionStore(memoryHistoryPerSymbol)
	case usecase.BackendSQLite:
		s, err := internalrepo.NewSQLitePredictionStore(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite store: %w", err)
		}
		store = s
	case usecase.BackendClickHouse:
		if ch == nil {
			return nil, nil, fmt.Errorf("clickhouse store: clickhouse is disabled")
		}
		store = internalrepo.NewCHPredictionStore(ch, l)
	default:
		return nil, nil, fmt.Errorf("unknown prediction store %q", kind)
	}

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("prediction store init: %w", err)
	}
	l.Info("prediction store ready", applogger.String("kind", kind))
	cleanup := func() {
		if err := store.Close(); err != nil {
			l.Warn("prediction store close error", applogger.Error(err))
		}
	}
	return store, cleanup, nil
}

// ProvidePredictionPublisher creates the Kafka publisher. It returns nil without a producer.
func ProvidePredictionPublisher(cfg *config.Config, producer *pkgkafka.Producer) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvidePredictionRecorder ships served predictions to the configured backend.
func ProvidePredictionRecorder(
	cfg *config.Config,
	pub repository.Publisher,
	store repository.PredictionStore,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.PredictionRecorder {
	backend := cfg.Backend.Type
	if backend == usecase.BackendKafka && pub == nil {
		backend = usecase.BackendNone
	}
	return usecase.NewPredictionRecorder(pub, store, m, l, backend, cfg.Backend.BatchSize, cfg.Backend.BatchTimeout)
}

// ProvideEnsembleProvider is the caller-facing chain: recording, cache, resilience, live path.
func ProvideEnsembleProvider(cached *usecase.CachedEnsemble, recorder *usecase.PredictionRecorder) domsvc.EnsembleProvider {
	return usecase.NewRecordingEnsemble(cached, recorder)
}

// ProvideHistoryUseCase serves the prediction event log.
func ProvideHistoryUseCase(store repository.PredictionStore) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(store)
}

// ProvideRateLimiter creates the per-client limiter. It returns nil when rate limiting is disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// ProvideQuoteCollector streams trades into the quote cache. It returns nil when Finnhub is disabled.
func ProvideQuoteCollector(
	cfg *config.Config,
	resolver *usecase.QuoteResolver,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.QuoteCollector {
	if !cfg.Finnhub.Enabled {
		return nil
	}
	stream := finnhub.New(
		cfg.Finnhub.APIKey,
		cfg.Finnhub.WebSocketURL,
		cfg.Finnhub.Symbols,
		cfg.Finnhub.ReconnectDelay,
		cfg.Finnhub.PingInterval,
		l,
	)
	return usecase.NewQuoteCollector(stream, resolver, m, l)
}

// ProvideKafkaPredictionsHandler drains the predictions topic into the store. It returns nil
// unless the consumer is enabled.
func ProvideKafkaPredictionsHandler(cfg *config.Config, store repository.PredictionStore, m repository.Metrics) *usecase.KafkaPredictionsHandler {
	if !cfg.Kafka.Consumer.Enabled || store == nil {
		return nil
	}
	return usecase.NewKafkaPredictionsHandler(cfg.Kafka.Topic, store, m, cfg.Kafka.Consumer.Sink)
}

// ProvideScheduler registers the background jobs.
func ProvideScheduler(
	cfg *config.Config,
	ens domsvc.EnsembleProvider,
	locks cache.Service,
	topo *agents.TopologyAgent,
	cached *usecase.CachedEnsemble,
	quotes *icache.TTLCache,
	limiter *ratelimit.Limiter,
	history repository.PriceHistory,
	l *applogger.Logger,
) (*scheduler.Scheduler, error) {
	if !cfg.Scheduler.Enabled {
		return nil, nil
	}
	deps := scheduler.Deps{
		Ensemble:    ens,
		Locks:       locks,
		Invalidator: cached,
		Quotes:      quotes,
		History:     history,
	}
	if cfg.Ensemble.Mode == config.ModeLocal {
		deps.Graph = topo
	}
	if limiter != nil {
		deps.Limiter = limiter
	}
	s := scheduler.New(scheduler.Config{
		WarmSpec:     cfg.Scheduler.WarmSpec,
		ReloadSpec:   cfg.Scheduler.ReloadSpec,
		SweepSpec:    cfg.Scheduler.SweepSpec,
		BackfillSpec: cfg.Scheduler.BackfillSpec,
		Watchlist:    cfg.Scheduler.Watchlist,
		Concurrency:  cfg.Scheduler.Concurrency,
		JobTimeout:   cfg.Scheduler.JobTimeout,
		HistoryDepth: cfg.Agents.Quant.Lookback,
	}, deps, l)
	if err := s.Register(); err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	return s, nil
}

// ProvideEnsembleHandler creates the HTTP handler with its health checks.
func ProvideEnsembleHandler(
	ens domsvc.EnsembleProvider,
	history *usecase.HistoryUseCase,
	limiter *ratelimit.Limiter,
	store repository.PredictionStore,
	collector *usecase.QuoteCollector,
	ch *pkgch.Client,
	l *applogger.Logger,
) *api.EnsembleHandler {
	opts := []api.EnsembleHandlerOption{api.WithHandlerLogger(l)}
	if limiter != nil {
		opts = append(opts, api.WithRateLimiter(limiter))
	}
	if store != nil {
		opts = append(opts, api.WithHealthCheck("store", store.Health))
	}
	if ch != nil {
		opts = append(opts, api.WithHealthCheck("clickhouse", ch.Health))
	}
	if collector != nil {
		opts = append(opts, api.WithHealthCheck("stream", func(context.Context) error {
			if !collector.IsConnected() {
				return fmt.Errorf("finnhub stream disconnected")
			}
			return nil
		}))
	}
	return api.NewEnsembleHandler(ens, history, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler *api.EnsembleHandler,
	recorder *usecase.PredictionRecorder,
	collector *usecase.QuoteCollector,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaPredictionsHandler,
	sched *scheduler.Scheduler,
	producer *pkgkafka.Producer,
) *server.App {
	app := server.New(cfg, l, handler, recorder)
	if collector != nil {
		app.SetCollector(collector)
	}
	if consumer != nil && kh != nil {
		app.SetConsumer(consumer, kh)
	}
	if sched != nil {
		app.SetScheduler(sched)
	}
	if producer != nil && cfg.LogCollector.Enabled {
		app.SetLogPublisher(producer)
	}
	return app
}
