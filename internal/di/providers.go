package di

import (
	"fmt"

	"PortPulse/internal/analytics"
	drepo "PortPulse/internal/domain/repository"
	"PortPulse/internal/handler/api"
	mid "PortPulse/internal/middleware"
	"PortPulse/internal/repository"
	"PortPulse/internal/stream"
	"PortPulse/internal/usecase"
	"PortPulse/internal/venue"
	"PortPulse/pkg/cache"
	"PortPulse/pkg/clickhouse"
	"PortPulse/pkg/config"
	xhttp "PortPulse/pkg/http"
	"PortPulse/pkg/kafka"
	"PortPulse/pkg/logger"
	"PortPulse/pkg/metrics"
	"PortPulse/pkg/postgres"
	"PortPulse/pkg/server"
)

// ProvideLogger builds the root logger from config.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics builds the Prometheus recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient connects to ClickHouse.
func ProvideClickHouseClient(cfg *config.Config) (*clickhouse.Client, func(), error) {
	client, err := clickhouse.NewClient(
		clickhouse.WithHost(cfg.ClickHouse.Host),
		clickhouse.WithPort(cfg.ClickHouse.Port),
		clickhouse.WithDatabase(cfg.ClickHouse.Database),
		clickhouse.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		clickhouse.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		clickhouse.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideTickStore builds the ClickHouse tick store.
func ProvideTickStore(client *clickhouse.Client, l *logger.Logger) drepo.TickStore {
	return repository.NewClickHouseTickStore(client, l)
}

// ProvidePostgresClient connects to Postgres.
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(
		postgres.WithHost(cfg.Postgres.Host),
		postgres.WithPort(cfg.Postgres.Port),
		postgres.WithDatabase(cfg.Postgres.Database),
		postgres.WithCredentials(cfg.Postgres.User, cfg.Postgres.Password),
		postgres.WithSSLMode(cfg.Postgres.SSLMode),
	)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideSnapshotStore builds the Postgres snapshot store.
func ProvideSnapshotStore(client *postgres.Client, l *logger.Logger) drepo.SnapshotStore {
	return repository.NewPostgresSnapshotStore(client, l)
}

// ProvideCache picks Redis when configured, an in-process cache otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	if !cfg.Analytics.Redis.Enabled {
		mc := cache.NewMemoryCache()
		return mc, func() { _ = mc.Close() }, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithAddr(cfg.Analytics.Redis.Addr),
		cache.WithPassword(cfg.Analytics.Redis.Password),
		cache.WithDB(cfg.Analytics.Redis.DB),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	return rc, func() { _ = rc.Close() }, nil
}

// ProvideVolatilityEstimator builds the cached volatility source.
func ProvideVolatilityEstimator(ticks drepo.TickStore, c cache.Service, cfg *config.Config, l *logger.Logger) drepo.VolatilitySource {
	return analytics.NewVolatilityEstimator(ticks, l,
		analytics.WithCache(c, cfg.Analytics.Volatility.CacheTTL),
		analytics.WithWindow(cfg.Analytics.Volatility.Lookback, cfg.Analytics.Volatility.ResamplePeriod),
		analytics.WithMinTicks(cfg.Analytics.Volatility.MinTicks),
	)
}

// ProvideVenueAdapters builds one adapter per supported venue. Adapters with
// missing credentials still exist; they just return empty position lists.
func ProvideVenueAdapters(cfg *config.Config, l *logger.Logger) []drepo.VenueAdapter {
	return []drepo.VenueAdapter{
		venue.NewBinance(cfg.Venues.Binance.APIKey, cfg.Venues.Binance.APISecret, cfg.Venues.Binance.BaseURL, l),
		venue.NewOKX(cfg.Venues.OKX.APIKey, cfg.Venues.OKX.APISecret, cfg.Venues.OKX.Passphrase, cfg.Venues.OKX.BaseURL, l),
		venue.NewDelta(cfg.Venues.Delta.APIKey, cfg.Venues.Delta.APISecret, cfg.Venues.Delta.BaseURL, l),
		venue.NewHyperliquid(cfg.Venues.Hyperliquid.WalletAddress, cfg.Venues.Hyperliquid.BaseURL, l),
	}
}

// ProvideStreams builds the market-data streams.
func ProvideStreams(cfg *config.Config, l *logger.Logger) []drepo.TickStream {
	return []drepo.TickStream{
		stream.NewBinanceStream(
			cfg.Streams.Binance.URL,
			cfg.Streams.Binance.Symbols,
			cfg.Streams.Binance.ReconnectDelay,
			cfg.Streams.Binance.PingInterval,
			l,
		),
		stream.NewHyperliquidStream(
			cfg.Streams.Hyperliquid.URL,
			cfg.Streams.Hyperliquid.ReconnectDelay,
			cfg.Streams.Hyperliquid.PingInterval,
			l,
		),
	}
}

// ProvideTickPublisher builds the Kafka publisher when the backend is kafka;
// nil otherwise.
func ProvideTickPublisher(cfg *config.Config) (drepo.TickPublisher, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	producer, err := kafka.NewProducer(
		kafka.WithBrokers(cfg.Kafka.Brokers),
		kafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		kafka.WithCompression(cfg.Kafka.Compression),
		kafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		kafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		kafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		kafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		kafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		kafka.WithAsync(cfg.Kafka.Producer.Async),
		kafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return usecase.NewKafkaTickPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideTickProcessor routes ticks to the configured backend.
func ProvideTickProcessor(pub drepo.TickPublisher, store drepo.TickStore, m drepo.Metrics, cfg *config.Config) *usecase.TickProcessor {
	return usecase.NewTickProcessor(pub, store, m, cfg.Backend.Type, cfg.Backend.BatchSize, cfg.Backend.BatchTimeout)
}

// ProvideCollectors builds one collector per stream, each with its own
// validate/throttle pipeline in front of the processor.
func ProvideCollectors(streams []drepo.TickStream, proc *usecase.TickProcessor, m drepo.Metrics, cfg *config.Config, l *logger.Logger) []*usecase.TickCollector {
	collectors := make([]*usecase.TickCollector, 0, len(streams))
	for _, s := range streams {
		pipe := mid.NewTickPipeline(proc, m,
			mid.WithBufferSize(cfg.Backend.BatchSize),
		)
		collectors = append(collectors, usecase.NewTickCollector(s, proc, m, pipe, l))
	}
	return collectors
}

// ProvideConsumer builds the Kafka consumer when the backend is kafka; nil
// otherwise.
func ProvideConsumer(store drepo.TickStore, m drepo.Metrics, cfg *config.Config) (*kafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	consumer, err := kafka.NewConsumer(
		kafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		kafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		kafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		kafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		kafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		kafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.RegisterHandler(usecase.NewKafkaTicksHandler(cfg.Kafka.Topic, store, m))
	return consumer, nil
}

// ProvideAggregator builds the snapshot aggregator.
func ProvideAggregator(adapters []drepo.VenueAdapter, store drepo.SnapshotStore, m drepo.Metrics, cfg *config.Config, l *logger.Logger) *usecase.SnapshotAggregator {
	return usecase.NewSnapshotAggregator(adapters, store, m,
		cfg.Portfolio.StartingCashUSD, cfg.Portfolio.VenueFetchTimeout, l)
}

// ProvideScheduler builds the portfolio cycle scheduler.
func ProvideScheduler(
	aggregator *usecase.SnapshotAggregator,
	store drepo.SnapshotStore,
	vol drepo.VolatilitySource,
	m drepo.Metrics,
	cfg *config.Config,
	l *logger.Logger,
) *usecase.CycleScheduler {
	return usecase.NewCycleScheduler(
		aggregator,
		store,
		analytics.NewExposureEngine(),
		analytics.NewRiskEngine(vol, l),
		analytics.NewAttributionEngine(),
		m,
		cfg.Portfolio.CycleInterval,
		cfg.Portfolio.CycleCooldown,
		cfg.Portfolio.EquityHistoryDepth,
		l,
	)
}

// ProvideHandler builds the HTTP API handler.
func ProvideHandler(store drepo.SnapshotStore, ticks drepo.TickStore, l *logger.Logger) xhttp.Handler {
	return api.NewPortfolioHandler(store, ticks, analytics.NewScenarioEngine(), l)
}

// ProvideHTTPServer builds the HTTP server from config.
func ProvideHTTPServer(handler xhttp.Handler, cfg *config.Config, l *logger.Logger) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if !cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(""))
	} else if cfg.Metrics.Path != "" {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	}
	return xhttp.NewServer(handler, l, opts...)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	tickStore drepo.TickStore,
	snapStore drepo.SnapshotStore,
	collectors []*usecase.TickCollector,
	consumer *kafka.Consumer,
	scheduler *usecase.CycleScheduler,
	httpServer *xhttp.Server,
) *server.App {
	return server.NewApp(cfg, l, tickStore, snapStore, collectors, consumer, scheduler, httpServer)
}
