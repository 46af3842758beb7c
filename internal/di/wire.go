//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"PortPulse/pkg/config"
	"PortPulse/pkg/server"
)

// InitializeApp wires up the full application graph.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvideTickStore,
		ProvidePostgresClient,
		ProvideSnapshotStore,
		ProvideCache,
		ProvideVolatilityEstimator,
		ProvideVenueAdapters,
		ProvideStreams,
		ProvideTickPublisher,
		ProvideTickProcessor,
		ProvideCollectors,
		ProvideConsumer,
		ProvideAggregator,
		ProvideScheduler,
		ProvideHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
