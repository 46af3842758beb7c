package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
environment: test
backend:
  type: clickhouse
clickhouse:
  host: localhost
postgres:
  host: localhost
`

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if c.Server.Port != 8080 {
		t.Fatalf("server port default: want 8080, got %d", c.Server.Port)
	}
	if c.Portfolio.StartingCashUSD != 100_000 {
		t.Fatalf("starting cash default: want 100000, got %v", c.Portfolio.StartingCashUSD)
	}
	if c.Portfolio.CycleInterval != time.Minute || c.Portfolio.CycleCooldown != 5*time.Second {
		t.Fatalf("cycle timing defaults wrong: %v / %v", c.Portfolio.CycleInterval, c.Portfolio.CycleCooldown)
	}
	if c.Analytics.Volatility.Lookback != 24*time.Hour || c.Analytics.Volatility.MinTicks != 10 {
		t.Fatalf("volatility defaults wrong: %+v", c.Analytics.Volatility)
	}
	if c.Metrics.Path != "/metrics" {
		t.Fatalf("metrics path default: got %q", c.Metrics.Path)
	}
	// Stream keepalive defaults must be non-zero or the ping tickers cannot
	// be constructed.
	if c.Streams.Binance.PingInterval <= 0 || c.Streams.Hyperliquid.PingInterval <= 0 {
		t.Fatalf("ping interval defaults missing: %v / %v",
			c.Streams.Binance.PingInterval, c.Streams.Hyperliquid.PingInterval)
	}
	if c.Streams.Binance.ReconnectDelay <= 0 || c.Streams.Hyperliquid.ReconnectDelay <= 0 {
		t.Fatalf("reconnect delay defaults missing: %v / %v",
			c.Streams.Binance.ReconnectDelay, c.Streams.Hyperliquid.ReconnectDelay)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
backend:
  type: carrier-pigeon
clickhouse:
  host: localhost
postgres:
  host: localhost
`))
	if err == nil {
		t.Fatalf("unknown backend must be rejected")
	}
}

func TestLoadKafkaBackendNeedsBrokers(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
backend:
  type: kafka
clickhouse:
  host: localhost
postgres:
  host: localhost
`))
	if err == nil {
		t.Fatalf("kafka backend without brokers must be rejected")
	}
}

func TestLoadMissingStores(t *testing.T) {
	_, err := Load(writeConfig(t, `
environment: test
backend:
  type: clickhouse
`))
	if err == nil {
		t.Fatalf("missing store hosts must be rejected")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("BINANCE_API_KEY", "env-key")
	t.Setenv("BACKEND", "kafka")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_TOPIC", "ticks")

	c, err := LoadWithEnv(writeConfig(t, `
environment: test
backend:
  type: kafka
kafka:
  brokers: ["localhost:9092"]
clickhouse:
  host: localhost
postgres:
  host: localhost
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if c.Venues.Binance.APIKey != "env-key" {
		t.Fatalf("binance key override: got %q", c.Venues.Binance.APIKey)
	}
	if len(c.Kafka.Brokers) != 2 || c.Kafka.Brokers[0] != "broker1:9092" {
		t.Fatalf("broker override wrong: %v", c.Kafka.Brokers)
	}
	if c.Kafka.Topic != "ticks" {
		t.Fatalf("topic override wrong: %q", c.Kafka.Topic)
	}
}
