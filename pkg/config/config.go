package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type"` // "clickhouse" (direct) or "kafka" (fan-through)
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Postgres struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Database string `yaml:"database"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"ssl_mode"`
	} `yaml:"postgres"`
	Venues struct {
		Binance struct {
			APIKey    string `yaml:"api_key"`
			APISecret string `yaml:"api_secret"`
			BaseURL   string `yaml:"base_url"`
		} `yaml:"binance"`
		OKX struct {
			APIKey     string `yaml:"api_key"`
			APISecret  string `yaml:"api_secret"`
			Passphrase string `yaml:"passphrase"`
			BaseURL    string `yaml:"base_url"`
		} `yaml:"okx"`
		Delta struct {
			APIKey    string `yaml:"api_key"`
			APISecret string `yaml:"api_secret"`
			BaseURL   string `yaml:"base_url"`
		} `yaml:"delta"`
		Hyperliquid struct {
			WalletAddress string `yaml:"wallet_address"`
			BaseURL       string `yaml:"base_url"`
		} `yaml:"hyperliquid"`
	} `yaml:"venues"`
	Streams struct {
		Binance struct {
			URL            string        `yaml:"url"`
			Symbols        []string      `yaml:"symbols"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay"`
			PingInterval   time.Duration `yaml:"ping_interval"`
		} `yaml:"binance"`
		Hyperliquid struct {
			URL            string        `yaml:"url"`
			ReconnectDelay time.Duration `yaml:"reconnect_delay"`
			PingInterval   time.Duration `yaml:"ping_interval"`
		} `yaml:"hyperliquid"`
	} `yaml:"streams"`
	Portfolio struct {
		StartingCashUSD    float64       `yaml:"starting_cash_usd"`
		CycleInterval      time.Duration `yaml:"cycle_interval"`
		CycleCooldown      time.Duration `yaml:"cycle_cooldown"`
		VenueFetchTimeout  time.Duration `yaml:"venue_fetch_timeout"`
		EquityHistoryDepth int           `yaml:"equity_history_depth"`
	} `yaml:"portfolio"`
	Analytics struct {
		Volatility struct {
			Lookback       time.Duration `yaml:"lookback"`
			ResamplePeriod time.Duration `yaml:"resample_period"`
			MinTicks       int           `yaml:"min_ticks"`
			CacheTTL       time.Duration `yaml:"cache_ttl"`
		} `yaml:"volatility"`
		Redis struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"analytics"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// Venue credentials are expected from the environment in most deployments.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Venues.Binance.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		c.Venues.Binance.APISecret = v
	}
	if v := os.Getenv("OKX_API_KEY"); v != "" {
		c.Venues.OKX.APIKey = v
	}
	if v := os.Getenv("OKX_API_SECRET"); v != "" {
		c.Venues.OKX.APISecret = v
	}
	if v := os.Getenv("OKX_PASSPHRASE"); v != "" {
		c.Venues.OKX.Passphrase = v
	}
	if v := os.Getenv("DELTA_API_KEY"); v != "" {
		c.Venues.Delta.APIKey = v
	}
	if v := os.Getenv("DELTA_API_SECRET"); v != "" {
		c.Venues.Delta.APISecret = v
	}
	if v := os.Getenv("HYPERLIQUID_WALLET_ADDRESS"); v != "" {
		c.Venues.Hyperliquid.WalletAddress = v
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("STREAM_SYMBOLS"); v != "" {
		c.Streams.Binance.Symbols = strings.Split(v, ",")
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
	if c.Portfolio.StartingCashUSD == 0 {
		c.Portfolio.StartingCashUSD = 100_000
	}
	if c.Portfolio.CycleInterval == 0 {
		c.Portfolio.CycleInterval = time.Minute
	}
	if c.Portfolio.CycleCooldown == 0 {
		c.Portfolio.CycleCooldown = 5 * time.Second
	}
	if c.Portfolio.VenueFetchTimeout == 0 {
		c.Portfolio.VenueFetchTimeout = 15 * time.Second
	}
	if c.Portfolio.EquityHistoryDepth == 0 {
		c.Portfolio.EquityHistoryDepth = 500
	}
	if c.Analytics.Volatility.Lookback == 0 {
		c.Analytics.Volatility.Lookback = 24 * time.Hour
	}
	if c.Analytics.Volatility.ResamplePeriod == 0 {
		c.Analytics.Volatility.ResamplePeriod = time.Hour
	}
	if c.Analytics.Volatility.MinTicks == 0 {
		c.Analytics.Volatility.MinTicks = 10
	}
	if c.Analytics.Volatility.CacheTTL == 0 {
		c.Analytics.Volatility.CacheTTL = time.Minute
	}
	if c.Streams.Binance.ReconnectDelay == 0 {
		c.Streams.Binance.ReconnectDelay = 5 * time.Second
	}
	if c.Streams.Binance.PingInterval == 0 {
		c.Streams.Binance.PingInterval = 30 * time.Second
	}
	if c.Streams.Hyperliquid.ReconnectDelay == 0 {
		c.Streams.Hyperliquid.ReconnectDelay = 5 * time.Second
	}
	if c.Streams.Hyperliquid.PingInterval == 0 {
		c.Streams.Hyperliquid.PingInterval = 30 * time.Second
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if c.Backend.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required for kafka backend")
	}
	if c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required")
	}
	if c.Postgres.Host == "" {
		return fmt.Errorf("postgres.host is required")
	}
	return nil
}
