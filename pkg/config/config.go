package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"QuantPulse/pkg/util"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Ensemble modes.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Logger      struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logger"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8000"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
		CORSOrigins     []string      `yaml:"cors_origins"`
	} `yaml:"server"`
	RateLimit struct {
		Enabled bool    `yaml:"enabled" default:"true"`
		RPS     float64 `yaml:"rps" default:"10"`
		Burst   int     `yaml:"burst" default:"20"`
	} `yaml:"rate_limit"`
	Ensemble struct {
		Mode                  string        `yaml:"mode" default:"local"`
		UpstreamURL           string        `yaml:"upstream_url"`
		Timeout               time.Duration `yaml:"timeout" default:"3s"`
		Retries               int           `yaml:"retries"`
		Backoff               time.Duration `yaml:"backoff" default:"100ms"`
		DirectionThresholdPct float64       `yaml:"direction_threshold_pct" default:"0.1"`
		ConflictPenalty       float64       `yaml:"conflict_penalty" default:"0.3"`
		Weights               struct {
			Quant     float64 `yaml:"quant" default:"0.5"`
			Topology  float64 `yaml:"topology" default:"0.3"`
			Sentiment float64 `yaml:"sentiment" default:"0.2"`
		} `yaml:"weights"`
	} `yaml:"ensemble"`
	Agents struct {
		Quant struct {
			Lookback int `yaml:"lookback" default:"60"`
		} `yaml:"quant"`
		Topology struct {
			GraphPath string `yaml:"graph_path" default:"data/graph.json"`
		} `yaml:"topology"`
		Sentiment struct {
			URL     string        `yaml:"url"`
			Timeout time.Duration `yaml:"timeout" default:"2s"`
		} `yaml:"sentiment"`
	} `yaml:"agents"`
	Quotes struct {
		TTL   time.Duration `yaml:"ttl" default:"1m"`
		Yahoo struct {
			Enabled bool    `yaml:"enabled" default:"true"`
			Suffix  string  `yaml:"suffix" default:".NS"`
			RPS     float64 `yaml:"rps" default:"2"`
		} `yaml:"yahoo"`
	} `yaml:"quotes"`
	Cache struct {
		Type       string        `yaml:"type" default:"memory"`
		TTL        time.Duration `yaml:"ttl" default:"5m"`
		MemorySize int           `yaml:"memory_size" default:"1000"`
		Redis      struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"quantpulse:"`
			PoolSize int    `yaml:"pool_size" default:"10"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Backend struct {
		Type         string        `yaml:"type" default:"memory"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		BatchTimeout time.Duration `yaml:"batch_timeout" default:"1s"`
	} `yaml:"backend"`
	SQLite struct {
		Path string `yaml:"path" default:"data/predictions.db"`
	} `yaml:"sqlite"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"quantpulse.predictions"`
		LogTopic     string   `yaml:"log_topic" default:"quantpulse.logs"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"5"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled    bool          `yaml:"enabled"`
			Sink       string        `yaml:"sink" default:"sqlite"`
			GroupID    string        `yaml:"group_id" default:"quantpulse"`
			Workers    int           `yaml:"workers" default:"4"`
			BufferSize int           `yaml:"buffer_size" default:"1000"`
			RetryMax   int           `yaml:"retry_max" default:"3"`
			BackoffMin time.Duration `yaml:"backoff_min" default:"100ms"`
			BackoffMax time.Duration `yaml:"backoff_max" default:"5s"`
			DLQTopic   string        `yaml:"dlq_topic"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"quantpulse"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		PingTimeout      time.Duration `yaml:"ping_timeout" default:"5s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Finnhub struct {
		Enabled        bool          `yaml:"enabled"`
		APIKey         string        `yaml:"api_key"`
		WebSocketURL   string        `yaml:"websocket_url" default:"wss://ws.finnhub.io"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"1s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"finnhub"`
	Scheduler struct {
		Enabled      bool          `yaml:"enabled" default:"true"`
		Watchlist    []string      `yaml:"watchlist"`
		WarmSpec     string        `yaml:"warm_spec" default:"@every 4m"`
		ReloadSpec   string        `yaml:"reload_spec" default:"@every 15m"`
		SweepSpec    string        `yaml:"sweep_spec" default:"@every 1m"`
		BackfillSpec string        `yaml:"backfill_spec"`
		Concurrency  int           `yaml:"concurrency" default:"4"`
		JobTimeout   time.Duration `yaml:"job_timeout" default:"1m"`
	} `yaml:"scheduler"`
	LogCollector struct {
		Enabled   bool          `yaml:"enabled"`
		Interval  time.Duration `yaml:"interval" default:"30s"`
		Threshold int           `yaml:"threshold" default:"100"`
	} `yaml:"log_collector"`
}

// Load reads and parses a YAML configuration file on top of the defaults.
// An empty path yields the defaults alone.
func Load(path string) (*Config, error) {
	c, err := read(path)
	if err != nil {
		return nil, err
	}

	// Validate required fields
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads .env (if present), then the YAML file, then applies environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	c, err := read(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// read applies defaults first so explicit false and zero values in the file survive.
func read(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = DefaultCORSOrigins()
	}
	return &c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logger.Level = v
	}
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("ENSEMBLE_MODE"); v != "" {
		c.Ensemble.Mode = v
	}
	if v := os.Getenv("ENSEMBLE_UPSTREAM_URL"); v != "" {
		c.Ensemble.UpstreamURL = v
		if os.Getenv("ENSEMBLE_MODE") == "" {
			c.Ensemble.Mode = ModeRemote
		}
	}
	if v := os.Getenv("SENTIMENT_URL"); v != "" {
		c.Agents.Sentiment.URL = v
	}
	if v := os.Getenv("GRAPH_PATH"); v != "" {
		c.Agents.Topology.GraphPath = v
	}
	if v := os.Getenv("FINNHUB_API_KEY"); v != "" {
		c.Finnhub.APIKey = v
		c.Finnhub.Enabled = true
	}
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Finnhub.Symbols = util.SplitSymbols(v)
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		c.Scheduler.Watchlist = util.SplitSymbols(v)
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("CACHE_TYPE"); v != "" {
		c.Cache.Type = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
		c.ClickHouse.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.SQLite.Path = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Ensemble.Mode {
	case ModeLocal:
	case ModeRemote:
		if c.Ensemble.UpstreamURL == "" {
			errs = append(errs, errors.New("ensemble.upstream_url is required in remote mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("ensemble.mode must be 'local' or 'remote', got '%s'", c.Ensemble.Mode))
	}
	w := c.Ensemble.Weights
	if w.Quant < 0 || w.Topology < 0 || w.Sentiment < 0 || w.Quant+w.Topology+w.Sentiment <= 0 {
		errs = append(errs, errors.New("ensemble.weights must be non-negative with a positive sum"))
	}
	if c.Ensemble.ConflictPenalty < 0 || c.Ensemble.ConflictPenalty > 1 {
		errs = append(errs, errors.New("ensemble.conflict_penalty must be in [0,1]"))
	}
	if c.Ensemble.Retries < 0 {
		errs = append(errs, errors.New("ensemble.retries must not be negative"))
	}

	switch c.Cache.Type {
	case "none", "memory", "redis", "layered":
	default:
		errs = append(errs, fmt.Errorf("cache.type must be none, memory, redis or layered, got '%s'", c.Cache.Type))
	}

	switch c.Backend.Type {
	case "none", "memory", "sqlite":
	case "kafka":
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers is required for the kafka backend"))
		}
	case "clickhouse":
		if !c.ClickHouse.Enabled {
			errs = append(errs, errors.New("clickhouse.enabled must be true for the clickhouse backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("backend.type must be none, memory, sqlite, kafka or clickhouse, got '%s'", c.Backend.Type))
	}
	if c.Kafka.Consumer.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			errs = append(errs, errors.New("kafka.brokers is required when the consumer is enabled"))
		}
		if c.Kafka.Consumer.Sink != "sqlite" && c.Kafka.Consumer.Sink != "clickhouse" {
			errs = append(errs, fmt.Errorf("kafka.consumer.sink must be sqlite or clickhouse, got '%s'", c.Kafka.Consumer.Sink))
		}
	}
	if c.LogCollector.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers is required when the log collector is enabled"))
	}

	if c.Finnhub.Enabled {
		if c.Finnhub.APIKey == "" {
			errs = append(errs, errors.New("finnhub.api_key is required"))
		}
		if len(c.Finnhub.Symbols) == 0 {
			errs = append(errs, errors.New("finnhub.symbols cannot be empty"))
		}
	}
	return errors.Join(errs...)
}

// DefaultCORSOrigins are the local development frontends.
func DefaultCORSOrigins() []string {
	var out []string
	for _, host := range []string{"localhost", "127.0.0.1"} {
		for _, port := range []int{3000, 5173, 5174, 8080} {
			out = append(out, fmt.Sprintf("http://%s:%d", host, port))
		}
	}
	return out
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
