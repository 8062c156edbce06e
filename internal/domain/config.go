package domain

import "time"

// Config holds the complete Tally configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server" envconfig:"SERVER"`

	// Tier determines which backing services are used
	Tier Tier `json:"tier" envconfig:"TIER"`

	// Calculator settings
	Calculator CalculatorConfig `json:"calculator" envconfig:"CALCULATOR"`

	// Component configurations
	Repository RepositoryConfig `json:"repository" envconfig:"REPOSITORY"`
	Cache      CacheConfig      `json:"cache" envconfig:"CACHE"`
	EventBus   EventBusConfig   `json:"eventBus" envconfig:"BUS"`

	// Usage worker
	Worker WorkerConfig `json:"worker" envconfig:"WORKER"`

	// Observability
	Logging LoggingConfig `json:"logging" envconfig:"LOG"`
	Tracing TracingConfig `json:"tracing" envconfig:"TRACING"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host" envconfig:"HOST"`
	Port         int    `json:"port" envconfig:"PORT"`
	ReadTimeout  int    `json:"readTimeout" envconfig:"READ_TIMEOUT"`   // seconds
	WriteTimeout int    `json:"writeTimeout" envconfig:"WRITE_TIMEOUT"` // seconds

	// PublicURL is the page share links point at. When empty the
	// request's own scheme and host are used.
	PublicURL string `json:"publicUrl" envconfig:"PUBLIC_URL"`
}

// CalculatorConfig holds estimator and session settings.
type CalculatorConfig struct {
	// BaselinesFile is an optional YAML file overriding review baselines.
	BaselinesFile string `json:"baselinesFile" envconfig:"BASELINES_FILE"`

	// SessionTTL is how long an idle calculator session is kept.
	SessionTTL time.Duration `json:"sessionTtl" envconfig:"SESSION_TTL"`

	// ShareLimit is the number of share links one client may create
	// per ShareWindow. Zero disables the limit.
	ShareLimit  int64         `json:"shareLimit" envconfig:"SHARE_LIMIT"`
	ShareWindow time.Duration `json:"shareWindow" envconfig:"SHARE_WINDOW"`

	// ScenarioCacheTTL bounds how long a resolved short link stays cached.
	ScenarioCacheTTL time.Duration `json:"scenarioCacheTtl" envconfig:"SCENARIO_CACHE_TTL"`
}

// WorkerConfig holds usage worker settings.
type WorkerConfig struct {
	Enabled    bool     `json:"enabled" envconfig:"ENABLED"`
	Namespaces []string `json:"namespaces" envconfig:"NAMESPACES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level" envconfig:"LEVEL"`   // debug, info, warn, error
	Format string `json:"format" envconfig:"FORMAT"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	ServiceName string `json:"serviceName" envconfig:"SERVICE_NAME"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + channels + in-memory cache
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultNamespace is used when a request does not name one.
const DefaultNamespace = "public"

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Calculator: CalculatorConfig{
			SessionTTL:       24 * time.Hour,
			ShareLimit:       30,
			ShareWindow:      time.Minute,
			ScenarioCacheTTL: 10 * time.Minute,
		},
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./tally.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Worker: WorkerConfig{
			Enabled:    true,
			Namespaces: []string{AllNamespaces},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			ServiceName: "tally",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "tally",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	return cfg
}
