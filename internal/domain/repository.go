// Package domain defines the core interfaces and types for Tally.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods take a namespace so shared scenarios and usage never leak
// between workspaces.
type Repository interface {
	// Scenario operations
	SaveScenario(ctx context.Context, namespace string, s *Scenario) error
	GetScenario(ctx context.Context, namespace string, id string) (*Scenario, error)
	ListScenarios(ctx context.Context, namespace string, limit int) ([]*Scenario, error)
	RecordView(ctx context.Context, namespace string, id string) error

	// Usage statistics
	RecordUsage(ctx context.Context, namespace string, ev *UsageEvent) error
	UsageSummary(ctx context.Context, namespace string) (*UsageSummary, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string `envconfig:"DRIVER"`

	// SQLite specific
	SQLitePath string `envconfig:"SQLITE_PATH"`

	// PostgreSQL specific
	PostgresHost     string `envconfig:"POSTGRES_HOST"`
	PostgresPort     int    `envconfig:"POSTGRES_PORT"`
	PostgresUser     string `envconfig:"POSTGRES_USER"`
	PostgresPassword string `envconfig:"POSTGRES_PASSWORD"`
	PostgresDB       string `envconfig:"POSTGRES_DB"`
	PostgresSSLMode  string `envconfig:"POSTGRES_SSLMODE"`

	// Connection pool settings
	MaxOpenConns    int           `envconfig:"MAX_OPEN_CONNS"`
	MaxIdleConns    int           `envconfig:"MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `envconfig:"CONN_MAX_LIFETIME"`
}
