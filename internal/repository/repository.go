// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/opensource-finance/tally/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (*SQLRepository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// DB exposes the underlying pool for connection statistics.
func (r *SQLRepository) DB() *sql.DB {
	return r.db
}

// SaveScenario stores a shared scenario.
func (r *SQLRepository) SaveScenario(ctx context.Context, namespace string, s *domain.Scenario) error {
	if namespace == "" {
		return fmt.Errorf("%w: namespace is required", ErrInvalidInput)
	}
	if s.ID == "" {
		return fmt.Errorf("%w: scenario id is required", ErrInvalidInput)
	}

	parameters, err := json.Marshal(s.Parameters)
	if err != nil {
		return fmt.Errorf("failed to encode parameters: %w", err)
	}

	query := `
		INSERT INTO scenarios (id, namespace, name, parameters, share_url, views, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		s.ID, namespace, s.Name, string(parameters), s.ShareURL, s.Views, s.CreatedAt,
	)
	return err
}

// GetScenario retrieves a scenario by ID within a namespace.
func (r *SQLRepository) GetScenario(ctx context.Context, namespace string, id string) (*domain.Scenario, error) {
	if namespace == "" {
		return nil, fmt.Errorf("%w: namespace is required", ErrInvalidInput)
	}

	query := `
		SELECT id, namespace, name, parameters, share_url, views, created_at
		FROM scenarios
		WHERE namespace = ? AND id = ?
	`

	s, err := scanScenario(r.db.QueryRowContext(ctx, r.rebind(query), namespace, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// ListScenarios returns the most recent scenarios first.
func (r *SQLRepository) ListScenarios(ctx context.Context, namespace string, limit int) ([]*domain.Scenario, error) {
	if namespace == "" {
		return nil, fmt.Errorf("%w: namespace is required", ErrInvalidInput)
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT id, namespace, name, parameters, share_url, views, created_at
		FROM scenarios
		WHERE namespace = ?
		ORDER BY created_at DESC
		LIMIT ` + strconv.Itoa(limit)

	rows, err := r.db.QueryContext(ctx, r.rebind(query), namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenarios []*domain.Scenario
	for rows.Next() {
		s, err := scanScenario(rows)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, rows.Err()
}

// RecordView increments the view counter of a scenario.
func (r *SQLRepository) RecordView(ctx context.Context, namespace string, id string) error {
	if namespace == "" {
		return fmt.Errorf("%w: namespace is required", ErrInvalidInput)
	}

	query := `UPDATE scenarios SET views = views + 1 WHERE namespace = ? AND id = ?`

	res, err := r.db.ExecContext(ctx, r.rebind(query), namespace, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordUsage appends a usage event.
func (r *SQLRepository) RecordUsage(ctx context.Context, namespace string, ev *domain.UsageEvent) error {
	if namespace == "" {
		return fmt.Errorf("%w: namespace is required", ErrInvalidInput)
	}
	if ev.ID == "" {
		return fmt.Errorf("%w: event id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO usage_events (
			id, namespace, kind, scenario_id, hours_saved,
			money_saved, active_players, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		ev.ID, namespace, string(ev.Kind), ev.ScenarioID, ev.HoursSaved,
		ev.MoneySaved, ev.ActivePlayers, ev.CreatedAt,
	)
	return err
}

// UsageSummary aggregates usage events for a namespace.
func (r *SQLRepository) UsageSummary(ctx context.Context, namespace string) (*domain.UsageSummary, error) {
	if namespace == "" {
		return nil, fmt.Errorf("%w: namespace is required", ErrInvalidInput)
	}

	summary := &domain.UsageSummary{Namespace: namespace}

	rows, err := r.db.QueryContext(ctx, r.rebind(`
		SELECT kind, COUNT(*)
		FROM usage_events
		WHERE namespace = ?
		GROUP BY kind
	`), namespace)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, err
		}
		switch domain.UsageKind(kind) {
		case domain.UsageEstimate:
			summary.Estimates = count
		case domain.UsageEdit:
			summary.Edits = count
		case domain.UsageShare:
			summary.Shares = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx, r.rebind(`
		SELECT COALESCE(AVG(money_saved), 0), COALESCE(MAX(money_saved), 0)
		FROM usage_events
		WHERE namespace = ? AND kind = ?
	`), namespace, string(domain.UsageEstimate)).Scan(&summary.AvgMoneySaved, &summary.MaxMoneySaved)
	if err != nil {
		return nil, err
	}

	var last time.Time
	err = r.db.QueryRowContext(ctx, r.rebind(`
		SELECT created_at
		FROM usage_events
		WHERE namespace = ?
		ORDER BY created_at DESC
		LIMIT 1
	`), namespace).Scan(&last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, err
	default:
		summary.LastActivity = &last
	}

	return summary, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScenario(row rowScanner) (*domain.Scenario, error) {
	var s domain.Scenario
	var parameters string

	if err := row.Scan(
		&s.ID, &s.Namespace, &s.Name, &parameters,
		&s.ShareURL, &s.Views, &s.CreatedAt,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(parameters), &s.Parameters); err != nil {
		return nil, fmt.Errorf("failed to decode parameters for scenario %s: %w", s.ID, err)
	}
	return &s, nil
}

// rebind converts ? placeholders to $n for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = strconv.AppendInt(result, int64(n), 10)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
