package repository

// Schema definitions for the Tally database.
// Compatible with both SQLite and PostgreSQL.

const schemaScenarios = `
CREATE TABLE IF NOT EXISTS scenarios (
    id TEXT NOT NULL,
    namespace TEXT NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    parameters TEXT NOT NULL,
    share_url TEXT NOT NULL,
    views BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (namespace, id)
);

CREATE INDEX IF NOT EXISTS idx_scenarios_created ON scenarios(namespace, created_at);
`

const schemaUsageEvents = `
CREATE TABLE IF NOT EXISTS usage_events (
    id TEXT PRIMARY KEY,
    namespace TEXT NOT NULL,
    kind TEXT NOT NULL,
    scenario_id TEXT NOT NULL DEFAULT '',
    hours_saved DOUBLE PRECISION NOT NULL,
    money_saved DOUBLE PRECISION NOT NULL,
    active_players DOUBLE PRECISION NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_namespace_kind ON usage_events(namespace, kind);
CREATE INDEX IF NOT EXISTS idx_usage_created ON usage_events(namespace, created_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaScenarios,
		schemaUsageEvents,
	}
}
