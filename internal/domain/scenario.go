package domain

import "time"

// Scenario is a saved, shareable set of assumptions.
type Scenario struct {
	ID         string          `json:"id"`
	Namespace  string          `json:"namespace"`
	Name       string          `json:"name,omitempty"`
	Parameters InputParameters `json:"parameters"`
	ShareURL   string          `json:"shareUrl"`
	Views      int64           `json:"views"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// UsageKind classifies a recorded usage event.
type UsageKind string

const (
	UsageEstimate UsageKind = "estimate"
	UsageEdit     UsageKind = "edit"
	UsageShare    UsageKind = "share"
)

// UsageEvent is one recorded calculator interaction.
type UsageEvent struct {
	ID            string    `json:"id"`
	Namespace     string    `json:"namespace"`
	Kind          UsageKind `json:"kind"`
	ScenarioID    string    `json:"scenarioId,omitempty"`
	HoursSaved    float64   `json:"hoursSaved"`
	MoneySaved    float64   `json:"moneySaved"`
	ActivePlayers float64   `json:"activePlayers"`
	CreatedAt     time.Time `json:"createdAt"`
}

// UsageSummary aggregates usage events for a namespace.
type UsageSummary struct {
	Namespace     string     `json:"namespace"`
	Estimates     int64      `json:"estimates"`
	Edits         int64      `json:"edits"`
	Shares        int64      `json:"shares"`
	AvgMoneySaved float64    `json:"avgMoneySaved"`
	MaxMoneySaved float64    `json:"maxMoneySaved"`
	LastActivity  *time.Time `json:"lastActivity,omitempty"`
}
