// Package estimator computes the savings estimate from a set of assumptions.
package estimator

import (
	"math"

	"github.com/opensource-finance/tally/internal/domain"
)

// Estimator maps InputParameters to DerivedMetrics against a fixed set of
// baselines. It holds no mutable state and is safe for concurrent use.
type Estimator struct {
	baselines Baselines
}

// New creates an estimator. A zero Baselines value means the defaults.
func New(b Baselines) *Estimator {
	if b == (Baselines{}) {
		b = DefaultBaselines()
	}
	return &Estimator{baselines: b}
}

// Baselines returns the baselines this estimator compares against.
func (e *Estimator) Baselines() Baselines {
	return e.baselines
}

var defaultEstimator = New(DefaultBaselines())

// Compute evaluates in against the default product baselines.
func Compute(in domain.InputParameters) domain.DerivedMetrics {
	return defaultEstimator.Compute(in)
}

// Compute evaluates in. It is total: any input yields a result, and an
// undefined productivity ratio is reported as nil rather than NaN.
func (e *Estimator) Compute(in domain.InputParameters) domain.DerivedMetrics {
	b := e.baselines

	alertCurrent := in.AvgTimeToReviewAlert * in.SuspiciousActivityAlerts
	eddCurrent := in.AvgEDDReviews * in.AvgTimeToPerformEDD
	sarCurrent := in.SuspiciousActivityReports * in.TimeToInvestigateSAR

	alertSaved := alertCurrent - b.AlertReviewMins*in.SuspiciousActivityAlerts
	eddSaved := eddCurrent - in.AvgEDDReviews*b.EDDMins
	sarSaved := sarCurrent - in.SuspiciousActivityReports*b.SARMins

	totalSaved := alertSaved + eddSaved + sarSaved
	totalCurrent := alertCurrent + eddCurrent + sarCurrent

	hourlyCost := in.AvgAnnualCostAML / b.WorkHoursPerYear
	perMinuteCost := in.AvgAnnualCostAML / b.WorkHoursPerYear / 60
	fullCoverage := in.ActivePlayers * in.TimeToScoreSinglePlayer * perMinuteCost

	m := domain.DerivedMetrics{
		AlertReviewMinsSaved:        alertSaved,
		EDDMinsSaved:                eddSaved,
		SARMinsSaved:                sarSaved,
		TotalMinsSaved:              totalSaved,
		TotalCurrentMins:            totalCurrent,
		TotalHoursSaved:             Round(totalSaved / 60),
		TotalAnnualMoneySaved:       Round((totalSaved / 60) * hourlyCost),
		PercentageRiskScoredPct:     Round(in.PercentageRiskScored * 100),
		ExpandedRiskCoverageCost:    Round(in.PercentageRiskScored * in.ActivePlayers * in.TimeToScoreSinglePlayer * perMinuteCost),
		ExpandedRisk100CoverageCost: Round(fullCoverage),
	}

	if gain := totalSaved / totalCurrent * 100; totalCurrent != 0 && !math.IsNaN(gain) && !math.IsInf(gain, 0) {
		rounded := Round(gain)
		m.AnnualProductivityGainsPct = &rounded
	}

	return m
}

// Round rounds half-way values toward positive infinity, so -2.5 becomes -2.
func Round(x float64) float64 {
	return math.Floor(x + 0.5)
}
