package domain

import (
	"encoding/json"
	"math"
)

// DerivedMetrics is the estimate computed from one InputParameters record.
// Intermediate minute totals are kept unrounded; headline figures are
// rounded to whole units.
type DerivedMetrics struct {
	AlertReviewMinsSaved float64 `json:"alertReviewMinsSaved"`
	EDDMinsSaved         float64 `json:"eddMinsSaved"`
	SARMinsSaved         float64 `json:"sarMinsSaved"`
	TotalMinsSaved       float64 `json:"totalMinsSaved"`
	TotalCurrentMins     float64 `json:"totalCurrentMins"`

	TotalHoursSaved float64 `json:"totalHoursSaved"`

	// AnnualProductivityGainsPct is nil when the current workload is zero
	// and the ratio is undefined.
	AnnualProductivityGainsPct *float64 `json:"annualProductivityGainsPct"`

	TotalAnnualMoneySaved       float64 `json:"totalAnnualMoneySaved"`
	PercentageRiskScoredPct     float64 `json:"percentageRiskScoredPct"`
	ExpandedRiskCoverageCost    float64 `json:"expandedRiskCoverageCost"`
	ExpandedRisk100CoverageCost float64 `json:"expandedRisk100CoverageCost"`
}

// ProductivityGainAvailable reports whether the productivity ratio is defined.
func (m DerivedMetrics) ProductivityGainAvailable() bool {
	return m.AnnualProductivityGainsPct != nil
}

type derivedMetricsJSON struct {
	AlertReviewMinsSaved        *float64 `json:"alertReviewMinsSaved"`
	EDDMinsSaved                *float64 `json:"eddMinsSaved"`
	SARMinsSaved                *float64 `json:"sarMinsSaved"`
	TotalMinsSaved              *float64 `json:"totalMinsSaved"`
	TotalCurrentMins            *float64 `json:"totalCurrentMins"`
	TotalHoursSaved             *float64 `json:"totalHoursSaved"`
	AnnualProductivityGainsPct  *float64 `json:"annualProductivityGainsPct"`
	TotalAnnualMoneySaved       *float64 `json:"totalAnnualMoneySaved"`
	PercentageRiskScoredPct     *float64 `json:"percentageRiskScoredPct"`
	ExpandedRiskCoverageCost    *float64 `json:"expandedRiskCoverageCost"`
	ExpandedRisk100CoverageCost *float64 `json:"expandedRisk100CoverageCost"`
}

// MarshalJSON writes figures that overflowed to infinity as null, the
// same way an undefined productivity ratio is written.
func (m DerivedMetrics) MarshalJSON() ([]byte, error) {
	out := derivedMetricsJSON{
		AlertReviewMinsSaved:        finite(m.AlertReviewMinsSaved),
		EDDMinsSaved:                finite(m.EDDMinsSaved),
		SARMinsSaved:                finite(m.SARMinsSaved),
		TotalMinsSaved:              finite(m.TotalMinsSaved),
		TotalCurrentMins:            finite(m.TotalCurrentMins),
		TotalHoursSaved:             finite(m.TotalHoursSaved),
		TotalAnnualMoneySaved:       finite(m.TotalAnnualMoneySaved),
		PercentageRiskScoredPct:     finite(m.PercentageRiskScoredPct),
		ExpandedRiskCoverageCost:    finite(m.ExpandedRiskCoverageCost),
		ExpandedRisk100CoverageCost: finite(m.ExpandedRisk100CoverageCost),
	}
	if m.AnnualProductivityGainsPct != nil {
		out.AnnualProductivityGainsPct = finite(*m.AnnualProductivityGainsPct)
	}
	return json.Marshal(out)
}

// FiniteOrZero returns v, or zero when v is NaN or infinite.
func FiniteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
