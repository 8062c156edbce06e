// Package display formats estimates for people to read.
package display

import (
	"math"

	"github.com/dustin/go-humanize"
	"github.com/opensource-finance/tally/internal/domain"
)

// NotAvailable is shown for a metric that is undefined for the inputs.
const NotAvailable = "N/A"

// Results holds every derived metric as display text.
type Results struct {
	TotalHoursSaved             string `json:"totalHoursSaved"`
	AnnualProductivityGains     string `json:"annualProductivityGains"`
	TotalAnnualMoneySaved       string `json:"totalAnnualMoneySaved"`
	PercentageRiskScored        string `json:"percentageRiskScored"`
	ExpandedRiskCoverageCost    string `json:"expandedRiskCoverageCost"`
	ExpandedRisk100CoverageCost string `json:"expandedRisk100CoverageCost"`
}

// Format renders m with thousands separators.
func Format(m domain.DerivedMetrics) Results {
	gain := NotAvailable
	if m.AnnualProductivityGainsPct != nil {
		gain = Integer(*m.AnnualProductivityGainsPct)
	}
	return Results{
		TotalHoursSaved:             Integer(m.TotalHoursSaved),
		AnnualProductivityGains:     gain,
		TotalAnnualMoneySaved:       Integer(m.TotalAnnualMoneySaved),
		PercentageRiskScored:        Integer(m.PercentageRiskScoredPct),
		ExpandedRiskCoverageCost:    Integer(m.ExpandedRiskCoverageCost),
		ExpandedRisk100CoverageCost: Integer(m.ExpandedRisk100CoverageCost),
	}
}

// Integer formats a whole number as 1,234,567. Non-finite values render
// as N/A.
func Integer(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NotAvailable
	}
	if v == 0 {
		// Avoid "-0".
		return "0"
	}
	if math.Abs(v) < 1e18 {
		return humanize.Comma(int64(v))
	}
	return humanize.Commaf(math.Round(v))
}

// Input formats a stored parameter in its display units for a form field.
func Input(f domain.Field, stored float64) string {
	return humanize.FtoaWithDigits(f.ToDisplay(stored), 6)
}
