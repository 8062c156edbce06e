package domain

import "fmt"

// Units selects how an edited value is interpreted.
type Units string

const (
	// UnitsStored values are in the units InputParameters keeps
	// (currency per year, minutes, fraction).
	UnitsStored Units = "stored"

	// UnitsDisplay values are in the units the form shows: cost in
	// thousands, EDD and SAR times in hours, risk coverage in percent.
	UnitsDisplay Units = "display"
)

// ParseUnits resolves a units name. Empty means display units.
func ParseUnits(s string) (Units, error) {
	switch Units(s) {
	case "", UnitsDisplay:
		return UnitsDisplay, nil
	case UnitsStored:
		return UnitsStored, nil
	}
	return "", fmt.Errorf("%w: unknown units %q", ErrInvalidInput, s)
}

// ToStored converts a display-unit value for f into stored units.
func (f Field) ToStored(display float64) float64 {
	switch f {
	case FieldAvgAnnualCostAML:
		return display * 1000
	case FieldAvgTimeToPerformEDD, FieldTimeToInvestigateSAR:
		return display * 60
	case FieldPercentageRiskScored:
		return display / 100
	}
	return display
}

// ToDisplay converts a stored value for f into display units.
func (f Field) ToDisplay(stored float64) float64 {
	switch f {
	case FieldAvgAnnualCostAML:
		return stored / 1000
	case FieldAvgTimeToPerformEDD, FieldTimeToInvestigateSAR:
		return stored / 60
	case FieldPercentageRiskScored:
		return stored * 100
	}
	return stored
}

// Label is the human-readable name of f, with its display unit.
func (f Field) Label() string {
	switch f {
	case FieldAvgAnnualCostAML:
		return "Average annual cost of an AML analyst (thousands)"
	case FieldActivePlayers:
		return "Active players"
	case FieldSuspiciousActivityAlerts:
		return "Suspicious activity alerts"
	case FieldAvgTimeToReviewAlert:
		return "Average time to review an alert (minutes)"
	case FieldAvgEDDReviews:
		return "EDD reviews"
	case FieldAvgTimeToPerformEDD:
		return "Average time to perform EDD (hours)"
	case FieldSuspiciousActivityReports:
		return "Suspicious activity reports"
	case FieldTimeToInvestigateSAR:
		return "Time to investigate a SAR (hours)"
	case FieldPercentageRiskScored:
		return "Players risk scored (%)"
	case FieldTimeToScoreSinglePlayer:
		return "Time to risk score one player (minutes)"
	}
	return string(f)
}
