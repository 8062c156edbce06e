package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidInput is returned when a parameter value is not a finite positive number.
var ErrInvalidInput = errors.New("invalid input")

// Field names a single adjustable assumption. The string value is the
// query parameter key used in share links.
type Field string

const (
	FieldAvgAnnualCostAML          Field = "avgAnnualCostAML"
	FieldActivePlayers             Field = "activePlayers"
	FieldSuspiciousActivityAlerts  Field = "suspiciousActivityAlerts"
	FieldAvgTimeToReviewAlert      Field = "avgTimeToReviewAlert"
	FieldAvgEDDReviews             Field = "avgEDDReviews"
	FieldAvgTimeToPerformEDD       Field = "avgTimeToPerformEDD"
	FieldSuspiciousActivityReports Field = "suspiciousActivityReports"
	FieldTimeToInvestigateSAR      Field = "timeToInvestigateSAR"
	FieldPercentageRiskScored      Field = "percentageRiskScored"
	FieldTimeToScoreSinglePlayer   Field = "timeToScoreSinglePlayer"
)

// Fields lists every field in canonical order.
var Fields = []Field{
	FieldAvgAnnualCostAML,
	FieldActivePlayers,
	FieldSuspiciousActivityAlerts,
	FieldAvgTimeToReviewAlert,
	FieldAvgEDDReviews,
	FieldAvgTimeToPerformEDD,
	FieldSuspiciousActivityReports,
	FieldTimeToInvestigateSAR,
	FieldPercentageRiskScored,
	FieldTimeToScoreSinglePlayer,
}

// ParseField resolves a field by its query parameter key.
func ParseField(name string) (Field, error) {
	for _, f := range Fields {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: unknown field %q", ErrInvalidInput, name)
}

// InputParameters holds the ten assumptions the estimate is computed from.
// Times are stored in minutes, cost in currency per year and
// PercentageRiskScored as a fraction.
type InputParameters struct {
	AvgAnnualCostAML          float64 `json:"avgAnnualCostAML" yaml:"avgAnnualCostAML" validate:"gt=0"`
	ActivePlayers             float64 `json:"activePlayers" yaml:"activePlayers" validate:"gt=0"`
	SuspiciousActivityAlerts  float64 `json:"suspiciousActivityAlerts" yaml:"suspiciousActivityAlerts" validate:"gt=0"`
	AvgTimeToReviewAlert      float64 `json:"avgTimeToReviewAlert" yaml:"avgTimeToReviewAlert" validate:"gt=0"`
	AvgEDDReviews             float64 `json:"avgEDDReviews" yaml:"avgEDDReviews" validate:"gt=0"`
	AvgTimeToPerformEDD       float64 `json:"avgTimeToPerformEDD" yaml:"avgTimeToPerformEDD" validate:"gt=0"`
	SuspiciousActivityReports float64 `json:"suspiciousActivityReports" yaml:"suspiciousActivityReports" validate:"gt=0"`
	TimeToInvestigateSAR      float64 `json:"timeToInvestigateSAR" yaml:"timeToInvestigateSAR" validate:"gt=0"`
	PercentageRiskScored      float64 `json:"percentageRiskScored" yaml:"percentageRiskScored" validate:"gt=0"`
	TimeToScoreSinglePlayer   float64 `json:"timeToScoreSinglePlayer" yaml:"timeToScoreSinglePlayer" validate:"gt=0"`
}

// DefaultParameters returns the assumptions a fresh calculator starts with.
func DefaultParameters() InputParameters {
	return InputParameters{
		AvgAnnualCostAML:          80 * 1000,
		ActivePlayers:             50000,
		SuspiciousActivityAlerts:  10,
		AvgTimeToReviewAlert:      60,
		AvgEDDReviews:             1,
		AvgTimeToPerformEDD:       6 * 60,
		SuspiciousActivityReports: 1,
		TimeToInvestigateSAR:      2 * 60,
		PercentageRiskScored:      5.0 / 100,
		TimeToScoreSinglePlayer:   30,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports whether every field is a finite positive number.
func (p InputParameters) Validate() error {
	for _, f := range Fields {
		if v := p.Get(f); math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidInput, f)
		}
	}
	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: %s must be a positive number", ErrInvalidInput, fieldFromStruct(verrs[0].StructField()))
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// ValidateValue checks a single candidate value for a field.
func ValidateValue(f Field, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return fmt.Errorf("%w: %s must be a positive number", ErrInvalidInput, f)
	}
	return nil
}

// Get returns the stored value of f. Unknown fields read as zero.
func (p InputParameters) Get(f Field) float64 {
	switch f {
	case FieldAvgAnnualCostAML:
		return p.AvgAnnualCostAML
	case FieldActivePlayers:
		return p.ActivePlayers
	case FieldSuspiciousActivityAlerts:
		return p.SuspiciousActivityAlerts
	case FieldAvgTimeToReviewAlert:
		return p.AvgTimeToReviewAlert
	case FieldAvgEDDReviews:
		return p.AvgEDDReviews
	case FieldAvgTimeToPerformEDD:
		return p.AvgTimeToPerformEDD
	case FieldSuspiciousActivityReports:
		return p.SuspiciousActivityReports
	case FieldTimeToInvestigateSAR:
		return p.TimeToInvestigateSAR
	case FieldPercentageRiskScored:
		return p.PercentageRiskScored
	case FieldTimeToScoreSinglePlayer:
		return p.TimeToScoreSinglePlayer
	}
	return 0
}

// With returns a copy of p with f set to v. The receiver is never modified,
// so a rejected value leaves the caller's record untouched.
func (p InputParameters) With(f Field, v float64) (InputParameters, error) {
	if err := ValidateValue(f, v); err != nil {
		return p, err
	}
	switch f {
	case FieldAvgAnnualCostAML:
		p.AvgAnnualCostAML = v
	case FieldActivePlayers:
		p.ActivePlayers = v
	case FieldSuspiciousActivityAlerts:
		p.SuspiciousActivityAlerts = v
	case FieldAvgTimeToReviewAlert:
		p.AvgTimeToReviewAlert = v
	case FieldAvgEDDReviews:
		p.AvgEDDReviews = v
	case FieldAvgTimeToPerformEDD:
		p.AvgTimeToPerformEDD = v
	case FieldSuspiciousActivityReports:
		p.SuspiciousActivityReports = v
	case FieldTimeToInvestigateSAR:
		p.TimeToInvestigateSAR = v
	case FieldPercentageRiskScored:
		p.PercentageRiskScored = v
	case FieldTimeToScoreSinglePlayer:
		p.TimeToScoreSinglePlayer = v
	default:
		return p, fmt.Errorf("%w: unknown field %q", ErrInvalidInput, f)
	}
	return p, nil
}

func fieldFromStruct(name string) Field {
	switch name {
	case "AvgAnnualCostAML":
		return FieldAvgAnnualCostAML
	case "ActivePlayers":
		return FieldActivePlayers
	case "SuspiciousActivityAlerts":
		return FieldSuspiciousActivityAlerts
	case "AvgTimeToReviewAlert":
		return FieldAvgTimeToReviewAlert
	case "AvgEDDReviews":
		return FieldAvgEDDReviews
	case "AvgTimeToPerformEDD":
		return FieldAvgTimeToPerformEDD
	case "SuspiciousActivityReports":
		return FieldSuspiciousActivityReports
	case "TimeToInvestigateSAR":
		return FieldTimeToInvestigateSAR
	case "PercentageRiskScored":
		return FieldPercentageRiskScored
	case "TimeToScoreSinglePlayer":
		return FieldTimeToScoreSinglePlayer
	}
	return Field(name)
}
