package estimator

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Baselines are the per-item review times achieved with automated
// screening, and the working hours used to turn an annual cost into an
// hourly one.
type Baselines struct {
	AlertReviewMins  float64 `yaml:"alertReviewMins" json:"alertReviewMins"`
	EDDMins          float64 `yaml:"eddMins" json:"eddMins"`
	SARMins          float64 `yaml:"sarMins" json:"sarMins"`
	WorkHoursPerYear float64 `yaml:"workHoursPerYear" json:"workHoursPerYear"`
}

// DefaultBaselines returns the product review baselines.
func DefaultBaselines() Baselines {
	return Baselines{
		AlertReviewMins:  5,
		EDDMins:          45,
		SARMins:          20,
		WorkHoursPerYear: 2080,
	}
}

// Validate rejects negative or non-finite baselines and a non-positive
// working year.
func (b Baselines) Validate() error {
	for name, v := range map[string]float64{
		"alertReviewMins": b.AlertReviewMins,
		"eddMins":         b.EDDMins,
		"sarMins":         b.SARMins,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("baseline %s must be a non-negative number", name)
		}
	}
	if !(b.WorkHoursPerYear > 0) || math.IsInf(b.WorkHoursPerYear, 0) {
		return fmt.Errorf("baseline workHoursPerYear must be positive")
	}
	return nil
}

// LoadBaselines reads a YAML baseline profile. Fields missing from the
// file keep their defaults.
func LoadBaselines(path string) (Baselines, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Baselines{}, fmt.Errorf("read baselines: %w", err)
	}
	b := DefaultBaselines()
	if err := yaml.Unmarshal(data, &b); err != nil {
		return Baselines{}, fmt.Errorf("parse baselines: %w", err)
	}
	if err := b.Validate(); err != nil {
		return Baselines{}, err
	}
	return b, nil
}
