package domain

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

func TestDerivedMetricsJSON(t *testing.T) {
	t.Run("Finite", func(t *testing.T) {
		gain := 89.0
		data, err := json.Marshal(DerivedMetrics{TotalHoursSaved: 16, TotalAnnualMoneySaved: 619, AnnualProductivityGainsPct: &gain})
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		for _, want := range []string{`"totalHoursSaved":16`, `"totalAnnualMoneySaved":619`, `"annualProductivityGainsPct":89`} {
			if !strings.Contains(string(data), want) {
				t.Errorf("expected %s in %s", want, data)
			}
		}
	})

	t.Run("OverflowIsNull", func(t *testing.T) {
		data, err := json.Marshal(DerivedMetrics{
			TotalHoursSaved:             16,
			ExpandedRiskCoverageCost:    math.Inf(1),
			ExpandedRisk100CoverageCost: math.Inf(1),
			TotalMinsSaved:              math.Inf(-1),
		})
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		for _, want := range []string{
			`"expandedRiskCoverageCost":null`,
			`"expandedRisk100CoverageCost":null`,
			`"totalMinsSaved":null`,
			`"annualProductivityGainsPct":null`,
			`"totalHoursSaved":16`,
		} {
			if !strings.Contains(string(data), want) {
				t.Errorf("expected %s in %s", want, data)
			}
		}

		var back DerivedMetrics
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if back.TotalHoursSaved != 16 || back.ExpandedRisk100CoverageCost != 0 {
			t.Errorf("unexpected decoded metrics %+v", back)
		}
	})
}

func TestFiniteOrZero(t *testing.T) {
	for _, tc := range []struct {
		in, want float64
	}{
		{619, 619},
		{-3, -3},
		{math.Inf(1), 0},
		{math.Inf(-1), 0},
		{math.NaN(), 0},
	} {
		if got := FiniteOrZero(tc.in); got != tc.want {
			t.Errorf("FiniteOrZero(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
