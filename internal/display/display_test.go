package display

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/opensource-finance/tally/internal/domain"
	"github.com/opensource-finance/tally/internal/estimator"
)

func TestInteger(t *testing.T) {
	for _, tc := range []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"},
		{16, "16"},
		{961538, "961,538"},
		{-1234567, "-1,234,567"},
		{1e21, "1,000,000,000,000,000,000,000"},
		{math.NaN(), NotAvailable},
		{math.Inf(1), NotAvailable},
	} {
		if got := Integer(tc.in); got != tc.want {
			t.Errorf("Integer(%v): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestFormat(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		res := Format(estimator.Compute(domain.DefaultParameters()))

		want := Results{
			TotalHoursSaved:             "16",
			AnnualProductivityGains:     "89",
			TotalAnnualMoneySaved:       "619",
			PercentageRiskScored:        "5",
			ExpandedRiskCoverageCost:    "48,077",
			ExpandedRisk100CoverageCost: "961,538",
		}
		if res != want {
			t.Errorf("unexpected results:\n got %+v\nwant %+v", res, want)
		}
	})

	t.Run("UndefinedProductivity", func(t *testing.T) {
		res := Format(domain.DerivedMetrics{})
		if res.AnnualProductivityGains != NotAvailable {
			t.Errorf("expected N/A, got %q", res.AnnualProductivityGains)
		}
	})
}

func TestInput(t *testing.T) {
	p := domain.DefaultParameters()
	for _, tc := range []struct {
		field domain.Field
		want  string
	}{
		{domain.FieldAvgAnnualCostAML, "80"},
		{domain.FieldAvgTimeToPerformEDD, "6"},
		{domain.FieldTimeToInvestigateSAR, "2"},
		{domain.FieldPercentageRiskScored, "5"},
		{domain.FieldActivePlayers, "50000"},
	} {
		if got := Input(tc.field, p.Get(tc.field)); got != tc.want {
			t.Errorf("%s: expected %q, got %q", tc.field, tc.want, got)
		}
	}
}

func TestReports(t *testing.T) {
	r := Report{
		Name:       "Default assumptions",
		Parameters: domain.DefaultParameters(),
		Metrics:    estimator.Compute(domain.DefaultParameters()),
		ShareURL:   "https://example.com/roi?activePlayers=50000",
	}

	t.Run("Text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteText(&buf, r); err != nil {
			t.Fatalf("WriteText failed: %v", err)
		}
		out := buf.String()
		for _, want := range []string{"Default assumptions", "961,538", "89%", "Share: https://example.com/roi"} {
			if !strings.Contains(out, want) {
				t.Errorf("text report missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("Markdown", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteMarkdown(&buf, r); err != nil {
			t.Fatalf("WriteMarkdown failed: %v", err)
		}
		out := buf.String()
		if !strings.HasPrefix(out, "# Default assumptions\n") {
			t.Errorf("unexpected heading:\n%s", out)
		}
		if !strings.Contains(out, "| Total annual money saved | 619 |") {
			t.Errorf("markdown report missing money row:\n%s", out)
		}
	})
}
