package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/opensource-finance/tally/internal/domain"
)

// Report is an estimate together with the assumptions behind it.
type Report struct {
	Name       string
	Parameters domain.InputParameters
	Metrics    domain.DerivedMetrics
	ShareURL   string
}

type line struct {
	label string
	value string
}

func (r Report) resultLines() []line {
	res := Format(r.Metrics)
	gain := res.AnnualProductivityGains
	if gain != NotAvailable {
		gain += "%"
	}
	return []line{
		{"Total hours saved", res.TotalHoursSaved},
		{"Annual productivity gains", gain},
		{"Total annual money saved", res.TotalAnnualMoneySaved},
		{"Players risk scored", res.PercentageRiskScored + "%"},
		{"Cost of current risk coverage", res.ExpandedRiskCoverageCost},
		{"Cost of 100% risk coverage", res.ExpandedRisk100CoverageCost},
	}
}

// WriteText writes an aligned plain-text summary.
func WriteText(w io.Writer, r Report) error {
	var b strings.Builder
	if r.Name != "" {
		fmt.Fprintf(&b, "%s\n\n", r.Name)
	}
	fmt.Fprintf(&b, "Assumptions\n")
	for _, f := range domain.Fields {
		fmt.Fprintf(&b, "  %-52s %s\n", f.Label(), Input(f, r.Parameters.Get(f)))
	}
	fmt.Fprintf(&b, "\nResults\n")
	for _, l := range r.resultLines() {
		fmt.Fprintf(&b, "  %-52s %s\n", l.label, l.value)
	}
	if r.ShareURL != "" {
		fmt.Fprintf(&b, "\nShare: %s\n", r.ShareURL)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// WriteMarkdown writes the report as a Markdown document.
func WriteMarkdown(w io.Writer, r Report) error {
	var b strings.Builder
	title := r.Name
	if title == "" {
		title = "AML compliance ROI estimate"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)

	fmt.Fprintf(&b, "| Assumption | Value |\n")
	fmt.Fprintf(&b, "| --- | --- |\n")
	for _, f := range domain.Fields {
		fmt.Fprintf(&b, "| %s | %s |\n", f.Label(), Input(f, r.Parameters.Get(f)))
	}

	fmt.Fprintf(&b, "\n| Result | Value |\n")
	fmt.Fprintf(&b, "| --- | --- |\n")
	for _, l := range r.resultLines() {
		fmt.Fprintf(&b, "| %s | %s |\n", l.label, l.value)
	}

	if r.ShareURL != "" {
		fmt.Fprintf(&b, "\n[Open this estimate](%s)\n", r.ShareURL)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
