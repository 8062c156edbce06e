package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/opensource-finance/tally/internal/domain"
)

func TestREPL(t *testing.T) {
	input := strings.Join([]string{
		"activePlayers 100000",
		"players 5",
		"activePlayers -1",
		"percentageRiskScored 0.1 stored",
		"share",
		"quit",
		"activePlayers 1",
	}, "\n")

	var out bytes.Buffer
	if err := run([]string{"repl", "-page", "https://roi.example.com/"}, strings.NewReader(input), &out); err != nil {
		t.Fatalf("repl: %v", err)
	}
	got := out.String()

	if !strings.Contains(got, "1,923,077") {
		t.Error("expected recomputed full coverage cost after edit")
	}
	if n := strings.Count(got, "rejected:"); n != 2 {
		t.Errorf("expected 2 rejected lines, got %d:\n%s", n, got)
	}
	if !strings.Contains(got, "https://roi.example.com/?avgAnnualCostAML=80000&activePlayers=100000&") {
		t.Errorf("share link missing edited players:\n%s", got)
	}
	if !strings.Contains(got, "percentageRiskScored=0.1&") {
		t.Errorf("share link missing stored risk fraction:\n%s", got)
	}
	if strings.Contains(got, "activePlayers=1&") {
		t.Error("input after quit should be ignored")
	}
}

func TestParseEdit(t *testing.T) {
	tests := []struct {
		line    string
		field   domain.Field
		value   float64
		units   domain.Units
		invalid bool
	}{
		{line: "activePlayers 100", field: domain.FieldActivePlayers, value: 100, units: domain.UnitsDisplay},
		{line: "avgTimeToPerformEDD 1.5 display", field: domain.FieldAvgTimeToPerformEDD, value: 1.5, units: domain.UnitsDisplay},
		{line: "avgAnnualCostAML 90000 stored", field: domain.FieldAvgAnnualCostAML, value: 90000, units: domain.UnitsStored},
		{line: "activePlayers 0", invalid: true},
		{line: "activePlayers NaN", invalid: true},
		{line: "activePlayers abc", invalid: true},
		{line: "activePlayers 5 furlongs", invalid: true},
		{line: "players 5", invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			e, err := parseEdit(tt.line)
			if tt.invalid {
				if !errors.Is(err, domain.ErrInvalidInput) {
					t.Errorf("expected invalid input, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.Field != tt.field || e.Value != tt.value || e.Units != tt.units {
				t.Errorf("unexpected edit %+v", e)
			}
		})
	}

	if _, err := parseEdit("activePlayers"); err == nil {
		t.Error("expected error for missing value")
	}
}
