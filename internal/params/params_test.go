package params

import (
	"net/url"
	"strings"
	"testing"

	"github.com/opensource-finance/tally/internal/domain"
)

func TestEncode(t *testing.T) {
	got := Encode(domain.DefaultParameters())
	want := "avgAnnualCostAML=80000&activePlayers=50000&suspiciousActivityAlerts=10" +
		"&avgTimeToReviewAlert=60&avgEDDReviews=1&avgTimeToPerformEDD=360" +
		"&suspiciousActivityReports=1&timeToInvestigateSAR=120" +
		"&percentageRiskScored=0.05&timeToScoreSinglePlayer=30"
	if got != want {
		t.Errorf("unexpected encoding:\n got %s\nwant %s", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, p := range []domain.InputParameters{
		domain.DefaultParameters(),
		{
			AvgAnnualCostAML:          123456.789,
			ActivePlayers:             1,
			SuspiciousActivityAlerts:  0.1 + 0.2,
			AvgTimeToReviewAlert:      1e-9,
			AvgEDDReviews:             3,
			AvgTimeToPerformEDD:       1.0 / 3,
			SuspiciousActivityReports: 1e12,
			TimeToInvestigateSAR:      7.25,
			PercentageRiskScored:      0.999,
			TimeToScoreSinglePlayer:   2.5,
		},
	} {
		got, overridden, err := DecodeQuery(Encode(p), domain.DefaultParameters())
		if err != nil {
			t.Fatalf("DecodeQuery failed: %v", err)
		}
		if !overridden {
			t.Error("expected override pass")
		}
		if got != p {
			t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, p)
		}

		again, _ := Decode(Values(p), domain.DefaultParameters())
		if again != p {
			t.Errorf("values round trip mismatch:\n got %+v\nwant %+v", again, p)
		}
	}
}

func TestDecode(t *testing.T) {
	base := domain.DefaultParameters()

	t.Run("EmptyQueryKeepsBase", func(t *testing.T) {
		got, overridden := Decode(url.Values{}, base)
		if overridden {
			t.Error("expected no override pass for empty query")
		}
		if got != base {
			t.Errorf("expected base, got %+v", got)
		}
	})

	t.Run("PartialOverride", func(t *testing.T) {
		got, overridden := Decode(url.Values{
			"activePlayers":        {"75000"},
			"percentageRiskScored": {"0.25"},
		}, base)
		if !overridden {
			t.Error("expected override pass")
		}
		if got.ActivePlayers != 75000 || got.PercentageRiskScored != 0.25 {
			t.Errorf("overrides not applied: %+v", got)
		}
		if got.AvgAnnualCostAML != base.AvgAnnualCostAML || got.TimeToInvestigateSAR != base.TimeToInvestigateSAR {
			t.Errorf("absent fields should keep base values: %+v", got)
		}
	})

	t.Run("PerFieldFallback", func(t *testing.T) {
		got, _ := Decode(url.Values{
			"avgAnnualCostAML":         {"abc"},
			"activePlayers":            {"-5"},
			"avgEDDReviews":            {"0"},
			"avgTimeToPerformEDD":      {"NaN"},
			"timeToInvestigateSAR":     {"Inf"},
			"suspiciousActivityAlerts": {""},
			"avgTimeToReviewAlert":     {" 45 "},
			"timeToScoreSinglePlayer":  {"1e1"},
		}, base)

		if got.AvgAnnualCostAML != base.AvgAnnualCostAML {
			t.Errorf("non-numeric should fall back, got %v", got.AvgAnnualCostAML)
		}
		if got.ActivePlayers != base.ActivePlayers {
			t.Errorf("negative should fall back, got %v", got.ActivePlayers)
		}
		if got.AvgEDDReviews != base.AvgEDDReviews {
			t.Errorf("zero should fall back, got %v", got.AvgEDDReviews)
		}
		if got.AvgTimeToPerformEDD != base.AvgTimeToPerformEDD {
			t.Errorf("NaN should fall back, got %v", got.AvgTimeToPerformEDD)
		}
		if got.TimeToInvestigateSAR != base.TimeToInvestigateSAR {
			t.Errorf("Inf should fall back, got %v", got.TimeToInvestigateSAR)
		}
		if got.SuspiciousActivityAlerts != base.SuspiciousActivityAlerts {
			t.Errorf("empty should fall back, got %v", got.SuspiciousActivityAlerts)
		}
		if got.AvgTimeToReviewAlert != 45 {
			t.Errorf("expected 45, got %v", got.AvgTimeToReviewAlert)
		}
		if got.TimeToScoreSinglePlayer != 10 {
			t.Errorf("expected 10, got %v", got.TimeToScoreSinglePlayer)
		}
		if err := got.Validate(); err != nil {
			t.Errorf("decoded record should be valid: %v", err)
		}
	})

	t.Run("UnrelatedKeysStillTriggerPass", func(t *testing.T) {
		got, overridden := Decode(url.Values{"utm_source": {"newsletter"}}, base)
		if !overridden {
			t.Error("any query should trigger the override pass")
		}
		if got != base {
			t.Errorf("expected base values, got %+v", got)
		}
	})

	t.Run("MalformedQuery", func(t *testing.T) {
		if _, _, err := DecodeQuery("activePlayers=%zz", base); err == nil {
			t.Error("expected parse error")
		}
	})
}

func TestShareURL(t *testing.T) {
	base, _ := url.Parse("https://kinectify.example.com/roi-calculator?ref=old#results")

	got := ShareURL(base, domain.DefaultParameters())
	if !strings.HasPrefix(got, "https://kinectify.example.com/roi-calculator?avgAnnualCostAML=80000&") {
		t.Errorf("unexpected share url %s", got)
	}
	if strings.Contains(got, "ref=old") || strings.Contains(got, "#results") {
		t.Errorf("share url should drop existing query and fragment: %s", got)
	}

	parsed, err := url.Parse(got)
	if err != nil {
		t.Fatalf("share url does not parse: %v", err)
	}
	decoded, _ := Decode(parsed.Query(), domain.InputParameters{})
	if decoded != domain.DefaultParameters() {
		t.Errorf("share url does not decode back: %+v", decoded)
	}
}

func TestDecodeDisplay(t *testing.T) {
	base := domain.DefaultParameters()

	values := url.Values{
		string(domain.FieldAvgAnnualCostAML):     {"95"},
		string(domain.FieldAvgTimeToPerformEDD):  {"1.5"},
		string(domain.FieldPercentageRiskScored): {"20"},
		string(domain.FieldActivePlayers):        {"-3"},
	}

	p, overridden := DecodeDisplay(values, base)
	if !overridden {
		t.Fatal("expected override pass")
	}
	if p.AvgAnnualCostAML != 95000 {
		t.Errorf("expected cost 95000, got %v", p.AvgAnnualCostAML)
	}
	if p.AvgTimeToPerformEDD != 90 {
		t.Errorf("expected EDD time 90 minutes, got %v", p.AvgTimeToPerformEDD)
	}
	if p.PercentageRiskScored != 0.2 {
		t.Errorf("expected risk fraction 0.2, got %v", p.PercentageRiskScored)
	}
	if p.ActivePlayers != base.ActivePlayers {
		t.Errorf("negative value should fall back, got %v", p.ActivePlayers)
	}

	if _, overridden := DecodeDisplay(url.Values{}, base); overridden {
		t.Error("empty values should not override")
	}
}
