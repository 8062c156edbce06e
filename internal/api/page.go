package api

import (
	"bytes"
	_ "embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/opensource-finance/tally/internal/calculator"
	"github.com/opensource-finance/tally/internal/display"
	"github.com/opensource-finance/tally/internal/domain"
	"github.com/opensource-finance/tally/internal/params"
)

//go:embed page.html
var pageHTML string

var pageTemplate = template.Must(template.New("page").Parse(pageHTML))

type pageField struct {
	Key   string
	Label string
	Value string
	Step  string
}

type pageData struct {
	Fields   []pageField
	Results  display.Results
	ShareURL string
	Version  string

	// Namespace is set only for a non-default namespace, so the form
	// submits it back.
	Namespace string
}

// Page handles GET /. Share links carry stored units; the form submits
// display units with units=display and is redirected to the canonical
// share URL so the address bar is always shareable.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := h.pageURL(r)
	ns := GetNamespace(r.Context())

	if q.Get("units") == string(domain.UnitsDisplay) {
		p, _ := params.DecodeDisplay(q, domain.DefaultParameters())
		http.Redirect(w, r, withNamespace(params.ShareURL(h.storedPageURL(), p), ns), http.StatusSeeOther)
		return
	}

	c := calculator.New(h.est, nil)
	if _, err := c.InitFromQuery(r.Context(), q); err != nil {
		http.Error(w, "failed to compute estimate", http.StatusInternalServerError)
		return
	}
	snap := c.Snapshot()

	data := pageData{
		Results:  snap.Display,
		ShareURL: withNamespace(c.ShareURL(page), ns),
		Version:  h.version,
	}
	if ns != domain.DefaultNamespace {
		data.Namespace = ns
	}
	for _, f := range domain.Fields {
		step := "1"
		if f == domain.FieldAvgTimeToPerformEDD || f == domain.FieldTimeToInvestigateSAR || f == domain.FieldPercentageRiskScored {
			step = "any"
		}
		data.Fields = append(data.Fields, pageField{
			Key:   string(f),
			Label: f.Label(),
			Value: display.Input(f, snap.Parameters.Get(f)),
			Step:  step,
		})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		slog.Error("failed to render page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}

	h.recordEstimate(r, "page", snap)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
