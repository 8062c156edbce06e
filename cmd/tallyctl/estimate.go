package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"

	"github.com/opensource-finance/tally/internal/calculator"
	"github.com/opensource-finance/tally/internal/display"
	"github.com/opensource-finance/tally/internal/domain"
	"github.com/opensource-finance/tally/internal/estimator"
	"gopkg.in/yaml.v3"
)

const defaultPage = "http://localhost:8080/"

// inputOptions are the flags shared by every command that builds an estimate.
// Sources apply in order: defaults, scenario file, share link, then
// individual assumption flags.
type inputOptions struct {
	file      string
	link      string
	baselines string
	page      string
	name      string
}

// scenarioFile is the YAML form of a saved scenario. Parameters are keyed
// by their share-link names; missing ones keep their defaults.
type scenarioFile struct {
	Name       string             `yaml:"name"`
	Units      string             `yaml:"units"`
	Parameters map[string]float64 `yaml:"parameters"`
}

func inputFlags(cmd string) (*flag.FlagSet, *inputOptions) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := &inputOptions{}
	fs.StringVar(&opts.file, "f", "", "path to a YAML scenario file")
	fs.StringVar(&opts.link, "url", "", "share link to start from")
	fs.StringVar(&opts.baselines, "baselines", "", "path to a YAML baseline profile")
	fs.StringVar(&opts.page, "page", defaultPage, "calculator page share links point at")
	fs.StringVar(&opts.name, "name", "", "name shown on the report and share message")
	for _, f := range domain.Fields {
		fs.Float64(string(f), 0, f.Label())
	}
	return fs, opts
}

// buildCalculator applies every input source in order. Values the
// calculator rejects come back as exitError code 2.
func buildCalculator(ctx context.Context, fs *flag.FlagSet, opts *inputOptions) (*calculator.Calculator, *estimator.Estimator, error) {
	baselines := estimator.DefaultBaselines()
	if opts.baselines != "" {
		b, err := estimator.LoadBaselines(opts.baselines)
		if err != nil {
			return nil, nil, err
		}
		baselines = b
	}
	est := estimator.New(baselines)
	c := calculator.New(est, nil)

	if opts.file != "" {
		sc, err := loadScenario(opts.file)
		if err != nil {
			return nil, nil, err
		}
		if opts.name == "" {
			opts.name = sc.Name
		}
		if err := applyScenario(ctx, c, sc); err != nil {
			return nil, nil, rejected(fmt.Errorf("scenario %s: %w", opts.file, err))
		}
	}

	if opts.link != "" {
		u, err := url.Parse(opts.link)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid share link: %w", err)
		}
		if _, err := c.InitFromQuery(ctx, u.Query()); err != nil {
			return nil, nil, err
		}
	}

	var edits []calculator.Edit
	fs.Visit(func(fl *flag.Flag) {
		f, err := domain.ParseField(fl.Name)
		if err != nil {
			return
		}
		v := fl.Value.(flag.Getter).Get().(float64)
		edits = append(edits, calculator.Edit{Field: f, Value: v, Units: domain.UnitsDisplay})
	})
	for _, e := range edits {
		if err := c.Apply(ctx, e); err != nil {
			return nil, nil, rejected(fmt.Errorf("-%s: %w", e.Field, err))
		}
	}
	return c, est, nil
}

func loadScenario(path string) (scenarioFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scenarioFile{}, fmt.Errorf("read scenario: %w", err)
	}
	var sc scenarioFile
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return scenarioFile{}, fmt.Errorf("parse scenario: %w", err)
	}
	return sc, nil
}

func applyScenario(ctx context.Context, c *calculator.Calculator, sc scenarioFile) error {
	units, err := domain.ParseUnits(sc.Units)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(sc.Parameters))
	for k := range sc.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		f, err := domain.ParseField(k)
		if err != nil {
			return err
		}
		if err := c.Apply(ctx, calculator.Edit{Field: f, Value: sc.Parameters[k], Units: units}); err != nil {
			return err
		}
	}
	return nil
}

func rejected(err error) error {
	if errors.Is(err, domain.ErrInvalidInput) {
		return exitError{code: 2, err: err}
	}
	return err
}

func parsePage(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid page URL %q", raw)
	}
	return u, nil
}

type estimateOutput struct {
	Name       string                 `json:"name,omitempty"`
	Parameters domain.InputParameters `json:"parameters"`
	Metrics    domain.DerivedMetrics  `json:"metrics"`
	Display    display.Results        `json:"display"`
	ShareURL   string                 `json:"shareUrl"`
}

func runEstimate(args []string, out io.Writer) error {
	fs, opts := inputFlags("estimate")
	format := fs.String("format", "text", "output format: text, markdown or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	page, err := parsePage(opts.page)
	if err != nil {
		return err
	}

	c, _, err := buildCalculator(context.Background(), fs, opts)
	if err != nil {
		return err
	}
	snap := c.Snapshot()
	report := display.Report{
		Name:       opts.name,
		Parameters: snap.Parameters,
		Metrics:    snap.Metrics,
		ShareURL:   c.ShareURL(page),
	}

	switch *format {
	case "text":
		return display.WriteText(out, report)
	case "markdown", "md":
		return display.WriteMarkdown(out, report)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(estimateOutput{
			Name:       opts.name,
			Parameters: snap.Parameters,
			Metrics:    snap.Metrics,
			Display:    snap.Display,
			ShareURL:   report.ShareURL,
		})
	}
	return fmt.Errorf("unknown format %q", *format)
}

func runShare(args []string, out io.Writer) error {
	fs, opts := inputFlags("share")
	asJSON := fs.Bool("json", false, "print the outgoing message as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	page, err := parsePage(opts.page)
	if err != nil {
		return err
	}

	c, _, err := buildCalculator(context.Background(), fs, opts)
	if err != nil {
		return err
	}
	msg := c.Share(page, opts.name)

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(msg)
	}
	_, err = fmt.Fprintln(out, msg.URL)
	return err
}
