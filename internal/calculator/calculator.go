// Package calculator holds one interactive estimate: the current
// assumptions, the edits applied to them and the rendering of results.
package calculator

import (
	"context"
	"errors"
	"log/slog"
	"net/url"

	"github.com/opensource-finance/tally/internal/display"
	"github.com/opensource-finance/tally/internal/domain"
	"github.com/opensource-finance/tally/internal/estimator"
	"github.com/opensource-finance/tally/internal/params"
)

// Snapshot is the state handed to a Renderer after every recompute.
type Snapshot struct {
	Parameters domain.InputParameters `json:"parameters"`
	Metrics    domain.DerivedMetrics  `json:"metrics"`
	Display    display.Results        `json:"display"`
}

// Renderer is the output port: it receives the full result after each
// recompute.
type Renderer interface {
	Render(ctx context.Context, s Snapshot) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, s Snapshot) error

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, s Snapshot) error {
	return f(ctx, s)
}

// Edit is one user change arriving on the input port.
type Edit struct {
	Field domain.Field `json:"field"`
	Value float64      `json:"value"`
	Units domain.Units `json:"units,omitempty"`
}

// Calculator owns a single InputParameters record. It is not safe for
// concurrent use; each session has exactly one owner.
type Calculator struct {
	est      *estimator.Estimator
	renderer Renderer
	params   domain.InputParameters
	last     Snapshot
}

// New creates a calculator starting from the default assumptions.
// A nil estimator uses the default baselines; a nil renderer discards output.
func New(est *estimator.Estimator, renderer Renderer) *Calculator {
	return Restore(est, renderer, domain.DefaultParameters())
}

// Restore creates a calculator from a previously saved record.
func Restore(est *estimator.Estimator, renderer Renderer, p domain.InputParameters) *Calculator {
	if est == nil {
		est = estimator.New(estimator.DefaultBaselines())
	}
	c := &Calculator{est: est, renderer: renderer, params: p}
	c.last = c.compute()
	return c
}

// Parameters returns a copy of the current assumptions.
func (c *Calculator) Parameters() domain.InputParameters {
	return c.params
}

// Snapshot returns the most recently computed state.
func (c *Calculator) Snapshot() Snapshot {
	return c.last
}

// InitFromQuery applies URL parameters once at startup. Any non-empty query
// triggers a full override pass followed by a recompute; fields that are
// missing or invalid keep their current values.
func (c *Calculator) InitFromQuery(ctx context.Context, values url.Values) (bool, error) {
	p, overridden := params.Decode(values, c.params)
	if !overridden {
		return false, nil
	}
	c.params = p
	return true, c.Update(ctx)
}

// Apply stores a single edit and recomputes. An invalid value returns an
// error wrapping domain.ErrInvalidInput and leaves the calculator unchanged:
// no recompute and no render.
func (c *Calculator) Apply(ctx context.Context, e Edit) error {
	v := e.Value
	if e.Units == "" || e.Units == domain.UnitsDisplay {
		v = e.Field.ToStored(v)
	}
	next, err := c.params.With(e.Field, v)
	if err != nil {
		return err
	}
	c.params = next
	return c.Update(ctx)
}

// Update recomputes every metric and hands the result to the renderer.
func (c *Calculator) Update(ctx context.Context) error {
	c.last = c.compute()
	if c.renderer == nil {
		return nil
	}
	return c.renderer.Render(ctx, c.last)
}

// Run consumes edits until the channel closes or ctx is done. Each valid
// edit causes exactly one recompute and render; rejected edits are logged
// and skipped.
func (c *Calculator) Run(ctx context.Context, edits <-chan Edit) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-edits:
			if !ok {
				return nil
			}
			if err := c.Apply(ctx, e); err != nil {
				if errors.Is(err, domain.ErrInvalidInput) {
					slog.Debug("edit rejected",
						"field", e.Field,
						"value", e.Value,
						"error", err,
					)
					continue
				}
				return err
			}
		}
	}
}

func (c *Calculator) compute() Snapshot {
	m := c.est.Compute(c.params)
	return Snapshot{
		Parameters: c.params,
		Metrics:    m,
		Display:    display.Format(m),
	}
}
