package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/opensource-finance/tally/internal/calculator"
	"github.com/opensource-finance/tally/internal/display"
	"github.com/opensource-finance/tally/internal/domain"
	"github.com/opensource-finance/tally/internal/params"
)

const replHelp = `Commands:
  <field> <value> [display|stored]   edit one assumption (display units by default)
  show                               print the current estimate
  share                              print the share link
  fields                             list assumption names
  quit                               leave
`

// lockedWriter serialises output from the reader and the calculator loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// runREPL drives one calculator from line-based input. The reader
// goroutine turns lines into edits; the calculator loop recomputes and
// renders after every accepted edit.
func runREPL(args []string, in io.Reader, out io.Writer) error {
	fs, opts := inputFlags("repl")
	if err := fs.Parse(args); err != nil {
		return err
	}
	page, err := parsePage(opts.page)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	initial, est, err := buildCalculator(ctx, fs, opts)
	if err != nil {
		return err
	}

	w := &lockedWriter{w: out}
	var latest atomic.Pointer[calculator.Snapshot]
	rendered := make(chan struct{}, 1)

	show := func(s calculator.Snapshot) error {
		return display.WriteText(w, display.Report{
			Name:       opts.name,
			Parameters: s.Parameters,
			Metrics:    s.Metrics,
		})
	}
	renderer := calculator.RendererFunc(func(ctx context.Context, s calculator.Snapshot) error {
		latest.Store(&s)
		err := show(s)
		select {
		case rendered <- struct{}{}:
		default:
		}
		return err
	})

	c := calculator.Restore(est, renderer, initial.Parameters())
	snap := c.Snapshot()
	latest.Store(&snap)
	if err := show(snap); err != nil {
		return err
	}
	fmt.Fprint(w, "\nType help for commands.\n")

	edits := make(chan calculator.Edit)
	go func() {
		defer close(edits)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			switch line {
			case "":
				continue
			case "quit", "exit":
				return
			case "help":
				fmt.Fprint(w, replHelp)
				continue
			case "fields":
				for _, f := range domain.Fields {
					fmt.Fprintf(w, "  %-28s %s\n", f, f.Label())
				}
				continue
			case "show":
				if err := show(*latest.Load()); err != nil {
					return
				}
				continue
			case "share":
				fmt.Fprintln(w, params.ShareURL(page, latest.Load().Parameters))
				continue
			}

			e, err := parseEdit(line)
			if err != nil {
				fmt.Fprintf(w, "rejected: %v\n", err)
				continue
			}
			select {
			case edits <- e:
			case <-ctx.Done():
				return
			}
			// Accepted edits always render; wait so the next command sees them.
			select {
			case <-rendered:
			case <-ctx.Done():
				return
			}
		}
	}()

	return c.Run(ctx, edits)
}

// parseEdit reads "<field> <value> [units]" and checks the value before it
// reaches the calculator.
func parseEdit(line string) (calculator.Edit, error) {
	parts := strings.Fields(line)
	if len(parts) < 2 || len(parts) > 3 {
		return calculator.Edit{}, fmt.Errorf("expected <field> <value> [display|stored], type help for commands")
	}

	f, err := domain.ParseField(parts[0])
	if err != nil {
		return calculator.Edit{}, err
	}
	v, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return calculator.Edit{}, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidInput, parts[1])
	}

	units := domain.UnitsDisplay
	if len(parts) == 3 {
		if units, err = domain.ParseUnits(parts[2]); err != nil {
			return calculator.Edit{}, err
		}
	}

	stored := v
	if units == domain.UnitsDisplay {
		stored = f.ToStored(v)
	}
	if err := domain.ValidateValue(f, stored); err != nil {
		return calculator.Edit{}, err
	}
	return calculator.Edit{Field: f, Value: v, Units: units}, nil
}
