package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/opensource-finance/tally/internal/api"
)

type benchConfig struct {
	BaseURL   string
	Namespace string
	Requests  int
	Workers   int
	Timeout   time.Duration
}

// benchResult tracks benchmark results.
type benchResult struct {
	Processed int64
	Errors    int64
	Duration  time.Duration
	Latencies []time.Duration
}

func runBench(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("bench", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	cfg := benchConfig{}
	fs.StringVar(&cfg.BaseURL, "url", "http://localhost:8080", "tally base URL")
	fs.StringVar(&cfg.Namespace, "ns", "bench", "namespace for requests")
	fs.IntVar(&cfg.Requests, "n", 1000, "total estimate requests")
	fs.IntVar(&cfg.Workers, "workers", 10, "number of concurrent workers")
	fs.DurationVar(&cfg.Timeout, "timeout", 10*time.Second, "per-request timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.Requests <= 0 || cfg.Workers <= 0 {
		return errors.New("-n and -workers must be positive")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	ctx := context.Background()
	client := &http.Client{Timeout: cfg.Timeout}

	if err := checkHealth(ctx, client, cfg.BaseURL); err != nil {
		return fmt.Errorf("tally not reachable at %s: %w", cfg.BaseURL, err)
	}

	fmt.Fprintf(out, "Target:    %s\n", cfg.BaseURL)
	fmt.Fprintf(out, "Namespace: %s\n", cfg.Namespace)
	fmt.Fprintf(out, "Requests:  %s\n", humanize.Comma(int64(cfg.Requests)))
	fmt.Fprintf(out, "Workers:   %d\n\n", cfg.Workers)

	res := runBenchmark(ctx, client, cfg)
	printResults(out, res)

	if res.Errors > 0 {
		return exitError{code: 2, err: fmt.Errorf("%d of %d requests failed", res.Errors, res.Processed)}
	}
	return nil
}

func checkHealth(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func runBenchmark(ctx context.Context, client *http.Client, cfg benchConfig) *benchResult {
	res := &benchResult{}

	work := make(chan int, 100)
	var wg sync.WaitGroup
	var mu sync.Mutex

	start := time.Now()
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			latencies := make([]time.Duration, 0, cfg.Requests/cfg.Workers+1)

			for n := range work {
				began := time.Now()
				err := requestEstimate(ctx, client, cfg, n)
				latencies = append(latencies, time.Since(began))

				atomic.AddInt64(&res.Processed, 1)
				if err != nil {
					atomic.AddInt64(&res.Errors, 1)
				}
			}

			mu.Lock()
			res.Latencies = append(res.Latencies, latencies...)
			mu.Unlock()
		}()
	}

	for i := 0; i < cfg.Requests; i++ {
		work <- i
	}
	close(work)
	wg.Wait()

	res.Duration = time.Since(start)
	sort.Slice(res.Latencies, func(i, j int) bool { return res.Latencies[i] < res.Latencies[j] })
	return res
}

// requestEstimate varies the player count so no two consecutive requests
// compute the same estimate.
func requestEstimate(ctx context.Context, client *http.Client, cfg benchConfig, n int) error {
	target := fmt.Sprintf("%s/api/v1/estimate?activePlayers=%d", cfg.BaseURL, 50000+n%1000*10)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	req.Header.Set(api.NamespaceHeader, cfg.Namespace)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	var body api.EstimateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// percentile returns the nearest-rank percentile of sorted latencies.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}

func printResults(out io.Writer, res *benchResult) {
	rps := 0.0
	if res.Duration > 0 {
		rps = float64(res.Processed) / res.Duration.Seconds()
	}

	fmt.Fprintln(out, "Results")
	fmt.Fprintf(out, "  Processed:   %s\n", humanize.Comma(res.Processed))
	fmt.Fprintf(out, "  Errors:      %s\n", humanize.Comma(res.Errors))
	fmt.Fprintf(out, "  Duration:    %s\n", res.Duration.Round(time.Millisecond))
	fmt.Fprintf(out, "  Throughput:  %s req/s\n", humanize.CommafWithDigits(rps, 1))
	fmt.Fprintln(out, "Latency")
	for _, p := range []float64{50, 95, 99} {
		fmt.Fprintf(out, "  p%-3.0f        %s\n", p, percentile(res.Latencies, p).Round(time.Microsecond))
	}
	if n := len(res.Latencies); n > 0 {
		fmt.Fprintf(out, "  max         %s\n", res.Latencies[n-1].Round(time.Microsecond))
	}
}
