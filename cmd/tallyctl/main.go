// Tally - AML compliance ROI calculator.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

// Command tallyctl computes, shares and benchmarks AML ROI estimates from
// the command line.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Version information (set via ldflags)
var Version = "dev"

var errUsage = errors.New("usage")

func main() {
	err := run(os.Args[1:], os.Stdin, os.Stdout)
	if errors.Is(err, errUsage) {
		usage()
		os.Exit(1)
	}
	if err != nil {
		fail(err)
	}
}

func run(args []string, in io.Reader, out io.Writer) error {
	if len(args) < 1 {
		return errUsage
	}

	switch args[0] {
	case "estimate":
		return runEstimate(args[1:], out)
	case "share":
		return runShare(args[1:], out)
	case "repl":
		return runREPL(args[1:], in, out)
	case "bench":
		return runBench(args[1:], out)
	case "version":
		fmt.Fprintln(out, Version)
		return nil
	}
	return errUsage
}

func usage() {
	fmt.Fprintln(os.Stderr, "tallyctl - AML compliance ROI calculator")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  tallyctl estimate -activePlayers 120000 -format markdown")
	fmt.Fprintln(os.Stderr, "  tallyctl estimate -f scenario.yaml -format json")
	fmt.Fprintln(os.Stderr, "  tallyctl estimate -url 'https://roi.example.com/?activePlayers=120000'")
	fmt.Fprintln(os.Stderr, "  tallyctl share    -f scenario.yaml -page https://roi.example.com/")
	fmt.Fprintln(os.Stderr, "  tallyctl repl     -baselines baselines.yaml")
	fmt.Fprintln(os.Stderr, "  tallyctl bench    -url http://localhost:8080 -n 5000 -workers 20")
	fmt.Fprintln(os.Stderr, "  tallyctl version")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Assumption flags take display units: cost in thousands, EDD and SAR")
	fmt.Fprintln(os.Stderr, "times in hours, risk coverage in percent.")
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	type exitCoder interface {
		ExitCode() int
	}
	var coded exitCoder
	if errors.As(err, &coded) {
		os.Exit(coded.ExitCode())
	}
	os.Exit(1)
}
