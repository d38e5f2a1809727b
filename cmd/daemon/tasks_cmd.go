// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/ManuGH/vidsync/internal/duplicate"
)

// runSweepCLI runs one reconciliation sweep in the foreground and prints
// the report as JSON.
func runSweepCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vidsyncd sweep", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	contextID := fs.String("context", "", "limit the sweep to one context")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, code := loadConfig(*configPath, stderr)
	if code != 0 {
		return code
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Startup failed: %v\n", err)
		return 1
	}
	defer func() { _ = svc.Close() }()

	report, err := svc.sweep.Run(ctx, *contextID)
	if err != nil {
		fmt.Fprintf(stderr, "Sweep failed: %v\n", err)
		return 1
	}
	return printJSON(stdout, stderr, report)
}

// runDuplicateCLI copies one asset, or a whole context with -all, to
// another context.
func runDuplicateCLI(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("vidsyncd duplicate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to config file (YAML)")
	assetID := fs.String("asset", "", "asset to duplicate")
	all := fs.Bool("all", false, "duplicate every row of the source context")
	from := fs.String("from", "", "source context")
	to := fs.String("to", "", "target context")
	actor := fs.String("actor", "", "owner recorded on the new rows")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *from == "" || *to == "" {
		fmt.Fprintln(stderr, "Error: -from and -to are required")
		return 2
	}
	if (*assetID == "") == !*all {
		fmt.Fprintln(stderr, "Error: exactly one of -asset or -all is required")
		return 2
	}

	cfg, code := loadConfig(*configPath, stderr)
	if code != 0 {
		return code
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := buildServices(ctx, cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Startup failed: %v\n", err)
		return 1
	}
	defer func() { _ = svc.Close() }()

	var results []duplicate.Result
	if *assetID != "" {
		outcome, err := svc.duplicator.Duplicate(ctx, *assetID, *from, *to, *actor)
		if err != nil {
			fmt.Fprintf(stderr, "Duplicate failed: %v\n", err)
			return 1
		}
		results = []duplicate.Result{{AssetID: *assetID, Outcome: outcome}}
	} else {
		results, err = svc.duplicator.DuplicateAll(ctx, *from, *to, *actor)
		if err != nil {
			fmt.Fprintf(stderr, "Duplicate failed: %v\n", err)
			return 1
		}
	}
	return printJSON(stdout, stderr, results)
}

func printJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "Failed to encode JSON: %v\n", err)
		return 1
	}
	return 0
}
