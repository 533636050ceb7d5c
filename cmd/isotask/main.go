// Package main is the entry point for the isotask runner. It reads a
// function literal from a file, runs it once in an isolated worker with the
// given state and prints the serialized result.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/isotask"
	"github.com/dshills/isotask/config"
	"github.com/dshills/isotask/worker"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	ConfigPath string
	StateJSON  string
	TaskFile   string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		return 1
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)

	source, err := os.ReadFile(opts.TaskFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to read task: %v\n", err)
		return 1
	}

	var state any
	if err := json.Unmarshal([]byte(opts.StateJSON), &state); err != nil {
		fmt.Fprintf(os.Stderr, "Error: state is not valid JSON: %v\n", err)
		return 1
	}

	workerOpts := append(cfg.Worker.Options(), worker.WithLogger(logger))
	task, fut, err := isotask.StartNew(string(source), state,
		isotask.WithFactory(worker.NewFactory(workerOpts...)),
		isotask.WithLogger(logger),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	// The run is fire-and-forget; an interrupt abandons the wait, not the
	// worker, which the process teardown reclaims.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := fut.Wait(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: task %s: %v\n", task.Status(), err)
		return 1
	}

	out, err := json.Marshal(res.Data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to encode result: %v\n", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}

func parseFlags() options {
	var opts options
	var showVersion bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.StateJSON, "state", "null", "Task input state as JSON")
	flag.StringVar(&opts.StateJSON, "s", "null", "Task input state as JSON (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "isotask - run one function in an isolated worker\n\n")
		fmt.Fprintf(os.Stderr, "Usage: isotask [options] <task-file>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  isotask incr.task                Run with null state\n")
		fmt.Fprintf(os.Stderr, "  isotask -s 5 incr.task           Run with state 5\n")
		fmt.Fprintf(os.Stderr, "  isotask -s '{\"n\":1}' incr.task   Run with object state\n")
	}

	flag.Parse()

	if showVersion {
		fmt.Printf("isotask %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		os.Exit(0)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	opts.TaskFile = flag.Arg(0)

	return opts
}
