package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/roi-relay/internal/config"
	"github.com/banshee-data/roi-relay/internal/db"
	"github.com/banshee-data/roi-relay/internal/pipeline"
	"github.com/banshee-data/roi-relay/internal/roi"
	"github.com/banshee-data/roi-relay/internal/version"
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "run":
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		err := runPipeline(ctx, args, os.Stdin, os.Stdout, os.Stderr)
		stop()
		if err != nil {
			log.Fatalf("run failed: %v", err)
		}
	case "migrate":
		if err := runMigrate(args, os.Stdout); err != nil {
			log.Fatalf("migrate failed: %v", err)
		}
	case "version":
		fmt.Printf("roi-pipeline %s\n", version.String())
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`roi-pipeline - per-frame region synthesis and attribute relay

Usage: roi-pipeline <command> [options]

Commands:
  run        Stream JSON-lines frames through a configured pipeline
  migrate    Manage the relay database schema (up, down, status)
  version    Show roi-pipeline version
  help       Show this help message

Run Flags:
  --config <file>   Pipeline definition (.yaml, .yml or .json)
                    Defaults to config/pipeline.defaults.yaml
  --input <file>    Frames to read, one JSON record per line (default: stdin)
  --output <file>   Processed frames (default: stdout)
  --db <file>       Record relayed attributes to this SQLite database;
                    overrides record.db_path in the config
  --keep-going      Skip frames that fail instead of stopping
  --debug           Log diagnostics to stderr
  --trace           Log per-frame telemetry to stderr

Migrate Usage:
  roi-pipeline migrate --db <file> up|down|status`)
}

func runPipeline(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", config.DefaultConfigPath, "Pipeline definition file")
	inputPath := fs.String("input", "", "Input JSON-lines file (default stdin)")
	outputPath := fs.String("output", "", "Output JSON-lines file (default stdout)")
	dbPath := fs.String("db", "", "SQLite database for relayed attributes")
	keepGoing := fs.Bool("keep-going", false, "Skip failed frames instead of stopping")
	debug := fs.Bool("debug", false, "Log diagnostics to stderr")
	trace := fs.Bool("trace", false, "Log per-frame telemetry to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	configureLogging(stderr, *debug, *trace)

	cfg, err := config.LoadPipelineConfig(*configPath)
	if err != nil {
		return err
	}
	if *dbPath == "" {
		*dbPath = cfg.GetDBPath()
	}

	in := stdin
	if *inputPath != "" {
		f, err := os.Open(*inputPath)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		in = f
	}
	out := stdout
	if *outputPath != "" {
		f, err := os.Create(*outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	opts := pipeline.BuildOptions{Options: []pipeline.Option{pipeline.WithContinueOnError(*keepGoing)}}

	var (
		store    *db.RelayStore
		recorder *db.RelayRecorder
		run      *db.Run
	)
	if *dbPath != "" {
		database, err := db.NewDB(*dbPath)
		if err != nil {
			return err
		}
		defer database.Close()
		store = db.NewRelayStore(database.DB)
		run = &db.Run{ConfigPath: *configPath, Version: version.String()}
		if err := store.StartRun(run); err != nil {
			return err
		}
		recorder = store.Recorder(run.RunID)
		opts.OnRelay = recorder.Observe
		log.Printf("recording run %s to %s", run.RunID, *dbPath)
	}

	p, err := pipeline.Build(cfg, opts)
	if err != nil {
		return err
	}

	sink := pipeline.NewJSONLinesSink(out)
	stats, runErr := p.Run(ctx, pipeline.NewJSONLinesSource(in), sink)
	if err := sink.Flush(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to flush output: %w", err)
	}

	if store != nil {
		if err := recorder.Err(); err != nil && runErr == nil {
			runErr = fmt.Errorf("failed to record relays: %w", err)
		}
		if err := store.FinishRun(run.RunID, stats.Frames, stats.FailedFrames, recorder.Count()); err != nil && runErr == nil {
			runErr = err
		}
	}

	log.Printf("processed %d frames (%d failed), relayed %d attributes", stats.Frames, stats.FailedFrames, stats.Relayed())
	return runErr
}

func configureLogging(stderr io.Writer, debug, trace bool) {
	log.SetOutput(stderr)
	var diag, tr io.Writer
	if debug {
		diag = stderr
	}
	if trace {
		tr = stderr
	}
	roi.SetLogWriters(stderr, diag, tr)
	pipeline.SetLogWriters(stderr, diag, tr)
}
