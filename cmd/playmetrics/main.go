package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/gxo-labs/playmetrics/internal/collector"
	"github.com/gxo-labs/playmetrics/internal/config"
	"github.com/gxo-labs/playmetrics/internal/events"
	"github.com/gxo-labs/playmetrics/internal/logger"
	"github.com/gxo-labs/playmetrics/internal/metrics"
	"github.com/gxo-labs/playmetrics/internal/stream"
	"github.com/gxo-labs/playmetrics/internal/textfile"
	"github.com/gxo-labs/playmetrics/internal/tracing"
	pmerrors "github.com/gxo-labs/playmetrics/pkg/playmetrics/v1/errors"
)

const (
	ExitSuccess         = 0
	ExitFailure         = 1
	ExitUsageError      = 2
	ExitSigIntBase      = 128
	ExitSigInt          = ExitSigIntBase + int(syscall.SIGINT)
	ExitSigTerm         = ExitSigIntBase + int(syscall.SIGTERM)
	DefaultEventBusSize = 256
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "validate" {
		runValidateCommand(os.Args[2:])
		return
	}
	if len(os.Args) == 2 && (os.Args[1] == "--version" || os.Args[1] == "-version") {
		printVersion()
		os.Exit(ExitSuccess)
	}
	os.Exit(runCollectCommand(os.Args[1:]))
}

func printVersion() {
	fmt.Printf("playmetrics version %s\n", version)
	fmt.Printf("commit: %s\n", commit)
	fmt.Printf("built: %s\n", buildDate)
	fmt.Printf("go version: %s\n", runtime.Version())
	fmt.Printf("os/arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
}

func runValidateCommand(args []string) {
	validateFlags := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := validateFlags.String("config", "", "Path to the configuration YAML file to validate (required)")
	logLevel := validateFlags.String("log-level", config.DefaultLogLevel, "Log level for validation output (debug, info, warn, error)")

	validateFlags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s validate -config <path> [flags...]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Validates the structure and schema compatibility of a playmetrics configuration file.")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		validateFlags.PrintDefaults()
	}

	if err := validateFlags.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing validate flags: %v\n", err)
		os.Exit(ExitUsageError)
	}

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: -config flag is required for validation")
		validateFlags.Usage()
		os.Exit(ExitUsageError)
	}

	log := logger.NewLogger(*logLevel, "text", os.Stderr)
	log.Infof("Validating configuration: %s", *configPath)

	if _, err := config.LoadFromFile(*configPath); err != nil {
		var validationErr *pmerrors.ValidationError
		var configErr *pmerrors.ConfigError
		if errors.As(err, &validationErr) {
			log.Errorf("Configuration validation failed:\n%s", validationErr.Error())
		} else if errors.As(err, &configErr) {
			log.Errorf("Configuration error:\n%s", configErr.Error())
		} else {
			log.Errorf("Failed to load or validate configuration: %v", err)
		}
		os.Exit(ExitFailure)
	}

	log.Infof("Configuration validation successful: %s", *configPath)
	os.Exit(ExitSuccess)
}

func runCollectCommand(args []string) int {
	collectFlags := flag.NewFlagSet("playmetrics", flag.ExitOnError)
	configPath := collectFlags.String("config", "", "Path to an optional configuration YAML file")
	inputPath := collectFlags.String("input", "-", "NDJSON event stream to consume ('-' for stdin)")
	outputPath := collectFlags.String("output", "", "Override the metrics textfile destination")
	logLevel := collectFlags.String("log-level", "", "Log level (debug, info, warn, error)")
	logFormat := collectFlags.String("log-format", "", "Log format (text, json)")
	versionFlag := collectFlags.Bool("version", false, "Print version information and exit")

	collectFlags.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags...]\n\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Aggregates playbook lifecycle events into a Prometheus textfile snapshot.")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		collectFlags.PrintDefaults()
	}

	if err := collectFlags.Parse(args); err != nil {
		return ExitUsageError
	}

	if *versionFlag {
		printVersion()
		return ExitSuccess
	}
	if *logFormat != "" && *logFormat != "text" && *logFormat != "json" {
		fmt.Fprintln(os.Stderr, "Error: -log-format must be 'text' or 'json'")
		return ExitUsageError
	}

	// Configuration precedence: defaults, then file, then .env/environment,
	// then explicit flags.
	_ = godotenv.Load()
	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load configuration '%s': %v\n", *configPath, err)
			return ExitFailure
		}
		cfg = loaded
	}
	cfg.ApplyEnv(os.LookupEnv)
	if *outputPath != "" {
		cfg.OutputFile = *outputPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}

	var logWriter io.Writer = os.Stderr
	log := logger.NewLogger(cfg.LogLevel, cfg.LogFormat, logWriter)
	log = log.With("playmetrics_version", version)

	log.Infof("Playmetrics collector v%s starting...", version)
	log.Debugf("Output file: %s", cfg.OutputFile)
	log.Debugf("Fail on change: %t, fail on ignore: %t, include setup tasks: %t",
		cfg.FailOnChange, cfg.FailOnIgnore, cfg.IncludeSetupTasks)

	// The snapshot write itself is atomic, but the destination directory
	// must exist before the textfile rename can land there.
	if dir := filepath.Dir(cfg.OutputFile); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Errorf("Failed to create output directory '%s': %v", dir, err)
			return ExitFailure
		}
	}

	input := os.Stdin
	if *inputPath != "" && *inputPath != "-" {
		f, err := os.Open(*inputPath)
		if err != nil {
			log.Errorf("Failed to open event stream '%s': %v", *inputPath, err)
			return ExitFailure
		}
		defer f.Close()
		input = f
	}

	tracerProvider, err := tracing.NewProviderFromEnv(context.Background())
	if err != nil {
		log.Warnf("Failed to initialize tracing from environment: %v. Using NoOp tracer.", err)
		tracerProvider, _ = tracing.NewNoOpProvider()
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Warnf("Tracing shutdown failed: %v", err)
		}
	}()

	metricsProvider := metrics.NewPrometheusRegistryProvider()
	writer := textfile.NewWriter(cfg.OutputFile)
	coll := collector.New(cfg, metricsProvider, writer, log,
		collector.WithTracerProvider(tracerProvider),
		collector.WithRuntimeInfo(collector.RuntimeInfo{
			Version:            version,
			EnvironmentVersion: runtime.Version(),
		}),
	)

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := events.NewChannelEventBus(DefaultEventBusSize, log)
	listener := events.NewCollectorListener(bus, coll, log)
	decoder := stream.NewDecoder(input, log)
	log.Infof("Consuming event stream (run id %s)...", decoder.RunID())

	group, groupCtx := errgroup.WithContext(runCtx)
	// The decoder only observes the context between lines; closing the input
	// interrupts a read blocked on an idle stream so cancellation (a signal,
	// or the listener aborting) takes effect without waiting for more input.
	go func() {
		<-groupCtx.Done()
		input.Close()
	}()
	group.Go(func() error {
		defer bus.Close()
		return decoder.Decode(groupCtx, bus)
	})
	group.Go(func() error {
		return listener.Start(groupCtx)
	})

	if err := group.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warnf("Interrupted before the run completed; no snapshot was written.")
			return ExitSigInt
		}
		log.Errorf("Metrics collection failed: %v", err)
		return ExitFailure
	}

	if coll.State() != collector.StatePlaybookFinished {
		log.Warnf("Event stream ended before playbook stats; no snapshot was written.")
		return ExitFailure
	}
	log.Infof("Metrics snapshot written to %s", cfg.OutputFile)
	return ExitSuccess
}
