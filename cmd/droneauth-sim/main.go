// Command droneauth-sim runs a fleet of drones against one ground station on
// a simulated network and virtual clock.
//
// Without a configuration file the reference fleet is used: DRONE_001 to
// DRONE_005 are authorized and DRONE_999 is an intruder.
//
// Usage:
//
//	droneauth-sim [flags]
//
// Flags:
//
//	-config string        Simulation file path (YAML)
//	-duration duration    Simulated time to run
//	-seed uint            Network impairment seed
//	-latency duration     One-way network latency
//	-jitter duration      Maximum extra latency
//	-loss float           Datagram loss rate (0..1)
//	-duplicate float      Datagram duplication rate (0..1)
//	-run-id string        Run identifier (default random)
//	-report string        Write an HTML statistics report
//	-protocol-log string  File path for protocol event logging (CBOR format)
//	-log-level string     Log level: debug, info, warn, error (default "warn")
//
// Examples:
//
//	# Reference run
//	droneauth-sim
//
//	# Lossy network with a report and a protocol log
//	droneauth-sim -loss 0.3 -duration 10m -report sim.html -protocol-log sim.alog
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/droneauth/droneauth-go/pkg/config"
	plog "github.com/droneauth/droneauth-go/pkg/log"
	"github.com/droneauth/droneauth-go/pkg/report"
	"github.com/droneauth/droneauth-go/pkg/sim"
)

var (
	configFile  string
	runID       string
	reportFile  string
	protocolLog string
	logLevel    string

	flags = config.DefaultSimulation()
)

func init() {
	flag.StringVar(&configFile, "config", "", "Simulation file path (YAML)")
	flag.DurationVar(&flags.Duration, "duration", flags.Duration, "Simulated time to run")
	flag.Uint64Var(&flags.Seed, "seed", flags.Seed, "Network impairment seed")
	flag.DurationVar(&flags.Network.Latency, "latency", flags.Network.Latency, "One-way network latency")
	flag.DurationVar(&flags.Network.Jitter, "jitter", flags.Network.Jitter, "Maximum extra latency")
	flag.Float64Var(&flags.Network.LossRate, "loss", flags.Network.LossRate, "Datagram loss rate (0..1)")
	flag.Float64Var(&flags.Network.DuplicateRate, "duplicate", flags.Network.DuplicateRate, "Datagram duplication rate (0..1)")
	flag.StringVar(&runID, "run-id", "", "Run identifier (default random)")
	flag.StringVar(&reportFile, "report", "", "Write an HTML statistics report")
	flag.StringVar(&protocolLog, "protocol-log", "", "File path for protocol event logging (CBOR format)")
	flag.StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	cfg, err := config.LoadSimulation(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	applyFlags(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		flag.Usage()
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Simulation) error {
	lvl, err := config.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))

	opts := sim.Options{
		Config: cfg,
		RunID:  runID,
		Logger: logger,
	}

	if protocolLog != "" {
		fl, err := plog.NewFileLogger(protocolLog)
		if err != nil {
			return fmt.Errorf("failed to create protocol logger: %w", err)
		}
		defer fl.Close()
		opts.ProtocolLogger = fl
	}
	if lvl == slog.LevelDebug {
		opts.ProtocolLogger = plog.NewMultiLogger(opts.ProtocolLogger, plog.NewSlogAdapter(logger))
	}

	res, err := sim.Run(opts)
	if err != nil {
		return err
	}
	if err := sim.WriteSummary(os.Stdout, res); err != nil {
		return err
	}

	if reportFile != "" {
		ro := report.Options{Title: "Simulation " + res.RunID, Start: sim.DefaultStart}
		if err := report.WriteFile(reportFile, res.Sink, ro); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Printf("Report written to %s\n", reportFile)
	}
	return nil
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cfg *config.Simulation) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "duration":
			cfg.Duration = flags.Duration
		case "seed":
			cfg.Seed = flags.Seed
		case "latency":
			cfg.Network.Latency = flags.Network.Latency
		case "jitter":
			cfg.Network.Jitter = flags.Network.Jitter
		case "loss":
			cfg.Network.LossRate = flags.Network.LossRate
		case "duplicate":
			cfg.Network.DuplicateRate = flags.Network.DuplicateRate
		}
	})
}
