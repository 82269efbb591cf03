// Command droneauth-station runs the ground station over UDP.
//
// The station registers drone commitments on AUTH_REQUEST, answers each with
// a fresh challenge and verifies the returned proof. Authorized identities
// come from the allow-list, which can be edited from the console.
//
// Usage:
//
//	droneauth-station [flags]
//
// Flags:
//
//	-config string         Configuration file path (YAML)
//	-port int              Listen port (default 5000)
//	-allow string          Comma separated allow-list
//	-hash string           Commitment hash: sha256, sha512, sha3-256
//	-freshness duration    Proof freshness window (default 5s)
//	-advertise             Advertise the station over mDNS
//	-interactive           Start the operator console
//	-report string         Write an HTML statistics report on exit
//	-protocol-log string   File path for protocol event logging (CBOR format)
//	-log-level string      Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Start a station for the default fleet
//	droneauth-station -advertise
//
//	# Console, custom fleet and a report on exit
//	droneauth-station -interactive -allow DRONE_001,DRONE_007 -report station.html
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/droneauth/droneauth-go/pkg/config"
	"github.com/droneauth/droneauth-go/pkg/discovery"
	plog "github.com/droneauth/droneauth-go/pkg/log"
	"github.com/droneauth/droneauth-go/pkg/report"
	"github.com/droneauth/droneauth-go/pkg/stats"
	"github.com/droneauth/droneauth-go/pkg/timer"
	"github.com/droneauth/droneauth-go/pkg/transport"
	"github.com/droneauth/droneauth-go/pkg/verifier"
	"github.com/droneauth/droneauth-go/pkg/version"
)

var (
	configFile  string
	allowList   string
	interactive bool
	flags       = config.DefaultStation()
)

func init() {
	flag.StringVar(&configFile, "config", "", "Configuration file path (YAML)")
	flag.IntVar(&flags.LocalPort, "port", flags.LocalPort, "Listen port")
	flag.StringVar(&allowList, "allow", "", "Comma separated allow-list")
	flag.StringVar(&flags.Hash, "hash", flags.Hash, "Commitment hash: sha256, sha512, sha3-256")
	flag.DurationVar(&flags.FreshnessWindow, "freshness", flags.FreshnessWindow, "Proof freshness window")
	flag.BoolVar(&flags.Advertise, "advertise", false, "Advertise the station over mDNS")
	flag.BoolVar(&interactive, "interactive", false, "Start the operator console")
	flag.StringVar(&flags.Report, "report", "", "Write an HTML statistics report on exit")
	flag.StringVar(&flags.ProtocolLog, "protocol-log", "", "File path for protocol event logging (CBOR format)")
	flag.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	cfg, err := config.LoadStation(configFile)
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

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cfg *config.Station) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.LocalPort = flags.LocalPort
		case "allow":
			cfg.AllowList = config.SplitList(allowList)
		case "hash":
			cfg.Hash = flags.Hash
		case "freshness":
			cfg.FreshnessWindow = flags.FreshnessWindow
		case "advertise":
			cfg.Advertise = flags.Advertise
		case "report":
			cfg.Report = flags.Report
		case "protocol-log":
			cfg.ProtocolLog = flags.ProtocolLog
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		}
	})
}

func setupLogging(level string, w io.Writer) *slog.Logger {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}))
}

func run(cfg config.Station) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var console *Console
	logOut := io.Writer(os.Stderr)
	if interactive {
		var err error
		console, err = NewConsole()
		if err != nil {
			return err
		}
		logOut = console.Stderr()
	}
	logger := setupLogging(cfg.LogLevel, logOut)
	logger.Info("droneauth ground station",
		slog.String("protocol", version.Current),
		slog.Int("port", cfg.LocalPort),
		slog.String("hash", cfg.Hash),
		slog.Any("allow", cfg.AllowList))

	var protocolLogger plog.Logger
	if cfg.ProtocolLog != "" {
		fl, err := plog.NewFileLogger(cfg.ProtocolLog)
		if err != nil {
			return fmt.Errorf("failed to create protocol logger: %w", err)
		}
		defer fl.Close()
		protocolLogger = fl
		logger.Info("protocol logging", slog.String("path", cfg.ProtocolLog))
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		protocolLogger = plog.NewMultiLogger(protocolLogger, plog.NewSlogAdapter(logger))
	}

	engine, err := cfg.Engine()
	if err != nil {
		return err
	}

	sink := stats.NewMemorySink()
	started := time.Now()
	loop := timer.NewLoop()
	sessionID := uuid.NewString()
	policy := verifier.NewAllowList(cfg.AllowList...)
	tally := make(Tally)

	var station *verifier.Station
	conn, err := transport.ListenUDP(ctx, transport.UDPConfig{
		Port:     cfg.LocalPort,
		Executor: loop,
		Handler: func(dg transport.Datagram) {
			station.HandleDatagram(dg)
		},
		Recorder: plog.NewRecorder(protocolLogger, sessionID, plog.RoleStation, loop.Now),
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	station, err = verifier.NewStation(verifier.Config{
		Conn:           conn,
		Scheduler:      loop,
		Engine:         engine,
		Policy:         policy,
		SessionID:      sessionID,
		Stats:          stats.MultiSink{sink, stats.SlogSink{Logger: logger}},
		ProtocolLogger: protocolLogger,
		Logger:         logger,
		OnResult: func(identity string, r verifier.Result) {
			tally[r]++
			logger.Debug("result", slog.String("identity", identity), slog.String("result", r.String()))
		},
	})
	if err != nil {
		return err
	}
	logger.Info("station listening", slog.String("addr", conn.LocalAddr().String()))

	if cfg.Advertise {
		adCfg := discovery.DefaultAdvertiserConfig()
		adCfg.Logger = logger
		advertiser := discovery.NewMDNSAdvertiser(adCfg)
		info := &discovery.StationInfo{
			Port:    uint16(conn.LocalAddr().Port),
			Version: version.Current,
			Source:  verifier.DefaultSource,
			Hash:    cfg.Hash,
		}
		if err := advertiser.Advertise(ctx, info); err != nil {
			logger.Warn("mdns advertise failed", slog.Any("error", err))
		} else {
			defer advertiser.Stop()
		}
	}

	if console != nil {
		console.Attach(loop, station, policy, tally)
		go console.Run(ctx, cancel)
	}

	_ = loop.Run(ctx)

	// The loop no longer runs reactions, so the station is ours.
	station.Stop()
	c := station.Counters()
	logger.Info("station stopped",
		slog.Uint64("requests", c.Requests),
		slog.Uint64("successes", c.Successes),
		slog.Uint64("failures", c.Failures))

	if cfg.Report != "" {
		opts := report.Options{Title: "Ground station " + conn.LocalAddr().String(), Start: started}
		if err := report.WriteFile(cfg.Report, sink, opts); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		logger.Info("report written", slog.String("path", cfg.Report))
	}
	return nil
}
