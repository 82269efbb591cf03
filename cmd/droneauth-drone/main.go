// Command droneauth-drone runs one drone against a ground station over UDP.
//
// The drone commits to its identity at start-up, sends AUTH_REQUEST to the
// station and answers the returned challenge with a proof. Timeouts are
// retried until the station accepts or rejects the drone.
//
// Usage:
//
//	droneauth-drone [flags]
//
// Flags:
//
//	-config string          Configuration file path (YAML)
//	-id string              Drone identity
//	-password string        Drone password
//	-port int               Local UDP port (0 picks one)
//	-dest string            Station host (empty browses mDNS)
//	-dest-port int          Station UDP port (default 5000)
//	-auth-timeout duration  Handshake timeout (default 5s)
//	-retry duration         Delay before re-sending after a timeout (default 2s)
//	-start duration         Delay before the first request (default 100ms)
//	-hash string            Commitment hash: sha256, sha512, sha3-256
//	-hardening string       Password hardening: none, argon2id, scrypt
//	-protocol-log string    File path for protocol event logging (CBOR format)
//	-log-level string       Log level: debug, info, warn, error (default "info")
//
// Every flag can also be set through the matching DRONEAUTH_* environment
// variable; flags win.
//
// Examples:
//
//	# Authenticate against a known station
//	droneauth-drone -id DRONE_001 -password pw1 -dest 127.0.0.1
//
//	# Find the station over mDNS and log the protocol
//	droneauth-drone -id DRONE_002 -password pw2 -protocol-log drone.alog
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/droneauth/droneauth-go/pkg/commitment"
	"github.com/droneauth/droneauth-go/pkg/config"
	"github.com/droneauth/droneauth-go/pkg/discovery"
	"github.com/droneauth/droneauth-go/pkg/display"
	plog "github.com/droneauth/droneauth-go/pkg/log"
	"github.com/droneauth/droneauth-go/pkg/prover"
	"github.com/droneauth/droneauth-go/pkg/stats"
	"github.com/droneauth/droneauth-go/pkg/timer"
	"github.com/droneauth/droneauth-go/pkg/transport"
	"github.com/droneauth/droneauth-go/pkg/version"
)

var (
	configFile string
	flags      = config.DefaultDrone()
)

func init() {
	flag.StringVar(&configFile, "config", "", "Configuration file path (YAML)")
	flag.StringVar(&flags.DroneID, "id", "", "Drone identity")
	flag.StringVar(&flags.Password, "password", "", "Drone password")
	flag.IntVar(&flags.LocalPort, "port", 0, "Local UDP port (0 picks one)")
	flag.StringVar(&flags.DestAddress, "dest", "", "Station host (empty browses mDNS)")
	flag.IntVar(&flags.DestPort, "dest-port", flags.DestPort, "Station UDP port")
	flag.DurationVar(&flags.AuthTimeout, "auth-timeout", flags.AuthTimeout, "Handshake timeout")
	flag.DurationVar(&flags.RetryInterval, "retry", flags.RetryInterval, "Delay before re-sending after a timeout")
	flag.DurationVar(&flags.StartTime, "start", flags.StartTime, "Delay before the first request")
	flag.StringVar(&flags.Hash, "hash", flags.Hash, "Commitment hash: sha256, sha512, sha3-256")
	flag.StringVar(&flags.PasswordHardening, "hardening", flags.PasswordHardening, "Password hardening: none, argon2id, scrypt")
	flag.StringVar(&flags.ProtocolLog, "protocol-log", "", "File path for protocol event logging (CBOR format)")
	flag.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	cfg, err := config.LoadDrone(configFile)
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

	logger := setupLogging(cfg.LogLevel)
	logger.Info("droneauth drone",
		slog.String("id", cfg.DroneID),
		slog.String("protocol", version.Current),
		slog.String("hash", cfg.Hash))

	if err := run(cfg, logger); err != nil {
		logger.Error("drone failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cfg *config.Drone) {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "id":
			cfg.DroneID = flags.DroneID
		case "password":
			cfg.Password = flags.Password
		case "port":
			cfg.LocalPort = flags.LocalPort
		case "dest":
			cfg.DestAddress = flags.DestAddress
		case "dest-port":
			cfg.DestPort = flags.DestPort
		case "auth-timeout":
			cfg.AuthTimeout = flags.AuthTimeout
		case "retry":
			cfg.RetryInterval = flags.RetryInterval
		case "start":
			cfg.StartTime = flags.StartTime
		case "hash":
			cfg.Hash = flags.Hash
		case "hardening":
			cfg.PasswordHardening = flags.PasswordHardening
		case "protocol-log":
			cfg.ProtocolLog = flags.ProtocolLog
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		}
	})
}

func setupLogging(level string) *slog.Logger {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	})
	return slog.New(handler)
}

func run(cfg config.Drone, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	dest, err := destination(ctx, cfg, logger)
	if err != nil {
		return err
	}

	engine, err := cfg.Engine()
	if err != nil {
		return err
	}
	p, err := commitment.NewProver(engine, cfg.DroneID, cfg.Password)
	if err != nil {
		return fmt.Errorf("failed to initialize prover: %w", err)
	}
	defer p.Destroy()

	loop := timer.NewLoop()
	sessionID := uuid.NewString()

	var session *prover.Session
	conn, err := transport.ListenUDP(ctx, transport.UDPConfig{
		Port:     cfg.LocalPort,
		Executor: loop,
		Handler: func(dg transport.Datagram) {
			session.HandleDatagram(dg)
		},
		Recorder: plog.NewRecorder(protocolLogger, sessionID, plog.RoleDrone, loop.Now),
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer conn.Close()

	session, err = prover.New(prover.Config{
		Prover:         p,
		Conn:           conn,
		Destination:    dest,
		Scheduler:      loop,
		AuthTimeout:    cfg.AuthTimeout,
		RetryInterval:  cfg.RetryInterval,
		StartTime:      cfg.StartTime,
		ProofDelay:     cfg.ProofDelay,
		SessionID:      sessionID,
		Stats:          stats.SlogSink{Logger: logger},
		Display:        display.SlogObserver{Logger: logger},
		ProtocolLogger: protocolLogger,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	logger.Info("drone ready",
		slog.String("local", conn.LocalAddr().String()),
		slog.String("station", dest.String()))

	loop.Post(func() {
		if err := session.ScheduleStart(); err != nil {
			logger.Error("start failed", slog.Any("error", err))
		}
	})

	_ = loop.Run(ctx)

	// The loop no longer runs reactions, so the session is ours.
	session.Stop()
	c := session.Counters()
	logger.Info("drone stopped",
		slog.String("state", session.State().String()),
		slog.Uint64("requests", c.Requests),
		slog.Uint64("successes", c.Successes),
		slog.Uint64("failures", c.Failures))
	return nil
}

// destination resolves the station address, browsing mDNS when no address
// is configured.
func destination(ctx context.Context, cfg config.Drone, logger *slog.Logger) (transport.Addr, error) {
	if cfg.DestAddress != "" {
		return transport.Resolve(ctx, transport.Addr{Host: cfg.DestAddress, Port: cfg.DestPort})
	}

	logger.Info("browsing for station", slog.String("service", discovery.ServiceType))
	browserCfg := discovery.DefaultBrowserConfig()
	browserCfg.Hash = cfg.Hash
	browserCfg.Logger = logger
	browser := discovery.NewMDNSBrowser(browserCfg)
	defer browser.Stop()

	findCtx, cancel := context.WithTimeout(ctx, browserCfg.BrowseTimeout+time.Second)
	defer cancel()

	svc, err := browser.FindStation(findCtx)
	if err != nil {
		return transport.Addr{}, fmt.Errorf("station discovery: %w", err)
	}
	addr, err := svc.Addr()
	if err != nil {
		return transport.Addr{}, err
	}
	logger.Info("found station",
		slog.String("instance", svc.InstanceName),
		slog.String("addr", addr.String()))
	return addr, nil
}
