// Package config loads drone, station and simulation settings.
//
// Values are layered: built-in defaults, then a YAML file, then DRONEAUTH_*
// environment variables. Commands apply their flags last and call Validate.
package config

import (
	"crypto"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bytemare/ksf"
	"gopkg.in/yaml.v3"

	"github.com/droneauth/droneauth-go/pkg/commitment"
	"github.com/droneauth/droneauth-go/pkg/prover"
	"github.com/droneauth/droneauth-go/pkg/transport"
	"github.com/droneauth/droneauth-go/pkg/verifier"
)

// Environment variables.
const (
	EnvDroneID           = "DRONEAUTH_DRONE_ID"
	EnvPassword          = "DRONEAUTH_PASSWORD"
	EnvLocalPort         = "DRONEAUTH_LOCAL_PORT"
	EnvDestAddress       = "DRONEAUTH_DEST_ADDRESS"
	EnvDestPort          = "DRONEAUTH_DEST_PORT"
	EnvAuthTimeout       = "DRONEAUTH_AUTH_TIMEOUT"
	EnvRetryInterval     = "DRONEAUTH_RETRY_INTERVAL"
	EnvStartTime         = "DRONEAUTH_START_TIME"
	EnvHash              = "DRONEAUTH_HASH"
	EnvPasswordHardening = "DRONEAUTH_PASSWORD_HARDENING"
	EnvProtocolLog       = "DRONEAUTH_PROTOCOL_LOG"
	EnvLogLevel          = "DRONEAUTH_LOG_LEVEL"
	EnvStationPort       = "DRONEAUTH_STATION_PORT"
	EnvAllowList         = "DRONEAUTH_ALLOW_LIST"
	EnvFreshnessWindow   = "DRONEAUTH_FRESHNESS_WINDOW"
	EnvAdvertise         = "DRONEAUTH_ADVERTISE"
	EnvReport            = "DRONEAUTH_REPORT"

	MinPortNumber      = 1
	MaxPortNumber      = 65535
	DefaultStationPort = 5000
)

// ErrInvalid is returned for any invalid setting.
var ErrInvalid = errors.New("invalid configuration")

// Drone configures one drone.
type Drone struct {
	LocalPort         int           `yaml:"localPort"`
	DestAddress       string        `yaml:"destAddress"`
	DestPort          int           `yaml:"destPort"`
	DroneID           string        `yaml:"droneId"`
	Password          string        `yaml:"password"`
	AuthTimeout       time.Duration `yaml:"authTimeout"`
	RetryInterval     time.Duration `yaml:"retryInterval"`
	StartTime         time.Duration `yaml:"startTime"`
	ProofDelay        time.Duration `yaml:"proofDelay"`
	Hash              string        `yaml:"hash"`
	PasswordHardening string        `yaml:"passwordHardening"`
	ProtocolLog       string        `yaml:"protocolLog"`
	LogLevel          string        `yaml:"logLevel"`
}

// Station configures the ground station.
type Station struct {
	LocalPort       int           `yaml:"localPort"`
	AllowList       []string      `yaml:"allowList"`
	Hash            string        `yaml:"hash"`
	FreshnessWindow time.Duration `yaml:"freshnessWindow"`
	Advertise       bool          `yaml:"advertise"`
	ProtocolLog     string        `yaml:"protocolLog"`
	LogLevel        string        `yaml:"logLevel"`
	Report          string        `yaml:"report"`
}

// Network configures simulated network impairments.
type Network struct {
	Latency       time.Duration `yaml:"latency"`
	Jitter        time.Duration `yaml:"jitter"`
	LossRate      float64       `yaml:"lossRate"`
	DuplicateRate float64       `yaml:"duplicateRate"`
}

// Simulation configures a simulated run.
type Simulation struct {
	Station  Station       `yaml:"station"`
	Drones   []Drone       `yaml:"drones"`
	Network  Network       `yaml:"network"`
	Duration time.Duration `yaml:"duration"`
	Seed     uint64        `yaml:"seed"`
}

// DefaultDrone returns the drone defaults.
func DefaultDrone() Drone {
	return Drone{
		DestPort:          DefaultStationPort,
		AuthTimeout:       prover.DefaultAuthTimeout,
		RetryInterval:     prover.DefaultRetryInterval,
		StartTime:         prover.DefaultStartTime,
		ProofDelay:        prover.DefaultProofDelay,
		Hash:              HashSHA256,
		PasswordHardening: HardeningNone,
		LogLevel:          "info",
	}
}

// DefaultStation returns the station defaults.
func DefaultStation() Station {
	return Station{
		LocalPort:       DefaultStationPort,
		AllowList:       append([]string(nil), verifier.DefaultIdentities...),
		Hash:            HashSHA256,
		FreshnessWindow: commitment.DefaultFreshnessWindow,
		LogLevel:        "info",
	}
}

// DefaultSimulation reproduces the reference network: five authorized
// drones and one intruder.
func DefaultSimulation() Simulation {
	sim := Simulation{
		Station:  DefaultStation(),
		Network:  Network{Latency: 2 * time.Millisecond},
		Duration: 60 * time.Second,
		Seed:     1,
	}
	ids := append(append([]string(nil), verifier.DefaultIdentities...), "DRONE_999")
	for i, id := range ids {
		d := DefaultDrone()
		d.DroneID = id
		d.Password = fmt.Sprintf("pw%d", i+1)
		d.StartTime = prover.DefaultStartTime + time.Duration(i)*100*time.Millisecond
		sim.Drones = append(sim.Drones, d)
	}
	return sim
}

// LoadDrone reads defaults, then path (if set), then the environment.
func LoadDrone(path string) (Drone, error) {
	d := DefaultDrone()
	if err := readYAML(path, &d); err != nil {
		return Drone{}, err
	}
	d.ApplyEnv()
	return d, nil
}

// LoadStation reads defaults, then path (if set), then the environment.
func LoadStation(path string) (Station, error) {
	s := DefaultStation()
	if err := readYAML(path, &s); err != nil {
		return Station{}, err
	}
	s.ApplyEnv()
	return s, nil
}

// LoadSimulation reads defaults, then path (if set). A file that lists
// drones replaces the default fleet; unset drone fields take drone defaults.
func LoadSimulation(path string) (Simulation, error) {
	sim := DefaultSimulation()
	if path == "" {
		return sim, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Simulation{}, fmt.Errorf("reading config %q: %w", path, err)
	}

	var raw struct {
		Drones []yaml.Node `yaml:"drones"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Simulation{}, fmt.Errorf("parsing config %q: %w", path, err)
	}
	fleet := sim.Drones
	if err := yaml.Unmarshal(data, &sim); err != nil {
		return Simulation{}, fmt.Errorf("parsing config %q: %w", path, err)
	}
	if raw.Drones != nil {
		sim.Drones = make([]Drone, 0, len(raw.Drones))
		for i := range raw.Drones {
			d := DefaultDrone()
			if err := raw.Drones[i].Decode(&d); err != nil {
				return Simulation{}, fmt.Errorf("parsing drone %d in %q: %w", i, path, err)
			}
			sim.Drones = append(sim.Drones, d)
		}
	} else {
		sim.Drones = fleet
	}
	return sim, nil
}

func readYAML(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing config %q: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from DRONEAUTH_* variables.
func (d *Drone) ApplyEnv() {
	d.DroneID = envOrDefault(EnvDroneID, d.DroneID)
	d.Password = envOrDefault(EnvPassword, d.Password)
	d.LocalPort = intEnvOrDefault(EnvLocalPort, d.LocalPort)
	d.DestAddress = envOrDefault(EnvDestAddress, d.DestAddress)
	d.DestPort = intEnvOrDefault(EnvDestPort, d.DestPort)
	d.AuthTimeout = durationEnvOrDefault(EnvAuthTimeout, d.AuthTimeout)
	d.RetryInterval = durationEnvOrDefault(EnvRetryInterval, d.RetryInterval)
	d.StartTime = durationEnvOrDefault(EnvStartTime, d.StartTime)
	d.Hash = envOrDefault(EnvHash, d.Hash)
	d.PasswordHardening = envOrDefault(EnvPasswordHardening, d.PasswordHardening)
	d.ProtocolLog = envOrDefault(EnvProtocolLog, d.ProtocolLog)
	d.LogLevel = envOrDefault(EnvLogLevel, d.LogLevel)
}

// ApplyEnv overrides fields from DRONEAUTH_* variables.
func (s *Station) ApplyEnv() {
	s.LocalPort = intEnvOrDefault(EnvStationPort, s.LocalPort)
	if v := strings.TrimSpace(os.Getenv(EnvAllowList)); v != "" {
		s.AllowList = SplitList(v)
	}
	s.Hash = envOrDefault(EnvHash, s.Hash)
	s.FreshnessWindow = durationEnvOrDefault(EnvFreshnessWindow, s.FreshnessWindow)
	s.Advertise = boolEnvOrDefault(EnvAdvertise, s.Advertise)
	s.ProtocolLog = envOrDefault(EnvProtocolLog, s.ProtocolLog)
	s.LogLevel = envOrDefault(EnvLogLevel, s.LogLevel)
	s.Report = envOrDefault(EnvReport, s.Report)
}

// Validate checks that the drone configuration is coherent.
func (d Drone) Validate() error {
	if strings.TrimSpace(d.DroneID) == "" {
		return fmt.Errorf("%w: droneId must not be empty", ErrInvalid)
	}
	if d.Password == "" {
		return fmt.Errorf("%w: password must not be empty", ErrInvalid)
	}
	if d.LocalPort < 0 || d.LocalPort > MaxPortNumber {
		return fmt.Errorf("%w: localPort must be in range 0..%d", ErrInvalid, MaxPortNumber)
	}
	if d.DestPort < MinPortNumber || d.DestPort > MaxPortNumber {
		return fmt.Errorf("%w: destPort must be in range %d..%d", ErrInvalid, MinPortNumber, MaxPortNumber)
	}
	if d.AuthTimeout <= 0 {
		return fmt.Errorf("%w: authTimeout must be > 0", ErrInvalid)
	}
	if d.RetryInterval <= 0 {
		return fmt.Errorf("%w: retryInterval must be > 0", ErrInvalid)
	}
	if d.StartTime < 0 || d.ProofDelay < 0 {
		return fmt.Errorf("%w: startTime and proofDelay must be >= 0", ErrInvalid)
	}
	if _, err := ParseHash(d.Hash); err != nil {
		return err
	}
	if _, err := ParseHardening(d.PasswordHardening); err != nil {
		return err
	}
	if _, err := ParseLevel(d.LogLevel); err != nil {
		return err
	}
	return nil
}

// Validate checks that the station configuration is coherent.
func (s Station) Validate() error {
	if s.LocalPort < 0 || s.LocalPort > MaxPortNumber {
		return fmt.Errorf("%w: localPort must be in range 0..%d", ErrInvalid, MaxPortNumber)
	}
	if len(s.AllowList) == 0 {
		return fmt.Errorf("%w: allowList must not be empty", ErrInvalid)
	}
	for _, id := range s.AllowList {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: allowList contains an empty identity", ErrInvalid)
		}
	}
	if s.FreshnessWindow <= 0 {
		return fmt.Errorf("%w: freshnessWindow must be > 0", ErrInvalid)
	}
	if _, err := ParseHash(s.Hash); err != nil {
		return err
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		return err
	}
	return nil
}

// Validate checks the simulation configuration.
func (s Simulation) Validate() error {
	if err := s.Station.Validate(); err != nil {
		return fmt.Errorf("station: %w", err)
	}
	if len(s.Drones) == 0 {
		return fmt.Errorf("%w: at least one drone is required", ErrInvalid)
	}
	seen := make(map[string]bool, len(s.Drones))
	for i, d := range s.Drones {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("drone %d: %w", i, err)
		}
		if seen[d.DroneID] {
			return fmt.Errorf("%w: duplicate drone %q", ErrInvalid, d.DroneID)
		}
		seen[d.DroneID] = true
	}
	if err := s.NetworkConfig().Validate(); err != nil {
		return fmt.Errorf("%w: network: %v", ErrInvalid, err)
	}
	if s.Duration <= 0 {
		return fmt.Errorf("%w: duration must be > 0", ErrInvalid)
	}
	return nil
}

// NetworkConfig converts the network settings.
func (s Simulation) NetworkConfig() transport.NetworkConfig {
	return transport.NetworkConfig{
		Latency:       s.Network.Latency,
		Jitter:        s.Network.Jitter,
		LossRate:      s.Network.LossRate,
		DuplicateRate: s.Network.DuplicateRate,
		Seed:          s.Seed,
	}
}

// Engine builds the drone's commitment engine.
func (d Drone) Engine() (*commitment.Engine, error) {
	h, err := ParseHash(d.Hash)
	if err != nil {
		return nil, err
	}
	k, err := ParseHardening(d.PasswordHardening)
	if err != nil {
		return nil, err
	}
	return commitment.NewEngine(commitment.WithHash(h), commitment.WithPasswordHardening(k))
}

// Engine builds the station's commitment engine.
func (s Station) Engine() (*commitment.Engine, error) {
	h, err := ParseHash(s.Hash)
	if err != nil {
		return nil, err
	}
	return commitment.NewEngine(commitment.WithHash(h), commitment.WithFreshnessWindow(s.FreshnessWindow))
}

// Hash names.
const (
	HashSHA256  = "sha256"
	HashSHA512  = "sha512"
	HashSHA3256 = "sha3-256"
)

// ParseHash maps a hash name to its identifier.
func ParseHash(name string) (crypto.Hash, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", HashSHA256:
		return crypto.SHA256, nil
	case HashSHA512:
		return crypto.SHA512, nil
	case HashSHA3256:
		return crypto.SHA3_256, nil
	default:
		return 0, fmt.Errorf("%w: hash must be %q, %q or %q", ErrInvalid, HashSHA256, HashSHA512, HashSHA3256)
	}
}

// Password hardening names.
const (
	HardeningNone     = "none"
	HardeningArgon2id = "argon2id"
	HardeningScrypt   = "scrypt"
)

// ParseHardening maps a hardening name to its identifier. None is zero.
func ParseHardening(name string) (ksf.Identifier, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", HardeningNone:
		return 0, nil
	case HardeningArgon2id:
		return ksf.Argon2id, nil
	case HardeningScrypt:
		return ksf.Scrypt, nil
	default:
		return 0, fmt.Errorf("%w: passwordHardening must be %q, %q or %q", ErrInvalid, HardeningNone, HardeningArgon2id, HardeningScrypt)
	}
}

// ParseLevel maps a log level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: logLevel must be debug, info, warn or error", ErrInvalid)
	}
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnvOrDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func boolEnvOrDefault(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func durationEnvOrDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
