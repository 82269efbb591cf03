package config

import (
	"crypto"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytemare/ksf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droneauth/droneauth-go/pkg/commitment"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func validDrone() Drone {
	d := DefaultDrone()
	d.DroneID = "DRONE_001"
	d.Password = "secret"
	return d
}

func TestDefaults(t *testing.T) {
	d := DefaultDrone()
	assert.Equal(t, DefaultStationPort, d.DestPort)
	assert.Equal(t, 5*time.Second, d.AuthTimeout)
	assert.Equal(t, 2*time.Second, d.RetryInterval)
	assert.Equal(t, 100*time.Millisecond, d.StartTime)
	assert.Equal(t, HashSHA256, d.Hash)

	s := DefaultStation()
	assert.Equal(t, 5000, s.LocalPort)
	assert.Equal(t, []string{"DRONE_001", "DRONE_002", "DRONE_003", "DRONE_004", "DRONE_005"}, s.AllowList)
	assert.Equal(t, commitment.DefaultFreshnessWindow, s.FreshnessWindow)
	require.NoError(t, s.Validate())

	sim := DefaultSimulation()
	require.Len(t, sim.Drones, 6)
	assert.Equal(t, "DRONE_999", sim.Drones[5].DroneID)
	require.NoError(t, sim.Validate())
}

func TestLoadDroneFileAndEnv(t *testing.T) {
	path := writeFile(t, `
droneId: DRONE_003
password: hunter2
destAddress: 10.0.0.1
authTimeout: 3s
hash: sha512
`)
	t.Setenv(EnvDestPort, "6000")
	t.Setenv(EnvRetryInterval, "750ms")
	t.Setenv(EnvLocalPort, "not-a-number")

	d, err := LoadDrone(path)
	require.NoError(t, err)
	assert.Equal(t, "DRONE_003", d.DroneID)
	assert.Equal(t, "hunter2", d.Password)
	assert.Equal(t, "10.0.0.1", d.DestAddress)
	assert.Equal(t, 3*time.Second, d.AuthTimeout)
	assert.Equal(t, 6000, d.DestPort)
	assert.Equal(t, 750*time.Millisecond, d.RetryInterval)
	assert.Equal(t, 0, d.LocalPort, "unparsable env falls back")
	assert.Equal(t, 100*time.Millisecond, d.StartTime, "unset keys keep defaults")
	require.NoError(t, d.Validate())

	e, err := d.Engine()
	require.NoError(t, err)
	assert.Equal(t, crypto.SHA512, e.Hash())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := LoadDrone(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadStation(writeFile(t, "localPort: [1, 2"))
	assert.Error(t, err)
}

func TestLoadStationEnv(t *testing.T) {
	t.Setenv(EnvAllowList, " DRONE_A, ,DRONE_B ")
	t.Setenv(EnvAdvertise, "true")
	t.Setenv(EnvFreshnessWindow, "2s")

	s, err := LoadStation("")
	require.NoError(t, err)
	assert.Equal(t, []string{"DRONE_A", "DRONE_B"}, s.AllowList)
	assert.True(t, s.Advertise)
	require.NoError(t, s.Validate())

	e, err := s.Engine()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, e.FreshnessWindow())
}

func TestLoadSimulation(t *testing.T) {
	path := writeFile(t, `
duration: 10s
seed: 7
network:
  latency: 5ms
  lossRate: 0.1
drones:
  - droneId: DRONE_001
    password: a
  - droneId: DRONE_999
    password: b
    startTime: 1s
`)
	sim, err := LoadSimulation(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, sim.Duration)
	require.Len(t, sim.Drones, 2)
	assert.Equal(t, 5*time.Second, sim.Drones[0].AuthTimeout, "drone defaults apply per entry")
	assert.Equal(t, time.Second, sim.Drones[1].StartTime)
	assert.Equal(t, 5000, sim.Station.LocalPort)

	nc := sim.NetworkConfig()
	assert.Equal(t, 5*time.Millisecond, nc.Latency)
	assert.Equal(t, 0.1, nc.LossRate)
	assert.Equal(t, uint64(7), nc.Seed)
	require.NoError(t, sim.Validate())

	keep, err := LoadSimulation(writeFile(t, "duration: 5s\n"))
	require.NoError(t, err)
	assert.Len(t, keep.Drones, 6)
}

func TestDroneValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Drone)
	}{
		{"empty id", func(d *Drone) { d.DroneID = " " }},
		{"empty password", func(d *Drone) { d.Password = "" }},
		{"local port", func(d *Drone) { d.LocalPort = 70000 }},
		{"dest port", func(d *Drone) { d.DestPort = 0 }},
		{"timeout", func(d *Drone) { d.AuthTimeout = 0 }},
		{"retry", func(d *Drone) { d.RetryInterval = -time.Second }},
		{"start", func(d *Drone) { d.StartTime = -time.Second }},
		{"hash", func(d *Drone) { d.Hash = "md5" }},
		{"hardening", func(d *Drone) { d.PasswordHardening = "bcrypt" }},
		{"log level", func(d *Drone) { d.LogLevel = "verbose" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDrone()
			tt.mutate(&d)
			assert.ErrorIs(t, d.Validate(), ErrInvalid)
		})
	}
	assert.NoError(t, validDrone().Validate())
}

func TestStationValidate(t *testing.T) {
	s := DefaultStation()
	s.AllowList = nil
	assert.ErrorIs(t, s.Validate(), ErrInvalid)

	s = DefaultStation()
	s.AllowList = []string{"DRONE_001", ""}
	assert.ErrorIs(t, s.Validate(), ErrInvalid)

	s = DefaultStation()
	s.FreshnessWindow = 0
	assert.ErrorIs(t, s.Validate(), ErrInvalid)
}

func TestSimulationValidate(t *testing.T) {
	sim := DefaultSimulation()
	sim.Drones[1].DroneID = sim.Drones[0].DroneID
	assert.ErrorIs(t, sim.Validate(), ErrInvalid)

	sim = DefaultSimulation()
	sim.Network.LossRate = 2
	assert.ErrorIs(t, sim.Validate(), ErrInvalid)

	sim = DefaultSimulation()
	sim.Drones = nil
	assert.ErrorIs(t, sim.Validate(), ErrInvalid)
}

func TestParsers(t *testing.T) {
	h, err := ParseHash("SHA3-256")
	require.NoError(t, err)
	assert.Equal(t, crypto.SHA3_256, h)

	k, err := ParseHardening("scrypt")
	require.NoError(t, err)
	assert.Equal(t, ksf.Scrypt, k)

	k, err = ParseHardening("")
	require.NoError(t, err)
	assert.Equal(t, ksf.Identifier(0), k)

	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)

	assert.Equal(t, []string{"a", "b"}, SplitList("a,,b, "))
	assert.Nil(t, SplitList(""))
}
