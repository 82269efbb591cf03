package report

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droneauth/droneauth-go/pkg/stats"
)

func sampleData() *stats.MemorySink {
	sink := stats.NewMemorySink()
	start := time.Unix(0, 0)

	drone := stats.Counters{Requests: 2, Successes: 1, Failures: 1}
	drone.Record(sink, "DRONE_001", stats.DroneNames)
	sink.Emit("DRONE_001", stats.SignalSuccess, start.Add(time.Second), 1)

	intruder := stats.Counters{}
	intruder.Record(sink, "DRONE_999", stats.DroneNames)

	station := stats.Counters{Requests: 3, Successes: 1, Failures: 2}
	station.Record(sink, "groundStation", stats.StationNames)

	sink.Emit("signalsOnly", stats.SignalRequest, start, 1)
	return sink
}

func TestRows(t *testing.T) {
	rows := Rows(sampleData())
	require.Len(t, rows, 3)

	assert.Equal(t, "DRONE_001", rows[0].Source)
	assert.False(t, rows[0].Station)
	assert.Equal(t, 2.0, rows[0].Requests)
	assert.True(t, rows[0].HasRate)
	assert.Equal(t, 50.0, rows[0].SuccessRate)

	assert.Equal(t, "DRONE_999", rows[1].Source)
	assert.False(t, rows[1].HasRate, "no requests means no success rate")

	assert.Equal(t, "groundStation", rows[2].Source)
	assert.True(t, rows[2].Station)
	assert.Equal(t, 2.0, rows[2].Failures)
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleData(), Options{Title: "Run 1"}))

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "DRONE_001")
	assert.Contains(t, html, "groundStation")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, WriteFile(path, sampleData(), Options{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Authentication report")

	assert.Error(t, WriteFile(filepath.Join(t.TempDir(), "missing", "r.html"), sampleData(), Options{}))
}

func TestEarliest(t *testing.T) {
	assert.Equal(t, time.Unix(0, 0), earliest(sampleData()))
	assert.True(t, earliest(stats.NewMemorySink()).IsZero())
}
