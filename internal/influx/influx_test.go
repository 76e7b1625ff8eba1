package influx

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonance-tools/combatmeter/internal/config"
)

func TestConnect_Disabled(t *testing.T) {
	m := NewManager(zerolog.Nop(), config.InfluxConfig{})
	assert.ErrorIs(t, m.Connect(t.Context()), ErrDisabled)

	err := m.WritePoint(influxdb2.NewPoint("damage", nil, map[string]any{"amount": 1}, time.Now()))
	assert.Error(t, err)
	assert.NoError(t, m.Close())
}

func TestConnect_FallsBackToBackup(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "influx_backup.lp.gz")
	m := NewManager(zerolog.Nop(), config.InfluxConfig{
		Enabled:    true,
		Protocol:   "http",
		Host:       "127.0.0.1",
		Port:       "1",
		Org:        "combatmeter",
		Bucket:     "combat",
		BackupPath: backup,
	})

	require.NoError(t, m.Connect(t.Context()))
	assert.False(t, m.IsValid)

	at := time.Unix(1700000000, 0)
	require.NoError(t, m.WritePoint(influxdb2.NewPoint("damage",
		map[string]string{"uid": "1001"},
		map[string]any{"amount": int64(500)},
		at)))
	require.NoError(t, m.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(gz)
	require.NoError(t, err)

	assert.Contains(t, string(data), "damage,uid=1001 amount=500i 1700000000000000000")
}
