package main

import (
	"bytes"
	"encoding/hex"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonance-tools/combatmeter/internal/config"
	"github.com/resonance-tools/combatmeter/internal/dispatcher"
	"github.com/resonance-tools/combatmeter/internal/frame"
	"github.com/resonance-tools/combatmeter/internal/model"
	"github.com/resonance-tools/combatmeter/internal/pb"
	"github.com/resonance-tools/combatmeter/internal/protocol"
	"github.com/resonance-tools/combatmeter/internal/storage"
	gormstorage "github.com/resonance-tools/combatmeter/internal/storage/gorm"
	"github.com/resonance-tools/combatmeter/internal/storage/memory"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	a, err := newApp(&rootFlags{configDir: t.TempDir(), logsDir: t.TempDir(), logLevel: "debug"}, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestHttpToWS(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:8080", "ws://localhost:8080"},
		{"https://stats.example.com/", "wss://stats.example.com"},
		{"ws://already", "ws://already"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, httpToWS(tt.in), tt.in)
	}
}

func TestNewApp_WritesLogFile(t *testing.T) {
	a := newTestApp(t)
	require.NotEmpty(t, a.LogFilePath)
	assert.FileExists(t, a.LogFilePath)
}

func TestCreateStorageBackend(t *testing.T) {
	a := newTestApp(t)

	b, err := a.createStorageBackend(config.StorageConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	b, err = a.createStorageBackend(config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "stats.db")},
	})
	require.NoError(t, err)
	assert.IsType(t, &gormstorage.Backend{}, b)
	require.NoError(t, b.Close())

	_, err = a.createStorageBackend(config.StorageConfig{Type: "websocket"})
	assert.Error(t, err)

	_, err = a.createStorageBackend(config.StorageConfig{Type: "carrier-pigeon"})
	assert.ErrorContains(t, err, "unknown storage type")
}

func TestInitStorage_AlwaysSnapshots(t *testing.T) {
	a := newTestApp(t)

	b, err := a.initStorage(t.Context(), config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "stats.db")},
	})
	require.NoError(t, err)
	defer b.Close()

	snaps, ok := b.(storage.Snapshotter)
	require.True(t, ok)

	require.NoError(t, b.SetName(7, "Alice"))
	require.NoError(t, b.AddDamage(7, 1714, 500, false, false, 500))

	users := snaps.Snapshot()
	require.Len(t, users, 1)
	assert.Equal(t, "Alice", users[0].Name)
	assert.Equal(t, int64(500), users[0].Damage.Total)
}

func hitBuffer() []byte {
	player := protocol.MakeEntityID(1001, protocol.TagPlayer)
	monster := protocol.MakeEntityID(5, protocol.TagMonster)

	msg := pb.SyncNearDeltaInfo{DeltaInfos: []pb.AoiSyncDelta{{
		UUID: model.Some(int64(monster)),
		SkillEffects: &pb.SkillEffect{Damages: []pb.SyncDamageInfo{{
			OwnerID:      model.Some[int32](1714),
			AttackerUUID: model.Some(int64(player)),
			Value:        model.Some[int64](500),
			TypeFlag:     model.Some[int32](1),
		}}},
	}}}
	body := dispatcher.AppendEnvelope(nil, dispatcher.Envelope{
		ServiceID: protocol.ServiceID,
		StubID:    1,
		Method:    protocol.MethodSyncNearDeltaInfo,
		Payload:   msg.Marshal(),
	})
	return frame.Encode(frame.Frame{Type: protocol.MessageNotify, Body: body})
}

func runRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--config", t.TempDir(), "--logs-dir", t.TempDir()))
	err := root.ExecuteContext(t.Context())
	return out.String(), err
}

func TestDecodeCommand(t *testing.T) {
	out, err := runRoot(t, "decode", hex.EncodeToString(hitBuffer()), "00 00 00 03")
	require.NoError(t, err)

	assert.Contains(t, out, "buffers=2 frames=1 failed=0")
	assert.Contains(t, out, "1001")
	assert.Contains(t, out, "500")
	assert.Contains(t, out, "100.0")
}

func TestDecodeCommand_BadHex(t *testing.T) {
	_, err := runRoot(t, "decode", "zz")
	assert.ErrorContains(t, err, "argument 1")
}

func TestReplayCommand_MissingFile(t *testing.T) {
	_, err := runRoot(t, "replay", filepath.Join(t.TempDir(), "missing.pcap"))
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := runRoot(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, AppName+" "+CurrentVersion)
}
