package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonance-tools/combatmeter/internal/config"
	"github.com/resonance-tools/combatmeter/internal/engine"
	"github.com/resonance-tools/combatmeter/internal/storage/memory"
	"github.com/resonance-tools/combatmeter/pkg/core"
)

type fixedStats engine.Stats

func (s fixedStats) Stats() engine.Stats { return engine.Stats(s) }

func newTestServer(t *testing.T) (*httptest.Server, *memory.Backend) {
	t.Helper()

	store := memory.New(config.MemoryConfig{})
	require.NoError(t, store.SetName(1001, "Alice"))
	require.NoError(t, store.SetProfession(1001, "Iaido"))
	require.NoError(t, store.AddDamage(1001, 1714, 500, true, false, 450))
	require.NoError(t, store.AddDamage(1002, 9, 900, false, false, 900))
	require.NoError(t, store.AddHealing(1001, 300, false, true))

	srv, err := NewServer(Dependencies{
		Snapshots: store,
		Engine:    fixedStats{Buffers: 4, Frames: 9, Failed: 1},
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestUsers(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := get(t, ts.URL+"/api/users")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var users []core.User
	require.NoError(t, json.Unmarshal([]byte(body), &users))
	require.Len(t, users, 2)
	assert.Equal(t, uint64(1002), users[0].UID, "sorted by damage")
	assert.Equal(t, "Alice", users[1].Name)
}

func TestUser(t *testing.T) {
	ts, _ := newTestServer(t)

	tests := []struct {
		path   string
		status int
	}{
		{"/api/users/1001", http.StatusOK},
		{"/api/users/404", http.StatusNotFound},
		{"/api/users/abc", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, ts.URL+tt.path)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status == http.StatusOK {
				var u core.User
				require.NoError(t, json.Unmarshal([]byte(body), &u))
				assert.Equal(t, "Iaido", u.Profession)
				assert.Equal(t, int64(500), u.Damage.Crit)
				assert.Equal(t, int64(300), u.Healing.Lucky)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, body := get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `combatmeter_player_damage_total{name="Alice",profession="Iaido",uid="1001"} 500`)
	assert.Contains(t, body, `combatmeter_player_healing_total{name="Alice",profession="Iaido",uid="1001"} 300`)
	assert.Contains(t, body, `combatmeter_player_damage_total{name="",profession="",uid="1002"} 900`)
	assert.Contains(t, body, "combatmeter_decoder_buffers_total 4")
	assert.Contains(t, body, "combatmeter_decoder_buffers_failed_total 1")
}

func TestClient(t *testing.T) {
	ts, store := newTestServer(t)
	c := NewClient(ts.URL + "/")

	require.NoError(t, c.Healthcheck())

	users, err := c.Users()
	require.NoError(t, err)
	assert.Len(t, users, 2)

	require.NoError(t, c.Reset())
	u, ok := store.GetUser(1001)
	require.True(t, ok)
	assert.Equal(t, "Alice", u.Name, "identity survives a reset")
	assert.Zero(t, u.Damage.Total)
}

func TestClient_Unreachable(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	assert.Error(t, c.Healthcheck())
	_, err := c.Users()
	assert.Error(t, err)
	assert.Error(t, c.Reset())
}

func TestNewServer_RequiresSnapshots(t *testing.T) {
	_, err := NewServer(Dependencies{})
	assert.Error(t, err)
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	srv, err := NewServer(Dependencies{Snapshots: memory.New(config.MemoryConfig{})})
	require.NoError(t, err)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, addr) }()

	require.Eventually(t, func() bool {
		return NewClient("http://"+addr).Healthcheck() == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestListenAndServe_BadAddress(t *testing.T) {
	srv, err := NewServer(Dependencies{Snapshots: memory.New(config.MemoryConfig{})})
	require.NoError(t, err)

	err = srv.ListenAndServe(context.Background(), "not an address")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "api server:"))
}
