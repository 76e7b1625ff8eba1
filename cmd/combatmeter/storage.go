package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/resonance-tools/combatmeter/internal/config"
	"github.com/resonance-tools/combatmeter/internal/database"
	"github.com/resonance-tools/combatmeter/internal/influx"
	"github.com/resonance-tools/combatmeter/internal/storage"
	gormstorage "github.com/resonance-tools/combatmeter/internal/storage/gorm"
	influxstorage "github.com/resonance-tools/combatmeter/internal/storage/influx"
	"github.com/resonance-tools/combatmeter/internal/storage/memory"
	wsstorage "github.com/resonance-tools/combatmeter/internal/storage/websocket"
)

// initStorage builds and initializes the configured backend. The result
// always supports snapshots: stores that cannot list users are paired with
// an in-memory aggregator.
func (a *app) initStorage(ctx context.Context, storageCfg config.StorageConfig) (storage.Backend, error) {
	primary, err := a.createStorageBackend(storageCfg)
	if err != nil {
		a.Logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}

	backends := []storage.Backend{primary}
	if _, ok := primary.(storage.Snapshotter); !ok {
		backends = append([]storage.Backend{memory.New(config.MemoryConfig{})}, backends...)
	}

	if storageCfg.Influx.Enabled {
		mgr := influx.NewManager(a.ZLogger, storageCfg.Influx)
		if err := mgr.Connect(ctx); err != nil {
			a.Logger.Warn("InfluxDB output disabled", "error", err)
		} else {
			backends = append(backends, influxstorage.New(mgr))
		}
	}

	var backend storage.Backend = primary
	if len(backends) > 1 {
		backend = storage.NewMulti(backends...)
	}

	if err := backend.Init(); err != nil {
		a.Logger.Error("Failed to initialize storage backend", "error", err)
		return nil, errors.Join(err, backend.Close())
	}
	a.Logger.Info("Storage ready", "type", storageCfg.Type)
	return backend, nil
}

func (a *app) createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres", "sqlite":
		mgr := database.NewManager(a.ZLogger)
		db, err := mgr.Connect(storageCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.Logger.Info("GORM storage backend initialized", "dialect", db.Dialector.Name())
		return gormstorage.New(gormstorage.Dependencies{
			DB:      db,
			Logger:  a.Logger,
			OnClose: mgr.Close,
		}), nil

	case "websocket":
		wsURL := httpToWS(storageCfg.WebSocket.URL)
		if wsURL == "" {
			return nil, errors.New("websocket storage needs api.websocketUrl")
		}
		a.Logger.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:     wsURL,
			Secret:  storageCfg.WebSocket.Secret,
			Version: CurrentVersion,
		}, a.Logger), nil

	case "memory", "":
		a.Logger.Info("Memory storage backend initialized")
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
