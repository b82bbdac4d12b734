package main

import (
	"fmt"
	"log"
	"path/filepath"

	"worldevents.ai/internal/persistence/indexdb"
	"worldevents.ai/internal/sim/catalogs"
	"worldevents.ai/internal/sim/director"
	"worldevents.ai/internal/sim/tuning"
	"worldevents.ai/internal/sim/world"
)

// runtimeIndex is the optional read model fed with lifecycle entries and reward grants.
type runtimeIndex interface {
	director.Journal
	world.GrantRecorder
	Close() error
	SetClock(now func() uint64)
	UpsertCatalogs(cat *catalogs.EventCatalog, tune tuning.Tuning) error
}

func openRuntimeIndex(dataDir, serverID string, disableDB bool, cfg serverEnv, logger *log.Logger) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	switch cfg.IndexBackend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		dbPath := filepath.Join(dataDir, "index", "events.sqlite")
		return indexdb.OpenSQLite(dbPath)
	case "d1":
		if cfg.D1IngestURL == "" {
			return nil, fmt.Errorf("WE_INDEX_BACKEND=d1 but WE_INDEX_D1_INGEST_URL is empty")
		}
		idx, err := indexdb.OpenD1(indexdb.D1Config{
			Endpoint:      cfg.D1IngestURL,
			Token:         cfg.D1Token,
			ServerID:      serverID,
			BatchSize:     cfg.D1BatchSize,
			FlushInterval: cfg.D1FlushInterval,
			Logger:        logger,
		})
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported WE_INDEX_BACKEND: %s", cfg.IndexBackend)
	}
}
