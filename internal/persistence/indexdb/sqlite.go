package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"worldevents.ai/internal/sim/catalogs"
	"worldevents.ai/internal/sim/director"
	"worldevents.ai/internal/sim/tuning"
)

// SQLiteIndex is a write-behind read model of instance lifecycles and reward grants. Writes are
// queued and applied by one goroutine; a full queue drops rows rather than stalling the tick loop.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropLifecycle atomic.Uint64
	dropGrant     atomic.Uint64
	// clock is read when stamping grants; tests may replace it.
	clock func() uint64
}

type reqKind int

const (
	reqLifecycle reqKind = iota + 1
	reqGrant
	reqSync
)

type req struct {
	kind reqKind

	lifecycle director.LifecycleEntry
	grant     grantRow
	done      chan struct{}
}

type grantRow struct {
	Tick       uint64
	PlayerID   string
	Kind       string
	Amount     int
	RecordedAt string
}

type QueueStats struct {
	QueueDepth         int    `json:"queue_depth"`
	QueueCapacity      int    `json:"queue_capacity"`
	DropLifecycleTotal uint64 `json:"drop_lifecycle_total"`
	DropGrantTotal     uint64 `json:"drop_grant_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS lifecycles (
			instance_id TEXT NOT NULL,
			transition TEXT NOT NULL,
			tick INTEGER NOT NULL,
			archetype TEXT NOT NULL,
			zone_id INTEGER NOT NULL,
			world TEXT NOT NULL,
			x REAL NOT NULL,
			y REAL NOT NULL,
			z REAL NOT NULL,
			participants INTEGER NOT NULL,
			participants_json TEXT NOT NULL,
			reason TEXT,
			points_each INTEGER NOT NULL,
			xp_each INTEGER NOT NULL,
			PRIMARY KEY (instance_id, transition)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_lifecycles_tick ON lifecycles(tick);`,
		`CREATE INDEX IF NOT EXISTS idx_lifecycles_archetype ON lifecycles(archetype, transition);`,
		`CREATE TABLE IF NOT EXISTS grants (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			tick INTEGER NOT NULL,
			player_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			amount INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_grants_player ON grants(player_id, kind);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// DB exposes the handle for read queries.
func (s *SQLiteIndex) DB() *sql.DB { return s.db }

// SetClock makes RecordGrant stamp rows with the director tick.
func (s *SQLiteIndex) SetClock(now func() uint64) { s.clock = now }

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Record implements director.Journal.
func (s *SQLiteIndex) Record(e director.LifecycleEntry) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqLifecycle, lifecycle: e}:
	default:
		s.dropLifecycle.Add(1)
	}
}

// RecordGrant implements world.GrantRecorder.
func (s *SQLiteIndex) RecordGrant(playerID, kind string, amount int) {
	if s == nil || s.closed.Load() {
		return
	}
	var tick uint64
	if s.clock != nil {
		tick = s.clock()
	}
	r := grantRow{
		Tick:       tick,
		PlayerID:   playerID,
		Kind:       kind,
		Amount:     amount,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	select {
	case s.ch <- req{kind: reqGrant, grant: r}:
	default:
		s.dropGrant.Add(1)
	}
}

// Sync blocks until every queued write has been committed.
func (s *SQLiteIndex) Sync() {
	if s == nil || s.closed.Load() {
		return
	}
	done := make(chan struct{})
	s.ch <- req{kind: reqSync, done: done}
	<-done
}

func (s *SQLiteIndex) Stats() QueueStats {
	if s == nil {
		return QueueStats{}
	}
	return QueueStats{
		QueueDepth:         len(s.ch),
		QueueCapacity:      cap(s.ch),
		DropLifecycleTotal: s.dropLifecycle.Load(),
		DropGrantTotal:     s.dropGrant.Load(),
	}
}

// UpsertCatalogs stores the archetype catalog and the applied tuning with their digests.
func (s *SQLiteIndex) UpsertCatalogs(cat *catalogs.EventCatalog, tune tuning.Tuning) error {
	if s == nil || cat == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b, err := json.Marshal(cat.All()); err == nil {
		rows = append(rows, kv{name: "events", digest: cat.Digest, json: b})
	}
	if b, err := json.Marshal(tune); err == nil {
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertLifecycle, _ := s.db.Prepare(`INSERT OR REPLACE INTO lifecycles(instance_id,transition,tick,archetype,zone_id,world,x,y,z,participants,participants_json,reason,points_each,xp_each) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertGrant, _ := s.db.Prepare(`INSERT INTO grants(tick,player_id,kind,amount,recorded_at) VALUES(?,?,?,?,?)`)
	defer func() {
		if insertLifecycle != nil {
			_ = insertLifecycle.Close()
		}
		if insertGrant != nil {
			_ = insertGrant.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		if r.kind == reqSync {
			commit()
			close(r.done)
			continue
		}
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqLifecycle:
			e := r.lifecycle
			parts, _ := json.Marshal(e.Participants)
			if insertLifecycle != nil {
				if _, err := tx.Stmt(insertLifecycle).Exec(
					e.InstanceID,
					e.Transition,
					int64(e.Tick),
					e.Archetype,
					e.ZoneID,
					e.World,
					e.Pos[0], e.Pos[1], e.Pos[2],
					len(e.Participants),
					string(parts),
					e.Reason,
					e.PointsEach,
					e.XPEach,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqGrant:
			g := r.grant
			if insertGrant != nil {
				if _, err := tx.Stmt(insertGrant).Exec(int64(g.Tick), g.PlayerID, g.Kind, g.Amount, g.RecordedAt); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
