package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "worldevents.ai/internal/persistence/log"
	"worldevents.ai/internal/sim/catalogs"
	"worldevents.ai/internal/sim/clock"
	"worldevents.ai/internal/sim/director"
	"worldevents.ai/internal/sim/director/archetypes"
	"worldevents.ai/internal/sim/tuning"
	"worldevents.ai/internal/sim/world"
	"worldevents.ai/internal/transport/observer"
	"worldevents.ai/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		serverID   = flag.String("server", "server_1", "server id (tags index rows)")
		seed       = flag.Int64("seed", 0, "terrain and director seed (0: use tuning.yaml)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		zonesPath  = flag.String("zones", "", "path to zones.yaml (default: <configs>/zones.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable indexing (lifecycles, grants, catalogs)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	envCfg, err := loadServerEnv()
	if err != nil {
		logger.Fatalf("%v", err)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if *seed != 0 {
		tune.Seed = *seed
	}

	cat, err := catalogs.Load(filepath.Join(*configDir, "events"))
	if err != nil {
		logger.Fatalf("load event catalog: %v", err)
	}
	if err := cat.ApplyOverrides(tune.Director.Archetypes); err != nil {
		logger.Fatalf("apply archetype overrides: %v", err)
	}

	zp := strings.TrimSpace(*zonesPath)
	if zp == "" {
		zp = filepath.Join(*configDir, "zones.yaml")
	}
	if _, err := os.Stat(zp); err != nil {
		logger.Printf("zones not found (%s); using defaults", zp)
		zp = ""
	}
	zones, err := world.LoadZones(zp)
	if err != nil {
		logger.Fatalf("load zones: %v", err)
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	// Optional read model; the director never reads from it.
	idx, err := openRuntimeIndex(*dataDir, *serverID, *disableDB, envCfg, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}

	terrain := world.NewProceduralTerrain(tune.Seed)
	players := world.NewPlayerDirectory()
	var recorder world.GrantRecorder
	if idx != nil {
		recorder = idx
	}
	ledger := world.NewLedger(recorder)

	journal := persistlog.NewJournal(*dataDir, logger)
	defer journal.Close()
	journals := director.Journals{journal}
	if idx != nil {
		journals = append(journals, idx)
	}

	enableAdminHTTP := envCfg.adminHTTPEnabled()
	enablePprofHTTP := envCfg.EnablePprofHTTP
	var obsSrv *observer.Server
	if enableAdminHTTP {
		obsSrv = observer.NewServer(log.New(os.Stdout, "[observer] ", log.LstdFlags|log.Lmicroseconds))
		journals = append(journals, obsSrv)
	}

	clk := clock.New(0)
	rng := rand.New(rand.NewSource(tune.Seed))
	sched, err := director.New(director.Deps{
		Catalog:   cat,
		Zones:     zones,
		Terrain:   terrain,
		Directory: players,
		Rewards:   ledger,
		Factory: archetypes.Factory(archetypes.Deps{
			Blocks: terrain,
			Rand:   rand.New(rand.NewSource(tune.Seed + 1)),
		}),
		Clock:   clk,
		Rand:    rng,
		Logger:  log.New(os.Stdout, "[director] ", log.LstdFlags|log.Lmicroseconds),
		Journal: journals,
	}, director.ConfigFromTuning(tune))
	if err != nil {
		logger.Fatalf("director: %v", err)
	}

	if idx != nil {
		idx.SetClock(clk.Now)
		if err := idx.UpsertCatalogs(cat, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("director stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", metricsHandler(*serverID, sched, players, idx))

	if enableAdminHTTP {
		api := &adminAPI{director: sched, catalog: cat, ledger: ledger, log: logger}
		mux.Handle("/admin/v1/", api.routes())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		logger.Printf("admin endpoints disabled (WE_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (WE_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(players, sched, ws.Info{
		TickRateHz:   sched.Config().TickRateHz,
		EventsDigest: cat.Digest,
	}, log.New(os.Stdout, "[ws] ", log.LstdFlags|log.Lmicroseconds)).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s archetypes=%d digest=%s", *addr, cat.Len(), cat.Digest)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}

	// Instances are stopped (and journaled) before the sinks close.
	cancel()
	<-done
	if idx != nil {
		if err := idx.Close(); err != nil {
			logger.Printf("index close: %v", err)
		}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
