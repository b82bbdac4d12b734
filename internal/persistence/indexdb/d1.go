package indexdb

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"worldevents.ai/internal/sim/catalogs"
	"worldevents.ai/internal/sim/director"
	"worldevents.ai/internal/sim/tuning"
)

// D1Config points the exporter at a remote ingest worker that mirrors the sqlite read model.
type D1Config struct {
	Endpoint      string
	Token         string
	ServerID      string
	BatchSize     int
	FlushInterval time.Duration
	HTTPTimeout   time.Duration
	// MaxRetained caps events held across failed flushes; the oldest are dropped first.
	MaxRetained int
	Logger      *log.Logger
}

type D1Index struct {
	cfg        D1Config
	httpClient *http.Client

	ch   chan d1Event
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	flushOK       atomic.Uint64
	flushFail     atomic.Uint64
	queueDropped  atomic.Uint64
	retainDropped atomic.Uint64
	retained      atomic.Int64
	// clock stamps grants with the director tick when set.
	clock func() uint64
}

type D1Stats struct {
	FlushOKTotal       uint64 `json:"flush_ok_total"`
	FlushFailTotal     uint64 `json:"flush_fail_total"`
	QueueDroppedTotal  uint64 `json:"queue_dropped_total"`
	RetainDroppedTotal uint64 `json:"retain_dropped_total"`
	RetainedEvents     int64  `json:"retained_events"`
	QueueDepth         int    `json:"queue_depth"`
	QueueCapacity      int    `json:"queue_capacity"`
}

type d1Event struct {
	Kind     string `json:"kind"`
	ServerID string `json:"server_id"`
	Payload  any    `json:"payload"`
}

type d1GrantPayload struct {
	Tick       uint64 `json:"tick"`
	PlayerID   string `json:"player_id"`
	Kind       string `json:"kind"`
	Amount     int    `json:"amount"`
	RecordedAt string `json:"recorded_at"`
}

type d1CatalogPayload struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	JSON      string `json:"json"`
	UpdatedAt string `json:"updated_at"`
}

func OpenD1(cfg D1Config) (*D1Index, error) {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.ServerID = strings.TrimSpace(cfg.ServerID)
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("empty d1 ingest endpoint")
	}
	if cfg.ServerID == "" {
		return nil, fmt.Errorf("empty server id")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 128
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 500 * time.Millisecond
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 10 * time.Second
	}
	if cfg.MaxRetained <= 0 {
		cfg.MaxRetained = 8192
	}

	d := &D1Index{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		ch: make(chan d1Event, 32768),
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.loop()
	}()

	return d, nil
}

func (d *D1Index) Close() error {
	if d == nil {
		return nil
	}
	d.once.Do(func() {
		d.closed.Store(true)
		close(d.ch)
		d.wg.Wait()
	})
	return nil
}

func (d *D1Index) SetClock(now func() uint64) { d.clock = now }

func (d *D1Index) Stats() D1Stats {
	if d == nil {
		return D1Stats{}
	}
	return D1Stats{
		FlushOKTotal:       d.flushOK.Load(),
		FlushFailTotal:     d.flushFail.Load(),
		QueueDroppedTotal:  d.queueDropped.Load(),
		RetainDroppedTotal: d.retainDropped.Load(),
		RetainedEvents:     d.retained.Load(),
		QueueDepth:         len(d.ch),
		QueueCapacity:      cap(d.ch),
	}
}

// Record implements director.Journal.
func (d *D1Index) Record(e director.LifecycleEntry) {
	if d == nil || d.closed.Load() {
		return
	}
	d.enqueue(d1Event{Kind: "lifecycle", ServerID: d.cfg.ServerID, Payload: e})
}

// RecordGrant implements world.GrantRecorder.
func (d *D1Index) RecordGrant(playerID, kind string, amount int) {
	if d == nil || d.closed.Load() {
		return
	}
	var tick uint64
	if d.clock != nil {
		tick = d.clock()
	}
	d.enqueue(d1Event{Kind: "grant", ServerID: d.cfg.ServerID, Payload: d1GrantPayload{
		Tick:       tick,
		PlayerID:   playerID,
		Kind:       kind,
		Amount:     amount,
		RecordedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}})
}

func (d *D1Index) UpsertCatalogs(cat *catalogs.EventCatalog, tune tuning.Tuning) error {
	if d == nil || d.closed.Load() || cat == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if b, err := json.Marshal(cat.All()); err == nil && cat.Digest != "" {
		d.enqueue(d1Event{Kind: "catalog", ServerID: d.cfg.ServerID, Payload: d1CatalogPayload{
			Name: "events", Digest: cat.Digest, JSON: string(b), UpdatedAt: now,
		}})
	}
	if b, err := json.Marshal(tune); err == nil {
		sum := sha256.Sum256(b)
		d.enqueue(d1Event{Kind: "catalog", ServerID: d.cfg.ServerID, Payload: d1CatalogPayload{
			Name: "tuning", Digest: hex.EncodeToString(sum[:]), JSON: string(b), UpdatedAt: now,
		}})
	}
	return nil
}

func (d *D1Index) enqueue(ev d1Event) {
	if d == nil || d.closed.Load() {
		return
	}
	select {
	case d.ch <- ev:
	default:
		d.queueDropped.Add(1)
		d.printf("d1 index queue full; drop kind=%s", ev.Kind)
	}
}

func (d *D1Index) loop() {
	ticker := time.NewTicker(d.cfg.FlushInterval)
	defer ticker.Stop()

	// A failed batch stays at the head of pending and is retried on the next flush.
	pending := make([]d1Event, 0, d.cfg.BatchSize)
	flush := func() bool {
		for len(pending) > 0 {
			n := len(pending)
			if n > d.cfg.BatchSize {
				n = d.cfg.BatchSize
			}
			if err := d.sendBatch(pending[:n]); err != nil {
				d.flushFail.Add(1)
				d.printf("d1 index flush failed batch=%d retained=%d err=%v", n, len(pending), err)
				return false
			}
			d.flushOK.Add(1)
			pending = append(pending[:0], pending[n:]...)
			d.retained.Store(int64(len(pending)))
		}
		return true
	}
	retain := func(ev d1Event) {
		if len(pending) >= d.cfg.MaxRetained {
			pending = append(pending[:0], pending[1:]...)
			d.retainDropped.Add(1)
		}
		pending = append(pending, ev)
		d.retained.Store(int64(len(pending)))
	}

	for {
		select {
		case ev, ok := <-d.ch:
			if !ok {
				flush()
				return
			}
			retain(ev)
			if len(pending) >= d.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (d *D1Index) sendBatch(events []d1Event) error {
	if len(events) == 0 {
		return nil
	}

	body := struct {
		Events []d1Event `json:"events"`
	}{Events: events}
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		req, err := http.NewRequest(http.MethodPost, d.cfg.Endpoint, bytes.NewReader(buf))
		if err != nil {
			return err
		}
		req.Header.Set("content-type", "application/json")
		if d.cfg.Token != "" {
			req.Header.Set("x-we-index-token", d.cfg.Token)
		}

		resp, err := d.httpClient.Do(req)
		if err == nil {
			respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
			_ = resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return nil
			}
			err = fmt.Errorf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		}
		lastErr = err
		time.Sleep(time.Duration(10*(1<<attempt)) * time.Millisecond)
	}
	return lastErr
}

func (d *D1Index) printf(format string, args ...any) {
	if d != nil && d.cfg.Logger != nil {
		d.cfg.Logger.Printf(format, args...)
	}
}
