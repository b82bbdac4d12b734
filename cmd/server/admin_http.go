package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"worldevents.ai/internal/protocol"
	"worldevents.ai/internal/sim/catalogs"
	"worldevents.ai/internal/sim/director"
	"worldevents.ai/internal/sim/world"
)

// adminAPI serves the loopback-only operator endpoints under /admin/v1/.
type adminAPI struct {
	director *director.Scheduler
	catalog  *catalogs.EventCatalog
	ledger   *world.Ledger
	log      *log.Logger
}

type instanceView struct {
	ID             string     `json:"id"`
	Archetype      string     `json:"archetype"`
	State          string     `json:"state"`
	ZoneID         int        `json:"zone_id"`
	ZoneName       string     `json:"zone_name"`
	World          string     `json:"world"`
	Pos            [3]float64 `json:"pos"`
	StartTick      uint64     `json:"start_tick"`
	Elapsed        uint64     `json:"elapsed"`
	RemainingTicks uint64     `json:"remaining_ticks"`
	Participants   []string   `json:"participants"`
}

func viewOf(inst *director.Instance) instanceView {
	loc := inst.Location()
	return instanceView{
		ID:             inst.ID(),
		Archetype:      inst.Archetype().ID,
		State:          inst.State().String(),
		ZoneID:         inst.Zone().ID,
		ZoneName:       inst.Zone().Name,
		World:          loc.World,
		Pos:            loc.ToArray(),
		StartTick:      inst.StartTick(),
		Elapsed:        inst.Elapsed(),
		RemainingTicks: inst.RemainingTicks(),
		Participants:   inst.Participants(),
	}
}

type archetypeView struct {
	ID      string  `json:"id"`
	Enabled bool    `json:"enabled"`
	Weight  float64 `json:"weight"`
}

// routes mounts the operator endpoints; method mismatches get 405 from the router.
func (a *adminAPI) routes() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/admin/v1").Subrouter()
	api.Use(loopbackOnly)
	api.HandleFunc("/state", a.handleState).Methods(http.MethodGet)
	api.HandleFunc("/debug", a.handleDebug).Methods(http.MethodGet)
	api.HandleFunc("/balance", a.handleBalance).Methods(http.MethodGet)
	api.HandleFunc("/instances/{id}", a.handleInstance).Methods(http.MethodGet)
	api.HandleFunc("/spawn", a.handleSpawn).Methods(http.MethodPost)
	api.HandleFunc("/stop", a.handleStop).Methods(http.MethodPost)
	api.HandleFunc("/stop-all", a.handleStopAll).Methods(http.MethodPost)
	api.HandleFunc("/toggle", a.handleToggle).Methods(http.MethodPost)
	api.HandleFunc("/interval", a.handleInterval).Methods(http.MethodPost)
	api.HandleFunc("/weight", a.handleWeight).Methods(http.MethodPost)
	api.HandleFunc("/zones", a.handleZones).Methods(http.MethodPost)
	return r
}

func loopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(rw, r)
	})
}

func (a *adminAPI) handleState(rw http.ResponseWriter, r *http.Request) {
	active := a.director.Active()
	views := make([]instanceView, 0, len(active))
	for _, inst := range active {
		views = append(views, viewOf(inst))
	}
	ids := a.catalog.IDs()
	arch := make([]archetypeView, 0, len(ids))
	for _, id := range ids {
		arch = append(arch, archetypeView{ID: id, Enabled: a.catalog.Enabled(id), Weight: a.catalog.Weight(id)})
	}
	writeOK(rw, map[string]any{
		"stats":          a.director.Stats(),
		"active":         views,
		"active_by_zone": a.director.ActiveByZone(),
		"archetypes":     arch,
		"events_digest":  a.catalog.Digest,
	})
}

func (a *adminAPI) handleDebug(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = rw.Write([]byte(strings.Join(a.director.DebugLines(), "\n") + "\n"))
}

func (a *adminAPI) handleBalance(rw http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("player"))
	if id == "" {
		writeErr(rw, http.StatusBadRequest, protocol.ErrBadRequest, "missing player")
		return
	}
	writeOK(rw, map[string]any{"player": id, "balance": a.ledger.Balance(id)})
}

type spawnRequest struct {
	Archetype string `json:"archetype"`
	// Near resolves a spawn point around this player.
	Near string `json:"near,omitempty"`
	// At spawns exactly here; world defaults to the default world.
	At *world.Location `json:"at,omitempty"`
}

func (a *adminAPI) handleSpawn(rw http.ResponseWriter, r *http.Request) {
	var req spawnRequest
	if !decodeBody(rw, r, &req) {
		return
	}
	var (
		inst *director.Instance
		err  error
	)
	switch {
	case req.Archetype == "":
		inst, err = a.director.ForceRandomSpawn()
	case req.At != nil:
		loc := *req.At
		if loc.World == "" {
			loc.World = world.DefaultWorld
		}
		inst, err = a.director.ForceSpawn(req.Archetype, loc)
	case req.Near != "":
		inst, err = a.director.ForceSpawnNear(req.Archetype, req.Near)
	default:
		writeErr(rw, http.StatusBadRequest, protocol.ErrBadRequest, "need at or near with an archetype")
		return
	}
	if err != nil {
		writeDirectorErr(rw, err)
		return
	}
	a.logf("admin spawn id=%s archetype=%s", inst.ID(), inst.Archetype().ID)
	writeOK(rw, map[string]any{"instance": viewOf(inst)})
}

func (a *adminAPI) handleInstance(rw http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	inst, ok := a.director.Get(id)
	if !ok {
		writeDirectorErr(rw, fmt.Errorf("%s: %w", id, director.ErrNotFound))
		return
	}
	writeOK(rw, map[string]any{"instance": viewOf(inst)})
}

func (a *adminAPI) handleStop(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !decodeBody(rw, r, &req) {
		return
	}
	if err := a.director.Stop(req.ID); err != nil {
		writeDirectorErr(rw, err)
		return
	}
	writeOK(rw, map[string]any{"stopped": req.ID})
}

func (a *adminAPI) handleStopAll(rw http.ResponseWriter, r *http.Request) {
	writeOK(rw, map[string]any{"stopped": a.director.StopAll()})
}

func (a *adminAPI) handleToggle(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		Archetype string `json:"archetype,omitempty"`
		Enabled   *bool  `json:"enabled"`
	}
	if !decodeBody(rw, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeErr(rw, http.StatusBadRequest, protocol.ErrBadRequest, "missing enabled")
		return
	}
	if req.Archetype == "" {
		a.director.SetEnabled(*req.Enabled)
		a.logf("admin director enabled=%v", *req.Enabled)
		writeOK(rw, map[string]any{"enabled": *req.Enabled})
		return
	}
	if err := a.director.SetArchetypeEnabled(req.Archetype, *req.Enabled); err != nil {
		writeDirectorErr(rw, err)
		return
	}
	a.logf("admin archetype=%s enabled=%v", req.Archetype, *req.Enabled)
	writeOK(rw, map[string]any{"archetype": req.Archetype, "enabled": *req.Enabled})
}

func (a *adminAPI) handleInterval(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		MinTicks uint64 `json:"min_ticks"`
		MaxTicks uint64 `json:"max_ticks"`
	}
	if !decodeBody(rw, r, &req) {
		return
	}
	if err := a.director.SetInterval(req.MinTicks, req.MaxTicks); err != nil {
		writeErr(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
		return
	}
	writeOK(rw, map[string]any{"min_ticks": req.MinTicks, "max_ticks": req.MaxTicks})
}

func (a *adminAPI) handleZones(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxPerZone     *int  `json:"max_events_per_zone"`
		InverseScaling *bool `json:"inverse_scaling"`
	}
	if !decodeBody(rw, r, &req) {
		return
	}
	if req.MaxPerZone == nil && req.InverseScaling == nil {
		writeErr(rw, http.StatusBadRequest, protocol.ErrBadRequest, "nothing to change")
		return
	}
	if req.MaxPerZone != nil {
		if err := a.director.SetMaxEventsPerZone(*req.MaxPerZone); err != nil {
			writeErr(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
			return
		}
	}
	if req.InverseScaling != nil {
		a.director.SetInverseScaling(*req.InverseScaling)
	}
	cfg := a.director.Config()
	writeOK(rw, map[string]any{"max_events_per_zone": cfg.MaxEventsPerZone, "inverse_scaling": cfg.InverseScaling})
}

func (a *adminAPI) handleWeight(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		Archetype string  `json:"archetype"`
		Weight    float64 `json:"weight"`
	}
	if !decodeBody(rw, r, &req) {
		return
	}
	if _, ok := a.catalog.Get(req.Archetype); !ok {
		writeErr(rw, http.StatusNotFound, protocol.ErrUnknownType, "unknown archetype "+req.Archetype)
		return
	}
	// Zero clears the override.
	if req.Weight == 0 {
		a.catalog.ClearWeightOverride(req.Archetype)
	} else if err := a.catalog.SetWeightOverride(req.Archetype, req.Weight); err != nil {
		writeErr(rw, http.StatusBadRequest, protocol.ErrBadRequest, err.Error())
		return
	}
	writeOK(rw, map[string]any{"archetype": req.Archetype, "weight": a.catalog.Weight(req.Archetype)})
}

func (a *adminAPI) logf(format string, args ...any) {
	if a.log != nil {
		a.log.Printf(format, args...)
	}
}

func decodeBody(rw http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(http.MaxBytesReader(rw, r.Body, 64*1024)).Decode(v); err != nil {
		writeErr(rw, http.StatusBadRequest, protocol.ErrBadRequest, "bad json: "+err.Error())
		return false
	}
	return true
}

func writeOK(rw http.ResponseWriter, body map[string]any) {
	body["ok"] = true
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(body)
}

func writeErr(rw http.ResponseWriter, status int, code, msg string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(map[string]any{"ok": false, "code": code, "error": msg})
}

func writeDirectorErr(rw http.ResponseWriter, err error) {
	code := director.ErrorCode(err)
	status := http.StatusUnprocessableEntity
	switch {
	case errors.Is(err, director.ErrNotFound), errors.Is(err, director.ErrUnknownPlayer), errors.Is(err, director.ErrUnknownArchetype):
		status = http.StatusNotFound
	case errors.Is(err, director.ErrEnded), errors.Is(err, director.ErrShutdown), errors.Is(err, director.ErrDisabled):
		status = http.StatusConflict
	case code == protocol.ErrInternal:
		status = http.StatusInternalServerError
	}
	writeErr(rw, status, code, err.Error())
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
