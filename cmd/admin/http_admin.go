package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

func serverFlag(fs *flag.FlagSet) *string {
	return fs.String("url", "http://127.0.0.1:8080", "server base url")
}

func adminURL(base, path string) string {
	return strings.TrimRight(strings.TrimSpace(base), "/") + "/admin/v1/" + path
}

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := serverFlag(fs)
	_ = fs.Parse(args)
	get(adminURL(*baseURL, "state"))
}

func debugCmd(args []string) {
	fs := flag.NewFlagSet("debug", flag.ExitOnError)
	baseURL := serverFlag(fs)
	_ = fs.Parse(args)
	get(adminURL(*baseURL, "debug"))
}

func balanceCmd(args []string) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	baseURL := serverFlag(fs)
	player := fs.String("player", "", "player id")
	_ = fs.Parse(args)
	if strings.TrimSpace(*player) == "" {
		fmt.Fprintln(os.Stderr, "missing -player")
		os.Exit(2)
	}
	get(adminURL(*baseURL, "balance") + "?player=" + url.QueryEscape(*player))
}

func instanceCmd(args []string) {
	fs := flag.NewFlagSet("instance", flag.ExitOnError)
	baseURL := serverFlag(fs)
	id := fs.String("id", "", "instance id")
	_ = fs.Parse(args)
	if strings.TrimSpace(*id) == "" {
		fmt.Fprintln(os.Stderr, "missing -id")
		os.Exit(2)
	}
	get(adminURL(*baseURL, "instances/"+url.PathEscape(strings.TrimSpace(*id))))
}

func spawnCmd(args []string) {
	fs := flag.NewFlagSet("spawn", flag.ExitOnError)
	baseURL := serverFlag(fs)
	archetype := fs.String("archetype", "", "archetype id (empty: let the director pick)")
	at := fs.String("at", "", "exact location x,y,z")
	near := fs.String("near", "", "player id to spawn around")
	worldID := fs.String("world", "", "world for -at (default: overworld)")
	_ = fs.Parse(args)

	body, err := spawnBody(*archetype, *at, *near, *worldID)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	post(adminURL(*baseURL, "spawn"), body)
}

// spawnBody builds the /admin/v1/spawn request from CLI flags.
func spawnBody(archetype, at, near, worldID string) (map[string]any, error) {
	archetype = strings.TrimSpace(archetype)
	at = strings.TrimSpace(at)
	near = strings.TrimSpace(near)
	body := map[string]any{}
	if archetype == "" {
		if at != "" || near != "" {
			return nil, fmt.Errorf("-at and -near need -archetype")
		}
		return body, nil
	}
	body["archetype"] = archetype
	switch {
	case at != "" && near != "":
		return nil, fmt.Errorf("use either -at or -near")
	case at != "":
		pos, err := parseVec3(at)
		if err != nil {
			return nil, fmt.Errorf("bad -at: %w", err)
		}
		body["at"] = map[string]any{"world": strings.TrimSpace(worldID), "x": pos[0], "y": pos[1], "z": pos[2]}
	case near != "":
		body["near"] = near
	default:
		return nil, fmt.Errorf("missing -at or -near")
	}
	return body, nil
}

func parseVec3(s string) ([3]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return [3]float64{}, fmt.Errorf("expected x,y,z")
	}
	var out [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return [3]float64{}, err
		}
		out[i] = v
	}
	return out, nil
}

func stopCmd(args []string) {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	baseURL := serverFlag(fs)
	id := fs.String("id", "", "instance id")
	_ = fs.Parse(args)
	if strings.TrimSpace(*id) == "" {
		fmt.Fprintln(os.Stderr, "missing -id")
		os.Exit(2)
	}
	post(adminURL(*baseURL, "stop"), map[string]any{"id": strings.TrimSpace(*id)})
}

func stopAllCmd(args []string) {
	fs := flag.NewFlagSet("stop-all", flag.ExitOnError)
	baseURL := serverFlag(fs)
	_ = fs.Parse(args)
	post(adminURL(*baseURL, "stop-all"), nil)
}

func toggleCmd(args []string) {
	fs := flag.NewFlagSet("toggle", flag.ExitOnError)
	baseURL := serverFlag(fs)
	archetype := fs.String("archetype", "", "archetype id (empty: the whole director)")
	enabled := fs.Bool("enabled", true, "enable or disable")
	_ = fs.Parse(args)
	body := map[string]any{"enabled": *enabled}
	if a := strings.TrimSpace(*archetype); a != "" {
		body["archetype"] = a
	}
	post(adminURL(*baseURL, "toggle"), body)
}

func intervalCmd(args []string) {
	fs := flag.NewFlagSet("interval", flag.ExitOnError)
	baseURL := serverFlag(fs)
	minTicks := fs.Uint64("min", 0, "minimum ticks between events")
	maxTicks := fs.Uint64("max", 0, "maximum ticks between events")
	_ = fs.Parse(args)
	post(adminURL(*baseURL, "interval"), map[string]any{"min_ticks": *minTicks, "max_ticks": *maxTicks})
}

func zonesCmd(args []string) {
	fs := flag.NewFlagSet("zones", flag.ExitOnError)
	baseURL := serverFlag(fs)
	maxPerZone := fs.Int("max", 0, "max concurrent events per zone")
	inverse := fs.Bool("inverse", false, "log2 population weighting instead of linear")
	_ = fs.Parse(args)
	body, err := zonesBody(fs, *maxPerZone, *inverse)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	post(adminURL(*baseURL, "zones"), body)
}

// zonesBody sends only the flags given on the command line.
func zonesBody(fs *flag.FlagSet, maxPerZone int, inverse bool) (map[string]any, error) {
	body := map[string]any{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "max":
			body["max_events_per_zone"] = maxPerZone
		case "inverse":
			body["inverse_scaling"] = inverse
		}
	})
	if len(body) == 0 {
		return nil, fmt.Errorf("zones: set -max and/or -inverse")
	}
	return body, nil
}

func weightCmd(args []string) {
	fs := flag.NewFlagSet("weight", flag.ExitOnError)
	baseURL := serverFlag(fs)
	archetype := fs.String("archetype", "", "archetype id")
	weight := fs.Float64("weight", 0, "spawn weight override (0 clears)")
	_ = fs.Parse(args)
	post(adminURL(*baseURL, "weight"), map[string]any{"archetype": strings.TrimSpace(*archetype), "weight": *weight})
}

func get(u string) {
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	finish(resp)
}

func post(u string, body map[string]any) {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			fmt.Fprintln(os.Stderr, "encode:", err)
			os.Exit(1)
		}
		rdr = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(http.MethodPost, u, rdr)
	req.Header.Set("content-type", "application/json")
	cl := &http.Client{Timeout: 10 * time.Second}
	resp, err := cl.Do(req)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	finish(resp)
}

func finish(resp *http.Response) {
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Print(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
