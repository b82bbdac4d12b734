package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/index/events.sqlite)")
	limit := fs.Int("limit", 20, "result limit")
	archetype := fs.String("archetype", "", "archetype filter (lifecycles)")
	instance := fs.String("instance", "", "instance id filter (lifecycles)")
	player := fs.String("player", "", "player id filter (grants, totals)")
	_ = fs.Parse(args)

	q := "lifecycles"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "events.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	if *limit <= 0 {
		*limit = 20
	}

	var rows []any
	switch q {
	case "lifecycles":
		rs, err := queryLifecycles(db, lifecycleFilter{Archetype: *archetype, InstanceID: *instance, Limit: *limit})
		err = collect(rs, err, &rows)
		exitOn(err)
	case "grants":
		rs, err := queryGrants(db, *player, *limit)
		err = collect(rs, err, &rows)
		exitOn(err)
	case "totals":
		rs, err := queryTotals(db, *player, *limit)
		err = collect(rs, err, &rows)
		exitOn(err)
	case "catalogs":
		rs, err := queryCatalogs(db)
		err = collect(rs, err, &rows)
		exitOn(err)
	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q)
		os.Exit(2)
	}
	for _, r := range rows {
		printJSON(r)
	}
}

type lifecycleRow struct {
	Tick         int64   `json:"tick"`
	InstanceID   string  `json:"instance_id"`
	Transition   string  `json:"transition"`
	Archetype    string  `json:"archetype"`
	ZoneID       int     `json:"zone_id"`
	World        string  `json:"world"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	Z            float64 `json:"z"`
	Participants int     `json:"participants"`
	Reason       string  `json:"reason,omitempty"`
	PointsEach   int     `json:"points_each"`
	XPEach       int     `json:"xp_each"`
}

type lifecycleFilter struct {
	Archetype  string
	InstanceID string
	Limit      int
}

func queryLifecycles(db *sql.DB, f lifecycleFilter) ([]lifecycleRow, error) {
	q := `SELECT tick,instance_id,transition,archetype,zone_id,world,x,y,z,participants,COALESCE(reason,''),points_each,xp_each FROM lifecycles`
	var where []string
	var args []any
	if a := strings.TrimSpace(f.Archetype); a != "" {
		where = append(where, "archetype=?")
		args = append(args, a)
	}
	if id := strings.TrimSpace(f.InstanceID); id != "" {
		where = append(where, "instance_id=?")
		args = append(args, id)
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY tick DESC, instance_id LIMIT ?"
	args = append(args, f.Limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []lifecycleRow
	for rows.Next() {
		var r lifecycleRow
		if err := rows.Scan(&r.Tick, &r.InstanceID, &r.Transition, &r.Archetype, &r.ZoneID, &r.World, &r.X, &r.Y, &r.Z, &r.Participants, &r.Reason, &r.PointsEach, &r.XPEach); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type grantRow struct {
	Seq        int64  `json:"seq"`
	Tick       int64  `json:"tick"`
	PlayerID   string `json:"player_id"`
	Kind       string `json:"kind"`
	Amount     int    `json:"amount"`
	RecordedAt string `json:"recorded_at"`
}

func queryGrants(db *sql.DB, player string, limit int) ([]grantRow, error) {
	q := `SELECT seq,tick,player_id,kind,amount,recorded_at FROM grants`
	var args []any
	if p := strings.TrimSpace(player); p != "" {
		q += " WHERE player_id=?"
		args = append(args, p)
	}
	q += " ORDER BY seq DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []grantRow
	for rows.Next() {
		var r grantRow
		if err := rows.Scan(&r.Seq, &r.Tick, &r.PlayerID, &r.Kind, &r.Amount, &r.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type totalRow struct {
	PlayerID   string `json:"player_id"`
	Points     int    `json:"points"`
	Experience int    `json:"experience"`
}

// queryTotals sums grants per player, highest points first.
func queryTotals(db *sql.DB, player string, limit int) ([]totalRow, error) {
	q := `SELECT player_id,
		COALESCE(SUM(CASE WHEN kind='points' THEN amount END),0),
		COALESCE(SUM(CASE WHEN kind='experience' THEN amount END),0)
		FROM grants`
	var args []any
	if p := strings.TrimSpace(player); p != "" {
		q += " WHERE player_id=?"
		args = append(args, p)
	}
	q += " GROUP BY player_id ORDER BY 2 DESC, player_id LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []totalRow
	for rows.Next() {
		var r totalRow
		if err := rows.Scan(&r.PlayerID, &r.Points, &r.Experience); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type catalogRow struct {
	Name      string `json:"name"`
	Digest    string `json:"digest"`
	UpdatedAt string `json:"updated_at"`
}

func queryCatalogs(db *sql.DB) ([]catalogRow, error) {
	rows, err := db.Query(`SELECT name,digest,updated_at FROM catalogs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []catalogRow
	for rows.Next() {
		var r catalogRow
		if err := rows.Scan(&r.Name, &r.Digest, &r.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func collect[T any](rs []T, err error, out *[]any) error {
	if err != nil {
		return err
	}
	for _, r := range rs {
		*out = append(*out, r)
	}
	return nil
}

func exitOn(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
