package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	args := os.Args[2:]
	switch os.Args[1] {
	case "state":
		stateCmd(args)
	case "debug":
		debugCmd(args)
	case "balance":
		balanceCmd(args)
	case "instance":
		instanceCmd(args)
	case "spawn":
		spawnCmd(args)
	case "stop":
		stopCmd(args)
	case "stop-all":
		stopAllCmd(args)
	case "toggle":
		toggleCmd(args)
	case "interval":
		intervalCmd(args)
	case "zones":
		zonesCmd(args)
	case "weight":
		weightCmd(args)
	case "db":
		dbCmd(args)
	case "journal":
		journalCmd(args)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: admin <command> [flags]

live server (loopback admin http):
  state                              director stats, active instances, archetypes
  debug                              operator dump
  balance -player ID                 reward totals for a player
  instance -id INSTANCE              one active instance
  spawn [-archetype ID] [-at x,y,z | -near PLAYER] [-world W]
  stop -id INSTANCE
  stop-all
  toggle [-archetype ID] -enabled=true|false
  interval -min TICKS -max TICKS
  weight -archetype ID -weight W     (0 clears the override)
  zones [-max N] [-inverse=true|false]  per-zone cap and population scaling

offline:
  db [lifecycles|grants|totals|catalogs]   query the sqlite index
  journal                                  print the lifecycle journal`)
}
