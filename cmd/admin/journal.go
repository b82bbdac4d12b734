package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	persistlog "worldevents.ai/internal/persistence/log"
	"worldevents.ai/internal/sim/director"
)

func journalCmd(args []string) {
	fs := flag.NewFlagSet("journal", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	archetype := fs.String("archetype", "", "archetype filter")
	transition := fs.String("transition", "", "transition filter (SPAWNED, COMPLETED, FAILED, STOPPED, FAULTED)")
	sinceTick := fs.Uint64("since_tick", 0, "skip entries before this tick")
	_ = fs.Parse(args)

	files, err := persistlog.JournalFiles(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "list:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "no journal files under", *dataDir)
		os.Exit(2)
	}
	match := journalFilter(*archetype, *transition, *sinceTick)
	for _, path := range files {
		err := persistlog.ReadJournal(path, func(e director.LifecycleEntry) bool {
			if match(e) {
				printJSON(e)
			}
			return true
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "read:", err)
			os.Exit(1)
		}
	}
}

func journalFilter(archetype, transition string, sinceTick uint64) func(director.LifecycleEntry) bool {
	archetype = strings.TrimSpace(archetype)
	transition = strings.ToUpper(strings.TrimSpace(transition))
	return func(e director.LifecycleEntry) bool {
		if e.Tick < sinceTick {
			return false
		}
		if archetype != "" && e.Archetype != archetype {
			return false
		}
		if transition != "" && e.Transition != transition {
			return false
		}
		return true
	}
}
