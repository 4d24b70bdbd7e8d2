// Command kaskade-reconcile is a read-only operator diagnostic: it lists
// every RESERVED batch older than -age, a companion to recover_uncommitted
// rather than a replacement for it.
//
// Usage:
//
//	kaskade-reconcile -db kaskade_dev.db -age 30s
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/0xphen/kaskade/internal/store"
)

func main() {
	dbPath := flag.String("db", "kaskade_dev.db", "path to the sqlite database file")
	age := flag.Duration("age", time.Minute, "report RESERVED batches older than this")
	flag.Parse()

	repo, err := store.Open(*dbPath, zerolog.Nop())
	if err != nil {
		exitf("open database: %v", err)
	}
	defer repo.Close()

	nowMs := uint64(time.Now().UnixMilli())
	stale, err := repo.ListStaleReserved(nowMs, uint64(age.Milliseconds()))
	if err != nil {
		exitf("list stale reserved batches: %v", err)
	}

	if len(stale) == 0 {
		fmt.Println("no stale RESERVED batches found")
		return
	}

	fmt.Printf("%-36s  %-12s  %10s  %s\n", "BATCH ID", "PAIR", "AGE", "PENDING ITEMS")
	for _, b := range stale {
		fmt.Printf("%-36s  %-12s  %10s  %d\n", b.BatchID, b.PairID, time.Duration(b.AgeMs)*time.Millisecond, b.PendingItems)
	}
}

func exitf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "kaskade-reconcile: "+format+"\n", a...)
	os.Exit(1)
}
