// sessionctl inspects and prunes the session snapshot store.
//
//	sessionctl -list
//	sessionctl -show <session-id>
//	sessionctl -purge <session-id>
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"server/internal/adapter/repo"
	"server/internal/infra"
	"server/internal/session"
	"server/internal/storage"
)

func main() {
	var (
		listFlag  bool
		showFlag  string
		purgeFlag string
		storeFlag string
		pathFlag  string
		dirFlag   string
	)

	flag.BoolVar(&listFlag, "list", false, "list stored session snapshots")
	flag.StringVar(&showFlag, "show", "", "print the snapshot record for a session ID")
	flag.StringVar(&purgeFlag, "purge", "", "delete the snapshot record for a session ID")
	flag.StringVar(&storeFlag, "store", "", "snapshot store kind, sqlite or fs (defaults to SNAPSHOT_STORE or sqlite)")
	flag.StringVar(&pathFlag, "db", "", "path to the snapshot database (defaults to SQLITE_PATH or ./data/sessions.db)")
	flag.StringVar(&dirFlag, "dir", "", "snapshot directory for the fs store (defaults to SNAPSHOT_DIR or ./data/snapshots)")
	flag.Parse()

	if !listFlag && showFlag == "" && purgeFlag == "" {
		exitWithError(errors.New("one of -list, -show or -purge must be provided"))
	}

	store, err := openStore(storeFlag, pathFlag, dirFlag)
	if err != nil {
		exitWithError(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch {
	case listFlag:
		entries, err := store.List(ctx)
		if err != nil {
			exitWithError(fmt.Errorf("failed to list snapshots: %w", err))
		}
		if len(entries) == 0 {
			fmt.Println("no snapshots stored")
			return
		}
		for _, e := range entries {
			fmt.Printf("%s  %8d bytes  %s\n", e.SessionID, e.Bytes, e.UpdatedAt.Format(time.RFC3339))
		}

	case showFlag != "":
		record, err := store.Get(ctx, showFlag)
		if err != nil {
			exitWithError(fmt.Errorf("failed to load snapshot: %w", err))
		}
		snap, err := session.DecodeSnapshot(record)
		if err != nil {
			exitWithError(fmt.Errorf("snapshot record is corrupt: %w", err))
		}
		out, err := json.MarshalIndent(summarize(snap), "", "  ")
		if err != nil {
			exitWithError(err)
		}
		fmt.Println(string(out))

	case purgeFlag != "":
		if err := store.Delete(ctx, purgeFlag); err != nil {
			exitWithError(fmt.Errorf("failed to purge snapshot: %w", err))
		}
		fmt.Printf("snapshot %s purged\n", purgeFlag)
	}
}

// summarize trims thumbnail payloads down to their sizes so -show stays
// readable.
func summarize(snap *session.Snapshot) map[string]any {
	sizes := make([]int, len(snap.History))
	for i, entry := range snap.History {
		sizes[i] = len(entry)
	}
	return map[string]any{
		"historyIndex": snap.HistoryIndex,
		"entries":      len(snap.History),
		"entrySizes":   sizes,
		"prompt":       snap.Prompt,
		"activeTab":    snap.ActiveTab,
	}
}

func openStore(kind, dbPath, dir string) (session.Store, error) {
	if kind == "" {
		kind = os.Getenv("SNAPSHOT_STORE")
	}
	switch kind {
	case "fs":
		if dir == "" {
			dir = os.Getenv("SNAPSHOT_DIR")
		}
		if dir == "" {
			dir = "./data/snapshots"
		}
		return storage.NewFileStore(dir, repo.DefaultMaxRecordBytes)
	case "", "sqlite":
		if dbPath == "" {
			dbPath = os.Getenv("SQLITE_PATH")
		}
		if dbPath == "" {
			dbPath = "./data/sessions.db"
		}
		db, err := infra.OpenDB(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot database: %w", err)
		}
		return repo.NewSnapshotRepo(db, repo.DefaultMaxRecordBytes), nil
	default:
		return nil, fmt.Errorf("unsupported store kind %q", kind)
	}
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
