// Command vad retrieves a horizontal wind profile from a PPI scan of
// radial winds using velocity-azimuth display fitting.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/windprofile/internal/db"
	"github.com/banshee-data/windprofile/internal/version"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(os.Args[2:])
		return
	}

	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}
	if opts.showVersion {
		fmt.Println(version.String("vad"))
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		log.Fatalf("vad: %v", err)
	}
}

func runMigrate(args []string) {
	dbPath := "windprofile.db"
	if len(args) >= 2 && args[0] == "-db" {
		dbPath, args = args[1], args[2:]
	}
	if err := db.RunMigrateCommand(args, dbPath, os.Stdout); err != nil {
		log.Fatalf("migrate: %v", err)
	}
}
