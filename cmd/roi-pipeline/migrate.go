package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/banshee-data/roi-relay/internal/db"
)

func runMigrate(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	dbPath := fs.String("db", "", "SQLite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dbPath == "" {
		return errors.New("--db is required")
	}
	if fs.NArg() != 1 {
		return errors.New("expected one action: up, down or status")
	}

	// Migrations manage the schema, so open without initialising it.
	database, err := db.OpenDB(*dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	switch action := fs.Arg(0); action {
	case "up":
		if err := database.MigrateUp(); err != nil {
			return err
		}
	case "down":
		if err := database.MigrateDown(); err != nil {
			return err
		}
	case "status":
	default:
		return fmt.Errorf("unknown migrate action: %s", action)
	}

	version, dirty, err := database.MigrateVersion()
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Current version: %d (latest %d)\n", version, db.LatestSchemaVersion)
	fmt.Fprintf(stdout, "Dirty: %v\n", dirty)
	if dirty {
		fmt.Fprintln(stdout, "WARNING: a migration failed mid-execution; inspect the database before retrying.")
	}
	return nil
}
