// Package main is the entry point for the Academia database migration tool.
// This tool applies the embedded PostgreSQL or SQLite schema migrations.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/academia/internal/app"
	"github.com/prn-tf/academia/internal/config"
	"github.com/prn-tf/academia/internal/repository"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "version":
		fmt.Printf("Academia Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up":
		exitOnError(withDatabase(func(ctx context.Context, db repository.Database) error {
			before, err := db.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			after, err := db.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			if after == before {
				fmt.Printf("Schema is up to date (version %d)\n", after)
				return nil
			}
			fmt.Printf("Migrated schema from version %d to %d\n", before, after)
			return nil
		}))

	case "status":
		exitOnError(withDatabase(func(ctx context.Context, db repository.Database) error {
			version, err := db.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Current schema version: %d\n", version)
			return nil
		}))

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func withDatabase(fn func(ctx context.Context, db repository.Database) error) error {
	cfg, err := config.Load(os.Getenv("ACADEMIA_CONFIG"))
	if err != nil {
		return err
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := app.OpenDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info().Str("driver", cfg.Database.Driver).Msg("connected to database")
	return fn(ctx, db)
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Academia Migration Tool

Usage:
  academia-migrate <command>

Commands:
  up          Run all pending migrations
  status      Show current migration status
  version     Print version information
  help        Show this help message

Environment Variables:
  ACADEMIA_CONFIG             Path to the configuration file
  ACADEMIA_DATABASE_DRIVER    postgres or sqlite
  ACADEMIA_DATABASE_PATH      SQLite database file

Examples:
  academia-migrate up
  ACADEMIA_DATABASE_DRIVER=postgres academia-migrate status`)
}
