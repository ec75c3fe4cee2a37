// Package main is the entry point for the Meridian Accounts migration tool.
// This tool manages schema migrations for both database backends.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/prn-tf/meridian-accounts/internal/config"
	"github.com/prn-tf/meridian-accounts/internal/repository/postgres"
	"github.com/prn-tf/meridian-accounts/internal/repository/sqlite"
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
		fmt.Printf("Meridian Accounts Migration Tool\n")
		fmt.Printf("Version: %s\n", Version)
		fmt.Printf("Build Time: %s\n", BuildTime)
		fmt.Printf("Git Commit: %s\n", GitCommit)

	case "up":
		runUp(os.Args[2:])

	case "status":
		runStatus(os.Args[2:])

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Meridian Accounts Migration Tool

Usage:
  meridian-migrate <command> [arguments]

Commands:
  up          Run all pending migrations
  status      Show current migration status
  version     Print version information
  help        Show this help message

Configuration is read the same way the server reads it: a YAML file
(--config) plus MERIDIAN_-prefixed environment variables.`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func loadConfig(args []string, name string) *config.Config {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	return cfg
}

func runUp(args []string) {
	cfg := loadConfig(args, "up")
	ctx := context.Background()
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:            cfg.Database.Path,
			MaxOpenConns:    1,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			JournalMode:     cfg.Database.JournalMode,
			BusyTimeout:     cfg.Database.BusyTimeout,
			SynchronousMode: cfg.Database.SynchronousMode,
		}, logger)
		if err != nil {
			fatal(err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			fatal(err)
		}

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			fatal(err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			fatal(err)
		}

	default:
		fatal(fmt.Errorf("unsupported database driver %q", cfg.Database.Driver))
	}

	fmt.Println("Migrations applied.")
}

func runStatus(args []string) {
	cfg := loadConfig(args, "status")
	ctx := context.Background()
	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)

	var version int64
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.Config{
			Path:            cfg.Database.Path,
			MaxOpenConns:    1,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			JournalMode:     cfg.Database.JournalMode,
			BusyTimeout:     cfg.Database.BusyTimeout,
			SynchronousMode: cfg.Database.SynchronousMode,
		}, logger)
		if err != nil {
			fatal(err)
		}
		defer db.Close()
		version, err = db.MigrationVersion(ctx)
		if err != nil {
			fatal(err)
		}

	case "postgres":
		db, err := postgres.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			fatal(err)
		}
		defer db.Close()
		version, err = db.MigrationVersion(ctx)
		if err != nil {
			fatal(err)
		}

	default:
		fatal(fmt.Errorf("unsupported database driver %q", cfg.Database.Driver))
	}

	fmt.Printf("Driver:  %s\n", cfg.Database.Driver)
	fmt.Printf("Version: %d\n", version)
}
