package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/appetiteclub/tableside/services/guest/cmd/utils/internal/commands"
	"github.com/appetiteclub/tableside/services/guest/internal/app"
	"github.com/aquamarinepk/aqm"
	"github.com/joho/godotenv"
)

const (
	appName    = "tableside-utils"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)
		return
	case "help", "-h", "--help":
		printUsage()
		return
	}

	_ = godotenv.Load()

	// Shares the GUEST namespace so the CLI reads the same store the service writes.
	config, err := aqm.LoadConfig("GUEST", os.Args[2:])
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel, _ := config.GetString("log.level")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := aqm.NewLogger(logLevel)

	terminalID, _ := config.GetString("terminal.id")
	if terminalID == "" {
		terminalID = "terminal-1"
	}

	ctx := context.Background()

	store, lifecycle, err := app.NewStateStore(config, logger)
	if err != nil {
		log.Fatalf("Cannot create state store: %v", err)
	}
	if lifecycle != nil {
		if err := lifecycle.Start(ctx); err != nil {
			log.Fatalf("Cannot open state store: %v", err)
		}
		defer lifecycle.Stop(ctx)
	}

	switch command {
	case "show-state":
		if err := commands.ShowState(ctx, os.Stdout, store, terminalID); err != nil {
			log.Fatalf("Show state failed: %v", err)
		}

	case "reset-state":
		if err := commands.ResetState(ctx, store, terminalID, logger); err != nil {
			log.Fatalf("Reset state failed: %v", err)
		}
		logger.Info("Terminal state reset", "terminal_id", terminalID)

	case "seed-demo":
		if err := commands.SeedDemo(ctx, store, terminalID, logger); err != nil {
			log.Fatalf("Demo seeding failed: %v", err)
		}
		logger.Info("Demo state written", "terminal_id", terminalID)

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - Tableside terminal utility commands

Usage:
  %s <command> [options]

Commands:
  show-state   Print the persisted session, cart and rounds of a terminal
  reset-state  Delete the persisted state of a terminal (guest loses cart and rounds)
  seed-demo    Write a demo session with a cart and two rounds
  version      Print version information
  help         Show this help message

Environment Variables:
  GUEST_TERMINAL_ID         Terminal to operate on (default: terminal-1)
  GUEST_STORE_DRIVER        sqlite, mongo or memory (default: sqlite)
  GUEST_STORE_SQLITE_PATH   SQLite file (default: tableside.db)
  GUEST_DB_MONGO_URL        MongoDB connection URL
  GUEST_LOG_LEVEL           Log level: debug, info, warn, error (default: info)

Examples:
  %s show-state
  GUEST_TERMINAL_ID=terminal-7 %s reset-state

`, appName, appName, appName, appName)
}
