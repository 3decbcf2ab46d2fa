package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"oraclequest/cmd"
	"oraclequest/config"
	"oraclequest/database"

	log "github.com/sirupsen/logrus"
)

func main() {
	setupLogging()

	// Check for migration subcommands
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := handleMigrationCommand(); err != nil {
			log.Fatal("Migration error: ", err)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	run := cmd.Run
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "treeservice":
			run = cmd.RunTreeService
		case "compressed":
			run = func(ctx context.Context) error { return cmd.RunCompressed(ctx, os.Args[2:]) }
		}
	}

	if err := run(ctx); err != nil {
		log.Fatal("Application error: ", err)
	}
}

func setupLogging() {
	cfg := config.Get()

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: oraclequest migrate [up|down|status] [args...]")
	}

	databaseURL := config.Get().GetDatabaseURL()
	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp(databaseURL)
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(databaseURL, steps)
	case "status":
		return database.MigrateStatus(databaseURL)
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}
