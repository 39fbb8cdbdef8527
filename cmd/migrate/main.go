// Package main implements the database migration utility for inboxd.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/inboxlab/inboxd/internal/infrastructure/migrate"
)

const defaultMigrationsPath = "./migrations"

func main() {
	_ = godotenv.Load()

	var migrationsPath string
	flag.StringVar(&migrationsPath, "path", defaultMigrationsPath, "Path to migrations directory")
	flag.Parse()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	args := flag.Args()
	if len(args) == 0 {
		log.Fatal("Please specify a command: up, down, or version")
	}

	runner := migrate.NewRunner(&migrate.Config{
		DatabaseURL:    databaseURL,
		MigrationsPath: migrationsPath,
	})

	switch args[0] {
	case "up":
		if err := runner.Run(); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		printVersion(runner)

	case "down":
		if err := runner.Rollback(); err != nil {
			log.Fatalf("Failed to rollback migration: %v", err)
		}
		printVersion(runner)

	case "version":
		printVersion(runner)

	default:
		log.Fatalf("Unknown command %q (expected up, down, or version)", args[0])
	}
}

func printVersion(runner *migrate.Runner) {
	version, dirty, err := runner.Version()
	if err != nil {
		log.Fatalf("Failed to get migration version: %v", err)
	}
	if dirty {
		fmt.Printf("WARNING: database is in dirty state at version %d\n", version)
		return
	}
	fmt.Printf("Current migration version: %d\n", version)
}
