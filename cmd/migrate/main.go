// Package main applies or rolls back database migrations.
//
// Usage:
//
//	migrate up
//	migrate down [-steps N]
//	migrate version
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
)

func main() {
	configPath := flag.String("config", "./configs", "directory containing app.env")
	steps := flag.Int("steps", 1, "number of migrations to roll back")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatal().Err(err).Msg("cannot load .env")
	}

	config, err := configpkg.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	switch cmd := flag.Arg(0); cmd {
	case "up":
		err = dbpkg.MigrateUp(config.DBDriver, config.DBSource)
	case "down":
		err = dbpkg.MigrateDown(config.DBDriver, config.DBSource, *steps)
	case "version":
		var (
			version uint
			dirty   bool
		)

		version, dirty, err = dbpkg.MigrationVersion(config.DBDriver, config.DBSource)
		if err == nil {
			fmt.Printf("version %d, dirty %t\n", version, dirty)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q, want up, down or version\n", cmd)
		os.Exit(2)
	}

	if err != nil {
		logger.Fatal().Err(err).Msg("migration failed")
	}

	logger.Info().Str("command", flag.Arg(0)).Msg("migration finished")
}
