// Package main runs the ledger API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/go-petr/pet-ledger/cmd/httpserver"
	"github.com/go-petr/pet-ledger/internal/mailer"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/internal/userservice"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A .env file is optional; real environment variables win over app.env either way.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatal().Err(err).Msg("cannot load .env")
	}

	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	if config.MigrateOnStart {
		if err := dbpkg.MigrateUp(config.DBDriver, config.DBSource); err != nil {
			logger.Fatal().Err(err).Msg("cannot run migrations")
		}
	}

	db, err := dbpkg.Setup(config.DBDriver, config.DBSource)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to database")
	}
	defer db.Close()

	var sender userservice.OTPSender = mailer.LogSender{}

	if config.AMQPURL != "" {
		queue, err := mailer.NewQueue(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			logger.Fatal().Err(err).Msg("cannot connect to message broker")
		}
		defer queue.Close()

		sender = queue
	} else {
		logger.Warn().Msg("AMQP_URL is not set, OTP codes are written to the log")
	}

	server, err := httpserver.New(db, logger, config, sender)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot create server")
	}

	srv := &http.Server{
		Addr:              config.ServerAddress,
		Handler:           server,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("address", config.ServerAddress).Msg("LEDGER API SERVER HAS STARTED")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("server stopped with error")
		return
	}

	logger.Info().Msg("server stopped")
}
