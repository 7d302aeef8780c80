// Package main consumes OTP messages from the queue and delivers them over SMTP.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/go-petr/pet-ledger/internal/mailer"
	"github.com/go-petr/pet-ledger/internal/middleware"
	"github.com/go-petr/pet-ledger/pkg/configpkg"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatal().Err(err).Msg("cannot load .env")
	}

	config, err := configpkg.Load("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger := middleware.CreateLogger(config)

	if config.AMQPURL == "" {
		logger.Fatal().Msg("AMQP_URL is not set")
	}

	sender, err := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host: config.SMTPHost,
		Port: config.SMTPPort,
		User: config.SMTPUser,
		Pass: config.SMTPPass,
		From: config.FromEmail,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot configure smtp")
	}

	queue, err := mailer.NewQueue(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		logger.Fatal().Err(err).Msg("cannot connect to message broker")
	}
	defer queue.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logger.WithContext(ctx)

	logger.Info().Str("queue", config.AMQPQueue).Msg("MAIL WORKER HAS STARTED")

	err = queue.Consume(ctx, sender.Send)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("consumer stopped with error")
		return
	}

	logger.Info().Msg("mail worker stopped")
}
