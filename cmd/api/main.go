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
	"golang.org/x/sync/errgroup"

	"github.com/bottlerun/exchange-api/internal/api"
	"github.com/bottlerun/exchange-api/internal/core/ports"
	"github.com/bottlerun/exchange-api/internal/core/service"
	"github.com/bottlerun/exchange-api/internal/infrastructure/mail"
	"github.com/bottlerun/exchange-api/internal/infrastructure/queue"
	"github.com/bottlerun/exchange-api/internal/jobs"
	"github.com/bottlerun/exchange-api/internal/notify"
	"github.com/bottlerun/exchange-api/internal/pkg/config"
	"github.com/bottlerun/exchange-api/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: !cfg.IsProduction()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StorageDriver).Msg("failed to open storage")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		store.close(closeCtx, log)
	}()

	var sender queue.Sender = mail.NewLogSender(logger.Component("mail"))
	if cfg.Mail.Host != "" {
		sender = mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
		})
	}
	mailQueue := queue.NewMailQueue(cfg.Mail.Workers, sender, logger.Component("mail_queue"))

	registry := notify.NewRegistry()
	dispatcher := notify.NewDispatcher(registry, logger.Component("dispatcher"))

	authService := service.NewAuthService(store.users, store.codes, mailQueue, logger.Component("auth"), cfg.JWTSecret, cfg.TokenTTL)
	orderService := service.NewOrderService(store.orders, store.users, dispatcher, logger.Component("orders"))
	messageService := service.NewMessageService(store.orders, store.messages, store.users, dispatcher, logger.Component("messages"))

	statsJob := jobs.NewStatsJob(store.orders, registry, cfg.StatsSchedule, logger.Component("stats"))
	if err := statsJob.Start(); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.StatsSchedule).Msg("failed to schedule stats job")
	}

	e := api.NewRouter(api.Dependencies{
		Auth:     authService,
		Orders:   orderService,
		Messages: messageService,
		Registry: registry,
		WS: notify.ConnConfig{
			SendBuffer:   cfg.WS.SendBuffer,
			PingInterval: cfg.WS.PingInterval,
			WriteTimeout: cfg.WS.WriteTimeout,
		},
		Pingers:   store.pingers,
		JWTSecret: cfg.JWTSecret,
		Logger:    logger.Component("http"),
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.StorageDriver).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return mailQueue.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		statsJob.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("server stopped")
}

var (
	_ ports.MailQueue = (*queue.MailQueue)(nil)
	_ ports.Notifier  = (*notify.Dispatcher)(nil)
)
