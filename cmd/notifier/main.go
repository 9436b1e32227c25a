// Command notifier consumes notification events from Kafka and delivers them
// by email and SMS.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jisr-market/jisr-backend/internal/modules/notification"
	"github.com/jisr-market/jisr-backend/internal/platform/config"
	"github.com/jisr-market/jisr-backend/internal/platform/events"
	"github.com/jisr-market/jisr-backend/internal/platform/logger"
	"github.com/jisr-market/jisr-backend/internal/platform/telemetry"
)

const (
	serviceName = "jisr-notifier"
	maxAttempts = 5
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Env, serviceName)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("notifier stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	if len(cfg.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(serviceName, cfg.JaegerEndpoint, log)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background()) //nolint:errcheck

	consumer, err := events.NewConsumer(cfg.KafkaBrokers, log)
	if err != nil {
		return err
	}
	defer consumer.Close()

	dispatcher := notification.NewDispatcher(map[notification.Channel]notification.Sender{
		notification.ChannelEmail: notification.NewLogEmailSender(log),
		notification.ChannelSMS:   notification.NewLogSMSSender(log),
	}, log)

	// notifications_sent_total is scraped from here.
	metrics := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           telemetry.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	defer metrics.Close()

	log.Info("notifier consuming", zap.String("topic", cfg.NotificationTopic))
	return events.Consume(ctx, consumer, cfg.NotificationTopic, maxAttempts, dispatcher.Handle, log)
}
