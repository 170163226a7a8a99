// Command mailworker drains the OTP mail queue and delivers each message
// over SMTP. It reads the same GROUPHUB_* configuration as the API.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dalemusser/grouphub/internal/app/bootstrap"
	"github.com/dalemusser/grouphub/internal/app/system/mailer"
	"github.com/dalemusser/grouphub/internal/app/system/mailqueue"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("mailworker stopped", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	_, appCfg, err := bootstrap.LoadConfig(logger)
	if err != nil {
		return err
	}
	if appCfg.MailQueueURL == "" {
		return errors.New("mail_queue_url is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &mailqueue.Consumer{
		URL:    appCfg.MailQueueURL,
		Queue:  appCfg.MailQueueName,
		Sender: mailer.Direct{M: mailer.New(appCfg.MailConfig(), logger)},
		Log:    logger,
	}
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
