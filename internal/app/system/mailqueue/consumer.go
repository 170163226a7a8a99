package mailqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/grouphub/internal/app/system/mailer"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Sender delivers one decoded message.
type Sender interface {
	SendOTP(ctx context.Context, m mailer.OTPMessage) error
}

// Consumer drains the OTP queue into a Sender.
type Consumer struct {
	URL      string
	Queue    string
	Prefetch int
	Sender   Sender
	Log      *zap.Logger
}

// Run consumes until ctx is cancelled or the broker closes the channel.
func (c *Consumer) Run(ctx context.Context) error {
	queue := c.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	prefetch := c.Prefetch
	if prefetch <= 0 {
		prefetch = 10
	}

	conn, err := amqp.Dial(c.URL)
	if err != nil {
		return fmt.Errorf("dial rabbitmq: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	if err := declare(ch, queue); err != nil {
		return err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}
	c.Log.Info("mail worker consuming", zap.String("queue", queue), zap.Int("prefetch", prefetch))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("mail queue channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	m, err := Decode(d.Body)
	if err != nil {
		c.Log.Error("dropping malformed mail message", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	if err := c.Sender.SendOTP(ctx, m); err != nil {
		requeue := !d.Redelivered
		c.Log.Warn("otp mail delivery failed",
			zap.String("to", m.To),
			zap.Bool("requeue", requeue),
			zap.Error(err))
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}
