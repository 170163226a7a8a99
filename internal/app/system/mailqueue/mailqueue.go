// Package mailqueue moves OTP mail off the request path through RabbitMQ.
//
// The API publishes one persistent JSON message per OTP; cmd/mailworker
// consumes the queue and delivers over SMTP. A message whose delivery fails
// is requeued once and then dropped, since a stale code is useless anyway.
package mailqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dalemusser/grouphub/internal/app/system/mailer"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DefaultQueue is used when no queue name is configured.
const DefaultQueue = "grouphub.otp_mail"

const contentType = "application/json"

// Publisher publishes OTP messages. It implements the registry's notifier.
type Publisher struct {
	conn  *amqp.Connection
	queue string
	log   *zap.Logger

	mu sync.Mutex
	ch *amqp.Channel
}

// Dial connects to url and declares queue.
func Dial(url, queue string, logger *zap.Logger) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	p := &Publisher{conn: conn, queue: queue, log: logger}
	if err := p.openChannel(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return p, nil
}

func (p *Publisher) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	if err := declare(ch, p.queue); err != nil {
		_ = ch.Close()
		return err
	}
	p.ch = ch
	return nil
}

func declare(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-message-ttl": int64(time.Hour / time.Millisecond)},
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return nil
}

// SendOTP publishes m. A closed channel is reopened once.
func (p *Publisher) SendOTP(ctx context.Context, m mailer.OTPMessage) error {
	body, err := Encode(m)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.ch.IsClosed() {
		if err := p.openChannel(); err != nil {
			return err
		}
	}
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  contentType,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish otp mail: %w", err)
	}
	p.log.Debug("otp mail queued", zap.String("queue", p.queue))
	return nil
}

// Close closes the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	if p.ch != nil && !p.ch.IsClosed() {
		errs = append(errs, p.ch.Close())
	}
	if p.conn != nil && !p.conn.IsClosed() {
		errs = append(errs, p.conn.Close())
	}
	return errors.Join(errs...)
}

// Encode serializes m for the queue.
func Encode(m mailer.OTPMessage) ([]byte, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode otp mail: %w", err)
	}
	return b, nil
}

// Decode parses a queued message body.
func Decode(body []byte) (mailer.OTPMessage, error) {
	var m mailer.OTPMessage
	if err := json.Unmarshal(body, &m); err != nil {
		return m, fmt.Errorf("decode otp mail: %w", err)
	}
	if m.To == "" || m.Code == "" {
		return m, errors.New("decode otp mail: missing recipient or code")
	}
	return m, nil
}
