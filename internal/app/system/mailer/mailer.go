// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/email"
	"go.uber.org/zap"
)

// Email is a single outgoing message with text and HTML alternatives.
type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// Config holds SMTP settings. Timeout bounds each delivery attempt.
// Port 465 or UseSSL selects implicit TLS; any other port requires STARTTLS.
type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
	UseSSL   bool
	Timeout  time.Duration
	Retries  int
}

type sendFunc func(ctx context.Context, to, subject, textBody, htmlBody string) error

// Mailer delivers Email through a waffle email.Sender.
type Mailer struct {
	cfg  Config
	log  *zap.Logger
	send sendFunc
}

// New returns a Mailer. Retries defaults to 3 and Timeout to 10s.
func New(cfg Config, logger *zap.Logger) *Mailer {
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	sender := email.NewSender(email.Config{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.User,
		Password:    cfg.Pass,
		FromAddress: cfg.From,
		FromName:    cfg.FromName,
		UseSSL:      cfg.UseSSL,
		Timeout:     cfg.Timeout,
	})
	return &Mailer{cfg: cfg, log: logger, send: sender.SendHTML}
}

// Send delivers e, retrying failures with a linear backoff. Each attempt
// runs under its own deadline and the whole call stops when ctx is done.
func (m *Mailer) Send(ctx context.Context, e Email) error {
	if strings.TrimSpace(e.To) == "" {
		return fmt.Errorf("mailer: empty recipient")
	}

	var lastErr error
	for attempt := 1; attempt <= m.cfg.Retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("mailer: send to %s: %w", e.To, ctx.Err())
			case <-time.After(time.Duration(attempt-1) * time.Second):
			}
		}
		lastErr = m.attempt(ctx, e)
		if lastErr == nil {
			return nil
		}
		m.log.Warn("smtp send attempt failed",
			zap.Int("attempt", attempt),
			zap.String("to", e.To),
			zap.Error(lastErr))
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("mailer: send to %s: %w", e.To, lastErr)
}

func (m *Mailer) attempt(ctx context.Context, e Email) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()
	return m.send(ctx, e.To, e.Subject, e.TextBody, e.HTMLBody)
}
