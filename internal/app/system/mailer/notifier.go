// internal/app/system/mailer/notifier.go
package mailer

import "context"

// Direct sends OTP mail synchronously over SMTP. It is used when no mail
// queue is configured, and by the mail worker to deliver queued messages.
type Direct struct {
	M *Mailer
}

// SendOTP renders and sends m.
func (d Direct) SendOTP(ctx context.Context, m OTPMessage) error {
	return d.M.Send(ctx, BuildOTPEmail(m))
}
