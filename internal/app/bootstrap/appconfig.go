// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds GroupHub's app-level configuration.
//
// WAFFLE's CoreConfig covers ports, TLS, logging, CORS and body limits.
// Everything specific to GroupHub lives here and is passed to every
// lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Bearer tokens
	JWTSecret string        // HMAC key; at least 32 bytes outside dev
	JWTTTL    time.Duration // lifetime of an issued token

	// Credentials
	BcryptCost int
	OTPExpiry  time.Duration

	// Email/SMTP configuration
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailSMTPSSL  bool
	MailTimeout  time.Duration
	MailFrom     string
	MailFromName string

	// OTP mail queue. Blank URL sends mail inline over SMTP.
	MailQueueURL  string
	MailQueueName string

	// Audit logging settings ("all", "db", "log", "off")
	AuditLogAuth  string
	AuditLogAdmin string

	// Rate limits on /public
	LoginRateLimit    int // requests per minute per client IP
	LoginAccountLimit int // failed logins per 15 minutes per email

	// Context deadlines for store calls
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration

	// Collection gauge sampling; 0 disables the worker
	CountRefresh time.Duration
}
