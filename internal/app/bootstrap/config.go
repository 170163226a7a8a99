// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/grouphub/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

const devJWTSecret = "dev-only-change-me-please-0123456789ABCDEF"

// minJWTSecret is the shortest HMAC key accepted outside dev.
const minJWTSecret = 32

// appConfigKeys defines the configuration keys for GroupHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, jwt_secret, etc.
//   - Environment variables: GROUPHUB_MONGO_URI, GROUPHUB_JWT_SECRET, etc.
//   - Command-line flags: --mongo_uri, --jwt_secret, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017/?replicaSet=rs0", Desc: "MongoDB connection URI (replica set required for transactions)"},
	{Name: "mongo_database", Default: "grouphub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "jwt_secret", Default: devJWTSecret, Desc: "HMAC key for bearer tokens (must be strong in production)"},
	{Name: "jwt_ttl", Default: "24h", Desc: "Bearer token lifetime"},
	{Name: "bcrypt_cost", Default: 10, Desc: "bcrypt cost for passwords and OTP codes"},
	{Name: "otp_expiry", Default: "10m", Desc: "Email verification code expiry (e.g., 10m, 1h)"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 1025, Desc: "SMTP server port"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_smtp_ssl", Default: false, Desc: "Use implicit TLS (port 465); otherwise STARTTLS is required"},
	{Name: "mail_smtp_timeout", Default: "10s", Desc: "Deadline for each SMTP delivery attempt"},
	{Name: "mail_from", Default: "noreply@grouphub.app", Desc: "From email address"},
	{Name: "mail_from_name", Default: "GroupHub", Desc: "From display name"},

	// OTP mail queue
	{Name: "mail_queue_url", Default: "", Desc: "RabbitMQ URL for OTP mail (blank sends inline over SMTP)"},
	{Name: "mail_queue_name", Default: "grouphub.otp_mail", Desc: "RabbitMQ queue for OTP mail"},

	// Audit logging settings
	{Name: "audit_log_auth", Default: "all", Desc: "Auth event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_admin", Default: "all", Desc: "Admin event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Rate limiting
	{Name: "login_rate_limit", Default: 30, Desc: "Requests per minute per client IP on /public (0 disables)"},
	{Name: "login_account_limit", Default: 5, Desc: "Failed logins per 15 minutes per email before 429"},

	// Store deadlines
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document reads"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for writes"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for transactions and ledger edits"},

	{Name: "count_refresh", Default: "1m", Desc: "Interval for sampling collection totals into /metrics (0 disables)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges .env files, config files,
// WAFFLE_* / GROUPHUB_* environment variables and flags, with precedence
// flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "GROUPHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		JWTSecret:  appValues.String("jwt_secret"),
		JWTTTL:     appValues.Duration("jwt_ttl", 24*time.Hour),
		BcryptCost: appValues.Int("bcrypt_cost"),
		OTPExpiry:  appValues.Duration("otp_expiry", 10*time.Minute),

		// Email/SMTP
		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailSMTPSSL:  appValues.Bool("mail_smtp_ssl"),
		MailTimeout:  appValues.Duration("mail_smtp_timeout", 10*time.Second),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		MailQueueURL:  appValues.String("mail_queue_url"),
		MailQueueName: appValues.String("mail_queue_name"),

		// Audit logging
		AuditLogAuth:  appValues.String("audit_log_auth"),
		AuditLogAdmin: appValues.String("audit_log_admin"),

		LoginRateLimit:    appValues.Int("login_rate_limit"),
		LoginAccountLimit: appValues.Int("login_account_limit"),

		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),
		TimeoutLong:   appValues.Duration("timeout_long", 30*time.Second),

		CountRefresh: appValues.Duration("count_refresh", time.Minute),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI is checked before any connection is attempted, and the
// dev JWT secret is refused outside dev.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(coreCfg.Env, appCfg)
}

func validateApp(env string, appCfg AppConfig) error {
	if env != "dev" {
		if appCfg.JWTSecret == devJWTSecret {
			return fmt.Errorf("jwt_secret must be set outside dev")
		}
		if len(appCfg.JWTSecret) < minJWTSecret {
			return fmt.Errorf("jwt_secret must be at least %d bytes", minJWTSecret)
		}
	}
	if appCfg.JWTTTL <= 0 {
		return fmt.Errorf("jwt_ttl must be positive")
	}
	if appCfg.OTPExpiry <= 0 {
		return fmt.Errorf("otp_expiry must be positive")
	}
	for _, v := range []string{appCfg.AuditLogAuth, appCfg.AuditLogAdmin} {
		if !auditlog.ValidSetting(v) {
			return fmt.Errorf("audit log setting %q must be one of all, db, log, off", v)
		}
	}
	return nil
}
