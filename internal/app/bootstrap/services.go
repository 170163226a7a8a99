// internal/app/bootstrap/services.go
package bootstrap

import (
	"github.com/dalemusser/grouphub/internal/app/ledger"
	"github.com/dalemusser/grouphub/internal/app/membership"
	"github.com/dalemusser/grouphub/internal/app/store/audit"
	"github.com/dalemusser/grouphub/internal/app/store/emailverify"
	groupstore "github.com/dalemusser/grouphub/internal/app/store/groups"
	paymentstore "github.com/dalemusser/grouphub/internal/app/store/payments"
	userstore "github.com/dalemusser/grouphub/internal/app/store/users"
	"github.com/dalemusser/grouphub/internal/app/system/auditlog"
	"github.com/dalemusser/grouphub/internal/app/system/credentials"
	"github.com/dalemusser/grouphub/internal/app/system/mailer"
	"github.com/dalemusser/grouphub/internal/app/system/metrics"
	"github.com/dalemusser/grouphub/internal/app/system/tokens"
	"github.com/dalemusser/grouphub/internal/app/system/txn"
	"go.uber.org/zap"
)

// services are the long-lived objects shared by the HTTP features.
type services struct {
	Users    *userstore.Store
	Tokens   *tokens.Issuer
	Audit    *auditlog.Logger
	Metrics  *metrics.Metrics
	Registry *membership.Registry
	Ledger   *ledger.Service
}

// MailConfig maps the SMTP settings onto mailer.Config.
func (c AppConfig) MailConfig() mailer.Config {
	return mailer.Config{
		Host:     c.MailSMTPHost,
		Port:     c.MailSMTPPort,
		User:     c.MailSMTPUser,
		Pass:     c.MailSMTPPass,
		From:     c.MailFrom,
		FromName: c.MailFromName,
		UseSSL:   c.MailSMTPSSL,
		Timeout:  c.MailTimeout,
	}
}

func buildServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) services {
	db := deps.MongoDatabase
	hasher := credentials.NewHasher(appCfg.BcryptCost)

	// Inline delivery runs on the request path: one attempt, bounded by the SMTP timeout.
	inline := appCfg.MailConfig()
	inline.Retries = 1
	var notifier membership.Notifier = mailer.Direct{M: mailer.New(inline, logger)}
	if deps.MailQueue != nil {
		notifier = deps.MailQueue
	}

	users := userstore.New(db)
	auditLog := auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})
	m := deps.Metrics
	if m == nil {
		m = metrics.New()
	}
	issuer := tokens.NewIssuer(appCfg.JWTSecret, appCfg.JWTTTL)

	reg := membership.New(membership.Deps{
		Users:    users,
		Groups:   groupstore.New(db),
		OTPs:     emailverify.New(db, appCfg.OTPExpiry, hasher),
		Tx:       txn.New(deps.MongoClient, logger),
		Hasher:   hasher,
		Tokens:   issuer,
		Notifier: notifier,
		Audit:    auditLog,
		Metrics:  m,
		Log:      logger,
	})
	svc := ledger.New(ledger.Deps{
		Payments: paymentstore.New(db),
		Members:  users,
		Audit:    auditLog,
		Metrics:  m,
		Log:      logger,
	})

	return services{
		Users:    users,
		Tokens:   issuer,
		Audit:    auditLog,
		Metrics:  m,
		Registry: reg,
		Ledger:   svc,
	}
}
