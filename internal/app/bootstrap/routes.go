// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	auditlogfeature "github.com/dalemusser/grouphub/internal/app/features/auditlog"
	apierrors "github.com/dalemusser/grouphub/internal/app/features/errors"
	groupsfeature "github.com/dalemusser/grouphub/internal/app/features/groups"
	healthfeature "github.com/dalemusser/grouphub/internal/app/features/health"
	loginfeature "github.com/dalemusser/grouphub/internal/app/features/login"
	membersfeature "github.com/dalemusser/grouphub/internal/app/features/members"
	paymentsfeature "github.com/dalemusser/grouphub/internal/app/features/payments"
	profilefeature "github.com/dalemusser/grouphub/internal/app/features/profile"
	recordsfeature "github.com/dalemusser/grouphub/internal/app/features/records"
	"github.com/dalemusser/grouphub/internal/app/store/audit"
	recordstore "github.com/dalemusser/grouphub/internal/app/store/records"
	"github.com/dalemusser/grouphub/internal/app/system/auditlog"
	"github.com/dalemusser/grouphub/internal/app/system/auth"
	"github.com/dalemusser/grouphub/internal/app/system/ratelimit"
	"github.com/dalemusser/grouphub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root router.
//
// /health and /metrics are open. /public carries account creation, joining,
// OTP confirmation and login behind a per-IP limiter. Everything under
// /private requires a bearer token; feature routes add their own
// permission gates.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := buildServices(appCfg, deps, logger)
	return newRouter(appCfg, deps, svc, logger), nil
}

func newRouter(appCfg AppConfig, deps DBDeps, svc services, logger *zap.Logger) chi.Router {
	errLog := apierrors.NewErrorLogger(logger)
	errorsHandler := apierrors.NewHandler()

	r := chi.NewRouter()
	r.Use(svc.Metrics.Middleware)
	r.Use(auditlog.Middleware)
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", svc.Metrics.Handler())

	// Unauthenticated account flows
	var perIP *ratelimit.IPLimiter
	if appCfg.LoginRateLimit > 0 {
		perIP = ratelimit.NewIPLimiter(appCfg.LoginRateLimit)
	}
	accounts := ratelimit.NewAccountLimiter(max(appCfg.LoginAccountLimit, 1), 15*time.Minute)
	loginHandler := loginfeature.NewHandler(svc.Registry, accounts, svc.Audit, errLog, logger)
	r.Mount("/public", loginfeature.Routes(loginHandler, perIP))

	// Token holders
	r.Route("/private", func(pr chi.Router) {
		pr.Use(auth.Authenticate(svc.Tokens, logger))
		pr.NotFound(errorsHandler.NotFound)
		pr.MethodNotAllowed(errorsHandler.MethodNotAllowed)

		groupsfeature.Register(pr, groupsfeature.NewHandler(svc.Registry, errLog, logger))
		membersfeature.Register(pr, membersfeature.NewHandler(svc.Registry, errLog, logger))
		paymentsfeature.Register(pr, paymentsfeature.NewHandler(svc.Ledger, errLog, logger))
		profilefeature.Register(pr, profilefeature.NewHandler(svc.Users, errLog, logger))

		var recordHandlers []*recordsfeature.Handler
		for _, kind := range models.RecordKinds() {
			store := recordstore.New(deps.MongoDatabase, kind)
			recordHandlers = append(recordHandlers, recordsfeature.NewHandler(kind, store, svc.Audit, errLog, logger))
		}
		recordsfeature.Register(pr, recordHandlers...)

		auditlogfeature.Register(pr, auditlogfeature.NewHandler(audit.New(deps.MongoDatabase), svc.Users, errLog, logger))
	})

	return r
}
