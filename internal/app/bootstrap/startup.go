// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/grouphub/internal/app/system/timeouts"
	"github.com/dalemusser/grouphub/internal/app/system/txn"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup applies the configured store deadlines, checks that the
// deployment can run transactions and starts the collection count worker.
// Membership writes need transactions, so a standalone server is refused
// outside dev.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	err := checkTransactions(ctx, deps, logger)
	switch {
	case errors.Is(err, txn.ErrUnsupported) && coreCfg.Env != "dev":
		return err
	case errors.Is(err, txn.ErrUnsupported):
		logger.Warn("MongoDB does not support transactions; group and member writes will fail")
	case err != nil:
		logger.Warn("transaction check failed", zap.Error(err))
	}

	if deps.Counts != nil {
		deps.Counts.Start()
	}
	return nil
}

func checkTransactions(ctx context.Context, deps DBDeps, logger *zap.Logger) error {
	checkCtx, cancel := timeouts.WithShort(ctx)
	defer cancel()
	return txn.New(deps.MongoClient, logger).Run(checkCtx, func(ctx context.Context) error {
		err := deps.MongoDatabase.Collection("groups").FindOne(ctx, bson.M{}).Err()
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		return err
	})
}
