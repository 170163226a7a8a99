// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/grouphub/internal/app/system/mailqueue"
	"github.com/dalemusser/grouphub/internal/app/system/metrics"
	"github.com/dalemusser/grouphub/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// MailQueue is nil when mail_queue_url is blank.
	MailQueue *mailqueue.Publisher

	// Metrics is created here so the count worker and the router share
	// one registry.
	Metrics *metrics.Metrics
	// Counts is nil when count_refresh is 0.
	Counts *workers.CountRefresh
}
