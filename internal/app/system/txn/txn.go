// Package txn runs multi-document writes in a MongoDB transaction.
//
// Every membership change touches both the group and the user document, so
// the two writes commit together or not at all. There is no
// non-transactional fallback: a standalone server fails with ErrUnsupported.
package txn

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/grouphub/internal/app/system/apperr"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// ErrUnsupported means the deployment cannot run transactions (not a replica set).
var ErrUnsupported = apperr.E(apperr.Transaction, "TRANSACTION_UNSUPPORTED", "The database does not support transactions.")

// Runner executes fn atomically. fn must use the ctx it is given.
type Runner interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// Mongo is the production Runner.
type Mongo struct {
	client *mongo.Client
	log    *zap.Logger
}

// New returns a Runner backed by client sessions.
func New(client *mongo.Client, logger *zap.Logger) *Mongo {
	return &Mongo{client: client, log: logger}
}

// Run starts a session and runs fn inside WithTransaction, which retries on
// transient transaction errors. Classified errors from fn are returned as is
// so callers still see domain failures; anything else becomes a
// Transaction error.
func (m *Mongo) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := m.client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return ErrUnsupported
		}
		return apperr.Wrap(apperr.Transaction, err, "Could not start a database session.")
	}
	defer sess.EndSession(ctx)

	opts := options.Transaction().
		SetWriteConcern(writeconcern.Majority()).
		SetReadConcern(readconcern.Snapshot())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, opts)
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	if IsNotSupported(err) {
		m.log.Error("transactions not supported by MongoDB deployment", zap.Error(err))
		return ErrUnsupported
	}
	m.log.Warn("transaction aborted", zap.Error(err))
	return apperr.Wrap(apperr.Transaction, err, "The operation could not be completed. Please retry.")
}

// IsNotSupported reports whether err indicates the server cannot run
// transactions or sessions.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // server rejected the session or transaction
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	pairs := [][2]string{
		{"transaction", "replica set"},
		{"session", "not supported"},
		{"transaction", "session"},
		{"illegal operation", "transaction"},
	}
	for _, p := range pairs {
		if strings.Contains(msg, p[0]) && strings.Contains(msg, p[1]) {
			return true
		}
	}
	return false
}
