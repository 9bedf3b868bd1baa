// Package txn runs multi-document writes inside a MongoDB transaction.
//
// Transactions need a replica set or sharded cluster. Standalone servers
// (typical for local development) reject them; Run detects that and runs
// the function without a transaction so the app still works, logging a
// warning once.
package txn

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var fallbackOnce sync.Once

// Run executes fn in a transaction on db's client. fn must use the ctx it
// is given for every database call so the calls join the session. fn may be
// invoked more than once when the server reports a transient transaction
// error, so it must not have side effects outside the database.
func Run(ctx context.Context, db *mongo.Database, logger *zap.Logger, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			warnFallback(logger, err)
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		warnFallback(logger, err)
		return fn(ctx)
	}
	return err
}

func warnFallback(logger *zap.Logger, err error) {
	fallbackOnce.Do(func() {
		if logger != nil {
			logger.Warn("mongo transactions unavailable; running without transaction", zap.Error(err))
		}
	})
}

// IsNotSupported reports whether err means the deployment cannot run
// transactions (standalone server, or an operation illegal in one).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263: // IllegalOperation, IllegalOperation (legacy), OperationNotSupportedInTransaction
			return true
		}
	}
	s := strings.ToLower(err.Error())
	has := func(sub string) bool { return strings.Contains(s, sub) }
	switch {
	case has("transaction") && has("replica set"):
		return true
	case has("session") && has("not supported"):
		return true
	case has("transaction") && has("session"):
		return true
	case has("illegal operation"):
		return true
	}
	return false
}
