// internal/app/system/txn/txn.go
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

// ErrTransactionsUnavailable is returned by Strict when the server cannot run
// multi-document transactions (standalone mongod, some DocumentDB tiers).
var ErrTransactionsUnavailable = errors.New("txn: multi-document transactions are not supported by this deployment")

func txnOptions() *options.TransactionOptions {
	return options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
}

// Run executes fn inside a transaction. When the deployment does not support
// transactions, fn is executed once without one and a warning is logged.
// fn receives the session context and must use it for every operation.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	err := run(ctx, db, fn)
	if err != nil && IsNotSupported(err) {
		if log != nil {
			log.Warn("transactions not supported; running without transaction", zap.Error(err))
		}
		return fn(ctx)
	}
	return err
}

// Strict executes fn inside a transaction and never falls back.
func Strict(ctx context.Context, db *mongo.Database, fn func(ctx context.Context) error) error {
	err := run(ctx, db, fn)
	if err != nil && IsNotSupported(err) {
		return errors.Join(ErrTransactionsUnavailable, err)
	}
	return err
}

func run(ctx context.Context, db *mongo.Database, fn func(ctx context.Context) error) error {
	sess, err := db.Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txnOptions())
	return err
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
	case has("illegal operation") && has("transaction"):
		return true
	}
	return false
}
