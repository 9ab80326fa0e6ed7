// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/commonshub/internal/app/store/audit"
	"github.com/dalemusser/commonshub/internal/app/store/boltstore"
	"github.com/dalemusser/commonshub/internal/app/store/mongostore"
	"github.com/dalemusser/commonshub/internal/app/system/events"
	"github.com/dalemusser/commonshub/internal/app/system/indexes"
	"github.com/dalemusser/commonshub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ConnectDB opens the configured entity store and, when redis_addr is set,
// the workflow event publisher.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	var deps DBDeps

	switch appCfg.StoreBackend {
	case BackendBolt:
		bs := boltstore.New(appCfg.BoltPath, logger)
		if err := bs.Open(ctx); err != nil {
			return DBDeps{}, err
		}
		deps.Store = bs
		deps.AuditSink = bs.Audit()

	default:
		opts := options.Client().
			ApplyURI(appCfg.MongoURI).
			SetMaxPoolSize(appCfg.MongoMaxPoolSize).
			SetMinPoolSize(appCfg.MongoMinPoolSize)
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
		}
		db := client.Database(appCfg.MongoDatabase)
		logger.Info("connected to MongoDB",
			zap.String("database", appCfg.MongoDatabase),
			zap.Uint64("max_pool_size", appCfg.MongoMaxPoolSize),
			zap.Bool("require_transactions", appCfg.RequireTransactions))

		deps.MongoClient = client
		deps.MongoDatabase = db
		deps.Store = mongostore.New(db, logger, mongostore.Options{RequireTransactions: appCfg.RequireTransactions})
		deps.AuditSink = audit.New(db)
	}

	deps.Publisher = events.Nop{}
	if appCfg.RedisAddr != "" {
		rdb, err := events.NewRedisClient(ctx, appCfg.RedisAddr, appCfg.RedisPassword, appCfg.RedisDB, logger)
		if err != nil {
			_ = closeDeps(ctx, deps, logger)
			return DBDeps{}, err
		}
		deps.Redis = rdb
		deps.Publisher = events.NewRedisPublisher(rdb, appCfg.EventsChannelPrefix, logger)
	} else {
		logger.Info("redis_addr not set; workflow events are not published")
	}

	if appCfg.WriteRateLimit > 0 {
		deps.WriteLimiter = ratelimit.New(appCfg.WriteRateLimit, appCfg.WriteRateWindow)
	}

	return deps, nil
}

// EnsureSchema reconciles Mongo indexes, including the partial unique
// indexes behind the membership and transfer invariants. bbolt buckets are
// created when the file is opened.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	logger.Info("mongo indexes ensured")
	return nil
}
