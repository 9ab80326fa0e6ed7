// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/commonshub/internal/app/store"
	"github.com/dalemusser/commonshub/internal/app/system/auditlog"
	"github.com/dalemusser/commonshub/internal/app/system/events"
	"github.com/dalemusser/commonshub/internal/app/system/ratelimit"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	// Set on the mongo backend only.
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Store     store.Store
	AuditSink auditlog.Sink
	Redis     *redis.Client
	Publisher events.Publisher

	// WriteLimiter throttles state-changing API requests. Nil when
	// write_rate_limit is 0.
	WriteLimiter *ratelimit.Limiter
}
