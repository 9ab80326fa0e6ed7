package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dalemusser/commonshub/internal/app/store/boltstore"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoURIEnv names the variable that enables Mongo-backed tests.
const MongoURIEnv = "COMMONSHUB_TEST_MONGO_URI"

// TestContext returns a context with a timeout suitable for tests.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// SetupTestDB connects to the Mongo server named by COMMONSHUB_TEST_MONGO_URI
// and returns a fresh database that is dropped when the test ends. The test
// is skipped when the variable is unset or the server is unreachable.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv(MongoURIEnv)
	if uri == "" {
		t.Skipf("%s not set; skipping MongoDB test", MongoURIEnv)
	}

	ctx, cancel := TestContext()
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Skipf("cannot connect to MongoDB: %v", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		t.Skipf("cannot ping MongoDB: %v", err)
	}

	name := fmt.Sprintf("commonshub_test_%s", uuid.NewString()[:8])
	db := client.Database(name)

	t.Cleanup(func() {
		ctx, cancel := TestContext()
		defer cancel()
		_ = db.Drop(ctx)
		_ = client.Disconnect(ctx)
	})
	return db
}

// SetupBoltStore opens a bbolt store in a temp directory. It is always
// available, so workflow tests run against it by default.
func SetupBoltStore(t *testing.T) *boltstore.Store {
	t.Helper()

	st := boltstore.New(filepath.Join(t.TempDir(), "commonshub.db"), zap.NewNop())
	ctx, cancel := TestContext()
	defer cancel()
	if err := st.Open(ctx); err != nil {
		t.Fatalf("open bolt store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	return st
}
