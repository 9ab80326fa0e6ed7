package mongostore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/commonshub/internal/app/store"
	"github.com/dalemusser/commonshub/internal/app/store/mongostore"
	"github.com/dalemusser/commonshub/internal/app/store/storetest"
	"github.com/dalemusser/commonshub/internal/app/system/indexes"
	"github.com/dalemusser/commonshub/internal/app/system/txn"
	"github.com/dalemusser/commonshub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// TestContract needs a replica set; on a standalone server the rollback
// guarantee cannot hold, so the test is skipped there.
func TestContract(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	st := mongostore.New(db, zap.NewNop(), mongostore.Options{RequireTransactions: true})

	err := st.Update(ctx, func(ctx context.Context, tx store.Tx) error {
		_, err := tx.Organizations().Get(ctx, primitive.NewObjectID())
		return err
	})
	if errors.Is(err, txn.ErrTransactionsUnavailable) {
		t.Skip("MongoDB deployment does not support transactions")
	}
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("probe: %v", err)
	}

	storetest.Run(t, st)
}
