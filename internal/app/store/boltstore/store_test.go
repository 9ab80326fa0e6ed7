package boltstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dalemusser/commonshub/internal/app/store/boltstore"
	"github.com/dalemusser/commonshub/internal/app/store/storetest"
	"github.com/dalemusser/commonshub/internal/testutil"
	"go.uber.org/zap"
)

func TestContract(t *testing.T) {
	storetest.Run(t, testutil.SetupBoltStore(t))
}

func TestOpen_ReopensExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "commonshub.db")
	ctx, cancel := testutil.TestContext()
	defer cancel()

	st := boltstore.New(path, zap.NewNop())
	if err := st.Open(ctx); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := st.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st = boltstore.New(path, zap.NewNop())
	if err := st.Open(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close(context.Background())
	if err := st.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
