package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/augurml/augur/internal/model"
	"github.com/augurml/augur/internal/store"
)

func newHandles(t *testing.T) (*EngineStorage, *ModelStorage) {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewEngineStorage(s, model.NewID()), NewModelStorage(s, model.NewID())
}

func TestHandleScoping(t *testing.T) {
	es, ms := newHandles(t)
	ctx := context.Background()

	if err := es.Put(ctx, "shared", []byte("engine")); err != nil {
		t.Fatalf("EngineStorage.Put: %v", err)
	}
	if err := ms.Put(ctx, "shared", []byte("predictor")); err != nil {
		t.Fatalf("ModelStorage.Put: %v", err)
	}

	fromEngine, err := es.Get(ctx, "shared")
	if err != nil {
		t.Fatalf("EngineStorage.Get: %v", err)
	}
	fromModel, err := ms.Get(ctx, "shared")
	if err != nil {
		t.Fatalf("ModelStorage.Get: %v", err)
	}
	if string(fromEngine) != "engine" || string(fromModel) != "predictor" {
		t.Errorf("handles leaked across scopes: %q / %q", fromEngine, fromModel)
	}
}

func TestModelStorageJSON(t *testing.T) {
	_, ms := newHandles(t)
	ctx := context.Background()

	in := map[string]float64{"mean": 2.5}
	if err := ms.PutJSON(ctx, "state.json", in); err != nil {
		t.Fatalf("PutJSON: %v", err)
	}

	var out map[string]float64
	if err := ms.GetJSON(ctx, "state.json", &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out["mean"] != 2.5 {
		t.Errorf("round trip = %v, want mean 2.5", out)
	}

	if err := ms.GetJSON(ctx, "missing.json", &out); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing blob error = %v, want ErrNotFound", err)
	}
}

func TestExportImport(t *testing.T) {
	_, ms := newHandles(t)
	ctx := context.Background()

	if err := ms.Put(ctx, "weights.bin", []byte("abc")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	artifact, err := ms.Export(ctx, "weights.bin")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if artifact.Content != "YWJj" {
		t.Errorf("exported content = %q, want base64 YWJj", artifact.Content)
	}

	if err := ms.Delete(ctx, "weights.bin"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := ms.Import(ctx, artifact); err != nil {
		t.Fatalf("Import: %v", err)
	}

	data, err := ms.Get(ctx, "weights.bin")
	if err != nil {
		t.Fatalf("Get after import: %v", err)
	}
	if string(data) != "abc" {
		t.Errorf("imported data = %q, want abc", data)
	}
}
