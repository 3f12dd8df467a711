package baseline

import (
	"context"
	"strings"
	"testing"

	"github.com/augurml/augur/internal/dataframe"
	"github.com/augurml/augur/internal/engine"
	"github.com/augurml/augur/internal/model"
	"github.com/augurml/augur/internal/storage"
	"github.com/augurml/augur/internal/store"
)

func testStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(":memory:")
}

func newHandler(t *testing.T) engine.Handler {
	t.Helper()
	s, err := testStore()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	reg := Registration()
	return reg.New(
		storage.NewEngineStorage(s, model.NewID()),
		storage.NewModelStorage(s, model.NewID()),
		nil,
	)
}

func numericFrame() *dataframe.Frame {
	f := dataframe.New("x", "price")
	f.Append(1, 10.0)
	f.Append(2, 20.0)
	f.Append(3, 30.0)
	return f
}

func TestCreateAllNullTargetRejected(t *testing.T) {
	h := newHandler(t)

	f := dataframe.New("x", "price")
	f.Append(1, nil)
	f.Append(2, nil)

	err := h.Create(context.Background(), "price", nil, f)
	if err == nil {
		t.Fatal("Create accepted a target column with no values")
	}
	if !strings.Contains(err.Error(), "price") {
		t.Errorf("error %q does not name the target column", err)
	}
}

func TestCreateAndPredictNumeric(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	if err := h.Create(ctx, "price", nil, numericFrame()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	in := dataframe.New("x")
	in.Append(4)
	in.Append(5)
	out, err := h.Predict(ctx, in, nil)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if out.Len() != 2 {
		t.Fatalf("Predict returned %d rows, want 2", out.Len())
	}
	for i := 0; i < out.Len(); i++ {
		if got := out.Value(i, "price"); got != 20.0 {
			t.Errorf("row %d prediction = %v, want mean 20", i, got)
		}
	}
}

func TestCreateAndPredictCategorical(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	f := dataframe.New("color")
	for _, c := range []string{"red", "blue", "red"} {
		f.Append(c)
	}
	if err := h.Create(ctx, "color", nil, f); err != nil {
		t.Fatalf("Create: %v", err)
	}

	out, err := h.Predict(ctx, nil, nil)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got := out.Value(0, "color"); got != "red" {
		t.Errorf("prediction = %v, want mode red", got)
	}
}

func TestCreateValidation(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	if err := h.Create(ctx, "price", nil, nil); err == nil {
		t.Error("Create with nil data succeeded, want error")
	}
	if err := h.Create(ctx, "price", nil, dataframe.New("price")); err == nil {
		t.Error("Create with empty data succeeded, want error")
	}
	if err := h.Create(ctx, "missing", nil, numericFrame()); err == nil {
		t.Error("Create with unknown target succeeded, want error")
	}
}

func TestPredictBeforeCreate(t *testing.T) {
	h := newHandler(t)

	_, err := h.Predict(context.Background(), numericFrame(), nil)
	if err == nil {
		t.Error("Predict before Create succeeded, want error")
	}
}

func TestFinetuneShiftsMean(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	if err := h.Create(ctx, "price", nil, numericFrame()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	extra := dataframe.New("price")
	extra.Append(60.0)
	if err := h.Finetune(ctx, extra, nil); err != nil {
		t.Fatalf("Finetune: %v", err)
	}

	out, err := h.Predict(ctx, nil, nil)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got := out.Value(0, "price"); got != 30.0 {
		t.Errorf("prediction after finetune = %v, want 30", got)
	}
}

func TestDescribe(t *testing.T) {
	h := newHandler(t)
	ctx := context.Background()

	args := map[string]any{"window": 7}
	if err := h.Create(ctx, "price", args, numericFrame()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	info, err := h.Describe(ctx, engine.DescribeInfo)
	if err != nil {
		t.Fatalf("Describe(info): %v", err)
	}
	if info.Value(0, "engine") != EngineName || info.Value(0, "kind") != kindNumeric {
		t.Errorf("info row = %v", info.Records())
	}

	features, err := h.Describe(ctx, engine.DescribeFeatures)
	if err != nil {
		t.Fatalf("Describe(features): %v", err)
	}
	roles := map[string]string{}
	for i := 0; i < features.Len(); i++ {
		roles[features.Value(i, "column").(string)] = features.Value(i, "role").(string)
	}
	if roles["price"] != "target" || roles["x"] != "feature" {
		t.Errorf("feature roles = %v", roles)
	}

	described, err := h.Describe(ctx, engine.DescribeArgs)
	if err != nil {
		t.Fatalf("Describe(args): %v", err)
	}
	found := false
	for i := 0; i < described.Len(); i++ {
		if described.Value(i, "key") == "target" && described.Value(i, "value") == "price" {
			found = true
		}
	}
	if !found {
		t.Errorf("args missing target entry: %v", described.Records())
	}

	if _, err := h.Describe(ctx, "bogus"); err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Errorf("Describe(bogus) error = %v, want named attribute", err)
	}
}

func TestMetadataConsistency(t *testing.T) {
	h := newHandler(t)
	if h.Metadata() != Metadata {
		t.Errorf("Metadata() = %v, want %v", h.Metadata(), Metadata)
	}
	if h.Metadata().Namespace != "augur.engines.baseline" {
		t.Errorf("Namespace = %q", h.Metadata().Namespace)
	}
}
