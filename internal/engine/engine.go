package engine

import (
	"context"

	"github.com/augurml/augur/internal/dataframe"
	"github.com/augurml/augur/internal/storage"
)

// Describe attributes understood by the built-in engines. Engines may accept
// more; an unknown attribute is a handler-level error.
const (
	DescribeArgs     = "args"
	DescribeInfo     = "info"
	DescribeFeatures = "features"
)

// Metadata identifies the implementation behind a handler. Callers key
// diagnostics and registries off this, never off whether execution happens
// locally or remotely, so local handlers and remote proxies must report the
// same values for the same engine.
type Metadata struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
}

// Handler is the uniform operation contract every engine exposes. A handler
// instance is scoped to one integration and one predictor; instances are not
// shared across unrelated requests, and every operation is one synchronous
// call.
type Handler interface {
	// Metadata reports the engine's declared identity.
	Metadata() Metadata

	// Create trains a new predictor for the given target column.
	Create(ctx context.Context, target string, args map[string]any, data *dataframe.Frame) error

	// Predict produces one output row per input row.
	Predict(ctx context.Context, data *dataframe.Frame, args map[string]any) (*dataframe.Frame, error)

	// Describe returns tabular metadata about the trained predictor.
	Describe(ctx context.Context, attribute string) (*dataframe.Frame, error)

	// Finetune adjusts an existing predictor with additional data.
	Finetune(ctx context.Context, data *dataframe.Frame, args map[string]any) error
}

// Factory constructs a local handler bound to the given storage handles.
// The args map is forwarded unchanged from the dispatch call.
type Factory func(engineStorage *storage.EngineStorage, modelStorage *storage.ModelStorage, args map[string]any) Handler

// Registration couples an engine's identity with its local constructor.
type Registration struct {
	Metadata Metadata
	New      Factory
}
