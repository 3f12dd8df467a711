// Package storage provides the two handles a handler instance works
// through: EngineStorage scoped to one integration, ModelStorage scoped to
// one predictor. Handlers never touch the store directly, so the same
// handler code runs unchanged in-process and inside the executor service.
package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/augurml/augur/internal/codec"
	"github.com/augurml/augur/internal/store"
)

// EngineStorage gives a handler access to engine-level state shared by all
// models of one integration.
type EngineStorage struct {
	integrationID string
	store         store.Store
}

// NewEngineStorage creates a handle scoped to the given integration.
func NewEngineStorage(s store.Store, integrationID string) *EngineStorage {
	return &EngineStorage{integrationID: integrationID, store: s}
}

// IntegrationID returns the integration this handle is scoped to.
func (e *EngineStorage) IntegrationID() string {
	return e.integrationID
}

// Put stores an engine-level blob.
func (e *EngineStorage) Put(ctx context.Context, name string, data []byte) error {
	return e.store.PutArtifact(ctx, e.integrationID, name, data)
}

// Get retrieves an engine-level blob.
func (e *EngineStorage) Get(ctx context.Context, name string) ([]byte, error) {
	return e.store.GetArtifact(ctx, e.integrationID, name)
}

// ModelStorage gives a handler access to the state of one predictor.
type ModelStorage struct {
	predictorID string
	store       store.Store
}

// NewModelStorage creates a handle scoped to the given predictor.
func NewModelStorage(s store.Store, predictorID string) *ModelStorage {
	return &ModelStorage{predictorID: predictorID, store: s}
}

// PredictorID returns the predictor this handle is scoped to.
func (m *ModelStorage) PredictorID() string {
	return m.predictorID
}

// Put stores a per-model blob, typically trained state.
func (m *ModelStorage) Put(ctx context.Context, name string, data []byte) error {
	return m.store.PutArtifact(ctx, m.predictorID, name, data)
}

// Get retrieves a per-model blob.
func (m *ModelStorage) Get(ctx context.Context, name string) ([]byte, error) {
	return m.store.GetArtifact(ctx, m.predictorID, name)
}

// Delete removes a per-model blob.
func (m *ModelStorage) Delete(ctx context.Context, name string) error {
	return m.store.DeleteArtifact(ctx, m.predictorID, name)
}

// PutJSON stores v as a JSON blob.
func (m *ModelStorage) PutJSON(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return m.Put(ctx, name, data)
}

// GetJSON retrieves a JSON blob into out.
func (m *ModelStorage) GetJSON(ctx context.Context, name string, out any) error {
	data, err := m.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

// ExportedArtifact is the JSON-safe form of a stored artifact: the payload
// travels as Base64 text, never raw bytes.
type ExportedArtifact struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Export packages an artifact for embedding in a JSON payload.
func (m *ModelStorage) Export(ctx context.Context, name string) (*ExportedArtifact, error) {
	data, err := m.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	content, err := codec.EncodeBinary(data)
	if err != nil {
		return nil, err
	}
	return &ExportedArtifact{Name: name, Content: content}, nil
}

// Import stores an exported artifact back under its original name.
func (m *ModelStorage) Import(ctx context.Context, artifact *ExportedArtifact) error {
	data, err := codec.DecodeBinary(artifact.Content)
	if err != nil {
		return err
	}
	return m.Put(ctx, artifact.Name, data)
}
