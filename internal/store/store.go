// Package store persists projects, integrations, model records, and model
// artifacts. The routing layer itself holds no session state; everything
// durable lives here.
package store

import (
	"context"
	"errors"

	"github.com/augurml/augur/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the persistence interface used by the API server, the executor
// service, and the storage handles given to engine handlers.
type Store interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProjectByName(ctx context.Context, name string) (*model.Project, error)
	ListProjects(ctx context.Context) ([]*model.Project, error)

	CreateIntegration(ctx context.Context, in *model.Integration) error
	GetIntegration(ctx context.Context, id string) (*model.Integration, error)
	GetIntegrationByEngine(ctx context.Context, engine string) (*model.Integration, error)

	CreateModel(ctx context.Context, m *model.Model) error
	// GetModel resolves a model by name within a project. Version 0 means
	// the active version.
	GetModel(ctx context.Context, projectID, name string, version int) (*model.Model, error)
	ListModels(ctx context.Context, projectID string) ([]*model.Model, error)
	UpdateModelStatus(ctx context.Context, id, status, errMsg string) error

	// Artifacts are opaque blobs scoped to an owner: an integration id for
	// engine-level state, a predictor id for per-model state.
	PutArtifact(ctx context.Context, ownerID, name string, data []byte) error
	GetArtifact(ctx context.Context, ownerID, name string) ([]byte, error)
	DeleteArtifact(ctx context.Context, ownerID, name string) error

	Close() error
}
