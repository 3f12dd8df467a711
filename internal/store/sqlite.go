package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/augurml/augur/internal/model"

	_ "modernc.org/sqlite"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS projects (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS integrations (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    engine     TEXT NOT NULL,
    created_at DATETIME NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS models (
    id             TEXT PRIMARY KEY,
    project_id     TEXT NOT NULL,
    integration_id TEXT NOT NULL,
    name           TEXT NOT NULL,
    version        INTEGER NOT NULL,
    engine         TEXT NOT NULL,
    status         TEXT NOT NULL,
    active         INTEGER NOT NULL DEFAULT 0,
    target         TEXT,
    params         TEXT,
    error          TEXT,
    created_at     DATETIME NOT NULL,
    updated_at     DATETIME NOT NULL,
    UNIQUE (project_id, name, version)
)`, `
CREATE TABLE IF NOT EXISTS artifacts (
    owner_id   TEXT NOT NULL,
    name       TEXT NOT NULL,
    data       BLOB NOT NULL,
    updated_at DATETIME NOT NULL,
    PRIMARY KEY (owner_id, name)
)`}

// Compile-time interface satisfaction check.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the SQLite database at dbPath and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateProject inserts a new project record.
func (s *SQLiteStore) CreateProject(ctx context.Context, p *model.Project) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)`,
		p.ID, p.Name, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetProjectByName retrieves a project by its unique name.
func (s *SQLiteStore) GetProjectByName(ctx context.Context, name string) (*model.Project, error) {
	p := &model.Project{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM projects WHERE name = ?`, name,
	).Scan(&p.ID, &p.Name, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// ListProjects returns all projects ordered by name.
func (s *SQLiteStore) ListProjects(ctx context.Context) ([]*model.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at FROM projects ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		p := &model.Project{}
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CreateIntegration inserts a new integration record.
func (s *SQLiteStore) CreateIntegration(ctx context.Context, in *model.Integration) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO integrations (id, name, engine, created_at) VALUES (?, ?, ?, ?)`,
		in.ID, in.Name, in.Engine, in.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert integration: %w", err)
	}
	return nil
}

// GetIntegration retrieves an integration by id.
func (s *SQLiteStore) GetIntegration(ctx context.Context, id string) (*model.Integration, error) {
	in := &model.Integration{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, engine, created_at FROM integrations WHERE id = ?`, id,
	).Scan(&in.ID, &in.Name, &in.Engine, &in.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get integration: %w", err)
	}
	return in, nil
}

// GetIntegrationByEngine retrieves the integration configured for an engine.
func (s *SQLiteStore) GetIntegrationByEngine(ctx context.Context, engine string) (*model.Integration, error) {
	in := &model.Integration{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, engine, created_at FROM integrations WHERE engine = ? ORDER BY created_at LIMIT 1`,
		engine,
	).Scan(&in.ID, &in.Name, &in.Engine, &in.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get integration by engine: %w", err)
	}
	return in, nil
}

// CreateModel inserts a new model record. The first version of a model name
// is created active; later versions start inactive.
func (s *SQLiteStore) CreateModel(ctx context.Context, m *model.Model) error {
	params, err := marshalParams(m.Params)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO models (
			id, project_id, integration_id, name, version, engine,
			status, active, target, params, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProjectID, m.IntegrationID, m.Name, m.Version, m.Engine,
		m.Status, m.Active, m.Target, params, m.Error, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert model: %w", err)
	}
	return nil
}

const modelColumns = `id, project_id, integration_id, name, version, engine,
	status, active, target, params, error, created_at, updated_at`

// GetModel resolves a model by name within a project. Version 0 resolves to
// the active version; explicit versions must match exactly.
func (s *SQLiteStore) GetModel(ctx context.Context, projectID, name string, version int) (*model.Model, error) {
	query := `SELECT ` + modelColumns + ` FROM models WHERE project_id = ? AND name = ?`
	args := []any{projectID, name}
	if version > 0 {
		query += ` AND version = ?`
		args = append(args, version)
	} else {
		query += ` AND active = 1`
	}

	row := s.db.QueryRowContext(ctx, query, args...)
	m, err := scanModel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get model: %w", err)
	}
	return m, nil
}

// ListModels returns all model versions in a project, newest first.
func (s *SQLiteStore) ListModels(ctx context.Context, projectID string) ([]*model.Model, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+modelColumns+` FROM models WHERE project_id = ? ORDER BY name, version DESC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var models []*model.Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// UpdateModelStatus transitions a model to a new status, recording the error
// message for failed transitions.
func (s *SQLiteStore) UpdateModelStatus(ctx context.Context, id, status, errMsg string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE models SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		status, errMsg, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update model status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update model status: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PutArtifact stores or replaces an opaque blob for the given owner.
func (s *SQLiteStore) PutArtifact(ctx context.Context, ownerID, name string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO artifacts (owner_id, name, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (owner_id, name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		ownerID, name, data, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put artifact: %w", err)
	}
	return nil
}

// GetArtifact retrieves an artifact blob.
func (s *SQLiteStore) GetArtifact(ctx context.Context, ownerID, name string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM artifacts WHERE owner_id = ? AND name = ?`, ownerID, name,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get artifact: %w", err)
	}
	return data, nil
}

// DeleteArtifact removes an artifact blob. Deleting a missing artifact is
// not an error.
func (s *SQLiteStore) DeleteArtifact(ctx context.Context, ownerID, name string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM artifacts WHERE owner_id = ? AND name = ?`, ownerID, name)
	if err != nil {
		return fmt.Errorf("delete artifact: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanModel(row rowScanner) (*model.Model, error) {
	m := &model.Model{}
	var target, params, errMsg sql.NullString
	err := row.Scan(
		&m.ID, &m.ProjectID, &m.IntegrationID, &m.Name, &m.Version, &m.Engine,
		&m.Status, &m.Active, &target, &params, &errMsg, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Target = target.String
	m.Error = errMsg.String
	if params.Valid && params.String != "" {
		if err := json.Unmarshal([]byte(params.String), &m.Params); err != nil {
			return nil, fmt.Errorf("decode model params: %w", err)
		}
	}
	return m, nil
}

func marshalParams(params map[string]any) (string, error) {
	if len(params) == 0 {
		return "", nil
	}
	b, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode model params: %w", err)
	}
	return string(b), nil
}
