package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/augurml/augur/internal/codec"
	"github.com/augurml/augur/internal/dataframe"
	"github.com/augurml/augur/internal/dispatch"
	"github.com/augurml/augur/internal/engine"
	"github.com/augurml/augur/internal/model"
	"github.com/augurml/augur/internal/storage"
	"github.com/augurml/augur/internal/store"
)

type createModelRequest struct {
	Name   string             `json:"name"`
	Engine string             `json:"engine"`
	Target string             `json:"target"`
	Data   []dataframe.Record `json:"data"`
	Params map[string]any     `json:"params"`
}

type inferenceRequest struct {
	Data   []dataframe.Record `json:"data"`
	Params map[string]any     `json:"params"`
}

type describeRequest struct {
	Attribute string `json:"attribute"`
}

func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	p, ok := s.projectFromRequest(w, r)
	if !ok {
		return
	}

	models, err := s.store.ListModels(r.Context(), p.ID)
	if err != nil {
		s.logger.Error("list models", "project", p.Name, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list models")
		return
	}
	s.writeJSON(w, http.StatusOK, models)
}

// handleCreateModel creates a model record and trains it synchronously. The
// response carries the final record: status complete on success, status
// error with the failure message otherwise.
func (s *Server) handleCreateModel(w http.ResponseWriter, r *http.Request) {
	p, ok := s.projectFromRequest(w, r)
	if !ok {
		return
	}

	var req createModelRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "model name is required")
		return
	}
	if req.Engine == "" {
		s.writeError(w, http.StatusBadRequest, "engine is required")
		return
	}
	if req.Target == "" {
		s.writeError(w, http.StatusBadRequest, "target is required")
		return
	}

	ctx := r.Context()

	integration, err := s.integrationForEngine(ctx, req.Engine)
	if err != nil {
		s.logger.Error("resolve integration", "engine", req.Engine, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to resolve integration")
		return
	}

	version, err := s.nextVersion(ctx, p.ID, req.Name)
	if err != nil {
		s.logger.Error("resolve model version", "model", req.Name, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to resolve model version")
		return
	}

	now := time.Now().UTC()
	m := &model.Model{
		ID:            model.NewID(),
		ProjectID:     p.ID,
		IntegrationID: integration.ID,
		Name:          req.Name,
		Version:       version,
		Engine:        req.Engine,
		Status:        model.StatusGenerating,
		Active:        version == 1,
		Target:        req.Target,
		Params:        req.Params,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateModel(ctx, m); err != nil {
		s.logger.Error("create model", "model", req.Name, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to create model")
		return
	}

	handler, err := s.handlerFor(ctx, m)
	if err != nil {
		s.failModel(ctx, m, err)
		var cfgErr *dispatch.ConfigurationError
		if errors.As(err, &cfgErr) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.setStatus(ctx, m, model.StatusTraining, ""); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to update model status")
		return
	}

	frame := dataframe.FromRecords(req.Data)
	if err := handler.Create(ctx, req.Target, req.Params, frame); err != nil {
		s.failModel(ctx, m, err)
		s.writeJSON(w, http.StatusInternalServerError, m)
		return
	}

	if err := s.setStatus(ctx, m, model.StatusComplete, ""); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to update model status")
		return
	}
	s.writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	p, ok := s.projectFromRequest(w, r)
	if !ok {
		return
	}

	var req inferenceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ctx := r.Context()
	m, ok := s.modelFromRequest(w, r, p)
	if !ok {
		return
	}

	handler, err := s.handlerFor(ctx, m)
	if err != nil {
		s.logger.Error("dispatch handler", "model", m.Name, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out, err := handler.Predict(ctx, dataframe.FromRecords(req.Data), req.Params)
	if err != nil {
		s.logger.Error("predict", "model", m.Name, "version", m.Version, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, codec.Encode(out.Records()))
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	p, ok := s.projectFromRequest(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	m, ok := s.modelFromRequest(w, r, p)
	if !ok {
		return
	}

	var req describeRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Attribute == "" {
		req.Attribute = engine.DescribeInfo
	}

	handler, err := s.handlerFor(ctx, m)
	if err != nil {
		s.logger.Error("dispatch handler", "model", m.Name, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out, err := handler.Describe(ctx, req.Attribute)
	if err != nil {
		s.logger.Error("describe", "model", m.Name, "attribute", req.Attribute, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, codec.Encode(out.Records()))
}

func (s *Server) handleFinetune(w http.ResponseWriter, r *http.Request) {
	p, ok := s.projectFromRequest(w, r)
	if !ok {
		return
	}

	var req inferenceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ctx := r.Context()
	m, ok := s.modelFromRequest(w, r, p)
	if !ok {
		return
	}

	handler, err := s.handlerFor(ctx, m)
	if err != nil {
		s.logger.Error("dispatch handler", "model", m.Name, "error", err)
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	frame := dataframe.FromRecords(req.Data)

	if err := s.setStatus(ctx, m, model.StatusTraining, ""); err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}

	if err := handler.Finetune(ctx, frame, req.Params); err != nil {
		s.failModel(ctx, m, err)
		s.writeJSON(w, http.StatusInternalServerError, m)
		return
	}

	if err := s.setStatus(ctx, m, model.StatusComplete, ""); err != nil {
		s.writeError(w, http.StatusInternalServerError, "failed to update model status")
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

// modelFromRequest resolves the {model} URL parameter, honoring a trailing
// ".N" version suffix. A project that exists but has no such model is a 500:
// the route was reachable, the record was not.
func (s *Server) modelFromRequest(w http.ResponseWriter, r *http.Request, p *model.Project) (*model.Model, bool) {
	raw := chi.URLParam(r, "model")
	name, version, _ := model.SplitVersion(raw)

	m, err := s.store.GetModel(r.Context(), p.ID, name, version)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusInternalServerError,
				fmt.Sprintf("model %q not found in project %q", raw, p.Name))
			return nil, false
		}
		s.logger.Error("get model", "model", raw, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load model")
		return nil, false
	}
	return m, true
}

// handlerFor dispatches an execution handler bound to the model's
// integration and predictor.
func (s *Server) handlerFor(ctx context.Context, m *model.Model) (engine.Handler, error) {
	engineStorage := storage.NewEngineStorage(s.store, m.IntegrationID)
	modelStorage := storage.NewModelStorage(s.store, m.ID)
	return s.factory.Dispatch(ctx, m.Engine, engineStorage, modelStorage, m.Params)
}

// integrationForEngine returns the integration for an engine, creating a
// default one on first use.
func (s *Server) integrationForEngine(ctx context.Context, engineName string) (*model.Integration, error) {
	integration, err := s.store.GetIntegrationByEngine(ctx, engineName)
	if err == nil {
		return integration, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	integration = &model.Integration{
		ID:        model.NewID(),
		Name:      engineName,
		Engine:    engineName,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateIntegration(ctx, integration); err != nil {
		return nil, err
	}
	return integration, nil
}

// nextVersion returns one past the highest existing version of the named
// model, starting at 1.
func (s *Server) nextVersion(ctx context.Context, projectID, name string) (int, error) {
	models, err := s.store.ListModels(ctx, projectID)
	if err != nil {
		return 0, err
	}
	version := 1
	for _, m := range models {
		if m.Name == name && m.Version >= version {
			version = m.Version + 1
		}
	}
	return version, nil
}

// setStatus records a status transition on both the store and the in-memory
// record. Transitions outside the model lifecycle are rejected before
// touching the store.
func (s *Server) setStatus(ctx context.Context, m *model.Model, status, errMsg string) error {
	if !model.ValidTransition(m.Status, status) {
		return fmt.Errorf("model %q cannot transition from %s to %s", m.Name, m.Status, status)
	}
	if err := s.store.UpdateModelStatus(ctx, m.ID, status, errMsg); err != nil {
		s.logger.Error("update model status", "model", m.Name, "status", status, "error", err)
		return err
	}
	m.Status = status
	m.Error = errMsg
	return nil
}

// failModel marks the model errored, preserving the failure message on the
// record.
func (s *Server) failModel(ctx context.Context, m *model.Model, cause error) {
	if err := s.setStatus(ctx, m, model.StatusError, cause.Error()); err != nil {
		s.logger.Error("mark model failed", "model", m.Name, "error", err)
	}
}
