package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/augurml/augur/internal/model"
	"github.com/augurml/augur/internal/store"
)

type createProjectRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "project name is required")
		return
	}

	p := &model.Project{
		ID:        model.NewID(),
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateProject(r.Context(), p); err != nil {
		s.logger.Error("create project", "name", req.Name, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	s.writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context())
	if err != nil {
		s.logger.Error("list projects", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	s.writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, ok := s.projectFromRequest(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

// projectFromRequest resolves the {project} URL parameter to a stored
// project, writing a 404 and returning ok=false when it does not exist.
func (s *Server) projectFromRequest(w http.ResponseWriter, r *http.Request) (*model.Project, bool) {
	name := chi.URLParam(r, "project")
	p, err := s.store.GetProjectByName(r.Context(), name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("project %q does not exist", name))
			return nil, false
		}
		s.logger.Error("get project", "name", name, "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to load project")
		return nil, false
	}
	return p, true
}
