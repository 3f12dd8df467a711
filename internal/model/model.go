package model

import (
	"strconv"
	"strings"
	"time"
)

// Model status constants.
const (
	StatusGenerating = "generating"
	StatusTraining   = "training"
	StatusComplete   = "complete"
	StatusError      = "error"
)

// validTransitions maps each status to the set of statuses it may transition to.
var validTransitions = map[string]map[string]bool{
	StatusGenerating: {
		StatusTraining: true,
		StatusError:    true,
	},
	StatusTraining: {
		StatusComplete: true,
		StatusError:    true,
	},
	StatusComplete: {
		StatusTraining: true, // finetune re-enters training
	},
}

// ValidTransition reports whether transitioning from one status to another is allowed.
func ValidTransition(from, to string) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Project groups models under one namespace.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Integration is one configured instance of a computation engine, e.g. a
// "baseline" engine configured for a particular tenant. Models are trained
// through an integration and carry its id for the lifetime of the model.
type Integration struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Engine    string    `json:"engine"`
	CreatedAt time.Time `json:"created_at"`
}

// Model is one trained (or training) predictor version.
type Model struct {
	ID            string         `json:"id"`
	ProjectID     string         `json:"project_id"`
	IntegrationID string         `json:"integration_id"`
	Name          string         `json:"name"`
	Version       int            `json:"version"`
	Engine        string         `json:"engine"`
	Status        string         `json:"status"`
	Active        bool           `json:"active"`
	Target        string         `json:"target,omitempty"`
	Params        map[string]any `json:"params,omitempty"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// SplitVersion splits a trailing numeric version suffix off a model name.
// "sales_forecast.3" yields ("sales_forecast", 3, true); names without a
// numeric suffix come back unchanged with ok false.
func SplitVersion(name string) (string, int, bool) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return name, 0, false
	}
	version, err := strconv.Atoi(name[idx+1:])
	if err != nil || version < 0 {
		return name, 0, false
	}
	return name[:idx], version, true
}
