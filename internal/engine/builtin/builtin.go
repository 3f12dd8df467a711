// Package builtin assembles the registry of engines compiled into this
// binary. Both the API server and the executor service register the same
// set, so an engine behaves identically whichever process runs it.
package builtin

import (
	"fmt"

	"github.com/augurml/augur/internal/engine"
	"github.com/augurml/augur/internal/engine/baseline"
	"github.com/augurml/augur/internal/engine/trend"
)

// Registry returns a registry populated with all built-in engines.
func Registry() (*engine.Registry, error) {
	reg := engine.NewRegistry()
	for name, r := range map[string]engine.Registration{
		baseline.EngineName: baseline.Registration(),
		trend.EngineName:    trend.Registration(),
	} {
		if err := reg.Register(name, r); err != nil {
			return nil, fmt.Errorf("register builtin engine: %w", err)
		}
	}
	return reg, nil
}
