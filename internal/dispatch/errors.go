package dispatch

import "fmt"

// ConfigurationError means an engine is resolvable by no path: discovery
// yielded nothing, no fallback endpoint is configured, and no local
// implementation is registered. This is a deployment problem, fatal for the
// request and never retried.
type ConfigurationError struct {
	Engine string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("engine %q is not available: no remote endpoint resolved and no local implementation registered", e.Engine)
}
