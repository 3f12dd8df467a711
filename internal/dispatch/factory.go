// Package dispatch decides, per call, where an engine's operations execute:
// in this process through the local registry, or in a remote execution
// service found through discovery or static fallback configuration. Callers
// get back the same uniform handler contract either way.
package dispatch

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/augurml/augur/internal/config"
	"github.com/augurml/augur/internal/discovery"
	"github.com/augurml/augur/internal/engine"
	"github.com/augurml/augur/internal/remote"
	"github.com/augurml/augur/internal/storage"
)

// remoteNamespace is reported for engines that are only reachable remotely,
// where no local registration carries the implementation identity.
const remoteNamespace = "augur.engines.remote"

var dispatchTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "augur_dispatch_total",
		Help: "Total number of handler dispatches by execution path.",
	},
	[]string{"engine", "path"},
)

func init() {
	prometheus.MustRegister(dispatchTotal)
}

// Factory produces handler instances bound to one engine and one pair of
// storage handles. It is stateless and safe for concurrent use; every
// invocation re-resolves the execution path so topology changes apply
// without a restart.
type Factory struct {
	cfg      config.Config
	locator  *discovery.Locator
	registry *engine.Registry
	logger   *slog.Logger
}

// NewFactory creates a dispatch factory. Configuration is captured once
// here; resolution order stays testable by injecting different configs.
func NewFactory(cfg config.Config, locator *discovery.Locator, registry *engine.Registry, logger *slog.Logger) *Factory {
	return &Factory{
		cfg:      cfg,
		locator:  locator,
		registry: registry,
		logger:   logger,
	}
}

// Dispatch resolves a handler for the engine, first match wins:
//
//  1. a registry-discovered remote endpoint
//  2. the statically configured fallback endpoint
//  3. the local implementation registry
//
// A remote endpoint always wins over a local implementation. An engine
// resolvable by no path is a *ConfigurationError.
func (f *Factory) Dispatch(ctx context.Context, engineName string, engineStorage *storage.EngineStorage, modelStorage *storage.ModelStorage, args map[string]any) (engine.Handler, error) {
	res := f.locator.Discover(ctx, engineName)

	endpoint := res.Endpoint
	haveEndpoint := res.Found()
	if !haveEndpoint && f.cfg.HasServiceFallback() {
		endpoint = discovery.Endpoint{Host: f.cfg.ServiceHost, Port: f.cfg.ServicePort}
		haveEndpoint = true
	}

	if haveEndpoint {
		identity := remote.Identity{
			Engine:        engineName,
			IntegrationID: engineStorage.IntegrationID(),
			PredictorID:   modelStorage.PredictorID(),
		}
		f.logger.Info("dispatching remotely",
			"engine", engineName,
			"endpoint", endpoint.Addr(),
			"discovery", res.Status.String(),
		)
		dispatchTotal.WithLabelValues(engineName, "remote").Inc()
		return remote.NewHandler(endpoint, identity, f.metadataFor(engineName), f.logger), nil
	}

	reg, ok := f.registry.Lookup(engineName)
	if !ok {
		return nil, &ConfigurationError{Engine: engineName}
	}

	f.logger.Debug("dispatching locally",
		"engine", engineName,
		"discovery", res.Status.String(),
	)
	dispatchTotal.WithLabelValues(engineName, "local").Inc()
	return reg.New(engineStorage, modelStorage, args), nil
}

// metadataFor resolves the identity a remote proxy should report. The local
// registration is authoritative when present, so a caller inspecting a
// handler sees the same engine identity whether execution is local or
// remote.
func (f *Factory) metadataFor(engineName string) engine.Metadata {
	if reg, ok := f.registry.Lookup(engineName); ok {
		return reg.Metadata
	}
	return engine.Metadata{Name: engineName, Namespace: remoteNamespace}
}
