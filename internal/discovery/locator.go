// Package discovery resolves the network location of remote execution
// services through an optional service registry. Resolution never fails:
// a missing, unreachable, or empty registry all collapse to "no endpoint",
// keeping the platform usable in fully local mode when the registry is
// down. The distinct statuses exist for logging, not for control flow.
package discovery

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"
)

const discoverTimeout = 5 * time.Second

// Endpoint is a reachable remote execution service for one engine.
type Endpoint struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Addr returns the endpoint in host:port form.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// Status classifies the outcome of a discovery attempt.
type Status int

const (
	// StatusFound means the registry returned at least one endpoint.
	StatusFound Status = iota
	// StatusNotConfigured means no registry address is configured; the
	// default, fully local deployment mode.
	StatusNotConfigured
	// StatusNotFound means the registry answered but knows no service for
	// the engine.
	StatusNotFound
	// StatusUnreachable means the registry could not be queried. Treated
	// the same as not found; availability wins over accuracy here.
	StatusUnreachable
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotConfigured:
		return "not_configured"
	case StatusNotFound:
		return "not_found"
	case StatusUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of one discovery attempt. Endpoint is only
// meaningful when Found() reports true.
type Resolution struct {
	Status   Status
	Endpoint Endpoint
}

// Found reports whether discovery produced a usable endpoint.
func (r Resolution) Found() bool {
	return r.Status == StatusFound
}

// Locator queries the service registry. It is stateless and safe for
// concurrent use; every call re-resolves so topology changes are picked up
// without a restart.
type Locator struct {
	registryURL string
	client      *http.Client
	logger      *slog.Logger
}

// NewLocator creates a locator for the given registry base URL. An empty
// URL disables discovery.
func NewLocator(registryURL string, logger *slog.Logger) *Locator {
	return &Locator{
		registryURL: registryURL,
		client:      &http.Client{Timeout: discoverTimeout},
		logger:      logger,
	}
}

// Discover looks up the first registered endpoint for an engine. It never
// returns an error: transport failures are logged and reported as
// StatusUnreachable.
func (l *Locator) Discover(ctx context.Context, engineName string) Resolution {
	if l.registryURL == "" {
		return Resolution{Status: StatusNotConfigured}
	}

	url := l.registryURL + "/discover"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		l.logger.Warn("discovery request build failed", "registry", url, "error", err)
		return Resolution{Status: StatusUnreachable}
	}

	resp, err := l.client.Do(req)
	if err != nil {
		l.logger.Warn("service registry unreachable", "registry", url, "error", err)
		return Resolution{Status: StatusUnreachable}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		l.logger.Warn("service registry returned error", "registry", url, "status", resp.StatusCode)
		return Resolution{Status: StatusUnreachable}
	}

	var services map[string][]Endpoint
	if err := json.NewDecoder(resp.Body).Decode(&services); err != nil {
		l.logger.Warn("service registry response malformed", "registry", url, "error", err)
		return Resolution{Status: StatusUnreachable}
	}

	endpoints := services[engineName]
	if len(endpoints) == 0 {
		return Resolution{Status: StatusNotFound}
	}

	// First candidate wins; the registry orders them.
	return Resolution{Status: StatusFound, Endpoint: endpoints[0]}
}
