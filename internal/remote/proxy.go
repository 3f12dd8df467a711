// Package remote implements the client half of the remote execution
// protocol: a handler that forwards every operation over HTTP to a
// separately deployed executor service, plus the wire types both sides
// share.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/augurml/augur/internal/dataframe"
	"github.com/augurml/augur/internal/discovery"
	"github.com/augurml/augur/internal/engine"
)

var (
	remoteCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "augur_remote_calls_total",
			Help: "Total number of remote execution calls.",
		},
		[]string{"op", "outcome"},
	)

	remoteCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "augur_remote_call_duration_seconds",
			Help:    "Remote execution call duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(remoteCallsTotal)
	prometheus.MustRegister(remoteCallDuration)
}

// Compile-time interface satisfaction check.
var _ engine.Handler = (*Handler)(nil)

// Handler forwards the uniform operation contract to a remote execution
// service. Each instance is bound to one endpoint and one identity for its
// lifetime; the http.Client is reused across calls so the underlying
// connection can be kept alive.
type Handler struct {
	endpoint discovery.Endpoint
	identity Identity
	meta     engine.Metadata
	client   *http.Client
	logger   *slog.Logger
}

// NewHandler creates a proxy bound to the given endpoint and identity.
// meta is the engine identity the proxy reports, so callers see the same
// answer they would get from the local implementation.
func NewHandler(endpoint discovery.Endpoint, identity Identity, meta engine.Metadata, logger *slog.Logger) *Handler {
	return &Handler{
		endpoint: endpoint,
		identity: identity,
		meta:     meta,
		client:   &http.Client{},
		logger:   logger,
	}
}

// Metadata reports the engine's declared identity.
func (h *Handler) Metadata() engine.Metadata {
	return h.meta
}

// Endpoint returns the endpoint this proxy is bound to.
func (h *Handler) Endpoint() discovery.Endpoint {
	return h.endpoint
}

// Create trains a new predictor on the remote service.
func (h *Handler) Create(ctx context.Context, target string, args map[string]any, data *dataframe.Frame) error {
	_, err := h.call(ctx, OpCreate, &Request{
		Target: target,
		Args:   args,
		Data:   NewTable(data),
	})
	return err
}

// Predict forwards the input rows and reconstructs the returned table.
func (h *Handler) Predict(ctx context.Context, data *dataframe.Frame, args map[string]any) (*dataframe.Frame, error) {
	return h.call(ctx, OpPredict, &Request{
		Args: args,
		Data: NewTable(data),
	})
}

// Describe fetches predictor metadata from the remote service.
func (h *Handler) Describe(ctx context.Context, attribute string) (*dataframe.Frame, error) {
	return h.call(ctx, OpDescribe, &Request{
		Attribute: attribute,
	})
}

// Finetune forwards additional training data to the remote service.
func (h *Handler) Finetune(ctx context.Context, data *dataframe.Frame, args map[string]any) error {
	_, err := h.call(ctx, OpFinetune, &Request{
		Args: args,
		Data: NewTable(data),
	})
	return err
}

// call performs one synchronous RPC round trip.
func (h *Handler) call(ctx context.Context, op string, req *Request) (*dataframe.Frame, error) {
	req.Identity = h.identity

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", op, err)
	}

	url := "http://" + h.endpoint.Addr() + RPCPathPrefix + op
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := h.client.Do(httpReq)
	remoteCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		remoteCallsTotal.WithLabelValues(op, "connection_error").Inc()
		return nil, &ConnectionError{Endpoint: h.endpoint.Addr(), Op: op, Err: err}
	}
	defer resp.Body.Close()

	var rpcResp Response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&rpcResp); err != nil {
		remoteCallsTotal.WithLabelValues(op, "protocol_error").Inc()
		return nil, &ConnectionError{Endpoint: h.endpoint.Addr(), Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK || rpcResp.Error != "" {
		remoteCallsTotal.WithLabelValues(op, "remote_error").Inc()
		msg := rpcResp.Error
		if msg == "" {
			msg = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		h.logger.Warn("remote operation failed",
			"op", op,
			"engine", h.identity.Engine,
			"endpoint", h.endpoint.Addr(),
			"error", msg,
		)
		return nil, &RemoteError{Op: op, Message: msg}
	}

	// Predict and describe must carry a table; a 200 without one is a
	// malformed reply, not an empty result.
	if rpcResp.Data == nil && (op == OpPredict || op == OpDescribe) {
		remoteCallsTotal.WithLabelValues(op, "protocol_error").Inc()
		return nil, &ConnectionError{Endpoint: h.endpoint.Addr(), Op: op, Err: fmt.Errorf("response carries no data payload")}
	}

	remoteCallsTotal.WithLabelValues(op, "ok").Inc()
	return rpcResp.Data.Frame()
}

const maxResponseSize = 1 << 28 // 256 MB
