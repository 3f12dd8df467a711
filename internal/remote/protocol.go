package remote

import (
	"github.com/augurml/augur/internal/codec"
	"github.com/augurml/augur/internal/dataframe"
)

// Operation names, also the final path segment of the RPC endpoint.
const (
	OpCreate   = "create"
	OpPredict  = "predict"
	OpDescribe = "describe"
	OpFinetune = "finetune"
)

// RPCPathPrefix is where the executor service mounts the protocol.
const RPCPathPrefix = "/v1/rpc/"

// Identity routes a call to the right handler on the remote side: which
// engine, which integration, which predictor.
type Identity struct {
	Engine        string `json:"engine"`
	IntegrationID string `json:"integration_id"`
	PredictorID   string `json:"predictor_id"`
}

// Table is the wire form of a dataframe: explicit column order plus
// row-oriented values, every cell already passed through the result codec
// so the payload is always JSON-safe.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NewTable converts a frame for transport.
func NewTable(f *dataframe.Frame) *Table {
	if f == nil {
		return nil
	}
	rows := f.Rows()
	for _, row := range rows {
		for i, v := range row {
			row[i] = codec.Encode(v)
		}
	}
	return &Table{Columns: f.Columns(), Rows: rows}
}

// Frame reconstructs the tabular shape a local handler would have returned.
func (t *Table) Frame() (*dataframe.Frame, error) {
	if t == nil {
		return nil, nil
	}
	return dataframe.FromColumns(t.Columns, t.Rows)
}

// Request is the body of one RPC call.
type Request struct {
	Identity  Identity       `json:"identity"`
	Target    string         `json:"target,omitempty"`
	Attribute string         `json:"attribute,omitempty"`
	Args      map[string]any `json:"args,omitempty"`
	Data      *Table         `json:"data,omitempty"`
}

// Response is the body of one RPC reply. Exactly one of Data and Error is
// meaningful; a non-empty Error means the remote engine's own operation
// failed.
type Response struct {
	Data  *Table `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}
