// Package trend implements a univariate least-squares engine: it fits
// target = intercept + slope * feature. Without an explicit feature column
// it regresses against the row index and extrapolates, which makes it a
// minimal forecaster.
package trend

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/augurml/augur/internal/dataframe"
	"github.com/augurml/augur/internal/engine"
	"github.com/augurml/augur/internal/storage"
)

// EngineName is the registry key for this engine.
const EngineName = "trend"

const (
	stateFile = "state.json"
	argsFile  = "args.json"
)

// Metadata identifies the trend implementation.
var Metadata = engine.Metadata{
	Name:      "TrendHandler",
	Namespace: "augur.engines.trend",
}

// Registration returns the registry entry for the trend engine.
func Registration() engine.Registration {
	return engine.Registration{
		Metadata: Metadata,
		New: func(es *storage.EngineStorage, ms *storage.ModelStorage, _ map[string]any) engine.Handler {
			return &Handler{engineStorage: es, modelStorage: ms}
		},
	}
}

// state holds the sufficient statistics of the fit, so finetuning can fold
// in new observations without the original data.
type state struct {
	Target  string   `json:"target"`
	Feature string   `json:"feature,omitempty"`
	Columns []string `json:"columns"`

	N     float64 `json:"n"`
	SumX  float64 `json:"sum_x"`
	SumY  float64 `json:"sum_y"`
	SumXY float64 `json:"sum_xy"`
	SumXX float64 `json:"sum_xx"`
}

// Handler implements engine.Handler.
type Handler struct {
	engineStorage *storage.EngineStorage
	modelStorage  *storage.ModelStorage
}

// Metadata reports the engine's declared identity.
func (h *Handler) Metadata() engine.Metadata {
	return Metadata
}

// Create fits the line and persists the sufficient statistics. The optional
// "feature" arg names the x column; absent, x is the row index.
func (h *Handler) Create(ctx context.Context, target string, args map[string]any, data *dataframe.Frame) error {
	if data == nil || data.Len() < 2 {
		return errors.New("trend needs at least two training rows")
	}
	if target == "" {
		return errors.New("target is required")
	}

	st := &state{
		Target:  target,
		Columns: data.Columns(),
	}
	if args == nil {
		args = map[string]any{}
	}
	if f, ok := args["feature"].(string); ok {
		st.Feature = f
	}

	if err := st.observe(data); err != nil {
		return err
	}
	if _, _, err := st.line(); err != nil {
		return err
	}

	args["target"] = target
	if err := h.modelStorage.PutJSON(ctx, argsFile, args); err != nil {
		return err
	}
	return h.modelStorage.PutJSON(ctx, stateFile, st)
}

// Predict evaluates the fitted line at each input row.
func (h *Handler) Predict(ctx context.Context, data *dataframe.Frame, _ map[string]any) (*dataframe.Frame, error) {
	st, err := h.loadState(ctx)
	if err != nil {
		return nil, err
	}
	slope, intercept, err := st.line()
	if err != nil {
		return nil, err
	}

	n := 1
	if data != nil {
		n = data.Len()
	}
	out := dataframe.New(st.Target)
	for i := 0; i < n; i++ {
		var x float64
		if st.Feature == "" {
			// Extrapolate past the training range.
			x = st.N + float64(i)
		} else {
			v, ok := toFloat(data.Value(i, st.Feature))
			if !ok {
				return nil, fmt.Errorf("row %d: feature %q is not numeric", i, st.Feature)
			}
			x = v
		}
		out.Append(intercept + slope*x)
	}
	return out, nil
}

// Describe reports tabular metadata about the fit.
func (h *Handler) Describe(ctx context.Context, attribute string) (*dataframe.Frame, error) {
	st, err := h.loadState(ctx)
	if err != nil {
		return nil, err
	}

	switch attribute {
	case engine.DescribeArgs:
		var args map[string]any
		if err := h.modelStorage.GetJSON(ctx, argsFile, &args); err != nil {
			return nil, err
		}
		out := dataframe.New("key", "value")
		for _, k := range sortedKeys(args) {
			out.Append(k, args[k])
		}
		return out, nil
	case engine.DescribeInfo:
		slope, intercept, err := st.line()
		if err != nil {
			return nil, err
		}
		out := dataframe.New("engine", "target", "slope", "intercept", "rows")
		out.Append(EngineName, st.Target, slope, intercept, int(st.N))
		return out, nil
	case engine.DescribeFeatures:
		out := dataframe.New("column", "role")
		for _, c := range st.Columns {
			role := "ignored"
			switch c {
			case st.Target:
				role = "target"
			case st.Feature:
				role = "feature"
			}
			out.Append(c, role)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown describe attribute %q", attribute)
	}
}

// Finetune folds additional observations into the fit.
func (h *Handler) Finetune(ctx context.Context, data *dataframe.Frame, _ map[string]any) error {
	if data == nil || data.Len() == 0 {
		return errors.New("finetune data is empty")
	}
	st, err := h.loadState(ctx)
	if err != nil {
		return err
	}
	if err := st.observe(data); err != nil {
		return err
	}
	return h.modelStorage.PutJSON(ctx, stateFile, st)
}

func (h *Handler) loadState(ctx context.Context) (*state, error) {
	st := &state{}
	if err := h.modelStorage.GetJSON(ctx, stateFile, st); err != nil {
		return nil, fmt.Errorf("load trained state: %w", err)
	}
	return st, nil
}

func (st *state) observe(data *dataframe.Frame) error {
	for i := 0; i < data.Len(); i++ {
		y, ok := toFloat(data.Value(i, st.Target))
		if !ok {
			return fmt.Errorf("row %d: target %q is not numeric", i, st.Target)
		}
		var x float64
		if st.Feature == "" {
			x = st.N
		} else {
			v, ok := toFloat(data.Value(i, st.Feature))
			if !ok {
				return fmt.Errorf("row %d: feature %q is not numeric", i, st.Feature)
			}
			x = v
		}
		st.N++
		st.SumX += x
		st.SumY += y
		st.SumXY += x * y
		st.SumXX += x * x
	}
	return nil
}

// line solves the normal equations for slope and intercept.
func (st *state) line() (slope, intercept float64, err error) {
	denom := st.N*st.SumXX - st.SumX*st.SumX
	if denom == 0 {
		return 0, 0, errors.New("feature values are constant, no trend to fit")
	}
	slope = (st.N*st.SumXY - st.SumX*st.SumY) / denom
	intercept = (st.SumY - slope*st.SumX) / st.N
	return slope, intercept, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
