// Package baseline implements the simplest useful engine: it predicts the
// mean of a numeric target or the most frequent value of a categorical one.
// It exists so a deployment works out of the box and doubles as the
// reference implementation of the handler contract.
package baseline

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
const EngineName = "baseline"

const (
	stateFile = "state.json"
	argsFile  = "args.json"

	kindNumeric     = "numeric"
	kindCategorical = "categorical"
)

// Metadata identifies the baseline implementation.
var Metadata = engine.Metadata{
	Name:      "BaselineHandler",
	Namespace: "augur.engines.baseline",
}

// Registration returns the registry entry for the baseline engine.
func Registration() engine.Registration {
	return engine.Registration{
		Metadata: Metadata,
		New: func(es *storage.EngineStorage, ms *storage.ModelStorage, _ map[string]any) engine.Handler {
			return &Handler{engineStorage: es, modelStorage: ms}
		},
	}
}

// state is the trained model: sufficient statistics for the mean (numeric
// targets) or value frequencies (categorical targets).
type state struct {
	Target  string         `json:"target"`
	Kind    string         `json:"kind"`
	Columns []string       `json:"columns"`
	Count   int            `json:"count"`
	Sum     float64        `json:"sum"`
	Freq    map[string]int `json:"freq,omitempty"`
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

// Create fits the baseline on the target column and persists the trained
// state through the model storage handle.
func (h *Handler) Create(ctx context.Context, target string, args map[string]any, data *dataframe.Frame) error {
	if data == nil || data.Len() == 0 {
		return errors.New("training data is empty")
	}
	if target == "" {
		return errors.New("target is required")
	}
	if !hasColumn(data, target) {
		return fmt.Errorf("target column %q not in training data", target)
	}

	st := &state{
		Target:  target,
		Kind:    inferKind(data, target),
		Columns: data.Columns(),
		Freq:    make(map[string]int),
	}
	st.observe(data)
	if st.Count == 0 {
		return fmt.Errorf("target column %q has no non-null values", target)
	}

	if args == nil {
		args = map[string]any{}
	}
	args["target"] = target
	if err := h.modelStorage.PutJSON(ctx, argsFile, args); err != nil {
		return err
	}
	return h.modelStorage.PutJSON(ctx, stateFile, st)
}

// Predict returns one constant prediction per input row.
func (h *Handler) Predict(ctx context.Context, data *dataframe.Frame, _ map[string]any) (*dataframe.Frame, error) {
	st, err := h.loadState(ctx)
	if err != nil {
		return nil, err
	}

	var prediction any
	switch st.Kind {
	case kindNumeric:
		prediction = st.Sum / float64(st.Count)
	default:
		prediction = st.mode()
	}

	n := 1
	if data != nil {
		n = data.Len()
	}
	out := dataframe.New(st.Target)
	for i := 0; i < n; i++ {
		out.Append(prediction)
	}
	return out, nil
}

// Describe reports tabular metadata about the trained predictor.
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
		keys := make([]string, 0, len(args))
		for k := range args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out.Append(k, args[k])
		}
		return out, nil
	case engine.DescribeInfo:
		out := dataframe.New("engine", "target", "kind", "rows")
		out.Append(EngineName, st.Target, st.Kind, st.Count)
		return out, nil
	case engine.DescribeFeatures:
		out := dataframe.New("column", "role")
		for _, c := range st.Columns {
			role := "feature"
			if c == st.Target {
				role = "target"
			}
			out.Append(c, role)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown describe attribute %q", attribute)
	}
}

// Finetune folds additional rows into the stored statistics.
func (h *Handler) Finetune(ctx context.Context, data *dataframe.Frame, _ map[string]any) error {
	if data == nil || data.Len() == 0 {
		return errors.New("finetune data is empty")
	}
	st, err := h.loadState(ctx)
	if err != nil {
		return err
	}
	if !hasColumn(data, st.Target) {
		return fmt.Errorf("target column %q not in finetune data", st.Target)
	}
	st.observe(data)
	return h.modelStorage.PutJSON(ctx, stateFile, st)
}

func (h *Handler) loadState(ctx context.Context) (*state, error) {
	st := &state{}
	if err := h.modelStorage.GetJSON(ctx, stateFile, st); err != nil {
		return nil, fmt.Errorf("load trained state: %w", err)
	}
	if st.Freq == nil {
		st.Freq = make(map[string]int)
	}
	return st, nil
}

func (st *state) observe(data *dataframe.Frame) {
	for i := 0; i < data.Len(); i++ {
		v := data.Value(i, st.Target)
		if v == nil {
			continue
		}
		st.Count++
		if st.Kind == kindNumeric {
			if f, ok := toFloat(v); ok {
				st.Sum += f
			}
			continue
		}
		st.Freq[fmt.Sprintf("%v", v)]++
	}
}

// mode returns the most frequent value, ties broken by lexical order so the
// prediction is deterministic.
func (st *state) mode() string {
	best, bestCount := "", -1
	for v, count := range st.Freq {
		if count > bestCount || (count == bestCount && v < best) {
			best, bestCount = v, count
		}
	}
	return best
}

// inferKind decides whether the target is numeric by inspecting its values;
// a single non-numeric value makes the whole column categorical.
func inferKind(data *dataframe.Frame, target string) string {
	for i := 0; i < data.Len(); i++ {
		v := data.Value(i, target)
		if v == nil {
			continue
		}
		if _, ok := toFloat(v); !ok {
			return kindCategorical
		}
	}
	return kindNumeric
}

func hasColumn(data *dataframe.Frame, name string) bool {
	for _, c := range data.Columns() {
		if c == name {
			return true
		}
	}
	return false
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
