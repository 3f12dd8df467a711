package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/augurml/augur/internal/dataframe"
	"github.com/augurml/augur/internal/discovery"
	"github.com/augurml/augur/internal/engine"
)

var testMeta = engine.Metadata{Name: "DemoHandler", Namespace: "augur.engines.demo"}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func proxyFor(t *testing.T, serverURL string) *Handler {
	t.Helper()
	u, err := url.Parse(serverURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port: %v", err)
	}

	identity := Identity{Engine: "demo", IntegrationID: "int-1", PredictorID: "pred-1"}
	return NewHandler(discovery.Endpoint{Host: host, Port: port}, identity, testMeta, testLogger())
}

func TestPredictRoundTrip(t *testing.T) {
	var gotPath string
	var gotReq Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(Response{
			Data: &Table{Columns: []string{"y"}, Rows: [][]any{{1.5}, {2.5}}},
		})
	}))
	defer srv.Close()

	p := proxyFor(t, srv.URL)

	in := dataframe.New("x")
	in.Append(1)
	in.Append(2)
	out, err := p.Predict(context.Background(), in, map[string]any{"limit": 10})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}

	if gotPath != "/v1/rpc/predict" {
		t.Errorf("request path = %q, want /v1/rpc/predict", gotPath)
	}
	if gotReq.Identity.PredictorID != "pred-1" || gotReq.Identity.Engine != "demo" {
		t.Errorf("identity = %+v not tagged", gotReq.Identity)
	}
	if gotReq.Args["limit"] != float64(10) {
		t.Errorf("args = %v, want limit 10", gotReq.Args)
	}
	if out.Len() != 2 || out.Value(1, "y") != 2.5 {
		t.Errorf("reconstructed frame = %v", out.Records())
	}
}

func TestCreateSendsTargetAndData(t *testing.T) {
	var gotReq Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(Response{})
	}))
	defer srv.Close()

	p := proxyFor(t, srv.URL)

	train := dataframe.New("x", "y")
	train.Append(1, 2.0)
	if err := p.Create(context.Background(), "y", nil, train); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if gotReq.Target != "y" {
		t.Errorf("target = %q, want y", gotReq.Target)
	}
	if gotReq.Data == nil || len(gotReq.Data.Rows) != 1 {
		t.Fatalf("data payload = %+v, want one row", gotReq.Data)
	}
}

func TestDescribeSendsAttribute(t *testing.T) {
	var gotReq Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotReq)
		json.NewEncoder(w).Encode(Response{
			Data: &Table{Columns: []string{"key", "value"}, Rows: [][]any{{"target", "y"}}},
		})
	}))
	defer srv.Close()

	p := proxyFor(t, srv.URL)

	out, err := p.Describe(context.Background(), "args")
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	if gotReq.Attribute != "args" {
		t.Errorf("attribute = %q, want args", gotReq.Attribute)
	}
	if out.Value(0, "key") != "target" {
		t.Errorf("describe frame = %v", out.Records())
	}
}

func TestMissingDataPayloadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(Response{})
	}))
	defer srv.Close()

	p := proxyFor(t, srv.URL)

	out, err := p.Predict(context.Background(), dataframe.New("x"), nil)
	if err == nil {
		t.Fatalf("Predict on data-less reply succeeded with frame %v", out)
	}
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("error = %T, want *ConnectionError", err)
	}

	if _, err := p.Describe(context.Background(), "info"); err == nil {
		t.Fatal("Describe on data-less reply succeeded")
	}
}

func TestRemoteApplicationError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(Response{Error: "target column \"y\" not in training data"})
	}))
	defer srv.Close()

	p := proxyFor(t, srv.URL)

	err := p.Finetune(context.Background(), dataframe.New("x"), nil)
	if err == nil {
		t.Fatal("Finetune succeeded, want remote error")
	}

	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("error = %T, want *RemoteError", err)
	}
	if remoteErr.Op != OpFinetune {
		t.Errorf("Op = %q, want finetune", remoteErr.Op)
	}
	if !strings.Contains(remoteErr.Message, "target column") {
		t.Errorf("remote message %q not preserved", remoteErr.Message)
	}
}

func TestConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // refuse connections

	p := proxyFor(t, srv.URL)

	_, err := p.Predict(context.Background(), dataframe.New("x"), nil)
	if err == nil {
		t.Fatal("Predict succeeded against closed endpoint")
	}

	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("error = %T, want *ConnectionError", err)
	}
	if connErr.Op != OpPredict {
		t.Errorf("Op = %q, want predict", connErr.Op)
	}

	var remoteErr *RemoteError
	if errors.As(err, &remoteErr) {
		t.Error("connection failure also matched *RemoteError; the two must stay distinct")
	}
}

func TestTimeoutIsConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can notice the client disconnect
		// and cancel the request context, letting srv.Close return.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	p := proxyFor(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := p.Predict(ctx, dataframe.New("x"), nil)
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("timeout error = %T (%v), want *ConnectionError", err, err)
	}
}

func TestTableEncodesCells(t *testing.T) {
	f := dataframe.New("ts", "n")
	f.Append(time.Date(2023, 5, 1, 10, 30, 0, 123456000, time.UTC), uint8(3))

	table := NewTable(f)
	if table.Rows[0][0] != "2023-05-01 10:30:00.123456" {
		t.Errorf("timestamp cell = %v, want codec string form", table.Rows[0][0])
	}
	if table.Rows[0][1] != int64(3) {
		t.Errorf("integer cell = %v, want int64", table.Rows[0][1])
	}
}

func TestNilTable(t *testing.T) {
	if NewTable(nil) != nil {
		t.Error("NewTable(nil) != nil")
	}
	var table *Table
	f, err := table.Frame()
	if err != nil || f != nil {
		t.Errorf("nil table Frame() = %v, %v, want nil, nil", f, err)
	}
}

func TestMetadataPassthrough(t *testing.T) {
	p := NewHandler(discovery.Endpoint{Host: "h", Port: 1}, Identity{}, testMeta, testLogger())
	if p.Metadata() != testMeta {
		t.Errorf("Metadata() = %v, want %v", p.Metadata(), testMeta)
	}
}
