package proxy

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/vialabs/tronbridge/api"
	"github.com/vialabs/tronbridge/internal/audit"
	"github.com/vialabs/tronbridge/internal/rewrite"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProxy(t *testing.T, target string, opts Options) *Proxy {
	t.Helper()
	p, err := NewProxy(target, rewrite.NewRegistry(), testLogger(), opts)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestServeRPC_NonceShortCircuit(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called for eth_getTransactionCount")
	}))
	defer backend.Close()

	p := newTestProxy(t, backend.URL, Options{})

	body := `{"jsonrpc":"2.0","method":"eth_getTransactionCount","params":[],"id":1}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	want := `{"jsonrpc":"2.0","result":"0x0","id":1}`
	if w.Body.String() != want {
		t.Errorf("expected %s, got %s", want, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
}

func TestServeRPC_CallRewriteForwarded(t *testing.T) {
	var forwarded []byte
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwarded, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"jsonrpc":"2.0","result":"0x","id":1}`))
	}))
	defer backend.Close()

	p := newTestProxy(t, backend.URL, Options{})

	body := `{"jsonrpc":"2.0","method":"eth_call","params":[{"to":"0x1","input":"0xabc","chainId":"0x2b6"}],"id":1}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var fwd struct {
		Params []map[string]json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(forwarded, &fwd); err != nil {
		t.Fatalf("decoding forwarded body: %v", err)
	}
	if len(fwd.Params) != 1 {
		t.Fatalf("expected one param, got %d", len(fwd.Params))
	}
	obj := fwd.Params[0]
	if _, ok := obj["input"]; ok {
		t.Error("forwarded request still contains input")
	}
	if _, ok := obj["chainId"]; ok {
		t.Error("forwarded request still contains chainId")
	}
	if string(obj["data"]) != `"0xabc"` {
		t.Errorf("expected data 0xabc, got %s", obj["data"])
	}
}

func TestServeRPC_UnknownMethodForwardsVerbatim(t *testing.T) {
	var forwarded []byte
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwarded, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"jsonrpc":"2.0","result":"0x10","id":3}`))
	}))
	defer backend.Close()

	p := newTestProxy(t, backend.URL, Options{})

	// Odd spacing must survive: no rule applies, so the original bytes go out.
	body := `{"jsonrpc": "2.0",  "method": "eth_blockNumber", "params": [], "id": 3}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)

	if string(forwarded) != body {
		t.Errorf("expected verbatim forward:\n in  %s\n out %s", body, forwarded)
	}
}

func TestServeRPC_NonJSONBodyPassthrough(t *testing.T) {
	var forwarded []byte
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forwarded, _ = io.ReadAll(r.Body)
		w.Write([]byte("upstream says hi"))
	}))
	defer backend.Close()

	p := newTestProxy(t, backend.URL, Options{})

	req := httptest.NewRequest("POST", "/", strings.NewReader("definitely not json"))
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)

	if string(forwarded) != "definitely not json" {
		t.Errorf("expected opaque forward, got %s", forwarded)
	}
	if w.Body.String() != "upstream says hi" {
		t.Errorf("expected upstream body relayed, got %s", w.Body.String())
	}
}

func TestServeRPC_StateRootEnhancement(t *testing.T) {
	upstream := `{"jsonrpc":"2.0","result":{"number":"0x1","stateRoot":"0x"},"id":5}`
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(upstream))
	}))
	defer backend.Close()

	p := newTestProxy(t, backend.URL, Options{})

	body := `{"jsonrpc":"2.0","method":"eth_getBlockByNumber","params":["0x1",false],"id":5}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), rewrite.StateRootPlaceholder) {
		t.Errorf("expected placeholder stateRoot, got %s", w.Body.String())
	}
	cl := w.Header().Get("Content-Length")
	if cl != strconv.Itoa(w.Body.Len()) {
		t.Errorf("content-length %s does not match body length %d", cl, w.Body.Len())
	}
}

func TestServeRPC_UpstreamErrorPreserved(t *testing.T) {
	upstream := `{"jsonrpc":"2.0","error":{"code":-32000,"message":"block not found"},"id":5}`
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(upstream))
	}))
	defer backend.Close()

	p := newTestProxy(t, backend.URL, Options{})

	body := `{"jsonrpc":"2.0","method":"eth_getBlockByNumber","params":["0x1",false],"id":5}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)

	if w.Body.String() != upstream {
		t.Errorf("expected error response untouched, got %s", w.Body.String())
	}
}

func TestServeRPC_UpstreamStatusRelayed(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer backend.Close()

	p := newTestProxy(t, backend.URL, Options{})

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"jsonrpc":"2.0","method":"eth_blockNumber","id":1}`))
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 relayed, got %d", w.Code)
	}
}

func TestBadGateway_BothRoutes(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := backend.URL
	backend.Close() // connection refused from here on

	p := newTestProxy(t, target, Options{})

	post := httptest.NewRequest("POST", "/", strings.NewReader(`{"jsonrpc":"2.0","method":"eth_blockNumber","id":1}`))
	w := httptest.NewRecorder()
	p.ServeHTTP(w, post)
	if w.Code != http.StatusBadGateway {
		t.Errorf("POST: expected 502, got %d", w.Code)
	}

	get := httptest.NewRequest("GET", "/?a=b", nil)
	w = httptest.NewRecorder()
	p.ServeHTTP(w, get)
	if w.Code != http.StatusBadGateway {
		t.Errorf("GET: expected 502, got %d", w.Code)
	}
}

func TestServePassthrough_QueryForwarded(t *testing.T) {
	var gotQuery, gotHeader string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		gotHeader = r.Header.Get("X-Api-Key")
		w.Write([]byte("ok"))
	}))
	defer backend.Close()

	p := newTestProxy(t, backend.URL, Options{})

	req := httptest.NewRequest("GET", "/?foo=bar", nil)
	req.Header.Set("X-Api-Key", "secret")
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)

	if gotQuery != "foo=bar" {
		t.Errorf("expected query foo=bar, got %q", gotQuery)
	}
	if gotHeader != "secret" {
		t.Errorf("expected header copied through, got %q", gotHeader)
	}
	if w.Body.String() != "ok" {
		t.Errorf("expected upstream body relayed, got %s", w.Body.String())
	}
}

func TestServePassthrough_EmptyQueryNoSuffix(t *testing.T) {
	var gotURI string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURI = r.RequestURI
		w.Write([]byte("ok"))
	}))
	defer backend.Close()

	p := newTestProxy(t, backend.URL, Options{})

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)

	if strings.Contains(gotURI, "?") {
		t.Errorf("expected no query suffix, got %q", gotURI)
	}
}

func TestServeFallback_TreatedAsParameterlessGET(t *testing.T) {
	var gotMethod, gotQuery string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		w.Write([]byte("ok"))
	}))
	defer backend.Close()

	p := newTestProxy(t, backend.URL, Options{})

	req := httptest.NewRequest("POST", "/some/other/path?x=1", strings.NewReader("ignored"))
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)

	if gotMethod != http.MethodGet {
		t.Errorf("expected fallback to reach upstream as GET, got %s", gotMethod)
	}
	if gotQuery != "" {
		t.Errorf("expected fallback to drop the query, got %q", gotQuery)
	}
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestProxy_WritesExchangeRecords(t *testing.T) {
	store, err := audit.NewJSONLStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called")
	}))
	defer backend.Close()

	p := newTestProxy(t, backend.URL, Options{Store: store})

	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"jsonrpc":"2.0","method":"eth_getTransactionCount","id":1}`))
	w := httptest.NewRecorder()
	p.ServeHTTP(w, req)

	records, err := store.Query(context.Background(), api.QueryFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	rec := records[0]
	if rec.Outcome != api.OutcomeShortCircuit {
		t.Errorf("expected short_circuit outcome, got %s", rec.Outcome)
	}
	if rec.Method != "eth_getTransactionCount" || rec.RequestRule != "nonce_override" {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestNewProxy_InvalidTarget(t *testing.T) {
	if _, err := NewProxy("not-a-url", rewrite.NewRegistry(), testLogger(), Options{}); err == nil {
		t.Fatal("expected error for relative target URL")
	}
}
