// Package rewrite holds the method-keyed transformation rules the proxy
// applies to JSON-RPC traffic. Rules are pure: they take a decoded envelope
// and return a (possibly new) envelope plus whether anything changed. All
// shape mismatches are absorbed as no-ops; logging and bookkeeping happen in
// the pipeline, not here.
package rewrite

import (
	"github.com/vialabs/tronbridge/internal/jsonrpc"
)

// RequestRule rewrites a decoded request before it is forwarded upstream.
type RequestRule interface {
	// Name identifies the rule in logs, metrics and exchange records.
	Name() string

	// Apply transforms the request. It must leave the request id untouched
	// unless it synthesizes a full replacement response.
	Apply(req *jsonrpc.Request) RequestOutcome
}

// RequestOutcome is the result of applying a request rule.
type RequestOutcome struct {
	// Request is the request to forward. Always set unless Response is.
	Request *jsonrpc.Request

	// Response, when non-nil, is sent to the caller directly and the
	// upstream is never contacted.
	Response *jsonrpc.Response

	// Changed reports whether the rule modified or replaced anything.
	Changed bool
}

// ResponseRule rewrites a decoded upstream response before it is relayed.
// Rules inspect only the result member; error passes through untouched.
type ResponseRule interface {
	Name() string
	Apply(resp *jsonrpc.Response) (*jsonrpc.Response, bool)
}

// Registry dispatches rules by exact, case-sensitive JSON-RPC method name.
// Adding a rule for a new method is a registration, not a new branch.
type Registry struct {
	requests  map[string]RequestRule
	responses map[string]ResponseRule
}

// NewRegistry returns a registry loaded with the TRON compatibility rules.
func NewRegistry() *Registry {
	r := &Registry{
		requests:  make(map[string]RequestRule),
		responses: make(map[string]ResponseRule),
	}
	r.RegisterRequest("eth_getTransactionCount", nonceOverrideRule{})
	r.RegisterRequest("eth_call", callNormalizeRule{})
	r.RegisterResponse("eth_getBlockByNumber", stateRootRule{})
	r.RegisterResponse("eth_getBlockByHash", stateRootRule{})
	return r
}

// RegisterRequest binds a request rule to a method name.
func (r *Registry) RegisterRequest(method string, rule RequestRule) {
	r.requests[method] = rule
}

// RegisterResponse binds a response rule to a method name.
func (r *Registry) RegisterResponse(method string, rule ResponseRule) {
	r.responses[method] = rule
}

// InterceptRequest applies the rule registered for the request's method, if
// any. The returned name is empty when no rule is registered.
func (r *Registry) InterceptRequest(req *jsonrpc.Request) (RequestOutcome, string) {
	rule, ok := r.requests[req.Method]
	if !ok {
		return RequestOutcome{Request: req}, ""
	}
	return rule.Apply(req), rule.Name()
}

// EnhanceResponse applies the response rule registered for the original
// request's method to a raw upstream body. Bodies that do not decode as a
// JSON-RPC response pass through unchanged. A re-encode failure after the
// rule modified the envelope is returned as an error; the caller must not
// forward the original body in that case.
func (r *Registry) EnhanceResponse(method string, body []byte) ([]byte, bool, string, error) {
	rule, ok := r.responses[method]
	if !ok {
		return body, false, "", nil
	}
	resp, err := jsonrpc.DecodeResponse(body)
	if err != nil {
		return body, false, "", nil
	}
	enhanced, changed := rule.Apply(resp)
	if !changed {
		return body, false, "", nil
	}
	data, err := jsonrpc.EncodeResponse(enhanced)
	if err != nil {
		return nil, false, rule.Name(), err
	}
	return data, true, rule.Name(), nil
}
