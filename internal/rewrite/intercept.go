package rewrite

import (
	"encoding/json"

	"github.com/vialabs/tronbridge/internal/jsonrpc"
)

// nonceOverrideRule short-circuits eth_getTransactionCount. The TRON JSON-RPC
// surface does not track account nonces usably for eth-style callers, so the
// proxy answers "0x0" itself and never contacts the upstream.
type nonceOverrideRule struct{}

func (nonceOverrideRule) Name() string { return "nonce_override" }

func (nonceOverrideRule) Apply(req *jsonrpc.Request) RequestOutcome {
	return RequestOutcome{
		Response: &jsonrpc.Response{
			JSONRPC: "2.0",
			Result:  json.RawMessage(`"0x0"`),
			ID:      req.ID,
		},
		Changed: true,
	}
}

// callNormalizeRule rewrites the call object of eth_call: a duplicate input
// field is dropped in favor of data, a lone input is renamed to data, and
// chainId is removed because the upstream rejects it. Params that are not an
// array with a leading object are left alone.
type callNormalizeRule struct{}

func (callNormalizeRule) Name() string { return "call_normalize" }

func (callNormalizeRule) Apply(req *jsonrpc.Request) RequestOutcome {
	params, callObj, ok := leadingObjectParam(req.Params)
	if !ok {
		return RequestOutcome{Request: req}
	}

	changed := false
	input, hasInput := callObj["input"]
	_, hasData := callObj["data"]
	switch {
	case hasInput && hasData:
		delete(callObj, "input")
		changed = true
	case hasInput:
		callObj["data"] = input
		delete(callObj, "input")
		changed = true
	}
	if _, ok := callObj["chainId"]; ok {
		delete(callObj, "chainId")
		changed = true
	}
	if !changed {
		return RequestOutcome{Request: req}
	}

	first, err := json.Marshal(callObj)
	if err != nil {
		return RequestOutcome{Request: req}
	}
	params[0] = first
	raw, err := json.Marshal(params)
	if err != nil {
		return RequestOutcome{Request: req}
	}

	out := *req
	out.Params = raw
	return RequestOutcome{Request: &out, Changed: true}
}

// leadingObjectParam decodes params as an array whose first element is a
// JSON object. Values stay raw so untouched fields round-trip verbatim.
func leadingObjectParam(raw json.RawMessage) ([]json.RawMessage, map[string]json.RawMessage, bool) {
	if len(raw) == 0 {
		return nil, nil, false
	}
	var params []json.RawMessage
	if err := json.Unmarshal(raw, &params); err != nil || len(params) == 0 {
		return nil, nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(params[0], &obj); err != nil || obj == nil {
		return nil, nil, false
	}
	return params, obj, true
}
