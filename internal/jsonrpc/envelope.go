// Package jsonrpc is a tolerant codec for the JSON-RPC 2.0 envelope.
//
// Decode failures are not errors in the usual sense: the proxy treats any
// body that does not decode as an opaque payload and forwards it verbatim.
// Params, id, result and error are kept as raw JSON so that everything the
// proxy does not explicitly rewrite round-trips byte for byte.
package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Request is a JSON-RPC 2.0 request envelope.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// Response is a JSON-RPC 2.0 response envelope. Error is kept raw so that
// upstream error objects of any shape pass through untouched.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// DecodeRequest parses data as a single JSON-RPC request envelope. A batch
// (JSON array) body, malformed JSON, or an object missing the jsonrpc or
// method members all return an error, which callers treat as "passthrough".
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decoding JSON-RPC request: %w", err)
	}
	if req.JSONRPC == "" || req.Method == "" {
		return nil, fmt.Errorf("not a JSON-RPC request envelope")
	}
	return &req, nil
}

// DecodeResponse parses data as a single JSON-RPC response envelope.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decoding JSON-RPC response: %w", err)
	}
	if resp.JSONRPC == "" {
		return nil, fmt.Errorf("not a JSON-RPC response envelope")
	}
	return &resp, nil
}

// EncodeRequest serializes a request envelope.
func EncodeRequest(req *Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding JSON-RPC request: %w", err)
	}
	return data, nil
}

// EncodeResponse serializes a response envelope.
func EncodeResponse(resp *Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encoding JSON-RPC response: %w", err)
	}
	return data, nil
}
