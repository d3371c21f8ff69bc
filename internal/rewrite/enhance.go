package rewrite

import (
	"encoding/json"

	"github.com/vialabs/tronbridge/internal/jsonrpc"
)

// StateRootPlaceholder is substituted for a missing or invalid stateRoot in
// block responses. Eth-style clients require a 32-byte root hash; the
// upstream frequently returns "0x" or omits the field.
const StateRootPlaceholder = "0x0101010101010101010101010101010101010101010101010101010101010101"

// stateRootRule fixes up the stateRoot of eth_getBlockByNumber and
// eth_getBlockByHash results. Only the result member is inspected; responses
// whose result is absent or not an object pass through unchanged.
type stateRootRule struct{}

func (stateRootRule) Name() string { return "state_root_fix" }

func (stateRootRule) Apply(resp *jsonrpc.Response) (*jsonrpc.Response, bool) {
	if len(resp.Result) == 0 {
		return resp, false
	}
	var block map[string]json.RawMessage
	if err := json.Unmarshal(resp.Result, &block); err != nil || block == nil {
		return resp, false
	}
	if !stateRootNeedsFix(block["stateRoot"]) {
		return resp, false
	}

	placeholder, err := json.Marshal(StateRootPlaceholder)
	if err != nil {
		return resp, false
	}
	block["stateRoot"] = placeholder
	result, err := json.Marshal(block)
	if err != nil {
		return resp, false
	}

	out := *resp
	out.Result = result
	return &out, true
}

// stateRootNeedsFix reports whether the raw stateRoot value is missing,
// non-string, the empty "0x", or not a 66-character hash (0x + 64 hex digits).
func stateRootNeedsFix(raw json.RawMessage) bool {
	if raw == nil {
		return true
	}
	var root string
	if err := json.Unmarshal(raw, &root); err != nil {
		return true
	}
	return root == "0x" || len(root) != 66
}
