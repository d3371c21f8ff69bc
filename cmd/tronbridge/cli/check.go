package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/vialabs/tronbridge/internal/jsonrpc"
	"github.com/vialabs/tronbridge/internal/rewrite"
)

var checkBody string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Dry-run a JSON-RPC request through the rewrite rules",
	Long: `Show what the proxy would do with a request without running it:
whether a rule applies, the rewritten request, or the synthesized
short-circuit response. Reads the body from --body or stdin.`,
	Example: `  tronbridge check --body '{"jsonrpc":"2.0","method":"eth_call","params":[{"to":"0x1","input":"0xabc"}],"id":1}'
  echo '{"jsonrpc":"2.0","method":"eth_getTransactionCount","id":1}' | tronbridge check`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkBody, "body", "", "JSON-RPC request body (default: stdin)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	body := []byte(checkBody)
	if checkBody == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
		body = data
	}

	output := struct {
		Decodable bool            `json:"decodable"`
		Method    string          `json:"method,omitempty"`
		Rule      string          `json:"rule,omitempty"`
		Changed   bool            `json:"changed"`
		Forward   json.RawMessage `json:"forward,omitempty"`
		Response  json.RawMessage `json:"response,omitempty"`
		Raw       string          `json:"raw,omitempty"`
	}{}

	req, err := jsonrpc.DecodeRequest(body)
	if err != nil {
		// Not an envelope: the proxy would forward these bytes opaquely.
		output.Raw = string(body)
	} else {
		output.Decodable = true
		output.Method = req.Method

		outcome, rule := rewrite.NewRegistry().InterceptRequest(req)
		if outcome.Changed {
			output.Rule = rule
		}
		output.Changed = outcome.Changed

		switch {
		case outcome.Response != nil:
			data, err := jsonrpc.EncodeResponse(outcome.Response)
			if err != nil {
				return fmt.Errorf("encoding response: %w", err)
			}
			output.Response = data
		case outcome.Changed:
			data, err := jsonrpc.EncodeRequest(outcome.Request)
			if err != nil {
				return fmt.Errorf("encoding request: %w", err)
			}
			output.Forward = data
		default:
			output.Forward = json.RawMessage(body)
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
