package api

import "time"

// Route identifies which listening surface handled an exchange.
type Route string

const (
	// RouteRPC is POST / traffic interpreted as JSON-RPC.
	RouteRPC Route = "rpc"
	// RoutePassthrough is GET / and any other method/path, relayed opaquely.
	RoutePassthrough Route = "passthrough"
)

// Outcome is the final disposition of an exchange.
type Outcome string

const (
	// OutcomeForwarded means the upstream answered and its response was relayed.
	OutcomeForwarded Outcome = "forwarded"
	// OutcomeShortCircuit means the proxy answered without contacting upstream.
	OutcomeShortCircuit Outcome = "short_circuit"
	// OutcomeUpstreamError means the upstream dispatch failed (502 to caller).
	OutcomeUpstreamError Outcome = "upstream_error"
	// OutcomeInternalError means re-encoding a transformed envelope failed (500).
	OutcomeInternalError Outcome = "internal_error"
)

// ExchangeRecord describes a single proxied request/response cycle.
type ExchangeRecord struct {
	ID             string        `json:"id"`
	Timestamp      time.Time     `json:"timestamp"`
	Route          Route         `json:"route"`
	Method         string        `json:"method,omitempty"`
	RequestRule    string        `json:"request_rule,omitempty"`
	ResponseRule   string        `json:"response_rule,omitempty"`
	Outcome        Outcome       `json:"outcome"`
	UpstreamStatus int           `json:"upstream_status,omitempty"`
	RequestBytes   int           `json:"request_bytes,omitempty"`
	ResponseBytes  int           `json:"response_bytes,omitempty"`
	Duration       time.Duration `json:"duration,omitempty"`
}

// QueryFilter defines criteria for querying exchange records.
type QueryFilter struct {
	Since   time.Time `json:"since,omitempty"`
	Until   time.Time `json:"until,omitempty"`
	Route   Route     `json:"route,omitempty"`
	Method  string    `json:"method,omitempty"`
	Outcome Outcome   `json:"outcome,omitempty"`
	Limit   int       `json:"limit,omitempty"`
	Offset  int       `json:"offset,omitempty"`
}

// ExchangeStats provides summary statistics for the admin API.
type ExchangeStats struct {
	TotalExchanges    int            `json:"total_exchanges"`
	ForwardedCount    int            `json:"forwarded_count"`
	ShortCircuitCount int            `json:"short_circuit_count"`
	UpstreamErrors    int            `json:"upstream_errors"`
	InternalErrors    int            `json:"internal_errors"`
	ByMethod          map[string]int `json:"by_method"`
	ByRule            map[string]int `json:"by_rule"`
}
