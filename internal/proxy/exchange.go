package proxy

import (
	"time"

	"github.com/vialabs/tronbridge/api"
)

// exchange carries the metadata of a single request/response cycle from the
// moment it enters the pipeline until it is logged and recorded.
type exchange struct {
	Route          api.Route
	Method         string
	RequestRule    string
	ResponseRule   string
	Outcome        api.Outcome
	UpstreamStatus int
	RequestBytes   int
	ResponseBytes  int
	StartTime      time.Time
}

func newExchange(route api.Route) *exchange {
	return &exchange{
		Route:     route,
		StartTime: time.Now(),
	}
}

// Record converts the exchange into an audit record.
func (e *exchange) Record() *api.ExchangeRecord {
	return &api.ExchangeRecord{
		Timestamp:      e.StartTime,
		Route:          e.Route,
		Method:         e.Method,
		RequestRule:    e.RequestRule,
		ResponseRule:   e.ResponseRule,
		Outcome:        e.Outcome,
		UpstreamStatus: e.UpstreamStatus,
		RequestBytes:   e.RequestBytes,
		ResponseBytes:  e.ResponseBytes,
		Duration:       time.Since(e.StartTime),
	}
}
