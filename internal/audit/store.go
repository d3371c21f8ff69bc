package audit

import (
	"context"

	"github.com/vialabs/tronbridge/api"
)

// Store defines the interface for exchange record persistence and retrieval.
type Store interface {
	// Write appends an exchange record.
	Write(ctx context.Context, record *api.ExchangeRecord) error

	// Query retrieves exchange records matching the filter.
	Query(ctx context.Context, filter api.QueryFilter) ([]*api.ExchangeRecord, error)

	// Stats returns aggregate statistics.
	Stats(ctx context.Context) (*api.ExchangeStats, error)

	// Close shuts down the store and flushes any buffers.
	Close() error
}
