package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vialabs/tronbridge/api"
)

// JSONLStore is an append-only JSONL exchange log with date-based rotation.
type JSONLStore struct {
	mu          sync.Mutex
	dir         string
	currentDate string
	file        *os.File
	writer      *bufio.Writer

	// In-memory window for queries and stats (bounded)
	records []*api.ExchangeRecord
	maxMem  int
}

// NewJSONLStore creates a new JSONL store writing to the given directory.
func NewJSONLStore(dir string) (*JSONLStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating exchange log directory: %w", err)
	}
	return &JSONLStore{
		dir:    dir,
		maxMem: 10000,
	}, nil
}

func (s *JSONLStore) Write(_ context.Context, record *api.ExchangeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID == "" {
		record.ID = fmt.Sprintf("%d", time.Now().UnixNano())
	}
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}

	// Rotate file if date changed
	dateStr := record.Timestamp.Format("2006-01-02")
	if dateStr != s.currentDate {
		if err := s.rotate(dateStr); err != nil {
			return err
		}
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshaling exchange record: %w", err)
	}
	if _, err := s.writer.Write(data); err != nil {
		return err
	}
	if err := s.writer.WriteByte('\n'); err != nil {
		return err
	}
	if err := s.writer.Flush(); err != nil {
		return err
	}

	// Keep in memory (bounded)
	if len(s.records) >= s.maxMem {
		s.records = s.records[1:]
	}
	s.records = append(s.records, record)

	return nil
}

func (s *JSONLStore) Query(_ context.Context, filter api.QueryFilter) ([]*api.ExchangeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var results []*api.ExchangeRecord
	for _, r := range s.records {
		if matchesFilter(r, filter) {
			results = append(results, r)
		}
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(results) {
			return nil, nil
		}
		results = results[filter.Offset:]
	}
	if filter.Limit > 0 && len(results) > filter.Limit {
		results = results[:filter.Limit]
	}

	return results, nil
}

func (s *JSONLStore) Stats(_ context.Context) (*api.ExchangeStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &api.ExchangeStats{
		ByMethod: make(map[string]int),
		ByRule:   make(map[string]int),
	}

	for _, r := range s.records {
		stats.TotalExchanges++
		switch r.Outcome {
		case api.OutcomeForwarded:
			stats.ForwardedCount++
		case api.OutcomeShortCircuit:
			stats.ShortCircuitCount++
		case api.OutcomeUpstreamError:
			stats.UpstreamErrors++
		case api.OutcomeInternalError:
			stats.InternalErrors++
		}
		if r.Method != "" {
			stats.ByMethod[r.Method]++
		}
		if r.RequestRule != "" {
			stats.ByRule[r.RequestRule]++
		}
		if r.ResponseRule != "" {
			stats.ByRule[r.ResponseRule]++
		}
	}

	return stats, nil
}

func (s *JSONLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer != nil {
		if err := s.writer.Flush(); err != nil {
			return err
		}
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

func (s *JSONLStore) rotate(dateStr string) error {
	if s.writer != nil {
		if err := s.writer.Flush(); err != nil {
			return err
		}
	}
	if s.file != nil {
		if err := s.file.Close(); err != nil {
			return err
		}
	}

	path := filepath.Join(s.dir, dateStr+".jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("opening exchange log file: %w", err)
	}

	s.file = f
	s.writer = bufio.NewWriter(f)
	s.currentDate = dateStr
	return nil
}

func matchesFilter(r *api.ExchangeRecord, f api.QueryFilter) bool {
	if !f.Since.IsZero() && r.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && r.Timestamp.After(f.Until) {
		return false
	}
	if f.Route != "" && r.Route != f.Route {
		return false
	}
	if f.Method != "" && r.Method != f.Method {
		return false
	}
	if f.Outcome != "" && r.Outcome != f.Outcome {
		return false
	}
	return true
}
