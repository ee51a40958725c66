package store

import (
	"context"
	"sync"

	"contract-ledger-service/internal/models"
)

// MemoryStore keeps the population in process memory. It backs tests and
// dry-run ingestion, where the pipeline output is reported but not persisted.
type MemoryStore struct {
	mu    sync.RWMutex
	batch *Batch
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// ReplaceAll swaps the stored batch.
func (s *MemoryStore) ReplaceAll(_ context.Context, batch *Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batch = batch
	return nil
}

// Batch returns the last stored batch, or nil.
func (s *MemoryStore) Batch() *Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batch
}

func (s *MemoryStore) Contracts(_ context.Context) ([]*models.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.batch == nil {
		return nil, nil
	}
	return s.batch.Contracts, nil
}

func (s *MemoryStore) Payments(_ context.Context) ([]*models.PaymentFact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.batch == nil {
		return nil, nil
	}
	return s.batch.Payments, nil
}

func (s *MemoryStore) Schedules(_ context.Context) ([]*models.PaymentSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.batch == nil {
		return nil, nil
	}
	return s.batch.Schedules, nil
}

func (s *MemoryStore) Close() error { return nil }
