package store

import (
	"context"
	"testing"
	"time"

	"contract-ledger-service/internal/models"
)

func TestMemoryStore_EmptyPopulation(t *testing.T) {
	s := NewMemoryStore()

	contracts, err := s.Contracts(context.Background())
	if err != nil {
		t.Fatalf("Contracts failed: %v", err)
	}
	if len(contracts) != 0 {
		t.Errorf("Expected empty population, got %d contracts", len(contracts))
	}
}

func TestMemoryStore_ReplaceAllSwapsPopulation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first := &Batch{
		ID:         "batch-1",
		IngestedAt: time.Now(),
		Contracts:  []*models.Contract{{ContractNumber: "APZ-001", CompanyName: "First LLC"}},
	}
	if err := s.ReplaceAll(ctx, first); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	second := &Batch{
		ID:         "batch-2",
		IngestedAt: time.Now(),
		Contracts: []*models.Contract{
			{ContractNumber: "APZ-002", CompanyName: "Second LLC"},
			{ContractNumber: "APZ-003", CompanyName: "Third LLC"},
		},
	}
	if err := s.ReplaceAll(ctx, second); err != nil {
		t.Fatalf("ReplaceAll failed: %v", err)
	}

	contracts, err := s.Contracts(ctx)
	if err != nil {
		t.Fatalf("Contracts failed: %v", err)
	}
	if len(contracts) != 2 {
		t.Fatalf("Expected 2 contracts after swap, got %d", len(contracts))
	}
	if contracts[0].ContractNumber != "APZ-002" {
		t.Errorf("Old population still visible: %s", contracts[0].ContractNumber)
	}
	if s.Batch().ID != "batch-2" {
		t.Errorf("Expected batch-2, got %s", s.Batch().ID)
	}
}
