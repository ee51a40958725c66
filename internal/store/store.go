// Package store persists the reconciled contract, payment and schedule
// population. Writes are batch-level: every ingestion replaces the previous
// population atomically, partial loads never become visible.
package store

import (
	"context"
	"time"

	"contract-ledger-service/internal/models"
)

// Batch is the complete output of one ingestion run.
type Batch struct {
	ID         string
	IngestedAt time.Time
	Contracts  []*models.Contract
	Payments   []*models.PaymentFact
	Schedules  []*models.PaymentSchedule
}

// Store is the persistence boundary of the reconciliation pipeline.
type Store interface {
	// ReplaceAll atomically swaps the stored population for the batch.
	// On error the previous population stays intact.
	ReplaceAll(ctx context.Context, batch *Batch) error

	Contracts(ctx context.Context) ([]*models.Contract, error)
	Payments(ctx context.Context) ([]*models.PaymentFact, error)
	Schedules(ctx context.Context) ([]*models.PaymentSchedule, error)

	Close() error
}
