package reconciler

import (
	"context"
	"time"

	"contract-ledger-service/internal/matcher"
	"contract-ledger-service/internal/models"
	"contract-ledger-service/internal/parsers"
	"contract-ledger-service/internal/schedule"
	"contract-ledger-service/internal/store"
	"contract-ledger-service/pkg/errors"
	"contract-ledger-service/pkg/logger"

	"github.com/google/uuid"
)

// Report summarizes one ingestion run.
type Report struct {
	BatchID            string              `json:"batch_id"`
	StartedAt          time.Time           `json:"started_at"`
	Duration           time.Duration       `json:"duration"`
	DryRun             bool                `json:"dry_run"`
	ContractsIngested  int                 `json:"contracts_ingested"`
	PaymentsIngested   int                 `json:"payments_ingested"`
	SchedulesGenerated int                 `json:"schedules_generated"`
	PaymentsMatched    int                 `json:"payments_matched"`
	ContractStats      *parsers.ParseStats `json:"contract_stats,omitempty"`
	PaymentStats       *parsers.ParseStats `json:"payment_stats,omitempty"`
	DiagnosticSamples  []string            `json:"diagnostic_samples,omitempty"`
}

const maxDiagnosticSamples = 10

// Pipeline runs the full ingestion sequence: parse, generate schedules,
// match payments, recalculate, persist. Every stage works on in-memory
// staging data; the store is touched exactly once, at the end, so a failure
// in any stage leaves the previous population untouched.
type Pipeline struct {
	contractParser *parsers.ContractParser
	paymentParser  *parsers.PaymentParser
	generator      *schedule.Generator
	recalculator   *Recalculator
	store          store.Store
	logger         logger.Logger
	dryRun         bool
}

// NewPipeline assembles a pipeline over the given parsers and store.
func NewPipeline(contractParser *parsers.ContractParser, paymentParser *parsers.PaymentParser, st store.Store) *Pipeline {
	return &Pipeline{
		contractParser: contractParser,
		paymentParser:  paymentParser,
		generator:      schedule.NewGenerator(),
		recalculator:   NewRecalculator(),
		store:          st,
		logger:         logger.GetGlobalLogger().WithComponent("pipeline"),
	}
}

// WithDryRun makes Run skip the final persist. The report still reflects the
// full pipeline output.
func (p *Pipeline) WithDryRun(dryRun bool) *Pipeline {
	p.dryRun = dryRun
	return p
}

// WithClock overrides the clock of the recalculation stage.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.recalculator.WithClock(now)
	p.generator.WithClock(now)
	return p
}

// Run executes one ingestion batch. paymentsPath may be empty, in which case
// the batch carries contracts and schedules only.
func (p *Pipeline) Run(ctx context.Context, contractsPath, paymentsPath string) (*Report, error) {
	start := time.Now()
	report := &Report{
		BatchID:   uuid.New().String(),
		StartedAt: start,
		DryRun:    p.dryRun,
	}

	p.logger.WithFields(logger.Fields{
		"batch_id":       report.BatchID,
		"contracts_file": contractsPath,
		"payments_file":  paymentsPath,
		"dry_run":        p.dryRun,
	}).Info("Starting ingestion batch")

	records, contractStats, err := p.contractParser.ParseContracts(contractsPath)
	if err != nil {
		return report, err
	}
	report.ContractStats = contractStats
	report.ContractsIngested = len(records)

	var payments []*models.PaymentFact
	if paymentsPath != "" {
		var paymentStats *parsers.ParseStats
		payments, paymentStats, err = p.paymentParser.ParsePayments(paymentsPath)
		if err != nil {
			return report, err
		}
		report.PaymentStats = paymentStats
		report.PaymentsIngested = len(payments)
	}

	contracts := make([]*models.Contract, 0, len(records))
	for _, record := range records {
		contract := record.Contract
		contracts = append(contracts, &contract)
	}

	schedules := p.generator.GenerateAll(records)
	report.SchedulesGenerated = len(schedules)

	report.PaymentsMatched = matcher.NewMatcher(contracts).Match(payments)

	p.recalculator.Recalculate(schedules, payments)
	p.recalculator.UpdateRemaining(contracts, schedules)

	report.DiagnosticSamples = p.samples(contractStats, report.PaymentStats)
	report.Duration = time.Since(start)

	if p.dryRun {
		p.logger.WithField("batch_id", report.BatchID).Info("Dry run, skipping persist")
		return report, nil
	}

	batch := &store.Batch{
		ID:         report.BatchID,
		IngestedAt: start,
		Contracts:  contracts,
		Payments:   payments,
		Schedules:  schedules,
	}
	if err := p.store.ReplaceAll(ctx, batch); err != nil {
		return report, errors.IngestError(errors.CodeBatchFailed, "persist", err).
			WithContext("batch_id", report.BatchID)
	}

	report.Duration = time.Since(start)
	p.logger.WithFields(logger.Fields{
		"batch_id":  report.BatchID,
		"contracts": report.ContractsIngested,
		"payments":  report.PaymentsIngested,
		"schedules": report.SchedulesGenerated,
		"matched":   report.PaymentsMatched,
		"duration":  report.Duration.String(),
	}).Info("Ingestion batch complete")

	return report, nil
}

func (p *Pipeline) samples(contractStats, paymentStats *parsers.ParseStats) []string {
	var samples []string
	if contractStats != nil {
		samples = append(samples, contractStats.Samples(maxDiagnosticSamples)...)
	}
	if paymentStats != nil && len(samples) < maxDiagnosticSamples {
		samples = append(samples, paymentStats.Samples(maxDiagnosticSamples-len(samples))...)
	}
	return samples
}
