// Package reconciler drives the ingestion pipeline and the batch
// recomputation of actuals, debts and overdue flags.
package reconciler

import (
	"time"

	"contract-ledger-service/internal/models"
	"contract-ledger-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Recalculator recomputes schedule actuals from matched payments. It is a
// full pass over the population, meant to run once per ingestion batch.
type Recalculator struct {
	logger logger.Logger
	now    func() time.Time
}

// NewRecalculator creates a Recalculator using the wall clock.
func NewRecalculator() *Recalculator {
	return &Recalculator{
		logger: logger.GetGlobalLogger().WithComponent("recalculator"),
		now:    time.Now,
	}
}

// WithClock overrides the clock used for overdue detection.
func (r *Recalculator) WithClock(now func() time.Time) *Recalculator {
	r.now = now
	return r
}

// Recalculate sets every schedule's actual amount to the sum of its
// contract's matched payment debits falling inside the schedule's period,
// then rederives debt and the overdue flag. Contracts with no matched
// payments keep whatever actuals the source file carried.
func (r *Recalculator) Recalculate(schedules []*models.PaymentSchedule, payments []*models.PaymentFact) {
	byContract := make(map[string][]*models.PaymentFact)
	for _, p := range payments {
		if !p.Matched {
			continue
		}
		byContract[p.ContractNumber] = append(byContract[p.ContractNumber], p)
	}

	today := r.now()
	overdue := 0

	for _, s := range schedules {
		if matched, ok := byContract[s.ContractNumber]; ok {
			actual := decimal.Zero
			for _, p := range matched {
				if s.Covers(p.PaymentDate) {
					actual = actual.Add(p.NetAmount())
				}
			}
			s.ActualAmount = actual
		}
		s.DebtAmount = s.PlannedAmount.Sub(s.ActualAmount)
		s.IsOverdue = s.DueDate.Before(today) && s.DebtAmount.IsPositive()
		if s.IsOverdue {
			overdue++
		}
	}

	r.logger.WithFields(logger.Fields{
		"schedules": len(schedules),
		"overdue":   overdue,
	}).Info("Recalculated schedule debts")
}

// UpdateRemaining rederives each contract's remaining balance as total
// planned minus total actual across its schedules, floored at zero. Contract
// identity fields are never touched.
func (r *Recalculator) UpdateRemaining(contracts []*models.Contract, schedules []*models.PaymentSchedule) {
	planned := make(map[string]decimal.Decimal)
	actual := make(map[string]decimal.Decimal)
	for _, s := range schedules {
		planned[s.ContractNumber] = planned[s.ContractNumber].Add(s.PlannedAmount)
		actual[s.ContractNumber] = actual[s.ContractNumber].Add(s.ActualAmount)
	}

	for _, c := range contracts {
		remaining := planned[c.ContractNumber].Sub(actual[c.ContractNumber])
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		c.RemainingAmount = remaining
	}
}
