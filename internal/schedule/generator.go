// Package schedule turns parsed contract records into their canonical set of
// obligation periods.
package schedule

import (
	"sort"
	"time"

	"contract-ledger-service/internal/models"
	"contract-ledger-service/internal/parsers"
	"contract-ledger-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Generator produces payment schedules from contract records.
type Generator struct {
	logger logger.Logger
	now    func() time.Time
}

// NewGenerator creates a Generator using the wall clock.
func NewGenerator() *Generator {
	return &Generator{
		logger: logger.GetGlobalLogger().WithComponent("schedule_generator"),
		now:    time.Now,
	}
}

// WithClock overrides the clock. Used by tests and by replays against
// historical exports.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the schedule rows for one contract record. Multi-period
// contracts get one row per non-zero planned amount; contracts whose period
// amounts sum to zero fall back to a single obligation covering the whole
// remaining balance. Overdue flags are left unset here, the recalculator owns
// them.
func (g *Generator) Generate(record *parsers.ContractRecord) []*models.PaymentSchedule {
	var schedules []*models.PaymentSchedule

	if len(record.PlanByPeriod) > 0 || len(record.FactByPeriod) > 0 {
		schedules = g.mergePlanFact(record)
	} else {
		schedules = g.fromPeriodAmounts(record)
	}

	if len(schedules) == 0 {
		schedules = []*models.PaymentSchedule{g.singlePayment(record)}
	}

	sort.Slice(schedules, func(i, j int) bool {
		if schedules[i].Year != schedules[j].Year {
			return schedules[i].Year < schedules[j].Year
		}
		return schedules[i].Period < schedules[j].Period
	})

	g.logger.WithFields(logger.Fields{
		"contract_number": record.Contract.ContractNumber,
		"periods":         len(schedules),
	}).Debug("Generated schedule")

	return schedules
}

// GenerateAll runs Generate over a batch of contract records.
func (g *Generator) GenerateAll(records []*parsers.ContractRecord) []*models.PaymentSchedule {
	var all []*models.PaymentSchedule
	for _, record := range records {
		all = append(all, g.Generate(record)...)
	}
	return all
}

// fromPeriodAmounts walks the sequential per-period amounts of a flat-layout
// record. Zero-amount periods produce no row.
func (g *Generator) fromPeriodAmounts(record *parsers.ContractRecord) []*models.PaymentSchedule {
	perYear := record.Granularity.PeriodsPerYear()
	var schedules []*models.PaymentSchedule

	for i, amount := range record.PeriodAmounts {
		if amount.IsZero() {
			continue
		}
		key := models.PeriodKey{
			Year:   record.FirstYear + i/perYear,
			Period: i%perYear + 1,
		}
		schedules = append(schedules, &models.PaymentSchedule{
			ContractNumber: record.Contract.ContractNumber,
			Year:           key.Year,
			Period:         key.Period,
			Granularity:    record.Granularity,
			DueDate:        key.End(record.Granularity),
			PlannedAmount:  amount,
			DebtAmount:     amount,
		})
	}
	return schedules
}

// mergePlanFact joins the plan and fact column ranges of a wide-layout record
// into one row per period. A period present only in the fact set yields a
// plan-less row with negative debt, an uncategorized receipt.
func (g *Generator) mergePlanFact(record *parsers.ContractRecord) []*models.PaymentSchedule {
	keys := make(map[models.PeriodKey]struct{})
	for key := range record.PlanByPeriod {
		keys[key] = struct{}{}
	}
	for key := range record.FactByPeriod {
		keys[key] = struct{}{}
	}

	schedules := make([]*models.PaymentSchedule, 0, len(keys))
	for key := range keys {
		planned := record.PlanByPeriod[key]
		actual := record.FactByPeriod[key]
		schedules = append(schedules, &models.PaymentSchedule{
			ContractNumber: record.Contract.ContractNumber,
			Year:           key.Year,
			Period:         key.Period,
			Granularity:    record.Granularity,
			DueDate:        key.End(record.Granularity),
			PlannedAmount:  planned,
			ActualAmount:   actual,
			DebtAmount:     planned.Sub(actual),
		})
	}
	return schedules
}

// singlePayment covers contracts without an installment structure: one row
// for the remaining balance, or the initial payment when nothing remains, due
// at completion or immediately when the completion date is absent.
func (g *Generator) singlePayment(record *parsers.ContractRecord) *models.PaymentSchedule {
	amount := record.Contract.RemainingAmount
	if amount.IsZero() {
		amount = record.Contract.InitialPayment
	}

	due := record.Contract.CompletionDate
	if due.IsZero() {
		due = g.now()
	}
	key := models.PeriodOf(due, record.Granularity)

	return &models.PaymentSchedule{
		ContractNumber: record.Contract.ContractNumber,
		Year:           key.Year,
		Period:         key.Period,
		Granularity:    record.Granularity,
		DueDate:        due,
		PlannedAmount:  amount,
		DebtAmount:     amount,
	}
}

// TotalPlanned sums the planned amounts of a schedule set.
func TotalPlanned(schedules []*models.PaymentSchedule) decimal.Decimal {
	total := decimal.Zero
	for _, s := range schedules {
		total = total.Add(s.PlannedAmount)
	}
	return total
}
