package reconciler

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"contract-ledger-service/internal/models"
	"contract-ledger-service/internal/parsers"
	"contract-ledger-service/internal/store"

	"github.com/shopspring/decimal"
)

var testToday = time.Date(2025, 8, 30, 0, 0, 0, 0, time.UTC)

func quarterSchedule(number string, year, quarter int, planned int64) *models.PaymentSchedule {
	key := models.PeriodKey{Year: year, Period: quarter}
	amount := decimal.NewFromInt(planned)
	return &models.PaymentSchedule{
		ContractNumber: number,
		Year:           year,
		Period:         quarter,
		Granularity:    models.GranularityQuarter,
		DueDate:        key.End(models.GranularityQuarter),
		PlannedAmount:  amount,
		DebtAmount:     amount,
	}
}

func matchedPayment(number string, date time.Time, amount int64) *models.PaymentFact {
	return &models.PaymentFact{
		PaymentDate:    date,
		AmountDebit:    decimal.NewFromInt(amount),
		Matched:        true,
		ContractNumber: number,
	}
}

func TestRecalculate_SumsPaymentsIntoPeriods(t *testing.T) {
	schedules := []*models.PaymentSchedule{
		quarterSchedule("APZ-001", 2025, 1, 100),
		quarterSchedule("APZ-001", 2025, 2, 100),
	}
	payments := []*models.PaymentFact{
		matchedPayment("APZ-001", time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), 60),
		matchedPayment("APZ-001", time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC), 40),
		matchedPayment("APZ-001", time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), 120),
		// Unmatched payments never count.
		{PaymentDate: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), AmountDebit: decimal.NewFromInt(999)},
	}

	NewRecalculator().WithClock(func() time.Time { return testToday }).Recalculate(schedules, payments)

	q1 := schedules[0]
	if !q1.ActualAmount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected Q1 actual 100, got %s", q1.ActualAmount)
	}
	if !q1.DebtAmount.IsZero() {
		t.Errorf("Expected Q1 debt 0, got %s", q1.DebtAmount)
	}
	if q1.IsOverdue {
		t.Error("Settled period must not be overdue")
	}

	q2 := schedules[1]
	if !q2.DebtAmount.Equal(decimal.NewFromInt(-20)) {
		t.Errorf("Expected Q2 debt -20 (overpaid), got %s", q2.DebtAmount)
	}
	if q2.IsOverdue {
		t.Error("Overpaid period must not be overdue")
	}
}

func TestRecalculate_OverdueNeedsPastDueDateAndPositiveDebt(t *testing.T) {
	pastUnpaid := quarterSchedule("APZ-001", 2025, 1, 100)
	futureUnpaid := quarterSchedule("APZ-001", 2025, 4, 100)

	NewRecalculator().WithClock(func() time.Time { return testToday }).
		Recalculate([]*models.PaymentSchedule{pastUnpaid, futureUnpaid}, nil)

	if !pastUnpaid.IsOverdue {
		t.Error("Past-due unpaid period must be overdue")
	}
	if futureUnpaid.IsOverdue {
		t.Error("Future period must not be overdue")
	}
}

func TestRecalculate_KeepsFileActualsWithoutMatchedPayments(t *testing.T) {
	withFacts := quarterSchedule("APZ-001", 2025, 1, 100)
	withFacts.ActualAmount = decimal.NewFromInt(70)

	NewRecalculator().WithClock(func() time.Time { return testToday }).
		Recalculate([]*models.PaymentSchedule{withFacts}, nil)

	if !withFacts.ActualAmount.Equal(decimal.NewFromInt(70)) {
		t.Errorf("Expected file actual 70 preserved, got %s", withFacts.ActualAmount)
	}
	if !withFacts.DebtAmount.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Expected debt 30, got %s", withFacts.DebtAmount)
	}
}

func TestUpdateRemaining(t *testing.T) {
	contracts := []*models.Contract{
		{ContractNumber: "APZ-001", RemainingAmount: decimal.NewFromInt(999)},
		{ContractNumber: "APZ-002"},
	}
	schedules := []*models.PaymentSchedule{
		quarterSchedule("APZ-001", 2025, 1, 100),
		quarterSchedule("APZ-001", 2025, 2, 100),
		quarterSchedule("APZ-002", 2025, 1, 50),
	}
	schedules[0].ActualAmount = decimal.NewFromInt(80)
	schedules[2].ActualAmount = decimal.NewFromInt(70) // overpaid

	NewRecalculator().UpdateRemaining(contracts, schedules)

	if !contracts[0].RemainingAmount.Equal(decimal.NewFromInt(120)) {
		t.Errorf("Expected remaining 120, got %s", contracts[0].RemainingAmount)
	}
	if !contracts[1].RemainingAmount.IsZero() {
		t.Errorf("Overpaid contract must floor at zero, got %s", contracts[1].RemainingAmount)
	}
}

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "pipeline_*.csv")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		tmpFile.Close()
		t.Fatalf("Failed to write temp file: %v", err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })
	return tmpFile.Name()
}

func contractCSV() string {
	header := strings.Repeat("col;", 35) + "col"
	cells := make([]string, 21)
	cells[1] = "200123456"
	cells[3] = "Test MCHJ"
	cells[4] = "APZ-001"
	cells[6] = "Амал қилувчи"
	cells[7] = "15.01.2024"
	cells[8] = "31.12.2027"
	cells[12] = "Yunusobod"
	cells[13] = "1000000"
	cells[15] = "900000"
	cells[17] = "100" // 2024 Q1
	cells[18] = "0"
	cells[19] = "50" // 2024 Q3
	return header + "\n" + strings.Join(cells, ";") + "\n"
}

func paymentCSV() string {
	return "date;inn;amount\n" +
		"10.02.2024;200123456;60\n"
}

func newTestPipeline(t *testing.T, st store.Store) *Pipeline {
	t.Helper()
	contractParser, err := parsers.NewContractParser(nil, nil)
	if err != nil {
		t.Fatalf("Failed to create contract parser: %v", err)
	}
	paymentParser, err := parsers.NewPaymentParser(nil, nil)
	if err != nil {
		t.Fatalf("Failed to create payment parser: %v", err)
	}
	return NewPipeline(contractParser, paymentParser, st).
		WithClock(func() time.Time { return testToday })
}

func TestPipeline_Run(t *testing.T) {
	st := store.NewMemoryStore()
	pipeline := newTestPipeline(t, st)

	report, err := pipeline.Run(context.Background(), writeTempCSV(t, contractCSV()), writeTempCSV(t, paymentCSV()))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.ContractsIngested != 1 || report.PaymentsIngested != 1 {
		t.Errorf("Expected 1 contract and 1 payment, got %d/%d", report.ContractsIngested, report.PaymentsIngested)
	}
	if report.SchedulesGenerated != 2 {
		t.Errorf("Expected 2 schedules (zero periods skipped), got %d", report.SchedulesGenerated)
	}
	if report.PaymentsMatched != 1 {
		t.Errorf("Expected 1 matched payment, got %d", report.PaymentsMatched)
	}
	if report.BatchID == "" {
		t.Error("Report must carry a batch id")
	}

	batch := st.Batch()
	if batch == nil {
		t.Fatal("Pipeline did not persist a batch")
	}
	if batch.ID != report.BatchID {
		t.Errorf("Stored batch id %s does not match report %s", batch.ID, report.BatchID)
	}

	// 2024 Q1: planned 100, paid 60, past due.
	q1 := batch.Schedules[0]
	if !q1.ActualAmount.Equal(decimal.NewFromInt(60)) {
		t.Errorf("Expected Q1 actual 60, got %s", q1.ActualAmount)
	}
	if !q1.DebtAmount.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected Q1 debt 40, got %s", q1.DebtAmount)
	}
	if !q1.IsOverdue {
		t.Error("Q1 should be overdue")
	}

	if !batch.Contracts[0].RemainingAmount.Equal(decimal.NewFromInt(90)) {
		t.Errorf("Expected remaining 90 (150 planned - 60 paid), got %s", batch.Contracts[0].RemainingAmount)
	}
}

func TestPipeline_DryRunSkipsPersist(t *testing.T) {
	st := store.NewMemoryStore()
	pipeline := newTestPipeline(t, st).WithDryRun(true)

	report, err := pipeline.Run(context.Background(), writeTempCSV(t, contractCSV()), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !report.DryRun {
		t.Error("Report must mark dry runs")
	}
	if st.Batch() != nil {
		t.Error("Dry run must not persist")
	}
}

func TestPipeline_ParseFailureLeavesStoreUntouched(t *testing.T) {
	st := store.NewMemoryStore()
	seeded := &store.Batch{ID: "previous"}
	if err := st.ReplaceAll(context.Background(), seeded); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	pipeline := newTestPipeline(t, st)
	_, err := pipeline.Run(context.Background(), writeTempCSV(t, "too;short;header\n"), "")
	if err == nil {
		t.Fatal("Expected parse failure")
	}

	if st.Batch().ID != "previous" {
		t.Error("Failed run must leave the previous population intact")
	}
}
