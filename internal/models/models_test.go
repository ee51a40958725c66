package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestContractStatus_IsValid(t *testing.T) {
	valid := []ContractStatus{StatusActive, StatusCancelled, StatusCompleted}
	for _, s := range valid {
		if !s.IsValid() {
			t.Errorf("Expected %s to be valid", s)
		}
	}
	if ContractStatus("UNKNOWN").IsValid() {
		t.Error("Expected UNKNOWN to be invalid")
	}
}

func TestPeriodKey_End(t *testing.T) {
	tests := []struct {
		name string
		key  PeriodKey
		g    Granularity
		want time.Time
	}{
		{"Q1 ends March 31", PeriodKey{2024, 1}, GranularityQuarter, date(2024, 3, 31)},
		{"Q4 ends December 31", PeriodKey{2025, 4}, GranularityQuarter, date(2025, 12, 31)},
		{"February leap year", PeriodKey{2024, 2}, GranularityMonth, date(2024, 2, 29)},
		{"February non-leap", PeriodKey{2025, 2}, GranularityMonth, date(2025, 2, 28)},
		{"December month", PeriodKey{2024, 12}, GranularityMonth, date(2024, 12, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.End(tt.g); !got.Equal(tt.want) {
				t.Errorf("End() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPeriodKey_Label(t *testing.T) {
	if got := (PeriodKey{2025, 3}).Label(GranularityQuarter); got != "2025 Q3" {
		t.Errorf("Expected '2025 Q3', got %q", got)
	}
	if got := (PeriodKey{2025, 7}).Label(GranularityMonth); got != "2025-07" {
		t.Errorf("Expected '2025-07', got %q", got)
	}
}

func TestPeriodOf(t *testing.T) {
	d := date(2025, 8, 15)
	if got := PeriodOf(d, GranularityQuarter); got != (PeriodKey{2025, 3}) {
		t.Errorf("Expected Q3 2025, got %+v", got)
	}
	if got := PeriodOf(d, GranularityMonth); got != (PeriodKey{2025, 8}) {
		t.Errorf("Expected month 8 2025, got %+v", got)
	}
}

func TestContract_Identifier_Precedence(t *testing.T) {
	tests := []struct {
		name     string
		contract Contract
		want     string
	}{
		{"tax id wins", Contract{TaxID: "123", NationalID: "456", Passport: "AB1"}, "123"},
		{"national id next", Contract{NationalID: "456", Passport: "AB1"}, "456"},
		{"passport last", Contract{Passport: "AB1"}, "AB1"},
		{"none absent", Contract{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.contract.Identifier(); got != tt.want {
				t.Errorf("Identifier() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContract_EntityKind(t *testing.T) {
	legal := Contract{TaxID: "200123456"}
	if !legal.IsLegalEntity() || legal.IsIndividual() {
		t.Error("Contract with tax id should be a legal entity")
	}

	individual := Contract{NationalID: "31234567890123"}
	if individual.IsLegalEntity() || !individual.IsIndividual() {
		t.Error("Contract with only national id should be an individual")
	}
}

func TestContract_Validate(t *testing.T) {
	valid := Contract{
		ContractNumber: "APZ-001",
		CompanyName:    "Test LLC",
		Status:         StatusActive,
		ContractAmount: decimal.NewFromInt(1000),
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid contract, got %v", err)
	}

	missing := valid
	missing.ContractNumber = " "
	if err := missing.Validate(); err == nil {
		t.Error("Expected error for blank contract number")
	}

	badStatus := valid
	badStatus.Status = "WEIRD"
	if err := badStatus.Validate(); err == nil {
		t.Error("Expected error for unknown status")
	}
}

func TestPaymentFact_NetAmount(t *testing.T) {
	p := PaymentFact{
		AmountDebit:  decimal.NewFromInt(500),
		AmountCredit: decimal.NewFromInt(-120),
	}
	if !p.NetAmount().Equal(decimal.NewFromInt(380)) {
		t.Errorf("NetAmount() = %s, want 380", p.NetAmount())
	}
}

func TestPaymentFact_Validate(t *testing.T) {
	valid := PaymentFact{
		PaymentDate: date(2025, 1, 10),
		AmountDebit: decimal.NewFromInt(100),
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid payment, got %v", err)
	}

	zero := valid
	zero.AmountDebit = decimal.Zero
	if err := zero.Validate(); err == nil {
		t.Error("Expected error for zero debit amount")
	}

	matchedNoRef := valid
	matchedNoRef.Matched = true
	if err := matchedNoRef.Validate(); err == nil {
		t.Error("Matched payment without contract reference should be invalid")
	}
}

func TestPaymentSchedule_DebtInvariant(t *testing.T) {
	s := PaymentSchedule{
		ContractNumber: "APZ-001",
		Year:           2025,
		Period:         3,
		Granularity:    GranularityQuarter,
		PlannedAmount:  decimal.NewFromInt(100),
		ActualAmount:   decimal.NewFromInt(40),
		DebtAmount:     decimal.NewFromInt(60),
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Expected valid schedule, got %v", err)
	}

	s.DebtAmount = decimal.NewFromInt(10)
	if err := s.Validate(); err == nil {
		t.Error("Expected debt invariant violation")
	}
}

func TestPaymentSchedule_Covers(t *testing.T) {
	s := PaymentSchedule{
		ContractNumber: "APZ-001",
		Year:           2025,
		Period:         2,
		Granularity:    GranularityQuarter,
	}
	if !s.Covers(date(2025, 5, 20)) {
		t.Error("May 2025 should fall in Q2 2025")
	}
	if s.Covers(date(2025, 7, 1)) {
		t.Error("July 2025 should not fall in Q2 2025")
	}
	if s.Covers(date(2024, 5, 20)) {
		t.Error("May 2024 should not fall in Q2 2025")
	}
}

func TestPaymentSchedule_Quarter(t *testing.T) {
	monthly := PaymentSchedule{Year: 2025, Period: 8, Granularity: GranularityMonth}
	if monthly.Quarter() != 3 {
		t.Errorf("Month 8 should be quarter 3, got %d", monthly.Quarter())
	}
	quarterly := PaymentSchedule{Year: 2025, Period: 4, Granularity: GranularityQuarter}
	if quarterly.Quarter() != 4 {
		t.Errorf("Quarter row should report its own quarter, got %d", quarterly.Quarter())
	}
}
