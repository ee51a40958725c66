// Package models defines the normalized domain records produced by ingestion:
// installment-sale contracts, observed payment facts and per-period payment
// schedules.
//
// All money fields use decimal.Decimal; the core never does float arithmetic
// on amounts. Dates use time.Time with the zero value meaning "no date".
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ContractStatus is the language-neutral contract status resolved once at the
// ingestion boundary. Downstream logic never sees the localized source labels.
type ContractStatus string

const (
	StatusActive    ContractStatus = "ACTIVE"
	StatusCancelled ContractStatus = "CANCELLED"
	StatusCompleted ContractStatus = "COMPLETED"
)

// String returns the string representation of ContractStatus.
func (s ContractStatus) String() string {
	return string(s)
}

// IsValid checks if the status is one of the known values.
func (s ContractStatus) IsValid() bool {
	return s == StatusActive || s == StatusCancelled || s == StatusCompleted
}

// Granularity selects the billing-period resolution of a schedule. Flat
// quarterly exports produce quarter rows, wide monthly exports produce month
// rows; both share the (year, period) key space.
type Granularity string

const (
	GranularityQuarter Granularity = "QUARTER"
	GranularityMonth   Granularity = "MONTH"
)

// PeriodsPerYear returns 4 for quarters and 12 for months.
func (g Granularity) PeriodsPerYear() int {
	if g == GranularityMonth {
		return 12
	}
	return 4
}

// IsValid checks if the granularity is a known value.
func (g Granularity) IsValid() bool {
	return g == GranularityQuarter || g == GranularityMonth
}

// PeriodKey identifies one billing period. Period is 1-4 for quarters,
// 1-12 for months.
type PeriodKey struct {
	Year   int
	Period int
}

// End returns the last calendar day of the period.
func (k PeriodKey) End(g Granularity) time.Time {
	month := time.Month(k.Period)
	if g == GranularityQuarter {
		month = time.Month(k.Period * 3)
	}
	firstOfNext := time.Date(k.Year, month+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1)
}

// Label renders the period as "2025 Q3" or "2025-07".
func (k PeriodKey) Label(g Granularity) string {
	if g == GranularityQuarter {
		return fmt.Sprintf("%d Q%d", k.Year, k.Period)
	}
	return fmt.Sprintf("%d-%02d", k.Year, k.Period)
}

// PeriodOf maps a calendar date to its period key.
func PeriodOf(t time.Time, g Granularity) PeriodKey {
	if g == GranularityQuarter {
		return PeriodKey{Year: t.Year(), Period: (int(t.Month())-1)/3 + 1}
	}
	return PeriodKey{Year: t.Year(), Period: int(t.Month())}
}

// Contract represents one installment-sale agreement.
type Contract struct {
	ContractNumber   string          `json:"contract_number"`
	AdditionalNumber string          `json:"additional_number,omitempty"`
	TaxID            string          `json:"tax_id,omitempty"`      // legal-entity identifier
	NationalID       string          `json:"national_id,omitempty"` // individual identifier
	Passport         string          `json:"passport,omitempty"`
	CompanyName      string          `json:"company_name"`
	District         string          `json:"district"`
	Status           ContractStatus  `json:"status"`
	NeedsReview      bool            `json:"needs_review,omitempty"` // status text was unrecognized
	ContractDate     time.Time       `json:"contract_date"`
	CompletionDate   time.Time       `json:"completion_date"`
	ContractAmount   decimal.Decimal `json:"contract_amount"`
	InitialPayment   decimal.Decimal `json:"initial_payment"`
	RemainingAmount  decimal.Decimal `json:"remaining_amount"`
	PeriodPayment    decimal.Decimal `json:"period_payment"`
	PaymentTerms     string          `json:"payment_terms,omitempty"`
	PaymentPeriod    int             `json:"payment_period,omitempty"`
	AdvancePercent   decimal.Decimal `json:"advance_percent"`
}

// Identifier returns the dominant matching identifier, tax id first, then
// national id, then passport. Empty string means the contract has none.
func (c *Contract) Identifier() string {
	if c.TaxID != "" {
		return c.TaxID
	}
	if c.NationalID != "" {
		return c.NationalID
	}
	return c.Passport
}

// IsLegalEntity reports whether the contract belongs to a legal entity.
func (c *Contract) IsLegalEntity() bool {
	return c.TaxID != ""
}

// IsIndividual reports whether the contract belongs to an individual.
func (c *Contract) IsIndividual() bool {
	return c.TaxID == "" && c.NationalID != ""
}

// Validate performs basic validation on the Contract.
func (c *Contract) Validate() error {
	if strings.TrimSpace(c.ContractNumber) == "" {
		return fmt.Errorf("contract number cannot be empty")
	}
	if strings.TrimSpace(c.CompanyName) == "" {
		return fmt.Errorf("company name cannot be empty")
	}
	if !c.Status.IsValid() {
		return fmt.Errorf("invalid contract status: %s", c.Status)
	}
	if c.ContractAmount.IsNegative() {
		return fmt.Errorf("contract amount cannot be negative")
	}
	return nil
}

func (c *Contract) String() string {
	return fmt.Sprintf("Contract{Number: %s, Name: %s, District: %s, Status: %s, Amount: %s}",
		c.ContractNumber, c.CompanyName, c.District, c.Status, c.ContractAmount.String())
}

// PaymentFact represents one observed incoming payment transaction.
type PaymentFact struct {
	PaymentDate  time.Time       `json:"payment_date"`
	TaxID        string          `json:"tax_id,omitempty"`
	NationalID   string          `json:"national_id,omitempty"`
	Passport     string          `json:"passport,omitempty"`
	AmountDebit  decimal.Decimal `json:"amount_debit"`
	AmountCredit decimal.Decimal `json:"amount_credit"` // adjustment/reversal, signed
	District     string          `json:"district,omitempty"`
	Description  string          `json:"description,omitempty"`
	PaymentType  string          `json:"payment_type,omitempty"`

	// Matched is set exactly once by the payment matcher; ContractNumber is
	// non-empty iff Matched is true.
	Matched        bool   `json:"matched"`
	ContractNumber string `json:"contract_number,omitempty"`
}

// Identifier returns the payment's matching identifier with the same
// precedence as Contract.Identifier.
func (p *PaymentFact) Identifier() string {
	if p.TaxID != "" {
		return p.TaxID
	}
	if p.NationalID != "" {
		return p.NationalID
	}
	return p.Passport
}

// NetAmount returns debit minus the absolute credit adjustment.
func (p *PaymentFact) NetAmount() decimal.Decimal {
	return p.AmountDebit.Sub(p.AmountCredit.Abs())
}

// Validate performs basic validation on the PaymentFact.
func (p *PaymentFact) Validate() error {
	if p.PaymentDate.IsZero() {
		return fmt.Errorf("payment date cannot be empty")
	}
	if !p.AmountDebit.IsPositive() {
		return fmt.Errorf("payment debit amount must be positive")
	}
	if p.Matched && p.ContractNumber == "" {
		return fmt.Errorf("matched payment must reference a contract")
	}
	return nil
}

func (p *PaymentFact) String() string {
	return fmt.Sprintf("PaymentFact{Date: %s, Amount: %s, Identifier: %s, Matched: %t}",
		p.PaymentDate.Format("2006-01-02"), p.AmountDebit.String(), p.Identifier(), p.Matched)
}

// PaymentSchedule is one billing-period obligation of a contract.
type PaymentSchedule struct {
	ContractNumber string          `json:"contract_number"`
	Year           int             `json:"year"`
	Period         int             `json:"period"` // month 1-12 or quarter 1-4
	Granularity    Granularity     `json:"granularity"`
	DueDate        time.Time       `json:"due_date"`
	PlannedAmount  decimal.Decimal `json:"planned_amount"`
	ActualAmount   decimal.Decimal `json:"actual_amount"`
	DebtAmount     decimal.Decimal `json:"debt_amount"` // planned - actual, negative when overpaid
	IsOverdue      bool            `json:"is_overdue"`
}

// Key returns the schedule's period key.
func (s *PaymentSchedule) Key() PeriodKey {
	return PeriodKey{Year: s.Year, Period: s.Period}
}

// PeriodLabel renders the row's period for reporting.
func (s *PaymentSchedule) PeriodLabel() string {
	return s.Key().Label(s.Granularity)
}

// Quarter returns the quarter index regardless of granularity.
func (s *PaymentSchedule) Quarter() int {
	if s.Granularity == GranularityMonth {
		return (s.Period-1)/3 + 1
	}
	return s.Period
}

// Covers reports whether the given date falls inside this schedule's period.
func (s *PaymentSchedule) Covers(t time.Time) bool {
	return PeriodOf(t, s.Granularity) == s.Key()
}

// Validate performs basic validation on the PaymentSchedule.
func (s *PaymentSchedule) Validate() error {
	if strings.TrimSpace(s.ContractNumber) == "" {
		return fmt.Errorf("schedule must reference a contract")
	}
	if !s.Granularity.IsValid() {
		return fmt.Errorf("invalid granularity: %s", s.Granularity)
	}
	if s.Period < 1 || s.Period > s.Granularity.PeriodsPerYear() {
		return fmt.Errorf("period %d out of range for %s granularity", s.Period, s.Granularity)
	}
	if !s.DebtAmount.Equal(s.PlannedAmount.Sub(s.ActualAmount)) {
		return fmt.Errorf("debt amount must equal planned minus actual")
	}
	return nil
}

func (s *PaymentSchedule) String() string {
	return fmt.Sprintf("PaymentSchedule{Contract: %s, Period: %s, Planned: %s, Actual: %s, Debt: %s, Overdue: %t}",
		s.ContractNumber, s.PeriodLabel(), s.PlannedAmount.String(),
		s.ActualAmount.String(), s.DebtAmount.String(), s.IsOverdue)
}
