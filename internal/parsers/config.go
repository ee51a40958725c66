package parsers

import (
	"fmt"

	"contract-ledger-service/internal/models"
)

// LayoutKind selects how contract-export columns are interpreted.
type LayoutKind string

const (
	// LayoutFlat is the narrow quarterly export: fixed identity columns
	// followed by a trailing block of sequential period-amount columns, one
	// per quarter over several years.
	LayoutFlat LayoutKind = "flat"

	// LayoutWide is the monthly export with separate contiguous column
	// ranges for "fact" and "plan" periods. Each range's header cell encodes
	// the period end-date and is parsed with the date normalizer.
	LayoutWide LayoutKind = "wide"
)

// IsValid checks if the layout kind is supported.
func (k LayoutKind) IsValid() bool {
	return k == LayoutFlat || k == LayoutWide
}

// ContractLayout maps semantic contract fields to column indices. Exports
// vary between source-system versions, so every index is configurable; the
// defaults match the known government export.
type ContractLayout struct {
	Kind LayoutKind `json:"kind"`

	IdentifierCol       int `json:"identifier_col"`
	PassportCol         int `json:"passport_col"`
	CompanyNameCol      int `json:"company_name_col"`
	ContractNumberCol   int `json:"contract_number_col"`
	AdditionalNumberCol int `json:"additional_number_col"`
	StatusCol           int `json:"status_col"`
	ContractDateCol     int `json:"contract_date_col"`
	CompletionDateCol   int `json:"completion_date_col"`
	PaymentTermsCol     int `json:"payment_terms_col"`
	PaymentPeriodCol    int `json:"payment_period_col"`
	AdvancePercentCol   int `json:"advance_percent_col"`
	DistrictCol         int `json:"district_col"`
	ContractAmountCol   int `json:"contract_amount_col"`
	InitialPaymentCol   int `json:"initial_payment_col"`
	RemainingCol        int `json:"remaining_col"`
	PeriodPaymentCol    int `json:"period_payment_col"`

	// Flat layout: trailing block of per-period amounts.
	PeriodAmountsStart int `json:"period_amounts_start"`
	PeriodAmountsEnd   int `json:"period_amounts_end"`
	FirstYear          int `json:"first_year"`

	// Wide layout: contiguous fact and plan column ranges whose header
	// cells carry period end-dates.
	FactStart int `json:"fact_start"`
	FactEnd   int `json:"fact_end"`
	PlanStart int `json:"plan_start"`
	PlanEnd   int `json:"plan_end"`

	Granularity      models.Granularity `json:"granularity"`
	MinHeaderColumns int                `json:"min_header_columns"`
	MinRowColumns    int                `json:"min_row_columns"`
}

// DefaultFlatContractLayout returns the quarterly export layout.
func DefaultFlatContractLayout() *ContractLayout {
	return &ContractLayout{
		Kind:                LayoutFlat,
		IdentifierCol:       1,
		PassportCol:         2,
		CompanyNameCol:      3,
		ContractNumberCol:   4,
		AdditionalNumberCol: 5,
		StatusCol:           6,
		ContractDateCol:     7,
		CompletionDateCol:   8,
		PaymentTermsCol:     9,
		PaymentPeriodCol:    10,
		AdvancePercentCol:   11,
		DistrictCol:         12,
		ContractAmountCol:   13,
		InitialPaymentCol:   14,
		RemainingCol:        15,
		PeriodPaymentCol:    16,
		PeriodAmountsStart:  17,
		PeriodAmountsEnd:    35,
		FirstYear:           2024,
		Granularity:         models.GranularityQuarter,
		MinHeaderColumns:    17,
		MinRowColumns:       10,
	}
}

// DefaultWideContractLayout returns the monthly plan/fact export layout.
func DefaultWideContractLayout() *ContractLayout {
	return &ContractLayout{
		Kind:                LayoutWide,
		IdentifierCol:       1,
		PassportCol:         2,
		CompanyNameCol:      3,
		ContractNumberCol:   4,
		AdditionalNumberCol: 5,
		StatusCol:           6,
		ContractDateCol:     7,
		CompletionDateCol:   8,
		PaymentTermsCol:     9,
		PaymentPeriodCol:    10,
		AdvancePercentCol:   11,
		DistrictCol:         12,
		ContractAmountCol:   13,
		InitialPaymentCol:   14,
		RemainingCol:        15,
		PeriodPaymentCol:    16,
		FactStart:           17,
		FactEnd:             28,
		PlanStart:           29,
		PlanEnd:             40,
		Granularity:         models.GranularityMonth,
		MinHeaderColumns:    17,
		MinRowColumns:       10,
	}
}

// Validate checks the layout for internal consistency.
func (l *ContractLayout) Validate() error {
	if !l.Kind.IsValid() {
		return fmt.Errorf("unknown layout kind: %s", l.Kind)
	}
	if !l.Granularity.IsValid() {
		return fmt.Errorf("unknown granularity: %s", l.Granularity)
	}
	if l.ContractNumberCol < 0 || l.CompanyNameCol < 0 {
		return fmt.Errorf("contract number and company name columns are required")
	}
	if l.MinHeaderColumns <= 0 {
		return fmt.Errorf("minimum header column count must be positive")
	}

	switch l.Kind {
	case LayoutFlat:
		if l.PeriodAmountsStart <= 0 || l.PeriodAmountsEnd < l.PeriodAmountsStart {
			return fmt.Errorf("flat layout requires a valid period-amount column range")
		}
		if l.FirstYear <= 0 {
			return fmt.Errorf("flat layout requires the first schedule year")
		}
	case LayoutWide:
		if l.FactEnd < l.FactStart || l.PlanEnd < l.PlanStart {
			return fmt.Errorf("wide layout requires valid fact and plan column ranges")
		}
	}
	return nil
}

// PaymentLayout maps payment-fact export fields to column indices.
type PaymentLayout struct {
	DateCol          int `json:"date_col"`
	IdentifierCol    int `json:"identifier_col"`
	AmountCol        int `json:"amount_col"`
	DescriptionCol   int `json:"description_col"`
	DistrictCol      int `json:"district_col"`
	PaymentTypeCol   int `json:"payment_type_col"`
	MinHeaderColumns int `json:"min_header_columns"`
	MinRowColumns    int `json:"min_row_columns"`
}

// DefaultPaymentLayout returns the known payment export layout.
func DefaultPaymentLayout() *PaymentLayout {
	return &PaymentLayout{
		DateCol:          0,
		IdentifierCol:    1,
		AmountCol:        2,
		DescriptionCol:   3,
		DistrictCol:      6,
		PaymentTypeCol:   7,
		MinHeaderColumns: 3,
		MinRowColumns:    3,
	}
}

// Validate checks the payment layout for internal consistency.
func (l *PaymentLayout) Validate() error {
	if l.DateCol < 0 || l.AmountCol < 0 {
		return fmt.Errorf("date and amount columns are required")
	}
	if l.MinHeaderColumns <= 0 {
		return fmt.Errorf("minimum header column count must be positive")
	}
	return nil
}
