package parsers

import (
	"fmt"
	"io"
	"strconv"

	"contract-ledger-service/internal/models"
	"contract-ledger-service/internal/normalize"
	"contract-ledger-service/pkg/errors"
	"contract-ledger-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// ContractRecord is one parsed contract together with the raw per-period
// amounts the schedule generator needs.
type ContractRecord struct {
	Contract    models.Contract
	Granularity models.Granularity
	FirstYear   int

	// Flat layout: sequential per-period planned amounts starting at
	// FirstYear period 1.
	PeriodAmounts []decimal.Decimal

	// Wide layout: planned and observed amounts keyed by period, taken from
	// the plan/fact column ranges.
	PlanByPeriod map[models.PeriodKey]decimal.Decimal
	FactByPeriod map[models.PeriodKey]decimal.Decimal
}

// ContractParser parses contract export files.
type ContractParser struct {
	*BaseParser
	layout *ContractLayout
	logger logger.Logger
}

// NewContractParser creates a ContractParser for the given layout.
func NewContractParser(layout *ContractLayout, config *ParseConfig) (*ContractParser, error) {
	if layout == nil {
		layout = DefaultFlatContractLayout()
	}
	if err := layout.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "contract_layout", layout, err)
	}

	return &ContractParser{
		BaseParser: NewBaseParser(config),
		layout:     layout,
		logger:     logger.GetGlobalLogger().WithComponent("contract_parser"),
	}, nil
}

// ParseContracts parses a contract export. Row-level defects are recorded in
// the returned stats and do not abort the parse; zero surviving records is a
// fatal parse error.
func (cp *ContractParser) ParseContracts(filePath string) ([]*ContractRecord, *ParseStats, error) {
	cp.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"layout":    string(cp.layout.Kind),
	}).Info("Starting contract parsing")

	source, err := cp.Open(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer source.Close()

	stats := NewParseStats()

	header, err := cp.ReadHeader(source, filePath, cp.layout.MinHeaderColumns)
	if err != nil {
		return nil, stats, err
	}

	var wideColumns map[int]models.PeriodKey
	if cp.layout.Kind == LayoutWide {
		wideColumns = cp.resolveWideColumns(header, stats)
	}

	var records []*ContractRecord
	seen := make(map[string]int) // contract number -> first line
	line := 1

	progress := logger.NewProgressTracker("parse_contracts", 0, 0)
	defer progress.Done()

	for {
		row, err := source.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			line++
			stats.Skip(Diagnostic{
				Line:     line,
				Severity: SeverityError,
				Message:  fmt.Sprintf("unreadable row: %v", err),
			})
			continue
		}
		line++

		if cp.config.SkipEmptyRows && IsEmptyRow(row) {
			continue
		}
		stats.TotalRows++
		progress.Increment()

		record, ok := cp.parseRow(row, line, wideColumns, stats)
		if !ok {
			continue
		}

		number := record.Contract.ContractNumber
		if firstLine, dup := seen[number]; dup {
			stats.Skip(Diagnostic{
				Line:     line,
				Severity: SeverityWarning,
				Field:    "contract_number",
				Value:    number,
				Message:  fmt.Sprintf("duplicate of line %d, contract numbers must be unique", firstLine),
			})
			continue
		}
		seen[number] = line

		records = append(records, record)
		stats.RecordsValid++
	}

	if stats.RecordsValid == 0 {
		return nil, stats, errors.ParseError(
			errors.CodeNoValidRecords, filePath, line, "", "", nil,
		).WithContext("skipped_rows", stats.SkippedRows)
	}

	cp.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"stats":     stats.String(),
	}).Info("Finished contract parsing")

	return records, stats, nil
}

// resolveWideColumns parses the header cells of the fact and plan ranges into
// period keys. Header cells that do not carry a date are ignored with a
// warning so a misaligned range shows up in the diagnostics.
func (cp *ContractParser) resolveWideColumns(header []string, stats *ParseStats) map[int]models.PeriodKey {
	columns := make(map[int]models.PeriodKey)
	ranges := [][2]int{
		{cp.layout.FactStart, cp.layout.FactEnd},
		{cp.layout.PlanStart, cp.layout.PlanEnd},
	}
	for _, r := range ranges {
		for col := r[0]; col <= r[1]; col++ {
			cell := Cell(header, col)
			end, ok := normalize.ParseDate(cell)
			if !ok {
				stats.AddDiagnostic(Diagnostic{
					Line:     1,
					Severity: SeverityWarning,
					Field:    fmt.Sprintf("header_col_%d", col),
					Value:    cell,
					Message:  "header cell does not encode a period end-date, column ignored",
				})
				continue
			}
			columns[col] = models.PeriodOf(end, cp.layout.Granularity)
		}
	}
	return columns
}

func (cp *ContractParser) parseRow(row []string, line int, wideColumns map[int]models.PeriodKey, stats *ParseStats) (*ContractRecord, bool) {
	if len(row) < cp.layout.MinRowColumns {
		stats.Skip(Diagnostic{
			Line:     line,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("short row: %d columns, need %d", len(row), cp.layout.MinRowColumns),
		})
		return nil, false
	}

	number := Cell(row, cp.layout.ContractNumberCol)
	name := Cell(row, cp.layout.CompanyNameCol)
	if number == "" || name == "" {
		field := "contract_number"
		if number != "" {
			field = "company_name"
		}
		stats.Skip(Diagnostic{
			Line:     line,
			Severity: SeverityWarning,
			Field:    field,
			Message:  "mandatory field is empty",
		})
		return nil, false
	}

	status, needsReview := normalize.ParseStatus(Cell(row, cp.layout.StatusCol))
	if needsReview {
		stats.AddDiagnostic(Diagnostic{
			Line:     line,
			Severity: SeverityWarning,
			Field:    "status",
			Value:    Cell(row, cp.layout.StatusCol),
			Message:  "unrecognized status, defaulted to ACTIVE and flagged for review",
		})
	}

	contractDate, _ := normalize.ParseDate(Cell(row, cp.layout.ContractDateCol))
	completionDate, _ := normalize.ParseDate(Cell(row, cp.layout.CompletionDateCol))
	paymentPeriod, _ := strconv.Atoi(Cell(row, cp.layout.PaymentPeriodCol))

	contract := models.Contract{
		ContractNumber:   number,
		AdditionalNumber: Cell(row, cp.layout.AdditionalNumberCol),
		CompanyName:      name,
		Passport:         Cell(row, cp.layout.PassportCol),
		District:         cp.district(row),
		Status:           status,
		NeedsReview:      needsReview,
		ContractDate:     contractDate,
		CompletionDate:   completionDate,
		ContractAmount:   cp.amount(row, cp.layout.ContractAmountCol, "contract_amount", line, stats),
		InitialPayment:   cp.amount(row, cp.layout.InitialPaymentCol, "initial_payment", line, stats),
		RemainingAmount:  cp.amount(row, cp.layout.RemainingCol, "remaining_amount", line, stats),
		PeriodPayment:    cp.amount(row, cp.layout.PeriodPaymentCol, "period_payment", line, stats),
		PaymentTerms:     Cell(row, cp.layout.PaymentTermsCol),
		PaymentPeriod:    paymentPeriod,
		AdvancePercent:   normalize.ParsePercent(Cell(row, cp.layout.AdvancePercentCol)),
	}
	cp.assignIdentifier(&contract, Cell(row, cp.layout.IdentifierCol))

	record := &ContractRecord{
		Contract:    contract,
		Granularity: cp.layout.Granularity,
		FirstYear:   cp.layout.FirstYear,
	}

	switch cp.layout.Kind {
	case LayoutFlat:
		for col := cp.layout.PeriodAmountsStart; col <= cp.layout.PeriodAmountsEnd && col < len(row); col++ {
			record.PeriodAmounts = append(record.PeriodAmounts,
				cp.amount(row, col, fmt.Sprintf("period_amount_%d", col), line, stats))
		}
	case LayoutWide:
		record.PlanByPeriod = make(map[models.PeriodKey]decimal.Decimal)
		record.FactByPeriod = make(map[models.PeriodKey]decimal.Decimal)
		for col, key := range wideColumns {
			value := cp.amount(row, col, fmt.Sprintf("col_%d", col), line, stats)
			if value.IsZero() {
				continue
			}
			if col >= cp.layout.PlanStart && col <= cp.layout.PlanEnd {
				record.PlanByPeriod[key] = record.PlanByPeriod[key].Add(value)
			} else {
				record.FactByPeriod[key] = record.FactByPeriod[key].Add(value)
			}
		}
	}

	return record, true
}

// assignIdentifier classifies the cleaned identifier column. The exports mix
// 9-digit legal-entity tax ids and 14-digit personal ids in one column, so
// length decides which field it lands in.
func (cp *ContractParser) assignIdentifier(contract *models.Contract, raw string) {
	id := normalize.CleanIdentifier(raw)
	if id == "" {
		return
	}
	if len(id) == 14 {
		contract.NationalID = id
	} else {
		contract.TaxID = id
	}
}

func (cp *ContractParser) district(row []string) string {
	district := Cell(row, cp.layout.DistrictCol)
	if district == "" {
		return "Unknown"
	}
	return district
}

// amount parses a money cell and records a warning diagnostic when the cell
// was malformed and coerced to zero.
func (cp *ContractParser) amount(row []string, col int, field string, line int, stats *ParseStats) decimal.Decimal {
	raw := Cell(row, col)
	value, ok := normalize.ParseAmount(raw)
	if !ok {
		stats.AddDiagnostic(Diagnostic{
			Line:     line,
			Severity: SeverityWarning,
			Field:    field,
			Value:    raw,
			Message:  "malformed amount coerced to zero",
		})
	}
	return value
}
