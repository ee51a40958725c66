package parsers

import (
	"fmt"
	"io"

	"contract-ledger-service/internal/models"
	"contract-ledger-service/internal/normalize"
	"contract-ledger-service/pkg/errors"
	"contract-ledger-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// PaymentParser parses payment-fact export files.
type PaymentParser struct {
	*BaseParser
	layout *PaymentLayout
	logger logger.Logger
}

// NewPaymentParser creates a PaymentParser for the given layout.
func NewPaymentParser(layout *PaymentLayout, config *ParseConfig) (*PaymentParser, error) {
	if layout == nil {
		layout = DefaultPaymentLayout()
	}
	if err := layout.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "payment_layout", layout, err)
	}

	return &PaymentParser{
		BaseParser: NewBaseParser(config),
		layout:     layout,
		logger:     logger.GetGlobalLogger().WithComponent("payment_parser"),
	}, nil
}

// ParsePayments parses a payment-fact export. Every payment comes out in the
// unmatched state; rows without a parseable date or a positive debit amount
// are skipped with a warning.
func (pp *PaymentParser) ParsePayments(filePath string) ([]*models.PaymentFact, *ParseStats, error) {
	pp.logger.WithField("file_path", filePath).Info("Starting payment parsing")

	source, err := pp.Open(filePath)
	if err != nil {
		return nil, nil, err
	}
	defer source.Close()

	stats := NewParseStats()

	if _, err := pp.ReadHeader(source, filePath, pp.layout.MinHeaderColumns); err != nil {
		return nil, stats, err
	}

	var payments []*models.PaymentFact
	line := 1

	progress := logger.NewProgressTracker("parse_payments", 0, 0)
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

		if pp.config.SkipEmptyRows && IsEmptyRow(row) {
			continue
		}
		stats.TotalRows++
		progress.Increment()

		payment, ok := pp.parseRow(row, line, stats)
		if !ok {
			continue
		}

		payments = append(payments, payment)
		stats.RecordsValid++
	}

	if stats.RecordsValid == 0 {
		return nil, stats, errors.ParseError(
			errors.CodeNoValidRecords, filePath, line, "", "", nil,
		).WithContext("skipped_rows", stats.SkippedRows)
	}

	pp.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"stats":     stats.String(),
	}).Info("Finished payment parsing")

	return payments, stats, nil
}

func (pp *PaymentParser) parseRow(row []string, line int, stats *ParseStats) (*models.PaymentFact, bool) {
	if len(row) < pp.layout.MinRowColumns {
		stats.Skip(Diagnostic{
			Line:     line,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("short row: %d columns, need %d", len(row), pp.layout.MinRowColumns),
		})
		return nil, false
	}

	rawDate := Cell(row, pp.layout.DateCol)
	paymentDate, ok := normalize.ParseDate(rawDate)
	if !ok {
		stats.Skip(Diagnostic{
			Line:     line,
			Severity: SeverityWarning,
			Field:    "payment_date",
			Value:    rawDate,
			Message:  "payment date missing or unparseable",
		})
		return nil, false
	}

	rawAmount := Cell(row, pp.layout.AmountCol)
	amount, clean := normalize.ParseAmount(rawAmount)
	if !clean {
		stats.AddDiagnostic(Diagnostic{
			Line:     line,
			Severity: SeverityWarning,
			Field:    "amount",
			Value:    rawAmount,
			Message:  "malformed amount coerced to zero",
		})
	}
	if !amount.IsPositive() {
		stats.Skip(Diagnostic{
			Line:     line,
			Severity: SeverityWarning,
			Field:    "amount",
			Value:    rawAmount,
			Message:  "payment amount must be positive",
		})
		return nil, false
	}

	payment := &models.PaymentFact{
		PaymentDate:  paymentDate,
		AmountDebit:  amount,
		AmountCredit: decimal.Zero,
		Description:  Cell(row, pp.layout.DescriptionCol),
		District:     Cell(row, pp.layout.DistrictCol),
		PaymentType:  Cell(row, pp.layout.PaymentTypeCol),
	}
	pp.assignIdentifier(payment, Cell(row, pp.layout.IdentifierCol))

	return payment, true
}

// assignIdentifier classifies the payment's cleaned identifier the same way
// the contract parser does, so matching compares like with like.
func (pp *PaymentParser) assignIdentifier(payment *models.PaymentFact, raw string) {
	id := normalize.CleanIdentifier(raw)
	if id == "" {
		return
	}
	if len(id) == 14 {
		payment.NationalID = id
	} else {
		payment.TaxID = id
	}
}
