// Package parsers turns semi-structured contract and payment exports into
// normalized in-memory records.
//
// The exports are ';'-delimited text (or the same tables saved as .xlsx
// workbooks) with inconsistent formatting: localized status labels, spaces
// inside amounts, dash characters for empty cells and occasional short rows.
// Row-level defects never abort a parse; each skipped or coerced row is
// recorded as a Diagnostic so the ingestion report can show operators what
// was dropped. A file that yields zero valid records is a fatal parse error,
// distinct from a file whose rows were all skipped individually.
//
// Two parser types exist:
//   - ContractParser: installment contracts plus their per-period amounts
//   - PaymentParser: observed payment facts
//
// Column positions are layout-driven (see config.go) because the source
// exports vary between a flat quarterly layout and a wide monthly plan/fact
// layout.
package parsers

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"contract-ledger-service/pkg/errors"
	"contract-ledger-service/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// Severity classifies a row diagnostic. Warnings cover expected-absent data
// (missing mandatory field, short row); errors cover unexpected malformation.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Diagnostic records one skipped or degraded row.
type Diagnostic struct {
	Line     int      `json:"line"`
	Severity Severity `json:"severity"`
	Field    string   `json:"field,omitempty"`
	Value    string   `json:"value,omitempty"`
	Message  string   `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Field != "" {
		return fmt.Sprintf("line %d [%s] %s='%s': %s", d.Line, d.Severity, d.Field, d.Value, d.Message)
	}
	return fmt.Sprintf("line %d [%s]: %s", d.Line, d.Severity, d.Message)
}

// ParseStats holds statistics and diagnostics about a parsing operation.
type ParseStats struct {
	TotalRows    int          `json:"total_rows"`
	RecordsValid int          `json:"records_valid"`
	SkippedRows  int          `json:"skipped_rows"`
	Warnings     int          `json:"warnings"`
	Errors       int          `json:"errors"`
	Diagnostics  []Diagnostic `json:"diagnostics,omitempty"`
}

// NewParseStats creates an empty ParseStats.
func NewParseStats() *ParseStats {
	return &ParseStats{Diagnostics: make([]Diagnostic, 0)}
}

// AddDiagnostic records a row diagnostic and bumps the severity counter.
func (ps *ParseStats) AddDiagnostic(d Diagnostic) {
	ps.Diagnostics = append(ps.Diagnostics, d)
	if d.Severity == SeverityError {
		ps.Errors++
	} else {
		ps.Warnings++
	}
}

// Skip records a skipped row with its diagnostic.
func (ps *ParseStats) Skip(d Diagnostic) {
	ps.SkippedRows++
	ps.AddDiagnostic(d)
}

// HasDiagnostics reports whether any row produced a diagnostic.
func (ps *ParseStats) HasDiagnostics() bool {
	return len(ps.Diagnostics) > 0
}

// Samples returns up to max rendered diagnostics for operator triage.
func (ps *ParseStats) Samples(max int) []string {
	limit := len(ps.Diagnostics)
	if max > 0 && max < limit {
		limit = max
	}
	samples := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		samples = append(samples, ps.Diagnostics[i].String())
	}
	return samples
}

func (ps *ParseStats) String() string {
	return fmt.Sprintf("%d rows, %d valid, %d skipped (%d warnings, %d errors)",
		ps.TotalRows, ps.RecordsValid, ps.SkippedRows, ps.Warnings, ps.Errors)
}

// ParseConfig holds low-level reader configuration shared by both parsers.
type ParseConfig struct {
	Delimiter        rune
	SkipEmptyRows    bool
	ValidateEncoding bool
}

// DefaultParseConfig returns the configuration matching the known exports.
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		Delimiter:        ';',
		SkipEmptyRows:    true,
		ValidateEncoding: true,
	}
}

// RowSource yields raw rows from a delimited file or workbook. Read returns
// io.EOF after the last row.
type RowSource interface {
	Read() ([]string, error)
	Close() error
}

type csvSource struct {
	file   *os.File
	reader *csv.Reader
}

func (s *csvSource) Read() ([]string, error) { return s.reader.Read() }
func (s *csvSource) Close() error            { return s.file.Close() }

type xlsxSource struct {
	file *excelize.File
	rows *excelize.Rows
}

func (s *xlsxSource) Read() ([]string, error) {
	if !s.rows.Next() {
		if err := s.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return s.rows.Columns()
}

func (s *xlsxSource) Close() error {
	s.rows.Close()
	return s.file.Close()
}

// BaseParser provides the row-reading machinery shared by both parsers.
type BaseParser struct {
	config *ParseConfig
	logger logger.Logger
}

// NewBaseParser creates a BaseParser with the given configuration.
func NewBaseParser(config *ParseConfig) *BaseParser {
	if config == nil {
		config = DefaultParseConfig()
	}
	return &BaseParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("base_parser"),
	}
}

// Open opens an export file as a row source, choosing the CSV or workbook
// reader by file extension.
func (bp *BaseParser) Open(filePath string) (RowSource, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext == ".xlsx" || ext == ".xlsm" {
		return bp.openWorkbook(filePath)
	}
	return bp.openCSV(filePath)
}

func (bp *BaseParser) openCSV(filePath string) (RowSource, error) {
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, filePath, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}

	if bp.config.ValidateEncoding {
		if err := bp.validateEncoding(file, filePath); err != nil {
			file.Close()
			return nil, err
		}
		if _, err := file.Seek(0, 0); err != nil {
			file.Close()
			return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
		}
	}

	reader := csv.NewReader(file)
	reader.Comma = bp.config.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // rows vary in width
	reader.LazyQuotes = true

	return &csvSource{file: file, reader: reader}, nil
}

func (bp *BaseParser) openWorkbook(filePath string) (RowSource, error) {
	file, err := excelize.OpenFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, filePath, err)
		}
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		file.Close()
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath,
			fmt.Errorf("workbook has no sheets"))
	}

	rows, err := file.Rows(sheets[0])
	if err != nil {
		file.Close()
		return nil, errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}

	bp.logger.WithFields(logger.Fields{
		"file_path": filePath,
		"sheet":     sheets[0],
	}).Debug("Opened workbook export")

	return &xlsxSource{file: file, rows: rows}, nil
}

// validateEncoding checks the first lines of the file for valid UTF-8.
func (bp *BaseParser) validateEncoding(file *os.File, filePath string) error {
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() && lineNum < 100 {
		lineNum++
		if !utf8.Valid(scanner.Bytes()) {
			return errors.ParseError(
				errors.CodeEncodingError,
				filePath,
				lineNum,
				"encoding",
				"",
				fmt.Errorf("invalid UTF-8 encoding detected"),
			)
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.FileError(errors.CodeFileCorrupted, filePath, err)
	}
	return nil
}

// ReadHeader reads the header row and fails fast when it has fewer columns
// than the layout requires.
func (bp *BaseParser) ReadHeader(source RowSource, filePath string, minColumns int) ([]string, error) {
	header, err := source.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.ParseError(
				errors.CodeShortHeader,
				filePath,
				1,
				"header",
				"",
				fmt.Errorf("file is empty"),
			)
		}
		return nil, errors.ParseError(errors.CodeInvalidFormat, filePath, 1, "header", "", err)
	}

	if len(header) < minColumns {
		return nil, errors.ParseError(
			errors.CodeShortHeader,
			filePath,
			1,
			"header",
			fmt.Sprintf("%d columns", len(header)),
			fmt.Errorf("expected at least %d columns, got %d", minColumns, len(header)),
		)
	}
	return header, nil
}

// IsEmptyRow reports whether all fields in a row are blank.
func IsEmptyRow(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// Cell safely retrieves a trimmed field by index; out-of-range is "".
func Cell(record []string, index int) string {
	if index < 0 || index >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[index])
}
