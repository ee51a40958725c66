// Package reporter renders ingestion reports and read-side rollups for
// operators.
//
// Supported output formats:
//   - Console: human-readable sections for terminal display
//   - JSON: structured output for programmatic consumption
//   - CSV: tabular output for spreadsheet import (district and overdue
//     tables only)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"contract-ledger-service/internal/aggregate"
	"contract-ledger-service/internal/models"
	"contract-ledger-service/internal/reconciler"

	"github.com/shopspring/decimal"
)

// OutputFormat selects how reports are rendered.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds rendering options.
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	IncludeDiagnostics bool `json:"include_diagnostics"`
	IncludeCharts      bool `json:"include_charts"`

	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns the console defaults.
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:             FormatConsole,
		IncludeDiagnostics: true,
		IncludeCharts:      true,
		CSVDelimiter:       ',',
		CSVHeaders:         true,
	}
}

// Validate checks the configuration.
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// ReportGenerator renders reports in the configured format.
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a generator, falling back to defaults when
// config is nil.
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &ReportGenerator{config: config}, nil
}

// WriteIngestReport renders the outcome of one ingestion batch.
func (rg *ReportGenerator) WriteIngestReport(report *reconciler.Report, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("ingest report cannot be nil")
	}

	if rg.config.Format == FormatJSON {
		return writeJSON(report, writer)
	}

	fmt.Fprintf(writer, "INGESTION REPORT\n")
	fmt.Fprintf(writer, "Batch: %s\n", report.BatchID)
	fmt.Fprintf(writer, "Started: %s\n", report.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(writer, "Duration: %v\n", report.Duration)
	if report.DryRun {
		fmt.Fprintf(writer, "Mode: DRY RUN (nothing persisted)\n")
	}
	fmt.Fprintf(writer, "\n=== COUNTS ===\n")
	fmt.Fprintf(writer, "Contracts ingested:  %d\n", report.ContractsIngested)
	fmt.Fprintf(writer, "Payments ingested:   %d\n", report.PaymentsIngested)
	fmt.Fprintf(writer, "Schedules generated: %d\n", report.SchedulesGenerated)
	fmt.Fprintf(writer, "Payments matched:    %d\n", report.PaymentsMatched)

	if report.ContractStats != nil {
		fmt.Fprintf(writer, "\n=== CONTRACT FILE ===\n%s\n", report.ContractStats.String())
	}
	if report.PaymentStats != nil {
		fmt.Fprintf(writer, "\n=== PAYMENT FILE ===\n%s\n", report.PaymentStats.String())
	}

	if rg.config.IncludeDiagnostics && len(report.DiagnosticSamples) > 0 {
		fmt.Fprintf(writer, "\n=== DIAGNOSTIC SAMPLES ===\n")
		for _, sample := range report.DiagnosticSamples {
			fmt.Fprintf(writer, "  %s\n", sample)
		}
	}

	return nil
}

// PaidTotal is one named window's paid sum.
type PaidTotal struct {
	Period string          `json:"period"`
	Amount decimal.Decimal `json:"amount"`
}

// DashboardReport bundles every read-side rollup into one document.
type DashboardReport struct {
	GeneratedAt     time.Time                    `json:"generated_at"`
	Dashboard       *aggregate.DashboardStats    `json:"dashboard"`
	Districts       []*aggregate.DistrictStats   `json:"districts,omitempty"`
	Monthly         []aggregate.ChartPoint       `json:"monthly,omitempty"`
	Quarterly       []aggregate.ChartPoint       `json:"quarterly,omitempty"`
	Overdue         []*aggregate.OverdueContract `json:"overdue,omitempty"`
	PaidTotals      []PaidTotal                  `json:"paid_totals,omitempty"`
	RecentContracts []*models.Contract           `json:"recent_contracts,omitempty"`
	RecentPayments  []*models.PaymentFact        `json:"recent_payments,omitempty"`
}

// WriteDashboardReport renders the rollup document.
func (rg *ReportGenerator) WriteDashboardReport(report *DashboardReport, writer io.Writer) error {
	if report == nil || report.Dashboard == nil {
		return fmt.Errorf("dashboard report cannot be nil")
	}

	switch rg.config.Format {
	case FormatJSON:
		return writeJSON(report, writer)
	case FormatCSV:
		return rg.writeDashboardCSV(report, writer)
	default:
		return rg.writeDashboardConsole(report, writer)
	}
}

func (rg *ReportGenerator) writeDashboardConsole(report *DashboardReport, writer io.Writer) error {
	d := report.Dashboard

	fmt.Fprintf(writer, "LEDGER DASHBOARD\n")
	fmt.Fprintf(writer, "Generated: %s\n", report.GeneratedAt.Format(time.RFC3339))

	fmt.Fprintf(writer, "\n=== CONTRACTS ===\n")
	fmt.Fprintf(writer, "Total:       %-6d amount=%s\n", d.TotalContracts, d.TotalAmount.StringFixed(2))
	fmt.Fprintf(writer, "Active:      %-6d amount=%s\n", d.ActiveContracts, d.ActiveAmount.StringFixed(2))
	fmt.Fprintf(writer, "Cancelled:   %-6d amount=%s\n", d.CancelledContracts, d.CancelledAmount.StringFixed(2))
	fmt.Fprintf(writer, "Completed:   %-6d amount=%s\n", d.CompletedContracts, d.CompletedAmount.StringFixed(2))
	fmt.Fprintf(writer, "Needs review: %d\n", d.NeedsReview)
	fmt.Fprintf(writer, "Legal entities: %d, individuals: %d\n", d.LegalEntities, d.Individuals)

	fmt.Fprintf(writer, "\n=== FINANCIAL SUMMARY ===\n")
	fmt.Fprintf(writer, "Planned:     %s\n", d.TotalPlanned.StringFixed(2))
	fmt.Fprintf(writer, "Actual:      %s\n", d.TotalActual.StringFixed(2))
	fmt.Fprintf(writer, "Debt:        %s\n", d.TotalDebt.StringFixed(2))
	fmt.Fprintf(writer, "Today's debt: %s\n", d.TodayDebt.StringFixed(2))
	fmt.Fprintf(writer, "Paid contracts: %d, debtors: %d\n", d.PaidContracts, d.Debtors)

	if len(report.PaidTotals) > 0 {
		fmt.Fprintf(writer, "\n=== PAID TOTALS ===\n")
		for _, total := range report.PaidTotals {
			fmt.Fprintf(writer, "%-10s %s\n", total.Period, total.Amount.StringFixed(2))
		}
	}

	if len(report.Districts) > 0 {
		fmt.Fprintf(writer, "\n=== DISTRICTS ===\n")
		for _, row := range report.Districts {
			fmt.Fprintf(writer, "%-24s contracts=%-5d planned=%s actual=%s debt=%s\n",
				row.District, row.Contracts,
				row.TotalPlanned.StringFixed(2), row.TotalActual.StringFixed(2), row.TotalDebt.StringFixed(2))
			fmt.Fprintf(writer, "    status: active=%d/%s cancelled=%d/%s completed=%d/%s\n",
				row.ActiveContracts, row.ActiveAmount.StringFixed(2),
				row.CancelledContracts, row.CancelledAmount.StringFixed(2),
				row.CompletedContracts, row.CompletedAmount.StringFixed(2))
			fmt.Fprintf(writer, "    paid: today=%s week=%s month=%s quarter=%s total=%s\n",
				row.PaidToday.StringFixed(2), row.PaidWeek.StringFixed(2),
				row.PaidMonth.StringFixed(2), row.PaidQuarter.StringFixed(2),
				row.PaidTotal.StringFixed(2))
			for _, bucket := range row.Buckets {
				fmt.Fprintf(writer, "    %-10s planned=%s actual=%s\n",
					bucket.Label, bucket.Planned.StringFixed(2), bucket.Actual.StringFixed(2))
			}
		}
	}

	if rg.config.IncludeCharts && len(report.Monthly) > 0 {
		fmt.Fprintf(writer, "\n=== MONTHLY SERIES ===\n")
		for _, point := range report.Monthly {
			fmt.Fprintf(writer, "%-8s planned=%s actual=%s\n",
				point.Label, point.Planned.StringFixed(2), point.Actual.StringFixed(2))
		}
	}
	if rg.config.IncludeCharts && len(report.Quarterly) > 0 {
		fmt.Fprintf(writer, "\n=== QUARTERLY SERIES ===\n")
		for _, point := range report.Quarterly {
			fmt.Fprintf(writer, "%-8s planned=%s actual=%s\n",
				point.Label, point.Planned.StringFixed(2), point.Actual.StringFixed(2))
		}
	}

	if len(report.Overdue) > 0 {
		fmt.Fprintf(writer, "\n=== OVERDUE CONTRACTS ===\n")
		for _, row := range report.Overdue {
			fmt.Fprintf(writer, "%-16s %-32s %-20s periods=%-3d debt=%s oldest=%s\n",
				row.ContractNumber, row.CompanyName, row.District,
				row.OverduePeriods, row.OverdueDebt.StringFixed(2),
				row.OldestDueDate.Format("2006-01-02"))
		}
	}

	if len(report.RecentContracts) > 0 {
		fmt.Fprintf(writer, "\n=== RECENT CONTRACTS ===\n")
		for _, c := range report.RecentContracts {
			fmt.Fprintf(writer, "%-16s %-32s signed=%s amount=%s\n",
				c.ContractNumber, c.CompanyName,
				c.ContractDate.Format("2006-01-02"), c.ContractAmount.StringFixed(2))
		}
	}
	if len(report.RecentPayments) > 0 {
		fmt.Fprintf(writer, "\n=== RECENT PAYMENTS ===\n")
		for _, p := range report.RecentPayments {
			matched := "unmatched"
			if p.Matched {
				matched = p.ContractNumber
			}
			fmt.Fprintf(writer, "%s %-16s amount=%s contract=%s\n",
				p.PaymentDate.Format("2006-01-02"), p.Identifier(),
				p.AmountDebit.StringFixed(2), matched)
		}
	}

	return nil
}

// writeDashboardCSV renders the district and overdue tables. The summary
// numbers have no tabular shape and stay in the console/JSON formats.
func (rg *ReportGenerator) writeDashboardCSV(report *DashboardReport, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		if err := csvWriter.Write([]string{"Section", "Name", "Contracts", "Planned", "Actual", "Debt"}); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, row := range report.Districts {
		record := []string{
			"District",
			row.District,
			fmt.Sprintf("%d", row.Contracts),
			row.TotalPlanned.StringFixed(2),
			row.TotalActual.StringFixed(2),
			row.TotalDebt.StringFixed(2),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write district record: %w", err)
		}
	}

	for _, row := range report.Overdue {
		record := []string{
			"Overdue",
			row.ContractNumber,
			fmt.Sprintf("%d", row.OverduePeriods),
			"",
			"",
			row.OverdueDebt.StringFixed(2),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write overdue record: %w", err)
		}
	}

	return nil
}

func writeJSON(v interface{}, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
