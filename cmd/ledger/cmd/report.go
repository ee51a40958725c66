package cmd

import (
	"context"
	"fmt"
	"time"

	"contract-ledger-service/cmd/ledger/config"
	"contract-ledger-service/internal/aggregate"
	"contract-ledger-service/internal/reporter"
	"contract-ledger-service/internal/store"
	"contract-ledger-service/pkg/errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the report command
var (
	reportFormat   string
	reportFile     string
	includeCharts  bool
	overdueOnly    bool
	reportDistrict string
	recentCount    int
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report dashboard, district and overdue statistics",
	Long: `Report reads the stored population and renders the dashboard totals,
per-district rollups, chart series and the overdue-contract list.

Examples:
  ledger report
  ledger report --output-format json --output-file dashboard.json
  ledger report --overdue-only
  ledger report --district Yunusobod`,

	PreRunE: validateReportFlags,
	RunE:    runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (or LEDGER_DSN env var)")
	reportCmd.Flags().StringVarP(&reportFormat, "output-format", "f", "console", "output format: console, json, csv")
	reportCmd.Flags().StringVarP(&reportFile, "output-file", "o", "", "output file path (default: stdout)")
	reportCmd.Flags().BoolVar(&includeCharts, "charts", true, "include monthly and quarterly chart series")
	reportCmd.Flags().BoolVar(&overdueOnly, "overdue-only", false, "only render the overdue-contract list")
	reportCmd.Flags().StringVar(&reportDistrict, "district", "", "restrict district rollup to one district")
	reportCmd.Flags().IntVar(&recentCount, "recent", 5, "number of recent contracts and payments to list (0 disables)")

	viper.BindPFlag("dsn", reportCmd.Flags().Lookup("dsn"))
	viper.BindPFlag("report-format", reportCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("report-file", reportCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("charts", reportCmd.Flags().Lookup("charts"))
	viper.BindPFlag("overdue-only", reportCmd.Flags().Lookup("overdue-only"))
	viper.BindPFlag("district", reportCmd.Flags().Lookup("district"))
	viper.BindPFlag("recent", reportCmd.Flags().Lookup("recent"))
}

func validateReportFlags(cmd *cobra.Command, args []string) error {
	dsn = config.DSN()
	reportFormat = viper.GetString("report-format")
	reportFile = viper.GetString("report-file")
	includeCharts = viper.GetBool("charts")
	overdueOnly = viper.GetBool("overdue-only")
	reportDistrict = viper.GetString("district")
	recentCount = viper.GetInt("recent")

	if dsn == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "dsn", "",
			fmt.Errorf("a PostgreSQL DSN is required for reporting"))
	}
	return nil
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	db, err := store.InitDB(dsn, viper.GetBool("verbose"))
	if err != nil {
		return err
	}
	st := store.NewPostgresStore(db)
	defer st.Close()

	contracts, err := st.Contracts(ctx)
	if err != nil {
		return err
	}
	schedules, err := st.Schedules(ctx)
	if err != nil {
		return err
	}

	aggregator := aggregate.New()
	report := &reporter.DashboardReport{
		GeneratedAt: time.Now(),
		Dashboard:   aggregator.Dashboard(contracts, schedules),
		Overdue:     aggregator.OverdueContracts(contracts, schedules),
	}

	if !overdueOnly {
		districts := aggregator.Districts(contracts, schedules, aggregate.DefaultBuckets())
		if reportDistrict != "" {
			filtered := make([]*aggregate.DistrictStats, 0, 1)
			for _, row := range districts {
				if row.District == reportDistrict {
					filtered = append(filtered, row)
				}
			}
			districts = filtered
		}
		report.Districts = districts

		if includeCharts {
			report.Monthly = aggregator.MonthlySeries(schedules)
			report.Quarterly = aggregator.QuarterlySeries(schedules)
		}

		for _, period := range []aggregate.PaidPeriod{
			aggregate.PaidToday, aggregate.PaidWeek, aggregate.PaidMonth,
			aggregate.PaidQuarter, aggregate.PaidYear, aggregate.PaidAll,
		} {
			report.PaidTotals = append(report.PaidTotals, reporter.PaidTotal{
				Period: string(period),
				Amount: aggregator.PaidIn(schedules, period),
			})
		}

		if recentCount > 0 {
			payments, err := st.Payments(ctx)
			if err != nil {
				return err
			}
			report.RecentContracts = aggregator.RecentContracts(contracts, recentCount)
			report.RecentPayments = aggregator.RecentPayments(payments, recentCount)
		}
	}

	reportConfig, err := config.CreateReportConfig(reportFormat)
	if err != nil {
		return err
	}
	reportConfig.IncludeCharts = includeCharts
	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return err
	}

	writer, closeWriter, err := openOutput(reportFile)
	if err != nil {
		return err
	}
	defer closeWriter()

	return generator.WriteDashboardReport(report, writer)
}
