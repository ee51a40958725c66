package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"contract-ledger-service/cmd/ledger/config"
	"contract-ledger-service/internal/parsers"
	"contract-ledger-service/internal/reconciler"
	"contract-ledger-service/internal/reporter"
	"contract-ledger-service/internal/store"
	"contract-ledger-service/pkg/errors"
	"contract-ledger-service/pkg/logger"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the ingest command
var (
	contractsFile string
	paymentsFile  string
	layoutKind    string
	dsn           string
	outputFormat  string
	outputFile    string
	dryRun        bool
	cronSchedule  string
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest contract and payment exports into the ledger",
	Long: `Ingest parses a contract export (and optionally a payment export),
generates obligation schedules, matches payments to contracts, recalculates
debts, and atomically replaces the stored population.

The previous population stays intact if any stage fails.

Examples:
  # Full reload from a quarterly export plus payments
  ledger ingest --contracts-file contracts.csv --payments-file payments.csv

  # Monthly plan/fact export, report only, nothing persisted
  ledger ingest --contracts-file apz.xlsx --layout wide --dry-run

  # Re-ingest nightly at 02:30
  ledger ingest --contracts-file contracts.csv --schedule "30 2 * * *"`,

	PreRunE: validateIngestFlags,
	RunE:    runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVarP(&contractsFile, "contracts-file", "c", "", "path to contract export file, CSV or XLSX (required)")
	ingestCmd.Flags().StringVarP(&paymentsFile, "payments-file", "p", "", "path to payment export file")
	ingestCmd.Flags().StringVarP(&layoutKind, "layout", "l", "flat", "contract export layout: flat, wide")
	ingestCmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (or LEDGER_DSN env var)")
	ingestCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "report format: console, json")
	ingestCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "report file path (default: stdout)")
	ingestCmd.Flags().BoolVar(&dryRun, "dry-run", false, "run the full pipeline without persisting")
	ingestCmd.Flags().StringVar(&cronSchedule, "schedule", "", "cron expression for periodic re-ingestion")

	ingestCmd.MarkFlagRequired("contracts-file")

	viper.BindPFlag("contracts-file", ingestCmd.Flags().Lookup("contracts-file"))
	viper.BindPFlag("payments-file", ingestCmd.Flags().Lookup("payments-file"))
	viper.BindPFlag("layout", ingestCmd.Flags().Lookup("layout"))
	viper.BindPFlag("dsn", ingestCmd.Flags().Lookup("dsn"))
	viper.BindPFlag("output-format", ingestCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", ingestCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("dry-run", ingestCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("schedule", ingestCmd.Flags().Lookup("schedule"))
}

func validateIngestFlags(cmd *cobra.Command, args []string) error {
	contractsFile = viper.GetString("contracts-file")
	paymentsFile = viper.GetString("payments-file")
	layoutKind = viper.GetString("layout")
	dsn = config.DSN()
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	dryRun = viper.GetBool("dry-run")
	cronSchedule = viper.GetString("schedule")

	if contractsFile == "" {
		return fmt.Errorf("contracts-file is required")
	}
	if err := validateFileExists(contractsFile, "contract export"); err != nil {
		return err
	}
	if paymentsFile != "" {
		if err := validateFileExists(paymentsFile, "payment export"); err != nil {
			return err
		}
	}

	if !dryRun && dsn == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "dsn", "",
			fmt.Errorf("a PostgreSQL DSN is required unless --dry-run is set"))
	}

	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	pipeline, st, err := buildPipeline()
	if err != nil {
		return err
	}
	defer st.Close()

	if cronSchedule == "" {
		return runIngestOnce(pipeline)
	}

	// Periodic mode: run immediately, then on the cron schedule until
	// interrupted.
	if err := runIngestOnce(pipeline); err != nil {
		return err
	}

	log := logger.GetGlobalLogger().WithComponent("scheduler")
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cronSchedule, func() {
		if runErr := runIngestOnce(pipeline); runErr != nil {
			log.WithError(runErr).Error("Scheduled ingestion failed")
		}
	})
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "schedule", cronSchedule, err)
	}

	log.WithField("schedule", cronSchedule).Info("Periodic ingestion started")
	scheduler.Run()
	return nil
}

func buildPipeline() (*reconciler.Pipeline, store.Store, error) {
	contractLayout, err := config.CreateContractLayout(layoutKind)
	if err != nil {
		return nil, nil, err
	}
	paymentLayout, err := config.CreatePaymentLayout()
	if err != nil {
		return nil, nil, err
	}
	parseConfig := config.CreateParseConfig()

	contractParser, err := parsers.NewContractParser(contractLayout, parseConfig)
	if err != nil {
		return nil, nil, err
	}
	paymentParser, err := parsers.NewPaymentParser(paymentLayout, parseConfig)
	if err != nil {
		return nil, nil, err
	}

	var st store.Store
	if dryRun || dsn == "" {
		st = store.NewMemoryStore()
	} else {
		db, err := store.InitDB(dsn, viper.GetBool("verbose"))
		if err != nil {
			return nil, nil, err
		}
		st = store.NewPostgresStore(db)
	}

	return reconciler.NewPipeline(contractParser, paymentParser, st).WithDryRun(dryRun), st, nil
}

func runIngestOnce(pipeline *reconciler.Pipeline) error {
	report, err := pipeline.Run(context.Background(), contractsFile, paymentsFile)
	if err != nil {
		return err
	}
	return writeIngestReport(report)
}

func writeIngestReport(report *reconciler.Report) error {
	reportConfig, err := config.CreateReportConfig(outputFormat)
	if err != nil {
		return err
	}
	generator, err := reporter.NewReportGenerator(reportConfig)
	if err != nil {
		return err
	}

	writer, closeWriter, err := openOutput(outputFile)
	if err != nil {
		return err
	}
	defer closeWriter()

	return generator.WriteIngestReport(report, writer)
}

// openOutput returns the report destination and a close func. An empty path
// means stdout.
func openOutput(path string) (io.Writer, func(), error) {
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot create output file: %w", err)
	}
	return file, func() { file.Close() }, nil
}
