// Package config assembles parser layouts, store settings and report
// options from flags and environment.
package config

import (
	"fmt"

	"contract-ledger-service/internal/models"
	"contract-ledger-service/internal/parsers"
	"contract-ledger-service/internal/reporter"

	"github.com/spf13/viper"
)

// CreateContractLayout builds the contract column layout for the named
// variant. Individual column indices can be overridden through viper keys
// ("layout.contract_number_col" and friends) when an export shifts columns.
func CreateContractLayout(kind string) (*parsers.ContractLayout, error) {
	var layout *parsers.ContractLayout
	switch parsers.LayoutKind(kind) {
	case parsers.LayoutFlat:
		layout = parsers.DefaultFlatContractLayout()
	case parsers.LayoutWide:
		layout = parsers.DefaultWideContractLayout()
	default:
		return nil, fmt.Errorf("unknown layout %q, valid layouts: flat, wide", kind)
	}

	overrideInt := func(key string, target *int) {
		if viper.IsSet(key) {
			*target = viper.GetInt(key)
		}
	}
	overrideInt("layout.contract_number_col", &layout.ContractNumberCol)
	overrideInt("layout.identifier_col", &layout.IdentifierCol)
	overrideInt("layout.company_name_col", &layout.CompanyNameCol)
	overrideInt("layout.district_col", &layout.DistrictCol)
	overrideInt("layout.status_col", &layout.StatusCol)
	overrideInt("layout.first_year", &layout.FirstYear)

	if viper.IsSet("layout.granularity") {
		layout.Granularity = models.Granularity(viper.GetString("layout.granularity"))
		if !layout.Granularity.IsValid() {
			return nil, fmt.Errorf("unknown granularity %q, valid: QUARTER, MONTH", viper.GetString("layout.granularity"))
		}
	}

	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return layout, nil
}

// CreatePaymentLayout builds the payment column layout, with the same
// viper-level overrides.
func CreatePaymentLayout() (*parsers.PaymentLayout, error) {
	layout := parsers.DefaultPaymentLayout()

	overrideInt := func(key string, target *int) {
		if viper.IsSet(key) {
			*target = viper.GetInt(key)
		}
	}
	overrideInt("payment_layout.date_col", &layout.DateCol)
	overrideInt("payment_layout.identifier_col", &layout.IdentifierCol)
	overrideInt("payment_layout.amount_col", &layout.AmountCol)
	overrideInt("payment_layout.district_col", &layout.DistrictCol)

	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return layout, nil
}

// CreateParseConfig builds the low-level reader configuration.
func CreateParseConfig() *parsers.ParseConfig {
	config := parsers.DefaultParseConfig()
	if viper.IsSet("delimiter") {
		if d := viper.GetString("delimiter"); d != "" {
			config.Delimiter = rune(d[0])
		}
	}
	return config
}

// CreateReportConfig builds reporter options from the output flags.
func CreateReportConfig(format string) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(format)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DSN returns the PostgreSQL connection string, from the --dsn flag or the
// LEDGER_DSN environment variable. Empty means no database is configured.
func DSN() string {
	return viper.GetString("dsn")
}
