package main

import (
	"os"

	"contract-ledger-service/cmd/ledger/cmd"

	"github.com/joho/godotenv"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	// Local overrides for DSN and log settings; absence is not an error.
	_ = godotenv.Load()

	cmd.SetVersionInfo(version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.NewCLIErrorHandler().HandleError(err))
	}
}
