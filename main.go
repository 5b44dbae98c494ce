// =============================================================================
// Local Tax Updater - Main Entry Point
// =============================================================================
//
// This is the main entry point for the Local Tax Updater CLI application.
// It initializes the Cobra CLI framework and delegates command execution to
// the cmd package.
//
// USAGE:
//   localtax <ledger.csv|ledger.xlsx> <withholding.xml>  - Fill blank tax amounts
//   localtax version                                      - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : XML loading, ledger I/O and the fill logic
//   - pkg/           : Shared file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/local-tax-updater/cmd"
)

func main() {
	cmd.Execute()
}
