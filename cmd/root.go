// =============================================================================
// Local Tax Updater - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command runs
// the update itself; the only subcommand is 'version'.
//
// COBRA CLI STRUCTURE:
//   rootCmd (localtax <ledger> <xml>)
//   └── versionCmd (localtax version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (e.g., --config, --verbose)
//   2. Loading the optional YAML configuration
//   3. Setting up logging
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ginjaninja78/local-tax-updater/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// COMMAND OPTIONS
// =============================================================================

// rootOptions holds the flag values and the state shared by the commands of
// one invocation.
type rootOptions struct {
	// cfgFile holds the path to the configuration file. Empty uses defaults.
	cfgFile string

	// verbose enables debug logging when set to true.
	verbose bool

	// dryRun runs the update without writing the output ledger.
	dryRun bool

	// output overrides the derived output path.
	output string

	// namespace overrides the namespace detected from the XML root.
	namespace string

	// jurisdictionColumn and fillColumn override the configured column offsets.
	jurisdictionColumn int
	fillColumn         int

	// summaryLogDir, when set, receives a processing summary file.
	summaryLogDir string

	cfg    *config.Config
	logger *zap.Logger
}

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// newRootCmd builds the command tree with fresh flag state.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		// Use is the one-line usage message.
		Use: "localtax <input.csv|input.xlsx> <input.xml>",

		// Short is a short description shown in the 'help' output.
		Short: "Local Tax Updater - Fill blank local tax amounts from a withholding XML",

		// Long is a longer description shown in the 'help <command>' output.
		Long: `Local Tax Updater reads the LocalTaxWithheld records of a payroll XML export
and fills the blank tax amount column of a ledger with the amount withheld for
each local jurisdiction.

The input ledger is never modified. The result is written next to it with an
"-UPDATED" suffix, e.g. ledger.csv -> ledger-UPDATED.csv.

Ledger rules:
  - Rows with a blank first field are dropped
  - Rows whose jurisdiction is not an integer are copied unchanged
  - Amounts already present are never overwritten

Example Usage:
  localtax ledger.csv withholding.xml
  localtax ledger.xlsx withholding.xml --dry-run
  localtax ledger.csv withholding.xml --config ./localtax.yaml -v`,

		// Arguments after the XML path are ignored.
		Args: cobra.MinimumNArgs(2),

		// Errors are printed once by Execute.
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.initialize()
		},

		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},

		RunE: func(cmd *cobra.Command, args []string) error {
			// Arguments are valid from here on; failures are not usage errors.
			cmd.SilenceUsage = true
			return runProcess(cmd, args, opts)
		},
	}

	// ==========================================================================
	// PERSISTENT FLAGS
	// ==========================================================================
	// Persistent flags are available to this command and all subcommands.

	// --config flag: Allows the user to specify a configuration file.
	rootCmd.PersistentFlags().StringVar(
		&opts.cfgFile,
		"config",
		"",
		"Path to a YAML configuration file (defaults are used when omitted)",
	)

	// --verbose flag: Enables debug logging.
	rootCmd.PersistentFlags().BoolVarP(
		&opts.verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)

	// ==========================================================================
	// LOCAL FLAGS
	// ==========================================================================

	rootCmd.Flags().BoolVar(
		&opts.dryRun,
		"dry-run",
		false,
		"Process the ledger and report the changes without writing an output file",
	)

	rootCmd.Flags().StringVarP(
		&opts.output,
		"output",
		"o",
		"",
		"Path of the output ledger (default <input>-UPDATED.<ext>)",
	)

	rootCmd.Flags().StringVar(
		&opts.namespace,
		"namespace",
		"",
		"XML namespace URI to match (default is the namespace of the root element)",
	)

	rootCmd.Flags().IntVar(
		&opts.jurisdictionColumn,
		"jurisdiction-column",
		0,
		"0-based ledger column holding the jurisdiction",
	)

	rootCmd.Flags().IntVar(
		&opts.fillColumn,
		"fill-column",
		config.DefaultFillColumn,
		"0-based ledger column holding the tax amount to fill",
	)

	rootCmd.Flags().StringVar(
		&opts.summaryLogDir,
		"summary-log",
		"",
		"Directory to write a processing summary file to",
	)

	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute builds the command tree and runs it.
// This is called by main.main().
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// initialize loads the configuration and builds the logger.
func (o *rootOptions) initialize() error {
	cfg, err := config.Load(o.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	o.cfg = cfg

	logger, err := newLogger(cfg.LogLevel, o.verbose)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	o.logger = logger

	if o.cfgFile != "" {
		logger.Debug("Loaded configuration", zap.String("path", o.cfgFile))
	}
	return nil
}

// newLogger builds a production logger at the configured level.
// --verbose always selects debug.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()

	if level != "" {
		atomic, err := zap.ParseAtomicLevel(strings.ToLower(level))
		if err != nil {
			return nil, err
		}
		zapCfg.Level = atomic
	}
	if verbose {
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	return zapCfg.Build()
}
