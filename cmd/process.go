// =============================================================================
// Local Tax Updater - Process Pipeline
// =============================================================================
//
// This file holds the work done by the root command. It orchestrates the
// whole update.
//
// PROCESSING PIPELINE:
//   1. Apply flag overrides to the configuration
//   2. Derive the output path
//   3. Load the jurisdiction/amount pairs from the XML
//   4. Stream the ledger through the updater
//   5. Print the summary and elapsed time
//   6. Optionally write a summary file
//
// =============================================================================

package cmd

import (
	"fmt"
	"time"

	"github.com/ginjaninja78/local-tax-updater/internal/config"
	"github.com/ginjaninja78/local-tax-updater/internal/csvparser"
	"github.com/ginjaninja78/local-tax-updater/internal/updater"
	"github.com/ginjaninja78/local-tax-updater/internal/xmlloader"
	"github.com/ginjaninja78/local-tax-updater/pkg/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess loads the XML, updates the ledger and reports the result.
//
// PARAMETERS:
//   - cmd: The running command. Console output goes to its stdout.
//   - args: The ledger path and the XML path. Further arguments are ignored.
//   - opts: Flag values, configuration and logger.
func runProcess(cmd *cobra.Command, args []string, opts *rootOptions) error {
	startTime := time.Now()
	out := cmd.OutOrStdout()
	ledgerPath, xmlPath := args[0], args[1]

	// =========================================================================
	// STEP 1: APPLY FLAG OVERRIDES
	// =========================================================================

	cfg := opts.cfg
	if err := applyFlagOverrides(cmd, opts, cfg); err != nil {
		return err
	}

	runID := utils.NewRunID()
	logger := opts.logger.With(zap.String("runID", runID))

	// =========================================================================
	// STEP 2: DERIVE THE OUTPUT PATH
	// =========================================================================

	outputPath := opts.output
	if outputPath == "" {
		outputPath = utils.OutputPath(ledgerPath, cfg.Output.Suffix)
	}
	if updater.DetectFormat(ledgerPath) == updater.FormatXLSX {
		outputPath = updater.WorkbookOutputPath(outputPath)
	}
	if !opts.dryRun && utils.SamePath(outputPath, ledgerPath) {
		return fmt.Errorf("output path %s would overwrite the input ledger", outputPath)
	}
	if !opts.dryRun && utils.FileExists(outputPath) {
		logger.Warn("Replacing existing output file", zap.String("path", outputPath))
	}
	if len(args) > 2 {
		logger.Debug("Ignoring extra arguments", zap.Strings("args", args[2:]))
	}

	csvSettings, err := csvparser.SettingsFromConfig(cfg.Ledger)
	if err != nil {
		return fmt.Errorf("invalid ledger settings: %w", err)
	}

	// =========================================================================
	// STEP 3: LOAD THE XML
	// =========================================================================

	result, err := xmlloader.Load(xmlPath, xmlloader.OptionsFromConfig(cfg.XML, logger))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Found %d %s entries in XML.\n", len(result.Entries), cfg.XML.JurisdictionTag)

	// =========================================================================
	// STEP 4: UPDATE THE LEDGER
	// =========================================================================

	updOpts := updater.DefaultOptions()
	updOpts.JurisdictionColumn = *cfg.Ledger.JurisdictionColumn
	updOpts.FillColumn = *cfg.Ledger.FillColumn
	updOpts.Out = out
	updOpts.Logger = logger

	upd := updater.New(result.Entries, updOpts)

	summary, err := upd.UpdateFile(ledgerPath, outputPath, updater.FileOptions{
		CSV:    csvSettings,
		Sheet:  cfg.Ledger.Sheet,
		DryRun: opts.dryRun,
	})
	if err != nil {
		return err
	}

	summary.RunID = runID
	summary.XMLEntries = len(result.Entries)
	summary.StartTime = startTime
	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 5: PRINT SUMMARY
	// =========================================================================

	fmt.Fprintln(out, "\nProcessing complete.")
	fmt.Fprintf(out, "Total rows processed: %d\n", summary.TotalProcessed)
	fmt.Fprintf(out, "Rows updated: %d\n", summary.Updated)
	if summary.DryRun {
		fmt.Fprintln(out, "Dry run: no output file written.")
	} else {
		fmt.Fprintf(out, "Output file: %s\n", summary.OutputFile)
	}

	logger.Info("Update finished",
		zap.String("input", summary.InputFile),
		zap.String("output", summary.OutputFile),
		zap.Int("xmlEntries", summary.XMLEntries),
		zap.Int("processed", summary.TotalProcessed),
		zap.Int("updated", summary.Updated),
		zap.Int("passedThrough", summary.PassedThrough),
		zap.Int("dropped", summary.Dropped),
		zap.Int("droppedXMLRecords", len(result.Dropped)),
		zap.Duration("elapsed", summary.Elapsed()))

	// =========================================================================
	// STEP 6: SUMMARY FILE
	// =========================================================================

	if opts.summaryLogDir != "" {
		path, err := utils.WriteSummaryLog(*summary, result.Dropped, opts.summaryLogDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Summary written to: %s\n", path)
	}

	fmt.Fprintf(out, "\nExecution time: %.4f seconds\n", time.Since(startTime).Seconds())

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// applyFlagOverrides copies explicitly set flags over the configuration and
// validates the result.
func applyFlagOverrides(cmd *cobra.Command, opts *rootOptions, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("namespace") {
		cfg.XML.Namespace = opts.namespace
	}
	if flags.Changed("jurisdiction-column") {
		column := opts.jurisdictionColumn
		cfg.Ledger.JurisdictionColumn = &column
	}
	if flags.Changed("fill-column") {
		column := opts.fillColumn
		cfg.Ledger.FillColumn = &column
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
