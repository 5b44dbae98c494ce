// =============================================================================
// Local Tax Updater - File Manager Utility
// =============================================================================
//
// This module provides file helpers for the updater, including:
//   - Output file naming
//   - Run identifiers
//   - Processing summary logs
//
// OUTPUT NAMING:
//   The output ledger sits next to the input and keeps its extension:
//     /data/ledger.csv  ->  /data/ledger-UPDATED.csv
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ginjaninja78/local-tax-updater/internal/types"
	"github.com/ginjaninja78/local-tax-updater/internal/validation"
	"github.com/google/uuid"
)

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// OutputPath derives the output ledger path from the input path.
//
// PARAMETERS:
//   - inputPath: The ledger being updated.
//   - suffix: Inserted between the file stem and the extension.
//
// RETURNS:
//   - The output path in the same directory as the input.
//
// EXAMPLE:
//   OutputPath("in/ledger.csv", "-UPDATED")  ->  "in/ledger-UPDATED.csv"
func OutputPath(inputPath, suffix string) string {
	dir := filepath.Dir(inputPath)
	ext := filepath.Ext(inputPath)
	stem := strings.TrimSuffix(filepath.Base(inputPath), ext)
	return filepath.Join(dir, stem+suffix+ext)
}

// SamePath reports whether two paths name the same file location.
func SamePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

// NewRunID returns a random identifier for one update run.
func NewRunID() string {
	return uuid.New().String()
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// WriteSummaryLog writes a processing summary to a log file.
//
// PARAMETERS:
//   - summary: The counters of the finished run.
//   - dropped: XML records that were left out of the lookup table.
//   - outputDir: The directory to write the summary file. It is created if needed.
//
// RETURNS:
//   - The path to the summary file.
//   - An error if writing fails.
func WriteSummaryLog(summary types.Summary, dropped []*validation.ValidationError, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create summary directory: %w", err)
	}

	stamp := summary.EndTime
	if stamp.IsZero() {
		stamp = time.Now()
	}
	summaryFileName := fmt.Sprintf("processing_summary_%s.txt", stamp.Format("20060102_150405"))
	summaryPath := filepath.Join(outputDir, summaryFileName)

	file, err := os.Create(summaryPath)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	defer file.Close()

	outputFile := summary.OutputFile
	if summary.DryRun {
		outputFile = "(dry run, nothing written)"
	}

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Local Tax Updater - Processing Summary\n"+
		"================================================================================\n\n"+
		"Run Information:\n"+
		"  Run ID:         %s\n"+
		"  Start Time:     %s\n"+
		"  End Time:       %s\n"+
		"  Duration:       %s\n"+
		"  Input File:     %s\n"+
		"  Output File:    %s\n\n"+
		"Statistics:\n"+
		"  XML Entries:         %d\n"+
		"  Rows Processed:      %d\n"+
		"  Rows Updated:        %d\n"+
		"  Rows Passed Through: %d\n"+
		"  Rows Dropped:        %d\n\n",
		summary.RunID,
		summary.StartTime.Format("2006-01-02 15:04:05"),
		summary.EndTime.Format("2006-01-02 15:04:05"),
		summary.Elapsed().String(),
		summary.InputFile,
		outputFile,
		summary.XMLEntries,
		summary.TotalProcessed,
		summary.Updated,
		summary.PassedThrough,
		summary.Dropped)

	writer.WriteString("Dropped XML Records:\n")
	writer.WriteString("--------------------------------------------------------------------------------\n")
	writer.WriteString(validation.FormatErrors(dropped))
	writer.WriteString("\n\n")

	writer.WriteString("================================================================================\n" +
		"End of Summary\n")

	if err := writer.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush summary file: %w", err)
	}

	return summaryPath, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// FileExists checks if a regular file exists.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
