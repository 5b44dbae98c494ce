package updater

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/local-tax-updater/internal/csvparser"
	"github.com/ginjaninja78/local-tax-updater/internal/types"
	"github.com/ginjaninja78/local-tax-updater/internal/xlsxparser"
	"go.uber.org/zap"
)

// Format is the on-disk layout of a ledger.
type Format int

const (
	FormatCSV Format = iota
	FormatXLSX
)

func (f Format) String() string {
	if f == FormatXLSX {
		return "xlsx"
	}
	return "csv"
}

// DetectFormat picks the ledger format from the file extension.
// Anything that is not an Excel workbook is treated as CSV.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return FormatCSV
	}
}

// WorkbookOutputPath replaces a macro-enabled .xlsm extension with .xlsx.
// The written workbook never carries macros. Other paths are returned as is.
func WorkbookOutputPath(path string) string {
	ext := filepath.Ext(path)
	if strings.ToLower(ext) != ".xlsm" {
		return path
	}
	return strings.TrimSuffix(path, ext) + ".xlsx"
}

// FileOptions controls how ledger files are opened.
type FileOptions struct {
	// CSV is the dialect for CSV ledgers.
	CSV csvparser.Settings

	// Sheet is the worksheet for XLSX ledgers. Empty selects the first sheet.
	Sheet string

	// DryRun processes every row without creating the output file.
	DryRun bool
}

type rowReadCloser interface {
	RowReader
	Close() error
}

type rowWriteCloser interface {
	RowWriter
	Close() error
}

type discardWriter struct{}

func (discardWriter) Write([]string) error { return nil }
func (discardWriter) Close() error         { return nil }

// UpdateFile runs the updater over a ledger file and writes the result.
//
// PARAMETERS:
//   - inputPath: The ledger to read. It is never modified.
//   - outputPath: The ledger to create. Ignored on a dry run. A workbook
//     output named .xlsm is saved as .xlsx, since macros are not copied.
//   - fopts: Dialect, sheet and dry-run settings.
//
// RETURNS:
//   - The run summary with the row counters filled in.
//   - An error if either file cannot be read or written. A partially written
//     output file is removed.
func (u *Updater) UpdateFile(inputPath, outputPath string, fopts FileOptions) (*types.Summary, error) {
	format := DetectFormat(inputPath)
	if format == FormatXLSX {
		outputPath = WorkbookOutputPath(outputPath)
	}

	summary := &types.Summary{
		InputFile: inputPath,
		DryRun:    fopts.DryRun,
	}
	if !fopts.DryRun {
		summary.OutputFile = outputPath
	}

	reader, sheet, err := openReader(inputPath, format, fopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	defer reader.Close()

	var writer rowWriteCloser = discardWriter{}
	if !fopts.DryRun {
		writer, err = openWriter(outputPath, format, sheet, fopts)
		if err != nil {
			return nil, fmt.Errorf("failed to create output ledger: %w", err)
		}
	}

	u.opts.Logger.Debug("Updating ledger",
		zap.String("input", inputPath),
		zap.String("output", summary.OutputFile),
		zap.Stringer("format", format),
		zap.Int("jurisdictionColumn", u.opts.JurisdictionColumn),
		zap.Int("fillColumn", u.opts.FillColumn))

	if err := u.Process(reader, writer, summary); err != nil {
		writer.Close()
		u.removePartial(fopts, outputPath)
		return nil, fmt.Errorf("failed to update ledger: %w", err)
	}

	if err := writer.Close(); err != nil {
		u.removePartial(fopts, outputPath)
		return nil, fmt.Errorf("failed to write output ledger: %w", err)
	}

	return summary, nil
}

// openReader opens the input ledger and reports the sheet it reads from.
func openReader(path string, format Format, fopts FileOptions) (rowReadCloser, string, error) {
	if format == FormatXLSX {
		reader, err := xlsxparser.NewReader(path, fopts.Sheet)
		if err != nil {
			return nil, "", err
		}
		return reader, reader.Sheet(), nil
	}

	reader, err := csvparser.NewReader(path, fopts.CSV)
	if err != nil {
		return nil, "", err
	}
	return reader, "", nil
}

// openWriter creates the output ledger in the same format as the input.
func openWriter(path string, format Format, sheet string, fopts FileOptions) (rowWriteCloser, error) {
	if format == FormatXLSX {
		return xlsxparser.NewWriter(path, sheet)
	}
	return csvparser.NewWriter(path, fopts.CSV)
}

func (u *Updater) removePartial(fopts FileOptions, outputPath string) {
	if fopts.DryRun {
		return
	}
	if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
		u.opts.Logger.Warn("Failed to remove partial output", zap.String("path", outputPath), zap.Error(err))
	}
}
