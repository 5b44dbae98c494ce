// =============================================================================
// Local Tax Updater - XLSX Ledger Module
// =============================================================================
//
// This module lets the updater work on a ledger kept as an Excel workbook
// instead of a CSV export. Rows are read from one worksheet of the input and
// written to a new workbook, so the same fill rules apply to both formats.
//
// WORKBOOK LAYOUT:
//   | Column A     | Column B | Column C   | ...
//   |--------------|----------|------------|
//   | Jurisdiction | (any)    | Tax Amount | ...
//
// LIMITATIONS:
//   - Cell values are read as their formatted text and written back as text
//   - Only the selected worksheet is copied to the output workbook
//   - Styles, formulas and merged cells are not carried over
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// =============================================================================
// READER
// =============================================================================

// Reader streams rows from one worksheet of a workbook.
type Reader struct {
	file      *excelize.File
	rows      *excelize.Rows
	sheet     string
	rowNumber int
}

// NewReader opens a workbook and positions it at the first row of a sheet.
//
// PARAMETERS:
//   - filePath: The path to the XLSX file.
//   - sheet: The worksheet name. Empty selects the first sheet.
//
// RETURNS:
//   - A pointer to the Reader. The caller must Close it.
//   - An error if the file cannot be opened or the sheet does not exist.
func NewReader(filePath, sheet string) (*Reader, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}

	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			f.Close()
			return nil, fmt.Errorf("workbook has no sheets")
		}
	}

	index, err := f.GetSheetIndex(sheet)
	if err != nil || index == -1 {
		f.Close()
		return nil, fmt.Errorf("sheet %q not found in workbook", sheet)
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	return &Reader{
		file:  f,
		rows:  rows,
		sheet: sheet,
	}, nil
}

// Sheet returns the name of the worksheet being read.
func (r *Reader) Sheet() string {
	return r.sheet
}

// Read returns the next row, or io.EOF after the last row.
// Empty rows are returned as empty slices; trailing empty cells are omitted.
func (r *Reader) Read() ([]string, error) {
	if !r.rows.Next() {
		if err := r.rows.Error(); err != nil {
			return nil, fmt.Errorf("error reading row %d: %w", r.rowNumber+1, err)
		}
		return nil, io.EOF
	}

	r.rowNumber++

	columns, err := r.rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", r.rowNumber, err)
	}
	return columns, nil
}

// Close releases the row iterator and the workbook.
func (r *Reader) Close() error {
	rowsErr := r.rows.Close()
	fileErr := r.file.Close()
	if rowsErr != nil {
		return rowsErr
	}
	return fileErr
}

// =============================================================================
// WRITER
// =============================================================================

// Writer streams rows into a new single-sheet workbook.
type Writer struct {
	path   string
	file   *excelize.File
	stream *excelize.StreamWriter
	row    int
	closed bool
}

// NewWriter prepares a new workbook that is saved to filePath on Close.
//
// PARAMETERS:
//   - filePath: Where the workbook is saved.
//   - sheet: The worksheet name to create. Empty keeps the default "Sheet1".
func NewWriter(filePath, sheet string) (*Writer, error) {
	f := excelize.NewFile()

	const defaultSheet = "Sheet1"
	if sheet == "" {
		sheet = defaultSheet
	}
	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to name sheet %q: %w", sheet, err)
		}
	}

	stream, err := f.NewStreamWriter(sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create stream writer: %w", err)
	}

	return &Writer{
		path:   filePath,
		file:   f,
		stream: stream,
	}, nil
}

// Write appends one row as text cells. Empty strings are left as missing cells.
func (w *Writer) Write(row []string) error {
	w.row++

	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", w.row, err)
	}

	values := make([]interface{}, len(row))
	for i, value := range row {
		if value != "" {
			values[i] = value
		}
	}

	if err := w.stream.SetRow(cell, values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", w.row, err)
	}
	return nil
}

// Close flushes the sheet and saves the workbook.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	defer w.file.Close()

	if err := w.stream.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := w.file.SaveAs(w.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}
