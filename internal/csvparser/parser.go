// =============================================================================
// Local Tax Updater - CSV Ledger Module
// =============================================================================
//
// This module streams CSV ledgers row by row in both directions:
//   - Reader: optional leading BOM, strict UTF-8, variable field counts,
//     no header row
//   - Writer: same delimiter and quoting rules, optional leading BOM,
//     CRLF or LF row terminators
//
// Fields are returned exactly as they appear in the file. Nothing is trimmed
// or re-encoded, so rows that are passed through are written back unchanged.
// A field that is not valid UTF-8 stops the read with ErrInvalidUTF8.
//
// USAGE:
//   reader, err := NewReader(inputPath, settings)
//   if err != nil {
//       return err
//   }
//   defer reader.Close()
//
//   for {
//       row, err := reader.Read()
//       if err == io.EOF {
//           break
//       }
//       ...
//   }
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/ginjaninja78/local-tax-updater/internal/config"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrInvalidUTF8 is returned when a ledger field is not valid UTF-8.
var ErrInvalidUTF8 = errors.New("ledger is not valid UTF-8")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// SETTINGS
// =============================================================================

// Settings controls the CSV dialect used for reading and writing.
type Settings struct {
	// Comma is the field delimiter.
	Comma rune

	// UseCRLF terminates written rows with \r\n instead of \n.
	UseCRLF bool

	// WriteBOM starts the written file with a UTF-8 byte-order mark.
	WriteBOM bool
}

// DefaultSettings matches a spreadsheet-style CSV export: comma separated,
// CRLF terminated, UTF-8 with a byte-order mark.
func DefaultSettings() Settings {
	return Settings{
		Comma:    ',',
		UseCRLF:  true,
		WriteBOM: true,
	}
}

// SettingsFromConfig builds CSV settings from the ledger configuration.
func SettingsFromConfig(ledger config.LedgerSettings) (Settings, error) {
	comma, err := ledger.Comma()
	if err != nil {
		return Settings{}, err
	}

	writeBOM := true
	if ledger.WriteBOM != nil {
		writeBOM = *ledger.WriteBOM
	}

	return Settings{
		Comma:    comma,
		UseCRLF:  ledger.UseCRLF(),
		WriteBOM: writeBOM,
	}, nil
}

// =============================================================================
// READER
// =============================================================================

// Reader streams rows from a CSV file.
type Reader struct {
	file      *os.File
	reader    *csv.Reader
	rowNumber int
}

// NewReader opens a CSV file for streaming.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV dialect.
//
// RETURNS:
//   - A pointer to the Reader. The caller must Close it.
//   - An error if the file cannot be opened.
func NewReader(filePath string, settings Settings) (*Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return &Reader{
		file:   file,
		reader: newCSVReader(file, settings),
	}, nil
}

// newCSVReader strips a leading BOM and configures the CSV reader.
func newCSVReader(r io.Reader, settings Settings) *csv.Reader {
	reader := csv.NewReader(skipBOM(r))
	configureReader(reader, settings)
	return reader
}

// skipBOM drops a leading UTF-8 byte-order mark. The rest of the stream is
// passed on untouched.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings Settings) {
	if settings.Comma != 0 {
		reader.Comma = settings.Comma
	}

	// Ledger rows do not share a fixed width.
	reader.FieldsPerRecord = -1

	// Allow lazy quotes (quotes that don't follow strict CSV rules).
	reader.LazyQuotes = true
}

// Read returns the next row, or io.EOF when the file is exhausted.
// Blank lines are skipped by the underlying reader.
func (r *Reader) Read() ([]string, error) {
	row, err := r.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", r.rowNumber+1, err)
	}

	r.rowNumber++

	for i, field := range row {
		if !utf8.ValidString(field) {
			return nil, fmt.Errorf("row %d, field %d: %w", r.rowNumber, i+1, ErrInvalidUTF8)
		}
	}
	return row, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// =============================================================================
// WRITER
// =============================================================================

// Writer streams rows to a new CSV file.
type Writer struct {
	file    *os.File
	encoder io.WriteCloser
	writer  *csv.Writer
	closed  bool
}

// NewWriter creates (or truncates) a CSV file for writing.
//
// PARAMETERS:
//   - filePath: The path to the output file.
//   - settings: The CSV dialect.
//
// RETURNS:
//   - A pointer to the Writer. The caller must Close it to flush the output.
//   - An error if the file cannot be created.
func NewWriter(filePath string, settings Settings) (*Writer, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	w := &Writer{file: file}
	w.writer, w.encoder = newCSVWriter(file, settings)
	return w, nil
}

// newCSVWriter builds the encoding chain: csv -> UTF-8 (optional BOM) -> out.
func newCSVWriter(out io.Writer, settings Settings) (*csv.Writer, io.WriteCloser) {
	encoding := unicode.UTF8
	if settings.WriteBOM {
		encoding = unicode.UTF8BOM
	}
	encoder := transform.NewWriter(out, encoding.NewEncoder())

	writer := csv.NewWriter(encoder)
	if settings.Comma != 0 {
		writer.Comma = settings.Comma
	}
	writer.UseCRLF = settings.UseCRLF

	return writer, encoder
}

// Write writes one row.
func (w *Writer) Write(row []string) error {
	if err := w.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	return nil
}

// Close flushes buffered rows and closes the file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	w.writer.Flush()
	flushErr := w.writer.Error()
	encErr := w.encoder.Close()
	closeErr := w.file.Close()

	switch {
	case flushErr != nil:
		return fmt.Errorf("failed to flush output: %w", flushErr)
	case encErr != nil:
		return fmt.Errorf("failed to encode output: %w", encErr)
	case closeErr != nil:
		return fmt.Errorf("failed to close output: %w", closeErr)
	}
	return nil
}
