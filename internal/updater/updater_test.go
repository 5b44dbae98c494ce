package updater

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ginjaninja78/local-tax-updater/internal/csvparser"
	"github.com/ginjaninja78/local-tax-updater/internal/types"
	"github.com/ginjaninja78/local-tax-updater/internal/xlsxparser"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sliceReader and sliceWriter keep the row-level tests off the filesystem.
type sliceReader struct {
	rows [][]string
	err  error
}

func (r *sliceReader) Read() ([]string, error) {
	if len(r.rows) == 0 {
		if r.err != nil {
			return nil, r.err
		}
		return nil, io.EOF
	}
	row := r.rows[0]
	r.rows = r.rows[1:]
	return append([]string(nil), row...), nil
}

type sliceWriter struct {
	rows [][]string
}

func (w *sliceWriter) Write(row []string) error {
	w.rows = append(w.rows, row)
	return nil
}

func testEntries() types.JurisdictionAmountMap {
	return types.JurisdictionAmountMap{
		100: decimal.RequireFromString("12.50"),
		300: decimal.RequireFromString("40.00"),
	}
}

func run(t *testing.T, u *Updater, rows [][]string) ([][]string, types.Summary) {
	t.Helper()
	var summary types.Summary
	writer := &sliceWriter{}
	require.NoError(t, u.Process(&sliceReader{rows: rows}, writer, &summary))
	return writer.rows, summary
}

func TestApplyRow(t *testing.T) {
	u := New(testEntries(), DefaultOptions())

	tests := []struct {
		name       string
		row        []string
		wantRow    []string
		wantAction Action
	}{
		{"fills blank amount", []string{"100", "", ""}, []string{"100", "", "12.5"}, ActionUpdated},
		{"fills whitespace amount", []string{" 100 ", "x", "  "}, []string{" 100 ", "x", "12.5"}, ActionUpdated},
		{"pads short row", []string{"300"}, []string{"300", "", "40.0"}, ActionUpdated},
		{"keeps extra columns", []string{"100", "a", "", "d", "e"}, []string{"100", "a", "12.5", "d", "e"}, ActionUpdated},
		{"unknown jurisdiction", []string{"200", "", ""}, []string{"200", "", ""}, ActionSkipped},
		{"unknown jurisdiction padded", []string{"200"}, []string{"200", "", ""}, ActionSkipped},
		{"existing amount kept", []string{"100", "", "9.99"}, []string{"100", "", "9.99"}, ActionSkipped},
		{"integer beyond int64", []string{"99999999999999999999"}, []string{"99999999999999999999", "", ""}, ActionSkipped},
		{"integer beyond int64 keeps amount", []string{"-99999999999999999999", "", "5"}, []string{"-99999999999999999999", "", "5"}, ActionSkipped},
		{"non integer", []string{"abc", "foo", "bar"}, []string{"abc", "foo", "bar"}, ActionPassedThrough},
		{"non integer short row not padded", []string{"Total"}, []string{"Total"}, ActionPassedThrough},
		{"blank jurisdiction", []string{"  ", "x", ""}, []string{"  ", "x", ""}, ActionDropped},
		{"empty row", []string{}, []string{}, ActionDropped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, action, _ := u.ApplyRow(append([]string{}, tt.row...))
			assert.Equal(t, tt.wantAction, action)
			assert.Equal(t, tt.wantRow, got)
		})
	}
}

func TestProcess_Scenarios(t *testing.T) {
	var progress bytes.Buffer
	opts := DefaultOptions()
	opts.Out = &progress
	u := New(testEntries(), opts)

	out, summary := run(t, u, [][]string{
		{"100", "", ""},
		{"200", "", ""},
		{"abc", "foo", "bar"},
		{"", "dropped", ""},
		{"300", "", "1.00"},
	})

	assert.Equal(t, [][]string{
		{"100", "", "12.5"},
		{"200", "", ""},
		{"abc", "foo", "bar"},
		{"300", "", "1.00"},
	}, out)

	assert.Equal(t, 3, summary.TotalProcessed)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.PassedThrough)
	assert.Equal(t, 1, summary.Dropped)

	assert.Equal(t, "Updated 100: 12.5\nSkipped 200\nSkipped 300\n", progress.String())
}

func TestProcess_ReportsCanonicalJurisdiction(t *testing.T) {
	var progress bytes.Buffer
	opts := DefaultOptions()
	opts.Out = &progress
	u := New(testEntries(), opts)

	_, summary := run(t, u, [][]string{
		{" +0100 ", "", ""},
		{"099999999999999999999", "", ""},
	})

	assert.Equal(t, 2, summary.TotalProcessed)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 0, summary.PassedThrough)
	assert.Equal(t, "Updated 100: 12.5\nSkipped 99999999999999999999\n", progress.String())
}

func TestProcess_EmptyLookupTableUpdatesNothing(t *testing.T) {
	u := New(nil, DefaultOptions())

	rows := [][]string{{"100", "", ""}, {"200"}, {"x", "y"}}
	out, summary := run(t, u, rows)

	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, 2, summary.TotalProcessed)
	assert.Equal(t, [][]string{{"100", "", ""}, {"200", "", ""}, {"x", "y"}}, out)
}

func TestProcess_IsIdempotent(t *testing.T) {
	u := New(testEntries(), DefaultOptions())
	rows := [][]string{{"100", "", ""}, {"300"}, {"200", "", ""}, {"abc"}}

	first, summary := run(t, u, rows)
	assert.Equal(t, 2, summary.Updated)

	second, summary := run(t, u, first)
	assert.Equal(t, 0, summary.Updated)
	assert.Equal(t, first, second)
}

func TestProcess_CustomColumns(t *testing.T) {
	u := New(testEntries(), Options{JurisdictionColumn: 1, FillColumn: 4})

	out, summary := run(t, u, [][]string{{"Springfield", "100"}, {"", "300", "", "", "5"}})

	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, [][]string{
		{"Springfield", "100", "", "", "12.5"},
		{"", "300", "", "", "5"},
	}, out)
}

func TestProcess_ReadErrorStops(t *testing.T) {
	boom := errors.New("boom")
	u := New(testEntries(), DefaultOptions())

	var summary types.Summary
	err := u.Process(&sliceReader{rows: [][]string{{"100"}}, err: boom}, &sliceWriter{}, &summary)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, summary.Updated)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestUpdateFile_CSV(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "ledger.csv")
	output := filepath.Join(dir, "ledger-UPDATED.csv")
	original := "\xEF\xBB\xBF100,,\r\n200,,\r\nabc,foo,bar\r\n,skip,\r\n"
	writeFile(t, input, original)

	u := New(testEntries(), DefaultOptions())
	summary, err := u.UpdateFile(input, output, FileOptions{CSV: csvparser.DefaultSettings()})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalProcessed)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, output, summary.OutputFile)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "\xEF\xBB\xBF100,,12.5\r\n200,,\r\nabc,foo,bar\r\n", string(data))

	untouched, err := os.ReadFile(input)
	require.NoError(t, err)
	assert.Equal(t, original, string(untouched))

	// A second pass over the output changes nothing.
	again := filepath.Join(dir, "ledger-UPDATED-UPDATED.csv")
	summary, err = u.UpdateFile(output, again, FileOptions{CSV: csvparser.DefaultSettings()})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Updated)

	againData, err := os.ReadFile(again)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(againData))
}

func TestUpdateFile_DryRunWritesNothing(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "ledger.csv")
	output := filepath.Join(dir, "ledger-UPDATED.csv")
	writeFile(t, input, "100,,\n")

	u := New(testEntries(), DefaultOptions())
	summary, err := u.UpdateFile(input, output, FileOptions{CSV: csvparser.DefaultSettings(), DryRun: true})
	require.NoError(t, err)

	assert.True(t, summary.DryRun)
	assert.Empty(t, summary.OutputFile)
	assert.Equal(t, 1, summary.Updated)
	assert.NoFileExists(t, output)
}

func TestUpdateFile_MissingInput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "out.csv")

	u := New(testEntries(), DefaultOptions())
	_, err := u.UpdateFile(filepath.Join(dir, "missing.csv"), output, FileOptions{CSV: csvparser.DefaultSettings()})
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NoFileExists(t, output)
}

func TestUpdateFile_ReadFailureRemovesPartialOutput(t *testing.T) {
	dir := t.TempDir()
	// Opening a directory succeeds but reading it fails.
	input := filepath.Join(dir, "ledger.csv")
	require.NoError(t, os.Mkdir(input, 0o755))
	output := filepath.Join(dir, "ledger-UPDATED.csv")

	u := New(testEntries(), DefaultOptions())
	_, err := u.UpdateFile(input, output, FileOptions{CSV: csvparser.DefaultSettings()})
	require.Error(t, err)
	assert.NoFileExists(t, output)
}

func TestUpdateFile_InvalidUTF8IsFatal(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "ledger.csv")
	output := filepath.Join(dir, "ledger-UPDATED.csv")
	writeFile(t, input, "abc,Caf\xe9,bar\n100,,\n")

	u := New(testEntries(), DefaultOptions())
	_, err := u.UpdateFile(input, output, FileOptions{CSV: csvparser.DefaultSettings()})
	require.ErrorIs(t, err, csvparser.ErrInvalidUTF8)
	assert.NoFileExists(t, output)
}

func TestUpdateFile_XLSX(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "ledger.xlsx")
	output := filepath.Join(dir, "ledger-UPDATED.xlsx")

	w, err := xlsxparser.NewWriter(input, "Withholding")
	require.NoError(t, err)
	require.NoError(t, w.Write([]string{"100", "Springfield"}))
	require.NoError(t, w.Write([]string{"200", "Shelbyville", ""}))
	require.NoError(t, w.Write([]string{"Total", "", "99"}))
	require.NoError(t, w.Close())

	u := New(testEntries(), DefaultOptions())
	summary, err := u.UpdateFile(input, output, FileOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 2, summary.TotalProcessed)

	reader, err := xlsxparser.NewReader(output, "")
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, "Withholding", reader.Sheet())

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}

	assert.Equal(t, [][]string{
		{"100", "Springfield", "12.5"},
		{"200", "Shelbyville"},
		{"Total", "", "99"},
	}, rows)
}

func TestUpdateFile_MacroWorkbookWritesXLSX(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "ledger.xlsm")
	requested := filepath.Join(dir, "ledger-UPDATED.xlsm")
	written := filepath.Join(dir, "ledger-UPDATED.xlsx")

	w, err := xlsxparser.NewWriter(input, "")
	require.NoError(t, err)
	require.NoError(t, w.Write([]string{"100"}))
	require.NoError(t, w.Close())

	u := New(testEntries(), DefaultOptions())
	summary, err := u.UpdateFile(input, requested, FileOptions{})
	require.NoError(t, err)

	assert.Equal(t, written, summary.OutputFile)
	assert.NoFileExists(t, requested)
	assert.FileExists(t, written)
	assert.Equal(t, 1, summary.Updated)
}

func TestWorkbookOutputPath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "book.xlsx"), WorkbookOutputPath(filepath.Join("a", "book.XLSM")))
	assert.Equal(t, "book.xlsx", WorkbookOutputPath("book.xlsx"))
	assert.Equal(t, "ledger.csv", WorkbookOutputPath("ledger.csv"))
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatXLSX, DetectFormat("a/b/Ledger.XLSX"))
	assert.Equal(t, FormatCSV, DetectFormat("ledger.csv"))
	assert.Equal(t, FormatCSV, DetectFormat("ledger"))
}
