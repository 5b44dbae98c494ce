package csvparser

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ginjaninja78/local-tax-updater/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, path string, settings Settings) [][]string {
	t.Helper()
	reader, err := NewReader(path, settings)
	require.NoError(t, err)
	defer reader.Close()

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
	return rows
}

func TestReader_StripsBOMAndKeepsFieldsVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	content := "\xEF\xBB\xBF100,,\r\n 200 , x ,\"a,b\"\r\n\r\nshort\r\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rows := readAll(t, path, DefaultSettings())

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"100", "", ""}, rows[0])
	assert.Equal(t, []string{" 200 ", " x ", "a,b"}, rows[1])
	assert.Equal(t, []string{"short"}, rows[2])
}

func TestReader_WithoutBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte("1,2,3\n"), 0o644))

	rows := readAll(t, path, DefaultSettings())
	assert.Equal(t, [][]string{{"1", "2", "3"}}, rows)
}

func TestReader_RejectsInvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte("100,,\nabc,Caf\xe9,bar\n"), 0o644))

	reader, err := NewReader(path, DefaultSettings())
	require.NoError(t, err)
	defer reader.Close()

	row, err := reader.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"100", "", ""}, row)

	_, err = reader.Read()
	require.ErrorIs(t, err, ErrInvalidUTF8)
	assert.Contains(t, err.Error(), "row 2, field 2")
}

func TestReader_KeepsNonASCIIText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.csv")
	require.NoError(t, os.WriteFile(path, []byte("\xEF\xBB\xBFabc,Café,bar\n"), 0o644))

	assert.Equal(t, [][]string{{"abc", "Café", "bar"}}, readAll(t, path, DefaultSettings()))
}

func TestReader_MissingFile(t *testing.T) {
	_, err := NewReader(filepath.Join(t.TempDir(), "missing.csv"), DefaultSettings())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriter_DefaultDialect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	writer, err := NewWriter(path, DefaultSettings())
	require.NoError(t, err)
	require.NoError(t, writer.Write([]string{"100", "", "12.5"}))
	require.NoError(t, writer.Write([]string{"abc", "has,comma", "has \"quote\""}))
	require.NoError(t, writer.Close())
	require.NoError(t, writer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\xEF\xBB\xBF100,,12.5\r\nabc,\"has,comma\",\"has \"\"quote\"\"\"\r\n", string(data))
}

func TestWriter_NoBOMAndLF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	writer, err := NewWriter(path, Settings{Comma: '|', UseCRLF: false, WriteBOM: false})
	require.NoError(t, err)
	require.NoError(t, writer.Write([]string{"1", "2", "3"}))
	require.NoError(t, writer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1|2|3\n", string(data))
}

func TestWriter_QuotesLeadingSpace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	writer, err := NewWriter(path, Settings{Comma: ',', WriteBOM: false})
	require.NoError(t, err)
	require.NoError(t, writer.Write([]string{"abc", " foo", "bar "}))
	require.NoError(t, writer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Leading spaces are quoted; the field reads back unchanged.
	assert.Equal(t, "abc,\" foo\",bar \n", string(data))
	assert.Equal(t, [][]string{{"abc", " foo", "bar "}}, readAll(t, path, DefaultSettings()))
}

func TestRoundTripThroughWriterAndReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	rows := [][]string{
		{"100", "Springfield", "12.5"},
		{"note", "multi\nline", ""},
	}

	writer, err := NewWriter(path, DefaultSettings())
	require.NoError(t, err)
	for _, row := range rows {
		require.NoError(t, writer.Write(row))
	}
	require.NoError(t, writer.Close())

	assert.Equal(t, rows, readAll(t, path, DefaultSettings()))
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := config.Default()
	settings, err := SettingsFromConfig(cfg.Ledger)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), settings)

	off := false
	cfg.Ledger.WriteBOM = &off
	cfg.Ledger.LineTerminator = "lf"
	cfg.Ledger.Delimiter = "tab"
	settings, err = SettingsFromConfig(cfg.Ledger)
	require.NoError(t, err)
	assert.Equal(t, Settings{Comma: '\t', UseCRLF: false, WriteBOM: false}, settings)
}
