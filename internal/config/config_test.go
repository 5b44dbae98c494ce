package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "LocalTaxWithheld", cfg.XML.ContainerTag)
	assert.Equal(t, "LocalJurisdiction", cfg.XML.JurisdictionTag)
	assert.Equal(t, "LocalTaxAmount", cfg.XML.AmountTag)
	assert.Empty(t, cfg.XML.Namespace)
	assert.Equal(t, 0, *cfg.Ledger.JurisdictionColumn)
	assert.Equal(t, 2, *cfg.Ledger.FillColumn)
	assert.True(t, *cfg.Ledger.WriteBOM)
	assert.True(t, cfg.Ledger.UseCRLF())
	assert.Equal(t, "-UPDATED", cfg.Output.Suffix)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_OverridesKeepUnsetDefaults(t *testing.T) {
	path := writeConfig(t, `
xml:
  namespace: "urn:payroll"
  container_tag: Withholding
ledger:
  fill_column: 4
  write_bom: false
  line_terminator: lf
  delimiter: pipe
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "urn:payroll", cfg.XML.Namespace)
	assert.Equal(t, "Withholding", cfg.XML.ContainerTag)
	assert.Equal(t, "LocalTaxAmount", cfg.XML.AmountTag)
	assert.Equal(t, 4, *cfg.Ledger.FillColumn)
	assert.Equal(t, 0, *cfg.Ledger.JurisdictionColumn)
	assert.False(t, *cfg.Ledger.WriteBOM)
	assert.False(t, cfg.Ledger.UseCRLF())

	comma, err := cfg.Ledger.Comma()
	require.NoError(t, err)
	assert.Equal(t, '|', comma)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed yaml", "xml: [unterminated"},
		{"same columns", "ledger:\n  fill_column: 0\n"},
		{"negative column", "ledger:\n  jurisdiction_column: -1\n"},
		{"bad terminator", "ledger:\n  line_terminator: cr\n"},
		{"bad delimiter", "ledger:\n  delimiter: \"ab\"\n"},
		{"bad log level", "log_level: chatty\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
