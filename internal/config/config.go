// =============================================================================
// Local Tax Updater - Configuration Module
// =============================================================================
//
// This module is responsible for loading the optional YAML configuration file.
// Every setting has a default that reproduces the behavior of the plain
// two-argument invocation, so a configuration file is never required.
//
// CONFIGURATION FILE (example):
//   xml:
//     namespace: "http://www.example.com/payroll"
//     container_tag: LocalTaxWithheld
//     jurisdiction_tag: LocalJurisdiction
//     amount_tag: LocalTaxAmount
//   ledger:
//     jurisdiction_column: 0
//     fill_column: 2
//     delimiter: ","
//     line_terminator: crlf
//     write_bom: true
//     sheet: ""
//   output:
//     suffix: "-UPDATED"
//   log_level: info
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// CONFIGURATION STRUCTURE
// =============================================================================

// Config holds the application configuration.
type Config struct {
	// XML contains settings for reading the withholding XML document.
	XML XMLSettings `yaml:"xml"`

	// Ledger contains settings for reading and writing the ledger.
	Ledger LedgerSettings `yaml:"ledger"`

	// Output contains settings for naming the output file.
	Output OutputSettings `yaml:"output"`

	// LogLevel controls the verbosity of logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`
}

// XMLSettings describes where the jurisdiction/amount pairs live in the XML.
type XMLSettings struct {
	// Namespace is the namespace URI the elements are matched in.
	// Empty means "use the namespace of the root element".
	Namespace string `yaml:"namespace"`

	// ContainerTag is the local name of the element grouping one pair.
	// Default: "LocalTaxWithheld"
	ContainerTag string `yaml:"container_tag"`

	// JurisdictionTag is the local name of the jurisdiction child.
	// Default: "LocalJurisdiction"
	JurisdictionTag string `yaml:"jurisdiction_tag"`

	// AmountTag is the local name of the amount child.
	// Default: "LocalTaxAmount"
	AmountTag string `yaml:"amount_tag"`
}

// LedgerSettings describes the ledger layout and output encoding.
type LedgerSettings struct {
	// JurisdictionColumn is the 0-based column holding the jurisdiction.
	// Default: 0 (Column A)
	JurisdictionColumn *int `yaml:"jurisdiction_column"`

	// FillColumn is the 0-based column holding the tax amount to fill.
	// Default: 2 (Column C)
	FillColumn *int `yaml:"fill_column"`

	// Delimiter is the field separator for CSV ledgers.
	// Common values: "," (comma), "|" (pipe), "\t" (tab)
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// LineTerminator is "crlf" or "lf".
	// Default: "crlf"
	LineTerminator string `yaml:"line_terminator"`

	// WriteBOM controls whether the CSV output starts with a UTF-8 byte-order mark.
	// Default: true
	WriteBOM *bool `yaml:"write_bom"`

	// Sheet is the worksheet to read from XLSX ledgers.
	// Empty means the first sheet.
	Sheet string `yaml:"sheet"`
}

// OutputSettings controls output file naming.
type OutputSettings struct {
	// Suffix is inserted between the input file stem and its extension.
	// Default: "-UPDATED"
	Suffix string `yaml:"suffix"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

const (
	DefaultContainerTag    = "LocalTaxWithheld"
	DefaultJurisdictionTag = "LocalJurisdiction"
	DefaultAmountTag       = "LocalTaxAmount"
	DefaultSuffix          = "-UPDATED"
	DefaultFillColumn      = 2
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// Load loads the configuration from a YAML file.
//
// PARAMETERS:
//   - configPath: The path to the configuration file. An empty path returns
//     the defaults.
//
// RETURNS:
//   - A pointer to the Config struct.
//   - An error if the file cannot be read, parsed or validated.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func applyDefaults(cfg *Config) {
	if cfg.XML.ContainerTag == "" {
		cfg.XML.ContainerTag = DefaultContainerTag
	}
	if cfg.XML.JurisdictionTag == "" {
		cfg.XML.JurisdictionTag = DefaultJurisdictionTag
	}
	if cfg.XML.AmountTag == "" {
		cfg.XML.AmountTag = DefaultAmountTag
	}
	if cfg.Ledger.JurisdictionColumn == nil {
		cfg.Ledger.JurisdictionColumn = intPtr(0)
	}
	if cfg.Ledger.FillColumn == nil {
		cfg.Ledger.FillColumn = intPtr(DefaultFillColumn)
	}
	if cfg.Ledger.Delimiter == "" {
		cfg.Ledger.Delimiter = ","
	}
	if cfg.Ledger.LineTerminator == "" {
		cfg.Ledger.LineTerminator = "crlf"
	}
	if cfg.Ledger.WriteBOM == nil {
		cfg.Ledger.WriteBOM = boolPtr(true)
	}
	if cfg.Output.Suffix == "" {
		cfg.Output.Suffix = DefaultSuffix
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if *c.Ledger.JurisdictionColumn < 0 {
		return fmt.Errorf("ledger.jurisdiction_column must not be negative")
	}
	if *c.Ledger.FillColumn < 0 {
		return fmt.Errorf("ledger.fill_column must not be negative")
	}
	if *c.Ledger.FillColumn == *c.Ledger.JurisdictionColumn {
		return fmt.Errorf("ledger.fill_column and ledger.jurisdiction_column must differ")
	}

	switch strings.ToLower(c.Ledger.LineTerminator) {
	case "crlf", "lf":
	default:
		return fmt.Errorf("ledger.line_terminator must be crlf or lf, got %q", c.Ledger.LineTerminator)
	}

	if _, err := c.Ledger.Comma(); err != nil {
		return err
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", c.LogLevel)
	}

	return nil
}

// Comma resolves the configured delimiter to a single rune.
// Named delimiters are accepted the same way the CSV reader accepts them.
func (l LedgerSettings) Comma() (rune, error) {
	switch l.Delimiter {
	case "", ",", "comma":
		return ',', nil
	case "\\t", "\t", "tab", "TAB":
		return '\t', nil
	case "|", "pipe", "PIPE":
		return '|', nil
	case ";", "semicolon":
		return ';', nil
	}

	runes := []rune(l.Delimiter)
	if len(runes) != 1 || runes[0] == '"' || runes[0] == '\r' || runes[0] == '\n' {
		return 0, fmt.Errorf("ledger.delimiter %q is not a usable single character", l.Delimiter)
	}
	return runes[0], nil
}

// UseCRLF reports whether rows are terminated with \r\n.
func (l LedgerSettings) UseCRLF() bool {
	return strings.ToLower(l.LineTerminator) != "lf"
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
