// =============================================================================
// Local Tax Updater - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - xmlloader
//   - updater
//   - cmd
//
// =============================================================================

package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LOOKUP TABLE
// =============================================================================

// JurisdictionAmountMap maps a local jurisdiction identifier to the tax amount
// withheld for it. It is built once by the XML loader and only read afterwards.
type JurisdictionAmountMap map[int64]decimal.Decimal

// Lookup returns the amount for a jurisdiction and whether it was present.
func (m JurisdictionAmountMap) Lookup(jurisdiction int64) (decimal.Decimal, bool) {
	amount, ok := m[jurisdiction]
	return amount, ok
}

// TaxRecord is the raw text pair extracted from one container element of the
// XML source, before it has been parsed.
type TaxRecord struct {
	// Jurisdiction is the text of the jurisdiction child element.
	Jurisdiction string

	// Amount is the text of the tax amount child element.
	Amount string

	// HasJurisdiction and HasAmount report whether the child elements exist.
	HasJurisdiction bool
	HasAmount       bool

	// Index is the 1-based position of the container in document order.
	// Useful for debug logging.
	Index int
}

// =============================================================================
// RUN SUMMARY
// =============================================================================

// Summary holds the counters reported at the end of an update run.
type Summary struct {
	// RunID identifies the run in logs and summary files.
	RunID string

	// InputFile is the ledger that was read.
	InputFile string

	// OutputFile is the ledger that was written. Empty on a dry run.
	OutputFile string

	// XMLEntries is the number of entries in the lookup table.
	XMLEntries int

	// TotalProcessed counts retained rows whose jurisdiction parsed.
	TotalProcessed int

	// Updated counts rows whose amount column was filled.
	Updated int

	// PassedThrough counts retained rows whose jurisdiction did not parse.
	PassedThrough int

	// Dropped counts rows removed because the jurisdiction field was blank.
	Dropped int

	// DryRun is set when no output file was written.
	DryRun bool

	StartTime time.Time
	EndTime   time.Time
}

// Elapsed returns the wall-clock duration of the run.
func (s Summary) Elapsed() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}
