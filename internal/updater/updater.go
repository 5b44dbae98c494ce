// =============================================================================
// Local Tax Updater - Updater Module
// =============================================================================
//
// This module contains the fill logic. It streams the ledger one row at a
// time, consults the jurisdiction lookup table and writes every retained row
// to the output.
//
// ROW RULES:
//   1. Row empty or jurisdiction field blank  -> dropped, not counted
//   2. Jurisdiction not an integer            -> written unchanged, not counted
//   3. Otherwise the row is padded up to the fill column and counted
//      a. Fill field blank and jurisdiction known -> amount written, updated
//      b. Anything else                           -> written unchanged
//
// Integers too large for the lookup table are still integers: they follow
// rule 3 and can never match.
//
// Running the updater over its own output with the same lookup table makes no
// further changes: every row it could fill already has a value.
//
// =============================================================================

package updater

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/ginjaninja78/local-tax-updater/internal/types"
	"github.com/ginjaninja78/local-tax-updater/internal/validation"
	"go.uber.org/zap"
)

// =============================================================================
// ROW SOURCES AND SINKS
// =============================================================================

// RowReader yields ledger rows in file order and io.EOF at the end.
type RowReader interface {
	Read() ([]string, error)
}

// RowWriter receives the rows that are kept.
type RowWriter interface {
	Write(row []string) error
}

// Action is what the updater did with a row.
type Action int

const (
	// ActionDropped means the row had a blank jurisdiction and was removed.
	ActionDropped Action = iota

	// ActionPassedThrough means the jurisdiction did not parse as an integer.
	ActionPassedThrough

	// ActionSkipped means the row was counted but not changed.
	ActionSkipped

	// ActionUpdated means the fill field was written.
	ActionUpdated
)

func (a Action) String() string {
	switch a {
	case ActionDropped:
		return "dropped"
	case ActionPassedThrough:
		return "passed-through"
	case ActionSkipped:
		return "skipped"
	case ActionUpdated:
		return "updated"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// =============================================================================
// UPDATER
// =============================================================================

// Options controls column positions and reporting.
type Options struct {
	// JurisdictionColumn is the 0-based column holding the jurisdiction.
	JurisdictionColumn int

	// FillColumn is the 0-based column holding the amount to fill.
	FillColumn int

	// Out receives the per-row progress lines. Nil discards them.
	Out io.Writer

	// Logger receives debug output. Nil disables it.
	Logger *zap.Logger
}

// DefaultOptions uses column A for the jurisdiction and column C for the amount.
func DefaultOptions() Options {
	return Options{
		JurisdictionColumn: 0,
		FillColumn:         2,
	}
}

// Updater fills blank amount fields from a jurisdiction lookup table.
type Updater struct {
	entries types.JurisdictionAmountMap
	opts    Options
}

// New creates an Updater over a lookup table.
func New(entries types.JurisdictionAmountMap, opts Options) *Updater {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if entries == nil {
		entries = types.JurisdictionAmountMap{}
	}

	return &Updater{
		entries: entries,
		opts:    opts,
	}
}

// ApplyRow applies the row rules to a single row.
//
// RETURNS:
//   - The row to write. It may be the input slice, padded and modified.
//   - The action taken. ActionDropped rows must not be written.
//   - The jurisdiction in canonical integer form, set for ActionSkipped and
//     ActionUpdated.
func (u *Updater) ApplyRow(row []string) ([]string, Action, string) {
	jc := u.opts.JurisdictionColumn
	if len(row) <= jc || validation.IsBlank(row[jc]) {
		return row, ActionDropped, ""
	}

	jurisdiction, err := validation.ParseJurisdiction(row[jc])
	outOfRange := errors.Is(err, validation.ErrOutOfRange)
	if err != nil && !outOfRange {
		return row, ActionPassedThrough, ""
	}

	fc := u.opts.FillColumn
	for len(row) <= fc {
		row = append(row, "")
	}

	if outOfRange {
		return row, ActionSkipped, validation.CanonicalInteger(row[jc])
	}

	label := strconv.FormatInt(jurisdiction, 10)
	if !validation.IsBlank(row[fc]) {
		return row, ActionSkipped, label
	}

	amount, ok := u.entries.Lookup(jurisdiction)
	if !ok {
		return row, ActionSkipped, label
	}

	row[fc] = validation.FormatAmount(amount)
	return row, ActionUpdated, label
}

// Process streams every row from reader to writer and fills the summary counters.
//
// PARAMETERS:
//   - reader: The ledger rows.
//   - writer: Where kept rows go.
//   - summary: Counters are added to it.
//
// RETURNS:
//   - An error if reading or writing fails. Row-level problems never fail.
func (u *Updater) Process(reader RowReader, writer RowWriter, summary *types.Summary) error {
	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		out, action, jurisdiction := u.ApplyRow(row)

		switch action {
		case ActionDropped:
			summary.Dropped++
			continue
		case ActionPassedThrough:
			summary.PassedThrough++
			u.opts.Logger.Debug("Passing row through", zap.String("jurisdiction", row[u.opts.JurisdictionColumn]))
		case ActionUpdated:
			summary.TotalProcessed++
			summary.Updated++
			fmt.Fprintf(u.opts.Out, "Updated %s: %s\n", jurisdiction, out[u.opts.FillColumn])
		case ActionSkipped:
			summary.TotalProcessed++
			fmt.Fprintf(u.opts.Out, "Skipped %s\n", jurisdiction)
		}

		if err := writer.Write(out); err != nil {
			return err
		}
	}
}
