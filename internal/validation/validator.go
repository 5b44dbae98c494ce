// =============================================================================
// Local Tax Updater - Validation Rules
// =============================================================================
//
// This module holds the parse and acceptance rules shared by the XML loader
// and the ledger updater:
//   - Jurisdiction identifiers must be integers (surrounding whitespace ignored)
//   - Tax amounts must be decimal numbers (surrounding whitespace ignored)
//   - An XML record needs both children present and non-empty
//
// ERROR HANDLING:
//   - Record-level failures are returned as *ValidationError values
//   - Callers drop the record and keep going; nothing here is fatal
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ginjaninja78/local-tax-updater/internal/types"
	"github.com/shopspring/decimal"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Rules reported in ValidationError.Rule.
const (
	RuleMissing = "missing"
	RuleEmpty   = "empty"
	RuleInteger = "integer"
	RuleDecimal = "decimal"
)

// Fields reported in ValidationError.Field.
const (
	FieldJurisdiction = "jurisdiction"
	FieldAmount       = "amount"
)

// Sentinel errors for comparison with errors.Is.
var (
	ErrBlank      = errors.New("value is blank")
	ErrNotInteger = errors.New("value is not a valid integer")
	ErrNotDecimal = errors.New("value is not a valid decimal number")

	// ErrOutOfRange marks a well-formed integer that does not fit in 64 bits.
	ErrOutOfRange = errors.New("integer is out of range")
)

// ValidationError describes why a single XML record was dropped.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string

	// Value is the actual value that failed validation.
	Value string

	// Rule is the validation rule that was violated.
	Rule string

	// Message is a human-readable error message.
	Message string

	// RecordIndex is the 1-based position of the container element.
	RecordIndex int
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("Record %d, Field '%s': %s (value: '%s')",
		e.RecordIndex,
		e.Field,
		e.Message,
		e.Value,
	)
}

// =============================================================================
// FIELD PARSERS
// =============================================================================

// IsBlank reports whether a field is empty after trimming whitespace.
func IsBlank(value string) bool {
	return strings.TrimSpace(value) == ""
}

// ParseJurisdiction parses a jurisdiction identifier.
//
// PARAMETERS:
//   - value: The raw field text. Leading and trailing whitespace is ignored.
//
// RETURNS:
//   - The identifier.
//   - ErrBlank or ErrNotInteger (wrapped) when the text is not usable.
//   - ErrOutOfRange (wrapped) when the text is an integer too large for int64.
func ParseJurisdiction(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, ErrBlank
	}

	id, err := strconv.ParseInt(value, 10, 64)
	if errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("%w: %q", ErrOutOfRange, value)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotInteger, value)
	}
	return id, nil
}

// CanonicalInteger renders integer text without sign prefix or leading
// zeros ("+007" becomes "7"). It accepts any size; text that is not a
// number is returned trimmed.
func CanonicalInteger(value string) string {
	value = strings.TrimSpace(value)
	n, err := decimal.NewFromString(value)
	if err != nil {
		return value
	}
	return n.String()
}

// ParseAmount parses a tax amount as an exact decimal.
func ParseAmount(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Decimal{}, ErrBlank
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrNotDecimal, value)
	}
	return amount, nil
}

// FormatAmount renders an amount the way it is written into the ledger.
// Trailing zeros are dropped but one fractional digit is always kept:
// 12.50 becomes "12.5", 40.00 becomes "40.0".
func FormatAmount(amount decimal.Decimal) string {
	if amount.IsInteger() {
		return amount.StringFixed(1)
	}
	return amount.String()
}

// =============================================================================
// RECORD VALIDATION
// =============================================================================

// ValidateRecord applies the acceptance rules to one XML record.
//
// A record is accepted only when both children are present, both have
// non-empty text, the jurisdiction parses as an integer and the amount parses
// as a decimal number.
//
// RETURNS:
//   - The parsed jurisdiction and amount.
//   - A *ValidationError describing the first failed rule, or nil.
func ValidateRecord(record types.TaxRecord) (int64, decimal.Decimal, *ValidationError) {
	newErr := func(field, value, rule, message string) *ValidationError {
		return &ValidationError{
			Field:       field,
			Value:       value,
			Rule:        rule,
			Message:     message,
			RecordIndex: record.Index,
		}
	}

	if !record.HasJurisdiction {
		return 0, decimal.Decimal{}, newErr(FieldJurisdiction, "", RuleMissing, "element is missing")
	}
	if !record.HasAmount {
		return 0, decimal.Decimal{}, newErr(FieldAmount, "", RuleMissing, "element is missing")
	}
	if record.Jurisdiction == "" {
		return 0, decimal.Decimal{}, newErr(FieldJurisdiction, "", RuleEmpty, "element has no text")
	}
	if record.Amount == "" {
		return 0, decimal.Decimal{}, newErr(FieldAmount, "", RuleEmpty, "element has no text")
	}

	jurisdiction, err := ParseJurisdiction(record.Jurisdiction)
	if errors.Is(err, ErrOutOfRange) {
		return 0, decimal.Decimal{}, newErr(FieldJurisdiction, record.Jurisdiction, RuleInteger, ErrOutOfRange.Error())
	}
	if err != nil {
		return 0, decimal.Decimal{}, newErr(FieldJurisdiction, record.Jurisdiction, RuleInteger, ErrNotInteger.Error())
	}

	amount, err := ParseAmount(record.Amount)
	if err != nil {
		return 0, decimal.Decimal{}, newErr(FieldAmount, record.Amount, RuleDecimal, ErrNotDecimal.Error())
	}

	return jurisdiction, amount, nil
}

// =============================================================================
// ERROR REPORTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
//
// PARAMETERS:
//   - errs: The validation errors to format.
//
// RETURNS:
//   - A formatted string containing all errors.
func FormatErrors(errs []*ValidationError) string {
	if len(errs) == 0 {
		return "No dropped records."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("%d record(s) dropped:\n", len(errs)))

	for i, err := range errs {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}
