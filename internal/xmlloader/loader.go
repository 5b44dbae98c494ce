// =============================================================================
// Local Tax Updater - XML Loader Module
// =============================================================================
//
// This module reads the withholding XML document and builds the lookup table
// of jurisdiction -> tax amount used by the ledger updater.
//
// XML STRUCTURE:
//   The loader looks for container elements anywhere below the root:
//
//   <Payroll xmlns="http://www.example.com/payroll">   <!-- Root, namespace source -->
//     <Employee>
//       <LocalTaxWithheld>                             <!-- Container element -->
//         <LocalJurisdiction>100</LocalJurisdiction>   <!-- Jurisdiction child -->
//         <LocalTaxAmount>12.50</LocalTaxAmount>       <!-- Amount child -->
//       </LocalTaxWithheld>
//     </Employee>
//   </Payroll>
//
// NAMESPACE HANDLING:
//   - By default the namespace of the root element is used for every match
//   - A root without a namespace matches unqualified tags
//   - An explicit namespace in the options overrides root detection
//
// ERROR HANDLING:
//   - Unreadable or malformed documents are fatal
//   - Individual records that fail validation are dropped and reported
//
// =============================================================================

package xmlloader

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ginjaninja78/local-tax-updater/internal/config"
	"github.com/ginjaninja78/local-tax-updater/internal/types"
	"github.com/ginjaninja78/local-tax-updater/internal/validation"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
)

// Sentinel errors for comparison with errors.Is.
var (
	ErrMalformedXML  = errors.New("malformed XML document")
	ErrEmptyDocument = errors.New("XML document has no root element")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// =============================================================================
// LOADER OPTIONS
// =============================================================================

// Options controls which elements are read from the document.
type Options struct {
	// Namespace is the namespace URI to match. Empty means the root's namespace.
	Namespace string

	// ContainerTag is the local name of the element grouping one pair.
	ContainerTag string

	// JurisdictionTag is the local name of the jurisdiction child.
	JurisdictionTag string

	// AmountTag is the local name of the amount child.
	AmountTag string

	// Logger receives debug output for dropped records.
	Logger *zap.Logger
}

// DefaultOptions returns the options for the standard LocalTaxWithheld layout.
func DefaultOptions() Options {
	return Options{
		ContainerTag:    config.DefaultContainerTag,
		JurisdictionTag: config.DefaultJurisdictionTag,
		AmountTag:       config.DefaultAmountTag,
	}
}

// OptionsFromConfig builds loader options from the application configuration.
func OptionsFromConfig(settings config.XMLSettings, logger *zap.Logger) Options {
	return Options{
		Namespace:       settings.Namespace,
		ContainerTag:    settings.ContainerTag,
		JurisdictionTag: settings.JurisdictionTag,
		AmountTag:       settings.AmountTag,
		Logger:          logger,
	}
}

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result is the outcome of loading one XML document.
type Result struct {
	// Entries is the jurisdiction -> amount lookup table.
	Entries types.JurisdictionAmountMap

	// Namespace is the namespace the elements were matched in.
	Namespace string

	// Containers is the number of container elements found.
	Containers int

	// Dropped lists the containers that failed validation.
	Dropped []*validation.ValidationError
}

// =============================================================================
// ELEMENT TREE
// =============================================================================

// XMLElement is a generic element decoded from the document.
type XMLElement struct {
	XMLName  xml.Name
	Value    string       `xml:",chardata"`
	Children []XMLElement `xml:",any"`
}

// child returns the first direct child with the given name.
func (e *XMLElement) child(space, local string) *XMLElement {
	for i := range e.Children {
		if e.Children[i].XMLName.Local == local && e.Children[i].XMLName.Space == space {
			return &e.Children[i]
		}
	}
	return nil
}

// record extracts the raw jurisdiction/amount pair from a container.
func (e *XMLElement) record(opts Options, space string, index int) types.TaxRecord {
	rec := types.TaxRecord{Index: index}

	if lj := e.child(space, opts.JurisdictionTag); lj != nil {
		rec.HasJurisdiction = true
		rec.Jurisdiction = lj.Value
	}
	if amt := e.child(space, opts.AmountTag); amt != nil {
		rec.HasAmount = true
		rec.Amount = amt.Value
	}

	return rec
}

// =============================================================================
// LOADING FUNCTIONS
// =============================================================================

// Load reads an XML file and builds the lookup table.
//
// PARAMETERS:
//   - xmlPath: The path to the XML document.
//   - opts: The element names and namespace to match.
//
// RETURNS:
//   - The loaded Result.
//   - An error if the file cannot be opened or is not well-formed XML.
func Load(xmlPath string, opts Options) (*Result, error) {
	file, err := os.Open(xmlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XML file: %w", err)
	}
	defer file.Close()

	result, err := Decode(file, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", xmlPath, err)
	}

	return result, nil
}

// Decode builds the lookup table from an XML stream.
//
// The whole document is read so that well-formedness errors anywhere in it
// abort the load, matching a full-document parse.
func Decode(r io.Reader, opts Options) (*Result, error) {
	opts = withDefaults(opts)

	decoder := xml.NewDecoder(skipBOM(r))
	decoder.CharsetReader = charset.NewReaderLabel

	result := &Result{
		Entries: make(types.JurisdictionAmountMap),
	}

	seenRoot := false
	depth := 0

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedXML, err)
		}

		switch t := token.(type) {
		case xml.EndElement:
			depth--
			continue
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return nil, fmt.Errorf("%w: text outside the root element", ErrMalformedXML)
			}
		case xml.StartElement:
			if depth == 0 {
				if seenRoot {
					return nil, fmt.Errorf("%w: more than one root element", ErrMalformedXML)
				}
				seenRoot = true
				result.Namespace = opts.Namespace
				if result.Namespace == "" {
					result.Namespace = t.Name.Space
				}
				depth++
				continue
			}

			if t.Name.Local != opts.ContainerTag || t.Name.Space != result.Namespace {
				depth++
				continue
			}

			// DecodeElement consumes the matching end tag, so depth is unchanged.
			var element XMLElement
			if err := decoder.DecodeElement(&element, &t); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrMalformedXML, err)
			}

			result.Containers++
			result.add(element.record(opts, result.Namespace, result.Containers), opts.Logger)
		}
	}

	if !seenRoot {
		return nil, ErrEmptyDocument
	}

	return result, nil
}

// add validates a record and stores it. Later records overwrite earlier ones.
func (r *Result) add(record types.TaxRecord, logger *zap.Logger) {
	jurisdiction, amount, verr := validation.ValidateRecord(record)
	if verr != nil {
		r.Dropped = append(r.Dropped, verr)
		logger.Debug("Dropping XML record",
			zap.Int("record", verr.RecordIndex),
			zap.String("field", verr.Field),
			zap.String("rule", verr.Rule),
			zap.String("value", verr.Value))
		return
	}

	if previous, exists := r.Entries[jurisdiction]; exists {
		logger.Debug("Duplicate jurisdiction, keeping later amount",
			zap.Int64("jurisdiction", jurisdiction),
			zap.String("previous", previous.String()),
			zap.String("amount", amount.String()))
	}

	r.Entries[jurisdiction] = amount
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// withDefaults fills unset element names and the logger.
func withDefaults(opts Options) Options {
	defaults := DefaultOptions()
	if opts.ContainerTag == "" {
		opts.ContainerTag = defaults.ContainerTag
	}
	if opts.JurisdictionTag == "" {
		opts.JurisdictionTag = defaults.JurisdictionTag
	}
	if opts.AmountTag == "" {
		opts.AmountTag = defaults.AmountTag
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return opts
}

// skipBOM drops a leading UTF-8 byte-order mark before decoding.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}
