package sqlguard

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// AllowedSchemas are the only schemas a FROM clause may be qualified with.
var AllowedSchemas = []string{"SNOWFLAKE_SAMPLE_DATA", "INFORMATION_SCHEMA"}

// quoteRunes covers straight quotes and backticks plus the typographic
// variants editors substitute for them.
const quoteRunes = "'\"`‘’“”"

var fromKeyword = regexp.MustCompile(`FROM\s+`)

// fromScanState names the positions of the FROM-target scanner. It rests in
// seekingFrom between targets; the compiled FROM pattern performs that seek,
// and scanFromTarget runs the remaining states over one target.
type fromScanState int

const (
	seekingFrom fromScanState = iota
	inQuote
	afterQuote
	afterQuoteDot
	unquoted
)

// ExtractFromReferences returns the target token of every FROM clause in the
// uppercased query text, quote characters included. Malformed targets are
// returned as scanned rather than rejected; the caller decides what a
// reference means.
func ExtractFromReferences(textUpper string) []string {
	var refs []string
	for _, loc := range fromKeyword.FindAllStringIndex(textUpper, -1) {
		refs = append(refs, scanFromTarget([]rune(textUpper[loc[1]:])))
	}
	return refs
}

// scanFromTarget consumes one table reference. A target opening with a
// closed quote runs inQuote until the matching rune, then afterQuote, where
// a dot continues into afterQuoteDot for the .table suffix. Anything else,
// including a target with an unterminated quote, is consumed as one
// unquoted token up to whitespace, comma or closing parenthesis.
func scanFromTarget(runes []rune) string {
	state := unquoted
	var quote rune
	if len(runes) > 0 && isQuoteRune(runes[0]) && indexRune(runes, 1, runes[0]) >= 0 {
		state = inQuote
		quote = runes[0]
	}

	var ref []rune
	for i := 0; i < len(runes); {
		r := runes[i]
		switch state {
		case inQuote:
			ref = append(ref, r)
			if r == quote && i > 0 {
				state = afterQuote
			}
			i++
		case afterQuote:
			switch {
			case unicode.IsSpace(r):
				i++
			case r == '.':
				state = afterQuoteDot
			default:
				return string(ref)
			}
		case afterQuoteDot, unquoted:
			if isBreakRune(r) {
				return string(ref)
			}
			ref = append(ref, r)
			i++
		}
	}
	return string(ref)
}

// checkSchemaAccess verifies that every schema-qualified FROM reference
// names an allowlisted schema. Bare table names pass; qualification is what
// grants cross-schema reach.
func checkSchemaAccess(textUpper string) error {
	for _, ref := range ExtractFromReferences(textUpper) {
		clean := cleanTableRef(ref)
		if !strings.Contains(clean, ".") {
			continue
		}
		schema := strings.SplitN(clean, ".", 2)[0]
		if !schemaAllowed(schema) {
			return &ValidationError{
				Kind: KindSchemaNotAllowed,
				Message: fmt.Sprintf("Access to schema \"%s\" is not allowed. Only %s are permitted.",
					schema, strings.Join(AllowedSchemas, ", ")),
			}
		}
	}
	return nil
}

// cleanTableRef strips quote runes and all whitespace so the schema
// comparison sees the bare dotted path.
func cleanTableRef(ref string) string {
	var b strings.Builder
	for _, r := range ref {
		if isQuoteRune(r) || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func schemaAllowed(schema string) bool {
	for _, s := range AllowedSchemas {
		if schema == s {
			return true
		}
	}
	return false
}

func isQuoteRune(r rune) bool {
	return strings.ContainsRune(quoteRunes, r)
}

func isBreakRune(r rune) bool {
	return unicode.IsSpace(r) || r == ',' || r == ')'
}

func indexRune(runes []rune, from int, r rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
