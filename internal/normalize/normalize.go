// Package normalize converts raw CSV cell text into typed values: money,
// calendar dates, tax/personal identifiers and contract statuses.
//
// The functions here never return errors. Source exports are too dirty for
// cell-level failures to abort a parse, so each function coerces malformed
// input to a well-defined zero value and reports whether it had to, letting
// the caller record a warning diagnostic.
package normalize

import (
	"strings"
	"time"
	"unicode"

	"contract-ledger-service/internal/models"

	"github.com/shopspring/decimal"
)

// Tokens that whole-cell mean "zero amount" in the source exports.
var zeroTokens = map[string]bool{
	"":    true,
	"-":   true,
	"–":   true, // en-dash
	"—":   true, // em-dash
	"n/a": true,
	"na":  true,
}

// ParseAmount converts raw cell text into a non-negative decimal amount.
//
// It strips every whitespace variant (regular, non-breaking, thin, narrow
// no-break) used as a thousands separator, converts a decimal comma to a dot,
// drops residual non-numeric characters and clamps negative results to zero.
// Dash characters and N/A tokens are zero. The second return value is false
// when the cell was malformed enough that the result had to be coerced; the
// caller should log a warning but keep the row.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if zeroTokens[strings.ToLower(s)] {
		return decimal.Zero, true
	}

	// Thousands separators: every kind of space the exports use.
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	// Decimal comma. A comma is only a decimal point when it is the sole
	// comma and no dot is present; otherwise every comma is a thousands
	// separator.
	if strings.ContainsRune(s, ',') {
		if strings.ContainsRune(s, '.') || strings.Count(s, ",") > 1 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	}

	clean := make([]rune, 0, len(s))
	sawDot := false
	negative := false
	stripped := false
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
			clean = append(clean, r)
		case r == '.' && !sawDot:
			sawDot = true
			clean = append(clean, r)
		case r == '-' && i == 0:
			negative = true
		default:
			stripped = true
		}
	}

	if len(clean) == 0 || (len(clean) == 1 && clean[0] == '.') {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(string(clean))
	if err != nil {
		return decimal.Zero, false
	}

	if negative {
		// Negative amounts never occur legitimately in these exports; the
		// clamp is reported so the caller records a warning.
		return decimal.Zero, false
	}
	return d, !stripped
}

// noDateSentinel is what the source system writes for "no date".
const noDateSentinel = "00.01.1900"

// ParseDate accepts DD.MM.YYYY or YYYY-MM-DD. The sentinel 00.01.1900, the
// empty string, and anything unparseable (including impossible calendar
// dates) all normalize to "no date", reported by the false return. Absence of
// a date is not an error; the caller decides whether it is fatal for the row.
func ParseDate(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || s == noDateSentinel {
		return time.Time{}, false
	}

	for _, layout := range []string{"02.01.2006", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CleanIdentifier strips every non-digit character from a tax id, national id
// or account identifier. An empty result means "absent", which is distinct
// from an identifier whose digits happen to be zero.
func CleanIdentifier(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Localized status families recognized in the source exports. Matching is
// case-insensitive substring search so spelling variants across export
// versions collapse onto one value.
var statusFamilies = []struct {
	fragment string
	status   models.ContractStatus
}{
	{"амал", models.StatusActive},
	{"бекор", models.StatusCancelled},
	{"якун", models.StatusCompleted},
	{"activ", models.StatusActive},
	{"cancel", models.StatusCancelled},
	{"complet", models.StatusCompleted},
}

// ParseStatus resolves localized status text to the internal enum.
// Unrecognized or empty text defaults to ACTIVE with needsReview=true so the
// fallback path is visible downstream instead of silently reclassifying
// garbage as active contracts.
func ParseStatus(raw string) (models.ContractStatus, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for _, family := range statusFamilies {
		if strings.Contains(s, family.fragment) {
			return family.status, false
		}
	}
	return models.StatusActive, true
}

// ParsePercent parses an advance-percentage cell such as "25%" or "12,5 %".
func ParsePercent(raw string) decimal.Decimal {
	s := strings.ReplaceAll(raw, "%", "")
	d, _ := ParseAmount(s)
	return d
}
