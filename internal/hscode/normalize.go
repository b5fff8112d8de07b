package hscode

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	codePrefix   = regexp.MustCompile(`(?i)^(hs(\s*code)?|c[oó]digo(\s*hs)?|heading|subheading)\s*[:#-]?\s*`)
	codeShape    = regexp.MustCompile(`^[0-9]{2,4}([.\s-]?[0-9]{1,4}){0,4}$`)
	nonDigit     = regexp.MustCompile(`[^0-9]`)
	innerSpacing = regexp.MustCompile(`\s+`)
)

// ErrInvalidCode reports a predicted code that is not a plausible HS code.
var ErrInvalidCode = errors.New("invalid hs code")

const (
	minCodeDigits = 4
	maxCodeDigits = 10
)

// NormalizeCode strips labels and surrounding punctuation from a predicted code
// and checks that what remains is a 4 to 10 digit HS code. The separators the
// model chose are kept, so "8471.30" stays "8471.30".
func NormalizeCode(raw string) (string, error) {
	code := strings.TrimSpace(raw)
	code = codePrefix.ReplaceAllString(code, "")
	code = strings.Trim(code, " \t\"'`.,;:()[]")
	code = innerSpacing.ReplaceAllString(code, " ")
	if code == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidCode)
	}
	if !codeShape.MatchString(code) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCode, raw)
	}
	digits := Digits(code)
	if len(digits) < minCodeDigits || len(digits) > maxCodeDigits {
		return "", fmt.Errorf("%w: %q has %d digits", ErrInvalidCode, raw, len(digits))
	}
	return code, nil
}

// Digits returns only the digits of a code, e.g. "847130" for "8471.30".
func Digits(code string) string {
	return nonDigit.ReplaceAllString(code, "")
}

// Heading returns the four digit heading of a code, or "" if it has fewer digits.
func Heading(code string) string {
	digits := Digits(code)
	if len(digits) < minCodeDigits {
		return ""
	}
	return digits[:minCodeDigits]
}
