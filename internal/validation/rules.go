// Package validation holds the field constraints applied to wizard input.
package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	ErrTooShort = errors.New("too short")
	ErrTooLong  = errors.New("too long")
)

// Error reports which bound a field violated.
type Error struct {
	Field string
	Bound int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s (bound %d)", e.Field, e.Err, e.Bound)
}

func (e *Error) Unwrap() error { return e.Err }

// Rule bounds the length of a field in characters. Max of zero means no
// upper bound.
type Rule struct {
	Field string
	Min   int
	Max   int
}

var (
	Title        = Rule{Field: "title", Min: 3, Max: 100}
	Description  = Rule{Field: "description", Min: 10, Max: 1000}
	LocationText = Rule{Field: "location_text", Min: 5}
)

// Normalize trims surrounding space and composes the text to NFC so that a
// decomposed accent counts as one character.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Length counts characters, not bytes.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

// Check normalizes s and validates it against the rule, returning the
// normalized value.
func (r Rule) Check(s string) (string, error) {
	v := Normalize(s)
	n := Length(v)
	if n < r.Min {
		return v, &Error{Field: r.Field, Bound: r.Min, Err: ErrTooShort}
	}
	if r.Max > 0 && n > r.Max {
		return v, &Error{Field: r.Field, Bound: r.Max, Err: ErrTooLong}
	}
	return v, nil
}

// Truncate shortens s to at most max characters, replacing the tail with
// "..." when it had to cut.
func Truncate(s string, max int) string {
	if Length(s) <= max {
		return s
	}
	runes := []rune(s)
	keep := max - 3
	if keep < 0 {
		keep = 0
	}
	return string(runes[:keep]) + "..."
}
