package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/sunshine/internal/errs"
)

// GroupSeparator is the thousands-grouping character stripped from amounts.
const GroupSeparator = ","

// FieldError describes a source field that could not be parsed.
// It is always wrapped in an errs.Parse error.
type FieldError struct {
	Line  int
	Field string
	Value string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s %q: %v", e.Line, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

func fieldError(line int, field, value string, err error) error {
	return errs.Wrap(errs.Parse, "parse "+field, &FieldError{Line: line, Field: field, Value: value, Err: err})
}

// ParseAmount parses a currency amount such as "1,234,567.89".
// Grouping separators and surrounding whitespace are removed first; what is
// left must be a finite decimal. Fails with errs.Parse.
func ParseAmount(field, raw string) (float64, error) {
	return parseAmount(0, field, raw)
}

func parseAmount(line int, field, raw string) (float64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, GroupSeparator, ""))
	if s == "" {
		return 0, fieldError(line, field, raw, fmt.Errorf("empty amount"))
	}

	d, _, err := apd.NewFromString(s)
	if err != nil {
		return 0, fieldError(line, field, raw, fmt.Errorf("not a decimal number"))
	}
	if d.Form != apd.Finite {
		return 0, fieldError(line, field, raw, fmt.Errorf("amount must be finite"))
	}

	f, err := d.Float64()
	if err != nil {
		return 0, fieldError(line, field, raw, err)
	}
	return f, nil
}

// ParseYear parses a base-10 integer year, ignoring surrounding whitespace.
// Fails with errs.Parse.
func ParseYear(raw string) (int, error) {
	return parseYear(0, raw)
}

func parseYear(line int, raw string) (int, error) {
	s := strings.TrimSpace(raw)
	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, fieldError(line, "year", raw, fmt.Errorf("not an integer"))
	}
	return year, nil
}
