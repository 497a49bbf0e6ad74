package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/roach88/sunshine/internal/errs"
	"github.com/roach88/sunshine/internal/model"
)

// Source reads records from delimited text.
//
// The first row is a header and is skipped. Every following row must have
// model.FieldCount fields in source order. Input is decoded as UTF-8 unless
// a byte order mark says otherwise; the mark itself is dropped.
type Source struct {
	r          *csv.Reader
	headerSeen bool
}

// NewSource returns a Source reading from r. A zero delimiter means ','.
func NewSource(r io.Reader, delimiter rune) *Source {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	cr := csv.NewReader(decoded)
	if delimiter != 0 {
		cr.Comma = delimiter
	}
	// Field counts are checked per row so the error carries the line.
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	return &Source{r: cr}
}

// Next returns the next data record, or io.EOF when the source is exhausted.
//
// A row with the wrong number of fields fails with errs.Parse wrapping a
// *FieldError; reading can continue past it. Malformed quoting fails with
// errs.Parse without a *FieldError and should end the read.
func (s *Source) Next() (model.Record, error) {
	if !s.headerSeen {
		if _, err := s.r.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return model.Record{}, errs.New(errs.Parse, "read source", "source is empty: missing header row")
			}
			return model.Record{}, s.readError(err)
		}
		s.headerSeen = true
	}

	fields, err := s.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return model.Record{}, io.EOF
		}
		return model.Record{}, s.readError(err)
	}

	line, _ := s.r.FieldPos(0)
	if len(fields) != model.FieldCount {
		return model.Record{}, errs.Wrap(errs.Parse, "read source", &FieldError{
			Line:  line,
			Field: "record",
			Value: fmt.Sprintf("%d fields", len(fields)),
			Err:   fmt.Errorf("want %d fields", model.FieldCount),
		})
	}

	return model.RecordFromFields(line, fields), nil
}

func (s *Source) readError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return errs.Wrap(errs.Parse, "read source", err)
	}
	return errs.Wrap(errs.StorageUnavailable, "read source", err)
}
