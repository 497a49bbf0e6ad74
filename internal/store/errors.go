package store

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/sunshine/internal/errs"
)

// Classify maps a driver error to the errs taxonomy.
//
//   - constraint violations -> errs.Integrity
//   - missing tables, columns, indexes or conflict targets -> errs.Schema
//   - sql.ErrNoRows -> errs.NotFound
//   - anything else -> errs.StorageUnavailable
//
// Errors that already carry a Kind are returned unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var e *errs.Error
	if errors.As(err, &e) {
		return err
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.NotFound, op, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrConstraint:
			if IsUniqueViolation(err) {
				return errs.Wrapf(errs.Integrity, err, op, "duplicate key")
			}
			return errs.Wrap(errs.Integrity, op, err)
		case sqlite3.ErrError:
			if isSchemaMessage(sqliteErr.Error()) {
				return errs.Wrap(errs.Schema, op, err)
			}
		}
	}

	return errs.Wrap(errs.StorageUnavailable, op, err)
}

// IsUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY violation.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

func isSchemaMessage(msg string) bool {
	for _, prefix := range []string{
		"no such table",
		"no such column",
		"no such index",
		"does not match any PRIMARY KEY or UNIQUE constraint",
	} {
		if strings.Contains(msg, prefix) {
			return true
		}
	}
	return false
}
