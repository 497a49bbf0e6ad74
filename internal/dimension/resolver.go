// Package dimension resolves natural keys of dimension rows to their
// surrogate ids, creating rows on first sight.
//
// Resolution is get-or-create backed by the table's UNIQUE constraint:
//
//	INSERT INTO t (k1, k2) VALUES (?, ?) ON CONFLICT (k1, k2) DO NOTHING
//	SELECT id FROM t WHERE k1 = ? AND k2 = ?   -- only if nothing was inserted
//
// A fresh row's id comes from LastInsertId, so the common first-sight case is
// a single round-trip. Keys are compared byte-for-byte.
//
// The sequence assumes a single writer. A concurrent writer deleting the row
// between the two statements surfaces as errs.NotFound; this package does
// not retry.
package dimension

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/sunshine/internal/errs"
	"github.com/roach88/sunshine/internal/model"
	"github.com/roach88/sunshine/internal/store"
)

// Dimension describes a dimension table.
type Dimension struct {
	// Name is used in error messages ("employer").
	Name string

	// Table is the dimension table.
	Table string

	// IDColumn is the autoincrement surrogate key column.
	IDColumn string

	// KeyColumns are the natural key columns, in the order of the UNIQUE
	// constraint.
	KeyColumns []string
}

// Employers is the employers dimension.
var Employers = Dimension{
	Name:       "employer",
	Table:      "employers",
	IDColumn:   "employer_id",
	KeyColumns: []string{"employer_name", "sector"},
}

// Individuals is the individuals dimension.
var Individuals = Dimension{
	Name:       "individual",
	Table:      "individuals",
	IDColumn:   "individual_id",
	KeyColumns: []string{"last_name", "first_name", "job_title"},
}

// statements holds the SQL of one dimension, built once.
type statements struct {
	insert string
	lookup string
}

func (d Dimension) build() (statements, error) {
	if len(d.KeyColumns) == 0 {
		return statements{}, fmt.Errorf("dimension %s: no key columns", d.Name)
	}
	for _, name := range append([]string{d.Table, d.IDColumn}, d.KeyColumns...) {
		if err := store.ValidateIdentifier(name); err != nil {
			return statements{}, fmt.Errorf("dimension %s: %w", d.Name, err)
		}
	}

	// Values are bound at execution; the builder only needs placeholders.
	placeholders := make([]any, len(d.KeyColumns))
	where := sq.And{}
	for _, col := range d.KeyColumns {
		where = append(where, sq.Eq{col: ""})
	}

	insert, _, err := sq.Insert(d.Table).
		Columns(d.KeyColumns...).
		Values(placeholders...).
		Suffix(fmt.Sprintf("ON CONFLICT (%s) DO NOTHING", strings.Join(d.KeyColumns, ", "))).
		ToSql()
	if err != nil {
		return statements{}, fmt.Errorf("dimension %s: build insert: %w", d.Name, err)
	}

	lookup, _, err := sq.Select(d.IDColumn).
		From(d.Table).
		Where(where).
		ToSql()
	if err != nil {
		return statements{}, fmt.Errorf("dimension %s: build lookup: %w", d.Name, err)
	}

	return statements{insert: insert, lookup: lookup}, nil
}

// Resolver maps natural keys to surrogate ids.
type Resolver struct {
	stmts map[string]statements
}

// NewResolver builds a Resolver for the given dimensions.
// With no arguments it serves Employers and Individuals.
func NewResolver(dims ...Dimension) (*Resolver, error) {
	if len(dims) == 0 {
		dims = []Dimension{Employers, Individuals}
	}

	r := &Resolver{stmts: make(map[string]statements, len(dims))}
	for _, d := range dims {
		st, err := d.build()
		if err != nil {
			return nil, err
		}
		r.stmts[d.Table] = st
	}
	return r, nil
}

// Resolve returns the surrogate id for key in dim, inserting a row if none
// exists. key holds one value per dim.KeyColumns entry, in order.
//
// Errors:
//   - errs.Integrity: a constraint other than the natural key UNIQUE failed
//   - errs.NotFound: the lookup after an absorbed conflict found no row
//   - errs.Schema: the table does not exist
//   - errs.StorageUnavailable: any other driver failure
func (r *Resolver) Resolve(ctx context.Context, q store.Execer, dim Dimension, key ...any) (int64, error) {
	op := "resolve " + dim.Name

	st, ok := r.stmts[dim.Table]
	if !ok {
		return 0, errs.Newf(errs.Schema, op, "dimension %s not registered", dim.Table)
	}
	if len(key) != len(dim.KeyColumns) {
		return 0, errs.Newf(errs.Integrity, op, "got %d key values for %d key columns", len(key), len(dim.KeyColumns))
	}

	result, err := q.ExecContext(ctx, st.insert, key...)
	if err != nil {
		return 0, store.Classify(op+": insert", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, store.Classify(op+": rows affected", err)
	}

	if rowsAffected > 0 {
		// New row inserted - the id is known without a lookup.
		id, err := result.LastInsertId()
		if err != nil {
			return 0, store.Classify(op+": last insert id", err)
		}
		return id, nil
	}

	// Conflict absorbed - the row already exists, fetch its id.
	var id int64
	err = q.QueryRowContext(ctx, st.lookup, key...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errs.Wrapf(errs.NotFound, err, op, "no row for key %v after insert", key)
	}
	if err != nil {
		return 0, store.Classify(op+": lookup", err)
	}
	return id, nil
}

// Employer resolves an employer natural key.
func (r *Resolver) Employer(ctx context.Context, q store.Execer, key model.EmployerKey) (int64, error) {
	return r.Resolve(ctx, q, Employers, key.Name, key.Sector)
}

// Individual resolves an individual natural key.
func (r *Resolver) Individual(ctx context.Context, q store.Execer, key model.IndividualKey) (int64, error) {
	return r.Resolve(ctx, q, Individuals, key.LastName, key.FirstName, key.JobTitle)
}
