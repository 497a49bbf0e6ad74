package store

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// DumpSchema returns the CREATE statements of every table followed by every
// explicit index, one statement per line, each terminated by a semicolon.
// Implicit indexes (UNIQUE/PRIMARY KEY autoindexes) have no SQL and are
// omitted.
func (s *Store) DumpSchema(ctx context.Context) (string, error) {
	tables, err := s.masterSQL(ctx, "table")
	if err != nil {
		return "", err
	}
	indexes, err := s.masterSQL(ctx, "index")
	if err != nil {
		return "", err
	}

	var out []string
	for _, stmt := range append(tables, indexes...) {
		out = append(out, stmt+";")
	}
	return strings.Join(out, "\n"), nil
}

// masterSQL returns the non-NULL sql column of sqlite_master rows of the
// given type in creation order.
func (s *Store) masterSQL(ctx context.Context, objType string) ([]string, error) {
	query, args, err := sq.Select("sql").
		From("sqlite_master").
		Where(sq.Eq{"type": objType}).
		Where(sq.NotEq{"sql": nil}).
		OrderBy("rowid").
		ToSql()
	if err != nil {
		return nil, err
	}

	stmts := []string{}
	if err := s.db.SelectContext(ctx, &stmts, query, args...); err != nil {
		return nil, Classify("dump "+objType+" schema", err)
	}
	return stmts, nil
}
