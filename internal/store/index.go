package store

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/sunshine/internal/errs"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Index describes a secondary index.
type Index struct {
	Name    string   `yaml:"name" json:"name"`
	Table   string   `yaml:"table" json:"table"`
	Columns []string `yaml:"columns" json:"columns"`
}

// Validate checks that every name in the index is a plain SQL identifier.
func (i Index) Validate() error {
	if err := ValidateIdentifier(i.Name); err != nil {
		return fmt.Errorf("index name: %w", err)
	}
	if err := ValidateIdentifier(i.Table); err != nil {
		return fmt.Errorf("index %s table: %w", i.Name, err)
	}
	if len(i.Columns) == 0 {
		return fmt.Errorf("index %s: at least one column is required", i.Name)
	}
	for _, col := range i.Columns {
		if err := ValidateIdentifier(col); err != nil {
			return fmt.Errorf("index %s column: %w", i.Name, err)
		}
	}
	return nil
}

// DDL returns the CREATE INDEX statement for the index.
// IF NOT EXISTS makes a retried creation a no-op.
func (i Index) DDL() string {
	cols := make([]string, len(i.Columns))
	for n, col := range i.Columns {
		cols[n] = quoteIdent(col)
	}
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		quoteIdent(i.Name), quoteIdent(i.Table), strings.Join(cols, ", "))
}

// ValidateIdentifier rejects anything that is not a plain SQL identifier.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid identifier %q", name)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// CreateIndex creates the index if it does not exist.
func (s *Store) CreateIndex(ctx context.Context, idx Index) error {
	if err := idx.Validate(); err != nil {
		return errs.Wrap(errs.Schema, "create index", err)
	}
	if _, err := s.db.ExecContext(ctx, idx.DDL()); err != nil {
		return Classify("create index "+idx.Name, err)
	}
	s.log.Debug("index created", "index", idx.Name, "table", idx.Table, "columns", idx.Columns)
	return nil
}

// DropIndex drops the named index. Absence is not an error.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	if err := ValidateIdentifier(name); err != nil {
		return errs.Wrap(errs.Schema, "drop index", err)
	}
	if _, err := s.db.ExecContext(ctx, "DROP INDEX IF EXISTS "+quoteIdent(name)); err != nil {
		return Classify("drop index "+name, err)
	}
	s.log.Debug("index dropped", "index", name)
	return nil
}

// IndexInfo is an index as recorded in sqlite_master.
type IndexInfo struct {
	Name  string `db:"name" json:"name"`
	Table string `db:"tbl_name" json:"table"`
	// SQL is empty for indexes SQLite creates implicitly for UNIQUE and
	// PRIMARY KEY constraints.
	SQL string `db:"sql" json:"sql,omitempty"`
}

// IndexExists reports whether an index with the given name exists.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	query, args, err := sq.Select("COUNT(*)").
		From("sqlite_master").
		Where(sq.Eq{"type": "index", "name": name}).
		ToSql()
	if err != nil {
		return false, err
	}

	var count int
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, Classify("check index "+name, err)
	}
	return count > 0, nil
}

// ListIndexes returns the indexes of table, or of every table if table is
// empty, ordered by name.
func (s *Store) ListIndexes(ctx context.Context, table string) ([]IndexInfo, error) {
	q := sq.Select("name", "tbl_name", "COALESCE(sql, '') AS sql").
		From("sqlite_master").
		Where(sq.Eq{"type": "index"}).
		OrderBy("name")
	if table != "" {
		q = q.Where(sq.Eq{"tbl_name": table})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	indexes := []IndexInfo{}
	if err := s.db.SelectContext(ctx, &indexes, query, args...); err != nil {
		return nil, Classify("list indexes", err)
	}
	return indexes, nil
}
