package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/sunshine/internal/errs"
	"github.com/roach88/sunshine/internal/model"
)

// Counts returns the number of rows in each table.
func (s *Store) Counts(ctx context.Context) (model.Counts, error) {
	var c model.Counts
	err := s.db.GetContext(ctx, &c, `
		SELECT
			(SELECT COUNT(*) FROM employers) AS employers,
			(SELECT COUNT(*) FROM individuals) AS individuals,
			(SELECT COUNT(*) FROM salaries) AS salaries
	`)
	if err != nil {
		return model.Counts{}, Classify("count rows", err)
	}
	return c, nil
}

// Employers returns all employers ordered by id.
// Returns an empty slice (not nil) if there are none.
func (s *Store) Employers(ctx context.Context) ([]model.Employer, error) {
	employers := []model.Employer{}
	err := s.db.SelectContext(ctx, &employers, `
		SELECT employer_id, employer_name, sector
		FROM employers
		ORDER BY employer_id ASC
	`)
	if err != nil {
		return nil, Classify("query employers", err)
	}
	return employers, nil
}

// Individuals returns all individuals ordered by id.
// Returns an empty slice (not nil) if there are none.
func (s *Store) Individuals(ctx context.Context) ([]model.Individual, error) {
	individuals := []model.Individual{}
	err := s.db.SelectContext(ctx, &individuals, `
		SELECT individual_id, last_name, first_name, job_title
		FROM individuals
		ORDER BY individual_id ASC
	`)
	if err != nil {
		return nil, Classify("query individuals", err)
	}
	return individuals, nil
}

// Salaries returns all salary facts in key order.
// Returns an empty slice (not nil) if there are none.
func (s *Store) Salaries(ctx context.Context) ([]model.Salary, error) {
	salaries := []model.Salary{}
	err := s.db.SelectContext(ctx, &salaries, `
		SELECT employer_id, individual_id, year, salary, benefits
		FROM salaries
		ORDER BY employer_id ASC, individual_id ASC, year ASC
	`)
	if err != nil {
		return nil, Classify("query salaries", err)
	}
	return salaries, nil
}

// Salary returns the fact for one (employer, individual, year) key.
// Fails with errs.NotFound if there is none.
func (s *Store) Salary(ctx context.Context, employerID, individualID int64, year int) (model.Salary, error) {
	var sal model.Salary
	err := s.db.GetContext(ctx, &sal, `
		SELECT employer_id, individual_id, year, salary, benefits
		FROM salaries
		WHERE employer_id = ? AND individual_id = ? AND year = ?
	`, employerID, individualID, year)
	if err != nil {
		return model.Salary{}, Classify(fmt.Sprintf("query salary (%d, %d, %d)", employerID, individualID, year), err)
	}
	return sal, nil
}

// DanglingSalaries counts facts whose employer or individual does not exist.
// Always zero while foreign keys are enforced.
func (s *Store) DanglingSalaries(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.GetContext(ctx, &n, `
		SELECT COUNT(*)
		FROM salaries s
		LEFT JOIN employers e ON s.employer_id = e.employer_id
		LEFT JOIN individuals i ON s.individual_id = i.individual_id
		WHERE e.employer_id IS NULL OR i.individual_id IS NULL
	`)
	if err != nil {
		return 0, Classify("count dangling salaries", err)
	}
	return n, nil
}

// Drain runs a read-only query and reads every row without decoding it.
// Returns the number of rows read.
//
// While the query runs, the connection only authorizes reads, so every
// statement of query that would write, change the schema, run a pragma or
// touch transactions fails with errs.Precondition before it executes.
func (s *Store) Drain(ctx context.Context, query string, args ...any) (int64, error) {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return 0, Classify("query", err)
	}
	defer conn.Close()

	if err := setAuthorizer(conn, authorizeReads); err != nil {
		return 0, Classify("query", err)
	}
	defer setAuthorizer(conn, nil)

	return drainRows(ctx, conn, query, args...)
}

func drainRows(ctx context.Context, conn *sqlx.Conn, query string, args ...any) (int64, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, classifyRead("query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return 0, classifyRead("query columns", err)
	}
	raw := make([]sql.RawBytes, len(cols))
	dest := make([]any, len(cols))
	for i := range raw {
		dest[i] = &raw[i]
	}

	var n int64
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return n, classifyRead("scan row", err)
		}
		n++
	}
	if err := rows.Err(); err != nil {
		return n, classifyRead("read rows", err)
	}
	return n, nil
}

// sqliteRecursive is SQLITE_RECURSIVE, which the driver does not export.
const sqliteRecursive = 33

// authorizeReads allows reading tables, calling functions and recursive
// CTEs. Everything else is denied at prepare time.
func authorizeReads(action int, _, _, _ string) int {
	switch action {
	case sqlite3.SQLITE_SELECT, sqlite3.SQLITE_READ, sqlite3.SQLITE_FUNCTION, sqliteRecursive:
		return sqlite3.SQLITE_OK
	}
	return sqlite3.SQLITE_DENY
}

// setAuthorizer installs fn on the connection's driver handle. A nil fn
// removes the authorizer.
func setAuthorizer(conn *sqlx.Conn, fn func(int, string, string, string) int) error {
	return conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		c.RegisterAuthorizer(fn)
		return nil
	})
}

func classifyRead(op string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrAuth {
		return errs.Wrapf(errs.Precondition, err, op, "query must be read-only")
	}
	return Classify(op, err)
}
