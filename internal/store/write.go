package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/sunshine/internal/model"
)

// Execer is satisfied by *sql.DB, *sql.Tx, *sqlx.DB and *sqlx.Tx.
// Writes take an Execer so the caller controls the transaction scope.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WriteSalary upserts a salary fact.
// Uses ON CONFLICT(employer_id, individual_id, year) DO UPDATE so a second
// write of the same key replaces salary and benefits (last write wins) and
// never duplicates the row.
//
// Note: both dimension ids must exist (foreign key constraints).
func WriteSalary(ctx context.Context, q Execer, sal model.Salary) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO salaries
		(employer_id, individual_id, year, salary, benefits)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(employer_id, individual_id, year) DO UPDATE SET
			salary = excluded.salary,
			benefits = excluded.benefits
	`,
		sal.EmployerID,
		sal.IndividualID,
		sal.Year,
		sal.Salary,
		sal.Benefits,
	)
	if err != nil {
		return Classify(fmt.Sprintf("write salary (%d, %d, %d)", sal.EmployerID, sal.IndividualID, sal.Year), err)
	}
	return nil
}
