package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/sunshine/internal/dimension"
	"github.com/roach88/sunshine/internal/model"
	"github.com/roach88/sunshine/internal/store"
)

// Loader writes one source record into the schema: it resolves both
// dimension ids and upserts the salary fact keyed by them and the year.
type Loader struct {
	resolver *dimension.Resolver
	log      *slog.Logger
}

// NewLoader creates a Loader. A nil logger means slog.Default().
func NewLoader(resolver *dimension.Resolver, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{resolver: resolver, log: log}
}

// LoadRecord parses rec and writes it through q, normally the load
// transaction.
//
// Fields are parsed before any write, so a record rejected with errs.Parse
// leaves no dimension rows behind. Loading the same record twice leaves the
// same state as loading it once.
func (l *Loader) LoadRecord(ctx context.Context, q store.Execer, rec model.Record) error {
	salary, err := parseAmount(rec.Line, "salary", rec.Salary)
	if err != nil {
		return err
	}
	benefits, err := parseAmount(rec.Line, "benefits", rec.Benefits)
	if err != nil {
		return err
	}
	year, err := parseYear(rec.Line, rec.Year)
	if err != nil {
		return err
	}

	employerID, err := l.resolver.Employer(ctx, q, rec.Employer())
	if err != nil {
		return fmt.Errorf("line %d: %w", rec.Line, err)
	}
	individualID, err := l.resolver.Individual(ctx, q, rec.Individual())
	if err != nil {
		return fmt.Errorf("line %d: %w", rec.Line, err)
	}

	fact := model.Salary{
		EmployerID:   employerID,
		IndividualID: individualID,
		Year:         year,
		Salary:       salary,
		Benefits:     benefits,
	}
	if err := store.WriteSalary(ctx, q, fact); err != nil {
		return fmt.Errorf("line %d: %w", rec.Line, err)
	}

	l.log.Debug("record loaded",
		"line", rec.Line,
		"employer_id", employerID,
		"individual_id", individualID,
		"year", year,
	)
	return nil
}
