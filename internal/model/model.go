// Package model defines the domain types shared by the store, the ingestion
// pipeline and the CLI.
//
// The schema is a small star: two dimension tables (employers, individuals)
// deduplicated on their natural keys, and one fact table (salaries) keyed by
// the dimension surrogate ids plus the year.
package model

// FieldCount is the number of fields in a source record.
const FieldCount = 8

// Source field positions, in the fixed order of the delimited source.
const (
	FieldSector = iota
	FieldLastName
	FieldFirstName
	FieldSalary
	FieldBenefits
	FieldEmployerName
	FieldJobTitle
	FieldYear
)

// EmployerKey is the natural key of an employer.
// Keys are compared byte-for-byte; no case or whitespace normalization.
type EmployerKey struct {
	Name   string `db:"employer_name" json:"employer_name"`
	Sector string `db:"sector" json:"sector"`
}

// Employer is a row of the employers dimension table.
type Employer struct {
	ID int64 `db:"employer_id" json:"employer_id"`
	EmployerKey
}

// IndividualKey is the natural key of an individual.
type IndividualKey struct {
	LastName  string `db:"last_name" json:"last_name"`
	FirstName string `db:"first_name" json:"first_name"`
	JobTitle  string `db:"job_title" json:"job_title"`
}

// Individual is a row of the individuals dimension table.
type Individual struct {
	ID int64 `db:"individual_id" json:"individual_id"`
	IndividualKey
}

// Salary is a row of the salaries fact table.
// (EmployerID, IndividualID, Year) is unique; a second write replaces the amounts.
type Salary struct {
	EmployerID   int64   `db:"employer_id" json:"employer_id"`
	IndividualID int64   `db:"individual_id" json:"individual_id"`
	Year         int     `db:"year" json:"year"`
	Salary       float64 `db:"salary" json:"salary"`
	Benefits     float64 `db:"benefits" json:"benefits"`
}

// Record is one raw data row of the source, before any parsing.
type Record struct {
	// Line is the 1-based line of the row in the source (the header is line 1).
	Line int

	Sector       string
	LastName     string
	FirstName    string
	Salary       string
	Benefits     string
	EmployerName string
	JobTitle     string
	Year         string
}

// RecordFromFields builds a Record from fields in source order.
// The caller guarantees len(fields) == FieldCount.
func RecordFromFields(line int, fields []string) Record {
	return Record{
		Line:         line,
		Sector:       fields[FieldSector],
		LastName:     fields[FieldLastName],
		FirstName:    fields[FieldFirstName],
		Salary:       fields[FieldSalary],
		Benefits:     fields[FieldBenefits],
		EmployerName: fields[FieldEmployerName],
		JobTitle:     fields[FieldJobTitle],
		Year:         fields[FieldYear],
	}
}

// Employer returns the employer natural key of the record.
func (r Record) Employer() EmployerKey {
	return EmployerKey{Name: r.EmployerName, Sector: r.Sector}
}

// Individual returns the individual natural key of the record.
func (r Record) Individual() IndividualKey {
	return IndividualKey{LastName: r.LastName, FirstName: r.FirstName, JobTitle: r.JobTitle}
}

// Counts holds the row counts of the three tables.
type Counts struct {
	Employers   int64 `db:"employers" json:"employers"`
	Individuals int64 `db:"individuals" json:"individuals"`
	Salaries    int64 `db:"salaries" json:"salaries"`
}
