package bench

import (
	"fmt"
	"strings"

	"github.com/roach88/sunshine/internal/errs"
	"github.com/roach88/sunshine/internal/store"
)

// Plan is one latency comparison: a query, the indexes it depends on and
// how many times to run it in each phase.
type Plan struct {
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Query       string        `yaml:"query" json:"query"`
	Indexes     []store.Index `yaml:"indexes" json:"indexes"`
	RunsWithout int           `yaml:"runs_without" json:"runs_without"`
	RunsWith    int           `yaml:"runs_with" json:"runs_with"`
}

// Validate checks that the plan can be run. Whether the query only reads
// is enforced when it runs.
func (p Plan) Validate() error {
	if p.Name == "" {
		return errs.New(errs.Precondition, "validate plan", "name is required")
	}
	if strings.TrimSpace(p.Query) == "" {
		return errs.Newf(errs.Precondition, "validate plan", "plan %s: query is required", p.Name)
	}
	if p.RunsWithout < 1 || p.RunsWith < 1 {
		return errs.Newf(errs.Precondition, "validate plan",
			"plan %s: runs_without and runs_with must be at least 1", p.Name)
	}
	if len(p.Indexes) == 0 {
		return errs.Newf(errs.Precondition, "validate plan", "plan %s: at least one index is required", p.Name)
	}

	seen := make(map[string]bool, len(p.Indexes))
	for _, idx := range p.Indexes {
		if err := idx.Validate(); err != nil {
			return errs.Wrapf(errs.Precondition, err, "validate plan", "plan %s", p.Name)
		}
		if seen[idx.Name] {
			return errs.Newf(errs.Precondition, "validate plan", "plan %s: duplicate index %s", p.Name, idx.Name)
		}
		seen[idx.Name] = true
	}
	return nil
}

// IndexNames returns the names of the plan's indexes in order.
func (p Plan) IndexNames() []string {
	names := make([]string, len(p.Indexes))
	for i, idx := range p.Indexes {
		names[i] = idx.Name
	}
	return names
}

// JoinQuery returns every salary joined with its employer and individual.
const JoinQuery = `SELECT e.employer_name, e.sector, i.last_name, i.first_name, i.job_title, s.year, s.salary, s.benefits
FROM salaries s
JOIN employers e ON e.employer_id = s.employer_id
JOIN individuals i ON i.individual_id = s.individual_id`

// LastNameQuery averages the salaries of everyone named Smith.
const LastNameQuery = `SELECT AVG(s.salary)
FROM salaries s
JOIN individuals i ON i.individual_id = s.individual_id
WHERE i.last_name = 'Smith'`

// Builtin returns the built-in plans.
func Builtin() []Plan {
	return []Plan{
		{
			Name:        "join",
			Description: "three-way join of salaries with both dimensions",
			Query:       JoinQuery,
			Indexes: []store.Index{
				{Name: "idx_salaries_employer_id", Table: "salaries", Columns: []string{"employer_id"}},
				{Name: "idx_salaries_individual_id", Table: "salaries", Columns: []string{"individual_id"}},
			},
			RunsWithout: 10,
			RunsWith:    10,
		},
		{
			Name:        "lastname",
			Description: "average salary filtered by last name",
			Query:       LastNameQuery,
			Indexes: []store.Index{
				{Name: "idx_individuals_last_name", Table: "individuals", Columns: []string{"last_name"}},
			},
			RunsWithout: 15,
			RunsWith:    15,
		},
	}
}

// Select returns the built-in plans matching name, or all of them for
// "all". Fails with errs.Precondition for an unknown name.
func Select(plans []Plan, name string) ([]Plan, error) {
	if name == "" || name == "all" {
		return plans, nil
	}
	for _, p := range plans {
		if p.Name == name {
			return []Plan{p}, nil
		}
	}
	known := make([]string, len(plans))
	for i, p := range plans {
		known[i] = p.Name
	}
	return nil, errs.New(errs.Precondition, "select plan",
		fmt.Sprintf("unknown plan %q (known: %s, all)", name, strings.Join(known, ", ")))
}
