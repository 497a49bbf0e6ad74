package bench

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sunshine/internal/errs"
	"github.com/roach88/sunshine/internal/store"
)

func writeSuite(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadSuite_YAML(t *testing.T) {
	path := writeSuite(t, "suite.yaml", `
plans:
  - name: by_year
    description: salaries in one year
    query: SELECT COUNT(*) FROM salaries WHERE year = 2019
    indexes:
      - name: idx_salaries_year
        table: salaries
        columns: [year]
    runs_without: 5
    runs_with: 7
`)

	plans, err := LoadSuite(path)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, Plan{
		Name:        "by_year",
		Description: "salaries in one year",
		Query:       "SELECT COUNT(*) FROM salaries WHERE year = 2019",
		Indexes:     []store.Index{{Name: "idx_salaries_year", Table: "salaries", Columns: []string{"year"}}},
		RunsWithout: 5,
		RunsWith:    7,
	}, plans[0])
}

func TestLoadSuite_YAMLUnknownField(t *testing.T) {
	path := writeSuite(t, "suite.yml", `
plans:
  - name: by_year
    query: SELECT 1
    runs: 5
`)

	_, err := LoadSuite(path)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Parse), "got %v", err)
}

func TestLoadSuite_CUE(t *testing.T) {
	path := writeSuite(t, "suite.cue", `
#runs: {
	runs_without: 3
	runs_with:    3
	...
}

plans: [
	#runs & {
		name:  "by_sector"
		query: "SELECT COUNT(*) FROM employers WHERE sector = 'Hospitals'"
		indexes: [{name: "idx_employers_sector", table: "employers", columns: ["sector"]}]
	},
	#runs & {
		name:  "by_title"
		query: "SELECT COUNT(*) FROM individuals WHERE job_title = 'Nurse'"
		indexes: [{name: "idx_individuals_job_title", table: "individuals", columns: ["job_title"]}]
		runs_with: 3
	},
]
`)

	plans, err := LoadSuite(path)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "by_sector", plans[0].Name)
	assert.Equal(t, 3, plans[0].RunsWithout)
	assert.Equal(t, []string{"idx_individuals_job_title"}, plans[1].IndexNames())
}

func TestLoadSuite_CUEConflict(t *testing.T) {
	path := writeSuite(t, "suite.cue", `
#runs: {runs_without: 3, runs_with: 3, ...}
plans: [#runs & {name: "x", query: "SELECT 1", runs_with: 4, indexes: []}]
`)

	_, err := LoadSuite(path)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Parse), "got %v", err)
}

func TestLoadSuite_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		kind    errs.Kind
	}{
		{"unsupported extension", "suite.json", `{}`, errs.Precondition},
		{"no plans", "suite.yaml", "plans: []\n", errs.Precondition},
		{"invalid plan", "suite.yaml", "plans:\n  - name: x\n    query: DROP TABLE salaries\n    runs_without: 1\n    runs_with: 1\n", errs.Precondition},
		{"duplicate plan", "suite.yaml", `
plans:
  - {name: a, query: SELECT 1, runs_without: 1, runs_with: 1, indexes: [{name: i1, table: salaries, columns: [year]}]}
  - {name: a, query: SELECT 2, runs_without: 1, runs_with: 1, indexes: [{name: i2, table: salaries, columns: [year]}]}
`, errs.Precondition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadSuite(writeSuite(t, tt.file, tt.content))
			require.Error(t, err)
			assert.True(t, errs.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestLoadSuite_Missing(t *testing.T) {
	_, err := LoadSuite(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.Precondition))
}
