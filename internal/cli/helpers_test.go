package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleCSV = `Sector,Last Name,First Name,Salary Paid,Taxable Benefits,Employer,Job Title,Calendar Year
Universities,Smith,Jane,"104,321.50",512.00,University of Toronto,Professor,2019
Universities,Smith,Jane,"107,000.00",530.00,University of Toronto,Professor,2020
Universities,Chen,Wei,"98,765.43",0,University of Toronto,Lecturer,2020
`

// execute runs the root command with args and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// createDatabase loads sampleCSV into a new database and returns its path.
func createDatabase(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	source := writeFile(t, dir, "salaries.csv", sampleCSV)
	db := filepath.Join(dir, "sunshine.db")

	_, _, err := execute(t, "create", source, db)
	require.NoError(t, err)
	return db
}

// unsetEnv clears a variable for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}
