package store

import (
	"context"
	"strings"
	"testing"

	"github.com/roach88/sunshine/internal/errs"
)

func TestIndex_DDL(t *testing.T) {
	idx := Index{Name: "idx_salaries_employer_id", Table: "salaries", Columns: []string{"employer_id"}}
	want := `CREATE INDEX IF NOT EXISTS "idx_salaries_employer_id" ON "salaries" ("employer_id")`
	if got := idx.DDL(); got != want {
		t.Errorf("DDL() = %q, want %q", got, want)
	}

	multi := Index{Name: "idx_names", Table: "individuals", Columns: []string{"last_name", "first_name"}}
	if got := multi.DDL(); !strings.HasSuffix(got, `("last_name", "first_name")`) {
		t.Errorf("DDL() = %q, want both columns", got)
	}
}

func TestIndex_Validate(t *testing.T) {
	tests := []struct {
		name    string
		idx     Index
		wantErr bool
	}{
		{"valid", Index{Name: "idx_a", Table: "salaries", Columns: []string{"year"}}, false},
		{"no columns", Index{Name: "idx_a", Table: "salaries"}, true},
		{"bad name", Index{Name: "idx; DROP TABLE salaries", Table: "salaries", Columns: []string{"year"}}, true},
		{"bad table", Index{Name: "idx_a", Table: "sal aries", Columns: []string{"year"}}, true},
		{"bad column", Index{Name: "idx_a", Table: "salaries", Columns: []string{"year\""}}, true},
		{"leading digit", Index{Name: "1idx", Table: "salaries", Columns: []string{"year"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.idx.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateAndDropIndex(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	idx := Index{Name: "idx_salaries_year", Table: "salaries", Columns: []string{"year"}}

	if err := s.CreateIndex(ctx, idx); err != nil {
		t.Fatalf("CreateIndex() failed: %v", err)
	}
	// Retrying a creation is a no-op.
	if err := s.CreateIndex(ctx, idx); err != nil {
		t.Fatalf("second CreateIndex() failed: %v", err)
	}

	exists, err := s.IndexExists(ctx, idx.Name)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Fatal("index should exist after CreateIndex")
	}

	if err := s.DropIndex(ctx, idx.Name); err != nil {
		t.Fatalf("DropIndex() failed: %v", err)
	}
	// Dropping an absent index is not an error.
	if err := s.DropIndex(ctx, idx.Name); err != nil {
		t.Fatalf("second DropIndex() failed: %v", err)
	}

	exists, err = s.IndexExists(ctx, idx.Name)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("index should not exist after DropIndex")
	}
}

func TestCreateIndex_UnknownTable(t *testing.T) {
	s := createTestStore(t)
	err := s.CreateIndex(context.Background(), Index{Name: "idx_x", Table: "nope", Columns: []string{"a"}})
	if !errs.Is(err, errs.Schema) {
		t.Fatalf("CreateIndex() on missing table = %v, want Schema", err)
	}
}

func TestCreateIndex_RejectsInvalid(t *testing.T) {
	s := createTestStore(t)
	err := s.CreateIndex(context.Background(), Index{Name: "bad name", Table: "salaries", Columns: []string{"year"}})
	if !errs.Is(err, errs.Schema) {
		t.Fatalf("CreateIndex() with invalid name = %v, want Schema", err)
	}
	if err := s.DropIndex(context.Background(), "bad name"); !errs.Is(err, errs.Schema) {
		t.Fatalf("DropIndex() with invalid name = %v, want Schema", err)
	}
}

func TestListIndexes(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for _, idx := range []Index{
		{Name: "idx_salaries_individual_id", Table: "salaries", Columns: []string{"individual_id"}},
		{Name: "idx_individuals_last_name", Table: "individuals", Columns: []string{"last_name"}},
	} {
		if err := s.CreateIndex(ctx, idx); err != nil {
			t.Fatal(err)
		}
	}

	salaryIndexes, err := s.ListIndexes(ctx, "salaries")
	if err != nil {
		t.Fatal(err)
	}

	var found bool
	for _, info := range salaryIndexes {
		if info.Table != "salaries" {
			t.Errorf("ListIndexes(salaries) returned index of table %q", info.Table)
		}
		if info.Name == "idx_salaries_individual_id" {
			found = true
			if !strings.Contains(info.SQL, "individual_id") {
				t.Errorf("index SQL = %q", info.SQL)
			}
		}
	}
	if !found {
		t.Error("idx_salaries_individual_id not listed")
	}

	all, err := s.ListIndexes(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) <= len(salaryIndexes) {
		t.Errorf("ListIndexes(\"\") = %d indexes, want more than salaries alone (%d)", len(all), len(salaryIndexes))
	}
}

func TestDumpSchema(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	if err := s.CreateIndex(ctx, Index{Name: "idx_individuals_last_name", Table: "individuals", Columns: []string{"last_name"}}); err != nil {
		t.Fatal(err)
	}

	dump, err := s.DumpSchema(ctx)
	if err != nil {
		t.Fatalf("DumpSchema() failed: %v", err)
	}

	lines := strings.Split(dump, "\n")
	var statements []string
	for _, line := range lines {
		if strings.HasPrefix(line, "CREATE ") {
			statements = append(statements, line)
		}
	}

	order := []string{
		"CREATE TABLE employers",
		"CREATE TABLE individuals",
		"CREATE TABLE salaries",
		`CREATE INDEX "idx_individuals_last_name"`,
	}
	pos := -1
	for _, prefix := range order {
		idx := strings.Index(dump, prefix)
		if idx < 0 {
			t.Fatalf("dump missing %q:\n%s", prefix, dump)
		}
		if idx < pos {
			t.Errorf("%q out of order in dump:\n%s", prefix, dump)
		}
		pos = idx
	}

	if !strings.HasSuffix(dump, ";") {
		t.Error("every statement should end with a semicolon")
	}
	if strings.Contains(dump, "sqlite_autoindex") {
		t.Error("implicit indexes have no SQL and must be omitted")
	}
	if len(statements) == 0 {
		t.Error("no CREATE statements found")
	}
}
