package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/sunshine/internal/logger"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(context.Background(), path, testOptions())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testOptions() Options {
	return Options{Logger: logger.Discard()}
}

// insertEmployer inserts an employer directly and returns its id.
func insertEmployer(t *testing.T, s *Store, name, sector string) int64 {
	t.Helper()
	res, err := s.db.Exec("INSERT INTO employers (employer_name, sector) VALUES (?, ?)", name, sector)
	if err != nil {
		t.Fatalf("insert employer: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}
	return id
}

// insertIndividual inserts an individual directly and returns its id.
func insertIndividual(t *testing.T, s *Store, last, first, title string) int64 {
	t.Helper()
	res, err := s.db.Exec("INSERT INTO individuals (last_name, first_name, job_title) VALUES (?, ?, ?)", last, first, title)
	if err != nil {
		t.Fatalf("insert individual: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("last insert id: %v", err)
	}
	return id
}
