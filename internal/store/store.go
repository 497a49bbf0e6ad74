package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/sunshine/internal/config"
	"github.com/roach88/sunshine/internal/errs"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Empty database
// 1 - employers, individuals, salaries
const currentSchemaVersion = 1

// Tables lists the tables the schema creates, in dependency order.
var Tables = []string{"employers", "individuals", "salaries"}

// NaturalKeys lists, per table, the columns that must carry a UNIQUE or
// PRIMARY KEY constraint. Upserts name them as their conflict target.
var NaturalKeys = map[string][]string{
	"employers":   {"employer_name", "sector"},
	"individuals": {"last_name", "first_name", "job_title"},
	"salaries":    {"employer_id", "individual_id", "year"},
}

// Options configures how a database is opened.
type Options struct {
	// JournalMode is applied with PRAGMA journal_mode. Defaults to WAL.
	JournalMode string

	// BusyTimeout is applied with PRAGMA busy_timeout. Defaults to 5s.
	BusyTimeout time.Duration

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger
}

// OptionsFromConfig builds Options from the runtime configuration.
func OptionsFromConfig(cfg config.Config, log *slog.Logger) Options {
	return Options{
		JournalMode: cfg.JournalMode,
		BusyTimeout: cfg.BusyTimeout,
		Logger:      log,
	}
}

func (o *Options) setDefaults() {
	if o.JournalMode == "" {
		o.JournalMode = config.DefaultJournalMode
	}
	if o.BusyTimeout == 0 {
		o.BusyTimeout = config.DefaultBusyTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Store is the sunshine database.
type Store struct {
	db   *sqlx.DB
	path string
	log  *slog.Logger
}

// Create makes a new database at path and applies the schema.
// Fails with errs.Precondition if anything already exists at path.
// If the schema cannot be applied the new file is removed again.
func Create(ctx context.Context, path string, opts Options) (*Store, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, errs.Newf(errs.Precondition, "create store", "database %s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, errs.Wrapf(errs.Precondition, err, "create store", "stat %s", path)
	}

	s, err := open(ctx, path, path, opts)
	if err != nil {
		Remove(path)
		return nil, err
	}

	if err := s.applySchema(ctx); err != nil {
		s.Close()
		Remove(path)
		return nil, err
	}

	s.log.Debug("database created", "path", path)
	return s, nil
}

// OpenExisting opens a database that must already exist at path.
// Fails with errs.Precondition if it does not. The schema is not applied;
// use VerifySchema to check it.
func OpenExisting(ctx context.Context, path string, opts Options) (*Store, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errs.Newf(errs.Precondition, "open store", "database %s not found", path)
	}
	if err != nil {
		return nil, errs.Wrapf(errs.Precondition, err, "open store", "stat %s", path)
	}
	if info.IsDir() {
		return nil, errs.Newf(errs.Precondition, "open store", "%s is a directory", path)
	}

	// mode=rw keeps the driver from creating a missing file.
	return open(ctx, path, "file:"+path+"?mode=rw", opts)
}

// Open creates or opens a database at path and applies the schema.
// This function is idempotent - safe to call multiple times.
func Open(ctx context.Context, path string, opts Options) (*Store, error) {
	s, err := open(ctx, path, path, opts)
	if err != nil {
		return nil, err
	}
	if err := s.applySchema(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func open(ctx context.Context, path, dsn string, opts Options) (*Store, error) {
	opts.setDefaults()

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, errs.Wrap(errs.StorageUnavailable, "open database", err)
	}

	// Verify connection works
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.StorageUnavailable, "connect to database", err)
	}

	// SQLite only supports one writer at a time and the tool is
	// single-connection by construction.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(ctx, db, opts); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.StorageUnavailable, "apply pragmas", err)
	}

	return &Store{db: db, path: path, log: opts.Logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the filesystem path of the database.
func (s *Store) Path() string {
	return s.path
}

// DB returns the underlying sqlx.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// BeginTx starts a transaction.
func (s *Store) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, Classify("begin transaction", err)
	}
	return tx, nil
}

// WithTx runs fn inside a transaction. The transaction is committed if fn
// returns nil and rolled back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback() // No-op if committed

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return Classify("commit transaction", err)
	}
	return nil
}

// SchemaVersion returns PRAGMA user_version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, Classify("get user_version", err)
	}
	return version, nil
}

// VerifySchema checks that every table of the schema exists and carries
// its natural-key constraint. Fails with errs.Schema naming what is missing.
func (s *Store) VerifySchema(ctx context.Context) error {
	var present []string
	err := s.db.SelectContext(ctx, &present,
		"SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name")
	if err != nil {
		return Classify("verify schema", err)
	}

	have := make(map[string]bool, len(present))
	for _, name := range present {
		have[name] = true
	}

	var missing []string
	for _, table := range Tables {
		if !have[table] {
			missing = append(missing, table)
		}
	}
	if len(missing) > 0 {
		return errs.Newf(errs.Schema, "verify schema", "missing tables: %s", strings.Join(missing, ", "))
	}

	var unkeyed []string
	for _, table := range Tables {
		ok, err := s.hasUniqueKey(ctx, table, NaturalKeys[table])
		if err != nil {
			return err
		}
		if !ok {
			unkeyed = append(unkeyed, fmt.Sprintf("%s(%s)", table, strings.Join(NaturalKeys[table], ", ")))
		}
	}
	if len(unkeyed) > 0 {
		return errs.Newf(errs.Schema, "verify schema", "missing unique keys: %s", strings.Join(unkeyed, ", "))
	}
	return nil
}

// hasUniqueKey reports whether table has a unique index over exactly cols,
// in any order.
func (s *Store) hasUniqueKey(ctx context.Context, table string, cols []string) (bool, error) {
	var indexes []string
	err := s.db.SelectContext(ctx, &indexes,
		`SELECT name FROM pragma_index_list(?) WHERE "unique" = 1`, table)
	if err != nil {
		return false, Classify("verify schema", err)
	}

	want := slices.Sorted(slices.Values(cols))
	for _, index := range indexes {
		var got []string
		err := s.db.SelectContext(ctx, &got,
			"SELECT coalesce(name, '') AS name FROM pragma_index_info(?) ORDER BY name", index)
		if err != nil {
			return false, Classify("verify schema", err)
		}
		if slices.Equal(got, want) {
			return true, nil
		}
	}
	return false, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sqlx.DB, opts Options) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA journal_mode = %s", opts.JournalMode),
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", opts.BusyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema runs pending migrations. This function is idempotent.
func (s *Store) applySchema(ctx context.Context) error {
	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	if version < 1 {
		if err := s.migrateToV1(ctx); err != nil {
			return err
		}
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return Classify("set user_version", err)
	}
	return nil
}

// migrateToV1 creates the three tables.
func (s *Store) migrateToV1(ctx context.Context) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return errs.Wrap(errs.Schema, "migrate to v1", err)
		}
		return nil
	})
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if !strings.EqualFold(value, expected) {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// Remove deletes the database file at path and its -wal, -shm and -journal
// companions. Missing files are ignored. The store must be closed first.
func Remove(path string) error {
	var errList []error
	for _, suffix := range []string{"", "-wal", "-shm", "-journal"} {
		if err := os.Remove(path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}
