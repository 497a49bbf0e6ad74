package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jonboulle/clockwork"

	"github.com/roach88/sunshine/internal/dimension"
	"github.com/roach88/sunshine/internal/errs"
	"github.com/roach88/sunshine/internal/model"
	"github.com/roach88/sunshine/internal/store"
)

// Policy decides what happens to a record that fails to parse.
type Policy int

const (
	// PolicyAbort stops the load at the first bad record and rolls back.
	PolicyAbort Policy = iota

	// PolicySkip skips records whose fields fail to parse and keeps going.
	// Every other failure still aborts and rolls back.
	PolicySkip
)

// String returns the policy name.
func (p Policy) String() string {
	switch p {
	case PolicyAbort:
		return "abort"
	case PolicySkip:
		return "skip"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Options configures a load.
type Options struct {
	// Policy for records that fail to parse. Defaults to PolicyAbort.
	Policy Policy

	// Delimiter separates fields. Zero means ','.
	Delimiter rune

	// Logger receives progress. Defaults to slog.Default().
	Logger *slog.Logger

	// Clock measures elapsed time. Defaults to the real clock.
	Clock clockwork.Clock

	// ProgressEvery logs progress every N records. Zero disables it.
	ProgressEvery int
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
}

// SkippedRecord is a record dropped under PolicySkip.
type SkippedRecord struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Summary describes a finished load.
type Summary struct {
	LoadID     string          `json:"load_id"`
	Source     string          `json:"source,omitempty"`
	Database   string          `json:"database"`
	Policy     string          `json:"policy"`
	RowsRead   int             `json:"rows_read"`
	RowsLoaded int             `json:"rows_loaded"`
	Skipped    []SkippedRecord `json:"skipped,omitempty"`
	Counts     model.Counts    `json:"counts"`
	Elapsed    time.Duration   `json:"elapsed_ns"`
}

// LoadFile loads the source file at path into st.
// Fails with errs.Precondition if the file does not exist.
func LoadFile(ctx context.Context, st *store.Store, path string, opts Options) (*Summary, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, errs.Newf(errs.Precondition, "load", "source %s not found", path)
	}
	if err != nil {
		return nil, errs.Wrapf(errs.Precondition, err, "load", "open source %s", path)
	}
	defer f.Close()

	summary, err := Load(ctx, st, f, opts)
	if summary != nil {
		summary.Source = path
	}
	return summary, err
}

// Load reads every record from src and writes it into st.
//
// All writes happen in one transaction committed at the end. Any failure
// rolls the transaction back, so the store is left exactly as it was before
// the call. Under PolicySkip, records failing with a *FieldError are counted
// in the Summary instead of failing the load.
//
// Fails with errs.Schema if the schema has not been applied to st.
func Load(ctx context.Context, st *store.Store, src io.Reader, opts Options) (*Summary, error) {
	opts.setDefaults()
	log := opts.Logger
	start := opts.Clock.Now()

	if err := st.VerifySchema(ctx); err != nil {
		return nil, err
	}

	resolver, err := dimension.NewResolver()
	if err != nil {
		return nil, err
	}
	loader := NewLoader(resolver, log)

	summary := &Summary{
		LoadID:   uuid.Must(uuid.NewV7()).String(),
		Database: st.Path(),
		Policy:   opts.Policy.String(),
	}
	log.Debug("load starting", "load_id", summary.LoadID, "policy", summary.Policy)

	source := NewSource(src, opts.Delimiter)
	err = st.WithTx(ctx, func(tx *sqlx.Tx) error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			rec, err := source.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err == nil {
				summary.RowsRead++
				err = loader.LoadRecord(ctx, tx, rec)
			} else if isSkippable(err) {
				summary.RowsRead++
			}

			if err != nil {
				if opts.Policy == PolicySkip && isSkippable(err) {
					skipped := skippedFrom(err)
					summary.Skipped = append(summary.Skipped, skipped)
					log.Warn("record skipped", "line", skipped.Line, "reason", skipped.Reason)
					continue
				}
				return err
			}

			summary.RowsLoaded++
			if opts.ProgressEvery > 0 && summary.RowsLoaded%opts.ProgressEvery == 0 {
				log.Info("load progress", "records", summary.RowsLoaded)
			}
		}
	})
	if err != nil {
		log.Debug("load rolled back", "load_id", summary.LoadID, "error", err)
		return nil, err
	}

	counts, err := st.Counts(ctx)
	if err != nil {
		return nil, err
	}
	summary.Counts = counts
	summary.Elapsed = opts.Clock.Since(start)

	log.Debug("load committed",
		"load_id", summary.LoadID,
		"rows_loaded", summary.RowsLoaded,
		"skipped", len(summary.Skipped),
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

// isSkippable reports whether err is a per-record parse failure.
func isSkippable(err error) bool {
	var fe *FieldError
	return errs.Is(err, errs.Parse) && errors.As(err, &fe)
}

func skippedFrom(err error) SkippedRecord {
	var fe *FieldError
	errors.As(err, &fe)
	return SkippedRecord{Line: fe.Line, Reason: fe.Error()}
}
