package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/sunshine/internal/bench"
	"github.com/roach88/sunshine/internal/errs"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Load or benchmark failure (bad record, constraint violation, query error)
	ExitCommandError = 2 // Command error (missing source, existing target, bad flags)
)

// Error codes reported in CLI output, one per error kind.
const (
	ErrCodeGeneric            = "E001"
	ErrCodePrecondition       = "E002"
	ErrCodeParse              = "E003"
	ErrCodeIntegrity          = "E004"
	ErrCodeNotFound           = "E005"
	ErrCodeStorageUnavailable = "E006"
	ErrCodeSchema             = "E007"
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)

	// Reported is set once the error has been written to the command output.
	Reported bool
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// IsReported reports whether err was already written to the command output.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// ErrorCode returns the CLI error code for err's kind.
func ErrorCode(err error) string {
	switch errs.KindOf(err) {
	case errs.Precondition:
		return ErrCodePrecondition
	case errs.Parse:
		return ErrCodeParse
	case errs.Integrity:
		return ErrCodeIntegrity
	case errs.NotFound:
		return ErrCodeNotFound
	case errs.StorageUnavailable:
		return ErrCodeStorageUnavailable
	case errs.Schema:
		return ErrCodeSchema
	default:
		return ErrCodeGeneric
	}
}

// exitCodeFor maps precondition failures to ExitCommandError and everything
// else to ExitFailure.
func exitCodeFor(err error) int {
	if errs.Is(err, errs.Precondition) {
		return ExitCommandError
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Kind    string `json:"kind,omitempty"`    // errs.Kind of the failure
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// textReport is a result that renders its own text output.
type textReport interface {
	writeText(w io.Writer, verbose bool)
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{
			Status: "ok",
			Data:   data,
		})
	}

	// Human-readable text output
	if r, ok := data.(textReport); ok {
		r.writeText(f.Writer, f.Verbose)
		return nil
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

func (f *OutputFormatter) writeError(cliErr *CLIError) error {
	if f.Format == "json" {
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{
			Status: "error",
			Error:  cliErr,
		})
	}

	// Human-readable error
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", cliErr.Code, cliErr.Message)
	if f.Verbose && cliErr.Details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", cliErr.Details)
	}
	return nil
}

// Fail reports err and returns the ExitError the command should return.
func (f *OutputFormatter) Fail(err error) error {
	cliErr := &CLIError{
		Code:    ErrorCode(err),
		Kind:    string(errs.KindOf(err)),
		Message: err.Error(),
		Details: errorDetails(err),
	}
	_ = f.writeError(cliErr)

	exitErr := WrapExitError(exitCodeFor(err), cliErr.Code, err)
	exitErr.Reported = true
	return exitErr
}

// errorDetails extracts structured context from known error types.
func errorDetails(err error) any {
	var pe *bench.PhaseError
	if errors.As(err, &pe) {
		details := map[string]any{
			"plan":  pe.Plan,
			"phase": pe.Phase,
			"step":  pe.Step,
		}
		if pe.Index != "" {
			details["index"] = pe.Index
		}
		if pe.Run > 0 {
			details["run"] = pe.Run
		}
		return details
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting JSON output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.errWriter(), format+"\n", args...)
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
