package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sunshine/internal/bench"
	"github.com/roach88/sunshine/internal/errs"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONFail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Fail(errs.New(errs.Parse, "parse salary", "bad salary"))
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E003", resp.Error.Code)
	assert.Equal(t, "PARSE", resp.Error.Kind)
	assert.Contains(t, resp.Error.Message, "bad salary")
}

func TestOutputFormatter_TextFail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	_ = formatter.Fail(&bench.PhaseError{
		Plan: "join", Phase: bench.PhaseBaseline, Step: bench.StepQuery, Run: 2, Err: errors.New("boom"),
	})
	assert.Contains(t, buf.String(), "Error [E001]: plan join: baseline phase: query")
	assert.Contains(t, buf.String(), "Details: ")
}

type greeting struct{ Name string }

func (g greeting) writeText(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "hello %s (verbose=%t)\n", g.Name, verbose)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, formatter.Success(greeting{Name: "ann"}))
	assert.Equal(t, "hello ann (verbose=true)\n", buf.String())

	buf.Reset()
	require.NoError(t, formatter.Success("plain"))
	assert.Equal(t, "plain\n", buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}

	formatter.VerboseLog("hidden %d", 1)
	assert.Empty(t, errOut.String())

	formatter.Verbose = true
	formatter.VerboseLog("shown %d", 2)
	assert.Empty(t, out.String())
	assert.Equal(t, "shown 2\n", errOut.String())
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		code string
		exit int
	}{
		{errs.New(errs.Precondition, "op", "m"), ErrCodePrecondition, ExitCommandError},
		{errs.New(errs.Parse, "op", "m"), ErrCodeParse, ExitFailure},
		{errs.New(errs.Integrity, "op", "m"), ErrCodeIntegrity, ExitFailure},
		{errs.New(errs.NotFound, "op", "m"), ErrCodeNotFound, ExitFailure},
		{errs.New(errs.StorageUnavailable, "op", "m"), ErrCodeStorageUnavailable, ExitFailure},
		{errs.New(errs.Schema, "op", "m"), ErrCodeSchema, ExitFailure},
		{fmt.Errorf("line 3: %w", errs.New(errs.Parse, "op", "m")), ErrCodeParse, ExitFailure},
		{errors.New("plain"), ErrCodeGeneric, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.code, ErrorCode(tt.err))
			assert.Equal(t, tt.exit, exitCodeFor(tt.err))
		})
	}
}

func TestFail_PhaseErrorDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	cause := errs.New(errs.Schema, "create index idx_x", "no such table: ghosts")
	err := formatter.Fail(&bench.PhaseError{
		Plan: "join", Phase: bench.PhaseIndexed, Step: bench.StepCreateIndex, Index: "idx_x", Err: cause,
	})

	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, IsReported(err))
	assert.True(t, errs.Is(err, errs.Schema))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeSchema, resp.Error.Code)
	assert.Equal(t, "SCHEMA", resp.Error.Kind)
	assert.Equal(t, map[string]any{
		"plan":  "join",
		"phase": "indexed",
		"step":  "create-index",
		"index": "idx_x",
	}, resp.Error.Details)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("x")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "bad"))))
	assert.False(t, IsReported(NewExitError(ExitFailure, "x")))
}
