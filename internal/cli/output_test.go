package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]int{"assets": 3})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(ErrCodeStore, "database is locked", map[string]string{"path": "data/xcmreserve.db"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeStore, resp.Error.Code)
	assert.Equal(t, "database is locked", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	require.NoError(t, formatter.Error(ErrCodeInvalidInput, "bad location", map[string]string{"arg": "{}"}))
	assert.Contains(t, buf.String(), "Error [E002]: bad location")
	assert.NotContains(t, buf.String(), "Details:")

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Error(ErrCodeInvalidInput, "bad location", map[string]string{"arg": "{}"}))
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	err := formatter.Fail(ExitCommandError, ErrCodeConfig, errors.New("unknown deployment"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E003]: unknown deployment")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			errOut := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:    "json",
				Writer:    out,
				ErrWriter: errOut,
				Verbose:   tt.verbose,
			}

			formatter.VerboseLog("Opened store %s", "sqlite")

			assert.Empty(t, out.String(), "verbose logs never touch stdout")
			if tt.wantLog {
				assert.Contains(t, errOut.String(), "Opened store sqlite")
			} else {
				assert.Empty(t, errOut.String())
			}
		})
	}
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(NewExitError(ExitFailure, "check failed")))
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitFailure, "check failed"))))
	assert.Equal(t, ExitCommandError, GetExitCode(errors.New("unknown flag: --nope")))
}
