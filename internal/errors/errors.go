// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package errors provides user-facing errors for the seccorpus CLI.
//
// A UserError carries three pieces of information for the person running the
// funnel: what went wrong, why, and how to fix it. Each constructor assigns a
// category exit code so scripts driving the pipeline can branch on failures:
//
//	err := errors.NewVCSError(
//	    "Cannot query repository history",
//	    "git log exited with status 128",
//	    "Check repository.path in .seccorpus/project.yaml",
//	    underlyingErr,
//	)
//	os.Exit(errors.Render(os.Stderr, err, false))
//
// Exit codes:
//   - ExitSuccess (0)
//   - ExitConfig (2): missing or invalid project configuration
//   - ExitVCS (3): repository cannot be opened or queried
//   - ExitOracle (4): LLM provider cannot be created or reached
//   - ExitInput (5): invalid flags or arguments
//   - ExitSnapshot (6): snapshot files cannot be read or written
//   - ExitAlignment (7): joined collections disagree, the run was aborted
//   - ExitInternal (10): bugs
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Exit codes for different error categories.
const (
	ExitSuccess   = 0
	ExitGeneric   = 1
	ExitConfig    = 2
	ExitVCS       = 3
	ExitOracle    = 4
	ExitInput     = 5
	ExitSnapshot  = 6
	ExitAlignment = 7

	// ExitInternal signals "this is a bug that should be reported".
	ExitInternal = 10
)

// UserError is an error with structured context for end users.
type UserError struct {
	// Message describes what went wrong.
	Message string

	// Cause explains why it happened.
	Cause string

	// Fix is an actionable suggestion.
	Fix string

	// ExitCode is the process exit status for this error.
	ExitCode int

	// Err is the wrapped error, if any.
	Err error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

func newUserError(code int, msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: code, Err: err}
}

// NewConfigError reports a missing or malformed project configuration.
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return newUserError(ExitConfig, msg, cause, fix, err)
}

// NewVCSError reports a repository that cannot be opened or queried.
// Empty query output is not an error and never reaches this constructor.
func NewVCSError(msg, cause, fix string, err error) *UserError {
	return newUserError(ExitVCS, msg, cause, fix, err)
}

// NewOracleError reports an LLM provider that cannot be constructed or reached.
func NewOracleError(msg, cause, fix string, err error) *UserError {
	return newUserError(ExitOracle, msg, cause, fix, err)
}

// NewInputError reports invalid command-line input. Input errors do not wrap.
func NewInputError(msg, cause, fix string) *UserError {
	return newUserError(ExitInput, msg, cause, fix, nil)
}

// NewSnapshotError reports a snapshot file that cannot be read or written.
func NewSnapshotError(msg, cause, fix string, err error) *UserError {
	return newUserError(ExitSnapshot, msg, cause, fix, err)
}

// NewAlignmentError reports a stage aborted because two collections that must
// correspond record-for-record did not.
func NewAlignmentError(msg, cause, fix string, err error) *UserError {
	return newUserError(ExitAlignment, msg, cause, fix, err)
}

// NewInternalError reports a bug.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return newUserError(ExitInternal, msg, cause, fix, err)
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns the error as colored terminal text. Empty Cause or Fix
// lines are omitted. NO_COLOR is honored.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")
	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}
	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}
	return out.String()
}

// ErrorJSON is the machine-readable form of a UserError.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

// ToJSON converts the error for --json output.
func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{
		Error:    e.Message,
		Cause:    e.Cause,
		Fix:      e.Fix,
		ExitCode: e.ExitCode,
	}
}

// Render writes err to w and returns the exit code the process should use.
// Errors that are not UserErrors anywhere in their chain render as a plain
// message with ExitInternal.
func Render(w io.Writer, err error, jsonOutput bool) int {
	if err == nil {
		return ExitSuccess
	}

	var ue *UserError
	if !errors.As(err, &ue) {
		if jsonOutput {
			_ = json.NewEncoder(w).Encode(ErrorJSON{Error: err.Error(), ExitCode: ExitInternal})
		} else {
			fmt.Fprintf(w, "Error: %v\n", err)
		}
		return ExitInternal
	}

	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(ue.ToJSON())
	} else {
		fmt.Fprint(w, ue.Format(false))
	}
	return ue.ExitCode
}

// FatalError renders err on stderr and exits. It never returns for a
// non-nil error.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}
	os.Exit(Render(os.Stderr, err, jsonOutput))
}
