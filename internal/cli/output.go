package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nestq/nestq"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitQueryError   = 1 // Query compiled but failed or found nothing usable
	ExitCommandError = 2 // Command error (bad documents, missing files, invalid schema)
)

// Error codes for CLI responses.
const (
	ErrCodeGeneric             = "E000"
	ErrCodeUnsupportedOperator = "E001"
	ErrCodeUnknownField        = "E002"
	ErrCodeRelationNotFound    = "E003"
	ErrCodeProjectionExcluded  = "E004"
	ErrCodeAliasConflict       = "E005"
	ErrCodeNoEntity            = "E006"
	ErrCodeMultipleEntities    = "E007"
	ErrCodeExecution           = "E008"
)

// ClassifyError maps an error from the query pipeline to a stable code.
func ClassifyError(err error) string {
	switch {
	case nestq.IsUnsupportedOperator(err):
		return ErrCodeUnsupportedOperator
	case nestq.IsUnknownField(err):
		return ErrCodeUnknownField
	case nestq.IsRelationNotFound(err):
		return ErrCodeRelationNotFound
	case nestq.IsProjectionRelationNotIncluded(err):
		return ErrCodeProjectionExcluded
	case nestq.IsAliasConflict(err):
		return ErrCodeAliasConflict
	case nestq.IsNoEntityFound(err):
		return ErrCodeNoEntity
	case nestq.IsMultipleEntitiesFound(err):
		return ErrCodeMultipleEntities
	case nestq.IsQueryError(err):
		return ErrCodeExecution
	default:
		return ErrCodeGeneric
	}
}

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
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
// Returns ExitQueryError (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitQueryError
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostic output, defaults to Writer
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		encoder := json.NewEncoder(f.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: data})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
// When format is JSON, verbose logs go to ErrWriter to avoid corrupting
// machine-readable output.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
