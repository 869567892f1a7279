// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shared

import (
	"fmt"
	"os"

	pkgerrors "github.com/crewforge/crewforge/pkg/errors"
)

// Exit codes for crewforge commands
const (
	ExitSuccess         = 0
	ExitFailure         = 1
	ExitInvalidDocument = 2
	ExitUsage           = 3
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewInvalidDocumentError creates an error for documents that fail
// validation of any kind.
func NewInvalidDocumentError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitInvalidDocument,
		Message: msg,
		Cause:   cause,
	}
}

// NewUsageError creates an error for bad command invocations.
func NewUsageError(msg string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitUsage,
		Message: msg,
		Cause:   cause,
	}
}

// HandleExitError checks if an error is an ExitError and exits with the appropriate code
func HandleExitError(err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "Error:", err.Error())
	printSuggestion(err)

	var exitErr *ExitError
	if pkgerrors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}
	os.Exit(ExitFailure)
}

// printSuggestion surfaces the actionable guidance carried by validation
// errors, if any.
func printSuggestion(err error) {
	var fieldErr *pkgerrors.ValidationError
	if pkgerrors.As(err, &fieldErr) && fieldErr.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", fieldErr.Suggestion)
		return
	}
	var shapeErr *pkgerrors.ShapeError
	if pkgerrors.As(err, &shapeErr) && shapeErr.Hint != "" {
		fmt.Fprintf(os.Stderr, "\nSuggestion: %s\n", shapeErr.Hint)
	}
}
