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

package errors

import "fmt"

// Error kind identifiers used for programmatic handling (CLI error codes
// and JSON output). Exactly one kind applies to each error type in this
// package.
const (
	KindSyntax     = "syntax"
	KindValidation = "validation"
	KindShape      = "shape"
	KindReference  = "reference"
)

// SyntaxError represents input text that is not well-formed structured data.
// The parser's own message is preserved in Cause and surfaced as-is.
type SyntaxError struct {
	// Path is the source of the text (file path or endpoint), if known
	Path string

	// Cause is the underlying parser error
	Cause error
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("invalid document syntax in %s: %v", e.Path, e.Cause)
	}
	return fmt.Sprintf("invalid document syntax: %v", e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *SyntaxError) Unwrap() error {
	return e.Cause
}

// ValidationError represents a local, single-entity constraint violation:
// a missing required field, an empty string where a non-empty one is
// required, an out-of-range number, an unknown field, or a bad enum value.
type ValidationError struct {
	// Field identifies the offending field path (e.g. "agents[0].goal")
	Field string

	// Message is the human-readable description of the violated rule
	Message string

	// Suggestion provides actionable guidance for fixing the error
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// ShapeError represents a document submitted to the wrong endpoint kind:
// a flow-shaped document sent to a crew-only surface, or the reverse.
type ShapeError struct {
	// Got is the shape the document actually has ("flow" or "crew")
	Got string

	// Want is the shape the surface expected
	Want string

	// Hint names the correct alternative surface for the document
	Hint string
}

// Error implements the error interface.
func (e *ShapeError) Error() string {
	msg := fmt.Sprintf("document is %s-shaped but a %s document was expected", e.Got, e.Want)
	if e.Hint != "" {
		msg = fmt.Sprintf("%s; %s", msg, e.Hint)
	}
	return msg
}

// ReferenceError represents a referential-integrity violation: one entity
// names another that does not exist in the document, or a structural
// membership rule does not hold.
type ReferenceError struct {
	// Entity is the identifying name of the entity holding the bad reference
	Entity string

	// Kind is the entity kind ("crew", "task", "flow", "flow_method", "document")
	Kind string

	// Reference is the missing or conflicting name being referred to
	Reference string

	// Detail explains the broken rule, including any conflicting context
	Detail string
}

// Error implements the error interface.
func (e *ReferenceError) Error() string {
	if e.Reference != "" {
		return fmt.Sprintf("%s %q: %s (reference: %q)", e.Kind, e.Entity, e.Detail, e.Reference)
	}
	return fmt.Sprintf("%s %q: %s", e.Kind, e.Entity, e.Detail)
}

// KindOf classifies an error into one of the package's kind identifiers.
// Returns an empty string for errors not defined by this package.
func KindOf(err error) string {
	var (
		syntaxErr    *SyntaxError
		fieldErr     *ValidationError
		shapeErr     *ShapeError
		referenceErr *ReferenceError
	)
	switch {
	case As(err, &syntaxErr):
		return KindSyntax
	case As(err, &fieldErr):
		return KindValidation
	case As(err, &shapeErr):
		return KindShape
	case As(err, &referenceErr):
		return KindReference
	default:
		return ""
	}
}
