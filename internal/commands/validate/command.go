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

// Package validate implements the crewforge validate command.
package validate

import (
	"fmt"
	"os"
	"strings"

	"github.com/crewforge/crewforge/internal/cli/format"
	"github.com/crewforge/crewforge/internal/commands/shared"
	"github.com/crewforge/crewforge/internal/log"
	"github.com/crewforge/crewforge/pkg/crew"
	pkgerrors "github.com/crewforge/crewforge/pkg/errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// NewCommand creates the validate command
func NewCommand() *cobra.Command {
	var (
		kind   string
		params []string
	)

	cmd := &cobra.Command{
		Use:   "validate <document>",
		Short: "Validate a crew or flow document",
		Long: `Validate checks that a document has well-formed YAML syntax, satisfies
every field constraint, and that all cross-entity name references resolve:
crew members to agents, crew tasks and task context to tasks, and flow
methods to crews.

The document's shape is classified first. With --kind, a document of the
wrong shape is rejected before parsing, with a message naming the correct
invocation. Parameter bindings given with --params are substituted into
{placeholder} spans before parsing; placeholders without a binding are left
in place and reported as a warning, never an error.

Validation stops at the first violation and reports the offending entity,
field, and reference, so the error is directly actionable.`,
		Example: `  # Example 1: Basic validation
  crewforge validate crews.yaml

  # Example 2: Require a flow document
  crewforge validate flow.yaml --kind flow

  # Example 3: Bind template parameters before parsing
  crewforge validate crews.yaml --params metric=sales --params period=Q3

  # Example 4: JSON output for parsing
  crewforge validate crews.yaml --json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on validation errors
		SilenceErrors: true, // Don't print error message (we handle it ourselves)
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args[0], kind, params)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Require a document kind (crew, flow)")
	cmd.Flags().StringArrayVar(&params, "params", nil, "Template parameter binding in name=value form (repeatable)")

	return cmd
}

// result is the JSON payload for a successful validation.
type result struct {
	shared.JSONResponse
	ReportID string `json:"report_id"`
	Document string `json:"document"`
	Shape    string `json:"shape"`
	Agents   int    `json:"agents"`
	Tasks    int    `json:"tasks"`
	Crews    int    `json:"crews"`
	Methods  int    `json:"flow_methods,omitempty"`
}

func runValidate(cmd *cobra.Command, path, kind string, params []string) error {
	useJSON := shared.GetJSON()
	logger := log.New(log.FromEnv())
	reportID := uuid.NewString()
	logger = log.WithReportID(logger, reportID)

	bindings, err := parseParams(params)
	if err != nil {
		return shared.NewUsageError("invalid --params value", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fail(cmd, useJSON, shared.NewUsageError(fmt.Sprintf("reading document %s", path), err))
	}

	text, unresolved := crew.Substitute(string(data), bindings)
	for _, name := range unresolved {
		logger.Warn("unresolved template parameter", "name", name, log.DocumentKey, path)
		if !useJSON && !shared.GetQuiet() {
			cmd.PrintErrln(shared.RenderWarn(fmt.Sprintf("unresolved parameter {%s}", name)))
		}
	}

	shape := crew.Classify([]byte(text))
	logger.Debug("classified document", log.DocumentKey, path, log.ShapeKey, string(shape))

	if kind != "" {
		if err := checkKind(shape, kind, path); err != nil {
			return fail(cmd, useJSON, shared.NewInvalidDocumentError("document kind mismatch", err))
		}
	}

	doc, err := crew.ParseDocument([]byte(text))
	if err != nil {
		showDocument(cmd, useJSON, text)
		return fail(cmd, useJSON, shared.NewInvalidDocumentError("invalid document", err))
	}

	if err := crew.ValidateReferences(doc); err != nil {
		showDocument(cmd, useJSON, text)
		return fail(cmd, useJSON, shared.NewInvalidDocumentError("invalid document", err))
	}

	logger.Info("document validated",
		log.DocumentKey, path,
		log.ShapeKey, string(shape),
		"agents", len(doc.Agents),
		"tasks", len(doc.Tasks),
		"crews", len(doc.Crews),
	)

	if useJSON {
		return shared.EmitJSON(result{
			JSONResponse: shared.JSONResponse{Version: "1.0", Command: "validate", Success: true},
			ReportID:     reportID,
			Document:     path,
			Shape:        string(shape),
			Agents:       len(doc.Agents),
			Tasks:        len(doc.Tasks),
			Crews:        len(doc.Crews),
			Methods:      len(doc.FlowMethods),
		})
	}

	cmd.Println(shared.RenderOK(fmt.Sprintf("%s is a valid %s document", path, shape)))
	cmd.Printf("  %s %d agents, %d tasks, %d crews\n",
		shared.RenderLabel("entities:"), len(doc.Agents), len(doc.Tasks), len(doc.Crews))
	if doc.Flow != nil {
		cmd.Printf("  %s %s (%d methods)\n",
			shared.RenderLabel("flow:"), doc.Flow.ClassName, len(doc.FlowMethods))
	}
	return nil
}

// showDocument prints the document under --verbose so the reported field
// paths can be read against the source, highlighted when on a terminal.
func showDocument(cmd *cobra.Command, useJSON bool, text string) {
	if useJSON || !shared.GetVerbose() {
		return
	}
	cmd.PrintErrln(format.HighlightYAML(text, format.IsTTY()))
}

// checkKind rejects a document whose classified shape disagrees with the
// required kind, pointing at the invocation that would accept it.
func checkKind(shape crew.Shape, kind, path string) error {
	want := crew.Shape(kind)
	switch want {
	case crew.ShapeCrew, crew.ShapeFlow:
	default:
		return &pkgerrors.ValidationError{
			Field:      "--kind",
			Message:    fmt.Sprintf("unsupported kind %q", kind),
			Suggestion: "use --kind crew or --kind flow",
		}
	}
	if shape == want {
		return nil
	}
	return &pkgerrors.ShapeError{
		Got:  string(shape),
		Want: string(want),
		Hint: fmt.Sprintf("run 'crewforge validate --kind %s %s' instead", shape, path),
	}
}

// parseParams converts name=value pairs into a binding map.
func parseParams(params []string) (map[string]string, error) {
	if len(params) == 0 {
		return nil, nil
	}
	bindings := make(map[string]string, len(params))
	for _, p := range params {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("expected name=value, got %q", p)
		}
		bindings[name] = value
	}
	return bindings, nil
}

// fail reports a validation failure on the selected output surface and
// returns the exit-coded error for main to handle.
func fail(cmd *cobra.Command, useJSON bool, exitErr *shared.ExitError) error {
	cause := exitErr.Cause

	if useJSON {
		_ = shared.EmitJSONError("validate", []shared.JSONError{toJSONError(cause)})
		return exitErr
	}

	cmd.PrintErrln(shared.RenderError(cause.Error()))
	if s := suggestionOf(cause); s != "" {
		cmd.PrintErrln(shared.RenderLabel("  suggestion: ") + s)
	}
	return exitErr
}

// toJSONError flattens a core error into the structured JSON form.
func toJSONError(err error) shared.JSONError {
	out := shared.JSONError{
		Code:    pkgerrors.KindOf(err),
		Message: err.Error(),
	}
	if out.Code == "" {
		out.Code = "internal"
	}

	var fieldErr *pkgerrors.ValidationError
	if pkgerrors.As(err, &fieldErr) {
		out.Field = fieldErr.Field
		out.Suggestion = fieldErr.Suggestion
	}
	var refErr *pkgerrors.ReferenceError
	if pkgerrors.As(err, &refErr) {
		out.Entity = refErr.Entity
		out.Reference = refErr.Reference
	}
	var shapeErr *pkgerrors.ShapeError
	if pkgerrors.As(err, &shapeErr) {
		out.Suggestion = shapeErr.Hint
	}
	return out
}

func suggestionOf(err error) string {
	var fieldErr *pkgerrors.ValidationError
	if pkgerrors.As(err, &fieldErr) {
		return fieldErr.Suggestion
	}
	var shapeErr *pkgerrors.ShapeError
	if pkgerrors.As(err, &shapeErr) {
		return shapeErr.Hint
	}
	return ""
}
