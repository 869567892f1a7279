// Package crew parses and validates declarative multi-agent crew and flow
// documents.
//
// A document describes agents (roles with goals and tools), tasks (units of
// work optionally bound to an agent and to the outputs of other tasks), and
// crews (groups of agents and tasks run under a process policy), optionally
// orchestrated by a flow of start/listen/router methods. Parsing is strict:
// unknown fields are rejected, required fields are enforced, and numeric and
// enum constraints are checked per entity. Cross-entity name references are
// checked in a second pass by ValidateReferences, so that schema errors and
// referential-integrity errors stay independently testable.
//
// Nothing in this package executes a workflow, touches the network, or
// persists state. A document that parses and passes ValidateReferences is
// final and is only ever read by the execution engine.
package crew

import (
	"bytes"
	"fmt"
	"io"

	"github.com/crewforge/crewforge/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Process selects how a crew schedules its tasks.
type Process string

const (
	// ProcessSequential runs tasks in declaration order.
	ProcessSequential Process = "sequential"
	// ProcessHierarchical delegates task routing to a manager agent.
	ProcessHierarchical Process = "hierarchical"
)

// Provider identifies an LLM provider for an agent binding.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderSnowflake Provider = "snowflake"
)

// DocumentTypeRAG is the only accepted value for the optional document
// type tag.
const DocumentTypeRAG = "RAG"

// DefaultTemperature is applied to LLM bindings that omit temperature.
const DefaultTemperature = 0.7

// LLMBinding configures the model an agent runs against. The API key is
// resolved out-of-band by the caller and is never required here.
type LLMBinding struct {
	// Provider is the model provider (openai, snowflake)
	Provider Provider `yaml:"provider" json:"provider"`

	// Model is the provider-specific model identifier
	Model string `yaml:"model" json:"model"`

	// Temperature is the sampling temperature in [0.0, 2.0] (default 0.7)
	Temperature *float64 `yaml:"temperature,omitempty" json:"temperature,omitempty"`

	// MaxTokens caps the completion length (optional, must be positive)
	MaxTokens *int `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`

	// APIKey is an optional inline credential; normally resolved externally
	APIKey string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
}

// AgentSpec defines a named role that can execute tasks.
type AgentSpec struct {
	// Role is the agent identifier, unique within a document
	Role string `yaml:"role" json:"role"`

	// Goal states what the agent is trying to achieve
	Goal string `yaml:"goal" json:"goal"`

	// Backstory gives the agent its persona and working context
	Backstory string `yaml:"backstory" json:"backstory"`

	// Tools is an ordered list of tool references (may be empty)
	Tools []string `yaml:"tools,omitempty" json:"tools,omitempty"`

	// Verbose enables detailed execution output (default true)
	Verbose *bool `yaml:"verbose,omitempty" json:"verbose,omitempty"`

	// AllowDelegation lets the agent hand work to other agents (default false)
	AllowDelegation *bool `yaml:"allow_delegation,omitempty" json:"allow_delegation,omitempty"`

	// Memory enables conversational memory (optional, no default)
	Memory *bool `yaml:"memory,omitempty" json:"memory,omitempty"`

	// MaxIterations caps reasoning iterations (optional, must be positive)
	MaxIterations *int `yaml:"max_iterations,omitempty" json:"max_iterations,omitempty"`

	// MaxRequestsPerMinute rate-limits provider calls (optional, must be positive)
	MaxRequestsPerMinute *int `yaml:"max_requests_per_minute,omitempty" json:"max_requests_per_minute,omitempty"`

	// MaxExecutionSeconds caps wall-clock execution time (optional, must be positive)
	MaxExecutionSeconds *int `yaml:"max_execution_seconds,omitempty" json:"max_execution_seconds,omitempty"`

	// MaxRetries caps retry attempts on provider errors (optional, must be positive)
	MaxRetries *int `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`

	// AllowCodeExecution lets the agent run generated code (default false)
	AllowCodeExecution *bool `yaml:"allow_code_execution,omitempty" json:"allow_code_execution,omitempty"`

	// LLM binds the agent to a specific model (optional)
	LLM *LLMBinding `yaml:"llm,omitempty" json:"llm,omitempty"`
}

// TaskSpec defines a unit of work. Context entries are data dependencies on
// other tasks' outputs, not an execution ordering.
type TaskSpec struct {
	// Name is the task identifier, unique within a document
	Name string `yaml:"name" json:"name"`

	// Description states the work to perform
	Description string `yaml:"description" json:"description"`

	// ExpectedOutput describes the deliverable the task must produce
	ExpectedOutput string `yaml:"expected_output" json:"expected_output"`

	// Agent is an optional role reference binding the task to one agent
	Agent string `yaml:"agent,omitempty" json:"agent,omitempty"`

	// Tools is an ordered list of tool references (optional)
	Tools []string `yaml:"tools,omitempty" json:"tools,omitempty"`

	// Context lists task names whose outputs this task consumes
	Context []string `yaml:"context,omitempty" json:"context,omitempty"`

	// OutputFile is an optional path the task result is written to
	OutputFile string `yaml:"output_file,omitempty" json:"output_file,omitempty"`

	// ExecutionNumber is an optional execution-order hint
	ExecutionNumber *int `yaml:"execution_number,omitempty" json:"execution_number,omitempty"`
}

// CrewSpec groups agents and tasks executed together under a process policy.
type CrewSpec struct {
	// Name is the crew identifier, unique within a document
	Name string `yaml:"name" json:"name"`

	// Process selects task scheduling (sequential, hierarchical; default sequential)
	Process Process `yaml:"process,omitempty" json:"process,omitempty"`

	// Verbose enables detailed execution output
	Verbose bool `yaml:"verbose,omitempty" json:"verbose,omitempty"`

	// Memory enables crew-level shared memory
	Memory bool `yaml:"memory,omitempty" json:"memory,omitempty"`

	// MaxRequestsPerMinute rate-limits the crew as a whole (optional, must be positive)
	MaxRequestsPerMinute *int `yaml:"max_requests_per_minute,omitempty" json:"max_requests_per_minute,omitempty"`

	// Agents lists member agent roles by name
	Agents []string `yaml:"agents,omitempty" json:"agents,omitempty"`

	// Tasks lists member tasks by name
	Tasks []string `yaml:"tasks,omitempty" json:"tasks,omitempty"`

	// Manager is an optional role reference, meaningful for hierarchical crews.
	// Membership in Agents is not enforced; a missing manager is the
	// execution engine's responsibility.
	Manager string `yaml:"manager,omitempty" json:"manager,omitempty"`
}

// Document is the root configuration graph: a crew document, or a flow
// document when the flow section is present. A Document that has passed
// both Parse-time validation and ValidateReferences is final and is never
// mutated afterward.
type Document struct {
	// GroupName is an optional label for the execution group
	GroupName string `yaml:"execution_group_name,omitempty" json:"execution_group_name,omitempty"`

	// Type is an optional document tag; when present it must be exactly "RAG"
	Type string `yaml:"type,omitempty" json:"type,omitempty"`

	// Flow is present only for flow documents and orchestrates the crews
	Flow *FlowSpec `yaml:"flow,omitempty" json:"flow,omitempty"`

	// FlowMethods lists the flow's methods, accepted either as a bare list
	// or wrapped under a flow_methods key (see FlowMethodList)
	FlowMethods FlowMethodList `yaml:"flow_methods,omitempty" json:"flow_methods,omitempty"`

	// Crews are the crew definitions
	Crews []CrewSpec `yaml:"crews" json:"crews"`

	// Agents are the agent definitions
	Agents []AgentSpec `yaml:"agents" json:"agents"`

	// Tasks are the task definitions
	Tasks []TaskSpec `yaml:"tasks" json:"tasks"`
}

// ParseDocument parses a crew or flow document from YAML bytes. Decoding is
// strict: unknown fields fail with a field validation error rather than
// being dropped. Defaults are applied before local validation so that
// validation always sees fully populated entities.
//
// ParseDocument performs only local, single-entity checks. Run
// ValidateReferences on the result to check cross-entity name references.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, &errors.ValidationError{
				Field:      "document",
				Message:    "document is empty",
				Suggestion: "provide agents, tasks, and crews sections",
			}
		}
		return nil, classifyDecodeError(err)
	}

	doc.ApplyDefaults()

	if err := doc.Validate(); err != nil {
		return nil, err
	}

	return &doc, nil
}

// classifyDecodeError separates schema-level decode failures (unknown
// fields, wrong value types) from malformed YAML. yaml.v3 reports the
// former as a TypeError once the text itself parsed.
func classifyDecodeError(err error) error {
	var fieldErr *errors.ValidationError
	if errors.As(err, &fieldErr) {
		return fieldErr
	}
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		msg := "invalid document structure"
		if len(typeErr.Errors) > 0 {
			msg = typeErr.Errors[0]
		}
		return &errors.ValidationError{
			Field:      "document",
			Message:    msg,
			Suggestion: "remove unrecognized fields and check value types against the document schema",
		}
	}
	return &errors.SyntaxError{Cause: err}
}

// ApplyDefaults fills defaulted fields on every entity: agent verbose
// (true), allow_delegation (false), allow_code_execution (false), crew
// process (sequential), and LLM temperature (0.7). Optional fields with no
// default, such as agent memory, are left unset.
func (d *Document) ApplyDefaults() {
	for i := range d.Agents {
		agent := &d.Agents[i]
		if agent.Verbose == nil {
			agent.Verbose = boolPtr(true)
		}
		if agent.AllowDelegation == nil {
			agent.AllowDelegation = boolPtr(false)
		}
		if agent.AllowCodeExecution == nil {
			agent.AllowCodeExecution = boolPtr(false)
		}
		if agent.LLM != nil && agent.LLM.Temperature == nil {
			agent.LLM.Temperature = floatPtr(DefaultTemperature)
		}
	}

	for i := range d.Crews {
		if d.Crews[i].Process == "" {
			d.Crews[i].Process = ProcessSequential
		}
	}
}

// Validate checks local, single-entity constraints in document order:
// required fields, non-empty strings, numeric ranges, enum membership, and
// key uniqueness. Cross-entity references are not checked here.
func (d *Document) Validate() error {
	if len(d.Agents) == 0 {
		return &errors.ValidationError{
			Field:      "agents",
			Message:    "document must define at least one agent",
			Suggestion: "add an agents section with at least one role",
		}
	}
	if len(d.Tasks) == 0 {
		return &errors.ValidationError{
			Field:      "tasks",
			Message:    "document must define at least one task",
			Suggestion: "add a tasks section with at least one task",
		}
	}
	if len(d.Crews) == 0 {
		return &errors.ValidationError{
			Field:      "crews",
			Message:    "document must define at least one crew",
			Suggestion: "add a crews section grouping agents and tasks",
		}
	}
	if len(d.FlowMethods) > 0 && d.Flow == nil {
		return &errors.ValidationError{
			Field:      "flow_methods",
			Message:    "flow_methods requires a flow section",
			Suggestion: "add a top-level flow section or remove flow_methods",
		}
	}

	roles := make(map[string]bool, len(d.Agents))
	for i := range d.Agents {
		agent := &d.Agents[i]
		if err := agent.Validate(fmt.Sprintf("agents[%d]", i)); err != nil {
			return err
		}
		if roles[agent.Role] {
			return &errors.ValidationError{
				Field:      fmt.Sprintf("agents[%d].role", i),
				Message:    fmt.Sprintf("duplicate agent role: %s", agent.Role),
				Suggestion: "ensure each agent has a unique role",
			}
		}
		roles[agent.Role] = true
	}

	taskNames := make(map[string]bool, len(d.Tasks))
	for i := range d.Tasks {
		task := &d.Tasks[i]
		if err := task.Validate(fmt.Sprintf("tasks[%d]", i)); err != nil {
			return err
		}
		if taskNames[task.Name] {
			return &errors.ValidationError{
				Field:      fmt.Sprintf("tasks[%d].name", i),
				Message:    fmt.Sprintf("duplicate task name: %s", task.Name),
				Suggestion: "ensure each task has a unique name",
			}
		}
		taskNames[task.Name] = true
	}

	crewNames := make(map[string]bool, len(d.Crews))
	for i := range d.Crews {
		c := &d.Crews[i]
		if err := c.Validate(fmt.Sprintf("crews[%d]", i)); err != nil {
			return err
		}
		if crewNames[c.Name] {
			return &errors.ValidationError{
				Field:      fmt.Sprintf("crews[%d].name", i),
				Message:    fmt.Sprintf("duplicate crew name: %s", c.Name),
				Suggestion: "ensure each crew has a unique name",
			}
		}
		crewNames[c.Name] = true
	}

	if d.Flow != nil {
		if err := d.Flow.Validate("flow"); err != nil {
			return err
		}
	}
	for i := range d.FlowMethods {
		if err := d.FlowMethods[i].Validate(fmt.Sprintf("flow_methods[%d]", i)); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks the agent's local constraints.
func (a *AgentSpec) Validate(path string) error {
	if a.Role == "" {
		return requiredField(path+".role", "agent role is required", "give the agent a unique role name")
	}
	if a.Goal == "" {
		return requiredField(path+".goal", "agent goal is required", "describe what the agent is trying to achieve")
	}
	if a.Backstory == "" {
		return requiredField(path+".backstory", "agent backstory is required", "give the agent a persona and working context")
	}

	for _, limit := range []struct {
		name  string
		value *int
	}{
		{"max_iterations", a.MaxIterations},
		{"max_requests_per_minute", a.MaxRequestsPerMinute},
		{"max_execution_seconds", a.MaxExecutionSeconds},
		{"max_retries", a.MaxRetries},
	} {
		if limit.value != nil && *limit.value <= 0 {
			return &errors.ValidationError{
				Field:      path + "." + limit.name,
				Message:    fmt.Sprintf("%s must be a positive integer, got %d", limit.name, *limit.value),
				Suggestion: "use a value of 1 or greater, or omit the field",
			}
		}
	}

	if a.LLM != nil {
		if err := a.LLM.Validate(path + ".llm"); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks the binding's local constraints.
func (l *LLMBinding) Validate(path string) error {
	switch l.Provider {
	case ProviderOpenAI, ProviderSnowflake:
	case "":
		return requiredField(path+".provider", "llm provider is required", "set provider to openai or snowflake")
	default:
		return &errors.ValidationError{
			Field:      path + ".provider",
			Message:    fmt.Sprintf("unsupported llm provider: %s", l.Provider),
			Suggestion: "set provider to openai or snowflake",
		}
	}
	if l.Model == "" {
		return requiredField(path+".model", "llm model is required", "name the provider model to bind the agent to")
	}
	if l.Temperature != nil && (*l.Temperature < 0.0 || *l.Temperature > 2.0) {
		return &errors.ValidationError{
			Field:      path + ".temperature",
			Message:    fmt.Sprintf("temperature must be within [0.0, 2.0], got %v", *l.Temperature),
			Suggestion: "use a sampling temperature between 0.0 and 2.0",
		}
	}
	if l.MaxTokens != nil && *l.MaxTokens <= 0 {
		return &errors.ValidationError{
			Field:      path + ".max_tokens",
			Message:    fmt.Sprintf("max_tokens must be a positive integer, got %d", *l.MaxTokens),
			Suggestion: "use a value of 1 or greater, or omit the field",
		}
	}
	return nil
}

// Validate checks the task's local constraints.
func (t *TaskSpec) Validate(path string) error {
	if t.Name == "" {
		return requiredField(path+".name", "task name is required", "give the task a unique name")
	}
	if t.Description == "" {
		return requiredField(path+".description", "task description is required", "describe the work the task performs")
	}
	if t.ExpectedOutput == "" {
		return requiredField(path+".expected_output", "task expected_output is required", "describe the deliverable the task must produce")
	}
	return nil
}

// Validate checks the crew's local constraints.
func (c *CrewSpec) Validate(path string) error {
	if c.Name == "" {
		return requiredField(path+".name", "crew name is required", "give the crew a unique name")
	}
	switch c.Process {
	case ProcessSequential, ProcessHierarchical:
	default:
		return &errors.ValidationError{
			Field:      path + ".process",
			Message:    fmt.Sprintf("unsupported process: %s", c.Process),
			Suggestion: "set process to sequential or hierarchical",
		}
	}
	if c.MaxRequestsPerMinute != nil && *c.MaxRequestsPerMinute <= 0 {
		return &errors.ValidationError{
			Field:      path + ".max_requests_per_minute",
			Message:    fmt.Sprintf("max_requests_per_minute must be a positive integer, got %d", *c.MaxRequestsPerMinute),
			Suggestion: "use a value of 1 or greater, or omit the field",
		}
	}
	return nil
}

func requiredField(field, message, suggestion string) error {
	return &errors.ValidationError{
		Field:      field,
		Message:    message,
		Suggestion: suggestion,
	}
}

func boolPtr(v bool) *bool { return &v }

func floatPtr(v float64) *float64 { return &v }
