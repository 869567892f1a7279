package crew

import (
	"bytes"
	"fmt"

	"github.com/crewforge/crewforge/pkg/errors"
	"gopkg.in/yaml.v3"
)

// MethodType identifies how a flow method is triggered.
type MethodType string

const (
	// MethodStart runs when the flow begins.
	MethodStart MethodType = "start"
	// MethodListen runs when upstream methods emit.
	MethodListen MethodType = "listen"
	// MethodRouter selects a downstream path from its input.
	MethodRouter MethodType = "router"
)

// MethodAction identifies what a flow method does when triggered.
type MethodAction string

const (
	// ActionRunCrew kicks off the referenced crew.
	ActionRunCrew MethodAction = "run_crew"
	// ActionCustomLogic defers to engine-side custom code.
	ActionCustomLogic MethodAction = "custom_logic"
)

// Combinator joins multiple upstream signals watched by a listen method.
type Combinator string

const (
	CombinatorAnd Combinator = "and"
	CombinatorOr  Combinator = "or"
)

// FlowSpec orchestrates the document's crews through an ordered set of
// methods.
type FlowSpec struct {
	// Name is an optional flow label
	Name string `yaml:"flow_name,omitempty" json:"flow_name,omitempty"`

	// Verbose enables detailed execution output
	Verbose bool `yaml:"verbose,omitempty" json:"verbose,omitempty"`

	// ClassName identifies the flow class the engine instantiates
	ClassName string `yaml:"class_name" json:"class_name"`

	// Crews lists the crew names that belong to this flow, in order
	Crews []string `yaml:"crews" json:"crews"`
}

// Validate checks the flow's local constraints.
func (f *FlowSpec) Validate(path string) error {
	if f.ClassName == "" {
		return requiredField(path+".class_name", "flow class_name is required", "name the flow class the engine should instantiate")
	}
	if len(f.Crews) == 0 {
		return requiredField(path+".crews", "flow must list at least one crew", "add the crew names the flow orchestrates")
	}
	return nil
}

// FlowMethodSpec defines one named method of a flow.
type FlowMethodSpec struct {
	// Name is the method identifier
	Name string `yaml:"name" json:"name"`

	// Type is the trigger kind (start, listen, router)
	Type MethodType `yaml:"type" json:"type"`

	// Action is what the method does when triggered (run_crew, custom_logic)
	Action MethodAction `yaml:"action" json:"action"`

	// Crew is an optional crew reference, used with the run_crew action
	Crew string `yaml:"crew,omitempty" json:"crew,omitempty"`

	// Combinator joins multiple upstream signals for listen methods (and, or)
	Combinator Combinator `yaml:"combinator,omitempty" json:"combinator,omitempty"`
}

// Validate checks the method's local constraints.
func (m *FlowMethodSpec) Validate(path string) error {
	if m.Name == "" {
		return requiredField(path+".name", "flow method name is required", "give the method a name")
	}
	switch m.Type {
	case MethodStart, MethodListen, MethodRouter:
	case "":
		return requiredField(path+".type", "flow method type is required", "set type to start, listen, or router")
	default:
		return &errors.ValidationError{
			Field:      path + ".type",
			Message:    fmt.Sprintf("unsupported flow method type: %s", m.Type),
			Suggestion: "set type to start, listen, or router",
		}
	}
	switch m.Action {
	case ActionRunCrew, ActionCustomLogic:
	case "":
		return requiredField(path+".action", "flow method action is required", "set action to run_crew or custom_logic")
	default:
		return &errors.ValidationError{
			Field:      path + ".action",
			Message:    fmt.Sprintf("unsupported flow method action: %s", m.Action),
			Suggestion: "set action to run_crew or custom_logic",
		}
	}
	switch m.Combinator {
	case "", CombinatorAnd, CombinatorOr:
	default:
		return &errors.ValidationError{
			Field:      path + ".combinator",
			Message:    fmt.Sprintf("unsupported combinator: %s", m.Combinator),
			Suggestion: "set combinator to and or or, or omit the field",
		}
	}
	return nil
}

// FlowMethodList is the canonical ordered list of flow methods. Input may
// be supplied either as a bare sequence of method descriptors or as a
// mapping wrapping that same sequence under a flow_methods key; both decode
// to the same list, so downstream code never branches on input shape.
type FlowMethodList []FlowMethodSpec

// flowMethodWrapper is the mapping form of FlowMethodList input.
type flowMethodWrapper struct {
	FlowMethods []FlowMethodSpec `yaml:"flow_methods"`
}

// UnmarshalYAML implements yaml.Unmarshaler, canonicalizing the two
// accepted input shapes to the bare list form.
func (l *FlowMethodList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var methods []FlowMethodSpec
		if err := decodeStrict(value, &methods); err != nil {
			return err
		}
		*l = methods
		return nil
	case yaml.MappingNode:
		var wrapper flowMethodWrapper
		if err := decodeStrict(value, &wrapper); err != nil {
			return err
		}
		if wrapper.FlowMethods == nil {
			return &errors.ValidationError{
				Field:      "flow_methods",
				Message:    "mapping form requires a flow_methods key",
				Suggestion: "wrap the method list under a flow_methods key or supply the list directly",
			}
		}
		*l = wrapper.FlowMethods
		return nil
	default:
		return &errors.ValidationError{
			Field:      "flow_methods",
			Message:    fmt.Sprintf("must be a list of methods or a mapping wrapping one, got %s", nodeKindName(value.Kind)),
			Suggestion: "supply flow methods as an ordered list",
		}
	}
}

// NormalizeFlowMethods canonicalizes an already-parsed generic value (a
// bare list or a wrapping map) into a FlowMethodList. Callers holding raw
// YAML should prefer decoding into FlowMethodList directly.
func NormalizeFlowMethods(raw interface{}) (FlowMethodList, error) {
	// Round-trip through YAML so both shapes reuse the strict node decoder.
	data, err := yaml.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, "encoding flow methods")
	}
	var methods FlowMethodList
	if err := yaml.Unmarshal(data, &methods); err != nil {
		return nil, err
	}
	return methods, nil
}

// decodeStrict decodes a YAML node rejecting unknown fields. yaml.Node's
// own Decode has no strict mode, so the node is re-encoded and run through
// a strict decoder.
func decodeStrict(node *yaml.Node, out interface{}) error {
	data, err := yaml.Marshal(node)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(out)
}

func nodeKindName(kind yaml.Kind) string {
	switch kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
