package crew

import (
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestFlowMethodListShapes(t *testing.T) {
	const bare = `
- name: kickoff
  type: start
  action: run_crew
  crew: research
- name: collect
  type: listen
  action: custom_logic
  combinator: and
`
	const wrapped = `
flow_methods:
  - name: kickoff
    type: start
    action: run_crew
    crew: research
  - name: collect
    type: listen
    action: custom_logic
    combinator: and
`

	var fromBare, fromWrapped FlowMethodList
	if err := yaml.Unmarshal([]byte(bare), &fromBare); err != nil {
		t.Fatalf("bare list failed: %v", err)
	}
	if err := yaml.Unmarshal([]byte(wrapped), &fromWrapped); err != nil {
		t.Fatalf("wrapped form failed: %v", err)
	}

	if !reflect.DeepEqual(fromBare, fromWrapped) {
		t.Errorf("shapes should normalize identically:\nbare:    %#v\nwrapped: %#v", fromBare, fromWrapped)
	}
	if len(fromBare) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(fromBare))
	}
	if fromBare[0].Type != MethodStart || fromBare[1].Combinator != CombinatorAnd {
		t.Errorf("decoded methods lost fields: %#v", fromBare)
	}
}

func TestFlowMethodListRejectsScalar(t *testing.T) {
	var methods FlowMethodList
	if err := yaml.Unmarshal([]byte(`"kickoff"`), &methods); err == nil {
		t.Fatal("scalar input should be rejected")
	}
}

func TestFlowMethodListRejectsUnknownWrapperKey(t *testing.T) {
	var methods FlowMethodList
	err := yaml.Unmarshal([]byte(`
flow_methods:
  - name: kickoff
    type: start
    action: run_crew
extra: true
`), &methods)
	if err == nil {
		t.Fatal("unknown sibling key in wrapper form should be rejected")
	}
}

func TestFlowMethodListRejectsWrapperWithoutKey(t *testing.T) {
	var methods FlowMethodList
	if err := yaml.Unmarshal([]byte(`{}`), &methods); err == nil {
		t.Fatal("mapping without flow_methods key should be rejected")
	}
}

func TestNormalizeFlowMethods(t *testing.T) {
	method := map[string]interface{}{
		"name":   "kickoff",
		"type":   "start",
		"action": "run_crew",
	}

	bare, err := NormalizeFlowMethods([]interface{}{method})
	if err != nil {
		t.Fatalf("bare list failed: %v", err)
	}
	wrapped, err := NormalizeFlowMethods(map[string]interface{}{
		"flow_methods": []interface{}{method},
	})
	if err != nil {
		t.Fatalf("wrapped form failed: %v", err)
	}

	if !reflect.DeepEqual(bare, wrapped) {
		t.Errorf("canonical output differs:\nbare:    %#v\nwrapped: %#v", bare, wrapped)
	}
	if len(bare) != 1 || bare[0].Name != "kickoff" {
		t.Errorf("unexpected canonical list: %#v", bare)
	}
}

func TestFlowMethodSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		method  FlowMethodSpec
		wantErr bool
	}{
		{
			name:   "valid start method",
			method: FlowMethodSpec{Name: "kickoff", Type: MethodStart, Action: ActionRunCrew, Crew: "research"},
		},
		{
			name:   "valid listen method with combinator",
			method: FlowMethodSpec{Name: "join", Type: MethodListen, Action: ActionCustomLogic, Combinator: CombinatorOr},
		},
		{
			name:    "missing name",
			method:  FlowMethodSpec{Type: MethodStart, Action: ActionRunCrew},
			wantErr: true,
		},
		{
			name:    "bad type",
			method:  FlowMethodSpec{Name: "kickoff", Type: "poll", Action: ActionRunCrew},
			wantErr: true,
		},
		{
			name:    "bad action",
			method:  FlowMethodSpec{Name: "kickoff", Type: MethodStart, Action: "noop"},
			wantErr: true,
		},
		{
			name:    "bad combinator",
			method:  FlowMethodSpec{Name: "kickoff", Type: MethodListen, Action: ActionCustomLogic, Combinator: "xor"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.method.Validate("flow_methods[0]")
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
