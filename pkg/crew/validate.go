package crew

import (
	"fmt"
	"strings"

	"github.com/crewforge/crewforge/pkg/errors"
)

// ValidateReferences checks the document's cross-entity invariants. It runs
// only after local parse-time validation has succeeded, builds three lookup
// sets (agent roles, task names, crew names) in one pass, then checks each
// invariant in a fixed order, entity by entity in document order. The first
// violation is returned immediately; there is no accumulated-error mode.
//
// Checked, in order:
//  1. every agent role listed by a crew exists
//  2. every task name listed by a crew exists
//  3. every context task name listed by a task exists
//  4. a task with an explicit agent, when listed in a crew, only names an
//     agent that is also a member of that crew
//  5. for flow documents, every crew named by the flow and by each flow
//     method exists
//  6. the document type tag, when present, is exactly "RAG"
//
// Task context edges are not checked for cycles here; a task may declare
// itself or a cycle as context and still validate. The execution engine
// owns that gap. ValidateReferences is pure: the document is never mutated.
func ValidateReferences(doc *Document) error {
	roles := make(map[string]bool, len(doc.Agents))
	for i := range doc.Agents {
		roles[doc.Agents[i].Role] = true
	}
	taskNames := make(map[string]bool, len(doc.Tasks))
	taskByName := make(map[string]*TaskSpec, len(doc.Tasks))
	for i := range doc.Tasks {
		taskNames[doc.Tasks[i].Name] = true
		taskByName[doc.Tasks[i].Name] = &doc.Tasks[i]
	}
	crewNames := make(map[string]bool, len(doc.Crews))
	for i := range doc.Crews {
		crewNames[doc.Crews[i].Name] = true
	}

	// 1. crew agent references
	for i := range doc.Crews {
		c := &doc.Crews[i]
		for _, role := range c.Agents {
			if !roles[role] {
				return &errors.ReferenceError{
					Kind:      "crew",
					Entity:    c.Name,
					Reference: role,
					Detail:    "references undefined agent role",
				}
			}
		}
	}

	// 2. crew task references
	for i := range doc.Crews {
		c := &doc.Crews[i]
		for _, name := range c.Tasks {
			if !taskNames[name] {
				return &errors.ReferenceError{
					Kind:      "crew",
					Entity:    c.Name,
					Reference: name,
					Detail:    "references undefined task",
				}
			}
		}
	}

	// 3. task context references
	for i := range doc.Tasks {
		t := &doc.Tasks[i]
		for _, name := range t.Context {
			if !taskNames[name] {
				return &errors.ReferenceError{
					Kind:      "task",
					Entity:    t.Name,
					Reference: name,
					Detail:    "context references undefined task",
				}
			}
		}
	}

	// 4. agent membership for tasks listed in a crew
	for i := range doc.Crews {
		c := &doc.Crews[i]
		members := make(map[string]bool, len(c.Agents))
		for _, role := range c.Agents {
			members[role] = true
		}
		for _, name := range c.Tasks {
			t := taskByName[name]
			if t.Agent == "" || members[t.Agent] {
				continue
			}
			return &errors.ReferenceError{
				Kind:      "task",
				Entity:    t.Name,
				Reference: t.Agent,
				Detail: fmt.Sprintf("agent is not a member of crew %q (available agents: [%s])",
					c.Name, strings.Join(c.Agents, ", ")),
			}
		}
	}

	// 5. flow crew references
	if doc.Flow != nil {
		for _, name := range doc.Flow.Crews {
			if !crewNames[name] {
				return &errors.ReferenceError{
					Kind:      "flow",
					Entity:    doc.Flow.ClassName,
					Reference: name,
					Detail:    "references undefined crew",
				}
			}
		}
		for i := range doc.FlowMethods {
			m := &doc.FlowMethods[i]
			if m.Crew != "" && !crewNames[m.Crew] {
				return &errors.ReferenceError{
					Kind:      "flow_method",
					Entity:    m.Name,
					Reference: m.Crew,
					Detail:    "references undefined crew",
				}
			}
		}
	}

	// 6. document type tag
	if doc.Type != "" && doc.Type != DocumentTypeRAG {
		return &errors.ReferenceError{
			Kind:      "document",
			Entity:    doc.GroupName,
			Reference: doc.Type,
			Detail:    fmt.Sprintf("unsupported document type (only %q is accepted)", DocumentTypeRAG),
		}
	}

	return nil
}
