package crew

import "gopkg.in/yaml.v3"

// Shape describes whether raw text looks like a flow document or a
// crew/execution-group document. Request routing uses it to reject a
// document submitted to the wrong endpoint kind with a message naming the
// correct alternative.
type Shape string

const (
	// ShapeFlow marks documents carrying a top-level flow key.
	ShapeFlow Shape = "flow"
	// ShapeCrew marks everything else, including unparsable text. The safe
	// default points callers at the crew schema, whose full parse surfaces
	// the real syntax error; malformed input is never treated as valid.
	ShapeCrew Shape = "crew"
)

// Classify inspects raw text with a best-effort generic parse. Text that
// fails to parse, does not form a mapping, or lacks a top-level flow key is
// crew-shaped; otherwise it is flow-shaped.
func Classify(raw []byte) Shape {
	var probe map[string]interface{}
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return ShapeCrew
	}
	if _, ok := probe["flow"]; ok {
		return ShapeFlow
	}
	return ShapeCrew
}
