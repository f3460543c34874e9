package nodes

import (
	"context"
	"strconv"
	"strings"

	"github.com/driftworks/conduit/pkg/pipeline"
)

const (
	TypeValue    pipeline.NodeType = "value"
	TypeSequence pipeline.NodeType = "values"
)

// ValueNode is a source holding a static scalar. An upstream connection
// on its optional input overrides the configured data.
type ValueNode struct {
	pipeline.Base
	data any
}

// NewValue creates a scalar source node.
func NewValue(data any) *ValueNode {
	n := &ValueNode{Base: pipeline.NewBase(TypeValue, "Value")}
	n.data = data
	n.AddOptionalInput("input", pipeline.TypeAny)
	n.AddOutput("output", pipeline.TypeAny)
	n.SetConfig("data", data)
	return n
}

// SetData replaces the configured value.
func (n *ValueNode) SetData(data any) {
	n.data = data
	n.SetConfig("data", data)
}

func (n *ValueNode) Process(_ context.Context) bool {
	v := n.data
	if in := n.InputValue("input"); in != nil {
		v = in
	}
	// A comma-separated string becomes a typed sequence, so a value
	// entered as "1, 2, 3" behaves like the list it reads as.
	if s, ok := v.(string); ok && strings.Contains(s, ",") {
		v = parseSequence(s)
	}
	n.SetOutputValue("output", v)
	return true
}

// SequenceNode is a source holding a static sequence.
type SequenceNode struct {
	pipeline.Base
	data []any
}

// NewSequence creates a sequence source node.
func NewSequence(data []any) *SequenceNode {
	n := &SequenceNode{Base: pipeline.NewBase(TypeSequence, "Values")}
	n.data = data
	n.AddOptionalInput("input", pipeline.TypeSequence)
	n.AddOutput("output", pipeline.TypeSequence)
	n.SetConfig("data", data)
	return n
}

// NewSequenceFromConfig restores a sequence source from persisted
// configuration. The data field may be a JSON array or a comma-separated
// string.
func NewSequenceFromConfig(cfg map[string]any) (*SequenceNode, error) {
	raw, ok := cfg["data"]
	if !ok {
		return NewSequence(nil), nil
	}
	if seq, ok := toSequence(raw); ok {
		return NewSequence(seq), nil
	}
	if s, ok := raw.(string); ok {
		return NewSequence(parseSequence(s)), nil
	}
	return nil, &pipeline.ConfigError{Type: TypeSequence, Reason: "data must be a sequence or comma-separated string"}
}

func (n *SequenceNode) Process(_ context.Context) bool {
	out := n.data
	if in := n.InputValue("input"); in != nil {
		if seq, ok := toSequence(in); ok {
			out = seq
		}
	}
	n.SetOutputValue("output", out)
	return true
}

// parseSequence splits a comma-separated string into typed elements:
// ints, then floats, then trimmed strings.
func parseSequence(s string) []any {
	parts := strings.Split(s, ",")
	out := make([]any, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if i, err := strconv.Atoi(part); err == nil {
			out = append(out, i)
			continue
		}
		if f, err := strconv.ParseFloat(part, 64); err == nil {
			out = append(out, f)
			continue
		}
		out = append(out, part)
	}
	return out
}
