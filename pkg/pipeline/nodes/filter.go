package nodes

import (
	"context"
	"math"

	"github.com/driftworks/conduit/pkg/pipeline"
)

const TypeFilter pipeline.NodeType = "filter"

// FilterNode keeps the elements of a sequence matching a named
// condition. With no condition connected, the sequence passes through
// unchanged.
type FilterNode struct {
	pipeline.Base
}

// NewFilter creates a filter node.
func NewFilter() *FilterNode {
	n := &FilterNode{Base: pipeline.NewBase(TypeFilter, "Filter")}
	n.AddInput("data", pipeline.TypeSequence)
	n.AddOptionalInput("condition", pipeline.TypeText)
	n.AddOutput("filtered_data", pipeline.TypeSequence)
	return n
}

func (n *FilterNode) Process(_ context.Context) bool {
	seq, ok := toSequence(n.InputValue("data"))
	if !ok {
		return false
	}

	cond, _ := n.InputValue("condition").(string)
	if cond == "" {
		n.SetOutputValue("filtered_data", seq)
		return true
	}

	pred, ok := filterPredicates[cond]
	if !ok {
		// Unknown condition: pass everything, as a filter dropped into a
		// graph before its condition source should not destroy data.
		n.SetOutputValue("filtered_data", seq)
		return true
	}

	var out []any
	for _, v := range seq {
		if pred(v) {
			out = append(out, v)
		}
	}
	n.SetOutputValue("filtered_data", out)
	return true
}

var filterPredicates = map[string]func(any) bool{
	"positive": func(v any) bool {
		f, ok := toNumber(v)
		return ok && f > 0
	},
	"negative": func(v any) bool {
		f, ok := toNumber(v)
		return ok && f < 0
	},
	"even": func(v any) bool {
		f, ok := toNumber(v)
		return ok && f == math.Trunc(f) && math.Mod(f, 2) == 0
	},
	"odd": func(v any) bool {
		f, ok := toNumber(v)
		return ok && f == math.Trunc(f) && math.Mod(math.Abs(f), 2) == 1
	},
}
