package nodes

import (
	"context"

	"github.com/driftworks/conduit/pkg/pipeline"
)

const TypeSplit pipeline.NodeType = "split"

// SplitNode cuts a sequence in two at an index. Without a connected
// split_index the cut lands at the midpoint.
type SplitNode struct {
	pipeline.Base
}

// NewSplit creates a split node.
func NewSplit() *SplitNode {
	n := &SplitNode{Base: pipeline.NewBase(TypeSplit, "Split")}
	n.AddInput("data", pipeline.TypeSequence)
	n.AddOptionalInput("split_index", pipeline.TypeNumber)
	n.AddOutput("data1", pipeline.TypeSequence)
	n.AddOutput("data2", pipeline.TypeSequence)
	return n
}

func (n *SplitNode) Process(_ context.Context) bool {
	seq, ok := toSequence(n.InputValue("data"))
	if !ok {
		return false
	}

	idx := len(seq) / 2
	if f, ok := toNumber(n.InputValue("split_index")); ok {
		idx = int(f)
	}
	if idx < 0 {
		idx = 0
	}
	if idx > len(seq) {
		idx = len(seq)
	}

	n.SetOutputValue("data1", append([]any(nil), seq[:idx]...))
	n.SetOutputValue("data2", append([]any(nil), seq[idx:]...))
	return true
}
