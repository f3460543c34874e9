package nodes

import (
	"context"

	"github.com/driftworks/conduit/pkg/pipeline"
)

const TypeJoin pipeline.NodeType = "join"

// JoinNode concatenates two sequences. Both inputs are optional so a
// half-wired join still produces whichever side is present.
type JoinNode struct {
	pipeline.Base
}

// NewJoin creates a join node.
func NewJoin() *JoinNode {
	n := &JoinNode{Base: pipeline.NewBase(TypeJoin, "Join")}
	n.AddOptionalInput("data1", pipeline.TypeSequence)
	n.AddOptionalInput("data2", pipeline.TypeSequence)
	n.AddOutput("joined_data", pipeline.TypeSequence)
	return n
}

func (n *JoinNode) Process(_ context.Context) bool {
	a, aok := toSequence(n.InputValue("data1"))
	b, bok := toSequence(n.InputValue("data2"))
	if !aok && !bok {
		return false
	}

	out := make([]any, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	n.SetOutputValue("joined_data", out)
	return true
}
