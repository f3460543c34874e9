package nodes

import (
	"context"
	"fmt"
	"math"

	"github.com/driftworks/conduit/pkg/pipeline"
)

const TypeTransform pipeline.NodeType = "transform"

// TransformNode applies an element-wise (or, for normalize, whole-
// sequence) operation to a sequence. Non-numeric elements pass through
// untouched.
type TransformNode struct {
	pipeline.Base
	op string
}

var transformOps = map[string]bool{
	"square":    true,
	"sqrt":      true,
	"abs":       true,
	"log":       true,
	"normalize": true,
}

// NewTransform creates a transform node for the given operation.
func NewTransform(op string) (*TransformNode, error) {
	if !transformOps[op] {
		return nil, &pipeline.ConfigError{Type: TypeTransform, Reason: fmt.Sprintf("unknown operation %q", op)}
	}
	n := &TransformNode{Base: pipeline.NewBase(TypeTransform, "Transform ("+op+")"), op: op}
	n.AddInput("data", pipeline.TypeSequence)
	n.AddOutput("transformed_data", pipeline.TypeSequence)
	n.SetConfig("op", op)
	return n, nil
}

func (n *TransformNode) Process(_ context.Context) bool {
	seq, ok := toSequence(n.InputValue("data"))
	if !ok {
		return false
	}

	var out []any
	switch n.op {
	case "normalize":
		out = normalize(seq)
	default:
		out = make([]any, len(seq))
		for i, v := range seq {
			f, isNum := toNumber(v)
			if !isNum {
				out[i] = v
				continue
			}
			switch n.op {
			case "square":
				out[i] = f * f
			case "sqrt":
				if f >= 0 {
					out[i] = math.Sqrt(f)
				} else {
					out[i] = v
				}
			case "abs":
				out[i] = math.Abs(f)
			case "log":
				if f > 0 {
					out[i] = math.Log(f)
				} else {
					out[i] = v
				}
			}
		}
	}

	n.SetOutputValue("transformed_data", out)
	return true
}

// normalize rescales the numeric elements to [0, 1]; non-numeric
// elements pass through.
func normalize(seq []any) []any {
	nums := numericOnly(seq)
	if len(nums) == 0 {
		return seq
	}
	minVal, maxVal := nums[0], nums[0]
	for _, f := range nums[1:] {
		minVal = math.Min(minVal, f)
		maxVal = math.Max(maxVal, f)
	}
	rangeVal := maxVal - minVal
	if rangeVal == 0 {
		rangeVal = 1
	}

	out := make([]any, len(seq))
	for i, v := range seq {
		if f, ok := toNumber(v); ok {
			out[i] = (f - minVal) / rangeVal
		} else {
			out[i] = v
		}
	}
	return out
}
