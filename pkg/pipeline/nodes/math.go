package nodes

import (
	"context"
	"fmt"
	"math"

	"github.com/driftworks/conduit/pkg/pipeline"
)

const TypeMath pipeline.NodeType = "math"

var mathOps = map[string]func(a, b float64) float64{
	"add":      func(a, b float64) float64 { return a + b },
	"subtract": func(a, b float64) float64 { return a - b },
	"multiply": func(a, b float64) float64 { return a * b },
	"divide": func(a, b float64) float64 {
		if b == 0 {
			return 0
		}
		return a / b
	},
	"power": math.Pow,
	"modulo": func(a, b float64) float64 {
		if b == 0 {
			return 0
		}
		return math.Mod(a, b)
	},
}

// MathNode applies a basic binary arithmetic operation to its two number
// inputs.
type MathNode struct {
	pipeline.Base
	op func(a, b float64) float64
}

// NewMath creates a math node for the given operation. Unknown operations
// are a configuration error.
func NewMath(op string) (*MathNode, error) {
	fn, ok := mathOps[op]
	if !ok {
		return nil, &pipeline.ConfigError{Type: TypeMath, Reason: fmt.Sprintf("unknown operation %q", op)}
	}
	n := &MathNode{Base: pipeline.NewBase(TypeMath, "Math ("+op+")"), op: fn}
	n.AddInput("a", pipeline.TypeNumber)
	n.AddInput("b", pipeline.TypeNumber)
	n.AddOutput("result", pipeline.TypeNumber)
	n.SetConfig("op", op)
	return n, nil
}

func (n *MathNode) Process(_ context.Context) bool {
	a, aok := toNumber(n.InputValue("a"))
	b, bok := toNumber(n.InputValue("b"))
	if !aok || !bok {
		return false
	}
	n.SetOutputValue("result", n.op(a, b))
	return true
}
