package nodes

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/driftworks/conduit/pkg/pipeline"
)

const TypeAggregate pipeline.NodeType = "aggregate"

var aggregateOps = map[string]func([]float64) float64{
	"sum":  sum,
	"mean": func(nums []float64) float64 { return sum(nums) / float64(len(nums)) },
	"min": func(nums []float64) float64 {
		out := nums[0]
		for _, f := range nums[1:] {
			out = math.Min(out, f)
		}
		return out
	},
	"max": func(nums []float64) float64 {
		out := nums[0]
		for _, f := range nums[1:] {
			out = math.Max(out, f)
		}
		return out
	},
	"count": func(nums []float64) float64 { return float64(len(nums)) },
	"std":   std,
	"median": func(nums []float64) float64 {
		sorted := append([]float64(nil), nums...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			return (sorted[mid-1] + sorted[mid]) / 2
		}
		return sorted[mid]
	},
}

func sum(nums []float64) float64 {
	var total float64
	for _, f := range nums {
		total += f
	}
	return total
}

// std is the population standard deviation.
func std(nums []float64) float64 {
	mean := sum(nums) / float64(len(nums))
	var variance float64
	for _, f := range nums {
		d := f - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(nums)))
}

// AggregateNode reduces the numeric elements of a sequence to a single
// number. A sequence with no numeric elements is a per-node failure.
type AggregateNode struct {
	pipeline.Base
	op func([]float64) float64
}

// NewAggregate creates an aggregate node for the given operation.
func NewAggregate(op string) (*AggregateNode, error) {
	fn, ok := aggregateOps[op]
	if !ok {
		return nil, &pipeline.ConfigError{Type: TypeAggregate, Reason: fmt.Sprintf("unknown operation %q", op)}
	}
	n := &AggregateNode{Base: pipeline.NewBase(TypeAggregate, "Aggregate ("+op+")"), op: fn}
	n.AddInput("data", pipeline.TypeSequence)
	n.AddOutput("result", pipeline.TypeNumber)
	n.SetConfig("op", op)
	return n, nil
}

func (n *AggregateNode) Process(_ context.Context) bool {
	seq, ok := toSequence(n.InputValue("data"))
	if !ok {
		return false
	}
	nums := numericOnly(seq)
	if len(nums) == 0 {
		return false
	}
	n.SetOutputValue("result", n.op(nums))
	return true
}
