package nodes

import (
	"context"
	"log/slog"

	"github.com/driftworks/conduit/pkg/pipeline"
)

const TypePrint pipeline.NodeType = "print"

// PrintNode logs whatever reaches it and passes the value through, so it
// can sit in the middle of a chain as a probe.
type PrintNode struct {
	pipeline.Base
	logger *slog.Logger
}

// NewPrint creates a print node logging to the default logger.
func NewPrint() *PrintNode {
	n := &PrintNode{Base: pipeline.NewBase(TypePrint, "Print"), logger: slog.Default()}
	n.AddInput("data", pipeline.TypeAny)
	n.AddOutput("data", pipeline.TypeAny)
	return n
}

// SetLogger redirects the node's output, mainly for tests.
func (n *PrintNode) SetLogger(logger *slog.Logger) {
	n.logger = logger
}

func (n *PrintNode) Process(_ context.Context) bool {
	v := n.InputValue("data")
	n.logger.Info("print node", "node", n.Name(), "value", v)
	n.SetOutputValue("data", v)
	return true
}
